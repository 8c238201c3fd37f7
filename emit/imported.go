package emit

// ImportedType is a reference to a type that already exists outside the
// module being built: a runtime primitive, a system base class, or any
// externally loaded definition. Imported types resolve to TypeRef tokens on
// first use and compare by namespace, name and value-type-ness.
type ImportedType struct {
	namespace string
	name      string
	elem      ElementKind
	valueType bool
	arity     int
	hasCtor   bool
}

// ImportedTypeOptions tunes the shape of an imported reference. The zero
// value describes a plain reference class.
type ImportedTypeOptions struct {
	// ValueType marks the referenced type as having value semantics.
	ValueType bool
	// Element, when set to a primitive tag, makes signatures encode the
	// type as that one-byte element instead of a token.
	Element ElementKind
	// GenericArity is the number of generic parameters the referenced
	// definition declares; non-zero makes the reference usable as a
	// generic definition.
	GenericArity int
	// HasParameterlessCtor records that the referenced type exposes a
	// public parameterless constructor, which base-constructor resolution
	// relies on.
	HasParameterlessCtor bool
}

// NewImportedType builds a reference to an external type. opts may be nil.
func NewImportedType(namespace, name string, opts *ImportedTypeOptions) *ImportedType {
	t := &ImportedType{namespace: namespace, name: name}
	if opts != nil {
		t.valueType = opts.ValueType
		t.elem = opts.Element
		t.arity = opts.GenericArity
		t.hasCtor = opts.HasParameterlessCtor
	}
	if t.elem == 0 {
		if t.valueType {
			t.elem = ElemValueType
		} else {
			t.elem = ElemClass
		}
	}
	return t
}

var _ Type = (*ImportedType)(nil)

// Name returns the simple type name.
func (t *ImportedType) Name() string { return t.name }

// Namespace returns the dotted namespace, empty when none.
func (t *ImportedType) Namespace() string { return t.namespace }

// FullName joins namespace and name.
func (t *ImportedType) FullName() string {
	if t.namespace == "" {
		return t.name
	}
	return t.namespace + "." + t.name
}

// Kind returns TypeKindImported.
func (t *ImportedType) Kind() TypeKind { return TypeKindImported }

// Attributes returns zero; flags of external definitions are not tracked.
func (t *ImportedType) Attributes() TypeAttributes { return 0 }

// BaseType returns nil; bases of external definitions are not tracked.
func (t *ImportedType) BaseType() Type { return nil }

// ElementType returns nil.
func (t *ImportedType) ElementType() Type { return nil }

// IsValueType reports whether the reference was declared with value
// semantics.
func (t *ImportedType) IsValueType() bool { return t.valueType }

// IsGenericTypeDefinition reports whether the reference declares generic
// parameters.
func (t *ImportedType) IsGenericTypeDefinition() bool { return t.arity > 0 }

// GenericArguments returns nil; an imported definition's parameters are
// opaque and only their count is tracked.
func (t *ImportedType) GenericArguments() []Type { return nil }

func (t *ImportedType) String() string { return t.FullName() }

// GenericArity returns the number of generic parameters the referenced
// definition declares.
func (t *ImportedType) GenericArity() int { return t.arity }

// Element returns the signature element tag the reference encodes as.
func (t *ImportedType) Element() ElementKind { return t.elem }

// HasParameterlessCtor reports whether the referenced type exposes a public
// parameterless constructor.
func (t *ImportedType) HasParameterlessCtor() bool { return t.hasCtor }

// CoreTypes is the prelude of well-known external types a module needs while
// building: implicit bases, primitive signature shapes and the void return.
// DefaultCoreTypes covers the standard System namespace; a custom prelude
// can be supplied through ModuleOptions.
type CoreTypes struct {
	Object    *ImportedType
	ValueType *ImportedType
	Enum      *ImportedType
	Void      *ImportedType
	Bool      *ImportedType
	Char      *ImportedType
	Int8      *ImportedType
	UInt8     *ImportedType
	Int16     *ImportedType
	UInt16    *ImportedType
	Int32     *ImportedType
	UInt32    *ImportedType
	Int64     *ImportedType
	UInt64    *ImportedType
	Float32   *ImportedType
	Float64   *ImportedType
	IntPtr    *ImportedType
	UIntPtr   *ImportedType
	String    *ImportedType
}

// DefaultCoreTypes returns the standard System prelude.
func DefaultCoreTypes() CoreTypes {
	value := func(name string, elem ElementKind) *ImportedType {
		return NewImportedType("System", name, &ImportedTypeOptions{ValueType: true, Element: elem})
	}
	return CoreTypes{
		Object:    NewImportedType("System", "Object", &ImportedTypeOptions{Element: ElemObject, HasParameterlessCtor: true}),
		ValueType: NewImportedType("System", "ValueType", nil),
		Enum:      NewImportedType("System", "Enum", nil),
		Void:      value("Void", ElemVoid),
		Bool:      value("Boolean", ElemBool),
		Char:      value("Char", ElemChar),
		Int8:      value("SByte", ElemInt8),
		UInt8:     value("Byte", ElemUInt8),
		Int16:     value("Int16", ElemInt16),
		UInt16:    value("UInt16", ElemUInt16),
		Int32:     value("Int32", ElemInt32),
		UInt32:    value("UInt32", ElemUInt32),
		Int64:     value("Int64", ElemInt64),
		UInt64:    value("UInt64", ElemUInt64),
		Float32:   value("Single", ElemFloat32),
		Float64:   value("Double", ElemFloat64),
		IntPtr:    value("IntPtr", ElemIntPtr),
		UIntPtr:   value("UIntPtr", ElemUIntPtr),
		String:    NewImportedType("System", "String", &ImportedTypeOptions{Element: ElemString}),
	}
}

// complete reports whether every prelude slot is populated.
func (c *CoreTypes) complete() bool {
	slots := []*ImportedType{
		c.Object, c.ValueType, c.Enum, c.Void, c.Bool, c.Char,
		c.Int8, c.UInt8, c.Int16, c.UInt16, c.Int32, c.UInt32,
		c.Int64, c.UInt64, c.Float32, c.Float64, c.IntPtr, c.UIntPtr,
		c.String,
	}
	for _, s := range slots {
		if s == nil {
			return false
		}
	}
	return true
}
