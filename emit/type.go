package emit

// TypeKind discriminates the concrete shape behind a Type value.
type TypeKind uint8

const (
	// TypeKindBuilder is an in-progress concrete type definition.
	TypeKindBuilder TypeKind = iota + 1
	// TypeKindImported is a reference to a type loaded from elsewhere.
	TypeKindImported
	// TypeKindCompound is a pointer, by-ref or array shape over an element.
	TypeKindCompound
	// TypeKindInstantiation is a generic definition bound to arguments.
	TypeKindInstantiation
	// TypeKindGenericParam is a positional generic parameter placeholder.
	TypeKindGenericParam
)

// String returns a short name for the kind.
func (k TypeKind) String() string {
	switch k {
	case TypeKindBuilder:
		return "builder"
	case TypeKindImported:
		return "imported"
	case TypeKindCompound:
		return "compound"
	case TypeKindInstantiation:
		return "instantiation"
	case TypeKindGenericParam:
		return "generic-param"
	default:
		return "unknown"
	}
}

// Type is the introspection contract shared by every type shape the package
// can describe: in-progress builders, imported references, compound shapes,
// generic instantiations and generic parameter placeholders.
//
// Queries that make no sense for a given shape return zero values: a
// non-compound type has no ElementType, an imported reference may have no
// known BaseType. Builders answer the structural queries before baking;
// member lookups on a builder require it to be created first.
type Type interface {
	// Name is the simple type name including any compound suffix,
	// e.g. "Point", "Point[]", "Stack".
	Name() string
	// Namespace is the dotted namespace, empty when none.
	Namespace() string
	// FullName joins namespace and name; nested types use a '+' separator
	// and instantiations append their argument list.
	FullName() string
	// Kind discriminates the concrete shape.
	Kind() TypeKind
	// Attributes returns the definition flags when known.
	Attributes() TypeAttributes
	// BaseType is the declared base, nil when none is known.
	BaseType() Type
	// ElementType is the wrapped element of a compound shape, nil otherwise.
	ElementType() Type
	// IsValueType reports whether the type has value semantics.
	IsValueType() bool
	// IsGenericTypeDefinition reports whether the type declares generic
	// parameters and is not itself an instantiation.
	IsGenericTypeDefinition() bool
	// GenericArguments returns the generic parameters of a definition or
	// the bound arguments of an instantiation, nil otherwise.
	GenericArguments() []Type
	// String renders the type for diagnostics; it equals FullName.
	String() string
}

// unwrapParam normalizes a generic parameter wrapper to its underlying
// placeholder builder so equality and encoding see one representation.
func unwrapParam(t Type) Type {
	if g, ok := t.(*GenericParameterBuilder); ok {
		return g.placeholder
	}
	return t
}

// Identical reports whether a and b denote the same type.
//
// Builders compare by identity until they are created; once both sides are
// created they also compare equal when they share a backing handle, so a
// baked builder and a second view of the same finished type interoperate.
// Imported references compare by namespace, name and value-type-ness.
// Compound shapes compare structurally: same shape, same dimensions, and
// identical element types. Instantiations compare their definitions and
// arguments pointwise. Generic parameters compare by owner and position.
func Identical(a, b Type) bool {
	a, b = unwrapParam(a), unwrapParam(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *TypeBuilder:
		bv := b.(*TypeBuilder)
		if av.isGenericParam() || bv.isGenericParam() {
			return av.gpOwnerType == bv.gpOwnerType &&
				av.gpOwnerMethod == bv.gpOwnerMethod &&
				av.gpPosition == bv.gpPosition
		}
		// Distinct builders can still denote one finished type.
		return av.IsCreated() && bv.IsCreated() && av.handle == bv.handle
	case *ImportedType:
		bv := b.(*ImportedType)
		return av.namespace == bv.namespace &&
			av.name == bv.name &&
			av.valueType == bv.valueType &&
			av.arity == bv.arity
	case *CompoundType:
		bv := b.(*CompoundType)
		if av.shape != bv.shape || av.szArray != bv.szArray || len(av.dims) != len(bv.dims) {
			return false
		}
		for i := range av.dims {
			if av.dims[i] != bv.dims[i] {
				return false
			}
		}
		return Identical(av.elem, bv.elem)
	case *Instantiation:
		bv := b.(*Instantiation)
		if !Identical(av.def, bv.def) || len(av.args) != len(bv.args) {
			return false
		}
		for i := range av.args {
			if !Identical(av.args[i], bv.args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
