package emit

// TypeAttributes carries the visibility, layout and semantics flags of a type
// definition.
type TypeAttributes uint32

const (
	TypeAttrNotPublic          TypeAttributes = 0x00000000
	TypeAttrPublic             TypeAttributes = 0x00000001
	TypeAttrNestedPublic       TypeAttributes = 0x00000002
	TypeAttrNestedPrivate      TypeAttributes = 0x00000003
	TypeAttrNestedFamily       TypeAttributes = 0x00000004
	TypeAttrNestedAssembly     TypeAttributes = 0x00000005
	TypeAttrNestedFamANDAssem  TypeAttributes = 0x00000006
	TypeAttrNestedFamORAssem   TypeAttributes = 0x00000007
	TypeAttrVisibilityMask     TypeAttributes = 0x00000007
	TypeAttrSequentialLayout   TypeAttributes = 0x00000008
	TypeAttrExplicitLayout     TypeAttributes = 0x00000010
	TypeAttrLayoutMask         TypeAttributes = 0x00000018
	TypeAttrInterface          TypeAttributes = 0x00000020
	TypeAttrAbstract           TypeAttributes = 0x00000080
	TypeAttrSealed             TypeAttributes = 0x00000100
	TypeAttrSpecialName        TypeAttributes = 0x00000400
	TypeAttrRTSpecialName      TypeAttributes = 0x00000800
	TypeAttrImport             TypeAttributes = 0x00001000
	TypeAttrSerializable       TypeAttributes = 0x00002000
	TypeAttrBeforeFieldInit    TypeAttributes = 0x00100000
)

// IsInterface reports whether the interface semantics flag is set.
func (a TypeAttributes) IsInterface() bool { return a&TypeAttrInterface != 0 }

// IsAbstract reports whether the abstract flag is set.
func (a TypeAttributes) IsAbstract() bool { return a&TypeAttrAbstract != 0 }

// IsSealed reports whether the sealed flag is set.
func (a TypeAttributes) IsSealed() bool { return a&TypeAttrSealed != 0 }

// IsNested reports whether the visibility bits name one of the nested
// visibilities.
func (a TypeAttributes) IsNested() bool { return a&TypeAttrVisibilityMask >= TypeAttrNestedPublic }

// MethodAttributes carries the access, contract and vtable flags of a method
// definition.
type MethodAttributes uint16

const (
	MethodAttrPrivateScope     MethodAttributes = 0x0000
	MethodAttrPrivate          MethodAttributes = 0x0001
	MethodAttrFamANDAssem      MethodAttributes = 0x0002
	MethodAttrAssembly         MethodAttributes = 0x0003
	MethodAttrFamily           MethodAttributes = 0x0004
	MethodAttrFamORAssem       MethodAttributes = 0x0005
	MethodAttrPublic           MethodAttributes = 0x0006
	MethodAttrMemberAccessMask MethodAttributes = 0x0007
	MethodAttrStatic           MethodAttributes = 0x0010
	MethodAttrFinal            MethodAttributes = 0x0020
	MethodAttrVirtual          MethodAttributes = 0x0040
	MethodAttrHideBySig        MethodAttributes = 0x0080
	MethodAttrNewSlot          MethodAttributes = 0x0100
	MethodAttrAbstract         MethodAttributes = 0x0400
	MethodAttrSpecialName      MethodAttributes = 0x0800
	MethodAttrRTSpecialName    MethodAttributes = 0x1000
	MethodAttrPInvokeImpl      MethodAttributes = 0x2000
)

// IsStatic reports whether the static flag is set.
func (a MethodAttributes) IsStatic() bool { return a&MethodAttrStatic != 0 }

// IsAbstract reports whether the abstract flag is set.
func (a MethodAttributes) IsAbstract() bool { return a&MethodAttrAbstract != 0 }

// Access extracts the member-access bits.
func (a MethodAttributes) Access() MethodAttributes { return a & MethodAttrMemberAccessMask }

// MethodImplAttributes carries the implementation-kind flags of a method.
type MethodImplAttributes uint16

const (
	MethodImplIL           MethodImplAttributes = 0x0000
	MethodImplNative       MethodImplAttributes = 0x0001
	MethodImplRuntime      MethodImplAttributes = 0x0003
	MethodImplCodeTypeMask MethodImplAttributes = 0x0003
	MethodImplUnmanaged    MethodImplAttributes = 0x0004
	MethodImplNoInlining   MethodImplAttributes = 0x0008
	MethodImplSynchronized MethodImplAttributes = 0x0020
	MethodImplPreserveSig  MethodImplAttributes = 0x0080
	MethodImplInternalCall MethodImplAttributes = 0x1000
)

// SuppliesBody reports whether the runtime or backend supplies the method
// body, so no staged body is expected at bake time.
func (a MethodImplAttributes) SuppliesBody() bool {
	return a&MethodImplCodeTypeMask == MethodImplRuntime ||
		a&MethodImplCodeTypeMask == MethodImplNative ||
		a&MethodImplInternalCall != 0
}

// FieldAttributes carries the access and contract flags of a field
// definition.
type FieldAttributes uint16

const (
	FieldAttrPrivateScope     FieldAttributes = 0x0000
	FieldAttrPrivate          FieldAttributes = 0x0001
	FieldAttrFamANDAssem      FieldAttributes = 0x0002
	FieldAttrAssembly         FieldAttributes = 0x0003
	FieldAttrFamily           FieldAttributes = 0x0004
	FieldAttrFamORAssem       FieldAttributes = 0x0005
	FieldAttrPublic           FieldAttributes = 0x0006
	FieldAttrMemberAccessMask FieldAttributes = 0x0007
	FieldAttrStatic           FieldAttributes = 0x0010
	FieldAttrInitOnly         FieldAttributes = 0x0020
	FieldAttrLiteral          FieldAttributes = 0x0040
	FieldAttrNotSerialized    FieldAttributes = 0x0080
	FieldAttrHasFieldRVA      FieldAttributes = 0x0100
	FieldAttrSpecialName      FieldAttributes = 0x0200
	FieldAttrRTSpecialName    FieldAttributes = 0x0400
	FieldAttrHasDefault       FieldAttributes = 0x8000
)

// IsStatic reports whether the static flag is set.
func (a FieldAttributes) IsStatic() bool { return a&FieldAttrStatic != 0 }

// PropertyAttributes carries the flags of a property definition.
type PropertyAttributes uint16

const (
	PropAttrNone          PropertyAttributes = 0x0000
	PropAttrSpecialName   PropertyAttributes = 0x0200
	PropAttrRTSpecialName PropertyAttributes = 0x0400
	PropAttrHasDefault    PropertyAttributes = 0x1000
)

// EventAttributes carries the flags of an event definition.
type EventAttributes uint16

const (
	EventAttrNone          EventAttributes = 0x0000
	EventAttrSpecialName   EventAttributes = 0x0200
	EventAttrRTSpecialName EventAttributes = 0x0400
)

// ParamAttributes carries the flags of a parameter definition.
type ParamAttributes uint16

const (
	ParamAttrNone       ParamAttributes = 0x0000
	ParamAttrIn         ParamAttributes = 0x0001
	ParamAttrOut        ParamAttributes = 0x0002
	ParamAttrOptional   ParamAttributes = 0x0010
	ParamAttrHasDefault ParamAttributes = 0x1000
)

// GenericParamAttributes carries the variance and constraint flags of a
// generic parameter.
type GenericParamAttributes uint16

const (
	GenericParamAttrNone              GenericParamAttributes = 0x0000
	GenericParamAttrCovariant         GenericParamAttributes = 0x0001
	GenericParamAttrContravariant     GenericParamAttributes = 0x0002
	GenericParamAttrVarianceMask      GenericParamAttributes = 0x0003
	GenericParamAttrReferenceType     GenericParamAttributes = 0x0004
	GenericParamAttrNotNullableValue  GenericParamAttributes = 0x0008
	GenericParamAttrDefaultCtor       GenericParamAttributes = 0x0010
)

// CallingConventions describes how a method expects to be invoked.
type CallingConventions uint8

const (
	CallConvStandard     CallingConventions = 0x01
	CallConvVarArgs      CallingConventions = 0x02
	CallConvAny          CallingConventions = 0x03
	CallConvHasThis      CallingConventions = 0x20
	CallConvExplicitThis CallingConventions = 0x40
)

// HasThis reports whether the convention carries an implicit this argument.
func (c CallingConventions) HasThis() bool { return c&CallConvHasThis != 0 }

// MethodSemantics names the role a method plays for a property or event
// association.
type MethodSemantics uint16

const (
	SemanticsSetter   MethodSemantics = 0x0001
	SemanticsGetter   MethodSemantics = 0x0002
	SemanticsOther    MethodSemantics = 0x0004
	SemanticsAddOn    MethodSemantics = 0x0008
	SemanticsRemoveOn MethodSemantics = 0x0010
	SemanticsFire     MethodSemantics = 0x0020
)

// PInvokeAttributes carries the marshaling flags of an unmanaged import.
type PInvokeAttributes uint16

const (
	PInvokeAttrNoMangle          PInvokeAttributes = 0x0001
	PInvokeAttrCharSetAnsi       PInvokeAttributes = 0x0002
	PInvokeAttrCharSetUnicode    PInvokeAttributes = 0x0004
	PInvokeAttrCharSetAuto       PInvokeAttributes = 0x0006
	PInvokeAttrSupportsLastError PInvokeAttributes = 0x0040
	PInvokeAttrCallConvWinapi    PInvokeAttributes = 0x0100
	PInvokeAttrCallConvCdecl     PInvokeAttributes = 0x0200
	PInvokeAttrCallConvStdcall   PInvokeAttributes = 0x0300
)
