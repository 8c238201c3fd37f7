package emit

// Reserved member names for instance constructors and type initializers.
const (
	ConstructorName     = ".ctor"
	TypeInitializerName = ".cctor"
)

// ConstructorBuilder is an in-progress constructor. Constructors are
// methods with a reserved name and restricted conventions: instance
// constructors always carry the this argument, type initializers are
// static and parameterless, and neither can be generic. They share the
// declaring type's lazy token batch with ordinary methods.
type ConstructorBuilder struct {
	mb *MethodBuilder
}

// Name returns ".ctor" or ".cctor".
func (cb *ConstructorBuilder) Name() string { return cb.mb.name }

// Attributes returns the constructor flags.
func (cb *ConstructorBuilder) Attributes() MethodAttributes { return cb.mb.attr }

// CallingConvention returns the constructor's calling convention.
func (cb *ConstructorBuilder) CallingConvention() CallingConventions { return cb.mb.conv }

// ParameterTypes returns a copy of the declared parameter types.
func (cb *ConstructorBuilder) ParameterTypes() []Type { return cb.mb.ParameterTypes() }

// DeclaringType returns the type the constructor is declared on.
func (cb *ConstructorBuilder) DeclaringType() *TypeBuilder { return cb.mb.declaring }

// Module returns the owning module.
func (cb *ConstructorBuilder) Module() *ModuleBuilder { return cb.mb.Module() }

// GetToken returns the constructor's token, issuing pending tokens for it
// and every earlier-declared method first.
func (cb *ConstructorBuilder) GetToken() (Token, error) { return cb.mb.GetToken() }

func (cb *ConstructorBuilder) tokenLocked(m *ModuleBuilder) (Token, error) {
	return cb.mb.tokenLocked(m)
}

// DefineParameter names and flags a constructor parameter; position 0
// addresses the return value slot.
func (cb *ConstructorBuilder) DefineParameter(position int, attr ParamAttributes, name string) (*ParameterBuilder, error) {
	return cb.mb.DefineParameter(position, attr, name)
}

// DeclareLocal appends a local variable slot to the constructor body.
func (cb *ConstructorBuilder) DeclareLocal(t Type, pinned bool) (*LocalBuilder, error) {
	return cb.mb.DeclareLocal(t, pinned)
}

// SetBody stages the constructor's executable payload.
func (cb *ConstructorBuilder) SetBody(body MethodBody) error { return cb.mb.SetBody(body) }

// SetImplementationFlags replaces the implementation-kind flags.
func (cb *ConstructorBuilder) SetImplementationFlags(flags MethodImplAttributes) error {
	return cb.mb.SetImplementationFlags(flags)
}

// SetInitLocals controls whether the body zero-initializes its locals.
func (cb *ConstructorBuilder) SetInitLocals(v bool) error { return cb.mb.SetInitLocals(v) }

// SetCustomAttribute attaches an encoded custom attribute to the
// constructor.
func (cb *ConstructorBuilder) SetCustomAttribute(ctor TokenProvider, blob []byte) error {
	return cb.mb.SetCustomAttribute(ctor, blob)
}

// Method returns the underlying method builder.
func (cb *ConstructorBuilder) Method() *MethodBuilder { return cb.mb }
