package emit

// MethodBuilder is an in-progress method definition. Tokens for methods are
// issued lazily: asking any method for its token issues tokens for it and
// every earlier-declared sibling that still lacks one, so row order always
// matches declaration order. Token issuance freezes the signature.
type MethodBuilder struct {
	declaring *TypeBuilder
	name      string
	attr      MethodAttributes
	implFlags MethodImplAttributes
	conv      CallingConventions
	isCtor    bool

	ret        Type
	retReq     []Type
	retOpt     []Type
	paramTypes []Type
	paramReq   [][]Type
	paramOpt   [][]Type

	paramBuilders []*ParameterBuilder
	genericParams []*GenericParameterBuilder
	locals        []*LocalBuilder

	body       *MethodBody
	initLocals bool
	pinvoke    *pinvokeData

	token Token
	sig   []byte
}

type pinvokeData struct {
	dll   string
	entry string
	flags PInvokeAttributes
}

// Name returns the method name.
func (mb *MethodBuilder) Name() string { return mb.name }

// Attributes returns the method flags.
func (mb *MethodBuilder) Attributes() MethodAttributes { return mb.attr }

// ImplementationFlags returns the implementation-kind flags.
func (mb *MethodBuilder) ImplementationFlags() MethodImplAttributes { return mb.implFlags }

// CallingConvention returns the method's calling convention.
func (mb *MethodBuilder) CallingConvention() CallingConventions { return mb.conv }

// ReturnType returns the declared return type.
func (mb *MethodBuilder) ReturnType() Type { return mb.ret }

// ParameterTypes returns a copy of the declared parameter types.
func (mb *MethodBuilder) ParameterTypes() []Type {
	return append([]Type(nil), mb.paramTypes...)
}

// DeclaringType returns the type the method is declared on.
func (mb *MethodBuilder) DeclaringType() *TypeBuilder { return mb.declaring }

// Module returns the owning module.
func (mb *MethodBuilder) Module() *ModuleBuilder { return mb.declaring.mod }

// IsGenericMethodDefinition reports whether the method declares generic
// parameters.
func (mb *MethodBuilder) IsGenericMethodDefinition() bool { return len(mb.genericParams) > 0 }

// GenericArguments returns the declared generic parameters.
func (mb *MethodBuilder) GenericArguments() []Type {
	if len(mb.genericParams) == 0 {
		return nil
	}
	out := make([]Type, len(mb.genericParams))
	for i, gp := range mb.genericParams {
		out[i] = gp
	}
	return out
}

// InitLocals reports whether the body zero-initializes its locals.
func (mb *MethodBuilder) InitLocals() bool { return mb.initLocals }

// GetToken returns the method's token, issuing pending tokens for it and
// every earlier-declared method first. Repeated and concurrent calls return
// the same token.
func (mb *MethodBuilder) GetToken() (Token, error) {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	return mb.tokenLocked(m)
}

func (mb *MethodBuilder) tokenLocked(*ModuleBuilder) (Token, error) {
	if err := mb.declaring.ensureMethodTokensLocked(mb); err != nil {
		return NilToken, err
	}
	return mb.token, nil
}

// issueTokenLocked encodes the frozen signature, obtains the method token,
// bakes any generic parameter rows and records staged unmanaged import
// data.
func (mb *MethodBuilder) issueTokenLocked() error {
	m := mb.declaring.mod
	sig, err := mb.signatureLocked()
	if err != nil {
		return err
	}
	tok, err := m.em.DefineMethod(mb.declaring.token, mb.name, sig, mb.attr, mb.implFlags)
	if err != nil {
		return err
	}
	mb.token = tok
	for _, gp := range mb.genericParams {
		if err := gp.placeholder.createGenericParamLocked(); err != nil {
			return err
		}
	}
	if mb.pinvoke != nil {
		if err := m.em.SetPInvokeData(tok, mb.pinvoke.dll, mb.pinvoke.entry, mb.pinvoke.flags); err != nil {
			return err
		}
	}
	return nil
}

// signatureLocked encodes and caches the method signature blob.
func (mb *MethodBuilder) signatureLocked() ([]byte, error) {
	if mb.sig != nil {
		return mb.sig, nil
	}
	m := mb.declaring.mod
	sig, err := m.enc.MethodSig(lockedResolver{m}, mb.conv, len(mb.genericParams),
		mb.ret, mb.retReq, mb.retOpt, mb.paramTypes, mb.paramReq, mb.paramOpt)
	if err != nil {
		return nil, err
	}
	mb.sig = sig
	return sig, nil
}

// mutableLocked rejects mutation after the declaring type is created.
func (mb *MethodBuilder) mutableLocked(op string) error {
	if mb.declaring.created {
		return stateErr("%s: type %s is already created", op, mb.declaring.FullName())
	}
	return nil
}

// signatureMutableLocked additionally rejects signature changes once the
// token has been issued.
func (mb *MethodBuilder) signatureMutableLocked(op string) error {
	if err := mb.mutableLocked(op); err != nil {
		return err
	}
	if !mb.token.IsNil() {
		return stateErr("%s: the signature of %s.%s is frozen by token issuance", op, mb.declaring.FullName(), mb.name)
	}
	return nil
}

// SetSignature replaces the full signature: return type, parameter types
// and their custom modifiers. The modifier slices, when non-nil, must run
// parallel to the parameter list. SetSignature fails once the method token
// has been issued.
func (mb *MethodBuilder) SetSignature(ret Type, retReq, retOpt []Type, params []Type, paramReq, paramOpt [][]Type) error {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.signatureMutableLocked("SetSignature"); err != nil {
		return err
	}
	if paramReq != nil && len(paramReq) != len(params) {
		return usageErr("SetSignature: %d required-modifier lists for %d parameters on %s.%s", len(paramReq), len(params), mb.declaring.FullName(), mb.name)
	}
	if paramOpt != nil && len(paramOpt) != len(params) {
		return usageErr("SetSignature: %d optional-modifier lists for %d parameters on %s.%s", len(paramOpt), len(params), mb.declaring.FullName(), mb.name)
	}
	for i, p := range params {
		if p == nil {
			return usageErr("SetSignature: nil parameter type at %d on %s.%s", i, mb.declaring.FullName(), mb.name)
		}
	}
	if ret == nil {
		ret = m.core.Void
	}
	mb.ret = ret
	mb.retReq = append([]Type(nil), retReq...)
	mb.retOpt = append([]Type(nil), retOpt...)
	mb.paramTypes = append([]Type(nil), params...)
	mb.paramReq = paramReq
	mb.paramOpt = paramOpt
	return nil
}

// SetReturnType replaces only the return type.
func (mb *MethodBuilder) SetReturnType(ret Type) error {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.signatureMutableLocked("SetReturnType"); err != nil {
		return err
	}
	if ret == nil {
		ret = m.core.Void
	}
	mb.ret = ret
	return nil
}

// SetParameters replaces only the parameter types, clearing any parameter
// modifiers.
func (mb *MethodBuilder) SetParameters(params ...Type) error {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.signatureMutableLocked("SetParameters"); err != nil {
		return err
	}
	for i, p := range params {
		if p == nil {
			return usageErr("SetParameters: nil parameter type at %d on %s.%s", i, mb.declaring.FullName(), mb.name)
		}
	}
	mb.paramTypes = append([]Type(nil), params...)
	mb.paramReq = nil
	mb.paramOpt = nil
	return nil
}

// SetImplementationFlags replaces the implementation-kind flags. Like the
// signature, they are frozen by token issuance.
func (mb *MethodBuilder) SetImplementationFlags(flags MethodImplAttributes) error {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.signatureMutableLocked("SetImplementationFlags"); err != nil {
		return err
	}
	mb.implFlags = flags
	return nil
}

// SetInitLocals controls whether the body zero-initializes its locals.
func (mb *MethodBuilder) SetInitLocals(v bool) error {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.mutableLocked("SetInitLocals"); err != nil {
		return err
	}
	mb.initLocals = v
	return nil
}

// DefineParameter names and flags the parameter at position; position 0
// addresses the return value. Defining a parameter issues the method token,
// freezing the signature.
func (mb *MethodBuilder) DefineParameter(position int, attr ParamAttributes, name string) (*ParameterBuilder, error) {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.mutableLocked("DefineParameter"); err != nil {
		return nil, err
	}
	if position < 0 || position > len(mb.paramTypes) {
		return nil, usageErr("DefineParameter: position %d out of range for %s.%s with %d parameters", position, mb.declaring.FullName(), mb.name, len(mb.paramTypes))
	}
	if _, err := mb.tokenLocked(m); err != nil {
		return nil, err
	}
	tok, err := m.em.DefineParam(mb.token, position, name, attr)
	if err != nil {
		return nil, err
	}
	pb := &ParameterBuilder{
		method:   mb,
		position: position,
		name:     name,
		attr:     attr,
		token:    tok,
	}
	mb.paramBuilders = append(mb.paramBuilders, pb)
	return pb, nil
}

// DefineGenericParameters declares the method's generic parameters, making
// it a generic method definition. It can be called at most once, and only
// before the method token is issued.
func (mb *MethodBuilder) DefineGenericParameters(names ...string) ([]*GenericParameterBuilder, error) {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.signatureMutableLocked("DefineGenericParameters"); err != nil {
		return nil, err
	}
	if mb.genericParams != nil {
		return nil, stateErr("DefineGenericParameters: method %s.%s already has generic parameters", mb.declaring.FullName(), mb.name)
	}
	params, err := newGenericParamsLocked(m, names, nil, mb)
	if err != nil {
		return nil, err
	}
	mb.genericParams = params
	return append([]*GenericParameterBuilder(nil), params...), nil
}

// DeclareLocal appends a local variable slot of the given type and returns
// its builder. Pinned locals keep their referent from moving.
func (mb *MethodBuilder) DeclareLocal(t Type, pinned bool) (*LocalBuilder, error) {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.mutableLocked("DeclareLocal"); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, usageErr("DeclareLocal: nil local type on %s.%s", mb.declaring.FullName(), mb.name)
	}
	lb := &LocalBuilder{
		method: mb,
		index:  len(mb.locals),
		typ:    t,
		pinned: pinned,
	}
	mb.locals = append(mb.locals, lb)
	return lb, nil
}

// SetBody stages the method's executable payload. The body is validated and
// handed to the emitter when the declaring type bakes; fix-up slots are
// patched with their targets' tokens at that point.
func (mb *MethodBuilder) SetBody(body MethodBody) error {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.mutableLocked("SetBody"); err != nil {
		return err
	}
	if mb.attr.IsAbstract() {
		return stateErr("SetBody: abstract method %s.%s cannot have a body", mb.declaring.FullName(), mb.name)
	}
	if mb.pinvoke != nil || mb.implFlags.SuppliesBody() {
		return stateErr("SetBody: method %s.%s has an externally supplied implementation", mb.declaring.FullName(), mb.name)
	}
	if len(body.IL) == 0 {
		return usageErr("SetBody: empty body for %s.%s", mb.declaring.FullName(), mb.name)
	}
	if body.MaxStack < 0 {
		return usageErr("SetBody: negative max stack for %s.%s", mb.declaring.FullName(), mb.name)
	}
	for _, fx := range body.Fixups {
		if fx.Target == nil {
			return usageErr("SetBody: fix-up at %d on %s.%s has no target", fx.Offset, mb.declaring.FullName(), mb.name)
		}
		if fx.Offset < 0 || fx.Offset+4 > len(body.IL) {
			return usageErr("SetBody: fix-up at %d overruns the %d-byte body of %s.%s", fx.Offset, len(body.IL), mb.declaring.FullName(), mb.name)
		}
	}
	for _, h := range body.Handlers {
		if h.TryOffset < 0 || h.TryLength <= 0 || h.HandlerOffset < 0 || h.HandlerLength <= 0 {
			return usageErr("SetBody: malformed handler region on %s.%s", mb.declaring.FullName(), mb.name)
		}
		if h.TryOffset+h.TryLength > len(body.IL) || h.HandlerOffset+h.HandlerLength > len(body.IL) {
			return usageErr("SetBody: handler region overruns the body of %s.%s", mb.declaring.FullName(), mb.name)
		}
	}
	staged := MethodBody{
		IL:       append([]byte(nil), body.IL...),
		MaxStack: body.MaxStack,
		LocalSig: append([]byte(nil), body.LocalSig...),
		Handlers: append([]ExceptionHandler(nil), body.Handlers...),
		Fixups:   append([]Fixup(nil), body.Fixups...),
	}
	mb.body = &staged
	return nil
}

// MakeGenericMethod binds the generic method definition to concrete
// arguments, producing a MethodInstantiation whose token is a MethodSpec.
func (mb *MethodBuilder) MakeGenericMethod(args ...Type) (*MethodInstantiation, error) {
	if !mb.IsGenericMethodDefinition() {
		return nil, usageErr("MakeGenericMethod: %s.%s is not a generic method definition", mb.declaring.FullName(), mb.name)
	}
	if len(args) != len(mb.genericParams) {
		return nil, usageErr("MakeGenericMethod: %s.%s takes %d type arguments, got %d", mb.declaring.FullName(), mb.name, len(mb.genericParams), len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, usageErr("MakeGenericMethod: nil type argument at %d for %s.%s", i, mb.declaring.FullName(), mb.name)
		}
	}
	return &MethodInstantiation{def: mb, args: append([]Type(nil), args...)}, nil
}

// SetCustomAttribute attaches an encoded custom attribute to the method.
// This issues the method token, freezing the signature.
func (mb *MethodBuilder) SetCustomAttribute(ctor TokenProvider, blob []byte) error {
	m := mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mb.mutableLocked("SetCustomAttribute"); err != nil {
		return err
	}
	if _, err := mb.tokenLocked(m); err != nil {
		return err
	}
	ctorTok, err := m.providerTokenLocked(ctor)
	if err != nil {
		return err
	}
	_, err = m.em.DefineCustomAttribute(mb.token, ctorTok, blob)
	return err
}
