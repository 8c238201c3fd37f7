package emit

// Projections view a member declared on a generic type definition as a
// member of one of its instantiations. A projection forwards the
// definition's queries unchanged except for declaring-type identity, and
// its token is a member reference under the instantiation's spec row, so
// the signature still mentions the definition's positional parameters.
//
// Projections are cached on the instantiation per definition member. The
// cache trades identity for throughput: concurrent first projections of
// the same member may each build a value and the last stored wins, so
// callers must treat equal projections as interchangeable rather than
// relying on pointer identity.

type projectionKey struct {
	member any
}

// MethodOn projects a method declared on t's generic type definition onto
// the instantiation t.
func MethodOn(t Type, def *MethodBuilder) (*ProjectedMethod, error) {
	inst, err := projectionTarget("MethodOn", t, def.declaring)
	if err != nil {
		return nil, err
	}
	key := projectionKey{member: def}
	if v, ok := inst.members.Load(key); ok {
		return v.(*ProjectedMethod), nil
	}
	p := &ProjectedMethod{def: def, inst: inst}
	inst.members.Store(key, p)
	return p, nil
}

// ConstructorOn projects a constructor declared on t's generic type
// definition onto the instantiation t.
func ConstructorOn(t Type, def *ConstructorBuilder) (*ProjectedConstructor, error) {
	inst, err := projectionTarget("ConstructorOn", t, def.mb.declaring)
	if err != nil {
		return nil, err
	}
	key := projectionKey{member: def.mb}
	if v, ok := inst.members.Load(key); ok {
		return v.(*ProjectedConstructor), nil
	}
	p := &ProjectedConstructor{def: def, inst: inst}
	inst.members.Store(key, p)
	return p, nil
}

// FieldOn projects a field declared on t's generic type definition onto
// the instantiation t.
func FieldOn(t Type, def *FieldBuilder) (*ProjectedField, error) {
	inst, err := projectionTarget("FieldOn", t, def.declaring)
	if err != nil {
		return nil, err
	}
	key := projectionKey{member: def}
	if v, ok := inst.members.Load(key); ok {
		return v.(*ProjectedField), nil
	}
	p := &ProjectedField{def: def, inst: inst}
	inst.members.Store(key, p)
	return p, nil
}

// projectionTarget checks that t is an instantiation of the member's
// declaring definition.
func projectionTarget(op string, t Type, declaring *TypeBuilder) (*Instantiation, error) {
	if t == nil {
		return nil, usageErr("%s: nil instantiation", op)
	}
	inst, ok := t.(*Instantiation)
	if !ok {
		return nil, usageErr("%s: %s is not a generic instantiation", op, t.FullName())
	}
	if Type(declaring) != inst.def {
		return nil, resolutionErr("%s: member is declared on %s, not on the definition of %s", op, declaring.FullName(), inst.FullName())
	}
	return inst, nil
}

// memberRefTokenLocked interns the member reference naming the definition
// member under the instantiation's spec row.
func memberRefTokenLocked(m *ModuleBuilder, inst *Instantiation, name string, sig []byte) (Token, error) {
	specTok, err := m.typeTokenLocked(inst)
	if err != nil {
		return NilToken, err
	}
	return m.memberRefLocked(specTok, name, sig)
}

// ProjectedMethod is a method of a generic type definition viewed as a
// member of an instantiation.
type ProjectedMethod struct {
	def  *MethodBuilder
	inst *Instantiation
}

// Name returns the definition method's name.
func (p *ProjectedMethod) Name() string { return p.def.name }

// Attributes returns the definition method's flags.
func (p *ProjectedMethod) Attributes() MethodAttributes { return p.def.attr }

// CallingConvention returns the definition method's convention.
func (p *ProjectedMethod) CallingConvention() CallingConventions { return p.def.conv }

// ReturnType returns the definition method's declared return type; generic
// parameters are not substituted.
func (p *ProjectedMethod) ReturnType() Type { return p.def.ret }

// ParameterTypes returns the definition method's declared parameter types;
// generic parameters are not substituted.
func (p *ProjectedMethod) ParameterTypes() []Type { return p.def.ParameterTypes() }

// DeclaringType returns the instantiation.
func (p *ProjectedMethod) DeclaringType() Type { return p.inst }

// Definition returns the projected definition method.
func (p *ProjectedMethod) Definition() *MethodBuilder { return p.def }

// GetToken interns and returns the member reference token for this
// projection.
func (p *ProjectedMethod) GetToken() (Token, error) {
	m := p.def.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	return p.tokenLocked(m)
}

func (p *ProjectedMethod) tokenLocked(m *ModuleBuilder) (Token, error) {
	sig, err := p.def.signatureLocked()
	if err != nil {
		return NilToken, err
	}
	return memberRefTokenLocked(m, p.inst, p.def.name, sig)
}

// ProjectedConstructor is a constructor of a generic type definition viewed
// as a member of an instantiation.
type ProjectedConstructor struct {
	def  *ConstructorBuilder
	inst *Instantiation
}

// Name returns ".ctor" or ".cctor".
func (p *ProjectedConstructor) Name() string { return p.def.mb.name }

// Attributes returns the definition constructor's flags.
func (p *ProjectedConstructor) Attributes() MethodAttributes { return p.def.mb.attr }

// ParameterTypes returns the definition constructor's declared parameter
// types; generic parameters are not substituted.
func (p *ProjectedConstructor) ParameterTypes() []Type { return p.def.ParameterTypes() }

// DeclaringType returns the instantiation.
func (p *ProjectedConstructor) DeclaringType() Type { return p.inst }

// Definition returns the projected definition constructor.
func (p *ProjectedConstructor) Definition() *ConstructorBuilder { return p.def }

// GetToken interns and returns the member reference token for this
// projection.
func (p *ProjectedConstructor) GetToken() (Token, error) {
	m := p.def.mb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	return p.tokenLocked(m)
}

func (p *ProjectedConstructor) tokenLocked(m *ModuleBuilder) (Token, error) {
	sig, err := p.def.mb.signatureLocked()
	if err != nil {
		return NilToken, err
	}
	return memberRefTokenLocked(m, p.inst, p.def.mb.name, sig)
}

// ProjectedField is a field of a generic type definition viewed as a member
// of an instantiation.
type ProjectedField struct {
	def  *FieldBuilder
	inst *Instantiation
}

// Name returns the definition field's name.
func (p *ProjectedField) Name() string { return p.def.name }

// Attributes returns the definition field's flags.
func (p *ProjectedField) Attributes() FieldAttributes { return p.def.attr }

// FieldType returns the definition field's declared type; generic
// parameters are not substituted.
func (p *ProjectedField) FieldType() Type { return p.def.typ }

// DeclaringType returns the instantiation.
func (p *ProjectedField) DeclaringType() Type { return p.inst }

// Definition returns the projected definition field.
func (p *ProjectedField) Definition() *FieldBuilder { return p.def }

// GetToken interns and returns the member reference token for this
// projection.
func (p *ProjectedField) GetToken() (Token, error) {
	m := p.def.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	return p.tokenLocked(m)
}

func (p *ProjectedField) tokenLocked(m *ModuleBuilder) (Token, error) {
	sig, err := m.enc.FieldSig(lockedResolver{m}, p.def.typ, nil, nil)
	if err != nil {
		return NilToken, err
	}
	return memberRefTokenLocked(m, p.inst, p.def.name, sig)
}
