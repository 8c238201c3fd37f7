package emit

// MethodInstantiation is a generic method definition bound to concrete
// arguments, produced by MakeGenericMethod. Its token is a MethodSpec row
// pairing the definition's method token with the encoded argument list;
// equal instantiations intern to the same token.
type MethodInstantiation struct {
	def  *MethodBuilder
	args []Type
}

// Definition returns the bound generic method definition.
func (mi *MethodInstantiation) Definition() *MethodBuilder { return mi.def }

// GenericArguments returns a copy of the bound arguments.
func (mi *MethodInstantiation) GenericArguments() []Type {
	return append([]Type(nil), mi.args...)
}

// Name returns the definition method's name.
func (mi *MethodInstantiation) Name() string { return mi.def.name }

// DeclaringType returns the definition method's declaring type.
func (mi *MethodInstantiation) DeclaringType() *TypeBuilder { return mi.def.declaring }

// GetToken interns and returns the MethodSpec token. This issues the
// definition's method token first when still pending.
func (mi *MethodInstantiation) GetToken() (Token, error) {
	m := mi.def.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	return mi.tokenLocked(m)
}

func (mi *MethodInstantiation) tokenLocked(m *ModuleBuilder) (Token, error) {
	defTok, err := mi.def.tokenLocked(m)
	if err != nil {
		return NilToken, err
	}
	blob, err := m.enc.MethodSpecSig(lockedResolver{m}, mi.args)
	if err != nil {
		return NilToken, err
	}
	return m.methodSpecLocked(defTok, blob)
}
