package emit

// ParameterBuilder names and flags one parameter slot of a method; position
// 0 addresses the return value. Parameter tokens are issued eagerly when
// the parameter is defined, which in turn issues the method token.
type ParameterBuilder struct {
	method   *MethodBuilder
	position int
	name     string
	attr     ParamAttributes
	token    Token
}

// Name returns the parameter name, possibly empty.
func (pb *ParameterBuilder) Name() string { return pb.name }

// Position returns the parameter position; 0 is the return value.
func (pb *ParameterBuilder) Position() int { return pb.position }

// Attributes returns the parameter flags.
func (pb *ParameterBuilder) Attributes() ParamAttributes { return pb.attr }

// Method returns the declaring method.
func (pb *ParameterBuilder) Method() *MethodBuilder { return pb.method }

// Token returns the eagerly issued parameter token.
func (pb *ParameterBuilder) Token() Token { return pb.token }

// GetToken returns the parameter token, satisfying TokenProvider.
func (pb *ParameterBuilder) GetToken() (Token, error) { return pb.token, nil }

func (pb *ParameterBuilder) tokenLocked(*ModuleBuilder) (Token, error) { return pb.token, nil }

// parameterType returns the declared type this slot carries: the return
// type for position 0, otherwise the matching parameter type.
func (pb *ParameterBuilder) parameterType() Type {
	if pb.position == 0 {
		return pb.method.ret
	}
	if pb.position-1 < len(pb.method.paramTypes) {
		return pb.method.paramTypes[pb.position-1]
	}
	return nil
}

// SetConstant attaches a default value to the parameter. The value's kind
// must match the parameter type.
func (pb *ParameterBuilder) SetConstant(value any) error {
	m := pb.method.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := pb.method.mutableLocked("SetConstant"); err != nil {
		return err
	}
	kind, err := constantKind(value)
	if err != nil {
		return usageErr("SetConstant: parameter %d of %s.%s: %v", pb.position, pb.method.declaring.FullName(), pb.method.name, err)
	}
	if err := constantMatches(pb.parameterType(), kind); err != nil {
		return usageErr("SetConstant: parameter %d of %s.%s: %v", pb.position, pb.method.declaring.FullName(), pb.method.name, err)
	}
	return m.em.SetConstant(pb.token, kind, value)
}
