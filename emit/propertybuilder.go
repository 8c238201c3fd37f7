package emit

// PropertyBuilder is a property definition. Property tokens are issued
// eagerly; accessor links are recorded immediately as method semantics
// rows, which issues the accessor's method token.
type PropertyBuilder struct {
	declaring *TypeBuilder
	name      string
	attr      PropertyAttributes
	propType  Type
	params    []Type
	token     Token
}

// Name returns the property name.
func (pb *PropertyBuilder) Name() string { return pb.name }

// PropertyType returns the declared property type.
func (pb *PropertyBuilder) PropertyType() Type { return pb.propType }

// Attributes returns the property flags.
func (pb *PropertyBuilder) Attributes() PropertyAttributes { return pb.attr }

// DeclaringType returns the type the property is declared on.
func (pb *PropertyBuilder) DeclaringType() *TypeBuilder { return pb.declaring }

// Token returns the eagerly issued property token.
func (pb *PropertyBuilder) Token() Token { return pb.token }

// GetToken returns the property token, satisfying TokenProvider.
func (pb *PropertyBuilder) GetToken() (Token, error) { return pb.token, nil }

func (pb *PropertyBuilder) tokenLocked(*ModuleBuilder) (Token, error) { return pb.token, nil }

// linkAccessor records a semantics row binding method to this property.
func (pb *PropertyBuilder) linkAccessor(op string, sem MethodSemantics, method *MethodBuilder) error {
	m := pb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := pb.declaring.mutableLocked(op); err != nil {
		return err
	}
	if method == nil {
		return usageErr("%s: nil accessor for property %s.%s", op, pb.declaring.FullName(), pb.name)
	}
	if method.declaring.mod != m {
		return usageErr("%s: accessor %s belongs to a different module", op, method.name)
	}
	tok, err := method.tokenLocked(m)
	if err != nil {
		return err
	}
	return m.em.SetMethodSemantics(pb.token, sem, tok)
}

// SetGetMethod links the property's getter.
func (pb *PropertyBuilder) SetGetMethod(method *MethodBuilder) error {
	return pb.linkAccessor("SetGetMethod", SemanticsGetter, method)
}

// SetSetMethod links the property's setter.
func (pb *PropertyBuilder) SetSetMethod(method *MethodBuilder) error {
	return pb.linkAccessor("SetSetMethod", SemanticsSetter, method)
}

// AddOtherMethod links an auxiliary accessor.
func (pb *PropertyBuilder) AddOtherMethod(method *MethodBuilder) error {
	return pb.linkAccessor("AddOtherMethod", SemanticsOther, method)
}

// SetConstant attaches a default value to the property.
func (pb *PropertyBuilder) SetConstant(value any) error {
	m := pb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := pb.declaring.mutableLocked("SetConstant"); err != nil {
		return err
	}
	kind, err := constantKind(value)
	if err != nil {
		return usageErr("SetConstant: property %s.%s: %v", pb.declaring.FullName(), pb.name, err)
	}
	if err := constantMatches(pb.propType, kind); err != nil {
		return usageErr("SetConstant: property %s.%s: %v", pb.declaring.FullName(), pb.name, err)
	}
	return m.em.SetConstant(pb.token, kind, value)
}

// SetCustomAttribute attaches an encoded custom attribute to the property.
func (pb *PropertyBuilder) SetCustomAttribute(ctor TokenProvider, blob []byte) error {
	m := pb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := pb.declaring.mutableLocked("SetCustomAttribute"); err != nil {
		return err
	}
	ctorTok, err := m.providerTokenLocked(ctor)
	if err != nil {
		return err
	}
	_, err = m.em.DefineCustomAttribute(pb.token, ctorTok, blob)
	return err
}
