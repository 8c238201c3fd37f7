package emit

// GenericParameterBuilder declares one generic parameter of a type or
// method definition. It wraps a restricted TypeBuilder placeholder so it
// can stand in wherever a Type is expected: in signatures it encodes as a
// positional reference, and as a standalone token it resolves to a spec
// row.
//
// Constraints and variance can be set until the parameter's row bakes,
// which happens when the owning type bakes, or at method token issuance
// for method parameters.
type GenericParameterBuilder struct {
	placeholder *TypeBuilder
}

// newGenericParamsLocked creates the placeholder set for a type or method
// owner. Exactly one owner is non-nil.
func newGenericParamsLocked(m *ModuleBuilder, names []string, ownerType *TypeBuilder, ownerMethod *MethodBuilder) ([]*GenericParameterBuilder, error) {
	ownerName := ""
	switch {
	case ownerType != nil:
		ownerName = ownerType.FullName()
	case ownerMethod != nil:
		ownerName = ownerMethod.declaring.FullName() + "." + ownerMethod.name
	}
	if len(names) == 0 {
		return nil, usageErr("DefineGenericParameters: no parameter names for %s", ownerName)
	}
	seen := make(map[string]struct{}, len(names))
	params := make([]*GenericParameterBuilder, len(names))
	for i, name := range names {
		if name == "" {
			return nil, usageErr("DefineGenericParameters: empty parameter name at %d for %s", i, ownerName)
		}
		if _, dup := seen[name]; dup {
			return nil, usageErr("DefineGenericParameters: duplicate parameter name %s for %s", name, ownerName)
		}
		seen[name] = struct{}{}
		params[i] = &GenericParameterBuilder{placeholder: &TypeBuilder{
			mod:           m,
			name:          name,
			gpPosition:    i,
			gpOwnerType:   ownerType,
			gpOwnerMethod: ownerMethod,
		}}
	}
	return params, nil
}

var _ Type = (*GenericParameterBuilder)(nil)

// Name returns the parameter name.
func (gb *GenericParameterBuilder) Name() string { return gb.placeholder.name }

// Namespace returns the empty string.
func (gb *GenericParameterBuilder) Namespace() string { return "" }

// FullName returns the parameter name.
func (gb *GenericParameterBuilder) FullName() string { return gb.placeholder.name }

// Kind returns TypeKindGenericParam.
func (gb *GenericParameterBuilder) Kind() TypeKind { return TypeKindGenericParam }

// Attributes returns zero.
func (gb *GenericParameterBuilder) Attributes() TypeAttributes { return 0 }

// BaseType returns the base type constraint, nil when none is set.
func (gb *GenericParameterBuilder) BaseType() Type { return gb.placeholder.gpBase }

// ElementType returns nil.
func (gb *GenericParameterBuilder) ElementType() Type { return nil }

// IsValueType returns false; a parameter's eventual binding is unknown.
func (gb *GenericParameterBuilder) IsValueType() bool { return false }

// IsGenericTypeDefinition returns false.
func (gb *GenericParameterBuilder) IsGenericTypeDefinition() bool { return false }

// GenericArguments returns nil.
func (gb *GenericParameterBuilder) GenericArguments() []Type { return nil }

func (gb *GenericParameterBuilder) String() string { return gb.placeholder.name }

// Position returns the zero-based declaration position.
func (gb *GenericParameterBuilder) Position() int { return gb.placeholder.gpPosition }

// DeclaringType returns the owning type definition, or the declaring type
// of the owning method for method parameters.
func (gb *GenericParameterBuilder) DeclaringType() *TypeBuilder {
	if gb.placeholder.gpOwnerType != nil {
		return gb.placeholder.gpOwnerType
	}
	if gb.placeholder.gpOwnerMethod != nil {
		return gb.placeholder.gpOwnerMethod.declaring
	}
	return nil
}

// DeclaringMethod returns the owning method for method parameters, nil for
// type parameters.
func (gb *GenericParameterBuilder) DeclaringMethod() *MethodBuilder {
	return gb.placeholder.gpOwnerMethod
}

// mutableLocked rejects constraint changes once the parameter row is baked.
func (gb *GenericParameterBuilder) mutableLocked(op string) error {
	if gb.placeholder.created {
		return stateErr("%s: generic parameter %s is already baked", op, gb.placeholder.name)
	}
	return nil
}

// SetAttributes replaces the variance and special-constraint flags.
func (gb *GenericParameterBuilder) SetAttributes(attr GenericParamAttributes) error {
	m := gb.placeholder.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := gb.mutableLocked("SetAttributes"); err != nil {
		return err
	}
	gb.placeholder.gpAttr = attr
	return nil
}

// SetBaseTypeConstraint constrains the parameter to derive from base.
func (gb *GenericParameterBuilder) SetBaseTypeConstraint(base Type) error {
	m := gb.placeholder.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := gb.mutableLocked("SetBaseTypeConstraint"); err != nil {
		return err
	}
	if base != nil {
		switch unwrapParam(base).Kind() {
		case TypeKindCompound:
			return usageErr("SetBaseTypeConstraint: %s cannot be constrained to %s", gb.placeholder.name, base.FullName())
		}
	}
	gb.placeholder.gpBase = base
	return nil
}

// SetInterfaceConstraints replaces the parameter's interface constraints.
func (gb *GenericParameterBuilder) SetInterfaceConstraints(ifaces ...Type) error {
	m := gb.placeholder.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := gb.mutableLocked("SetInterfaceConstraints"); err != nil {
		return err
	}
	for i, iface := range ifaces {
		if iface == nil {
			return usageErr("SetInterfaceConstraints: nil constraint at %d on %s", i, gb.placeholder.name)
		}
	}
	gb.placeholder.gpIfaces = append([]Type(nil), ifaces...)
	return nil
}

// Token returns the parameter's row token; it is NilToken until the row
// bakes.
func (gb *GenericParameterBuilder) Token() Token { return gb.placeholder.token }
