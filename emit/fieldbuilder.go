package emit

// FieldBuilder is a field definition. Field tokens are issued eagerly at
// definition time, so a FieldBuilder is immediately usable as a fix-up
// target.
type FieldBuilder struct {
	declaring *TypeBuilder
	name      string
	typ       Type
	attr      FieldAttributes
	token     Token
}

// Name returns the field name.
func (fb *FieldBuilder) Name() string { return fb.name }

// FieldType returns the declared field type.
func (fb *FieldBuilder) FieldType() Type { return fb.typ }

// Attributes returns the field flags.
func (fb *FieldBuilder) Attributes() FieldAttributes { return fb.attr }

// DeclaringType returns the type the field is declared on.
func (fb *FieldBuilder) DeclaringType() *TypeBuilder { return fb.declaring }

// Token returns the eagerly issued field token.
func (fb *FieldBuilder) Token() Token { return fb.token }

// GetToken returns the field token, satisfying TokenProvider.
func (fb *FieldBuilder) GetToken() (Token, error) { return fb.token, nil }

func (fb *FieldBuilder) tokenLocked(*ModuleBuilder) (Token, error) { return fb.token, nil }

// SetConstant attaches a compile-time default value. The value's kind must
// match the field type; see constantKind for the accepted Go types.
func (fb *FieldBuilder) SetConstant(value any) error {
	m := fb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fb.declaring.mutableLocked("SetConstant"); err != nil {
		return err
	}
	kind, err := constantKind(value)
	if err != nil {
		return usageErr("SetConstant: field %s.%s: %v", fb.declaring.FullName(), fb.name, err)
	}
	if err := constantMatches(fb.typ, kind); err != nil {
		return usageErr("SetConstant: field %s.%s: %v", fb.declaring.FullName(), fb.name, err)
	}
	return m.em.SetConstant(fb.token, kind, value)
}

// SetOffset records the field's explicit byte offset within its type's
// layout.
func (fb *FieldBuilder) SetOffset(offset int) error {
	m := fb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fb.declaring.mutableLocked("SetOffset"); err != nil {
		return err
	}
	if offset < 0 {
		return usageErr("SetOffset: negative offset for field %s.%s", fb.declaring.FullName(), fb.name)
	}
	return m.em.SetFieldOffset(fb.token, offset)
}

// SetCustomAttribute attaches an encoded custom attribute to the field.
func (fb *FieldBuilder) SetCustomAttribute(ctor TokenProvider, blob []byte) error {
	m := fb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fb.declaring.mutableLocked("SetCustomAttribute"); err != nil {
		return err
	}
	ctorTok, err := m.providerTokenLocked(ctor)
	if err != nil {
		return err
	}
	_, err = m.em.DefineCustomAttribute(fb.token, ctorTok, blob)
	return err
}
