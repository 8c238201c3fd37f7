package emit

// EventBuilder is an event definition. Event tokens are issued eagerly, and
// handler links are recorded immediately as method semantics rows, which
// issues the handler's method token.
type EventBuilder struct {
	declaring *TypeBuilder
	name      string
	attr      EventAttributes
	eventType Type
	token     Token
}

// Name returns the event name.
func (eb *EventBuilder) Name() string { return eb.name }

// EventType returns the event's delegate type.
func (eb *EventBuilder) EventType() Type { return eb.eventType }

// Attributes returns the event flags.
func (eb *EventBuilder) Attributes() EventAttributes { return eb.attr }

// DeclaringType returns the type the event is declared on.
func (eb *EventBuilder) DeclaringType() *TypeBuilder { return eb.declaring }

// Token returns the eagerly issued event token.
func (eb *EventBuilder) Token() Token { return eb.token }

// GetToken returns the event token, satisfying TokenProvider.
func (eb *EventBuilder) GetToken() (Token, error) { return eb.token, nil }

func (eb *EventBuilder) tokenLocked(*ModuleBuilder) (Token, error) { return eb.token, nil }

// linkHandler records a semantics row binding method to this event.
func (eb *EventBuilder) linkHandler(op string, sem MethodSemantics, method *MethodBuilder) error {
	m := eb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := eb.declaring.mutableLocked(op); err != nil {
		return err
	}
	if method == nil {
		return usageErr("%s: nil handler for event %s.%s", op, eb.declaring.FullName(), eb.name)
	}
	if method.declaring.mod != m {
		return usageErr("%s: handler %s belongs to a different module", op, method.name)
	}
	tok, err := method.tokenLocked(m)
	if err != nil {
		return err
	}
	return m.em.SetMethodSemantics(eb.token, sem, tok)
}

// SetAddOnMethod links the event's subscribe method.
func (eb *EventBuilder) SetAddOnMethod(method *MethodBuilder) error {
	return eb.linkHandler("SetAddOnMethod", SemanticsAddOn, method)
}

// SetRemoveOnMethod links the event's unsubscribe method.
func (eb *EventBuilder) SetRemoveOnMethod(method *MethodBuilder) error {
	return eb.linkHandler("SetRemoveOnMethod", SemanticsRemoveOn, method)
}

// SetRaiseMethod links the event's raise method.
func (eb *EventBuilder) SetRaiseMethod(method *MethodBuilder) error {
	return eb.linkHandler("SetRaiseMethod", SemanticsFire, method)
}

// AddOtherMethod links an auxiliary handler.
func (eb *EventBuilder) AddOtherMethod(method *MethodBuilder) error {
	return eb.linkHandler("AddOtherMethod", SemanticsOther, method)
}

// SetCustomAttribute attaches an encoded custom attribute to the event.
func (eb *EventBuilder) SetCustomAttribute(ctor TokenProvider, blob []byte) error {
	m := eb.declaring.mod
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := eb.declaring.mutableLocked("SetCustomAttribute"); err != nil {
		return err
	}
	ctorTok, err := m.providerTokenLocked(ctor)
	if err != nil {
		return err
	}
	_, err = m.em.DefineCustomAttribute(eb.token, ctorTok, blob)
	return err
}
