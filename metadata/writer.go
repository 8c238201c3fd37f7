package metadata

import (
	"encoding/json"
	"fmt"
	"sync"

	"fortio.org/safecast"

	"github.com/anvil-rt/anvil/emit"
)

// typeNameKey identifies a type definition for duplicate detection. Nested
// definitions are scoped by their enclosing type.
type typeNameKey struct {
	enclosing emit.Token
	namespace string
	name      string
}

type typeRefKey struct {
	namespace string
	name      string
}

type memberRefKey struct {
	parent emit.Token
	name   string
	sig    string
}

type methodSpecKey struct {
	method emit.Token
	inst   string
}

// Writer is the reference emit.Emitter: an in-memory metadata table store.
// Row indexes grow monotonically per table, reference tables intern their
// rows, and CreateType turns a definition into a handle exactly once.
//
// A single Writer may back several modules concurrently; every operation
// takes the writer lock.
type Writer struct {
	mu sync.Mutex

	// limit caps the row index of every table. It defaults to
	// emit.MaxTokenIndex; tests lower it to reach the table-full path.
	limit uint32

	typeDefs       []TypeDefRow
	typeRefs       []TypeRefRow
	typeSpecs      []TypeSpecRow
	methods        []MethodRow
	fields         []FieldRow
	params         []ParamRow
	properties     []PropertyRow
	events         []EventRow
	memberRefs     []MemberRefRow
	signatures     []SignatureRow
	genericParams  []GenericParamRow
	methodSpecs    []MethodSpecRow
	interfaceImpls []InterfaceImplRow
	customAttrs    []CustomAttributeRow
	methodSems     []MethodSemanticsRow
	constants      []ConstantRow
	fieldLayouts   []FieldLayoutRow
	classLayouts   []ClassLayoutRow
	implMaps       []ImplMapRow

	typeNames       map[typeNameKey]struct{}
	typeRefIndex    map[typeRefKey]emit.Token
	typeSpecIndex   map[string]emit.Token
	memberRefIndex  map[memberRefKey]emit.Token
	signatureIndex  map[string]emit.Token
	methodSpecIndex map[methodSpecKey]emit.Token

	handles uint32
}

// NewWriter returns an empty table store.
func NewWriter() *Writer {
	return &Writer{
		limit:           emit.MaxTokenIndex,
		typeNames:       make(map[typeNameKey]struct{}),
		typeRefIndex:    make(map[typeRefKey]emit.Token),
		typeSpecIndex:   make(map[string]emit.Token),
		memberRefIndex:  make(map[memberRefKey]emit.Token),
		signatureIndex:  make(map[string]emit.Token),
		methodSpecIndex: make(map[methodSpecKey]emit.Token),
	}
}

var _ emit.Emitter = (*Writer)(nil)

// nextToken packs the next row index of a table, or reports the table full.
func (w *Writer) nextToken(kind emit.TokenKind, used int) (emit.Token, error) {
	rid, err := safecast.Conv[uint32](used + 1)
	if err != nil || rid > w.limit {
		return emit.NilToken, fmt.Errorf("%w: %s table is full", emit.ErrState, kind)
	}
	return emit.NewToken(kind, rid), nil
}

func (w *Writer) typeDefLocked(tok emit.Token) (*TypeDefRow, error) {
	if tok.Kind() != emit.TokenKindTypeDef {
		return nil, fmt.Errorf("%w: %s does not name a type definition", emit.ErrUsage, tok)
	}
	i := int(tok.Index())
	if i < 1 || i > len(w.typeDefs) {
		return nil, fmt.Errorf("%w: unknown token %s", emit.ErrResolution, tok)
	}
	return &w.typeDefs[i-1], nil
}

func (w *Writer) methodLocked(tok emit.Token) (*MethodRow, error) {
	if tok.Kind() != emit.TokenKindMethodDef {
		return nil, fmt.Errorf("%w: %s does not name a method definition", emit.ErrUsage, tok)
	}
	i := int(tok.Index())
	if i < 1 || i > len(w.methods) {
		return nil, fmt.Errorf("%w: unknown token %s", emit.ErrResolution, tok)
	}
	return &w.methods[i-1], nil
}

// checkTypeTokenLocked verifies that tok names a known type row of any
// flavor: definition, reference or spec.
func (w *Writer) checkTypeTokenLocked(tok emit.Token) error {
	var rows int
	switch tok.Kind() {
	case emit.TokenKindTypeDef:
		rows = len(w.typeDefs)
	case emit.TokenKindTypeRef:
		rows = len(w.typeRefs)
	case emit.TokenKindTypeSpec:
		rows = len(w.typeSpecs)
	default:
		return fmt.Errorf("%w: %s does not name a type", emit.ErrUsage, tok)
	}
	i := int(tok.Index())
	if i < 1 || i > rows {
		return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, tok)
	}
	return nil
}

// mutableTypeLocked resolves a type definition that may still accept new
// members and links.
func (w *Writer) mutableTypeLocked(tok emit.Token) (*TypeDefRow, error) {
	row, err := w.typeDefLocked(tok)
	if err != nil {
		return nil, err
	}
	if row.Handle != 0 {
		return nil, fmt.Errorf("%w: type %s is already finalized", emit.ErrState, qualifiedName(row.Namespace, row.Name))
	}
	return row, nil
}

func qualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// DefineType adds a type definition row. Duplicate names under the same
// enclosing scope are rejected.
func (w *Writer) DefineType(namespace, name string, attr emit.TypeAttributes, parent, enclosing emit.Token) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: type name is empty", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if !parent.IsNil() {
		if err := w.checkTypeTokenLocked(parent); err != nil {
			return emit.NilToken, err
		}
	}
	if !enclosing.IsNil() {
		if _, err := w.typeDefLocked(enclosing); err != nil {
			return emit.NilToken, err
		}
	}
	key := typeNameKey{enclosing: enclosing, namespace: namespace, name: name}
	if _, dup := w.typeNames[key]; dup {
		return emit.NilToken, fmt.Errorf("%w: type %s is already defined", emit.ErrState, qualifiedName(namespace, name))
	}
	tok, err := w.nextToken(emit.TokenKindTypeDef, len(w.typeDefs))
	if err != nil {
		return emit.NilToken, err
	}
	w.typeDefs = append(w.typeDefs, TypeDefRow{
		Token:     tok,
		Namespace: namespace,
		Name:      name,
		Attr:      attr,
		Parent:    parent,
		Enclosing: enclosing,
	})
	w.typeNames[key] = struct{}{}
	return tok, nil
}

// DefineMethod adds a method row under a type definition.
func (w *Writer) DefineMethod(parent emit.Token, name string, signature []byte, attr emit.MethodAttributes, implFlags emit.MethodImplAttributes) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: method name is empty", emit.ErrUsage)
	}
	if len(signature) == 0 {
		return emit.NilToken, fmt.Errorf("%w: method %s has an empty signature", emit.ErrUsage, name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.mutableTypeLocked(parent); err != nil {
		return emit.NilToken, err
	}
	tok, err := w.nextToken(emit.TokenKindMethodDef, len(w.methods))
	if err != nil {
		return emit.NilToken, err
	}
	w.methods = append(w.methods, MethodRow{
		Token:     tok,
		Parent:    parent,
		Name:      name,
		Signature: signature,
		Attr:      attr,
		ImplFlags: implFlags,
	})
	return tok, nil
}

// DefineField adds a field row under a type definition.
func (w *Writer) DefineField(parent emit.Token, name string, signature []byte, attr emit.FieldAttributes) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: field name is empty", emit.ErrUsage)
	}
	if len(signature) == 0 {
		return emit.NilToken, fmt.Errorf("%w: field %s has an empty signature", emit.ErrUsage, name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.mutableTypeLocked(parent); err != nil {
		return emit.NilToken, err
	}
	tok, err := w.nextToken(emit.TokenKindFieldDef, len(w.fields))
	if err != nil {
		return emit.NilToken, err
	}
	w.fields = append(w.fields, FieldRow{
		Token:     tok,
		Parent:    parent,
		Name:      name,
		Signature: signature,
		Attr:      attr,
	})
	return tok, nil
}

// DefineProperty adds a property row under a type definition.
func (w *Writer) DefineProperty(parent emit.Token, name string, signature []byte, attr emit.PropertyAttributes) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: property name is empty", emit.ErrUsage)
	}
	if len(signature) == 0 {
		return emit.NilToken, fmt.Errorf("%w: property %s has an empty signature", emit.ErrUsage, name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.mutableTypeLocked(parent); err != nil {
		return emit.NilToken, err
	}
	tok, err := w.nextToken(emit.TokenKindProperty, len(w.properties))
	if err != nil {
		return emit.NilToken, err
	}
	w.properties = append(w.properties, PropertyRow{
		Token:     tok,
		Parent:    parent,
		Name:      name,
		Signature: signature,
		Attr:      attr,
	})
	return tok, nil
}

// DefineEvent adds an event row under a type definition.
func (w *Writer) DefineEvent(parent emit.Token, name string, attr emit.EventAttributes, eventType emit.Token) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: event name is empty", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.mutableTypeLocked(parent); err != nil {
		return emit.NilToken, err
	}
	if err := w.checkTypeTokenLocked(eventType); err != nil {
		return emit.NilToken, err
	}
	tok, err := w.nextToken(emit.TokenKindEvent, len(w.events))
	if err != nil {
		return emit.NilToken, err
	}
	w.events = append(w.events, EventRow{
		Token:     tok,
		Parent:    parent,
		Name:      name,
		Attr:      attr,
		EventType: eventType,
	})
	return tok, nil
}

// DefineParam adds a parameter row under a method. Position zero names the
// return value.
func (w *Writer) DefineParam(method emit.Token, position int, name string, attr emit.ParamAttributes) (emit.Token, error) {
	if position < 0 {
		return emit.NilToken, fmt.Errorf("%w: negative parameter position %d", emit.ErrUsage, position)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.methodLocked(method); err != nil {
		return emit.NilToken, err
	}
	tok, err := w.nextToken(emit.TokenKindParamDef, len(w.params))
	if err != nil {
		return emit.NilToken, err
	}
	w.params = append(w.params, ParamRow{
		Token:    tok,
		Method:   method,
		Position: position,
		Name:     name,
		Attr:     attr,
	})
	return tok, nil
}

// DefineGenericParam adds a generic parameter row under a type or method
// owner.
func (w *Writer) DefineGenericParam(owner emit.Token, position int, name string, attr emit.GenericParamAttributes, constraints []emit.Token) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: generic parameter name is empty", emit.ErrUsage)
	}
	if position < 0 {
		return emit.NilToken, fmt.Errorf("%w: negative generic parameter position %d", emit.ErrUsage, position)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch owner.Kind() {
	case emit.TokenKindTypeDef:
		if _, err := w.typeDefLocked(owner); err != nil {
			return emit.NilToken, err
		}
	case emit.TokenKindMethodDef:
		if _, err := w.methodLocked(owner); err != nil {
			return emit.NilToken, err
		}
	default:
		return emit.NilToken, fmt.Errorf("%w: %s cannot own generic parameters", emit.ErrUsage, owner)
	}
	for _, c := range constraints {
		if err := w.checkTypeTokenLocked(c); err != nil {
			return emit.NilToken, err
		}
	}
	tok, err := w.nextToken(emit.TokenKindGenericParam, len(w.genericParams))
	if err != nil {
		return emit.NilToken, err
	}
	row := GenericParamRow{
		Token:    tok,
		Owner:    owner,
		Position: position,
		Name:     name,
		Attr:     attr,
	}
	if len(constraints) > 0 {
		row.Constraints = append([]emit.Token(nil), constraints...)
	}
	w.genericParams = append(w.genericParams, row)
	return tok, nil
}

// DefineTypeRef interns a reference to an external type.
func (w *Writer) DefineTypeRef(namespace, name string) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: type reference name is empty", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	key := typeRefKey{namespace: namespace, name: name}
	if tok, ok := w.typeRefIndex[key]; ok {
		return tok, nil
	}
	tok, err := w.nextToken(emit.TokenKindTypeRef, len(w.typeRefs))
	if err != nil {
		return emit.NilToken, err
	}
	w.typeRefs = append(w.typeRefs, TypeRefRow{Token: tok, Namespace: namespace, Name: name})
	w.typeRefIndex[key] = tok
	return tok, nil
}

// DefineTypeSpec interns a type described by a signature blob.
func (w *Writer) DefineTypeSpec(signature []byte) (emit.Token, error) {
	if len(signature) == 0 {
		return emit.NilToken, fmt.Errorf("%w: type spec signature is empty", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	key := string(signature)
	if tok, ok := w.typeSpecIndex[key]; ok {
		return tok, nil
	}
	tok, err := w.nextToken(emit.TokenKindTypeSpec, len(w.typeSpecs))
	if err != nil {
		return emit.NilToken, err
	}
	w.typeSpecs = append(w.typeSpecs, TypeSpecRow{Token: tok, Signature: signature})
	w.typeSpecIndex[key] = tok
	return tok, nil
}

// DefineMemberRef interns a member reference under a type or method parent.
func (w *Writer) DefineMemberRef(parent emit.Token, name string, signature []byte) (emit.Token, error) {
	if name == "" {
		return emit.NilToken, fmt.Errorf("%w: member reference name is empty", emit.ErrUsage)
	}
	if len(signature) == 0 {
		return emit.NilToken, fmt.Errorf("%w: member reference %s has an empty signature", emit.ErrUsage, name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if parent.Kind() == emit.TokenKindMethodDef {
		if _, err := w.methodLocked(parent); err != nil {
			return emit.NilToken, err
		}
	} else if err := w.checkTypeTokenLocked(parent); err != nil {
		return emit.NilToken, err
	}
	key := memberRefKey{parent: parent, name: name, sig: string(signature)}
	if tok, ok := w.memberRefIndex[key]; ok {
		return tok, nil
	}
	tok, err := w.nextToken(emit.TokenKindMemberRef, len(w.memberRefs))
	if err != nil {
		return emit.NilToken, err
	}
	w.memberRefs = append(w.memberRefs, MemberRefRow{
		Token:     tok,
		Parent:    parent,
		Name:      name,
		Signature: signature,
	})
	w.memberRefIndex[key] = tok
	return tok, nil
}

// DefineSignature interns a standalone signature blob.
func (w *Writer) DefineSignature(signature []byte) (emit.Token, error) {
	if len(signature) == 0 {
		return emit.NilToken, fmt.Errorf("%w: standalone signature is empty", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	key := string(signature)
	if tok, ok := w.signatureIndex[key]; ok {
		return tok, nil
	}
	tok, err := w.nextToken(emit.TokenKindSignature, len(w.signatures))
	if err != nil {
		return emit.NilToken, err
	}
	w.signatures = append(w.signatures, SignatureRow{Token: tok, Signature: signature})
	w.signatureIndex[key] = tok
	return tok, nil
}

// DefineMethodSpec interns a generic method instantiation.
func (w *Writer) DefineMethodSpec(method emit.Token, instantiation []byte) (emit.Token, error) {
	if len(instantiation) == 0 {
		return emit.NilToken, fmt.Errorf("%w: method spec instantiation is empty", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch method.Kind() {
	case emit.TokenKindMethodDef:
		if _, err := w.methodLocked(method); err != nil {
			return emit.NilToken, err
		}
	case emit.TokenKindMemberRef:
		if err := w.checkMemberRefLocked(method); err != nil {
			return emit.NilToken, err
		}
	default:
		return emit.NilToken, fmt.Errorf("%w: %s cannot anchor a method spec", emit.ErrUsage, method)
	}
	key := methodSpecKey{method: method, inst: string(instantiation)}
	if tok, ok := w.methodSpecIndex[key]; ok {
		return tok, nil
	}
	tok, err := w.nextToken(emit.TokenKindMethodSpec, len(w.methodSpecs))
	if err != nil {
		return emit.NilToken, err
	}
	w.methodSpecs = append(w.methodSpecs, MethodSpecRow{
		Token:         tok,
		Method:        method,
		Instantiation: instantiation,
	})
	w.methodSpecIndex[key] = tok
	return tok, nil
}

func (w *Writer) checkMemberRefLocked(tok emit.Token) error {
	i := int(tok.Index())
	if i < 1 || i > len(w.memberRefs) {
		return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, tok)
	}
	return nil
}

// DefineCustomAttribute attaches an encoded attribute blob to owner.
func (w *Writer) DefineCustomAttribute(owner, ctor emit.Token, blob []byte) (emit.Token, error) {
	if owner.IsNil() {
		return emit.NilToken, fmt.Errorf("%w: custom attribute owner is nil", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ctor.Kind() {
	case emit.TokenKindMethodDef:
		if _, err := w.methodLocked(ctor); err != nil {
			return emit.NilToken, err
		}
	case emit.TokenKindMemberRef:
		if err := w.checkMemberRefLocked(ctor); err != nil {
			return emit.NilToken, err
		}
	default:
		return emit.NilToken, fmt.Errorf("%w: %s cannot be an attribute constructor", emit.ErrUsage, ctor)
	}
	tok, err := w.nextToken(emit.TokenKindCustomAttr, len(w.customAttrs))
	if err != nil {
		return emit.NilToken, err
	}
	w.customAttrs = append(w.customAttrs, CustomAttributeRow{
		Token: tok,
		Owner: owner,
		Ctor:  ctor,
		Blob:  blob,
	})
	return tok, nil
}

// SetMethodBody attaches the finalized body of a method. A body can be set
// once, and only while the owning type is not finalized.
func (w *Writer) SetMethodBody(method emit.Token, initLocals bool, il []byte, localSig []byte, maxStack int, handlers []emit.HandlerClause, fixupOffsets []int) error {
	if len(il) == 0 {
		return fmt.Errorf("%w: method body has no instructions", emit.ErrUsage)
	}
	if maxStack < 0 {
		return fmt.Errorf("%w: negative max stack %d", emit.ErrUsage, maxStack)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	row, err := w.methodLocked(method)
	if err != nil {
		return err
	}
	if _, err := w.mutableTypeLocked(row.Parent); err != nil {
		return err
	}
	if row.Body != nil {
		return fmt.Errorf("%w: method %s already has a body", emit.ErrState, row.Name)
	}
	body := &MethodBodyRow{
		InitLocals: initLocals,
		IL:         append([]byte(nil), il...),
		MaxStack:   maxStack,
	}
	if len(localSig) > 0 {
		body.LocalSig = append([]byte(nil), localSig...)
	}
	if len(handlers) > 0 {
		body.Handlers = append([]emit.HandlerClause(nil), handlers...)
	}
	if len(fixupOffsets) > 0 {
		body.FixupOffsets = append([]int(nil), fixupOffsets...)
	}
	row.Body = body
	return nil
}

// SetParent links a type definition to its base type.
func (w *Writer) SetParent(t, parent emit.Token) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row, err := w.mutableTypeLocked(t)
	if err != nil {
		return err
	}
	if err := w.checkTypeTokenLocked(parent); err != nil {
		return err
	}
	row.Parent = parent
	return nil
}

// AddInterfaceImpl records that a type implements an interface.
func (w *Writer) AddInterfaceImpl(t, iface emit.Token) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.mutableTypeLocked(t); err != nil {
		return err
	}
	if err := w.checkTypeTokenLocked(iface); err != nil {
		return err
	}
	tok, err := w.nextToken(emit.TokenKindInterfaceImpl, len(w.interfaceImpls))
	if err != nil {
		return err
	}
	w.interfaceImpls = append(w.interfaceImpls, InterfaceImplRow{
		Token:     tok,
		Type:      t,
		Interface: iface,
	})
	return nil
}

// SetMethodSemantics links a method to a property or event role.
func (w *Writer) SetMethodSemantics(association emit.Token, semantics emit.MethodSemantics, method emit.Token) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch association.Kind() {
	case emit.TokenKindProperty:
		i := int(association.Index())
		if i < 1 || i > len(w.properties) {
			return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, association)
		}
	case emit.TokenKindEvent:
		i := int(association.Index())
		if i < 1 || i > len(w.events) {
			return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, association)
		}
	default:
		return fmt.Errorf("%w: %s cannot carry method semantics", emit.ErrUsage, association)
	}
	if _, err := w.methodLocked(method); err != nil {
		return err
	}
	w.methodSems = append(w.methodSems, MethodSemanticsRow{
		Association: association,
		Semantics:   semantics,
		Method:      method,
	})
	return nil
}

// SetConstant attaches a default value to a field, parameter or property.
func (w *Writer) SetConstant(parent emit.Token, kind emit.ElementKind, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch parent.Kind() {
	case emit.TokenKindFieldDef:
		i := int(parent.Index())
		if i < 1 || i > len(w.fields) {
			return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, parent)
		}
	case emit.TokenKindParamDef:
		i := int(parent.Index())
		if i < 1 || i > len(w.params) {
			return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, parent)
		}
	case emit.TokenKindProperty:
		i := int(parent.Index())
		if i < 1 || i > len(w.properties) {
			return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, parent)
		}
	default:
		return fmt.Errorf("%w: %s cannot carry a constant", emit.ErrUsage, parent)
	}
	w.constants = append(w.constants, ConstantRow{Parent: parent, Kind: kind, Value: value})
	return nil
}

// SetFieldOffset records an explicit field offset.
func (w *Writer) SetFieldOffset(field emit.Token, offset int) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative field offset %d", emit.ErrUsage, offset)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if field.Kind() != emit.TokenKindFieldDef {
		return fmt.Errorf("%w: %s does not name a field definition", emit.ErrUsage, field)
	}
	i := int(field.Index())
	if i < 1 || i > len(w.fields) {
		return fmt.Errorf("%w: unknown token %s", emit.ErrResolution, field)
	}
	w.fieldLayouts = append(w.fieldLayouts, FieldLayoutRow{Field: field, Offset: offset})
	return nil
}

// SetClassLayout records packing and size for a type. Pack sizes follow the
// power-of-two ladder up to 128; zero leaves packing to the loader.
func (w *Writer) SetClassLayout(t emit.Token, packSize, classSize int) error {
	switch packSize {
	case 0, 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		return fmt.Errorf("%w: invalid pack size %d", emit.ErrUsage, packSize)
	}
	if classSize < 0 {
		return fmt.Errorf("%w: negative class size %d", emit.ErrUsage, classSize)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.mutableTypeLocked(t); err != nil {
		return err
	}
	w.classLayouts = append(w.classLayouts, ClassLayoutRow{Type: t, PackSize: packSize, ClassSize: classSize})
	return nil
}

// SetPInvokeData records the unmanaged import of a method.
func (w *Writer) SetPInvokeData(method emit.Token, dllName, entryName string, flags emit.PInvokeAttributes) error {
	if dllName == "" {
		return fmt.Errorf("%w: unmanaged import needs a library name", emit.ErrUsage)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.methodLocked(method); err != nil {
		return err
	}
	w.implMaps = append(w.implMaps, ImplMapRow{
		Method:     method,
		DLLName:    dllName,
		EntryPoint: entryName,
		Flags:      flags,
	})
	return nil
}

// CreateType finalizes a type definition and returns its handle. A second
// call for the same token is an error.
func (w *Writer) CreateType(t emit.Token) (emit.TypeHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	row, err := w.typeDefLocked(t)
	if err != nil {
		return 0, err
	}
	if row.Handle != 0 {
		return 0, fmt.Errorf("%w: type %s is already finalized", emit.ErrState, qualifiedName(row.Namespace, row.Name))
	}
	w.handles++
	row.Handle = emit.TypeHandle(w.handles)
	return row.Handle, nil
}

// Tables returns a snapshot of every accumulated table. Row slices are
// copies; signature blobs are shared with the store, which never mutates
// them after definition.
func (w *Writer) Tables() Tables {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Tables{
		TypeDefs:         append([]TypeDefRow(nil), w.typeDefs...),
		TypeRefs:         append([]TypeRefRow(nil), w.typeRefs...),
		TypeSpecs:        append([]TypeSpecRow(nil), w.typeSpecs...),
		Methods:          append([]MethodRow(nil), w.methods...),
		Fields:           append([]FieldRow(nil), w.fields...),
		Params:           append([]ParamRow(nil), w.params...),
		Properties:       append([]PropertyRow(nil), w.properties...),
		Events:           append([]EventRow(nil), w.events...),
		MemberRefs:       append([]MemberRefRow(nil), w.memberRefs...),
		Signatures:       append([]SignatureRow(nil), w.signatures...),
		GenericParams:    append([]GenericParamRow(nil), w.genericParams...),
		MethodSpecs:      append([]MethodSpecRow(nil), w.methodSpecs...),
		InterfaceImpls:   append([]InterfaceImplRow(nil), w.interfaceImpls...),
		CustomAttributes: append([]CustomAttributeRow(nil), w.customAttrs...),
		MethodSemantics:  append([]MethodSemanticsRow(nil), w.methodSems...),
		Constants:        append([]ConstantRow(nil), w.constants...),
		FieldLayouts:     append([]FieldLayoutRow(nil), w.fieldLayouts...),
		ClassLayouts:     append([]ClassLayoutRow(nil), w.classLayouts...),
		ImplMaps:         append([]ImplMapRow(nil), w.implMaps...),
	}
}

// TypeDef returns a copy of the type definition row behind tok.
func (w *Writer) TypeDef(tok emit.Token) (TypeDefRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	row, err := w.typeDefLocked(tok)
	if err != nil {
		return TypeDefRow{}, err
	}
	return *row, nil
}

// Method returns a copy of the method row behind tok. The body pointer, when
// present, is shared and must be treated read-only.
func (w *Writer) Method(tok emit.Token) (MethodRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	row, err := w.methodLocked(tok)
	if err != nil {
		return MethodRow{}, err
	}
	return *row, nil
}

// JSON renders the current snapshot as indented JSON.
func (w *Writer) JSON() ([]byte, error) {
	tables := w.Tables()
	out, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata tables: %w", err)
	}
	return out, nil
}
