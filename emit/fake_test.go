package emit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEmitter is an in-memory Emitter for builder tests. It issues tokens
// sequentially per table, interns reference rows the way a real backend
// would, and records everything the builders hand it.
type fakeEmitter struct {
	mu     sync.Mutex
	counts map[TokenKind]uint32
	calls  map[string]int

	typeNames   map[Token]string
	methodNames map[Token]string
	methodAttrs map[Token]MethodAttributes
	methodSigs  map[Token][]byte
	fieldNames  map[Token]string
	fieldSigs   map[Token][]byte

	bodies    map[Token]fakeBody
	parents   map[Token]Token
	impls     map[Token][]Token
	semantics []fakeSemantics
	constants map[Token]any
	offsets   map[Token]int
	layouts   map[Token][2]int
	pinvokes  map[Token]fakePInvoke
	attrUses  []fakeAttrUse
	params    []fakeParam
	gps       []fakeGenericParam

	typeRefs    map[string]Token
	typeSpecs   map[string]Token
	memberRefs  map[string]Token
	methodSpecs map[string]Token
	signatures  map[string]Token

	created map[Token]int
	handles uint32

	failOp  string
	failErr error
}

type fakeBody struct {
	initLocals bool
	il         []byte
	localSig   []byte
	maxStack   int
	handlers   []HandlerClause
	offsets    []int
}

type fakePInvoke struct {
	dll   string
	entry string
	flags PInvokeAttributes
}

type fakeSemantics struct {
	association Token
	semantics   MethodSemantics
	method      Token
}

type fakeAttrUse struct {
	owner Token
	ctor  Token
	blob  []byte
}

type fakeParam struct {
	method   Token
	position int
	name     string
	attr     ParamAttributes
}

type fakeGenericParam struct {
	owner       Token
	position    int
	name        string
	attr        GenericParamAttributes
	constraints []Token
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{
		counts:      make(map[TokenKind]uint32),
		calls:       make(map[string]int),
		typeNames:   make(map[Token]string),
		methodNames: make(map[Token]string),
		methodAttrs: make(map[Token]MethodAttributes),
		methodSigs:  make(map[Token][]byte),
		fieldNames:  make(map[Token]string),
		fieldSigs:   make(map[Token][]byte),
		bodies:      make(map[Token]fakeBody),
		parents:     make(map[Token]Token),
		impls:       make(map[Token][]Token),
		constants:   make(map[Token]any),
		offsets:     make(map[Token]int),
		layouts:     make(map[Token][2]int),
		pinvokes:    make(map[Token]fakePInvoke),
		typeRefs:    make(map[string]Token),
		typeSpecs:   make(map[string]Token),
		memberRefs:  make(map[string]Token),
		methodSpecs: make(map[string]Token),
		signatures:  make(map[string]Token),
		created:     make(map[Token]int),
	}
}

// failOn makes the named emitter operation return err.
func (f *fakeEmitter) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOp = op
	f.failErr = err
}

func (f *fakeEmitter) checkLocked(op string) error {
	f.calls[op]++
	if f.failOp == op {
		return f.failErr
	}
	return nil
}

// callCount reports how many times the named operation was invoked,
// including interned hits that issued no new token.
func (f *fakeEmitter) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeEmitter) count(kind TokenKind) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[kind]
}

func (f *fakeEmitter) createdTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.created {
		n += c
	}
	return n
}

func (f *fakeEmitter) nextLocked(kind TokenKind) Token {
	f.counts[kind]++
	return NewToken(kind, f.counts[kind])
}

func (f *fakeEmitter) DefineType(namespace, name string, attr TypeAttributes, parent, enclosing Token) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineType"); err != nil {
		return NilToken, err
	}
	tok := f.nextLocked(TokenKindTypeDef)
	full := name
	if namespace != "" {
		full = namespace + "." + name
	}
	f.typeNames[tok] = full
	if !parent.IsNil() {
		f.parents[tok] = parent
	}
	return tok, nil
}

func (f *fakeEmitter) DefineMethod(parent Token, name string, signature []byte, attr MethodAttributes, implFlags MethodImplAttributes) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineMethod"); err != nil {
		return NilToken, err
	}
	tok := f.nextLocked(TokenKindMethodDef)
	f.methodNames[tok] = name
	f.methodAttrs[tok] = attr
	f.methodSigs[tok] = append([]byte(nil), signature...)
	return tok, nil
}

func (f *fakeEmitter) DefineField(parent Token, name string, signature []byte, attr FieldAttributes) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineField"); err != nil {
		return NilToken, err
	}
	tok := f.nextLocked(TokenKindFieldDef)
	f.fieldNames[tok] = name
	f.fieldSigs[tok] = append([]byte(nil), signature...)
	return tok, nil
}

func (f *fakeEmitter) DefineProperty(parent Token, name string, signature []byte, attr PropertyAttributes) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineProperty"); err != nil {
		return NilToken, err
	}
	return f.nextLocked(TokenKindProperty), nil
}

func (f *fakeEmitter) DefineEvent(parent Token, name string, attr EventAttributes, eventType Token) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineEvent"); err != nil {
		return NilToken, err
	}
	return f.nextLocked(TokenKindEvent), nil
}

func (f *fakeEmitter) DefineParam(method Token, position int, name string, attr ParamAttributes) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineParam"); err != nil {
		return NilToken, err
	}
	tok := f.nextLocked(TokenKindParamDef)
	f.params = append(f.params, fakeParam{method: method, position: position, name: name, attr: attr})
	return tok, nil
}

func (f *fakeEmitter) DefineGenericParam(owner Token, position int, name string, attr GenericParamAttributes, constraints []Token) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineGenericParam"); err != nil {
		return NilToken, err
	}
	tok := f.nextLocked(TokenKindGenericParam)
	f.gps = append(f.gps, fakeGenericParam{
		owner:       owner,
		position:    position,
		name:        name,
		attr:        attr,
		constraints: append([]Token(nil), constraints...),
	})
	return tok, nil
}

func (f *fakeEmitter) DefineTypeRef(namespace, name string) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineTypeRef"); err != nil {
		return NilToken, err
	}
	key := namespace + "." + name
	if tok, ok := f.typeRefs[key]; ok {
		return tok, nil
	}
	tok := f.nextLocked(TokenKindTypeRef)
	f.typeRefs[key] = tok
	return tok, nil
}

func (f *fakeEmitter) DefineTypeSpec(signature []byte) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineTypeSpec"); err != nil {
		return NilToken, err
	}
	key := string(signature)
	if tok, ok := f.typeSpecs[key]; ok {
		return tok, nil
	}
	tok := f.nextLocked(TokenKindTypeSpec)
	f.typeSpecs[key] = tok
	return tok, nil
}

func (f *fakeEmitter) DefineMemberRef(parent Token, name string, signature []byte) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineMemberRef"); err != nil {
		return NilToken, err
	}
	key := fmt.Sprintf("%08X/%s/%x", uint32(parent), name, signature)
	if tok, ok := f.memberRefs[key]; ok {
		return tok, nil
	}
	tok := f.nextLocked(TokenKindMemberRef)
	f.memberRefs[key] = tok
	return tok, nil
}

func (f *fakeEmitter) DefineSignature(signature []byte) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineSignature"); err != nil {
		return NilToken, err
	}
	key := string(signature)
	if tok, ok := f.signatures[key]; ok {
		return tok, nil
	}
	tok := f.nextLocked(TokenKindSignature)
	f.signatures[key] = tok
	return tok, nil
}

func (f *fakeEmitter) DefineMethodSpec(method Token, instantiation []byte) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineMethodSpec"); err != nil {
		return NilToken, err
	}
	key := fmt.Sprintf("%08X/%x", uint32(method), instantiation)
	if tok, ok := f.methodSpecs[key]; ok {
		return tok, nil
	}
	tok := f.nextLocked(TokenKindMethodSpec)
	f.methodSpecs[key] = tok
	return tok, nil
}

func (f *fakeEmitter) DefineCustomAttribute(owner, ctor Token, blob []byte) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("DefineCustomAttribute"); err != nil {
		return NilToken, err
	}
	tok := f.nextLocked(TokenKindCustomAttr)
	f.attrUses = append(f.attrUses, fakeAttrUse{owner: owner, ctor: ctor, blob: append([]byte(nil), blob...)})
	return tok, nil
}

func (f *fakeEmitter) SetMethodBody(method Token, initLocals bool, il []byte, localSig []byte, maxStack int, handlers []HandlerClause, fixupOffsets []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("SetMethodBody"); err != nil {
		return err
	}
	if _, dup := f.bodies[method]; dup {
		return fmt.Errorf("fake: body for %s set twice", method)
	}
	f.bodies[method] = fakeBody{
		initLocals: initLocals,
		il:         append([]byte(nil), il...),
		localSig:   append([]byte(nil), localSig...),
		maxStack:   maxStack,
		handlers:   append([]HandlerClause(nil), handlers...),
		offsets:    append([]int(nil), fixupOffsets...),
	}
	return nil
}

func (f *fakeEmitter) SetParent(t, parent Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("SetParent"); err != nil {
		return err
	}
	f.parents[t] = parent
	return nil
}

func (f *fakeEmitter) AddInterfaceImpl(t, iface Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("AddInterfaceImpl"); err != nil {
		return err
	}
	f.impls[t] = append(f.impls[t], iface)
	return nil
}

func (f *fakeEmitter) SetMethodSemantics(association Token, semantics MethodSemantics, method Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("SetMethodSemantics"); err != nil {
		return err
	}
	f.semantics = append(f.semantics, fakeSemantics{association: association, semantics: semantics, method: method})
	return nil
}

func (f *fakeEmitter) SetConstant(parent Token, kind ElementKind, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("SetConstant"); err != nil {
		return err
	}
	f.constants[parent] = value
	return nil
}

func (f *fakeEmitter) SetFieldOffset(field Token, offset int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("SetFieldOffset"); err != nil {
		return err
	}
	f.offsets[field] = offset
	return nil
}

func (f *fakeEmitter) SetClassLayout(t Token, packSize, classSize int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("SetClassLayout"); err != nil {
		return err
	}
	f.layouts[t] = [2]int{packSize, classSize}
	return nil
}

func (f *fakeEmitter) SetPInvokeData(method Token, dllName, entryName string, flags PInvokeAttributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("SetPInvokeData"); err != nil {
		return err
	}
	f.pinvokes[method] = fakePInvoke{dll: dllName, entry: entryName, flags: flags}
	return nil
}

func (f *fakeEmitter) CreateType(t Token) (TypeHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked("CreateType"); err != nil {
		return 0, err
	}
	if f.created[t] > 0 {
		return 0, fmt.Errorf("fake: type %s created twice", t)
	}
	f.created[t]++
	f.handles++
	return TypeHandle(f.handles), nil
}

// methodName looks up the recorded name for a method token.
func (f *fakeEmitter) methodName(tok Token) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.methodNames[tok]
}

func (f *fakeEmitter) body(tok Token) (fakeBody, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bodies[tok]
	return b, ok
}

var _ Emitter = (*fakeEmitter)(nil)

// fakeEncoder renders type shapes as readable text so tests can assert on
// interning and signature freezing without real blob grammar. Equal shapes
// produce equal blobs.
type fakeEncoder struct{}

var _ SignatureEncoder = fakeEncoder{}

func fakeTypeName(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.FullName()
}

func (fakeEncoder) MethodSig(r TokenResolver, conv CallingConventions, genericArity int, ret Type, retReq, retOpt []Type, params []Type, paramReq, paramOpt [][]Type) ([]byte, error) {
	out := fmt.Sprintf("M%02X:%d:%s", uint8(conv), genericArity, fakeTypeName(ret))
	for _, p := range params {
		out += "," + fakeTypeName(p)
	}
	return []byte(out), nil
}

func (fakeEncoder) FieldSig(r TokenResolver, t Type, req, opt []Type) ([]byte, error) {
	return []byte("F:" + fakeTypeName(t)), nil
}

func (fakeEncoder) LocalSig(r TokenResolver, locals []Local) ([]byte, error) {
	out := "L"
	for _, l := range locals {
		out += ":" + fakeTypeName(l.Type)
		if l.Pinned {
			out += "!"
		}
	}
	return []byte(out), nil
}

func (fakeEncoder) PropertySig(r TokenResolver, hasThis bool, ret Type, params []Type) ([]byte, error) {
	out := fmt.Sprintf("P:%t:%s", hasThis, fakeTypeName(ret))
	for _, p := range params {
		out += "," + fakeTypeName(p)
	}
	return []byte(out), nil
}

func (fakeEncoder) TypeSpecSig(r TokenResolver, t Type) ([]byte, error) {
	return []byte("S:" + fakeTypeName(t)), nil
}

func (fakeEncoder) MethodSpecSig(r TokenResolver, args []Type) ([]byte, error) {
	out := "G"
	for _, a := range args {
		out += ":" + fakeTypeName(a)
	}
	return []byte(out), nil
}

func newTestModule(t *testing.T) (*ModuleBuilder, *fakeEmitter) {
	t.Helper()
	fe := newFakeEmitter()
	m, err := NewModule("test", fe, fakeEncoder{}, nil)
	require.NoError(t, err)
	return m, fe
}
