package emit

// TypeHandle identifies a finished type in the emitter's loaded view. The
// zero value means the type has not been created.
type TypeHandle uint32

// TokenProvider supplies a metadata token on demand. Builders, projected
// members and method instantiations all implement it; FixedToken adapts an
// already-known token.
//
// Fix-up targets inside a method body must either come from the same module
// as the method or be a FixedToken; a foreign provider that re-enters another
// module during a bake is not supported.
type TokenProvider interface {
	GetToken() (Token, error)
}

// FixedToken wraps an already-issued token as a TokenProvider.
func FixedToken(t Token) TokenProvider { return staticToken(t) }

type staticToken Token

func (s staticToken) GetToken() (Token, error) { return Token(s), nil }

func (s staticToken) tokenLocked(*ModuleBuilder) (Token, error) { return Token(s), nil }

// lockedTokenProvider is implemented by every in-module provider; it resolves
// the token while the module lock is already held.
type lockedTokenProvider interface {
	tokenLocked(m *ModuleBuilder) (Token, error)
}

// HandlerKind names the flavor of a protected-region handler.
type HandlerKind uint8

const (
	HandlerCatch HandlerKind = iota
	HandlerFilter
	HandlerFinally
	HandlerFault
)

// ExceptionHandler describes one protected region of a staged method body.
// Offsets and lengths are byte positions within the body's IL.
type ExceptionHandler struct {
	Kind          HandlerKind
	TryOffset     int
	TryLength     int
	HandlerOffset int
	HandlerLength int
	// FilterOffset is the start of the filter expression; used only when
	// Kind is HandlerFilter.
	FilterOffset int
	// CatchType is the caught exception type; used only when Kind is
	// HandlerCatch.
	CatchType Type
}

// HandlerClause is the resolved wire form of an ExceptionHandler, with the
// catch type lowered to a token.
type HandlerClause struct {
	Kind          HandlerKind `json:"kind"`
	TryOffset     int         `json:"try_offset"`
	TryLength     int         `json:"try_length"`
	HandlerOffset int         `json:"handler_offset"`
	HandlerLength int         `json:"handler_length"`
	FilterOffset  int         `json:"filter_offset,omitempty"`
	CatchToken    Token       `json:"catch_token,omitempty"`
}

// Fixup marks a 4-byte slot inside staged IL that must receive the token of
// Target before the body is emitted. Offset addresses the first byte of the
// slot.
type Fixup struct {
	Offset int
	Target TokenProvider
}

// MethodBody is the staged executable payload of a method. IL carries raw
// instruction bytes with zeroed token slots; Fixups names the slots and
// their targets. LocalSig, when set, overrides the signature derived from
// locals declared through DeclareLocal.
type MethodBody struct {
	IL       []byte
	MaxStack int
	LocalSig []byte
	Handlers []ExceptionHandler
	Fixups   []Fixup
}

// Local pairs a local variable slot's type with its pinned flag, in the form
// the signature encoder consumes.
type Local struct {
	Type   Type
	Pinned bool
}

// Emitter is the metadata backend a ModuleBuilder drives. It owns the
// metadata tables, issues all tokens, and finalizes types into handles.
//
// Implementations must issue row indexes monotonically per table and report
// failures (duplicate definitions, exhausted tables, unknown tokens) as
// errors; the builders pass those through to callers unwrapped. The
// reference implementation lives in the metadata package.
//
// Calls arrive serialized per module; implementations shared between modules
// must synchronize internally.
type Emitter interface {
	// DefineType adds a type definition row. Parent may be NilToken when the
	// base link is resolved later via SetParent, and enclosing is NilToken
	// for non-nested types.
	DefineType(namespace, name string, attr TypeAttributes, parent, enclosing Token) (Token, error)
	// DefineMethod adds a method row under a type definition.
	DefineMethod(parent Token, name string, signature []byte, attr MethodAttributes, implFlags MethodImplAttributes) (Token, error)
	// DefineField adds a field row under a type definition.
	DefineField(parent Token, name string, signature []byte, attr FieldAttributes) (Token, error)
	// DefineProperty adds a property row under a type definition.
	DefineProperty(parent Token, name string, signature []byte, attr PropertyAttributes) (Token, error)
	// DefineEvent adds an event row under a type definition.
	DefineEvent(parent Token, name string, attr EventAttributes, eventType Token) (Token, error)
	// DefineParam adds a parameter row under a method. Position 0 names the
	// return value.
	DefineParam(method Token, position int, name string, attr ParamAttributes) (Token, error)
	// DefineGenericParam adds a generic parameter row under a type or
	// method owner.
	DefineGenericParam(owner Token, position int, name string, attr GenericParamAttributes, constraints []Token) (Token, error)
	// DefineTypeRef interns a reference to an external type.
	DefineTypeRef(namespace, name string) (Token, error)
	// DefineTypeSpec interns a type described by a signature blob.
	DefineTypeSpec(signature []byte) (Token, error)
	// DefineMemberRef interns a member reference under a parent token.
	DefineMemberRef(parent Token, name string, signature []byte) (Token, error)
	// DefineSignature interns a standalone signature blob.
	DefineSignature(signature []byte) (Token, error)
	// DefineMethodSpec interns a generic method instantiation.
	DefineMethodSpec(method Token, instantiation []byte) (Token, error)
	// DefineCustomAttribute attaches an encoded attribute blob to owner.
	DefineCustomAttribute(owner, ctor Token, blob []byte) (Token, error)

	// SetMethodBody attaches the finalized body of a method. fixupOffsets
	// lists the IL offsets that hold tokens, for backends that relocate.
	SetMethodBody(method Token, initLocals bool, il []byte, localSig []byte, maxStack int, handlers []HandlerClause, fixupOffsets []int) error
	// SetParent links a type definition to its base type.
	SetParent(t, parent Token) error
	// AddInterfaceImpl records that a type implements an interface.
	AddInterfaceImpl(t, iface Token) error
	// SetMethodSemantics links a method to a property or event role.
	SetMethodSemantics(association Token, semantics MethodSemantics, method Token) error
	// SetConstant attaches a default value to a field, parameter or
	// property.
	SetConstant(parent Token, kind ElementKind, value any) error
	// SetFieldOffset records an explicit field offset.
	SetFieldOffset(field Token, offset int) error
	// SetClassLayout records packing and size for a type.
	SetClassLayout(t Token, packSize, classSize int) error
	// SetPInvokeData records the unmanaged import of a method.
	SetPInvokeData(method Token, dllName, entryName string, flags PInvokeAttributes) error

	// CreateType finalizes a type definition and returns its handle.
	CreateType(t Token) (TypeHandle, error)
}

// TokenResolver turns a Type into the token that names it in a particular
// module, issuing TypeRef or TypeSpec rows on first use. ModuleBuilder
// implements it.
type TokenResolver interface {
	TypeToken(t Type) (Token, error)
}

// SignatureEncoder lowers Type shapes into signature blobs. Implementations
// resolve any embedded type tokens through the resolver they are handed.
// The reference implementation lives in the sig package.
type SignatureEncoder interface {
	// MethodSig encodes a method signature: calling convention, generic
	// arity, return type and parameter types, each with optional required
	// and optional custom modifiers. paramReq and paramOpt, when non-nil,
	// run parallel to params.
	MethodSig(r TokenResolver, conv CallingConventions, genericArity int, ret Type, retReq, retOpt []Type, params []Type, paramReq, paramOpt [][]Type) ([]byte, error)
	// FieldSig encodes a field signature with optional custom modifiers.
	FieldSig(r TokenResolver, t Type, req, opt []Type) ([]byte, error)
	// LocalSig encodes a local variable signature.
	LocalSig(r TokenResolver, locals []Local) ([]byte, error)
	// PropertySig encodes a property signature.
	PropertySig(r TokenResolver, hasThis bool, ret Type, params []Type) ([]byte, error)
	// TypeSpecSig encodes a standalone type shape for a TypeSpec row.
	TypeSpecSig(r TokenResolver, t Type) ([]byte, error)
	// MethodSpecSig encodes the argument list of a generic method
	// instantiation.
	MethodSpecSig(r TokenResolver, args []Type) ([]byte, error)
}
