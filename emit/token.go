package emit

import "fmt"

// TokenKind identifies the metadata table a token points into. The values
// match the table numbering used in the high byte of a packed token.
type TokenKind uint8

const (
	TokenKindModule        TokenKind = 0x00
	TokenKindTypeRef       TokenKind = 0x01
	TokenKindTypeDef       TokenKind = 0x02
	TokenKindFieldDef      TokenKind = 0x04
	TokenKindMethodDef     TokenKind = 0x06
	TokenKindParamDef      TokenKind = 0x08
	TokenKindInterfaceImpl TokenKind = 0x09
	TokenKindMemberRef     TokenKind = 0x0A
	TokenKindCustomAttr    TokenKind = 0x0C
	TokenKindSignature     TokenKind = 0x11
	TokenKindEvent         TokenKind = 0x14
	TokenKindProperty      TokenKind = 0x17
	TokenKindTypeSpec      TokenKind = 0x1B
	TokenKindGenericParam  TokenKind = 0x2A
	TokenKindMethodSpec    TokenKind = 0x2B
)

// String returns the table name for k.
func (k TokenKind) String() string {
	switch k {
	case TokenKindModule:
		return "Module"
	case TokenKindTypeRef:
		return "TypeRef"
	case TokenKindTypeDef:
		return "TypeDef"
	case TokenKindFieldDef:
		return "FieldDef"
	case TokenKindMethodDef:
		return "MethodDef"
	case TokenKindParamDef:
		return "ParamDef"
	case TokenKindInterfaceImpl:
		return "InterfaceImpl"
	case TokenKindMemberRef:
		return "MemberRef"
	case TokenKindCustomAttr:
		return "CustomAttribute"
	case TokenKindSignature:
		return "Signature"
	case TokenKindEvent:
		return "Event"
	case TokenKindProperty:
		return "Property"
	case TokenKindTypeSpec:
		return "TypeSpec"
	case TokenKindGenericParam:
		return "GenericParam"
	case TokenKindMethodSpec:
		return "MethodSpec"
	default:
		return fmt.Sprintf("TokenKind(0x%02X)", uint8(k))
	}
}

// MaxTokenIndex is the largest row index a token can carry. Indexes occupy
// the low 24 bits of the packed value.
const MaxTokenIndex = 1<<24 - 1

// Token is a packed metadata handle: the table kind in the high byte and a
// 1-based row index in the low 24 bits. The zero value is NilToken.
type Token uint32

// NilToken is the absent token. Emitters never issue it.
const NilToken Token = 0

// NewToken packs kind and index into a token. It panics when index exceeds
// MaxTokenIndex; emitters enforce table capacity before issuing.
func NewToken(kind TokenKind, index uint32) Token {
	if index > MaxTokenIndex {
		panic(fmt.Sprintf("emit: token index 0x%X overflows 24 bits", index))
	}
	return Token(uint32(kind)<<24 | index)
}

// Kind reports the metadata table this token points into.
func (t Token) Kind() TokenKind {
	return TokenKind(t >> 24)
}

// Index reports the 1-based row index within the table.
func (t Token) Index() uint32 {
	return uint32(t) & MaxTokenIndex
}

// IsNil reports whether t is the absent token.
func (t Token) IsNil() bool {
	return t == NilToken
}

// String formats the token as table:hexvalue, e.g. "MethodDef:0x06000002".
func (t Token) String() string {
	return fmt.Sprintf("%s:0x%08X", t.Kind(), uint32(t))
}
