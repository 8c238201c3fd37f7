// Package sig encodes type shapes into metadata signature blobs.
//
// The Encoder implements emit.SignatureEncoder. Each blob starts with a
// calling-convention byte, followed by compressed counts and one-byte element
// tags; non-primitive types embed TypeDefOrRef coded tokens obtained through
// the emit.TokenResolver passed to every call. The encoder holds no state of
// its own; one instance can serve any number of modules concurrently.
package sig

import (
	"fmt"

	"github.com/anvil-rt/anvil/emit"
)

// Calling-convention bytes. The low nibble selects the signature kind, the
// high bits flag instance and generic forms.
const (
	callConvDefault      = 0x00
	callConvVarArg       = 0x05
	callConvField        = 0x06
	callConvLocal        = 0x07
	callConvProperty     = 0x08
	callConvGenericInst  = 0x0A
	callConvGeneric      = 0x10
	callConvHasThis      = 0x20
	callConvExplicitThis = 0x40
)

// Encoder lowers emit.Type shapes into signature blobs.
type Encoder struct{}

// NewEncoder returns a ready Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

var _ emit.SignatureEncoder = (*Encoder)(nil)

// MethodSig encodes a method or constructor signature. genericArity above
// zero marks the generic form and is stored after the calling convention;
// retReq, retOpt, paramReq and paramOpt carry custom modifiers, with the
// parameter slices running parallel to params when present.
func (e *Encoder) MethodSig(r emit.TokenResolver, conv emit.CallingConventions, genericArity int, ret emit.Type, retReq, retOpt []emit.Type, params []emit.Type, paramReq, paramOpt [][]emit.Type) ([]byte, error) {
	if ret == nil {
		return nil, fmt.Errorf("%w: method signature has no return type", emit.ErrUsage)
	}
	if paramReq != nil && len(paramReq) != len(params) {
		return nil, fmt.Errorf("%w: %d required-modifier sets for %d parameters", emit.ErrUsage, len(paramReq), len(params))
	}
	if paramOpt != nil && len(paramOpt) != len(params) {
		return nil, fmt.Errorf("%w: %d optional-modifier sets for %d parameters", emit.ErrUsage, len(paramOpt), len(params))
	}
	if genericArity < 0 {
		return nil, fmt.Errorf("%w: negative generic arity %d", emit.ErrUsage, genericArity)
	}

	head := byte(callConvDefault)
	if conv&emit.CallConvVarArgs != 0 {
		head = callConvVarArg
	}
	if genericArity > 0 {
		head |= callConvGeneric
	}
	if conv.HasThis() {
		head |= callConvHasThis
	}
	if conv&emit.CallConvExplicitThis != 0 {
		head |= callConvExplicitThis
	}

	var b blob
	b.writeByte(head)
	if genericArity > 0 {
		if err := b.writeCount(genericArity); err != nil {
			return nil, err
		}
	}
	if err := b.writeCount(len(params)); err != nil {
		return nil, err
	}
	if err := e.encodeModified(&b, r, ret, retReq, retOpt); err != nil {
		return nil, err
	}
	for i, p := range params {
		var req, opt []emit.Type
		if paramReq != nil {
			req = paramReq[i]
		}
		if paramOpt != nil {
			opt = paramOpt[i]
		}
		if err := e.encodeModified(&b, r, p, req, opt); err != nil {
			return nil, err
		}
	}
	return b.bytes(), nil
}

// FieldSig encodes a field signature with optional custom modifiers.
func (e *Encoder) FieldSig(r emit.TokenResolver, t emit.Type, req, opt []emit.Type) ([]byte, error) {
	var b blob
	b.writeByte(callConvField)
	if err := e.encodeModified(&b, r, t, req, opt); err != nil {
		return nil, err
	}
	return b.bytes(), nil
}

// LocalSig encodes the signature of a method's local variable slots. Pinned
// slots carry the pinned constraint before their type.
func (e *Encoder) LocalSig(r emit.TokenResolver, locals []emit.Local) ([]byte, error) {
	var b blob
	b.writeByte(callConvLocal)
	if err := b.writeCount(len(locals)); err != nil {
		return nil, err
	}
	for _, l := range locals {
		if l.Pinned {
			b.writeElem(emit.ElemPinned)
		}
		if err := e.encodeType(&b, r, l.Type); err != nil {
			return nil, err
		}
	}
	return b.bytes(), nil
}

// PropertySig encodes a property signature over its getter shape.
func (e *Encoder) PropertySig(r emit.TokenResolver, hasThis bool, ret emit.Type, params []emit.Type) ([]byte, error) {
	if ret == nil {
		return nil, fmt.Errorf("%w: property signature has no value type", emit.ErrUsage)
	}
	head := byte(callConvProperty)
	if hasThis {
		head |= callConvHasThis
	}
	var b blob
	b.writeByte(head)
	if err := b.writeCount(len(params)); err != nil {
		return nil, err
	}
	if err := e.encodeType(&b, r, ret); err != nil {
		return nil, err
	}
	for _, p := range params {
		if err := e.encodeType(&b, r, p); err != nil {
			return nil, err
		}
	}
	return b.bytes(), nil
}

// TypeSpecSig encodes a standalone type shape. The blob is the bare type
// production with no calling-convention byte.
func (e *Encoder) TypeSpecSig(r emit.TokenResolver, t emit.Type) ([]byte, error) {
	var b blob
	if err := e.encodeType(&b, r, t); err != nil {
		return nil, err
	}
	return b.bytes(), nil
}

// MethodSpecSig encodes the argument list of a generic method instantiation.
func (e *Encoder) MethodSpecSig(r emit.TokenResolver, args []emit.Type) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: method instantiation has no type arguments", emit.ErrUsage)
	}
	var b blob
	b.writeByte(callConvGenericInst)
	if err := b.writeCount(len(args)); err != nil {
		return nil, err
	}
	for _, a := range args {
		if err := e.encodeType(&b, r, a); err != nil {
			return nil, err
		}
	}
	return b.bytes(), nil
}

// encodeModified writes required and optional custom modifiers, then the
// type they qualify.
func (e *Encoder) encodeModified(b *blob, r emit.TokenResolver, t emit.Type, req, opt []emit.Type) error {
	for _, m := range req {
		if err := e.encodeModifier(b, r, emit.ElemCModReqd, m); err != nil {
			return err
		}
	}
	for _, m := range opt {
		if err := e.encodeModifier(b, r, emit.ElemCModOpt, m); err != nil {
			return err
		}
	}
	return e.encodeType(b, r, t)
}

func (e *Encoder) encodeModifier(b *blob, r emit.TokenResolver, kind emit.ElementKind, m emit.Type) error {
	if m == nil {
		return fmt.Errorf("%w: custom modifier type is nil", emit.ErrUsage)
	}
	tok, err := r.TypeToken(m)
	if err != nil {
		return err
	}
	b.writeElem(kind)
	return b.writeTypeToken(tok)
}

// encodeType writes one type production.
func (e *Encoder) encodeType(b *blob, r emit.TokenResolver, t emit.Type) error {
	switch t := t.(type) {
	case nil:
		return fmt.Errorf("%w: type is nil", emit.ErrUsage)
	case *emit.GenericParameterBuilder:
		return e.encodeVar(b, t.Position(), t.DeclaringMethod() != nil)
	case *emit.TypeBuilder:
		if t.IsGenericParameter() {
			return e.encodeVar(b, t.GenericParameterPosition(), t.DeclaringMethod() != nil)
		}
		return e.encodeNamed(b, r, t, t.IsValueType())
	case *emit.ImportedType:
		if k := t.Element(); k.IsPrimitive() {
			b.writeElem(k)
			return nil
		}
		return e.encodeNamed(b, r, t, t.IsValueType())
	case *emit.CompoundType:
		return e.encodeCompound(b, r, t)
	case *emit.Instantiation:
		return e.encodeInstantiation(b, r, t)
	default:
		return fmt.Errorf("%w: cannot encode type %T", emit.ErrUsage, t)
	}
}

// encodeVar writes a generic parameter reference by declaration position.
func (e *Encoder) encodeVar(b *blob, position int, onMethod bool) error {
	if position < 0 {
		return fmt.Errorf("%w: generic parameter has no position", emit.ErrFormat)
	}
	if onMethod {
		b.writeElem(emit.ElemMVar)
	} else {
		b.writeElem(emit.ElemVar)
	}
	return b.writeCount(position)
}

// encodeNamed writes a class or value-type reference followed by its coded
// token.
func (e *Encoder) encodeNamed(b *blob, r emit.TokenResolver, t emit.Type, valueType bool) error {
	tok, err := r.TypeToken(t)
	if err != nil {
		return err
	}
	if valueType {
		b.writeElem(emit.ElemValueType)
	} else {
		b.writeElem(emit.ElemClass)
	}
	return b.writeTypeToken(tok)
}

func (e *Encoder) encodeCompound(b *blob, r emit.TokenResolver, t *emit.CompoundType) error {
	switch {
	case t.IsPointer():
		b.writeElem(emit.ElemPointer)
		return e.encodeType(b, r, t.ElementType())
	case t.IsByRef():
		b.writeElem(emit.ElemByRef)
		return e.encodeType(b, r, t.ElementType())
	case t.IsSZArray():
		b.writeElem(emit.ElemSZArray)
		return e.encodeType(b, r, t.ElementType())
	case t.IsArray():
		return e.encodeArray(b, r, t)
	default:
		return fmt.Errorf("%w: cannot encode compound type %s", emit.ErrUsage, t.FullName())
	}
}

// encodeArray writes a general array shape: element type, rank, declared
// sizes and lower bounds. Sizes cover leading dimensions only; the first
// dimension without a declared upper bound ends the size list.
func (e *Encoder) encodeArray(b *blob, r emit.TokenResolver, t *emit.CompoundType) error {
	b.writeElem(emit.ElemArray)
	if err := e.encodeType(b, r, t.ElementType()); err != nil {
		return err
	}
	rank := t.Rank()
	if err := b.writeCount(rank); err != nil {
		return err
	}
	sized := 0
	for i := 0; i < rank; i++ {
		if _, ok := t.UpperBound(i); !ok {
			break
		}
		sized++
	}
	if err := b.writeCount(sized); err != nil {
		return err
	}
	for i := 0; i < sized; i++ {
		hi, _ := t.UpperBound(i)
		if err := b.writeCount(hi - t.LowerBound(i) + 1); err != nil {
			return err
		}
	}
	if err := b.writeCount(rank); err != nil {
		return err
	}
	for i := 0; i < rank; i++ {
		if err := b.writeCompressedSigned(t.LowerBound(i)); err != nil {
			return err
		}
	}
	return nil
}

// encodeInstantiation writes a generic instantiation: the definition's coded
// token followed by each type argument.
func (e *Encoder) encodeInstantiation(b *blob, r emit.TokenResolver, t *emit.Instantiation) error {
	def := t.GenericTypeDefinition()
	tok, err := r.TypeToken(def)
	if err != nil {
		return err
	}
	b.writeElem(emit.ElemGenericInst)
	if def.IsValueType() {
		b.writeElem(emit.ElemValueType)
	} else {
		b.writeElem(emit.ElemClass)
	}
	if err := b.writeTypeToken(tok); err != nil {
		return err
	}
	args := t.GenericArguments()
	if err := b.writeCount(len(args)); err != nil {
		return err
	}
	for _, a := range args {
		if err := e.encodeType(b, r, a); err != nil {
			return err
		}
	}
	return nil
}
