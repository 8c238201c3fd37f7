package sig

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/anvil-rt/anvil/emit"
)

// Compressed integer range limits. Values are stored big-endian in one, two
// or four bytes, with the top bits of the first byte selecting the width.
const (
	maxCompressed1 = 0x7F
	maxCompressed2 = 0x3FFF
	maxCompressed4 = 0x1FFFFFFF
)

// Signed compressed range limits. The sign bit rotates into bit zero before
// the value is stored in the unsigned forms above.
const (
	minSigned1 = -(1 << 6)
	maxSigned1 = 1<<6 - 1
	minSigned2 = -(1 << 13)
	maxSigned2 = 1<<13 - 1
	minSigned4 = -(1 << 28)
	maxSigned4 = 1<<28 - 1
)

// blob accumulates signature bytes.
type blob struct {
	buf []byte
}

func (b *blob) bytes() []byte { return b.buf }

func (b *blob) writeByte(v byte) { b.buf = append(b.buf, v) }

func (b *blob) writeElem(k emit.ElementKind) { b.buf = append(b.buf, byte(k)) }

// writeCompressed appends v in the variable-width unsigned form.
func (b *blob) writeCompressed(v uint32) error {
	switch {
	case v <= maxCompressed1:
		b.buf = append(b.buf, byte(v))
	case v <= maxCompressed2:
		b.buf = append(b.buf, byte(v>>8)|0x80, byte(v))
	case v <= maxCompressed4:
		b.buf = append(b.buf, byte(v>>24)|0xC0, byte(v>>16), byte(v>>8), byte(v))
	default:
		return fmt.Errorf("%w: value %d exceeds the compressed integer range", emit.ErrFormat, v)
	}
	return nil
}

// writeCount compresses a non-negative count or position.
func (b *blob) writeCount(n int) error {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return fmt.Errorf("%w: count %d out of range", emit.ErrFormat, n)
	}
	return b.writeCompressed(v)
}

// writeCompressedSigned appends v in the sign-rotated variable-width form
// used by array lower bounds. The width follows the magnitude of v, and the
// rotated value is truncated to that width.
func (b *blob) writeCompressedSigned(v int) error {
	n, err := safecast.Conv[int32](v)
	if err != nil {
		return fmt.Errorf("%w: bound %d out of range", emit.ErrFormat, v)
	}
	var sign uint32
	if n < 0 {
		sign = 1
	}
	rot := uint32(n)<<1 | sign
	switch {
	case n >= minSigned1 && n <= maxSigned1:
		b.buf = append(b.buf, byte(rot&maxCompressed1))
	case n >= minSigned2 && n <= maxSigned2:
		rot &= maxCompressed2
		b.buf = append(b.buf, byte(rot>>8)|0x80, byte(rot))
	case n >= minSigned4 && n <= maxSigned4:
		rot &= maxCompressed4
		b.buf = append(b.buf, byte(rot>>24)|0xC0, byte(rot>>16), byte(rot>>8), byte(rot))
	default:
		return fmt.Errorf("%w: bound %d exceeds the compressed integer range", emit.ErrFormat, v)
	}
	return nil
}

// writeTypeToken appends tok as a TypeDefOrRef coded index: the row index
// shifted left twice, with the low bits tagging the table.
func (b *blob) writeTypeToken(tok emit.Token) error {
	var tag uint32
	switch tok.Kind() {
	case emit.TokenKindTypeDef:
		tag = 0
	case emit.TokenKindTypeRef:
		tag = 1
	case emit.TokenKindTypeSpec:
		tag = 2
	default:
		return fmt.Errorf("%w: token %s cannot name a type inside a signature", emit.ErrFormat, tok)
	}
	return b.writeCompressed(tok.Index()<<2 | tag)
}
