package emit

// ElementKind is a one-byte tag used inside signature blobs to introduce a
// type shape or a primitive.
type ElementKind uint8

const (
	ElemEnd         ElementKind = 0x00
	ElemVoid        ElementKind = 0x01
	ElemBool        ElementKind = 0x02
	ElemChar        ElementKind = 0x03
	ElemInt8        ElementKind = 0x04
	ElemUInt8       ElementKind = 0x05
	ElemInt16       ElementKind = 0x06
	ElemUInt16      ElementKind = 0x07
	ElemInt32       ElementKind = 0x08
	ElemUInt32      ElementKind = 0x09
	ElemInt64       ElementKind = 0x0A
	ElemUInt64      ElementKind = 0x0B
	ElemFloat32     ElementKind = 0x0C
	ElemFloat64     ElementKind = 0x0D
	ElemString      ElementKind = 0x0E
	ElemPointer     ElementKind = 0x0F
	ElemByRef       ElementKind = 0x10
	ElemValueType   ElementKind = 0x11
	ElemClass       ElementKind = 0x12
	ElemVar         ElementKind = 0x13
	ElemArray       ElementKind = 0x14
	ElemGenericInst ElementKind = 0x15
	ElemTypedByRef  ElementKind = 0x16
	ElemIntPtr      ElementKind = 0x18
	ElemUIntPtr     ElementKind = 0x19
	ElemFuncPtr     ElementKind = 0x1B
	ElemObject      ElementKind = 0x1C
	ElemSZArray     ElementKind = 0x1D
	ElemMVar        ElementKind = 0x1E
	ElemCModReqd    ElementKind = 0x1F
	ElemCModOpt     ElementKind = 0x20
	ElemSentinel    ElementKind = 0x41
	ElemPinned      ElementKind = 0x45
)

// IsPrimitive reports whether k encodes a self-contained primitive that
// needs no trailing token in a signature blob.
func (k ElementKind) IsPrimitive() bool {
	switch k {
	case ElemVoid, ElemBool, ElemChar,
		ElemInt8, ElemUInt8, ElemInt16, ElemUInt16,
		ElemInt32, ElemUInt32, ElemInt64, ElemUInt64,
		ElemFloat32, ElemFloat64, ElemString,
		ElemIntPtr, ElemUIntPtr, ElemObject, ElemTypedByRef:
		return true
	}
	return false
}
