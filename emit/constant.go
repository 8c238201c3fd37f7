package emit

import "fmt"

// constantKind maps a Go constant value to its signature element kind.
// Sized Go types are required so the stored width is unambiguous; nil
// denotes the null reference default.
func constantKind(v any) (ElementKind, error) {
	switch v.(type) {
	case nil:
		return ElemClass, nil
	case bool:
		return ElemBool, nil
	case int8:
		return ElemInt8, nil
	case uint8:
		return ElemUInt8, nil
	case int16:
		return ElemInt16, nil
	case uint16:
		return ElemUInt16, nil
	case int32:
		return ElemInt32, nil
	case uint32:
		return ElemUInt32, nil
	case int64:
		return ElemInt64, nil
	case uint64:
		return ElemUInt64, nil
	case float32:
		return ElemFloat32, nil
	case float64:
		return ElemFloat64, nil
	case string:
		return ElemString, nil
	default:
		return 0, fmt.Errorf("unsupported constant value of type %T; use sized integers, floats, bool, string or nil", v)
	}
}

func isIntegerElem(k ElementKind) bool {
	return k >= ElemInt8 && k <= ElemUInt64
}

// constantMatches checks that a constant of the given kind may default a
// destination of type t.
func constantMatches(t Type, kind ElementKind) error {
	if t == nil {
		return fmt.Errorf("destination type is unknown")
	}
	if kind == ElemClass {
		if t.IsValueType() {
			return fmt.Errorf("nil constant requires a reference destination, got %s", t.FullName())
		}
		return nil
	}
	switch dest := unwrapParam(t).(type) {
	case *ImportedType:
		if dest.Element() == kind {
			return nil
		}
		if dest.Element() == ElemChar && kind == ElemUInt16 {
			return nil
		}
	case *TypeBuilder:
		// Enum destinations accept their underlying integer kinds.
		if dest.parent != nil && Identical(dest.parent, dest.mod.core.Enum) && isIntegerElem(kind) {
			return nil
		}
	}
	return fmt.Errorf("constant kind 0x%02X does not match destination type %s", uint8(kind), t.FullName())
}
