package emit

import (
	"strconv"
	"strings"
)

type compoundShape uint8

const (
	shapePointer compoundShape = iota + 1
	shapeByRef
	shapeArray
)

// arrayDim is one array dimension: a lower bound and an optional upper
// bound. The zero value is an unconstrained dimension.
type arrayDim struct {
	lower    int
	upper    int
	hasUpper bool
}

// CompoundType is a pointer, by-ref or array shape wrapped around an element
// type. Compound types are pure values: two with the same shape over
// identical elements are interchangeable everywhere, including signature
// encoding and token interning.
//
// Shapes nest by wrapping: an array of pointers is an array CompoundType
// whose element is a pointer CompoundType. A by-ref shape is always the
// outermost link and can not be wrapped further.
type CompoundType struct {
	shape   compoundShape
	elem    Type
	dims    []arrayDim
	szArray bool
	// suffix is the rendered descriptor for this link only, e.g. "*",
	// "&", "[]", "[2..4]".
	suffix string
}

var _ Type = (*CompoundType)(nil)

// Name returns the element's name with this link's suffix appended.
func (c *CompoundType) Name() string { return c.elem.Name() + c.suffix }

// Namespace returns the element's namespace.
func (c *CompoundType) Namespace() string { return c.elem.Namespace() }

// FullName returns the element's full name with this link's suffix appended.
func (c *CompoundType) FullName() string { return c.elem.FullName() + c.suffix }

// Kind returns TypeKindCompound.
func (c *CompoundType) Kind() TypeKind { return TypeKindCompound }

// Attributes returns zero; compound shapes carry no definition flags.
func (c *CompoundType) Attributes() TypeAttributes { return 0 }

// BaseType returns nil; compound shapes declare no base.
func (c *CompoundType) BaseType() Type { return nil }

// ElementType returns the wrapped element.
func (c *CompoundType) ElementType() Type { return c.elem }

// IsValueType returns false for every compound shape.
func (c *CompoundType) IsValueType() bool { return false }

// IsGenericTypeDefinition returns false.
func (c *CompoundType) IsGenericTypeDefinition() bool { return false }

// GenericArguments returns nil.
func (c *CompoundType) GenericArguments() []Type { return nil }

func (c *CompoundType) String() string { return c.FullName() }

// IsPointer reports whether this link is a pointer shape.
func (c *CompoundType) IsPointer() bool { return c.shape == shapePointer }

// IsByRef reports whether this link is a by-ref shape.
func (c *CompoundType) IsByRef() bool { return c.shape == shapeByRef }

// IsArray reports whether this link is an array shape.
func (c *CompoundType) IsArray() bool { return c.shape == shapeArray }

// IsSZArray reports whether this link is a single-dimension, zero-based
// array with no declared bounds.
func (c *CompoundType) IsSZArray() bool { return c.szArray }

// Rank returns the number of array dimensions, or 0 for non-array shapes.
func (c *CompoundType) Rank() int { return len(c.dims) }

// LowerBound returns the declared lower bound of dimension dim, or 0 when
// none was declared or dim is out of range.
func (c *CompoundType) LowerBound(dim int) int {
	if dim < 0 || dim >= len(c.dims) {
		return 0
	}
	return c.dims[dim].lower
}

// UpperBound returns the declared upper bound of dimension dim and whether
// one was declared.
func (c *CompoundType) UpperBound(dim int) (int, bool) {
	if dim < 0 || dim >= len(c.dims) {
		return 0, false
	}
	return c.dims[dim].upper, c.dims[dim].hasUpper
}

func isByRef(t Type) bool {
	c, ok := t.(*CompoundType)
	return ok && c.shape == shapeByRef
}

// PointerTo returns the pointer shape over t.
func PointerTo(t Type) (Type, error) {
	if t == nil {
		return nil, usageErr("pointer element type is nil")
	}
	if isByRef(t) {
		return nil, usageErr("cannot form a pointer over by-ref type %s", t.FullName())
	}
	return &CompoundType{shape: shapePointer, elem: unwrapParam(t), suffix: "*"}, nil
}

// ByRefTo returns the by-ref shape over t. A by-ref is always the outermost
// link of a compound type.
func ByRefTo(t Type) (Type, error) {
	if t == nil {
		return nil, usageErr("by-ref element type is nil")
	}
	if isByRef(t) {
		return nil, usageErr("cannot form a by-ref over by-ref type %s", t.FullName())
	}
	return &CompoundType{shape: shapeByRef, elem: unwrapParam(t), suffix: "&"}, nil
}

// ArrayOf returns the single-dimension zero-based array shape over t.
func ArrayOf(t Type) (Type, error) {
	if t == nil {
		return nil, usageErr("array element type is nil")
	}
	if isByRef(t) {
		return nil, usageErr("cannot form an array over by-ref type %s", t.FullName())
	}
	return &CompoundType{
		shape:   shapeArray,
		elem:    unwrapParam(t),
		dims:    make([]arrayDim, 1),
		szArray: true,
		suffix:  "[]",
	}, nil
}

// ArrayOfRank returns the general array shape over t with the given rank and
// unconstrained bounds. Rank 1 produces a general (non-SZ) array.
func ArrayOfRank(t Type, rank int) (Type, error) {
	if t == nil {
		return nil, usageErr("array element type is nil")
	}
	if rank < 1 {
		return nil, usageErr("array rank %d must be at least 1", rank)
	}
	if isByRef(t) {
		return nil, usageErr("cannot form an array over by-ref type %s", t.FullName())
	}
	suffix := "[*]"
	if rank > 1 {
		suffix = "[" + strings.Repeat(",", rank-1) + "]"
	}
	return &CompoundType{
		shape:  shapeArray,
		elem:   unwrapParam(t),
		dims:   make([]arrayDim, rank),
		suffix: suffix,
	}, nil
}

// FormCompoundType parses the compound descriptor format, starting at index,
// and wraps base accordingly. The grammar mirrors reflection type suffixes,
// applied left to right so later markers wrap earlier results:
//
//	*            pointer
//	&            by-ref; must be the final marker
//	[]           single-dimension zero-based array
//	[*]          rank-1 general array
//	[,] [,,] ... multi-dimension arrays, rank = commas + 1
//	[2]  [2..]   dimension with lower bound 2
//	[2..4]       dimension with lower bound 2 and upper bound 4
//
// For example, "[]*" over Int32 denotes pointer-to-array-of-Int32.
// Malformed descriptors report ErrFormat.
func FormCompoundType(format string, base Type, index int) (Type, error) {
	if base == nil {
		return nil, usageErr("compound base type is nil")
	}
	if index < 0 || index > len(format) {
		return nil, usageErr("descriptor index %d out of range for %q", index, format)
	}
	return formCompound(format, unwrapParam(base), index)
}

func formCompound(format string, base Type, i int) (Type, error) {
	if i >= len(format) {
		return base, nil
	}
	if isByRef(base) {
		return nil, formatErr("by-ref must be the outermost marker in %q", format)
	}
	switch format[i] {
	case '&':
		if i != len(format)-1 {
			return nil, formatErr("by-ref marker must end the descriptor %q", format)
		}
		return &CompoundType{shape: shapeByRef, elem: base, suffix: "&"}, nil
	case '*':
		ptr := &CompoundType{shape: shapePointer, elem: base, suffix: "*"}
		return formCompound(format, ptr, i+1)
	case '[':
		rel := strings.IndexByte(format[i+1:], ']')
		if rel < 0 {
			return nil, formatErr("unbalanced '[' in descriptor %q", format)
		}
		body := format[i+1 : i+1+rel]
		dims, sz, err := parseArrayBody(format, body)
		if err != nil {
			return nil, err
		}
		arr := &CompoundType{
			shape:   shapeArray,
			elem:    base,
			dims:    dims,
			szArray: sz,
			suffix:  format[i : i+rel+2],
		}
		return formCompound(format, arr, i+rel+2)
	default:
		return nil, formatErr("unexpected character %q in descriptor %q", format[i], format)
	}
}

// parseArrayBody parses the text between one '[' ']' pair into dimensions.
func parseArrayBody(format, body string) ([]arrayDim, bool, error) {
	entries := strings.Split(body, ",")
	dims := make([]arrayDim, 0, len(entries))
	bounded := false
	for _, e := range entries {
		var d arrayDim
		switch {
		case e == "":
			// Unconstrained dimension.
		case e == "*":
			bounded = true
		default:
			bounded = true
			lo, rest, err := parseBound(format, e)
			if err != nil {
				return nil, false, err
			}
			d.lower = lo
			if rest != "" {
				after, ok := strings.CutPrefix(rest, "..")
				if !ok {
					return nil, false, formatErr("malformed dimension %q in descriptor %q", e, format)
				}
				if after != "" {
					hi, tail, err := parseBound(format, after)
					if err != nil {
						return nil, false, err
					}
					if tail != "" {
						return nil, false, formatErr("malformed dimension %q in descriptor %q", e, format)
					}
					if hi < lo {
						return nil, false, formatErr("upper bound %d is below lower bound %d in descriptor %q", hi, lo, format)
					}
					d.upper = hi
					d.hasUpper = true
				}
			}
		}
		dims = append(dims, d)
	}
	sz := len(entries) == 1 && !bounded
	return dims, sz, nil
}

// parseBound consumes a leading optionally-signed integer and returns it
// with the unconsumed remainder.
func parseBound(format, s string) (int, string, error) {
	end := 0
	if end < len(s) && s[end] == '-' {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, "", formatErr("malformed bound %q in descriptor %q", s, format)
	}
	return n, s[end:], nil
}
