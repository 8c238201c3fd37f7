package emit

import (
	"strings"
	"sync"
)

// Instantiation is a generic type definition bound to concrete arguments.
// It is a pure value produced by MakeGenericType: it owns no metadata until
// a token is needed, at which point it interns a spec row in whichever
// module resolves it.
//
// Member projections onto an instantiation are cached per definition
// member; the cache is write-racy by contract, so two goroutines projecting
// the same member may observe distinct (but interchangeable) projection
// values.
type Instantiation struct {
	def  Type
	args []Type

	baseOnce sync.Once
	base     Type

	members sync.Map
}

// MakeGenericType binds a generic type definition to concrete arguments.
// The definition must be a generic type definition and the argument count
// must match its arity.
func MakeGenericType(def Type, args ...Type) (*Instantiation, error) {
	if def == nil {
		return nil, usageErr("MakeGenericType: nil generic type definition")
	}
	if !def.IsGenericTypeDefinition() {
		return nil, usageErr("MakeGenericType: %s is not a generic type definition", def.FullName())
	}
	arity := genericArity(def)
	if len(args) != arity {
		return nil, usageErr("MakeGenericType: %s takes %d type arguments, got %d", def.FullName(), arity, len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, usageErr("MakeGenericType: nil type argument at %d for %s", i, def.FullName())
		}
	}
	norm := make([]Type, len(args))
	for i, a := range args {
		norm[i] = unwrapParam(a)
	}
	return &Instantiation{def: def, args: norm}, nil
}

func genericArity(def Type) int {
	if it, ok := def.(*ImportedType); ok {
		return it.GenericArity()
	}
	return len(def.GenericArguments())
}

var _ Type = (*Instantiation)(nil)

// Name returns the definition's simple name.
func (ti *Instantiation) Name() string { return ti.def.Name() }

// Namespace returns the definition's namespace.
func (ti *Instantiation) Namespace() string { return ti.def.Namespace() }

// FullName renders the definition's full name with the bound arguments,
// e.g. "Collections.Stack[System.Int32]".
func (ti *Instantiation) FullName() string {
	var b strings.Builder
	b.WriteString(ti.def.FullName())
	b.WriteByte('[')
	for i, a := range ti.args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.FullName())
	}
	b.WriteByte(']')
	return b.String()
}

// Kind returns TypeKindInstantiation.
func (ti *Instantiation) Kind() TypeKind { return TypeKindInstantiation }

// Attributes returns the definition's flags.
func (ti *Instantiation) Attributes() TypeAttributes { return ti.def.Attributes() }

// BaseType returns the definition's base type with this instantiation's
// arguments substituted through it. The result is computed once and
// cached.
func (ti *Instantiation) BaseType() Type {
	ti.baseOnce.Do(func() {
		ti.base = substituteArgs(ti.def.BaseType(), ti.args)
	})
	return ti.base
}

// ElementType returns nil.
func (ti *Instantiation) ElementType() Type { return nil }

// IsValueType reports whether the definition has value semantics.
func (ti *Instantiation) IsValueType() bool { return ti.def.IsValueType() }

// IsGenericTypeDefinition returns false; the arguments are already bound.
func (ti *Instantiation) IsGenericTypeDefinition() bool { return false }

// GenericArguments returns a copy of the bound arguments.
func (ti *Instantiation) GenericArguments() []Type {
	return append([]Type(nil), ti.args...)
}

func (ti *Instantiation) String() string { return ti.FullName() }

// GenericTypeDefinition returns the definition this instantiation binds.
func (ti *Instantiation) GenericTypeDefinition() Type { return ti.def }

// substituteArgs replaces generic parameter placeholders in t, by position,
// with the matching entries of args, rebuilding any structure around them:
// nested instantiations recurse and compound shapes are re-wrapped around
// their substituted element.
func substituteArgs(t Type, args []Type) Type {
	if t == nil {
		return nil
	}
	switch v := unwrapParam(t).(type) {
	case *TypeBuilder:
		if v.isGenericParam() && v.gpPosition < len(args) {
			return args[v.gpPosition]
		}
		return t
	case *Instantiation:
		newArgs := make([]Type, len(v.args))
		changed := false
		for i, a := range v.args {
			newArgs[i] = substituteArgs(a, args)
			if newArgs[i] != a {
				changed = true
			}
		}
		if !changed {
			return v
		}
		return &Instantiation{def: v.def, args: newArgs}
	case *CompoundType:
		elem := substituteArgs(v.elem, args)
		if elem == v.elem {
			return v
		}
		return &CompoundType{
			shape:   v.shape,
			elem:    elem,
			dims:    v.dims,
			szArray: v.szArray,
			suffix:  v.suffix,
		}
	default:
		return t
	}
}

// defaultCtorSigLocked encodes the signature of the definition's accessible
// parameterless constructor, for projecting it onto this instantiation.
func (ti *Instantiation) defaultCtorSigLocked(m *ModuleBuilder) ([]byte, error) {
	switch def := unwrapParam(ti.def).(type) {
	case *TypeBuilder:
		mb, err := def.findDefaultCtorLocked()
		if err != nil {
			return nil, err
		}
		return mb.signatureLocked()
	case *ImportedType:
		if !def.HasParameterlessCtor() {
			return nil, resolutionErr("base type %s declares no parameterless constructor", ti.FullName())
		}
		return defaultCtorSigLocked(m)
	default:
		return nil, resolutionErr("cannot resolve a constructor on %s", ti.FullName())
	}
}
