package emit

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GlobalTypeName is the reserved name of the pseudo-type that carries
// module-level global functions.
const GlobalTypeName = "<Module>"

// ModuleBuilder owns the set of types being built for one module. It drives
// the injected Emitter and SignatureEncoder, interns reference and spec
// tokens, and serializes all mutation behind one lock so builders can be
// shared across goroutines.
type ModuleBuilder struct {
	name string
	mvid uuid.UUID
	log  *zap.Logger
	em   Emitter
	enc  SignatureEncoder
	core CoreTypes

	discardBodies bool

	mu          sync.Mutex
	types       map[string]*TypeBuilder
	order       []*TypeBuilder
	globalType  *TypeBuilder
	typeRefs    map[string]Token
	typeSpecs   map[string]Token
	memberRefs  map[memberRefKey]Token
	methodSpecs map[methodSpecKey]Token
}

type memberRefKey struct {
	parent Token
	name   string
	sig    string
}

type methodSpecKey struct {
	method Token
	sig    string
}

// ModuleOptions tunes a new ModuleBuilder. The zero value (or nil) selects a
// no-op logger, a random version id and the standard core type prelude.
type ModuleOptions struct {
	// Logger receives define and bake events.
	Logger *zap.Logger
	// VersionID fixes the module version id instead of generating one.
	VersionID uuid.UUID
	// Core replaces the standard core type prelude. Every slot must be
	// populated.
	Core *CoreTypes
	// DiscardBakedBodies drops staged IL buffers once a method's body has
	// been handed to the emitter, for build sessions that never introspect
	// bodies afterwards.
	DiscardBakedBodies bool
}

// NewModule creates a builder for a module with the given name, backed by
// the emitter and signature encoder. opts may be nil.
func NewModule(name string, em Emitter, enc SignatureEncoder, opts *ModuleOptions) (*ModuleBuilder, error) {
	if name == "" {
		return nil, usageErr("module name is empty")
	}
	if em == nil {
		return nil, usageErr("emitter is nil")
	}
	if enc == nil {
		return nil, usageErr("signature encoder is nil")
	}
	m := &ModuleBuilder{
		name:        name,
		log:         zap.NewNop(),
		em:          em,
		enc:         enc,
		core:        DefaultCoreTypes(),
		types:       make(map[string]*TypeBuilder),
		typeRefs:    make(map[string]Token),
		typeSpecs:   make(map[string]Token),
		memberRefs:  make(map[memberRefKey]Token),
		methodSpecs: make(map[methodSpecKey]Token),
	}
	if opts != nil {
		if opts.Logger != nil {
			m.log = opts.Logger
		}
		if opts.VersionID != uuid.Nil {
			m.mvid = opts.VersionID
		}
		if opts.Core != nil {
			if !opts.Core.complete() {
				return nil, usageErr("core type prelude is missing entries")
			}
			m.core = *opts.Core
		}
		m.discardBodies = opts.DiscardBakedBodies
	}
	if m.mvid == uuid.Nil {
		m.mvid = uuid.New()
	}

	gt, err := m.newTypeLocked("", GlobalTypeName, 0, nil, nil, nil, true)
	if err != nil {
		return nil, err
	}
	m.globalType = gt

	m.log.Debug("module created",
		zap.String("module", m.name),
		zap.String("mvid", m.mvid.String()))
	return m, nil
}

// Name returns the module name.
func (m *ModuleBuilder) Name() string { return m.name }

// VersionID returns the module version id.
func (m *ModuleBuilder) VersionID() uuid.UUID { return m.mvid }

// Core returns the module's core type prelude.
func (m *ModuleBuilder) Core() CoreTypes { return m.core }

// GlobalType returns the pseudo-type carrying module-level global functions.
func (m *ModuleBuilder) GlobalType() *TypeBuilder { return m.globalType }

// splitTypeName splits "A.B.C" into namespace "A.B" and name "C".
func splitTypeName(fullName string) (ns, name string) {
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}

// DefineType registers a new top-level type and eagerly issues its
// definition token. A nil parent defaults to the core Object type for
// non-interfaces; interfaces take no parent and extend through
// AddInterfaceImplementation instead.
func (m *ModuleBuilder) DefineType(fullName string, attr TypeAttributes, parent Type, interfaces ...Type) (*TypeBuilder, error) {
	ns, name := splitTypeName(fullName)
	if name == "" {
		return nil, usageErr("type name is empty in %q", fullName)
	}
	if attr.IsNested() {
		return nil, usageErr("type %s: nested visibility requires DefineNestedType", fullName)
	}
	if err := checkTypeShape(fullName, attr, parent); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newTypeLocked(ns, name, attr, parent, interfaces, nil, false)
}

// checkTypeShape validates the attr/parent combination shared by top-level
// and nested definitions.
func checkTypeShape(fullName string, attr TypeAttributes, parent Type) error {
	if attr.IsInterface() {
		if !attr.IsAbstract() {
			return usageErr("interface %s must carry the abstract flag", fullName)
		}
		if parent != nil {
			return usageErr("interface %s cannot declare a base type", fullName)
		}
		return nil
	}
	if parent != nil {
		switch unwrapParam(parent).Kind() {
		case TypeKindCompound, TypeKindGenericParam:
			return usageErr("type %s cannot extend %s", fullName, parent.FullName())
		}
	}
	return nil
}

// newTypeLocked creates and registers a TypeBuilder. Callers hold m.mu,
// except NewModule which owns the builder exclusively.
func (m *ModuleBuilder) newTypeLocked(ns, name string, attr TypeAttributes, parent Type, interfaces []Type, enclosing *TypeBuilder, pseudo bool) (*TypeBuilder, error) {
	tb := &TypeBuilder{
		mod:        m,
		namespace:  ns,
		name:       name,
		attr:       attr,
		parent:     parent,
		enclosing:  enclosing,
		pseudo:     pseudo,
		gpPosition: -1,
	}
	if parent == nil && !pseudo && !attr.IsInterface() {
		tb.parent = m.core.Object
	}
	for _, iface := range interfaces {
		if iface == nil {
			return nil, usageErr("type %s: nil interface", tb.FullName())
		}
		tb.interfaces = append(tb.interfaces, iface)
	}
	full := tb.FullName()
	if _, dup := m.types[full]; dup {
		return nil, usageErr("type %s is already defined", full)
	}

	var enclosingTok Token
	if enclosing != nil {
		enclosingTok = enclosing.token
	}
	tok, err := m.em.DefineType(ns, tb.name, attr, NilToken, enclosingTok)
	if err != nil {
		return nil, err
	}
	tb.token = tok

	m.types[full] = tb
	if !pseudo {
		m.order = append(m.order, tb)
	}
	if enclosing != nil {
		enclosing.nested = append(enclosing.nested, tb)
		enclosing.nestedByName = nil
	}
	m.log.Debug("type defined",
		zap.String("type", full),
		zap.Stringer("token", tok))
	return tb, nil
}

// GetType looks up a registered type by full name. Nested types use the
// "Outer+Inner" form.
func (m *ModuleBuilder) GetType(fullName string) (*TypeBuilder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tb, ok := m.types[fullName]
	return tb, ok
}

// Types returns the module's types in definition order, excluding the
// global pseudo-type.
func (m *ModuleBuilder) Types() []*TypeBuilder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*TypeBuilder, len(m.order))
	copy(out, m.order)
	return out
}

// DefineGlobalMethod registers a module-level function on the global
// pseudo-type. Global methods must be static.
func (m *ModuleBuilder) DefineGlobalMethod(name string, attr MethodAttributes, ret Type, params ...Type) (*MethodBuilder, error) {
	if !attr.IsStatic() {
		return nil, usageErr("global method %s must be static", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalType.defineMethodLocked(name, attr, 0, ret, params)
}

// CreateGlobalFunctions bakes the global pseudo-type, finalizing every
// global method. Further global definitions are rejected afterwards. It is
// idempotent.
func (m *ModuleBuilder) CreateGlobalFunctions() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.globalType.createTypeLocked()
	return err
}

// CreateAll bakes every registered type, fanning out across goroutines.
// Bakes already performed are skipped; the first failure cancels the rest.
func (m *ModuleBuilder) CreateAll(ctx context.Context) error {
	types := m.Types()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, tb := range types {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			_, err := tb.CreateType()
			return err
		})
	}
	return g.Wait()
}

// TypeToken resolves the token naming t inside this module, interning a
// TypeRef or TypeSpec row on first use. Type definitions built by this
// module return their definition token.
func (m *ModuleBuilder) TypeToken(t Type) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.typeTokenLocked(t)
}

var _ TokenResolver = (*ModuleBuilder)(nil)

// lockedResolver adapts typeTokenLocked as a TokenResolver for encoder
// calls made while m.mu is already held.
type lockedResolver struct{ m *ModuleBuilder }

func (r lockedResolver) TypeToken(t Type) (Token, error) {
	return r.m.typeTokenLocked(t)
}

func (m *ModuleBuilder) typeTokenLocked(t Type) (Token, error) {
	if t == nil {
		return NilToken, usageErr("cannot resolve a token for a nil type")
	}
	t = unwrapParam(t)
	switch v := t.(type) {
	case *TypeBuilder:
		if !v.isGenericParam() {
			if v.mod != m {
				return NilToken, usageErr("type %s belongs to module %s", v.FullName(), v.mod.name)
			}
			return v.token, nil
		}
	case *ImportedType:
		key := v.FullName()
		if tok, ok := m.typeRefs[key]; ok {
			return tok, nil
		}
		tok, err := m.em.DefineTypeRef(v.namespace, v.name)
		if err != nil {
			return NilToken, err
		}
		m.typeRefs[key] = tok
		return tok, nil
	case *CompoundType, *Instantiation:
		// Fall through to the type spec path below.
	default:
		return NilToken, usageErr("cannot resolve a token for %s type %s", t.Kind(), t.FullName())
	}

	blob, err := m.enc.TypeSpecSig(lockedResolver{m}, t)
	if err != nil {
		return NilToken, err
	}
	key := string(blob)
	if tok, ok := m.typeSpecs[key]; ok {
		return tok, nil
	}
	tok, err := m.em.DefineTypeSpec(blob)
	if err != nil {
		return NilToken, err
	}
	m.typeSpecs[key] = tok
	return tok, nil
}

// memberRefLocked interns a member reference row.
func (m *ModuleBuilder) memberRefLocked(parent Token, name string, sig []byte) (Token, error) {
	key := memberRefKey{parent: parent, name: name, sig: string(sig)}
	if tok, ok := m.memberRefs[key]; ok {
		return tok, nil
	}
	tok, err := m.em.DefineMemberRef(parent, name, sig)
	if err != nil {
		return NilToken, err
	}
	m.memberRefs[key] = tok
	return tok, nil
}

// methodSpecLocked interns a generic method instantiation row.
func (m *ModuleBuilder) methodSpecLocked(method Token, blob []byte) (Token, error) {
	key := methodSpecKey{method: method, sig: string(blob)}
	if tok, ok := m.methodSpecs[key]; ok {
		return tok, nil
	}
	tok, err := m.em.DefineMethodSpec(method, blob)
	if err != nil {
		return NilToken, err
	}
	m.methodSpecs[key] = tok
	return tok, nil
}
