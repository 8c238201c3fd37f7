package emit

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// TypeBuilder is an in-progress type definition. It is created through
// ModuleBuilder.DefineType or DefineNestedType, mutated through the Define*
// and Set* methods, and finalized exactly once by CreateType, after which
// every mutator reports ErrState.
//
// A TypeBuilder also serves as the restricted placeholder behind a generic
// parameter; in that mode it answers the Type queries but rejects member
// definition, and it is baked together with its owner.
//
// All methods are safe for concurrent use; mutation is serialized on the
// owning module's lock.
type TypeBuilder struct {
	mod       *ModuleBuilder
	namespace string
	name      string
	attr      TypeAttributes
	pseudo    bool
	token     Token

	parent     Type
	interfaces []Type
	enclosing  *TypeBuilder

	nested       []*TypeBuilder
	nestedByName map[string]*TypeBuilder

	methods       []*MethodBuilder
	ctorCount     int
	fields        []*FieldBuilder
	properties    []*PropertyBuilder
	events        []*EventBuilder
	genericParams []*GenericParameterBuilder

	// tokenized counts the leading methods whose tokens are issued; the
	// batch scan resumes from here.
	tokenized int

	created     bool
	createdFlag atomic.Bool
	handle      TypeHandle

	// Generic parameter placeholder state; gpPosition is -1 for concrete
	// types.
	gpPosition    int
	gpOwnerType   *TypeBuilder
	gpOwnerMethod *MethodBuilder
	gpAttr        GenericParamAttributes
	gpBase        Type
	gpIfaces      []Type
}

var _ Type = (*TypeBuilder)(nil)

func (tb *TypeBuilder) isGenericParam() bool { return tb.gpPosition >= 0 }

// Name returns the simple type name.
func (tb *TypeBuilder) Name() string { return tb.name }

// Namespace returns the dotted namespace, empty for nested types and
// generic parameters.
func (tb *TypeBuilder) Namespace() string { return tb.namespace }

// FullName returns the namespace-qualified name; nested types render as
// "Outer+Inner".
func (tb *TypeBuilder) FullName() string {
	switch {
	case tb.enclosing != nil:
		return tb.enclosing.FullName() + "+" + tb.name
	case tb.namespace != "":
		return tb.namespace + "." + tb.name
	default:
		return tb.name
	}
}

// Kind returns TypeKindBuilder, or TypeKindGenericParam for a placeholder.
func (tb *TypeBuilder) Kind() TypeKind {
	if tb.isGenericParam() {
		return TypeKindGenericParam
	}
	return TypeKindBuilder
}

// Attributes returns the definition flags.
func (tb *TypeBuilder) Attributes() TypeAttributes { return tb.attr }

// BaseType returns the declared base type, or the base constraint for a
// generic parameter placeholder.
func (tb *TypeBuilder) BaseType() Type {
	if tb.isGenericParam() {
		return tb.gpBase
	}
	return tb.parent
}

// ElementType returns nil.
func (tb *TypeBuilder) ElementType() Type { return nil }

// IsValueType reports whether the type derives directly from the core
// ValueType or Enum types.
func (tb *TypeBuilder) IsValueType() bool {
	if tb.isGenericParam() || tb.parent == nil {
		return false
	}
	return Identical(tb.parent, tb.mod.core.ValueType) || Identical(tb.parent, tb.mod.core.Enum)
}

// IsGenericTypeDefinition reports whether generic parameters are declared.
func (tb *TypeBuilder) IsGenericTypeDefinition() bool {
	return len(tb.genericParams) > 0 && !tb.isGenericParam()
}

// GenericArguments returns the declared generic parameters.
func (tb *TypeBuilder) GenericArguments() []Type {
	if len(tb.genericParams) == 0 {
		return nil
	}
	out := make([]Type, len(tb.genericParams))
	for i, gp := range tb.genericParams {
		out[i] = gp
	}
	return out
}

func (tb *TypeBuilder) String() string { return tb.FullName() }

// IsGenericParameter reports whether this builder is a generic parameter
// placeholder rather than a concrete definition.
func (tb *TypeBuilder) IsGenericParameter() bool { return tb.isGenericParam() }

// GenericParameterPosition returns a placeholder's zero-based declaration
// position, -1 for concrete definitions.
func (tb *TypeBuilder) GenericParameterPosition() int { return tb.gpPosition }

// DeclaringMethod returns the owning method of a method-level generic
// parameter placeholder, nil otherwise.
func (tb *TypeBuilder) DeclaringMethod() *MethodBuilder { return tb.gpOwnerMethod }

// Module returns the owning module.
func (tb *TypeBuilder) Module() *ModuleBuilder { return tb.mod }

// Token returns the eagerly issued type definition token.
func (tb *TypeBuilder) Token() Token { return tb.token }

// GetToken returns the type definition token, satisfying TokenProvider.
func (tb *TypeBuilder) GetToken() (Token, error) { return tb.token, nil }

func (tb *TypeBuilder) tokenLocked(*ModuleBuilder) (Token, error) { return tb.token, nil }

// DeclaringType returns the enclosing type for nested definitions, nil for
// top-level ones.
func (tb *TypeBuilder) DeclaringType() *TypeBuilder { return tb.enclosing }

// IsCreated reports whether CreateType has completed.
func (tb *TypeBuilder) IsCreated() bool { return tb.createdFlag.Load() }

// Handle returns the backing handle of a created type.
func (tb *TypeBuilder) Handle() (TypeHandle, error) {
	if !tb.createdFlag.Load() {
		return 0, stateErr("type %s is not created yet", tb.FullName())
	}
	return tb.handle, nil
}

// mutableLocked rejects mutation of placeholders and created types.
func (tb *TypeBuilder) mutableLocked(op string) error {
	if tb.isGenericParam() {
		return usageErr("%s: %s is a generic parameter placeholder", op, tb.name)
	}
	if tb.created {
		return stateErr("%s: type %s is already created", op, tb.FullName())
	}
	return nil
}

// SetParent replaces the declared base type. A nil parent restores the core
// Object default.
func (tb *TypeBuilder) SetParent(parent Type) error {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("SetParent"); err != nil {
		return err
	}
	if tb.attr.IsInterface() {
		return usageErr("SetParent: interface %s cannot declare a base type", tb.FullName())
	}
	if parent == nil {
		tb.parent = tb.mod.core.Object
		return nil
	}
	if parent == Type(tb) {
		return usageErr("SetParent: type %s cannot be its own base", tb.FullName())
	}
	switch unwrapParam(parent).Kind() {
	case TypeKindCompound, TypeKindGenericParam:
		return usageErr("SetParent: type %s cannot extend %s", tb.FullName(), parent.FullName())
	}
	tb.parent = parent
	return nil
}

// AddInterfaceImplementation records that the type implements iface. The
// interface token is resolved when the type bakes.
func (tb *TypeBuilder) AddInterfaceImplementation(iface Type) error {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("AddInterfaceImplementation"); err != nil {
		return err
	}
	if iface == nil {
		return usageErr("AddInterfaceImplementation: nil interface on %s", tb.FullName())
	}
	switch unwrapParam(iface).Kind() {
	case TypeKindCompound:
		return usageErr("AddInterfaceImplementation: %s cannot implement %s", tb.FullName(), iface.FullName())
	}
	tb.interfaces = append(tb.interfaces, iface)
	return nil
}

// DefineField adds a field and eagerly issues its token.
func (tb *TypeBuilder) DefineField(name string, fieldType Type, attr FieldAttributes) (*FieldBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineField"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, usageErr("DefineField: field name is empty on %s", tb.FullName())
	}
	if fieldType == nil {
		return nil, usageErr("DefineField: field %s.%s has no type", tb.FullName(), name)
	}
	m := tb.mod
	sig, err := m.enc.FieldSig(lockedResolver{m}, fieldType, nil, nil)
	if err != nil {
		return nil, err
	}
	tok, err := m.em.DefineField(tb.token, name, sig, attr)
	if err != nil {
		return nil, err
	}
	fb := &FieldBuilder{
		declaring: tb,
		name:      name,
		typ:       fieldType,
		attr:      attr,
		token:     tok,
	}
	tb.fields = append(tb.fields, fb)
	return fb, nil
}

// DefineMethod adds a method. Its token is issued lazily, in declaration
// order, the first time the method or a later-declared sibling needs one.
// A nil return type means void.
func (tb *TypeBuilder) DefineMethod(name string, attr MethodAttributes, ret Type, params ...Type) (*MethodBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineMethod"); err != nil {
		return nil, err
	}
	return tb.defineMethodLocked(name, attr, 0, ret, params)
}

func (tb *TypeBuilder) defineMethodLocked(name string, attr MethodAttributes, implFlags MethodImplAttributes, ret Type, params []Type) (*MethodBuilder, error) {
	if name == "" {
		return nil, usageErr("DefineMethod: method name is empty on %s", tb.FullName())
	}
	if attr.IsAbstract() {
		if attr.IsStatic() {
			return nil, usageErr("DefineMethod: method %s.%s cannot be both abstract and static", tb.FullName(), name)
		}
		if attr&MethodAttrVirtual == 0 {
			return nil, usageErr("DefineMethod: abstract method %s.%s must be virtual", tb.FullName(), name)
		}
	}
	for i, p := range params {
		if p == nil {
			return nil, usageErr("DefineMethod: method %s.%s has a nil parameter type at %d", tb.FullName(), name, i)
		}
	}
	if ret == nil {
		ret = tb.mod.core.Void
	}
	conv := CallConvStandard
	if !attr.IsStatic() {
		conv |= CallConvHasThis
	}
	mb := &MethodBuilder{
		declaring:  tb,
		name:       name,
		attr:       attr,
		implFlags:  implFlags,
		conv:       conv,
		ret:        ret,
		paramTypes: append([]Type(nil), params...),
		initLocals: true,
	}
	tb.methods = append(tb.methods, mb)
	return mb, nil
}

// DefineConstructor adds an instance constructor, or a type initializer
// when attr carries the static flag. The special name flags are added
// automatically.
func (tb *TypeBuilder) DefineConstructor(attr MethodAttributes, params ...Type) (*ConstructorBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineConstructor"); err != nil {
		return nil, err
	}
	return tb.defineConstructorLocked(attr, params)
}

func (tb *TypeBuilder) defineConstructorLocked(attr MethodAttributes, params []Type) (*ConstructorBuilder, error) {
	name := ConstructorName
	if attr.IsStatic() {
		name = TypeInitializerName
		if len(params) > 0 {
			return nil, usageErr("DefineConstructor: type initializer on %s takes no parameters", tb.FullName())
		}
		for _, mb := range tb.methods {
			if mb.name == TypeInitializerName {
				return nil, usageErr("DefineConstructor: type %s already has a type initializer", tb.FullName())
			}
		}
	} else if tb.attr.IsInterface() {
		return nil, usageErr("DefineConstructor: interface %s cannot declare an instance constructor", tb.FullName())
	}
	attr |= MethodAttrSpecialName | MethodAttrRTSpecialName
	mb, err := tb.defineMethodLocked(name, attr, 0, tb.mod.core.Void, params)
	if err != nil {
		return nil, err
	}
	mb.isCtor = true
	if !attr.IsStatic() {
		tb.ctorCount++
	}
	return &ConstructorBuilder{mb: mb}, nil
}

// DefineTypeInitializer adds the static type initializer.
func (tb *TypeBuilder) DefineTypeInitializer() (*ConstructorBuilder, error) {
	return tb.DefineConstructor(MethodAttrPrivate | MethodAttrStatic)
}

// DefineDefaultConstructor adds a parameterless constructor whose body just
// calls the base type's parameterless constructor. Resolution of that base
// constructor reports ErrResolution when none is accessible.
func (tb *TypeBuilder) DefineDefaultConstructor(attr MethodAttributes) (*ConstructorBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineDefaultConstructor"); err != nil {
		return nil, err
	}
	if tb.attr.IsInterface() {
		return nil, usageErr("DefineDefaultConstructor: interface %s cannot declare a constructor", tb.FullName())
	}
	return tb.defineDefaultConstructorLocked(attr)
}

func (tb *TypeBuilder) defineDefaultConstructorLocked(attr MethodAttributes) (*ConstructorBuilder, error) {
	baseCtor, err := tb.resolveBaseCtorLocked()
	if err != nil {
		return nil, err
	}
	cb, err := tb.defineConstructorLocked(attr, nil)
	if err != nil {
		return nil, err
	}
	// ldarg.0; call <base ctor>; ret
	il := []byte{0x02, 0x28, 0x00, 0x00, 0x00, 0x00, 0x2A}
	binary.LittleEndian.PutUint32(il[2:], uint32(baseCtor))
	cb.mb.body = &MethodBody{
		IL:       il,
		MaxStack: 1,
		Fixups:   []Fixup{{Offset: 2, Target: FixedToken(baseCtor)}},
	}
	return cb, nil
}

// resolveBaseCtorLocked finds the token of the parent type's accessible
// parameterless constructor.
func (tb *TypeBuilder) resolveBaseCtorLocked() (Token, error) {
	if tb.parent == nil {
		return NilToken, resolutionErr("type %s has no base type to construct", tb.FullName())
	}
	m := tb.mod
	switch parent := unwrapParam(tb.parent).(type) {
	case *ImportedType:
		if !parent.HasParameterlessCtor() {
			return NilToken, resolutionErr("base type %s declares no parameterless constructor", parent.FullName())
		}
		parentTok, err := m.typeTokenLocked(parent)
		if err != nil {
			return NilToken, err
		}
		sig, err := defaultCtorSigLocked(m)
		if err != nil {
			return NilToken, err
		}
		return m.memberRefLocked(parentTok, ConstructorName, sig)
	case *TypeBuilder:
		mb, err := parent.findDefaultCtorLocked()
		if err != nil {
			return NilToken, err
		}
		if err := parent.ensureMethodTokensLocked(mb); err != nil {
			return NilToken, err
		}
		return mb.token, nil
	case *Instantiation:
		sig, err := parent.defaultCtorSigLocked(m)
		if err != nil {
			return NilToken, err
		}
		specTok, err := m.typeTokenLocked(parent)
		if err != nil {
			return NilToken, err
		}
		return m.memberRefLocked(specTok, ConstructorName, sig)
	default:
		return NilToken, resolutionErr("type %s cannot construct base %s", tb.FullName(), tb.parent.FullName())
	}
}

// findDefaultCtorLocked locates an accessible parameterless instance
// constructor declared on tb.
func (tb *TypeBuilder) findDefaultCtorLocked() (*MethodBuilder, error) {
	for _, mb := range tb.methods {
		if mb.isCtor && !mb.attr.IsStatic() && len(mb.paramTypes) == 0 &&
			mb.attr.Access() != MethodAttrPrivate {
			return mb, nil
		}
	}
	return nil, resolutionErr("base type %s declares no accessible parameterless constructor", tb.FullName())
}

// defaultCtorSigLocked encodes the instance () -> void signature.
func defaultCtorSigLocked(m *ModuleBuilder) ([]byte, error) {
	return m.enc.MethodSig(lockedResolver{m}, CallConvStandard|CallConvHasThis, 0,
		m.core.Void, nil, nil, nil, nil, nil)
}

// DefineProperty adds a property and eagerly issues its token. Accessor
// methods attach through SetGetMethod and SetSetMethod on the result.
func (tb *TypeBuilder) DefineProperty(name string, attr PropertyAttributes, ret Type, params ...Type) (*PropertyBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineProperty"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, usageErr("DefineProperty: property name is empty on %s", tb.FullName())
	}
	if ret == nil {
		return nil, usageErr("DefineProperty: property %s.%s has no type", tb.FullName(), name)
	}
	for i, p := range params {
		if p == nil {
			return nil, usageErr("DefineProperty: property %s.%s has a nil parameter type at %d", tb.FullName(), name, i)
		}
	}
	m := tb.mod
	sig, err := m.enc.PropertySig(lockedResolver{m}, true, ret, params)
	if err != nil {
		return nil, err
	}
	tok, err := m.em.DefineProperty(tb.token, name, sig, attr)
	if err != nil {
		return nil, err
	}
	pb := &PropertyBuilder{
		declaring: tb,
		name:      name,
		attr:      attr,
		propType:  ret,
		params:    append([]Type(nil), params...),
		token:     tok,
	}
	tb.properties = append(tb.properties, pb)
	return pb, nil
}

// DefineEvent adds an event of the given delegate type and eagerly issues
// its token.
func (tb *TypeBuilder) DefineEvent(name string, attr EventAttributes, eventType Type) (*EventBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineEvent"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, usageErr("DefineEvent: event name is empty on %s", tb.FullName())
	}
	if eventType == nil {
		return nil, usageErr("DefineEvent: event %s.%s has no type", tb.FullName(), name)
	}
	m := tb.mod
	typeTok, err := m.typeTokenLocked(eventType)
	if err != nil {
		return nil, err
	}
	tok, err := m.em.DefineEvent(tb.token, name, attr, typeTok)
	if err != nil {
		return nil, err
	}
	eb := &EventBuilder{
		declaring: tb,
		name:      name,
		attr:      attr,
		eventType: eventType,
		token:     tok,
	}
	tb.events = append(tb.events, eb)
	return eb, nil
}

// DefineNestedType adds a type nested inside this one. attr must carry one
// of the nested visibilities.
func (tb *TypeBuilder) DefineNestedType(name string, attr TypeAttributes, parent Type, interfaces ...Type) (*TypeBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineNestedType"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, usageErr("DefineNestedType: type name is empty under %s", tb.FullName())
	}
	if !attr.IsNested() {
		return nil, usageErr("DefineNestedType: %s+%s requires a nested visibility", tb.FullName(), name)
	}
	if err := checkTypeShape(tb.FullName()+"+"+name, attr, parent); err != nil {
		return nil, err
	}
	return tb.mod.newTypeLocked("", name, attr, parent, interfaces, tb, false)
}

// NestedType looks up a directly nested type by simple name. The lookup
// table is built lazily and rebuilt after a nested type bakes.
func (tb *TypeBuilder) NestedType(name string) (*TypeBuilder, bool) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if tb.nestedByName == nil {
		tb.nestedByName = make(map[string]*TypeBuilder, len(tb.nested))
		for _, n := range tb.nested {
			tb.nestedByName[n.name] = n
		}
	}
	n, ok := tb.nestedByName[name]
	return n, ok
}

// DefinePInvokeMethod adds a method whose implementation is imported from
// an unmanaged library. The method must be static; a body must not be set.
func (tb *TypeBuilder) DefinePInvokeMethod(name, dllName, entryName string, attr MethodAttributes, flags PInvokeAttributes, ret Type, params ...Type) (*MethodBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefinePInvokeMethod"); err != nil {
		return nil, err
	}
	if dllName == "" {
		return nil, usageErr("DefinePInvokeMethod: method %s.%s names no library", tb.FullName(), name)
	}
	if !attr.IsStatic() {
		return nil, usageErr("DefinePInvokeMethod: method %s.%s must be static", tb.FullName(), name)
	}
	if entryName == "" {
		entryName = name
	}
	mb, err := tb.defineMethodLocked(name, attr|MethodAttrPInvokeImpl, MethodImplPreserveSig, ret, params)
	if err != nil {
		return nil, err
	}
	mb.pinvoke = &pinvokeData{dll: dllName, entry: entryName, flags: flags}
	return mb, nil
}

// DefineGenericParameters declares the type's generic parameters, making it
// a generic type definition. It can be called at most once.
func (tb *TypeBuilder) DefineGenericParameters(names ...string) ([]*GenericParameterBuilder, error) {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("DefineGenericParameters"); err != nil {
		return nil, err
	}
	if tb.genericParams != nil {
		return nil, stateErr("DefineGenericParameters: type %s already has generic parameters", tb.FullName())
	}
	params, err := newGenericParamsLocked(tb.mod, names, tb, nil)
	if err != nil {
		return nil, err
	}
	tb.genericParams = params
	return append([]*GenericParameterBuilder(nil), params...), nil
}

// SetClassLayout records packing and total size hints for the type.
func (tb *TypeBuilder) SetClassLayout(packSize, classSize int) error {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("SetClassLayout"); err != nil {
		return err
	}
	if packSize < 0 || classSize < 0 {
		return usageErr("SetClassLayout: negative layout on %s", tb.FullName())
	}
	if packSize > 128 || (packSize != 0 && packSize&(packSize-1) != 0) {
		return usageErr("SetClassLayout: pack size %d on %s must be a power of two up to 128", packSize, tb.FullName())
	}
	return tb.mod.em.SetClassLayout(tb.token, packSize, classSize)
}

// SetCustomAttribute attaches an encoded custom attribute to the type.
func (tb *TypeBuilder) SetCustomAttribute(ctor TokenProvider, blob []byte) error {
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	if err := tb.mutableLocked("SetCustomAttribute"); err != nil {
		return err
	}
	ctorTok, err := tb.mod.providerTokenLocked(ctor)
	if err != nil {
		return err
	}
	_, err = tb.mod.em.DefineCustomAttribute(tb.token, ctorTok, blob)
	return err
}

// needsDefaultCtorLocked reports whether bake step four must synthesize a
// parameterless constructor.
func (tb *TypeBuilder) needsDefaultCtorLocked() bool {
	if tb.pseudo || tb.attr.IsInterface() || tb.IsValueType() {
		return false
	}
	if tb.attr.IsAbstract() && tb.attr.IsSealed() {
		return false
	}
	return tb.ctorCount == 0
}

// ensureMethodTokensLocked issues tokens, in declaration order, for every
// method up to and including target. Methods declared later keep their
// tokens pending. It panics when target is not declared on tb; concurrent
// callers observe a consistent high-water mark because the module lock is
// held.
func (tb *TypeBuilder) ensureMethodTokensLocked(target *MethodBuilder) error {
	if !target.token.IsNil() {
		return nil
	}
	for i := tb.tokenized; i < len(tb.methods); i++ {
		mb := tb.methods[i]
		if mb.token.IsNil() {
			if err := mb.issueTokenLocked(); err != nil {
				return err
			}
		}
		tb.tokenized = i + 1
		if mb == target {
			return nil
		}
	}
	panic(fmt.Sprintf("emit: method %s is not declared on %s", target.name, tb.FullName()))
}

// CreateType finalizes the type: it bakes generic parameters, links the
// base type and interfaces, synthesizes a default constructor when needed,
// issues pending method tokens in declaration order, hands every staged
// body to the emitter, and seals the definition into a handle.
//
// CreateType is idempotent; concurrent and repeated calls return the same
// handle.
func (tb *TypeBuilder) CreateType() (TypeHandle, error) {
	if tb.createdFlag.Load() {
		return tb.handle, nil
	}
	tb.mod.mu.Lock()
	defer tb.mod.mu.Unlock()
	return tb.createTypeLocked()
}

func (tb *TypeBuilder) createTypeLocked() (TypeHandle, error) {
	if tb.created {
		return tb.handle, nil
	}
	if tb.isGenericParam() {
		return 0, stateErr("generic parameter %s is baked with its owner", tb.name)
	}
	m := tb.mod
	m.log.Debug("baking type", zap.String("type", tb.FullName()))

	for _, gp := range tb.genericParams {
		if err := gp.placeholder.createGenericParamLocked(); err != nil {
			return 0, err
		}
	}

	if !tb.pseudo {
		var parentTok Token
		if tb.parent != nil {
			var err error
			if parentTok, err = m.typeTokenLocked(tb.parent); err != nil {
				return 0, err
			}
		}
		if err := m.em.SetParent(tb.token, parentTok); err != nil {
			return 0, err
		}
	}
	for _, iface := range tb.interfaces {
		ifaceTok, err := m.typeTokenLocked(iface)
		if err != nil {
			return 0, err
		}
		if err := m.em.AddInterfaceImpl(tb.token, ifaceTok); err != nil {
			return 0, err
		}
	}

	if tb.needsDefaultCtorLocked() {
		if _, err := tb.defineDefaultConstructorLocked(MethodAttrPublic); err != nil {
			return 0, err
		}
	}

	for _, mb := range tb.methods {
		if err := tb.ensureMethodTokensLocked(mb); err != nil {
			return 0, err
		}
		if err := tb.finalizeMethodLocked(mb); err != nil {
			return 0, err
		}
	}

	handle, err := m.em.CreateType(tb.token)
	if err != nil {
		return 0, err
	}
	tb.handle = handle
	tb.created = true
	tb.createdFlag.Store(true)
	if tb.enclosing != nil {
		tb.enclosing.nestedByName = nil
	}
	m.log.Info("type created",
		zap.String("type", tb.FullName()),
		zap.Stringer("token", tb.token),
		zap.Uint32("handle", uint32(handle)))
	return handle, nil
}

// finalizeMethodLocked validates body presence rules and emits the staged
// body with its fix-ups patched, handlers resolved and locals encoded.
func (tb *TypeBuilder) finalizeMethodLocked(mb *MethodBuilder) error {
	m := tb.mod
	if mb.attr.IsAbstract() {
		if mb.body != nil {
			return stateErr("abstract method %s.%s must not have a body", tb.FullName(), mb.name)
		}
		if !tb.attr.IsAbstract() {
			return stateErr("abstract method %s.%s requires type %s to be abstract", tb.FullName(), mb.name, tb.FullName())
		}
		return nil
	}
	if mb.pinvoke != nil || mb.implFlags.SuppliesBody() {
		if mb.body != nil {
			return stateErr("method %s.%s has an externally supplied implementation and must not have a body", tb.FullName(), mb.name)
		}
		return nil
	}
	if mb.body == nil || len(mb.body.IL) == 0 {
		return stateErr("method %s.%s has no body", tb.FullName(), mb.name)
	}

	body := mb.body
	il := append([]byte(nil), body.IL...)
	offsets := make([]int, 0, len(body.Fixups))
	for _, fx := range body.Fixups {
		tok, err := m.providerTokenLocked(fx.Target)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(il[fx.Offset:], uint32(tok))
		offsets = append(offsets, fx.Offset)
	}

	var clauses []HandlerClause
	for _, h := range body.Handlers {
		clause := HandlerClause{
			Kind:          h.Kind,
			TryOffset:     h.TryOffset,
			TryLength:     h.TryLength,
			HandlerOffset: h.HandlerOffset,
			HandlerLength: h.HandlerLength,
			FilterOffset:  h.FilterOffset,
		}
		if h.Kind == HandlerCatch {
			if h.CatchType == nil {
				return usageErr("method %s.%s: catch handler has no type", tb.FullName(), mb.name)
			}
			catchTok, err := m.typeTokenLocked(h.CatchType)
			if err != nil {
				return err
			}
			clause.CatchToken = catchTok
		}
		clauses = append(clauses, clause)
	}

	localSig := body.LocalSig
	if localSig == nil && len(mb.locals) > 0 {
		locals := make([]Local, len(mb.locals))
		for i, lb := range mb.locals {
			locals[i] = Local{Type: lb.typ, Pinned: lb.pinned}
		}
		var err error
		if localSig, err = m.enc.LocalSig(lockedResolver{m}, locals); err != nil {
			return err
		}
	}

	maxStack := body.MaxStack + len(body.Handlers)
	if err := m.em.SetMethodBody(mb.token, mb.initLocals, il, localSig, maxStack, clauses, offsets); err != nil {
		return err
	}
	if m.discardBodies {
		mb.body = nil
	}
	return nil
}

// createGenericParamLocked bakes a generic parameter placeholder into its
// metadata row. The owner's token must already be issued.
func (tb *TypeBuilder) createGenericParamLocked() error {
	if tb.created {
		return nil
	}
	m := tb.mod
	var owner Token
	switch {
	case tb.gpOwnerMethod != nil:
		owner = tb.gpOwnerMethod.token
	case tb.gpOwnerType != nil:
		owner = tb.gpOwnerType.token
	}
	if owner.IsNil() {
		panic(fmt.Sprintf("emit: generic parameter %s baked before its owner's token", tb.name))
	}
	constraints := make([]Token, 0, len(tb.gpIfaces)+1)
	if tb.gpBase != nil {
		tok, err := m.typeTokenLocked(tb.gpBase)
		if err != nil {
			return err
		}
		constraints = append(constraints, tok)
	}
	for _, iface := range tb.gpIfaces {
		tok, err := m.typeTokenLocked(iface)
		if err != nil {
			return err
		}
		constraints = append(constraints, tok)
	}
	tok, err := m.em.DefineGenericParam(owner, tb.gpPosition, tb.name, tb.gpAttr, constraints)
	if err != nil {
		return err
	}
	tb.token = tok
	tb.created = true
	tb.createdFlag.Store(true)
	return nil
}

// providerTokenLocked resolves a TokenProvider while holding the module
// lock. Providers must originate from this module or be FixedToken values.
func (m *ModuleBuilder) providerTokenLocked(p TokenProvider) (Token, error) {
	if p == nil {
		return NilToken, usageErr("token provider is nil")
	}
	lp, ok := p.(lockedTokenProvider)
	if !ok {
		return NilToken, usageErr("token provider %T does not originate from this module", p)
	}
	return lp.tokenLocked(m)
}
