package emit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModule_Validation(t *testing.T) {
	fe := newFakeEmitter()

	_, err := NewModule("", fe, fakeEncoder{}, nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = NewModule("m", nil, fakeEncoder{}, nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = NewModule("m", fe, nil, nil)
	assert.ErrorIs(t, err, ErrUsage)

	partial := &CoreTypes{Object: NewImportedType("System", "Object", nil)}
	_, err = NewModule("m", fe, fakeEncoder{}, &ModuleOptions{Core: partial})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestNewModule_Defaults(t *testing.T) {
	m, _ := newTestModule(t)

	assert.Equal(t, "test", m.Name())
	assert.NotEqual(t, uuid.Nil, m.VersionID())
	assert.Equal(t, "System.Object", m.Core().Object.FullName())
}

func TestNewModule_FixedVersionID(t *testing.T) {
	id := uuid.MustParse("2f1f6a1e-9c6b-4d55-8f2e-7d7a3d9f51c4")
	m, err := NewModule("m", newFakeEmitter(), fakeEncoder{}, &ModuleOptions{VersionID: id})
	require.NoError(t, err)
	assert.Equal(t, id, m.VersionID())
}

func TestNewModule_GlobalType(t *testing.T) {
	m, _ := newTestModule(t)

	gt := m.GlobalType()
	require.NotNil(t, gt)
	assert.Equal(t, GlobalTypeName, gt.FullName())
	assert.Equal(t, TokenKindTypeDef, gt.Token().Kind())
	assert.Equal(t, uint32(1), gt.Token().Index())

	// Registered for lookup, excluded from the listing.
	byName, ok := m.GetType(GlobalTypeName)
	require.True(t, ok)
	assert.Same(t, gt, byName)
	assert.Empty(t, m.Types())
}

func TestDefineType(t *testing.T) {
	m, fe := newTestModule(t)

	pt, err := m.DefineType("Geometry.Point", TypeAttrPublic, nil)
	require.NoError(t, err)
	assert.Equal(t, "Geometry", pt.Namespace())
	assert.Equal(t, "Point", pt.Name())
	assert.Equal(t, "Geometry.Point", pt.FullName())
	assert.True(t, Identical(m.Core().Object, pt.BaseType()))

	// The definition token is issued eagerly, after the global pseudo-type.
	assert.Equal(t, TokenKindTypeDef, pt.Token().Kind())
	assert.Equal(t, uint32(2), pt.Token().Index())
	assert.Equal(t, 2, fe.callCount("DefineType"))
}

func TestDefineType_Validation(t *testing.T) {
	m, _ := newTestModule(t)

	_, err := m.DefineType("", TypeAttrPublic, nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = m.DefineType("Geometry.", TypeAttrPublic, nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = m.DefineType("Inner", TypeAttrNestedPublic, nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "DefineNestedType")

	// Interfaces carry the abstract flag and declare no base.
	_, err = m.DefineType("IShape", TypeAttrPublic|TypeAttrInterface, nil)
	assert.ErrorIs(t, err, ErrUsage)
	_, err = m.DefineType("IShape", TypeAttrPublic|TypeAttrInterface|TypeAttrAbstract, m.Core().Object)
	assert.ErrorIs(t, err, ErrUsage)

	arr, err := ArrayOf(m.Core().Int32)
	require.NoError(t, err)
	_, err = m.DefineType("Bad", TypeAttrPublic, arr)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = m.DefineType("NilIface", TypeAttrPublic, nil, nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = m.DefineType("Dup", TypeAttrPublic, nil)
	require.NoError(t, err)
	_, err = m.DefineType("Dup", TypeAttrPublic, nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "already defined")
}

func TestDefineType_Interface(t *testing.T) {
	m, _ := newTestModule(t)

	iface, err := m.DefineType("IShape", TypeAttrPublic|TypeAttrInterface|TypeAttrAbstract, nil)
	require.NoError(t, err)
	assert.Nil(t, iface.BaseType())
}

func TestTypes_DefinitionOrder(t *testing.T) {
	m, _ := newTestModule(t)

	a, err := m.DefineType("A", TypeAttrPublic, nil)
	require.NoError(t, err)
	b, err := m.DefineType("B", TypeAttrPublic, nil)
	require.NoError(t, err)

	got := m.Types()
	require.Len(t, got, 2)
	assert.Same(t, a, got[0])
	assert.Same(t, b, got[1])
}

func TestGetType(t *testing.T) {
	m, _ := newTestModule(t)

	want, err := m.DefineType("Geometry.Point", TypeAttrPublic, nil)
	require.NoError(t, err)

	got, ok := m.GetType("Geometry.Point")
	require.True(t, ok)
	assert.Same(t, want, got)

	_, ok = m.GetType("Geometry.Missing")
	assert.False(t, ok)
}

func TestDefineGlobalMethod(t *testing.T) {
	m, fe := newTestModule(t)

	_, err := m.DefineGlobalMethod("Broken", MethodAttrPublic, nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "must be static")

	main, err := m.DefineGlobalMethod("Main", MethodAttrPublic|MethodAttrStatic, m.Core().Int32)
	require.NoError(t, err)
	require.NoError(t, main.SetBody(MethodBody{IL: []byte{0x16, 0x2A}, MaxStack: 1}))

	require.NoError(t, m.CreateGlobalFunctions())
	assert.True(t, m.GlobalType().IsCreated())

	tok, err := main.GetToken()
	require.NoError(t, err)
	assert.Equal(t, "Main", fe.methodName(tok))

	// A second bake is a no-op; new definitions are rejected.
	require.NoError(t, m.CreateGlobalFunctions())
	_, err = m.DefineGlobalMethod("Late", MethodAttrStatic, nil)
	assert.ErrorIs(t, err, ErrState)
}

func TestCreateAll(t *testing.T) {
	m, fe := newTestModule(t)

	names := []string{"A", "B", "C", "D"}
	for _, n := range names {
		_, err := m.DefineType(n, TypeAttrPublic, nil)
		require.NoError(t, err)
	}

	require.NoError(t, m.CreateAll(context.Background()))

	handles := make(map[TypeHandle]bool)
	for _, tb := range m.Types() {
		assert.True(t, tb.IsCreated())
		h, err := tb.Handle()
		require.NoError(t, err)
		handles[h] = true
	}
	assert.Len(t, handles, len(names))
	assert.Equal(t, len(names), fe.createdTotal())

	// Every plain class received a synthesized parameterless constructor,
	// all sharing one interned base constructor reference.
	assert.Equal(t, uint32(len(names)), fe.count(TokenKindMethodDef))
	assert.Equal(t, uint32(1), fe.count(TokenKindTypeRef))
	assert.Equal(t, uint32(1), fe.count(TokenKindMemberRef))
}

func TestCreateAll_PropagatesBakeErrors(t *testing.T) {
	m, _ := newTestModule(t)

	tb, err := m.DefineType("Broken", TypeAttrPublic, nil)
	require.NoError(t, err)
	_, err = tb.DefineMethod("NoBody", MethodAttrPublic, nil)
	require.NoError(t, err)

	err = m.CreateAll(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "no body")
}

func TestTypeToken_Definitions(t *testing.T) {
	m, _ := newTestModule(t)

	tb, err := m.DefineType("Point", TypeAttrPublic, nil)
	require.NoError(t, err)

	tok, err := m.TypeToken(tb)
	require.NoError(t, err)
	assert.Equal(t, tb.Token(), tok)

	_, err = m.TypeToken(nil)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestTypeToken_ForeignBuilder(t *testing.T) {
	m, _ := newTestModule(t)
	other, err := NewModule("other", newFakeEmitter(), fakeEncoder{}, nil)
	require.NoError(t, err)
	foreign, err := other.DefineType("Point", TypeAttrPublic, nil)
	require.NoError(t, err)

	_, err = m.TypeToken(foreign)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "belongs to module")
}

func TestTypeToken_InternsTypeRefs(t *testing.T) {
	m, fe := newTestModule(t)

	a, err := m.TypeToken(NewImportedType("System", "Uri", nil))
	require.NoError(t, err)
	b, err := m.TypeToken(NewImportedType("System", "Uri", nil))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, TokenKindTypeRef, a.Kind())
	assert.Equal(t, 1, fe.callCount("DefineTypeRef"))

	c, err := m.TypeToken(NewImportedType("System", "Exception", nil))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, fe.callCount("DefineTypeRef"))
}

func TestTypeToken_InternsTypeSpecs(t *testing.T) {
	m, fe := newTestModule(t)

	arr1, err := ArrayOf(m.Core().Int32)
	require.NoError(t, err)
	arr2, err := ArrayOf(m.Core().Int32)
	require.NoError(t, err)

	a, err := m.TypeToken(arr1)
	require.NoError(t, err)
	b, err := m.TypeToken(arr2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, TokenKindTypeSpec, a.Kind())
	assert.Equal(t, 1, fe.callCount("DefineTypeSpec"))

	ptr, err := PointerTo(m.Core().Int32)
	require.NoError(t, err)
	c, err := m.TypeToken(ptr)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestCreateType_DiscardBakedBodies(t *testing.T) {
	fe := newFakeEmitter()
	m, err := NewModule("test", fe, fakeEncoder{}, &ModuleOptions{DiscardBakedBodies: true})
	require.NoError(t, err)

	tb, err := m.DefineType("A.Widget", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic, nil)
	require.NoError(t, err)
	require.NoError(t, mb.SetBody(MethodBody{IL: []byte{0x2A}, MaxStack: 1}))

	_, err = tb.CreateType()
	require.NoError(t, err)

	// The emitter keeps the body; the builder releases its staged copy.
	assert.Nil(t, mb.body)
	tok, err := mb.GetToken()
	require.NoError(t, err)
	got, ok := fe.body(tok)
	require.True(t, ok)
	assert.Equal(t, []byte{0x2A}, got.il)
}
