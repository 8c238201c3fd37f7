package emit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDefineType_Concurrent(t *testing.T) {
	m, _ := newTestModule(t)

	const n = 24
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := m.DefineType(fmt.Sprintf("Load.T%02d", i), TypeAttrPublic, nil)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, m.Types(), n)
}

func TestGetToken_Concurrent(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Hot", TypeAttrPublic, nil)
	require.NoError(t, err)

	const n = 32
	methods := make([]*MethodBuilder, n)
	for i := range methods {
		mb, err := tb.DefineMethod(fmt.Sprintf("M%02d", i), MethodAttrPublic|MethodAttrStatic, core.Int32)
		require.NoError(t, err)
		methods[i] = mb
	}

	tokens := make([]Token, n)
	var g errgroup.Group
	for i := range methods {
		g.Go(func() error {
			tok, err := methods[i].GetToken()
			tokens[i] = tok
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Concurrency never reorders rows: token order equals declaration order.
	for i, tok := range tokens {
		assert.Equal(t, TokenKindMethodDef, tok.Kind())
		assert.Equal(t, uint32(i+1), tok.Index())
	}
	assert.Equal(t, n, fe.callCount("DefineMethod"))
}

func TestCreateType_Concurrent(t *testing.T) {
	m, fe := newTestModule(t)

	tb, err := m.DefineType("App.Baked", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)
	require.NoError(t, mb.SetBody(MethodBody{IL: []byte{0x2A}, MaxStack: 1}))

	const n = 16
	handles := make([]TypeHandle, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			h, err := tb.CreateType()
			handles[i] = h
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, h := range handles {
		assert.Equal(t, handles[0], h)
	}
	assert.Equal(t, 1, fe.createdTotal())
	assert.Equal(t, 1, fe.callCount("SetMethodBody"))
}

func TestTypeToken_Concurrent(t *testing.T) {
	m, fe := newTestModule(t)

	ref := NewImportedType("Vendor", "Clock", nil)
	ptr, err := PointerTo(m.Core().Int32)
	require.NoError(t, err)

	const n = 16
	refToks := make([]Token, n)
	specToks := make([]Token, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			tok, err := m.TypeToken(ref)
			refToks[i] = tok
			return err
		})
		g.Go(func() error {
			tok, err := m.TypeToken(ptr)
			specToks[i] = tok
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := 1; i < n; i++ {
		assert.Equal(t, refToks[0], refToks[i])
		assert.Equal(t, specToks[0], specToks[i])
	}
	assert.Equal(t, uint32(1), fe.count(TokenKindTypeRef))
	assert.Equal(t, uint32(1), fe.count(TokenKindTypeSpec))
}

func TestProjection_Concurrent(t *testing.T) {
	m, _ := newTestModule(t)
	core := m.Core()

	box, err := m.DefineType("Collections.Box", TypeAttrPublic, nil)
	require.NoError(t, err)
	gps, err := box.DefineGenericParameters("T")
	require.NoError(t, err)
	get, err := box.DefineMethod("Get", MethodAttrPublic, gps[0])
	require.NoError(t, err)
	ints, err := MakeGenericType(box, core.Int32)
	require.NoError(t, err)

	const n = 16
	tokens := make([]Token, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			pm, err := MethodOn(ints, get)
			if err != nil {
				return err
			}
			tok, err := pm.GetToken()
			tokens[i] = tok
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Projections are interchangeable: every goroutine lands on the same
	// interned member reference.
	for i := 1; i < n; i++ {
		assert.Equal(t, tokens[0], tokens[i])
	}
	assert.Equal(t, TokenKindMemberRef, tokens[0].Kind())
}
