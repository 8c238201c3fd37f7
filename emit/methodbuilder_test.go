package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodTokens_DeclarationOrder(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Svc", TypeAttrPublic, nil)
	require.NoError(t, err)

	first, err := tb.DefineMethod("First", MethodAttrPublic, core.Int32)
	require.NoError(t, err)
	second, err := tb.DefineMethod("Second", MethodAttrPublic, nil)
	require.NoError(t, err)
	third, err := tb.DefineMethod("Third", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)

	// Asking the last method for its token issues the earlier siblings
	// first, so row order matches declaration order.
	tok3, err := third.GetToken()
	require.NoError(t, err)
	assert.Equal(t, TokenKindMethodDef, tok3.Kind())
	assert.Equal(t, uint32(3), tok3.Index())

	tok1, err := first.GetToken()
	require.NoError(t, err)
	tok2, err := second.GetToken()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tok1.Index())
	assert.Equal(t, uint32(2), tok2.Index())
	assert.Equal(t, "First", fe.methodName(tok1))
	assert.Equal(t, "Second", fe.methodName(tok2))
	assert.Equal(t, "Third", fe.methodName(tok3))

	// Repeated calls return the issued token without touching the backend.
	again, err := third.GetToken()
	require.NoError(t, err)
	assert.Equal(t, tok3, again)
	assert.Equal(t, 3, fe.callCount("DefineMethod"))

	// A method declared after the high-water mark still tokenizes.
	late, err := tb.DefineMethod("Late", MethodAttrPublic, nil)
	require.NoError(t, err)
	tok4, err := late.GetToken()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), tok4.Index())
}

func TestGetToken_FreezesSignature(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Math", TypeAttrPublic, nil)
	require.NoError(t, err)
	add, err := tb.DefineMethod("Add", MethodAttrPublic|MethodAttrStatic,
		core.Int32, core.Int32, core.Int32)
	require.NoError(t, err)

	tok, err := add.GetToken()
	require.NoError(t, err)
	assert.Equal(t, "M01:0:System.Int32,System.Int32,System.Int32", string(fe.methodSigs[tok]))

	err = add.SetReturnType(core.Int64)
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "frozen by token issuance")
	assert.ErrorIs(t, add.SetParameters(core.Int64), ErrState)
	assert.ErrorIs(t, add.SetSignature(core.Int64, nil, nil, nil, nil, nil), ErrState)
	assert.ErrorIs(t, add.SetImplementationFlags(MethodImplNative), ErrState)
	_, err = add.DefineGenericParameters("T")
	assert.ErrorIs(t, err, ErrState)

	// The body side stays open until the type bakes.
	require.NoError(t, add.SetInitLocals(false))
	_, err = add.DeclareLocal(core.Int32, false)
	require.NoError(t, err)
	require.NoError(t, add.SetBody(MethodBody{IL: []byte{0x16, 0x2A}, MaxStack: 1}))
	_, err = add.DefineParameter(1, ParamAttrIn, "a")
	require.NoError(t, err)
}

func TestMethodSignature_CallingConvention(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Conv", TypeAttrPublic, nil)
	require.NoError(t, err)

	inst, err := tb.DefineMethod("Get", MethodAttrPublic, nil)
	require.NoError(t, err)
	assert.True(t, inst.CallingConvention().HasThis())

	stat, err := tb.DefineMethod("Make", MethodAttrPublic|MethodAttrStatic, core.String)
	require.NoError(t, err)
	assert.False(t, stat.CallingConvention().HasThis())

	instTok, err := inst.GetToken()
	require.NoError(t, err)
	statTok, err := stat.GetToken()
	require.NoError(t, err)
	assert.Equal(t, "M21:0:System.Void", string(fe.methodSigs[instTok]))
	assert.Equal(t, "M01:0:System.String", string(fe.methodSigs[statTok]))
}

func TestSetSignature(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Shape", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Eval", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)

	mod := NewImportedType("System.Runtime.CompilerServices", "IsVolatile", nil)
	err = mb.SetSignature(core.Float64, []Type{mod}, nil,
		[]Type{core.Float64, core.Int32},
		[][]Type{nil, {mod}}, nil)
	require.NoError(t, err)
	assert.True(t, Identical(core.Float64, mb.ReturnType()))
	require.Len(t, mb.ParameterTypes(), 2)
	assert.True(t, Identical(core.Int32, mb.ParameterTypes()[1]))

	// Modifier lists must run parallel to the parameter list.
	err = mb.SetSignature(core.Float64, nil, nil, []Type{core.Int32}, [][]Type{nil, nil}, nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "required-modifier")
	err = mb.SetSignature(core.Float64, nil, nil, []Type{core.Int32}, nil, [][]Type{})
	assert.ErrorIs(t, err, ErrUsage)
	err = mb.SetSignature(core.Float64, nil, nil, []Type{core.Int32, nil}, nil, nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "nil parameter type at 1")

	// A nil return collapses to void.
	require.NoError(t, mb.SetSignature(nil, nil, nil, []Type{core.Int32}, nil, nil))
	assert.True(t, Identical(core.Void, mb.ReturnType()))

	tok, err := mb.GetToken()
	require.NoError(t, err)
	assert.Equal(t, "M01:0:System.Void,System.Int32", string(fe.methodSigs[tok]))
}

func TestSetParameters_ClearsModifiers(t *testing.T) {
	m, _ := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Plain", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)

	mod := NewImportedType("System.Runtime.CompilerServices", "IsConst", nil)
	require.NoError(t, mb.SetSignature(nil, nil, nil,
		[]Type{core.Int32}, [][]Type{{mod}}, [][]Type{{mod}}))

	require.NoError(t, mb.SetParameters(core.Int64, core.String))
	require.Len(t, mb.ParameterTypes(), 2)
	assert.Nil(t, mb.paramReq)
	assert.Nil(t, mb.paramOpt)

	err = mb.SetParameters(core.Int64, nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "nil parameter type at 1")
}

func TestSetReturnType_NilMeansVoid(t *testing.T) {
	m, _ := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Void", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic, nil)
	require.NoError(t, err)
	assert.True(t, Identical(core.Void, mb.ReturnType()))

	require.NoError(t, mb.SetReturnType(core.Int32))
	assert.True(t, Identical(core.Int32, mb.ReturnType()))
	require.NoError(t, mb.SetReturnType(nil))
	assert.True(t, Identical(core.Void, mb.ReturnType()))
}

func TestDefineParameter(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Parse", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("TryParse", MethodAttrPublic|MethodAttrStatic,
		core.Bool, core.String, core.Int32)
	require.NoError(t, err)

	_, err = mb.DefineParameter(-1, 0, "bad")
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "out of range")
	_, err = mb.DefineParameter(3, 0, "bad")
	assert.ErrorIs(t, err, ErrUsage)

	ret, err := mb.DefineParameter(0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 0, ret.Position())
	assert.Equal(t, TokenKindParamDef, ret.Token().Kind())

	text, err := mb.DefineParameter(1, ParamAttrIn, "text")
	require.NoError(t, err)
	assert.Equal(t, "text", text.Name())
	assert.Equal(t, ParamAttrIn, text.Attributes())
	assert.Same(t, mb, text.Method())

	out, err := mb.DefineParameter(2, ParamAttrOut, "value")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Position())

	// Defining a parameter issued the method token and froze the signature.
	tok, err := mb.GetToken()
	require.NoError(t, err)
	assert.ErrorIs(t, mb.SetReturnType(core.Void), ErrState)

	require.Len(t, fe.params, 3)
	assert.Equal(t, fakeParam{method: tok, position: 0, name: "", attr: 0}, fe.params[0])
	assert.Equal(t, fakeParam{method: tok, position: 1, name: "text", attr: ParamAttrIn}, fe.params[1])
	assert.Equal(t, fakeParam{method: tok, position: 2, name: "value", attr: ParamAttrOut}, fe.params[2])
}

func TestParameterBuilder_SetConstant(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Opt", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Page", MethodAttrPublic|MethodAttrStatic, nil, core.Int32, core.String)
	require.NoError(t, err)

	size, err := mb.DefineParameter(1, ParamAttrOptional|ParamAttrHasDefault, "size")
	require.NoError(t, err)
	require.NoError(t, size.SetConstant(int32(50)))
	assert.Equal(t, int32(50), fe.constants[size.Token()])

	assert.ErrorIs(t, size.SetConstant("fifty"), ErrUsage)

	label, err := mb.DefineParameter(2, ParamAttrOptional|ParamAttrHasDefault, "label")
	require.NoError(t, err)
	require.NoError(t, label.SetConstant(nil))
}

func TestSetBody_Validation(t *testing.T) {
	m, _ := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Body", TypeAttrPublic|TypeAttrAbstract, nil)
	require.NoError(t, err)

	abstract, err := tb.DefineMethod("Abstract", MethodAttrPublic|MethodAttrVirtual|MethodAttrAbstract, nil)
	require.NoError(t, err)
	err = abstract.SetBody(MethodBody{IL: []byte{0x2A}, MaxStack: 0})
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "cannot have a body")

	runtime, err := tb.DefineMethod("Runtime", MethodAttrPublic, nil)
	require.NoError(t, err)
	require.NoError(t, runtime.SetImplementationFlags(MethodImplRuntime))
	err = runtime.SetBody(MethodBody{IL: []byte{0x2A}, MaxStack: 0})
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "externally supplied")

	mb, err := tb.DefineMethod("Run", MethodAttrPublic|MethodAttrStatic, core.Int32)
	require.NoError(t, err)
	il8 := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2A}

	cases := []struct {
		name     string
		body     MethodBody
		fragment string
	}{
		{"empty", MethodBody{MaxStack: 1}, "empty body"},
		{"negative stack", MethodBody{IL: il8, MaxStack: -1}, "negative max stack"},
		{"fixup without target", MethodBody{IL: il8, Fixups: []Fixup{{Offset: 0}}}, "has no target"},
		{"fixup below zero", MethodBody{IL: il8,
			Fixups: []Fixup{{Offset: -1, Target: FixedToken(NewToken(TokenKindFieldDef, 1))}},
		}, "overruns the 8-byte body"},
		{"fixup past end", MethodBody{IL: il8,
			Fixups: []Fixup{{Offset: 5, Target: FixedToken(NewToken(TokenKindFieldDef, 1))}},
		}, "overruns the 8-byte body"},
		{"handler negative try", MethodBody{IL: il8,
			Handlers: []ExceptionHandler{{Kind: HandlerFinally, TryOffset: -1, TryLength: 2, HandlerOffset: 2, HandlerLength: 2}},
		}, "malformed handler region"},
		{"handler empty try", MethodBody{IL: il8,
			Handlers: []ExceptionHandler{{Kind: HandlerFinally, TryLength: 0, HandlerOffset: 2, HandlerLength: 2}},
		}, "malformed handler region"},
		{"handler empty body", MethodBody{IL: il8,
			Handlers: []ExceptionHandler{{Kind: HandlerFinally, TryLength: 2, HandlerOffset: 2, HandlerLength: 0}},
		}, "malformed handler region"},
		{"try overrun", MethodBody{IL: il8,
			Handlers: []ExceptionHandler{{Kind: HandlerFinally, TryOffset: 4, TryLength: 6, HandlerOffset: 2, HandlerLength: 2}},
		}, "handler region overruns"},
		{"handler overrun", MethodBody{IL: il8,
			Handlers: []ExceptionHandler{{Kind: HandlerFinally, TryLength: 2, HandlerOffset: 6, HandlerLength: 4}},
		}, "handler region overruns"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := mb.SetBody(tc.body)
			assert.ErrorIs(t, err, ErrUsage)
			assert.ErrorContains(t, err, tc.fragment)
		})
	}
}

func TestSetBody_LastWriteWins(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Rewrite", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic|MethodAttrStatic, core.Int32)
	require.NoError(t, err)

	require.NoError(t, mb.SetBody(MethodBody{IL: []byte{0x16, 0x2A}, MaxStack: 1}))
	require.NoError(t, mb.SetBody(MethodBody{IL: []byte{0x17, 0x2A}, MaxStack: 2}))

	_, err = tb.CreateType()
	require.NoError(t, err)
	tok, err := mb.GetToken()
	require.NoError(t, err)
	body, ok := fe.body(tok)
	require.True(t, ok)
	assert.Equal(t, []byte{0x17, 0x2A}, body.il)
	assert.Equal(t, 2, body.maxStack)
}

func TestDeclareLocal(t *testing.T) {
	m, _ := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Locals", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)

	_, err = mb.DeclareLocal(nil, false)
	assert.ErrorIs(t, err, ErrUsage)

	a, err := mb.DeclareLocal(core.Int32, false)
	require.NoError(t, err)
	b, err := mb.DeclareLocal(core.String, true)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Index())
	assert.Equal(t, 1, b.Index())
	assert.True(t, Identical(core.String, b.LocalType()))
	assert.False(t, a.Pinned())
	assert.True(t, b.Pinned())
	assert.Same(t, mb, a.Method())
}

func TestSetInitLocals(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Raw", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)
	assert.True(t, mb.InitLocals())

	require.NoError(t, mb.SetInitLocals(false))
	assert.False(t, mb.InitLocals())
	_, err = mb.DeclareLocal(core.Int32, false)
	require.NoError(t, err)
	require.NoError(t, mb.SetBody(MethodBody{IL: []byte{0x2A}, MaxStack: 1}))

	_, err = tb.CreateType()
	require.NoError(t, err)
	tok, err := mb.GetToken()
	require.NoError(t, err)
	body, ok := fe.body(tok)
	require.True(t, ok)
	assert.False(t, body.initLocals)
}

func TestMakeGenericMethod_Validation(t *testing.T) {
	m, _ := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Seq", TypeAttrPublic, nil)
	require.NoError(t, err)

	plain, err := tb.DefineMethod("Count", MethodAttrPublic|MethodAttrStatic, core.Int32)
	require.NoError(t, err)
	_, err = plain.MakeGenericMethod(core.Int32)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "is not a generic method definition")

	pick, err := tb.DefineMethod("Pick", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)
	gps, err := pick.DefineGenericParameters("T")
	require.NoError(t, err)
	require.Len(t, gps, 1)
	require.NoError(t, pick.SetReturnType(gps[0]))

	_, err = pick.MakeGenericMethod(core.Int32, core.Int64)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "takes 1 type arguments, got 2")
	_, err = pick.MakeGenericMethod(nil)
	assert.ErrorIs(t, err, ErrUsage)

	mi, err := pick.MakeGenericMethod(core.Int32)
	require.NoError(t, err)
	assert.NotNil(t, mi)
}

func TestDefineGenericParameters_Method(t *testing.T) {
	m, _ := newTestModule(t)

	tb, err := m.DefineType("App.Gen", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Zip", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)
	assert.False(t, mb.IsGenericMethodDefinition())

	_, err = mb.DefineGenericParameters()
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "no parameter names")
	_, err = mb.DefineGenericParameters("T", "")
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "empty parameter name at 1")
	_, err = mb.DefineGenericParameters("T", "T")
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorContains(t, err, "duplicate parameter name T")

	gps, err := mb.DefineGenericParameters("T", "U")
	require.NoError(t, err)
	require.Len(t, gps, 2)
	assert.Equal(t, "T", gps[0].Name())
	assert.Equal(t, 1, gps[1].Position())
	assert.Same(t, mb, gps[0].DeclaringMethod())
	assert.Same(t, tb, gps[0].DeclaringType())
	assert.True(t, mb.IsGenericMethodDefinition())
	require.Len(t, mb.GenericArguments(), 2)

	_, err = mb.DefineGenericParameters("V")
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "already has generic parameters")
}

func TestMethod_SetCustomAttribute(t *testing.T) {
	m, fe := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Attr", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Run", MethodAttrPublic|MethodAttrStatic, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, mb.SetCustomAttribute(nil, nil), ErrUsage)

	ctor := NewToken(TokenKindMemberRef, 3)
	blob := []byte{0x01, 0x00, 0x00, 0x00}
	require.NoError(t, mb.SetCustomAttribute(FixedToken(ctor), blob))

	tok, err := mb.GetToken()
	require.NoError(t, err)
	require.Len(t, fe.attrUses, 1)
	assert.Equal(t, tok, fe.attrUses[0].owner)
	assert.Equal(t, ctor, fe.attrUses[0].ctor)
	assert.Equal(t, blob, fe.attrUses[0].blob)

	// Attaching the attribute issued the token, freezing the signature.
	assert.ErrorIs(t, mb.SetReturnType(core.Int32), ErrState)
}

func TestMethodBuilder_Accessors(t *testing.T) {
	m, _ := newTestModule(t)
	core := m.Core()

	tb, err := m.DefineType("App.Meta", TypeAttrPublic, nil)
	require.NoError(t, err)
	mb, err := tb.DefineMethod("Scale", MethodAttrPublic, core.Float64, core.Float64)
	require.NoError(t, err)

	assert.Equal(t, "Scale", mb.Name())
	assert.Equal(t, MethodAttrPublic, mb.Attributes().Access())
	assert.Same(t, tb, mb.DeclaringType())
	assert.Same(t, m, mb.Module())
	require.Len(t, mb.ParameterTypes(), 1)
	assert.True(t, Identical(core.Float64, mb.ParameterTypes()[0]))

	require.NoError(t, mb.SetImplementationFlags(MethodImplInternalCall))
	assert.Equal(t, MethodImplInternalCall, mb.ImplementationFlags())
}
