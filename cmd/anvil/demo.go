package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anvil-rt/anvil/emit"
	"github.com/anvil-rt/anvil/internal/cli/config"
	"github.com/anvil-rt/anvil/internal/cli/ui"
	"github.com/anvil-rt/anvil/metadata"
	"github.com/anvil-rt/anvil/sig"
)

var (
	demoJSON    bool
	demoNoColor bool
	demoVerbose bool
)

func init() {
	demoCmd.Flags().BoolVar(&demoJSON, "json", false, "Output metadata tables as JSON")
	demoCmd.Flags().BoolVar(&demoNoColor, "no-color", false, "Disable colored output")
	demoCmd.Flags().BoolVarP(&demoVerbose, "verbose", "v", false, "Enable debug logging")
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build a sample module and print its metadata tables",
	Long: `Define a set of sample types covering classes, interfaces, enums, generics,
value types and platform invoke, bake them, and print the resulting tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if demoJSON {
			cfg.Output.Format = "json"
		}
		if demoNoColor {
			cfg.Output.NoColor = true
		}
		if demoVerbose {
			cfg.Log.Level = "debug"
		}

		logger, err := cfg.Log.Logger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		writer := metadata.NewWriter()
		var mod *emit.ModuleBuilder
		build := func() error {
			var buildErr error
			mod, buildErr = buildDemoModule(cmd.Context(), cfg, writer, logger)
			return buildErr
		}
		// Debug logs share stderr with the spinner, so verbose runs skip it.
		if cfg.Output.Format == "json" || demoVerbose {
			err = build()
		} else {
			err = ui.WithSpinner(os.Stderr, "Baking demo module", cfg.Output.NoColor, build)
		}
		if err != nil {
			return fmt.Errorf("failed to build demo module: %w", err)
		}

		if cfg.Output.Format == "json" {
			out, err := writer.JSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		tables := writer.Tables()
		renderTables(os.Stdout, cfg, mod, tables)

		elapsed := time.Since(startTime)
		summary := fmt.Sprintf("Baked %d types in %.2fs", len(tables.TypeDefs), elapsed.Seconds())
		fmt.Printf("\n%s\n", ui.FormatSuccess(summary, cfg.Output.NoColor))
		return nil
	},
}

// demoRefs carries the builders the post-bake instantiation step reuses.
type demoRefs struct {
	stack     *emit.TypeBuilder
	stackCtor *emit.ConstructorBuilder
	push      *emit.MethodBuilder
	items     *emit.FieldBuilder
	identity  *emit.MethodBuilder
}

func buildDemoModule(ctx context.Context, cfg *config.Config, w *metadata.Writer, logger *zap.Logger) (*emit.ModuleBuilder, error) {
	mod, err := emit.NewModule(cfg.Module.Name, w, sig.NewEncoder(), &emit.ModuleOptions{
		Logger:             logger,
		DiscardBakedBodies: cfg.Module.DiscardBodies,
	})
	if err != nil {
		return nil, err
	}

	refs := &demoRefs{}
	if err := defineGeometry(mod); err != nil {
		return nil, err
	}
	if err := defineCollections(mod, refs); err != nil {
		return nil, err
	}
	if err := defineInterop(mod); err != nil {
		return nil, err
	}
	if err := defineGlobals(mod, refs); err != nil {
		return nil, err
	}

	if err := mod.CreateGlobalFunctions(); err != nil {
		return nil, err
	}
	if err := mod.CreateAll(ctx); err != nil {
		return nil, err
	}

	// Instantiations resolve against baked definitions.
	if err := instantiateGenerics(mod, refs); err != nil {
		return nil, err
	}
	return mod, nil
}

// defineGeometry builds an interface, a sealed class implementing it with
// real method bodies and token fix-ups, an enum, and a custom attribute.
func defineGeometry(mod *emit.ModuleBuilder) error {
	core := mod.Core()

	shape, err := mod.DefineType("Geometry.IShape",
		emit.TypeAttrPublic|emit.TypeAttrInterface|emit.TypeAttrAbstract, nil)
	if err != nil {
		return err
	}
	_, err = shape.DefineMethod("Area",
		emit.MethodAttrPublic|emit.MethodAttrVirtual|emit.MethodAttrAbstract|
			emit.MethodAttrHideBySig|emit.MethodAttrNewSlot,
		core.Float64)
	if err != nil {
		return err
	}

	attrBase := emit.NewImportedType("System", "Attribute",
		&emit.ImportedTypeOptions{HasParameterlessCtor: true})
	marker, err := mod.DefineType("Demo.MarkerAttribute",
		emit.TypeAttrPublic|emit.TypeAttrSealed, attrBase)
	if err != nil {
		return err
	}
	markerCtor, err := marker.DefineDefaultConstructor(emit.MethodAttrPublic)
	if err != nil {
		return err
	}

	point, err := mod.DefineType("Geometry.Point",
		emit.TypeAttrPublic|emit.TypeAttrSealed|emit.TypeAttrBeforeFieldInit, nil, shape)
	if err != nil {
		return err
	}
	x, err := point.DefineField("x", core.Int32, emit.FieldAttrPrivate)
	if err != nil {
		return err
	}
	y, err := point.DefineField("y", core.Int32, emit.FieldAttrPrivate)
	if err != nil {
		return err
	}
	instances, err := point.DefineField("instances", core.Int32,
		emit.FieldAttrPrivate|emit.FieldAttrStatic)
	if err != nil {
		return err
	}

	ctor, err := point.DefineConstructor(emit.MethodAttrPublic|emit.MethodAttrHideBySig,
		core.Int32, core.Int32)
	if err != nil {
		return err
	}
	if _, err := ctor.DefineParameter(1, emit.ParamAttrNone, "x"); err != nil {
		return err
	}
	if _, err := ctor.DefineParameter(2, emit.ParamAttrNone, "y"); err != nil {
		return err
	}
	err = ctor.SetBody(emit.MethodBody{
		// ldarg.0; ldarg.1; stfld x; ldarg.0; ldarg.2; stfld y; ret
		IL:       []byte{0x02, 0x03, 0x7D, 0, 0, 0, 0, 0x02, 0x04, 0x7D, 0, 0, 0, 0, 0x2A},
		MaxStack: 2,
		Fixups: []emit.Fixup{
			{Offset: 3, Target: x},
			{Offset: 10, Target: y},
		},
	})
	if err != nil {
		return err
	}

	lenSq, err := point.DefineMethod("LengthSquared",
		emit.MethodAttrPublic|emit.MethodAttrHideBySig, core.Int32)
	if err != nil {
		return err
	}
	err = lenSq.SetBody(emit.MethodBody{
		// x*x + y*y
		IL: []byte{
			0x02, 0x7B, 0, 0, 0, 0,
			0x02, 0x7B, 0, 0, 0, 0,
			0x5A,
			0x02, 0x7B, 0, 0, 0, 0,
			0x02, 0x7B, 0, 0, 0, 0,
			0x5A, 0x58, 0x2A,
		},
		MaxStack: 3,
		Fixups: []emit.Fixup{
			{Offset: 2, Target: x},
			{Offset: 8, Target: x},
			{Offset: 15, Target: y},
			{Offset: 21, Target: y},
		},
	})
	if err != nil {
		return err
	}

	area, err := point.DefineMethod("Area",
		emit.MethodAttrPublic|emit.MethodAttrVirtual|emit.MethodAttrFinal|
			emit.MethodAttrHideBySig|emit.MethodAttrNewSlot,
		core.Float64)
	if err != nil {
		return err
	}
	err = area.SetBody(emit.MethodBody{
		// call LengthSquared, widen to float64
		IL:       []byte{0x02, 0x28, 0, 0, 0, 0, 0x6C, 0x2A},
		MaxStack: 1,
		Fixups:   []emit.Fixup{{Offset: 2, Target: lenSq}},
	})
	if err != nil {
		return err
	}

	magnitude, err := point.DefineProperty("Magnitude", emit.PropAttrNone, core.Float64)
	if err != nil {
		return err
	}
	getMagnitude, err := point.DefineMethod("get_Magnitude",
		emit.MethodAttrPublic|emit.MethodAttrHideBySig|emit.MethodAttrSpecialName,
		core.Float64)
	if err != nil {
		return err
	}
	err = getMagnitude.SetBody(emit.MethodBody{
		IL:       []byte{0x02, 0x28, 0, 0, 0, 0, 0x6C, 0x2A},
		MaxStack: 1,
		Fixups:   []emit.Fixup{{Offset: 2, Target: lenSq}},
	})
	if err != nil {
		return err
	}
	if err := magnitude.SetGetMethod(getMagnitude); err != nil {
		return err
	}

	cctor, err := point.DefineTypeInitializer()
	if err != nil {
		return err
	}
	err = cctor.SetBody(emit.MethodBody{
		// instances = 0
		IL:       []byte{0x16, 0x80, 0, 0, 0, 0, 0x2A},
		MaxStack: 1,
		Fixups:   []emit.Fixup{{Offset: 2, Target: instances}},
	})
	if err != nil {
		return err
	}

	guard, err := point.DefineMethod("Guard",
		emit.MethodAttrPublic|emit.MethodAttrStatic|emit.MethodAttrHideBySig, nil)
	if err != nil {
		return err
	}
	err = guard.SetBody(emit.MethodBody{
		// nop; leave.s end; pop; leave.s end; end: ret
		IL:       []byte{0x00, 0xDE, 0x03, 0x26, 0xDE, 0x00, 0x2A},
		MaxStack: 1,
		Handlers: []emit.ExceptionHandler{{
			Kind:          emit.HandlerCatch,
			TryOffset:     0,
			TryLength:     3,
			HandlerOffset: 3,
			HandlerLength: 3,
			CatchType:     emit.NewImportedType("System", "Exception", nil),
		}},
	})
	if err != nil {
		return err
	}

	if err := point.SetCustomAttribute(markerCtor, []byte{0x01, 0x00, 0x00, 0x00}); err != nil {
		return err
	}

	axis, err := mod.DefineType("Geometry.Axis",
		emit.TypeAttrPublic|emit.TypeAttrSealed, core.Enum)
	if err != nil {
		return err
	}
	_, err = axis.DefineField("value__", core.Int32,
		emit.FieldAttrPublic|emit.FieldAttrSpecialName|emit.FieldAttrRTSpecialName)
	if err != nil {
		return err
	}
	for i, name := range []string{"X", "Y"} {
		member, err := axis.DefineField(name, axis,
			emit.FieldAttrPublic|emit.FieldAttrStatic|emit.FieldAttrLiteral|emit.FieldAttrHasDefault)
		if err != nil {
			return err
		}
		if err := member.SetConstant(int32(i)); err != nil {
			return err
		}
	}
	return nil
}

// defineCollections builds a generic stack with a constrained parameter, an
// array field over that parameter, a property, an event, and a nested type.
func defineCollections(mod *emit.ModuleBuilder, refs *demoRefs) error {
	core := mod.Core()

	stack, err := mod.DefineType("Collections.Stack",
		emit.TypeAttrPublic|emit.TypeAttrBeforeFieldInit, nil)
	if err != nil {
		return err
	}
	params, err := stack.DefineGenericParameters("T")
	if err != nil {
		return err
	}
	elem := params[0]
	err = elem.SetInterfaceConstraints(emit.NewImportedType("System", "IComparable", nil))
	if err != nil {
		return err
	}

	itemsType, err := emit.ArrayOf(elem)
	if err != nil {
		return err
	}
	items, err := stack.DefineField("items", itemsType, emit.FieldAttrPrivate)
	if err != nil {
		return err
	}
	size, err := stack.DefineField("size", core.Int32, emit.FieldAttrPrivate)
	if err != nil {
		return err
	}

	ctor, err := stack.DefineDefaultConstructor(emit.MethodAttrPublic)
	if err != nil {
		return err
	}

	push, err := stack.DefineMethod("Push",
		emit.MethodAttrPublic|emit.MethodAttrHideBySig, nil, elem)
	if err != nil {
		return err
	}
	if _, err := push.DefineParameter(1, emit.ParamAttrNone, "item"); err != nil {
		return err
	}
	if err := push.SetBody(emit.MethodBody{IL: []byte{0x2A}, MaxStack: 1}); err != nil {
		return err
	}

	pop, err := stack.DefineMethod("Pop",
		emit.MethodAttrPublic|emit.MethodAttrHideBySig, elem)
	if err != nil {
		return err
	}
	if _, err := pop.DeclareLocal(elem, false); err != nil {
		return err
	}
	// ldloc.0; ret
	if err := pop.SetBody(emit.MethodBody{IL: []byte{0x06, 0x2A}, MaxStack: 1}); err != nil {
		return err
	}

	count, err := stack.DefineProperty("Count", emit.PropAttrNone, core.Int32)
	if err != nil {
		return err
	}
	getCount, err := stack.DefineMethod("get_Count",
		emit.MethodAttrPublic|emit.MethodAttrHideBySig|emit.MethodAttrSpecialName,
		core.Int32)
	if err != nil {
		return err
	}
	err = getCount.SetBody(emit.MethodBody{
		// return size
		IL:       []byte{0x02, 0x7B, 0, 0, 0, 0, 0x2A},
		MaxStack: 1,
		Fixups:   []emit.Fixup{{Offset: 2, Target: size}},
	})
	if err != nil {
		return err
	}
	if err := count.SetGetMethod(getCount); err != nil {
		return err
	}

	handlerType := emit.NewImportedType("System", "EventHandler", nil)
	changed, err := stack.DefineEvent("Changed", emit.EventAttrNone, handlerType)
	if err != nil {
		return err
	}
	add, err := stack.DefineMethod("add_Changed",
		emit.MethodAttrPublic|emit.MethodAttrHideBySig|emit.MethodAttrSpecialName,
		nil, handlerType)
	if err != nil {
		return err
	}
	if err := add.SetBody(emit.MethodBody{IL: []byte{0x2A}, MaxStack: 1}); err != nil {
		return err
	}
	remove, err := stack.DefineMethod("remove_Changed",
		emit.MethodAttrPublic|emit.MethodAttrHideBySig|emit.MethodAttrSpecialName,
		nil, handlerType)
	if err != nil {
		return err
	}
	if err := remove.SetBody(emit.MethodBody{IL: []byte{0x2A}, MaxStack: 1}); err != nil {
		return err
	}
	if err := changed.SetAddOnMethod(add); err != nil {
		return err
	}
	if err := changed.SetRemoveOnMethod(remove); err != nil {
		return err
	}

	// No explicit constructor: the bake synthesizes the default one.
	enumerator, err := stack.DefineNestedType("Enumerator",
		emit.TypeAttrNestedPublic|emit.TypeAttrSealed|emit.TypeAttrBeforeFieldInit, nil)
	if err != nil {
		return err
	}
	if _, err := enumerator.DefineField("index", core.Int32, emit.FieldAttrPrivate); err != nil {
		return err
	}

	refs.stack = stack
	refs.stackCtor = ctor
	refs.push = push
	refs.items = items
	return nil
}

// defineInterop builds a static class with a platform invoke import and a
// pinned local, plus an explicit-layout value type.
func defineInterop(mod *emit.ModuleBuilder) error {
	core := mod.Core()

	native, err := mod.DefineType("Interop.Native",
		emit.TypeAttrPublic|emit.TypeAttrAbstract|emit.TypeAttrSealed, nil)
	if err != nil {
		return err
	}
	_, err = native.DefinePInvokeMethod("GetTickCount", "kernel32.dll", "",
		emit.MethodAttrPublic|emit.MethodAttrStatic|emit.MethodAttrHideBySig,
		emit.PInvokeAttrCallConvStdcall|emit.PInvokeAttrCharSetAnsi,
		core.UInt32)
	if err != nil {
		return err
	}

	bytePtr, err := emit.PointerTo(core.UInt8)
	if err != nil {
		return err
	}
	byteArr, err := emit.ArrayOf(core.UInt8)
	if err != nil {
		return err
	}
	fill, err := native.DefineMethod("Fill",
		emit.MethodAttrPublic|emit.MethodAttrStatic|emit.MethodAttrHideBySig,
		nil, bytePtr, core.Int32)
	if err != nil {
		return err
	}
	if _, err := fill.DefineParameter(1, emit.ParamAttrNone, "dst"); err != nil {
		return err
	}
	if _, err := fill.DefineParameter(2, emit.ParamAttrNone, "count"); err != nil {
		return err
	}
	if _, err := fill.DeclareLocal(byteArr, true); err != nil {
		return err
	}
	if err := fill.SetBody(emit.MethodBody{IL: []byte{0x2A}, MaxStack: 1}); err != nil {
		return err
	}

	buffer, err := mod.DefineType("Interop.Buffer",
		emit.TypeAttrPublic|emit.TypeAttrSealed|emit.TypeAttrExplicitLayout, core.ValueType)
	if err != nil {
		return err
	}
	lo, err := buffer.DefineField("lo", core.UInt64, emit.FieldAttrPublic)
	if err != nil {
		return err
	}
	if err := lo.SetOffset(0); err != nil {
		return err
	}
	hi, err := buffer.DefineField("hi", core.UInt64, emit.FieldAttrPublic)
	if err != nil {
		return err
	}
	if err := hi.SetOffset(8); err != nil {
		return err
	}
	return buffer.SetClassLayout(1, 16)
}

// defineGlobals adds module-level functions, one of them generic.
func defineGlobals(mod *emit.ModuleBuilder, refs *demoRefs) error {
	core := mod.Core()

	entry, err := mod.DefineGlobalMethod("Main",
		emit.MethodAttrPublic|emit.MethodAttrStatic|emit.MethodAttrHideBySig, core.Int32)
	if err != nil {
		return err
	}
	// return 0
	if err := entry.SetBody(emit.MethodBody{IL: []byte{0x16, 0x2A}, MaxStack: 1}); err != nil {
		return err
	}

	identity, err := mod.DefineGlobalMethod("Identity",
		emit.MethodAttrPublic|emit.MethodAttrStatic|emit.MethodAttrHideBySig, nil)
	if err != nil {
		return err
	}
	params, err := identity.DefineGenericParameters("T")
	if err != nil {
		return err
	}
	err = identity.SetSignature(params[0], nil, nil, []emit.Type{params[0]}, nil, nil)
	if err != nil {
		return err
	}
	// ldarg.0; ret
	if err := identity.SetBody(emit.MethodBody{IL: []byte{0x02, 0x2A}, MaxStack: 1}); err != nil {
		return err
	}

	refs.identity = identity
	return nil
}

// instantiateGenerics closes the generic definitions over concrete arguments
// and forces the type spec, member ref and method spec tokens out of the
// module.
func instantiateGenerics(mod *emit.ModuleBuilder, refs *demoRefs) error {
	core := mod.Core()

	intStack, err := emit.MakeGenericType(refs.stack, core.Int32)
	if err != nil {
		return err
	}
	if _, err := mod.TypeToken(intStack); err != nil {
		return err
	}

	pushInt, err := emit.MethodOn(intStack, refs.push)
	if err != nil {
		return err
	}
	if _, err := pushInt.GetToken(); err != nil {
		return err
	}

	newIntStack, err := emit.ConstructorOn(intStack, refs.stackCtor)
	if err != nil {
		return err
	}
	if _, err := newIntStack.GetToken(); err != nil {
		return err
	}

	intItems, err := emit.FieldOn(intStack, refs.items)
	if err != nil {
		return err
	}
	if _, err := intItems.GetToken(); err != nil {
		return err
	}

	identityOfString, err := refs.identity.MakeGenericMethod(core.String)
	if err != nil {
		return err
	}
	if _, err := identityOfString.GetToken(); err != nil {
		return err
	}
	return nil
}

func renderTables(w io.Writer, cfg *config.Config, mod *emit.ModuleBuilder, tables metadata.Tables) {
	noColor := cfg.Output.NoColor

	ui.Header(w, "Module", noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Name", mod.Name())
	kv.AddRow("Version ID", mod.VersionID().String())
	kv.AddRow("Types", strconv.Itoa(len(tables.TypeDefs)))
	kv.AddRow("Methods", strconv.Itoa(len(tables.Methods)))
	kv.AddRow("Fields", strconv.Itoa(len(tables.Fields)))
	kv.Render()

	printer := tablePrinter{noColor: noColor, blobMax: cfg.Output.BlobBytes}
	printer.RenderAll(w, tables)
}
