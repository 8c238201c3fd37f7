package emit_test

import (
	"fmt"

	"github.com/anvil-rt/anvil/emit"
	"github.com/anvil-rt/anvil/metadata"
	"github.com/anvil-rt/anvil/sig"
)

// ExampleNewToken demonstrates the packed token layout
func ExampleNewToken() {
	tok := emit.NewToken(emit.TokenKindTypeDef, 2)

	fmt.Println(tok)
	fmt.Println(tok.Kind(), tok.Index())

	// Output:
	// TypeDef:0x02000002
	// TypeDef 2
}

// Example demonstrates defining and baking a minimal type. The module
// pseudo-type occupies the first TypeDef row, so the first user type lands
// on row two
func Example() {
	mod, err := emit.NewModule("demo", metadata.NewWriter(), sig.NewEncoder(), nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	core := mod.Core()

	point, err := mod.DefineType("Geometry.Point", emit.TypeAttrPublic|emit.TypeAttrSealed, core.Object)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	x, err := point.DefineField("x", core.Float64, emit.FieldAttrPublic)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	handle, err := point.CreateType()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(point.Token())
	fmt.Println(x.Token())
	fmt.Printf("handle %d\n", handle)

	// Output:
	// TypeDef:0x02000002
	// FieldDef:0x04000001
	// handle 1
}
