package main

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/anvil-rt/anvil/internal/cli/config"
	"github.com/anvil-rt/anvil/metadata"
)

func demoConfig() *config.Config {
	return &config.Config{
		Module: config.ModuleConfig{Name: "demo"},
		Output: config.OutputConfig{Format: "table", BlobBytes: 12},
		Log:    config.LogConfig{Level: "off"},
	}
}

// TestBuildDemoModule bakes the showcase module and checks the tables it
// leaves behind
func TestBuildDemoModule(t *testing.T) {
	w := metadata.NewWriter()
	mod, err := buildDemoModule(context.Background(), demoConfig(), w, zap.NewNop())
	if err != nil {
		t.Fatalf("buildDemoModule: %v", err)
	}

	if _, ok := mod.GetType("Geometry.Point"); !ok {
		t.Error("Geometry.Point missing from the module registry")
	}
	if _, ok := mod.GetType("Collections.Stack+Enumerator"); !ok {
		t.Error("nested Enumerator missing from the module registry")
	}

	tables := w.Tables()
	if len(tables.TypeDefs) != 9 {
		t.Errorf("TypeDefs = %d, want 9", len(tables.TypeDefs))
	}
	for _, row := range tables.TypeDefs {
		if row.Handle == 0 {
			t.Errorf("type %s was not finalized", row.Name)
		}
	}
	if len(tables.ImplMaps) != 1 {
		t.Errorf("ImplMaps = %d, want 1", len(tables.ImplMaps))
	}
	if len(tables.ClassLayouts) != 1 {
		t.Errorf("ClassLayouts = %d, want 1", len(tables.ClassLayouts))
	}
	if len(tables.MethodSpecs) == 0 {
		t.Error("expected a method spec from the generic instantiation")
	}
	if len(tables.MethodSemantics) == 0 {
		t.Error("expected semantics rows from the property and event accessors")
	}
	if len(tables.CustomAttributes) == 0 {
		t.Error("expected a custom attribute row")
	}
}

// TestBuildDemoModuleDiscardBodies checks the discard option releases
// builder memory without touching the emitted tables
func TestBuildDemoModuleDiscardBodies(t *testing.T) {
	cfg := demoConfig()
	cfg.Module.DiscardBodies = true

	w := metadata.NewWriter()
	if _, err := buildDemoModule(context.Background(), cfg, w, zap.NewNop()); err != nil {
		t.Fatalf("buildDemoModule: %v", err)
	}

	baked := 0
	for _, row := range w.Tables().Methods {
		if row.Body != nil && len(row.Body.IL) > 0 {
			baked++
		}
	}
	if baked == 0 {
		t.Error("discarding staged bodies must not strip the emitted tables")
	}
}
