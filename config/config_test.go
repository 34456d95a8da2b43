package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/slime/gpu"
	"github.com/pthm-cable/slime/shaders"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Derived.FieldW != 640 || cfg.Derived.FieldH != 400 {
		t.Errorf("field = %dx%d, want 640x400", cfg.Derived.FieldW, cfg.Derived.FieldH)
	}
	if cfg.Derived.Format != gpu.FormatRGBA8Unorm {
		t.Errorf("format = %s", cfg.Derived.Format)
	}
	if cfg.Derived.WorkgroupSize != 256 {
		t.Errorf("workgroup size = %d", cfg.Derived.WorkgroupSize)
	}
	if cfg.Derived.MemoryLimit != 512<<20 {
		t.Errorf("memory limit = %d", cfg.Derived.MemoryLimit)
	}
	if len(cfg.Species) != 2 || cfg.Species[0].Name != "first" {
		t.Errorf("species = %+v", cfg.Species)
	}
	if cfg.Simulation.Seed == 0 {
		t.Error("zero seed not replaced")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slime.yaml")
	overlay := `
field:
  width: 0
  format: rgba32float
simulation:
  seed: 99
species:
  - name: lone
    num_agents: 10
`
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// width 0 falls back to the screen, height keeps the default
	if cfg.Derived.FieldW != uint32(cfg.Screen.Width) || cfg.Derived.FieldH != 400 {
		t.Errorf("field = %dx%d", cfg.Derived.FieldW, cfg.Derived.FieldH)
	}
	if cfg.Derived.Format != gpu.FormatRGBA32Float {
		t.Errorf("format = %s", cfg.Derived.Format)
	}
	if cfg.Simulation.Seed != 99 {
		t.Errorf("seed = %d", cfg.Simulation.Seed)
	}
	if len(cfg.Species) != 1 {
		t.Fatalf("species list not replaced: %+v", cfg.Species)
	}
	if got := cfg.Species[0].Qualities(); got != shaders.DefaultQualities {
		t.Errorf("defaulted qualities = %+v, want %+v", got, shaders.DefaultQualities)
	}
	// untouched sections keep their defaults
	if cfg.GPU.CompileRetries != 2 {
		t.Errorf("compile retries = %d", cfg.GPU.CompileRetries)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("field:\n  format: bgra\n"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if again.Simulation != cfg.Simulation || again.Derived.FieldW != cfg.Derived.FieldW {
		t.Errorf("round trip changed values: %+v vs %+v", again.Simulation, cfg.Simulation)
	}
}
