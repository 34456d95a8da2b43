// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/slime/gpu"
	"github.com/pthm-cable/slime/shaders"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Field      FieldConfig      `yaml:"field"`
	Simulation SimulationConfig `yaml:"simulation"`
	GPU        GPUConfig        `yaml:"gpu"`
	Species    []SpeciesConfig  `yaml:"species"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// FieldConfig holds trail field dimensions.
// The field is stretched over the window, so it may be smaller than the screen.
type FieldConfig struct {
	Width  int    `yaml:"width"`  // Texels (0 = use screen width)
	Height int    `yaml:"height"` // Texels (0 = use screen height)
	Format string `yaml:"format"` // rgba8unorm or rgba32float
}

// SimulationConfig holds the global trail parameters.
type SimulationConfig struct {
	Evaporation float64 `yaml:"evaporation"` // Subtracted per blur pass, [0,1]
	Diffusion   float64 `yaml:"diffusion"`   // Blend toward the blurred value, [0,1]
	Seed        int64   `yaml:"seed"`        // Per-frame seed sequence source (0 = time based)
}

// GPUConfig holds device parameters.
type GPUConfig struct {
	WorkgroupSize    int `yaml:"workgroup_size"`     // Invocations per workgroup
	CompileLatencyMS int `yaml:"compile_latency_ms"` // Simulated pipeline compile time
	CompileRetries   int `yaml:"compile_retries"`    // Re-queues per program before giving up
	MemoryLimitMB    int `yaml:"memory_limit_mb"`    // Device budget (0 = unlimited)
	Workers          int `yaml:"workers"`            // Dispatch goroutines (0 = GOMAXPROCS)
}

// SpeciesConfig describes one species spawned at startup.
// Zero-valued qualities fall back to the defaults.
type SpeciesConfig struct {
	Name         string    `yaml:"name"`
	NumAgents    int       `yaml:"num_agents"`
	Color        []float64 `yaml:"color"`         // RGB in [0,1]
	Speed        float64   `yaml:"speed"`         // Field fraction per frame
	TurnSpeed    float64   `yaml:"turn_speed"`    // Radians per frame
	ViewDistance float64   `yaml:"view_distance"` // Field fraction
	FieldOfView  float64   `yaml:"field_of_view"` // Radians between forward and side sensors
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds between stats lines
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Frames averaged for perf stats
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FieldW         uint32            // Effective field width
	FieldH         uint32            // Effective field height
	Format         gpu.TextureFormat // Parsed Field.Format
	Evaporation32  float32
	Diffusion32    float32
	WorkgroupSize  uint32
	CompileLatency time.Duration
	MemoryLimit    uint64 // bytes
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file; a species list replaces the default one
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	format, err := gpu.ParseTextureFormat(c.Field.Format)
	if err != nil {
		return fmt.Errorf("field.format: %w", err)
	}
	c.Derived.Format = format

	fieldW := c.Field.Width
	if fieldW <= 0 {
		fieldW = c.Screen.Width
	}
	fieldH := c.Field.Height
	if fieldH <= 0 {
		fieldH = c.Screen.Height
	}
	if fieldW <= 0 || fieldH <= 0 {
		return fmt.Errorf("field size %dx%d must be positive", fieldW, fieldH)
	}
	c.Derived.FieldW = uint32(fieldW)
	c.Derived.FieldH = uint32(fieldH)

	c.Derived.Evaporation32 = float32(c.Simulation.Evaporation)
	c.Derived.Diffusion32 = float32(c.Simulation.Diffusion)

	if c.GPU.WorkgroupSize <= 0 {
		c.GPU.WorkgroupSize = 256
	}
	c.Derived.WorkgroupSize = uint32(c.GPU.WorkgroupSize)
	c.Derived.CompileLatency = time.Duration(c.GPU.CompileLatencyMS) * time.Millisecond
	c.Derived.MemoryLimit = uint64(max(c.GPU.MemoryLimitMB, 0)) << 20

	if c.Simulation.Seed == 0 {
		c.Simulation.Seed = time.Now().UnixNano()
	}

	// Synthesize a single species if none specified
	if len(c.Species) == 0 {
		c.Species = []SpeciesConfig{{Name: "first", NumAgents: 1 << 14}}
	}

	def := shaders.DefaultQualities
	for i := range c.Species {
		sp := &c.Species[i]
		if sp.Name == "" {
			sp.Name = fmt.Sprintf("species-%d", i)
		}
		if len(sp.Color) != 3 {
			sp.Color = []float64{float64(def.Color[0]), float64(def.Color[1]), float64(def.Color[2])}
		}
		if sp.Speed == 0 {
			sp.Speed = float64(def.Speed)
		}
		if sp.TurnSpeed == 0 {
			sp.TurnSpeed = float64(def.TurnSpeed)
		}
		if sp.ViewDistance == 0 {
			sp.ViewDistance = float64(def.ViewDistance)
		}
		if sp.FieldOfView == 0 {
			sp.FieldOfView = float64(def.FieldOfView)
		}
	}
	return nil
}

// Refresh recomputes derived values after fields were edited in place.
func (c *Config) Refresh() error {
	return c.computeDerived()
}

// Qualities converts the species parameters to their device form.
func (s SpeciesConfig) Qualities() shaders.Qualities {
	q := shaders.Qualities{
		Speed:        float32(s.Speed),
		TurnSpeed:    float32(s.TurnSpeed),
		ViewDistance: float32(s.ViewDistance),
		FieldOfView:  float32(s.FieldOfView),
	}
	for i := 0; i < 3 && i < len(s.Color); i++ {
		q.Color[i] = float32(s.Color[i])
	}
	return q
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
