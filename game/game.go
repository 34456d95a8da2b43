// Package game hosts the slime simulation: an ark world of species
// entities, the software device, and the presentation loops.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/slime/camera"
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/gpu/soft"
	"github.com/pthm-cable/slime/renderer"
	"github.com/pthm-cable/slime/shaders"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/systems"
	"github.com/pthm-cable/slime/telemetry"
	"github.com/pthm-cable/slime/ui"
)

// Options configures a Game beyond the loaded config.
type Options struct {
	Seed           int64   // overrides simulation.seed when non-zero
	LogStats       bool    // log stats and perf lines every window
	StatsWindowSec float64 // seconds between stats flushes
	OutputDir      string  // CSV + config snapshot directory (empty = disabled)
	Headless       bool    // no window, no texture uploads
	StepsPerUpdate int     // simulation frames per Update call

	// Config overrides config.Cfg() when set
	Config *config.Config
}

// Game owns the species world, the device and the simulation.
type Game struct {
	world   *ecs.World
	species *systems.SpeciesRegistry

	device     *soft.Device
	simulation *sim.Simulation
	options    sim.Options

	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsWindow   time.Duration
	lastFlush     time.Time
	started       time.Time
	lastReport    sim.FrameReport
	lastStats     telemetry.FrameStats

	headless       bool
	paused         bool
	stepsPerUpdate int
	spawnCount     int

	// Presentation (windowed mode only)
	screenWidth, screenHeight float32
	camera                    *camera.Camera
	trailView                 *renderer.TrailView
	hud                       *ui.HUD
	optionsPanel              *ui.OptionsPanel
	perfPanel                 *ui.PerfPanel
	showPerf                  bool
}

// NewGameWithOptions builds the device and simulation from config.Cfg()
// and spawns the configured species.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	if opts.Seed != 0 {
		cfg.Simulation.Seed = opts.Seed
	}
	if opts.StepsPerUpdate < 1 {
		opts.StepsPerUpdate = 1
	}
	if opts.StatsWindowSec <= 0 {
		opts.StatsWindowSec = cfg.Telemetry.StatsWindow
	}

	device := soft.New(soft.Options{
		Modules: map[string]soft.Module{
			shaders.Module: shaders.Simulate(cfg.Derived.WorkgroupSize),
		},
		CompileLatency: cfg.Derived.CompileLatency,
		MemoryLimit:    cfg.Derived.MemoryLimit,
		Workers:        cfg.GPU.Workers,
	})

	simulation, err := sim.New(device, sim.Config{
		Width:          cfg.Derived.FieldW,
		Height:         cfg.Derived.FieldH,
		Format:         cfg.Derived.Format,
		WorkgroupSize:  cfg.Derived.WorkgroupSize,
		CompileRetries: cfg.GPU.CompileRetries,
		Seed:           cfg.Simulation.Seed,
	})
	if err != nil {
		device.Close()
		return nil, fmt.Errorf("creating simulation: %w", err)
	}

	outputManager, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		device.Close()
		return nil, err
	}
	if err := outputManager.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	world := ecs.NewWorld()
	g := &Game{
		world:      world,
		species:    systems.NewSpeciesRegistry(world),
		device:     device,
		simulation: simulation,
		options: sim.ClampOptions(sim.Options{
			Evaporation: cfg.Derived.Evaporation32,
			Diffusion:   cfg.Derived.Diffusion32,
		}),
		perfCollector:  telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		outputManager:  outputManager,
		logStats:       opts.LogStats,
		statsWindow:    time.Duration(opts.StatsWindowSec * float64(time.Second)),
		headless:       opts.Headless,
		stepsPerUpdate: opts.StepsPerUpdate,
		screenWidth:    float32(cfg.Screen.Width),
		screenHeight:   float32(cfg.Screen.Height),
	}
	simulation.SetPhaseTimer(g.perfCollector)

	g.spawnInitialSpecies(cfg.Species)

	if !g.headless {
		g.camera = camera.New(g.screenWidth, g.screenHeight, float32(cfg.Derived.FieldW), float32(cfg.Derived.FieldH))
		g.trailView = renderer.NewTrailView(int(cfg.Derived.FieldW), int(cfg.Derived.FieldH))
		g.hud = ui.NewHUD()
		g.optionsPanel = ui.NewOptionsPanel(int32(cfg.Screen.Width)-290, 10, 280)
		g.perfPanel = ui.NewPerfPanel(16, 130)
	}

	g.started = time.Now()
	g.lastFlush = g.started
	return g, nil
}

// step advances the simulation by one frame.
func (g *Game) step() sim.FrameReport {
	r := g.simulation.Frame(g.species.Extract(), g.options)
	g.lastReport = r
	return r
}

// UpdateHeadless runs StepsPerUpdate frames without presenting. Each
// simulation frame is one perf sample.
func (g *Game) UpdateHeadless() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.perfCollector.BeginFrame()
		g.step()
		g.perfCollector.EndFrame()
	}
	g.flushTelemetry()
}

// Update handles input and runs the simulation frames for one presented
// frame. The perf sample opened here is closed by Draw.
func (g *Game) Update() {
	g.perfCollector.BeginFrame()
	g.handleInput()
	if !g.paused {
		for i := 0; i < g.stepsPerUpdate; i++ {
			g.step()
		}
	}
	g.flushTelemetry()
}

// Frame returns the number of simulation frames run so far.
func (g *Game) Frame() uint64 { return g.simulation.FrameCount() }

// LastReport returns the report of the most recent frame.
func (g *Game) LastReport() sim.FrameReport { return g.lastReport }

// Failed returns the terminal pipeline error, if any.
func (g *Game) Failed() error { return g.simulation.PipelineErr() }

// Species exposes the registry for runtime edits.
func (g *Game) Species() *systems.SpeciesRegistry { return g.species }

// SetOptions replaces the global trail options; they are clamped.
func (g *Game) SetOptions(o sim.Options) { g.options = sim.ClampOptions(o) }

// TogglePause flips the paused state.
func (g *Game) TogglePause() { g.paused = !g.paused }

// ReadTrail returns the presented trail image as RGBA8.
func (g *Game) ReadTrail() ([]byte, uint32, uint32, error) {
	return g.simulation.ReadCurrent()
}

// Unload flushes output and releases device resources.
func (g *Game) Unload() {
	if g.trailView != nil {
		g.trailView.Unload()
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	g.simulation.Release()
	g.device.Close()
}
