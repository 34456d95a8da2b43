// Package sim runs the physarum trail simulation on a gpu.Device: it keeps
// per-species device buffers in step with the host registry, waits for the
// programs to compile, and records one command buffer per frame.
package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/slime/gpu"
)

// Config sizes the trail field and tunes the device programs.
type Config struct {
	Width          uint32
	Height         uint32
	Format         gpu.TextureFormat
	WorkgroupSize  uint32
	CompileRetries int
	Seed           int64
}

// PhaseTimer receives per-phase timing marks. telemetry.PerfCollector
// satisfies it.
type PhaseTimer interface {
	StartPhase(name string)
}

// Phase names reported to a PhaseTimer.
const (
	PhaseSync      = "sync"
	PhaseBroadcast = "broadcast"
	PhaseRecord    = "record"
	PhaseSubmit    = "submit"
)

// Simulation wires the loader, cache, broadcaster, driver and trail.
type Simulation struct {
	dev gpu.Device
	cfg Config

	layouts     *Layouts
	loader      *PipelineLoader
	cache       *Cache
	broadcaster *Broadcaster
	driver      *Driver
	trail       *Trail
	timer       PhaseTimer

	frame    uint64
	lastSync SyncResult
}

// New builds the layouts and uniforms. The trail images are allocated on
// the first frame; until they exist the loader waits.
func New(dev gpu.Device, cfg Config) (*Simulation, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("trail field %dx%d: %w", cfg.Width, cfg.Height, gpu.ErrInvalidSize)
	}
	if cfg.WorkgroupSize == 0 {
		cfg.WorkgroupSize = 256
	}

	layouts, err := NewLayouts(dev, cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("building layouts: %w", err)
	}
	broadcaster, err := NewBroadcaster(dev, layouts, cfg.Seed)
	if err != nil {
		layouts.Release()
		return nil, err
	}

	return &Simulation{
		dev:         dev,
		cfg:         cfg,
		layouts:     layouts,
		loader:      NewPipelineLoader(dev, layouts, cfg.CompileRetries),
		cache:       NewCache(dev, layouts),
		broadcaster: broadcaster,
		driver:      NewDriver(dev, layouts, cfg.WorkgroupSize),
	}, nil
}

// SetPhaseTimer installs a timer, or removes it when t is nil.
func (s *Simulation) SetPhaseTimer(t PhaseTimer) {
	s.timer = t
	s.driver.timer = t
}

func (s *Simulation) phase(name string) {
	if s.timer != nil {
		s.timer.StartPhase(name)
	}
}

// Frame advances the simulation by one frame given the host snapshot and
// the current options. Until the programs are compiled it records nothing.
func (s *Simulation) Frame(species []Species, opts Options) FrameReport {
	s.frame++

	if s.trail == nil {
		trail, err := NewTrail(s.dev, s.layouts, s.cfg.Width, s.cfg.Height, s.cfg.Format)
		if err != nil {
			slog.Debug("trail allocation failed", "err", err)
		} else {
			s.trail = trail
		}
	}

	s.loader.Poll(s.trail)
	report := FrameReport{Frame: s.frame, State: StateName(s.loader.State())}
	programs, ok := s.loader.Ready()
	if !ok {
		return report
	}

	s.phase(PhaseBroadcast)
	bc := s.broadcaster.Broadcast(opts)

	s.phase(PhaseSync)
	sync := s.cache.Sync(species)
	s.lastSync = sync

	s.phase(PhaseRecord)
	run, err := s.driver.Run(programs, sync.Live, s.trail, s.broadcaster)
	run.Frame = s.frame
	run.State = report.State
	run.Ready = true
	run.Seed = bc.Seed
	run.OptionsWritten = bc.OptionsWritten
	run.Allocated = len(sync.Allocated)
	run.Freed = len(sync.Freed)
	run.AllocFailed = len(sync.Failed)
	if err != nil {
		slog.Error("frame dropped", "frame", s.frame, "err", err)
		run.Initialized = nil
		return run
	}

	s.cache.Activate(run.Initialized...)
	return run
}

// Ready reports whether the programs are compiled.
func (s *Simulation) Ready() bool {
	_, ok := s.loader.Ready()
	return ok
}

func (s *Simulation) PipelineState() PipelineState { return s.loader.State() }

// PipelineErr returns the terminal compile error, if any.
func (s *Simulation) PipelineErr() error { return s.loader.Err() }

// Trail returns the trail field, or nil before it is allocated.
func (s *Simulation) Trail() *Trail { return s.trail }

func (s *Simulation) Cache() *Cache { return s.cache }

// LastSync returns the cache result of the most recent recorded frame.
func (s *Simulation) LastSync() SyncResult { return s.lastSync }

// Options returns the last options uploaded.
func (s *Simulation) Options() (Options, bool) { return s.broadcaster.Options() }

func (s *Simulation) FrameCount() uint64 { return s.frame }

// ReadCurrent reads back the presented trail image as RGBA8.
func (s *Simulation) ReadCurrent() ([]byte, uint32, uint32, error) {
	if s.trail == nil {
		return nil, 0, 0, fmt.Errorf("trail not allocated")
	}
	w, h := s.trail.Size()
	px, err := s.dev.ReadTexture(s.trail.Current())
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading trail: %w", err)
	}
	return px, w, h, nil
}

// Release destroys every device allocation the simulation owns: species
// buffers, uniforms and the trail images.
func (s *Simulation) Release() {
	s.cache.Release()
	s.broadcaster.Release()
	s.layouts.Release()
	if s.trail != nil {
		s.trail.Release()
		s.trail = nil
	}
}
