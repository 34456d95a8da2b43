package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/slime/gpu"
	"github.com/pthm-cable/slime/shaders"
)

// PipelineState is the readiness of the program set. It is one of
// WaitingForTrailImages, Pending, Cached or Failed.
type PipelineState interface {
	pipelineState()
}

// WaitingForTrailImages is the initial state; compilation needs the trail
// format, so nothing is queued until the images exist.
type WaitingForTrailImages struct{}

// Pending holds the queued compilations.
type Pending struct {
	IDs      [programCount]gpu.PipelineID
	Attempts [programCount]int
}

// Cached holds the ready programs. Terminal.
type Cached struct {
	Init    gpu.ComputePipeline
	Update  gpu.ComputePipeline
	Project gpu.ComputePipeline
	Blur    gpu.RenderPipeline
}

// Failed is reached once a program exhausts its compile retries. Terminal.
type Failed struct {
	Program Program
	Err     error
}

func (WaitingForTrailImages) pipelineState() {}
func (Pending) pipelineState()               {}
func (Cached) pipelineState()                {}
func (Failed) pipelineState()                {}

// StateName returns a short label for logs and telemetry.
func StateName(s PipelineState) string {
	switch s.(type) {
	case WaitingForTrailImages:
		return "waiting_for_trail"
	case Pending:
		return "pending"
	case Cached:
		return "cached"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PipelineLoader drives the program set through its readiness states.
type PipelineLoader struct {
	dev     gpu.Device
	layouts *Layouts
	retries int
	state   PipelineState
}

// NewPipelineLoader starts in WaitingForTrailImages. retries bounds how
// many times a failed program is re-queued before the loader gives up.
func NewPipelineLoader(dev gpu.Device, layouts *Layouts, retries int) *PipelineLoader {
	return &PipelineLoader{
		dev:     dev,
		layouts: layouts,
		retries: max(retries, 0),
		state:   WaitingForTrailImages{},
	}
}

func (l *PipelineLoader) State() PipelineState { return l.state }

// Ready returns the compiled programs once the state is Cached.
func (l *PipelineLoader) Ready() (Cached, bool) {
	c, ok := l.state.(Cached)
	return c, ok
}

// Err returns the terminal compile error, or nil.
func (l *PipelineLoader) Err() error {
	if f, ok := l.state.(Failed); ok {
		return f.Err
	}
	return nil
}

// Poll advances the state without blocking. trail may be nil while the
// field images have not been allocated.
func (l *PipelineLoader) Poll(trail *Trail) {
	switch s := l.state.(type) {
	case WaitingForTrailImages:
		if trail == nil {
			return
		}
		var p Pending
		for prog := ProgramInit; prog < programCount; prog++ {
			p.IDs[prog] = l.queue(prog, trail.Format())
		}
		l.state = p
		slog.Debug("pipelines queued", "format", trail.Format().String())
	case Pending:
		l.state = l.pollPending(s, trail)
	case Cached, Failed:
	}
}

func (l *PipelineLoader) queue(p Program, format gpu.TextureFormat) gpu.PipelineID {
	label := p.String() + " pipeline"
	if p == ProgramBlur {
		return l.dev.QueueRenderPipeline(gpu.RenderPipelineDescriptor{
			Label:         label,
			Layout:        l.layouts.ProgramLayout(p),
			Module:        shaders.Module,
			FragmentEntry: p.EntryPoint(),
			TargetFormat:  format,
		})
	}
	return l.dev.QueueComputePipeline(gpu.ComputePipelineDescriptor{
		Label:      label,
		Layout:     l.layouts.ProgramLayout(p),
		Module:     shaders.Module,
		EntryPoint: p.EntryPoint(),
	})
}

func (l *PipelineLoader) pollPending(s Pending, trail *Trail) PipelineState {
	var (
		compute [ProgramBlur]gpu.ComputePipeline
		blur    gpu.RenderPipeline
		ready   = true
	)

	for prog := ProgramInit; prog < programCount; prog++ {
		var (
			status gpu.PipelineStatus
			err    error
		)
		if prog == ProgramBlur {
			blur, status, err = l.dev.RenderPipeline(s.IDs[prog])
		} else {
			compute[prog], status, err = l.dev.ComputePipeline(s.IDs[prog])
		}

		switch status {
		case gpu.PipelineReady:
		case gpu.PipelineQueued:
			ready = false
		case gpu.PipelineFailed:
			ready = false
			if err == nil {
				err = errors.New("compile failed without diagnostic")
			}
			s.Attempts[prog]++
			slog.Warn("pipeline compile failed",
				"program", prog.String(),
				"attempt", s.Attempts[prog],
				"err", err,
			)
			if s.Attempts[prog] > l.retries {
				return Failed{Program: prog, Err: fmt.Errorf("%s program: %w", prog, err)}
			}
			s.IDs[prog] = l.queue(prog, trail.Format())
		}
	}

	if !ready {
		return s
	}
	return Cached{
		Init:    compute[ProgramInit],
		Update:  compute[ProgramUpdate],
		Project: compute[ProgramProject],
		Blur:    blur,
	}
}
