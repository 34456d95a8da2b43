package sim

import (
	"fmt"

	"github.com/pthm-cable/slime/gpu"
)

// FrameReport summarises one frame.
type FrameReport struct {
	Frame    uint64
	State    string
	Ready    bool
	Species  int
	Agents   uint64
	Inits    int
	Updates  int
	Projects int
	Draws    int
	Swapped  bool
	Seed     uint32

	OptionsWritten bool
	Allocated      int
	Freed          int
	AllocFailed    int

	// Initialized lists the species whose init program ran this frame.
	Initialized []SpeciesID
}

// Driver records and submits the passes of one frame.
type Driver struct {
	dev           gpu.Device
	layouts       *Layouts
	workgroupSize uint32
	timer         PhaseTimer
}

func NewDriver(dev gpu.Device, layouts *Layouts, workgroupSize uint32) *Driver {
	return &Driver{dev: dev, layouts: layouts, workgroupSize: workgroupSize}
}

// Run records every agent pass, then every project pass, then the two blur
// passes into one command buffer and submits it. The trail is swapped only
// if the submission succeeds.
func (d *Driver) Run(p Cached, live []Entry, trail *Trail, b *Broadcaster) (FrameReport, error) {
	var r FrameReport
	enc := d.dev.CreateCommandEncoder("simulation frame")

	for _, e := range live {
		n := e.Species.NumAgents
		r.Species++
		r.Agents += uint64(n)

		pass := enc.BeginComputePass(fmt.Sprintf("[species %s] agents", e.Species.Name))
		pass.SetBindGroup(0, e.Group)
		pass.SetBindGroup(2, d.layouts.EmptyGroup)
		pass.SetBindGroup(3, b.SeedGroup)
		pass.SetBindGroup(4, b.OptionsGroup)
		switch e.State {
		case NeedsInit:
			pass.SetPipeline(p.Init)
			pass.SetBindGroup(1, d.layouts.EmptyGroup)
			r.Inits++
			r.Initialized = append(r.Initialized, e.Species.ID)
		case Active:
			pass.SetPipeline(p.Update)
			pass.SetBindGroup(1, trail.CurrentSampled())
			r.Updates++
		}
		pass.DispatchWorkgroups(gpu.WorkgroupCount(n, d.workgroupSize), 1, 1)
		pass.End()
	}

	for _, e := range live {
		pass := enc.BeginComputePass(fmt.Sprintf("[species %s] project", e.Species.Name))
		pass.SetPipeline(p.Project)
		pass.SetBindGroup(0, e.Group)
		pass.SetBindGroup(1, d.layouts.EmptyGroup)
		pass.SetBindGroup(2, trail.CurrentStorage())
		pass.SetBindGroup(3, d.layouts.EmptyGroup)
		pass.SetBindGroup(4, b.OptionsGroup)
		pass.DispatchWorkgroups(gpu.WorkgroupCount(e.Species.NumAgents, d.workgroupSize), 1, 1)
		pass.End()
		r.Projects++
	}

	d.blur(enc, p.Blur, "blur horizontal", trail.CurrentSampled(), trail.Intermediate(), d.layouts.Horizontal, b)
	d.blur(enc, p.Blur, "blur vertical", trail.IntermediateSampled(), trail.Scratch(), d.layouts.Vertical, b)
	r.Draws = 2

	if d.timer != nil {
		d.timer.StartPhase(PhaseSubmit)
	}
	if err := d.dev.Submit(enc.Finish()); err != nil {
		return r, fmt.Errorf("submitting frame: %w", err)
	}
	trail.Swap()
	r.Swapped = true
	return r, nil
}

func (d *Driver) blur(enc gpu.CommandEncoder, pipeline gpu.RenderPipeline, label string, src gpu.BindGroup, dst gpu.Texture, dir gpu.BindGroup, b *Broadcaster) {
	pass := enc.BeginRenderPass(gpu.RenderPassDescriptor{Label: label, Target: dst, Clear: gpu.Black})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, d.layouts.EmptyGroup)
	pass.SetBindGroup(1, src)
	pass.SetBindGroup(2, d.layouts.EmptyGroup)
	pass.SetBindGroup(3, dir)
	pass.SetBindGroup(4, b.OptionsGroup)
	pass.Draw(4, 1)
	pass.End()
}
