package soft

import (
	"fmt"

	"github.com/pthm-cable/slime/gpu"
)

// op is one recorded dispatch or draw with the state it captured.
type op struct {
	pass    string
	compute *computePipeline
	render  *renderPipeline
	groups  [gpu.MaxBindGroups]*bindGroup
	groupsX uint32 // workgroup counts for dispatches
	groupsY uint32
	groupsZ uint32

	// render passes only
	target *Image
	clear  *gpu.Color // set on the first draw op of a pass, or a draw-less pass
}

type commandBuffer struct {
	label string
	ops   []op
	err   error
}

func (c *commandBuffer) Label() string { return c.label }

type encoder struct {
	dev *Device
	buf *commandBuffer
}

func (d *Device) CreateCommandEncoder(label string) gpu.CommandEncoder {
	return &encoder{dev: d, buf: &commandBuffer{label: label}}
}

func (e *encoder) BeginComputePass(label string) gpu.ComputePass {
	return &computePass{enc: e, label: label}
}

func (e *encoder) BeginRenderPass(desc gpu.RenderPassDescriptor) gpu.RenderPass {
	p := &renderPass{enc: e, label: desc.Label, clear: desc.Clear}
	img, ok := desc.Target.(*Image)
	if !ok {
		e.fail(fmt.Errorf("render pass %q: foreign target: %w", desc.Label, gpu.ErrIncompatibleBinding))
	} else if img.usage&gpu.TextureUsageRenderAttachment == 0 {
		e.fail(fmt.Errorf("render pass %q: %q lacks render attachment usage: %w", desc.Label, img.label, gpu.ErrIncompatibleBinding))
	}
	p.target = img
	return p
}

func (e *encoder) Finish() gpu.CommandBuffer {
	return e.buf
}

// fail records the first encoding error; Submit reports it.
func (e *encoder) fail(err error) {
	if e.buf.err == nil {
		e.buf.err = err
	}
}

func setGroup(groups *[gpu.MaxBindGroups]*bindGroup, index uint32, g gpu.BindGroup) error {
	if index >= gpu.MaxBindGroups {
		return fmt.Errorf("bind group index %d out of range: %w", index, gpu.ErrIncompatibleBinding)
	}
	bg, ok := g.(*bindGroup)
	if !ok {
		return fmt.Errorf("bind group index %d: foreign group: %w", index, gpu.ErrIncompatibleBinding)
	}
	groups[index] = bg
	return nil
}

type computePass struct {
	enc      *encoder
	label    string
	pipeline *computePipeline
	groups   [gpu.MaxBindGroups]*bindGroup
}

func (p *computePass) SetPipeline(pl gpu.ComputePipeline) {
	cp, ok := pl.(*computePipeline)
	if !ok {
		p.enc.fail(fmt.Errorf("compute pass %q: foreign pipeline: %w", p.label, gpu.ErrIncompatibleBinding))
		return
	}
	p.pipeline = cp
}

func (p *computePass) SetBindGroup(index uint32, g gpu.BindGroup) {
	if err := setGroup(&p.groups, index, g); err != nil {
		p.enc.fail(fmt.Errorf("compute pass %q: %w", p.label, err))
	}
}

func (p *computePass) DispatchWorkgroups(x, y, z uint32) {
	if p.pipeline == nil {
		p.enc.fail(fmt.Errorf("compute pass %q: dispatch without pipeline: %w", p.label, gpu.ErrIncompatibleBinding))
		return
	}
	p.enc.buf.ops = append(p.enc.buf.ops, op{
		pass:    p.label,
		compute: p.pipeline,
		groups:  p.groups,
		groupsX: x,
		groupsY: max(y, 1),
		groupsZ: max(z, 1),
	})
}

func (p *computePass) End() {}

type renderPass struct {
	enc      *encoder
	label    string
	target   *Image
	clear    gpu.Color
	pipeline *renderPipeline
	groups   [gpu.MaxBindGroups]*bindGroup
	drew     bool
}

func (p *renderPass) SetPipeline(pl gpu.RenderPipeline) {
	rp, ok := pl.(*renderPipeline)
	if !ok {
		p.enc.fail(fmt.Errorf("render pass %q: foreign pipeline: %w", p.label, gpu.ErrIncompatibleBinding))
		return
	}
	p.pipeline = rp
}

func (p *renderPass) SetBindGroup(index uint32, g gpu.BindGroup) {
	if err := setGroup(&p.groups, index, g); err != nil {
		p.enc.fail(fmt.Errorf("render pass %q: %w", p.label, err))
	}
}

// Draw records a fullscreen draw. The software rasteriser covers every
// target texel regardless of vertex count.
func (p *renderPass) Draw(vertexCount, instanceCount uint32) {
	if p.pipeline == nil {
		p.enc.fail(fmt.Errorf("render pass %q: draw without pipeline: %w", p.label, gpu.ErrIncompatibleBinding))
		return
	}
	if vertexCount == 0 || instanceCount == 0 {
		return
	}
	o := op{pass: p.label, render: p.pipeline, groups: p.groups, target: p.target}
	if !p.drew {
		c := p.clear
		o.clear = &c
		p.drew = true
	}
	p.enc.buf.ops = append(p.enc.buf.ops, o)
}

func (p *renderPass) End() {
	if !p.drew && p.target != nil {
		c := p.clear
		p.enc.buf.ops = append(p.enc.buf.ops, op{pass: p.label, target: p.target, clear: &c})
	}
}

func (d *Device) Submit(cmds ...gpu.CommandBuffer) error {
	bufs := make([]*commandBuffer, 0, len(cmds))
	for _, c := range cmds {
		cb, ok := c.(*commandBuffer)
		if !ok {
			return fmt.Errorf("submit: foreign command buffer: %w", gpu.ErrIncompatibleBinding)
		}
		if cb.err != nil {
			return fmt.Errorf("submit %q: %w", cb.label, cb.err)
		}
		bufs = append(bufs, cb)
	}

	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	d.mu.Lock()
	for _, cb := range bufs {
		for i := range cb.ops {
			if err := validate(&cb.ops[i]); err != nil {
				d.mu.Unlock()
				return fmt.Errorf("submit %q: %w", cb.label, err)
			}
		}
	}
	d.stats.Submits++
	d.mu.Unlock()

	for _, cb := range bufs {
		for i := range cb.ops {
			d.execute(&cb.ops[i])
		}
	}
	return nil
}

// validate checks an op against its pipeline layout. Caller holds mu.
func validate(o *op) error {
	if o.target != nil && o.target.destroyed {
		return fmt.Errorf("pass %q: target %q: %w", o.pass, o.target.label, gpu.ErrDestroyed)
	}
	var layout []*bindGroupLayout
	switch {
	case o.compute != nil:
		layout = o.compute.layout
	case o.render != nil:
		layout = o.render.layout
		if o.render.format != o.target.format {
			return fmt.Errorf("pass %q: pipeline targets %s, attachment is %s: %w",
				o.pass, o.render.format, o.target.format, gpu.ErrIncompatibleBinding)
		}
	case o.target != nil && o.clear != nil:
		return nil
	default:
		return fmt.Errorf("pass %q: no pipeline set: %w", o.pass, gpu.ErrIncompatibleBinding)
	}

	for i, want := range layout {
		g := o.groups[i]
		if g == nil {
			return fmt.Errorf("pass %q: bind group %d unset, want layout %q: %w", o.pass, i, want.label, gpu.ErrIncompatibleBinding)
		}
		if g.layout != want {
			return fmt.Errorf("pass %q: bind group %d %q has layout %q, want %q: %w",
				o.pass, i, g.label, g.layout.label, want.label, gpu.ErrIncompatibleBinding)
		}
		if b := g.destroyedBuffer(); b != nil {
			return fmt.Errorf("pass %q: bind group %d uses %q: %w", o.pass, i, b.label, gpu.ErrDestroyed)
		}
		if img := g.destroyedImage(); img != nil {
			return fmt.Errorf("pass %q: bind group %d uses %q: %w", o.pass, i, img.label, gpu.ErrDestroyed)
		}
		if o.target != nil {
			for _, img := range g.textures {
				if img == o.target {
					return fmt.Errorf("pass %q: %q is both sampled and the render target: %w", o.pass, img.label, gpu.ErrHazard)
				}
			}
		}
	}
	return nil
}

func (d *Device) execute(o *op) {
	b := &Bindings{groups: o.groups}

	switch {
	case o.compute != nil:
		wg := o.compute.kernel.WorkgroupSize
		n := int(o.groupsX) * int(o.groupsY) * int(o.groupsZ) * int(wg)
		for _, g := range o.groups {
			if g == nil {
				continue
			}
			for _, img := range g.storage {
				img.beginStorage()
			}
		}

		run := o.compute.kernel.Run
		d.pool.run(n, func(start, end int) {
			for id := start; id < end; id++ {
				run(b, uint32(id))
			}
		})

		for _, g := range o.groups {
			if g == nil {
				continue
			}
			for _, img := range g.storage {
				img.resolve()
			}
		}

		d.mu.Lock()
		d.stats.Dispatches[o.compute.entry]++
		d.stats.Workgroups += uint64(o.groupsX) * uint64(o.groupsY) * uint64(o.groupsZ)
		d.mu.Unlock()

	default:
		target := o.target
		if o.clear != nil {
			target.clear(*o.clear)
		}
		if o.render == nil {
			return
		}
		shade := o.render.kernel
		w := target.width
		d.pool.run(target.height, func(start, end int) {
			for y := start; y < end; y++ {
				for x := 0; x < w; x++ {
					target.Store(x, y, shade(b, x, y))
				}
			}
		})

		d.mu.Lock()
		d.stats.Draws[o.render.entry]++
		d.mu.Unlock()
	}
}
