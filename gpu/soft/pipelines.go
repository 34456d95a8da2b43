package soft

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/slime/gpu"
)

// pipelineJob tracks one asynchronous compilation.
type pipelineJob struct {
	status  gpu.PipelineStatus
	err     error
	compute *computePipeline
	render  *renderPipeline
}

type computePipeline struct {
	label  string
	entry  string
	layout []*bindGroupLayout
	kernel ComputeKernel
}

func (p *computePipeline) Label() string { return p.label }

type renderPipeline struct {
	label  string
	entry  string
	layout []*bindGroupLayout
	format gpu.TextureFormat
	kernel FragmentKernel
}

func (p *renderPipeline) Label() string { return p.label }

func (d *Device) QueueComputePipeline(desc gpu.ComputePipelineDescriptor) gpu.PipelineID {
	return d.queue(desc.Label, func() (*pipelineJob, error) {
		layout, err := resolveLayout(desc.Layout)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		kernel, ok := d.modules[desc.Module].Compute[desc.EntryPoint]
		d.mu.Unlock()
		if !ok || kernel.Run == nil || kernel.WorkgroupSize == 0 {
			return nil, fmt.Errorf("module %q has no compute entry point %q: %w", desc.Module, desc.EntryPoint, gpu.ErrUnknownEntryPoint)
		}
		return &pipelineJob{compute: &computePipeline{
			label:  desc.Label,
			entry:  desc.EntryPoint,
			layout: layout,
			kernel: kernel,
		}}, nil
	})
}

func (d *Device) QueueRenderPipeline(desc gpu.RenderPipelineDescriptor) gpu.PipelineID {
	return d.queue(desc.Label, func() (*pipelineJob, error) {
		layout, err := resolveLayout(desc.Layout)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		kernel, ok := d.modules[desc.Module].Fragment[desc.FragmentEntry]
		d.mu.Unlock()
		if !ok || kernel == nil {
			return nil, fmt.Errorf("module %q has no fragment entry point %q: %w", desc.Module, desc.FragmentEntry, gpu.ErrUnknownEntryPoint)
		}
		return &pipelineJob{render: &renderPipeline{
			label:  desc.Label,
			entry:  desc.FragmentEntry,
			layout: layout,
			format: desc.TargetFormat,
			kernel: kernel,
		}}, nil
	})
}

// queue registers a job and compiles it on its own goroutine.
func (d *Device) queue(label string, compile func() (*pipelineJob, error)) gpu.PipelineID {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	job := &pipelineJob{status: gpu.PipelineQueued}
	d.pipelines[id] = job
	d.stats.PipelinesQueued++
	d.mu.Unlock()

	d.compiling.Add(1)
	go func() {
		defer d.compiling.Done()
		if d.latency > 0 {
			time.Sleep(d.latency)
		}

		done, err := compile()

		d.mu.Lock()
		defer d.mu.Unlock()
		if err != nil {
			job.status = gpu.PipelineFailed
			job.err = fmt.Errorf("compiling %q: %w", label, err)
			slog.Debug("pipeline compile failed", "label", label, "error", err)
			return
		}
		job.compute = done.compute
		job.render = done.render
		job.status = gpu.PipelineReady
	}()
	return id
}

func resolveLayout(layouts []gpu.BindGroupLayout) ([]*bindGroupLayout, error) {
	if len(layouts) > gpu.MaxBindGroups {
		return nil, fmt.Errorf("%d bind groups exceeds limit of %d: %w", len(layouts), gpu.MaxBindGroups, gpu.ErrIncompatibleBinding)
	}
	out := make([]*bindGroupLayout, len(layouts))
	for i, l := range layouts {
		bl, ok := l.(*bindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("slot %d: foreign layout: %w", i, gpu.ErrIncompatibleBinding)
		}
		out[i] = bl
	}
	return out, nil
}

var errUnknownPipeline = errors.New("unknown pipeline id")

func (d *Device) job(id gpu.PipelineID) (*pipelineJob, error) {
	job, ok := d.pipelines[id]
	if !ok {
		return nil, fmt.Errorf("pipeline %d: %w", id, errUnknownPipeline)
	}
	return job, nil
}

func (d *Device) ComputePipeline(id gpu.PipelineID) (gpu.ComputePipeline, gpu.PipelineStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, err := d.job(id)
	if err != nil {
		return nil, gpu.PipelineFailed, err
	}
	if job.status == gpu.PipelineReady && job.compute == nil {
		return nil, gpu.PipelineFailed, fmt.Errorf("pipeline %d is not a compute pipeline", id)
	}
	if job.status != gpu.PipelineReady {
		return nil, job.status, job.err
	}
	return job.compute, job.status, nil
}

func (d *Device) RenderPipeline(id gpu.PipelineID) (gpu.RenderPipeline, gpu.PipelineStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, err := d.job(id)
	if err != nil {
		return nil, gpu.PipelineFailed, err
	}
	if job.status == gpu.PipelineReady && job.render == nil {
		return nil, gpu.PipelineFailed, fmt.Errorf("pipeline %d is not a render pipeline", id)
	}
	if job.status != gpu.PipelineReady {
		return nil, job.status, job.err
	}
	return job.render, job.status, nil
}
