// Package soft is a CPU implementation of gpu.Device. Buffers are byte
// exact, pipelines compile asynchronously against registered modules and
// dispatches fan out over a worker pool.
package soft

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/pthm-cable/slime/gpu"
)

// Options configures a software device.
type Options struct {
	Modules        map[string]Module
	CompileLatency time.Duration // simulated per-pipeline compile time
	MemoryLimit    uint64        // bytes; zero means unlimited
	Workers        int           // zero means GOMAXPROCS
}

// Stats counts device activity since creation or the last ResetStats.
type Stats struct {
	Submits           int
	Dispatches        map[string]int // by entry point
	Workgroups        uint64
	Draws             map[string]int // by fragment entry point
	BufferWrites      map[string]int // by buffer label
	BuffersCreated    int
	BuffersDestroyed  int
	TexturesCreated   int
	TexturesDestroyed int
	PipelinesQueued   int

	LiveBuffers int
	LiveBytes   uint64
}

// Device is the software gpu.Device.
type Device struct {
	mu        sync.Mutex
	modules   map[string]Module
	pipelines map[gpu.PipelineID]*pipelineJob
	nextID    gpu.PipelineID
	stats     Stats

	latency     time.Duration
	memoryLimit uint64

	compiling sync.WaitGroup
	submitMu  sync.Mutex
	pool      *workerPool
}

var _ gpu.Device = (*Device)(nil)

// New creates a software device.
func New(opts Options) *Device {
	d := &Device{
		modules:     make(map[string]Module),
		pipelines:   make(map[gpu.PipelineID]*pipelineJob),
		latency:     opts.CompileLatency,
		memoryLimit: opts.MemoryLimit,
		pool:        newWorkerPool(opts.Workers),
	}
	maps.Copy(d.modules, opts.Modules)
	d.resetStatsLocked()
	return d
}

// RegisterModule adds or replaces a module. Compilations already queued
// resolve against whatever is registered when they finish.
func (d *Device) RegisterModule(name string, m Module) {
	d.mu.Lock()
	d.modules[name] = m
	d.mu.Unlock()
}

// WaitIdle blocks until every queued compilation has finished.
func (d *Device) WaitIdle() {
	d.compiling.Wait()
}

// Close waits for compilations and stops the worker pool.
func (d *Device) Close() {
	d.compiling.Wait()
	d.submitMu.Lock()
	d.pool.stop()
	d.submitMu.Unlock()
}

// Stats returns a copy of the activity counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Dispatches = maps.Clone(d.stats.Dispatches)
	s.Draws = maps.Clone(d.stats.Draws)
	s.BufferWrites = maps.Clone(d.stats.BufferWrites)
	return s
}

// ResetStats zeroes the activity counters. Live resource totals are kept.
func (d *Device) ResetStats() {
	d.mu.Lock()
	d.resetStatsLocked()
	d.mu.Unlock()
}

func (d *Device) resetStatsLocked() {
	live, bytes := d.stats.LiveBuffers, d.stats.LiveBytes
	d.stats = Stats{
		Dispatches:   make(map[string]int),
		Draws:        make(map[string]int),
		BufferWrites: make(map[string]int),
		LiveBuffers:  live,
		LiveBytes:    bytes,
	}
}

// reserve charges size bytes against the memory limit. Caller holds mu.
func (d *Device) reserve(size uint64, label string) error {
	if d.memoryLimit > 0 && d.stats.LiveBytes+size > d.memoryLimit {
		return fmt.Errorf("allocating %d bytes for %q (%d of %d in use): %w",
			size, label, d.stats.LiveBytes, d.memoryLimit, gpu.ErrOutOfMemory)
	}
	d.stats.LiveBytes += size
	return nil
}

// buffer is a software gpu.Buffer.
type buffer struct {
	dev       *Device
	label     string
	usage     gpu.BufferUsage
	data      []byte
	destroyed bool
}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return uint64(len(b.data)) }

func (b *buffer) Destroy() {
	d := b.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	d.stats.LiveBytes -= uint64(len(b.data))
	d.stats.LiveBuffers--
	d.stats.BuffersDestroyed++
	b.data = nil
}

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	if desc.Size == 0 || uint64(len(desc.Contents)) > desc.Size {
		return nil, fmt.Errorf("buffer %q of size %d: %w", desc.Label, desc.Size, gpu.ErrInvalidSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.reserve(desc.Size, desc.Label); err != nil {
		return nil, err
	}
	b := &buffer{dev: d, label: desc.Label, usage: desc.Usage, data: make([]byte, desc.Size)}
	copy(b.data, desc.Contents)
	d.stats.LiveBuffers++
	d.stats.BuffersCreated++
	return b, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*buffer)
	if !ok || b.dev != d {
		return fmt.Errorf("write to foreign buffer: %w", gpu.ErrIncompatibleBinding)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if b.destroyed {
		return fmt.Errorf("write to %q: %w", b.label, gpu.ErrDestroyed)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("write of %d bytes at %d into %q (%d bytes): %w",
			len(data), offset, b.label, len(b.data), gpu.ErrInvalidSize)
	}
	copy(b.data[offset:], data)
	d.stats.BufferWrites[b.label]++
	return nil
}

func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q %dx%d: %w", desc.Label, desc.Width, desc.Height, gpu.ErrInvalidSize)
	}
	size := uint64(desc.Width) * uint64(desc.Height) * desc.Format.BytesPerTexel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.reserve(size, desc.Label); err != nil {
		return nil, err
	}
	d.stats.TexturesCreated++
	img := newImage(desc)
	img.dev = d
	return img, nil
}

// sampler is a software gpu.Sampler.
type sampler struct {
	label string
	state SamplerState
}

func (s *sampler) Label() string { return s.label }

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) gpu.Sampler {
	return &sampler{label: desc.Label, state: SamplerState{Filter: desc.Filter, Address: desc.Address}}
}

// bindGroupLayout is a software gpu.BindGroupLayout.
type bindGroupLayout struct {
	label   string
	entries []gpu.BindGroupLayoutEntry
}

func (l *bindGroupLayout) Label() string { return l.label }

func (d *Device) CreateBindGroupLayout(desc gpu.BindGroupLayoutDescriptor) gpu.BindGroupLayout {
	return &bindGroupLayout{label: desc.Label, entries: append([]gpu.BindGroupLayoutEntry(nil), desc.Entries...)}
}

// bindGroup is a software gpu.BindGroup.
type bindGroup struct {
	label    string
	layout   *bindGroupLayout
	buffers  map[uint32]*buffer
	textures map[uint32]*Image
	samplers map[uint32]*sampler
	storage  []*Image // textures bound for storage writes
}

func (g *bindGroup) Label() string               { return g.label }
func (g *bindGroup) Layout() gpu.BindGroupLayout { return g.layout }

func (d *Device) CreateBindGroup(desc gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	layout, ok := desc.Layout.(*bindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q: foreign layout: %w", desc.Label, gpu.ErrIncompatibleBinding)
	}

	g := &bindGroup{
		label:    desc.Label,
		layout:   layout,
		buffers:  make(map[uint32]*buffer),
		textures: make(map[uint32]*Image),
		samplers: make(map[uint32]*sampler),
	}

	bound := make(map[uint32]gpu.BindGroupEntry, len(desc.Entries))
	for _, e := range desc.Entries {
		bound[e.Binding] = e
	}
	if len(bound) != len(layout.entries) {
		return nil, fmt.Errorf("bind group %q: %d entries for layout %q with %d: %w",
			desc.Label, len(bound), layout.label, len(layout.entries), gpu.ErrIncompatibleBinding)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, le := range layout.entries {
		e, ok := bound[le.Binding]
		if !ok {
			return nil, fmt.Errorf("bind group %q: binding %d missing: %w", desc.Label, le.Binding, gpu.ErrIncompatibleBinding)
		}
		if err := g.bind(le, e); err != nil {
			return nil, fmt.Errorf("bind group %q binding %d: %w", desc.Label, le.Binding, err)
		}
	}
	return g, nil
}

func (g *bindGroup) bind(le gpu.BindGroupLayoutEntry, e gpu.BindGroupEntry) error {
	switch {
	case le.Type.IsBuffer():
		b, ok := e.Buffer.(*buffer)
		if !ok {
			return fmt.Errorf("expected %s buffer: %w", le.Type, gpu.ErrIncompatibleBinding)
		}
		if b.destroyed {
			return fmt.Errorf("%q: %w", b.label, gpu.ErrDestroyed)
		}
		want := gpu.BufferUsageStorage
		if le.Type == gpu.BindingUniformBuffer {
			want = gpu.BufferUsageUniform
		}
		if b.usage&want == 0 {
			return fmt.Errorf("%q lacks %s usage: %w", b.label, le.Type, gpu.ErrIncompatibleBinding)
		}
		if uint64(len(b.data)) < le.MinBindingSize {
			return fmt.Errorf("%q is %d bytes, need %d: %w", b.label, len(b.data), le.MinBindingSize, gpu.ErrIncompatibleBinding)
		}
		g.buffers[le.Binding] = b
	case le.Type == gpu.BindingTexture, le.Type == gpu.BindingStorageTexture:
		img, ok := e.Texture.(*Image)
		if !ok {
			return fmt.Errorf("expected %s: %w", le.Type, gpu.ErrIncompatibleBinding)
		}
		if img.destroyed {
			return fmt.Errorf("%q: %w", img.label, gpu.ErrDestroyed)
		}
		if le.Type == gpu.BindingStorageTexture {
			if img.format != le.Format {
				return fmt.Errorf("%q is %s, layout wants %s: %w", img.label, img.format, le.Format, gpu.ErrIncompatibleBinding)
			}
			if img.usage&gpu.TextureUsageStorage == 0 {
				return fmt.Errorf("%q lacks storage usage: %w", img.label, gpu.ErrIncompatibleBinding)
			}
			g.storage = append(g.storage, img)
		} else if img.usage&gpu.TextureUsageBinding == 0 {
			return fmt.Errorf("%q lacks binding usage: %w", img.label, gpu.ErrIncompatibleBinding)
		}
		g.textures[le.Binding] = img
	case le.Type == gpu.BindingSampler:
		s, ok := e.Sampler.(*sampler)
		if !ok {
			return fmt.Errorf("expected sampler: %w", gpu.ErrIncompatibleBinding)
		}
		g.samplers[le.Binding] = s
	default:
		return fmt.Errorf("unsupported binding type %s: %w", le.Type, gpu.ErrIncompatibleBinding)
	}
	return nil
}

// destroyedBuffer returns the first destroyed buffer in the group, if any.
// Caller holds mu.
func (g *bindGroup) destroyedBuffer() *buffer {
	for _, b := range g.buffers {
		if b.destroyed {
			return b
		}
	}
	return nil
}

// destroyedImage returns the first destroyed image in the group, if any.
// Caller holds mu.
func (g *bindGroup) destroyedImage() *Image {
	for _, img := range g.textures {
		if img.destroyed {
			return img
		}
	}
	return nil
}

func (d *Device) ReadBuffer(buf gpu.Buffer) ([]byte, error) {
	b, ok := buf.(*buffer)
	if !ok || b.dev != d {
		return nil, fmt.Errorf("read of foreign buffer: %w", gpu.ErrIncompatibleBinding)
	}
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.destroyed {
		return nil, fmt.Errorf("read of %q: %w", b.label, gpu.ErrDestroyed)
	}
	return append([]byte(nil), b.data...), nil
}

func (d *Device) ReadTexture(tex gpu.Texture) ([]byte, error) {
	img, ok := tex.(*Image)
	if !ok {
		return nil, fmt.Errorf("read of foreign texture: %w", gpu.ErrIncompatibleBinding)
	}
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.mu.Lock()
	destroyed := img.destroyed
	d.mu.Unlock()
	if destroyed {
		return nil, fmt.Errorf("read of %q: %w", img.label, gpu.ErrDestroyed)
	}
	return img.rgba8(), nil
}
