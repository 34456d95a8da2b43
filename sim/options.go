package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/slime/gpu"
	"github.com/pthm-cable/slime/shaders"
)

// Options are the global trail parameters, each in [0, 1].
type Options = shaders.Options

// ClampOptions limits both parameters to [0, 1].
func ClampOptions(o Options) Options {
	return Options{Evaporation: clamp01(o.Evaporation), Diffusion: clamp01(o.Diffusion)}
}

// Broadcast reports what one Broadcaster.Broadcast call wrote.
type Broadcast struct {
	OptionsWritten bool
	Seed           uint32
}

// Broadcaster owns the options and seed uniforms. Options are written only
// when they change; the seed is rewritten every frame.
type Broadcaster struct {
	dev gpu.Device

	optionsBuf gpu.Buffer
	seedBuf    gpu.Buffer

	OptionsGroup gpu.BindGroup
	SeedGroup    gpu.BindGroup

	rng     *rand.Rand
	written bool
	last    Options
	seed    uint32
}

// NewBroadcaster allocates the uniforms. The seed sequence is fully
// determined by rngSeed.
func NewBroadcaster(dev gpu.Device, layouts *Layouts, rngSeed int64) (*Broadcaster, error) {
	b := &Broadcaster{dev: dev, rng: rand.New(rand.NewSource(rngSeed))}

	var err error
	b.optionsBuf, err = dev.CreateBuffer(gpu.BufferDescriptor{
		Label: "options",
		Size:  shaders.OptionsSize,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating options buffer: %w", err)
	}
	b.seedBuf, err = dev.CreateBuffer(gpu.BufferDescriptor{
		Label: "seed",
		Size:  shaders.SeedSize,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("creating seed buffer: %w", err)
	}

	b.OptionsGroup, err = dev.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:   "options group",
		Layout:  layouts.Options,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: b.optionsBuf}},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("binding options: %w", err)
	}
	b.SeedGroup, err = dev.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:   "seed group",
		Layout:  layouts.Scalar,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: b.seedBuf}},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("binding seed: %w", err)
	}
	return b, nil
}

// Release destroys the options and seed uniforms.
func (b *Broadcaster) Release() {
	if b.optionsBuf != nil {
		b.optionsBuf.Destroy()
		b.optionsBuf = nil
	}
	if b.seedBuf != nil {
		b.seedBuf.Destroy()
		b.seedBuf = nil
	}
}

// Broadcast uploads this frame's uniforms. Write failures are logged and
// leave the previous contents in place.
func (b *Broadcaster) Broadcast(opts Options) Broadcast {
	var out Broadcast
	opts = ClampOptions(opts)

	if !b.written || opts != b.last {
		if err := b.dev.WriteBuffer(b.optionsBuf, 0, opts.Bytes()); err != nil {
			slog.Warn("options write failed", "err", err)
		} else {
			b.written = true
			b.last = opts
			out.OptionsWritten = true
		}
	}

	seed := b.rng.Uint32()
	if err := b.dev.WriteBuffer(b.seedBuf, 0, shaders.SeedBytes(seed)); err != nil {
		slog.Warn("seed write failed", "err", err)
	} else {
		b.seed = seed
	}
	out.Seed = b.seed
	return out
}

// Seed returns the last seed written.
func (b *Broadcaster) Seed() uint32 { return b.seed }

// Options returns the last options written and whether any were.
func (b *Broadcaster) Options() (Options, bool) { return b.last, b.written }

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
