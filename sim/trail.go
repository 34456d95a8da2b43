package sim

import (
	"fmt"

	"github.com/pthm-cable/slime/gpu"
)

const trailUsage = gpu.TextureUsageBinding | gpu.TextureUsageStorage |
	gpu.TextureUsageRenderAttachment | gpu.TextureUsageCopySrc

// Trail is the double-buffered trail field plus the intermediate image the
// horizontal blur writes into. Roles of the pair exchange on every Swap.
type Trail struct {
	images       [2]gpu.Texture
	sampled      [2]gpu.BindGroup
	storage      [2]gpu.BindGroup
	intermediate gpu.Texture
	interSampled gpu.BindGroup

	primary int
	swaps   uint64
}

// NewTrail allocates the three images, cleared to opaque black, and their
// bind groups. On failure every image created so far is destroyed.
func NewTrail(dev gpu.Device, layouts *Layouts, width, height uint32, format gpu.TextureFormat) (*Trail, error) {
	t := &Trail{}

	create := func(label string) (gpu.Texture, gpu.BindGroup, error) {
		tex, err := dev.CreateTexture(gpu.TextureDescriptor{
			Label:  label,
			Width:  width,
			Height: height,
			Format: format,
			Usage:  trailUsage,
			Fill:   gpu.Black,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating %s: %w", label, err)
		}
		group, err := dev.CreateBindGroup(gpu.BindGroupDescriptor{
			Label:  label + " sampled",
			Layout: layouts.Texture,
			Entries: []gpu.BindGroupEntry{
				{Binding: 0, Texture: tex},
				{Binding: 1, Sampler: layouts.Sampler},
			},
		})
		if err != nil {
			tex.Destroy()
			return nil, nil, fmt.Errorf("binding %s: %w", label, err)
		}
		return tex, group, nil
	}

	for i := range t.images {
		tex, group, err := create(fmt.Sprintf("trail %d", i))
		if err != nil {
			t.Release()
			return nil, err
		}
		t.images[i], t.sampled[i] = tex, group
		t.storage[i], err = dev.CreateBindGroup(gpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("trail %d storage", i),
			Layout:  layouts.Storage,
			Entries: []gpu.BindGroupEntry{{Binding: 0, Texture: tex}},
		})
		if err != nil {
			t.Release()
			return nil, fmt.Errorf("binding trail %d storage: %w", i, err)
		}
	}

	var err error
	t.intermediate, t.interSampled, err = create("trail blur intermediate")
	if err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

// Release destroys the trail images.
func (t *Trail) Release() {
	for i, tex := range t.images {
		if tex != nil {
			tex.Destroy()
			t.images[i] = nil
		}
	}
	if t.intermediate != nil {
		t.intermediate.Destroy()
		t.intermediate = nil
	}
}

// Current is the image agents sense and deposit into this frame and the
// one presented after the frame's swap.
func (t *Trail) Current() gpu.Texture { return t.images[t.primary] }

// Scratch receives the vertical blur this frame.
func (t *Trail) Scratch() gpu.Texture { return t.images[1-t.primary] }

func (t *Trail) Intermediate() gpu.Texture { return t.intermediate }

func (t *Trail) CurrentSampled() gpu.BindGroup      { return t.sampled[t.primary] }
func (t *Trail) CurrentStorage() gpu.BindGroup      { return t.storage[t.primary] }
func (t *Trail) IntermediateSampled() gpu.BindGroup { return t.interSampled }

// Primary returns the index of the current image.
func (t *Trail) Primary() int { return t.primary }

// Swap exchanges the current and scratch roles.
func (t *Trail) Swap() {
	t.primary = 1 - t.primary
	t.swaps++
}

// Swaps counts completed swaps.
func (t *Trail) Swaps() uint64 { return t.swaps }

func (t *Trail) Format() gpu.TextureFormat { return t.images[0].Format() }

func (t *Trail) Size() (width, height uint32) {
	return t.images[0].Width(), t.images[0].Height()
}
