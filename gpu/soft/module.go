package soft

import "github.com/pthm-cable/slime/gpu"

// ComputeKernel is one compute entry point. Run is called once per global
// invocation index and must bounds-check against its own data.
type ComputeKernel struct {
	WorkgroupSize uint32
	Run           func(b *Bindings, id uint32)
}

// FragmentKernel shades one texel of a fullscreen draw.
type FragmentKernel func(b *Bindings, x, y int) [4]float32

// Module is a named set of entry points, the software analogue of a
// shader module.
type Module struct {
	Compute  map[string]ComputeKernel
	Fragment map[string]FragmentKernel
}

// SamplerState is the filtering configuration a kernel samples with.
type SamplerState struct {
	Filter  gpu.FilterMode
	Address gpu.AddressMode
}

// Bindings exposes the resources bound for one dispatch or draw.
type Bindings struct {
	groups [gpu.MaxBindGroups]*bindGroup
}

// Buffer returns the backing bytes of a bound buffer, or nil.
func (b *Bindings) Buffer(group, binding uint32) []byte {
	g := b.group(group)
	if g == nil {
		return nil
	}
	buf := g.buffers[binding]
	if buf == nil {
		return nil
	}
	return buf.data
}

// Texture returns a bound sampled or storage texture, or nil.
func (b *Bindings) Texture(group, binding uint32) *Image {
	g := b.group(group)
	if g == nil {
		return nil
	}
	return g.textures[binding]
}

// Sampler returns a bound sampler's state. Unbound samplers read as
// nearest, clamp-to-edge.
func (b *Bindings) Sampler(group, binding uint32) SamplerState {
	g := b.group(group)
	if g == nil {
		return SamplerState{}
	}
	s := g.samplers[binding]
	if s == nil {
		return SamplerState{}
	}
	return s.state
}

func (b *Bindings) group(i uint32) *bindGroup {
	if int(i) >= len(b.groups) {
		return nil
	}
	return b.groups[i]
}
