package sim

import (
	"fmt"

	"github.com/pthm-cable/slime/gpu"
	"github.com/pthm-cable/slime/shaders"
)

// Program identifies one of the four simulation programs.
type Program uint8

const (
	ProgramInit Program = iota
	ProgramUpdate
	ProgramProject
	ProgramBlur
	programCount
)

func (p Program) String() string {
	switch p {
	case ProgramInit:
		return "init"
	case ProgramUpdate:
		return "update"
	case ProgramProject:
		return "project"
	case ProgramBlur:
		return "blur"
	default:
		return fmt.Sprintf("program(%d)", uint8(p))
	}
}

// EntryPoint returns the module entry point compiled for p.
func (p Program) EntryPoint() string {
	switch p {
	case ProgramInit:
		return shaders.EntryInit
	case ProgramUpdate:
		return shaders.EntryUpdate
	case ProgramProject:
		return shaders.EntryProject
	case ProgramBlur:
		return shaders.EntryBlur
	default:
		return ""
	}
}

// Layouts holds every bind group layout the programs use, plus the bind
// groups that never change: the empty group and the two blur directions.
type Layouts struct {
	Species gpu.BindGroupLayout
	Texture gpu.BindGroupLayout
	Storage gpu.BindGroupLayout
	Scalar  gpu.BindGroupLayout
	Options gpu.BindGroupLayout
	Empty   gpu.BindGroupLayout

	EmptyGroup gpu.BindGroup
	Horizontal gpu.BindGroup
	Vertical   gpu.BindGroup
	Sampler    gpu.Sampler

	directions [2]gpu.Buffer
}

// NewLayouts builds the layouts for a trail field of the given format.
func NewLayouts(dev gpu.Device, format gpu.TextureFormat) (*Layouts, error) {
	l := &Layouts{
		Species: dev.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
			Label: "species layout",
			Entries: []gpu.BindGroupLayoutEntry{
				{Binding: shaders.BindingAgents, Visibility: gpu.StageCompute, Type: gpu.BindingStorageBuffer, MinBindingSize: shaders.AgentSize},
				{Binding: shaders.BindingQualities, Visibility: gpu.StageCompute, Type: gpu.BindingUniformBuffer, MinBindingSize: shaders.QualitiesSize},
			},
		}),
		Texture: dev.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
			Label: "texture layout",
			Entries: []gpu.BindGroupLayoutEntry{
				{Binding: shaders.BindingTexture, Visibility: gpu.StageCompute | gpu.StageFragment, Type: gpu.BindingTexture},
				{Binding: shaders.BindingSampler, Visibility: gpu.StageCompute | gpu.StageFragment, Type: gpu.BindingSampler},
			},
		}),
		Storage: dev.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
			Label: "storage texture layout",
			Entries: []gpu.BindGroupLayoutEntry{
				{Binding: 0, Visibility: gpu.StageCompute, Type: gpu.BindingStorageTexture, Format: format},
			},
		}),
		Scalar: dev.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
			Label: "scalar layout",
			Entries: []gpu.BindGroupLayoutEntry{
				{Binding: 0, Visibility: gpu.StageCompute | gpu.StageFragment, Type: gpu.BindingUniformBuffer, MinBindingSize: shaders.SeedSize},
			},
		}),
		Options: dev.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
			Label: "options layout",
			Entries: []gpu.BindGroupLayoutEntry{
				{Binding: 0, Visibility: gpu.StageCompute | gpu.StageFragment, Type: gpu.BindingUniformBuffer, MinBindingSize: shaders.OptionsSize},
			},
		}),
		Empty: dev.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{Label: "empty layout"}),
		Sampler: dev.CreateSampler(gpu.SamplerDescriptor{
			Label:   "trail sampler",
			Filter:  gpu.FilterLinear,
			Address: gpu.AddressClampToEdge,
		}),
	}

	var err error
	l.EmptyGroup, err = dev.CreateBindGroup(gpu.BindGroupDescriptor{Label: "empty group", Layout: l.Empty})
	if err != nil {
		return nil, fmt.Errorf("creating empty group: %w", err)
	}

	dirs := [2]struct {
		label string
		x, y  int32
		group *gpu.BindGroup
	}{
		{"horizontal", 1, 0, &l.Horizontal},
		{"vertical", 0, 1, &l.Vertical},
	}
	for i, d := range dirs {
		buf, err := dev.CreateBuffer(gpu.BufferDescriptor{
			Label:    d.label + " direction",
			Size:     shaders.DirectionSize,
			Usage:    gpu.BufferUsageUniform,
			Contents: shaders.DirectionBytes(d.x, d.y),
		})
		if err != nil {
			l.Release()
			return nil, fmt.Errorf("creating %s direction: %w", d.label, err)
		}
		l.directions[i] = buf
		*d.group, err = dev.CreateBindGroup(gpu.BindGroupDescriptor{
			Label:   d.label + " direction group",
			Layout:  l.Scalar,
			Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: buf}},
		})
		if err != nil {
			l.Release()
			return nil, fmt.Errorf("creating %s direction group: %w", d.label, err)
		}
	}
	return l, nil
}

// Release destroys the direction uniforms.
func (l *Layouts) Release() {
	for i, buf := range l.directions {
		if buf != nil {
			buf.Destroy()
			l.directions[i] = nil
		}
	}
}

// ProgramLayout returns the five-slot layout of a program.
func (l *Layouts) ProgramLayout(p Program) []gpu.BindGroupLayout {
	switch p {
	case ProgramInit:
		return []gpu.BindGroupLayout{l.Species, l.Empty, l.Empty, l.Scalar, l.Options}
	case ProgramUpdate:
		return []gpu.BindGroupLayout{l.Species, l.Texture, l.Empty, l.Scalar, l.Options}
	case ProgramProject:
		return []gpu.BindGroupLayout{l.Species, l.Empty, l.Storage, l.Empty, l.Options}
	case ProgramBlur:
		return []gpu.BindGroupLayout{l.Empty, l.Texture, l.Empty, l.Scalar, l.Options}
	default:
		return nil
	}
}
