// Package shaders holds the "simulate" program module: the byte layouts
// shared between host and device, the bind slot numbers, and the kernels
// the software device runs.
package shaders

import (
	"encoding/binary"
	"math"
)

// Module is the name every simulation pipeline compiles against.
const Module = "simulate"

// Entry points exported by the module.
const (
	EntryInit    = "init"
	EntryUpdate  = "update"
	EntryProject = "project"
	EntryBlur    = "blur_fragment"
)

// Bind group slots, identical for every program.
const (
	GroupSpecies = 0
	GroupTexture = 1
	GroupStorage = 2
	GroupScalar  = 3
	GroupOptions = 4
)

// Bindings within the species and texture groups.
const (
	BindingAgents    = 0
	BindingQualities = 1
	BindingTexture   = 0
	BindingSampler   = 1
)

// Sizes of the device-side structs in bytes.
const (
	AgentSize     = 16
	QualitiesSize = 48
	OptionsSize   = 16
	SeedSize      = 4
	DirectionSize = 8
)

var le = binary.LittleEndian

// Agent is one device-resident agent: position in [0,1]² and heading in
// radians, padded to 16 bytes.
type Agent struct {
	Pos   [2]float32
	Angle float32
}

// PutAgent encodes a at the start of b.
func PutAgent(b []byte, a Agent) {
	putF32(b[0:], a.Pos[0])
	putF32(b[4:], a.Pos[1])
	putF32(b[8:], a.Angle)
	le.PutUint32(b[12:], 0)
}

// ReadAgent decodes an agent from the start of b.
func ReadAgent(b []byte) Agent {
	return Agent{
		Pos:   [2]float32{f32(b[0:]), f32(b[4:])},
		Angle: f32(b[8:]),
	}
}

// Qualities are the per-species movement parameters and trail color.
type Qualities struct {
	Color        [3]float32
	Speed        float32
	TurnSpeed    float32
	ViewDistance float32
	FieldOfView  float32
}

// DefaultQualities is a white species with moderate sensing.
var DefaultQualities = Qualities{
	Color:        [3]float32{1, 1, 1},
	Speed:        1e-3,
	TurnSpeed:    0.2,
	ViewDistance: 2e-2,
	FieldOfView:  math.Pi / 6,
}

// Bytes encodes q into its 48-byte uniform layout.
func (q Qualities) Bytes() []byte {
	b := make([]byte, QualitiesSize)
	putF32(b[0:], q.Color[0])
	putF32(b[4:], q.Color[1])
	putF32(b[8:], q.Color[2])
	putF32(b[12:], q.Speed)
	putF32(b[16:], q.TurnSpeed)
	putF32(b[20:], q.ViewDistance)
	putF32(b[24:], q.FieldOfView)
	return b
}

// ReadQualities decodes a qualities uniform.
func ReadQualities(b []byte) Qualities {
	return Qualities{
		Color:        [3]float32{f32(b[0:]), f32(b[4:]), f32(b[8:])},
		Speed:        f32(b[12:]),
		TurnSpeed:    f32(b[16:]),
		ViewDistance: f32(b[20:]),
		FieldOfView:  f32(b[24:]),
	}
}

// Options are the global trail parameters.
type Options struct {
	Evaporation float32
	Diffusion   float32
}

// Bytes encodes o into its 16-byte uniform layout.
func (o Options) Bytes() []byte {
	b := make([]byte, OptionsSize)
	putF32(b[0:], o.Evaporation)
	putF32(b[4:], o.Diffusion)
	return b
}

// ReadOptions decodes an options uniform.
func ReadOptions(b []byte) Options {
	return Options{Evaporation: f32(b[0:]), Diffusion: f32(b[4:])}
}

// SeedBytes encodes the per-frame random seed.
func SeedBytes(seed uint32) []byte {
	b := make([]byte, SeedSize)
	le.PutUint32(b, seed)
	return b
}

func ReadSeed(b []byte) uint32 { return le.Uint32(b) }

// DirectionBytes encodes a blur direction as two int32.
func DirectionBytes(x, y int32) []byte {
	b := make([]byte, DirectionSize)
	le.PutUint32(b[0:], uint32(x))
	le.PutUint32(b[4:], uint32(y))
	return b
}

func ReadDirection(b []byte) (x, y int32) {
	return int32(le.Uint32(b[0:])), int32(le.Uint32(b[4:]))
}

func putF32(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }
func f32(b []byte) float32       { return math.Float32frombits(le.Uint32(b)) }
