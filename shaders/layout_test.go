package shaders

import (
	"math"
	"testing"
)

func TestAgentLayout(t *testing.T) {
	b := make([]byte, AgentSize*2)
	want := Agent{Pos: [2]float32{0.25, 0.75}, Angle: 1.5}
	PutAgent(b[AgentSize:], want)

	if got := ReadAgent(b[AgentSize:]); got != want {
		t.Errorf("ReadAgent = %+v, want %+v", got, want)
	}
	for i := 0; i < AgentSize; i++ {
		if b[i] != 0 {
			t.Fatalf("write to second agent touched byte %d of the first", i)
		}
	}
	// x is the first little-endian float
	if bits := math.Float32bits(0.25); b[AgentSize] != byte(bits) {
		t.Errorf("pos.x low byte = %#x, want %#x", b[AgentSize], byte(bits))
	}
}

func TestQualitiesLayout(t *testing.T) {
	q := Qualities{
		Color:        [3]float32{1, 0.5, 0},
		Speed:        0.001,
		TurnSpeed:    0.2,
		ViewDistance: 0.02,
		FieldOfView:  0.5,
	}
	b := q.Bytes()
	if len(b) != QualitiesSize {
		t.Fatalf("len = %d, want %d", len(b), QualitiesSize)
	}
	if got := ReadQualities(b); got != q {
		t.Errorf("ReadQualities = %+v, want %+v", got, q)
	}
	for i := 28; i < QualitiesSize; i++ {
		if b[i] != 0 {
			t.Errorf("padding byte %d = %#x, want 0", i, b[i])
		}
	}
}

func TestScalarLayouts(t *testing.T) {
	o := Options{Evaporation: 0.01, Diffusion: 0.5}
	if b := o.Bytes(); len(b) != OptionsSize || ReadOptions(b) != o {
		t.Errorf("options layout mismatch: %v", b)
	}
	if got := ReadSeed(SeedBytes(0xdeadbeef)); got != 0xdeadbeef {
		t.Errorf("seed = %#x", got)
	}
	x, y := ReadDirection(DirectionBytes(0, 1))
	if x != 0 || y != 1 {
		t.Errorf("direction = (%d, %d), want (0, 1)", x, y)
	}
	if len(DirectionBytes(1, 0)) != DirectionSize {
		t.Error("direction size mismatch")
	}
}
