package shaders

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestReflectStaysInUnitSquare(t *testing.T) {
	tests := []struct {
		name string
		in   Agent
		want [2]float32
	}{
		{"left edge", Agent{Pos: [2]float32{-0.1, 0.5}, Angle: math32.Pi}, [2]float32{0.1, 0.5}},
		{"right edge", Agent{Pos: [2]float32{1.2, 0.5}, Angle: 0}, [2]float32{0.8, 0.5}},
		{"bottom edge", Agent{Pos: [2]float32{0.5, -0.25}, Angle: -math32.Pi / 2}, [2]float32{0.5, 0.25}},
		{"top edge", Agent{Pos: [2]float32{0.5, 1.5}, Angle: math32.Pi / 2}, [2]float32{0.5, 0.5}},
		{"inside", Agent{Pos: [2]float32{0.3, 0.4}, Angle: 1}, [2]float32{0.3, 0.4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reflect(tt.in)
			for i := range got.Pos {
				if math32.Abs(got.Pos[i]-tt.want[i]) > 1e-6 {
					t.Errorf("pos = %v, want %v", got.Pos, tt.want)
				}
			}
			if got.Angle < 0 || got.Angle >= twoPi {
				t.Errorf("angle %v outside [0, 2π)", got.Angle)
			}
		})
	}
}

func TestReflectReversesHeading(t *testing.T) {
	// heading left, hits x=0, must now head right
	got := reflect(Agent{Pos: [2]float32{-0.01, 0.5}, Angle: math32.Pi})
	if math32.Cos(got.Angle) <= 0 {
		t.Errorf("heading %v still points left", got.Angle)
	}
	// heading down, hits y=0, must now head up
	got = reflect(Agent{Pos: [2]float32{0.5, -0.01}, Angle: 3 * math32.Pi / 2})
	if math32.Sin(got.Angle) <= 0 {
		t.Errorf("heading %v still points down", got.Angle)
	}
}

func TestTexel(t *testing.T) {
	tests := []struct {
		pos  [2]float32
		x, y int
	}{
		{[2]float32{0, 0}, 0, 0},
		{[2]float32{1, 1}, 99, 49},
		{[2]float32{0.5, 0.5}, 50, 25}, // 49.5 and 24.5 round half up
		{[2]float32{-1, 2}, 0, 49},
	}
	for _, tt := range tests {
		x, y := Texel(tt.pos, 100, 50)
		if x != tt.x || y != tt.y {
			t.Errorf("Texel(%v) = (%d, %d), want (%d, %d)", tt.pos, x, y, tt.x, tt.y)
		}
	}
}

func TestDeposit(t *testing.T) {
	tests := []struct {
		c    float32
		want uint32
	}{
		{0, 0},
		{1, 255},
		{0.5, 128},
		{-0.2, 0},
		{3, 255},
	}
	for _, tt := range tests {
		if got := Deposit(tt.c); got != tt.want {
			t.Errorf("Deposit(%v) = %d, want %d", tt.c, got, tt.want)
		}
	}
}

func TestAgentHashSpreads(t *testing.T) {
	seen := make(map[uint32]bool)
	for id := uint32(0); id < 1000; id++ {
		h := agentHash(42, id, initSalt)
		if seen[h] {
			t.Fatalf("hash collision at id %d", id)
		}
		seen[h] = true
		if u := unit(h); u < 0 || u >= 1 {
			t.Fatalf("unit(%d) = %v outside [0, 1)", h, u)
		}
	}
	if agentHash(42, 7, initSalt) == agentHash(42, 7, updateSalt) {
		t.Error("init and update streams coincide")
	}
}
