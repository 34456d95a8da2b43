// Package components defines ECS components for the species registry.
package components

import (
	"math"

	"github.com/chewxy/math32"
)

// SpeciesID is the stable identity of a species entity. Assigned once at
// spawn from a monotonic counter and never reused.
type SpeciesID struct {
	Value uint64
}

// Name is the display name used in labels and logs.
type Name struct {
	Value string
}

// NumAgents is the agent count of a species. Zero means not live.
type NumAgents struct {
	Value uint32
}

// Qualities are the behavioral parameters of a species.
type Qualities struct {
	Color        [3]float32 // RGB trail color, [0,1]
	Speed        float32    // Field fraction per frame
	TurnSpeed    float32    // Radians per frame
	ViewDistance float32    // Field fraction, [0,1]
	FieldOfView  float32    // Radians, [0,2π]
}

// Clamped returns q with every field limited to its valid range.
// NaN fields become zero.
func (q Qualities) Clamped() Qualities {
	for i := range q.Color {
		q.Color[i] = clamp(q.Color[i], 0, 1)
	}
	q.Speed = clamp(q.Speed, 0, math.MaxFloat32)
	q.TurnSpeed = clamp(q.TurnSpeed, 0, math.MaxFloat32)
	q.ViewDistance = clamp(q.ViewDistance, 0, 1)
	q.FieldOfView = clamp(q.FieldOfView, 0, 2*math32.Pi)
	return q
}

func clamp(v, lo, hi float32) float32 {
	if math32.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
