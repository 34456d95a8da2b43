package components

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestQualitiesClamped(t *testing.T) {
	q := Qualities{
		Color:        [3]float32{-1, 0.5, 2},
		Speed:        -0.1,
		TurnSpeed:    math32.NaN(),
		ViewDistance: 1.5,
		FieldOfView:  10,
	}.Clamped()

	if q.Color != [3]float32{0, 0.5, 1} {
		t.Errorf("color = %v", q.Color)
	}
	if q.Speed != 0 || q.TurnSpeed != 0 {
		t.Errorf("speed %v, turn %v", q.Speed, q.TurnSpeed)
	}
	if q.ViewDistance != 1 {
		t.Errorf("view distance = %v", q.ViewDistance)
	}
	if q.FieldOfView != 2*math32.Pi {
		t.Errorf("field of view = %v", q.FieldOfView)
	}

	ok := Qualities{Color: [3]float32{1, 1, 1}, Speed: 0.01, TurnSpeed: 0.2, ViewDistance: 0.02, FieldOfView: 0.5}
	if ok.Clamped() != ok {
		t.Error("in-range qualities changed")
	}
}
