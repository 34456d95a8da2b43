package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/slime/sim"
)

func TestNewFrameStats(t *testing.T) {
	r := sim.FrameReport{
		Frame:    7,
		State:    "cached",
		Ready:    true,
		Species:  2,
		Agents:   300,
		Inits:    1,
		Updates:  1,
		Projects: 2,
		Draws:    2,
		Swapped:  true,
		Seed:     99,
	}
	s := NewFrameStats(r, 1.5)

	if s.Frame != 7 || s.State != "cached" || s.Agents != 300 || s.Projects != 2 || !s.Swapped {
		t.Errorf("stats = %+v", s)
	}
	if s.SimTimeSec != 1.5 || s.Seed != 99 {
		t.Errorf("sim time %v seed %v", s.SimTimeSec, s.Seed)
	}
}

func TestFrameStats_AddTrail(t *testing.T) {
	// 4 texels: black, white, black, black
	rgba := []byte{
		0, 0, 0, 255,
		255, 255, 255, 255,
		0, 0, 0, 255,
		0, 0, 0, 255,
	}
	var s FrameStats
	s.AddTrail(rgba)

	if math.Abs(s.LumMean-0.25) > 1e-6 {
		t.Errorf("lum mean = %v, want 0.25", s.LumMean)
	}
	if math.Abs(s.LumMax-1) > 1e-6 {
		t.Errorf("lum max = %v, want 1", s.LumMax)
	}
	if s.Coverage != 0.25 {
		t.Errorf("coverage = %v, want 0.25", s.Coverage)
	}
	if s.LumStd <= 0 {
		t.Errorf("lum std = %v", s.LumStd)
	}
}

func TestFrameStats_AddTrailEmpty(t *testing.T) {
	var s FrameStats
	s.AddTrail(nil)
	if s.LumMean != 0 || s.Coverage != 0 {
		t.Errorf("empty trail stats = %+v", s)
	}
}
