package telemetry

import (
	"log/slog"

	"github.com/pthm-cable/slime/sim"
)

// CoverageThreshold is the luminance above which a texel counts as covered.
const CoverageThreshold = 1.0 / 255

// FrameStats is one frames.csv row: the frame report plus trail statistics.
type FrameStats struct {
	Frame          uint64  `csv:"frame"`
	SimTimeSec     float64 `csv:"sim_time"`
	State          string  `csv:"state"`
	Species        int     `csv:"species"`
	Agents         uint64  `csv:"agents"`
	Inits          int     `csv:"inits"`
	Updates        int     `csv:"updates"`
	Projects       int     `csv:"projects"`
	Draws          int     `csv:"draws"`
	Swapped        bool    `csv:"swapped"`
	Seed           uint32  `csv:"seed"`
	OptionsWritten bool    `csv:"options_written"`
	Allocated      int     `csv:"allocated"`
	Freed          int     `csv:"freed"`
	AllocFailed    int     `csv:"alloc_failed"`

	// Trail luminance over all texels, in [0,1]
	LumMean  float64 `csv:"lum_mean"`
	LumStd   float64 `csv:"lum_std"`
	LumMax   float64 `csv:"lum_max"`
	LumP90   float64 `csv:"lum_p90"`
	Coverage float64 `csv:"coverage"` // fraction of texels above CoverageThreshold
}

// NewFrameStats copies the counters of a frame report.
func NewFrameStats(r sim.FrameReport, simTime float64) FrameStats {
	return FrameStats{
		Frame:          r.Frame,
		SimTimeSec:     simTime,
		State:          r.State,
		Species:        r.Species,
		Agents:         r.Agents,
		Inits:          r.Inits,
		Updates:        r.Updates,
		Projects:       r.Projects,
		Draws:          r.Draws,
		Swapped:        r.Swapped,
		Seed:           r.Seed,
		OptionsWritten: r.OptionsWritten,
		Allocated:      r.Allocated,
		Freed:          r.Freed,
		AllocFailed:    r.AllocFailed,
	}
}

// AddTrail fills the luminance columns from an RGBA8 image.
func (s *FrameStats) AddTrail(rgba []byte) {
	n := len(rgba) / 4
	if n == 0 {
		return
	}
	lum := make([]float64, n)
	covered := 0
	for i := range lum {
		px := rgba[i*4 : i*4+4]
		l := (0.2126*float64(px[0]) + 0.7152*float64(px[1]) + 0.0722*float64(px[2])) / 255
		lum[i] = l
		if l >= CoverageThreshold {
			covered++
		}
	}

	sum := Summarize(lum)
	s.LumMean = sum.Mean
	s.LumStd = sum.Std
	s.LumMax = sum.Max
	s.LumP90 = sum.P90
	s.Coverage = float64(covered) / float64(n)
}

// LogValue implements slog.LogValuer.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("frame", s.Frame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("state", s.State),
		slog.Int("species", s.Species),
		slog.Uint64("agents", s.Agents),
		slog.Int("inits", s.Inits),
		slog.Int("updates", s.Updates),
		slog.Int("projects", s.Projects),
		slog.Int("draws", s.Draws),
		slog.Bool("swapped", s.Swapped),
		slog.Int("allocated", s.Allocated),
		slog.Int("freed", s.Freed),
		slog.Int("alloc_failed", s.AllocFailed),
		slog.Float64("lum_mean", s.LumMean),
		slog.Float64("lum_std", s.LumStd),
		slog.Float64("lum_max", s.LumMax),
		slog.Float64("coverage", s.Coverage),
	)
}

// LogStats logs the frame stats using slog.
func (s FrameStats) LogStats() {
	slog.Info("stats",
		"frame", s.Frame,
		"sim_time", s.SimTimeSec,
		"state", s.State,
		"species", s.Species,
		"agents", s.Agents,
		"inits", s.Inits,
		"swapped", s.Swapped,
		"alloc_failed", s.AllocFailed,
		"lum_mean", s.LumMean,
		"lum_max", s.LumMax,
		"coverage", s.Coverage,
	)
}
