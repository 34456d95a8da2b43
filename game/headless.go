package game

import (
	"fmt"
	"time"

	"github.com/pthm-cable/slime/telemetry"
)

// RunSwapped runs headless updates until n frames have swapped. Frames
// before the programs compile record nothing and are not counted.
func (g *Game) RunSwapped(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	done := 0
	for done < n {
		g.UpdateHeadless()
		if g.lastReport.Swapped {
			done++
			continue
		}
		if err := g.Failed(); err != nil {
			return fmt.Errorf("pipelines failed: %w", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("programs not ready after %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// TrailStats reads the presented trail and returns the stats of the last frame.
func (g *Game) TrailStats() (telemetry.FrameStats, error) {
	stats := telemetry.NewFrameStats(g.lastReport, time.Since(g.started).Seconds())
	rgba, _, _, err := g.simulation.ReadCurrent()
	if err != nil {
		return stats, fmt.Errorf("reading trail: %w", err)
	}
	stats.AddTrail(rgba)
	return stats, nil
}
