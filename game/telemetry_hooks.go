package game

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/slime/telemetry"
)

// flushTelemetry samples the trail and writes stats once per stats window.
func (g *Game) flushTelemetry() {
	now := time.Now()
	if g.statsWindow <= 0 || now.Sub(g.lastFlush) < g.statsWindow {
		return
	}
	g.lastFlush = now

	stats := telemetry.NewFrameStats(g.lastReport, now.Sub(g.started).Seconds())
	if g.lastReport.Ready {
		if rgba, _, _, err := g.simulation.ReadCurrent(); err == nil {
			stats.AddTrail(rgba)
		} else {
			slog.Debug("trail readback failed", "error", err)
		}
	}
	g.lastStats = stats
	perfStats := g.perfCollector.Stats()

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteFrame(stats); err != nil {
			slog.Error("failed to write frame stats", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.Frame); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
