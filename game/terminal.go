package game

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/slime/tui"
	"github.com/pthm-cable/slime/telemetry"
)

// RunTerminal drives the game in a terminal until the user quits or
// maxFrames simulation frames have run (0 = unlimited).
func (g *Game) RunTerminal(view *tui.View, targetFPS int, maxFrames uint64) {
	interval := time.Second / 30
	if targetFPS > 0 {
		interval = time.Second / time.Duration(targetFPS)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		switch view.Poll() {
		case tui.ActionQuit:
			return
		case tui.ActionPause:
			g.TogglePause()
		}
		if g.paused {
			continue
		}

		g.perfCollector.BeginFrame()
		for i := 0; i < g.stepsPerUpdate; i++ {
			g.step()
		}
		g.perfCollector.StartPhase(telemetry.PhasePresent)
		if g.lastReport.Swapped {
			if rgba, w, h, err := g.simulation.ReadCurrent(); err == nil {
				view.Draw(rgba, int(w), int(h))
			} else {
				slog.Debug("trail readback failed", "error", err)
			}
		}
		g.perfCollector.EndFrame()
		g.perfCollector.RecordPresent()
		g.flushTelemetry()

		if maxFrames > 0 && g.Frame() >= maxFrames {
			return
		}
	}
}
