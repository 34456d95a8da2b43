package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
	"github.com/pthm-cable/slime/ui"
)

const controlsText = "SPACE pause | , . speed | TAB options | arrows/wheel pan+zoom | HOME reset | N new species | P perf | L log | F11 fullscreen"

// Draw presents the trail and the UI. The trail texture is refreshed only
// after a frame that swapped.
func (g *Game) Draw() {
	g.perfCollector.StartPhase(telemetry.PhasePresent)
	if g.lastReport.Swapped {
		if rgba, _, _, err := g.simulation.ReadCurrent(); err == nil {
			g.trailView.Update(rgba)
		} else {
			slog.Debug("trail readback failed", "error", err)
		}
	}

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	sx, sy, sw, sh := g.camera.SourceRect()
	g.trailView.Draw(
		rl.Rectangle{X: sx, Y: sy, Width: sw, Height: sh},
		rl.Rectangle{X: 0, Y: 0, Width: g.screenWidth, Height: g.screenHeight},
	)
	g.drawUI()

	rl.EndDrawing()
	g.perfCollector.EndFrame()
	g.perfCollector.RecordPresent()
}

func (g *Game) drawUI() {
	r := g.lastReport
	mouse := rl.GetMousePosition()
	cx, cy := g.camera.ScreenToField(mouse.X, mouse.Y)
	g.hud.Draw(ui.HUDData{
		Title:    "Slime",
		Frame:    r.Frame,
		State:    r.State,
		Species:  r.Species,
		Agents:   r.Agents,
		Coverage: g.lastStats.Coverage,
		FPS:      rl.GetFPS(),
		Paused:   g.paused,
		Zoom:     g.camera.Zoom,
		CursorX:  cx,
		CursorY:  cy,
		Err:      g.simulation.PipelineErr(),
	})
	g.hud.DrawControls(int32(g.screenHeight), controlsText)

	if g.showPerf {
		g.perfPanel.Draw(g.perfCollector.Stats())
	}

	evap, diff, actions := g.optionsPanel.Draw(g.options.Evaporation, g.options.Diffusion, g.species.List())
	g.SetOptions(sim.Options{Evaporation: evap, Diffusion: diff})
	for _, a := range actions {
		if err := g.species.Apply(a.ID, a.Action); err != nil {
			slog.Warn("species action failed", "id", a.ID, "error", err)
		}
	}
}
