package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title    string
	Frame    uint64
	State    string // pipeline state name
	Species  int
	Agents   uint64
	Coverage float64
	FPS      int32
	Paused   bool
	Zoom     float32
	CursorX  float32 // field texel under the mouse
	CursorY  float32
	Err      error // terminal pipeline error, if any
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Species: %d | Agents: %d | Coverage: %.1f%%", data.Species, data.Agents, data.Coverage*100),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Frame: %d | Pipelines: %s | FPS: %d", data.Frame, data.State, data.FPS),
		10, 55, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Zoom: %.1fx | Cursor: %.0f, %.0f", data.Zoom, data.CursorX, data.CursorY),
		10, 95, 14, rl.Gray,
	)

	switch {
	case data.Err != nil:
		rl.DrawText("Pipeline failed: "+data.Err.Error(), 10, 75, 16, rl.Red)
	case data.Paused:
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	case data.State != "cached":
		rl.DrawText("Compiling programs...", 10, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase frame timing.
type PerfPanel struct {
	renderer *Renderer
	phases   *telemetry.PhaseRegistry
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), phases: telemetry.NewPhaseRegistry(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y
	p.renderer.DrawPanel(x-6, y-6, 250, int32(len(telemetry.Phases))*14+46+2*p.renderer.Theme.LineHeight)

	rl.DrawText("Frame Phases", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Avg: %s  Max: %s", stats.AvgFrame.Round(time.Microsecond), stats.MaxFrame.Round(time.Microsecond)), x, y, 12, rl.Yellow)
	y += 16

	for _, phase := range p.phases.IDs() {
		pct := stats.PhasePct[phase]
		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", p.phases.GetName(phase), stats.PhaseAvg[phase].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}

	y += 4
	y = p.renderer.DrawLabelValue(x, y, "Sim rate", fmt.Sprintf("%.0f frames/s", stats.FramesPerSecond))
	p.renderer.DrawBar(x, y, "Submit", float32(stats.PhasePct[telemetry.PhaseSubmit]/100), 240)
}
