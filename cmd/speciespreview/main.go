// Species preview tool - interactive tuning of one species on a small
// field with sliders.
//
// Usage: go run ./cmd/speciespreview
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/components"
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/game"
	"github.com/pthm-cable/slime/renderer"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
	fieldSize    = 256
)

// previewParams holds the slider values.
type previewParams struct {
	Speed        float32
	TurnSpeed    float32
	ViewDistance float32
	FieldOfView  float32
	Agents       float32
	Evaporation  float32
	Diffusion    float32
}

func paramsFromConfig(cfg *config.Config) previewParams {
	sp := cfg.Species[0]
	return previewParams{
		Speed:        float32(sp.Speed),
		TurnSpeed:    float32(sp.TurnSpeed),
		ViewDistance: float32(sp.ViewDistance),
		FieldOfView:  float32(sp.FieldOfView),
		Agents:       float32(sp.NumAgents),
		Evaporation:  float32(cfg.Simulation.Evaporation),
		Diffusion:    float32(cfg.Simulation.Diffusion),
	}
}

// slider draws one labeled slider and returns the new value.
func slider(x float32, y *float32, label, format string, value, min, max float32) float32 {
	rl.DrawText(label, int32(x), int32(*y), 14, rl.Gray)
	*y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x, Y: *y, Width: float32(panelWidth - 80), Height: 20},
		"", "",
		value, min, max,
	)
	rl.DrawText(fmt.Sprintf(format, v), int32(x+float32(panelWidth-70)), int32(*y+2), 16, rl.DarkGray)
	*y += 35
	return v
}

func main() {
	configPath := flag.String("config", "", "Config whose first species is previewed (empty = use defaults)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Field.Width = fieldSize
	cfg.Field.Height = fieldSize
	cfg.Species = cfg.Species[:1]
	if err := cfg.Refresh(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	rl.InitWindow(windowWidth, windowHeight, "Species Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	g, err := game.NewGameWithOptions(game.Options{Headless: true, Config: cfg})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer g.Unload()

	view := renderer.NewTrailView(fieldSize, fieldSize)
	view.Init()
	defer view.Unload()

	defaults := paramsFromConfig(cfg)
	params := defaults
	name := cfg.Species[0].Name
	baseQ := components.Qualities(cfg.Species[0].Qualities())
	speciesID := g.Species().List()[0].ID

	var stats telemetry.FrameStats
	paused := false

	for !rl.WindowShouldClose() {
		if !paused {
			g.UpdateHeadless()
			if g.LastReport().Swapped {
				if rgba, _, _, err := g.ReadTrail(); err == nil {
					view.Update(rgba)
				}
			}
			if g.Frame()%15 == 0 {
				if s, err := g.TrailStats(); err == nil {
					stats = s
				}
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		view.Draw(
			rl.Rectangle{X: 0, Y: 0, Width: fieldSize, Height: fieldSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Coverage: %.1f%%  Lum mean: %.3f  Lum std: %.3f", stats.Coverage*100, stats.LumMean, stats.LumStd), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Frame: %d  Pipelines: %s", g.Frame(), g.LastReport().State), 15, statsY+20, 16, rl.DarkGray)

		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Species Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		next := params
		next.Speed = slider(panelX, &panelY, "Speed (field fraction per frame)", "%.4f", params.Speed, 0.0001, 0.005)
		next.TurnSpeed = slider(panelX, &panelY, "Turn speed (radians per frame)", "%.2f", params.TurnSpeed, 0, 1)
		next.ViewDistance = slider(panelX, &panelY, "View distance (field fraction)", "%.3f", params.ViewDistance, 0.001, 0.1)
		next.FieldOfView = slider(panelX, &panelY, "Field of view (radians)", "%.2f", params.FieldOfView, 0, 3.14)
		next.Agents = slider(panelX, &panelY, "Agents", "%.0f", params.Agents, 1, 65536)

		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
		panelY += 15

		next.Evaporation = slider(panelX, &panelY, "Evaporation", "%.4f", params.Evaporation, 0, 0.05)
		next.Diffusion = slider(panelX, &panelY, "Diffusion", "%.2f", params.Diffusion, 0, 1)

		if next != params {
			params = next
			q := baseQ
			q.Speed = params.Speed
			q.TurnSpeed = params.TurnSpeed
			q.ViewDistance = params.ViewDistance
			q.FieldOfView = params.FieldOfView
			if err := g.Species().SetQualities(speciesID, q); err != nil {
				log.Printf("set qualities: %v", err)
			}
			if err := g.Species().SetAgentCount(speciesID, uint32(params.Agents)); err != nil {
				log.Printf("set agent count: %v", err)
			}
			g.SetOptions(sim.Options{Evaporation: params.Evaporation, Diffusion: params.Diffusion})
		}
		panelY += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(paused, "Resume", "Pause")) {
			paused = !paused
		}

		// A new id re-runs agent initialization
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Respawn") {
			if err := g.Species().Remove(speciesID); err != nil {
				log.Printf("remove: %v", err)
			}
			qual := baseQ
			qual.Speed, qual.TurnSpeed = params.Speed, params.TurnSpeed
			qual.ViewDistance, qual.FieldOfView = params.ViewDistance, params.FieldOfView
			speciesID = g.Species().Spawn(name, uint32(params.Agents), qual)
		}
		panelY += 40

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults
			if err := g.Species().SetQualities(speciesID, baseQ); err != nil {
				log.Printf("set qualities: %v", err)
			}
			if err := g.Species().SetAgentCount(speciesID, uint32(params.Agents)); err != nil {
				log.Printf("set agent count: %v", err)
			}
			g.SetOptions(sim.Options{Evaporation: params.Evaporation, Diffusion: params.Diffusion})
		}
		panelY += 45

		yaml := speciesYAML(name, params)
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		rl.DrawText(yaml, int32(panelX), int32(panelY), 14, rl.Gray)

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

func speciesYAML(name string, p previewParams) string {
	return fmt.Sprintf(`simulation:
  evaporation: %.4f
  diffusion: %.2f
species:
  - name: %s
    num_agents: %d
    speed: %.4f
    turn_speed: %.2f
    view_distance: %.3f
    field_of_view: %.2f`,
		p.Evaporation, p.Diffusion, name, int(p.Agents),
		p.Speed, p.TurnSpeed, p.ViewDistance, p.FieldOfView)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
