// Trail snapshot tool - runs the simulation headless and writes the
// presented trail image to a PNG file.
//
// Usage: go run ./cmd/trailsnap -frames 600 -out trail.png
package main

import (
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/game"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "trail.png", "Output PNG path")
	frames := flag.Int("frames", 600, "Simulation frames to run before the snapshot")
	seed := flag.Int64("seed", 0, "Frame seed sequence source (0 = use config)")
	timeout := flag.Duration("timeout", 30*time.Second, "Give up if the programs are not compiled by then")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	g, err := game.NewGameWithOptions(game.Options{Seed: *seed, Headless: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer g.Unload()

	if err := g.RunSwapped(*frames, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	rgba, w, h, err := g.ReadTrail()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read trail: %v\n", err)
		os.Exit(1)
	}
	src := &image.RGBA{Pix: rgba, Stride: int(w) * 4, Rect: image.Rect(0, 0, int(w), int(h))}

	img := rl.NewImageFromImage(src)
	success := rl.ExportImage(*img, *outPath)
	rl.UnloadImage(img)

	if success {
		fmt.Printf("Trail written to: %s (%dx%d, %d frames)\n", *outPath, w, h, g.Frame())
	} else {
		fmt.Fprintf(os.Stderr, "Failed to export image\n")
		os.Exit(1)
	}
}
