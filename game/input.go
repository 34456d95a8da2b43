package game

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < 10 {
		g.stepsPerUpdate++
	}

	if rl.IsKeyPressed(rl.KeyTab) && g.optionsPanel != nil {
		g.optionsPanel.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.showPerf = !g.showPerf
	}
	if rl.IsKeyPressed(rl.KeyN) {
		g.spawnRandomSpecies()
	}
	if rl.IsKeyPressed(rl.KeyL) {
		g.LogWorldState()
	}

	g.handleCameraInput()
}

const panSpeed = 600 // screen pixels per second

// handleCameraInput pans with the arrow keys and zooms with the wheel.
func (g *Game) handleCameraInput() {
	step := panSpeed * rl.GetFrameTime()
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-step, 0)
	}
	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(step, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -step)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, step)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}

// handleResize keeps the panels anchored to the window edges.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.camera.Resize(w, h)

	if g.optionsPanel != nil {
		g.optionsPanel.SetPosition(int32(w)-290, 10)
	}
}
