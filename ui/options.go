package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/systems"
)

// SpeciesAction asks the host to change one species.
type SpeciesAction struct {
	ID     uint64
	Action systems.CountAction
}

// OptionsPanel edits the trail options and the species list.
type OptionsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewOptionsPanel creates a new options panel.
func NewOptionsPanel(x, y, width int32) *OptionsPanel {
	return &OptionsPanel{renderer: NewRenderer(), x: x, y: y, width: width, visible: true}
}

// Toggle switches panel visibility.
func (o *OptionsPanel) Toggle() bool {
	o.visible = !o.visible
	return o.visible
}

// SetPosition updates the panel position.
func (o *OptionsPanel) SetPosition(x, y int32) {
	o.x = x
	o.y = y
}

// IsVisible returns whether the panel is shown.
func (o *OptionsPanel) IsVisible() bool { return o.visible }

// Draw renders the panel and returns the edited options and any species
// actions clicked this frame.
func (o *OptionsPanel) Draw(evaporation, diffusion float32, rows []systems.SpeciesInfo) (float32, float32, []SpeciesAction) {
	if !o.visible {
		return evaporation, diffusion, nil
	}

	r := o.renderer
	pad := r.Theme.Padding
	line := r.Theme.LineHeight
	height := pad*2 + line*6 + int32(len(rows))*(line+6)
	r.DrawPanel(o.x, o.y, o.width, height)

	x := float32(o.x + pad)
	y := o.y + pad
	sliderW := float32(o.width - pad*2 - 60)

	y = r.DrawSectionHeader(int32(x), y, "Trail")

	rl.DrawText("Evaporation", int32(x), y, r.Theme.FontSize, r.Theme.LabelColor)
	y += 14
	evaporation = gui.SliderBar(rl.Rectangle{X: x, Y: float32(y), Width: sliderW, Height: 14}, "", "", evaporation, 0, 0.05)
	rl.DrawText(fmt.Sprintf("%.4f", evaporation), int32(x+sliderW)+6, y, r.Theme.FontSize, r.Theme.ValueColor)
	y += line

	rl.DrawText("Diffusion", int32(x), y, r.Theme.FontSize, r.Theme.LabelColor)
	y += 14
	diffusion = gui.SliderBar(rl.Rectangle{X: x, Y: float32(y), Width: sliderW, Height: 14}, "", "", diffusion, 0, 1)
	rl.DrawText(fmt.Sprintf("%.3f", diffusion), int32(x+sliderW)+6, y, r.Theme.FontSize, r.Theme.ValueColor)
	y += line + 4

	y = r.DrawSectionHeader(int32(x), y, "Species")

	var actions []SpeciesAction
	for _, row := range rows {
		r.DrawColorSwatch(int32(x), y, ColorOf(row.Color))
		label := fmt.Sprintf("%s  %d", row.Name, row.NumAgents)
		labelColor := r.Theme.ValueColor
		if !row.Enabled {
			label = row.Name + "  off"
			labelColor = rl.Gray
		}
		rl.DrawText(label, int32(x)+18, y, r.Theme.FontSize, labelColor)

		bx := float32(o.x+o.width-pad) - 3*26
		if gui.Button(rl.Rectangle{X: bx, Y: float32(y - 2), Width: 22, Height: 18}, "-") {
			actions = append(actions, SpeciesAction{ID: row.ID, Action: systems.ActionHalve})
		}
		if gui.Button(rl.Rectangle{X: bx + 26, Y: float32(y - 2), Width: 22, Height: 18}, "+") {
			actions = append(actions, SpeciesAction{ID: row.ID, Action: systems.ActionDouble})
		}
		if gui.Button(rl.Rectangle{X: bx + 52, Y: float32(y - 2), Width: 22, Height: 18}, "x") {
			actions = append(actions, SpeciesAction{ID: row.ID, Action: systems.ActionRemove})
		}
		y += line + 6
	}

	return evaporation, diffusion, actions
}
