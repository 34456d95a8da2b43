package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// TrailView draws the trail field as a texture stretched over a rectangle.
// The texture is re-uploaded from the RGBA8 readback every presented frame.
type TrailView struct {
	tex        rl.Texture2D
	texW, texH int
	pixels     []color.RGBA

	initialized bool
}

// NewTrailView creates a view for a w x h trail field.
func NewTrailView(w, h int) *TrailView {
	return &TrailView{texW: w, texH: h}
}

// Init creates the texture (must be called after the raylib window is created).
func (v *TrailView) Init() {
	if v.initialized {
		return
	}
	img := rl.GenImageColor(v.texW, v.texH, rl.Black)
	v.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(v.tex, rl.FilterBilinear)
	rl.SetTextureWrap(v.tex, rl.WrapClamp)
	rl.UnloadImage(img)

	v.pixels = make([]color.RGBA, v.texW*v.texH)
	v.initialized = true
}

// Update uploads an RGBA8 image of the field size. Other sizes are ignored.
func (v *TrailView) Update(rgba []byte) {
	if !v.initialized {
		v.Init()
	}
	if len(rgba) != v.texW*v.texH*4 {
		return
	}
	for i := range v.pixels {
		p := rgba[i*4 : i*4+4]
		v.pixels[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: 255}
	}
	rl.UpdateTexture(v.tex, v.pixels)
}

// Draw stretches the src region of the field (in texels) over dst.
func (v *TrailView) Draw(src, dst rl.Rectangle) {
	if !v.initialized {
		return
	}
	rl.DrawTexturePro(v.tex, src, dst, rl.Vector2{}, 0, rl.White)
}

// Size returns the field size in texels.
func (v *TrailView) Size() (int, int) { return v.texW, v.texH }

// Unload frees GPU resources.
func (v *TrailView) Unload() {
	if !v.initialized {
		return
	}
	rl.UnloadTexture(v.tex)
	v.initialized = false
}
