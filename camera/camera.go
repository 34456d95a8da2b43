// Package camera provides pan and zoom over the trail field.
package camera

// Camera controls which part of the field is stretched over the viewport.
// Zoom 1 shows the whole field; the view never leaves the field.
type Camera struct {
	// Center of the view in field texels
	X, Y float32

	// Zoom level (1.0 = whole field, 2.0 = half the field per axis)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Field dimensions in texels
	FieldW, FieldH float32

	MaxZoom float32
}

// New creates a camera showing the whole field.
func New(viewportW, viewportH, fieldW, fieldH float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		FieldW:    fieldW,
		FieldH:    fieldH,
		MaxZoom:   8.0,
	}
	c.Reset()
	return c
}

// SourceRect returns the visible field region in texels.
func (c *Camera) SourceRect() (x, y, w, h float32) {
	w = c.FieldW / c.Zoom
	h = c.FieldH / c.Zoom
	return c.X - w/2, c.Y - h/2, w, h
}

// ScreenToField converts a screen position to field texel coordinates.
func (c *Camera) ScreenToField(sx, sy float32) (fx, fy float32) {
	x, y, w, h := c.SourceRect()
	return x + sx/c.ViewportW*w, y + sy/c.ViewportH*h
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the view by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	_, _, w, h := c.SourceRect()
	c.X += dx / c.ViewportW * w
	c.Y += dy / c.ViewportH * h
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to [1, MaxZoom].
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, 1, c.MaxZoom)
	c.clampCenter()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset shows the whole field again.
func (c *Camera) Reset() {
	c.X = c.FieldW / 2
	c.Y = c.FieldH / 2
	c.Zoom = 1.0
}

// clampCenter keeps the visible region inside the field.
func (c *Camera) clampCenter() {
	halfW := c.FieldW / (2 * c.Zoom)
	halfH := c.FieldH / (2 * c.Zoom)
	c.X = clamp(c.X, halfW, c.FieldW-halfW)
	c.Y = clamp(c.Y, halfH, c.FieldH-halfH)
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
