package soft

import (
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/pthm-cable/slime/gpu"
)

// Image is a software texture. Texels are stored as RGBA float32 and
// quantised to 8 bits on every write when the format is RGBA8Unorm.
type Image struct {
	dev    *Device
	label  string
	width  int
	height int
	format gpu.TextureFormat
	usage  gpu.TextureUsage
	pix    []float32

	// acc holds per-texel RGB deposits in 1/255 units while a compute pass
	// has the image bound for storage.
	acc   []uint32
	dirty atomic.Bool

	destroyed bool
}

func newImage(desc gpu.TextureDescriptor) *Image {
	img := &Image{
		label:  desc.Label,
		width:  int(desc.Width),
		height: int(desc.Height),
		format: desc.Format,
		usage:  desc.Usage,
		pix:    make([]float32, int(desc.Width)*int(desc.Height)*4),
	}
	fill := [4]float32{desc.Fill.R, desc.Fill.G, desc.Fill.B, desc.Fill.A}
	for i := range fill {
		fill[i] = img.quantize(fill[i])
	}
	for i := 0; i < len(img.pix); i += 4 {
		copy(img.pix[i:i+4], fill[:])
	}
	return img
}

func (img *Image) Label() string             { return img.label }
func (img *Image) Width() uint32             { return uint32(img.width) }
func (img *Image) Height() uint32            { return uint32(img.height) }
func (img *Image) Format() gpu.TextureFormat { return img.format }

func (img *Image) size() uint64 {
	return uint64(img.width) * uint64(img.height) * img.format.BytesPerTexel()
}

// Destroy returns the image's reservation to its device.
func (img *Image) Destroy() {
	if d := img.dev; d != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
		if img.destroyed {
			return
		}
		d.stats.LiveBytes -= img.size()
		d.stats.TexturesDestroyed++
	}
	img.destroyed = true
	img.pix = nil
	img.acc = nil
}

// Load returns the texel at (x, y), clamping coordinates to the edge.
func (img *Image) Load(x, y int) [4]float32 {
	x = clampInt(x, 0, img.width-1)
	y = clampInt(y, 0, img.height-1)
	i := (y*img.width + x) * 4
	return [4]float32{img.pix[i], img.pix[i+1], img.pix[i+2], img.pix[i+3]}
}

// Sample reads normalised coordinates (u, v) through a sampler.
func (img *Image) Sample(u, v float32, s SamplerState) [4]float32 {
	if s.Address == gpu.AddressRepeat {
		u -= math32.Floor(u)
		v -= math32.Floor(v)
	}
	fx := u*float32(img.width) - 0.5
	fy := v*float32(img.height) - 0.5
	if s.Filter == gpu.FilterNearest {
		return img.Load(int(math32.Floor(fx+0.5)), int(math32.Floor(fy+0.5)))
	}

	x0 := math32.Floor(fx)
	y0 := math32.Floor(fy)
	tx := fx - x0
	ty := fy - y0
	ix, iy := int(x0), int(y0)

	a := img.Load(ix, iy)
	b := img.Load(ix+1, iy)
	c := img.Load(ix, iy+1)
	d := img.Load(ix+1, iy+1)

	var out [4]float32
	for i := range out {
		top := a[i] + (b[i]-a[i])*tx
		bot := c[i] + (d[i]-c[i])*tx
		out[i] = top + (bot-top)*ty
	}
	return out
}

// Accumulate adds an RGB deposit, in 1/255 units, to texel (x, y).
// Safe for concurrent use within a compute pass; the sum is folded into the
// texel when the pass completes, saturating at 1.
func (img *Image) Accumulate(x, y int, r, g, b uint32) {
	if img.acc == nil || x < 0 || y < 0 || x >= img.width || y >= img.height {
		return
	}
	i := (y*img.width + x) * 3
	if r != 0 {
		atomic.AddUint32(&img.acc[i], r)
	}
	if g != 0 {
		atomic.AddUint32(&img.acc[i+1], g)
	}
	if b != 0 {
		atomic.AddUint32(&img.acc[i+2], b)
	}
	img.dirty.Store(true)
}

// Store writes one texel, clamping to [0, 1] and quantising per format.
func (img *Image) Store(x, y int, c [4]float32) {
	if x < 0 || y < 0 || x >= img.width || y >= img.height {
		return
	}
	i := (y*img.width + x) * 4
	for k := 0; k < 4; k++ {
		img.pix[i+k] = img.quantize(c[k])
	}
}

func (img *Image) beginStorage() {
	if img.acc == nil {
		img.acc = make([]uint32, img.width*img.height*3)
	}
}

func (img *Image) resolve() {
	if !img.dirty.Load() {
		return
	}
	for t := 0; t < img.width*img.height; t++ {
		for c := 0; c < 3; c++ {
			a := img.acc[t*3+c]
			if a == 0 {
				continue
			}
			img.acc[t*3+c] = 0
			p := t*4 + c
			img.pix[p] = img.quantize(img.pix[p] + float32(a)/255)
		}
	}
	img.dirty.Store(false)
}

func (img *Image) clear(c gpu.Color) {
	v := [4]float32{img.quantize(c.R), img.quantize(c.G), img.quantize(c.B), img.quantize(c.A)}
	for i := 0; i < len(img.pix); i += 4 {
		copy(img.pix[i:i+4], v[:])
	}
}

func (img *Image) quantize(v float32) float32 {
	if img.format == gpu.FormatRGBA32Float {
		return v
	}
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return math32.Floor(v*255+0.5) / 255
}

// rgba8 packs the image into 8-bit RGBA.
func (img *Image) rgba8() []byte {
	out := make([]byte, len(img.pix))
	for i, v := range img.pix {
		switch {
		case v <= 0:
			out[i] = 0
		case v >= 1:
			out[i] = 255
		default:
			out[i] = uint8(math32.Floor(v*255 + 0.5))
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
