package deform

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/raster"
)

// Default face buffer size in pixels.
const (
	DefaultBufferWidth  = 1600
	DefaultBufferHeight = 800
)

// FaceBuffer records, for every part, which face covers each pixel. Both
// front and back facing triangles are drawn; a later face overwrites an
// earlier one. Pixels with no face hold -1.
type FaceBuffer struct {
	W, H  int
	parts []*raster.Image[int32]

	r     *vector.Rasterizer
	alpha image.Alpha
}

// NewFaceBuffer returns a buffer of w×h pixels.
func NewFaceBuffer(w, h int) *FaceBuffer {
	return &FaceBuffer{W: w, H: h, r: vector.NewRasterizer(1, 1)}
}

// Render draws every face f into the layer of the part owning its first
// vertex.
func (b *FaceBuffer) Render(v []r3.Vec, f [][3]int, partOf []int, nParts int) {
	for len(b.parts) < nParts {
		b.parts = append(b.parts, raster.New[int32](b.W, b.H))
	}
	b.parts = b.parts[:nParts]
	for _, im := range b.parts {
		im.Fill(-1)
	}
	for i, t := range f {
		p := partOf[t[0]]
		if p < 0 || p >= nParts {
			continue
		}
		b.fill(v[t[0]], v[t[1]], v[t[2]], b.parts[p], int32(i))
	}
}

// fill rasterizes one triangle and stores id on every pixel it touches.
func (b *FaceBuffer) fill(p0, p1, p2 r3.Vec, dst *raster.Image[int32], id int32) {
	x0 := max(0, int(math.Floor(min(p0.X, p1.X, p2.X))))
	y0 := max(0, int(math.Floor(min(p0.Y, p1.Y, p2.Y))))
	x1 := min(b.W, int(math.Ceil(max(p0.X, p1.X, p2.X)))+1)
	y1 := min(b.H, int(math.Ceil(max(p0.Y, p1.Y, p2.Y)))+1)
	w, h := x1-x0, y1-y0
	if w <= 0 || h <= 0 {
		return
	}

	if n := w * h; cap(b.alpha.Pix) < n {
		b.alpha.Pix = make([]uint8, n)
	} else {
		b.alpha.Pix = b.alpha.Pix[:n]
		clear(b.alpha.Pix)
	}
	b.alpha.Stride = w
	b.alpha.Rect = image.Rect(0, 0, w, h)

	ox, oy := float64(x0), float64(y0)
	b.r.Reset(w, h)
	b.r.DrawOp = draw.Src
	b.r.MoveTo(float32(p0.X-ox), float32(p0.Y-oy))
	b.r.LineTo(float32(p1.X-ox), float32(p1.Y-oy))
	b.r.LineTo(float32(p2.X-ox), float32(p2.Y-oy))
	b.r.ClosePath()
	b.r.Draw(&b.alpha, b.alpha.Rect, image.Opaque, image.Point{})

	for y := 0; y < h; y++ {
		row := b.alpha.Pix[y*w : (y+1)*w]
		for x, a := range row {
			if a > 0 {
				dst.Set(x0+x, y0+y, id)
			}
		}
	}
}

// Face returns the face of part covering pixel (x,y), or -1.
func (b *FaceBuffer) Face(x, y, part int) int {
	if part < 0 || part >= len(b.parts) {
		return -1
	}
	id, err := b.parts[part].At(x, y)
	if err != nil {
		return -1
	}
	return int(id)
}
