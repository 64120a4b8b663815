// Package sdfx implements the kernel.Kernel interface using the 2D signed
// distance functions of the github.com/deadsy/sdfx library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/mash/pkg/kernel"
	"github.com/chazu/mash/pkg/raster"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// sdfxShape wraps an sdf.SDF2 to implement kernel.Shape.
type sdfxShape struct {
	s sdf.SDF2
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxShape) BoundingBox() (min, max [2]float64) {
	bb := s.s.BoundingBox()
	return [2]float64{bb.Min.X, bb.Min.Y}, [2]float64{bb.Max.X, bb.Max.Y}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

func unwrap(s kernel.Shape) sdf.SDF2 {
	return s.(*sdfxShape).s
}

func wrap(s sdf.SDF2) kernel.Shape {
	return &sdfxShape{s: s}
}

// Circle creates a circle centered on the origin.
func (k *SdfxKernel) Circle(radius float64) kernel.Shape {
	s, err := sdf.Circle2D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Circle2D: %v", err))
	}
	return wrap(s)
}

// Rect creates a w×h rectangle with its minimum corner at the origin, so
// that (translate (rect 10 20) 5 5) covers pixels 5..15 by 5..25.
// sdf.Box2D centers the box, so it is shifted by half its size.
func (k *SdfxKernel) Rect(w, h float64) kernel.Shape {
	s := sdf.Box2D(v2.Vec{X: w, Y: h}, 0)
	return wrap(sdf.Transform2D(s, sdf.Translate2d(v2.Vec{X: w / 2, Y: h / 2})))
}

// Polygon creates a closed polygon through pts.
func (k *SdfxKernel) Polygon(pts [][2]float64) kernel.Shape {
	vs := make([]v2.Vec, len(pts))
	for i, p := range pts {
		vs[i] = v2.Vec{X: p[0], Y: p[1]}
	}
	s, err := sdf.Polygon2D(vs)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Polygon2D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two shapes.
func (k *SdfxKernel) Union(a, b kernel.Shape) kernel.Shape {
	return wrap(sdf.Union2D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Shape) kernel.Shape {
	return wrap(sdf.Difference2D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two shapes.
func (k *SdfxKernel) Intersection(a, b kernel.Shape) kernel.Shape {
	return wrap(sdf.Intersect2D(unwrap(a), unwrap(b)))
}

// Translate moves a shape by (x, y).
func (k *SdfxKernel) Translate(s kernel.Shape, x, y float64) kernel.Shape {
	return wrap(sdf.Transform2D(unwrap(s), sdf.Translate2d(v2.Vec{X: x, Y: y})))
}

// Rotate rotates a shape about the origin by deg degrees.
func (k *SdfxKernel) Rotate(s kernel.Shape, deg float64) kernel.Shape {
	return wrap(sdf.Transform2D(unwrap(s), sdf.Rotate2d(deg*math.Pi/180.0)))
}

// Rasterize samples the distance field at every pixel center. Pixels
// outside the bounding box are skipped without evaluation.
func (k *SdfxKernel) Rasterize(s kernel.Shape, w, h int) *raster.Mask {
	m := raster.New[uint8](w, h)
	f := unwrap(s)
	bb := f.BoundingBox()
	x0 := max(0, int(math.Floor(bb.Min.X)))
	y0 := max(0, int(math.Floor(bb.Min.Y)))
	x1 := min(w-1, int(math.Ceil(bb.Max.X)))
	y1 := min(h-1, int(math.Ceil(bb.Max.Y)))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if f.Evaluate(v2.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}) <= 0 {
				m.Set(x, y, 255)
			}
		}
	}
	return m
}
