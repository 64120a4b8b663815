package boundary

import (
	"fmt"

	"github.com/chazu/mash/pkg/raster"
	"gonum.org/v1/gonum/spatial/r2"
)

// Hint describes one boundary point.
type Hint struct {
	// MissingBoundary marks a point where no outline stroke was drawn. Such
	// points form the interconnection boundary with a neighbouring part.
	MissingBoundary bool
	// Surrounded marks every point of a loop that lies entirely over other
	// regions.
	Surrounded bool
}

// Loop is one closed boundary polygon with a hint per point.
type Loop struct {
	Points []r2.Vec
	Hints  []Hint
}

// Region is the traced boundary of one layer.
type Region struct {
	Loops []Loop
	Holes []r2.Vec
}

// Layer is the drawn input for one region. Region is non-zero inside the
// region. Outline is non-zero where an outline stroke was drawn.
type Layer struct {
	Region  *raster.Mask
	Outline *raster.Mask
}

// Extract traces all layers, tags every boundary point, and smooths the
// loops smoothFactor times. The result is indexed like layers.
func Extract(layers []Layer, smoothFactor int) ([]Region, error) {
	regions := make([]Region, len(layers))
	for i, l := range layers {
		if l.Region == nil || l.Outline == nil {
			return nil, fmt.Errorf("boundary: layer %d: missing mask", i)
		}
		if !raster.SameSize(l.Region, l.Outline) {
			return nil, fmt.Errorf("boundary: layer %d: region %dx%d and outline %dx%d differ",
				i, l.Region.W, l.Region.H, l.Outline.W, l.Outline.H)
		}
		loops, holes := FindRegionBoundary(l.Region)
		if len(loops) == 0 {
			return nil, fmt.Errorf("boundary: layer %d: %w", i, ErrEmptyRegion)
		}
		regions[i].Holes = holes
		for _, pts := range loops {
			regions[i].Loops = append(regions[i].Loops, Loop{Points: pts, Hints: make([]Hint, len(pts))})
		}
	}

	for i := range regions {
		for j := range regions[i].Loops {
			tagLoop(&regions[i].Loops[j], i, layers)
		}
	}

	for i := range regions {
		for j := range regions[i].Loops {
			Smooth(&regions[i].Loops[j], smoothFactor)
		}
	}
	return regions, nil
}

// tagLoop fills the hints of a freshly traced loop of layer i.
func tagLoop(loop *Loop, i int, layers []Layer) {
	outline := layers[i].Outline
	surrounded := true
	for k, p := range loop.Points {
		x, y := int(p.X), int(p.Y)
		if v, err := outline.At(x, y); err == nil && v == 0 {
			loop.Hints[k].MissingBoundary = true
			surrounded = false
		}
		if surrounded {
			surrounded = coveredByOther(layers, i, x, y)
		}
	}
	if surrounded {
		for k := range loop.Hints {
			loop.Hints[k].Surrounded = true
		}
	}
}

func coveredByOther(layers []Layer, i, x, y int) bool {
	for l, layer := range layers {
		if l == i {
			continue
		}
		if v, err := layer.Region.At(x, y); err == nil && v != 0 {
			return true
		}
	}
	return false
}

// Smooth runs passes of an in-place three point moving average over the
// loop. Interconnection points are left where they are.
func Smooth(loop *Loop, passes int) {
	n := len(loop.Points)
	if n < 3 {
		return
	}
	pts := loop.Points
	for s := 0; s < passes; s++ {
		for k := range pts {
			if loop.Hints[k].MissingBoundary {
				continue
			}
			sum := r2.Add(r2.Add(pts[(n+k-1)%n], pts[k]), pts[(k+1)%n])
			pts[k] = r2.Scale(1.0/3, sum)
		}
	}
}
