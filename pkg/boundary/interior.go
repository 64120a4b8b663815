package boundary

import (
	"errors"

	"github.com/chazu/mash/pkg/raster"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrEmptyRegion is returned when a layer mask has no traceable component.
var ErrEmptyRegion = errors.New("empty region")

// InteriorOptions selects which other regions contribute interior points.
type InteriorOptions struct {
	// AboveOnly restricts sources to layers drawn after the current one.
	AboveOnly bool
	// BelowOnly restricts sources to layers drawn before the current one.
	BelowOnly bool
	// MergingPointsOnly keeps only interconnection points of the source.
	MergingPointsOnly bool
	// MergeBothSides lists layers that contribute regardless of order.
	MergeBothSides map[int]bool
}

// InteriorPoints returns the boundary points of other regions that fall
// inside layer i and off its own smoothed outline.
func InteriorPoints(regions []Region, layers []Layer, i int, opt InteriorOptions) []r2.Vec {
	region := layers[i].Region
	own := raster.New[uint8](region.W, region.H)
	for _, loop := range regions[i].Loops {
		for _, p := range loop.Points {
			if x, y := int(p.X), int(p.Y); own.In(x, y) {
				own.Set(x, y, marked)
			}
		}
	}

	var pts []r2.Vec
	for j := range regions {
		if j == i {
			continue
		}
		if !opt.MergeBothSides[j] {
			if opt.AboveOnly && j < i {
				continue
			}
			if opt.BelowOnly && j > i {
				continue
			}
		}
		for _, loop := range regions[j].Loops {
			for l, p := range loop.Points {
				x, y := int(p.X), int(p.Y)
				if !region.In(x, y) || region.Get(x, y) == 0 || own.Get(x, y) != 0 {
					continue
				}
				if !opt.MergingPointsOnly || loop.Hints[l].MissingBoundary {
					pts = append(pts, p)
				}
			}
		}
	}
	return pts
}

// Interconnection returns the running indices of interconnection points over
// all loops of r, in the order the loops are concatenated.
func (r Region) Interconnection() []int {
	var idx []int
	n := 0
	for _, loop := range r.Loops {
		for k, h := range loop.Hints {
			if h.MissingBoundary {
				idx = append(idx, n+k)
			}
		}
		n += len(loop.Points)
	}
	return idx
}

// PointCount returns the number of boundary points over all loops.
func (r Region) PointCount() int {
	n := 0
	for _, loop := range r.Loops {
		n += len(loop.Points)
	}
	return n
}
