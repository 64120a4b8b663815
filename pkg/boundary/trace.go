// Package boundary turns region masks into closed boundary polygons.
//
// Each region is traced with a wall-following walk, holes are located by a
// probe point, and every boundary point is tagged with hints describing
// whether an outline stroke was drawn there. The polygons are then smoothed
// and handed to the triangulator together with interior points gathered from
// the boundaries of other regions.
package boundary

import (
	"github.com/chazu/mash/pkg/raster"
	"gonum.org/v1/gonum/spatial/r2"
)

// Background value marked in the trace mask.
const marked = 255

// minLoopPoints is the smallest traced component kept as a boundary.
const minLoopPoints = 10

// Walking directions in clockwise order: right, down, left, up.
var dirs = [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

// traceRegion walks the wall of the first unmarked pixel of m in scanline
// order and calls visit for every boundary pixel. It returns the start pixel
// and false when m has no unmarked pixel left.
func traceRegion(m *raster.Mask, visit func(x, y int)) (sx, sy int, ok bool) {
	sx, sy = -1, -1
	for i, v := range m.Pix {
		if v == 0 {
			sx, sy = i%m.W, i/m.W
			break
		}
	}
	if sx < 0 {
		return -1, -1, false
	}

	free := func(x, y int) bool { return m.In(x, y) && m.Get(x, y) == 0 }

	// Every pixel can be entered from at most four directions.
	limit := 4*len(m.Pix) + 4
	dir := 0
	x, y := sx, sy
	for steps := 0; steps < limit; steps++ {
		turns := 0
		for {
			left := (dir + 3) % 4
			if free(x+dirs[left][0], y+dirs[left][1]) {
				dir = left
				break
			}
			if free(x+dirs[dir][0], y+dirs[dir][1]) {
				break
			}
			dir = (dir + 1) % 4
			turns++
			if turns > 3 {
				// Isolated pixel.
				return sx, sy, true
			}
		}
		visit(x, y)
		x += dirs[dir][0]
		y += dirs[dir][1]
		if x == sx && y == sy {
			break
		}
	}
	return sx, sy, true
}

// FindRegionBoundary traces every connected component of region. Foreground
// components produce outer loops, enclosed background components produce
// hole loops plus one probe point inside each hole. Components with too few
// boundary pixels are dropped. Coordinates are in region pixel space.
func FindRegionBoundary(region *raster.Mask) (loops [][]r2.Vec, holes []r2.Vec) {
	// Binarize and pad so that components touching the border are closed.
	s := raster.New[uint8](region.W+2, region.H+2)
	for y := 0; y < region.H; y++ {
		for x := 0; x < region.W; x++ {
			if region.Get(x, y) != 0 {
				s.Set(x+1, y+1, marked)
			}
		}
	}

	m := raster.New[uint8](s.W, s.H)
	raster.FloodFillInto(s, m, 0, 0, 0, marked)

	outline := raster.New[uint8](s.W, s.H)
	var pts []r2.Vec
	for {
		pts = pts[:0]
		sx, sy, ok := traceRegion(m, func(x, y int) {
			pts = append(pts, r2.Vec{X: float64(x), Y: float64(y)})
		})
		if !ok {
			break
		}
		color := s.Get(sx, sy)
		raster.FloodFillInto(s, m, sx, sy, color, marked)
		if len(pts) <= minLoopPoints {
			continue
		}

		loop := make([]r2.Vec, len(pts))
		for k, p := range pts {
			loop[k] = r2.Vec{X: p.X - 1, Y: p.Y - 1}
		}
		loops = append(loops, loop)

		if color == 0 {
			if h, found := holePoint(s, m, outline, pts); found {
				holes = append(holes, r2.Vec{X: h.X - 1, Y: h.Y - 1})
			}
		}
	}
	return loops, holes
}

// holePoint searches midpoints of chords across a traced hole loop for a
// pixel that is background, already visited, and not on the loop itself.
func holePoint(s, m, outline *raster.Mask, loop []r2.Vec) (r2.Vec, bool) {
	outline.Fill(0)
	for _, p := range loop {
		outline.Set(int(p.X), int(p.Y), marked)
	}
	n := len(loop)
	for k := 0; k < n; k++ {
		for l := n / 2; l < 3*n/2; l++ {
			if l%n == k {
				continue
			}
			c := r2.Scale(0.5, r2.Add(loop[k], loop[l%n]))
			cx, cy := int(c.X), int(c.Y)
			if s.Get(cx, cy) == 0 && m.Get(cx, cy) == marked && outline.Get(cx, cy) == 0 {
				return r2.Vec{X: float64(cx), Y: float64(cy)}, true
			}
		}
	}
	return r2.Vec{}, false
}
