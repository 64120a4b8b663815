// Package triangulate builds flat constrained Delaunay triangulations of
// traced region boundaries.
//
// The input vertex order is preserved in the output: boundary loops first,
// then interior points, then any Steiner points added by refinement. Faces
// are counter clockwise in the x-y plane.
package triangulate

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sentinel is the z value stored on interconnection boundary vertices.
// Read as annotation digits it means "free boundary" and "merge".
const Sentinel = 1100

// Input is one region to triangulate.
type Input struct {
	// Loops are closed boundary polygons. Consecutive points, and the last
	// and first point, form constraint segments.
	Loops [][]r2.Vec
	// Holes holds one point inside each hole.
	Holes []r2.Vec
	// Interior points are inserted as free vertices.
	Interior []r2.Vec
	// Interconnection lists running boundary indices tagged with Sentinel.
	Interconnection []int
}

// Mesh is a flat triangle mesh.
type Mesh struct {
	V []r3.Vec
	F [][3]int
}

// Triangulate triangulates in according to the switch string opts.
func Triangulate(in Input, opts string) (*Mesh, error) {
	o, err := ParseOptions(opts)
	if err != nil {
		return nil, err
	}
	if !o.PSLG {
		return nil, errors.Errorf("triangulate: switch 'p' is required in %q", opts)
	}

	var pts []r2.Vec
	for _, loop := range in.Loops {
		pts = append(pts, loop...)
	}
	nBnd := len(pts)
	pts = append(pts, in.Interior...)
	if nBnd < 3 {
		return nil, errors.Errorf("triangulate: need at least 3 boundary points, got %d", nBnd)
	}

	c := newCDT(pts)
	ids := make([]int, len(pts))
	for i, p := range pts {
		if ids[i], err = c.insert(p); err != nil {
			return nil, errors.Wrapf(err, "inserting point %d", i)
		}
	}

	n := 0
	for k, loop := range in.Loops {
		for l := range loop {
			a, b := ids[n+l], ids[n+(l+1)%len(loop)]
			if err := c.insertSegment(a, b); err != nil {
				return nil, errors.Wrapf(err, "loop %d", k)
			}
		}
		n += len(loop)
	}
	c.delaunay()
	c.carve(in.Holes)

	if o.Quality || o.MaxArea > 0 {
		limit := o.MaxSteiner
		if limit < 0 {
			limit = 50*len(pts) + 100000
		}
		c.refine(o, limit)
	}

	out := make([]int, len(c.pts))
	for i := range out {
		out[i] = -1
	}
	m := &Mesh{V: make([]r3.Vec, 0, len(c.pts)-boxVerts)}
	for i, id := range ids {
		if out[id] < 0 {
			out[id] = i
		}
		m.V = append(m.V, r3.Vec{X: pts[i].X, Y: pts[i].Y})
	}
	for v := boxVerts; v < len(c.pts); v++ {
		if out[v] < 0 {
			out[v] = len(m.V)
			m.V = append(m.V, r3.Vec{X: c.pts[v].X, Y: c.pts[v].Y})
		}
	}

	for t := range c.tris {
		T := &c.tris[t]
		if T.dead {
			continue
		}
		if T.v[0] < boxVerts || T.v[1] < boxVerts || T.v[2] < boxVerts {
			return nil, errors.New("triangulate: region boundary is not closed")
		}
		m.F = append(m.F, [3]int{out[T.v[0]], out[T.v[1]], out[T.v[2]]})
	}
	if len(m.F) == 0 {
		return nil, errors.New("triangulate: no triangles inside the boundary")
	}

	for _, idx := range in.Interconnection {
		if idx >= 0 && idx < nBnd {
			m.V[idx].Z = Sentinel
		}
	}
	return m, nil
}
