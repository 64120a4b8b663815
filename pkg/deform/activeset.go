package deform

import (
	"log"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/assemble"
)

// Tables describe the part structure of an assembled mesh in its final
// index space.
type Tables struct {
	// Conds are the depth ordering conditions between parts.
	Conds []assemble.Cond
	// Armpits are stitching pairs kept as equalities in joint mode.
	Armpits []assemble.Armpit
	// Bnds holds the fixed boundary of every part and Parts its vertices.
	Bnds, Parts [][]int
	// MergeBnd lists the vertices on merge boundaries.
	MergeBnd []int
}

// Ineq is an enforced depth inequality: vertex Bnd must stay on the Sign
// side of vertex Mesh.
type Ineq struct {
	Bnd, Mesh, Sign int
}

// violated reports whether q is broken by the heights in v. A positive
// sign asks Bnd to be at least as close to the viewer as Mesh.
func (q Ineq) violated(v []r3.Vec) bool {
	return float64(q.Sign)*(v[q.Mesh].Z-v[q.Bnd].Z) > 0
}

// prepareActiveSet finds, for every vertex taking part in a depth
// condition, the vertex of the other part underneath it and returns the
// inequalities to enforce in this step.
func (e *Engine) prepareActiveSet(v []r3.Vec, f [][3]int) []Ineq {
	n := len(v)
	t := &e.Tables
	isBnd := make([]bool, n)
	for _, b := range t.Bnds {
		for _, i := range b {
			isBnd[i] = true
		}
	}
	isMerge := make([]bool, n)
	if e.InteriorDepthConditions {
		for _, i := range t.MergeBnd {
			isMerge[i] = true
		}
	}
	used := make([]bool, n)
	if e.JointArmpits {
		for _, a := range t.Armpits {
			used[a.First], used[a.Second] = true, true
		}
	}
	partOf := make([]int, n)
	for p, ids := range t.Parts {
		for _, i := range ids {
			partOf[i] = p
		}
	}
	e.buffer.Render(v, f, partOf, len(t.Parts))

	excluded := func(i int) bool {
		return isBnd[i] || e.InteriorDepthConditions && isMerge[i]
	}

	var ineqs []Ineq
	for _, c := range t.Conds {
		if c.Bnd < 0 || c.Bnd >= len(t.Parts) || c.Mesh < 0 || c.Mesh >= len(t.Parts) {
			log.Printf("deform: depth condition %v refers to a missing part, skipped", c)
			continue
		}
		ids := t.Bnds[c.Bnd]
		if e.InteriorDepthConditions {
			ids = t.Parts[c.Bnd]
		}
		for _, b := range ids {
			if e.InteriorDepthConditions && excluded(b) || used[b] {
				continue
			}
			corr := e.underneath(v, f, b, c.Mesh, excluded, used)
			if corr < 0 {
				continue
			}
			q := Ineq{Bnd: b, Mesh: corr, Sign: c.Sign}
			active := false
			if q.violated(v) {
				e.active[b] = corr
				active = true
			} else if prev, ok := e.active[b]; ok {
				// Satisfied constraints stay active while the
				// correspondence holds.
				active = prev == corr
				if !active {
					delete(e.active, b)
				}
			}
			if active {
				ineqs = append(ineqs, q)
			}
			used[corr], used[b] = true, true
		}
	}

	// Drop active entries that found no correspondence this step.
	has := lo.SliceToMap(ineqs, func(q Ineq) (int, bool) { return q.Bnd, true })
	stale := lo.Filter(lo.Keys(e.active), func(b int, _ int) bool { return !has[b] })
	for _, b := range stale {
		delete(e.active, b)
	}
	return ineqs
}

// underneath returns the corner of the face of part covering vertex b's
// pixel that lies nearest to b within the search threshold, or -1. Faces
// touching an excluded vertex give no correspondence.
func (e *Engine) underneath(v []r3.Vec, f [][3]int, b, part int, excluded func(int) bool, used []bool) int {
	x, y := int(v[b].X), int(v[b].Y)
	face := e.buffer.Face(x, y, part)
	if face < 0 {
		return -1
	}
	corr := -1
	best := math.Inf(1)
	for _, i := range f[face] {
		if excluded(i) {
			return -1
		}
		if used[i] {
			continue
		}
		if d := math.Hypot(v[i].X-float64(x), v[i].Y-float64(y)); d < best {
			best, corr = d, i
		}
	}
	if best > e.SearchThreshold {
		return -1
	}
	return corr
}
