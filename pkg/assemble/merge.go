package assemble

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// angle returns the counter clockwise angle from (x1,y1) to (x2,y2) in
// [0, 2π).
func angle(x1, y1, x2, y2 float64) float64 {
	a := math.Atan2(x1*y2-x2*y1, x1*x2+y1*y2)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// MergeMesh welds a run of merge correspondences into the complete mesh.
// For every inner element of the run, the faces around the mesh vertex
// that lie in the wedge between the previous and next boundary vertex are
// reconnected to the boundary vertex. The first and last element are left
// alone, welding them would make the mesh non-manifold. reverse selects
// the opposite winding for back sides.
func (b *Builder) MergeMesh(corr []Pair, reverse bool) {
	if len(corr) == 0 {
		return
	}
	incident := make([][]int, len(corr))
	pos := make(map[int][]int, len(corr))
	for i, c := range corr {
		pos[c.Mesh] = append(pos[c.Mesh], i)
	}
	for fi, f := range b.F {
		for _, v := range f {
			for _, i := range pos[v] {
				incident[i] = append(incident[i], fi)
			}
		}
	}

	n := 1
	if reverse {
		n = 2
	}
	for i := 1; i < len(corr)-1; i++ {
		c := b.V[corr[i].Bnd]
		ax, ay := b.V[corr[i-1].Bnd].X-c.X, b.V[corr[i-1].Bnd].Y-c.Y
		bx, by := b.V[corr[i+1].Bnd].X-c.X, b.V[corr[i+1].Bnd].Y-c.Y
		alphaMax := angle(ax, ay, bx, by)
		for _, k := range incident[i] {
			l := -1
			for m := 0; m < 3; m++ {
				if b.F[k][m] == corr[i].Mesh {
					l = m
				}
			}
			if l < 0 {
				continue
			}
			o := b.V[b.F[k][(l+n)%3]]
			alpha := angle(ax, ay, o.X-c.X, o.Y-c.Y)
			if alpha <= alphaMax && alpha > 0 {
				b.F[k][l] = corr[i].Bnd
			}
		}
	}
}

// Merged is the result of MergeAndRemoveDuplicates. Removed and Reindex
// map old vertex indices to the new index space; Reindex is -1 for removed
// vertices.
type Merged struct {
	F       [][3]int
	Keep    []int
	Removed []bool
	Reindex []int
	Parts   [][]int
}

// Remap re-expresses a list of old indices in the new space, dropping
// removed vertices.
func (m *Merged) Remap(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, i := range ids {
		if !m.Removed[i] {
			out = append(out, m.Reindex[i])
		}
	}
	return out
}

// MergeAndRemoveDuplicates removes every vertex listed as a value of merge
// and reconnects its faces to the key vertex it is merged into. nv is the
// vertex count; Keep lists, for each new index, the old vertex it came from.
func MergeAndRemoveDuplicates(nv int, f [][3]int, merge map[int][]int, parts [][]int) *Merged {
	m := &Merged{Removed: make([]bool, nv), Reindex: make([]int, nv)}
	into := make(map[int]int)
	keys := lo.Keys(merge)
	sort.Ints(keys)
	for _, keep := range keys {
		for _, v := range lo.Uniq(merge[keep]) {
			if v == keep {
				continue
			}
			m.Removed[v] = true
			into[v] = keep
		}
	}
	for i := 0; i < nv; i++ {
		m.Reindex[i] = -1
		if !m.Removed[i] {
			m.Reindex[i] = len(m.Keep)
			m.Keep = append(m.Keep, i)
		}
	}
	// Follow chains of merges to a surviving vertex.
	target := func(v int) int {
		for steps := 0; m.Removed[v] && steps <= nv; steps++ {
			v = into[v]
		}
		return m.Reindex[v]
	}
	m.F = make([][3]int, len(f))
	for i, t := range f {
		for k, v := range t {
			m.F[i][k] = target(v)
		}
	}
	m.Parts = make([][]int, len(parts))
	for i, p := range parts {
		m.Parts[i] = m.Remap(p)
	}
	return m
}
