package assemble

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Coincident is the per-axis distance under which two vertices are taken to
// be the same point.
const Coincident = 1e-4

// vertexItem is a vertex stored in the r-tree. order is its position in the
// part vertex list.
type vertexItem struct {
	id, order int
	rect      rtreego.Rect
}

func (v *vertexItem) Bounds() rtreego.Rect { return v.rect }

// pointIndex finds part vertices coinciding with a query point.
type pointIndex struct {
	tree *rtreego.Rtree
	pos  []r3.Vec
}

func newPointIndex(v []r3.Vec, ids []int) *pointIndex {
	objs := make([]rtreego.Spatial, len(ids))
	for k, id := range ids {
		objs[k] = &vertexItem{
			id:    id,
			order: k,
			rect:  rtreego.Point{v[id].X, v[id].Y}.ToRect(Coincident / 100),
		}
	}
	return &pointIndex{tree: rtreego.NewTree(2, 25, 50, objs...), pos: v}
}

// match returns the coinciding vertex that comes last in the part list.
func (idx *pointIndex) match(p r2.Vec) (int, bool) {
	best, order := -1, -1
	for _, s := range idx.tree.SearchIntersect(rtreego.Point{p.X, p.Y}.ToRect(Coincident)) {
		it := s.(*vertexItem)
		q := idx.pos[it.id]
		if math.Abs(q.X-p.X) < Coincident && math.Abs(q.Y-p.Y) < Coincident && it.order > order {
			best, order = it.id, it.order
		}
	}
	return best, best >= 0
}

// findCorrespondences matches every candidate against the indexed part.
// The loop first visits the last candidate so that Subsequent of the first
// one reflects the wrap around of closed boundaries. A candidate index is
// matched at most once.
func findCorrespondences(cands []Candidate, idx *pointIndex, isBnd []bool) []Corr {
	if len(cands) == 0 {
		return nil
	}
	var out []Corr
	used := make(map[int]bool)
	subsequent := true
	for k := -1; k < len(cands); k++ {
		i := k
		if k < 0 {
			i = len(cands) - 1
		}
		c := cands[i]
		found := false
		if j, ok := idx.match(c.Pos); ok && !used[c.Index] {
			if k >= 0 {
				tb := InteriorVertex
				if isBnd[j] {
					tb = BoundaryVertex
				}
				out = append(out, Corr{TypeA: c.Type, TypeB: tb, A: c.Index, B: j, Custom: c.Custom, Subsequent: subsequent})
				used[c.Index] = true
			}
			found = true
		}
		subsequent = found
	}
	return out
}
