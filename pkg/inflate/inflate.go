// Package inflate turns a flat assembled mesh into a rest shape by solving
// for a smooth height field that vanishes on the silhouette.
package inflate

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/assemble"
	"github.com/chazu/mash/pkg/linalg"
)

// ErrNonManifold is returned when the mass matrix of a mesh is not strictly
// diagonal, which happens when some vertex is referenced by no face.
var ErrNonManifold = errors.New("inflate: mesh is not manifold")

// ErrUnanchored is returned when a connected piece of the mesh holds no
// fixed vertex, so its height is not determined.
var ErrUnanchored = errors.New("inflate: mesh component has no fixed vertex")

// stitchWeight pulls boundary vertices towards zero while stitching.
const stitchWeight = 1e-5

// Operators are the discrete differential operators of a mesh.
type Operators struct {
	L    *linalg.Sparse // cotangent Laplacian
	M    *linalg.Sparse // Voronoi mass matrix
	Minv *linalg.Sparse
	F    [][3]int
}

// NewOperators builds the operators of v, f and checks the mesh.
func NewOperators(v []r3.Vec, f [][3]int) (*Operators, error) {
	m := linalg.VoronoiMass(v, f)
	if rows, _ := m.Dims(); m.NonZeros()-rows != 0 {
		return nil, fmt.Errorf("%w: %d of %d vertices carry mass", ErrNonManifold, m.NonZeros(), rows)
	}
	return &Operators{L: linalg.Cotangent(v, f), M: m, Minv: linalg.InvertDiag(m), F: f}, nil
}

// Unanchored returns the smallest vertex of every connected component of f
// that contains none of the fixed vertices, in increasing order.
func Unanchored(f [][3]int, fixed []int) []int {
	g := simple.NewUndirectedGraph()
	for _, t := range f {
		for k := 0; k < 3; k++ {
			a, b := int64(t[k]), int64(t[(k+1)%3])
			if a == b {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
		}
	}
	isFixed := make(map[int64]bool, len(fixed))
	for _, i := range fixed {
		isFixed[int64(i)] = true
	}
	var out []int
	for _, cc := range topo.ConnectedComponents(g) {
		anchored := false
		first := int64(math.MaxInt64)
		for _, n := range cc {
			id := n.ID()
			anchored = anchored || isFixed[id]
			first = min(first, id)
		}
		if !anchored {
			out = append(out, int(first))
		}
	}
	slices.Sort(out)
	return out
}

// Inflate solves −L·z = M·a with the fixed vertices held at zero and shapes
// the result with a signed square root. amount holds the target of every
// vertex; positive amounts bulge towards the viewer.
func Inflate(ops *Operators, fixed []int, amount []float64) ([]float64, error) {
	n, _ := ops.L.Dims()
	if len(amount) != n {
		return nil, fmt.Errorf("inflate: got %d amounts for %d vertices", len(amount), n)
	}
	if free := Unanchored(ops.F, fixed); len(free) > 0 {
		return nil, fmt.Errorf("%w: %d components, first at vertex %d", ErrUnanchored, len(free), free[0])
	}
	q, err := linalg.NewQuadSolver(negate(ops.L, nil), fixed)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	z := make([]float64, n)
	if _, err := q.Solve(ops.M.MulVec(amount), z, nil); err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	for i, v := range z {
		z[i] = math.Copysign(math.Sqrt(math.Abs(v)), v)
	}
	return z, nil
}

// Stitch smooths the heights z so that every armpit pair ends at the same
// depth. Vertices listed in bnd are weakly pulled to zero; nothing is held
// fixed.
func Stitch(ops *Operators, z []float64, bnd []int, pairs []assemble.Armpit) ([]float64, error) {
	n, _ := ops.L.Dims()
	if len(z) != n {
		return nil, fmt.Errorf("inflate: got %d heights for %d vertices", len(z), n)
	}
	reg := make([]float64, n)
	for _, i := range bnd {
		reg[i] = stitchWeight
	}
	a := negate(ops.L, reg)
	q, err := linalg.NewQuadSolver(a, nil)
	if err != nil {
		return nil, fmt.Errorf("inflate: stitch: %w", err)
	}
	if len(pairs) > 0 {
		ts := make([]linalg.Triplet, 0, 2*len(pairs))
		for k, p := range pairs {
			s := float64(p.Sign)
			ts = append(ts, linalg.Triplet{I: k, J: p.First, V: s}, linalg.Triplet{I: k, J: p.Second, V: -s})
		}
		if err := q.Constrain(linalg.NewSparse(len(pairs), n, ts)); err != nil {
			return nil, fmt.Errorf("inflate: stitch: %w", err)
		}
	}
	r := negate(ops.L, nil).MulVec(z)
	out := make([]float64, n)
	if _, err := q.Solve(r, out, nil); err != nil {
		return nil, fmt.Errorf("inflate: stitch: %w", err)
	}
	return out, nil
}

// negate returns −l with d added to the diagonal.
func negate(l *linalg.Sparse, d []float64) *linalg.Sparse {
	rows, cols := l.Dims()
	ts := l.Triplets()
	for k := range ts {
		ts[k].V = -ts[k].V
	}
	for i, v := range d {
		if v != 0 {
			ts = append(ts, linalg.Triplet{I: i, J: i, V: v})
		}
	}
	return linalg.NewSparse(rows, cols, ts)
}
