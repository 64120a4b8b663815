package deform

import (
	"fmt"
	"log"
	"maps"
	"math"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/linalg"
)

// multiplierEps is the multiplier below which an inequality is slack.
const multiplierEps = 1e-14

// Engine deforms a Mesh3D with an as-rigid-as-possible energy. The x,y
// coordinates and the depth are solved as two separate systems; the depth
// system also carries the active depth inequalities.
//
// Engine is not safe for concurrent use.
type Engine struct {
	Tables

	// TempSmoothingSteps averages the depth over that many previous steps.
	TempSmoothingSteps int
	// MaxIter is the number of ARAP iterations per step and system.
	MaxIter int
	// SearchThreshold bounds the distance, in pixels, of a depth
	// correspondence.
	SearchThreshold float64
	// CPOptimizeForXY and CPOptimizeForZ leave the control points soft in
	// the respective axes instead of pinning them.
	CPOptimizeForXY, CPOptimizeForZ bool
	// JointArmpits keeps armpit pairs as equalities in every step.
	JointArmpits bool
	// InteriorDepthConditions uses the interior of parts, not their
	// boundary, for depth correspondences.
	InteriorDepthConditions bool
	// SolveForZ enables the depth system.
	SolveForZ bool
	// Rigidity in (0,1) trades smoothness against staying in place.
	Rigidity float64

	buffer *FaceBuffer

	mesh        *Mesh3D
	n           int
	prevChanged int64
	l           *linalg.Sparse
	mass        []float64
	massSum     float64
	arap        *linalg.ARAP
	zRest       []float64
	delta       float64
	xy, z       *linalg.QuadSolver

	active  map[int]int
	prev    []r3.Vec
	history [][]float64
}

// NewEngine returns an engine drawing depth correspondences into buf. A
// nil buf gets a buffer of the default size.
func NewEngine(buf *FaceBuffer) *Engine {
	if buf == nil {
		buf = NewFaceBuffer(DefaultBufferWidth, DefaultBufferHeight)
	}
	return &Engine{
		MaxIter:         1,
		SearchThreshold: 5,
		CPOptimizeForXY: true,
		SolveForZ:       true,
		Rigidity:        0.999,
		buffer:          buf,
		prevChanged:     -1,
		active:          make(map[int]int),
	}
}

// ActiveSet returns a copy of the enforced inequalities, keyed by the
// constrained vertex with the vertex it is held against.
func (e *Engine) ActiveSet() map[int]int { return maps.Clone(e.active) }

// Laplacian returns the cotangent Laplacian of the rest pose, or nil before
// the first precompute.
func (e *Engine) Laplacian() *linalg.Sparse { return e.l }

// pinned returns the vertices of the live control points and moves them
// with set. Control points that cannot be resolved are logged and skipped.
func pinned(d *Def, n int, set func(int, *ControlPoint)) []int {
	var pts []int
	for _, id := range d.IDs() {
		cp, err := d.CP(id)
		if err != nil {
			log.Printf("%v, skipped", err)
			continue
		}
		if cp.PtID < 0 || cp.PtID >= n {
			log.Printf("deform: control point %d refers to vertex %d of %d, skipped", id, cp.PtID, n)
			continue
		}
		set(cp.PtID, cp)
		pts = append(pts, cp.PtID)
	}
	return lo.Uniq(pts)
}

// Precompute rebuilds the operators and factorizations for the current
// control points. It is called by Deform when needed.
func (e *Engine) Precompute(d *Def, m *Mesh3D) error {
	if m.Empty() {
		return nil
	}
	if e.Rigidity <= 0 || e.Rigidity >= 1 {
		return fmt.Errorf("deform: rigidity %g outside (0,1)", e.Rigidity)
	}
	if len(m.VCurr) != len(m.VRest) {
		m.VCurr = slices.Clone(m.VRest)
	}
	n := len(m.VRest)

	if e.mesh != m || e.n != n {
		e.mesh, e.n = m, n
		e.l = linalg.Cotangent(m.VRest, m.F)
		mass := linalg.VoronoiMass(m.VRest, m.F)
		e.mass, e.massSum = mass.Diagonal(), mass.Sum()
		e.arap = linalg.NewARAP(m.VRest, m.F)
		e.zRest = e.arap.RHS(make([]float64, n), 2)
		e.prev, e.history = nil, nil
	}

	if s := e.TempSmoothingSteps; s > 0 {
		for len(e.history) < s+1 {
			e.history = append(e.history, depth(m.VCurr))
		}
	}

	pts := pinned(d, n, func(i int, cp *ControlPoint) { m.VCurr[i] = cp.Pos })

	e.delta = (1 - e.Rigidity) / e.Rigidity
	a := system(e.l, e.delta)
	var knownXY, knownZ []int
	if !e.CPOptimizeForXY {
		knownXY = pts
	}
	if !e.CPOptimizeForZ {
		knownZ = pts
	}
	xy, err := linalg.NewQuadSolver(a, knownXY)
	if err != nil {
		return fmt.Errorf("deform: precompute: %w", err)
	}
	if e.JointArmpits && len(e.Armpits) > 0 {
		if err := xy.Constrain(e.rows(nil, n)); err != nil {
			return fmt.Errorf("deform: precompute: %w", err)
		}
	}
	z, err := linalg.NewQuadSolver(a, knownZ)
	if err != nil {
		return fmt.Errorf("deform: precompute: %w", err)
	}
	e.xy, e.z = xy, z
	clear(e.active)
	e.prevChanged = d.ChangedNum()
	return nil
}

// system returns −l + δI.
func system(l *linalg.Sparse, delta float64) *linalg.Sparse {
	n, _ := l.Dims()
	ts := l.Triplets()
	for k := range ts {
		ts[k].V = -ts[k].V
	}
	for i := 0; i < n; i++ {
		ts = append(ts, linalg.Triplet{I: i, J: i, V: delta})
	}
	return linalg.NewSparse(n, n, ts)
}

// rows builds the constraint rows of the depth system: one row per
// inequality followed, in joint mode, by one row per armpit pair.
func (e *Engine) rows(ineqs []Ineq, n int) *linalg.Sparse {
	var ts []linalg.Triplet
	k := 0
	for _, q := range ineqs {
		s := float64(q.Sign)
		ts = append(ts, linalg.Triplet{I: k, J: q.Bnd, V: s}, linalg.Triplet{I: k, J: q.Mesh, V: -s})
		k++
	}
	if e.JointArmpits {
		for _, a := range e.Armpits {
			s := float64(a.Sign)
			ts = append(ts, linalg.Triplet{I: k, J: a.First, V: s}, linalg.Triplet{I: k, J: a.Second, V: -s})
			k++
		}
	}
	if k == 0 {
		return nil
	}
	return linalg.NewSparse(k, n, ts)
}

// Deform advances the current pose of m towards the control points and
// returns the mass weighted mean displacement against the previous call,
// or +Inf when there is nothing to compare with.
func (e *Engine) Deform(d *Def, m *Mesh3D) (float64, error) {
	if m.Empty() {
		return math.Inf(1), nil
	}
	if d.ChangedNum() != e.prevChanged || len(m.VCurr) != len(m.VRest) || e.mesh != m || e.n != len(m.VRest) {
		if err := e.Precompute(d, m); err != nil {
			return math.Inf(1), err
		}
	}
	n := len(m.VRest)

	var ineqs []Ineq
	if e.SolveForZ {
		ineqs = e.prepareActiveSet(m.VCurr, m.F)
		if err := e.z.Constrain(e.rows(ineqs, n)); err != nil {
			return math.Inf(1), fmt.Errorf("deform: %w", err)
		}
	}

	pinned(d, n, func(i int, cp *ControlPoint) {
		if !e.CPOptimizeForXY {
			m.VCurr[i].X, m.VCurr[i].Y = cp.Pos.X, cp.Pos.Y
		}
		if !e.CPOptimizeForZ {
			m.VCurr[i].Z = cp.Pos.Z
		}
	})

	vxy := slices.Clone(m.VCurr)
	for i := 0; i < e.MaxIter; i++ {
		if err := e.solveXY(vxy); err != nil {
			return math.Inf(1), err
		}
	}
	var lambda []float64
	vz := depth(m.VCurr)
	if e.SolveForZ {
		for i := 0; i < e.MaxIter; i++ {
			var err error
			if lambda, err = e.solveZ(vz); err != nil {
				return math.Inf(1), err
			}
		}
	}
	for i := range m.VCurr {
		m.VCurr[i].X, m.VCurr[i].Y = vxy[i].X, vxy[i].Y
		if e.SolveForZ {
			m.VCurr[i].Z = vz[i]
		}
	}

	// Inequalities whose multiplier shows no force are released.
	if len(lambda) > 0 {
		for k, q := range ineqs {
			if lambda[k] < multiplierEps {
				delete(e.active, q.Bnd)
			}
		}
	}

	if s := e.TempSmoothingSteps; s > 0 && len(e.history) >= s {
		e.history = append([][]float64{depth(m.VCurr)}, e.history...)
		for i := range m.VCurr {
			sum := 0.0
			for _, h := range e.history[:s+1] {
				sum += h[i]
			}
			m.VCurr[i].Z = sum / float64(s+1)
		}
		e.history = e.history[:len(e.history)-1]
	}

	diff := math.Inf(1)
	if len(e.prev) == n && len(e.mass) == n && e.massSum > 0 {
		sum := 0.0
		for i := range m.VCurr {
			sum += e.mass[i] * r3.Norm(r3.Sub(m.VCurr[i], e.prev[i]))
		}
		diff = sum / e.massSum
	}
	e.prev = slices.Clone(m.VCurr)
	return diff, nil
}

// solveXY runs one iteration of the planar system on v.
func (e *Engine) solveXY(v []r3.Vec) error {
	theta := e.arap.FitRotations(v)
	for c := 0; c < 2; c++ {
		r := e.arap.RHS(theta, c)
		x := make([]float64, len(v))
		for i, p := range v {
			x[i] = p.X
			if c == 1 {
				x[i] = p.Y
			}
			r[i] += e.delta * x[i]
		}
		if _, err := e.xy.Solve(r, x, nil); err != nil {
			return fmt.Errorf("deform: solve: %w", err)
		}
		for i := range v {
			if c == 0 {
				v[i].X = x[i]
			} else {
				v[i].Y = x[i]
			}
		}
	}
	return nil
}

// solveZ runs one iteration of the depth system on z and returns the
// constraint multipliers.
func (e *Engine) solveZ(z []float64) ([]float64, error) {
	r := make([]float64, len(z))
	for i := range r {
		r[i] = e.zRest[i] + e.delta*z[i]
	}
	lambda, err := e.z.Solve(r, z, nil)
	if err != nil {
		return nil, fmt.Errorf("deform: depth solve: %w", err)
	}
	return lambda, nil
}

func depth(v []r3.Vec) []float64 {
	z := make([]float64, len(v))
	for i, p := range v {
		z[i] = p.Z
	}
	return z
}
