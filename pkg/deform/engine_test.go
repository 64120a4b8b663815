package deform

import (
	"maps"
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/assemble"
)

func bump(v []r3.Vec, w, h float64) {
	for i := range v {
		v[i].Z = math.Sin(v[i].X/w*math.Pi) * math.Sin(v[i].Y/h*math.Pi)
	}
}

func newTestEngine() *Engine {
	return NewEngine(NewFaceBuffer(32, 32))
}

func TestDeformRestIsFixedPoint(t *testing.T) {
	v, f := grid(6, 6, 1, 0)
	bump(v, 6, 6)
	m := NewMesh3D(v, f)
	e := newTestEngine()
	e.MaxIter = 3
	d := NewDef()

	diff, err := e.Deform(d, m)
	if err != nil {
		t.Fatalf("Deform: %v", err)
	}
	if !math.IsInf(diff, 1) {
		t.Errorf("first diff = %g, want +Inf", diff)
	}
	for i := range v {
		if r3.Norm(r3.Sub(m.VCurr[i], v[i])) > 1e-9 {
			t.Fatalf("vertex %d moved from %v to %v", i, v[i], m.VCurr[i])
		}
	}
	diff, err = e.Deform(d, m)
	if err != nil {
		t.Fatalf("Deform: %v", err)
	}
	if diff < 0 || diff > 1e-9 {
		t.Errorf("second diff = %g, want ~0", diff)
	}
}

func TestDeformFollowsControlPoints(t *testing.T) {
	v, f := grid(4, 4, 1, 0)
	m := NewMesh3D(v, f)
	e := newTestEngine()
	e.MaxIter = 4
	e.CPOptimizeForXY = false
	e.CPOptimizeForZ = false
	d := NewDef()
	shift := r3.Vec{X: 3, Y: -1}
	for _, i := range border(4, 4, 0) {
		d.AddCP(ControlPoint{Pos: r3.Add(v[i], shift), PtID: i, Fixed: true, Weight: 1})
	}
	for k := 0; k < 3; k++ {
		if _, err := e.Deform(d, m); err != nil {
			t.Fatalf("Deform: %v", err)
		}
	}
	for i := range v {
		want := r3.Add(v[i], shift)
		if r3.Norm(r3.Sub(m.VCurr[i], want)) > 1e-6 {
			t.Errorf("vertex %d at %v, want %v", i, m.VCurr[i], want)
		}
	}
	if e.prevChanged != d.ChangedNum() {
		t.Errorf("engine saw change %d, def is at %d", e.prevChanged, d.ChangedNum())
	}

	// A new control point triggers a new precompute.
	d.AddCP(ControlPoint{Pos: m.VCurr[12], PtID: 12})
	if _, err := e.Deform(d, m); err != nil {
		t.Fatalf("Deform: %v", err)
	}
	if e.prevChanged != d.ChangedNum() {
		t.Errorf("engine saw change %d, def is at %d", e.prevChanged, d.ChangedNum())
	}
}

func TestDeformSkipsBadControlPoint(t *testing.T) {
	v, f := grid(2, 2, 1, 0)
	m := NewMesh3D(v, f)
	e := newTestEngine()
	d := NewDef()
	d.AddCP(ControlPoint{Pos: r3.Vec{X: 9}, PtID: 99})
	if _, err := e.Deform(d, m); err != nil {
		t.Fatalf("Deform with stale control point: %v", err)
	}
}

func TestPrecomputeIdempotent(t *testing.T) {
	v, f := grid(5, 5, 1, 0)
	bump(v, 5, 5)
	d := NewDef()
	d.AddCP(ControlPoint{Pos: r3.Vec{X: 0.5, Y: 0, Z: 0}, PtID: 0})
	d.AddCP(ControlPoint{Pos: r3.Add(v[35], r3.Vec{X: 1, Z: 0.5}), PtID: 35})

	m1, m2 := NewMesh3D(v, f), NewMesh3D(v, f)
	e1, e2 := newTestEngine(), newTestEngine()
	for _, e := range []*Engine{e1, e2} {
		e.CPOptimizeForXY = false
		e.CPOptimizeForZ = false
	}
	if err := e1.Precompute(d, m1); err != nil {
		t.Fatalf("Precompute: %v", err)
	}
	if err := e2.Precompute(d, m2); err != nil {
		t.Fatalf("Precompute: %v", err)
	}
	l := e2.Laplacian()
	if err := e2.Precompute(d, m2); err != nil {
		t.Fatalf("Precompute: %v", err)
	}
	if e2.Laplacian() != l {
		t.Error("second precompute rebuilt the Laplacian")
	}
	n, _ := l.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if e1.Laplacian().At(i, j) != l.At(i, j) {
				t.Fatalf("L(%d,%d) differs", i, j)
			}
		}
	}
	if _, err := e1.Deform(d, m1); err != nil {
		t.Fatalf("Deform: %v", err)
	}
	if _, err := e2.Deform(d, m2); err != nil {
		t.Fatalf("Deform: %v", err)
	}
	if !slices.Equal(m1.VCurr, m2.VCurr) {
		t.Error("deformation differs after repeated precompute")
	}
}

func TestRigidityRange(t *testing.T) {
	v, f := grid(2, 2, 1, 0)
	for _, r := range []float64{0, 1, -0.5} {
		e := newTestEngine()
		e.Rigidity = r
		if err := e.Precompute(NewDef(), NewMesh3D(v, f)); err == nil {
			t.Errorf("rigidity %g accepted", r)
		}
	}
}

func TestTemporalSmoothing(t *testing.T) {
	v, f := grid(2, 2, 1, 0)
	m := NewMesh3D(v, f)
	e := newTestEngine()
	e.CPOptimizeForZ = false
	e.TempSmoothingSteps = 1
	d := NewDef()
	d.AddCP(ControlPoint{Pos: r3.Vec{X: 1, Y: 1, Z: 2}, PtID: 4})

	want := []float64{1, 2}
	for k, w := range want {
		if _, err := e.Deform(d, m); err != nil {
			t.Fatalf("Deform: %v", err)
		}
		if got := m.VCurr[4].Z; math.Abs(got-w) > 1e-12 {
			t.Errorf("step %d: z = %g, want %g", k, got, w)
		}
	}
}

func TestJointArmpits(t *testing.T) {
	va, fa := gridAt(0, 0, 2, 2, 1, 0)
	vb, fb := gridAt(5, 0, 2, 2, 1, 1)
	v := append(va, vb...)
	f := slices.Clone(fa)
	for _, tri := range fb {
		f = append(f, [3]int{tri[0] + 9, tri[1] + 9, tri[2] + 9})
	}
	m := NewMesh3D(v, f)
	e := newTestEngine()
	e.JointArmpits = true
	e.Armpits = []assemble.Armpit{{First: 2, Second: 9, Sign: 1}}
	if _, err := e.Deform(NewDef(), m); err != nil {
		t.Fatalf("Deform: %v", err)
	}
	if d := r3.Norm(r3.Sub(m.VCurr[2], m.VCurr[9])); d > 1e-8 {
		t.Errorf("armpit pair is %g apart: %v %v", d, m.VCurr[2], m.VCurr[9])
	}
}

// overlap builds a 12×12 sheet A at depth 0 and a 4×4 sheet B at depth 1
// drawn over its middle. B must stay in front of A.
func overlap() (*Mesh3D, Tables) {
	va, fa := gridAt(0, 0, 12, 12, 1, 0)
	vb, fb := gridAt(4.5, 4.5, 4, 4, 1, 1)
	na := len(va)
	v := append(slices.Clone(va), vb...)
	f := slices.Clone(fa)
	for _, t := range fb {
		f = append(f, [3]int{t[0] + na, t[1] + na, t[2] + na})
	}
	var pa, pb []int
	for i := 0; i < na; i++ {
		pa = append(pa, i)
	}
	for i := range vb {
		pb = append(pb, na+i)
	}
	return NewMesh3D(v, f), Tables{
		Conds: []assemble.Cond{{Bnd: 1, Mesh: 0, Sign: 1}},
		Bnds:  [][]int{border(12, 12, 0), border(4, 4, na)},
		Parts: [][]int{pa, pb},
	}
}

func TestActiveSet(t *testing.T) {
	const corner = 169 // first vertex of B
	bBorder := make(map[int]bool)
	for _, i := range border(4, 4, corner) {
		bBorder[i] = true
	}

	tests := []struct {
		name     string
		interior bool
		check    func(t *testing.T, as map[int]int)
	}{
		{
			name: "boundary",
			check: func(t *testing.T, as map[int]int) {
				if _, ok := as[corner]; !ok {
					t.Errorf("active set %v lacks the moved corner", as)
				}
				for b := range as {
					if !bBorder[b] {
						t.Errorf("interior vertex %d is active", b)
					}
				}
			},
		},
		{
			name:     "interior",
			interior: true,
			check: func(t *testing.T, as map[int]int) {
				if len(as) == 0 {
					t.Error("active set is empty")
				}
				for b := range as {
					if bBorder[b] {
						t.Errorf("boundary vertex %d is active", b)
					}
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, tables := overlap()
			e := newTestEngine()
			e.Tables = tables
			e.CPOptimizeForXY = false
			e.CPOptimizeForZ = false
			e.MaxIter = 2
			e.InteriorDepthConditions = tt.interior
			d := NewDef()
			for _, i := range []int{0, 12, 156, 168} {
				d.AddCP(ControlPoint{Pos: m.VRest[i], PtID: i})
			}
			cp := d.AddCP(ControlPoint{Pos: m.VRest[corner], PtID: corner})

			if _, err := e.Deform(d, m); err != nil {
				t.Fatalf("Deform: %v", err)
			}
			if as := e.ActiveSet(); len(as) != 0 {
				t.Fatalf("active set %v before any violation", as)
			}

			// Push B's corner behind A. The step that applies the move
			// works on the previous pose; the next one sees the violation.
			if err := d.MoveControlPoint(cp, r3.Vec{X: 4.5, Y: 4.5, Z: -1}); err != nil {
				t.Fatal(err)
			}
			for k := 0; k < 2; k++ {
				if _, err := e.Deform(d, m); err != nil {
					t.Fatalf("Deform: %v", err)
				}
			}
			as := e.ActiveSet()
			tt.check(t, as)
			for b, a := range as {
				if dz := m.VCurr[b].Z - m.VCurr[a].Z; dz < -1e-8 {
					t.Errorf("vertex %d is %g behind vertex %d", b, -dz, a)
				}
			}

			// Without motion the pose converges; from then on the set
			// stays put.
			converged := false
			for k := 0; k < 40 && !converged; k++ {
				diff, err := e.Deform(d, m)
				if err != nil {
					t.Fatalf("Deform: %v", err)
				}
				converged = diff < 1e-10
			}
			if !converged {
				t.Fatal("pose did not converge within 40 steps")
			}
			prev := e.ActiveSet()
			for k := 0; k < 3; k++ {
				if _, err := e.Deform(d, m); err != nil {
					t.Fatalf("Deform: %v", err)
				}
				if cur := e.ActiveSet(); !maps.Equal(prev, cur) {
					t.Fatalf("active set changed without motion: %v -> %v", prev, cur)
				}
			}
		})
	}
}
