package linalg

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// rankTol is the relative singular value cutoff used when the constraint
// system is rank deficient.
const rankTol = 1e-12

// maxCond is the largest condition number accepted from the Cholesky
// factorization of the constraint system before falling back to SVD.
const maxCond = 1e12

// QuadSolver minimizes ½xᵀAx − rᵀx over x for a symmetric positive definite
// A, with some variables held at known values and optional equality rows
// Cx = d. The multiplier λ of the solution satisfies Ax − r = Cᵀλ.
//
// The free block of A is reordered with reverse Cuthill-McKee and factorized
// once as a band Cholesky; constraints can be swapped without refactoring.
type QuadSolver struct {
	n     int
	a     *Sparse
	known []bool
	slot  []int
	nu    int
	chol  mat.BandCholesky

	c      *Sparse
	active []int
	u      [][]float64
	w      [][]float64
	schur  mat.Cholesky
	svd    mat.SVD
	rank   int
	useSVD bool
}

// NewQuadSolver factorizes a with the listed variables known.
func NewQuadSolver(a *Sparse, known []int) (*QuadSolver, error) {
	n, c := a.Dims()
	if n != c {
		return nil, fmt.Errorf("linalg: system matrix is %dx%d, want square", n, c)
	}
	q := &QuadSolver{n: n, a: a, known: make([]bool, n), slot: make([]int, n)}
	for _, k := range known {
		if k < 0 || k >= n {
			return nil, fmt.Errorf("linalg: known variable %d outside [0,%d)", k, n)
		}
		q.known[k] = true
	}

	local := make([]int, n)
	var free []int
	for i := 0; i < n; i++ {
		local[i] = -1
		if !q.known[i] {
			local[i] = len(free)
			free = append(free, i)
		}
	}
	q.nu = len(free)
	for i := range q.slot {
		q.slot[i] = -1
	}
	if q.nu == 0 {
		return q, nil
	}

	adj := make([][]int, q.nu)
	for li, i := range free {
		cols, _ := a.Row(i)
		for _, j := range cols {
			if j != i && !q.known[j] {
				adj[li] = append(adj[li], local[j])
			}
		}
	}
	for pos, li := range rcm(adj) {
		q.slot[free[li]] = pos
	}

	k := 0
	a.Do(func(i, j int, _ float64) {
		if q.known[i] || q.known[j] {
			return
		}
		if d := q.slot[j] - q.slot[i]; d > k {
			k = d
		}
	})
	band := mat.NewSymBandDense(q.nu, k, nil)
	a.Do(func(i, j int, v float64) {
		if q.known[i] || q.known[j] {
			return
		}
		if si, sj := q.slot[i], q.slot[j]; si <= sj {
			band.SetSymBand(si, sj, v)
		}
	})
	if ok := q.chol.Factorize(band); !ok {
		return nil, errors.New("linalg: system matrix is not positive definite")
	}
	return q, nil
}

// Size returns the number of variables.
func (q *QuadSolver) Size() int { return q.n }

func (q *QuadSolver) solveFree(b []float64) ([]float64, error) {
	dst := mat.NewVecDense(q.nu, nil)
	if err := q.chol.SolveVecTo(dst, mat.NewVecDense(q.nu, b)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("linalg: solve: %w", err)
		}
	}
	return dst.RawVector().Data, nil
}

// Constrain installs the equality rows c, replacing any previous ones. Rows
// touching only known variables are ignored and get a zero multiplier.
func (q *QuadSolver) Constrain(c *Sparse) error {
	q.c, q.active, q.u, q.w, q.useSVD = nil, nil, nil, nil, false
	if c == nil {
		return nil
	}
	if _, cols := c.Dims(); cols != q.n {
		return fmt.Errorf("linalg: constraint matrix has %d columns, want %d", cols, q.n)
	}
	q.c = c
	rows, _ := c.Dims()
	for k := 0; k < rows; k++ {
		cols, vals := c.Row(k)
		u := make([]float64, q.nu)
		touched := false
		for e, j := range cols {
			if !q.known[j] && vals[e] != 0 {
				u[q.slot[j]] += vals[e]
				touched = true
			}
		}
		if !touched {
			continue
		}
		w, err := q.solveFree(u)
		if err != nil {
			return err
		}
		q.active = append(q.active, k)
		q.u = append(q.u, u)
		q.w = append(q.w, w)
	}
	m := len(q.active)
	if m == 0 {
		return nil
	}
	s := mat.NewSymDense(m, nil)
	for a := 0; a < m; a++ {
		for b := a; b < m; b++ {
			s.SetSym(a, b, dot(q.u[a], q.w[b]))
		}
	}
	if q.schur.Factorize(s) && q.schur.Cond() < maxCond {
		return nil
	}
	if !q.svd.Factorize(s, mat.SVDThin) {
		return errors.New("linalg: constraint system factorization failed")
	}
	q.rank = q.svd.Rank(rankTol)
	q.useSVD = true
	return nil
}

// Solve minimizes for right-hand side r. On entry x carries the values of
// the known variables; on return it holds the full solution. d gives the
// constraint right-hand side and may be nil for zeros. The returned slice
// holds one multiplier per constraint row.
func (q *QuadSolver) Solve(r, x, d []float64) ([]float64, error) {
	if len(r) != q.n || len(x) != q.n {
		return nil, fmt.Errorf("linalg: solve: got %d/%d values, want %d", len(r), len(x), q.n)
	}
	var lambda []float64
	if q.c != nil {
		rows, _ := q.c.Dims()
		lambda = make([]float64, rows)
		if d != nil && len(d) != rows {
			return nil, fmt.Errorf("linalg: solve: got %d constraint values, want %d", len(d), rows)
		}
	}
	if q.nu == 0 {
		return lambda, nil
	}

	rhs := make([]float64, q.nu)
	for i := 0; i < q.n; i++ {
		if q.known[i] {
			continue
		}
		v := r[i]
		cols, vals := q.a.Row(i)
		for e, j := range cols {
			if q.known[j] {
				v -= vals[e] * x[j]
			}
		}
		rhs[q.slot[i]] = v
	}
	sol, err := q.solveFree(rhs)
	if err != nil {
		return nil, err
	}

	if m := len(q.active); m > 0 {
		g := make([]float64, m)
		for a, k := range q.active {
			v := 0.0
			if d != nil {
				v = d[k]
			}
			cols, vals := q.c.Row(k)
			for e, j := range cols {
				if q.known[j] {
					v -= vals[e] * x[j]
				}
			}
			g[a] = v - dot(q.u[a], sol)
		}
		l := mat.NewVecDense(m, nil)
		switch {
		case !q.useSVD:
			if err := q.schur.SolveVecTo(l, mat.NewVecDense(m, g)); err != nil {
				var cond mat.Condition
				if !errors.As(err, &cond) {
					return nil, fmt.Errorf("linalg: constraint solve: %w", err)
				}
			}
		case q.rank > 0:
			q.svd.SolveVecTo(l, mat.NewVecDense(m, g), q.rank)
		}
		for a, k := range q.active {
			la := l.AtVec(a)
			lambda[k] = la
			for i, wi := range q.w[a] {
				sol[i] += la * wi
			}
		}
	}

	for i := 0; i < q.n; i++ {
		if !q.known[i] {
			x[i] = sol[q.slot[i]]
		}
	}
	return lambda, nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
