// Package linalg holds the sparse operators and constrained solvers used by
// inflation and deformation.
//
// Matrices are james-bowman/sparse CSR matrices, so gonum can consume
// them directly. Factorizations are delegated to gonum's Cholesky, band
// Cholesky and SVD types.
package linalg

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Triplet is one (row, column, value) entry. Duplicate positions are summed.
type Triplet struct {
	I, J int
	V    float64
}

// Sparse is an immutable compressed sparse row matrix. Columns within a
// row are sorted and explicit zeros stay stored, so NonZeros counts every
// position that was assembled.
type Sparse struct {
	csr *sparse.CSR
	ptr []int
	ind []int
	val []float64
}

var _ mat.Matrix = (*Sparse)(nil)

// NewSparse builds a rows×cols matrix from triplets. Entries sharing a
// position are summed; explicit zeros are kept as stored entries.
func NewSparse(rows, cols int, ts []Triplet) *Sparse {
	for _, t := range ts {
		if t.I < 0 || t.I >= rows || t.J < 0 || t.J >= cols {
			panic(fmt.Sprintf("linalg: triplet (%d,%d) outside %dx%d", t.I, t.J, rows, cols))
		}
	}
	sorted := make([]Triplet, len(ts))
	copy(sorted, ts)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].I != sorted[b].I {
			return sorted[a].I < sorted[b].I
		}
		return sorted[a].J < sorted[b].J
	})

	ptr := make([]int, rows+1)
	ind := make([]int, 0, len(sorted))
	val := make([]float64, 0, len(sorted))
	for k, t := range sorted {
		if k > 0 && sorted[k-1].I == t.I && sorted[k-1].J == t.J {
			val[len(val)-1] += t.V
			continue
		}
		ind = append(ind, t.J)
		val = append(val, t.V)
		ptr[t.I+1]++
	}
	for i := 0; i < rows; i++ {
		ptr[i+1] += ptr[i]
	}
	return fromCSR(sparse.NewCSR(rows, cols, ptr, ind, val))
}

func fromCSR(m *sparse.CSR) *Sparse {
	raw := m.RawMatrix()
	return &Sparse{csr: m, ptr: raw.Indptr, ind: raw.Ind, val: raw.Data}
}

// Diag builds a square diagonal matrix.
func Diag(d []float64) *Sparse {
	ts := make([]Triplet, len(d))
	for i, v := range d {
		ts[i] = Triplet{i, i, v}
	}
	return NewSparse(len(d), len(d), ts)
}

func (s *Sparse) Dims() (int, int)   { return s.csr.Dims() }
func (s *Sparse) At(i, j int) float64 { return s.csr.At(i, j) }
func (s *Sparse) T() mat.Matrix       { return mat.Transpose{Matrix: s} }

// CSR exposes the underlying matrix for gonum and sparse interop.
func (s *Sparse) CSR() *sparse.CSR { return s.csr }

// NonZeros returns the number of stored entries, explicit zeros included.
func (s *Sparse) NonZeros() int { return s.csr.NNZ() }

// Row returns the column indices and values stored in row i. The slices
// alias the matrix and must not be modified.
func (s *Sparse) Row(i int) ([]int, []float64) {
	return s.ind[s.ptr[i]:s.ptr[i+1]], s.val[s.ptr[i]:s.ptr[i+1]]
}

// Do calls fn for every stored entry in row-major order.
func (s *Sparse) Do(fn func(i, j int, v float64)) {
	rows, _ := s.Dims()
	for i := 0; i < rows; i++ {
		for k := s.ptr[i]; k < s.ptr[i+1]; k++ {
			fn(i, s.ind[k], s.val[k])
		}
	}
}

// Diagonal returns the main diagonal.
func (s *Sparse) Diagonal() []float64 {
	n := min(s.Dims())
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = s.At(i, i)
	}
	return d
}

// Sum returns the sum of all entries.
func (s *Sparse) Sum() float64 {
	sum := 0.0
	for _, v := range s.val {
		sum += v
	}
	return sum
}

// MulVec returns s·x.
func (s *Sparse) MulVec(x []float64) []float64 {
	return s.mulVec(x, false)
}

// MulVecT returns sᵀ·x.
func (s *Sparse) MulVecT(x []float64) []float64 {
	return s.mulVec(x, true)
}

func (s *Sparse) mulVec(x []float64, trans bool) []float64 {
	rows, cols := s.Dims()
	if trans {
		rows, cols = cols, rows
	}
	if len(x) != cols {
		panic(mat.ErrShape)
	}
	y := make([]float64, rows)
	if rows == 0 || cols == 0 {
		return y
	}
	s.csr.MulVecTo(mat.NewVecDense(rows, y), trans, mat.NewVecDense(cols, x))
	return y
}

// Triplets returns the stored entries.
func (s *Sparse) Triplets() []Triplet {
	ts := make([]Triplet, 0, len(s.val))
	s.Do(func(i, j int, v float64) { ts = append(ts, Triplet{i, j, v}) })
	return ts
}

// Transpose returns sᵀ as a new matrix.
func (s *Sparse) Transpose() *Sparse {
	ts := s.Triplets()
	for k := range ts {
		ts[k].I, ts[k].J = ts[k].J, ts[k].I
	}
	rows, cols := s.Dims()
	return NewSparse(cols, rows, ts)
}

// InvertDiag returns the matrix holding 1/d on the diagonal of a diagonal
// matrix. Zero entries stay zero.
func InvertDiag(s *Sparse) *Sparse {
	ts := make([]Triplet, 0, s.NonZeros())
	s.Do(func(i, j int, v float64) {
		if i != j {
			return
		}
		inv := 0.0
		if v != 0 {
			inv = 1 / v
		}
		ts = append(ts, Triplet{i, j, inv})
	})
	rows, cols := s.Dims()
	return NewSparse(rows, cols, ts)
}
