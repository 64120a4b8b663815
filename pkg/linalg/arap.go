package linalg

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ARAP holds the spokes-and-rims operators of an as-rigid-as-possible
// energy. K[d] maps per-vertex rotation coefficients of axis d to the
// right-hand side and CSM[d] = K[d]ᵀ gathers the covariance of each
// rotation patch.
type ARAP struct {
	K   [3]*Sparse
	CSM [3]*Sparse
}

// NewARAP builds the operators for the rest shape v.
func NewARAP(v []r3.Vec, f [][3]int) *ARAP {
	c := CotangentEntries(v, f)
	var ts [3][]Triplet
	for i, t := range f {
		for e := 0; e < 3; e++ {
			s, d := t[(e+1)%3], t[(e+2)%3]
			diff := r3.Sub(v[s], v[d])
			comp := [3]float64{diff.X, diff.Y, diff.Z}
			for dim := 0; dim < 3; dim++ {
				w := c[i][e] * comp[dim] / 3
				for _, r := range t {
					ts[dim] = append(ts[dim], Triplet{s, r, w}, Triplet{d, r, -w})
				}
			}
		}
	}
	a := &ARAP{}
	for d := 0; d < 3; d++ {
		a.K[d] = NewSparse(len(v), len(v), ts[d])
		a.CSM[d] = a.K[d].Transpose()
	}
	return a
}

// FitRotations returns the in-plane rotation angle of every vertex patch
// that best maps the rest edges onto the current ones. Rotations act on x
// and y only; z is left rigid.
func (a *ARAP) FitRotations(cur []r3.Vec) []float64 {
	n := len(cur)
	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range cur {
		x[i], y[i] = p.X, p.Y
	}
	// s[d][c] holds row d, column c of every patch covariance.
	var s [2][2][]float64
	for d := 0; d < 2; d++ {
		s[d][0] = a.CSM[d].MulVec(x)
		s[d][1] = a.CSM[d].MulVec(y)
	}
	scale := 0.0
	for d := 0; d < 2; d++ {
		for c := 0; c < 2; c++ {
			for _, v := range s[d][c] {
				scale = math.Max(scale, math.Abs(v))
			}
		}
	}
	theta := make([]float64, n)
	if scale == 0 {
		return theta
	}
	for r := 0; r < n; r++ {
		s00, s01 := s[0][0][r]/scale, s[0][1][r]/scale
		s10, s11 := s[1][0][r]/scale, s[1][1][r]/scale
		theta[r] = math.Atan2(s01-s10, s00+s11)
	}
	return theta
}

// RHS returns the rotation term K·R of the linear step for coordinate
// column c, where R holds the patch rotations given by theta.
func (a *ARAP) RHS(theta []float64, c int) []float64 {
	n := len(theta)
	if c == 2 {
		return a.K[2].MulVec(ones(n))
	}
	g0 := make([]float64, n)
	g1 := make([]float64, n)
	for r, t := range theta {
		sin, cos := math.Sincos(t)
		// Row c of the patch rotation, applied to the rest edge.
		if c == 0 {
			g0[r], g1[r] = cos, -sin
		} else {
			g0[r], g1[r] = sin, cos
		}
	}
	b := a.K[0].MulVec(g0)
	b1 := a.K[1].MulVec(g1)
	for i := range b {
		b[i] += b1[i]
	}
	return b
}

func ones(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = 1
	}
	return o
}
