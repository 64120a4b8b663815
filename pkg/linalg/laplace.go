package linalg

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// edgeLengths returns, per face, the lengths of the edges opposite each
// corner.
func edgeLengths(v []r3.Vec, f [][3]int) [][3]float64 {
	l := make([][3]float64, len(f))
	for i, t := range f {
		l[i] = [3]float64{
			r3.Norm(r3.Sub(v[t[1]], v[t[2]])),
			r3.Norm(r3.Sub(v[t[2]], v[t[0]])),
			r3.Norm(r3.Sub(v[t[0]], v[t[1]])),
		}
	}
	return l
}

// doubleArea is twice the triangle area from its edge lengths, computed
// with the numerically stable ordering of Heron's formula.
func doubleArea(l [3]float64) float64 {
	a, b, c := l[0], l[1], l[2]
	if a < b {
		a, b = b, a
	}
	if a < c {
		a, c = c, a
	}
	if b < c {
		b, c = c, b
	}
	arg := (a + (b + c)) * (c - (a - b)) * (c + (a - b)) * (a + (b - c))
	if arg < 0 {
		return 0
	}
	return 0.5 * math.Sqrt(arg)
}

// CotangentEntries returns half the cotangent of every face corner. Entry
// k of face i weights the edge opposite corner k.
func CotangentEntries(v []r3.Vec, f [][3]int) [][3]float64 {
	l := edgeLengths(v, f)
	c := make([][3]float64, len(f))
	for i := range f {
		dblA := doubleArea(l[i])
		if dblA == 0 {
			continue
		}
		l2 := [3]float64{l[i][0] * l[i][0], l[i][1] * l[i][1], l[i][2] * l[i][2]}
		c[i] = [3]float64{
			(l2[1] + l2[2] - l2[0]) / dblA / 4,
			(l2[2] + l2[0] - l2[1]) / dblA / 4,
			(l2[0] + l2[1] - l2[2]) / dblA / 4,
		}
	}
	return c
}

// Cotangent builds the cotangent Laplacian. Off-diagonal entries are the
// summed half cotangents of the angles opposite each edge and every row sums
// to zero, so the matrix is negative semi-definite.
func Cotangent(v []r3.Vec, f [][3]int) *Sparse {
	c := CotangentEntries(v, f)
	ts := make([]Triplet, 0, 12*len(f))
	for i, t := range f {
		for k := 0; k < 3; k++ {
			a, b := t[(k+1)%3], t[(k+2)%3]
			w := c[i][k]
			ts = append(ts,
				Triplet{a, b, w},
				Triplet{b, a, w},
				Triplet{a, a, -w},
				Triplet{b, b, -w},
			)
		}
	}
	return NewSparse(len(v), len(v), ts)
}
