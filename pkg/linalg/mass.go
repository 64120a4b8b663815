package linalg

import "gonum.org/v1/gonum/spatial/r3"

// VoronoiMass builds the diagonal Voronoi mass matrix. Obtuse triangles
// give half their area to the obtuse corner and a quarter to each of the
// others.
//
// Only vertices referenced by a face get a stored entry, so an isolated
// vertex shows up as NonZeros() < rows.
func VoronoiMass(v []r3.Vec, f [][3]int) *Sparse {
	l := edgeLengths(v, f)
	ts := make([]Triplet, 0, 3*len(f))
	for i, t := range f {
		dblA := doubleArea(l[i])
		var cosines, bary, partial, quads [3]float64
		for k := 0; k < 3; k++ {
			a, b, c := l[i][k], l[i][(k+1)%3], l[i][(k+2)%3]
			if b*c > 0 {
				cosines[k] = (b*b + c*c - a*a) / (2 * b * c)
			}
			bary[k] = cosines[k] * a
		}
		sum := bary[0] + bary[1] + bary[2]
		for k := 0; k < 3; k++ {
			if sum != 0 {
				partial[k] = bary[k] / sum * dblA * 0.5
			}
		}
		for k := 0; k < 3; k++ {
			quads[k] = (partial[(k+1)%3] + partial[(k+2)%3]) * 0.5
		}
		for k := 0; k < 3; k++ {
			if cosines[k] < 0 {
				quads[k] = 0.25 * dblA
				quads[(k+1)%3] = 0.125 * dblA
				quads[(k+2)%3] = 0.125 * dblA
			}
		}
		for k := 0; k < 3; k++ {
			ts = append(ts, Triplet{t[k], t[k], quads[k]})
		}
	}
	return NewSparse(len(v), len(v), ts)
}
