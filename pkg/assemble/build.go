package assemble

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// candidates holds the correspondence candidates of one part.
type candidates struct {
	eq, ineq, merge []Candidate
}

// Build materializes the complete mesh and searches correspondences
// between every ordered pair of parts.
func (b *Builder) Build() error {
	if len(b.parts) == 0 {
		return fmt.Errorf("assemble: no parts")
	}
	n := len(b.parts)
	b.V, b.F = nil, nil
	b.Bnd, b.FreeBnd = nil, nil
	b.Bnds = make([][]int, n)
	b.FreeBnds = make([][]int, n)
	b.MergeBnds = make([][]int, n)
	b.Parts = make([][]int, n)
	cands := make([]candidates, n)
	base := make([]int, n)

	for a, p := range b.parts {
		base[a] = len(b.V)
		global := func(l int) int {
			if l < 0 {
				return base[p.twin] + (-1 - l)
			}
			return base[a] + l
		}
		c := &cands[a]

		loops, starts := p.loops()
		isBnd := make([]bool, len(p.v))
		for ci, loop := range loops {
			nl := len(loop)
			for i := starts[ci]; i < starts[ci]+nl; i++ {
				j := i % nl
				v := loop[j]
				isBnd[v] = true
				freeIn, _, mergeIn, mergeEnd := runFlags(p.ann, loop, j)
				ann := p.ann[v]
				g := global(v)
				if mergeIn || mergeEnd {
					b.MergeBnds[a] = append(b.MergeBnds[a], g)
				}
				if freeIn {
					b.FreeBnds[a] = append(b.FreeBnds[a], g)
				} else {
					b.Bnds[a] = append(b.Bnds[a], g)
				}
				if !mergeIn {
					cand := Candidate{Type: BoundaryVertex, Index: g, Pos: p.v[v], Custom: ann.Custom}
					if !ann.NoIneq {
						c.ineq = append(c.ineq, cand)
					}
					if !ann.NoEq {
						c.eq = append(c.eq, cand)
					}
				}
			}
		}
		for i := range p.v {
			if isBnd[i] {
				continue
			}
			cand := Candidate{Type: InteriorVertex, Index: global(i), Pos: p.v[i]}
			c.eq = append(c.eq, cand)
			c.ineq = append(c.ineq, cand)
		}
		for _, g := range b.MergeBnds[a] {
			c.merge = append(c.merge, Candidate{Type: BoundaryVertex, Index: g, Pos: b.pos(g, base, a)})
		}

		for i := range p.v {
			b.Parts[a] = append(b.Parts[a], base[a]+i)
			b.V = append(b.V, r3.Vec{X: p.v[i].X, Y: p.v[i].Y})
		}
		for _, t := range p.f {
			g := [3]int{global(t[0]), global(t[1]), global(t[2])}
			if b.Flip[a] {
				g[1], g[2] = g[2], g[1]
			}
			b.F = append(b.F, g)
		}
		b.Bnd = append(b.Bnd, b.Bnds[a]...)
		b.FreeBnd = append(b.FreeBnd, b.FreeBnds[a]...)
	}

	isBnd := make([]bool, len(b.V))
	for _, v := range b.Bnd {
		isBnd[v] = true
	}
	for _, v := range b.FreeBnd {
		isBnd[v] = true
	}

	idx := make([]*pointIndex, n)
	for a := range b.parts {
		idx[a] = newPointIndex(b.V, b.Parts[a])
	}
	b.EqCorr = make([][][]Corr, n)
	b.IneqCorr = make([][][]Corr, n)
	b.MergingCorr = make([][][]Pair, n)
	for a := 0; a < n; a++ {
		b.EqCorr[a] = make([][]Corr, n)
		b.IneqCorr[a] = make([][]Corr, n)
		b.MergingCorr[a] = make([][]Pair, n)
		for o := 0; o < n; o++ {
			if a == o {
				continue
			}
			b.EqCorr[a][o] = findCorrespondences(cands[a].eq, idx[o], isBnd)
			b.IneqCorr[a][o] = findCorrespondences(cands[a].ineq, idx[o], isBnd)
			for _, c := range findCorrespondences(cands[a].merge, idx[o], isBnd) {
				b.MergingCorr[a][o] = append(b.MergingCorr[a][o], Pair{Mesh: c.B, Bnd: c.A})
			}
		}
	}
	return nil
}

// pos returns the position of global vertex g while part a is being
// appended. Vertices of earlier parts are already in b.V.
func (b *Builder) pos(g int, base []int, a int) r2.Vec {
	if g < base[a] {
		return r2.Vec{X: b.V[g].X, Y: b.V[g].Y}
	}
	return b.parts[a].v[g-base[a]]
}
