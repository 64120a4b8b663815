package assemble

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/triangulate"
)

// VertexType tells boundary and interior correspondence endpoints apart.
type VertexType int

const (
	AnyVertex      VertexType = -1
	BoundaryVertex VertexType = 0
	InteriorVertex VertexType = 1
)

// Candidate is a vertex offered for correspondence search.
type Candidate struct {
	Type   VertexType
	Index  int // global vertex index
	Pos    r2.Vec
	Custom int
}

// Corr is a vertex to vertex correspondence between two parts. A is the
// candidate vertex, B the matching vertex of the other part.
type Corr struct {
	TypeA, TypeB VertexType
	A, B         int
	Custom       int
	// Subsequent is set when the previous candidate also matched.
	Subsequent bool
}

// Pair is one merge correspondence: Mesh is a vertex of the part being
// merged into, Bnd the boundary vertex that replaces it.
type Pair struct {
	Mesh, Bnd int
}

// part is one flat mesh before assembly. Face entries are local vertex ids;
// a negative entry -1-k refers to vertex k of the twin part.
type part struct {
	v    []r2.Vec
	f    [][3]int
	ann  []Annotation
	bnd  []int
	comp []int
	twin int
}

// Builder assembles parts into the complete mesh.
type Builder struct {
	parts []*part

	// Flip marks parts whose faces are reversed (back sides).
	Flip []bool

	// Complete mesh, valid after Build.
	V []r3.Vec
	F [][3]int

	// Bnd holds the fixed boundary of the complete mesh and FreeBnd the
	// interior of free boundary runs.
	Bnd, FreeBnd []int
	// Per-part lists in global indices.
	Bnds, FreeBnds, MergeBnds [][]int
	// Parts lists the vertices owned by each part.
	Parts [][]int

	// Correspondence tables indexed by [a][b] for the candidates of part a
	// found on part b.
	EqCorr, IneqCorr [][][]Corr
	MergingCorr      [][][]Pair
}

// NumParts returns the number of parts added so far.
func (b *Builder) NumParts() int { return len(b.parts) }

// AddPart adds a flat mesh whose first vertices are the boundary loops with
// the given sizes. Vertex codes are read from the z coordinate. Vertices not
// referenced by any face are dropped.
func (b *Builder) AddPart(m *triangulate.Mesh, loops []int) error {
	p, err := newPart(m, loops)
	if err != nil {
		return fmt.Errorf("assemble: part %d: %w", len(b.parts), err)
	}
	b.parts = append(b.parts, p)
	b.Flip = append(b.Flip, false)
	return nil
}

func newPart(m *triangulate.Mesh, loops []int) (*part, error) {
	nb := 0
	for _, n := range loops {
		nb += n
	}
	if nb > len(m.V) {
		return nil, fmt.Errorf("%d boundary vertices but only %d vertices", nb, len(m.V))
	}
	used := make([]bool, len(m.V))
	for _, f := range m.F {
		for _, v := range f {
			if v < 0 || v >= len(m.V) {
				return nil, fmt.Errorf("face index %d out of range", v)
			}
			used[v] = true
		}
	}
	local := make([]int, len(m.V))
	p := &part{twin: -1}
	for i, v := range m.V {
		local[i] = -1
		if !used[i] {
			continue
		}
		local[i] = len(p.v)
		p.v = append(p.v, r2.Vec{X: v.X, Y: v.Y})
		p.ann = append(p.ann, ParseAnnotation(v.Z))
	}
	k := 0
	for c, n := range loops {
		for i := 0; i < n; i++ {
			if l := local[k]; l >= 0 {
				p.bnd = append(p.bnd, l)
				p.comp = append(p.comp, c)
			}
			k++
		}
	}
	p.f = make([][3]int, len(m.F))
	for i, f := range m.F {
		// Columns 1 and 2 are swapped so that faces wind clockwise in image
		// coordinates, which is counter clockwise once y points up.
		p.f[i] = [3]int{local[f[0]], local[f[2]], local[f[1]]}
	}
	return p, nil
}

// loops splits the part boundary into its components and picks, for each,
// a start position outside any merge run.
func (p *part) loops() ([][]int, []int) {
	n := 0
	for _, c := range p.comp {
		n = max(n, c+1)
	}
	out := make([][]int, n)
	for i, c := range p.comp {
		out[c] = append(out[c], p.bnd[i])
	}
	starts := make([]int, n)
	for c, loop := range out {
		for j, v := range loop {
			if !p.ann[v].Merge {
				starts[c] = j
				break
			}
		}
	}
	return out, starts
}

// runFlags classifies position j of a boundary loop against its neighbours.
func runFlags(ann []Annotation, loop []int, j int) (freeIn, freeEnd, mergeIn, mergeEnd bool) {
	n := len(loop)
	cur, nxt, prv := ann[loop[j]], ann[loop[(j+1)%n]], ann[loop[(j+n-1)%n]]
	freeIn = cur.Free && nxt.Free && prv.Free
	freeEnd = cur.Free && (!nxt.Free || !prv.Free)
	mergeIn = cur.Merge && nxt.Merge && prv.Merge
	mergeEnd = cur.Merge && (!nxt.Merge || !prv.Merge)
	return
}

// AddTwoSided adds the front and back side of one region. The back side
// shares every boundary vertex with the front except the inner vertices of
// free runs, and its faces are flipped.
func (b *Builder) AddTwoSided(front, back *triangulate.Mesh, sizes []int) error {
	if err := b.AddPart(front, sizes); err != nil {
		return err
	}
	if err := b.AddPart(back, sizes); err != nil {
		return err
	}
	fi, bi := len(b.parts)-2, len(b.parts)-1
	f, p := b.parts[fi], b.parts[bi]
	if len(f.bnd) != len(p.bnd) {
		return fmt.Errorf("assemble: part %d: front has %d boundary vertices, back %d", bi, len(f.bnd), len(p.bnd))
	}
	b.Flip[bi] = true

	shared := make([]bool, len(p.v))
	loops, starts := p.loops()
	for _, loop := range loops {
		for j, v := range loop {
			freeIn, _, _, _ := runFlags(p.ann, loop, j)
			shared[v] = !freeIn
			// Boundary vertices carry the same local id on both sides.
			if shared[v] && (v >= len(f.v) || f.v[v] != p.v[v]) {
				return fmt.Errorf("assemble: part %d: boundary vertex %d differs from the front side", bi, v)
			}
		}
	}

	local := make([]int, len(p.v))
	nv := &part{twin: fi}
	for i := range p.v {
		if shared[i] {
			local[i] = -1 - i
			continue
		}
		local[i] = len(nv.v)
		nv.v = append(nv.v, p.v[i])
		nv.ann = append(nv.ann, p.ann[i])
	}
	nv.f = make([][3]int, len(p.f))
	for i, t := range p.f {
		nv.f[i] = [3]int{local[t[0]], local[t[1]], local[t[2]]}
	}
	for c, loop := range loops {
		n := len(loop)
		for i := starts[c]; i < starts[c]+n; i++ {
			if v := loop[i%n]; !shared[v] {
				nv.bnd = append(nv.bnd, local[v])
				nv.comp = append(nv.comp, c)
			}
		}
	}
	b.parts[bi] = nv
	return nil
}
