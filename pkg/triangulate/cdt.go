package triangulate

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// Number of bounding-box vertices placed before the input vertices.
const boxVerts = 4

// coincident is the distance under which two points are the same vertex.
const coincident = 1e-9

// tri is one triangle of the working triangulation. Vertices are counter
// clockwise; nb[i] is the triangle across the edge v[i]→v[i+1] and fixed[i]
// marks that edge as a constraint.
type tri struct {
	v     [3]int
	nb    [3]int
	fixed [3]bool
	dead  bool
}

func next(i int) int { return (i + 1) % 3 }
func prev(i int) int { return (i + 2) % 3 }

// edge returns the local index i with v[i]==a and v[i+1]==b, or -1.
func (t *tri) edge(a, b int) int {
	for i := 0; i < 3; i++ {
		if t.v[i] == a && t.v[next(i)] == b {
			return i
		}
	}
	return -1
}

func (t *tri) has(a int) bool {
	return t.v[0] == a || t.v[1] == a || t.v[2] == a
}

func orient(a, b, c r2.Vec) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// inCircle is positive when d lies inside the circumcircle of the counter
// clockwise triangle abc.
func inCircle(a, b, c, d r2.Vec) float64 {
	adx, ady := a.X-d.X, a.Y-d.Y
	bdx, bdy := b.X-d.X, b.Y-d.Y
	cdx, cdy := c.X-d.X, c.Y-d.Y
	ad := adx*adx + ady*ady
	bd := bdx*bdx + bdy*bdy
	cd := cdx*cdx + cdy*cdy
	return adx*(bdy*cd-bd*cdy) - ady*(bdx*cd-bd*cdx) + ad*(bdx*cdy-bdy*cdx)
}

type location int

const (
	inTriangle location = iota
	onEdge
	onVertex
	outside
	blocked
)

// cdt is an incremental constrained Delaunay triangulation inside a
// bounding box.
type cdt struct {
	pts  []r2.Vec
	tris []tri
	vtri []int
	last int
}

func newCDT(pts []r2.Vec) *cdt {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if len(pts) == 0 {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}
	m := math.Max(maxX-minX, maxY-minY) + 1
	c := &cdt{}
	c.pts = append(c.pts,
		r2.Vec{X: minX - m, Y: minY - m},
		r2.Vec{X: maxX + m, Y: minY - m},
		r2.Vec{X: maxX + m, Y: maxY + m},
		r2.Vec{X: minX - m, Y: maxY + m},
	)
	c.vtri = []int{0, 0, 0, 0}
	c.tris = make([]tri, 2)
	c.setTri(0, [3]int{0, 1, 2}, [3]int{-1, -1, 1}, [3]bool{})
	c.setTri(1, [3]int{0, 2, 3}, [3]int{0, -1, -1}, [3]bool{})
	return c
}

func (c *cdt) setTri(t int, v, nb [3]int, fixed [3]bool) {
	c.tris[t].v = v
	c.tris[t].nb = nb
	c.tris[t].fixed = fixed
	for _, x := range v {
		c.vtri[x] = t
	}
}

func (c *cdt) newTri(dead bool) int {
	c.tris = append(c.tris, tri{dead: dead})
	return len(c.tris) - 1
}

// link makes triangle n see `to` across its copy of edge (x,y).
func (c *cdt) link(n, x, y, to int) {
	if n < 0 {
		return
	}
	if i := c.tris[n].edge(y, x); i >= 0 {
		c.tris[n].nb[i] = to
	}
}

// ----------------------------------------------------------------------------
// Point location
// ----------------------------------------------------------------------------

// locate walks from start towards p. When stopAtFixed is set the walk
// reports blocked instead of crossing a constraint edge.
func (c *cdt) locate(p r2.Vec, start int, stopAtFixed bool) (int, location, int) {
	t := start
	if t < 0 || t >= len(c.tris) {
		t = 0
	}
	limit := 4*len(c.tris) + 16
	for step := 0; step < limit; step++ {
		tr := &c.tris[t]
		moved := false
		for k := 0; k < 3; k++ {
			e := (k + step) % 3
			if orient(c.pts[tr.v[e]], c.pts[tr.v[next(e)]], p) < 0 {
				if tr.nb[e] < 0 {
					return t, outside, e
				}
				if stopAtFixed && tr.fixed[e] {
					return t, blocked, e
				}
				t = tr.nb[e]
				moved = true
				break
			}
		}
		if !moved {
			where, i := c.classify(t, p)
			return t, where, i
		}
	}
	if stopAtFixed {
		return t, blocked, -1
	}
	// The walk cycled on a degenerate configuration. Fall back to a scan.
	for t := range c.tris {
		tr := &c.tris[t]
		if orient(c.pts[tr.v[0]], c.pts[tr.v[1]], p) >= 0 &&
			orient(c.pts[tr.v[1]], c.pts[tr.v[2]], p) >= 0 &&
			orient(c.pts[tr.v[2]], c.pts[tr.v[0]], p) >= 0 {
			where, i := c.classify(t, p)
			return t, where, i
		}
	}
	return -1, outside, -1
}

// classify places p, already known to be inside or on triangle t.
func (c *cdt) classify(t int, p r2.Vec) (location, int) {
	tr := &c.tris[t]
	for i := 0; i < 3; i++ {
		if r2.Norm(r2.Sub(c.pts[tr.v[i]], p)) <= coincident {
			return onVertex, i
		}
	}
	for i := 0; i < 3; i++ {
		if orient(c.pts[tr.v[i]], c.pts[tr.v[next(i)]], p) == 0 {
			return onEdge, i
		}
	}
	return inTriangle, -1
}

// ----------------------------------------------------------------------------
// Insertion
// ----------------------------------------------------------------------------

// insert adds p and returns its vertex id. A point coincident with an
// existing vertex returns that vertex.
func (c *cdt) insert(p r2.Vec) (int, error) {
	t, where, i := c.locate(p, c.last, false)
	switch where {
	case outside:
		return -1, errors.Errorf("triangulate: point (%g,%g) outside the bounding box", p.X, p.Y)
	case onVertex:
		return c.tris[t].v[i], nil
	}
	if where == onEdge && c.tris[t].nb[i] < 0 {
		return -1, errors.Errorf("triangulate: point (%g,%g) on the bounding box", p.X, p.Y)
	}
	id := c.addVertex(p)
	if where == onEdge {
		c.splitEdge(t, i, id)
	} else {
		c.splitTri(t, id)
	}
	return id, nil
}

func (c *cdt) addVertex(p r2.Vec) int {
	c.pts = append(c.pts, p)
	c.vtri = append(c.vtri, -1)
	return len(c.pts) - 1
}

func (c *cdt) splitTri(t, p int) {
	T := c.tris[t]
	a, b, cc := T.v[0], T.v[1], T.v[2]
	t1 := c.newTri(T.dead)
	t2 := c.newTri(T.dead)
	c.setTri(t, [3]int{a, b, p}, [3]int{T.nb[0], t1, t2}, [3]bool{T.fixed[0], false, false})
	c.setTri(t1, [3]int{b, cc, p}, [3]int{T.nb[1], t2, t}, [3]bool{T.fixed[1], false, false})
	c.setTri(t2, [3]int{cc, a, p}, [3]int{T.nb[2], t, t1}, [3]bool{T.fixed[2], false, false})
	c.link(T.nb[1], b, cc, t1)
	c.link(T.nb[2], cc, a, t2)
	c.last = t
	c.legalize([][2]int{{t, 0}, {t1, 0}, {t2, 0}})
}

// splitEdge inserts p on edge e of t. Both halves keep the constraint flag
// of the split edge.
func (c *cdt) splitEdge(t, e, p int) {
	T := c.tris[t]
	a, b, cc := T.v[e], T.v[next(e)], T.v[prev(e)]
	u := T.nb[e]
	U := c.tris[u]
	j := U.edge(b, a)
	d := U.v[prev(j)]
	f := T.fixed[e]

	nBC, fBC := T.nb[next(e)], T.fixed[next(e)]
	nCA, fCA := T.nb[prev(e)], T.fixed[prev(e)]
	nAD, fAD := U.nb[next(j)], U.fixed[next(j)]
	nDB, fDB := U.nb[prev(j)], U.fixed[prev(j)]

	tb := c.newTri(T.dead)
	ub := c.newTri(U.dead)
	c.setTri(t, [3]int{a, p, cc}, [3]int{ub, tb, nCA}, [3]bool{f, false, fCA})
	c.setTri(tb, [3]int{p, b, cc}, [3]int{u, nBC, t}, [3]bool{f, fBC, false})
	c.setTri(u, [3]int{b, p, d}, [3]int{tb, ub, nDB}, [3]bool{f, false, fDB})
	c.setTri(ub, [3]int{p, a, d}, [3]int{t, nAD, u}, [3]bool{f, fAD, false})
	c.link(nBC, b, cc, tb)
	c.link(nAD, a, d, ub)
	c.last = t
	c.legalize([][2]int{{t, 2}, {tb, 1}, {u, 2}, {ub, 1}})
}

// flip replaces the diagonal shared by t (across edge e) and its neighbour.
// With t=(a,b,p) and the neighbour (b,a,d) the result is t=(a,d,p) and
// u=(d,b,p).
func (c *cdt) flip(t, e int) (int, int) {
	T := c.tris[t]
	a, b, p := T.v[e], T.v[next(e)], T.v[prev(e)]
	u := T.nb[e]
	U := c.tris[u]
	j := U.edge(b, a)
	d := U.v[prev(j)]

	nBP, fBP := T.nb[next(e)], T.fixed[next(e)]
	nPA, fPA := T.nb[prev(e)], T.fixed[prev(e)]
	nAD, fAD := U.nb[next(j)], U.fixed[next(j)]
	nDB, fDB := U.nb[prev(j)], U.fixed[prev(j)]

	c.setTri(t, [3]int{a, d, p}, [3]int{nAD, u, nPA}, [3]bool{fAD, false, fPA})
	c.setTri(u, [3]int{d, b, p}, [3]int{nDB, nBP, t}, [3]bool{fDB, fBP, false})
	c.link(nAD, a, d, t)
	c.link(nBP, b, p, u)
	return t, u
}

// opposite returns the neighbour across edge e of t and its far vertex.
func (c *cdt) opposite(t, e int) (u, d int) {
	T := &c.tris[t]
	u = T.nb[e]
	if u < 0 {
		return -1, -1
	}
	j := c.tris[u].edge(T.v[next(e)], T.v[e])
	if j < 0 {
		return -1, -1
	}
	return u, c.tris[u].v[prev(j)]
}

// flippable reports whether the quad around edge e of t is strictly convex.
func (c *cdt) flippable(t, e, d int) bool {
	T := &c.tris[t]
	a, b, p := c.pts[T.v[e]], c.pts[T.v[next(e)]], c.pts[T.v[prev(e)]]
	q := c.pts[d]
	return orient(a, q, p) > 0 && orient(q, b, p) > 0
}

// legalize restores the Delaunay property around the given edges. Each
// entry names a triangle and the edge opposite the vertex just inserted.
func (c *cdt) legalize(stack [][2]int) {
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t, e := top[0], top[1]
		T := &c.tris[t]
		if T.fixed[e] {
			continue
		}
		u, d := c.opposite(t, e)
		if u < 0 || c.tris[u].dead != T.dead {
			continue
		}
		a, b, p := c.pts[T.v[e]], c.pts[T.v[next(e)]], c.pts[T.v[prev(e)]]
		if inCircle(a, b, p, c.pts[d]) <= 0 || !c.flippable(t, e, d) {
			continue
		}
		nt, nu := c.flip(t, e)
		stack = append(stack, [2]int{nt, 0}, [2]int{nu, 0})
	}
}

// delaunay runs Lawson flips over every unconstrained edge until none
// applies.
func (c *cdt) delaunay() {
	for pass := 0; pass < 64; pass++ {
		flips := 0
		for t := range c.tris {
			for e := 0; e < 3; e++ {
				T := &c.tris[t]
				if T.fixed[e] || T.dead {
					continue
				}
				u, d := c.opposite(t, e)
				if u < 0 || c.tris[u].dead {
					continue
				}
				a, b, p := c.pts[T.v[e]], c.pts[T.v[next(e)]], c.pts[T.v[prev(e)]]
				if inCircle(a, b, p, c.pts[d]) > 0 && c.flippable(t, e, d) {
					c.flip(t, e)
					flips++
				}
			}
		}
		if flips == 0 {
			return
		}
	}
}

// ----------------------------------------------------------------------------
// Constraints
// ----------------------------------------------------------------------------

// findEdge returns a triangle and local edge index of the edge a→b or b→a.
func (c *cdt) findEdge(a, b int) (int, int, bool) {
	if t := c.vtri[a]; t >= 0 && c.tris[t].has(a) {
		// Rotate around a in both directions.
		for _, dir := range [2]bool{true, false} {
			cur := t
			for steps := 0; steps < len(c.tris) && cur >= 0; steps++ {
				T := &c.tris[cur]
				k := 0
				for T.v[k] != a {
					k++
				}
				if T.v[next(k)] == b {
					return cur, k, true
				}
				if T.v[prev(k)] == b {
					return cur, prev(k), true
				}
				if dir {
					cur = T.nb[k]
				} else {
					cur = T.nb[prev(k)]
				}
				if cur == t {
					break
				}
			}
		}
		return -1, -1, false
	}
	for t := range c.tris {
		if i := c.tris[t].edge(a, b); i >= 0 {
			return t, i, true
		}
		if i := c.tris[t].edge(b, a); i >= 0 {
			return t, i, true
		}
	}
	return -1, -1, false
}

func (c *cdt) fix(t, e int) {
	c.tris[t].fixed[e] = true
	if u, _ := c.opposite(t, e); u >= 0 {
		T := &c.tris[t]
		if j := c.tris[u].edge(T.v[next(e)], T.v[e]); j >= 0 {
			c.tris[u].fixed[j] = true
		}
	}
}

// crosses reports a proper intersection of segments ab and pq.
func crosses(a, b, p, q r2.Vec) bool {
	o1, o2 := orient(a, b, p), orient(a, b, q)
	o3, o4 := orient(p, q, a), orient(p, q, b)
	return ((o1 > 0 && o2 < 0) || (o1 < 0 && o2 > 0)) && ((o3 > 0 && o4 < 0) || (o3 < 0 && o4 > 0))
}

// between returns the parameter of v along ab when v lies on the open
// segment, or -1.
func between(a, b, v r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return -1
	}
	if math.Abs(orient(a, b, v)) > 1e-9*l2 {
		return -1
	}
	s := r2.Dot(r2.Sub(v, a), ab) / l2
	if s <= 0 || s >= 1 {
		return -1
	}
	return s
}

// insertSegment forces the edge a-b into the triangulation.
func (c *cdt) insertSegment(a, b int) error {
	if a == b {
		return nil
	}
	if t, e, ok := c.findEdge(a, b); ok {
		c.fix(t, e)
		return nil
	}
	pa, pb := c.pts[a], c.pts[b]

	// A vertex on the segment splits it.
	split, best := -1, 2.0
	for v := boxVerts; v < len(c.pts); v++ {
		if v == a || v == b {
			continue
		}
		if s := between(pa, pb, c.pts[v]); s > 0 && s < best {
			split, best = v, s
		}
	}
	if split >= 0 {
		if err := c.insertSegment(a, split); err != nil {
			return err
		}
		return c.insertSegment(split, b)
	}

	var queue [][2]int
	for t := range c.tris {
		T := &c.tris[t]
		for e := 0; e < 3; e++ {
			u := T.nb[e]
			if u >= 0 && u < t {
				continue
			}
			p, q := T.v[e], T.v[next(e)]
			if p == a || p == b || q == a || q == b {
				continue
			}
			if crosses(pa, pb, c.pts[p], c.pts[q]) {
				if T.fixed[e] {
					return errors.Errorf("triangulate: segment %d-%d crosses segment %d-%d", a-boxVerts, b-boxVerts, p-boxVerts, q-boxVerts)
				}
				queue = append(queue, [2]int{p, q})
			}
		}
	}

	limit := 64*len(queue)*len(queue) + 1024
	for it := 0; len(queue) > 0; it++ {
		if it > limit {
			return errors.Errorf("triangulate: cannot recover segment %d-%d", a-boxVerts, b-boxVerts)
		}
		pq := queue[0]
		queue = queue[1:]
		t, e, ok := c.findEdge(pq[0], pq[1])
		if !ok {
			continue
		}
		u, d := c.opposite(t, e)
		if u < 0 {
			continue
		}
		if !c.flippable(t, e, d) {
			queue = append(queue, pq)
			continue
		}
		p := c.tris[t].v[prev(e)]
		c.flip(t, e)
		if d != a && d != b && p != a && p != b && crosses(pa, pb, c.pts[d], c.pts[p]) {
			queue = append(queue, [2]int{d, p})
		}
	}

	t, e, ok := c.findEdge(a, b)
	if !ok {
		return errors.Errorf("triangulate: segment %d-%d missing after recovery", a-boxVerts, b-boxVerts)
	}
	c.fix(t, e)
	return nil
}

// ----------------------------------------------------------------------------
// Region carving
// ----------------------------------------------------------------------------

// carve removes every triangle reachable from the bounding box or from a
// hole point without crossing a constraint.
func (c *cdt) carve(holes []r2.Vec) {
	var stack []int
	for t := range c.tris {
		T := &c.tris[t]
		if T.v[0] < boxVerts || T.v[1] < boxVerts || T.v[2] < boxVerts {
			stack = append(stack, t)
		}
	}
	for _, h := range holes {
		if t, where, _ := c.locate(h, c.last, false); t >= 0 && where != outside {
			stack = append(stack, t)
		}
	}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		T := &c.tris[t]
		if T.dead {
			continue
		}
		T.dead = true
		for e := 0; e < 3; e++ {
			if !T.fixed[e] && T.nb[e] >= 0 && !c.tris[T.nb[e]].dead {
				stack = append(stack, T.nb[e])
			}
		}
	}
}
