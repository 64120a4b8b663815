package triangulate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// minFeature is the shortest edge that angle refinement still splits.
const minFeature = 0.05

// around returns the triangles incident to vertex v.
func (c *cdt) around(v int) []int {
	t := c.vtri[v]
	if t < 0 || !c.tris[t].has(v) {
		var out []int
		for i := range c.tris {
			if c.tris[i].has(v) {
				out = append(out, i)
			}
		}
		return out
	}
	seen := map[int]bool{t: true}
	out := []int{t}
	for _, dir := range [2]bool{true, false} {
		cur := t
		for steps := 0; steps < len(c.tris); steps++ {
			T := &c.tris[cur]
			k := 0
			for T.v[k] != v {
				k++
			}
			if dir {
				cur = T.nb[k]
			} else {
				cur = T.nb[prev(k)]
			}
			if cur < 0 || seen[cur] {
				break
			}
			seen[cur] = true
			out = append(out, cur)
		}
	}
	return out
}

func (c *cdt) key(t int) [3]int {
	k := c.tris[t].v
	s := k[:]
	sort.Ints(s)
	return k
}

func (c *cdt) circumcenter(t int) (r2.Vec, bool) {
	T := &c.tris[t]
	a, b, cc := c.pts[T.v[0]], c.pts[T.v[1]], c.pts[T.v[2]]
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := cc.X-a.X, cc.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	if d == 0 {
		return r2.Vec{}, false
	}
	b2, c2 := bx*bx+by*by, cx*cx+cy*cy
	return r2.Vec{
		X: a.X + (cy*b2-by*c2)/d,
		Y: a.Y + (bx*c2-cx*b2)/d,
	}, true
}

// bad reports whether t violates the area or angle bound. Angles enclosed
// by two constraint edges cannot be improved and are ignored.
func (c *cdt) bad(t int, o Options, minAngle float64) bool {
	T := &c.tris[t]
	p := [3]r2.Vec{c.pts[T.v[0]], c.pts[T.v[1]], c.pts[T.v[2]]}
	if o.MaxArea > 0 && orient(p[0], p[1], p[2])/2 > o.MaxArea {
		return true
	}
	if !o.Quality {
		return false
	}
	for k := 0; k < 3; k++ {
		if T.fixed[k] && T.fixed[prev(k)] {
			continue
		}
		u := r2.Sub(p[next(k)], p[k])
		w := r2.Sub(p[prev(k)], p[k])
		lu, lw := r2.Norm(u), r2.Norm(w)
		if lu < minFeature || lw < minFeature {
			continue
		}
		cos := math.Max(-1, math.Min(1, r2.Dot(u, w)/(lu*lw)))
		if math.Acos(cos) < minAngle {
			return true
		}
	}
	return false
}

// refine inserts circumcenters of bad triangles until none is left or
// limit points were added. Circumcenters that fall outside the domain, on a
// constraint, or behind a constraint are rejected so segments are never
// split. It returns the number of inserted points.
func (c *cdt) refine(o Options, limit int) int {
	minAngle := o.MinAngle * math.Pi / 180
	var queue []int
	for t := range c.tris {
		if !c.tris[t].dead {
			queue = append(queue, t)
		}
	}
	rejected := make(map[[3]int]bool)
	added := 0
	for len(queue) > 0 && added < limit {
		t := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if c.tris[t].dead || !c.bad(t, o, minAngle) {
			continue
		}
		key := c.key(t)
		if rejected[key] {
			continue
		}
		cc, ok := c.circumcenter(t)
		if !ok {
			rejected[key] = true
			continue
		}
		loc, where, e := c.locate(cc, t, true)
		if (where != inTriangle && where != onEdge) || c.tris[loc].dead ||
			(where == onEdge && (c.tris[loc].fixed[e] || c.tris[loc].nb[e] < 0)) {
			rejected[key] = true
			continue
		}
		id := c.addVertex(cc)
		if where == onEdge {
			c.splitEdge(loc, e, id)
		} else {
			c.splitTri(loc, id)
		}
		added++
		queue = append(queue, c.around(id)...)
		if !c.tris[t].dead {
			queue = append(queue, t)
		}
	}
	return added
}
