package assemble

// Link names the two parts a merge selection was taken from and the sign
// of its stitching equalities.
type Link struct {
	P1, P2, Sign int
}

// Selection is one run of merge correspondences chosen for welding.
type Selection struct {
	Corr    []Pair
	Reverse bool
	Link    Link
}

// Cond is a depth ordering condition: the boundary of part Bnd must stay
// on the Sign side of part Mesh.
type Cond struct {
	Bnd, Mesh, Sign int
}

// Armpit is a stitching pair of vertices that should share their depth.
type Armpit struct {
	First, Second, Sign int
}

// Plan walks parts in order of increasing separation and picks merge runs
// and depth conditions. Parts 2i and 2i+1 are the front and back of layer
// i, layers ordered back to front. A front part merges with the nearest
// front part behind it, a back part with the nearest back part in front of
// it, and layers in mergeBoth also merge their back side. Every boundary
// vertex is used by at most one selection.
func (b *Builder) Plan(mergeBoth map[int]bool) ([]Selection, []Cond) {
	n := len(b.parts)
	var sels []Selection
	var conds []Cond
	used := make(map[int]bool)
	pick := func(mc []Pair) []Pair {
		var out []Pair
		for _, p := range mc {
			if !used[p.Bnd] {
				out = append(out, p)
				used[p.Bnd] = true
			}
		}
		return out
	}
	front := func(p int) bool { return !b.Flip[p] }

	for shift := 1; shift < n; shift++ {
		for B := 0; B < n; B++ {
			if A := B - shift; A >= 0 {
				if A == B-1 && A%2 == 0 {
					// A is the front side of B. Nothing further is checked
					// for this B at this shift.
					continue
				}
				if front(B) && front(A) {
					sels = append(sels, Selection{Corr: pick(b.MergingCorr[B][A]), Link: Link{B, B + 1, 1}})
					if mergeBoth[B/2] && B+1 < n && A+1 < n {
						sels = append(sels, Selection{Corr: pick(b.MergingCorr[B+1][A+1]), Reverse: true, Link: Link{B + 1, B, -1}})
					}
					conds = append(conds, Cond{Bnd: B, Mesh: A, Sign: 1})
				}
			}
			if C := B + shift; C < n {
				if C == B+1 && C%2 == 1 {
					continue
				}
				if !front(B) && !front(C) {
					sels = append(sels, Selection{Corr: pick(b.MergingCorr[B][C]), Reverse: true, Link: Link{B, B - 1, -1}})
				}
				if front(B) && !front(C) {
					conds = append(conds, Cond{Bnd: B, Mesh: C, Sign: -1})
				}
			}
		}
	}
	return sels, conds
}

// Armpits derives stitching pairs from the merge selections. The ends of a
// run pair the shared boundary vertex with its mesh vertex; inner elements
// pair the twin of the boundary vertex on the linked part. When merge is
// non-nil the mesh vertex of every pair is also scheduled for merging into
// the first vertex.
func (b *Builder) Armpits(sels []Selection, merge map[int][]int) []Armpit {
	var out []Armpit
	for _, s := range sels {
		for j, p := range s.Corr {
			first := p.Bnd
			if j != 0 && j != len(s.Corr)-1 {
				first = -1
				for _, q := range b.MergingCorr[s.Link.P1][s.Link.P2] {
					if q.Bnd == p.Bnd {
						first = q.Mesh
						break
					}
				}
				if first < 0 {
					continue
				}
			}
			out = append(out, Armpit{First: first, Second: p.Mesh, Sign: s.Link.Sign})
			if merge != nil {
				merge[first] = append(merge[first], p.Mesh)
			}
		}
	}
	return out
}
