package reconstruct

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/assemble"
	"github.com/chazu/mash/pkg/boundary"
	"github.com/chazu/mash/pkg/inflate"
	"github.com/chazu/mash/pkg/raster"
	"github.com/chazu/mash/pkg/triangulate"
)

// Layer is one drawn region. Layers are passed back to front.
type Layer struct {
	// ID keys the per-layer inflation amount.
	ID int
	// Region is non-zero inside the region, Outline where a stroke was
	// drawn along it. Parts of the region border without a stroke are
	// welded to the layer behind.
	Region, Outline *raster.Mask
}

// Result is an inflated rest mesh with its part tables. Layer i owns parts
// 2i (front) and 2i+1 (back).
type Result struct {
	V []r3.Vec
	F [][3]int

	Parts    [][]int
	Bnds     [][]int
	MergeBnd []int
	Conds    []assemble.Cond
	Armpits  []assemble.Armpit
}

// Reconstruct traces, triangulates, assembles and inflates the layers in
// their own pixel coordinates.
func Reconstruct(layers []Layer, cfg Config) (*Result, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	// Step 1: Trace and smooth the region boundaries.
	bl := lo.Map(layers, func(l Layer, _ int) boundary.Layer {
		return boundary.Layer{Region: l.Region, Outline: l.Outline}
	})
	regions, err := boundary.Extract(bl, cfg.SmoothFactor)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}

	// Step 2: Triangulate both sides of every layer. The front takes
	// interior points from the layers drawn over it, the back from the
	// layers behind it.
	var b assemble.Builder
	amounts := make([]float64, 0, 2*len(layers))
	for i, r := range regions {
		loops := lo.Map(r.Loops, func(l boundary.Loop, _ int) []r2.Vec { return l.Points })
		sizes := lo.Map(loops, func(l []r2.Vec, _ int) int { return len(l) })
		side := func(above bool) (*triangulate.Mesh, error) {
			in := triangulate.Input{
				Loops:           loops,
				Holes:           r.Holes,
				Interconnection: r.Interconnection(),
				Interior: boundary.InteriorPoints(regions, bl, i, boundary.InteriorOptions{
					AboveOnly:         above,
					BelowOnly:         !above,
					MergingPointsOnly: true,
					MergeBothSides:    cfg.MergeBothSides,
				}),
			}
			return triangulate.Triangulate(in, cfg.TriangleOpts)
		}
		front, err := side(true)
		if err != nil {
			return nil, fmt.Errorf("reconstruct: layer %d front: %w", i, err)
		}
		back, err := side(false)
		if err != nil {
			return nil, fmt.Errorf("reconstruct: layer %d back: %w", i, err)
		}
		if err := b.AddTwoSided(front, back, sizes); err != nil {
			return nil, fmt.Errorf("reconstruct: layer %d: %w", i, err)
		}
		a := cfg.inflation(layers[i].ID)
		amounts = append(amounts, a, -a)
	}

	// Step 3: Assemble the complete mesh and weld the chosen merge runs.
	if err := b.Build(); err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	sels, conds := b.Plan(cfg.MergeBothSides)
	var mergeBnd []int
	for _, s := range sels {
		b.MergeMesh(s.Corr, s.Reverse)
		for _, p := range s.Corr {
			mergeBnd = append(mergeBnd, p.Bnd, p.Mesh)
		}
	}

	// Step 4: Inflate with the fixed boundary held at zero. A layer
	// whose outline was erased all round and that found nothing to weld
	// to floats free.
	if free := inflate.Unanchored(b.F, b.Bnd); len(free) > 0 {
		layer := -1
		for p, ids := range b.Parts {
			if slices.Contains(ids, free[0]) {
				layer = p / 2
				break
			}
		}
		return nil, fmt.Errorf("reconstruct: layer %d: %w", layer, ErrUnanchored)
	}
	ops, err := inflate.NewOperators(b.V, b.F)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	amount := make([]float64, len(b.V))
	for p, ids := range b.Parts {
		for _, v := range ids {
			amount[v] = amounts[p]
		}
	}
	z, err := inflate.Inflate(ops, b.Bnd, amount)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	v := make([]r3.Vec, len(b.V))
	for i, p := range b.V {
		v[i] = r3.Vec{X: p.X, Y: p.Y, Z: z[i]}
	}

	// Step 5: Stitch armpits. Outside joint optimization the pairs are
	// evened out here and merged away below.
	merge := make(map[int][]int)
	var armpits []assemble.Armpit
	joint := cfg.ArmpitsStitchingInJointOptimization
	if cfg.ArmpitsStitching || joint {
		if joint {
			armpits = b.Armpits(sels, nil)
		} else {
			armpits = b.Armpits(sels, merge)
			inflated, err := inflate.NewOperators(v, b.F)
			if err != nil {
				return nil, fmt.Errorf("reconstruct: stitch: %w", err)
			}
			if z, err = inflate.Stitch(inflated, z, b.Bnd, armpits); err != nil {
				return nil, fmt.Errorf("reconstruct: %w", err)
			}
			for i := range v {
				v[i].Z = z[i]
			}
		}
	}

	// Step 6: Drop merged vertices and move every table to the new
	// index space.
	m := assemble.MergeAndRemoveDuplicates(len(v), b.F, merge, b.Parts)
	res := &Result{
		V:        lo.Map(m.Keep, func(i int, _ int) r3.Vec { return v[i] }),
		F:        m.F,
		Parts:    m.Parts,
		Bnds:     lo.Map(b.Bnds, func(ids []int, _ int) []int { return m.Remap(ids) }),
		MergeBnd: m.Remap(mergeBnd),
		Conds:    conds,
	}
	for _, a := range armpits {
		if m.Removed[a.First] || m.Removed[a.Second] {
			continue
		}
		res.Armpits = append(res.Armpits, assemble.Armpit{
			First: m.Reindex[a.First], Second: m.Reindex[a.Second], Sign: a.Sign,
		})
	}
	return res, nil
}
