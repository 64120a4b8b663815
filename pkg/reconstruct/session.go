package reconstruct

import (
	"fmt"
	"math"

	"github.com/chazu/mash/pkg/deform"
	"github.com/chazu/mash/pkg/raster"
)

// Session is a reconstructed mesh ready for interactive deformation. It is
// not safe for concurrent use.
type Session struct {
	Mesh   *deform.Mesh3D
	Def    *deform.Def
	Engine *deform.Engine

	// Parts and Bnds list the vertices of every part and their fixed
	// boundary.
	Parts, Bnds [][]int
}

// Perform subsamples the layers, reconstructs them, maps the mesh back to
// drawing coordinates and sets up the deformation engine. On error no
// session is returned and the caller keeps whatever it had.
func Perform(layers []Layer, cfg Config) (*Session, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sub := make([]Layer, len(layers))
	for i, l := range layers {
		if l.Region == nil || l.Outline == nil {
			return nil, fmt.Errorf("reconstruct: layer %d: missing mask", i)
		}
		sub[i] = Layer{
			ID:      l.ID,
			Region:  raster.Subsample(l.Region, cfg.SubsFactor, 0),
			Outline: raster.Subsample(l.Outline, cfg.SubsFactor, 0),
		}
	}
	res, err := Reconstruct(sub, cfg)
	if err != nil {
		return nil, err
	}

	s := float64(cfg.SubsFactor)
	for i, p := range res.V {
		res.V[i].X = p.X*s + cfg.ShiftModelX
		res.V[i].Y = p.Y*s + cfg.ShiftModelY
		res.V[i].Z = p.Z * s
	}

	e := deform.NewEngine(deform.NewFaceBuffer(cfg.BufferWidth, cfg.BufferHeight))
	e.Tables = deform.Tables{
		Conds:    res.Conds,
		Armpits:  res.Armpits,
		Bnds:     res.Bnds,
		Parts:    res.Parts,
		MergeBnd: res.MergeBnd,
	}
	e.TempSmoothingSteps = cfg.TempSmoothingSteps
	e.MaxIter = cfg.Iterations
	e.SearchThreshold = cfg.SearchThreshold
	e.CPOptimizeForXY = cfg.CPOptimizeForXY
	e.CPOptimizeForZ = cfg.CPOptimizeForZ
	e.InteriorDepthConditions = cfg.InteriorDepthConditions
	e.JointArmpits = cfg.ArmpitsStitchingInJointOptimization
	e.Rigidity = cfg.Rigidity

	sess := &Session{
		Mesh:   deform.NewMesh3D(res.V, res.F),
		Def:    deform.NewDef(),
		Engine: e,
		Parts:  res.Parts,
		Bnds:   res.Bnds,
	}
	if err := e.Precompute(sess.Def, sess.Mesh); err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	return sess, nil
}

// Deform runs one deformation step.
func (s *Session) Deform() (float64, error) {
	return s.Engine.Deform(s.Def, s.Mesh)
}

// Settle runs deformation steps until the displacement drops below tol or
// steps have run, and returns the last displacement.
func (s *Session) Settle(tol float64, steps int) (float64, error) {
	diff := math.Inf(1)
	for i := 0; i < steps && !(diff < tol); i++ {
		var err error
		if diff, err = s.Deform(); err != nil {
			return diff, err
		}
	}
	return diff, nil
}

// PartOf returns the part owning vertex i, or -1.
func (s *Session) PartOf(i int) int {
	for p, ids := range s.Parts {
		for _, v := range ids {
			if v == i {
				return p
			}
		}
	}
	return -1
}
