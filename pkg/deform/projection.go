package deform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Projection maps model coordinates to screen coordinates with a 4×4
// homogeneous matrix. A nil *Projection is the identity.
type Projection struct {
	m, inv mat.Dense
}

// NewProjection wraps m, which must be an invertible 4×4 matrix.
func NewProjection(m mat.Matrix) (*Projection, error) {
	if r, c := m.Dims(); r != 4 || c != 4 {
		return nil, fmt.Errorf("deform: projection is %dx%d, want 4x4", r, c)
	}
	p := &Projection{}
	p.m.CloneFrom(m)
	if err := p.inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("deform: projection: %w", err)
	}
	return p, nil
}

// Apply projects v.
func (p *Projection) Apply(v r3.Vec) r3.Vec {
	if p == nil {
		return v
	}
	return transform(&p.m, v)
}

// Unproject maps a screen point back to model coordinates.
func (p *Projection) Unproject(v r3.Vec) r3.Vec {
	if p == nil {
		return v
	}
	return transform(&p.inv, v)
}

// ApplyAll projects every point of v.
func (p *Projection) ApplyAll(v []r3.Vec) []r3.Vec {
	if p == nil {
		return v
	}
	out := make([]r3.Vec, len(v))
	for i, q := range v {
		out[i] = transform(&p.m, q)
	}
	return out
}

func transform(m *mat.Dense, v r3.Vec) r3.Vec {
	var h mat.VecDense
	h.MulVec(m, mat.NewVecDense(4, []float64{v.X, v.Y, v.Z, 1}))
	w := h.AtVec(3)
	if w == 0 {
		w = 1
	}
	return r3.Vec{X: h.AtVec(0) / w, Y: h.AtVec(1) / w, Z: h.AtVec(2) / w}
}
