package reconstruct_test

import (
	"errors"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/assemble"
	"github.com/chazu/mash/pkg/inflate"
	"github.com/chazu/mash/pkg/raster"
	"github.com/chazu/mash/pkg/reconstruct"
)

// box returns a closed layer covering [x0,x1)×[y0,y1) of a w×h drawing.
func box(id, w, h, x0, y0, x1, y1 int) reconstruct.Layer {
	m := raster.New[uint8](w, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Set(x, y, 255)
		}
	}
	return reconstruct.Layer{ID: id, Region: m, Outline: raster.RegionOutline(m)}
}

func testConfig() reconstruct.Config {
	cfg := reconstruct.DefaultConfig()
	cfg.SubsFactor = 1
	cfg.BufferWidth, cfg.BufferHeight = 128, 128
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := reconstruct.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.TriangleOpts != "pqa25QYY" || cfg.SubsFactor != 2 || cfg.Iterations != 4 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.CPOptimizeForZ || cfg.CPOptimizeForXY {
		t.Error("control points should be soft in depth only")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*reconstruct.Config)
	}{
		{"rigidity zero", func(c *reconstruct.Config) { c.Rigidity = 0 }},
		{"rigidity one", func(c *reconstruct.Config) { c.Rigidity = 1 }},
		{"subsample", func(c *reconstruct.Config) { c.SubsFactor = 0 }},
		{"iterations", func(c *reconstruct.Config) { c.Iterations = 0 }},
		{"switches", func(c *reconstruct.Config) { c.TriangleOpts = "pX" }},
		{"conforming delaunay", func(c *reconstruct.Config) { c.TriangleOpts = "pqD" }},
		{"buffer", func(c *reconstruct.Config) { c.BufferWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := reconstruct.DefaultConfig()
			tt.edit(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPerformNoLayers(t *testing.T) {
	_, err := reconstruct.Perform(nil, reconstruct.DefaultConfig())
	if !errors.Is(err, reconstruct.ErrNoLayers) {
		t.Errorf("got %v, want ErrNoLayers", err)
	}
}

func TestReconstructUnanchoredLayer(t *testing.T) {
	inner := box(1, 64, 64, 24, 24, 40, 40)
	inner.Outline = raster.New[uint8](64, 64)
	layers := []reconstruct.Layer{box(0, 64, 64, 8, 8, 56, 56), inner}

	_, err := reconstruct.Reconstruct(layers, testConfig())
	if !errors.Is(err, reconstruct.ErrUnanchored) {
		t.Fatalf("got %v, want ErrUnanchored", err)
	}
	if !errors.Is(err, inflate.ErrUnanchored) {
		t.Error("error does not match the inflate sentinel")
	}
}

func TestReconstructSquare(t *testing.T) {
	res, err := reconstruct.Reconstruct([]reconstruct.Layer{box(0, 48, 48, 12, 12, 36, 36)}, testConfig())
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(res.Parts) != 2 || len(res.Bnds) != 2 {
		t.Fatalf("got %d parts, want 2", len(res.Parts))
	}
	if len(res.Conds) != 0 {
		t.Errorf("single layer has conditions %v", res.Conds)
	}
	isBnd := make(map[int]bool)
	for _, i := range res.Bnds[0] {
		isBnd[i] = true
		if z := res.V[i].Z; z != 0 {
			t.Errorf("boundary vertex %d at z=%g", i, z)
		}
	}
	if len(isBnd) == 0 {
		t.Fatal("no boundary")
	}
	for _, i := range res.Parts[0] {
		if !isBnd[i] && res.V[i].Z <= 0 {
			t.Errorf("front vertex %d at z=%g, want > 0", i, res.V[i].Z)
		}
	}
	for _, i := range res.Parts[1] {
		if res.V[i].Z >= 0 {
			t.Errorf("back vertex %d at z=%g, want < 0", i, res.V[i].Z)
		}
	}
	if _, err := inflate.NewOperators(res.V, res.F); err != nil {
		t.Errorf("result is not manifold: %v", err)
	}
}

func TestReconstructInflationAmount(t *testing.T) {
	layers := []reconstruct.Layer{box(7, 48, 48, 12, 12, 36, 36)}
	peak := func(cfg reconstruct.Config) float64 {
		t.Helper()
		res, err := reconstruct.Reconstruct(layers, cfg)
		if err != nil {
			t.Fatalf("Reconstruct: %v", err)
		}
		return slices.MaxFunc(res.V, func(a, b r3.Vec) int {
			switch {
			case a.Z < b.Z:
				return -1
			case a.Z > b.Z:
				return 1
			}
			return 0
		}).Z
	}
	cfg := testConfig()
	base := peak(cfg)
	cfg.Inflation[7] = 8
	// Heights grow with the square root of the amount.
	if got, want := peak(cfg), 2*base; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("peak %g, want %g", got, want)
	}
}

func TestPerformScales(t *testing.T) {
	layers := []reconstruct.Layer{box(0, 64, 64, 16, 16, 48, 48)}
	cfg := testConfig()
	cfg.SubsFactor = 2
	cfg.ShiftModelX = 100
	s, err := reconstruct.Perform(layers, cfg)
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	for i, p := range s.Mesh.VRest {
		if p.X < 100+14 || p.X > 100+50 || p.Y < 14 || p.Y > 50 {
			t.Fatalf("vertex %d at %v outside the drawing", i, p)
		}
	}
	if !slices.Equal(s.Mesh.VRest, s.Mesh.VCurr) {
		t.Error("current pose differs from the rest pose")
	}
}

func TestPerformOverlap(t *testing.T) {
	torso := box(0, 64, 64, 8, 8, 56, 56)
	arm := box(1, 64, 64, 24, 24, 40, 40)
	cfg := testConfig()
	cfg.TempSmoothingSteps = 0
	s, err := reconstruct.Perform([]reconstruct.Layer{torso, arm}, cfg)
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}

	n := 0
	for _, c := range s.Engine.Conds {
		if c == (assemble.Cond{Bnd: 2, Mesh: 0, Sign: 1}) {
			n++
		}
	}
	if n != 1 {
		t.Errorf("got %d arm-over-torso conditions in %v, want 1", n, s.Engine.Conds)
	}

	// The arm boundary rests at z=0 inside the inflated torso, so the
	// ordering is broken from the start and must be enforced.
	for k := 0; k < 2; k++ {
		if _, err := s.Deform(); err != nil {
			t.Fatalf("Deform: %v", err)
		}
	}
	as := s.Engine.ActiveSet()
	if len(as) == 0 {
		t.Fatal("active set is empty")
	}
	v := s.Mesh.VCurr
	for b, a := range as {
		if s.PartOf(b) != 2 || s.PartOf(a) != 0 {
			t.Errorf("pair %d->%d joins parts %d and %d", b, a, s.PartOf(b), s.PartOf(a))
		}
		if v[b].Z < v[a].Z-1e-6 {
			t.Errorf("arm vertex %d at z=%g behind torso vertex %d at z=%g", b, v[b].Z, a, v[a].Z)
		}
	}
}
