package boundary

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/mash/pkg/raster"
)

// square returns a w×h mask with the half-open box [x0,x1)×[y0,y1) set.
func square(w, h, x0, y0, x1, y1 int) *raster.Mask {
	m := raster.New[uint8](w, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Set(x, y, 255)
		}
	}
	return m
}

func layerOf(region *raster.Mask) Layer {
	return Layer{Region: region, Outline: raster.RegionOutline(region)}
}

func TestFindRegionBoundaryClosed(t *testing.T) {
	tests := []struct {
		name   string
		region *raster.Mask
		loops  int
		holes  int
	}{
		{"square", square(20, 20, 5, 5, 15, 15), 1, 0},
		{"touching border", square(12, 12, 0, 0, 12, 12), 1, 0},
		{"two components", func() *raster.Mask {
			m := square(40, 20, 2, 2, 12, 12)
			for y := 4; y < 16; y++ {
				for x := 20; x < 35; x++ {
					m.Set(x, y, 255)
				}
			}
			return m
		}(), 2, 0},
		{"ring", func() *raster.Mask {
			m := square(30, 30, 3, 3, 27, 27)
			for y := 10; y < 20; y++ {
				for x := 10; x < 20; x++ {
					m.Set(x, y, 0)
				}
			}
			return m
		}(), 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loops, holes := FindRegionBoundary(tt.region)
			if len(loops) != tt.loops {
				t.Fatalf("got %d loops, want %d", len(loops), tt.loops)
			}
			if len(holes) != tt.holes {
				t.Fatalf("got %d hole points, want %d", len(holes), tt.holes)
			}
			for li, loop := range loops {
				for k := range loop {
					a, b := loop[k], loop[(k+1)%len(loop)]
					if d := math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y); d != 1 {
						t.Fatalf("loop %d: points %d and %d are %v apart, want one step", li, k, (k+1)%len(loop), d)
					}
				}
			}
		})
	}
}

func TestFindRegionBoundarySquarePixels(t *testing.T) {
	loops, _ := FindRegionBoundary(square(20, 20, 5, 5, 15, 15))
	if len(loops[0]) != 36 {
		t.Fatalf("got %d boundary pixels, want 36", len(loops[0]))
	}
	if loops[0][0].X != 5 || loops[0][0].Y != 5 {
		t.Errorf("trace starts at %v, want (5,5)", loops[0][0])
	}
	// Clockwise in image coordinates: the walk leaves the start to the right.
	if loops[0][1].X != 6 || loops[0][1].Y != 5 {
		t.Errorf("second point %v, want (6,5)", loops[0][1])
	}
}

func TestHolePointInsideHole(t *testing.T) {
	m := square(30, 30, 3, 3, 27, 27)
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			m.Set(x, y, 0)
		}
	}
	_, holes := FindRegionBoundary(m)
	if len(holes) != 1 {
		t.Fatalf("got %d hole points, want 1", len(holes))
	}
	h := holes[0]
	if h.X < 10 || h.X >= 20 || h.Y < 10 || h.Y >= 20 {
		t.Errorf("hole point %v is not inside the hole", h)
	}
}

func TestExtractEmpty(t *testing.T) {
	_, err := Extract([]Layer{layerOf(raster.New[uint8](8, 8))}, 0)
	if !errors.Is(err, ErrEmptyRegion) {
		t.Fatalf("expected ErrEmptyRegion, got %v", err)
	}
}

func TestExtractHints(t *testing.T) {
	back := square(40, 40, 2, 2, 38, 38)
	front := square(40, 40, 10, 10, 20, 20)

	open := layerOf(square(40, 40, 10, 10, 30, 30))
	// Erase the stroke on the left edge only.
	for y := 0; y < 40; y++ {
		open.Outline.Set(10, y, 0)
	}

	tests := []struct {
		name           string
		layers         []Layer
		layer          int
		wantMissing    bool
		wantSurrounded bool
	}{
		{"fully outlined and covered", []Layer{layerOf(back), layerOf(front)}, 1, false, true},
		{"fully outlined and uncovered", []Layer{layerOf(back), layerOf(front)}, 0, false, false},
		{"open edge", []Layer{layerOf(back), open}, 1, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions, err := Extract(tt.layers, 0)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			loop := regions[tt.layer].Loops[0]
			missing, surrounded := false, true
			for _, h := range loop.Hints {
				missing = missing || h.MissingBoundary
				surrounded = surrounded && h.Surrounded
			}
			if missing != tt.wantMissing {
				t.Errorf("missing boundary = %v, want %v", missing, tt.wantMissing)
			}
			if surrounded != tt.wantSurrounded {
				t.Errorf("surrounded = %v, want %v", surrounded, tt.wantSurrounded)
			}
		})
	}
}

func TestSmoothKeepsInterconnection(t *testing.T) {
	layers := []Layer{layerOf(square(30, 30, 5, 5, 25, 25))}
	for y := 0; y < 30; y++ {
		layers[0].Outline.Set(5, y, 0)
	}
	raw, err := Extract(layers, 0)
	if err != nil {
		t.Fatal(err)
	}
	smoothed, err := Extract(layers, 10)
	if err != nil {
		t.Fatal(err)
	}
	a, b := raw[0].Loops[0], smoothed[0].Loops[0]
	moved := false
	for k := range a.Points {
		if a.Hints[k].MissingBoundary && a.Points[k] != b.Points[k] {
			t.Fatalf("interconnection point %d moved from %v to %v", k, a.Points[k], b.Points[k])
		}
		if !a.Hints[k].MissingBoundary && a.Points[k] != b.Points[k] {
			moved = true
		}
	}
	if !moved {
		t.Error("smoothing should move at least one outlined corner")
	}
}

func TestInteriorPoints(t *testing.T) {
	back := layerOf(square(40, 40, 2, 2, 38, 38))
	limb := layerOf(square(40, 40, 10, 10, 20, 20))
	limb.Outline.Fill(0)

	regions, err := Extract([]Layer{back, limb}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := regions[1].PointCount()

	tests := []struct {
		name string
		opt  InteriorOptions
		want int
	}{
		{"front side takes layers above", InteriorOptions{AboveOnly: true, MergingPointsOnly: true}, want},
		{"back side skips layers above", InteriorOptions{BelowOnly: true, MergingPointsOnly: true}, 0},
		{"merge both sides overrides order", InteriorOptions{BelowOnly: true, MergingPointsOnly: true, MergeBothSides: map[int]bool{1: true}}, want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InteriorPoints(regions, []Layer{back, limb}, 0, tt.opt)
			if len(got) != tt.want {
				t.Errorf("got %d interior points, want %d", len(got), tt.want)
			}
		})
	}
}

func TestInteriorPointsOutlinedSourceIgnored(t *testing.T) {
	back := layerOf(square(40, 40, 2, 2, 38, 38))
	limb := layerOf(square(40, 40, 10, 10, 20, 20))
	regions, err := Extract([]Layer{back, limb}, 0)
	if err != nil {
		t.Fatal(err)
	}
	got := InteriorPoints(regions, []Layer{back, limb}, 0, InteriorOptions{AboveOnly: true, MergingPointsOnly: true})
	if len(got) != 0 {
		t.Errorf("got %d interior points from a fully outlined source, want 0", len(got))
	}
	got = InteriorPoints(regions, []Layer{back, limb}, 0, InteriorOptions{AboveOnly: true})
	if len(got) != regions[1].PointCount() {
		t.Errorf("got %d interior points without the merging filter, want %d", len(got), regions[1].PointCount())
	}
}
