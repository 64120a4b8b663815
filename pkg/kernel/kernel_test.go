package kernel

import (
	"testing"

	"github.com/chazu/mash/pkg/raster"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		mesh Mesh
		want bool
	}{
		{"zero value", Mesh{}, true},
		{"points only", Mesh{Vertices: []float32{1, 2, 3}}, true},
		{"one triangle", Mesh{Vertices: make([]float32, 9), Indices: []uint32{0, 1, 2}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{1, -2, 3, -4, 5, 0, 2, 2, -1}}
	min, max := m.Bounds()
	if min != [3]float32{-4, -2, -1} {
		t.Errorf("Bounds() min = %v, want [-4 -2 -1]", min)
	}
	if max != [3]float32{2, 5, 3} {
		t.Errorf("Bounds() max = %v, want [2 5 3]", max)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubShape is a minimal Shape implementation for testing.
type stubShape struct {
	minBB, maxBB [2]float64
}

func (s *stubShape) BoundingBox() (min, max [2]float64) {
	return s.minBB, s.maxBB
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. It tracks bounding boxes only.
type stubKernel struct{}

func (k *stubKernel) Circle(r float64) Shape {
	return &stubShape{minBB: [2]float64{-r, -r}, maxBB: [2]float64{r, r}}
}

func (k *stubKernel) Rect(w, h float64) Shape {
	return &stubShape{maxBB: [2]float64{w, h}}
}

func (k *stubKernel) Polygon(pts [][2]float64) Shape {
	s := &stubShape{}
	for i, p := range pts {
		for a := 0; a < 2; a++ {
			if i == 0 || p[a] < s.minBB[a] {
				s.minBB[a] = p[a]
			}
			if i == 0 || p[a] > s.maxBB[a] {
				s.maxBB[a] = p[a]
			}
		}
	}
	return s
}

func (k *stubKernel) Union(a, _ Shape) Shape        { return a }
func (k *stubKernel) Difference(a, _ Shape) Shape   { return a }
func (k *stubKernel) Intersection(a, _ Shape) Shape { return a }

func (k *stubKernel) Translate(s Shape, x, y float64) Shape {
	min, max := s.BoundingBox()
	return &stubShape{
		minBB: [2]float64{min[0] + x, min[1] + y},
		maxBB: [2]float64{max[0] + x, max[1] + y},
	}
}

func (k *stubKernel) Rotate(s Shape, _ float64) Shape { return s }

func (k *stubKernel) Rasterize(_ Shape, w, h int) *raster.Mask {
	return raster.New[uint8](w, h)
}

// Compile-time checks that the stubs implement the interfaces.
var _ Shape = (*stubShape)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	tests := []struct {
		name     string
		s        Shape
		min, max [2]float64
	}{
		{"rect", k.Rect(10, 20), [2]float64{0, 0}, [2]float64{10, 20}},
		{"circle", k.Circle(3), [2]float64{-3, -3}, [2]float64{3, 3}},
		{"translated", k.Translate(k.Rect(1, 1), 5, 6), [2]float64{5, 6}, [2]float64{6, 7}},
		{"polygon", k.Polygon([][2]float64{{1, 4}, {3, 2}, {0, 0}}), [2]float64{0, 0}, [2]float64{3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := tt.s.BoundingBox()
			if min != tt.min || max != tt.max {
				t.Errorf("BoundingBox() = %v %v, want %v %v", min, max, tt.min, tt.max)
			}
		})
	}
}

func TestStubKernelRasterize(t *testing.T) {
	var k Kernel = &stubKernel{}
	m := k.Rasterize(k.Rect(1, 1), 4, 3)
	if m == nil || m.W != 4 || m.H != 3 {
		t.Fatalf("Rasterize() = %+v, want a 4x3 mask", m)
	}
}
