package kernel

import "math"

// Mesh is the render form of one layer's surface. Arrays are flat:
// Vertices and Normals carry 3 floats per vertex, Indices 3 per triangle.
// Coordinates are canvas pixels with y pointing up and +z toward the
// viewer.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] counter-clockwise from the front
	PartName string    `json:"partName"` // layer the surface belongs to
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) / 3 }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether the mesh has no triangles to draw.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Bounds returns the axis-aligned box around the vertices. An empty mesh
// yields +Inf minima and -Inf maxima.
func (m *Mesh) Bounds() (min, max [3]float32) {
	inf := float32(math.Inf(1))
	min = [3]float32{inf, inf, inf}
	max = [3]float32{-inf, -inf, -inf}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		for k, v := range m.Vertices[i : i+3] {
			min[k] = float32(math.Min(float64(min[k]), float64(v)))
			max[k] = float32(math.Max(float64(max[k]), float64(v)))
		}
	}
	return min, max
}
