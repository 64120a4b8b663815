// Package deform poses an inflated mesh with control points. The engine
// minimizes an as-rigid-as-possible energy and keeps overlapping parts in
// their depth order through an active set of inequality constraints.
//
// Coordinates follow the image the mesh was drawn on: x grows to the right,
// y grows downwards and z points towards the viewer.
package deform

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/kernel"
)

// Mesh3D is a deformable triangle mesh. VRest is the rest pose and VCurr
// the live pose updated by every deformation step.
type Mesh3D struct {
	VRest, VCurr []r3.Vec
	F            [][3]int
}

// NewMesh3D returns a mesh whose current pose equals the rest pose v.
func NewMesh3D(v []r3.Vec, f [][3]int) *Mesh3D {
	return &Mesh3D{VRest: slices.Clone(v), VCurr: slices.Clone(v), F: f}
}

// Reset replaces both poses with v.
func (m *Mesh3D) Reset(v []r3.Vec) {
	m.VRest = slices.Clone(v)
	m.VCurr = slices.Clone(v)
}

// NumPoints returns the number of vertices of the current pose.
func (m *Mesh3D) NumPoints() int { return len(m.VCurr) }

// NumFaces returns the number of triangles.
func (m *Mesh3D) NumFaces() int { return len(m.F) }

// Empty reports whether there is nothing to deform.
func (m *Mesh3D) Empty() bool {
	return len(m.VCurr) == 0 || len(m.VRest) == 0 || len(m.F) == 0
}

// VertexNormals returns area weighted vertex normals of v. Faces wound
// counter clockwise in a right handed frame face +z.
func VertexNormals(v []r3.Vec, f [][3]int) []r3.Vec {
	n := make([]r3.Vec, len(v))
	for _, t := range f {
		// The cross product length is twice the face area.
		c := r3.Cross(r3.Sub(v[t[1]], v[t[0]]), r3.Sub(v[t[2]], v[t[0]]))
		for _, i := range t {
			n[i] = r3.Add(n[i], c)
		}
	}
	for i := range n {
		if l := r3.Norm(n[i]); l > 0 {
			n[i] = r3.Scale(1/l, n[i])
		}
	}
	return n
}

// ToKernelMesh converts the current pose into a flat render mesh. The y
// axis is flipped so that the result is right handed with y up.
func (m *Mesh3D) ToKernelMesh(name string) *kernel.Mesh {
	return m.Submesh(name, nil)
}

// Submesh is ToKernelMesh restricted to the given faces. Only vertices
// used by those faces are emitted; normals are still averaged over the
// whole mesh so seams between submeshes stay smooth. A nil faces selects
// every face.
func (m *Mesh3D) Submesh(name string, faces []int) *kernel.Mesh {
	v := make([]r3.Vec, len(m.VCurr))
	for i, p := range m.VCurr {
		v[i] = r3.Vec{X: p.X, Y: -p.Y, Z: p.Z}
	}
	normals := VertexNormals(v, m.F)
	out := &kernel.Mesh{PartName: name}
	index := make(map[int]uint32)
	if faces == nil {
		faces = make([]int, len(m.F))
		for i := range faces {
			faces[i] = i
		}
		// Keep the vertex numbering of the whole mesh.
		for i := range v {
			index[i] = uint32(i)
			out.Vertices = append(out.Vertices, float32(v[i].X), float32(v[i].Y), float32(v[i].Z))
			out.Normals = append(out.Normals, float32(normals[i].X), float32(normals[i].Y), float32(normals[i].Z))
		}
	}
	out.Indices = make([]uint32, 0, 3*len(faces))
	for _, fi := range faces {
		for _, vi := range m.F[fi] {
			j, ok := index[vi]
			if !ok {
				j = uint32(len(index))
				index[vi] = j
				p, n := v[vi], normals[vi]
				out.Vertices = append(out.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
				out.Normals = append(out.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			}
			out.Indices = append(out.Indices, j)
		}
	}
	return out
}

// edge is positive when p lies on the inner side of the edge a→b of a face
// wound clockwise on screen.
func edge(a, b r3.Vec, x, y float64) float64 {
	return (x-a.X)*(b.Y-a.Y) - (y-a.Y)*(b.X-a.X)
}

// MeshFace returns the face under the screen point (x,y) with the highest
// (or lowest) interpolated depth, or -1. Only faces facing the viewer are
// considered unless reverse is set, which selects back facing ones.
func MeshFace(v []r3.Vec, f [][3]int, x, y float64, highest, reverse bool) int {
	ext := math.Inf(1)
	if highest {
		ext = math.Inf(-1)
	}
	ind := -1
	for i, t := range f {
		area, z := 0.0, 0.0
		inside := true
		for j := 0; j < 3; j++ {
			w := edge(v[t[j]], v[t[(j+1)%3]], x, y)
			if reverse {
				w = -w
			}
			if w < 0 {
				inside = false
				break
			}
			z += w * v[t[(j+2)%3]].Z
			area += w
		}
		if !inside || area == 0 {
			continue
		}
		z /= area
		if highest && z > ext || !highest && z < ext {
			ext, ind = z, i
		}
	}
	return ind
}

// MeshPoint returns the vertex nearest to (x,y) in the image plane within
// radius, preferring the highest (or lowest) one on ties, or -1.
func MeshPoint(v []r3.Vec, x, y, radius float64, highest bool) int {
	ind := -1
	best := math.Inf(1)
	ext := math.Inf(1)
	if highest {
		ext = math.Inf(-1)
	}
	for i, p := range v {
		d := math.Hypot(p.X-x, p.Y-y)
		if d <= radius && d < best && (highest && p.Z > ext || !highest && p.Z < ext) {
			best, ext, ind = d, p.Z, i
		}
	}
	return ind
}

// NearestPoint returns the vertex nearest to (x,y,depth) within radius, or
// -1. Without considerDepth the distance is measured in the image plane.
func NearestPoint(v []r3.Vec, x, y, radius, depth float64, considerDepth bool) int {
	ind := -1
	best := math.Inf(1)
	q := r3.Vec{X: x, Y: y, Z: depth}
	for i, p := range v {
		d := planarOrFull(p, q, considerDepth)
		if d <= radius && d < best {
			best, ind = d, i
		}
	}
	return ind
}

func planarOrFull(p, q r3.Vec, considerDepth bool) float64 {
	if considerDepth {
		return r3.Norm(r3.Sub(p, q))
	}
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}
