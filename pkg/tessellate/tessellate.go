// Package tessellate turns a scene into triangle meshes. It rasterizes
// every layer with a shape kernel, inflates the masks into one mesh,
// replays the scene's control point operations on it and splits the
// result back into one mesh per layer.
package tessellate

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/kernel"
	"github.com/chazu/mash/pkg/raster"
	"github.com/chazu/mash/pkg/reconstruct"
	"github.com/chazu/mash/pkg/scene"
)

const (
	// pickRadius is how far, in pixels, a control point may sit from the
	// vertex it grabs.
	pickRadius = 10
	// settleTol ends a deform op early once the mean displacement of a
	// step falls below it.
	settleTol = 1e-4
)

// Tessellate produces one mesh per layer of s, in layer order. A scene
// without layers yields no meshes. The scene is never mutated.
func Tessellate(s *scene.Scene, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if s == nil || len(s.Layers) == 0 {
		return nil, nil
	}
	sess, err := Build(s, k)
	if err != nil {
		return nil, err
	}
	return Meshes(s, sess), nil
}

// Build reconstructs s and replays its operations, returning the live
// session.
func Build(s *scene.Scene, k kernel.Kernel) (*reconstruct.Session, error) {
	cfg, err := Config(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	layers, err := Layers(s, k)
	if err != nil {
		return nil, err
	}
	sess, err := reconstruct.Perform(layers, cfg)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	if err := replay(sess, s.Ops); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	return sess, nil
}

// Config derives the reconstruction settings from the scene settings and
// the per-layer options.
func Config(s *scene.Scene) (reconstruct.Config, error) {
	cfg := reconstruct.DefaultConfig()
	for k, v := range s.Settings {
		switch k {
		case "subsample":
			cfg.SubsFactor = int(v)
		case "smooth":
			cfg.SmoothFactor = int(v)
		case "inflation":
			cfg.DefaultInflation = v
		case "shift-x":
			cfg.ShiftModelX = v
		case "shift-y":
			cfg.ShiftModelY = v
		case "armpits":
			cfg.ArmpitsStitching = v != 0
		case "joint-armpits":
			cfg.ArmpitsStitchingInJointOptimization = v != 0
		case "temporal-smoothing":
			cfg.TempSmoothingSteps = int(v)
		case "search-threshold":
			cfg.SearchThreshold = v
		case "cp-optimize-xy":
			cfg.CPOptimizeForXY = v != 0
		case "cp-optimize-z":
			cfg.CPOptimizeForZ = v != 0
		case "interior-depth":
			cfg.InteriorDepthConditions = v != 0
		case "iterations":
			cfg.Iterations = int(v)
		case "rigidity":
			cfg.Rigidity = v
		default:
			log.Printf("tessellate: unknown setting %q ignored", k)
		}
	}
	for i, n := range s.LayerNodes() {
		ld, ok := n.Data.(scene.LayerData)
		if !ok {
			continue
		}
		if ld.Inflation != nil {
			cfg.Inflation[i] = *ld.Inflation
		}
		if ld.MergeBothSides {
			cfg.MergeBothSides[i] = true
		}
	}
	// The face buffer covers the canvas wherever the model was shifted.
	cfg.BufferWidth = s.Canvas.W + int(math.Ceil(math.Max(0, cfg.ShiftModelX)))
	cfg.BufferHeight = s.Canvas.H + int(math.Ceil(math.Max(0, cfg.ShiftModelY)))
	return cfg, cfg.Validate()
}

// Layers rasterizes the layers of s back to front. The outline of a layer
// is its region border minus the pixels covered by its open shape.
func Layers(s *scene.Scene, k kernel.Kernel) ([]reconstruct.Layer, error) {
	nodes := s.LayerNodes()
	out := make([]reconstruct.Layer, 0, len(nodes))
	for i, n := range nodes {
		name := layerName(n)
		ld, ok := n.Data.(scene.LayerData)
		if !ok || len(n.Children) != 1 {
			return nil, fmt.Errorf("tessellate: layer %s is malformed", name)
		}
		shape, err := walkNode(s, k, s.Get(n.Children[0]))
		if err != nil {
			return nil, fmt.Errorf("tessellate: layer %s: %w", name, err)
		}
		region := k.Rasterize(shape, s.Canvas.W, s.Canvas.H)
		if raster.IsEmpty(region) {
			return nil, fmt.Errorf("tessellate: layer %s covers no pixels of the %dx%d canvas", name, s.Canvas.W, s.Canvas.H)
		}
		outline := raster.RegionOutline(region)
		if !ld.Open.IsZero() {
			open, err := walkNode(s, k, s.Get(ld.Open))
			if err != nil {
				return nil, fmt.Errorf("tessellate: layer %s: open: %w", name, err)
			}
			raster.Erase(outline, k.Rasterize(open, s.Canvas.W, s.Canvas.H))
		}
		out = append(out, reconstruct.Layer{ID: i, Region: region, Outline: outline})
	}
	return out, nil
}

// Meshes splits the current pose of sess into one mesh per layer. A face
// belongs to the layer owning its first corner.
func Meshes(s *scene.Scene, sess *reconstruct.Session) []*kernel.Mesh {
	part := make([]int, len(sess.Mesh.VCurr))
	for i := range part {
		part[i] = -1
	}
	for p, ids := range sess.Parts {
		for _, v := range ids {
			part[v] = p
		}
	}
	nodes := s.LayerNodes()
	faces := make([][]int, len(nodes))
	for fi, t := range sess.Mesh.F {
		if l := part[t[0]] / 2; part[t[0]] >= 0 && l < len(faces) {
			faces[l] = append(faces[l], fi)
		}
	}
	var meshes []*kernel.Mesh
	for l, n := range nodes {
		if len(faces[l]) == 0 {
			continue
		}
		if m := sess.Mesh.Submesh(layerName(n), faces[l]); !m.IsEmpty() {
			meshes = append(meshes, m)
		}
	}
	return meshes
}

// replay applies the scene operations in order.
func replay(sess *reconstruct.Session, ops []scene.Op) error {
	cps := make(map[string]int)
	for i, op := range ops {
		switch op.Kind {
		case scene.OpControlPoint:
			id, err := pick(sess, op.Pos)
			if err != nil {
				return fmt.Errorf("op %d: control point %q: %w", i, op.Name, err)
			}
			cps[op.Name] = id

		case scene.OpMove:
			id, ok := cps[op.Name]
			if !ok {
				return fmt.Errorf("op %d: no control point %q", i, op.Name)
			}
			cp, err := sess.Def.CP(id)
			if err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			pos := r3.Vec{X: op.Pos.X, Y: op.Pos.Y, Z: cp.Pos.Z}
			if op.Relative {
				pos = r3.Add(cp.Pos, r3.Vec{X: op.Pos.X, Y: op.Pos.Y})
			}
			if err := sess.Def.MoveControlPoint(id, pos); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}

		case scene.OpDeform:
			if _, err := sess.Settle(settleTol, op.Steps); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}

		default:
			return fmt.Errorf("op %d: unknown kind %v", i, op.Kind)
		}
	}
	return nil
}

// pick attaches a control point to the front surface under p, falling back
// to the highest vertex nearby.
func pick(sess *reconstruct.Session, p scene.Vec2) (int, error) {
	v, f := sess.Mesh.VCurr, sess.Mesh.F
	id, _ := sess.Def.AddControlPointOnFace(v, f, p.X, p.Y, pickRadius, true, false, nil)
	if id == -1 {
		id, _ = sess.Def.AddControlPoint(v, p.X, p.Y, pickRadius, true, nil)
	}
	if id == -1 {
		return -1, fmt.Errorf("no surface within %d pixels of (%g,%g)", pickRadius, p.X, p.Y)
	}
	return id, nil
}

func layerName(n *scene.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}

// walkNode builds the kernel shape of a node and its children.
func walkNode(s *scene.Scene, k kernel.Kernel, n *scene.Node) (kernel.Shape, error) {
	if n == nil {
		return nil, fmt.Errorf("dangling node reference")
	}
	switch n.Kind {
	case scene.NodeShape:
		return handleShape(k, n)
	case scene.NodeTransform:
		return handleTransform(s, k, n)
	case scene.NodeBoolean:
		return handleBoolean(s, k, n)
	default:
		return nil, fmt.Errorf("node %s of kind %s is not a shape", n.ID.Short(), n.Kind)
	}
}

// handleShape creates the primitive of a shape node.
func handleShape(k kernel.Kernel, n *scene.Node) (kernel.Shape, error) {
	d, ok := n.Data.(scene.ShapeData)
	if !ok {
		return nil, fmt.Errorf("shape node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	switch d.Shape {
	case scene.ShapeCircle:
		return k.Circle(d.Radius), nil
	case scene.ShapeRect:
		return k.Rect(d.Size.X, d.Size.Y), nil
	case scene.ShapePolygon:
		pts := make([][2]float64, len(d.Points))
		for i, p := range d.Points {
			pts[i] = [2]float64{p.X, p.Y}
		}
		return k.Polygon(pts), nil
	}
	return nil, fmt.Errorf("shape node %s has unsupported shape %s", n.ID.Short(), d.Shape)
}

// handleTransform rotates the child first, then translates it.
func handleTransform(s *scene.Scene, k kernel.Kernel, n *scene.Node) (kernel.Shape, error) {
	td, ok := n.Data.(scene.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	if len(n.Children) != 1 {
		return nil, fmt.Errorf("transform node %s has %d children", n.ID.Short(), len(n.Children))
	}
	shape, err := walkNode(s, k, s.Get(n.Children[0]))
	if err != nil {
		return nil, err
	}
	if td.Rotation != nil && *td.Rotation != 0 {
		shape = k.Rotate(shape, *td.Rotation)
	}
	if td.Translation != nil && (td.Translation.X != 0 || td.Translation.Y != 0) {
		shape = k.Translate(shape, td.Translation.X, td.Translation.Y)
	}
	return shape, nil
}

// handleBoolean folds the operation over the children left to right.
func handleBoolean(s *scene.Scene, k kernel.Kernel, n *scene.Node) (kernel.Shape, error) {
	bd, ok := n.Data.(scene.BooleanData)
	if !ok {
		return nil, fmt.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	var acc kernel.Shape
	for i, cid := range n.Children {
		shape, err := walkNode(s, k, s.Get(cid))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			acc = shape
			continue
		}
		switch bd.Op {
		case scene.OpUnion:
			acc = k.Union(acc, shape)
		case scene.OpDifference:
			acc = k.Difference(acc, shape)
		case scene.OpIntersection:
			acc = k.Intersection(acc, shape)
		default:
			return nil, fmt.Errorf("boolean node %s has unsupported op %s", n.ID.Short(), bd.Op)
		}
	}
	if acc == nil {
		return nil, fmt.Errorf("boolean node %s has no operands", n.ID.Short())
	}
	return acc, nil
}
