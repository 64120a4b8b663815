package scene

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// ValidationSeverity indicates whether a validation finding blocks
// reconstruction or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks reconstruction
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Validate runs the structural checks on s. An empty slice means the scene
// is valid. It never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(s)...)
	errs = append(errs, validateReferences(s)...)
	errs = append(errs, validateNames(s)...)
	errs = append(errs, validateLayers(s)...)
	errs = append(errs, validateShapes(s)...)
	errs = append(errs, validateCanvas(s)...)
	errs = append(errs, validateOps(s)...)
	errs = append(errs, validateSettings(s)...)
	return errs
}

// ValidateAll runs Validate and separates errors from warnings.
func ValidateAll(s *Scene) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(s) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				NodeID:  e.NodeID,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validateDAG checks for cycles using DFS with 3-color marking.
func validateDAG(s *Scene) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // true if a cycle was found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}
		color[id] = gray
		node, ok := s.Nodes[id]
		if !ok {
			// Dangling; reported by validateReferences.
			color[id] = black
			return false
		}
		next := node.Children
		if d, ok := node.Data.(LayerData); ok && !d.Open.IsZero() {
			next = append(append([]NodeID(nil), next...), d.Open)
		}
		for _, c := range next {
			if visit(c) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range sortedIDs(s) {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks that every NodeID referenced in the scene
// exists.
func validateReferences(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, node := range s.Nodes {
		for _, c := range node.Children {
			if _, ok := s.Nodes[c]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", c.Short()),
					Severity: SeverityError,
				})
			}
		}
		if d, ok := node.Data.(LayerData); ok && !d.Open.IsZero() {
			if _, ok := s.Nodes[d.Open]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("layer open reference %s does not exist", d.Open.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateNames checks that the NameIndex points at existing nodes and that
// no two nodes share a name.
func validateNames(s *Scene) []ValidationError {
	var errs []ValidationError
	for name, id := range s.NameIndex {
		if _, ok := s.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}
	byName := make(map[string]int)
	for _, node := range s.Nodes {
		if node.Name != "" {
			byName[node.Name]++
		}
	}
	for name, n := range byName {
		if n > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, n),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateLayers checks the layer list and warns about shapes that no
// layer uses.
func validateLayers(s *Scene) []ValidationError {
	var errs []ValidationError
	if len(s.Layers) == 0 && len(s.Nodes) > 0 {
		errs = append(errs, ValidationError{
			Message:  "scene has shapes but no layers",
			Severity: SeverityWarning,
		})
	}
	seen := make(map[NodeID]bool)
	for _, id := range s.Layers {
		node, ok := s.Nodes[id]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("layer reference %s does not exist", id.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if seen[id] {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "layer listed more than once",
				Severity: SeverityError,
			})
		}
		seen[id] = true
		if node.Kind != NodeLayer {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("layer list entry is %s, not layer", node.Kind),
				Severity: SeverityError,
			})
			continue
		}
		if len(node.Children) != 1 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("layer has %d region shapes, want 1", len(node.Children)),
				Severity: SeverityError,
			})
		}
		if d, ok := node.Data.(LayerData); ok && d.Inflation != nil && *d.Inflation < 0 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("negative inflation %g", *d.Inflation),
				Severity: SeverityError,
			})
		}
	}

	// Orphans: nodes unreachable from any layer.
	reachable := make(map[NodeID]bool)
	queue := append([]NodeID(nil), s.Layers...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		node := s.Nodes[id]
		if node == nil {
			continue
		}
		queue = append(queue, node.Children...)
		if d, ok := node.Data.(LayerData); ok && !d.Open.IsZero() {
			queue = append(queue, d.Open)
		}
	}
	for _, id := range sortedIDs(s) {
		if !reachable[id] {
			node := s.Nodes[id]
			name := node.Name
			if name == "" {
				name = id.Short()
			}
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not used by any layer (orphan)", name),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateShapes checks the geometry of primitives, transforms and
// booleans.
func validateShapes(s *Scene) []ValidationError {
	var errs []ValidationError
	bad := func(id NodeID, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}
	for _, id := range sortedIDs(s) {
		node := s.Nodes[id]
		switch d := node.Data.(type) {
		case ShapeData:
			switch d.Shape {
			case ShapeCircle:
				if d.Radius <= 0 {
					bad(id, "circle radius %g must be positive", d.Radius)
				}
			case ShapeRect:
				if d.Size.X <= 0 || d.Size.Y <= 0 {
					bad(id, "rect size %gx%g must be positive", d.Size.X, d.Size.Y)
				}
			case ShapePolygon:
				if len(d.Points) < 3 {
					bad(id, "polygon has %d points, want at least 3", len(d.Points))
				}
			}
		case TransformData:
			if len(node.Children) != 1 {
				bad(id, "transform has %d children, want 1", len(node.Children))
			}
		case BooleanData:
			if len(node.Children) < 2 {
				bad(id, "%s has %d operands, want at least 2", d.Op, len(node.Children))
			}
		}
	}
	return errs
}

func validateCanvas(s *Scene) []ValidationError {
	if s.Canvas.W <= 0 || s.Canvas.H <= 0 {
		return []ValidationError{{
			Message:  fmt.Sprintf("canvas %dx%d must be positive", s.Canvas.W, s.Canvas.H),
			Severity: SeverityError,
		}}
	}
	return nil
}

// validateOps checks that moves refer to control points defined before
// them and that control point names are unique.
func validateOps(s *Scene) []ValidationError {
	var errs []ValidationError
	defined := make(map[string]bool)
	for i, op := range s.Ops {
		switch op.Kind {
		case OpControlPoint:
			if op.Name == "" {
				continue
			}
			if defined[op.Name] {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("op %d: control point %q defined twice", i, op.Name),
					Severity: SeverityError,
				})
			}
			defined[op.Name] = true
		case OpMove:
			if !defined[op.Name] {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("op %d: move of undefined control point %q", i, op.Name),
					Severity: SeverityError,
				})
			}
		case OpDeform:
			if op.Steps < 1 {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("op %d: deform steps %d must be at least 1", i, op.Steps),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

func validateSettings(s *Scene) []ValidationError {
	var errs []ValidationError
	unknown := lo.Reject(lo.Keys(s.Settings), func(k string, _ int) bool { return SettingNames[k] })
	slices.Sort(unknown)
	for _, k := range unknown {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("unknown setting %q ignored", k),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// sortedIDs returns the node ids in a stable order so findings are
// reported deterministically.
func sortedIDs(s *Scene) []NodeID {
	ids := lo.Keys(s.Nodes)
	slices.Sort(ids)
	return ids
}
