package scene

import (
	"strings"
	"testing"
)

// buildFigure creates a valid two-layer scene: a torso rectangle and an
// arm drawn over it with an open shoulder.
func buildFigure() *Scene {
	s := New()
	torso := NewNodeID("rect/torso")
	arm := NewNodeID("rect/arm")
	moved := NewNodeID("translate/arm")
	shoulder := NewNodeID("circle/shoulder")
	l0 := NewNodeID("layer/torso")
	l1 := NewNodeID("layer/arm")

	s.AddNode(&Node{ID: torso, Kind: NodeShape, Data: ShapeData{Shape: ShapeRect, Size: Vec2{100, 200}}})
	s.AddNode(&Node{ID: arm, Kind: NodeShape, Data: ShapeData{Shape: ShapeRect, Size: Vec2{120, 30}}})
	s.AddNode(&Node{ID: moved, Kind: NodeTransform, Children: []NodeID{arm}, Data: TransformData{Translation: &Vec2{40, 50}}})
	s.AddNode(&Node{ID: shoulder, Kind: NodeShape, Data: ShapeData{Shape: ShapeCircle, Radius: 20}})
	s.AddNode(&Node{ID: l0, Kind: NodeLayer, Name: "torso", Children: []NodeID{torso}, Data: LayerData{}})
	s.AddNode(&Node{ID: l1, Kind: NodeLayer, Name: "arm", Children: []NodeID{moved}, Data: LayerData{Open: shoulder}})
	s.AddLayer(l0)
	s.AddLayer(l1)
	s.AddOp(Op{Kind: OpControlPoint, Name: "hand", Pos: Vec2{150, 65}})
	s.AddOp(Op{Kind: OpMove, Name: "hand", Pos: Vec2{0, -20}, Relative: true})
	s.AddOp(Op{Kind: OpDeform, Steps: 10})
	return s
}

// hasError returns true if errs contains at least one error-severity finding
// whose message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// hasWarning returns true if errs contains at least one warning-severity
// finding whose message contains substr.
func hasWarning(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateFigure(t *testing.T) {
	if errs := Validate(buildFigure()); len(errs) != 0 {
		t.Fatalf("valid scene reported %v", errs)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Scene)
		substr  string
		warning bool
	}{
		{"cycle", func(s *Scene) {
			n := s.Get(NewNodeID("translate/arm"))
			n.Children = []NodeID{s.Lookup("arm").ID}
		}, "cycle detected", false},
		{"dangling child", func(s *Scene) {
			s.Lookup("torso").Children = []NodeID{NewNodeID("nowhere")}
		}, "child reference", false},
		{"dangling open", func(s *Scene) {
			s.Lookup("arm").Data = LayerData{Open: NewNodeID("nowhere")}
		}, "open reference", false},
		{"duplicate name", func(s *Scene) {
			s.Get(NewNodeID("rect/torso")).Name = "arm"
		}, "duplicate name", false},
		{"layer is a shape", func(s *Scene) {
			s.AddLayer(NewNodeID("rect/torso"))
		}, "not layer", false},
		{"layer listed twice", func(s *Scene) {
			s.AddLayer(s.Lookup("torso").ID)
		}, "more than once", false},
		{"negative inflation", func(s *Scene) {
			a := -1.0
			s.Lookup("torso").Data = LayerData{Inflation: &a}
		}, "negative inflation", false},
		{"zero radius", func(s *Scene) {
			s.Get(NewNodeID("circle/shoulder")).Data = ShapeData{Shape: ShapeCircle}
		}, "radius", false},
		{"degenerate polygon", func(s *Scene) {
			s.Get(NewNodeID("rect/arm")).Data = ShapeData{Shape: ShapePolygon, Points: []Vec2{{0, 0}, {1, 1}}}
		}, "at least 3", false},
		{"boolean with one operand", func(s *Scene) {
			id := NewNodeID("union/1")
			s.AddNode(&Node{ID: id, Kind: NodeBoolean, Children: []NodeID{NewNodeID("rect/torso")}, Data: BooleanData{Op: OpUnion}})
			s.Lookup("torso").Children = []NodeID{id}
		}, "operands", false},
		{"bad canvas", func(s *Scene) { s.Canvas.W = 0 }, "canvas", false},
		{"undefined move", func(s *Scene) {
			s.AddOp(Op{Kind: OpMove, Name: "foot"})
		}, "undefined control point", false},
		{"redefined control point", func(s *Scene) {
			s.AddOp(Op{Kind: OpControlPoint, Name: "hand"})
		}, "defined twice", false},
		{"zero deform steps", func(s *Scene) {
			s.AddOp(Op{Kind: OpDeform})
		}, "steps", false},
		{"orphan", func(s *Scene) {
			s.AddNode(&Node{ID: NewNodeID("circle/loose"), Kind: NodeShape, Name: "loose", Data: ShapeData{Shape: ShapeCircle, Radius: 3}})
		}, "orphan", true},
		{"unknown setting", func(s *Scene) { s.Settings["wobble"] = 1 }, "unknown setting", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildFigure()
			tt.mutate(s)
			errs := Validate(s)
			if tt.warning && !hasWarning(errs, tt.substr) {
				t.Errorf("no warning containing %q in %v", tt.substr, errs)
			}
			if !tt.warning && !hasError(errs, tt.substr) {
				t.Errorf("no error containing %q in %v", tt.substr, errs)
			}
		})
	}
}

func TestValidateNoLayersWarns(t *testing.T) {
	s := New()
	s.AddNode(&Node{ID: NewNodeID("circle/a"), Kind: NodeShape, Data: ShapeData{Shape: ShapeCircle, Radius: 1}})
	if errs := Validate(s); !hasWarning(errs, "no layers") {
		t.Errorf("missing no-layers warning in %v", errs)
	}
}

func TestValidateAllSeparates(t *testing.T) {
	s := buildFigure()
	s.Settings["wobble"] = 1
	s.Canvas.H = -1
	res := ValidateAll(s)
	if len(res.Errors) != 1 || len(res.Warnings) != 1 {
		t.Fatalf("got %d errors and %d warnings, want 1 and 1", len(res.Errors), len(res.Warnings))
	}
	if !strings.Contains(res.Errors[0].Error(), "[error]") {
		t.Errorf("Error() = %q", res.Errors[0].Error())
	}
}

func TestValidationErrorString(t *testing.T) {
	id := NewNodeID("x")
	e := ValidationError{NodeID: id, Message: "boom", Severity: SeverityWarning}
	want := "[warning] node " + id.Short() + ": boom"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
