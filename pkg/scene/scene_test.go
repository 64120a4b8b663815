package scene

import "testing"

func TestNewNodeIDDeterministic(t *testing.T) {
	a := NewNodeID("layer/torso")
	b := NewNodeID("layer/torso")
	c := NewNodeID("layer/arm")
	if a != b {
		t.Errorf("same path gave %s and %s", a, b)
	}
	if a == c {
		t.Error("different paths gave the same id")
	}
	if len(a) != 64 || a.IsZero() {
		t.Errorf("id %q is not a sha256 hex digest", a)
	}
	if got := a.Short(); len(got) != 8 || got != string(a[:8]) {
		t.Errorf("Short() = %q", got)
	}
	if !ZeroID.IsZero() || ZeroID.Short() != "" {
		t.Error("ZeroID is not zero")
	}
}

func TestKindStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{NodeShape.String(), "shape"},
		{NodeTransform.String(), "transform"},
		{NodeBoolean.String(), "boolean"},
		{NodeLayer.String(), "layer"},
		{NodeKind(99).String(), "unknown"},
		{ShapeCircle.String(), "circle"},
		{ShapePolygon.String(), "polygon"},
		{OpDifference.String(), "difference"},
		{OpMove.String(), "move"},
		{OpKind(7).String(), "unknown"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSceneLookup(t *testing.T) {
	s := New()
	if s.Canvas != (Canvas{W: DefaultWidth, H: DefaultHeight}) {
		t.Errorf("default canvas = %+v", s.Canvas)
	}
	rect := &Node{ID: NewNodeID("rect/1"), Kind: NodeShape, Data: ShapeData{Shape: ShapeRect, Size: Vec2{10, 10}}}
	layer := &Node{ID: NewNodeID("layer/body"), Kind: NodeLayer, Name: "body", Children: []NodeID{rect.ID}, Data: LayerData{}}
	s.AddNode(rect)
	s.AddNode(layer)
	s.AddLayer(layer.ID)

	if got := s.Lookup("body"); got != layer {
		t.Errorf("Lookup(body) = %v", got)
	}
	if s.Lookup("missing") != nil {
		t.Error("Lookup(missing) should be nil")
	}
	if got := s.Children(layer); len(got) != 1 || got[0] != rect {
		t.Errorf("Children = %v", got)
	}
	if got := s.LayerNodes(); len(got) != 1 || got[0] != layer {
		t.Errorf("LayerNodes = %v", got)
	}
	if s.NodeCount() != 2 {
		t.Errorf("NodeCount = %d", s.NodeCount())
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup did not panic")
		}
	}()
	New().MustLookup("nope")
}
