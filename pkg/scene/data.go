package scene

// ---------------------------------------------------------------------------
// Shapes
// ---------------------------------------------------------------------------

// ShapeKind distinguishes between primitive shapes.
type ShapeKind int

const (
	ShapeCircle  ShapeKind = iota // centered on the origin
	ShapeRect                     // minimum corner at the origin
	ShapePolygon                  // closed polygon
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeRect:
		return "rect"
	case ShapePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// ShapeData is a primitive shape in drawing pixels.
type ShapeData struct {
	Shape  ShapeKind `json:"shape"`
	Radius float64   `json:"radius,omitempty"`
	Size   Vec2      `json:"size,omitempty"` // rect width and height
	Points []Vec2    `json:"points,omitempty"`
}

func (ShapeData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData rotates its single child about the origin, then moves it.
type TransformData struct {
	Translation *Vec2    `json:"translation,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"` // degrees
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanOp enumerates the boolean operations.
type BooleanOp int

const (
	OpUnion BooleanOp = iota
	OpDifference
	OpIntersection
)

func (o BooleanOp) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanData folds Op over the children left to right.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// ---------------------------------------------------------------------------
// Layer
// ---------------------------------------------------------------------------

// LayerData describes a drawn region. Its single child is the region
// shape. The region border under Open is left without a stroke, which
// welds the layer to the ones behind it there.
type LayerData struct {
	Inflation      *float64 `json:"inflation,omitempty"`
	MergeBothSides bool     `json:"merge_both_sides,omitempty"`
	Open           NodeID   `json:"open,omitempty"`
}

func (LayerData) nodeData() {}

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

// Vec2 is a point or offset in drawing pixels, y pointing down.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
