package scene

// NodeKind enumerates the types of nodes in a scene.
type NodeKind int

const (
	NodeShape     NodeKind = iota // primitive shape (circle, rect, polygon)
	NodeTransform                 // translate and rotate
	NodeBoolean                   // union, difference, intersection
	NodeLayer                     // a drawn region
)

func (k NodeKind) String() string {
	switch k {
	case NodeShape:
		return "shape"
	case NodeTransform:
		return "transform"
	case NodeBoolean:
		return "boolean"
	case NodeLayer:
		return "layer"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the scene DAG.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}
