package scene

import "fmt"

// Default canvas size in pixels.
const (
	DefaultWidth  = 512
	DefaultHeight = 512
)

// Settings keys understood by the reconstruction. Unknown keys are kept
// but reported as warnings.
var SettingNames = map[string]bool{
	"subsample":          true,
	"smooth":             true,
	"inflation":          true,
	"shift-x":            true,
	"shift-y":            true,
	"armpits":            true,
	"joint-armpits":      true,
	"temporal-smoothing": true,
	"search-threshold":   true,
	"cp-optimize-xy":     true,
	"cp-optimize-z":      true,
	"interior-depth":     true,
	"iterations":         true,
	"rigidity":           true,
}

// Canvas is the drawing area in pixels.
type Canvas struct {
	W int `json:"w"`
	H int `json:"h"`
}

// OpKind enumerates the operations replayed on the reconstructed mesh.
type OpKind int

const (
	OpControlPoint OpKind = iota // pin the surface under a screen point
	OpMove                       // move a pinned point
	OpDeform                     // run deformation steps
)

func (k OpKind) String() string {
	switch k {
	case OpControlPoint:
		return "control-point"
	case OpMove:
		return "move"
	case OpDeform:
		return "deform"
	default:
		return "unknown"
	}
}

// Op is one entry of the operation list. Name refers to a control point
// created by an earlier OpControlPoint.
type Op struct {
	Kind OpKind `json:"kind"`
	Name string `json:"name,omitempty"`
	// Pos is the screen point of a control point, or the target (or
	// offset, when Relative) of a move.
	Pos      Vec2 `json:"pos"`
	Relative bool `json:"relative,omitempty"`
	// Steps bounds an OpDeform; it stops early once the mesh is at rest.
	Steps int `json:"steps,omitempty"`
}

// Scene is the immutable drawing produced by one evaluation.
type Scene struct {
	Nodes     map[NodeID]*Node   `json:"nodes"`
	Layers    []NodeID           `json:"layers"` // back to front
	NameIndex map[string]NodeID  `json:"name_index"`
	Canvas    Canvas             `json:"canvas"`
	Settings  map[string]float64 `json:"settings,omitempty"`
	Ops       []Op               `json:"ops,omitempty"`
	Version   uint64             `json:"version"`
}

// New creates an empty scene on the default canvas.
func New() *Scene {
	return &Scene{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Canvas:    Canvas{W: DefaultWidth, H: DefaultHeight},
		Settings:  make(map[string]float64),
	}
}

// AddNode adds a node to the scene. It does not check for duplicates.
func (s *Scene) AddNode(n *Node) {
	s.Nodes[n.ID] = n
	if n.Name != "" {
		s.NameIndex[n.Name] = n.ID
	}
}

// AddLayer registers a layer node in front of the existing ones.
func (s *Scene) AddLayer(id NodeID) {
	s.Layers = append(s.Layers, id)
}

// AddOp appends an operation.
func (s *Scene) AddOp(op Op) {
	s.Ops = append(s.Ops, op)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (s *Scene) Lookup(name string) *Node {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (s *Scene) MustLookup(name string) *Node {
	n := s.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (s *Scene) Get(id NodeID) *Node {
	return s.Nodes[id]
}

// LayerNodes returns the layer nodes back to front, skipping dangling ids.
func (s *Scene) LayerNodes() []*Node {
	out := make([]*Node, 0, len(s.Layers))
	for _, id := range s.Layers {
		if n := s.Nodes[id]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the child nodes of the given node.
func (s *Scene) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.Nodes)
}
