package deform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ControlPoint pins mesh vertex PtID to Pos.
type ControlPoint struct {
	Pos, PrevPos r3.Vec
	PtID         int
	Fixed        bool
	Weight       float64
}

// NotFoundError reports a lookup of a control point id that does not exist
// or was removed.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("deform: control point %d not found", e.ID)
}

// Def owns the control points of a mesh. Ids are handed out in increasing
// order and never reused. Every add or remove bumps the change counter so
// the engine knows when to refactor its systems.
type Def struct {
	cps     []*ControlPoint // indexed by id, nil once removed
	live    int
	changed int64

	// Defaults for control points created by the picking helpers.
	DefaultWeight float64
	DefaultFixed  bool
}

// NewDef returns an empty control point set.
func NewDef() *Def {
	return &Def{DefaultWeight: 1, DefaultFixed: true}
}

// ChangedNum returns the change counter.
func (d *Def) ChangedNum() int64 { return d.changed }

// Len returns the number of live control points.
func (d *Def) Len() int { return d.live }

// IDs returns the live ids in increasing order.
func (d *Def) IDs() []int {
	ids := make([]int, 0, d.live)
	for id, cp := range d.cps {
		if cp != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// CP returns the control point with the given id.
func (d *Def) CP(id int) (*ControlPoint, error) {
	if id < 0 || id >= len(d.cps) || d.cps[id] == nil {
		return nil, &NotFoundError{ID: id}
	}
	return d.cps[id], nil
}

// AddCP stores a copy of cp and returns its id.
func (d *Def) AddCP(cp ControlPoint) int {
	c := cp
	d.cps = append(d.cps, &c)
	d.live++
	d.changed++
	return len(d.cps) - 1
}

func (d *Def) newCP(pos r3.Vec, pt int) int {
	return d.AddCP(ControlPoint{Pos: pos, PrevPos: pos, PtID: pt, Fixed: d.DefaultFixed, Weight: d.DefaultWeight})
}

// ControlPointAt returns the control point nearest to the screen point
// (x,y,depth) within radius, or -1. Among equally near ones the highest
// (or lowest) projected depth wins.
func (d *Def) ControlPointAt(x, y, radius, depth float64, considerDepth, highest bool, proj *Projection) int {
	ind := -1
	best := math.Inf(1)
	ext := math.Inf(1)
	if highest {
		ext = math.Inf(-1)
	}
	q := r3.Vec{X: x, Y: y, Z: depth}
	for id, cp := range d.cps {
		if cp == nil {
			continue
		}
		p := proj.Apply(cp.Pos)
		dist := planarOrFull(p, q, considerDepth)
		if dist <= radius && dist < best && (highest && p.Z > ext || !highest && p.Z < ext) {
			best, ext, ind = dist, p.Z, id
		}
	}
	return ind
}

// ControlPointsInRect returns the ids of control points projecting into the
// screen rectangle [x1,x2]×[y1,y2].
func (d *Def) ControlPointsInRect(x1, y1, x2, y2 float64, proj *Projection) []int {
	var ids []int
	for id, cp := range d.cps {
		if cp == nil {
			continue
		}
		p := proj.Apply(cp.Pos)
		if p.X >= x1 && p.Y >= y1 && p.X <= x2 && p.Y <= y2 {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddControlPointOnFace adds a control point on the nearest corner of the
// face under the screen point (x,y). It returns the id of the new point
// and true, or the id of an existing point at that spot (or -1) and false.
func (d *Def) AddControlPointOnFace(v []r3.Vec, f [][3]int, x, y, radius float64, highest, reverse bool, proj *Projection) (int, bool) {
	if id := d.ControlPointAt(x, y, radius, 0, false, highest, proj); id != -1 {
		return id, false
	}
	vp := proj.ApplyAll(v)
	face := MeshFace(vp, f, x, y, highest, reverse)
	if face == -1 {
		return -1, false
	}
	pt := -1
	best := math.Inf(1)
	for _, i := range f[face] {
		if dist := math.Hypot(vp[i].X-x, vp[i].Y-y); dist < best {
			best, pt = dist, i
		}
	}
	for id, cp := range d.cps {
		if cp != nil && cp.PtID == pt {
			return id, false
		}
	}
	pos := proj.Unproject(r3.Vec{X: x, Y: y, Z: vp[pt].Z})
	return d.newCP(pos, pt), true
}

// AddControlPoint adds a control point on the vertex nearest to the screen
// point (x,y) within radius, taking its projected depth.
func (d *Def) AddControlPoint(v []r3.Vec, x, y, radius float64, highest bool, proj *Projection) (int, bool) {
	if id := d.ControlPointAt(x, y, radius, 0, false, highest, proj); id != -1 {
		return id, false
	}
	vp := proj.ApplyAll(v)
	pt := MeshPoint(vp, x, y, radius, highest)
	if pt == -1 {
		return -1, false
	}
	pos := proj.Unproject(r3.Vec{X: x, Y: y, Z: vp[pt].Z})
	return d.newCP(pos, pt), true
}

// AddControlPointAtDepth adds a control point at (x,y,depth) attached to
// the nearest vertex within radius.
func (d *Def) AddControlPointAtDepth(v []r3.Vec, x, y, radius, depth float64, considerDepth bool) (int, bool) {
	if id := d.ControlPointAt(x, y, radius, depth, considerDepth, false, nil); id != -1 {
		return id, false
	}
	pt := NearestPoint(v, x, y, radius, depth, considerDepth)
	if pt == -1 {
		return -1, false
	}
	return d.newCP(r3.Vec{X: x, Y: y, Z: depth}, pt), true
}

// MoveControlPoint sets the target position of a control point. Moving
// does not change the control point set.
func (d *Def) MoveControlPoint(id int, pos r3.Vec) error {
	cp, err := d.CP(id)
	if err != nil {
		return err
	}
	cp.PrevPos = cp.Pos
	cp.Pos = pos
	return nil
}

// RemoveControlPoint removes the control point with the given id.
func (d *Def) RemoveControlPoint(id int) bool {
	if _, err := d.CP(id); err != nil {
		return false
	}
	d.cps[id] = nil
	d.live--
	d.changed++
	return true
}

// RemoveControlPointAt removes the control point nearest to (x,y,depth).
func (d *Def) RemoveControlPointAt(x, y, radius, depth float64, considerDepth bool) bool {
	return d.RemoveControlPoint(d.ControlPointAt(x, y, radius, depth, considerDepth, false, nil))
}

// RemoveLastControlPoint removes the most recently added control point if
// it still exists.
func (d *Def) RemoveLastControlPoint() bool {
	return d.RemoveControlPoint(len(d.cps) - 1)
}

// RemoveControlPoints removes every control point.
func (d *Def) RemoveControlPoints() {
	for i := range d.cps {
		d.cps[i] = nil
	}
	d.live = 0
	d.changed++
}

// UpdatePoints moves the pinned vertices of m onto their control points.
func (d *Def) UpdatePoints(m *Mesh3D) {
	for _, cp := range d.cps {
		if cp != nil && cp.PtID >= 0 && cp.PtID < len(m.VCurr) {
			m.VCurr[cp.PtID] = cp.Pos
		}
	}
}
