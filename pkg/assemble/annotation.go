// Package assemble stitches per-part flat meshes into one connected mesh
// and derives the correspondence tables used to weld parts together and to
// keep their depth ordering.
package assemble

import "math"

// Annotation is the per-vertex code decoded from the z coordinate of a
// triangulated part. Digits are read from the least significant end.
type Annotation struct {
	NoEq   bool // digit 0: vertex takes part in no equality
	NoIneq bool // digit 1: vertex takes part in no inequality
	Free   bool // digit 2: free (neumann) boundary
	Merge  bool // digit 3: merge boundary
	Custom int  // digit 4: custom correspondence group
}

// ParseAnnotation decodes a vertex code such as 1100.
func ParseAnnotation(code float64) Annotation {
	c := int(math.Abs(code))
	var d [5]int
	for i := range d {
		d[i] = c % 10
		c /= 10
	}
	return Annotation{
		NoEq:   d[0] != 0,
		NoIneq: d[1] != 0,
		Free:   d[2] != 0,
		Merge:  d[3] != 0,
		Custom: d[4],
	}
}
