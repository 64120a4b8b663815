package triangulate

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Options is the parsed form of a Triangle-style switch string such as
// "pqa25QYY".
type Options struct {
	// PSLG (p) triangulates the input segments instead of the convex hull.
	PSLG bool
	// Quality (q) enables minimum angle refinement.
	Quality bool
	// MinAngle is the angle bound in degrees used when Quality is set.
	MinAngle float64
	// MaxArea (a) bounds triangle area. Zero means unbounded.
	MaxArea float64
	// Quiet (Q) suppresses diagnostics.
	Quiet bool
	// NoBoundarySteiner (Y) forbids Steiner points on segments. Segments are
	// never split by refinement in this implementation, so Y and YY behave
	// the same.
	NoBoundarySteiner int
	// MaxSteiner (S) caps the number of inserted points. Negative means the
	// default cap.
	MaxSteiner int
}

// DefaultMinAngle is the angle bound used by a bare q switch.
const DefaultMinAngle = 20.0

// maxMinAngle keeps refinement from looping forever.
const maxMinAngle = 34.0

// ParseOptions parses a switch string. Unsupported switches are an error.
func ParseOptions(s string) (Options, error) {
	o := Options{MaxSteiner: -1}
	for i := 0; i < len(s); {
		c := s[i]
		i++
		switch c {
		case 'p':
			o.PSLG = true
		case 'q':
			o.Quality = true
			o.MinAngle = DefaultMinAngle
			if v, n, ok := number(s[i:]); ok {
				o.MinAngle = v
				i += n
			}
			if o.MinAngle > maxMinAngle {
				return o, errors.Errorf("triangulate: minimum angle %g exceeds %g", o.MinAngle, maxMinAngle)
			}
		case 'a':
			v, n, ok := number(s[i:])
			if !ok {
				return o, errors.Errorf("triangulate: switch 'a' needs an area in %q", s)
			}
			if v <= 0 {
				return o, errors.Errorf("triangulate: area bound must be positive, got %g", v)
			}
			o.MaxArea = v
			i += n
		case 'S':
			v, n, ok := number(s[i:])
			if !ok {
				return o, errors.Errorf("triangulate: switch 'S' needs a count in %q", s)
			}
			o.MaxSteiner = int(v)
			i += n
		case 'Q':
			o.Quiet = true
		case 'Y':
			o.NoBoundarySteiner++
		case 'z', 'c', 'j', 'V', 'e', 'n':
			// Indexing, verbosity and auxiliary output switches do not change
			// the mesh produced here.
		case 'D':
			// Conforming Delaunay splits segments, which Y forbids and the
			// refiner never does.
			return o, errors.Errorf("triangulate: conforming Delaunay (D) is not supported in %q", s)
		default:
			return o, errors.Errorf("triangulate: unsupported switch %q in %q", c, s)
		}
	}
	return o, nil
}

// number reads a leading decimal number from s.
func number(s string) (float64, int, bool) {
	n := 0
	for n < len(s) && strings.IndexByte("0123456789.", s[n]) >= 0 {
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0, 0, false
	}
	return v, n, true
}
