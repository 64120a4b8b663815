// Package reconstruct turns layered region drawings into an inflated mesh
// and prepares a deformation session on it.
package reconstruct

import (
	"errors"
	"fmt"

	"github.com/chazu/mash/pkg/deform"
	"github.com/chazu/mash/pkg/inflate"
	"github.com/chazu/mash/pkg/triangulate"
)

// ErrNoLayers is returned when there is nothing to reconstruct.
var ErrNoLayers = errors.New("reconstruct: no layers")

// ErrUnanchored is returned when some layer has no stroked outline and is
// not welded to anything that has one.
var ErrUnanchored = inflate.ErrUnanchored

// Config holds every knob of the reconstruction and of the deformation
// engine set up on its result.
type Config struct {
	// TriangleOpts is the Triangle-style switch string for the flat meshes.
	TriangleOpts string
	// SubsFactor shrinks the drawings before tracing. The mesh is scaled
	// back afterwards.
	SubsFactor int
	// SmoothFactor is the number of boundary smoothing passes.
	SmoothFactor int

	// DefaultInflation applies to layers without an entry in Inflation,
	// which is keyed by layer id.
	DefaultInflation float64
	Inflation        map[int]float64
	// MergeBothSides lists layer positions welded on their back side too.
	MergeBothSides map[int]bool

	ShiftModelX, ShiftModelY float64

	ArmpitsStitching                    bool
	ArmpitsStitchingInJointOptimization bool

	TempSmoothingSteps      int
	SearchThreshold         float64
	CPOptimizeForXY         bool
	CPOptimizeForZ          bool
	InteriorDepthConditions bool
	Iterations              int
	Rigidity                float64

	BufferWidth, BufferHeight int
}

// DefaultConfig returns the settings of an interactive session.
func DefaultConfig() Config {
	return Config{
		TriangleOpts:       "pqa25QYY",
		SubsFactor:         2,
		SmoothFactor:       10,
		DefaultInflation:   2,
		Inflation:          map[int]float64{},
		MergeBothSides:     map[int]bool{},
		TempSmoothingSteps: 1,
		SearchThreshold:    5,
		CPOptimizeForZ:     true,
		Iterations:         4,
		Rigidity:           0.999,
		BufferWidth:        deform.DefaultBufferWidth,
		BufferHeight:       deform.DefaultBufferHeight,
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if _, err := triangulate.ParseOptions(c.TriangleOpts); err != nil {
		return fmt.Errorf("reconstruct: config: %w", err)
	}
	switch {
	case c.SubsFactor < 1:
		return fmt.Errorf("reconstruct: config: subsample factor %d < 1", c.SubsFactor)
	case c.SmoothFactor < 0:
		return fmt.Errorf("reconstruct: config: smooth factor %d < 0", c.SmoothFactor)
	case c.TempSmoothingSteps < 0:
		return fmt.Errorf("reconstruct: config: temporal smoothing %d < 0", c.TempSmoothingSteps)
	case c.Iterations < 1:
		return fmt.Errorf("reconstruct: config: iterations %d < 1", c.Iterations)
	case c.Rigidity <= 0 || c.Rigidity >= 1:
		return fmt.Errorf("reconstruct: config: rigidity %g outside (0,1)", c.Rigidity)
	case c.SearchThreshold < 0:
		return fmt.Errorf("reconstruct: config: search threshold %g < 0", c.SearchThreshold)
	case c.BufferWidth < 1 || c.BufferHeight < 1:
		return fmt.Errorf("reconstruct: config: face buffer %dx%d", c.BufferWidth, c.BufferHeight)
	}
	return nil
}

// inflation returns the amount for the layer with the given id.
func (c Config) inflation(id int) float64 {
	if a, ok := c.Inflation[id]; ok {
		return a
	}
	return c.DefaultInflation
}
