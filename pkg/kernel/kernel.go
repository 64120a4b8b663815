// Package kernel defines the abstract 2D shape kernel used to author
// region masks. Implementations (sdfx) provide primitives, boolean
// operations and rasterization behind this interface, so the drawing
// backend can be swapped without touching the reconstruction.
package kernel

import "github.com/chazu/mash/pkg/raster"

// Shape is an opaque handle to a kernel shape. Coordinates are drawing
// pixels with y pointing down.
type Shape interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [2]float64)
}

// Kernel is the abstract shape kernel interface.
type Kernel interface {
	// Primitives
	Circle(radius float64) Shape
	Rect(w, h float64) Shape
	Polygon(pts [][2]float64) Shape

	// Boolean operations
	Union(a, b Shape) Shape
	Difference(a, b Shape) Shape
	Intersection(a, b Shape) Shape

	// Transforms
	Translate(s Shape, x, y float64) Shape
	Rotate(s Shape, deg float64) Shape

	// Rasterize returns a w×h mask holding 255 on every pixel whose
	// center lies inside s.
	Rasterize(s Shape, w, h int) *raster.Mask
}
