// Package raster provides a small generic image container used for region
// masks, outline masks, and per-part face-id buffers.
//
// Image has two tiers of access: At is bounds-checked and returns an error,
// Get and Set are unchecked and panic on out-of-range coordinates like a
// slice index would.
package raster

import "fmt"

// OutOfBoundsError reports an access outside the image.
type OutOfBoundsError struct {
	X, Y int
	W, H int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("raster: pixel (%d,%d) outside %dx%d image", e.X, e.Y, e.W, e.H)
}

// Image is a dense row-major grid of T.
type Image[T any] struct {
	W, H int
	Pix  []T
}

// Mask is a single-channel 8-bit image. Zero is background.
type Mask = Image[uint8]

// New returns a zeroed w×h image.
func New[T any](w, h int) *Image[T] {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("raster: negative size %dx%d", w, h))
	}
	return &Image[T]{W: w, H: h, Pix: make([]T, w*h)}
}

// NewFilled returns a w×h image with every pixel set to v.
func NewFilled[T any](w, h int, v T) *Image[T] {
	im := New[T](w, h)
	im.Fill(v)
	return im
}

// In reports whether (x,y) lies inside the image.
func (im *Image[T]) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < im.W && y < im.H
}

// At returns the pixel at (x,y) or an *OutOfBoundsError.
func (im *Image[T]) At(x, y int) (T, error) {
	if !im.In(x, y) {
		var zero T
		return zero, &OutOfBoundsError{X: x, Y: y, W: im.W, H: im.H}
	}
	return im.Pix[y*im.W+x], nil
}

// Get returns the pixel at (x,y) without a bounds check.
func (im *Image[T]) Get(x, y int) T {
	return im.Pix[y*im.W+x]
}

// Set stores v at (x,y) without a bounds check.
func (im *Image[T]) Set(x, y int, v T) {
	im.Pix[y*im.W+x] = v
}

// Fill sets every pixel to v.
func (im *Image[T]) Fill(v T) {
	for i := range im.Pix {
		im.Pix[i] = v
	}
}

// Clone returns a deep copy.
func (im *Image[T]) Clone() *Image[T] {
	out := &Image[T]{W: im.W, H: im.H, Pix: make([]T, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// SameSize reports whether both images have equal dimensions.
func SameSize[T, U any](a *Image[T], b *Image[U]) bool {
	return a.W == b.W && a.H == b.H
}

// Pad returns a copy of im surrounded by an n pixel border of v.
func Pad[T any](im *Image[T], n int, v T) *Image[T] {
	out := NewFilled(im.W+2*n, im.H+2*n, v)
	for y := 0; y < im.H; y++ {
		copy(out.Pix[(y+n)*out.W+n:(y+n)*out.W+n+im.W], im.Pix[y*im.W:(y+1)*im.W])
	}
	return out
}

// Subsample shrinks im by an integer factor. Every pixel that differs from
// bg is written to its block in the output, so a block is set as soon as any
// of its source pixels is set.
func Subsample[T comparable](im *Image[T], factor int, bg T) *Image[T] {
	if factor <= 1 {
		return im.Clone()
	}
	w := (im.W + factor - 1) / factor
	h := (im.H + factor - 1) / factor
	out := NewFilled(w, h, bg)
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			if v := im.Get(x, y); v != bg {
				out.Set(x/factor, y/factor, v)
			}
		}
	}
	return out
}

// IsEmpty reports whether every pixel equals the zero value.
func IsEmpty[T comparable](im *Image[T]) bool {
	var zero T
	for _, v := range im.Pix {
		if v != zero {
			return false
		}
	}
	return true
}

// Count returns how many pixels satisfy pred.
func Count[T any](im *Image[T], pred func(T) bool) int {
	n := 0
	for _, v := range im.Pix {
		if pred(v) {
			n++
		}
	}
	return n
}
