// Package region implements rectangle unions for damage, opaque and input
// areas.
package region

import (
	"image"
	"math"
)

// Region is a union of pixel rectangles kept as a disjoint set. The zero
// value is the empty region.
type Region struct {
	rects []image.Rectangle
}

// New returns a region covering rects.
func New(rects ...image.Rectangle) *Region {
	r := &Region{}
	for _, rect := range rects {
		r.Add(rect)
	}
	return r
}

// Rect builds a rectangle from protocol x, y, width, height arguments.
// Non-positive sizes yield the empty rectangle.
func Rect(x, y, width, height int32) image.Rectangle {
	if width <= 0 || height <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(int(x), int(y), int(x)+int(width), int(y)+int(height))
}

// Positive is the quadrant damage is clipped to.
var Positive = image.Rect(0, 0, math.MaxInt32, math.MaxInt32)

// Add unions rect into the region.
func (r *Region) Add(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	pieces := []image.Rectangle{rect}
	for _, have := range r.rects {
		var next []image.Rectangle
		for _, p := range pieces {
			next = append(next, subtract(p, have)...)
		}
		pieces = next
		if len(pieces) == 0 {
			return
		}
	}
	r.rects = append(r.rects, pieces...)
}

// Subtract removes rect from the region.
func (r *Region) Subtract(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	var out []image.Rectangle
	for _, have := range r.rects {
		out = append(out, subtract(have, rect)...)
	}
	r.rects = out
}

// Intersect clips the region to rect.
func (r *Region) Intersect(rect image.Rectangle) {
	out := r.rects[:0]
	for _, have := range r.rects {
		if c := have.Intersect(rect); !c.Empty() {
			out = append(out, c)
		}
	}
	r.rects = out
}

// subtract returns a minus b as up to four disjoint rectangles.
func subtract(a, b image.Rectangle) []image.Rectangle {
	in := a.Intersect(b)
	if in.Empty() {
		return []image.Rectangle{a}
	}
	var out []image.Rectangle
	if a.Min.Y < in.Min.Y {
		out = append(out, image.Rect(a.Min.X, a.Min.Y, a.Max.X, in.Min.Y))
	}
	if in.Max.Y < a.Max.Y {
		out = append(out, image.Rect(a.Min.X, in.Max.Y, a.Max.X, a.Max.Y))
	}
	if a.Min.X < in.Min.X {
		out = append(out, image.Rect(a.Min.X, in.Min.Y, in.Min.X, in.Max.Y))
	}
	if in.Max.X < a.Max.X {
		out = append(out, image.Rect(in.Max.X, in.Min.Y, a.Max.X, in.Max.Y))
	}
	return out
}

// Rects returns the disjoint rectangles. The slice must not be modified.
func (r *Region) Rects() []image.Rectangle {
	if r == nil {
		return nil
	}
	return r.rects
}

// Empty reports whether the region covers no pixels.
func (r *Region) Empty() bool {
	return r == nil || len(r.rects) == 0
}

// Clear empties the region.
func (r *Region) Clear() {
	r.rects = nil
}

// Clone returns an independent copy. Cloning nil returns nil.
func (r *Region) Clone() *Region {
	if r == nil {
		return nil
	}
	return &Region{rects: append([]image.Rectangle(nil), r.rects...)}
}

// Contains reports whether p is inside the region.
func (r *Region) Contains(p image.Point) bool {
	if r == nil {
		return false
	}
	for _, rect := range r.rects {
		if p.In(rect) {
			return true
		}
	}
	return false
}

// Bounds returns the smallest rectangle covering the region.
func (r *Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, rect := range r.Rects() {
		b = b.Union(rect)
	}
	return b
}

// Area returns the number of pixels covered.
func (r *Region) Area() int {
	n := 0
	for _, rect := range r.Rects() {
		n += rect.Dx() * rect.Dy()
	}
	return n
}
