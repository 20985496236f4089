package input

import (
	"image"
	"math"
)

// Constrainer limits where the pointer may move.
type Constrainer interface {
	// Constrain returns the allowed position for a move from (fromX, fromY)
	// to (x, y).
	Constrain(time uint32, fromX, fromY, x, y float64) (float64, float64)
}

// Barrier is a horizontal or vertical line the pointer cannot cross.
type Barrier struct {
	X1, Y1, X2, Y2 float64
}

func (b Barrier) vertical() bool { return b.X1 == b.X2 }

// constrain stops a move that crosses the barrier on the side it came
// from.
func (b Barrier) constrain(fromX, fromY, x, y float64) (float64, float64) {
	if b.vertical() {
		bx := b.X1
		lo, hi := math.Min(b.Y1, b.Y2), math.Max(b.Y1, b.Y2)
		crossing := (fromX < bx && x >= bx) || (fromX >= bx && x < bx)
		if !crossing {
			return x, y
		}
		cy := fromY + (bx-fromX)/(x-fromX)*(y-fromY)
		if cy < lo || cy > hi {
			return x, y
		}
		if fromX < bx {
			return math.Nextafter(bx, math.Inf(-1)), y
		}
		return bx, y
	}

	by := b.Y1
	lo, hi := math.Min(b.X1, b.X2), math.Max(b.X1, b.X2)
	crossing := (fromY < by && y >= by) || (fromY >= by && y < by)
	if !crossing {
		return x, y
	}
	cx := fromX + (by-fromY)/(y-fromY)*(x-fromX)
	if cx < lo || cx > hi {
		return x, y
	}
	if fromY < by {
		return x, math.Nextafter(by, math.Inf(-1))
	}
	return x, by
}

// Layout constrains the pointer to a set of monitors and barriers.
type Layout struct {
	Monitors []image.Rectangle
	Barriers []Barrier
}

func inside(r image.Rectangle, x, y float64) bool {
	return x >= float64(r.Min.X) && x < float64(r.Max.X) &&
		y >= float64(r.Min.Y) && y < float64(r.Max.Y)
}

// Constrain applies barriers, then keeps the pointer on a monitor: a
// move that would leave every monitor is clamped to the monitor it
// started on.
func (l *Layout) Constrain(_ uint32, fromX, fromY, x, y float64) (float64, float64) {
	for _, b := range l.Barriers {
		x, y = b.constrain(fromX, fromY, x, y)
	}

	for _, m := range l.Monitors {
		if inside(m, x, y) {
			return x, y
		}
	}

	for _, m := range l.Monitors {
		if !inside(m, fromX, fromY) {
			continue
		}
		x = math.Max(x, float64(m.Min.X))
		x = math.Min(x, float64(m.Max.X-1))
		y = math.Max(y, float64(m.Min.Y))
		y = math.Min(y, float64(m.Max.Y-1))
		return x, y
	}
	return x, y
}

// Bounds returns the union of every monitor.
func (l *Layout) Bounds() image.Rectangle {
	var r image.Rectangle
	for _, m := range l.Monitors {
		r = r.Union(m)
	}
	return r
}

// MotionFilter adjusts relative motion before it is applied.
type MotionFilter interface {
	Filter(dev *Device, x, y, dx, dy float64) (float64, float64)
}

// LinearAcceleration scales relative motion by a constant factor.
type LinearAcceleration float64

// Filter scales dx, dy.
func (a LinearAcceleration) Filter(_ *Device, _, _, dx, dy float64) (float64, float64) {
	if a <= 0 {
		return dx, dy
	}
	return dx * float64(a), dy * float64(a)
}
