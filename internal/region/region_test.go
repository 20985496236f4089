package region

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddDisjoint(t *testing.T) {
	r := New()
	r.Add(image.Rect(0, 0, 10, 10))
	r.Add(image.Rect(20, 20, 30, 30))

	assert.Len(t, r.Rects(), 2)
	assert.Equal(t, 200, r.Area())
}

func TestAddOverlapping(t *testing.T) {
	tests := []struct {
		name string
		a, b image.Rectangle
		area int
	}{
		{"identical", image.Rect(0, 0, 64, 64), image.Rect(0, 0, 64, 64), 64 * 64},
		{"contained", image.Rect(0, 0, 64, 64), image.Rect(10, 10, 20, 20), 64 * 64},
		{"containing", image.Rect(10, 10, 20, 20), image.Rect(0, 0, 64, 64), 64 * 64},
		{"partial", image.Rect(0, 0, 10, 10), image.Rect(5, 5, 15, 15), 175},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.a, tt.b)
			assert.Equal(t, tt.area, r.Area())
			assert.Equal(t, tt.a.Union(tt.b), r.Bounds())
		})
	}
}

func TestAddIdenticalKeepsSingleRect(t *testing.T) {
	r := New(image.Rect(0, 0, 64, 64))
	r.Add(image.Rect(0, 0, 64, 64))
	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 64, 64)}, r.Rects())
}

func TestSubtract(t *testing.T) {
	r := New(image.Rect(0, 0, 30, 30))
	r.Subtract(image.Rect(10, 10, 20, 20))

	assert.Equal(t, 900-100, r.Area())
	assert.False(t, r.Contains(image.Pt(15, 15)))
	assert.True(t, r.Contains(image.Pt(5, 15)))
	assert.True(t, r.Contains(image.Pt(25, 25)))
}

func TestRect(t *testing.T) {
	assert.Equal(t, image.Rect(1, 2, 4, 6), Rect(1, 2, 3, 4))
	assert.True(t, Rect(0, 0, 0, 10).Empty())
	assert.True(t, Rect(0, 0, -5, 10).Empty())
}

func TestIntersectClipsToPositive(t *testing.T) {
	r := New(image.Rect(-10, -10, 10, 10))
	r.Intersect(Positive)
	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 10, 10)}, r.Rects())
}

func TestNilRegion(t *testing.T) {
	var r *Region
	assert.True(t, r.Empty())
	assert.Nil(t, r.Clone())
	assert.False(t, r.Contains(image.Pt(0, 0)))
	assert.Nil(t, r.Rects())
}

func TestCloneIsIndependent(t *testing.T) {
	r := New(image.Rect(0, 0, 5, 5))
	c := r.Clone()
	c.Add(image.Rect(10, 10, 20, 20))

	assert.Len(t, r.Rects(), 1)
	assert.Len(t, c.Rects(), 2)
}
