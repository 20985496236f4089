package surface

import (
	"image"

	"github.com/bnema/waycore/internal/region"
)

// State is one side of a surface's double-buffered state. Only the
// pending state and a synchronized subsurface's cache are States; what a
// commit applied lives on the Surface itself.
type State struct {
	buffer        weakBuffer
	newlyAttached bool
	dx, dy        int32

	damage *region.Region

	// Regions persist across commits; the set flags mark a change made
	// since the last commit. A nil region means the protocol default.
	opaque    *region.Region
	input     *region.Region
	opaqueSet bool
	inputSet  bool

	frameCallbacks []FrameCallback
}

func newState() State {
	return State{damage: region.New()}
}

// Buffer returns the attached buffer, nil when unattached or when the
// attached buffer has been destroyed.
func (st *State) Buffer() *Buffer {
	return st.buffer.buffer
}

// NewlyAttached reports whether attach was called since the last commit.
func (st *State) NewlyAttached() bool {
	return st.newlyAttached
}

// Offset returns the attach offset.
func (st *State) Offset() (dx, dy int32) {
	return st.dx, st.dy
}

// Damage returns the accumulated damage rectangles.
func (st *State) Damage() []image.Rectangle {
	return st.damage.Rects()
}

// OpaqueRegion returns the region and whether it changed this cycle.
func (st *State) OpaqueRegion() (*region.Region, bool) {
	return st.opaque, st.opaqueSet
}

// InputRegion returns the region and whether it changed this cycle.
func (st *State) InputRegion() (*region.Region, bool) {
	return st.input, st.inputSet
}

// FrameCallbacks returns the number of queued frame callbacks.
func (st *State) FrameCallbacks() int {
	return len(st.frameCallbacks)
}

// reset clears everything that only lives for one commit cycle.
func (st *State) reset() {
	st.buffer.set(nil)
	st.newlyAttached = false
	st.dx, st.dy = 0, 0
	st.damage.Clear()
	st.opaqueSet = false
	st.inputSet = false
	st.frameCallbacks = nil
}

// mergeInto folds this cycle's changes into dst, used when a
// synchronized subsurface caches its commit.
func (st *State) mergeInto(dst *State) {
	if st.newlyAttached {
		dst.buffer.set(st.buffer.buffer)
		dst.newlyAttached = true
		dst.dx += st.dx
		dst.dy += st.dy
	}
	for _, r := range st.damage.Rects() {
		dst.damage.Add(r)
	}
	if st.opaqueSet {
		dst.opaque = st.opaque.Clone()
		dst.opaqueSet = true
	}
	if st.inputSet {
		dst.input = st.input.Clone()
		dst.inputSet = true
	}
	dst.frameCallbacks = append(dst.frameCallbacks, st.frameCallbacks...)
}

// cancelCallbacks destroys queued callbacks without signalling them.
func (st *State) cancelCallbacks() {
	for _, cb := range st.frameCallbacks {
		cb.Cancel()
	}
	st.frameCallbacks = nil
}
