// Package surface implements client surfaces and their double-buffered
// commit protocol.
//
// Requests accumulate in a pending State. Commit applies the pending
// state in one step and notifies the renderer, window manager and cursor
// collaborators; nothing a client does between commits is visible.
package surface

import (
	"fmt"
	"image"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/region"
	"github.com/bnema/waycore/internal/signal"
)

// ClientID identifies a client connection.
type ClientID uint64

// Key identifies a surface: the protocol object id is only unique within
// its client.
type Key struct {
	Client ClientID
	ID     uint32
}

func (k Key) String() string {
	return fmt.Sprintf("wl_surface@%d/%d", k.ID, k.Client)
}

// Surface is a client surface.
type Surface struct {
	key  Key
	comp *Compositor

	pending State

	// Applied state.
	bound         bufferRef
	width, height int
	opaque        *region.Region
	input         *region.Region

	role   Role
	window Window
	shell  ShellSurface
	sub    *Subsurface

	// stack orders this surface and its subsurfaces, bottom to top.
	stack      []*Surface
	placements []placement

	destroyed bool

	// Destroyed fires once, before any teardown, so holders of weak
	// references can drop them.
	Destroyed signal.Signal
}

// Key returns the surface identity.
func (s *Surface) Key() Key { return s.key }

// Client returns the owning client.
func (s *Surface) Client() ClientID { return s.key.Client }

// ID returns the protocol object id.
func (s *Surface) ID() uint32 { return s.key.ID }

func (s *Surface) String() string { return s.key.String() }

// Pending exposes the pending state for inspection.
func (s *Surface) Pending() *State { return &s.pending }

// Buffer returns the buffer bound by the last commit.
func (s *Surface) Buffer() *Buffer { return s.bound.buffer }

// Size returns the content size bound by the last commit.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// OpaqueRegion returns the applied opaque region, nil when none is set.
func (s *Surface) OpaqueRegion() *region.Region { return s.opaque }

// InputRegion returns the applied input region, nil meaning the whole
// surface accepts input.
func (s *Surface) InputRegion() *region.Region { return s.input }

// AcceptsInput reports whether the surface-local point p is inside the
// surface and its input region.
func (s *Surface) AcceptsInput(p image.Point) bool {
	if !p.In(image.Rect(0, 0, s.width, s.height)) {
		return false
	}
	return s.input == nil || s.input.Contains(p)
}

// IsDestroyed reports whether Destroy ran.
func (s *Surface) IsDestroyed() bool { return s.destroyed }

// Attach sets the pending buffer. b may be nil to unmap the surface on the
// next commit. A buffer replaced before commit is dropped without a
// release event since it was never shown.
func (s *Surface) Attach(b *Buffer, dx, dy int32) {
	if s.destroyed {
		return
	}
	s.pending.buffer.set(b)
	s.pending.newlyAttached = true
	s.pending.dx = dx
	s.pending.dy = dy
}

// Damage marks a surface-local rectangle as changed. Coordinates are
// clipped to the positive quadrant; empty rectangles are ignored.
func (s *Surface) Damage(x, y, width, height int32) {
	if s.destroyed {
		return
	}
	r := region.Rect(x, y, width, height).Intersect(region.Positive)
	s.pending.damage.Add(r)
}

// SetOpaqueRegion replaces the pending opaque region. nil resets it.
func (s *Surface) SetOpaqueRegion(r *region.Region) {
	s.pending.opaque = r.Clone()
	s.pending.opaqueSet = true
}

// SetInputRegion replaces the pending input region. nil resets it to the
// whole surface.
func (s *Surface) SetInputRegion(r *region.Region) {
	s.pending.input = r.Clone()
	s.pending.inputSet = true
}

// AddFrameCallback queues cb to be signalled after the frame that shows
// the next commit.
func (s *Surface) AddFrameCallback(cb FrameCallback) {
	if s.destroyed {
		cb.Cancel()
		return
	}
	s.pending.frameCallbacks = append(s.pending.frameCallbacks, cb)
}

// SetBufferTransform accepts only the normal transform. Other valid
// values are logged and ignored; invalid ones are a protocol error.
func (s *Surface) SetBufferTransform(transform int32) error {
	if transform < 0 || transform > 7 {
		return protocolErrorf(CodeInvalidTransform, "buffer transform %d is not a wl_output.transform", transform)
	}
	if transform != 0 {
		logger.Warn("buffer transform not supported, ignoring", "surface", s, "transform", transform)
	}
	return nil
}

// SetBufferScale accepts only a scale of one. Other positive values are
// logged and ignored; non-positive ones are a protocol error.
func (s *Surface) SetBufferScale(scale int32) error {
	if scale < 1 {
		return protocolErrorf(CodeInvalidScale, "buffer scale %d is not positive", scale)
	}
	if scale != 1 {
		logger.Warn("buffer scale not supported, ignoring", "surface", s, "scale", scale)
	}
	return nil
}

// Commit applies the pending state. A synchronized subsurface caches the
// state instead; it is applied when its parent commits.
func (s *Surface) Commit() {
	if s.destroyed {
		return
	}
	if sub := s.sub; sub != nil && (sub.hasCache || sub.synchronized()) {
		s.pending.mergeInto(&sub.cached)
		sub.hasCache = true
		s.pending.reset()
		if !sub.synchronized() {
			sub.flush()
		}
		return
	}
	s.apply(&s.pending)
}

func (s *Surface) apply(st *State) {
	c := s.comp
	buf := st.Buffer()
	changed := st.newlyAttached && buf != s.bound.buffer

	s.runRoleHook(st, buf, changed)

	if changed {
		visible := true
		if buf != nil && buf.Texture == nil {
			if err := c.renderer.ImportBuffer(buf); err != nil {
				logger.Warn("failed to import buffer texture", "surface", s, "err", err)
				visible = false
			}
		}
		s.bound.set(buf)
		s.width, s.height = buf.Size()
		if visible {
			c.renderer.Attach(s, buf)
		}
	}

	for _, r := range st.damage.Rects() {
		c.renderer.Damage(s, r)
	}

	if st.opaqueSet {
		s.opaque = st.opaque.Clone()
		c.renderer.SetOpaqueRegion(s, s.opaque)
	}
	if st.inputSet {
		s.input = st.input.Clone()
		c.renderer.SetInputRegion(s, s.input)
	}

	c.frameCallbacks = append(c.frameCallbacks, st.frameCallbacks...)
	st.frameCallbacks = nil

	st.reset()

	s.commitChildren()
}

func (s *Surface) runRoleHook(st *State, buf *Buffer, changed bool) {
	switch s.role {
	case RoleCursor:
		if st.newlyAttached && s.comp.cursor != nil {
			s.comp.cursor.UpdateSprite(s, buf, st.dx, st.dy)
		}

	case RoleToplevel, RolePopup:
		if !changed || s.window == nil {
			return
		}
		s.window.SetMapped(buf != nil)
		if buf == nil {
			return
		}
		w, h := buf.Size()
		cw, ch := s.window.Size()
		if w != cw || h != ch || st.dx != 0 || st.dy != 0 {
			s.window.MoveResize(w, h, st.dx, st.dy)
		}

	case RoleSubsurface:
		if !changed || s.sub == nil {
			return
		}
		s.comp.renderer.SetVisible(s, buf != nil)
		s.sub.x += int(st.dx)
		s.sub.y += int(st.dy)
		s.comp.renderer.SetPosition(s, s.sub.x, s.sub.y)
	}
}

// Destroy tears the surface down: weak references are cleared first,
// then the window is unmanaged, the bound buffer released, pending
// damage emptied, queued frame callbacks cancelled and the renderer told
// to forget the surface.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.Destroyed.Emit()

	if s.window != nil {
		s.window.Unmanage()
		s.window = nil
	}
	s.shell = nil

	if s.sub != nil {
		s.sub.cached.cancelCallbacks()
		s.sub.cached.reset()
		s.sub.unparent()
		s.sub = nil
	}
	s.stack = nil
	s.placements = nil

	s.bound.set(nil)
	s.pending.buffer.set(nil)
	s.pending.damage.Clear()
	s.pending.cancelCallbacks()

	s.comp.renderer.Detach(s)
	s.role = RoleNone
	s.comp.remove(s)
}
