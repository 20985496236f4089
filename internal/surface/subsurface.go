package surface

import (
	"github.com/bnema/waycore/internal/signal"
	"golang.org/x/exp/slices"
)

// Subsurface is the role state of a surface stacked inside a parent.
type Subsurface struct {
	surface *Surface

	parent         *Surface
	parentListener *signal.Listener

	x, y             int
	pendingX         int
	pendingY         int
	hasPendingOrigin bool

	sync     bool
	cached   State
	hasCache bool
}

type placement struct {
	surface *Surface
	sibling *Surface
	above   bool
}

// MakeSubsurface gives the surface the subsurface role under parent.
// New subsurfaces start synchronized and are stacked directly above the
// parent's topmost child.
func (s *Surface) MakeSubsurface(parent *Surface) (*Subsurface, error) {
	if parent == nil || parent.destroyed {
		return nil, protocolErrorf(CodeBadSurface, "subsurface parent is gone")
	}
	if parent == s {
		return nil, protocolErrorf(CodeBadSurface, "%v cannot be its own parent", s)
	}
	for p := parent; p != nil && p.sub != nil; p = p.sub.parent {
		if p.sub.parent == s {
			return nil, protocolErrorf(CodeBadSurface, "%v is an ancestor of %v", s, parent)
		}
	}
	if err := s.assignRole(RoleSubsurface, s.sub != nil); err != nil {
		return nil, err
	}

	sub := &Subsurface{
		surface: s,
		parent:  parent,
		sync:    true,
		cached:  newState(),
	}
	sub.parentListener = parent.Destroyed.Add(func() {
		sub.parent, sub.parentListener = nil, nil
		s.comp.renderer.SetVisible(s, false)
	})
	s.sub = sub

	parent.ensureStack()
	parent.stack = append(parent.stack, s)
	s.comp.renderer.Restack(parent, parent.Stack())
	return sub, nil
}

// Subsurface returns the role state when the surface is a live
// subsurface.
func (s *Surface) Subsurface() *Subsurface { return s.sub }

func (s *Surface) ensureStack() {
	if len(s.stack) == 0 {
		s.stack = []*Surface{s}
	}
}

// Stack returns the surface and its subsurfaces, bottom to top.
func (s *Surface) Stack() []*Surface {
	if len(s.stack) == 0 {
		return []*Surface{s}
	}
	return slices.Clone(s.stack)
}

// Parent returns the parent surface, nil once it has been destroyed.
func (sub *Subsurface) Parent() *Surface { return sub.parent }

// Position returns the applied position relative to the parent.
func (sub *Subsurface) Position() (int, int) { return sub.x, sub.y }

// Synchronized reports the subsurface's own mode.
func (sub *Subsurface) Synchronized() bool { return sub.sync }

// HasCachedState reports whether a commit is waiting for the parent.
func (sub *Subsurface) HasCachedState() bool { return sub.hasCache }

// synchronized reports the effective mode: a subsurface is synchronized
// if it or any ancestor subsurface is. An orphan never is.
func (sub *Subsurface) synchronized() bool {
	if sub.parent == nil {
		return false
	}
	for cur := sub; cur != nil; {
		if cur.sync {
			return true
		}
		if cur.parent == nil || cur.parent.sub == nil {
			return false
		}
		cur = cur.parent.sub
	}
	return false
}

// SetPosition sets the position applied on the parent's next commit.
func (sub *Subsurface) SetPosition(x, y int) {
	sub.pendingX, sub.pendingY = x, y
	sub.hasPendingOrigin = true
}

// PlaceAbove queues a restack of the subsurface directly above sibling,
// which must be the parent or another child of it.
func (sub *Subsurface) PlaceAbove(sibling *Surface) error {
	return sub.place(sibling, true)
}

// PlaceBelow queues a restack directly below sibling.
func (sub *Subsurface) PlaceBelow(sibling *Surface) error {
	return sub.place(sibling, false)
}

func (sub *Subsurface) place(sibling *Surface, above bool) error {
	p := sub.parent
	if p == nil || sibling == nil || sibling == sub.surface ||
		(sibling != p && (sibling.sub == nil || sibling.sub.parent != p)) {
		return protocolErrorf(CodeBadSurface, "%v is not a sibling or parent of %v", sibling, sub.surface)
	}
	p.placements = append(p.placements, placement{surface: sub.surface, sibling: sibling, above: above})
	return nil
}

// SetSync switches to synchronized mode.
func (sub *Subsurface) SetSync() {
	sub.sync = true
}

// SetDesync switches to desynchronized mode. A cached commit is applied
// immediately unless an ancestor still forces synchronization.
func (sub *Subsurface) SetDesync() {
	sub.sync = false
	if sub.hasCache && !sub.synchronized() {
		sub.flush()
	}
}

func (sub *Subsurface) flush() {
	sub.hasCache = false
	sub.surface.apply(&sub.cached)
}

// Destroy drops the role object. The surface is hidden and removed from
// its parent's stack; it keeps the subsurface role.
func (sub *Subsurface) Destroy() {
	s := sub.surface
	if s.sub != sub {
		return
	}
	sub.cached.cancelCallbacks()
	sub.cached.reset()
	sub.unparent()
	s.sub = nil
	s.comp.renderer.SetVisible(s, false)
}

func (sub *Subsurface) unparent() {
	p := sub.parent
	if p == nil {
		return
	}
	sub.parentListener.Remove()
	sub.parent, sub.parentListener = nil, nil

	p.stack = slices.DeleteFunc(p.stack, func(c *Surface) bool { return c == sub.surface })
	p.placements = slices.DeleteFunc(p.placements, func(pl placement) bool {
		return pl.surface == sub.surface || pl.sibling == sub.surface
	})
	if !p.destroyed {
		p.comp.renderer.Restack(p, p.Stack())
	}
}

// commitChildren applies state that a parent commit latches for its
// subsurfaces: stacking changes, positions and cached commits.
func (s *Surface) commitChildren() {
	if len(s.placements) > 0 {
		for _, pl := range s.placements {
			s.stack = slices.DeleteFunc(s.stack, func(c *Surface) bool { return c == pl.surface })
			i := slices.Index(s.stack, pl.sibling)
			if i < 0 {
				continue
			}
			if pl.above {
				i++
			}
			s.stack = slices.Insert(s.stack, i, pl.surface)
		}
		s.placements = nil
		s.comp.renderer.Restack(s, s.Stack())
	}

	for _, child := range s.stack {
		if child == s || child.sub == nil {
			continue
		}
		sub := child.sub
		if sub.hasPendingOrigin {
			sub.x, sub.y = sub.pendingX, sub.pendingY
			sub.hasPendingOrigin = false
			s.comp.renderer.SetPosition(child, sub.x, sub.y)
		}
		if sub.hasCache {
			sub.flush()
		}
	}
}
