package compositor

import (
	"github.com/bnema/waycore/internal/scene"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/surface"
)

// rootOf walks up from a subsurface to the surface that owns the window.
func rootOf(s *surface.Surface) *surface.Surface {
	for s != nil {
		sub := s.Subsurface()
		if sub == nil || sub.Parent() == nil {
			return s
		}
		s = sub.Parent()
	}
	return nil
}

// focusClicked raises the toplevel under the pointer and gives it the
// keyboard. Clicks inside a popup or during a compositor grab leave
// focus alone.
func (c *Compositor) focusClicked() {
	p := c.seat.Pointer()
	if p.ActiveGrab().Kind() != seat.GrabDefault {
		return
	}
	root := rootOf(p.Focus())
	if root == nil || root.Role() != surface.RoleToplevel {
		return
	}
	if w, ok := root.Window().(*scene.Window); ok {
		c.scene.Raise(w)
	}
	c.seat.Keyboard().SetFocus(root)
}

// focusMapped gives a newly shown toplevel the keyboard unless a popup
// or modal grab is running.
func (c *Compositor) focusMapped(w *scene.Window) {
	if w.Role() != surface.RoleToplevel {
		return
	}
	if c.seat.Pointer().ActiveGrab().Kind() != seat.GrabDefault {
		return
	}
	c.seat.Keyboard().SetFocus(w.Surface())
}
