package scene

import (
	"image"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/surface"
	"golang.org/x/exp/slices"
)

// Window is a toplevel or popup placed in layout coordinates.
type Window struct {
	scene   *Scene
	surface *surface.Surface
	role    surface.Role

	x, y          int
	width, height int
	mapped        bool
}

// Manage places a new window. Toplevels cascade down and right from the
// first output's origin; popups open at (x, y) relative to their parent.
func (sc *Scene) Manage(s *surface.Surface, role surface.Role, parent *surface.Surface, x, y int) surface.Window {
	w := &Window{scene: sc, surface: s, role: role}
	switch role {
	case surface.RolePopup:
		px, py := sc.origin(parent)
		w.x, w.y = px+x, py+y
	default:
		w.x, w.y = sc.nextCascade()
	}

	if old := sc.node(s).window; old != nil {
		sc.removeWindow(old)
	}
	sc.node(s).window = w
	sc.windows = append(sc.windows, w)
	logger.Debug("window managed", "surface", s, "role", role, "x", w.x, "y", w.y)
	return w
}

func (sc *Scene) nextCascade() (int, int) {
	p := sc.cascade
	out := sc.outputs[0]
	next := p.Add(image.Pt(cascadeStep, cascadeStep))
	if !next.In(out.Inset(cascadeStep)) {
		next = out.Min
	}
	sc.cascade = next
	return p.X, p.Y
}

func (sc *Scene) removeWindow(w *Window) {
	sc.windows = slices.DeleteFunc(sc.windows, func(o *Window) bool { return o == w })
	if n := sc.nodes[w.surface]; n != nil && n.window == w {
		n.window = nil
	}
}

// Windows returns managed windows bottom to top.
func (sc *Scene) Windows() []*Window { return slices.Clone(sc.windows) }

// Raise moves w to the top of the stack.
func (sc *Scene) Raise(w *Window) {
	i := slices.Index(sc.windows, w)
	if i < 0 || i == len(sc.windows)-1 {
		return
	}
	sc.windows = append(slices.Delete(sc.windows, i, i+1), w)
	sc.repick()
}

func (w *Window) Surface() *surface.Surface { return w.surface }
func (w *Window) Role() surface.Role        { return w.role }
func (w *Window) Position() (int, int)      { return w.x, w.y }
func (w *Window) Mapped() bool              { return w.mapped }

func (w *Window) Size() (int, int) { return w.width, w.height }

// MoveResize takes the new buffer size; the attach offset moves the
// window so that its opposite edge stays put.
func (w *Window) MoveResize(width, height int, dx, dy int32) {
	w.width, w.height = width, height
	w.x += int(dx)
	w.y += int(dy)
	w.scene.repick()
}

// Move places the window at a layout position.
func (w *Window) Move(x, y int) {
	w.x, w.y = x, y
	w.scene.repick()
}

// SetMapped shows or hides the window. Newly mapped windows are raised.
func (w *Window) SetMapped(mapped bool) {
	if w.mapped == mapped {
		return
	}
	w.mapped = mapped
	if mapped {
		w.scene.Raise(w)
	}
	w.scene.repick()
	if mapped && w.scene.onMapped != nil {
		w.scene.onMapped(w)
	}
}

func (w *Window) Unmanage() {
	w.scene.removeWindow(w)
	w.scene.repick()
}
