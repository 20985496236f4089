package scene

import (
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/surface"
)

// Resize edges as sent in wl_shell_surface.resize.
const (
	EdgeTop    uint32 = 1
	EdgeBottom uint32 = 2
	EdgeLeft   uint32 = 4
	EdgeRight  uint32 = 8
)

// minResize keeps interactive resizes from collapsing a window.
const minResize = 32

// interactiveGrab moves or resizes a window while the button that
// started it stays down. It swallows every pointer event like a modal
// grab.
type interactiveGrab struct {
	scene   *Scene
	window  *Window
	edges   uint32
	resize  bool
	startX  float64
	startY  float64
	originX int
	originY int
	width   int
	height  int
}

func (g *interactiveGrab) Kind() seat.GrabKind    { return seat.GrabModal }
func (g *interactiveGrab) Focus(*surface.Surface) {}

func (g *interactiveGrab) Motion(ev *input.Event) {
	dx := int(ev.X - g.startX)
	dy := int(ev.Y - g.startY)
	if !g.resize {
		g.window.Move(g.originX+dx, g.originY+dy)
		return
	}

	w, h := g.width, g.height
	if g.edges&EdgeLeft != 0 {
		w -= dx
	} else if g.edges&EdgeRight != 0 {
		w += dx
	}
	if g.edges&EdgeTop != 0 {
		h -= dy
	} else if g.edges&EdgeBottom != 0 {
		h += dy
	}
	w, h = max(w, minResize), max(h, minResize)
	g.window.surface.Configure(g.edges, int32(w), int32(h))
}

func (g *interactiveGrab) Button(ev *input.Event) {
	if ev.Type == input.ButtonRelease && g.scene.pointer.ButtonCount() == 0 {
		logger.Debug("interactive grab ended", "surface", g.window.surface)
		g.scene.pointer.EndGrab()
	}
}

// BeginMove starts dragging the window of s with the pointer.
func (sc *Scene) BeginMove(s *surface.Surface) {
	sc.begin(s, false, 0)
}

// BeginResize starts resizing the window of s from edges. The client is
// configured with each new size and resizes on its next commit.
func (sc *Scene) BeginResize(s *surface.Surface, edges uint32) {
	sc.begin(s, true, edges)
}

func (sc *Scene) begin(s *surface.Surface, resize bool, edges uint32) {
	if sc.pointer == nil {
		return
	}
	n := sc.nodes[s]
	if n == nil || n.window == nil || n.window.role != surface.RoleToplevel {
		return
	}
	if sc.pointer.ActiveGrab().Kind() != seat.GrabDefault {
		return
	}

	w := n.window
	x, y := sc.pointer.GrabPosition()
	g := &interactiveGrab{
		scene:   sc,
		window:  w,
		edges:   edges,
		resize:  resize,
		startX:  x,
		startY:  y,
		originX: w.x,
		originY: w.y,
		width:   w.width,
		height:  w.height,
	}
	sc.Raise(w)
	sc.pointer.SetFocus(nil)
	sc.pointer.StartGrab(g)
	logger.Debug("interactive grab started", "surface", s, "resize", resize, "edges", edges)
}
