// Package scene keeps the stacking order and geometry of every mapped
// surface. It is the compositor's renderer, window manager, cursor and
// pointer stage; it tracks what would be drawn without drawing it.
package scene

import (
	"image"
	"math"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/region"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/surface"
	"golang.org/x/exp/slices"
)

// cascadeStep offsets each new toplevel from the previous one.
const cascadeStep = 32

// node is the renderer's view of one surface.
type node struct {
	buffer  *surface.Buffer
	x, y    int
	visible bool
	// stack is the surface and its subsurfaces, bottom to top.
	stack  []*surface.Surface
	damage *region.Region
	window *Window
}

// Scene implements surface.Renderer, surface.WindowManager,
// surface.Cursor and seat.Stage.
type Scene struct {
	outputs []image.Rectangle
	nodes   map[*surface.Surface]*node
	// windows is ordered bottom to top.
	windows []*Window
	cascade image.Point

	pointer  *seat.Pointer
	cursor   Cursor
	onMapped func(*Window)
}

// Cursor is the sprite the pointer shows.
type Cursor struct {
	Surface    *surface.Surface
	Buffer     *surface.Buffer
	HotX, HotY int32
}

// New creates a scene over the given monitors in layout coordinates.
func New(outputs []image.Rectangle) *Scene {
	if len(outputs) == 0 {
		outputs = []image.Rectangle{image.Rect(0, 0, 1920, 1080)}
	}
	sc := &Scene{
		outputs: outputs,
		nodes:   make(map[*surface.Surface]*node),
	}
	sc.cascade = outputs[0].Min
	return sc
}

// SetPointer connects the pointer that hit testing changes are reported
// to and that interactive grabs run on.
func (sc *Scene) SetPointer(p *seat.Pointer) { sc.pointer = p }

// OnMapped registers fn to run after a window becomes visible.
func (sc *Scene) OnMapped(fn func(*Window)) { sc.onMapped = fn }

// Outputs returns the monitor rectangles.
func (sc *Scene) Outputs() []image.Rectangle { return slices.Clone(sc.outputs) }

// SetOutputs replaces the monitor layout.
func (sc *Scene) SetOutputs(outputs []image.Rectangle) {
	if len(outputs) == 0 {
		return
	}
	sc.outputs = slices.Clone(outputs)
	if !sc.cascade.In(sc.Bounds()) {
		sc.cascade = outputs[0].Min
	}
}

// Bounds is the union of every output.
func (sc *Scene) Bounds() image.Rectangle {
	var r image.Rectangle
	for _, o := range sc.outputs {
		r = r.Union(o)
	}
	return r
}

// OutputSize is the size suggested to fullscreen and maximized surfaces.
func (sc *Scene) OutputSize() (int32, int32) {
	o := sc.outputs[0]
	return int32(o.Dx()), int32(o.Dy())
}

func (sc *Scene) node(s *surface.Surface) *node {
	n, ok := sc.nodes[s]
	if !ok {
		n = &node{damage: region.New()}
		sc.nodes[s] = n
	}
	return n
}

// repick lets the pointer refocus after the stacking or geometry changed.
func (sc *Scene) repick() {
	if sc.pointer != nil {
		sc.pointer.Repick()
	}
}

// ImportBuffer accepts any buffer with a size. The content itself is the
// texture.
func (sc *Scene) ImportBuffer(b *surface.Buffer) error {
	if w, h := b.Size(); w <= 0 || h <= 0 {
		return ErrEmptyBuffer
	}
	b.Texture = b.Content
	return nil
}

func (sc *Scene) Attach(s *surface.Surface, b *surface.Buffer) {
	sc.node(s).buffer = b
	sc.repick()
}

func (sc *Scene) Damage(s *surface.Surface, rect image.Rectangle) {
	sc.node(s).damage.Add(rect)
}

func (sc *Scene) SetOpaqueRegion(s *surface.Surface, r *region.Region) {}

func (sc *Scene) SetInputRegion(s *surface.Surface, r *region.Region) {
	sc.repick()
}

func (sc *Scene) SetPosition(s *surface.Surface, x, y int) {
	n := sc.node(s)
	n.x, n.y = x, y
	sc.repick()
}

func (sc *Scene) SetVisible(s *surface.Surface, visible bool) {
	sc.node(s).visible = visible
	sc.repick()
}

func (sc *Scene) Restack(parent *surface.Surface, children []*surface.Surface) {
	sc.node(parent).stack = children
	sc.repick()
}

func (sc *Scene) Detach(s *surface.Surface) {
	if sc.cursor.Surface == s {
		sc.cursor = Cursor{}
	}
	n, ok := sc.nodes[s]
	if !ok {
		return
	}
	delete(sc.nodes, s)
	if n.window != nil {
		sc.removeWindow(n.window)
	}
	sc.repick()
}

// Damaged reports whether any surface has damage since the last frame.
func (sc *Scene) Damaged() bool {
	for _, n := range sc.nodes {
		if !n.damage.Empty() {
			return true
		}
	}
	return false
}

// clearDamage runs after every frame.
func (sc *Scene) clearDamage() {
	for _, n := range sc.nodes {
		n.damage.Clear()
	}
}

// origin is the layout position of a surface's top-left corner.
func (sc *Scene) origin(s *surface.Surface) (int, int) {
	n := sc.nodes[s]
	if n != nil && n.window != nil {
		return n.window.x, n.window.y
	}
	if sub := s.Subsurface(); sub != nil && sub.Parent() != nil {
		px, py := sc.origin(sub.Parent())
		if n == nil {
			return px, py
		}
		return px + n.x, py + n.y
	}
	return 0, 0
}

// SurfaceAt returns the topmost surface whose input region contains the
// layout point.
func (sc *Scene) SurfaceAt(x, y float64) *surface.Surface {
	for i := len(sc.windows) - 1; i >= 0; i-- {
		w := sc.windows[i]
		if !w.mapped {
			continue
		}
		if s := sc.hit(w.surface, w.x, w.y, x, y); s != nil {
			return s
		}
	}
	return nil
}

func (sc *Scene) hit(s *surface.Surface, ox, oy int, x, y float64) *surface.Surface {
	n := sc.nodes[s]
	stack := []*surface.Surface{s}
	if n != nil && len(n.stack) > 0 {
		stack = n.stack
	}
	for i := len(stack) - 1; i >= 0; i-- {
		c := stack[i]
		if c == s {
			if s.Buffer() == nil {
				continue
			}
			p := image.Pt(int(math.Floor(x-float64(ox))), int(math.Floor(y-float64(oy))))
			if s.AcceptsInput(p) {
				return s
			}
			continue
		}
		cn := sc.nodes[c]
		if cn == nil || !cn.visible {
			continue
		}
		if found := sc.hit(c, ox+cn.x, oy+cn.y, x, y); found != nil {
			return found
		}
	}
	return nil
}

// ToSurfaceLocal converts a layout position to s's coordinates.
func (sc *Scene) ToSurfaceLocal(s *surface.Surface, x, y float64) (float64, float64) {
	ox, oy := sc.origin(s)
	return x - float64(ox), y - float64(oy)
}

// View is a mapped surface and its layout rectangle.
type View struct {
	Surface *surface.Surface
	Rect    image.Rectangle
}

// Views lists what would be drawn, bottom to top.
func (sc *Scene) Views() []View {
	var out []View
	for _, w := range sc.windows {
		if w.mapped {
			out = sc.appendViews(out, w.surface, w.x, w.y)
		}
	}
	return out
}

func (sc *Scene) appendViews(out []View, s *surface.Surface, ox, oy int) []View {
	n := sc.nodes[s]
	stack := []*surface.Surface{s}
	if n != nil && len(n.stack) > 0 {
		stack = n.stack
	}
	for _, c := range stack {
		if c == s {
			if s.Buffer() != nil {
				w, h := s.Size()
				out = append(out, View{Surface: s, Rect: image.Rect(ox, oy, ox+w, oy+h)})
			}
			continue
		}
		if cn := sc.nodes[c]; cn != nil && cn.visible {
			out = sc.appendViews(out, c, ox+cn.x, oy+cn.y)
		}
	}
	return out
}

// UpdateSprite follows a new cursor buffer; the attach offset moves the
// hotspot.
func (sc *Scene) UpdateSprite(s *surface.Surface, b *surface.Buffer, dx, dy int32) {
	if sc.cursor.Surface != s {
		return
	}
	sc.cursor.Buffer = b
	sc.cursor.HotX -= dx
	sc.cursor.HotY -= dy
}

// SetCursor shows s as the pointer sprite. A nil surface hides it.
func (sc *Scene) SetCursor(s *surface.Surface, hotX, hotY int32) {
	if s == nil {
		sc.cursor = Cursor{}
		return
	}
	sc.cursor = Cursor{Surface: s, Buffer: s.Buffer(), HotX: hotX, HotY: hotY}
	logger.Debug("cursor set", "surface", s, "hotspot_x", hotX, "hotspot_y", hotY)
}

// Cursor returns the current sprite.
func (sc *Scene) Cursor() Cursor { return sc.cursor }
