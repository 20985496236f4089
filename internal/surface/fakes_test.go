package surface

import (
	"errors"
	"fmt"
	"image"

	"github.com/bnema/waycore/internal/region"
)

type call struct {
	op      string
	surface *Surface
	arg     any
}

type fakeRenderer struct {
	calls     []call
	importErr error
}

func (r *fakeRenderer) record(op string, s *Surface, arg any) {
	r.calls = append(r.calls, call{op: op, surface: s, arg: arg})
}

func (r *fakeRenderer) ImportBuffer(b *Buffer) error {
	if r.importErr != nil {
		return r.importErr
	}
	b.Texture = "texture"
	return nil
}

func (r *fakeRenderer) Attach(s *Surface, b *Buffer)                  { r.record("attach", s, b) }
func (r *fakeRenderer) Damage(s *Surface, rect image.Rectangle)       { r.record("damage", s, rect) }
func (r *fakeRenderer) SetOpaqueRegion(s *Surface, rg *region.Region) { r.record("opaque", s, rg) }
func (r *fakeRenderer) SetInputRegion(s *Surface, rg *region.Region)  { r.record("input", s, rg) }
func (r *fakeRenderer) SetPosition(s *Surface, x, y int)              { r.record("position", s, image.Pt(x, y)) }
func (r *fakeRenderer) SetVisible(s *Surface, visible bool)           { r.record("visible", s, visible) }
func (r *fakeRenderer) Restack(p *Surface, children []*Surface)       { r.record("restack", p, children) }
func (r *fakeRenderer) Detach(s *Surface)                             { r.record("detach", s, nil) }

func (r *fakeRenderer) ops(op string) []call {
	var out []call
	for _, c := range r.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (r *fakeRenderer) reset() { r.calls = nil }

type fakeWindow struct {
	width, height int
	resizes       []string
	mapped        bool
	unmanaged     bool
}

func (w *fakeWindow) Size() (int, int) { return w.width, w.height }

func (w *fakeWindow) MoveResize(width, height int, dx, dy int32) {
	w.width, w.height = width, height
	w.resizes = append(w.resizes, fmt.Sprintf("%dx%d%+d%+d", width, height, dx, dy))
}

func (w *fakeWindow) SetMapped(mapped bool) { w.mapped = mapped }
func (w *fakeWindow) Unmanage()             { w.unmanaged = true }

type fakeWM struct {
	windows map[*Surface]*fakeWindow
	parents map[*Surface]*Surface
}

func newFakeWM() *fakeWM {
	return &fakeWM{windows: map[*Surface]*fakeWindow{}, parents: map[*Surface]*Surface{}}
}

func (m *fakeWM) Manage(s *Surface, role Role, parent *Surface, x, y int) Window {
	w := &fakeWindow{}
	m.windows[s] = w
	m.parents[s] = parent
	return w
}

type fakeCursor struct {
	updates []*Buffer
}

func (c *fakeCursor) UpdateSprite(s *Surface, b *Buffer, dx, dy int32) {
	c.updates = append(c.updates, b)
}

type fakeCallback struct {
	done      []uint32
	cancelled bool
}

func (cb *fakeCallback) Done(t uint32) { cb.done = append(cb.done, t) }
func (cb *fakeCallback) Cancel()       { cb.cancelled = true }

type fakeShell struct {
	popupDone  int
	configures []string
}

func (sh *fakeShell) Configure(edges uint32, w, h int32) {
	sh.configures = append(sh.configures, fmt.Sprintf("%d:%dx%d", edges, w, h))
}
func (sh *fakeShell) PopupDone() { sh.popupDone++ }

type content struct{ w, h int }

func (c content) Size() (int, int) { return c.w, c.h }

type bufferProbe struct {
	*Buffer
	released int
}

func newBuffer(w, h int) *bufferProbe {
	p := &bufferProbe{}
	p.Buffer = NewBuffer(content{w, h}, func() { p.released++ })
	return p
}

var errImport = errors.New("import failed")

type harness struct {
	comp     *Compositor
	renderer *fakeRenderer
	wm       *fakeWM
	cursor   *fakeCursor
}

func newHarness() *harness {
	h := &harness{renderer: &fakeRenderer{}, wm: newFakeWM(), cursor: &fakeCursor{}}
	h.comp = NewCompositor(h.renderer, h.wm, h.cursor)
	return h
}

func (h *harness) surface(client ClientID, id uint32) *Surface {
	s, err := h.comp.CreateSurface(client, id)
	if err != nil {
		panic(err)
	}
	return s
}
