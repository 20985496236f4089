package seat

import (
	"fmt"
	"image"

	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/region"
	"github.com/bnema/waycore/internal/surface"
)

type nopRenderer struct{}

func (nopRenderer) ImportBuffer(*surface.Buffer) error               { return nil }
func (nopRenderer) Attach(*surface.Surface, *surface.Buffer)         {}
func (nopRenderer) Damage(*surface.Surface, image.Rectangle)         {}
func (nopRenderer) SetOpaqueRegion(*surface.Surface, *region.Region) {}
func (nopRenderer) SetInputRegion(*surface.Surface, *region.Region)  {}
func (nopRenderer) SetPosition(*surface.Surface, int, int)           {}
func (nopRenderer) SetVisible(*surface.Surface, bool)                {}
func (nopRenderer) Restack(*surface.Surface, []*surface.Surface)     {}
func (nopRenderer) Detach(*surface.Surface)                          {}

type nopWindow struct{}

func (nopWindow) Size() (int, int)                  { return 0, 0 }
func (nopWindow) MoveResize(int, int, int32, int32) {}
func (nopWindow) SetMapped(bool)                    {}
func (nopWindow) Unmanage()                         {}

type nopWM struct{}

func (nopWM) Manage(*surface.Surface, surface.Role, *surface.Surface, int, int) surface.Window {
	return nopWindow{}
}

// fakeShell counts popup dismissals.
type fakeShell struct {
	popupDone int
}

func (f *fakeShell) Configure(uint32, int32, int32) {}
func (f *fakeShell) PopupDone()                     { f.popupDone++ }

// fakeStage maps rectangles to surfaces; later entries are on top.
type fakeStage struct {
	entries []stageEntry
}

type stageEntry struct {
	rect image.Rectangle
	s    *surface.Surface
}

func (st *fakeStage) place(s *surface.Surface, r image.Rectangle) {
	st.entries = append(st.entries, stageEntry{rect: r, s: s})
}

func (st *fakeStage) SurfaceAt(x, y float64) *surface.Surface {
	pt := image.Pt(int(x), int(y))
	for i := len(st.entries) - 1; i >= 0; i-- {
		e := st.entries[i]
		if !e.s.IsDestroyed() && pt.In(e.rect) {
			return e.s
		}
	}
	return nil
}

func (st *fakeStage) ToSurfaceLocal(s *surface.Surface, x, y float64) (float64, float64) {
	for _, e := range st.entries {
		if e.s == s {
			return x - float64(e.rect.Min.X), y - float64(e.rect.Min.Y)
		}
	}
	return 0, 0
}

// wireLog records protocol traffic in order across resources.
type wireLog struct {
	lines []string
}

func (l *wireLog) add(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
func (l *wireLog) reset() { l.lines = nil }

type fakePointer struct {
	client surface.ClientID
	log    *wireLog
}

func (f *fakePointer) Client() surface.ClientID { return f.client }
func (f *fakePointer) Enter(serial uint32, s *surface.Surface, x, y float64) {
	f.log.add("c%d enter %d %v %g,%g", f.client, serial, s, x, y)
}
func (f *fakePointer) Leave(serial uint32, s *surface.Surface) {
	f.log.add("c%d leave %d %v", f.client, serial, s)
}
func (f *fakePointer) Motion(timeMs uint32, x, y float64) {
	f.log.add("c%d motion %d %g,%g", f.client, timeMs, x, y)
}
func (f *fakePointer) Button(serial, timeMs, button uint32, pressed bool) {
	f.log.add("c%d button %d %d %#x %t", f.client, serial, timeMs, button, pressed)
}
func (f *fakePointer) Axis(timeMs uint32, axis Axis, value float64) {
	f.log.add("c%d axis %d %v %g", f.client, timeMs, axis, value)
}

type fakeKeyboard struct {
	client surface.ClientID
	log    *wireLog
}

func (f *fakeKeyboard) Client() surface.ClientID { return f.client }
func (f *fakeKeyboard) Enter(serial uint32, s *surface.Surface, keys []uint32) {
	f.log.add("c%d kbd enter %d %v %v", f.client, serial, s, keys)
}
func (f *fakeKeyboard) Leave(serial uint32, s *surface.Surface) {
	f.log.add("c%d kbd leave %d %v", f.client, serial, s)
}
func (f *fakeKeyboard) Key(serial, timeMs, key uint32, pressed bool) {
	f.log.add("c%d key %d %d %d %t", f.client, serial, timeMs, key, pressed)
}
func (f *fakeKeyboard) Modifiers(serial uint32, mods input.KeyboardModifiers) {
	f.log.add("c%d mods %d %d/%d/%d/%d", f.client, serial, mods.Depressed, mods.Latched, mods.Locked, mods.Group)
}

type fixture struct {
	comp  *surface.Compositor
	stage *fakeStage
	seat  *Seat
	log   *wireLog
}

func newFixture() *fixture {
	f := &fixture{
		comp:  surface.NewCompositor(nopRenderer{}, nopWM{}, nil),
		stage: &fakeStage{},
		log:   &wireLog{},
	}
	f.seat = New("seat0", f.stage, 0, 0)
	return f
}

// surface creates a surface for client placed at r.
func (f *fixture) surface(client surface.ClientID, id uint32, r image.Rectangle) *surface.Surface {
	s, err := f.comp.CreateSurface(client, id)
	if err != nil {
		panic(err)
	}
	f.stage.place(s, r)
	return s
}

func (f *fixture) bindPointer(client surface.ClientID) *fakePointer {
	r := &fakePointer{client: client, log: f.log}
	f.seat.AddPointerResource(r)
	return r
}

func (f *fixture) bindKeyboard(client surface.ClientID) *fakeKeyboard {
	r := &fakeKeyboard{client: client, log: f.log}
	f.seat.AddKeyboardResource(r)
	return r
}

func (f *fixture) motion(t uint32, x, y float64) {
	f.seat.HandleEvent(&input.Event{Type: input.Motion, Time: t, X: x, Y: y})
}

func (f *fixture) button(t uint32, button uint32, pressed bool) {
	x, y := f.seat.Pointer().Position()
	ev := &input.Event{Type: input.ButtonRelease, Time: t, X: x, Y: y, Button: button}
	if pressed {
		ev.Type = input.ButtonPress
	}
	f.seat.HandleEvent(ev)
}
