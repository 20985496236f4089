package seat

import (
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/signal"
	"github.com/bnema/waycore/internal/surface"
)

// Pointer is the seat pointer.
type Pointer struct {
	seat  *Seat
	stage Stage

	x, y float64

	current         *surface.Surface
	currentListener *signal.Listener

	focus         *surface.Surface
	focusListener *signal.Listener
	focusResource PointerResource
	focusSerial   uint32

	buttonCount int
	buttonState input.ModifierType

	// Press that started the current implicit grab.
	grabSerial uint32
	grabX      float64
	grabY      float64

	defaultGrab *defaultGrab
	grab        Grab
}

func newPointer(seat *Seat, stage Stage, x, y float64) *Pointer {
	p := &Pointer{seat: seat, stage: stage, x: x, y: y}
	p.defaultGrab = &defaultGrab{pointer: p}
	p.grab = p.defaultGrab
	return p
}

// Position returns the pointer position in layout coordinates.
func (p *Pointer) Position() (float64, float64) { return p.x, p.y }

// Current returns the topmost surface under the pointer.
func (p *Pointer) Current() *surface.Surface { return p.current }

// Focus returns the surface holding pointer focus.
func (p *Pointer) Focus() *surface.Surface { return p.focus }

// FocusResource returns the wl_pointer receiving events, which is nil when
// the focused client has no pointer bound.
func (p *Pointer) FocusResource() PointerResource { return p.focusResource }

// FocusSerial returns the serial of the last enter.
func (p *Pointer) FocusSerial() uint32 { return p.focusSerial }

// ButtonCount returns the number of held buttons.
func (p *Pointer) ButtonCount() int { return p.buttonCount }

// ButtonState returns the held button masks.
func (p *Pointer) ButtonState() input.ModifierType { return p.buttonState }

// GrabSerial returns the serial sent with the last button press.
func (p *Pointer) GrabSerial() uint32 { return p.grabSerial }

// GrabPosition returns where the last button press happened.
func (p *Pointer) GrabPosition() (float64, float64) { return p.grabX, p.grabY }

// ActiveGrab returns the grab events currently pass through. It is never
// nil.
func (p *Pointer) ActiveGrab() Grab { return p.grab }

// SetStage replaces the hit-testing stage.
func (p *Pointer) SetStage(stage Stage) { p.stage = stage }

// SetCurrent records the topmost surface under the pointer. The
// reference is dropped when the surface is destroyed.
func (p *Pointer) SetCurrent(s *surface.Surface) {
	if s == p.current {
		return
	}
	p.currentListener.Remove()
	p.currentListener = nil
	p.current = s
	if s == nil {
		return
	}
	p.currentListener = s.Destroyed.Add(func() {
		p.current = nil
		p.currentListener = nil
	})
}

// SetFocus moves protocol focus to s, which may be nil. The old client
// gets a leave. If the new client has a wl_pointer it gets the keyboard
// modifiers then an enter, both with one new serial.
func (p *Pointer) SetFocus(s *surface.Surface) {
	if s != nil && s.IsDestroyed() {
		s = nil
	}

	if p.focusResource != nil && p.focus != s && !p.focus.IsDestroyed() {
		p.focusResource.Leave(p.seat.NextSerial(), p.focus)
	}

	var res PointerResource
	if s != nil {
		res = p.seat.pointerResource(s.Client())
	}
	if res != nil && (p.focus != s || p.focusResource != res) {
		serial := p.seat.NextSerial()
		if kr := p.seat.keyboardResource(s.Client()); kr != nil {
			kr.Modifiers(serial, p.seat.keyboard.mods)
		}
		x, y := p.local(s)
		res.Enter(serial, s, x, y)
		p.focusSerial = serial
		if o := p.seat.observer; o != nil {
			o.PointerFocus(s, serial)
		}
	} else if res == nil && p.focus != s {
		if o := p.seat.observer; o != nil {
			o.PointerFocus(s, 0)
		}
	}

	p.focusResource = res
	p.watchFocus(s)
}

func (p *Pointer) watchFocus(s *surface.Surface) {
	if s == p.focus {
		return
	}
	p.focusListener.Remove()
	p.focusListener = nil
	p.focus = s
	if s != nil {
		p.focusListener = s.Destroyed.Add(p.focusDestroyed)
	}
}

// focusDestroyed drops focus without a leave: the client has already
// destroyed the surface.
func (p *Pointer) focusDestroyed() {
	p.focusListener = nil
	p.loseFocus()
}

func (p *Pointer) loseFocus() {
	p.focusListener.Remove()
	p.focusListener = nil
	p.focus = nil
	p.focusResource = nil
}

// local converts the pointer position into s's coordinates.
func (p *Pointer) local(s *surface.Surface) (float64, float64) {
	if p.stage == nil || s == nil {
		return 0, 0
	}
	return p.stage.ToSurfaceLocal(s, p.x, p.y)
}

// Repick hit-tests the pointer position and lets the grab decide focus.
// It runs on every pointer event and after the scene changes.
func (p *Pointer) Repick() {
	var s *surface.Surface
	if p.stage != nil {
		s = p.stage.SurfaceAt(p.x, p.y)
	}
	p.SetCurrent(s)
	p.grab.Focus(p.current)
}

// HandleEvent updates position, button count and current surface, then
// passes the event to the active grab. Scroll events go straight to the
// focused resource.
func (p *Pointer) HandleEvent(ev *input.Event) bool {
	switch ev.Type {
	case input.Motion, input.ButtonPress, input.ButtonRelease, input.Scroll:
	default:
		return false
	}

	p.x, p.y = ev.X, ev.Y
	p.buttonState = ev.State & buttonMasks
	// A release still counts as held while focus is picked, so it reaches
	// the surface that saw the press.
	switch ev.Type {
	case input.ButtonPress:
		p.buttonCount++
		p.grabX, p.grabY = ev.X, ev.Y
		p.Repick()
	case input.ButtonRelease:
		p.Repick()
		if p.buttonCount > 0 {
			p.buttonCount--
		}
	default:
		p.Repick()
	}

	switch ev.Type {
	case input.Motion:
		p.grab.Motion(ev)
	case input.ButtonPress, input.ButtonRelease:
		p.grab.Button(ev)
	case input.Scroll:
		p.axis(ev)
	}
	return true
}

const buttonMasks = input.Button1Mask | input.Button2Mask | input.Button3Mask |
	input.Button4Mask | input.Button5Mask

// sendMotion delivers motion in focus-local coordinates.
func (p *Pointer) sendMotion(ev *input.Event) {
	if p.focusResource == nil {
		return
	}
	x, y := p.local(p.focus)
	p.focusResource.Motion(ev.Time, x, y)
}

// sendButton delivers a button with its linux code and a new serial.
func (p *Pointer) sendButton(ev *input.Event) {
	if p.focusResource == nil {
		return
	}
	serial := p.seat.NextSerial()
	pressed := ev.Type == input.ButtonPress
	if pressed {
		p.grabSerial = serial
	}
	p.focusResource.Button(serial, ev.Time, input.ButtonCode(ev.Button), pressed)
}

// axis delivers scroll. Emulated events are skipped so that each physical
// action reaches the client once.
func (p *Pointer) axis(ev *input.Event) {
	if p.focusResource == nil || ev.Emulated() {
		return
	}
	switch ev.Direction {
	case input.ScrollSmooth:
		if ev.DX != 0 {
			p.focusResource.Axis(ev.Time, AxisHorizontal, ev.DX*AxisStep)
		}
		if ev.DY != 0 {
			p.focusResource.Axis(ev.Time, AxisVertical, ev.DY*AxisStep)
		}
	case input.ScrollUp:
		p.focusResource.Axis(ev.Time, AxisVertical, -AxisStep)
	case input.ScrollDown:
		p.focusResource.Axis(ev.Time, AxisVertical, AxisStep)
	case input.ScrollLeft:
		p.focusResource.Axis(ev.Time, AxisHorizontal, -AxisStep)
	case input.ScrollRight:
		p.focusResource.Axis(ev.Time, AxisHorizontal, AxisStep)
	}
}

// CanStartInteractive reports whether a move or resize request carrying
// serial may start: a button is held, serial is that press's serial and
// s has focus.
func (p *Pointer) CanStartInteractive(s *surface.Surface, serial uint32) bool {
	return p.buttonCount > 0 && p.grabSerial == serial && p.focus == s && s != nil
}

// StartGrab installs g and lets it pick focus from the current surface.
func (p *Pointer) StartGrab(g Grab) {
	p.grab = g
	if p.current != nil {
		g.Focus(p.current)
	}
}

// EndGrab restores the default grab and re-runs focus.
func (p *Pointer) EndGrab() {
	p.grab = p.defaultGrab
	p.grab.Focus(p.current)
}

// BeginModal installs a grab that swallows all pointer input. It fails
// without changing anything unless the default grab is active.
func (p *Pointer) BeginModal() bool {
	if p.grab != p.defaultGrab {
		return false
	}
	p.SetFocus(nil)
	p.StartGrab(&modalGrab{})
	return true
}

// EndModal reverts a modal grab to the default grab. It does nothing when
// no modal grab is active.
func (p *Pointer) EndModal() {
	if p.grab.Kind() != GrabModal {
		return
	}
	p.EndGrab()
}

// StartPopupGrab tracks s as an open popup. The first popup starts a
// grab owned by its client; later popups must belong to the same client.
func (p *Pointer) StartPopupGrab(s *surface.Surface) bool {
	if s == nil || s.IsDestroyed() {
		return false
	}
	switch g := p.grab.(type) {
	case *defaultGrab:
		pg := &popupGrab{pointer: p, owner: s.Client()}
		pg.add(s)
		p.StartGrab(pg)
		return true
	case *popupGrab:
		if g.owner != s.Client() {
			return false
		}
		g.add(s)
		return true
	default:
		return false
	}
}

// EndPopupGrab dismisses every tracked popup. It does nothing when no
// popup grab is active.
func (p *Pointer) EndPopupGrab() {
	if g, ok := p.grab.(*popupGrab); ok {
		g.end()
	}
}
