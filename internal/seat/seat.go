// Package seat routes translated input to client resources.
//
// The Pointer tracks the topmost surface under the cursor ("current") and
// the surface holding protocol focus, and passes every event through
// exactly one active Grab. The Keyboard tracks its own focus and forwards
// keys and modifier state.
package seat

import (
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/surface"
)

// Axis is a wl_pointer axis.
type Axis uint32

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// AxisStep is the axis distance sent for one discrete scroll step.
const AxisStep = 10.0

// PointerResource is a client's wl_pointer binding.
type PointerResource interface {
	Client() surface.ClientID
	Enter(serial uint32, s *surface.Surface, x, y float64)
	Leave(serial uint32, s *surface.Surface)
	Motion(timeMs uint32, x, y float64)
	Button(serial, timeMs, button uint32, pressed bool)
	Axis(timeMs uint32, axis Axis, value float64)
}

// KeyboardResource is a client's wl_keyboard binding.
type KeyboardResource interface {
	Client() surface.ClientID
	Enter(serial uint32, s *surface.Surface, keys []uint32)
	Leave(serial uint32, s *surface.Surface)
	Key(serial, timeMs, key uint32, pressed bool)
	Modifiers(serial uint32, mods input.KeyboardModifiers)
}

// Stage answers geometry questions about mapped surfaces.
type Stage interface {
	// SurfaceAt returns the topmost surface accepting input at a layout
	// position, or nil.
	SurfaceAt(x, y float64) *surface.Surface
	// ToSurfaceLocal converts a layout position into s's coordinates.
	ToSurfaceLocal(s *surface.Surface, x, y float64) (float64, float64)
}

// Observer is told about focus changes. Used by the trace socket.
type Observer interface {
	PointerFocus(s *surface.Surface, serial uint32)
	KeyboardFocus(s *surface.Surface, serial uint32)
}

// Seat owns the serial counter, the pointer, the keyboard and every
// client's pointer and keyboard resources.
type Seat struct {
	Name string

	serial   uint32
	pointer  *Pointer
	keyboard *Keyboard

	pointerResources  []PointerResource
	keyboardResources []KeyboardResource

	observer Observer
}

// New creates a seat. The pointer starts at (x, y).
func New(name string, stage Stage, x, y float64) *Seat {
	s := &Seat{Name: name}
	s.pointer = newPointer(s, stage, x, y)
	s.keyboard = newKeyboard(s)
	return s
}

// Pointer returns the seat pointer.
func (s *Seat) Pointer() *Pointer { return s.pointer }

// Keyboard returns the seat keyboard.
func (s *Seat) Keyboard() *Keyboard { return s.keyboard }

// SetObserver installs a focus observer; nil removes it.
func (s *Seat) SetObserver(o Observer) { s.observer = o }

// NextSerial returns a new serial. Serials increase monotonically.
func (s *Seat) NextSerial() uint32 {
	s.serial++
	return s.serial
}

// Serial returns the last serial handed out.
func (s *Seat) Serial() uint32 { return s.serial }

// AddPointerResource registers a wl_pointer. If the pointer is over one
// of the client's surfaces, focus is re-run so the client gets an enter.
func (s *Seat) AddPointerResource(r PointerResource) {
	s.pointerResources = append(s.pointerResources, r)
	p := s.pointer
	if p.focus != nil && p.focusResource == nil && p.focus.Client() == r.Client() {
		p.SetFocus(p.focus)
	}
}

// RemovePointerResource unregisters a released or destroyed wl_pointer.
func (s *Seat) RemovePointerResource(r PointerResource) {
	for i, v := range s.pointerResources {
		if v == r {
			s.pointerResources = append(s.pointerResources[:i], s.pointerResources[i+1:]...)
			break
		}
	}
	if s.pointer.focusResource == r {
		s.pointer.loseFocus()
	}
}

// AddKeyboardResource registers a wl_keyboard.
func (s *Seat) AddKeyboardResource(r KeyboardResource) {
	s.keyboardResources = append(s.keyboardResources, r)
	k := s.keyboard
	if k.focus != nil && k.focusResource == nil && k.focus.Client() == r.Client() {
		k.SetFocus(k.focus)
	}
}

// RemoveKeyboardResource unregisters a released or destroyed wl_keyboard.
func (s *Seat) RemoveKeyboardResource(r KeyboardResource) {
	for i, v := range s.keyboardResources {
		if v == r {
			s.keyboardResources = append(s.keyboardResources[:i], s.keyboardResources[i+1:]...)
			break
		}
	}
	if s.keyboard.focusResource == r {
		s.keyboard.loseFocus()
	}
}

// RemoveClient drops every resource a disconnecting client owns.
func (s *Seat) RemoveClient(client surface.ClientID) {
	var pointers []PointerResource
	for _, r := range s.pointerResources {
		if r.Client() == client {
			pointers = append(pointers, r)
		}
	}
	for _, r := range pointers {
		s.RemovePointerResource(r)
	}

	var keyboards []KeyboardResource
	for _, r := range s.keyboardResources {
		if r.Client() == client {
			keyboards = append(keyboards, r)
		}
	}
	for _, r := range keyboards {
		s.RemoveKeyboardResource(r)
	}
}

// pointerResource finds the first wl_pointer bound by client.
func (s *Seat) pointerResource(client surface.ClientID) PointerResource {
	for _, r := range s.pointerResources {
		if r.Client() == client {
			return r
		}
	}
	return nil
}

func (s *Seat) keyboardResource(client surface.ClientID) KeyboardResource {
	for _, r := range s.keyboardResources {
		if r.Client() == client {
			return r
		}
	}
	return nil
}

// HandleEvent routes a translated event. Touch events are ignored: the
// seat does not advertise wl_touch. It reports whether the event was used.
func (s *Seat) HandleEvent(ev *input.Event) bool {
	switch ev.Type {
	case input.Motion, input.ButtonPress, input.ButtonRelease, input.Scroll:
		return s.pointer.HandleEvent(ev)
	case input.KeyPress, input.KeyRelease:
		return s.keyboard.HandleKey(ev)
	default:
		logger.Debug("seat ignores event", "event", ev)
		return false
	}
}
