package seat

import (
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/signal"
	"github.com/bnema/waycore/internal/surface"
	"golang.org/x/exp/slices"
)

// Keyboard is the seat keyboard.
type Keyboard struct {
	seat *Seat

	focus         *surface.Surface
	focusListener *signal.Listener
	focusResource KeyboardResource
	focusSerial   uint32

	keys []uint32
	mods input.KeyboardModifiers
}

func newKeyboard(seat *Seat) *Keyboard {
	return &Keyboard{seat: seat}
}

// Focus returns the surface holding keyboard focus.
func (k *Keyboard) Focus() *surface.Surface { return k.focus }

// FocusResource returns the wl_keyboard receiving keys.
func (k *Keyboard) FocusResource() KeyboardResource { return k.focusResource }

// Modifiers returns the last modifier state seen.
func (k *Keyboard) Modifiers() input.KeyboardModifiers { return k.mods }

// Keys returns the held keys in press order.
func (k *Keyboard) Keys() []uint32 { return slices.Clone(k.keys) }

// SetFocus moves keyboard focus to s, which may be nil.
func (k *Keyboard) SetFocus(s *surface.Surface) {
	if s != nil && s.IsDestroyed() {
		s = nil
	}

	if k.focusResource != nil && k.focus != s && !k.focus.IsDestroyed() {
		k.focusResource.Leave(k.seat.NextSerial(), k.focus)
	}

	var res KeyboardResource
	if s != nil {
		res = k.seat.keyboardResource(s.Client())
	}
	if res != nil && (k.focus != s || k.focusResource != res) {
		serial := k.seat.NextSerial()
		res.Enter(serial, s, k.Keys())
		res.Modifiers(serial, k.mods)
		k.focusSerial = serial
	}
	if k.focus != s {
		if o := k.seat.observer; o != nil {
			o.KeyboardFocus(s, k.focusSerial)
		}
	}

	k.focusResource = res
	if s == k.focus {
		return
	}
	k.focusListener.Remove()
	k.focusListener = nil
	k.focus = s
	if s != nil {
		k.focusListener = s.Destroyed.Add(func() {
			k.focusListener = nil
			k.loseFocus()
		})
	}
}

func (k *Keyboard) loseFocus() {
	k.focusListener.Remove()
	k.focusListener = nil
	k.focus = nil
	k.focusResource = nil
}

// HandleKey forwards a key to the focused client. Autorepeated events are
// not sent; clients repeat on their own from repeat_info.
func (k *Keyboard) HandleKey(ev *input.Event) bool {
	if ev.Type != input.KeyPress && ev.Type != input.KeyRelease {
		return false
	}
	if ev.Repeated() {
		return false
	}

	pressed := ev.Type == input.KeyPress
	i := slices.Index(k.keys, ev.Code)
	switch {
	case pressed && i < 0:
		k.keys = append(k.keys, ev.Code)
	case !pressed && i >= 0:
		k.keys = slices.Delete(k.keys, i, i+1)
	}

	if k.focusResource != nil {
		k.focusResource.Key(k.seat.NextSerial(), ev.Time, ev.Code, pressed)
	}
	k.updateModifiers(ev.Modifiers)
	return true
}

func (k *Keyboard) updateModifiers(mods input.KeyboardModifiers) {
	if mods == k.mods {
		return
	}
	k.mods = mods
	if k.focusResource != nil {
		k.focusResource.Modifiers(k.seat.NextSerial(), mods)
	}
}
