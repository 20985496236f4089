package server

import (
	"encoding/binary"
	"time"

	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
	"golang.org/x/sys/unix"
)

const (
	seatCapPointer  uint32 = 1
	seatCapKeyboard uint32 = 2

	seatErrMissingCapability uint32 = 0

	keymapFormatNone uint32 = 0

	pointerErrRole uint32 = 0
)

type seatObject struct {
	resource
}

func bindSeat(c *Client, id, version uint32) error {
	o := &seatObject{resource{id: id, client: c, version: version}}
	if err := c.add(o); err != nil {
		return err
	}
	c.send(o.event(0, "capabilities").Uint(seatCapPointer|seatCapKeyboard), ifaceSeat)
	if version >= 2 {
		c.send(o.event(1, "name").String(c.srv.opts.Seat.Name), ifaceSeat)
	}
	return nil
}

func (o *seatObject) Interface() string { return ifaceSeat }
func (o *seatObject) destroy()          {}

func (o *seatObject) dispatch(m *wire.Message) error {
	c := o.client
	st := c.srv.opts.Seat
	switch m.Op {
	case 0: // get_pointer
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		p := &pointerObject{resource{id: id, client: c, version: o.version}}
		if err := c.add(p); err != nil {
			return err
		}
		st.AddPointerResource(p)
		return nil
	case 1: // get_keyboard
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		k := &keyboardObject{resource{id: id, client: c, version: o.version}}
		if err := c.add(k); err != nil {
			return err
		}
		k.sendKeymap()
		if o.version >= 4 {
			k.sendRepeatInfo()
		}
		st.AddKeyboardResource(k)
		return nil
	case 2: // get_touch
		return protocolError(o, seatErrMissingCapability, "wl_seat.get_touch called when no touch capability has existed")
	case 3: // release
		c.remove(o.id)
		return nil
	}
	return wire.UnknownOpError{Interface: ifaceSeat, Op: m.Op}
}

// pointerObject is a wl_pointer.
type pointerObject struct {
	resource
}

func (p *pointerObject) Interface() string { return ifacePointer }

func (p *pointerObject) destroy() {
	p.client.srv.opts.Seat.RemovePointerResource(p)
}

func (p *pointerObject) Client() surface.ClientID { return p.client.id }

func (p *pointerObject) Enter(serial uint32, s *surface.Surface, x, y float64) {
	p.client.send(p.event(0, "enter").Uint(serial).Uint(s.ID()).
		Fixed(wire.FixedFloat(x)).Fixed(wire.FixedFloat(y)), ifacePointer)
	p.frame()
}

func (p *pointerObject) Leave(serial uint32, s *surface.Surface) {
	p.client.send(p.event(1, "leave").Uint(serial).Uint(s.ID()), ifacePointer)
	p.frame()
}

func (p *pointerObject) Motion(timeMs uint32, x, y float64) {
	p.client.send(p.event(2, "motion").Uint(timeMs).
		Fixed(wire.FixedFloat(x)).Fixed(wire.FixedFloat(y)), ifacePointer)
	p.frame()
}

func (p *pointerObject) Button(serial, timeMs, button uint32, pressed bool) {
	state := uint32(0)
	if pressed {
		state = 1
	}
	p.client.send(p.event(3, "button").Uint(serial).Uint(timeMs).Uint(button).Uint(state), ifacePointer)
	p.frame()
}

func (p *pointerObject) Axis(timeMs uint32, axis seat.Axis, value float64) {
	p.client.send(p.event(4, "axis").Uint(timeMs).Uint(uint32(axis)).Fixed(wire.FixedFloat(value)), ifacePointer)
	p.frame()
}

func (p *pointerObject) frame() {
	if p.version >= 5 {
		p.client.send(p.event(5, "frame"), ifacePointer)
	}
}

func (p *pointerObject) dispatch(m *wire.Message) error {
	c := p.client
	switch m.Op {
	case 0: // set_cursor
		serial := m.Uint()
		surfID := m.Uint()
		hotX, hotY := m.Int(), m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		so, err := lookup[*surfaceObject](c, surfID, true)
		if err != nil {
			return err
		}

		ptr := c.srv.opts.Seat.Pointer()
		focus := ptr.Focus()
		if focus == nil || focus.Client() != c.id {
			return nil
		}
		if serial < ptr.FocusSerial() {
			return nil
		}

		var s *surface.Surface
		if so != nil {
			s = so.surface
			if err := s.MakeCursor(); err != nil {
				return protocolError(p, pointerErrRole, "%v", err)
			}
		}
		if cur := c.srv.opts.Cursor; cur != nil {
			cur.SetCursor(s, hotX, hotY)
		}
		return nil
	case 1: // release
		c.remove(p.id)
		return nil
	}
	return wire.UnknownOpError{Interface: ifacePointer, Op: m.Op}
}

// keyboardObject is a wl_keyboard.
type keyboardObject struct {
	resource
}

func (k *keyboardObject) Interface() string { return ifaceKeyboard }

func (k *keyboardObject) destroy() {
	k.client.srv.opts.Seat.RemoveKeyboardResource(k)
}

func (k *keyboardObject) Client() surface.ClientID { return k.client.id }

// sendKeymap announces that no keymap is available. Clients interpret the
// raw evdev codes themselves.
func (k *keyboardObject) sendKeymap() {
	fd, err := unix.MemfdCreate("waycore-keymap", unix.MFD_CLOEXEC)
	if err != nil {
		logger.Warn("keymap memfd failed", "err", err)
		return
	}
	defer unix.Close(fd)
	k.client.send(k.event(0, "keymap").Uint(keymapFormatNone).FD(fd).Uint(0), ifaceKeyboard)
}

func (k *keyboardObject) sendRepeatInfo() {
	var rate, delay int32
	if fn := k.client.srv.opts.Repeat; fn != nil {
		enabled, d, interval := fn()
		if enabled && interval > 0 {
			rate = int32(time.Second / interval)
			delay = int32(d / time.Millisecond)
		}
	}
	k.client.send(k.event(5, "repeat_info").Int(rate).Int(delay), ifaceKeyboard)
}

func (k *keyboardObject) Enter(serial uint32, s *surface.Surface, keys []uint32) {
	k.client.send(k.event(1, "enter").Uint(serial).Uint(s.ID()).Array(encodeKeys(keys)), ifaceKeyboard)
}

func (k *keyboardObject) Leave(serial uint32, s *surface.Surface) {
	k.client.send(k.event(2, "leave").Uint(serial).Uint(s.ID()), ifaceKeyboard)
}

func (k *keyboardObject) Key(serial, timeMs, key uint32, pressed bool) {
	state := uint32(0)
	if pressed {
		state = 1
	}
	k.client.send(k.event(3, "key").Uint(serial).Uint(timeMs).Uint(key).Uint(state), ifaceKeyboard)
}

func (k *keyboardObject) Modifiers(serial uint32, mods input.KeyboardModifiers) {
	k.client.send(k.event(4, "modifiers").Uint(serial).
		Uint(mods.Depressed).Uint(mods.Latched).Uint(mods.Locked).Uint(mods.Group), ifaceKeyboard)
}

func (k *keyboardObject) dispatch(m *wire.Message) error {
	if m.Op != 0 {
		return wire.UnknownOpError{Interface: ifaceKeyboard, Op: m.Op}
	}
	k.client.remove(k.id)
	return nil
}

// encodeKeys packs keycodes into a wl_array of uint32 in host order.
func encodeKeys(keys []uint32) []byte {
	out := make([]byte, 4*len(keys))
	for i, key := range keys {
		binary.NativeEndian.PutUint32(out[4*i:], key)
	}
	return out
}
