package input

import (
	"image"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/exp/slices"
)

// AbsRange is the value range of an absolute axis.
type AbsRange struct {
	Min, Max int32
}

func (r AbsRange) scale(v int32, lo, length int) float64 {
	if r.Max <= r.Min {
		return float64(v)
	}
	return float64(lo) + float64(v-r.Min)/float64(r.Max-r.Min)*float64(length)
}

type mtSlot struct {
	active   bool
	began    bool
	ended    bool
	dirty    bool
	x, y     int32
	tracking int32
}

type keyReport struct {
	time  uint32
	code  uint32
	state KeyState
}

// touchpadSpan is the share of the layout width one full swipe across a
// touchpad moves the pointer.
const touchpadSpan = 0.5

// decoder groups one device's raw reports into frames terminated by
// SYN_REPORT and feeds the translator. At the end of a frame the
// accumulated motion goes out first, then keys and buttons in report
// order, then scroll and touch. It runs on the event loop.
type decoder struct {
	tr  *Translator
	dev *Device

	// Absolute axes are mapped onto bounds.
	bounds     image.Rectangle
	absX, absY AbsRange
	mtX, mtY   AbsRange

	dx, dy    int32
	absDirty  bool
	ax, ay    int32
	keys      []keyReport
	wheelX    int32
	wheelY    int32
	slot      int
	slots     map[int]*mtSlot
	dropFrame bool

	// Touchpads move the pointer by the change of ABS_X/ABS_Y while a
	// finger is down; padValid is false until the first position of a
	// contact is known.
	padX, padY int32
	padValid   bool
}

func newDecoder(tr *Translator, dev *Device) *decoder {
	return &decoder{tr: tr, dev: dev, slots: make(map[int]*mtSlot)}
}

func timeMs(ev *evdev.InputEvent) uint32 {
	return uint32(ev.Time.Sec*1000 + ev.Time.Usec/1000)
}

func (d *decoder) currentSlot() *mtSlot {
	s, ok := d.slots[d.slot]
	if !ok {
		s = &mtSlot{tracking: -1}
		d.slots[d.slot] = s
	}
	return s
}

// process handles one report.
func (d *decoder) process(ev *evdev.InputEvent) {
	switch ev.Type {
	case evdev.EV_KEY:
		d.key(ev)
	case evdev.EV_REL:
		switch ev.Code {
		case evdev.REL_X:
			d.dx += ev.Value
		case evdev.REL_Y:
			d.dy += ev.Value
		case evdev.REL_WHEEL:
			d.wheelY += ev.Value
		case evdev.REL_HWHEEL:
			d.wheelX += ev.Value
		}
	case evdev.EV_ABS:
		d.abs(ev)
	case evdev.EV_SYN:
		switch ev.Code {
		case evdev.SYN_REPORT:
			if d.dropFrame {
				d.flushReleases()
			} else {
				d.flush(timeMs(ev))
			}
			d.reset()
		case evdev.SYN_DROPPED:
			// Everything up to the next report is unreliable.
			d.dropFrame = true
			d.padValid = false
		}
	}
}

func (d *decoder) key(ev *evdev.InputEvent) {
	if ev.Value > 1 {
		// Kernel autorepeat; the translator repeats on its own.
		return
	}
	state := KeyState(ev.Value)
	code := uint32(ev.Code)
	switch {
	case code >= evdev.BTN_MISC && code < evdev.KEY_OK:
		if code == evdev.BTN_TOUCH || (code >= evdev.BTN_TOOL_PEN && code <= evdev.BTN_TOOL_QUADTAP) {
			// Contact state is carried by the multitouch axes.
			if d.dev.Type == DeviceTypeTouchscreen || d.dev.Type == DeviceTypeTouchpad {
				if code == evdev.BTN_TOUCH {
					d.padValid = false
				}
				return
			}
		}
	}
	d.keys = append(d.keys, keyReport{time: timeMs(ev), code: code, state: state})
}

func (d *decoder) notifyKey(k keyReport) {
	if k.code >= evdev.BTN_MISC && k.code < evdev.KEY_OK {
		d.tr.NotifyButton(d.dev, k.time, k.code, k.state)
		return
	}
	d.tr.NotifyKey(d.dev, k.time, k.code, k.state, true)
}

// flushReleases delivers only the releases of a desynchronised frame so
// nothing stays held.
func (d *decoder) flushReleases() {
	for _, k := range d.keys {
		if k.state == Released {
			d.notifyKey(k)
		}
	}
}

// touchpadMotion turns the change of the absolute position into relative
// motion scaled onto the layout.
func (d *decoder) touchpadMotion(t uint32) {
	if !d.padValid {
		d.padX, d.padY, d.padValid = d.ax, d.ay, true
		return
	}
	rx, ry := float64(d.ax-d.padX), float64(d.ay-d.padY)
	d.padX, d.padY = d.ax, d.ay
	if w := d.absX.Max - d.absX.Min; w > 0 && d.bounds.Dx() > 0 {
		f := float64(d.bounds.Dx()) * touchpadSpan / float64(w)
		rx, ry = rx*f, ry*f
	}
	if rx != 0 || ry != 0 {
		d.tr.NotifyRelativeMotion(d.dev, t, rx, ry, rx, ry)
	}
}

func (d *decoder) abs(ev *evdev.InputEvent) {
	switch ev.Code {
	case evdev.ABS_X:
		d.ax, d.absDirty = ev.Value, true
	case evdev.ABS_Y:
		d.ay, d.absDirty = ev.Value, true
	case evdev.ABS_MT_SLOT:
		d.slot = int(ev.Value)
	case evdev.ABS_MT_TRACKING_ID:
		s := d.currentSlot()
		if ev.Value < 0 {
			if s.active {
				s.ended, s.dirty = true, true
			}
		} else {
			s.active, s.began, s.dirty = true, true, true
			s.tracking = ev.Value
		}
	case evdev.ABS_MT_POSITION_X:
		s := d.currentSlot()
		s.x, s.dirty = ev.Value, true
	case evdev.ABS_MT_POSITION_Y:
		s := d.currentSlot()
		s.y, s.dirty = ev.Value, true
	}
}

func (d *decoder) flush(t uint32) {
	if d.dx != 0 || d.dy != 0 {
		fx, fy := float64(d.dx), float64(d.dy)
		d.tr.NotifyRelativeMotion(d.dev, t, fx, fy, fx, fy)
	}
	if d.absDirty {
		switch d.dev.Type {
		case DeviceTypeTouchscreen:
		case DeviceTypeTouchpad:
			d.touchpadMotion(t)
		default:
			x := d.absX.scale(d.ax, d.bounds.Min.X, d.bounds.Dx())
			y := d.absY.scale(d.ay, d.bounds.Min.Y, d.bounds.Dy())
			d.tr.NotifyAbsoluteMotion(d.dev, t, x, y)
		}
	}
	for _, k := range d.keys {
		d.notifyKey(k)
	}
	if d.wheelX != 0 || d.wheelY != 0 {
		// The kernel reports wheel-up as positive.
		d.tr.NotifyDiscreteScroll(d.dev, t, float64(d.wheelX), float64(-d.wheelY), SourceWheel)
	}

	ids := make([]int, 0, len(d.slots))
	for id := range d.slots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s := d.slots[id]
		if !s.dirty {
			continue
		}
		if d.dev.Type != DeviceTypeTouchscreen {
			// Touchpad contacts drive the pointer, not touch events.
			if s.ended {
				s.active = false
				s.tracking = -1
			}
			s.began, s.ended, s.dirty = false, false, false
			continue
		}
		x := d.mtX.scale(s.x, d.bounds.Min.X, d.bounds.Dx())
		y := d.mtY.scale(s.y, d.bounds.Min.Y, d.bounds.Dy())
		switch {
		case s.began && s.ended:
			// Contact that began and ended within one frame.
			d.tr.NotifyTouch(d.dev, TouchBegin, t, id, x, y)
			d.tr.NotifyTouch(d.dev, TouchEnd, t, id, x, y)
		case s.began:
			d.tr.NotifyTouch(d.dev, TouchBegin, t, id, x, y)
		case s.ended:
			d.tr.NotifyTouch(d.dev, TouchEnd, t, id, x, y)
		case s.active:
			d.tr.NotifyTouch(d.dev, TouchUpdate, t, id, x, y)
		}
		if s.ended {
			s.active = false
			s.tracking = -1
		}
		s.began, s.ended, s.dirty = false, false, false
	}
}

func (d *decoder) reset() {
	d.dx, d.dy = 0, 0
	d.keys = d.keys[:0]
	d.wheelX, d.wheelY = 0, 0
	d.absDirty = false
	d.dropFrame = false
}
