package input

import (
	"image"
	"syscall"
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(ms int64, typ, code uint16, value int32) evdev.InputEvent {
	return evdev.InputEvent{
		Time:  syscall.Timeval{Sec: ms / 1000, Usec: (ms % 1000) * 1000},
		Type:  typ,
		Code:  code,
		Value: value,
	}
}

func syn(ms int64) evdev.InputEvent { return report(ms, evdev.EV_SYN, evdev.SYN_REPORT, 0) }

func feed(d *decoder, events ...evdev.InputEvent) {
	for i := range events {
		d.process(&events[i])
	}
}

func TestDecoderGroupsRelativeMotion(t *testing.T) {
	f := newFixture(Options{PointerX: 100, PointerY: 100})
	d := newDecoder(f.tr, f.mouse)

	feed(d,
		report(1500, evdev.EV_REL, evdev.REL_X, 3),
		report(1500, evdev.EV_REL, evdev.REL_Y, -2),
		report(1500, evdev.EV_REL, evdev.REL_X, 1),
	)
	assert.Empty(t, f.rec.events, "nothing is emitted before the frame ends")

	feed(d, syn(1500))
	motion := f.rec.ofType(Motion)
	require.Len(t, motion, 1)
	assert.Equal(t, uint32(1500), motion[0].Time)
	assert.Equal(t, 4.0, motion[0].DX)
	assert.Equal(t, -2.0, motion[0].DY)
	assert.Equal(t, 104.0, motion[0].X)
	assert.Equal(t, 98.0, motion[0].Y)

	feed(d, syn(1510))
	assert.Len(t, f.rec.ofType(Motion), 1, "empty frame emits nothing")
}

func TestDecoderKeysAndButtons(t *testing.T) {
	f := newFixture(Options{RepeatDisabled: true})
	kbd := newDecoder(f.tr, f.kbd)
	mouse := newDecoder(f.tr, f.mouse)

	feed(kbd,
		report(10, evdev.EV_KEY, evdev.KEY_A, 1), syn(10),
		report(300, evdev.EV_KEY, evdev.KEY_A, 2), syn(300),
		report(310, evdev.EV_KEY, evdev.KEY_A, 0), syn(310),
	)
	keys := f.rec.ofType(KeyPress, KeyRelease)
	require.Len(t, keys, 2, "kernel autorepeat is dropped")
	assert.Equal(t, KeyPress, keys[0].Type)
	assert.Equal(t, uint32(evdev.KEY_A), keys[0].Code)
	assert.Equal(t, KeyRelease, keys[1].Type)

	feed(mouse, report(20, evdev.EV_KEY, evdev.BTN_RIGHT, 1), syn(20))
	buttons := f.rec.ofType(ButtonPress)
	require.Len(t, buttons, 1)
	assert.Equal(t, ButtonSecondary, buttons[0].Button)
}

func TestDecoderWheel(t *testing.T) {
	f := newFixture(Options{})
	d := newDecoder(f.tr, f.mouse)

	feed(d, report(5, evdev.EV_REL, evdev.REL_WHEEL, 1), syn(5))
	feed(d, report(6, evdev.EV_REL, evdev.REL_HWHEEL, -1), syn(6))

	var dirs []ScrollDirection
	for _, ev := range f.rec.ofType(Scroll) {
		if !ev.Emulated() {
			dirs = append(dirs, ev.Direction)
		}
	}
	assert.Equal(t, []ScrollDirection{ScrollUp, ScrollLeft}, dirs)
}

func TestDecoderDropsDesyncedFrame(t *testing.T) {
	f := newFixture(Options{})
	d := newDecoder(f.tr, f.mouse)

	feed(d,
		report(1, evdev.EV_REL, evdev.REL_X, 5),
		report(1, evdev.EV_SYN, evdev.SYN_DROPPED, 0),
		report(2, evdev.EV_REL, evdev.REL_X, 5),
		syn(2),
	)
	assert.Empty(t, f.rec.events)

	feed(d, report(3, evdev.EV_REL, evdev.REL_X, 1), syn(3))
	assert.Len(t, f.rec.ofType(Motion), 1, "decoding resumes after the next report")
}

func TestDecoderDesyncedFrameKeepsReleases(t *testing.T) {
	f := newFixture(Options{RepeatDisabled: true})
	d := newDecoder(f.tr, f.kbd)

	feed(d, report(1, evdev.EV_KEY, evdev.KEY_A, 1), syn(1))
	feed(d,
		report(2, evdev.EV_SYN, evdev.SYN_DROPPED, 0),
		report(3, evdev.EV_KEY, evdev.KEY_B, 1),
		report(3, evdev.EV_KEY, evdev.KEY_A, 0),
		syn(3),
	)
	require.Len(t, f.rec.ofType(KeyPress), 1, "presses of a dropped frame are discarded")
	releases := f.rec.ofType(KeyRelease)
	require.Len(t, releases, 1)
	assert.Equal(t, uint32(evdev.KEY_A), releases[0].Code)
}

func TestDecoderEmitsMotionBeforeButtons(t *testing.T) {
	f := newFixture(Options{PointerX: 100, PointerY: 100})
	d := newDecoder(f.tr, f.mouse)

	feed(d,
		report(7, evdev.EV_KEY, evdev.BTN_LEFT, 1),
		report(7, evdev.EV_REL, evdev.REL_X, 50),
		report(7, evdev.EV_KEY, evdev.BTN_RIGHT, 1),
	)
	assert.Empty(t, f.rec.events, "buttons wait for the end of the frame")

	feed(d, syn(7))
	events := f.rec.ofType(Motion, ButtonPress)
	require.Len(t, events, 3)
	assert.Equal(t, Motion, events[0].Type)
	assert.Equal(t, 150.0, events[0].X)
	assert.Equal(t, ButtonPress, events[1].Type)
	assert.Equal(t, ButtonPrimary, events[1].Button)
	assert.Equal(t, 150.0, events[1].X, "button lands where the frame moved the pointer")
	assert.Equal(t, ButtonSecondary, events[2].Button, "buttons keep report order")
}

func TestDecoderTouchpadMovesPointer(t *testing.T) {
	f := newFixture(Options{PointerX: 100, PointerY: 100})
	pad := f.devices.AddDevice("touchpad", "/dev/input/event5", DeviceTypeTouchpad)
	d := newDecoder(f.tr, pad)
	d.bounds = image.Rect(0, 0, 1000, 500)
	d.absX = AbsRange{Min: 0, Max: 100}
	d.absY = AbsRange{Min: 0, Max: 100}

	feed(d,
		report(1, evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		report(1, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 9),
		report(1, evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 10),
		report(1, evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 10),
		report(1, evdev.EV_KEY, evdev.BTN_TOUCH, 1),
		report(1, evdev.EV_ABS, evdev.ABS_X, 10),
		report(1, evdev.EV_ABS, evdev.ABS_Y, 10),
		syn(1),
	)
	assert.Empty(t, f.rec.ofType(Motion), "first contact only sets the origin")

	feed(d,
		report(2, evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 20),
		report(2, evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 14),
		report(2, evdev.EV_ABS, evdev.ABS_X, 20),
		report(2, evdev.EV_ABS, evdev.ABS_Y, 14),
		syn(2),
	)
	motion := f.rec.ofType(Motion)
	require.Len(t, motion, 1)
	assert.Equal(t, 50.0, motion[0].DX)
	assert.Equal(t, 20.0, motion[0].DY)
	assert.Equal(t, 150.0, motion[0].X)
	assert.Equal(t, 120.0, motion[0].Y)

	feed(d,
		report(3, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, -1),
		report(3, evdev.EV_KEY, evdev.BTN_TOUCH, 0),
		syn(3),
		report(4, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 10),
		report(4, evdev.EV_KEY, evdev.BTN_TOUCH, 1),
		report(4, evdev.EV_ABS, evdev.ABS_X, 90),
		report(4, evdev.EV_ABS, evdev.ABS_Y, 90),
		syn(4),
	)
	assert.Len(t, f.rec.ofType(Motion), 1, "a new contact does not jump the pointer")
	assert.Empty(t, f.rec.ofType(TouchBegin, TouchUpdate, TouchEnd))
	assert.Empty(t, f.rec.ofType(ButtonPress, ButtonRelease))
	assert.Zero(t, f.tr.Touches().Active())
}

func TestDecoderMultitouch(t *testing.T) {
	f := newFixture(Options{})
	d := newDecoder(f.tr, f.touch)
	d.bounds = image.Rect(0, 0, 1000, 500)
	d.mtX = AbsRange{Min: 0, Max: 100}
	d.mtY = AbsRange{Min: 0, Max: 100}

	feed(d,
		report(1, evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		report(1, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 40),
		report(1, evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 50),
		report(1, evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 10),
		report(1, evdev.EV_ABS, evdev.ABS_MT_SLOT, 1),
		report(1, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 41),
		report(1, evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 0),
		report(1, evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 100),
		report(1, evdev.EV_KEY, evdev.BTN_TOUCH, 1),
		syn(1),
	)
	begins := f.rec.ofType(TouchBegin)
	require.Len(t, begins, 2)
	assert.Equal(t, uint32(1), begins[0].Sequence)
	assert.Equal(t, 500.0, begins[0].X)
	assert.Equal(t, 50.0, begins[0].Y)
	assert.Equal(t, uint32(2), begins[1].Sequence)
	assert.Equal(t, 500.0, begins[1].Y)
	assert.Empty(t, f.rec.ofType(ButtonPress), "BTN_TOUCH is carried by the touch events")

	feed(d,
		report(2, evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		report(2, evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 60),
		syn(2),
	)
	updates := f.rec.ofType(TouchUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, 600.0, updates[0].X)
	assert.Equal(t, 50.0, updates[0].Y, "untouched axis keeps its value")

	feed(d,
		report(3, evdev.EV_ABS, evdev.ABS_MT_SLOT, 1),
		report(3, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, -1),
		syn(3),
	)
	ends := f.rec.ofType(TouchEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, uint32(2), ends[0].Sequence)
	assert.Equal(t, 1, f.tr.Touches().Active())
}

func TestAbsRangeScale(t *testing.T) {
	r := AbsRange{Min: -100, Max: 100}
	assert.Equal(t, 50.0, r.scale(0, 0, 100))
	assert.Equal(t, 110.0, r.scale(100, 10, 100))
	assert.Equal(t, 7.0, AbsRange{}.scale(7, 0, 100), "unknown range passes through")
}

func TestClassify(t *testing.T) {
	caps := func(pairs ...uint16) capabilities {
		c := make(capabilities)
		for i := 0; i < len(pairs); i += 2 {
			if c[pairs[i]] == nil {
				c[pairs[i]] = map[uint16]bool{}
			}
			c[pairs[i]][pairs[i+1]] = true
		}
		return c
	}

	tests := []struct {
		name string
		caps capabilities
		want DeviceType
		ok   bool
	}{
		{"mouse", caps(evdev.EV_REL, evdev.REL_X, evdev.EV_KEY, evdev.BTN_LEFT), DeviceTypePointer, true},
		{"keyboard", caps(evdev.EV_KEY, evdev.KEY_A), DeviceTypeKeyboard, true},
		{"power button", caps(evdev.EV_KEY, evdev.KEY_POWER), DeviceTypeKeyboard, true},
		{"touchscreen", caps(evdev.EV_ABS, evdev.ABS_MT_POSITION_X), DeviceTypeTouchscreen, true},
		{"touchpad", caps(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, evdev.EV_KEY, evdev.BTN_TOOL_FINGER), DeviceTypeTouchpad, true},
		{"tablet", caps(evdev.EV_ABS, evdev.ABS_X, evdev.EV_KEY, evdev.BTN_TOOL_PEN), DeviceTypeTablet, true},
		{"accelerometer", caps(evdev.EV_ABS, evdev.ABS_X), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classify(tt.caps)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
