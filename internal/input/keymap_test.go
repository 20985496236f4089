package input

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
)

func TestKeymapRepeats(t *testing.T) {
	km := DefaultKeymap()

	tests := []struct {
		name string
		key  uint32
		want bool
	}{
		{"letter", evdev.KEY_A, true},
		{"space", evdev.KEY_SPACE, true},
		{"shift", evdev.KEY_LEFTSHIFT, false},
		{"ctrl", evdev.KEY_RIGHTCTRL, false},
		{"caps lock", evdev.KEY_CAPSLOCK, false},
		{"mouse button", evdev.BTN_LEFT, false},
		{"reserved", evdev.KEY_RESERVED, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, km.Repeats(tt.key))
		})
	}
}

func TestKeyboardStateModifiers(t *testing.T) {
	st := NewKeyboardState(DefaultKeymap())

	assert.Equal(t, ModsChanged, st.UpdateKey(evdev.KEY_LEFTSHIFT, true))
	assert.Zero(t, st.UpdateKey(evdev.KEY_RIGHTSHIFT, true), "shift already depressed")
	assert.Zero(t, st.UpdateKey(evdev.KEY_LEFTSHIFT, true), "duplicate press")

	st.UpdateKey(evdev.KEY_LEFTSHIFT, false)
	assert.Equal(t, uint32(ShiftMask), st.Modifiers().Depressed, "right shift still held")
	st.UpdateKey(evdev.KEY_RIGHTSHIFT, false)
	assert.Zero(t, st.Modifiers().Depressed)

	assert.Zero(t, st.UpdateKey(evdev.KEY_A, false), "release of a key never pressed")

	st.UpdateKey(evdev.KEY_LEFTCTRL, true)
	st.UpdateKey(evdev.KEY_LEFTALT, true)
	assert.Equal(t, ControlMask|Mod1Mask, st.Effective())
	assert.Equal(t, []uint32{evdev.KEY_LEFTCTRL, evdev.KEY_LEFTALT}, st.Keys())

	st.Reset()
	assert.Empty(t, st.Keys())
}

func TestKeyboardStateLocks(t *testing.T) {
	st := NewKeyboardState(DefaultKeymap())

	changed := st.UpdateKey(evdev.KEY_NUMLOCK, true)
	assert.Equal(t, ModsChanged|LedsChanged, changed)
	st.UpdateKey(evdev.KEY_NUMLOCK, false)
	assert.Equal(t, uint32(Mod2Mask), st.Modifiers().Locked)
	assert.True(t, st.Effective()&Mod2Mask != 0)
}
