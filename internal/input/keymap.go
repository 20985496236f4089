package input

import (
	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/exp/slices"
)

// StateComponent reports what a key update changed.
type StateComponent uint32

const (
	ModsChanged StateComponent = 1 << iota
	LedsChanged
)

// Keymap describes which keys are modifiers, which toggle locks and
// which repeat. Key codes are linux input codes.
type Keymap struct {
	modifiers map[uint32]ModifierType
	locks     map[uint32]ModifierType
	noRepeat  map[uint32]bool
}

// DefaultKeymap returns the pc105 modifier layout.
func DefaultKeymap() *Keymap {
	km := &Keymap{
		modifiers: map[uint32]ModifierType{
			evdev.KEY_LEFTSHIFT:  ShiftMask,
			evdev.KEY_RIGHTSHIFT: ShiftMask,
			evdev.KEY_LEFTCTRL:   ControlMask,
			evdev.KEY_RIGHTCTRL:  ControlMask,
			evdev.KEY_LEFTALT:    Mod1Mask,
			evdev.KEY_RIGHTALT:   Mod5Mask,
			evdev.KEY_LEFTMETA:   Mod4Mask,
			evdev.KEY_RIGHTMETA:  Mod4Mask,
		},
		locks: map[uint32]ModifierType{
			evdev.KEY_CAPSLOCK: LockMask,
			evdev.KEY_NUMLOCK:  Mod2Mask,
		},
		noRepeat: map[uint32]bool{
			evdev.KEY_RESERVED:   true,
			evdev.KEY_SCROLLLOCK: true,
			evdev.KEY_SYSRQ:      true,
			evdev.KEY_PAUSE:      true,
		},
	}
	return km
}

// Repeats reports whether holding key autorepeats. Modifiers, locks and
// mouse buttons never repeat.
func (km *Keymap) Repeats(key uint32) bool {
	if _, ok := km.modifiers[key]; ok {
		return false
	}
	if _, ok := km.locks[key]; ok {
		return false
	}
	if key >= evdev.BTN_MISC && key < evdev.KEY_OK {
		return false
	}
	return !km.noRepeat[key]
}

// KeyboardState tracks held modifier keys and lock state.
type KeyboardState struct {
	keymap *Keymap
	held   map[uint32]bool
	locked ModifierType
}

// NewKeyboardState returns a state with nothing held or locked.
func NewKeyboardState(km *Keymap) *KeyboardState {
	return &KeyboardState{keymap: km, held: make(map[uint32]bool)}
}

func (s *KeyboardState) depressed() ModifierType {
	var mods ModifierType
	for key := range s.held {
		mods |= s.keymap.modifiers[key]
		mods |= s.keymap.locks[key]
	}
	return mods
}

// UpdateKey applies a press or release and reports what changed.
func (s *KeyboardState) UpdateKey(key uint32, pressed bool) StateComponent {
	before := s.Modifiers()
	if pressed {
		if s.held[key] {
			return 0
		}
		s.held[key] = true
		if lock, ok := s.keymap.locks[key]; ok {
			s.locked ^= lock
		}
	} else {
		if !s.held[key] {
			return 0
		}
		delete(s.held, key)
	}

	var changed StateComponent
	after := s.Modifiers()
	if before != after {
		changed |= ModsChanged
	}
	if before.Locked != after.Locked {
		changed |= LedsChanged
	}
	return changed
}

// Modifiers returns the wl_keyboard.modifiers tuple.
func (s *KeyboardState) Modifiers() KeyboardModifiers {
	return KeyboardModifiers{
		Depressed: uint32(s.depressed()),
		Locked:    uint32(s.locked),
	}
}

// Effective returns the modifiers currently in effect.
func (s *KeyboardState) Effective() ModifierType {
	return s.depressed() | s.locked
}

// Held reports whether key is down.
func (s *KeyboardState) Held(key uint32) bool {
	return s.held[key]
}

// Keys returns the held keys in code order, used for wl_keyboard.enter.
func (s *KeyboardState) Keys() []uint32 {
	keys := make([]uint32, 0, len(s.held))
	for k := range s.held {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Reset releases everything, e.g. when the last keyboard goes away.
func (s *KeyboardState) Reset() {
	clear(s.held)
	s.locked = 0
}
