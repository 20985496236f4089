package input

import (
	evdev "github.com/gvalkov/golang-evdev"
)

// Positional button numbers.
const (
	ButtonPrimary   uint32 = 1
	ButtonMiddle    uint32 = 2
	ButtonSecondary uint32 = 3
)

const btnStylus3 = 0x149

// ButtonNumber maps a hardware button code to its positional number.
// Extra buttons go after the legacy scroll buttons 4 to 7. The result
// may be outside 1..12; such codes are not forwarded.
func ButtonNumber(code uint32, typ DeviceType) int {
	switch code {
	case evdev.BTN_LEFT, evdev.BTN_TOUCH:
		return int(ButtonPrimary)
	case evdev.BTN_RIGHT, evdev.BTN_STYLUS:
		return int(ButtonSecondary)
	case evdev.BTN_MIDDLE, evdev.BTN_STYLUS2:
		return int(ButtonMiddle)
	case btnStylus3:
		return 8
	}
	if typ == DeviceTypeTablet {
		return int(code) - evdev.BTN_TOOL_PEN + 4
	}
	return int(code) - (evdev.BTN_LEFT - 1) + 4
}

// ButtonCode is the inverse of ButtonNumber for pointer devices: it
// returns the linux button code sent on the wire.
func ButtonCode(number uint32) uint32 {
	switch number {
	case ButtonPrimary:
		return evdev.BTN_LEFT
	case ButtonMiddle:
		return evdev.BTN_MIDDLE
	case ButtonSecondary:
		return evdev.BTN_RIGHT
	}
	if number >= 8 {
		return number - 4 + evdev.BTN_LEFT - 1
	}
	// 4 to 7 are legacy scroll buttons with no hardware code.
	return number + evdev.BTN_LEFT - 1
}

func buttonMask(number int) ModifierType {
	if number < 1 || number > 5 {
		return 0
	}
	return Button1Mask << (number - 1)
}

// pressCounter counts presses per hardware code across every device of
// the seat, so that several devices reporting the same physical action
// produce one logical press and one logical release.
type pressCounter map[uint32]int

// update applies a press or release and returns the new count. A release
// without a recorded press leaves the count at zero.
func (c pressCounter) update(code uint32, pressed bool) int {
	if pressed {
		c[code]++
		return c[code]
	}
	if c[code] == 0 {
		return 0
	}
	c[code]--
	if c[code] == 0 {
		delete(c, code)
		return 0
	}
	return c[code]
}

// forward reports whether a report that produced count should be
// forwarded: the first press and the last release win.
func forward(pressed bool, count int) bool {
	if pressed {
		return count == 1
	}
	return count == 0
}
