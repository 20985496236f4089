package input

import "fmt"

// EventType identifies a semantic input event.
type EventType int

const (
	KeyPress EventType = iota + 1
	KeyRelease
	ButtonPress
	ButtonRelease
	Motion
	Scroll
	TouchBegin
	TouchUpdate
	TouchEnd
	TouchCancel
)

var eventTypeNames = map[EventType]string{
	KeyPress:      "key-press",
	KeyRelease:    "key-release",
	ButtonPress:   "button-press",
	ButtonRelease: "button-release",
	Motion:        "motion",
	Scroll:        "scroll",
	TouchBegin:    "touch-begin",
	TouchUpdate:   "touch-update",
	TouchEnd:      "touch-end",
	TouchCancel:   "touch-cancel",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// EventFlags mark synthesized events.
type EventFlags uint32

const (
	// FlagRepeated marks key events generated by autorepeat.
	FlagRepeated EventFlags = 1 << iota
	// FlagEmulated marks scroll events synthesized from another axis
	// representation.
	FlagEmulated
)

// KeyState is the value of a key or button report.
type KeyState uint32

const (
	Released KeyState = 0
	Pressed  KeyState = 1
	// Autorepeat is only produced by the repeat timer. Kernel repeat
	// reports are dropped by the backends.
	Autorepeat KeyState = 2
)

// ScrollDirection is the direction of a discrete scroll event.
type ScrollDirection int

const (
	ScrollUp ScrollDirection = iota
	ScrollDown
	ScrollLeft
	ScrollRight
	ScrollSmooth
)

func (d ScrollDirection) String() string {
	switch d {
	case ScrollUp:
		return "up"
	case ScrollDown:
		return "down"
	case ScrollLeft:
		return "left"
	case ScrollRight:
		return "right"
	case ScrollSmooth:
		return "smooth"
	}
	return "unknown"
}

// ScrollSource describes the hardware behind a scroll event.
type ScrollSource int

const (
	SourceUnknown ScrollSource = iota
	SourceWheel
	SourceFinger
	SourceContinuous
)

// ScrollFinish flags an axis whose scroll sequence has ended.
type ScrollFinish uint32

const (
	FinishNone       ScrollFinish = 0
	FinishHorizontal ScrollFinish = 1 << 0
	FinishVertical   ScrollFinish = 1 << 1
)

// ModifierType is the combined keyboard modifier and pointer button mask
// attached to every event. Keyboard bits use the standard xkb modifier
// indices so they can be sent on the wire unchanged.
type ModifierType uint32

const (
	ShiftMask ModifierType = 1 << iota
	LockMask
	ControlMask
	Mod1Mask // Alt
	Mod2Mask // NumLock
	Mod3Mask
	Mod4Mask // Super
	Mod5Mask // AltGr
	Button1Mask
	Button2Mask
	Button3Mask
	Button4Mask
	Button5Mask
)

// KeyboardModifiers is the wl_keyboard.modifiers tuple.
type KeyboardModifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// Event is a semantic input event produced by the Translator.
type Event struct {
	Type   EventType
	Time   uint32 // milliseconds
	Device *Device
	Flags  EventFlags

	// X, Y is the pointer position for pointer events and the contact
	// point for touch events, in layout coordinates.
	X, Y float64

	// DX, DY is the filtered relative motion of a motion event or the
	// smooth scroll delta in discrete steps.
	DX, DY               float64
	DXUnaccel, DYUnaccel float64

	// Button is the positional button number: 1 primary, 2 middle,
	// 3 secondary, 8 and above extra buttons.
	Button uint32
	// Code is the hardware key or button code.
	Code uint32

	State     ModifierType
	Modifiers KeyboardModifiers

	Direction ScrollDirection
	Source    ScrollSource
	Finish    ScrollFinish

	// Sequence identifies a touch contact; it is the seat slot plus one.
	Sequence uint32
}

// Repeated reports whether the event came from autorepeat.
func (e *Event) Repeated() bool { return e.Flags&FlagRepeated != 0 }

// Emulated reports whether the event was synthesized.
func (e *Event) Emulated() bool { return e.Flags&FlagEmulated != 0 }

func (e *Event) String() string {
	switch e.Type {
	case KeyPress, KeyRelease:
		return fmt.Sprintf("%v key=%d time=%d repeated=%t", e.Type, e.Code, e.Time, e.Repeated())
	case ButtonPress, ButtonRelease:
		return fmt.Sprintf("%v button=%d code=%#x time=%d", e.Type, e.Button, e.Code, e.Time)
	case Motion:
		return fmt.Sprintf("motion %.2f,%.2f time=%d", e.X, e.Y, e.Time)
	case Scroll:
		if e.Direction == ScrollSmooth {
			return fmt.Sprintf("scroll smooth %.2f,%.2f time=%d", e.DX, e.DY, e.Time)
		}
		return fmt.Sprintf("scroll %v time=%d emulated=%t", e.Direction, e.Time, e.Emulated())
	default:
		return fmt.Sprintf("%v seq=%d %.2f,%.2f time=%d", e.Type, e.Sequence, e.X, e.Y, e.Time)
	}
}

// Sink receives translated events in order.
type Sink func(*Event)
