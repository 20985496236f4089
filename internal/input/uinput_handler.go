package input

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ThomasT75/uinput"
)

var (
	// ErrInjectorClosed is returned when operating on a closed injector
	ErrInjectorClosed = errors.New("injector is closed")
	// ErrUnknownButton is returned for buttons the virtual mouse lacks
	ErrUnknownButton = errors.New("unknown button")
)

// virtualMouse is the part of uinput.Mouse the injector drives.
type virtualMouse interface {
	Move(x, y int32) error
	LeftPress() error
	LeftRelease() error
	RightPress() error
	RightRelease() error
	MiddlePress() error
	MiddleRelease() error
	Wheel(horizontal bool, delta int32) error
	Close() error
}

type virtualKeyboard interface {
	KeyDown(key int) error
	KeyUp(key int) error
	Close() error
}

// Injector drives a virtual uinput mouse and keyboard. The compositor
// reads them back through evdev like any other device, which makes it a
// way to exercise the whole input path by hand.
type Injector struct {
	mu       sync.Mutex
	mouse    virtualMouse
	keyboard virtualKeyboard
	closed   bool
}

// NewInjector creates the virtual devices on /dev/uinput.
func NewInjector(name string) (*Injector, error) {
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte(name+" mouse"))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual mouse: %w", err)
	}
	keyboard, err := uinput.CreateKeyboard("/dev/uinput", []byte(name+" keyboard"))
	if err != nil {
		mouse.Close()
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	return &Injector{mouse: mouse, keyboard: keyboard}, nil
}

func (in *Injector) do(fn func() error) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrInjectorClosed
	}
	return fn()
}

// Move sends relative motion.
func (in *Injector) Move(dx, dy int32) error {
	return in.do(func() error {
		if dx == 0 && dy == 0 {
			return nil
		}
		return in.mouse.Move(dx, dy)
	})
}

// Button presses or releases a positional button: 1 left, 2 middle,
// 3 right.
func (in *Injector) Button(button uint32, pressed bool) error {
	return in.do(func() error {
		switch button {
		case 1:
			if pressed {
				return in.mouse.LeftPress()
			}
			return in.mouse.LeftRelease()
		case 2:
			if pressed {
				return in.mouse.MiddlePress()
			}
			return in.mouse.MiddleRelease()
		case 3:
			if pressed {
				return in.mouse.RightPress()
			}
			return in.mouse.RightRelease()
		default:
			return fmt.Errorf("%w: %d", ErrUnknownButton, button)
		}
	})
}

// Click presses and releases button.
func (in *Injector) Click(button uint32) error {
	if err := in.Button(button, true); err != nil {
		return err
	}
	return in.Button(button, false)
}

// Scroll sends wheel clicks in direction, one event per step.
func (in *Injector) Scroll(dir ScrollDirection, steps int) error {
	return in.do(func() error {
		var horizontal bool
		var delta int32
		switch dir {
		case ScrollUp:
			delta = 1
		case ScrollDown:
			delta = -1
		case ScrollLeft:
			horizontal, delta = true, -1
		case ScrollRight:
			horizontal, delta = true, 1
		default:
			return fmt.Errorf("cannot inject scroll direction %v", dir)
		}
		for i := 0; i < steps; i++ {
			if err := in.mouse.Wheel(horizontal, delta); err != nil {
				return err
			}
		}
		return nil
	})
}

// Key presses or releases a linux key code.
func (in *Injector) Key(code uint32, pressed bool) error {
	return in.do(func() error {
		if pressed {
			return in.keyboard.KeyDown(int(code))
		}
		return in.keyboard.KeyUp(int(code))
	})
}

// Close destroys the virtual devices.
func (in *Injector) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil
	}
	in.closed = true
	return errors.Join(in.mouse.Close(), in.keyboard.Close())
}
