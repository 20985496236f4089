// Package input turns raw per-device reports into semantic input events.
//
// The Translator holds the seat's input state: press counters shared by
// every device, the touch slot table, the autorepeat timer, scroll
// accumulators, keyboard modifier state and the pointer position. It
// runs on the event loop; backends post raw reports into it.
package input

import (
	"math"
	"time"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/loop"
)

// Defaults for a new seat.
const (
	DefaultRepeatDelay    = 250 * time.Millisecond
	DefaultRepeatInterval = 33 * time.Millisecond
	// DiscreteScrollStep is how many native scroll units make one
	// discrete step.
	DiscreteScrollStep = 10.0
	InitialPointerX    = 16
	InitialPointerY    = 16
)

// Options configures a Translator. Zero fields take the defaults.
type Options struct {
	RepeatDisabled bool
	RepeatDelay    time.Duration
	RepeatInterval time.Duration
	ScrollStep     float64
	PointerX       float64
	PointerY       float64

	Keymap      *Keymap
	Constrainer Constrainer
	Filter      MotionFilter
}

type repeatState struct {
	enabled  bool
	delay    time.Duration
	interval time.Duration

	timer  loop.Timer
	armed  time.Duration
	device *Device
	key    uint32
	count  int
	time   uint32
}

// Translator is the seat's native input state machine.
type Translator struct {
	devices *DeviceManager
	sched   loop.Scheduler
	sink    Sink

	presses     pressCounter
	buttonState ModifierType

	keymap   *Keymap
	keyboard *KeyboardState
	repeat   repeatState

	touches TouchTable

	scrollStep       float64
	accumDX, accumDY float64

	pointerX, pointerY float64
	constrainer        Constrainer
	filter             MotionFilter
}

// NewTranslator creates a translator delivering to sink. Timers are
// armed on sched.
func NewTranslator(devices *DeviceManager, sched loop.Scheduler, sink Sink, opts Options) *Translator {
	if opts.RepeatDelay <= 0 {
		opts.RepeatDelay = DefaultRepeatDelay
	}
	if opts.RepeatInterval <= 0 {
		opts.RepeatInterval = DefaultRepeatInterval
	}
	if opts.ScrollStep <= 0 {
		opts.ScrollStep = DiscreteScrollStep
	}
	if opts.PointerX == 0 && opts.PointerY == 0 {
		opts.PointerX, opts.PointerY = InitialPointerX, InitialPointerY
	}
	if opts.Keymap == nil {
		opts.Keymap = DefaultKeymap()
	}

	t := &Translator{
		devices:     devices,
		sched:       sched,
		sink:        sink,
		presses:     make(pressCounter),
		keymap:      opts.Keymap,
		keyboard:    NewKeyboardState(opts.Keymap),
		scrollStep:  opts.ScrollStep,
		pointerX:    opts.PointerX,
		pointerY:    opts.PointerY,
		constrainer: opts.Constrainer,
		filter:      opts.Filter,
	}
	t.repeat.enabled = !opts.RepeatDisabled
	t.repeat.delay = opts.RepeatDelay
	t.repeat.interval = opts.RepeatInterval

	devices.OnDeviceRemoved(t.deviceRemoved)
	return t
}

// Pointer returns the last recorded pointer position.
func (t *Translator) Pointer() (float64, float64) {
	return t.pointerX, t.pointerY
}

// WarpPointer moves the pointer without generating an event.
func (t *Translator) WarpPointer(x, y float64) {
	t.pointerX, t.pointerY = x, y
}

// Keyboard exposes the keyboard state.
func (t *Translator) Keyboard() *KeyboardState { return t.keyboard }

// Touches exposes the touch slot table.
func (t *Translator) Touches() *TouchTable { return &t.touches }

// ButtonState returns the held pointer button mask.
func (t *Translator) ButtonState() ModifierType { return t.buttonState }

// PressCount returns the current press count for a hardware code.
func (t *Translator) PressCount(code uint32) int { return t.presses[code] }

// SetConstrainer replaces the pointer constraint.
func (t *Translator) SetConstrainer(c Constrainer) { t.constrainer = c }

// SetFilter replaces the relative motion filter.
func (t *Translator) SetFilter(f MotionFilter) { t.filter = f }

// SetScrollStep changes how many native units make a discrete step.
func (t *Translator) SetScrollStep(step float64) {
	if step > 0 {
		t.scrollStep = step
	}
}

// SetRepeat changes autorepeat settings. Disabling cancels a pending
// repeat.
func (t *Translator) SetRepeat(enabled bool, delay, interval time.Duration) {
	t.repeat.enabled = enabled
	if delay > 0 {
		t.repeat.delay = delay
	}
	if interval > 0 {
		t.repeat.interval = interval
	}
	if !enabled {
		t.clearRepeat()
	}
}

// Repeat returns the autorepeat settings.
func (t *Translator) Repeat() (enabled bool, delay, interval time.Duration) {
	return t.repeat.enabled, t.repeat.delay, t.repeat.interval
}

// Repeating reports whether a repeat timer is armed.
func (t *Translator) Repeating() bool { return t.repeat.timer != nil }

// SetStage attaches or detaches every device. Detaching cancels a
// pending repeat.
func (t *Translator) SetStage(attached bool) {
	t.devices.SetStage(attached)
	if !attached {
		t.clearRepeat()
	}
}

func (t *Translator) state() ModifierType {
	return t.keyboard.Effective() | t.buttonState
}

func (t *Translator) emit(ev *Event) {
	if t.sink != nil {
		t.sink(ev)
	}
}

func (t *Translator) clearRepeat() {
	if t.repeat.timer != nil {
		t.repeat.timer.Stop()
		t.repeat.timer = nil
	}
	t.repeat.device = nil
}

func (t *Translator) armRepeat(d time.Duration) {
	t.repeat.armed = d
	t.repeat.timer = t.sched.AfterFunc(d, t.fireRepeat)
}

func (t *Translator) fireRepeat() {
	t.repeat.timer = nil
	dev := t.repeat.device
	if dev == nil {
		return
	}
	t.repeat.time += uint32(t.repeat.armed / time.Millisecond)
	t.NotifyKey(dev, t.repeat.time, t.repeat.key, Autorepeat, false)

	// From the third firing on the interval timer keeps running.
	if t.repeat.device != nil && t.repeat.timer == nil {
		t.armRepeat(t.repeat.interval)
	}
}

// NotifyKey translates a key report. Duplicate presses and early
// releases of a key held on several devices are dropped. Autorepeat is
// armed on press when the key repeats and cancelled by any release or a
// press of a non-repeating key.
func (t *Translator) NotifyKey(dev *Device, timeMs uint32, key uint32, state KeyState, updateKeys bool) {
	if state != Autorepeat {
		pressed := state == Pressed
		if !forward(pressed, t.presses.update(key, pressed)) {
			return
		}
	}

	if !dev.HasStage() {
		t.clearRepeat()
		return
	}

	ev := &Event{
		Type:   KeyPress,
		Time:   timeMs,
		Device: t.devices.CoreKeyboard(),
		Code:   key,
	}
	if state == Released {
		ev.Type = KeyRelease
	}

	var changed StateComponent
	if state != Autorepeat {
		changed = t.keyboard.UpdateKey(key, state == Pressed)
	} else {
		ev.Flags |= FlagRepeated
	}
	ev.State = t.state()
	ev.Modifiers = t.keyboard.Modifiers()

	t.emit(ev)

	if updateKeys && changed&LedsChanged != 0 {
		logger.Debug("keyboard lock state changed", "locked", ev.Modifiers.Locked)
	}

	if state == Released || !t.repeat.enabled || !t.keymap.Repeats(key) {
		t.clearRepeat()
		return
	}

	if state == Pressed {
		t.repeat.count = 0
		t.repeat.time = timeMs
	}
	t.repeat.count++
	t.repeat.key = key

	switch t.repeat.count {
	case 1, 2:
		t.clearRepeat()
		t.repeat.device = dev
		if t.repeat.count == 1 {
			t.armRepeat(t.repeat.delay)
		} else {
			t.armRepeat(t.repeat.interval)
		}
	}
}

// NotifyButton translates a pointer button report.
func (t *Translator) NotifyButton(dev *Device, timeMs uint32, code uint32, state KeyState) {
	pressed := state == Pressed
	if !forward(pressed, t.presses.update(code, pressed)) {
		return
	}
	if !dev.HasStage() {
		return
	}

	nr := ButtonNumber(code, dev.Type)
	if nr < 1 || nr > 12 {
		logger.Warn("unhandled button event", "code", code, "device", dev)
		return
	}

	ev := &Event{
		Type:   ButtonPress,
		Time:   timeMs,
		Device: t.devices.CorePointer(),
		Button: uint32(nr),
		Code:   code,
		X:      t.pointerX,
		Y:      t.pointerY,
	}
	if pressed {
		t.buttonState |= buttonMask(nr)
	} else {
		ev.Type = ButtonRelease
		t.buttonState &^= buttonMask(nr)
	}
	ev.State = t.state()
	t.emit(ev)
}

// NotifyRelativeMotion filters a relative move, adds it to the pointer
// position and constrains the result.
func (t *Translator) NotifyRelativeMotion(dev *Device, timeMs uint32, dx, dy, dxUnaccel, dyUnaccel float64) {
	if !dev.HasStage() {
		return
	}
	if t.filter != nil {
		dx, dy = t.filter.Filter(dev, t.pointerX, t.pointerY, dx, dy)
	}
	ev := t.motionEvent(dev, timeMs, t.pointerX+dx, t.pointerY+dy)
	ev.DX, ev.DY = dx, dy
	ev.DXUnaccel, ev.DYUnaccel = dxUnaccel, dyUnaccel
	t.emit(ev)
}

// NotifyAbsoluteMotion constrains an absolute position and records it.
func (t *Translator) NotifyAbsoluteMotion(dev *Device, timeMs uint32, x, y float64) {
	if !dev.HasStage() {
		return
	}
	t.emit(t.motionEvent(dev, timeMs, x, y))
}

func (t *Translator) motionEvent(dev *Device, timeMs uint32, x, y float64) *Event {
	if dev.Type != DeviceTypeTablet && t.constrainer != nil {
		x, y = t.constrainer.Constrain(timeMs, t.pointerX, t.pointerY, x, y)
	}
	dest := t.devices.CorePointer()
	if dev.Type == DeviceTypeTablet {
		dest = dev
	} else {
		t.pointerX, t.pointerY = x, y
	}
	return &Event{
		Type:   Motion,
		Time:   timeMs,
		Device: dest,
		X:      x,
		Y:      y,
		State:  t.state(),
	}
}

func (t *Translator) notifyScroll(dev *Device, timeMs uint32, dx, dy float64, source ScrollSource, finish ScrollFinish, emulated bool) {
	if !dev.HasStage() {
		return
	}
	ev := &Event{
		Type:      Scroll,
		Time:      timeMs,
		Device:    t.devices.CorePointer(),
		X:         t.pointerX,
		Y:         t.pointerY,
		DX:        dx / t.scrollStep,
		DY:        dy / t.scrollStep,
		Direction: ScrollSmooth,
		Source:    source,
		Finish:    finish,
		State:     t.state(),
	}
	if emulated {
		ev.Flags |= FlagEmulated
	}
	t.emit(ev)
}

func (t *Translator) notifyDiscreteScroll(dev *Device, timeMs uint32, dir ScrollDirection, source ScrollSource, emulated bool) {
	if dir == ScrollSmooth || !dev.HasStage() {
		return
	}
	ev := &Event{
		Type:      Scroll,
		Time:      timeMs,
		Device:    t.devices.CorePointer(),
		X:         t.pointerX,
		Y:         t.pointerY,
		Direction: dir,
		Source:    source,
		State:     t.state(),
	}
	if emulated {
		ev.Flags |= FlagEmulated
	}
	t.emit(ev)
}

// NotifyScrollContinuous forwards a smooth scroll and synthesizes a
// discrete event for every full step accumulated on an axis. The
// remainder is kept; a finish flag zeroes its axis.
func (t *Translator) NotifyScrollContinuous(dev *Device, timeMs uint32, dx, dy float64, source ScrollSource, finish ScrollFinish) {
	if finish&FinishHorizontal != 0 {
		t.accumDX = 0
	} else {
		t.accumDX += dx
	}
	if finish&FinishVertical != 0 {
		t.accumDY = 0
	} else {
		t.accumDY += dy
	}

	t.notifyScroll(dev, timeMs, dx, dy, source, finish, false)

	nx := int(math.Floor(math.Abs(t.accumDX) / t.scrollStep))
	ny := int(math.Floor(math.Abs(t.accumDY) / t.scrollStep))
	for i := 0; i < nx; i++ {
		dir := ScrollLeft
		if t.accumDX > 0 {
			dir = ScrollRight
		}
		t.notifyDiscreteScroll(dev, timeMs, dir, source, true)
	}
	for i := 0; i < ny; i++ {
		dir := ScrollUp
		if t.accumDY > 0 {
			dir = ScrollDown
		}
		t.notifyDiscreteScroll(dev, timeMs, dir, source, true)
	}

	t.accumDX = math.Mod(t.accumDX, t.scrollStep)
	t.accumDY = math.Mod(t.accumDY, t.scrollStep)
}

// ScrollAccumulators returns the fractional scroll totals per axis.
func (t *Translator) ScrollAccumulators() (float64, float64) {
	return t.accumDX, t.accumDY
}

// NotifyDiscreteScroll forwards a wheel click: an emulated smooth event
// of the equivalent distance and one discrete event.
func (t *Translator) NotifyDiscreteScroll(dev *Device, timeMs uint32, stepsX, stepsY float64, source ScrollSource) {
	var dir ScrollDirection
	switch {
	case stepsX > 0:
		dir = ScrollRight
	case stepsX < 0:
		dir = ScrollLeft
	case stepsY > 0:
		dir = ScrollDown
	case stepsY < 0:
		dir = ScrollUp
	default:
		logger.Warn("discrete scroll without direction", "device", dev)
		return
	}
	t.notifyScroll(dev, timeMs, stepsX*t.scrollStep, stepsY*t.scrollStep, source, FinishNone, true)
	t.notifyDiscreteScroll(dev, timeMs, dir, source, false)
}

// NotifyTouch translates a touch report. Begin assigns the lowest free
// seat slot; end and cancel free it.
func (t *Translator) NotifyTouch(dev *Device, kind EventType, timeMs uint32, deviceSlot int, x, y float64) {
	var ts *TouchState
	switch kind {
	case TouchBegin:
		if !dev.HasStage() {
			return
		}
		ts = t.touches.Acquire(dev, deviceSlot)
	case TouchUpdate, TouchEnd, TouchCancel:
		ts = t.touches.Lookup(dev, deviceSlot)
		if ts == nil {
			logger.Debug("touch report for unknown slot", "device", dev, "slot", deviceSlot)
			return
		}
		if kind != TouchUpdate {
			defer t.touches.Release(ts)
		}
		if !dev.HasStage() {
			return
		}
	default:
		logger.Warn("not a touch event", "type", kind)
		return
	}

	ts.X, ts.Y = x, y
	ev := &Event{
		Type:     kind,
		Time:     timeMs,
		Device:   t.devices.CorePointer(),
		X:        x,
		Y:        y,
		Sequence: ts.Sequence(),
		State:    t.state(),
	}
	if kind == TouchBegin || kind == TouchUpdate {
		ev.State |= Button1Mask
	}
	t.emit(ev)
}

// deviceRemoved drops state a removed device leaves behind: its repeat
// and its touches, which are cancelled.
func (t *Translator) deviceRemoved(dev *Device) {
	if t.repeat.device == dev {
		t.clearRepeat()
	}
	for _, ts := range t.touches.ReleaseDevice(dev) {
		t.emit(&Event{
			Type:     TouchCancel,
			Device:   t.devices.CorePointer(),
			X:        ts.X,
			Y:        ts.Y,
			Sequence: ts.Sequence(),
			State:    t.state(),
		})
	}
}
