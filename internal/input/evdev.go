package input

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"github.com/bnema/waycore/internal/logger"
	"github.com/fsnotify/fsnotify"
	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"
)

// Poster runs a function on the event loop.
type Poster interface {
	Post(fn func())
}

// BackendOptions configures device discovery.
type BackendOptions struct {
	Glob   string   // e.g. /dev/input/event*
	Grab   bool     // take exclusive access with EVIOCGRAB
	Ignore []string // substrings of device names to skip
	Bounds image.Rectangle
}

type evdevHandle struct {
	dev    *evdev.InputDevice
	device *Device
	cancel context.CancelFunc
	done   chan struct{}
}

// EvdevBackend reads kernel input devices and feeds a Translator. Reads
// happen on one goroutine per device; translation happens on the loop.
type EvdevBackend struct {
	opts    BackendOptions
	tr      *Translator
	devices *DeviceManager
	poster  Poster

	mu      sync.Mutex
	handles map[string]*evdevHandle
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewEvdevBackend creates a backend. Nothing is opened until Start.
func NewEvdevBackend(tr *Translator, devices *DeviceManager, poster Poster, opts BackendOptions) *EvdevBackend {
	if opts.Glob == "" {
		opts.Glob = "/dev/input/event*"
	}
	return &EvdevBackend{
		opts:    opts,
		tr:      tr,
		devices: devices,
		poster:  poster,
		handles: make(map[string]*evdevHandle),
	}
}

// Start opens every matching device and watches the directory for hotplug.
func (b *EvdevBackend) Start(ctx context.Context) error {
	paths, err := filepath.Glob(b.opts.Glob)
	if err != nil {
		return fmt.Errorf("bad device glob %q: %w", b.opts.Glob, err)
	}
	for _, p := range paths {
		if err := b.open(ctx, p); err != nil {
			logger.Debug("skipping input device", "path", p, "err", err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create device watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(b.opts.Glob)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(b.opts.Glob), err)
	}
	b.watcher = w

	b.wg.Add(1)
	go b.watch(ctx)
	return nil
}

// Stop closes all devices and waits for readers to exit.
func (b *EvdevBackend) Stop() {
	if b.watcher != nil {
		b.watcher.Close()
	}
	b.mu.Lock()
	paths := make([]string, 0, len(b.handles))
	for p := range b.handles {
		paths = append(paths, p)
	}
	b.mu.Unlock()
	for _, p := range paths {
		b.close(p)
	}
	b.wg.Wait()
}

// SetBounds changes the rectangle absolute axes are mapped onto.
func (b *EvdevBackend) SetBounds(r image.Rectangle) {
	b.mu.Lock()
	b.opts.Bounds = r
	b.mu.Unlock()
}

// ReleaseGrabs drops exclusive access to every open device so the rest of
// the system sees input again. Devices opened later are not grabbed.
func (b *EvdevBackend) ReleaseGrabs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opts.Grab {
		return 0
	}
	b.opts.Grab = false
	n := 0
	for path, h := range b.handles {
		if err := h.dev.Release(); err != nil {
			logger.Warn("failed to release device grab", "path", path, "err", err)
			continue
		}
		n++
	}
	return n
}

func (b *EvdevBackend) watch(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if match, _ := filepath.Match(b.opts.Glob, ev.Name); !match {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				if err := b.open(ctx, ev.Name); err != nil {
					logger.Debug("skipping hotplugged device", "path", ev.Name, "err", err)
				}
			case ev.Has(fsnotify.Remove):
				b.close(ev.Name)
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("device watcher error", "err", err)
		}
	}
}

// ErrIgnoredDevice is returned for devices filtered out by name or type.
var ErrIgnoredDevice = errors.New("ignored device")

// IgnoredBy reports the first pattern that is a case-insensitive
// substring of name.
func IgnoredBy(name string, patterns []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

func (b *EvdevBackend) open(ctx context.Context, path string) error {
	b.mu.Lock()
	_, exists := b.handles[path]
	b.mu.Unlock()
	if exists {
		return nil
	}

	dev, err := evdev.Open(path)
	if err != nil {
		return err
	}
	if pattern, ok := IgnoredBy(dev.Name, b.opts.Ignore); ok {
		dev.File.Close()
		return fmt.Errorf("%w: %s matches %q", ErrIgnoredDevice, dev.Name, pattern)
	}
	typ, ok := classify(capabilitySet(dev))
	if !ok {
		dev.File.Close()
		return fmt.Errorf("%w: %s has no pointer, key or touch axes", ErrIgnoredDevice, dev.Name)
	}
	if b.opts.Grab {
		if err := dev.Grab(); err != nil {
			dev.File.Close()
			return fmt.Errorf("failed to grab %s: %w", path, err)
		}
	}

	rctx, cancel := context.WithCancel(ctx)
	h := &evdevHandle{dev: dev, cancel: cancel, done: make(chan struct{})}

	b.mu.Lock()
	b.handles[path] = h
	bounds := b.opts.Bounds
	b.mu.Unlock()

	dec := newDecoder(b.tr, nil)
	dec.bounds = bounds
	fd := dev.File.Fd()
	dec.absX, _ = absRange(fd, evdev.ABS_X)
	dec.absY, _ = absRange(fd, evdev.ABS_Y)
	dec.mtX, _ = absRange(fd, evdev.ABS_MT_POSITION_X)
	dec.mtY, _ = absRange(fd, evdev.ABS_MT_POSITION_Y)

	// Registration is a loop-side mutation; readers start once it is done.
	b.poster.Post(func() {
		h.device = b.devices.AddDevice(dev.Name, path, typ)
		dec.dev = h.device
		logger.Info("input device added", "device", h.device, "type", typ)
		b.wg.Add(1)
		go b.read(rctx, h, dec)
	})
	return nil
}

func (b *EvdevBackend) close(path string) {
	b.mu.Lock()
	h, ok := b.handles[path]
	delete(b.handles, path)
	b.mu.Unlock()
	if !ok {
		return
	}
	h.cancel()
	b.mu.Lock()
	grabbed := b.opts.Grab
	b.mu.Unlock()
	if grabbed {
		_ = h.dev.Release()
	}
	// Closing the file unblocks a pending read.
	h.dev.File.Close()
	b.poster.Post(func() {
		if h.device != nil {
			logger.Info("input device removed", "device", h.device)
			b.devices.RemoveDevice(h.device)
		}
	})
}

func (b *EvdevBackend) read(ctx context.Context, h *evdevHandle, dec *decoder) {
	defer b.wg.Done()
	defer close(h.done)
	for {
		events, err := h.dev.Read()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			if errors.Is(err, os.ErrClosed) || errors.Is(err, unix.ENODEV) {
				return
			}
			logger.Warn("input read failed", "path", h.dev.Fn, "err", err)
			return
		}
		batch := make([]evdev.InputEvent, len(events))
		copy(batch, events)
		b.poster.Post(func() {
			for i := range batch {
				dec.process(&batch[i])
			}
		})
	}
}

// capabilities is the subset of a device's capability bits we classify on.
type capabilities map[uint16]map[uint16]bool

func capabilitySet(dev *evdev.InputDevice) capabilities {
	caps := make(capabilities)
	for t, codes := range dev.Capabilities {
		set := make(map[uint16]bool, len(codes))
		for _, c := range codes {
			set[uint16(c.Code)] = true
		}
		caps[uint16(t.Type)] = set
	}
	return caps
}

func (c capabilities) has(typ, code uint16) bool { return c[typ][code] }

// classify picks a DeviceType from capability bits. Devices with nothing we
// translate report false.
func classify(c capabilities) (DeviceType, bool) {
	switch {
	case c.has(evdev.EV_ABS, evdev.ABS_MT_POSITION_X) && c.has(evdev.EV_KEY, evdev.BTN_TOOL_FINGER):
		return DeviceTypeTouchpad, true
	case c.has(evdev.EV_ABS, evdev.ABS_MT_POSITION_X):
		return DeviceTypeTouchscreen, true
	case c.has(evdev.EV_KEY, evdev.BTN_TOOL_PEN) || c.has(evdev.EV_KEY, evdev.BTN_STYLUS):
		return DeviceTypeTablet, true
	case c.has(evdev.EV_REL, evdev.REL_X) || c.has(evdev.EV_KEY, evdev.BTN_LEFT):
		return DeviceTypePointer, true
	case c.has(evdev.EV_KEY, evdev.KEY_A) || c.has(evdev.EV_KEY, evdev.KEY_ENTER) || c.has(evdev.EV_KEY, evdev.KEY_POWER):
		return DeviceTypeKeyboard, true
	}
	return 0, false
}

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value, Minimum, Maximum, Fuzz, Flat, Resolution int32
}

// eviocgabs builds _IOR('E', 0x40 + axis, struct input_absinfo).
func eviocgabs(axis uint) uintptr {
	const (
		iocRead   = 2
		sizeShift = 16
		dirShift  = 30
	)
	return uintptr(iocRead<<dirShift | unsafe.Sizeof(absInfo{})<<sizeShift | 'E'<<8 | uintptr(0x40+axis))
}

func absRange(fd uintptr, axis uint) (AbsRange, error) {
	var info absInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, eviocgabs(axis),
		uintptr(unsafe.Pointer(&info))) //nolint:gosec // required for ioctl syscall
	if errno != 0 {
		return AbsRange{}, errno
	}
	return AbsRange{Min: info.Minimum, Max: info.Maximum}, nil
}

// DeviceSummary describes a kernel input device without opening it for
// reading.
type DeviceSummary struct {
	Path    string
	Name    string
	Phys    string
	Type    DeviceType
	Handled bool // false when the translator has nothing to read from it
	Err     error
}

// ScanDevices opens every device matching glob long enough to read its
// name and capabilities. Devices that cannot be opened are reported with
// Err set.
func ScanDevices(glob string) ([]DeviceSummary, error) {
	if glob == "" {
		glob = "/dev/input/event*"
	}
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("bad device glob %q: %w", glob, err)
	}
	out := make([]DeviceSummary, 0, len(paths))
	for _, p := range paths {
		dev, err := evdev.Open(p)
		if err != nil {
			out = append(out, DeviceSummary{Path: p, Err: err})
			continue
		}
		typ, ok := classify(capabilitySet(dev))
		out = append(out, DeviceSummary{Path: p, Name: dev.Name, Phys: dev.Phys, Type: typ, Handled: ok})
		dev.File.Close()
	}
	return out, nil
}
