package input

import (
	"fmt"

	"github.com/bnema/waycore/internal/logger"
	"golang.org/x/exp/slices"
)

// DeviceType classifies an input device.
type DeviceType int

const (
	DeviceTypePointer DeviceType = iota
	DeviceTypeKeyboard
	DeviceTypeTouchpad
	DeviceTypeTouchscreen
	DeviceTypeTablet
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypePointer:
		return "pointer"
	case DeviceTypeKeyboard:
		return "keyboard"
	case DeviceTypeTouchpad:
		return "touchpad"
	case DeviceTypeTouchscreen:
		return "touchscreen"
	case DeviceTypeTablet:
		return "tablet"
	}
	return "unknown"
}

// Device is one physical or virtual input device.
type Device struct {
	ID   int
	Name string
	Path string
	Type DeviceType
	// Virtual is set for the core devices every event is re-targeted to.
	Virtual bool

	stage bool
}

func (d *Device) String() string {
	if d == nil {
		return "<no device>"
	}
	return fmt.Sprintf("%s#%d(%s)", d.Name, d.ID, d.Type)
}

// HasStage reports whether the device is attached to a stage. Events
// from stage-less devices are dropped.
func (d *Device) HasStage() bool { return d != nil && d.stage }

// DeviceManager tracks the seat's devices and announces additions and
// removals.
type DeviceManager struct {
	devices []*Device
	nextID  int
	stage   bool

	corePointer  *Device
	coreKeyboard *Device

	added   []func(*Device)
	removed []func(*Device)
}

// NewDeviceManager creates the manager with its virtual core pointer and
// keyboard.
func NewDeviceManager() *DeviceManager {
	m := &DeviceManager{nextID: 2}
	m.corePointer = &Device{ID: 0, Name: "core pointer", Type: DeviceTypePointer, Virtual: true}
	m.coreKeyboard = &Device{ID: 1, Name: "core keyboard", Type: DeviceTypeKeyboard, Virtual: true}
	return m
}

// CorePointer returns the virtual pointer all pointer events are
// re-targeted to.
func (m *DeviceManager) CorePointer() *Device { return m.corePointer }

// CoreKeyboard returns the virtual keyboard.
func (m *DeviceManager) CoreKeyboard() *Device { return m.coreKeyboard }

// OnDeviceAdded registers fn for device additions.
func (m *DeviceManager) OnDeviceAdded(fn func(*Device)) {
	m.added = append(m.added, fn)
}

// OnDeviceRemoved registers fn for device removals.
func (m *DeviceManager) OnDeviceRemoved(fn func(*Device)) {
	m.removed = append(m.removed, fn)
}

// AddDevice registers a new device. It inherits the current stage.
func (m *DeviceManager) AddDevice(name, path string, typ DeviceType) *Device {
	d := &Device{ID: m.nextID, Name: name, Path: path, Type: typ, stage: m.stage}
	m.nextID++
	m.devices = append(m.devices, d)
	logger.Info("input device added", "device", d, "path", path)
	for _, fn := range m.added {
		fn(d)
	}
	return d
}

// RemoveDevice unregisters d. Removing an unknown device is a no-op.
func (m *DeviceManager) RemoveDevice(d *Device) {
	i := slices.Index(m.devices, d)
	if i < 0 {
		return
	}
	m.devices = slices.Delete(m.devices, i, i+1)
	d.stage = false
	logger.Info("input device removed", "device", d)
	for _, fn := range m.removed {
		fn(d)
	}
}

// Device returns the device with the given id, or nil.
func (m *DeviceManager) Device(id int) *Device {
	switch id {
	case m.corePointer.ID:
		return m.corePointer
	case m.coreKeyboard.ID:
		return m.coreKeyboard
	}
	for _, d := range m.devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// DeviceByPath returns the device opened from path, or nil.
func (m *DeviceManager) DeviceByPath(path string) *Device {
	for _, d := range m.devices {
		if d.Path == path {
			return d
		}
	}
	return nil
}

// Devices returns the physical devices in addition order.
func (m *DeviceManager) Devices() []*Device {
	return slices.Clone(m.devices)
}

// SetStage attaches or detaches every device, core devices included.
func (m *DeviceManager) SetStage(attached bool) {
	m.stage = attached
	m.corePointer.stage = attached
	m.coreKeyboard.stage = attached
	for _, d := range m.devices {
		d.stage = attached
	}
}

// SetDeviceStage attaches or detaches a single device.
func (m *DeviceManager) SetDeviceStage(d *Device, attached bool) {
	d.stage = attached
}
