package input

// touchTableGrowth is how many seat slots are added when the table is
// full.
const touchTableGrowth = 5

// TouchState is one live contact.
type TouchState struct {
	SeatSlot   int
	DeviceSlot int
	Device     *Device
	X, Y       float64
}

// Sequence is the event sequence id of the contact. Zero is reserved.
func (ts *TouchState) Sequence() uint32 {
	return uint32(ts.SeatSlot) + 1
}

// TouchTable maps device-local slots to compact seat-local slots. The
// lowest free seat slot is always handed out first.
type TouchTable struct {
	slots []*TouchState
}

// Acquire assigns the first free seat slot to a new contact.
func (t *TouchTable) Acquire(dev *Device, deviceSlot int) *TouchState {
	slot := 0
	for slot < len(t.slots) && t.slots[slot] != nil {
		slot++
	}
	if slot >= len(t.slots) {
		t.slots = append(t.slots, make([]*TouchState, touchTableGrowth)...)
	}
	ts := &TouchState{SeatSlot: slot, DeviceSlot: deviceSlot, Device: dev}
	t.slots[slot] = ts
	return ts
}

// Lookup finds the live contact for a device slot.
func (t *TouchTable) Lookup(dev *Device, deviceSlot int) *TouchState {
	for _, ts := range t.slots {
		if ts != nil && ts.Device == dev && ts.DeviceSlot == deviceSlot {
			return ts
		}
	}
	return nil
}

// Release frees the contact's seat slot for immediate reuse.
func (t *TouchTable) Release(ts *TouchState) {
	if ts.SeatSlot < len(t.slots) && t.slots[ts.SeatSlot] == ts {
		t.slots[ts.SeatSlot] = nil
	}
}

// ReleaseDevice frees every contact of dev and returns them.
func (t *TouchTable) ReleaseDevice(dev *Device) []*TouchState {
	var out []*TouchState
	for i, ts := range t.slots {
		if ts != nil && ts.Device == dev {
			out = append(out, ts)
			t.slots[i] = nil
		}
	}
	return out
}

// Active counts live contacts.
func (t *TouchTable) Active() int {
	n := 0
	for _, ts := range t.slots {
		if ts != nil {
			n++
		}
	}
	return n
}

// Capacity is the allocated number of seat slots.
func (t *TouchTable) Capacity() int {
	return len(t.slots)
}
