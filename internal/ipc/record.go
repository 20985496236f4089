// Package ipc publishes a trace of translated input and focus changes on
// a unix socket and reads it back for the monitor.
//
// Each frame is a big-endian uint32 length followed by a Record encoded
// as protobuf wire format.
package ipc

import (
	"errors"
	"fmt"
	"math"

	"github.com/bnema/waycore/internal/input"
	"google.golang.org/protobuf/encoding/protowire"
)

// Kind says what a Record describes.
type Kind uint32

const (
	KindInput Kind = iota + 1
	KindPointerFocus
	KindKeyboardFocus
	KindDevice
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindPointerFocus:
		return "pointer-focus"
	case KindKeyboardFocus:
		return "keyboard-focus"
	case KindDevice:
		return "device"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Record is one trace entry.
type Record struct {
	Kind   Kind
	TimeMs uint32
	// Event is the input event type, or "added"/"removed" for devices.
	Event   string
	Device  string
	X, Y    float64
	Button  uint32
	Code    uint32
	Surface string
	Serial  uint32
}

// Field numbers.
const (
	fieldKind    protowire.Number = 1
	fieldTime    protowire.Number = 2
	fieldEvent   protowire.Number = 3
	fieldDevice  protowire.Number = 4
	fieldX       protowire.Number = 5
	fieldY       protowire.Number = 6
	fieldButton  protowire.Number = 7
	fieldCode    protowire.Number = 8
	fieldSurface protowire.Number = 9
	fieldSerial  protowire.Number = 10
)

// FromEvent builds an input record.
func FromEvent(ev *input.Event) *Record {
	r := &Record{
		Kind:   KindInput,
		TimeMs: ev.Time,
		Event:  ev.Type.String(),
		X:      ev.X,
		Y:      ev.Y,
		Button: ev.Button,
		Code:   ev.Code,
	}
	if ev.Device != nil {
		r.Device = ev.Device.Name
	}
	return r
}

// Marshal encodes r. Zero fields are omitted.
func (r *Record) Marshal() []byte {
	var b []byte
	appendVarint := func(num protowire.Number, v uint64) {
		if v != 0 {
			b = protowire.AppendTag(b, num, protowire.VarintType)
			b = protowire.AppendVarint(b, v)
		}
	}
	appendString := func(num protowire.Number, s string) {
		if s != "" {
			b = protowire.AppendTag(b, num, protowire.BytesType)
			b = protowire.AppendString(b, s)
		}
	}
	appendDouble := func(num protowire.Number, v float64) {
		if v != 0 {
			b = protowire.AppendTag(b, num, protowire.Fixed64Type)
			b = protowire.AppendFixed64(b, math.Float64bits(v))
		}
	}

	appendVarint(fieldKind, uint64(r.Kind))
	appendVarint(fieldTime, uint64(r.TimeMs))
	appendString(fieldEvent, r.Event)
	appendString(fieldDevice, r.Device)
	appendDouble(fieldX, r.X)
	appendDouble(fieldY, r.Y)
	appendVarint(fieldButton, uint64(r.Button))
	appendVarint(fieldCode, uint64(r.Code))
	appendString(fieldSurface, r.Surface)
	appendVarint(fieldSerial, uint64(r.Serial))
	return b
}

// ErrMalformedRecord wraps decoding failures.
var ErrMalformedRecord = errors.New("malformed trace record")

// Unmarshal decodes b into r. Unknown fields are skipped.
func (r *Record) Unmarshal(b []byte) error {
	*r = Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedRecord, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && isVarintField(num):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
			}
			b = b[n:]
			r.setVarint(num, v)
		case typ == protowire.BytesType && isStringField(num):
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
			}
			b = b[n:]
			r.setString(num, v)
		case typ == protowire.Fixed64Type && (num == fieldX || num == fieldY):
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
			}
			b = b[n:]
			if num == fieldX {
				r.X = math.Float64frombits(v)
			} else {
				r.Y = math.Float64frombits(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

func isVarintField(num protowire.Number) bool {
	switch num {
	case fieldKind, fieldTime, fieldButton, fieldCode, fieldSerial:
		return true
	}
	return false
}

func isStringField(num protowire.Number) bool {
	return num == fieldEvent || num == fieldDevice || num == fieldSurface
}

func (r *Record) setVarint(num protowire.Number, v uint64) {
	switch num {
	case fieldKind:
		r.Kind = Kind(v)
	case fieldTime:
		r.TimeMs = uint32(v)
	case fieldButton:
		r.Button = uint32(v)
	case fieldCode:
		r.Code = uint32(v)
	case fieldSerial:
		r.Serial = uint32(v)
	}
}

func (r *Record) setString(num protowire.Number, v string) {
	switch num {
	case fieldEvent:
		r.Event = v
	case fieldDevice:
		r.Device = v
	case fieldSurface:
		r.Surface = v
	}
}

// String renders the record for logs and the monitor.
func (r *Record) String() string {
	switch r.Kind {
	case KindInput:
		s := fmt.Sprintf("%8d %-14s %7.1f,%-7.1f", r.TimeMs, r.Event, r.X, r.Y)
		if r.Button != 0 {
			s += fmt.Sprintf(" button=%d", r.Button)
		}
		if r.Code != 0 {
			s += fmt.Sprintf(" code=%d", r.Code)
		}
		if r.Device != "" {
			s += " [" + r.Device + "]"
		}
		return s
	case KindPointerFocus, KindKeyboardFocus:
		target := r.Surface
		if target == "" {
			target = "none"
		}
		return fmt.Sprintf("%-14s -> %s serial=%d", r.Kind, target, r.Serial)
	default:
		return fmt.Sprintf("%-14s %s %s", r.Kind, r.Event, r.Device)
	}
}
