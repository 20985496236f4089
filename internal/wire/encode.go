package wire

import (
	"fmt"
	"strconv"
	"strings"
)

type fdArg int

// MessageBuilder accumulates an event before it is written.
type MessageBuilder struct {
	// Method is the event name, kept for WAYLAND_DEBUG output.
	Method string

	sender uint32
	op     uint16
	data   []byte
	fds    []int
	args   []any
}

// NewEvent starts an event from object sender with opcode op.
func NewEvent(sender uint32, op uint16, method string) *MessageBuilder {
	return &MessageBuilder{
		Method: method,
		sender: sender,
		op:     op,
		data:   make([]byte, HeaderSize, 32),
	}
}

func (mb *MessageBuilder) word(v uint32) {
	mb.data = byteOrder.AppendUint32(mb.data, v)
}

// Uint appends a uint argument.
func (mb *MessageBuilder) Uint(v uint32) *MessageBuilder {
	mb.word(v)
	mb.args = append(mb.args, v)
	return mb
}

// Int appends an int argument.
func (mb *MessageBuilder) Int(v int32) *MessageBuilder {
	mb.word(uint32(v))
	mb.args = append(mb.args, v)
	return mb
}

// Fixed appends a fixed argument.
func (mb *MessageBuilder) Fixed(v Fixed) *MessageBuilder {
	mb.word(uint32(v))
	mb.args = append(mb.args, v)
	return mb
}

// String appends a NUL terminated, padded string.
func (mb *MessageBuilder) String(v string) *MessageBuilder {
	n := uint32(len(v) + 1)
	mb.word(n)
	mb.data = append(mb.data, v...)
	mb.data = append(mb.data, 0)
	for i := uint32(0); i < padding(n); i++ {
		mb.data = append(mb.data, 0)
	}
	mb.args = append(mb.args, v)
	return mb
}

// Array appends a padded byte array.
func (mb *MessageBuilder) Array(v []byte) *MessageBuilder {
	n := uint32(len(v))
	mb.word(n)
	mb.data = append(mb.data, v...)
	for i := uint32(0); i < padding(n); i++ {
		mb.data = append(mb.data, 0)
	}
	mb.args = append(mb.args, v)
	return mb
}

// FD attaches a descriptor. The caller keeps ownership of fd until the
// message is sent; the kernel duplicates it into the receiver.
func (mb *MessageBuilder) FD(fd int) *MessageBuilder {
	mb.fds = append(mb.fds, fd)
	mb.args = append(mb.args, fdArg(fd))
	return mb
}

// Bytes finalises the header and returns the encoded message.
func (mb *MessageBuilder) Bytes() ([]byte, error) {
	size := len(mb.data)
	if size > MaxMessageSize {
		return nil, fmt.Errorf("event %s is %d bytes, limit %d", mb.Method, size, MaxMessageSize)
	}
	byteOrder.PutUint32(mb.data[0:], mb.sender)
	byteOrder.PutUint32(mb.data[4:], uint32(size)<<16|uint32(mb.op))
	return mb.data, nil
}

// FDs returns the attached descriptors.
func (mb *MessageBuilder) FDs() []int {
	return mb.fds
}

// Debug formats the event the way WAYLAND_DEBUG does.
func (mb *MessageBuilder) Debug(iface string) string {
	args := make([]string, 0, len(mb.args))
	for _, arg := range mb.args {
		switch arg := arg.(type) {
		case string:
			args = append(args, strconv.Quote(arg))
		case fdArg:
			args = append(args, fmt.Sprintf("fd %d", int(arg)))
		case []byte:
			args = append(args, fmt.Sprintf("array[%d]", len(arg)))
		default:
			args = append(args, fmt.Sprint(arg))
		}
	}
	return fmt.Sprintf("-> %s@%d.%s(%s)", iface, mb.sender, mb.Method, strings.Join(args, ", "))
}
