package wire

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Message is a decoded request header plus an argument cursor. Argument
// readers record the first error and return zero values afterwards, so a
// handler can read every argument and check Err once.
type Message struct {
	Sender uint32
	Op     uint16

	data []byte
	off  int
	fds  *fdQueue
	err  error
	args []any
}

func newMessage(sender uint32, op uint16, body []byte, fds *fdQueue) *Message {
	return &Message{Sender: sender, Op: op, data: body, fds: fds}
}

// Decode parses one message from the front of b and returns it with the
// number of bytes consumed. Descriptor arguments cannot be decoded.
func Decode(b []byte) (*Message, int, error) {
	if len(b) < HeaderSize {
		return nil, 0, ErrShortMessage
	}
	sender := byteOrder.Uint32(b[0:])
	so := byteOrder.Uint32(b[4:])
	size := int(so >> 16)
	if size < HeaderSize || size > len(b) {
		return nil, 0, ErrShortMessage
	}
	body := append([]byte(nil), b[HeaderSize:size]...)
	return newMessage(sender, uint16(so&0xFFFF), body, nil), size, nil
}

// Err returns the first decoding error.
func (m *Message) Err() error {
	return m.err
}

func (m *Message) word() uint32 {
	if m.err != nil {
		return 0
	}
	if len(m.data)-m.off < 4 {
		m.err = ErrShortMessage
		return 0
	}
	v := byteOrder.Uint32(m.data[m.off:])
	m.off += 4
	return v
}

// Uint reads a uint argument, also used for object ids and new_id.
func (m *Message) Uint() uint32 {
	v := m.word()
	m.args = append(m.args, v)
	return v
}

// Int reads an int argument.
func (m *Message) Int() int32 {
	v := int32(m.word())
	m.args = append(m.args, v)
	return v
}

// Fixed reads a fixed argument.
func (m *Message) Fixed() Fixed {
	v := Fixed(m.word())
	m.args = append(m.args, v)
	return v
}

func (m *Message) bytes() []byte {
	length := m.word()
	if m.err != nil {
		return nil
	}
	total := int(length + padding(length))
	if len(m.data)-m.off < total {
		m.err = ErrShortMessage
		return nil
	}
	b := m.data[m.off : m.off+int(length)]
	m.off += total
	return b
}

// String reads a string argument. The empty wire string (length zero)
// is the null string and decodes to "".
func (m *Message) String() string {
	b := m.bytes()
	if m.err != nil || len(b) == 0 {
		m.args = append(m.args, "")
		return ""
	}
	if b[len(b)-1] != 0 {
		m.err = ErrBadString
		return ""
	}
	v := string(b[:len(b)-1])
	m.args = append(m.args, v)
	return v
}

// Array reads an array argument.
func (m *Message) Array() []byte {
	b := m.bytes()
	out := append([]byte(nil), b...)
	m.args = append(m.args, out)
	return out
}

// FD takes the next descriptor received on the connection.
func (m *Message) FD() *os.File {
	if m.err != nil {
		return nil
	}
	fd, ok := m.fds.pop()
	if !ok {
		m.err = ErrNoFD
		return nil
	}
	f := os.NewFile(uintptr(fd), "wayland-fd")
	m.args = append(m.args, f)
	return f
}

// Debug formats the decoded arguments the way WAYLAND_DEBUG does.
func (m *Message) Debug(iface, method string) string {
	args := make([]string, 0, len(m.args))
	for _, arg := range m.args {
		switch arg := arg.(type) {
		case string:
			args = append(args, strconv.Quote(arg))
		case *os.File:
			args = append(args, fmt.Sprintf("fd %d", arg.Fd()))
		case []byte:
			args = append(args, fmt.Sprintf("array[%d]", len(arg)))
		default:
			args = append(args, fmt.Sprint(arg))
		}
	}
	return fmt.Sprintf("%s@%d.%s(%s)", iface, m.Sender, method, strings.Join(args, ", "))
}
