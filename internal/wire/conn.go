package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// fdQueue is filled by the reading goroutine and drained by whoever
// decodes the message, usually the compositor loop.
type fdQueue struct {
	mu  sync.Mutex
	fds []int
}

func (q *fdQueue) push(fds ...int) {
	q.mu.Lock()
	q.fds = append(q.fds, fds...)
	q.mu.Unlock()
}

func (q *fdQueue) pop() (int, bool) {
	if q == nil {
		return -1, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.fds) == 0 {
		return -1, false
	}
	fd := q.fds[0]
	q.fds = q.fds[1:]
	return fd, true
}

// closeAll closes descriptors nobody claimed.
func (q *fdQueue) closeAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, fd := range q.fds {
		unix.Close(fd)
	}
	q.fds = nil
}

// Conn is one end of a Wayland socket. ReadMessage must only be called
// from a single goroutine; Send may be called concurrently with it.
type Conn struct {
	conn *net.UnixConn

	in  []byte
	fds fdQueue

	wmu sync.Mutex
}

// NewConn wraps c. Close the Conn instead of c.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{conn: c}
}

// Close closes the socket and any descriptors received but not consumed.
func (c *Conn) Close() error {
	c.fds.closeAll()
	return c.conn.Close()
}

// Credentials returns the peer's pid, uid and gid.
func (c *Conn) Credentials() (*unix.Ucred, error) {
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return nil, err
	}
	var cred *unix.Ucred
	var serr error
	err = raw.Control(func(fd uintptr) {
		cred, serr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return nil, err
	}
	return cred, serr
}

func (c *Conn) fill() error {
	buf := make([]byte, MaxMessageSize)
	oob := make([]byte, unix.CmsgSpace(MaxFDs*4))
	n, oobn, _, _, err := c.conn.ReadMsgUnix(buf, oob)
	if oobn > 0 {
		if perr := c.parseRights(oob[:oobn]); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	if n <= 0 {
		return io.EOF
	}
	c.in = append(c.in, buf[:n]...)
	return nil
}

func (c *Conn) parseRights(oob []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix rights: %w", err)
		}
		c.fds.push(fds...)
	}
	return nil
}

// ReadMessage blocks until a complete message is buffered and returns it.
func (c *Conn) ReadMessage() (*Message, error) {
	for len(c.in) < HeaderSize {
		if err := c.fill(); err != nil {
			return nil, err
		}
	}

	sender := byteOrder.Uint32(c.in[0:])
	so := byteOrder.Uint32(c.in[4:])
	size := int(so >> 16)
	op := uint16(so & 0xFFFF)
	if size < HeaderSize || size%4 != 0 {
		return nil, fmt.Errorf("invalid message size %d", size)
	}

	for len(c.in) < size {
		if err := c.fill(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrShortMessage
			}
			return nil, err
		}
	}

	body := append([]byte(nil), c.in[HeaderSize:size]...)
	c.in = c.in[size:]
	return newMessage(sender, op, body, &c.fds), nil
}

// Send writes an encoded event with its descriptors.
func (c *Conn) Send(mb *MessageBuilder) error {
	data, err := mb.Bytes()
	if err != nil {
		return err
	}

	var oob []byte
	if fds := mb.FDs(); len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, _, err = c.conn.WriteMsgUnix(data, oob, nil)
	return err
}
