package ipc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// Client reads trace records from a running compositor.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the trace socket.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to trace socket %s: %w", socketPath, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Next blocks until the next record arrives.
func (c *Client) Next() (*Record, error) {
	var length uint32
	if err := binary.Read(c.r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrMalformedRecord, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.r, data); err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	r := &Record{}
	if err := r.Unmarshal(data); err != nil {
		return nil, err
	}
	return r, nil
}

// Close disconnects.
func (c *Client) Close() error {
	return c.conn.Close()
}
