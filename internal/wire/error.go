package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrShortMessage means a header announced more bytes than arrived.
	ErrShortMessage = errors.New("message shorter than its header claims")

	// ErrNoFD means a message referenced a descriptor that was not sent.
	ErrNoFD = errors.New("no file descriptor available")

	// ErrBadString means a string argument was not NUL terminated.
	ErrBadString = errors.New("string is not null-terminated")
)

// UnknownOpError is returned by a dispatcher given an opcode its
// interface does not define.
type UnknownOpError struct {
	Interface string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown opcode for %v: %v", err.Interface, err.Op)
}

// UnknownObjectError is returned when a message names an object id the
// client does not own.
type UnknownObjectError struct {
	ID uint32
}

func (err UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown object id: %v", err.ID)
}

// ProtocolError is a fatal client error sent as wl_display.error.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %v (code %v): %v", err.Object, err.Code, err.Message)
}
