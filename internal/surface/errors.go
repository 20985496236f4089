package surface

import (
	"errors"
	"fmt"
)

// Error codes carried by ProtocolError. They match the wl_display,
// wl_surface, wl_shell and wl_subcompositor enums the protocol layer
// reports them under.
const (
	CodeInvalidObject    uint32 = 0 // wl_display.error.invalid_object
	CodeInvalidScale     uint32 = 0 // wl_surface.error.invalid_scale
	CodeInvalidTransform uint32 = 1 // wl_surface.error.invalid_transform
	CodeRole             uint32 = 0 // wl_shell.error.role
	CodeBadSurface       uint32 = 0 // wl_subcompositor.error.bad_surface
)

var (
	// ErrDuplicateSurface means a client reused a live surface id.
	ErrDuplicateSurface = errors.New("surface id already in use")

	// ErrSurfaceDestroyed is returned for requests on a dead surface.
	ErrSurfaceDestroyed = errors.New("surface destroyed")
)

// ProtocolError is a client error that terminates only the offending
// connection.
type ProtocolError struct {
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

func protocolErrorf(code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{Code: code, Message: fmt.Sprintf(format, args...)}
}
