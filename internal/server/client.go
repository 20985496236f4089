package server

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
	"golang.org/x/exp/slices"
)

// wl_display error codes.
const (
	errInvalidObject  uint32 = 0
	errInvalidMethod  uint32 = 1
	errNoMemory       uint32 = 2
	errImplementation uint32 = 3
)

// Ids at or above this are allocated by the server.
const serverIDStart = 0xff000000

// object is a protocol object owned by one client.
type object interface {
	ID() uint32
	Interface() string
	// dispatch handles one request.
	dispatch(m *wire.Message) error
	// destroy releases what the object holds. It runs once, on an explicit
	// destructor or on disconnect.
	destroy()
}

// resource is embedded by every object.
type resource struct {
	id      uint32
	client  *Client
	version uint32
}

func (r *resource) ID() uint32 { return r.id }

func (r *resource) event(op uint16, name string) *wire.MessageBuilder {
	return wire.NewEvent(r.id, op, name)
}

// Client is one connection and its object table.
type Client struct {
	srv  *Server
	id   surface.ClientID
	conn *wire.Conn
	pid  int32

	objects map[uint32]object
	// shellSurfaces maps a surface to its wl_shell_surface.
	shellSurfaces map[*surface.Surface]*shellSurface

	closed bool
}

func newClient(srv *Server, id surface.ClientID, conn *wire.Conn) *Client {
	c := &Client{
		srv:           srv,
		id:            id,
		conn:          conn,
		objects:       make(map[uint32]object),
		shellSurfaces: make(map[*surface.Surface]*shellSurface),
	}
	c.objects[1] = &display{resource: resource{id: 1, client: c, version: 1}}
	return c
}

// ID returns the client identity shared with the surface package.
func (c *Client) ID() surface.ClientID { return c.id }

// read decodes requests and posts them to the loop until the socket fails.
func (c *Client) read() {
	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("client read failed", "client", c.id, "err", err)
			}
			c.srv.opts.Loop.Post(c.close)
			return
		}
		c.srv.opts.Loop.Post(func() { c.dispatch(msg) })
	}
}

func (c *Client) dispatch(m *wire.Message) {
	if c.closed {
		return
	}
	obj, ok := c.objects[m.Sender]
	if !ok {
		// Requests racing a server-side destroy are ignored, as libwayland
		// does for zombie ids.
		logger.Debug("request for unknown object", "client", c.id, "id", m.Sender, "op", m.Op)
		return
	}

	err := obj.dispatch(m)
	if logger.WireDebug() {
		logger.Debug(m.Debug(obj.Interface(), requestName(obj.Interface(), m.Op)))
	}
	if err == nil {
		err = m.Err()
	}
	if err != nil {
		c.fail(m.Sender, err)
	}
}

// fail reports err to the client as wl_display.error and disconnects it.
func (c *Client) fail(sender uint32, err error) {
	var (
		object = sender
		code   = errImplementation
		msg    = err.Error()
	)

	var wpe *wire.ProtocolError
	var spe *surface.ProtocolError
	var unknownOp wire.UnknownOpError
	var unknownObj wire.UnknownObjectError
	switch {
	case errors.As(err, &wpe):
		object, code, msg = wpe.Object, wpe.Code, wpe.Message
	case errors.As(err, &spe):
		code, msg = spe.Code, spe.Message
	case errors.As(err, &unknownOp):
		object, code = 1, errInvalidMethod
	case errors.As(err, &unknownObj):
		object, code = 1, errInvalidObject
	case errors.Is(err, surface.ErrSurfaceDestroyed), errors.Is(err, surface.ErrDuplicateSurface):
		object, code = 1, errInvalidObject
	case errors.Is(err, wire.ErrShortMessage), errors.Is(err, wire.ErrBadString), errors.Is(err, wire.ErrNoFD):
		object, code = 1, errInvalidMethod
	}

	logger.Warn("client protocol error", "client", c.id, "pid", c.pid, "object", object, "code", code, "err", msg)
	c.send(wire.NewEvent(1, 0, "error").Uint(object).Uint(code).String(msg), "wl_display")
	c.close()
}

// protocolError builds a wl_display.error for obj.
func protocolError(obj object, code uint32, format string, args ...any) error {
	return &wire.ProtocolError{Object: obj.ID(), Code: code, Message: fmt.Sprintf(format, args...)}
}

func (c *Client) send(mb *wire.MessageBuilder, iface string) {
	if c.closed {
		return
	}
	if logger.WireDebug() {
		logger.Debug(mb.Debug(iface))
	}
	if err := c.conn.Send(mb); err != nil {
		logger.Debug("client write failed", "client", c.id, "err", err)
		c.srv.opts.Loop.Post(c.close)
		c.closed = true
	}
}

// add registers a client-allocated object.
func (c *Client) add(obj object) error {
	id := obj.ID()
	if id == 0 || id >= serverIDStart {
		return &wire.ProtocolError{Object: 1, Code: errInvalidObject, Message: fmt.Sprintf("invalid new id %d", id)}
	}
	if _, ok := c.objects[id]; ok {
		return &wire.ProtocolError{Object: 1, Code: errInvalidObject, Message: fmt.Sprintf("id %d already in use", id)}
	}
	c.objects[id] = obj
	return nil
}

// lookup resolves an object argument. id 0 is null and returns nil.
func lookup[T object](c *Client, id uint32, nullable bool) (T, error) {
	var zero T
	if id == 0 {
		if nullable {
			return zero, nil
		}
		return zero, &wire.ProtocolError{Object: 1, Code: errInvalidObject, Message: "null object argument"}
	}
	obj, ok := c.objects[id]
	if !ok {
		return zero, wire.UnknownObjectError{ID: id}
	}
	t, ok := obj.(T)
	if !ok {
		return zero, &wire.ProtocolError{
			Object:  1,
			Code:    errInvalidObject,
			Message: fmt.Sprintf("object %d is a %s", id, obj.Interface()),
		}
	}
	return t, nil
}

// remove destroys an object and acknowledges the id.
func (c *Client) remove(id uint32) {
	obj, ok := c.objects[id]
	if !ok {
		return
	}
	delete(c.objects, id)
	obj.destroy()
	if id < serverIDStart {
		c.send(wire.NewEvent(1, 1, "delete_id").Uint(id), "wl_display")
	}
}

// close tears the client down. Surfaces go first so that buffers and
// callbacks they reference are released through them.
func (c *Client) close() {
	if _, ok := c.srv.clients[c.id]; !ok {
		return
	}
	c.closed = true

	ids := make([]uint32, 0, len(c.objects))
	for id := range c.objects {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uint32) int {
		if oa, ob := destroyOrder(c.objects[a]), destroyOrder(c.objects[b]); oa != ob {
			return cmp.Compare(oa, ob)
		}
		return cmp.Compare(a, b)
	})
	for _, id := range ids {
		obj, ok := c.objects[id]
		if !ok {
			continue
		}
		delete(c.objects, id)
		obj.destroy()
	}

	if st := c.srv.opts.Seat; st != nil {
		st.RemoveClient(c.id)
	}
	if comp := c.srv.opts.Compositor; comp != nil {
		comp.DestroyClient(c.id)
	}
	c.conn.Close()
	c.srv.removeClient(c)
}

func destroyOrder(obj object) int {
	switch obj.(type) {
	case *surfaceObject:
		return 0
	case *bufferObject, *shmPool:
		return 2
	default:
		return 1
	}
}
