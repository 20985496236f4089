package server

import (
	"github.com/bnema/waycore/internal/wire"
)

// global is an advertised interface.
type global struct {
	name    uint32
	iface   string
	version uint32
	bind    func(c *Client, id, version uint32) error
}

func (s *Server) addGlobal(iface string, version uint32, bind func(c *Client, id, version uint32) error) {
	s.globals = append(s.globals, &global{
		name:    uint32(len(s.globals) + 1),
		iface:   iface,
		version: version,
		bind:    bind,
	})
}

func (s *Server) registerGlobals() {
	s.addGlobal(ifaceCompositor, versionCompositor, bindCompositor)
	s.addGlobal(ifaceSubcompositor, versionSubcompositor, bindSubcompositor)
	s.addGlobal(ifaceShm, versionShm, bindShm)
	s.addGlobal(ifaceSeat, versionSeat, bindSeat)
	s.addGlobal(ifaceShell, versionShell, bindShell)
}

type display struct {
	resource
}

func (d *display) Interface() string { return ifaceDisplay }
func (d *display) destroy()          {}

func (d *display) dispatch(m *wire.Message) error {
	c := d.client
	switch m.Op {
	case 0: // sync
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		cb := &callback{resource: resource{id: id, client: c, version: 1}}
		if err := c.add(cb); err != nil {
			return err
		}
		cb.Done(c.srv.serial())
		return nil
	case 1: // get_registry
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		r := &registry{resource: resource{id: id, client: c, version: 1}}
		if err := c.add(r); err != nil {
			return err
		}
		for _, g := range c.srv.globals {
			c.send(r.event(0, "global").Uint(g.name).String(g.iface).Uint(g.version), ifaceRegistry)
		}
		return nil
	}
	return wire.UnknownOpError{Interface: ifaceDisplay, Op: m.Op}
}

// serial returns the seat serial for sync callbacks.
func (s *Server) serial() uint32 {
	if s.opts.Seat == nil {
		return 0
	}
	return s.opts.Seat.Serial()
}

type registry struct {
	resource
}

func (r *registry) Interface() string { return ifaceRegistry }
func (r *registry) destroy()          {}

func (r *registry) dispatch(m *wire.Message) error {
	if m.Op != 0 {
		return wire.UnknownOpError{Interface: ifaceRegistry, Op: m.Op}
	}
	name := m.Uint()
	iface := m.String()
	version := m.Uint()
	id := m.Uint()
	if err := m.Err(); err != nil {
		return err
	}

	for _, g := range r.client.srv.globals {
		if g.name != name {
			continue
		}
		if g.iface != iface {
			return protocolError(r, errInvalidObject, "invalid interface for global %d: have %s, wanted %s", name, iface, g.iface)
		}
		if version == 0 || version > g.version {
			return protocolError(r, errInvalidObject, "invalid version for global %s (%d): have %d, wanted 1 to %d", iface, name, version, g.version)
		}
		return g.bind(r.client, id, version)
	}
	return protocolError(r, errInvalidObject, "invalid global %s (%d)", iface, name)
}

// callback is a wl_callback for sync and frame requests.
type callback struct {
	resource
}

func (cb *callback) Interface() string { return ifaceCallback }
func (cb *callback) destroy()          {}
func (cb *callback) dispatch(m *wire.Message) error {
	return wire.UnknownOpError{Interface: ifaceCallback, Op: m.Op}
}

// Done signals the callback and destroys it.
func (cb *callback) Done(data uint32) {
	c := cb.client
	if _, ok := c.objects[cb.id]; !ok {
		return
	}
	c.send(cb.event(0, "done").Uint(data), ifaceCallback)
	c.remove(cb.id)
}

// Cancel destroys the callback without signalling it.
func (cb *callback) Cancel() {
	cb.client.remove(cb.id)
}
