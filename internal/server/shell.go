package server

import (
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
)

const shellErrRole uint32 = 0

type shellObject struct {
	resource
}

func bindShell(c *Client, id, version uint32) error {
	return c.add(&shellObject{resource{id: id, client: c, version: version}})
}

func (o *shellObject) Interface() string { return ifaceShell }
func (o *shellObject) destroy()          {}

func (o *shellObject) dispatch(m *wire.Message) error {
	c := o.client
	if m.Op != 0 {
		return wire.UnknownOpError{Interface: ifaceShell, Op: m.Op}
	}
	id, surfID := m.Uint(), m.Uint()
	if err := m.Err(); err != nil {
		return err
	}
	so, err := lookup[*surfaceObject](c, surfID, false)
	if err != nil {
		return err
	}
	if _, ok := c.shellSurfaces[so.surface]; ok {
		return protocolError(o, shellErrRole, "wl_shell::get_shell_surface already requested")
	}
	ss := &shellSurface{resource: resource{id: id, client: c, version: 1}, surface: so.surface}
	if err := c.add(ss); err != nil {
		return err
	}
	c.shellSurfaces[so.surface] = ss
	return nil
}

// shellSurface is a wl_shell_surface. surface is nil once the wl_surface
// is destroyed.
type shellSurface struct {
	resource
	surface *surface.Surface

	title string
	class string
}

func (ss *shellSurface) Interface() string { return ifaceShellSurface }

func (ss *shellSurface) destroy() {
	if ss.surface == nil {
		return
	}
	delete(ss.client.shellSurfaces, ss.surface)
	if ss.surface.Shell() == ss {
		ss.surface.ReleaseShell()
	}
	ss.surface = nil
}

// Configure suggests a size for the surface.
func (ss *shellSurface) Configure(edges uint32, width, height int32) {
	ss.client.send(ss.event(1, "configure").Uint(edges).Int(width).Int(height), ifaceShellSurface)
}

// PopupDone tells the client its popup grab ended.
func (ss *shellSurface) PopupDone() {
	ss.client.send(ss.event(2, "popup_done"), ifaceShellSurface)
}

// Title returns the last title the client set.
func (ss *shellSurface) Title() string { return ss.title }

func (ss *shellSurface) dispatch(m *wire.Message) error {
	c := ss.client
	s := ss.surface
	if s == nil {
		// The wl_surface is gone; nothing left to act on.
		return nil
	}
	opts := &c.srv.opts

	switch m.Op {
	case 0: // pong
		m.Uint()
		return nil

	case 1, 2: // move, resize
		if _, err := lookup[*seatObject](c, m.Uint(), false); err != nil {
			return err
		}
		serial := m.Uint()
		var edges uint32
		if m.Op == 2 {
			edges = m.Uint()
		}
		if err := m.Err(); err != nil {
			return err
		}
		if opts.Interactive == nil || !opts.Seat.Pointer().CanStartInteractive(s, serial) {
			return nil
		}
		if m.Op == 1 {
			opts.Interactive.BeginMove(s)
		} else {
			opts.Interactive.BeginResize(s, edges)
		}
		return nil

	case 3: // set_toplevel
		return s.MakeToplevel(ss)

	case 4: // set_transient
		parentID := m.Uint()
		m.Int()
		m.Int()
		m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		if _, err := lookup[*surfaceObject](c, parentID, false); err != nil {
			return err
		}
		return s.MakeToplevel(ss)

	case 5, 7: // set_fullscreen, set_maximized
		if m.Op == 5 {
			m.Uint()
			m.Uint()
		}
		m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		if err := s.MakeToplevel(ss); err != nil {
			return err
		}
		if opts.OutputSize != nil {
			w, h := opts.OutputSize()
			ss.Configure(0, w, h)
		}
		return nil

	case 6: // set_popup
		if _, err := lookup[*seatObject](c, m.Uint(), false); err != nil {
			return err
		}
		m.Uint()
		parentID := m.Uint()
		x, y := m.Int(), m.Int()
		m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		parent, err := lookup[*surfaceObject](c, parentID, false)
		if err != nil {
			return err
		}
		if err := s.MakePopup(ss, parent.surface, int(x), int(y)); err != nil {
			return err
		}
		if !opts.Seat.Pointer().StartPopupGrab(s) {
			logger.Debug("popup grab refused", "surface", s)
			ss.PopupDone()
		}
		return nil

	case 8: // set_title
		ss.title = m.String()
		return m.Err()

	case 9: // set_class
		ss.class = m.String()
		return m.Err()
	}
	return wire.UnknownOpError{Interface: ifaceShellSurface, Op: m.Op}
}
