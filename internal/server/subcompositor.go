package server

import (
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
)

type subcompositorObject struct {
	resource
}

func bindSubcompositor(c *Client, id, version uint32) error {
	return c.add(&subcompositorObject{resource{id: id, client: c, version: version}})
}

func (o *subcompositorObject) Interface() string { return ifaceSubcompositor }
func (o *subcompositorObject) destroy()          {}

func (o *subcompositorObject) dispatch(m *wire.Message) error {
	c := o.client
	switch m.Op {
	case 0: // destroy
		c.remove(o.id)
		return nil
	case 1: // get_subsurface
		id, surfID, parentID := m.Uint(), m.Uint(), m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		so, err := lookup[*surfaceObject](c, surfID, false)
		if err != nil {
			return err
		}
		parent, err := lookup[*surfaceObject](c, parentID, false)
		if err != nil {
			return err
		}
		sub, err := so.surface.MakeSubsurface(parent.surface)
		if err != nil {
			return err
		}
		return c.add(&subsurfaceObject{resource: resource{id: id, client: c, version: 1}, sub: sub})
	}
	return wire.UnknownOpError{Interface: ifaceSubcompositor, Op: m.Op}
}

type subsurfaceObject struct {
	resource
	sub *surface.Subsurface
}

func (o *subsurfaceObject) Interface() string { return ifaceSubsurface }
func (o *subsurfaceObject) destroy()          { o.sub.Destroy() }

func (o *subsurfaceObject) dispatch(m *wire.Message) error {
	c := o.client
	switch m.Op {
	case 0: // destroy
		c.remove(o.id)
		return nil
	case 1: // set_position
		x, y := m.Int(), m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		o.sub.SetPosition(int(x), int(y))
		return nil
	case 2, 3: // place_above, place_below
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		sibling, err := lookup[*surfaceObject](c, id, false)
		if err != nil {
			return err
		}
		if m.Op == 2 {
			return o.sub.PlaceAbove(sibling.surface)
		}
		return o.sub.PlaceBelow(sibling.surface)
	case 4: // set_sync
		o.sub.SetSync()
		return nil
	case 5: // set_desync
		o.sub.SetDesync()
		return nil
	}
	return wire.UnknownOpError{Interface: ifaceSubsurface, Op: m.Op}
}
