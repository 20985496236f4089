package server

import (
	"github.com/bnema/waycore/internal/region"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
)

type compositorObject struct {
	resource
}

func bindCompositor(c *Client, id, version uint32) error {
	return c.add(&compositorObject{resource{id: id, client: c, version: version}})
}

func (o *compositorObject) Interface() string { return ifaceCompositor }
func (o *compositorObject) destroy()          {}

func (o *compositorObject) dispatch(m *wire.Message) error {
	c := o.client
	id := m.Uint()
	if err := m.Err(); err != nil {
		return err
	}
	switch m.Op {
	case 0: // create_surface
		s, err := c.srv.opts.Compositor.CreateSurface(c.id, id)
		if err != nil {
			return err
		}
		return c.add(&surfaceObject{resource: resource{id: id, client: c, version: o.version}, surface: s})
	case 1: // create_region
		return c.add(&regionObject{resource: resource{id: id, client: c, version: 1}, region: region.New()})
	}
	return wire.UnknownOpError{Interface: ifaceCompositor, Op: m.Op}
}

type regionObject struct {
	resource
	region *region.Region
}

func (o *regionObject) Interface() string { return ifaceRegion }
func (o *regionObject) destroy()          {}

func (o *regionObject) dispatch(m *wire.Message) error {
	switch m.Op {
	case 0: // destroy
		o.client.remove(o.id)
		return nil
	case 1, 2: // add, subtract
		x, y, w, h := m.Int(), m.Int(), m.Int(), m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		r := region.Rect(x, y, w, h)
		if m.Op == 1 {
			o.region.Add(r)
		} else {
			o.region.Subtract(r)
		}
		return nil
	}
	return wire.UnknownOpError{Interface: ifaceRegion, Op: m.Op}
}

type surfaceObject struct {
	resource
	surface *surface.Surface
}

func (o *surfaceObject) Interface() string { return ifaceSurface }

func (o *surfaceObject) destroy() {
	if ss, ok := o.client.shellSurfaces[o.surface]; ok {
		delete(o.client.shellSurfaces, o.surface)
		ss.surface = nil
	}
	o.surface.Destroy()
}

func (o *surfaceObject) dispatch(m *wire.Message) error {
	c := o.client
	s := o.surface
	switch m.Op {
	case 0: // destroy
		c.remove(o.id)
		return nil

	case 1: // attach
		bufID, x, y := m.Uint(), m.Int(), m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		buf, err := lookup[*bufferObject](c, bufID, true)
		if err != nil {
			return err
		}
		if buf == nil {
			s.Attach(nil, x, y)
		} else {
			s.Attach(buf.buffer, x, y)
		}
		return nil

	case 2, 9: // damage, damage_buffer
		// Buffer and surface coordinates coincide at scale 1.
		x, y, w, h := m.Int(), m.Int(), m.Int(), m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		s.Damage(x, y, w, h)
		return nil

	case 3: // frame
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		cb := &callback{resource: resource{id: id, client: c, version: 1}}
		if err := c.add(cb); err != nil {
			return err
		}
		s.AddFrameCallback(cb)
		return nil

	case 4, 5: // set_opaque_region, set_input_region
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		r, err := lookup[*regionObject](c, id, true)
		if err != nil {
			return err
		}
		var reg *region.Region
		if r != nil {
			reg = r.region
		}
		if m.Op == 4 {
			s.SetOpaqueRegion(reg)
		} else {
			s.SetInputRegion(reg)
		}
		return nil

	case 6: // commit
		s.Commit()
		return nil

	case 7: // set_buffer_transform
		t := m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		return s.SetBufferTransform(t)

	case 8: // set_buffer_scale
		scale := m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		return s.SetBufferScale(scale)
	}
	return wire.UnknownOpError{Interface: ifaceSurface, Op: m.Op}
}
