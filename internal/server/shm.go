package server

import (
	"fmt"
	"os"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
	"golang.org/x/sys/unix"
)

// wl_shm formats and errors.
const (
	shmFormatARGB8888 uint32 = 0
	shmFormatXRGB8888 uint32 = 1

	shmErrInvalidFormat uint32 = 0
	shmErrInvalidStride uint32 = 1
	shmErrInvalidFD     uint32 = 2
)

type shmObject struct {
	resource
}

func bindShm(c *Client, id, version uint32) error {
	o := &shmObject{resource{id: id, client: c, version: version}}
	if err := c.add(o); err != nil {
		return err
	}
	c.send(o.event(0, "format").Uint(shmFormatARGB8888), ifaceShm)
	c.send(o.event(0, "format").Uint(shmFormatXRGB8888), ifaceShm)
	return nil
}

func (o *shmObject) Interface() string { return ifaceShm }
func (o *shmObject) destroy()          {}

func (o *shmObject) dispatch(m *wire.Message) error {
	if m.Op != 0 {
		return wire.UnknownOpError{Interface: ifaceShm, Op: m.Op}
	}
	id := m.Uint()
	f := m.FD()
	size := m.Int()
	if err := m.Err(); err != nil {
		return err
	}
	defer f.Close()

	if size <= 0 {
		return protocolError(o, shmErrInvalidStride, "invalid size (%d)", size)
	}
	data, err := mapShared(f, int(size))
	if err != nil {
		return protocolError(o, shmErrInvalidFD, "failed mmap fd %d: %v", f.Fd(), err)
	}
	dup, err := unix.Dup(int(f.Fd()))
	if err != nil {
		unix.Munmap(data)
		return protocolError(o, shmErrInvalidFD, "failed to keep fd: %v", err)
	}
	pool := &shmPool{
		resource: resource{id: id, client: o.client, version: 1},
		file:     os.NewFile(uintptr(dup), "wl_shm_pool"),
		data:     data,
		refs:     1,
	}
	if err := o.client.add(pool); err != nil {
		pool.unref()
		return err
	}
	return nil
}

func mapShared(f *os.File, size int) ([]byte, error) {
	sc, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	var data []byte
	var merr error
	err = sc.Control(func(fd uintptr) {
		data, merr = unix.Mmap(int(fd), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	})
	if err != nil {
		return nil, err
	}
	return data, merr
}

// shmPool is a client memory mapping. It stays mapped until the pool
// object and every buffer created from it are gone.
type shmPool struct {
	resource
	file *os.File
	data []byte
	refs int
}

func (p *shmPool) Interface() string { return ifaceShmPool }

func (p *shmPool) destroy() { p.unref() }

func (p *shmPool) unref() {
	p.refs--
	if p.refs > 0 {
		return
	}
	if p.data != nil {
		if err := unix.Munmap(p.data); err != nil {
			logger.Debug("munmap failed", "err", err)
		}
		p.data = nil
	}
	p.file.Close()
}

func (p *shmPool) dispatch(m *wire.Message) error {
	c := p.client
	switch m.Op {
	case 0: // create_buffer
		id := m.Uint()
		offset, width, height, stride := m.Int(), m.Int(), m.Int(), m.Int()
		format := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		if format != shmFormatARGB8888 && format != shmFormatXRGB8888 {
			return protocolError(p, shmErrInvalidFormat, "invalid format 0x%x", format)
		}
		// Both accepted formats are four bytes per pixel.
		if offset < 0 || width <= 0 || height <= 0 || int64(stride) < int64(width)*4 ||
			int64(offset)+int64(stride)*int64(height) > int64(len(p.data)) {
			return protocolError(p, shmErrInvalidStride,
				"invalid width, height or stride (%dx%d, %d)", width, height, stride)
		}

		b := &bufferObject{resource: resource{id: id, client: c, version: 1}}
		content := &shmBuffer{
			pool:   p,
			offset: int(offset),
			width:  int(width),
			height: int(height),
			stride: int(stride),
			format: format,
		}
		b.buffer = surface.NewBuffer(content, b.release)
		if err := c.add(b); err != nil {
			return err
		}
		p.refs++
		return nil

	case 1: // destroy
		c.remove(p.id)
		return nil

	case 2: // resize
		size := m.Int()
		if err := m.Err(); err != nil {
			return err
		}
		if int(size) < len(p.data) {
			return protocolError(p, shmErrInvalidStride, "shrinking pool invalid")
		}
		data, err := mapShared(p.file, int(size))
		if err != nil {
			return protocolError(p, shmErrInvalidFD, "failed mremap: %v", err)
		}
		unix.Munmap(p.data)
		p.data = data
		return nil
	}
	return wire.UnknownOpError{Interface: ifaceShmPool, Op: m.Op}
}

// shmBuffer is a slice of a pool seen as a pixel buffer.
type shmBuffer struct {
	pool                          *shmPool
	offset, width, height, stride int
	format                        uint32
}

func (b *shmBuffer) Size() (int, int) { return b.width, b.height }

func (b *shmBuffer) String() string {
	return fmt.Sprintf("shm %dx%d stride %d format 0x%x", b.width, b.height, b.stride, b.format)
}

type bufferObject struct {
	resource
	buffer *surface.Buffer
}

func (b *bufferObject) Interface() string { return ifaceBuffer }

func (b *bufferObject) destroy() {
	b.buffer.Destroy()
	if sb, ok := b.buffer.Content.(*shmBuffer); ok {
		sb.pool.unref()
	}
}

// release tells the client the compositor no longer reads the buffer.
func (b *bufferObject) release() {
	if _, ok := b.client.objects[b.id]; !ok {
		return
	}
	b.client.send(b.event(0, "release"), ifaceBuffer)
}

func (b *bufferObject) dispatch(m *wire.Message) error {
	if m.Op != 0 {
		return wire.UnknownOpError{Interface: ifaceBuffer, Op: m.Op}
	}
	b.client.remove(b.id)
	return nil
}
