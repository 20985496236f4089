package server

import (
	"context"
	"image"
	"net"
	"os"
	"testing"
	"time"

	"github.com/bnema/waycore/internal/loop"
	"github.com/bnema/waycore/internal/region"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type nopRenderer struct{}

func (nopRenderer) ImportBuffer(*surface.Buffer) error               { return nil }
func (nopRenderer) Attach(*surface.Surface, *surface.Buffer)         {}
func (nopRenderer) Damage(*surface.Surface, image.Rectangle)         {}
func (nopRenderer) SetOpaqueRegion(*surface.Surface, *region.Region) {}
func (nopRenderer) SetInputRegion(*surface.Surface, *region.Region)  {}
func (nopRenderer) SetPosition(*surface.Surface, int, int)           {}
func (nopRenderer) SetVisible(*surface.Surface, bool)                {}
func (nopRenderer) Restack(*surface.Surface, []*surface.Surface)     {}
func (nopRenderer) Detach(*surface.Surface)                          {}

type testWindow struct{ w, h int }

func (w *testWindow) Size() (int, int)                         { return w.w, w.h }
func (w *testWindow) MoveResize(width, height int, _, _ int32) { w.w, w.h = width, height }
func (w *testWindow) SetMapped(bool)                           {}
func (w *testWindow) Unmanage()                                {}

type testWM struct{}

func (testWM) Manage(*surface.Surface, surface.Role, *surface.Surface, int, int) surface.Window {
	return &testWindow{}
}

// testStage puts every surface at the origin with an unbounded extent.
type testStage struct {
	top *surface.Surface
}

func (st *testStage) SurfaceAt(x, y float64) *surface.Surface { return st.top }
func (st *testStage) ToSurfaceLocal(s *surface.Surface, x, y float64) (float64, float64) {
	return x, y
}

type cursorCall struct {
	surface    *surface.Surface
	hotX, hotY int32
}

type testCursor struct{ calls []cursorCall }

func (c *testCursor) SetCursor(s *surface.Surface, hotX, hotY int32) {
	c.calls = append(c.calls, cursorCall{s, hotX, hotY})
}

type fixture struct {
	t      *testing.T
	loop   *loop.Loop
	srv    *Server
	comp   *surface.Compositor
	seat   *seat.Seat
	stage  *testStage
	cursor *testCursor
	client *Client

	conn   *wire.Conn
	nextID uint32
}

func unixConn(t *testing.T, fd int) *net.UnixConn {
	t.Helper()
	f := os.NewFile(uintptr(fd), "socketpair")
	defer f.Close()
	c, err := net.FileConn(f)
	require.NoError(t, err)
	return c.(*net.UnixConn)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	stage := &testStage{}
	cursor := &testCursor{}
	comp := surface.NewCompositor(nopRenderer{}, testWM{}, nil)
	st := seat.New("seat0", stage, 0, 0)
	srv := New(Options{
		Loop:       l,
		Compositor: comp,
		Seat:       st,
		Repeat: func() (bool, time.Duration, time.Duration) {
			return true, 250 * time.Millisecond, 33 * time.Millisecond
		},
		OutputSize: func() (int32, int32) { return 1920, 1080 },
		Cursor:     cursor,
	})

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	serverSide := unixConn(t, fds[0])
	clientSide := unixConn(t, fds[1])

	f := &fixture{
		t: t, loop: l, srv: srv, comp: comp, seat: st, stage: stage, cursor: cursor,
		conn:   wire.NewConn(clientSide),
		nextID: 2,
	}
	require.True(t, l.Invoke(func() { f.client = srv.addClient(wire.NewConn(serverSide)) }))

	t.Cleanup(func() {
		f.conn.Close()
		l.Invoke(srv.DisconnectAll)
		cancel()
		srv.Close()
	})
	return f
}

func (f *fixture) newID() uint32 {
	id := f.nextID
	f.nextID++
	return id
}

// request sends a request built the same way as an event.
func (f *fixture) request(sender uint32, op uint16, build func(mb *wire.MessageBuilder)) {
	f.t.Helper()
	mb := wire.NewEvent(sender, op, "")
	if build != nil {
		build(mb)
	}
	require.NoError(f.t, f.conn.Send(mb))
}

// roundtrip sends wl_display.sync and returns every event received
// before its done.
func (f *fixture) roundtrip() []*wire.Message {
	f.t.Helper()
	id := f.newID()
	f.request(1, 0, func(mb *wire.MessageBuilder) { mb.Uint(id) })

	var events []*wire.Message
	for {
		m, err := f.conn.ReadMessage()
		require.NoError(f.t, err)
		if m.Sender == id && m.Op == 0 {
			return events
		}
		events = append(events, m)
	}
}

// protocolError reads until wl_display.error and decodes it.
func (f *fixture) protocolError() (object, code uint32, msg string) {
	f.t.Helper()
	id := f.newID()
	f.request(1, 0, func(mb *wire.MessageBuilder) { mb.Uint(id) })
	for {
		m, err := f.conn.ReadMessage()
		require.NoError(f.t, err, "connection closed without wl_display.error")
		if m.Sender == 1 && m.Op == 0 {
			return m.Uint(), m.Uint(), m.String()
		}
		require.False(f.t, m.Sender == id, "sync completed without a protocol error")
	}
}

// registry binds every global and returns their ids by interface.
func (f *fixture) bindAll(versions map[string]uint32) map[string]uint32 {
	f.t.Helper()
	reg := f.newID()
	f.request(1, 1, func(mb *wire.MessageBuilder) { mb.Uint(reg) })
	events := f.roundtrip()

	ids := map[string]uint32{}
	for _, m := range events {
		if m.Sender != reg {
			continue
		}
		name, iface, version := m.Uint(), m.String(), m.Uint()
		if v, ok := versions[iface]; ok {
			version = v
		}
		id := f.newID()
		f.request(reg, 0, func(mb *wire.MessageBuilder) {
			mb.Uint(name).String(iface).Uint(version).Uint(id)
		})
		ids[iface] = id
	}
	return ids
}

func find(events []*wire.Message, sender uint32, op uint16) *wire.Message {
	for _, m := range events {
		if m.Sender == sender && m.Op == op {
			return m
		}
	}
	return nil
}

func count(events []*wire.Message, sender uint32, op uint16) int {
	n := 0
	for _, m := range events {
		if m.Sender == sender && m.Op == op {
			n++
		}
	}
	return n
}

// memfd returns a descriptor of size bytes.
func memfd(t *testing.T, size int) int {
	t.Helper()
	fd, err := unix.MemfdCreate("waycore-test", unix.MFD_CLOEXEC)
	require.NoError(t, err)
	require.NoError(t, unix.Ftruncate(fd, int64(size)))
	t.Cleanup(func() { unix.Close(fd) })
	return fd
}

// surfaceOf resolves the server side of a client wl_surface id.
func (f *fixture) surfaceOf(id uint32) *surface.Surface {
	var s *surface.Surface
	f.loop.Invoke(func() { s = f.comp.Lookup(f.client.ID(), id) })
	return s
}
