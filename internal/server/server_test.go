package server

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAdvertisesGlobals(t *testing.T) {
	f := newFixture(t)
	reg := f.newID()
	f.request(1, 1, func(mb *wire.MessageBuilder) { mb.Uint(reg) })
	events := f.roundtrip()

	got := map[string]uint32{}
	for _, m := range events {
		if m.Sender == reg && m.Op == 0 {
			m.Uint()
			iface := m.String()
			got[iface] = m.Uint()
		}
	}
	assert.Equal(t, map[string]uint32{
		"wl_compositor":    4,
		"wl_subcompositor": 1,
		"wl_shm":           1,
		"wl_seat":          5,
		"wl_shell":         1,
	}, got)
}

func TestBindRejectsNewerVersion(t *testing.T) {
	f := newFixture(t)
	reg := f.newID()
	f.request(1, 1, func(mb *wire.MessageBuilder) { mb.Uint(reg) })
	f.roundtrip()

	f.request(reg, 0, func(mb *wire.MessageBuilder) {
		mb.Uint(1).String("wl_compositor").Uint(9).Uint(f.newID())
	})
	obj, code, msg := f.protocolError()
	assert.Equal(t, reg, obj)
	assert.Equal(t, errInvalidObject, code)
	assert.Contains(t, msg, "invalid version")
}

func TestUnknownOpcodeIsInvalidMethod(t *testing.T) {
	f := newFixture(t)
	f.request(1, 7, nil)
	obj, code, _ := f.protocolError()
	assert.Equal(t, uint32(1), obj)
	assert.Equal(t, errInvalidMethod, code)
}

func TestRequestForUnknownObjectIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.request(500, 0, nil)
	f.roundtrip()

	connected := 0
	f.loop.Invoke(func() { connected = f.srv.Clients() })
	assert.Equal(t, 1, connected)
}

// shmSurface creates a surface and a 16x16 buffer on a fresh pool.
type shmSurface struct {
	surface, pool, buffer uint32
}

func (f *fixture) createShmSurface(ids map[string]uint32) shmSurface {
	ss := shmSurface{surface: f.newID(), pool: f.newID(), buffer: f.newID()}
	fd := memfd(f.t, 4096)
	f.request(ids["wl_shm"], 0, func(mb *wire.MessageBuilder) { mb.Uint(ss.pool).FD(fd).Int(4096) })
	f.request(ss.pool, 0, func(mb *wire.MessageBuilder) {
		mb.Uint(ss.buffer).Int(0).Int(16).Int(16).Int(64).Uint(shmFormatARGB8888)
	})
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(ss.surface) })
	return ss
}

func (f *fixture) attachCommit(surfaceID, bufferID uint32) {
	f.request(surfaceID, 1, func(mb *wire.MessageBuilder) { mb.Uint(bufferID).Int(0).Int(0) })
	f.request(surfaceID, 2, func(mb *wire.MessageBuilder) { mb.Int(0).Int(0).Int(16).Int(16) })
	f.request(surfaceID, 6, nil)
}

func TestShmAdvertisesFormats(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	events := f.roundtrip()

	var formats []uint32
	for _, m := range events {
		if m.Sender == ids["wl_shm"] && m.Op == 0 {
			formats = append(formats, m.Uint())
		}
	}
	assert.Equal(t, []uint32{shmFormatARGB8888, shmFormatXRGB8888}, formats)
}

func TestCommitAttachesShmBuffer(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	ss := f.createShmSurface(ids)

	cb := f.newID()
	f.request(ss.surface, 3, func(mb *wire.MessageBuilder) { mb.Uint(cb) })
	f.attachCommit(ss.surface, ss.buffer)
	f.roundtrip()

	s := f.surfaceOf(ss.surface)
	require.NotNil(t, s)
	f.loop.Invoke(func() {
		w, h := s.Buffer().Size()
		assert.Equal(t, 16, w)
		assert.Equal(t, 16, h)
		assert.Equal(t, 1, f.comp.PendingFrameCallbacks())
		f.comp.FrameDone(42)
	})

	events := f.roundtrip()
	done := find(events, cb, 0)
	require.NotNil(t, done)
	assert.Equal(t, uint32(42), done.Uint())
	del := find(events, 1, 1)
	require.NotNil(t, del)
	assert.Equal(t, cb, del.Uint())
}

func TestReplacedBufferIsReleased(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	ss := f.createShmSurface(ids)
	second := f.newID()
	f.request(ss.pool, 0, func(mb *wire.MessageBuilder) {
		mb.Uint(second).Int(1024).Int(16).Int(16).Int(64).Uint(shmFormatXRGB8888)
	})

	f.attachCommit(ss.surface, ss.buffer)
	events := f.roundtrip()
	assert.Zero(t, count(events, ss.buffer, 0))

	f.attachCommit(ss.surface, second)
	events = f.roundtrip()
	assert.Equal(t, 1, count(events, ss.buffer, 0))
	assert.Zero(t, count(events, second, 0))
}

func TestShmRejectsBufferOutsidePool(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	pool := f.newID()
	fd := memfd(t, 1024)
	f.request(ids["wl_shm"], 0, func(mb *wire.MessageBuilder) { mb.Uint(pool).FD(fd).Int(1024) })
	f.request(pool, 0, func(mb *wire.MessageBuilder) {
		mb.Uint(f.newID()).Int(0).Int(16).Int(16).Int(64).Uint(shmFormatARGB8888)
	})

	obj, code, _ := f.protocolError()
	assert.Equal(t, pool, obj)
	assert.Equal(t, shmErrInvalidStride, code)
}

func TestShmRejectsStrideNarrowerThanRow(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	pool := f.newID()
	fd := memfd(t, 4096)
	f.request(ids["wl_shm"], 0, func(mb *wire.MessageBuilder) { mb.Uint(pool).FD(fd).Int(4096) })
	// 16 pixels need 64 bytes per row.
	f.request(pool, 0, func(mb *wire.MessageBuilder) {
		mb.Uint(f.newID()).Int(0).Int(16).Int(16).Int(16).Uint(shmFormatARGB8888)
	})

	obj, code, _ := f.protocolError()
	assert.Equal(t, pool, obj)
	assert.Equal(t, shmErrInvalidStride, code)
}

func TestShmRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	pool := f.newID()
	fd := memfd(t, 4096)
	f.request(ids["wl_shm"], 0, func(mb *wire.MessageBuilder) { mb.Uint(pool).FD(fd).Int(4096) })
	f.request(pool, 0, func(mb *wire.MessageBuilder) {
		mb.Uint(f.newID()).Int(0).Int(16).Int(16).Int(64).Uint(0x34325258)
	})

	obj, code, _ := f.protocolError()
	assert.Equal(t, pool, obj)
	assert.Equal(t, shmErrInvalidFormat, code)
}

func TestInvalidBufferScale(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	s := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(s) })
	f.request(s, 8, func(mb *wire.MessageBuilder) { mb.Int(0) })

	obj, code, _ := f.protocolError()
	assert.Equal(t, s, obj)
	assert.Equal(t, surface.CodeInvalidScale, code)
}

func TestSubsurfaceOfItselfIsBadSurface(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	s := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(s) })
	f.request(ids["wl_subcompositor"], 1, func(mb *wire.MessageBuilder) {
		mb.Uint(f.newID()).Uint(s).Uint(s)
	})

	obj, code, _ := f.protocolError()
	assert.Equal(t, ids["wl_subcompositor"], obj)
	assert.Equal(t, surface.CodeBadSurface, code)
}

func TestSubsurfaceFollowsParentCommit(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	parent := f.createShmSurface(ids)
	child := f.createShmSurface(ids)
	sub := f.newID()
	f.request(ids["wl_subcompositor"], 1, func(mb *wire.MessageBuilder) {
		mb.Uint(sub).Uint(child.surface).Uint(parent.surface)
	})
	f.request(sub, 1, func(mb *wire.MessageBuilder) { mb.Int(5).Int(7) })
	f.attachCommit(child.surface, child.buffer)
	f.roundtrip()

	cs := f.surfaceOf(child.surface)
	f.loop.Invoke(func() {
		assert.Nil(t, cs.Buffer(), "synchronized child waits for its parent")
		assert.True(t, cs.Subsurface().HasCachedState())
	})

	f.attachCommit(parent.surface, parent.buffer)
	f.roundtrip()
	f.loop.Invoke(func() {
		assert.NotNil(t, cs.Buffer())
		x, y := cs.Subsurface().Position()
		assert.Equal(t, 5, x)
		assert.Equal(t, 7, y)
	})
}

func TestSecondShellSurfaceIsRoleError(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	s := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(s) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(f.newID()).Uint(s) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(f.newID()).Uint(s) })

	obj, code, _ := f.protocolError()
	assert.Equal(t, ids["wl_shell"], obj)
	assert.Equal(t, shellErrRole, code)
}

func TestShellSurfaceSwitchesStates(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	parent, s := f.newID(), f.newID()
	shell := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(parent) })
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(s) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(shell).Uint(s) })

	f.request(shell, 3, nil)                                                          // set_toplevel
	f.request(shell, 7, func(mb *wire.MessageBuilder) { mb.Uint(0) })                 // set_maximized
	f.request(shell, 3, nil)                                                          // set_toplevel
	f.request(shell, 5, func(mb *wire.MessageBuilder) { mb.Uint(0).Uint(0).Uint(0) }) // set_fullscreen
	f.request(shell, 4, func(mb *wire.MessageBuilder) { mb.Uint(parent).Int(4).Int(4).Uint(0) })

	events := f.roundtrip()
	assert.Nil(t, find(events, 1, 0), "no wl_display.error")
	assert.Equal(t, 2, count(events, shell, 1))
	assert.Equal(t, surface.RoleToplevel, f.surfaceOf(s).Role())
	assert.NotNil(t, f.surfaceOf(s).Window())
}

func TestProtocolErrorDisconnectsOnlyThatClient(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	s := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(s) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(f.newID()).Uint(s) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(f.newID()).Uint(s) })
	f.protocolError()

	// The server hangs up while its reader is blocked on the socket.
	for {
		if _, err := f.conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Eventually(t, func() bool {
		n := -1
		if !f.loop.Invoke(func() { n = len(f.comp.Surfaces()) }) {
			return false
		}
		return n == 0
	}, time.Second, 10*time.Millisecond)
}

func TestDisconnectAllWhileClientIdle(t *testing.T) {
	f := newFixture(t)
	f.bindAll(nil)

	require.True(t, f.loop.Invoke(f.srv.DisconnectAll))
	_, err := f.conn.ReadMessage()
	assert.Error(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, f.loop.Invoke(func() {}), "loop survives the reader exiting")
}

func TestMaximizedShellSurfaceIsConfigured(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	s := f.newID()
	shell := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(s) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(shell).Uint(s) })
	f.request(shell, 7, func(mb *wire.MessageBuilder) { mb.Uint(0) })

	events := f.roundtrip()
	m := find(events, shell, 1)
	require.NotNil(t, m)
	assert.Equal(t, uint32(0), m.Uint())
	assert.Equal(t, int32(1920), m.Int())
	assert.Equal(t, int32(1080), m.Int())
	assert.Equal(t, surface.RoleToplevel, f.surfaceOf(s).Role())
}

func TestPopupDoneWhenGrabRefused(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	parent, popup := f.newID(), f.newID()
	shell := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(parent) })
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(popup) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(shell).Uint(popup) })
	f.roundtrip()

	modal := false
	f.loop.Invoke(func() { modal = f.seat.Pointer().BeginModal() })
	require.True(t, modal)
	f.request(shell, 6, func(mb *wire.MessageBuilder) {
		mb.Uint(ids["wl_seat"]).Uint(0).Uint(parent).Int(10).Int(10).Uint(0)
	})
	events := f.roundtrip()
	assert.Equal(t, 1, count(events, shell, 2))
}

func TestPopupStartsGrab(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	parent, popup := f.newID(), f.newID()
	shell := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(parent) })
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(popup) })
	f.request(ids["wl_shell"], 0, func(mb *wire.MessageBuilder) { mb.Uint(shell).Uint(popup) })
	f.request(shell, 6, func(mb *wire.MessageBuilder) {
		mb.Uint(ids["wl_seat"]).Uint(0).Uint(parent).Int(10).Int(10).Uint(0)
	})
	events := f.roundtrip()
	assert.Zero(t, count(events, shell, 2))

	f.loop.Invoke(func() {
		assert.Equal(t, seat.GrabPopup, f.seat.Pointer().ActiveGrab().Kind())
	})

	// Destroying the only popup surface ends the grab.
	f.request(popup, 0, nil)
	f.roundtrip()
	f.loop.Invoke(func() {
		assert.Equal(t, seat.GrabDefault, f.seat.Pointer().ActiveGrab().Kind())
	})
}

func TestPointerEnterAndMotion(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	ptr := f.newID()
	f.request(ids["wl_seat"], 0, func(mb *wire.MessageBuilder) { mb.Uint(ptr) })
	ss := f.createShmSurface(ids)
	f.attachCommit(ss.surface, ss.buffer)
	f.roundtrip()

	s := f.surfaceOf(ss.surface)
	f.loop.Invoke(func() {
		f.stage.top = s
		f.seat.HandleEvent(&input.Event{Type: input.Motion, Time: 5, X: 3, Y: 4})
	})

	events := f.roundtrip()
	enter := find(events, ptr, 0)
	require.NotNil(t, enter)
	enter.Uint()
	assert.Equal(t, ss.surface, enter.Uint())
	assert.Equal(t, 3, enter.Fixed().Int())
	assert.Equal(t, 4, enter.Fixed().Int())

	motion := find(events, ptr, 2)
	require.NotNil(t, motion)
	assert.Equal(t, uint32(5), motion.Uint())
	assert.Equal(t, 2, count(events, ptr, 5), "version 5 pointers get a frame per event")
}

func TestSetCursorRequiresFocus(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	ptr := f.newID()
	f.request(ids["wl_seat"], 0, func(mb *wire.MessageBuilder) { mb.Uint(ptr) })
	ss := f.createShmSurface(ids)
	cur := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(cur) })

	f.request(ptr, 0, func(mb *wire.MessageBuilder) { mb.Uint(0).Uint(cur).Int(1).Int(2) })
	f.roundtrip()
	f.loop.Invoke(func() { assert.Empty(t, f.cursor.calls) })

	s := f.surfaceOf(ss.surface)
	var serial uint32
	f.loop.Invoke(func() {
		f.stage.top = s
		f.seat.Pointer().Repick()
		serial = f.seat.Pointer().FocusSerial()
	})
	f.request(ptr, 0, func(mb *wire.MessageBuilder) { mb.Uint(serial).Uint(cur).Int(1).Int(2) })
	f.roundtrip()

	var calls []cursorCall
	f.loop.Invoke(func() { calls = append(calls, f.cursor.calls...) })
	require.Len(t, calls, 1)
	assert.Equal(t, cur, calls[0].surface.ID())
	assert.Equal(t, int32(1), calls[0].hotX)
	assert.Equal(t, int32(2), calls[0].hotY)
	assert.Equal(t, surface.RoleCursor, calls[0].surface.Role())
}

func TestKeyboardKeymapAndRepeatInfo(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	kbd := f.newID()
	f.request(ids["wl_seat"], 1, func(mb *wire.MessageBuilder) { mb.Uint(kbd) })
	events := f.roundtrip()

	keymap := find(events, kbd, 0)
	require.NotNil(t, keymap)
	assert.Equal(t, keymapFormatNone, keymap.Uint())
	fd := keymap.FD()
	require.NotNil(t, fd)
	fd.Close()

	repeat := find(events, kbd, 5)
	require.NotNil(t, repeat)
	assert.Equal(t, int32(30), repeat.Int())
	assert.Equal(t, int32(250), repeat.Int())
}

func TestKeyboardEnterCarriesHeldKeys(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	kbd := f.newID()
	f.request(ids["wl_seat"], 1, func(mb *wire.MessageBuilder) { mb.Uint(kbd) })
	s := f.newID()
	f.request(ids["wl_compositor"], 0, func(mb *wire.MessageBuilder) { mb.Uint(s) })
	f.roundtrip()

	srf := f.surfaceOf(s)
	f.loop.Invoke(func() {
		f.seat.HandleEvent(&input.Event{Type: input.KeyPress, Code: 30})
		f.seat.Keyboard().SetFocus(srf)
	})
	events := f.roundtrip()
	enter := find(events, kbd, 1)
	require.NotNil(t, enter)
	enter.Uint()
	assert.Equal(t, s, enter.Uint())
	assert.Equal(t, encodeKeys([]uint32{30}), enter.Array())
}

func TestGetTouchIsMissingCapability(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	f.request(ids["wl_seat"], 2, func(mb *wire.MessageBuilder) { mb.Uint(f.newID()) })
	obj, code, _ := f.protocolError()
	assert.Equal(t, ids["wl_seat"], obj)
	assert.Equal(t, seatErrMissingCapability, code)
}

func TestDisconnectDestroysClientState(t *testing.T) {
	f := newFixture(t)
	ids := f.bindAll(nil)
	f.request(ids["wl_seat"], 0, func(mb *wire.MessageBuilder) { mb.Uint(f.newID()) })
	ss := f.createShmSurface(ids)
	f.attachCommit(ss.surface, ss.buffer)
	f.roundtrip()
	s := f.surfaceOf(ss.surface)
	f.loop.Invoke(func() {
		f.stage.top = s
		f.seat.Pointer().Repick()
	})

	f.conn.Close()
	require.Eventually(t, func() bool {
		gone := false
		f.loop.Invoke(func() { gone = f.srv.Clients() == 0 })
		return gone
	}, time.Second, 5*time.Millisecond)

	f.loop.Invoke(func() {
		assert.Empty(t, f.comp.Surfaces())
		assert.True(t, s.IsDestroyed())
		assert.Nil(t, f.seat.Pointer().Focus())
	})
}

func TestListenTakesLock(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	first := New(Options{SocketName: "wayland-test"})
	require.NoError(t, first.Listen())
	defer first.Close()
	assert.Equal(t, "wayland-test", first.Name())
	assert.FileExists(t, filepath.Join(wire.RuntimeDir(), "wayland-test.lock"))

	second := New(Options{SocketName: "wayland-test"})
	assert.ErrorIs(t, second.Listen(), ErrSocketInUse)
}
