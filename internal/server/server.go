// Package server speaks the Wayland wire protocol to clients and maps
// their requests onto the surface compositor and the seat.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/surface"
	"github.com/bnema/waycore/internal/wire"
	"golang.org/x/sys/unix"
)

// Poster runs closures on the compositor loop.
type Poster interface {
	Post(fn func())
}

// Interactive starts compositor-driven window operations.
type Interactive interface {
	BeginMove(s *surface.Surface)
	BeginResize(s *surface.Surface, edges uint32)
}

// CursorSetter shows a client's cursor surface, or hides the cursor for a
// nil surface.
type CursorSetter interface {
	SetCursor(s *surface.Surface, hotX, hotY int32)
}

// Options wires the server to the rest of the compositor.
type Options struct {
	// SocketName is a name under $XDG_RUNTIME_DIR or an absolute path.
	// Empty picks the first free wayland-N.
	SocketName string

	Loop       Poster
	Compositor *surface.Compositor
	Seat       *seat.Seat

	// Repeat reports the keyboard repeat settings sent in repeat_info.
	Repeat func() (enabled bool, delay, interval time.Duration)
	// OutputSize is the size suggested to fullscreen and maximized shell
	// surfaces.
	OutputSize func() (width, height int32)

	Interactive Interactive
	Cursor      CursorSetter
}

// Server accepts Wayland clients on a unix socket.
type Server struct {
	opts Options

	path     string
	lockPath string
	lock     *os.File
	listener *net.UnixListener

	// clients and nextClient are only touched on the loop.
	clients    map[surface.ClientID]*Client
	nextClient surface.ClientID
	globals    []*global

	wg       sync.WaitGroup
	closeErr error
	once     sync.Once
}

// New creates a server and registers its globals. Nothing listens until
// Listen is called.
func New(opts Options) *Server {
	s := &Server{
		opts:    opts,
		clients: make(map[surface.ClientID]*Client),
	}
	s.registerGlobals()
	return s
}

// Path returns the socket path once Listen succeeded.
func (s *Server) Path() string { return s.path }

// Name returns the display name clients put in WAYLAND_DISPLAY.
func (s *Server) Name() string {
	if s.path == "" {
		return ""
	}
	if name, ok := strings.CutPrefix(s.path, wire.RuntimeDir()+"/"); ok {
		return name
	}
	return s.path
}

// Listen takes the socket lock, removes a stale socket and binds.
func (s *Server) Listen() error {
	name := s.opts.SocketName
	if name == "" {
		free, err := wire.FreeSocketName()
		if err != nil {
			return err
		}
		name = free
	}
	path := wire.SocketPath(name)
	lockPath := path + ".lock"

	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o660)
	if err != nil {
		return fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		return fmt.Errorf("%w: %s", ErrSocketInUse, path)
	}

	// Holding the lock means any existing socket is stale.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		lock.Close()
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		lock.Close()
		os.Remove(lockPath)
		return fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	l.SetUnlinkOnClose(true)

	s.path, s.lockPath, s.lock, s.listener = path, lockPath, lock, l
	logger.Info("wayland socket listening", "path", path)
	return nil
}

// ErrSocketInUse means another compositor holds the socket lock.
var ErrSocketInUse = errors.New("wayland socket in use")

// Serve accepts clients until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Warn("accept failed", "err", err)
			continue
		}
		s.opts.Loop.Post(func() { s.addClient(wire.NewConn(conn)) })
	}
}

// Close stops accepting and removes the socket and lock file. It waits
// for client readers, so DisconnectAll must have run on the loop first.
func (s *Server) Close() error {
	s.once.Do(func() {
		if s.listener != nil {
			s.closeErr = s.listener.Close()
		}
		if s.lock != nil {
			s.lock.Close()
			os.Remove(s.lockPath)
		}
	})
	s.wg.Wait()
	return s.closeErr
}

// DisconnectAll drops every client. It must run on the loop.
func (s *Server) DisconnectAll() {
	for _, c := range s.clients {
		c.close()
	}
}

// Clients returns the number of connected clients. It must run on the
// loop.
func (s *Server) Clients() int { return len(s.clients) }

// addClient registers a connection and starts its reader. It runs on the
// loop.
func (s *Server) addClient(conn *wire.Conn) *Client {
	s.nextClient++
	c := newClient(s, s.nextClient, conn)
	s.clients[c.id] = c
	if cred, err := conn.Credentials(); err == nil {
		c.pid = cred.Pid
	}
	logger.Debug("client connected", "client", c.id, "pid", c.pid)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.read()
	}()
	return c
}

func (s *Server) removeClient(c *Client) {
	delete(s.clients, c.id)
	logger.Debug("client disconnected", "client", c.id)
}
