package ipc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/waycore/internal/logger"
)

// maxFrameSize bounds a single record on the wire.
const maxFrameSize = 64 * 1024

// subscriberQueue is how many frames a slow reader may lag behind before
// frames are dropped for it.
const subscriberQueue = 256

// SocketServer broadcasts trace records to every connected reader.
type SocketServer struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	subs       map[*subscriber]struct{}
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
}

type subscriber struct {
	conn    net.Conn
	frames  chan []byte
	dropped int
}

// NewSocketServer creates a server for socketPath. Nothing listens until
// Start.
func NewSocketServer(socketPath string) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		subs:       make(map[*subscriber]struct{}),
	}
}

// Path returns the socket path.
func (s *SocketServer) Path() string { return s.socketPath }

// Start listens on the socket. A stale socket file is replaced.
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Info("trace socket listening", "path", s.socketPath)
	return nil
}

// Stop disconnects every reader and removes the socket.
func (s *SocketServer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.listener.Close()
	for sub := range s.subs {
		close(sub.frames)
		delete(s.subs, sub)
	}
	s.mu.Unlock()

	s.wg.Wait()
	os.RemoveAll(s.socketPath)
	logger.Info("trace socket stopped")
}

// Subscribers returns the number of connected readers.
func (s *SocketServer) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Publish queues r for every reader. It never blocks; a reader that
// falls behind loses frames.
func (s *SocketServer) Publish(r *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || len(s.subs) == 0 {
		return
	}

	frame := encodeFrame(r.Marshal())
	for sub := range s.subs {
		select {
		case sub.frames <- frame:
		default:
			sub.dropped++
			if sub.dropped == 1 || sub.dropped%1000 == 0 {
				logger.Debug("trace reader lagging", "dropped", sub.dropped)
			}
		}
	}
}

func (s *SocketServer) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("trace accept failed", "err", err)
			continue
		}

		sub := &subscriber{conn: conn, frames: make(chan []byte, subscriberQueue)}
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.subs[sub] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(2)
		go s.writeFrames(sub)
		go s.watchClose(sub)
	}
}

// writeFrames drains a reader's queue until it is closed or a write fails.
func (s *SocketServer) writeFrames(sub *subscriber) {
	defer s.wg.Done()
	defer sub.conn.Close()

	logger.Debug("trace reader connected")
	for frame := range sub.frames {
		if _, err := sub.conn.Write(frame); err != nil {
			logger.Debug("trace reader gone", "err", err)
			s.remove(sub)
			// Drain so Publish never sees a full queue for a dead reader.
			for range sub.frames {
			}
			return
		}
	}
}

// watchClose notices readers that hang up while idle.
func (s *SocketServer) watchClose(sub *subscriber) {
	defer s.wg.Done()
	io.Copy(io.Discard, sub.conn)
	s.remove(sub)
}

func (s *SocketServer) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.frames)
	}
}

func encodeFrame(payload []byte) []byte {
	frame := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	return append(frame, payload...)
}
