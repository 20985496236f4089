// Package compositor assembles the event loop, the Wayland server, the
// scene, the seat and the input backend into a running compositor.
package compositor

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/ipc"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/loop"
	"github.com/bnema/waycore/internal/scene"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/server"
	"github.com/bnema/waycore/internal/surface"
)

// Options selects which outer pieces Run starts.
type Options struct {
	// NoDevices skips the evdev backend, for running nested or in tests.
	NoDevices bool
	// NoTrace skips the trace socket even when the config enables it.
	NoTrace bool
}

// Compositor owns every long-lived component. All fields except loop,
// server, backend, trace and emergency are only touched on the loop.
type Compositor struct {
	opts  Options
	cfg   *config.Config
	start time.Time

	loop       *loop.Loop
	scene      *scene.Scene
	surfaces   *surface.Compositor
	seat       *seat.Seat
	devices    *input.DeviceManager
	translator *input.Translator
	layout     *input.Layout
	frames     *scene.FrameClock
	server     *server.Server

	backend   *input.EvdevBackend
	trace     *ipc.SocketServer
	emergency *EmergencyRelease

	mu           sync.Mutex
	lastActivity time.Time
}

// New builds the compositor from cfg. Nothing touches the filesystem
// until Run.
func New(cfg *config.Config, opts Options) (*Compositor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Compositor{
		opts:         opts,
		cfg:          cfg,
		start:        time.Now(),
		loop:         loop.New(),
		lastActivity: time.Now(),
	}
	c.loop.OnPanic(func(r any) {
		logger.Error("panic on compositor loop", "panic", r)
	})

	c.scene = scene.New(outputRects(cfg.Outputs))
	c.surfaces = surface.NewCompositor(c.scene, c.scene, c.scene)
	c.seat = seat.New(cfg.Seat.Name, c.scene, float64(cfg.Seat.PointerX), float64(cfg.Seat.PointerY))
	c.scene.SetPointer(c.seat.Pointer())
	c.scene.OnMapped(c.focusMapped)

	c.layout = &input.Layout{Monitors: c.scene.Outputs(), Barriers: barriers(cfg.Barriers)}
	c.devices = input.NewDeviceManager()
	c.translator = input.NewTranslator(c.devices, c.loop, c.handleEvent, input.Options{
		RepeatDisabled: !cfg.Input.RepeatEnabled,
		RepeatDelay:    time.Duration(cfg.Input.RepeatDelayMs) * time.Millisecond,
		RepeatInterval: time.Duration(cfg.Input.RepeatIntervalMs) * time.Millisecond,
		ScrollStep:     cfg.Input.ScrollStep,
		PointerX:       float64(cfg.Seat.PointerX),
		PointerY:       float64(cfg.Seat.PointerY),
		Constrainer:    c.layout,
		Filter:         input.LinearAcceleration(cfg.Input.Acceleration),
	})
	c.translator.SetStage(true)

	c.frames = scene.NewFrameClock(c.loop, frameInterval(cfg), c.surfaces, c.scene, c.timeMs)

	c.server = server.New(server.Options{
		SocketName:  cfg.Server.SocketName,
		Loop:        c.loop,
		Compositor:  c.surfaces,
		Seat:        c.seat,
		Repeat:      c.translator.Repeat,
		OutputSize:  c.scene.OutputSize,
		Interactive: c.scene,
		Cursor:      c.scene,
	})

	if !opts.NoDevices {
		c.backend = input.NewEvdevBackend(c.translator, c.devices, c.loop, input.BackendOptions{
			Glob:   cfg.Input.DeviceGlob,
			Grab:   cfg.Input.GrabDevices,
			Ignore: cfg.Input.IgnoreDevices,
			Bounds: c.layout.Bounds(),
		})
	}
	if cfg.Trace.Enabled && !opts.NoTrace {
		c.trace = ipc.NewSocketServer(cfg.TraceSocketPath())
		c.seat.SetObserver(&traceObserver{publish: c.trace.Publish, now: c.timeMs})
		c.devices.OnDeviceAdded(c.traceDevice("added"))
		c.devices.OnDeviceRemoved(c.traceDevice("removed"))
	}
	c.emergency = NewEmergencyRelease(c, c.loop, cfg.Emergency)
	return c, nil
}

// Run listens, starts input and serves clients until ctx is cancelled.
// Teardown runs on the loop before it stops.
func (c *Compositor) Run(ctx context.Context) error {
	if err := c.server.Listen(); err != nil {
		c.loop.Stop()
		return fmt.Errorf("failed to listen: %w", err)
	}
	logger.Info("compositor ready", "display", c.server.Name())

	if c.trace != nil {
		if err := c.trace.Start(); err != nil {
			logger.Warn("trace socket disabled", "err", err)
			c.seat.SetObserver(nil)
			c.trace = nil
		} else {
			logger.Info("trace socket listening", "path", c.trace.Path())
		}
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- c.loop.Run(loopCtx) }()
	if c.backend != nil {
		if err := c.backend.Start(ctx); err != nil {
			c.shutdown()
			return fmt.Errorf("failed to start input backend: %w", err)
		}
	}
	c.loop.Post(c.frames.Start)
	c.emergency.Start()

	serveDone := make(chan error, 1)
	go func() { serveDone <- c.server.Serve(ctx) }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveDone:
	case err = <-loopDone:
		err = fmt.Errorf("compositor loop exited: %w", err)
	}
	c.shutdown()
	return err
}

func (c *Compositor) shutdown() {
	c.emergency.Stop()
	if c.backend != nil {
		c.backend.Stop()
	}
	c.loop.Invoke(func() {
		c.frames.Stop()
		c.server.DisconnectAll()
	})
	c.loop.Stop()
	if err := c.server.Close(); err != nil {
		logger.Debug("closing wayland socket", "err", err)
	}
	if c.trace != nil {
		c.trace.Stop()
	}
	logger.Info("compositor stopped")
}

// Loop exposes the event loop for callers that must run code on it.
func (c *Compositor) Loop() *loop.Loop { return c.loop }

// Scene returns the scene. It must only be used on the loop.
func (c *Compositor) Scene() *scene.Scene { return c.scene }

// Seat returns the seat. It must only be used on the loop.
func (c *Compositor) Seat() *seat.Seat { return c.seat }

// Translator returns the input translator. It must only be used on the
// loop.
func (c *Compositor) Translator() *input.Translator { return c.translator }

// Devices returns the device manager. It must only be used on the loop.
func (c *Compositor) Devices() *input.DeviceManager { return c.devices }

// timeMs is the compositor clock used for frame callbacks and traces.
func (c *Compositor) timeMs() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// handleEvent is the translator sink. It routes the event to the seat,
// moves keyboard focus on click and publishes the event to the trace.
func (c *Compositor) handleEvent(ev *input.Event) {
	c.touch()
	c.seat.HandleEvent(ev)
	if ev.Type == input.ButtonPress {
		c.focusClicked()
	}
	if c.trace != nil {
		c.trace.Publish(ipc.FromEvent(ev))
	}
}

func (c *Compositor) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Compositor) idle() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

func outputRects(outputs []config.OutputConfig) []image.Rectangle {
	rects := make([]image.Rectangle, 0, len(outputs))
	for _, o := range outputs {
		rects = append(rects, image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height))
	}
	return rects
}

func barriers(cfg []config.BarrierConfig) []input.Barrier {
	out := make([]input.Barrier, 0, len(cfg))
	for _, b := range cfg {
		out = append(out, input.Barrier{
			X1: float64(b.X1), Y1: float64(b.Y1),
			X2: float64(b.X2), Y2: float64(b.Y2),
		})
	}
	return out
}

func frameInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Server.FrameIntervalMs) * time.Millisecond
}
