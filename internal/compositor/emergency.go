package compositor

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/seat"
)

// Releaser drops whatever holds input captive. ReleaseGrabs and
// GrabActive run on the loop; Idle may be called from any goroutine.
type Releaser interface {
	ReleaseGrabs(reason string)
	GrabActive() bool
	Idle() time.Duration
}

// EmergencyRelease provides escape hatches for a stuck modal or popup
// grab or a forgotten EVIOCGRAB: SIGUSR1, a trigger file and an idle
// timeout while a grab is held.
type EmergencyRelease struct {
	releaser     Releaser
	poster       interface{ Post(func()) }
	triggerFile  string
	grabTimeout  time.Duration
	pollInterval time.Duration
	idleInterval time.Duration

	stopChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewEmergencyRelease creates a stopped handler.
func NewEmergencyRelease(r Releaser, poster interface{ Post(func()) }, cfg config.EmergencyConfig) *EmergencyRelease {
	return &EmergencyRelease{
		releaser:     r,
		poster:       poster,
		triggerFile:  cfg.TriggerFile,
		grabTimeout:  time.Duration(cfg.GrabTimeoutSec) * time.Second,
		pollInterval: time.Second,
		idleInterval: 5 * time.Second,
		stopChan:     make(chan struct{}),
	}
}

// Start begins monitoring for emergency release conditions
func (er *EmergencyRelease) Start() {
	er.startOnce.Do(func() {
		er.wg.Add(1)
		go er.handleSignals()
		if er.grabTimeout > 0 {
			er.wg.Add(1)
			go er.monitorActivity()
		}
		if er.triggerFile != "" {
			er.wg.Add(1)
			go er.monitorFileTrigger()
		}
		logger.Info("emergency release armed", "trigger_file", er.triggerFile, "grab_timeout", er.grabTimeout)
	})
}

// Stop ends monitoring. It is safe to call without Start.
func (er *EmergencyRelease) Stop() {
	er.stopOnce.Do(func() {
		close(er.stopChan)
	})
	er.wg.Wait()
}

// Trigger releases now.
func (er *EmergencyRelease) Trigger(reason string) {
	er.poster.Post(func() { er.releaser.ReleaseGrabs(reason) })
}

func (er *EmergencyRelease) handleSignals() {
	defer er.wg.Done()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			logger.Warn("SIGUSR1 received, releasing grabs")
			er.Trigger("signal")
		case <-er.stopChan:
			return
		}
	}
}

// monitorActivity releases a grab that outlives the idle timeout.
func (er *EmergencyRelease) monitorActivity() {
	defer er.wg.Done()
	ticker := time.NewTicker(er.idleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if er.releaser.Idle() < er.grabTimeout {
				continue
			}
			er.poster.Post(func() {
				if er.releaser.GrabActive() {
					logger.Warn("no input while a grab is held, releasing", "timeout", er.grabTimeout)
					er.releaser.ReleaseGrabs("timeout")
				}
			})
		case <-er.stopChan:
			return
		}
	}
}

// monitorFileTrigger releases when the trigger file appears and removes
// it.
func (er *EmergencyRelease) monitorFileTrigger() {
	defer er.wg.Done()
	ticker := time.NewTicker(er.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := os.Stat(er.triggerFile); err == nil {
				logger.Warn("release file detected", "path", er.triggerFile)
				if err := os.Remove(er.triggerFile); err != nil {
					logger.Warn("failed to remove release file", "path", er.triggerFile, "err", err)
				}
				er.Trigger("file")
			}
		case <-er.stopChan:
			return
		}
	}
}

// ReleaseGrabs ends any modal or popup grab and gives up exclusive
// device access. It runs on the loop.
func (c *Compositor) ReleaseGrabs(reason string) {
	p := c.seat.Pointer()
	kind := p.ActiveGrab().Kind()
	p.EndModal()
	p.EndPopupGrab()
	released := 0
	if c.backend != nil {
		released = c.backend.ReleaseGrabs()
	}
	logger.Warn("emergency release", "reason", reason, "grab", kind, "devices", released)
}

// GrabActive reports whether the pointer is in a modal or popup grab.
func (c *Compositor) GrabActive() bool {
	return c.seat.Pointer().ActiveGrab().Kind() != seat.GrabDefault
}

// Idle is the time since the last input event.
func (c *Compositor) Idle() time.Duration { return c.idle() }
