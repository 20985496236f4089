package scene

import (
	"time"

	"github.com/bnema/waycore/internal/loop"
	"github.com/bnema/waycore/internal/surface"
)

// FrameClock stands in for vblank. Each tick finishes a frame: damage is
// dropped and every committed frame callback is signalled with the tick
// time in milliseconds.
type FrameClock struct {
	sched    loop.Scheduler
	interval time.Duration
	comp     *surface.Compositor
	scene    *Scene
	now      func() uint32

	timer  loop.Timer
	frames uint64
}

// NewFrameClock creates a stopped clock. now supplies callback
// timestamps.
func NewFrameClock(sched loop.Scheduler, interval time.Duration, comp *surface.Compositor, sc *Scene, now func() uint32) *FrameClock {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &FrameClock{sched: sched, interval: interval, comp: comp, scene: sc, now: now}
}

// Start arms the first tick. Starting a running clock does nothing.
func (f *FrameClock) Start() {
	if f.timer != nil {
		return
	}
	f.timer = f.sched.AfterFunc(f.interval, f.tick)
}

// Stop cancels the pending tick.
func (f *FrameClock) Stop() {
	if f.timer == nil {
		return
	}
	f.timer.Stop()
	f.timer = nil
}

// SetInterval changes the period from the next tick on.
func (f *FrameClock) SetInterval(d time.Duration) {
	if d > 0 {
		f.interval = d
	}
}

// Frames counts completed ticks.
func (f *FrameClock) Frames() uint64 { return f.frames }

func (f *FrameClock) tick() {
	f.frames++
	f.scene.clearDamage()
	f.comp.FrameDone(f.now())
	f.timer = f.sched.AfterFunc(f.interval, f.tick)
}
