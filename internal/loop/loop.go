// Package loop runs every compositor state change on a single goroutine.
//
// Readers (client sockets, input devices, timers) never touch surface or seat
// state directly. They Post closures, and the loop runs them one at a time in
// the order they were posted.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Run when Stop was called.
var ErrStopped = errors.New("loop stopped")

// Scheduler arms one-shot timers whose callbacks run on the loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the
	// timer was still pending. Stop must be called from the loop.
	Stop() bool
}

// Loop is a single-threaded dispatcher fed by an unbounded queue.
type Loop struct {
	done chan struct{}
	stop sync.Once

	add chan func()
	get chan []func()

	onPanic func(any)
}

// New creates a loop. Its queue goroutine starts immediately; Run starts
// dispatch.
func New() *Loop {
	l := &Loop{
		done: make(chan struct{}),
		add:  make(chan func()),
		get:  make(chan []func()),
	}
	go l.queue()
	return l
}

// OnPanic installs a handler for panics raised by posted closures. Without
// one, a panic propagates and takes the process down.
func (l *Loop) OnPanic(fn func(any)) {
	l.onPanic = fn
}

// Post schedules fn to run on the loop. It is safe to call from any
// goroutine, including the loop itself. Posts after Stop are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.add <- fn:
	case <-l.done:
	}
}

// Stop ends Run and the queue goroutine.
func (l *Loop) Stop() {
	l.stop.Do(func() { close(l.done) })
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) queue() {
	var pending []func()
	var get chan []func()

	for {
		select {
		case <-l.done:
			return
		case fn := <-l.add:
			pending = append(pending, fn)
			get = l.get
		case get <- pending:
			pending = nil
			get = nil
		}
	}
}

// Run dispatches posted closures until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return ErrStopped
		case batch := <-l.get:
			for _, fn := range batch {
				l.dispatch(fn)
			}
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	if l.onPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				l.onPanic(r)
			}
		}()
	}
	fn()
}

// Invoke posts fn and waits for it to finish. It must not be called from
// the loop goroutine.
func (l *Loop) Invoke(fn func()) bool {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// AfterFunc arms a timer that posts fn to the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		})
	})
	return t
}

// timer.stopped is only read and written on the loop goroutine, so a
// callback already sitting in the queue is discarded when Stop wins.
type timer struct {
	t       *time.Timer
	stopped bool
}

func (t *timer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.t.Stop()
	return true
}
