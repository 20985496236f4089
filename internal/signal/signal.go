// Package signal provides one-shot destruction notifications.
//
// An object that others hold weak references to embeds a Signal. Holders
// register a listener that clears their reference; the owner emits once
// when it goes away.
package signal

// Signal is a one-shot observer list. The zero value is ready to use.
type Signal struct {
	listeners []*Listener
	fired     bool
	emitting  bool
}

// Listener is a registration on a Signal.
type Listener struct {
	sig *Signal
	fn  func()
}

// Add registers fn. If the signal already fired, fn is never called and
// the returned listener is inert.
func (s *Signal) Add(fn func()) *Listener {
	l := &Listener{sig: s, fn: fn}
	if s.fired {
		l.sig = nil
		return l
	}
	s.listeners = append(s.listeners, l)
	return l
}

// Remove unregisters the listener. Removing twice, removing after the
// signal fired, or calling Remove on a nil listener are all no-ops.
func (l *Listener) Remove() {
	if l == nil || l.sig == nil {
		return
	}
	s := l.sig
	l.sig = nil
	for i, v := range s.listeners {
		if v == l {
			if s.emitting {
				s.listeners[i] = nil
			} else {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			}
			return
		}
	}
}

// Emit calls every registered listener once, in registration order.
// Listeners may remove themselves or others while Emit runs. Later calls
// do nothing.
func (s *Signal) Emit() {
	if s.fired {
		return
	}
	s.fired = true
	s.emitting = true
	for i := 0; i < len(s.listeners); i++ {
		l := s.listeners[i]
		if l == nil || l.sig == nil {
			continue
		}
		l.sig = nil
		l.fn()
	}
	s.listeners = nil
	s.emitting = false
}

// Fired reports whether Emit has run.
func (s *Signal) Fired() bool {
	return s.fired
}

// Len counts live listeners.
func (s *Signal) Len() int {
	n := 0
	for _, l := range s.listeners {
		if l != nil {
			n++
		}
	}
	return n
}
