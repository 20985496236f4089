package seat

import (
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/signal"
	"github.com/bnema/waycore/internal/surface"
)

// GrabKind identifies a grab.
type GrabKind int

const (
	GrabDefault GrabKind = iota
	GrabModal
	GrabPopup
)

func (k GrabKind) String() string {
	switch k {
	case GrabDefault:
		return "default"
	case GrabModal:
		return "modal"
	case GrabPopup:
		return "popup"
	}
	return "unknown"
}

// Grab decides where pointer events go.
type Grab interface {
	Kind() GrabKind
	// Focus is offered the current surface before every event.
	Focus(s *surface.Surface)
	Motion(ev *input.Event)
	Button(ev *input.Event)
}

// defaultGrab lets focus follow the pointer, except that it stays put
// while any button is held.
type defaultGrab struct {
	pointer *Pointer
}

func (g *defaultGrab) Kind() GrabKind { return GrabDefault }

func (g *defaultGrab) Focus(s *surface.Surface) {
	if g.pointer.buttonCount > 0 {
		return
	}
	g.pointer.SetFocus(s)
}

func (g *defaultGrab) Motion(ev *input.Event) { g.pointer.sendMotion(ev) }

func (g *defaultGrab) Button(ev *input.Event) {
	p := g.pointer
	p.sendButton(ev)
	if p.buttonCount == 0 && ev.Type == input.ButtonRelease {
		p.SetFocus(p.current)
	}
}

// modalGrab swallows everything while the compositor owns the pointer.
type modalGrab struct{}

func (modalGrab) Kind() GrabKind         { return GrabModal }
func (modalGrab) Focus(*surface.Surface) {}
func (modalGrab) Motion(*input.Event)    {}
func (modalGrab) Button(*input.Event)    {}

type trackedPopup struct {
	surface  *surface.Surface
	listener *signal.Listener
}

// popupGrab delivers events normally to the owning client's surfaces and
// to nobody else. A click outside ends it.
type popupGrab struct {
	pointer *Pointer
	owner   surface.ClientID
	popups  []trackedPopup
	ended   bool
}

func (g *popupGrab) Kind() GrabKind { return GrabPopup }

// Owner returns the client that owns the grab.
func (g *popupGrab) Owner() surface.ClientID { return g.owner }

func (g *popupGrab) Focus(s *surface.Surface) {
	if s != nil && s.Client() == g.owner {
		g.pointer.defaultGrab.Focus(s)
		return
	}
	g.pointer.SetFocus(nil)
}

func (g *popupGrab) Motion(ev *input.Event) { g.pointer.sendMotion(ev) }

func (g *popupGrab) Button(ev *input.Event) {
	p := g.pointer
	if p.focusResource != nil {
		p.defaultGrab.Button(ev)
		return
	}
	if ev.Type == input.ButtonRelease && p.buttonCount == 0 {
		g.end()
	}
}

func (g *popupGrab) add(s *surface.Surface) {
	for _, tp := range g.popups {
		if tp.surface == s {
			return
		}
	}
	tp := trackedPopup{surface: s}
	tp.listener = s.Destroyed.Add(func() { g.remove(s) })
	g.popups = append(g.popups, tp)
}

func (g *popupGrab) remove(s *surface.Surface) {
	for i, tp := range g.popups {
		if tp.surface == s {
			g.popups = append(g.popups[:i], g.popups[i+1:]...)
			break
		}
	}
	if len(g.popups) == 0 {
		g.end()
	}
}

// end dismisses every popup and restores the default grab.
func (g *popupGrab) end() {
	if g.ended {
		return
	}
	g.ended = true
	popups := g.popups
	g.popups = nil
	for _, tp := range popups {
		tp.listener.Remove()
		if shell := tp.surface.Shell(); shell != nil {
			shell.PopupDone()
		} else {
			logger.Debug("popup without shell binding", "surface", tp.surface)
		}
	}
	if g.pointer.grab == g {
		g.pointer.EndGrab()
	}
}

// Popups returns the surfaces tracked by the active popup grab.
func (p *Pointer) Popups() []*surface.Surface {
	g, ok := p.grab.(*popupGrab)
	if !ok {
		return nil
	}
	out := make([]*surface.Surface, len(g.popups))
	for i, tp := range g.popups {
		out[i] = tp.surface
	}
	return out
}
