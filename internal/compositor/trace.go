package compositor

import (
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/ipc"
	"github.com/bnema/waycore/internal/surface"
)

// traceObserver turns seat focus changes into trace records.
type traceObserver struct {
	publish func(*ipc.Record)
	now     func() uint32
}

func (o *traceObserver) PointerFocus(s *surface.Surface, serial uint32) {
	o.publish(focusRecord(ipc.KindPointerFocus, o.now(), s, serial))
}

func (o *traceObserver) KeyboardFocus(s *surface.Surface, serial uint32) {
	o.publish(focusRecord(ipc.KindKeyboardFocus, o.now(), s, serial))
}

func focusRecord(kind ipc.Kind, t uint32, s *surface.Surface, serial uint32) *ipc.Record {
	r := &ipc.Record{Kind: kind, TimeMs: t, Serial: serial}
	if s != nil {
		r.Surface = s.String()
	}
	return r
}

func (c *Compositor) traceDevice(event string) func(*input.Device) {
	return func(d *input.Device) {
		if c.trace == nil {
			return
		}
		c.trace.Publish(&ipc.Record{
			Kind:   ipc.KindDevice,
			TimeMs: c.timeMs(),
			Event:  event,
			Device: d.Name,
			Code:   uint32(d.Type),
		})
	}
}
