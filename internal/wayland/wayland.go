// Package wayland is a small Wayland client used to check a running
// compositor from the outside.
package wayland

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/wire"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// wl_seat capability bits.
const (
	capPointer  = 1
	capKeyboard = 2
	capTouch    = 4
)

// Global is one registry entry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// SeatInfo describes the bound wl_seat.
type SeatInfo struct {
	Name        string
	HasPointer  bool
	HasKeyboard bool
	HasTouch    bool
}

// Report is everything a probe learned about a display.
type Report struct {
	Socket     string
	Globals    []Global
	Seat       *SeatInfo
	ShmFormats []uint32
	Roundtrip  time.Duration
}

// Has reports whether the display advertises iface.
func (r *Report) Has(iface string) bool {
	for _, g := range r.Globals {
		if g.Interface == iface {
			return true
		}
	}
	return false
}

// ErrDisplayError is returned when the compositor sent wl_display.error.
var ErrDisplayError = errors.New("display error")

// Probe connects to display, lists its globals and binds wl_seat and
// wl_shm to read their initial events. An empty display uses
// $WAYLAND_DISPLAY.
func Probe(display string) (*Report, error) {
	if display == "" {
		display = wire.DisplayName()
	}
	path := wire.SocketPath(display)

	d, err := client.Connect(path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	defer func() {
		if err := d.Context().Close(); err != nil {
			logger.Debug("closing wayland connection", "err", err)
		}
	}()

	p := &prober{display: d, report: &Report{Socket: path}}
	d.SetErrorHandler(func(e client.DisplayErrorEvent) {
		p.err = fmt.Errorf("%w: code %d: %s", ErrDisplayError, e.Code, e.Message)
	})

	registry, err := d.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	p.registry = registry
	registry.SetGlobalHandler(p.global)

	start := time.Now()
	if err := p.roundtrip(); err != nil {
		return nil, err
	}
	p.report.Roundtrip = time.Since(start)

	// Second roundtrip collects the events of the objects bound above.
	if err := p.roundtrip(); err != nil {
		return nil, err
	}

	sort.Slice(p.report.Globals, func(i, j int) bool {
		return p.report.Globals[i].Name < p.report.Globals[j].Name
	})
	return p.report, nil
}

type prober struct {
	display  *client.Display
	registry *client.Registry
	report   *Report
	err      error
}

func (p *prober) roundtrip() error {
	cb, err := p.display.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	defer cb.Destroy()

	done := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })
	for !done && p.err == nil {
		if err := p.display.Context().Dispatch(); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	return p.err
}

func (p *prober) global(e client.RegistryGlobalEvent) {
	p.report.Globals = append(p.report.Globals, Global{Name: e.Name, Interface: e.Interface, Version: e.Version})
	ctx := p.display.Context()

	switch e.Interface {
	case "wl_seat":
		seat := client.NewSeat(ctx)
		if err := p.registry.Bind(e.Name, e.Interface, min(e.Version, 2), seat); err != nil {
			logger.Warn("failed to bind wl_seat", "err", err)
			return
		}
		info := &SeatInfo{}
		p.report.Seat = info
		seat.SetCapabilitiesHandler(func(ev client.SeatCapabilitiesEvent) {
			caps := uint32(ev.Capabilities)
			info.HasPointer = caps&capPointer != 0
			info.HasKeyboard = caps&capKeyboard != 0
			info.HasTouch = caps&capTouch != 0
		})
		seat.SetNameHandler(func(ev client.SeatNameEvent) { info.Name = ev.Name })

	case "wl_shm":
		shm := client.NewShm(ctx)
		if err := p.registry.Bind(e.Name, e.Interface, 1, shm); err != nil {
			logger.Warn("failed to bind wl_shm", "err", err)
			return
		}
		shm.SetFormatHandler(func(ev client.ShmFormatEvent) {
			p.report.ShmFormats = append(p.report.ShmFormats, uint32(ev.Format))
		})
	}
}
