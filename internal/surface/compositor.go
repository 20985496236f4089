package surface

import (
	"cmp"

	"github.com/bnema/waycore/internal/logger"
	"golang.org/x/exp/slices"
)

// Compositor owns every surface and the list of frame callbacks waiting
// for the next rendered frame.
type Compositor struct {
	renderer Renderer
	wm       WindowManager
	cursor   Cursor

	surfaces       map[Key]*Surface
	frameCallbacks []FrameCallback
}

// NewCompositor creates an empty surface table. cursor may be nil when
// nothing displays cursor surfaces.
func NewCompositor(renderer Renderer, wm WindowManager, cursor Cursor) *Compositor {
	return &Compositor{
		renderer: renderer,
		wm:       wm,
		cursor:   cursor,
		surfaces: make(map[Key]*Surface),
	}
}

// CreateSurface registers a new surface for a client's wl_surface id.
func (c *Compositor) CreateSurface(client ClientID, id uint32) (*Surface, error) {
	key := Key{Client: client, ID: id}
	if _, ok := c.surfaces[key]; ok {
		return nil, ErrDuplicateSurface
	}
	s := &Surface{
		key:     key,
		comp:    c,
		pending: newState(),
	}
	c.surfaces[key] = s
	logger.Debug("surface created", "surface", s)
	return s, nil
}

// Lookup returns a live surface or nil.
func (c *Compositor) Lookup(client ClientID, id uint32) *Surface {
	return c.surfaces[Key{Client: client, ID: id}]
}

// Surfaces returns every live surface ordered by client, then id.
func (c *Compositor) Surfaces() []*Surface {
	out := make([]*Surface, 0, len(c.surfaces))
	for _, s := range c.surfaces {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Surface) int {
		if a.key.Client != b.key.Client {
			return cmp.Compare(a.key.Client, b.key.Client)
		}
		return cmp.Compare(a.key.ID, b.key.ID)
	})
	return out
}

func (c *Compositor) remove(s *Surface) {
	if c.surfaces[s.key] == s {
		delete(c.surfaces, s.key)
	}
	logger.Debug("surface destroyed", "surface", s)
}

// DestroyClient destroys every surface a disconnecting client owns,
// newest id first.
func (c *Compositor) DestroyClient(client ClientID) {
	var owned []*Surface
	for _, s := range c.Surfaces() {
		if s.key.Client == client {
			owned = append(owned, s)
		}
	}
	for i := len(owned) - 1; i >= 0; i-- {
		owned[i].Destroy()
	}
}

// FrameDone signals every callback committed since the previous frame.
func (c *Compositor) FrameDone(timeMs uint32) {
	cbs := c.frameCallbacks
	c.frameCallbacks = nil
	for _, cb := range cbs {
		cb.Done(timeMs)
	}
}

// PendingFrameCallbacks counts callbacks waiting for the next frame.
func (c *Compositor) PendingFrameCallbacks() int {
	return len(c.frameCallbacks)
}
