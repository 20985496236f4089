package surface

import (
	"image"

	"github.com/bnema/waycore/internal/region"
)

// Renderer draws surface content. It is told about every state change a
// commit applies and never calls back into the surface package.
type Renderer interface {
	// ImportBuffer prepares the buffer's backing texture. A failure leaves
	// the surface's visible content as it was.
	ImportBuffer(b *Buffer) error
	Attach(s *Surface, b *Buffer)
	Damage(s *Surface, rect image.Rectangle)
	SetOpaqueRegion(s *Surface, r *region.Region)
	SetInputRegion(s *Surface, r *region.Region)

	// SetPosition places a subsurface relative to its parent.
	SetPosition(s *Surface, x, y int)
	SetVisible(s *Surface, visible bool)
	// Restack orders a parent's children bottom to top.
	Restack(parent *Surface, children []*Surface)
	Detach(s *Surface)
}

// WindowManager decides placement and creates managed windows for
// toplevel and popup surfaces.
type WindowManager interface {
	Manage(s *Surface, role Role, parent *Surface, x, y int) Window
}

// Window is a managed window backed by a surface.
type Window interface {
	Size() (width, height int)
	MoveResize(width, height int, dx, dy int32)
	SetMapped(mapped bool)
	Unmanage()
}

// Cursor shows cursor-role surfaces.
type Cursor interface {
	UpdateSprite(s *Surface, b *Buffer, dx, dy int32)
}

// FrameCallback is a wl_callback waiting for the next rendered frame.
type FrameCallback interface {
	Done(timeMs uint32)
	// Cancel destroys the callback without signalling it.
	Cancel()
}

// ShellSurface is the protocol object that gave a surface its toplevel or
// popup role.
type ShellSurface interface {
	Configure(edges uint32, width, height int32)
	PopupDone()
}
