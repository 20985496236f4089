package surface

import (
	"github.com/bnema/waycore/internal/signal"
)

// Content is client memory behind a buffer, such as a wl_shm pool slice.
type Content interface {
	Size() (width, height int)
}

// Buffer is a reference-counted handle on client content. Surfaces hold
// references to the buffer they display; when the last reference is
// dropped the client is told it may reuse the memory.
type Buffer struct {
	Content Content
	// Texture is set by the renderer on import.
	Texture any

	refs    int
	release func()

	// Destroyed fires once when the client destroys the buffer object.
	Destroyed signal.Signal
}

// NewBuffer wraps content. release is called each time the reference
// count drops to zero while the buffer is alive.
func NewBuffer(content Content, release func()) *Buffer {
	return &Buffer{Content: content, release: release}
}

// Size returns the content dimensions.
func (b *Buffer) Size() (int, int) {
	if b == nil || b.Content == nil {
		return 0, 0
	}
	return b.Content.Size()
}

// Refs returns the current reference count.
func (b *Buffer) Refs() int {
	return b.refs
}

// Destroy marks the buffer gone and clears every weak reference to it.
func (b *Buffer) Destroy() {
	b.Destroyed.Emit()
}

func (b *Buffer) ref() {
	b.refs++
}

func (b *Buffer) unref() {
	if b.refs == 0 {
		return
	}
	b.refs--
	if b.refs == 0 && !b.Destroyed.Fired() && b.release != nil {
		b.release()
	}
}

// bufferRef is a counted reference that drops itself when the buffer is
// destroyed underneath it.
type bufferRef struct {
	buffer   *Buffer
	listener *signal.Listener
}

func (r *bufferRef) set(b *Buffer) {
	if r.buffer == b {
		return
	}
	if old := r.buffer; old != nil {
		r.listener.Remove()
		r.buffer, r.listener = nil, nil
		old.unref()
	}
	if b != nil {
		b.ref()
		r.buffer = b
		r.listener = b.Destroyed.Add(func() {
			r.buffer, r.listener = nil, nil
		})
	}
}

// weakBuffer points at a buffer without holding a reference.
type weakBuffer struct {
	buffer   *Buffer
	listener *signal.Listener
}

func (w *weakBuffer) set(b *Buffer) {
	if w.buffer == b {
		return
	}
	w.listener.Remove()
	w.buffer, w.listener = b, nil
	if b != nil {
		w.listener = b.Destroyed.Add(func() {
			w.buffer, w.listener = nil, nil
		})
	}
}
