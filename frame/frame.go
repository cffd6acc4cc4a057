// Package frame defines the terrain core's narrow contract with the
// host's render system: a streamed GPU allocator providing
// (offset, handle) pairs for transient vertex/index/indirect/uniform
// spans. The core holds no opinion about how the host implements it
// and never frees these allocations itself; the host recycles them
// per frame.
package frame

import "github.com/vterrain/clipmap/driver"

// Handle identifies a transient allocation made within the current
// frame. It is opaque to the core; only the Allocator that produced it
// can resolve or map it.
type Handle struct {
	id uint64
}

// Allocator is the host-implemented contract consumed by the clipmap
// view's per-frame draw stream.
type Allocator interface {
	// AllocateVertex reserves size bytes of vertex data, optionally
	// initialized from data (nil leaves it unwritten).
	AllocateVertex(size int64, data []byte) (Handle, error)

	// AllocateIndex reserves size bytes of index data.
	AllocateIndex(size int64, data []byte) (Handle, error)

	// AllocateIndirect reserves size bytes for indirect draw commands,
	// with alignment appropriate for the back end's indirect-draw
	// command layout.
	AllocateIndirect(size int64, data []byte) (Handle, error)

	// AllocateConstant reserves size bytes of constant (uniform) data.
	AllocateConstant(size int64, data []byte) (Handle, error)

	// Map returns a mutable byte span for h, valid until the end of
	// the frame.
	Map(h Handle) ([]byte, error)

	// Resolve returns the GPU buffer backing h and h's byte offset
	// within it.
	Resolve(h Handle) (driver.Buffer, int64, error)
}
