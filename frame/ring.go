package frame

import (
	"sync"

	"github.com/vterrain/clipmap/driver"
	"github.com/vterrain/clipmap/terrain"
	"github.com/vterrain/clipmap/tlog"
)

var log = tlog.New("frame")

// Ring is a reference Allocator: a single host-visible buffer,
// bump-allocated per frame and reset wholesale by the host once it has
// consumed (or recorded copies of) everything allocated from it. It is
// the transient-upload counterpart to a pooled staging buffer: where a
// texture streaming path keeps a small pool of reusable staging
// buffers and drains pending copies explicitly, a Ring keeps exactly
// one buffer and never frees individual allocations — only Reset
// reclaims space, between frames.
type Ring struct {
	mu     sync.Mutex
	buf    driver.Buffer
	cap    int64
	off    int64
	allocs map[uint64]span
	nextID uint64
}

type span struct {
	off, size int64
}

// NewRing creates a Ring backed by a host-visible buffer of the given
// capacity in bytes.
func NewRing(gpu driver.GPU, capacity int64) (*Ring, error) {
	buf, err := gpu.NewBuffer(capacity, true, driver.UGeneric)
	if err != nil {
		return nil, err
	}
	if !buf.Visible() {
		buf.Destroy()
		return nil, terrain.New(terrain.AllocationFailure, "frame: ring buffer is not host visible")
	}
	return &Ring{
		buf:    buf,
		cap:    buf.Cap(),
		allocs: make(map[uint64]span),
	}, nil
}

// Reset reclaims every allocation made since the last Reset. The host
// must not call this while any command buffer that references a
// previously returned Handle is still executing.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.off = 0
	for k := range r.allocs {
		delete(r.allocs, k)
	}
}

// Destroy releases the underlying buffer.
func (r *Ring) Destroy() {
	r.buf.Destroy()
}

const allocAlign = 256

func alignUp(off, align int64) int64 {
	return (off + align - 1) &^ (align - 1)
}

func (r *Ring) alloc(size int64, data []byte) (Handle, error) {
	if size <= 0 {
		return Handle{}, terrain.New(terrain.AllocationFailure, "frame: zero-size allocation")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	off := alignUp(r.off, allocAlign)
	if off+size > r.cap {
		return Handle{}, terrain.New(terrain.AllocationFailure, "frame: ring exhausted")
	}
	if data != nil {
		copy(r.buf.Bytes()[off:off+size], data)
	}
	r.off = off + size

	r.nextID++
	id := r.nextID
	r.allocs[id] = span{off: off, size: size}
	return Handle{id: id}, nil
}

// AllocateVertex implements Allocator.
func (r *Ring) AllocateVertex(size int64, data []byte) (Handle, error) { return r.alloc(size, data) }

// AllocateIndex implements Allocator.
func (r *Ring) AllocateIndex(size int64, data []byte) (Handle, error) { return r.alloc(size, data) }

// AllocateIndirect implements Allocator.
func (r *Ring) AllocateIndirect(size int64, data []byte) (Handle, error) {
	return r.alloc(size, data)
}

// AllocateConstant implements Allocator.
func (r *Ring) AllocateConstant(size int64, data []byte) (Handle, error) {
	return r.alloc(size, data)
}

// Map implements Allocator.
func (r *Ring) Map(h Handle) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.allocs[h.id]
	if !ok {
		return nil, terrain.New(terrain.OutOfRange, "frame: handle not live in this ring")
	}
	return r.buf.Bytes()[s.off : s.off+s.size], nil
}

// Resolve implements Allocator.
func (r *Ring) Resolve(h Handle) (driver.Buffer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.allocs[h.id]
	if !ok {
		return nil, 0, terrain.New(terrain.OutOfRange, "frame: handle not live in this ring")
	}
	return r.buf, s.off, nil
}
