package core

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// DefaultSegmentBufferSize is the starting capacity of pooled encode buffers.
// Segments are rewritten whole on every append, so buffers grow to the page
// size plus one entry and are kept at that capacity.
const DefaultSegmentBufferSize = 8 * 1024

// maxPooledBuffers bounds the number of idle buffers the pool retains.
const maxPooledBuffers = 64

// SegmentBufferPool is used by EncodeEntries.
var SegmentBufferPool = NewBufferPool(DefaultSegmentBufferSize)

// BufferPool is a mutex-protected pool of bytes.Buffer. Unlike sync.Pool its
// contents survive garbage collection, so a steady append stream keeps reusing
// buffers that have already grown to segment size.
type BufferPool struct {
	mu       sync.Mutex
	items    []*bytes.Buffer
	capacity int

	hits    atomic.Uint64
	misses  atomic.Uint64
	dropped atomic.Uint64
}

// NewBufferPool creates an empty pool whose new buffers start with the given capacity.
func NewBufferPool(capacity int) *BufferPool {
	if capacity < 0 {
		capacity = 0
	}
	return &BufferPool{
		items:    make([]*bytes.Buffer, 0, maxPooledBuffers),
		capacity: capacity,
	}
}

// Get retrieves a buffer from the pool. If the pool is empty, it creates a new one.
func (bp *BufferPool) Get() *bytes.Buffer {
	bp.mu.Lock()
	if len(bp.items) == 0 {
		bp.mu.Unlock()
		bp.misses.Add(1)
		return bytes.NewBuffer(make([]byte, 0, bp.capacity))
	}
	item := bp.items[len(bp.items)-1]
	bp.items = bp.items[:len(bp.items)-1]
	bp.mu.Unlock()
	bp.hits.Add(1)
	return item
}

// Put resets buf and returns it to the pool. Buffers beyond the retention
// limit are dropped.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if len(bp.items) >= maxPooledBuffers {
		bp.dropped.Add(1)
		return
	}
	bp.items = append(bp.items, buf)
}

// Stats returns hit, miss and drop counts plus the number of idle buffers.
func (bp *BufferPool) Stats() (hits, misses, dropped uint64, idle int) {
	bp.mu.Lock()
	idle = len(bp.items)
	bp.mu.Unlock()
	return bp.hits.Load(), bp.misses.Load(), bp.dropped.Load(), idle
}
