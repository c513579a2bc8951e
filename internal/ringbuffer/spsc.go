// Package ringbuffer implements the lockless sample queues that sit
// between Mercury's audio callback and its DSP pipeline:
// a single-producer/single-consumer ring for the hot audio path, and a
// multi-producer/multi-consumer ring of float32 values for handing samples
// between several goroutines without a mutex. The modem loop uses only the
// single-producer/single-consumer ring.
package ringbuffer

import (
	"fmt"
	"sync/atomic"
)

// Float32Ring is a fixed power-of-two-capacity lockless ring buffer for a
// single writer and a single reader. The writer only ever advances head,
// the reader only ever advances tail; each side reads the other's cursor
// through an atomic load, which is what stands in for the acquire/release
// fence pairing this protocol needs.
type Float32Ring struct {
	buf  []float32
	mask uint64
	head atomic.Uint64 // advanced by the writer
	tail atomic.Uint64 // advanced by the reader
}

// NewFloat32Ring allocates a ring of the given capacity, which must be a
// power of two.
func NewFloat32Ring(capacity int) (*Float32Ring, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ringbuffer: capacity %d is not a positive power of two", capacity)
	}
	return &Float32Ring{
		buf:  make([]float32, capacity),
		mask: uint64(capacity - 1),
	}, nil
}

// Capacity is the fixed ring size.
func (r *Float32Ring) Capacity() int { return len(r.buf) }

// Len returns the number of samples currently queued.
func (r *Float32Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Free returns the number of samples that can be written without
// overrunning the reader.
func (r *Float32Ring) Free() int {
	return len(r.buf) - r.Len()
}

// Write copies as many samples from p as fit, returning the count
// actually written. It never blocks: if the ring is full, the excess is
// dropped by the caller (the modem loop counts this as a ring overrun).
func (r *Float32Ring) Write(p []float32) int {
	head := r.head.Load()
	tail := r.tail.Load()
	free := uint64(len(r.buf)) - (head - tail)
	n := uint64(len(p))
	if n > free {
		n = free
	}
	for i := uint64(0); i < n; i++ {
		r.buf[(head+i)&r.mask] = p[i]
	}
	r.head.Store(head + n)
	return int(n)
}

// Read copies as many queued samples into p as are available, returning
// the count actually read.
func (r *Float32Ring) Read(p []float32) int {
	tail := r.tail.Load()
	head := r.head.Load()
	avail := head - tail
	n := uint64(len(p))
	if n > avail {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		p[i] = r.buf[(tail+i)&r.mask]
	}
	r.tail.Store(tail + n)
	return int(n)
}

// Reset discards all queued samples. Only safe to call when neither the
// writer nor the reader is concurrently active.
func (r *Float32Ring) Reset() {
	r.head.Store(0)
	r.tail.Store(0)
}
