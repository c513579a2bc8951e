package audio

import (
	"fmt"
	"sync"
)

// NullBackend is a loopback audio backend for tests and offline runs
// without a sound card: every Write appends its samples to an internal
// queue, and Read drains that queue one buffer at a time. It lets the DSP
// pipeline, ARQ state machine, and TCP bridge be exercised end to end
// without PortAudio or real hardware.
type NullBackend struct {
	mu              sync.Mutex
	framesPerBuffer int
	queue           []float32
	open            bool
}

// NewNullBackend constructs a loopback backend.
func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

// Open records the buffer size used by Read.
func (n *NullBackend) Open(framesPerBuffer int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if framesPerBuffer <= 0 {
		return fmt.Errorf("audio: framesPerBuffer must be positive, got %d", framesPerBuffer)
	}
	n.framesPerBuffer = framesPerBuffer
	n.open = true
	return nil
}

// Start is a no-op for the loopback backend.
func (n *NullBackend) Start() error { return nil }

// Stop is a no-op for the loopback backend.
func (n *NullBackend) Stop() error { return nil }

// Close discards any queued samples.
func (n *NullBackend) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = nil
	n.open = false
	return nil
}

// Write appends samples to the loopback queue.
func (n *NullBackend) Write(samples []float32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open {
		return fmt.Errorf("audio: backend not opened")
	}
	n.queue = append(n.queue, samples...)
	return nil
}

// Read pops one buffer's worth of samples, zero-padding if the queue runs
// dry (standing in for the silence a real sound card would capture).
func (n *NullBackend) Read() ([]float32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open {
		return nil, fmt.Errorf("audio: backend not opened")
	}
	out := make([]float32, n.framesPerBuffer)
	avail := len(n.queue)
	if avail > n.framesPerBuffer {
		avail = n.framesPerBuffer
	}
	copy(out, n.queue[:avail])
	n.queue = n.queue[avail:]
	return out, nil
}

// Queued reports how many samples are waiting to be read.
func (n *NullBackend) Queued() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

var _ Backend = (*NullBackend)(nil)
var _ Backend = (*PortAudioBackend)(nil)
