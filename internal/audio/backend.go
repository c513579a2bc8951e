// Package audio provides Mercury's sound-card abstraction: a capability
// interface implemented by a PortAudio backend for real hardware and a
// null/loopback backend for testing without a sound card.
// Mercury's waveform is fixed at 48kHz mono float32 samples.
package audio

const (
	// SampleRate is Mercury's fixed sample rate.
	SampleRate = 48000
	// NumChannels is always mono.
	NumChannels = 1
)

// Backend is the capability every audio I/O implementation exposes. The
// DSP pipeline talks to this interface only, so it runs identically over
// real hardware or the null backend.
type Backend interface {
	Open(framesPerBuffer int) error
	Start() error
	Stop() error
	Close() error
	Read() ([]float32, error)
	Write(samples []float32) error
}
