package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend wraps PortAudio for Mercury's fixed 48kHz mono
// input/output. The buffer size is set at Open time rather than compiled
// in, since different presets use different OFDM symbol lengths.
type PortAudioBackend struct {
	inputStream  *portaudio.Stream
	outputStream *portaudio.Stream
	inputBuf     []float32
	outputBuf    []float32
	mu           sync.Mutex
}

// InitPortAudio initializes the PortAudio library. Call once at process
// startup before constructing any PortAudioBackend.
func InitPortAudio() error {
	return portaudio.Initialize()
}

// TerminatePortAudio releases PortAudio library resources.
func TerminatePortAudio() error {
	return portaudio.Terminate()
}

// NewPortAudioBackend constructs a backend; call Open before use.
func NewPortAudioBackend() *PortAudioBackend {
	return &PortAudioBackend{}
}

// Open opens a full-duplex stream pair at Mercury's fixed sample rate.
func (a *PortAudioBackend) Open(framesPerBuffer int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.inputBuf = make([]float32, framesPerBuffer)
	a.outputBuf = make([]float32, framesPerBuffer)

	inStream, err := portaudio.OpenDefaultStream(NumChannels, 0, float64(SampleRate), framesPerBuffer, a.inputBuf)
	if err != nil {
		return fmt.Errorf("audio: open input stream: %w", err)
	}
	a.inputStream = inStream

	outStream, err := portaudio.OpenDefaultStream(0, NumChannels, float64(SampleRate), framesPerBuffer, a.outputBuf)
	if err != nil {
		inStream.Close()
		return fmt.Errorf("audio: open output stream: %w", err)
	}
	a.outputStream = outStream
	return nil
}

// Start starts both streams.
func (a *PortAudioBackend) Start() error {
	if a.inputStream == nil || a.outputStream == nil {
		return fmt.Errorf("audio: streams not opened")
	}
	if err := a.inputStream.Start(); err != nil {
		return fmt.Errorf("audio: start input: %w", err)
	}
	if err := a.outputStream.Start(); err != nil {
		return fmt.Errorf("audio: start output: %w", err)
	}
	return nil
}

// Stop stops both streams.
func (a *PortAudioBackend) Stop() error {
	if a.inputStream != nil {
		if err := a.inputStream.Stop(); err != nil {
			return fmt.Errorf("audio: stop input: %w", err)
		}
	}
	if a.outputStream != nil {
		if err := a.outputStream.Stop(); err != nil {
			return fmt.Errorf("audio: stop output: %w", err)
		}
	}
	return nil
}

// Read blocks for one buffer of input samples.
func (a *PortAudioBackend) Read() ([]float32, error) {
	if a.inputStream == nil {
		return nil, fmt.Errorf("audio: input stream not opened")
	}
	if err := a.inputStream.Read(); err != nil {
		return nil, fmt.Errorf("audio: read: %w", err)
	}
	out := make([]float32, len(a.inputBuf))
	copy(out, a.inputBuf)
	return out, nil
}

// Write blocks writing exactly one buffer of output samples.
func (a *PortAudioBackend) Write(samples []float32) error {
	if a.outputStream == nil {
		return fmt.Errorf("audio: output stream not opened")
	}
	copy(a.outputBuf, samples)
	return a.outputStream.Write()
}

// Close closes both streams.
func (a *PortAudioBackend) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.inputStream != nil {
		if err := a.inputStream.Close(); err != nil {
			errs = append(errs, err)
		}
		a.inputStream = nil
	}
	if a.outputStream != nil {
		if err := a.outputStream.Close(); err != nil {
			errs = append(errs, err)
		}
		a.outputStream = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("audio: close errors: %v", errs)
	}
	return nil
}
