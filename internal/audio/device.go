package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DeviceInfo describes one sound device as seen by the modem: its
// channel counts, its default rate, and whether it can carry Mercury's
// fixed 48kHz waveform without resampling in the driver.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefault         bool
}

// SupportsModemRate reports whether the device's default rate matches
// the waveform sample rate.
func (d DeviceInfo) SupportsModemRate() bool {
	return d.DefaultSampleRate == float64(SampleRate)
}

// Usable reports whether the device can serve at least one side of the
// link (capture or playback).
func (d DeviceInfo) Usable() bool {
	return d.MaxInputChannels > 0 || d.MaxOutputChannels > 0
}

// ListDevices enumerates the host's audio devices. PortAudio must be
// initialized first.
func ListDevices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}
	defaultIn, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("audio: default input device: %w", err)
	}
	defaultOut, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("audio: default output device: %w", err)
	}

	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefault:         d.Name == defaultIn.Name || d.Name == defaultOut.Name,
		})
	}
	return out, nil
}

// PrintDevices writes the device table to stdout, flagging the defaults
// and any device whose rate would force driver-side resampling of the
// modem waveform.
func PrintDevices() error {
	devices, err := ListDevices()
	if err != nil {
		return err
	}
	fmt.Println("Audio devices:")
	for i, d := range devices {
		if !d.Usable() {
			continue
		}
		mark := " "
		if d.IsDefault {
			mark = "*"
		}
		rate := ""
		if !d.SupportsModemRate() {
			rate = fmt.Sprintf(" (resampled from %.0f Hz)", d.DefaultSampleRate)
		}
		fmt.Printf(" %s %2d: %s  in:%d out:%d%s\n",
			mark, i, d.Name, d.MaxInputChannels, d.MaxOutputChannels, rate)
	}
	return nil
}
