package ofdm

import "math"

// Window selects the FIR design window.
type Window int

const (
	Hamming Window = iota
	Hanning
	Blackman
)

// FIRFilter is a windowed-sinc finite impulse response filter.
type FIRFilter struct {
	Taps []float64
}

// windowed returns w(n) for n in [0, taps).
func windowed(w Window, n, taps int) float64 {
	x := 2 * math.Pi * float64(n) / float64(taps-1)
	switch w {
	case Hanning:
		return 0.5 - 0.5*math.Cos(x)
	case Blackman:
		return 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	default: // Hamming
		return 0.54 - 0.46*math.Cos(x)
	}
}

// numTaps derives an odd tap count from fs and the transition bandwidth:
// nTaps ~= 4*fs/(2*transitionBW), rounded up to odd.
func numTaps(fs, transitionBW float64) int {
	n := int(math.Ceil(4 * fs / (2 * transitionBW)))
	if n%2 == 0 {
		n++
	}
	if n < 3 {
		n = 3
	}
	return n
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// NewLowpass designs a windowed-sinc low-pass FIR with cutoff cutoffHz at
// sample rate fs, transition bandwidth transitionBW, and the given window.
func NewLowpass(cutoffHz, fs, transitionBW float64, w Window) *FIRFilter {
	n := numTaps(fs, transitionBW)
	taps := make([]float64, n)
	fc := cutoffHz / fs
	mid := (n - 1) / 2
	var sum float64
	for i := 0; i < n; i++ {
		k := i - mid
		h := 2 * fc * sinc(2*fc*float64(k))
		h *= windowed(w, i, n)
		taps[i] = h
		sum += h
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return &FIRFilter{Taps: taps}
}

// NewHighpass synthesizes a high-pass filter via spectral inversion of a
// low-pass design
func NewHighpass(cutoffHz, fs, transitionBW float64, w Window) *FIRFilter {
	lpf := NewLowpass(cutoffHz, fs, transitionBW, w)
	n := len(lpf.Taps)
	mid := (n - 1) / 2
	taps := make([]float64, n)
	for i, h := range lpf.Taps {
		taps[i] = -h
	}
	taps[mid] += 1
	return &FIRFilter{Taps: taps}
}

// NewBandpass synthesizes a band-pass filter as the sum of a low-pass
// design at highHz and a high-pass design at lowHz, less the shared
// centre impulse.
func NewBandpass(lowHz, highHz, fs, transitionBW float64, w Window) *FIRFilter {
	lpf := NewLowpass(highHz, fs, transitionBW, w)
	hpf := NewHighpass(lowHz, fs, transitionBW, w)
	n := len(lpf.Taps)
	if len(hpf.Taps) > n {
		n = len(hpf.Taps)
	}
	taps := make([]float64, n)
	for i := 0; i < n; i++ {
		var l, h float64
		if i < len(lpf.Taps) {
			l = lpf.Taps[i]
		}
		if i < len(hpf.Taps) {
			h = hpf.Taps[i]
		}
		taps[i] = l + h
	}
	// The high-pass carries a unit impulse at the centre tap; removing it
	// leaves LPF(high) - LPF(low), which passes only lowHz..highHz.
	taps[(n-1)/2] -= 1
	return &FIRFilter{Taps: taps}
}

// Apply convolves x with the filter taps (direct-form FIR, zero history).
func (f *FIRFilter) Apply(x []float64) []float64 {
	n := len(x)
	taps := f.Taps
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		for k, t := range taps {
			j := i - k
			if j >= 0 {
				acc += t * x[j]
			}
		}
		out[i] = acc
	}
	return out
}
