package sync

import (
	"math"
	"math/cmplx"
)

// FreqSync estimates carrier frequency offset from a preamble whose first
// Nfft/2 samples repeat in its second half (the Schmidl & Cox structure).
type FreqSync struct {
	Nfft int
}

// NewFreqSync builds a frequency-offset estimator for the given FFT size.
func NewFreqSync(nfft int) *FreqSync {
	return &FreqSync{Nfft: nfft}
}

// half is Nfft/2, the length of each repeated preamble half.
func (f *FreqSync) half() int { return f.Nfft / 2 }

// Metric computes the Schmidl-Cox timing metric |P(d)|^2 / R(d)^2 at every
// offset where two half-symbols fit in samples.
func (f *FreqSync) Metric(samples []complex128) []float64 {
	h := f.half()
	n := len(samples) - 2*h
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for d := 0; d < n; d++ {
		var p complex128
		var r float64
		for m := 0; m < h; m++ {
			a := samples[d+m]
			b := samples[d+m+h]
			p += cmplx.Conj(a) * b
			r += real(b)*real(b) + imag(b)*imag(b)
		}
		if r == 0 {
			out[d] = 0
			continue
		}
		mag := cmplx.Abs(p)
		out[d] = (mag * mag) / (r * r)
	}
	return out
}

// EstimateOffset returns the normalized carrier frequency offset (as a
// fraction of the subcarrier spacing) at sample offset d, using the phase
// of the Schmidl-Cox correlation P(d).
func (f *FreqSync) EstimateOffset(samples []complex128, d int) float64 {
	h := f.half()
	var p complex128
	for m := 0; m < h; m++ {
		a := samples[d+m]
		b := samples[d+m+h]
		p += cmplx.Conj(a) * b
	}
	return cmplx.Phase(p) / math.Pi
}

// CorrectOffset rotates samples by the estimated normalized frequency
// offset eps (cycles per sample = eps / Nfft), removing the carrier
// offset before FFT demodulation.
func (f *FreqSync) CorrectOffset(samples []complex128, eps float64) []complex128 {
	out := make([]complex128, len(samples))
	w := -2 * math.Pi * eps / float64(f.Nfft)
	for n, s := range samples {
		rot := cmplx.Rect(1, w*float64(n))
		out[n] = s * rot
	}
	return out
}
