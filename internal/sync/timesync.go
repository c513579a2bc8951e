// Package sync implements Mercury's preamble-aided acquisition: coarse
// time synchronization via cyclic-prefix correlation, carrier frequency
// offset estimation via half-symbol autocorrelation (Schmidl & Cox), and
// pilot-aided channel estimation/equalization
package sync

import "math/cmplx"

// CoarseTimeSync locates an OFDM symbol boundary by correlating each
// candidate window against the copy the cyclic prefix makes of the tail
// of the same symbol: the two segments are identical up to channel noise,
// so the correlation peaks at the true start-of-symbol offset.
type CoarseTimeSync struct {
	Nfft int
	Ngi  int
}

// NewCoarseTimeSync builds a time-sync detector for the given FFT size and
// guard-interval length.
func NewCoarseTimeSync(nfft, ngi int) *CoarseTimeSync {
	return &CoarseTimeSync{Nfft: nfft, Ngi: ngi}
}

// Metric computes the normalized correlation metric at every offset in
// samples where a full symbol (Ngi+Nfft) still fits.
// The metric is in [0,1]; a value near 1 indicates a strong CP match.
func (s *CoarseTimeSync) Metric(samples []complex128) []float64 {
	symLen := s.Ngi + s.Nfft
	n := len(samples) - symLen
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for d := 0; d < n; d++ {
		var corr complex128
		var energyA, energyB float64
		for k := 0; k < s.Ngi; k++ {
			a := samples[d+k]
			b := samples[d+k+s.Nfft]
			corr += a * cmplx.Conj(b)
			energyA += real(a)*real(a) + imag(a)*imag(a)
			energyB += real(b)*real(b) + imag(b)*imag(b)
		}
		denom := energyA + energyB
		if denom == 0 {
			out[d] = 0
			continue
		}
		out[d] = 2 * cmplx.Abs(corr) / denom
	}
	return out
}

// FindPeak returns the offset of the strongest correlation peak and its
// metric value.
func (s *CoarseTimeSync) FindPeak(samples []complex128) (offset int, metric float64) {
	m := s.Metric(samples)
	best, bestIdx := -1.0, 0
	for i, v := range m {
		if v > best {
			best, bestIdx = v, i
		}
	}
	return bestIdx, best
}
