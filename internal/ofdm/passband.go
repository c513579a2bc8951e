package ofdm

import "math"

// PassbandMixer converts complex baseband samples to/from a real passband
// signal centered on carrier_freq:
//
//	y[n] = I*A*cos(2*pi*fc*n*Ts) + Q*A*sin(2*pi*fc*n*Ts)
type PassbandMixer struct {
	CarrierFreq float64
	SampleRate  float64
	Amplitude   float64
}

// NewPassbandMixer constructs a mixer for the given carrier frequency,
// sample rate, and output amplitude.
func NewPassbandMixer(carrierFreq, sampleRate, amplitude float64) *PassbandMixer {
	return &PassbandMixer{CarrierFreq: carrierFreq, SampleRate: sampleRate, Amplitude: amplitude}
}

// Upconvert maps complex baseband samples to a real passband stream.
func (m *PassbandMixer) Upconvert(baseband []complex128) []float64 {
	ts := 1.0 / m.SampleRate
	out := make([]float64, len(baseband))
	for n, s := range baseband {
		phase := 2 * math.Pi * m.CarrierFreq * float64(n) * ts
		out[n] = real(s)*m.Amplitude*math.Cos(phase) + imag(s)*m.Amplitude*math.Sin(phase)
	}
	return out
}

// Downconvert mixes a real passband stream back to complex baseband using
// cos/sin taps (quadrature mixing); a subsequent LPF removes the 2*fc image.
func (m *PassbandMixer) Downconvert(passband []float64) []complex128 {
	ts := 1.0 / m.SampleRate
	out := make([]complex128, len(passband))
	for n, y := range passband {
		phase := 2 * math.Pi * m.CarrierFreq * float64(n) * ts
		i := y * math.Cos(phase)
		q := y * math.Sin(phase)
		out[n] = complex(i, q)
	}
	return out
}

// LinearResampleComplex performs piecewise-linear interpolation between
// complex baseband samples to convert from srcRate to dstRate, per the
// "integer rational resampler"
func LinearResampleComplex(in []complex128, srcRate, dstRate float64) []complex128 {
	if len(in) == 0 || srcRate <= 0 || dstRate <= 0 {
		return nil
	}
	ratio := srcRate / dstRate
	outLen := int(float64(len(in)) / ratio)
	out := make([]complex128, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		i0 := int(srcPos)
		frac := srcPos - float64(i0)
		if i0+1 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		a, b := in[i0], in[i0+1]
		out[i] = complex(
			real(a)+(real(b)-real(a))*frac,
			imag(a)+(imag(b)-imag(a))*frac,
		)
	}
	return out
}

// UpsampleThenFilter implements the passband-path resampler: zero-stuff to
// the target rate, then low-pass filter to remove imaging. The modem
// pipeline does not call it: it reaches the 48kHz audio rate with
// LinearResampleComplex on the complex baseband before mixing.
func UpsampleThenFilter(in []float64, srcRate, dstRate float64, filt *FIRFilter) []float64 {
	if srcRate <= 0 || dstRate <= 0 || len(in) == 0 {
		return nil
	}
	factor := int(dstRate / srcRate)
	if factor < 1 {
		factor = 1
	}
	stuffed := make([]float64, len(in)*factor)
	for i, v := range in {
		stuffed[i*factor] = v * float64(factor)
	}
	if filt == nil {
		return stuffed
	}
	return filt.Apply(stuffed)
}

// DecimateAfterFilter filters, then keeps every factor-th sample. The
// modem pipeline's receive path does not call it.
func DecimateAfterFilter(in []float64, factor int, filt *FIRFilter) []float64 {
	if factor < 1 {
		factor = 1
	}
	filtered := in
	if filt != nil {
		filtered = filt.Apply(in)
	}
	out := make([]float64, 0, len(filtered)/factor+1)
	for i := 0; i < len(filtered); i += factor {
		out = append(out, filtered[i])
	}
	return out
}
