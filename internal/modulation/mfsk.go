package modulation

import (
	"fmt"
	"math"
)

// MFSKModulator implements the Mercury ACK/control tone modem: M-ary
// frequency-shift keying with per-symbol tone hopping and optional stream
// diversity Demodulation is non-coherent: each tone's
// energy is measured with a Goertzel filter and the strongest tone wins,
// so no carrier-phase tracking is required.
type MFSKModulator struct {
	M           int // tones per stream: 16 or 32
	NStreams    int // diversity streams, 1..4
	HopStep     int // per-symbol tone-hop step, 7 or 13
	SampleRate  float64
	BaseFreq    float64
	ToneSpacing float64
}

// NewMFSKModulator validates and builds an MFSK modulator.
func NewMFSKModulator(m, nStreams, hopStep int, sampleRate, baseFreq, toneSpacing float64) (*MFSKModulator, error) {
	if m != 16 && m != 32 {
		return nil, fmt.Errorf("modulation: unsupported MFSK order %d", m)
	}
	if nStreams < 1 || nStreams > 4 {
		return nil, fmt.Errorf("modulation: nStreams %d out of range [1,4]", nStreams)
	}
	if hopStep != 7 && hopStep != 13 {
		return nil, fmt.Errorf("modulation: unsupported tone-hop step %d", hopStep)
	}
	return &MFSKModulator{
		M: m, NStreams: nStreams, HopStep: hopStep,
		SampleRate: sampleRate, BaseFreq: baseFreq, ToneSpacing: toneSpacing,
	}, nil
}

// BitsPerSymbol is log2(M).
func (f *MFSKModulator) BitsPerSymbol() int { return log2(f.M) }

// grayTone and ungrayTone map between a natural symbol value and its
// Gray-coded tone index, so that a one-tone detection error (adjacent
// tone) costs a single bit.
func grayTone(sym int) int    { return gray(sym) }
func ungrayTone(tone int) int { return ungray(tone) }

func gray(x int) int { return x ^ (x >> 1) }

func ungray(g int) int {
	x := g
	for shift := 1; shift < 16; shift <<= 1 {
		x ^= x >> shift
	}
	return x
}

// hopOffset returns the per-symbol, per-stream tone-hop offset: the hop
// state advances by HopStep (mod M) every symbol, and each diversity
// stream starts at a distinct phase so the streams' tone sets do not
// collide within a symbol.
func (f *MFSKModulator) hopOffset(symbolIndex, stream int) int {
	phase := stream * (f.M / f.NStreams)
	state := (symbolIndex * f.HopStep) % f.M
	return (state + phase) % f.M
}

// ToneFrequency returns the carrier frequency used for tone value `sym`
// (pre-hop, pre-Gray-coding) on a given stream at a given symbol index.
func (f *MFSKModulator) ToneFrequency(symbolIndex, stream, sym int) float64 {
	tone := (grayTone(sym) + f.hopOffset(symbolIndex, stream)) % f.M
	streamBand := float64(stream) * float64(f.M) * f.ToneSpacing
	return f.BaseFreq + streamBand + float64(tone)*f.ToneSpacing
}

// ModulateSymbol synthesizes symbolLen samples of the tone for `sym` on
// the given stream at the given symbol index.
func (f *MFSKModulator) ModulateSymbol(symbolIndex, stream, sym, symbolLen int) []float64 {
	freq := f.ToneFrequency(symbolIndex, stream, sym)
	out := make([]float64, symbolLen)
	for n := 0; n < symbolLen; n++ {
		out[n] = math.Sin(2 * math.Pi * freq * float64(n) / f.SampleRate)
	}
	return out
}

// ModulateStream synthesizes a full run of symbols on one stream.
func (f *MFSKModulator) ModulateStream(symbols []int, stream, symbolLen int) []float64 {
	out := make([]float64, 0, len(symbols)*symbolLen)
	for i, s := range symbols {
		out = append(out, f.ModulateSymbol(i, stream, s, symbolLen)...)
	}
	return out
}

// goertzelPower returns the energy of x at frequency freq (sample rate fs)
// using the Goertzel algorithm, the standard non-coherent single-bin tone
// detector.
func goertzelPower(x []float64, freq, fs float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	k := int(0.5 + float64(n)*freq/fs)
	w := 2 * math.Pi * float64(k) / float64(n)
	coeff := 2 * math.Cos(w)
	var q1, q2 float64
	for _, s := range x {
		q0 := coeff*q1 - q2 + s
		q2 = q1
		q1 = q0
	}
	return q1*q1 + q2*q2 - q1*q2*coeff
}

// DemodulateSymbol picks the strongest of the M possible (hopped,
// Gray-coded) tones in one symbol's worth of samples and returns the
// natural symbol value.
func (f *MFSKModulator) DemodulateSymbol(samples []float64, symbolIndex, stream int) int {
	bestTone, bestPower := 0, -1.0
	offset := f.hopOffset(symbolIndex, stream)
	streamBand := float64(stream) * float64(f.M) * f.ToneSpacing
	for tone := 0; tone < f.M; tone++ {
		hopped := (tone + offset) % f.M
		freq := f.BaseFreq + streamBand + float64(hopped)*f.ToneSpacing
		p := goertzelPower(samples, freq, f.SampleRate)
		if p > bestPower {
			bestPower, bestTone = p, tone
		}
	}
	return ungrayTone(bestTone)
}

// DemodulateStream splits samples into symbolLen chunks and demodulates
// each in turn.
func (f *MFSKModulator) DemodulateStream(samples []float64, stream, symbolLen int) []int {
	n := len(samples) / symbolLen
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = f.DemodulateSymbol(samples[i*symbolLen:(i+1)*symbolLen], i, stream)
	}
	return out
}

// WelchCostasArray generates the Welch construction of a Costas array for
// prime p and primitive root g: f(i) = g^i mod p, i = 1..p-1. Mercury uses
// p=17, g=5 for its ACK tone pattern: every pairwise tone
// displacement across the sequence is distinct, which makes the pattern
// resistant to being mistaken for ordinary traffic or a delayed echo of
// itself.
func WelchCostasArray(p, g int) []int {
	arr := make([]int, p-1)
	val := 1
	for i := 0; i < p-1; i++ {
		val = (val * g) % p
		arr[i] = val
	}
	return arr
}

// AckPattern returns the Mercury ACK tone sequence: the Welch-Costas array
// for (p=17, g=5), remapped to zero-based tone indices in [0, p-2].
func AckPattern() []int {
	arr := WelchCostasArray(17, 5)
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = v - 1
	}
	return out
}
