package modem

import (
	"math"

	"github.com/dl9sec/mercury-modem/internal/modulation"
)

// ACK burst parameters. The burst is detected by pattern correlation
// alone, so it gets through at SNRs well below what a full frame decode
// needs; a responder that lost the data frame can still be heard saying
// "repeat".
const (
	ackTones      = 8   // Costas prefix length actually transmitted
	ackRepeats    = 2   // pattern sent back to back
	ackSymbolLen  = 960 // 20ms per tone at 48kHz
	ackBaseFreq   = 800.0
	ackToneSpace  = 100.0
	ackSampleRate = 48000.0
)

// ackSequence is the transmitted tone order: the first ackTones entries
// of the Welch-Costas array, repeated ackRepeats times. Any cyclic shift
// of a Costas sequence coincides with the original in at most one
// position, which is what makes threshold detection reliable.
func ackSequence() []int {
	pat := modulation.AckPattern()[:ackTones]
	out := make([]int, 0, ackTones*ackRepeats)
	for r := 0; r < ackRepeats; r++ {
		out = append(out, pat...)
	}
	return out
}

// AckBurst synthesizes the ACK tone burst as audio-rate samples. The
// burst bypasses hopping and Gray coding: the tone index is the pattern
// itself.
func AckBurst() []float64 {
	seq := ackSequence()
	out := make([]float64, 0, len(seq)*ackSymbolLen)
	for _, tone := range seq {
		freq := ackBaseFreq + float64(tone)*ackToneSpace
		for n := 0; n < ackSymbolLen; n++ {
			out = append(out, math.Sin(2*math.Pi*freq*float64(n)/ackSampleRate))
		}
	}
	return out
}

// DetectAck demodulates samples into a tone sequence and slides the known
// pattern across it, reporting whether enough positions coincide. The
// Costas property keeps the false-match ceiling at one coincidence per
// shift, so a threshold above one is already unambiguous; requiring a
// majority adds margin against tone detection errors.
func DetectAck(samples []float64) bool {
	nsym := len(samples) / ackSymbolLen
	if nsym < ackTones {
		return false
	}
	tones := make([]int, nsym)
	for i := 0; i < nsym; i++ {
		tones[i] = strongestAckTone(samples[i*ackSymbolLen : (i+1)*ackSymbolLen])
	}

	pat := ackSequence()
	for d := 0; d+ackTones <= len(tones); d++ {
		match := 0
		for k := 0; k < ackTones; k++ {
			if tones[d+k] == pat[k] {
				match++
			}
		}
		if match >= ackTones/2+1 {
			return true
		}
	}
	return false
}

// strongestAckTone picks the highest-energy ACK tone bin in one symbol
// using a Goertzel detector per candidate tone.
func strongestAckTone(samples []float64) int {
	best, bestTone := -1.0, 0
	for tone := 0; tone < 16; tone++ {
		freq := ackBaseFreq + float64(tone)*ackToneSpace
		p := goertzelEnergy(samples, freq, ackSampleRate)
		if p > best {
			best, bestTone = p, tone
		}
	}
	return bestTone
}

func goertzelEnergy(x []float64, freq, fs float64) float64 {
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
