package modem

import (
	"fmt"
	"math"
)

// llrClamp bounds MFSK soft decisions; energy ratios at high SNR would
// otherwise saturate the decoder.
const llrClamp = 5.0

// mfskGrid maps coded bits onto OFDM subcarrier rows as hopped MFSK
// tones: per symbol period each diversity stream places unit amplitude in
// one bin of its contiguous band, with a per-symbol hop offset cycling
// through all M tones. Detection is non-coherent bin-energy comparison,
// so the receive path needs no channel estimate.
type mfskGrid struct {
	m        int
	nStreams int
	hopStep  int
	nc       int
	band     int // first bin of stream 0's band

	lastSNR float64
}

// hopStepFor returns the tone-hop step coprime with M.
func hopStepFor(m int) int {
	if m == 32 {
		return 13
	}
	return 7
}

func newMFSKGrid(m, nStreams, nc int) (*mfskGrid, error) {
	if m != 16 && m != 32 {
		return nil, fmt.Errorf("modem: unsupported MFSK order %d", m)
	}
	if nStreams < 1 || nStreams > 4 {
		return nil, fmt.Errorf("modem: MFSK streams %d out of range [1,4]", nStreams)
	}
	if nStreams*m > nc {
		return nil, fmt.Errorf("modem: %d MFSK streams of %d tones exceed %d subcarriers", nStreams, m, nc)
	}
	return &mfskGrid{
		m:        m,
		nStreams: nStreams,
		hopStep:  hopStepFor(m),
		nc:       nc,
		band:     (nc - nStreams*m) / 2,
	}, nil
}

func (g *mfskGrid) bitsPerTone() int   { return log2int(g.m) }
func (g *mfskGrid) bitsPerSymbol() int { return g.nStreams * g.bitsPerTone() }

// modulate consumes nsymb*bitsPerSymbol() bits and produces one Nc-wide
// subcarrier row per OFDM symbol.
func (g *mfskGrid) modulate(bits []byte, nsymb int) [][]complex128 {
	bt := g.bitsPerTone()
	rows := make([][]complex128, nsymb)
	idx := 0
	for t := 0; t < nsymb; t++ {
		row := make([]complex128, g.nc)
		for s := 0; s < g.nStreams; s++ {
			v := 0
			for k := 0; k < bt; k++ {
				b := byte(0)
				if idx < len(bits) {
					b = bits[idx] & 1
				}
				idx++
				v = v<<1 | int(b)
			}
			tone := (grayCode(v) + t*g.hopStep) % g.m
			row[g.band+s*g.m+tone] = 1
		}
		rows[t] = row
	}
	return rows
}

// demodulate reverses modulate over received rows, emitting one LLR per
// coded bit: the energy gap between the best tone carrying bit=0 and the
// best carrying bit=1, normalized by twice the out-of-band noise
// variance and clamped.
func (g *mfskGrid) demodulate(rows [][]complex128) []float64 {
	bt := g.bitsPerTone()
	out := make([]float64, 0, len(rows)*g.bitsPerSymbol())

	var sigPower float64
	var sigCount int
	sigma2 := g.noiseVariance(rows)

	for t, row := range rows {
		offset := (t * g.hopStep) % g.m
		for s := 0; s < g.nStreams; s++ {
			base := g.band + s*g.m
			energy := make([]float64, g.m)
			for v := 0; v < g.m; v++ {
				bin := base + (grayCode(v)+offset)%g.m
				e := real(row[bin])*real(row[bin]) + imag(row[bin])*imag(row[bin])
				energy[v] = e
			}
			peak := 0.0
			for _, e := range energy {
				if e > peak {
					peak = e
				}
			}
			sigPower += peak
			sigCount++

			for k := 0; k < bt; k++ {
				max0, max1 := 0.0, 0.0
				for v := 0; v < g.m; v++ {
					if (v>>(bt-1-k))&1 == 0 {
						if energy[v] > max0 {
							max0 = energy[v]
						}
					} else if energy[v] > max1 {
						max1 = energy[v]
					}
				}
				llr := (max0 - max1) / (2 * sigma2)
				if llr > llrClamp {
					llr = llrClamp
				} else if llr < -llrClamp {
					llr = -llrClamp
				}
				out = append(out, llr)
			}
		}
	}

	if sigCount > 0 {
		g.lastSNR = sigPower / float64(sigCount) / sigma2
	}
	return out
}

// noiseVariance averages bin energy outside every stream band.
func (g *mfskGrid) noiseVariance(rows [][]complex128) float64 {
	lo := g.band
	hi := g.band + g.nStreams*g.m
	var sum float64
	var n int
	for _, row := range rows {
		for c, v := range row {
			if c >= lo && c < hi {
				continue
			}
			sum += real(v)*real(v) + imag(v)*imag(v)
			n++
		}
	}
	if n == 0 || sum == 0 {
		return 1e-9
	}
	return math.Max(sum/float64(n), 1e-9)
}

func grayCode(v int) int { return v ^ (v >> 1) }

func log2int(m int) int {
	b := 0
	for (1 << b) < m {
		b++
	}
	return b
}
