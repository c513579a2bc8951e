// Package modulation implements the Mercury PHY modulation families: QAM
// (BPSK..64-QAM with soft-decision LLR demod) and MFSK (non-coherent energy
// detection with tone hopping).
package modulation

import (
	"fmt"
	"math"
)

// QAMConstellation holds a normalized constellation for one modulation
// order M. The point tables are predefined data, indexed directly by the
// natural binary value of each log2(M)-bit group (MSB first) with no
// Gray remapping, then scaled so average symbol energy equals 1. The
// tables must match the peer's point for point, so they are written out
// rather than derived.
type QAMConstellation struct {
	M      int
	Bits   int // log2(M)
	points []complex128
}

// predefinedConstellation returns the fixed point table for M, or nil
// for an unsupported order.
func predefinedConstellation(m int) []complex128 {
	switch m {
	case 2:
		return []complex128{
			complex(1, 0), complex(-1, 0),
		}
	case 4:
		return []complex128{
			complex(-1, 1), complex(-1, -1), complex(1, 1), complex(1, -1),
		}
	case 8:
		return []complex128{
			complex(-3, 1), complex(-3, -1), complex(-1, 1), complex(-1, -1),
			complex(3, 1), complex(3, -1), complex(1, 1), complex(1, -1),
		}
	case 16:
		return []complex128{
			complex(-3, 3), complex(-3, 1), complex(-3, -3), complex(-3, -1),
			complex(-1, 3), complex(-1, 1), complex(-1, -3), complex(-1, -1),
			complex(3, 3), complex(3, 1), complex(3, -3), complex(3, -1),
			complex(1, 3), complex(1, 1), complex(1, -3), complex(1, -1),
		}
	case 32:
		return []complex128{
			complex(-3, 5), complex(-1, 5), complex(-3, -5), complex(-1, -5),
			complex(-5, 3), complex(-5, 1), complex(-5, -3), complex(-5, -1),
			complex(-1, 3), complex(-1, 1), complex(-1, -3), complex(-1, -1),
			complex(-3, 3), complex(-3, 1), complex(-3, -3), complex(-3, -1),
			complex(3, 5), complex(1, 5), complex(3, -5), complex(1, -5),
			complex(5, 3), complex(5, 1), complex(5, -3), complex(5, -1),
			complex(1, 3), complex(1, 1), complex(1, -3), complex(1, -1),
			complex(3, 3), complex(3, 1), complex(3, -3), complex(3, -1),
		}
	case 64:
		return []complex128{
			complex(-7, 7), complex(-7, 5), complex(-7, 1), complex(-7, 3),
			complex(-7, -7), complex(-7, -5), complex(-7, -1), complex(-7, -3),
			complex(-5, 7), complex(-5, 5), complex(-5, 1), complex(-5, 3),
			complex(-5, -7), complex(-5, -5), complex(-5, -1), complex(-5, -3),
			complex(-1, 7), complex(-1, 5), complex(-1, 1), complex(-1, 3),
			complex(-1, -7), complex(-1, -5), complex(-1, -1), complex(-1, -3),
			complex(-3, 7), complex(-3, 5), complex(-3, 1), complex(-3, 3),
			complex(-3, -7), complex(-3, -5), complex(-3, -1), complex(-3, -3),
			complex(7, 7), complex(7, 5), complex(7, 1), complex(7, 3),
			complex(7, -7), complex(7, -5), complex(7, -1), complex(7, -3),
			complex(5, 7), complex(5, 5), complex(5, 1), complex(5, 3),
			complex(5, -7), complex(5, -5), complex(5, -1), complex(5, -3),
			complex(1, 7), complex(1, 5), complex(1, 1), complex(1, 3),
			complex(1, -7), complex(1, -5), complex(1, -1), complex(1, -3),
			complex(3, 7), complex(3, 5), complex(3, 1), complex(3, 3),
			complex(3, -7), complex(3, -5), complex(3, -1), complex(3, -3),
		}
	}
	return nil
}

// NewQAMConstellation builds and normalizes the constellation for M in
// {2,4,8,16,32,64}.
func NewQAMConstellation(m int) (*QAMConstellation, error) {
	pts := predefinedConstellation(m)
	if pts == nil {
		return nil, fmt.Errorf("modulation: unsupported QAM order %d", m)
	}
	c := &QAMConstellation{
		M:      m,
		Bits:   log2(m),
		points: append([]complex128(nil), pts...),
	}
	c.normalize()
	return c, nil
}

func log2(m int) int {
	for b := 0; b < 8; b++ {
		if 1<<b == m {
			return b
		}
	}
	return -1
}

func (c *QAMConstellation) normalize() {
	var avg float64
	for _, p := range c.points {
		avg += real(p)*real(p) + imag(p)*imag(p)
	}
	avg /= float64(len(c.points))
	scale := 1 / math.Sqrt(avg)
	for i := range c.points {
		c.points[i] *= complex(scale, 0)
	}
}

func bitsToIndex(bits []byte) int {
	idx := 0
	for _, b := range bits {
		idx = (idx << 1) | int(b&1)
	}
	return idx
}

func indexToBits(idx, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(idx & 1)
		idx >>= 1
	}
	return out
}

// Map converts bits (length Bits) into the corresponding constellation
// point.
func (c *QAMConstellation) Map(bits []byte) complex128 {
	idx := bitsToIndex(bits) % len(c.points)
	return c.points[idx]
}

// ModulateBits maps a full bit stream (length a multiple of Bits) to
// symbols.
func (c *QAMConstellation) ModulateBits(bits []byte) []complex128 {
	n := len(bits) / c.Bits
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		out[i] = c.Map(bits[i*c.Bits : (i+1)*c.Bits])
	}
	return out
}

// Demap performs hard-decision (nearest-point) demapping.
func (c *QAMConstellation) Demap(y complex128) []byte {
	best, bestIdx := math.MaxFloat64, 0
	for i, p := range c.points {
		d := sqDist(y, p)
		if d < best {
			best, bestIdx = d, i
		}
	}
	return indexToBits(bestIdx, c.Bits)
}

func sqDist(a, b complex128) float64 {
	dr := real(a) - real(b)
	di := imag(a) - imag(b)
	return dr*dr + di*di
}

// DemapLLR computes the max-log soft LLR for every bit of one received
// symbol:
//
//	LLR_k = (min_{bit_k=1} |y-s|^2 - min_{bit_k=0} |y-s|^2) / sigma^2
//
// i.e. log(P(bit=0|y)/P(bit=1|y)) under the max-log approximation, so a
// positive value favors bit 0. sigma2 is supplied by the channel
// estimator's noise-variance estimate.
func (c *QAMConstellation) DemapLLR(y complex128, sigma2 float64) []float64 {
	if sigma2 <= 0 {
		sigma2 = 1e-6
	}
	llr := make([]float64, c.Bits)
	for k := 0; k < c.Bits; k++ {
		min0, min1 := math.MaxFloat64, math.MaxFloat64
		for idx, p := range c.points {
			d := sqDist(y, p)
			bit := bitAt(idx, c.Bits, k)
			if bit == 0 && d < min0 {
				min0 = d
			}
			if bit == 1 && d < min1 {
				min1 = d
			}
		}
		llr[k] = (min1 - min0) / sigma2
	}
	return llr
}

// bitAt returns bit k (0 = MSB) of idx within an n-bit natural-order index.
func bitAt(idx, n, k int) int {
	shift := n - 1 - k
	return (idx >> shift) & 1
}

// DemodulateSoft runs DemapLLR across a full symbol stream and flattens
// the per-symbol LLRs into one LLR-per-bit sequence.
func (c *QAMConstellation) DemodulateSoft(symbols []complex128, sigma2 []float64) []float64 {
	out := make([]float64, 0, len(symbols)*c.Bits)
	for i, y := range symbols {
		s2 := 1.0
		if i < len(sigma2) {
			s2 = sigma2[i]
		}
		out = append(out, c.DemapLLR(y, s2)...)
	}
	return out
}
