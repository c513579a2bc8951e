// Package interleave implements Mercury's two interleavers: a
// fixed-permutation bit interleaver ahead of LDPC framing, and a
// twisted-block time/frequency interleaver that scrambles OFDM grid
// columns row by row
package interleave

import "fmt"

// lcg is the same deterministic linear congruential generator used by
// internal/ofdm's pilot sequence, reused here so the bit-interleaver
// permutation is reproducible without a stored table.
type lcg struct{ state uint32 }

func (g *lcg) next() uint32 {
	g.state = g.state*1664525 + 1013904223
	return g.state
}

// BitInterleaver is a fixed pseudo-random permutation of N bit positions,
// generated once from a seed via a Fisher-Yates shuffle so it can be
// regenerated identically by the decoder.
type BitInterleaver struct {
	perm []int
	inv  []int
}

// NewBitInterleaver builds a permutation of [0,n) from seed.
func NewBitInterleaver(n int, seed uint32) *BitInterleaver {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	g := &lcg{state: seed}
	for i := n - 1; i > 0; i-- {
		j := int(g.next() % uint32(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}
	inv := make([]int, n)
	for i, p := range perm {
		inv[p] = i
	}
	return &BitInterleaver{perm: perm, inv: inv}
}

// Len is the permutation size.
func (b *BitInterleaver) Len() int { return len(b.perm) }

// Interleave reorders bits (length must equal Len()) by the permutation:
// output[i] = bits[perm[i]].
func (b *BitInterleaver) Interleave(bits []byte) ([]byte, error) {
	if len(bits) != len(b.perm) {
		return nil, fmt.Errorf("interleave: got %d bits, want %d", len(bits), len(b.perm))
	}
	out := make([]byte, len(bits))
	for i, p := range b.perm {
		out[i] = bits[p]
	}
	return out, nil
}

// Deinterleave undoes Interleave.
func (b *BitInterleaver) Deinterleave(bits []byte) ([]byte, error) {
	if len(bits) != len(b.inv) {
		return nil, fmt.Errorf("interleave: got %d bits, want %d", len(bits), len(b.inv))
	}
	out := make([]byte, len(bits))
	for i, p := range b.inv {
		out[i] = bits[p]
	}
	return out, nil
}

// TwistedBlockInterleaver scrambles the columns of an OFDM time/frequency
// grid row by row using the twisted-block mapping:
//
//	newCol(r, c) = (c + r*stride) mod Nc
//
// Row r is untouched (time position is preserved) but its subcarriers are
// cyclically rotated by r*stride, so a fading notch or burst error that
// persists across several OFDM symbols lands on different subcarriers in
// each row instead of wiping out the same carrier repeatedly.
type TwistedBlockInterleaver struct {
	Nsymb, Nc, Stride int
}

// NewTwistedBlockInterleaver builds the interleaver for a grid of Nsymb
// rows by Nc columns with the given stride.
func NewTwistedBlockInterleaver(nsymb, nc, stride int) *TwistedBlockInterleaver {
	return &TwistedBlockInterleaver{Nsymb: nsymb, Nc: nc, Stride: stride}
}

func (t *TwistedBlockInterleaver) newCol(r, c int) int {
	nc := t.Nc
	return ((c+r*t.Stride)%nc + nc) % nc
}

// Interleave returns a new grid with each row's columns rotated per
// newCol.
func (t *TwistedBlockInterleaver) Interleave(grid [][]complex128) [][]complex128 {
	out := make([][]complex128, len(grid))
	for r, row := range grid {
		newRow := make([]complex128, len(row))
		for c, v := range row {
			newRow[t.newCol(r, c)] = v
		}
		out[r] = newRow
	}
	return out
}

// Deinterleave undoes Interleave.
func (t *TwistedBlockInterleaver) Deinterleave(grid [][]complex128) [][]complex128 {
	out := make([][]complex128, len(grid))
	for r, row := range grid {
		newRow := make([]complex128, len(row))
		for c := range row {
			newRow[c] = row[t.newCol(r, c)]
		}
		out[r] = newRow
	}
	return out
}

// InterleaveLLR applies the same permutation to a soft-decision LLR
// stream, so the decoder-side deinterleave can run before hard decisions
// are made.
func (b *BitInterleaver) InterleaveLLR(llr []float64) ([]float64, error) {
	if len(llr) != len(b.perm) {
		return nil, fmt.Errorf("interleave: got %d LLRs, want %d", len(llr), len(b.perm))
	}
	out := make([]float64, len(llr))
	for i, p := range b.perm {
		out[i] = llr[p]
	}
	return out, nil
}

// DeinterleaveLLR undoes InterleaveLLR.
func (b *BitInterleaver) DeinterleaveLLR(llr []float64) ([]float64, error) {
	if len(llr) != len(b.inv) {
		return nil, fmt.Errorf("interleave: got %d LLRs, want %d", len(llr), len(b.inv))
	}
	out := make([]float64, len(llr))
	for i, p := range b.inv {
		out[i] = llr[p]
	}
	return out, nil
}
