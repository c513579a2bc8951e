package ofdm

import "fmt"

// SymbolEngine performs the IFFT/FFT, zero-pad/depad, and cyclic-prefix
// bookkeeping. The Nc subcarriers occupy contiguous bins around bin
// Nfft/2 (see dcOffset); the spectrum is not shifted before the IFFT, so
// the empty guard bins sit around DC and the occupied band is not
// centered on DC.
type SymbolEngine struct {
	Nfft int
	Nc   int
	Ngi  int // cyclic-prefix length, Nfft * gi rounded to an integer
}

// NewSymbolEngine validates Nfft is a power of two and derives Ngi from gi.
func NewSymbolEngine(nfft, nc int, gi float64) (*SymbolEngine, error) {
	if !IsPowerOfTwo(nfft) {
		return nil, fmt.Errorf("ofdm: Nfft must be a power of two, got %d", nfft)
	}
	if nc+1 > nfft {
		return nil, fmt.Errorf("ofdm: Nc=%d does not fit in Nfft=%d", nc, nfft)
	}
	return &SymbolEngine{Nfft: nfft, Nc: nc, Ngi: int(float64(nfft) * gi)}, nil
}

// dcOffset is where subcarrier 0 lands in the Nfft-bin spectrum: the Nc
// bins run from Nfft/2-Nc/2+1 to Nfft/2+Nc/2 (9..56 for 64/48), so bin 0
// (DC) and its neighbours stay empty. In unshifted FFT order bin Nfft/2 is
// the Nyquist bin, so the carriers are not centered on DC.
func (e *SymbolEngine) dcOffset() int {
	return e.Nfft/2 - e.Nc/2 + 1
}

// ZeroPad places an Nc-length row of subcarrier values into an Nfft-bin
// spectrum, leaving guard bins zero.
func (e *SymbolEngine) ZeroPad(row []complex128) []complex128 {
	spec := make([]complex128, e.Nfft)
	off := e.dcOffset()
	for k := 0; k < e.Nc && off+k < e.Nfft; k++ {
		spec[(off+k)%e.Nfft] = row[k]
	}
	return spec
}

// ZeroDepad extracts the Nc active subcarriers back out of an Nfft-bin
// spectrum (the inverse of ZeroPad).
func (e *SymbolEngine) ZeroDepad(spec []complex128) []complex128 {
	row := make([]complex128, e.Nc)
	off := e.dcOffset()
	for k := 0; k < e.Nc && off+k < len(spec); k++ {
		row[k] = spec[(off+k)%e.Nfft]
	}
	return row
}

// ModulateSymbol runs one OFDM symbol's worth of subcarrier values through
// IFFT and prepends a cyclic prefix copied from the tail.
func (e *SymbolEngine) ModulateSymbol(row []complex128) []complex128 {
	spec := e.ZeroPad(row)
	td := IFFT(spec)
	return addCyclicPrefix(td, e.Ngi)
}

// DemodulateSymbol strips the cyclic prefix, runs the forward FFT, and
// zero-depads back to Nc subcarrier values.
func (e *SymbolEngine) DemodulateSymbol(samples []complex128) ([]complex128, error) {
	if len(samples) < e.Ngi+e.Nfft {
		return nil, fmt.Errorf("ofdm: symbol too short: %d < %d", len(samples), e.Ngi+e.Nfft)
	}
	td := samples[e.Ngi : e.Ngi+e.Nfft]
	spec := FFT(td)
	return e.ZeroDepad(spec), nil
}

// SymbolLen is Nfft + Ngi, the total sample count of one OFDM symbol.
func (e *SymbolEngine) SymbolLen() int { return e.Nfft + e.Ngi }

func addCyclicPrefix(td []complex128, ngi int) []complex128 {
	n := len(td)
	out := make([]complex128, ngi+n)
	copy(out, td[n-ngi:])
	copy(out[ngi:], td)
	return out
}

// ModulateFrame runs every row of a frame grid through ModulateSymbol and
// concatenates the resulting sample streams.
func (e *SymbolEngine) ModulateFrame(grid [][]complex128) []complex128 {
	out := make([]complex128, 0, len(grid)*e.SymbolLen())
	for _, row := range grid {
		out = append(out, e.ModulateSymbol(row)...)
	}
	return out
}

// DemodulateFrame splits a sample stream into nsymb symbol-length chunks
// and demodulates each into a subcarrier row.
func (e *SymbolEngine) DemodulateFrame(samples []complex128, nsymb int) ([][]complex128, error) {
	symLen := e.SymbolLen()
	if len(samples) < nsymb*symLen {
		return nil, fmt.Errorf("ofdm: frame too short: %d < %d", len(samples), nsymb*symLen)
	}
	out := make([][]complex128, nsymb)
	for i := 0; i < nsymb; i++ {
		row, err := e.DemodulateSymbol(samples[i*symLen : (i+1)*symLen])
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}
