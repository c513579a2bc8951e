package ofdm

import "fmt"

// Framer maps modulated data symbols onto a Grid's DATA cells, interleaving
// PILOT, ZERO, and CONFIG cells. The framer owns no shared
// state beyond its pilot sequence and preset index; grid and pilots are
// read-only once built.
type Framer struct {
	grid        *Grid
	pilots      *PilotSequence
	presetIndex int
}

// NewFramer builds a framer for the given grid, regenerating the pilot
// sequence for the grid's pilot-cell count.
func NewFramer(grid *Grid, pilotBoost float64, presetIndex int) *Framer {
	return &Framer{
		grid:        grid,
		pilots:      NewPilotSequence(grid.Counts()[Pilot], pilotBoost),
		presetIndex: presetIndex,
	}
}

// Frame walks the grid in row-major order, consuming one complex sample per
// DATA cell from dataSymbols, and returns the full Nsymb x Nc spectrum grid
// (one []complex128 per OFDM symbol, ready for per-symbol IFFT).
func (f *Framer) Frame(dataSymbols []complex128) ([][]complex128, error) {
	need := f.grid.DataCellCount()
	if len(dataSymbols) != need {
		return nil, fmt.Errorf("ofdm: framer needs %d data symbols, got %d", need, len(dataSymbols))
	}

	out := make([][]complex128, f.grid.Nsymb)
	dataIdx, pilotIdx := 0, 0
	for r := 0; r < f.grid.Nsymb; r++ {
		row := make([]complex128, f.grid.Nc)
		for c := 0; c < f.grid.Nc; c++ {
			switch f.grid.Cells[r][c] {
			case Data:
				row[c] = dataSymbols[dataIdx]
				dataIdx++
			case Pilot:
				row[c] = f.pilots.Value(pilotIdx)
				pilotIdx++
			case Zero:
				row[c] = 0
			case Config:
				row[c] = encodePresetIndex(f.presetIndex)
			}
		}
		out[r] = row
	}
	return out, nil
}

// Deframer reverses Framer: it reads a received Nsymb x Nc grid and splits
// it into DATA cells (forwarded downstream) and PILOT cells (forwarded to
// the channel estimator)
type Deframer struct {
	grid   *Grid
	pilots *PilotSequence
}

// NewDeframer builds a deframer for the given grid and pilot boost. Both
// ends use identical grid+pilot construction so the receiver always knows
// pilot_ref without it being transmitted.
func NewDeframer(grid *Grid, pilotBoost float64) *Deframer {
	return &Deframer{
		grid:   grid,
		pilots: NewPilotSequence(grid.Counts()[Pilot], pilotBoost),
	}
}

// DeframeResult holds the split cell streams from one received frame.
type DeframeResult struct {
	Data        []complex128 // received DATA cells, row-major order
	PilotRef    []complex128 // expected (transmitted) pilot values, same order as PilotRx
	PilotRx     []complex128 // received PILOT cells
	PresetIndex int          // decoded from the first CONFIG cell seen, -1 if none
}

// Deframe reverses Frame. received must have the same shape as the grid
// (Nsymb rows of Nc complex samples each, already FFT'd and zero-depadded).
func (d *Deframer) Deframe(received [][]complex128) (*DeframeResult, error) {
	if len(received) != d.grid.Nsymb {
		return nil, fmt.Errorf("ofdm: deframer expected %d symbols, got %d", d.grid.Nsymb, len(received))
	}

	res := &DeframeResult{PresetIndex: -1}
	pilotIdx := 0
	for r := 0; r < d.grid.Nsymb; r++ {
		if len(received[r]) != d.grid.Nc {
			return nil, fmt.Errorf("ofdm: deframer row %d has %d cells, want %d", r, len(received[r]), d.grid.Nc)
		}
		for c := 0; c < d.grid.Nc; c++ {
			switch d.grid.Cells[r][c] {
			case Data:
				res.Data = append(res.Data, received[r][c])
			case Pilot:
				res.PilotRx = append(res.PilotRx, received[r][c])
				res.PilotRef = append(res.PilotRef, d.pilots.Value(pilotIdx))
				pilotIdx++
			case Config:
				if res.PresetIndex < 0 {
					res.PresetIndex = decodePresetIndex(received[r][c])
				}
			case Zero:
				// intentionally dropped
			}
		}
	}
	return res, nil
}

// encodePresetIndex places a small integer preset index on the real axis
// as the cell's amplitude (index 2 becomes 2+0i), so it passes through the
// same OFDM/channel path as data cells. The value is not
// energy-normalized: its power grows with the index.
func encodePresetIndex(idx int) complex128 {
	return complex(float64(idx), 0)
}

func decodePresetIndex(v complex128) int {
	return int(real(v) + 0.5)
}
