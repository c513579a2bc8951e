package sync

import "math"

// PilotObservation is one pilot cell's known transmitted value (Ref) and
// what was actually received (Rx) at grid position (Row, Col).
type PilotObservation struct {
	Row, Col int
	Ref, Rx  complex128
}

// channelAt returns the raw per-pilot channel estimate H = Rx/Ref.
func channelAt(o PilotObservation) complex128 {
	if o.Ref == 0 {
		return 0
	}
	return o.Rx / o.Ref
}

// InterpolateGrid performs pilot-aided bilinear channel interpolation:
// first linear interpolation across subcarriers within
// each pilot-bearing row, then linear interpolation across OFDM symbols
// between the nearest pilot-bearing rows above and below. Edges are held
// flat past the outermost pilot.
func InterpolateGrid(obs []PilotObservation, nsymb, nc int) [][]complex128 {
	byRow := map[int][]PilotObservation{}
	for _, o := range obs {
		byRow[o.Row] = append(byRow[o.Row], o)
	}

	rowEstimate := make(map[int][]complex128)
	var pilotRows []int
	for row, pts := range byRow {
		rowEstimate[row] = interpolateRow(pts, nc)
		pilotRows = append(pilotRows, row)
	}
	sortInts(pilotRows)

	grid := make([][]complex128, nsymb)
	for r := 0; r < nsymb; r++ {
		grid[r] = interpolateAcrossRows(r, pilotRows, rowEstimate, nc)
	}
	return grid
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// interpolateRow linearly interpolates H across columns within one row
// from a sparse set of pilot observations, holding the value flat outside
// the first/last pilot column.
func interpolateRow(pts []PilotObservation, nc int) []complex128 {
	if len(pts) == 0 {
		return make([]complex128, nc)
	}
	cols := make([]int, len(pts))
	hs := make([]complex128, len(pts))
	for i, p := range pts {
		cols[i] = p.Col
		hs[i] = channelAt(p)
	}
	// insertion sort by column, small n
	for i := 1; i < len(cols); i++ {
		for j := i; j > 0 && cols[j] < cols[j-1]; j-- {
			cols[j], cols[j-1] = cols[j-1], cols[j]
			hs[j], hs[j-1] = hs[j-1], hs[j]
		}
	}

	out := make([]complex128, nc)
	for c := 0; c < nc; c++ {
		out[c] = lerpSeries(cols, hs, c)
	}
	return out
}

func lerpSeries(xs []int, ys []complex128, x int) complex128 {
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}
	for i := 1; i < len(xs); i++ {
		if x <= xs[i] {
			x0, x1 := xs[i-1], xs[i]
			if x1 == x0 {
				return ys[i-1]
			}
			t := float64(x-x0) / float64(x1-x0)
			return ys[i-1] + complex(t, 0)*(ys[i]-ys[i-1])
		}
	}
	return ys[len(ys)-1]
}

// interpolateAcrossRows fills row r by linearly interpolating, column by
// column, between the nearest pilot-bearing rows above and below.
func interpolateAcrossRows(r int, pilotRows []int, rowEstimate map[int][]complex128, nc int) []complex128 {
	if len(pilotRows) == 0 {
		return make([]complex128, nc)
	}
	if est, ok := rowEstimate[r]; ok {
		return est
	}
	below, above := -1, -1
	for _, pr := range pilotRows {
		if pr <= r {
			below = pr
		}
		if pr >= r && above == -1 {
			above = pr
		}
	}
	if below == -1 {
		return rowEstimate[above]
	}
	if above == -1 {
		return rowEstimate[below]
	}
	if below == above {
		return rowEstimate[below]
	}
	t := float64(r-below) / float64(above-below)
	lo, hi := rowEstimate[below], rowEstimate[above]
	out := make([]complex128, nc)
	for c := 0; c < nc; c++ {
		out[c] = lo[c] + complex(t, 0)*(hi[c]-lo[c])
	}
	return out
}

// Equalize performs zero-forcing equalization of a received grid given
// the interpolated channel estimate grid of identical shape.
func Equalize(rx [][]complex128, h [][]complex128) [][]complex128 {
	out := make([][]complex128, len(rx))
	for r := range rx {
		out[r] = make([]complex128, len(rx[r]))
		for c := range rx[r] {
			if h[r][c] == 0 {
				out[r][c] = rx[r][c]
				continue
			}
			out[r][c] = rx[r][c] / h[r][c]
		}
	}
	return out
}

// EstimateSNR estimates the post-equalization SNR from pilot residuals:
// each pilot's channel estimate is compared against the bilinear
// interpolation of its neighbors, and the residual power is taken as the
// noise estimate against the average pilot signal power.
func EstimateSNR(obs []PilotObservation, h [][]complex128) float64 {
	if len(obs) == 0 {
		return 0
	}
	var noise, signal float64
	for _, o := range obs {
		est := channelAt(o)
		interp := complex128(0)
		if o.Row < len(h) && o.Col < len(h[o.Row]) {
			interp = h[o.Row][o.Col]
		}
		d := est - interp
		noise += real(d)*real(d) + imag(d)*imag(d)
		signal += real(est)*real(est) + imag(est)*imag(est)
	}
	n := float64(len(obs))
	noise /= n
	signal /= n
	if noise == 0 {
		return math.Inf(1)
	}
	return signal / noise
}
