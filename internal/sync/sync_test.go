package sync

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestCoarseTimeSyncFindsCPRepeat(t *testing.T) {
	nfft, ngi := 64, 16
	symLen := nfft + ngi
	samples := make([]complex128, symLen*3)
	for i := range samples {
		samples[i] = complex(math.Sin(float64(i)*0.3), math.Cos(float64(i)*0.17))
	}
	// Stamp a valid cyclic prefix at offset 40: copy the tail of the
	// "symbol" into the ngi samples before it.
	start := 40
	for k := 0; k < ngi; k++ {
		samples[start+k] = samples[start+k+nfft]
	}

	ts := NewCoarseTimeSync(nfft, ngi)
	offset, metric := ts.FindPeak(samples)
	if offset != start {
		t.Fatalf("peak at %d, want %d", offset, start)
	}
	if metric < 0.9 {
		t.Fatalf("metric at true peak = %v, want close to 1", metric)
	}
}

func TestFreqSyncZeroOffsetGivesZeroEstimate(t *testing.T) {
	nfft := 64
	h := nfft / 2
	samples := make([]complex128, 2*h)
	for i := 0; i < h; i++ {
		v := complex(math.Cos(float64(i)*0.2), math.Sin(float64(i)*0.2))
		samples[i] = v
		samples[i+h] = v
	}
	fs := NewFreqSync(nfft)
	eps := fs.EstimateOffset(samples, 0)
	if math.Abs(eps) > 1e-9 {
		t.Fatalf("offset = %v, want ~0", eps)
	}
}

func TestFreqSyncDetectsKnownOffset(t *testing.T) {
	nfft := 64
	h := nfft / 2
	eps := 0.1 // normalized offset
	samples := make([]complex128, 2*h)
	for i := 0; i < h; i++ {
		samples[i] = complex(1, 0)
	}
	// second half phase-rotated by the per-sample offset over h samples
	w := 2 * math.Pi * eps / float64(nfft)
	for i := 0; i < h; i++ {
		samples[i+h] = samples[i] * cmplx.Rect(1, w*float64(h))
	}
	fs := NewFreqSync(nfft)
	got := fs.EstimateOffset(samples, 0)
	if math.Abs(got-eps) > 0.05 {
		t.Fatalf("estimated offset = %v, want ~%v", got, eps)
	}
}

func TestFreqSyncCorrectOffsetRoundTrip(t *testing.T) {
	nfft := 32
	samples := make([]complex128, 128)
	for i := range samples {
		samples[i] = complex(math.Sin(float64(i)*0.4), 0)
	}
	fs := NewFreqSync(nfft)
	rotated := fs.CorrectOffset(samples, 0.2)
	back := fs.CorrectOffset(rotated, -0.2)
	for i := range samples {
		if cmplx.Abs(back[i]-samples[i]) > 1e-9 {
			t.Fatalf("sample %d: got %v want %v", i, back[i], samples[i])
		}
	}
}

func TestInterpolateGridExactAtPilots(t *testing.T) {
	nsymb, nc := 6, 16
	obs := []PilotObservation{
		{Row: 0, Col: 0, Ref: 1, Rx: 2},
		{Row: 0, Col: 8, Ref: 1, Rx: 2},
		{Row: 3, Col: 0, Ref: 1, Rx: 4},
		{Row: 3, Col: 8, Ref: 1, Rx: 4},
	}
	h := InterpolateGrid(obs, nsymb, nc)
	if h[0][0] != 2 {
		t.Fatalf("h[0][0] = %v, want 2", h[0][0])
	}
	if h[3][8] != 4 {
		t.Fatalf("h[3][8] = %v, want 4", h[3][8])
	}
	// row 1 should be between row 0 (H=2) and row 3 (H=4)
	if real(h[1][0]) <= 2 || real(h[1][0]) >= 4 {
		t.Fatalf("h[1][0] = %v, want strictly between 2 and 4", h[1][0])
	}
}

func TestEqualizeDividesByChannel(t *testing.T) {
	rx := [][]complex128{{complex(4, 0)}}
	h := [][]complex128{{complex(2, 0)}}
	eq := Equalize(rx, h)
	if eq[0][0] != 2 {
		t.Fatalf("got %v, want 2", eq[0][0])
	}
}

func TestEstimateSNRZeroNoiseIsInfinite(t *testing.T) {
	obs := []PilotObservation{{Row: 0, Col: 0, Ref: 1, Rx: 2}}
	h := [][]complex128{{complex(2, 0)}}
	snr := EstimateSNR(obs, h)
	if !math.IsInf(snr, 1) {
		t.Fatalf("snr = %v, want +Inf", snr)
	}
}
