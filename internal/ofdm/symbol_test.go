package ofdm

import (
	"math/cmplx"
	"testing"
)

func TestSymbolEngineRoundTrip(t *testing.T) {
	e, err := NewSymbolEngine(64, 48, 0.25)
	if err != nil {
		t.Fatal(err)
	}

	row := make([]complex128, e.Nc)
	for i := range row {
		row[i] = complex(float64(i%3)-1, float64((i+1)%3)-1)
	}

	samples := e.ModulateSymbol(row)
	if len(samples) != e.SymbolLen() {
		t.Fatalf("symbol len = %d, want %d", len(samples), e.SymbolLen())
	}

	got, err := e.DemodulateSymbol(samples)
	if err != nil {
		t.Fatal(err)
	}
	for i := range row {
		if cmplx.Abs(got[i]-row[i]) > 1e-9 {
			t.Fatalf("cell %d: got %v want %v", i, got[i], row[i])
		}
	}
}

func TestSymbolEngineRejectsBadNfft(t *testing.T) {
	if _, err := NewSymbolEngine(100, 48, 0.25); err == nil {
		t.Fatal("expected error for non-power-of-two Nfft")
	}
}

func TestModulateDemodulateFrame(t *testing.T) {
	e, err := NewSymbolEngine(64, 48, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	nsymb := 4
	grid := make([][]complex128, nsymb)
	for r := range grid {
		row := make([]complex128, e.Nc)
		for c := range row {
			row[c] = complex(float64(r+c)*0.01, float64(r-c)*0.01)
		}
		grid[r] = row
	}

	samples := e.ModulateFrame(grid)
	back, err := e.DemodulateFrame(samples, nsymb)
	if err != nil {
		t.Fatal(err)
	}
	for r := range grid {
		for c := range grid[r] {
			if cmplx.Abs(back[r][c]-grid[r][c]) > 1e-9 {
				t.Fatalf("cell (%d,%d): got %v want %v", r, c, back[r][c], grid[r][c])
			}
		}
	}
}
