package modulation

import "testing"

func TestNewMFSKModulatorValidation(t *testing.T) {
	if _, err := NewMFSKModulator(16, 1, 7, 8000, 500, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMFSKModulator(8, 1, 7, 8000, 500, 50); err == nil {
		t.Fatal("expected error for M=8")
	}
	if _, err := NewMFSKModulator(16, 5, 7, 8000, 500, 50); err == nil {
		t.Fatal("expected error for nStreams=5")
	}
	if _, err := NewMFSKModulator(16, 1, 9, 8000, 500, 50); err == nil {
		t.Fatal("expected error for hopStep=9")
	}
}

func TestGrayUngrayRoundTrip(t *testing.T) {
	for sym := 0; sym < 32; sym++ {
		g := grayTone(sym)
		back := ungrayTone(g)
		if back != sym {
			t.Fatalf("sym %d: gray=%d ungray=%d", sym, g, back)
		}
	}
}

func TestMFSKModulateDemodulateRoundTrip(t *testing.T) {
	f, err := NewMFSKModulator(16, 1, 7, 8000, 500, 100)
	if err != nil {
		t.Fatal(err)
	}
	symbolLen := 160
	symbols := []int{0, 1, 2, 15, 7, 8}
	for i, s := range symbols {
		samples := f.ModulateSymbol(i, 0, s, symbolLen)
		got := f.DemodulateSymbol(samples, i, 0)
		if got != s {
			t.Fatalf("symbol %d: got %d, want %d", i, got, s)
		}
	}
}

func TestMFSKStreamsDoNotCollide(t *testing.T) {
	f, err := NewMFSKModulator(16, 4, 7, 8000, 500, 50)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[float64]bool{}
	for stream := 0; stream < f.NStreams; stream++ {
		freq := f.ToneFrequency(0, stream, 0)
		if seen[freq] {
			t.Fatalf("stream %d: frequency %v collides with another stream", stream, freq)
		}
		seen[freq] = true
	}
}

func TestWelchCostasArrayIsPermutationWithDistinctDisplacements(t *testing.T) {
	arr := WelchCostasArray(17, 5)
	if len(arr) != 16 {
		t.Fatalf("len = %d, want 16", len(arr))
	}
	seenVal := map[int]bool{}
	for _, v := range arr {
		if v < 1 || v > 16 {
			t.Fatalf("value %d out of range [1,16]", v)
		}
		if seenVal[v] {
			t.Fatalf("value %d repeats, not a permutation", v)
		}
		seenVal[v] = true
	}
	// Costas property: for every lag, the displacement differences are
	// pairwise distinct.
	for lag := 1; lag < len(arr); lag++ {
		diffs := map[int]bool{}
		for i := 0; i+lag < len(arr); i++ {
			d := arr[i+lag] - arr[i]
			if diffs[d] {
				t.Fatalf("lag %d: displacement %d repeats", lag, d)
			}
			diffs[d] = true
		}
	}
}

func TestAckPatternZeroBased(t *testing.T) {
	pat := AckPattern()
	if len(pat) != 16 {
		t.Fatalf("len = %d, want 16", len(pat))
	}
	for _, v := range pat {
		if v < 0 || v > 15 {
			t.Fatalf("tone %d out of range [0,15]", v)
		}
	}
}
