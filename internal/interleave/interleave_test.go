package interleave

import "testing"

func TestBitInterleaverIsPermutation(t *testing.T) {
	bi := NewBitInterleaver(256, 0xABCD)
	seen := map[int]bool{}
	for _, p := range bi.perm {
		if p < 0 || p >= 256 {
			t.Fatalf("perm value %d out of range", p)
		}
		if seen[p] {
			t.Fatalf("perm value %d repeats", p)
		}
		seen[p] = true
	}
}

func TestBitInterleaverDeterministic(t *testing.T) {
	a := NewBitInterleaver(128, 777)
	b := NewBitInterleaver(128, 777)
	for i := range a.perm {
		if a.perm[i] != b.perm[i] {
			t.Fatalf("perm %d differs: %d vs %d", i, a.perm[i], b.perm[i])
		}
	}
}

func TestBitInterleaverRoundTrip(t *testing.T) {
	bi := NewBitInterleaver(64, 42)
	bits := make([]byte, 64)
	for i := range bits {
		bits[i] = byte(i % 2)
	}
	il, err := bi.Interleave(bits)
	if err != nil {
		t.Fatal(err)
	}
	back, err := bi.Deinterleave(il)
	if err != nil {
		t.Fatal(err)
	}
	for i := range bits {
		if back[i] != bits[i] {
			t.Fatalf("bit %d: got %d want %d", i, back[i], bits[i])
		}
	}
}

func TestBitInterleaverRejectsWrongLength(t *testing.T) {
	bi := NewBitInterleaver(32, 1)
	if _, err := bi.Interleave(make([]byte, 10)); err == nil {
		t.Fatal("expected length error")
	}
}

func TestTwistedBlockInterleaverRoundTrip(t *testing.T) {
	ti := NewTwistedBlockInterleaver(6, 12, 3)
	grid := make([][]complex128, 6)
	for r := range grid {
		row := make([]complex128, 12)
		for c := range row {
			row[c] = complex(float64(r*12+c), 0)
		}
		grid[r] = row
	}
	il := ti.Interleave(grid)
	back := ti.Deinterleave(il)
	for r := range grid {
		for c := range grid[r] {
			if back[r][c] != grid[r][c] {
				t.Fatalf("cell (%d,%d): got %v want %v", r, c, back[r][c], grid[r][c])
			}
		}
	}
}

func TestTwistedBlockInterleaverRowZeroUnchanged(t *testing.T) {
	ti := NewTwistedBlockInterleaver(4, 8, 3)
	grid := make([][]complex128, 4)
	for r := range grid {
		row := make([]complex128, 8)
		for c := range row {
			row[c] = complex(float64(c), 0)
		}
		grid[r] = row
	}
	il := ti.Interleave(grid)
	for c := range il[0] {
		if il[0][c] != grid[0][c] {
			t.Fatalf("row 0 col %d: got %v want %v (stride*0 should be identity)", c, il[0][c], grid[0][c])
		}
	}
}

func TestBitInterleaverLLRFollowsBitPermutation(t *testing.T) {
	b := NewBitInterleaver(32, 99)
	bits := make([]byte, 32)
	llr := make([]float64, 32)
	for i := range bits {
		bits[i] = byte(i % 2)
		llr[i] = float64(i)
	}
	ibits, err := b.Interleave(bits)
	if err != nil {
		t.Fatal(err)
	}
	illr, err := b.InterleaveLLR(llr)
	if err != nil {
		t.Fatal(err)
	}
	for i := range ibits {
		if int(illr[i])%2 != int(ibits[i]) {
			t.Fatalf("position %d: LLR permutation disagrees with bit permutation", i)
		}
	}
	back, err := b.DeinterleaveLLR(illr)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range back {
		if v != llr[i] {
			t.Fatalf("position %d: got %v want %v", i, v, llr[i])
		}
	}
}
