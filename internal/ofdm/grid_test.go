package ofdm

import "testing"

func testLattice() Lattice {
	return Lattice{
		Dx:            4,
		Dy:            2,
		FirstCol:      Config,
		LastCol:       CopyFirstCol,
		SecondCol:     Zero,
		FirstRow:      Data,
		LastRow:       Data,
		FirstRowZeros: true,
		PilotBoost:    1.5,
	}
}

func TestBuildGridCountsMatchAcrossIdenticalPresets(t *testing.T) {
	lat := testLattice()
	g1 := BuildGrid(8, 48, lat)
	g2 := BuildGrid(8, 48, lat)

	c1, c2 := g1.Counts(), g2.Counts()
	for tag := range c1 {
		if c1[tag] != c2[tag] {
			t.Fatalf("tag %v: counts differ %d vs %d", tag, c1[tag], c2[tag])
		}
	}
}

func TestBuildGridLastColCopiesFirst(t *testing.T) {
	lat := testLattice()
	g := BuildGrid(8, 48, lat)
	for r := 1; r < g.Nsymb-1; r++ {
		if g.Cells[r][g.Nc-1] != g.Cells[r][0] {
			t.Fatalf("row %d: last col %v != first col %v", r, g.Cells[r][g.Nc-1], g.Cells[r][0])
		}
	}
}

func TestFramerDeframerBijection(t *testing.T) {
	lat := testLattice()
	lat.FirstRowZeros = false // keep first row eligible to carry data for this test
	lat.FirstRow = Data
	lat.LastRow = Data
	g := BuildGrid(6, 48, lat)

	framer := NewFramer(g, 1.0, 2)
	deframer := NewDeframer(g, 1.0)

	n := g.DataCellCount()
	data := make([]complex128, n)
	for i := range data {
		data[i] = complex(float64(i%5)-2, float64((i*3)%5)-2)
	}

	frame, err := framer.Frame(data)
	if err != nil {
		t.Fatal(err)
	}

	res, err := deframer.Deframe(frame)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Data) != len(data) {
		t.Fatalf("got %d data cells, want %d", len(res.Data), len(data))
	}
	for i := range data {
		if res.Data[i] != data[i] {
			t.Fatalf("cell %d: got %v want %v", i, res.Data[i], data[i])
		}
	}
	if res.PresetIndex != 2 {
		t.Fatalf("preset index = %d, want 2", res.PresetIndex)
	}
	for i := range res.PilotRef {
		if res.PilotRef[i] != res.PilotRx[i] {
			t.Fatalf("pilot %d: ref %v != rx %v (pilots should be independent of x)", i, res.PilotRef[i], res.PilotRx[i])
		}
	}
}

func TestPilotSequenceDeterministic(t *testing.T) {
	a := NewPilotSequence(32, 1.25)
	b := NewPilotSequence(32, 1.25)
	for i := 0; i < 32; i++ {
		if a.Value(i) != b.Value(i) {
			t.Fatalf("pilot %d differs between regenerations: %v vs %v", i, a.Value(i), b.Value(i))
		}
	}
}
