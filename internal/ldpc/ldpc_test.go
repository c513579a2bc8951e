package ldpc

import "testing"

func TestNewCodeDimensions(t *testing.T) {
	c, err := NewCode(16, 8, 0xC0FFEE)
	if err != nil {
		t.Fatal(err)
	}
	if c.N() != QCmatrixV*16 {
		t.Fatalf("N = %d, want %d", c.N(), QCmatrixV*16)
	}
	if c.K() != 8*16 {
		t.Fatalf("K = %d, want %d", c.K(), 8*16)
	}
	if c.M() != (QCmatrixV-8)*16 {
		t.Fatalf("M = %d, want %d", c.M(), (QCmatrixV-8)*16)
	}
}

func TestSameSeedGivesSameMatrix(t *testing.T) {
	a, err := NewCode(16, 8, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCode(16, 8, 42)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Mat.Shifts {
		for j := range a.Mat.Shifts[i] {
			if a.Mat.Shifts[i][j] != b.Mat.Shifts[i][j] {
				t.Fatalf("shift (%d,%d) differs: %d vs %d", i, j, a.Mat.Shifts[i][j], b.Mat.Shifts[i][j])
			}
		}
	}
}

func TestEncodeSatisfiesAllChecks(t *testing.T) {
	c, err := NewCode(24, 8, 1337)
	if err != nil {
		t.Fatal(err)
	}
	msg := make([]byte, c.K())
	for i := range msg {
		msg[i] = byte((i * 7) % 2)
	}
	word, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(word) != c.N() {
		t.Fatalf("word length = %d, want %d", len(word), c.N())
	}
	if !c.AllChecksSatisfied(word) {
		t.Fatal("encoded word violates a parity check")
	}
	for i, b := range msg {
		if word[i] != b {
			t.Fatalf("systematic prefix mismatch at %d: got %d want %d", i, word[i], b)
		}
	}
}

func TestDecodeGBFCorrectsSingleFlip(t *testing.T) {
	c, err := NewCode(24, 8, 99)
	if err != nil {
		t.Fatal(err)
	}
	msg := make([]byte, c.K())
	for i := range msg {
		msg[i] = byte((i * 3) % 2)
	}
	word, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	corrupted := make([]byte, len(word))
	copy(corrupted, word)
	corrupted[5] ^= 1

	decoded, iters, ok := c.DecodeGBF(corrupted, nil, 0, 50)
	if !ok {
		t.Fatal("GBF decoder failed to converge on a single-bit error")
	}
	if iters < 1 || iters >= 50 {
		t.Fatalf("iterations = %d, want a small positive count", iters)
	}
	for i := range word {
		if decoded[i] != word[i] {
			t.Fatalf("bit %d: got %d want %d", i, decoded[i], word[i])
		}
	}
}

func TestDecodeSPARecoversFromNoiselessLLR(t *testing.T) {
	c, err := NewCode(24, 8, 7)
	if err != nil {
		t.Fatal(err)
	}
	msg := make([]byte, c.K())
	for i := range msg {
		msg[i] = byte((i * 5) % 2)
	}
	word, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	llr := make([]float64, len(word))
	for i, b := range word {
		if b == 0 {
			llr[i] = 4.0
		} else {
			llr[i] = -4.0
		}
	}

	decoded, iters, ok := c.DecodeSPA(llr, 20)
	if !ok {
		t.Fatal("SPA decoder failed to converge on noiseless LLRs")
	}
	if iters < 1 || iters >= 20 {
		t.Fatalf("iterations = %d, want a small positive count", iters)
	}
	for i := range word {
		if decoded[i] != word[i] {
			t.Fatalf("bit %d: got %d want %d", i, decoded[i], word[i])
		}
	}
}

func TestDecodeSPACorrectsWeakBitFlip(t *testing.T) {
	c, err := NewCode(24, 8, 55)
	if err != nil {
		t.Fatal(err)
	}
	msg := make([]byte, c.K())
	for i := range msg {
		msg[i] = byte((i * 11) % 2)
	}
	word, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	llr := make([]float64, len(word))
	for i, b := range word {
		if b == 0 {
			llr[i] = 4.0
		} else {
			llr[i] = -4.0
		}
	}
	// Weaken and flip the sign of one bit's confidence, simulating a
	// noisy channel observation that hard-decision alone would get wrong.
	llr[3] = 0.3

	decoded, _, ok := c.DecodeSPA(llr, 20)
	if !ok {
		t.Fatal("SPA decoder failed to converge with one weak bit")
	}
	for i := range word {
		if decoded[i] != word[i] {
			t.Fatalf("bit %d: got %d want %d", i, decoded[i], word[i])
		}
	}
}

func TestEncodeAcrossRates(t *testing.T) {
	for _, rate16 := range []int{1, 2, 4, 8, 12, 14} {
		c, err := NewCode(16, rate16, 2024)
		if err != nil {
			t.Fatalf("rate %d/16: %v", rate16, err)
		}
		if c.K() != rate16*16 {
			t.Fatalf("rate %d/16: K = %d, want %d", rate16, c.K(), rate16*16)
		}
		if c.N() != QCmatrixV*16 {
			t.Fatalf("rate %d/16: N = %d, want %d", rate16, c.N(), QCmatrixV*16)
		}
		msg := make([]byte, c.K())
		for i := range msg {
			msg[i] = byte((i * 13) % 2)
		}
		word, err := c.Encode(msg)
		if err != nil {
			t.Fatalf("rate %d/16: %v", rate16, err)
		}
		if !c.AllChecksSatisfied(word) {
			t.Fatalf("rate %d/16: encoded word violates a parity check", rate16)
		}
	}
}

func TestNewCodeRejectsBadRate(t *testing.T) {
	for _, rate16 := range []int{0, 15, 16} {
		if _, err := NewCode(16, rate16, 1); err == nil {
			t.Fatalf("rate %d/16: expected error", rate16)
		}
	}
}

func TestDecodeGBFCleanWordTakesNoIterations(t *testing.T) {
	c, err := NewCode(24, 8, 99)
	if err != nil {
		t.Fatal(err)
	}
	msg := make([]byte, c.K())
	word, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	_, iters, ok := c.DecodeGBF(word, nil, 0, 50)
	if !ok || iters != 0 {
		t.Fatalf("clean word: ok=%v iters=%d, want ok and 0", ok, iters)
	}
}

func TestDecodeGBFEtaProtectsConfidentBits(t *testing.T) {
	c, err := NewCode(24, 8, 99)
	if err != nil {
		t.Fatal(err)
	}
	msg := make([]byte, c.K())
	for i := range msg {
		msg[i] = byte((i * 3) % 2)
	}
	word, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	corrupted := make([]byte, len(word))
	copy(corrupted, word)
	corrupted[5] ^= 1

	// The flipped bit carries weak confidence, everything else strong:
	// the eta term steers the single flip straight to bit 5.
	llr := make([]float64, len(word))
	for i := range llr {
		llr[i] = 6.0
	}
	llr[5] = 0.2

	decoded, iters, ok := c.DecodeGBF(corrupted, llr, 0.8, 50)
	if !ok {
		t.Fatal("GBF with eta failed to converge")
	}
	if iters != 1 {
		t.Fatalf("iterations = %d, want 1 (one flip, then a clean syndrome)", iters)
	}
	for i := range word {
		if decoded[i] != word[i] {
			t.Fatalf("bit %d: got %d want %d", i, decoded[i], word[i])
		}
	}
}
