package ofdm

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestFFTIFFTRoundTrip(t *testing.T) {
	n := 64
	in := make([]complex128, n)
	for i := range in {
		in[i] = complex(math.Sin(float64(i)), math.Cos(float64(i)*0.5))
	}

	spec := FFT(in)
	back := IFFT(spec)

	for i := range in {
		if cmplx.Abs(back[i]-in[i]) > 1e-9 {
			t.Fatalf("round trip mismatch at %d: got %v want %v", i, back[i], in[i])
		}
	}
}

func TestFFTPanicsOnNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two length")
		}
	}()
	FFT(make([]complex128, 100))
}

func TestIsPowerOfTwo(t *testing.T) {
	cases := map[int]bool{0: false, 1: true, 2: true, 3: false, 64: true, 63: false}
	for n, want := range cases {
		if got := IsPowerOfTwo(n); got != want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", n, got, want)
		}
	}
}
