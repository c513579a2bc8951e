package ofdm

// PilotSequence is a fixed-length DBPSK pilot stream, regenerated whenever
// the active preset changes.
type PilotSequence struct {
	Boost  float64
	values []complex128
}

// lcgSeed is the fixed seed for the pilot-sequence LCG. Deterministic and
// shared by both ends of a link so the receiver can regenerate pilot_ref
// without any side channel.
const lcgSeed uint32 = 0x2F6E2B1

// lcg is a minimal Numerical-Recipes-style linear congruential generator,
// used only to drive the pilot DBPSK bit stream, not a cryptographic PRNG.
type lcg struct{ state uint32 }

func newLCG(seed uint32) *lcg { return &lcg{state: seed} }

func (g *lcg) next() uint32 {
	g.state = g.state*1664525 + 1013904223
	return g.state
}

func (g *lcg) bit() int {
	return int(g.next() >> 31 & 1)
}

// NewPilotSequence produces n DBPSK pilot values: next = prev XOR b, where
// b is the top bit of the next LCG output, and value = (2*next - 1) * boost
func NewPilotSequence(n int, boost float64) *PilotSequence {
	g := newLCG(lcgSeed)
	values := make([]complex128, n)
	prev := 0
	for i := 0; i < n; i++ {
		next := prev ^ g.bit()
		values[i] = complex(float64(2*next-1)*boost, 0)
		prev = next
	}
	return &PilotSequence{Boost: boost, values: values}
}

// Value returns the i-th pilot symbol, wrapping if the sequence is shorter
// than the number of pilot cells requested (keeps callers simple).
func (p *PilotSequence) Value(i int) complex128 {
	if len(p.values) == 0 {
		return 0
	}
	return p.values[i%len(p.values)]
}

// Len reports the number of generated pilot values.
func (p *PilotSequence) Len() int { return len(p.values) }
