package ldpc

import "math"

// DecodeGBF is the gradient bit-flipping decoder: cheap, hard-decision
// driven, weak at low SNR. Each iteration scores every bit as the number
// of violated checks it participates in minus eta times the magnitude of
// its initial soft value, then flips the single highest-scoring bit.
// llrInit may be nil, which reduces the score to the pure violated-check
// count. Returns the decoded word, the number of iterations run, and
// whether the syndrome reached zero; the caller decides the retry policy
// from the last two.
func (c *Code) DecodeGBF(received []byte, llrInit []float64, eta float64, maxIter int) ([]byte, int, bool) {
	word := make([]byte, len(received))
	copy(word, received)

	for iter := 0; iter < maxIter; iter++ {
		synd := c.Syndrome(word)
		if allSatisfied(synd) {
			return word, iter, true
		}

		best, bestV := math.Inf(-1), -1
		for v := range word {
			score := 0.0
			for _, ci := range c.varAdj[v] {
				if synd[ci] {
					score++
				}
			}
			if llrInit != nil && v < len(llrInit) {
				score -= eta * math.Abs(llrInit[v])
			}
			if score > best {
				best, bestV = score, v
			}
		}
		if bestV < 0 {
			break
		}
		word[bestV] ^= 1
	}

	return word, maxIter, allSatisfied(c.Syndrome(word))
}

func allSatisfied(synd []bool) bool {
	for _, v := range synd {
		if v {
			return false
		}
	}
	return true
}
