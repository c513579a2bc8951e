package ldpc

import "math"

// DecodeSPA is the soft-decision decoder: layered,
// log-domain sum-product approximated by min-sum. It consumes one LLR per
// codeword bit in log(P0/P1) form (positive favors 0, negative favors 1,
// the same convention the demappers emit) and updates variable LLRs layer by
// layer, one parity-check row at a time, which converges faster than a
// flooding schedule. Returns the decoded word, the number of iterations
// run, and whether every parity check is satisfied; the caller decides
// the retry policy from the last two.
func (c *Code) DecodeSPA(llr []float64, maxIter int) ([]byte, int, bool) {
	n := c.N()
	l := make([]float64, n)
	copy(l, llr)

	r := make([][]float64, len(c.checkAdj))
	for ci, vars := range c.checkAdj {
		r[ci] = make([]float64, len(vars))
	}

	hardDecision := func() []byte {
		word := make([]byte, n)
		for i, v := range l {
			if v < 0 {
				word[i] = 1
			}
		}
		return word
	}

	for iter := 0; iter < maxIter; iter++ {
		for ci, vars := range c.checkAdj {
			q := make([]float64, len(vars))
			for idx, v := range vars {
				q[idx] = l[v] - r[ci][idx]
			}
			for idx := range vars {
				sign := 1.0
				minAbs := math.MaxFloat64
				for j := range vars {
					if j == idx {
						continue
					}
					if q[j] < 0 {
						sign = -sign
					}
					if a := math.Abs(q[j]); a < minAbs {
						minAbs = a
					}
				}
				newR := sign * minAbs
				l[vars[idx]] += newR - r[ci][idx]
				r[ci][idx] = newR
			}
		}

		word := hardDecision()
		if c.AllChecksSatisfied(word) {
			return word, iter + 1, true
		}
	}

	word := hardDecision()
	return word, maxIter, c.AllChecksSatisfied(word)
}
