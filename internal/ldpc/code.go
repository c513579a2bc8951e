package ldpc

import "fmt"

// Code is a usable QC-LDPC code: the prototype matrix plus the derived
// adjacency lists decoders need.
type Code struct {
	Mat        *QCMatrix
	checkAdj   [][]int
	varAdj     [][]int
	infoCols   int
	parityCols int
}

// NewCode builds a code for circulant size z at rate rate16/16
// (QCmatrixEnc-compatible: the parity part is always dual-diagonal, so
// QCmatrixEnc is implicitly true for every code this package builds).
func NewCode(z, rate16 int, seed uint32) (*Code, error) {
	if rate16 < 1 || rate16 > 14 {
		return nil, fmt.Errorf("ldpc: rate numerator %d out of range [1,14]", rate16)
	}
	checkBlocks := QCmatrixV - rate16
	mat, err := NewQCMatrix(z, checkBlocks, seed)
	if err != nil {
		return nil, err
	}
	c := &Code{
		Mat:        mat,
		infoCols:   rate16 * z,
		parityCols: checkBlocks * z,
	}
	c.checkAdj = mat.CheckAdjacency()
	c.varAdj = mat.VarAdjacency()
	return c, nil
}

// N is the codeword length, K the information length, M the parity length.
func (c *Code) N() int { return c.Mat.N() }
func (c *Code) K() int { return c.infoCols }
func (c *Code) M() int { return c.parityCols }

// Encode appends the parity bits to msg (length K) via the
// dual-diagonal accumulate recursion: parity block i only
// depends on the info bits it checks and parity block i-1.
func (c *Code) Encode(msg []byte) ([]byte, error) {
	if len(msg) != c.K() {
		return nil, fmt.Errorf("ldpc: message length %d != K %d", len(msg), c.K())
	}
	z := c.Mat.Z
	infoCols := c.K() / z
	parity := make([]byte, c.M())

	for t := 0; t < z; t++ {
		var prev byte
		for i := 0; i < c.Mat.RowBlocks; i++ {
			var acc byte
			for j := 0; j < infoCols; j++ {
				s := c.Mat.Shifts[i][j]
				if s < 0 {
					continue
				}
				col := varIndex(j, z, s, t)
				acc ^= msg[col]
			}
			acc ^= prev
			parity[i*z+t] = acc
			prev = acc
		}
	}

	out := make([]byte, 0, c.N())
	out = append(out, msg...)
	out = append(out, parity...)
	return out, nil
}

// Syndrome returns, for a full codeword (length N), one flag per check
// node: true if that parity equation is violated.
func (c *Code) Syndrome(word []byte) []bool {
	viol := make([]bool, len(c.checkAdj))
	for ci, vars := range c.checkAdj {
		var acc byte
		for _, v := range vars {
			acc ^= word[v]
		}
		viol[ci] = acc != 0
	}
	return viol
}

// AllChecksSatisfied reports whether a codeword satisfies every parity
// check.
func (c *Code) AllChecksSatisfied(word []byte) bool {
	for _, v := range c.Syndrome(word) {
		if v {
			return false
		}
	}
	return true
}
