// Package ldpc implements Mercury's inner forward error correction: a
// quasi-cyclic LDPC code with a dual-diagonal, accumulate-encodable parity
// structure, decoded by either gradient bit-flipping (GBF, hard-decision,
// cheap) or log-domain layered sum-product / min-sum (SPA, soft-decision,
// stronger)
package ldpc

import "fmt"

// Prototype block-matrix dimensions. The total block-column count is
// fixed at 16, so a rate of r/16 selects r info block-columns and 16-r
// check block-rows.
const (
	QCmatrixV   = 16 // variable block-cols (= info block-cols + check block-rows)
	QCmatrixd   = 3  // target column weight of the info part
	QCmatrixEnc = true
)

// QCMatrix is a quasi-cyclic parity-check matrix described at block
// granularity: Shifts[i][j] is the cyclic shift of the Z x Z identity
// submatrix placed at block row i, block col j, or -1 for a null block.
type QCMatrix struct {
	Z         int
	RowBlocks int // check block-rows (C)
	ColBlocks int // variable block-cols (V)
	Shifts    [][]int
}

// N is the codeword length in bits.
func (q *QCMatrix) N() int { return q.ColBlocks * q.Z }

// M is the number of parity-check bits (and parity bits, for a
// dual-diagonal code where the parity part is square in blocks).
func (q *QCMatrix) M() int { return q.RowBlocks * q.Z }

// K is the number of information bits.
func (q *QCMatrix) K() int { return q.N() - q.M() }

// varIndex returns the variable-node column for block (i,j) at row offset t
// under shift s, i.e. the column hit by circulant permutation P^s at row t.
func varIndex(j, z, s, t int) int {
	return j*z + ((t + s) % z)
}

// CheckAdjacency returns, for every check node (bit row), the sorted list
// of variable-node indices it touches.
func (q *QCMatrix) CheckAdjacency() [][]int {
	adj := make([][]int, q.M())
	for i := 0; i < q.RowBlocks; i++ {
		for j := 0; j < q.ColBlocks; j++ {
			s := q.Shifts[i][j]
			if s < 0 {
				continue
			}
			for t := 0; t < q.Z; t++ {
				row := i*q.Z + t
				col := varIndex(j, q.Z, s, t)
				adj[row] = append(adj[row], col)
			}
		}
	}
	return adj
}

// VarAdjacency returns, for every variable node, the sorted list of check
// indices it participates in (the transpose of CheckAdjacency).
func (q *QCMatrix) VarAdjacency() [][]int {
	checks := q.CheckAdjacency()
	varAdj := make([][]int, q.N())
	for c, vars := range checks {
		for _, v := range vars {
			varAdj[v] = append(varAdj[v], c)
		}
	}
	return varAdj
}

// newInfoShifts deterministically derives shift values for the K info
// block-columns, giving each a column weight of QCmatrixd on check
// block-rows picked by the generator. The generator is a
// simple linear congruential sequence, the same construction used
// elsewhere in Mercury for reproducible pseudo-random tables (see
// internal/ofdm's pilot sequence), seeded so the matrix is identical on
// every run.
func newInfoShifts(rowBlocks, infoCols, z int, seed uint32) [][]int {
	shifts := make([][]int, rowBlocks)
	for i := range shifts {
		shifts[i] = make([]int, infoCols)
		for j := range shifts[i] {
			shifts[i][j] = -1
		}
	}
	state := seed
	next := func() uint32 {
		state = state*1664525 + 1013904223
		return state
	}
	for j := 0; j < infoCols; j++ {
		// Pick QCmatrixd distinct row-blocks for this column from the
		// generator, then draw their shifts in ascending row order so the
		// result does not depend on map iteration order.
		chosen := map[int]bool{}
		for len(chosen) < QCmatrixd && len(chosen) < rowBlocks {
			r := int(next() % uint32(rowBlocks))
			chosen[r] = true
		}
		for r := 0; r < rowBlocks; r++ {
			if chosen[r] {
				shifts[r][j] = int(next() % uint32(z))
			}
		}
	}
	return shifts
}

// dualDiagonalShifts returns the square RowBlocks x RowBlocks parity
// sub-matrix shifts: identity on the diagonal and sub-diagonal, null
// elsewhere. This is what makes the code accumulate-encodable:
// solving for parity bit block i only ever needs block i-1.
func dualDiagonalShifts(rowBlocks int) [][]int {
	shifts := make([][]int, rowBlocks)
	for i := range shifts {
		shifts[i] = make([]int, rowBlocks)
		for j := range shifts[i] {
			shifts[i][j] = -1
		}
		shifts[i][i] = 0
		if i > 0 {
			shifts[i][i-1] = 0
		}
	}
	return shifts
}

// NewQCMatrix builds the checkBlocks x QCmatrixV prototype matrix for
// circulant size z, seeded deterministically from seed.
func NewQCMatrix(z, checkBlocks int, seed uint32) (*QCMatrix, error) {
	if z <= 0 {
		return nil, fmt.Errorf("ldpc: circulant size must be positive, got %d", z)
	}
	if checkBlocks < 2 || checkBlocks > QCmatrixV-1 {
		return nil, fmt.Errorf("ldpc: check block-rows %d out of range [2,%d]", checkBlocks, QCmatrixV-1)
	}
	infoCols := QCmatrixV - checkBlocks
	info := newInfoShifts(checkBlocks, infoCols, z, seed)
	parity := dualDiagonalShifts(checkBlocks)

	shifts := make([][]int, checkBlocks)
	for i := 0; i < checkBlocks; i++ {
		shifts[i] = make([]int, QCmatrixV)
		copy(shifts[i][:infoCols], info[i])
		copy(shifts[i][infoCols:], parity[i])
	}
	return &QCMatrix{Z: z, RowBlocks: checkBlocks, ColBlocks: QCmatrixV, Shifts: shifts}, nil
}
