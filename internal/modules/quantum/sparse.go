package quantum

import (
	"fmt"
	"math/cmplx"
)

// sparseEntry is one non-zero element of an operator row.
type sparseEntry struct {
	col int
	val complex128
}

// SparseOperator is a k-local operator expanded to the full 2^n-dimensional
// space in row-map form. An operator acting on k of n registers has at most
// 2^k non-zero entries per row, so storage and application cost scale with
// dim·2^k instead of dim^2. The full dense matrix is never materialized.
type SparseOperator struct {
	dim  int
	rows [][]sparseEntry
}

// Dim returns the operator's full Hilbert-space dimension.
func (op *SparseOperator) Dim() int { return op.dim }

// expandLocal tensor-places a dense local matrix (2^k x 2^k, row-major) at
// the given target registers inside an n-register space, identity elsewhere.
// The full element A[i,j] is local[sub(i),sub(j)] when i and j agree on all
// non-target bits, and zero otherwise; sub(x) gathers the target bits of x.
func expandLocal(local []complex128, targets []int, registers int) (*SparseOperator, error) {
	k := len(targets)
	localDim := 1 << k
	if len(local) != localDim*localDim {
		return nil, fmt.Errorf("local matrix has %d elements, want %d", len(local), localDim*localDim)
	}
	seen := make(map[int]bool, k)
	for _, t := range targets {
		if t < 0 || t >= registers {
			return nil, fmt.Errorf("%w: target %d of %d", ErrOutOfRange, t, registers)
		}
		if seen[t] {
			return nil, fmt.Errorf("%w: duplicate target %d", ErrOutOfRange, t)
		}
		seen[t] = true
	}

	dim := 1 << registers
	targetMask := 0
	for _, t := range targets {
		targetMask |= 1 << t
	}

	op := &SparseOperator{dim: dim, rows: make([][]sparseEntry, dim)}
	for i := 0; i < dim; i++ {
		sub := gatherBits(i, targets)
		rest := i &^ targetMask
		row := make([]sparseEntry, 0, localDim)
		for subCol := 0; subCol < localDim; subCol++ {
			v := local[sub*localDim+subCol]
			if v == 0 {
				continue
			}
			row = append(row, sparseEntry{col: rest | scatterBits(subCol, targets), val: v})
		}
		op.rows[i] = row
	}
	return op, nil
}

// gatherBits packs the target bits of index i into a local sub-index, with
// targets[0] becoming the local least significant bit.
func gatherBits(i int, targets []int) int {
	sub := 0
	for pos, t := range targets {
		if i&(1<<t) != 0 {
			sub |= 1 << pos
		}
	}
	return sub
}

// scatterBits is the inverse of gatherBits: it deposits a local sub-index
// back onto the target bit positions of a full index.
func scatterBits(sub int, targets []int) int {
	i := 0
	for pos, t := range targets {
		if sub&(1<<pos) != 0 {
			i |= 1 << t
		}
	}
	return i
}

// accumulateLeft adds coeff·(A·rho) into dst. dst and rho are row-major
// dim×dim buffers; they must not alias.
func (op *SparseOperator) accumulateLeft(dst, rho []complex128, coeff complex128) {
	d := op.dim
	for i := 0; i < d; i++ {
		for _, e := range op.rows[i] {
			c := coeff * e.val
			src := rho[e.col*d : (e.col+1)*d]
			out := dst[i*d : (i+1)*d]
			for j, v := range src {
				out[j] += c * v
			}
		}
	}
}

// accumulateRight adds coeff·(rho·A) into dst.
func (op *SparseOperator) accumulateRight(dst, rho []complex128, coeff complex128) {
	d := op.dim
	for m := 0; m < d; m++ {
		for _, e := range op.rows[m] {
			c := coeff * e.val
			for i := 0; i < d; i++ {
				dst[i*d+e.col] += c * rho[i*d+m]
			}
		}
	}
}

// accumulateRightAdjoint adds coeff·(rho·A†) into dst, reading A's rows
// directly: (rho·A†)[i,j] = Σ_m rho[i,m]·conj(A[j,m]).
func (op *SparseOperator) accumulateRightAdjoint(dst, rho []complex128, coeff complex128) {
	d := op.dim
	for j := 0; j < d; j++ {
		for _, e := range op.rows[j] {
			c := coeff * cmplx.Conj(e.val)
			for i := 0; i < d; i++ {
				dst[i*d+j] += c * rho[i*d+e.col]
			}
		}
	}
}

// conjugate returns U·rho·U† as a fresh buffer, used for gate application.
func (op *SparseOperator) conjugate(rho []complex128) []complex128 {
	d := op.dim
	tmp := make([]complex128, d*d)
	op.accumulateLeft(tmp, rho, 1)
	out := make([]complex128, d*d)
	op.accumulateRightAdjoint(out, tmp, 1)
	return out
}

// localAdjointProduct returns G†·G for a dense local matrix, computed at
// local dimension so the cache can expand L†L once instead of multiplying
// full-dimension operators per step.
func localAdjointProduct(local []complex128, localDim int) []complex128 {
	out := make([]complex128, localDim*localDim)
	for i := 0; i < localDim; i++ {
		for j := 0; j < localDim; j++ {
			var sum complex128
			for m := 0; m < localDim; m++ {
				sum += cmplx.Conj(local[m*localDim+i]) * local[m*localDim+j]
			}
			out[i*localDim+j] = sum
		}
	}
	return out
}
