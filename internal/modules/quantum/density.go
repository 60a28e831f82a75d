// Package quantum implements the density-matrix state engine used by biome
// hosts: register/symbol bookkeeping, cached sparse Lindblad operators, the
// discretized master-equation evolution step, and measurement.
//
// Conventions: register q corresponds to bit q of the basis index (register 0
// is the least significant bit), basis state |0> of a register is the "north"
// pole of its symbol axis, and the density matrix is stored dense and
// row-major over the full 2^n-dimensional space. Operators are never stored
// dense at full dimension; see SparseOperator.
package quantum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// traceTolerance is the numerical tolerance applied to trace and probability
// checks after floating-point evolution.
const traceTolerance = 1e-9

// DensityMatrix is a dense, Hermitian, trace-one complex matrix over n
// two-level registers. It is the sole mutable state owned by a Computer.
type DensityMatrix struct {
	registers int
	dim       int
	data      []complex128 // row-major, dim*dim
}

// NewGroundState returns the pure product state with every register in basis
// state 0.
func NewGroundState(registers int) (*DensityMatrix, error) {
	if registers <= 0 {
		return nil, fmt.Errorf("%w: register count %d", ErrOutOfRange, registers)
	}
	dim := 1 << registers
	rho := &DensityMatrix{
		registers: registers,
		dim:       dim,
		data:      make([]complex128, dim*dim),
	}
	rho.data[0] = 1
	return rho, nil
}

// NewProductState returns the diagonal product state where register q carries
// population populations[q] in basis state 0. Populations outside [0,1] are
// rejected.
func NewProductState(populations []float64) (*DensityMatrix, error) {
	n := len(populations)
	if n == 0 {
		return nil, fmt.Errorf("%w: no registers", ErrOutOfRange)
	}
	for q, p := range populations {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return nil, fmt.Errorf("%w: population %v for register %d", ErrOutOfRange, p, q)
		}
	}
	dim := 1 << n
	rho := &DensityMatrix{registers: n, dim: dim, data: make([]complex128, dim*dim)}
	for i := 0; i < dim; i++ {
		p := 1.0
		for q := 0; q < n; q++ {
			if i&(1<<q) == 0 {
				p *= populations[q]
			} else {
				p *= 1 - populations[q]
			}
		}
		rho.data[i*dim+i] = complex(p, 0)
	}
	return rho, nil
}

// Registers returns the current register count n.
func (rho *DensityMatrix) Registers() int { return rho.registers }

// Dim returns the Hilbert-space dimension 2^n.
func (rho *DensityMatrix) Dim() int { return rho.dim }

// At returns the matrix element at (row, col).
func (rho *DensityMatrix) At(row, col int) complex128 {
	return rho.data[row*rho.dim+col]
}

// Clone returns a deep copy.
func (rho *DensityMatrix) Clone() *DensityMatrix {
	data := make([]complex128, len(rho.data))
	copy(data, rho.data)
	return &DensityMatrix{registers: rho.registers, dim: rho.dim, data: data}
}

// Trace returns the real part of Tr(rho). For a physical state this is 1.
func (rho *DensityMatrix) Trace() float64 {
	var tr float64
	for i := 0; i < rho.dim; i++ {
		tr += real(rho.data[i*rho.dim+i])
	}
	return tr
}

// Purity returns Tr(rho^2). For a Hermitian matrix this reduces to the sum of
// squared element magnitudes, which avoids a matrix product.
func (rho *DensityMatrix) Purity() float64 {
	var p float64
	for _, v := range rho.data {
		p += real(v)*real(v) + imag(v)*imag(v)
	}
	return p
}

// Population returns the marginal probability that the given register is in
// basis state 0, computed as a partial trace over all other registers. The
// partial trace of a diagonal observable only touches the diagonal, so this
// is O(dim) rather than O(dim^2).
func (rho *DensityMatrix) Population(register int) (float64, error) {
	if register < 0 || register >= rho.registers {
		return 0, fmt.Errorf("%w: register %d of %d", ErrOutOfRange, register, rho.registers)
	}
	bit := 1 << register
	var p float64
	for i := 0; i < rho.dim; i++ {
		if i&bit == 0 {
			p += real(rho.data[i*rho.dim+i])
		}
	}
	return p, nil
}

// Hermitize replaces rho with (rho + rho†)/2, discarding the antihermitian
// part accumulated by floating-point drift.
func (rho *DensityMatrix) Hermitize() {
	d := rho.dim
	for i := 0; i < d; i++ {
		rho.data[i*d+i] = complex(real(rho.data[i*d+i]), 0)
		for j := i + 1; j < d; j++ {
			avg := (rho.data[i*d+j] + cmplx.Conj(rho.data[j*d+i])) / 2
			rho.data[i*d+j] = avg
			rho.data[j*d+i] = cmplx.Conj(avg)
		}
	}
}

// Normalize rescales rho to unit trace. A vanishing or non-finite trace is
// reported as divergence and leaves rho untouched.
func (rho *DensityMatrix) Normalize() error {
	tr := rho.Trace()
	if math.IsNaN(tr) || math.IsInf(tr, 0) || math.Abs(tr) < traceTolerance {
		return fmt.Errorf("%w: trace %v", ErrNumericalDivergence, tr)
	}
	inv := complex(1/tr, 0)
	for i := range rho.data {
		rho.data[i] *= inv
	}
	return nil
}

// IsFinite reports whether every element is finite.
func (rho *DensityMatrix) IsFinite() bool {
	for _, v := range rho.data {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) ||
			math.IsInf(real(v), 0) || math.IsInf(imag(v), 0) {
			return false
		}
	}
	return true
}

// Project collapses the given register onto the given basis outcome (0 or 1)
// and renormalizes. Fails without mutation when the outcome probability is
// numerically zero.
func (rho *DensityMatrix) Project(register, outcome int) error {
	if register < 0 || register >= rho.registers {
		return fmt.Errorf("%w: register %d of %d", ErrOutOfRange, register, rho.registers)
	}
	if outcome != 0 && outcome != 1 {
		return fmt.Errorf("%w: outcome %d", ErrOutOfRange, outcome)
	}
	bit := 1 << register
	want := 0
	if outcome == 1 {
		want = bit
	}
	var prob float64
	d := rho.dim
	for i := 0; i < d; i++ {
		if i&bit == want {
			prob += real(rho.data[i*d+i])
		}
	}
	if prob < traceTolerance {
		return fmt.Errorf("%w: outcome %d has probability %v", ErrMeasurementFailed, outcome, prob)
	}
	inv := complex(1/prob, 0)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			if i&bit == want && j&bit == want {
				rho.data[i*d+j] *= inv
			} else {
				rho.data[i*d+j] = 0
			}
		}
	}
	return nil
}

// MinEigenvalue returns the smallest eigenvalue of rho, used to check
// positive semidefiniteness. The Hermitian matrix X+iY embeds into the real
// symmetric matrix [[X,-Y],[Y,X]] whose spectrum is that of rho with every
// eigenvalue doubled, which lets gonum's symmetric eigensolver do the work.
func (rho *DensityMatrix) MinEigenvalue() (float64, error) {
	d := rho.dim
	sym := mat.NewSymDense(2*d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			x := real(rho.data[i*d+j])
			y := imag(rho.data[i*d+j])
			sym.SetSym(i, j, x)
			sym.SetSym(d+i, d+j, x)
			sym.SetSym(i, d+j, -y)
		}
		for j := 0; j < i; j++ {
			// Upper triangle of the off-diagonal block needs the transposed
			// antisymmetric part as well.
			sym.SetSym(j, d+i, imag(rho.data[i*d+j]))
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return 0, fmt.Errorf("%w: eigendecomposition failed", ErrNumericalDivergence)
	}
	values := es.Values(nil)
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min, nil
}

// expand embeds rho into a larger space with additional registers appended in
// basis state 0: rho ⊗ |0><0|^⊗k. Existing correlations are preserved exactly
// because the appended registers occupy the high-order bits, so the old matrix
// becomes the top-left block of the new one.
func (rho *DensityMatrix) expand(newRegisters int) (*DensityMatrix, error) {
	if newRegisters <= rho.registers {
		return nil, fmt.Errorf("%w: %d -> %d registers", ErrInvalidExpansion, rho.registers, newRegisters)
	}
	oldDim := rho.dim
	newDim := 1 << newRegisters
	out := &DensityMatrix{
		registers: newRegisters,
		dim:       newDim,
		data:      make([]complex128, newDim*newDim),
	}
	for i := 0; i < oldDim; i++ {
		copy(out.data[i*newDim:i*newDim+oldDim], rho.data[i*oldDim:(i+1)*oldDim])
	}
	return out, nil
}
