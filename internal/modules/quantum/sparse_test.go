package quantum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherScatterBits(t *testing.T) {
	targets := []int{2, 0}

	// Full index 0b101: bit 2 set -> local bit 0, bit 0 set -> local bit 1.
	assert.Equal(t, 0b11, gatherBits(0b101, targets))
	assert.Equal(t, 0b01, gatherBits(0b100, targets))
	assert.Equal(t, 0b10, gatherBits(0b001, targets))

	assert.Equal(t, 0b101, scatterBits(0b11, targets))
	assert.Equal(t, 0b100, scatterBits(0b01, targets))
	assert.Equal(t, 0b001, scatterBits(0b10, targets))

	for sub := 0; sub < 4; sub++ {
		assert.Equal(t, sub, gatherBits(scatterBits(sub, targets), targets))
	}
}

// operatorColumn multiplies out a sparse operator against a basis column
// vector, giving the operator's full column for comparison.
func operatorColumn(op *SparseOperator, col int) []complex128 {
	out := make([]complex128, op.dim)
	for i := 0; i < op.dim; i++ {
		for _, e := range op.rows[i] {
			if e.col == col {
				out[i] += e.val
			}
		}
	}
	return out
}

func TestExpandLocalSingleQubit(t *testing.T) {
	// Pauli X on register 1 of a 2-register space flips bit 1.
	x := []complex128{0, 1, 1, 0}
	op, err := expandLocal(x, []int{1}, 2)
	require.NoError(t, err)

	for col := 0; col < 4; col++ {
		column := operatorColumn(op, col)
		for row := 0; row < 4; row++ {
			want := complex128(0)
			if row == col^0b10 {
				want = 1
			}
			assert.Equal(t, want, column[row], "element (%d,%d)", row, col)
		}
	}
}

func TestExpandLocalTwoQubit(t *testing.T) {
	// Exchange on registers 0 and 2 of a 3-register space swaps an
	// excitation between bits 0 and 2, leaving bit 1 alone.
	gen := generators["exchange"]
	op, err := expandLocal(gen.matrix, []int{0, 2}, 3)
	require.NoError(t, err)

	// |001> (bit 0 set) -> |100> (bit 2 set), with and without bit 1.
	assert.Equal(t, complex128(1), operatorColumn(op, 0b001)[0b100])
	assert.Equal(t, complex128(1), operatorColumn(op, 0b100)[0b001])
	assert.Equal(t, complex128(1), operatorColumn(op, 0b011)[0b110])
	// |000> and |101> are annihilated.
	for row := 0; row < 8; row++ {
		assert.Equal(t, complex128(0), operatorColumn(op, 0b000)[row])
		assert.Equal(t, complex128(0), operatorColumn(op, 0b101)[row])
	}
}

func TestExpandLocalErrors(t *testing.T) {
	x := []complex128{0, 1, 1, 0}

	_, err := expandLocal(x, []int{2}, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = expandLocal(x, []int{-1}, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = expandLocal(generators["exchange"].matrix, []int{1, 1}, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = expandLocal(x[:3], []int{0}, 2)
	assert.Error(t, err)
}

func TestAccumulateLeftRight(t *testing.T) {
	// A = sigma_minus on a single register; rho = |1><1|.
	op, err := expandLocal([]complex128{0, 1, 0, 0}, []int{0}, 1)
	require.NoError(t, err)
	rho := []complex128{0, 0, 0, 1} // |1><1|

	// A·rho = |0><1|.
	left := make([]complex128, 4)
	op.accumulateLeft(left, rho, 1)
	assert.Equal(t, []complex128{0, 1, 0, 0}, left)

	// rho·A = 0 because A annihilates <1| from the right... sigma_minus has
	// only the (0,1) element, so rho·A picks column 1 of A against row 1.
	right := make([]complex128, 4)
	op.accumulateRight(right, rho, 1)
	assert.Equal(t, []complex128{0, 0, 0, 0}, right)

	// (A·rho)·A† = |0><0|.
	out := make([]complex128, 4)
	op.accumulateRightAdjoint(out, left, 1)
	assert.Equal(t, []complex128{1, 0, 0, 0}, out)
}

func TestConjugatePreservesTrace(t *testing.T) {
	h := complex(1/math.Sqrt2, 0)
	op, err := expandLocal([]complex128{h, h, h, -h}, []int{0}, 2)
	require.NoError(t, err)

	rho, err := NewProductState([]float64{0.75, 0.25})
	require.NoError(t, err)

	out := op.conjugate(rho.data)
	var tr complex128
	for i := 0; i < 4; i++ {
		tr += out[i*4+i]
	}
	assert.InDelta(t, 1.0, real(tr), 1e-12)
	assert.InDelta(t, 0.0, imag(tr), 1e-12)
}

func TestLocalAdjointProduct(t *testing.T) {
	// sigma_minus† · sigma_minus = |1><1| (the number operator).
	k := localAdjointProduct([]complex128{0, 1, 0, 0}, 2)
	assert.Equal(t, []complex128{0, 0, 0, 1}, k)

	// Hermitian generator squares to identity.
	x := []complex128{0, 1, 1, 0}
	assert.Equal(t, []complex128{1, 0, 0, 1}, localAdjointProduct(x, 2))
}
