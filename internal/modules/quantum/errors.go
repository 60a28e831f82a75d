package quantum

import "errors"

// Engine error taxonomy. All of these are local, synchronous failures: the
// operation that returned them committed no partial mutation. The single
// exception is ErrNumericalDivergence, which latches the owning Computer as
// failed until it is reinitialized (the last known-good state is retained).
var (
	// ErrOutOfRange indicates a register or qubit index outside the current
	// Hilbert space.
	ErrOutOfRange = errors.New("register out of range")

	// ErrAlreadyBound indicates a bind attempt against a register or symbol
	// that already participates in an axis.
	ErrAlreadyBound = errors.New("axis already bound")

	// ErrUnboundAxis indicates a measurement against a symbol pair with no
	// bound register.
	ErrUnboundAxis = errors.New("axis not bound")

	// ErrInvalidExpansion indicates a register expansion request that does not
	// grow the Hilbert space.
	ErrInvalidExpansion = errors.New("invalid expansion")

	// ErrInvalidStep indicates a non-positive or non-finite integration step.
	ErrInvalidStep = errors.New("invalid step size")

	// ErrNumericalDivergence indicates a non-finite or non-normalizable state
	// after an evolution step. Terminal for the owning Computer.
	ErrNumericalDivergence = errors.New("numerical divergence")

	// ErrMeasurementFailed indicates a symbol pair that could not be resolved
	// to a single bound register.
	ErrMeasurementFailed = errors.New("measurement failed")
)
