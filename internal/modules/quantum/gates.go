package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Gate names accepted by Computer.ApplyGate. Rotation gates take one angle
// parameter; all others take none.
const (
	GateX    = "X"
	GateY    = "Y"
	GateZ    = "Z"
	GateH    = "H"
	GateS    = "S"
	GateT    = "T"
	GateRX   = "RX"
	GateRY   = "RY"
	GateRZ   = "RZ"
	GateCNOT = "CNOT"
	GateCZ   = "CZ"
	GateSWAP = "SWAP"
)

// gateMatrix returns the local unitary for a named gate along with the number
// of registers it acts on. Two-qubit gates use targets[0] as control (where
// that distinction exists) and targets[1] as target, matching the local bit
// order produced by gatherBits.
func gateMatrix(name string, params []float64) ([]complex128, int, error) {
	needParam := func() (float64, error) {
		if len(params) != 1 {
			return 0, fmt.Errorf("gate %s wants 1 parameter, got %d", name, len(params))
		}
		return params[0], nil
	}
	switch name {
	case GateX:
		return []complex128{0, 1, 1, 0}, 1, nil
	case GateY:
		return []complex128{0, -1i, 1i, 0}, 1, nil
	case GateZ:
		return []complex128{1, 0, 0, -1}, 1, nil
	case GateH:
		h := complex(1/math.Sqrt2, 0)
		return []complex128{h, h, h, -h}, 1, nil
	case GateS:
		return []complex128{1, 0, 0, 1i}, 1, nil
	case GateT:
		return []complex128{1, 0, 0, cmplx.Exp(complex(0, math.Pi/4))}, 1, nil
	case GateRX:
		theta, err := needParam()
		if err != nil {
			return nil, 0, err
		}
		c := complex(math.Cos(theta/2), 0)
		js := complex(0, -math.Sin(theta/2))
		return []complex128{c, js, js, c}, 1, nil
	case GateRY:
		theta, err := needParam()
		if err != nil {
			return nil, 0, err
		}
		c := complex(math.Cos(theta/2), 0)
		s := complex(math.Sin(theta/2), 0)
		return []complex128{c, -s, s, c}, 1, nil
	case GateRZ:
		theta, err := needParam()
		if err != nil {
			return nil, 0, err
		}
		p := cmplx.Exp(complex(0, theta/2))
		return []complex128{cmplx.Conj(p), 0, 0, p}, 1, nil
	case GateCNOT:
		// Control is local bit 0 (targets[0]). Basis order |ct> with t the
		// high local bit: flips the target only when control is 1.
		return []complex128{
			1, 0, 0, 0,
			0, 0, 0, 1,
			0, 0, 1, 0,
			0, 1, 0, 0,
		}, 2, nil
	case GateCZ:
		return []complex128{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, -1,
		}, 2, nil
	case GateSWAP:
		return []complex128{
			1, 0, 0, 0,
			0, 0, 1, 0,
			0, 1, 0, 0,
			0, 0, 0, 1,
		}, 2, nil
	default:
		return nil, 0, fmt.Errorf("unknown gate %q", name)
	}
}
