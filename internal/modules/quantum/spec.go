package quantum

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// TermKind distinguishes coherent from dissipative terms.
type TermKind string

const (
	// TermHamiltonian contributes -i[H, rho] to the master equation.
	TermHamiltonian TermKind = "hamiltonian"
	// TermDissipator contributes L·rho·L† - ½{L†L, rho}.
	TermDissipator TermKind = "dissipator"
)

// TermSpec declares one generator of the master equation over the current
// register count. Strength scales a Hamiltonian term linearly; for a
// dissipator it is the rate γ, folded into the operator as √γ·G.
type TermSpec struct {
	Kind      TermKind `yaml:"kind" json:"kind"`
	Generator string   `yaml:"generator" json:"generator"`
	Targets   []int    `yaml:"targets" json:"targets"`
	Strength  float64  `yaml:"strength" json:"strength"`
}

// OperatorSpec is the declarative operator set of one biome. It is defined at
// biome construction and regenerated whole whenever the register count
// changes, because expanded operator matrices are dimensioned by 2^n.
type OperatorSpec struct {
	Terms []TermSpec `yaml:"terms" json:"terms"`
}

// generator name -> (local matrix, arity). Basis convention: index 0 is |0>.
// sigma_minus maps |1> to |0> (decay toward basis 0), sigma_plus the reverse.
var generators = map[string]struct {
	arity  int
	matrix []complex128
}{
	"pauli_x":     {1, []complex128{0, 1, 1, 0}},
	"pauli_y":     {1, []complex128{0, -1i, 1i, 0}},
	"pauli_z":     {1, []complex128{1, 0, 0, -1}},
	"hadamard":    {1, []complex128{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)}},
	"sigma_plus":  {1, []complex128{0, 0, 1, 0}},
	"sigma_minus": {1, []complex128{0, 1, 0, 0}},
	"number":      {1, []complex128{0, 0, 0, 1}},
	"decay":       {1, []complex128{0, 1, 0, 0}},
	"dephase":     {1, []complex128{1, 0, 0, -1}},
	// exchange = σ+⊗σ- + σ-⊗σ+: hops an excitation between two registers.
	"exchange": {2, []complex128{
		0, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, 0,
	}},
	"zz": {2, []complex128{
		1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, -1, 0,
		0, 0, 0, 1,
	}},
}

// GeneratorNames returns the known generator names, sorted.
func GeneratorNames() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every term against the given register count.
func (s OperatorSpec) Validate(registers int) error {
	for idx, term := range s.Terms {
		gen, ok := generators[term.Generator]
		if !ok {
			return fmt.Errorf("term %d: unknown generator %q", idx, term.Generator)
		}
		if term.Kind != TermHamiltonian && term.Kind != TermDissipator {
			return fmt.Errorf("term %d: unknown kind %q", idx, term.Kind)
		}
		if len(term.Targets) != gen.arity {
			return fmt.Errorf("term %d: generator %q wants %d targets, got %d",
				idx, term.Generator, gen.arity, len(term.Targets))
		}
		seen := make(map[int]bool, len(term.Targets))
		for _, t := range term.Targets {
			if t < 0 || t >= registers {
				return fmt.Errorf("term %d: %w: target %d of %d", idx, ErrOutOfRange, t, registers)
			}
			if seen[t] {
				return fmt.Errorf("term %d: %w: duplicate target %d", idx, ErrOutOfRange, t)
			}
			seen[t] = true
		}
		if math.IsNaN(term.Strength) || math.IsInf(term.Strength, 0) {
			return fmt.Errorf("term %d: non-finite strength", idx)
		}
		if term.Kind == TermDissipator && term.Strength < 0 {
			return fmt.Errorf("term %d: dissipator rate must be non-negative, got %v", idx, term.Strength)
		}
	}
	return nil
}

// Fingerprint returns a stable identity string for cache keying. Two specs
// with equal fingerprints build identical operator sets at equal dimension.
func (s OperatorSpec) Fingerprint() string {
	var b strings.Builder
	for _, term := range s.Terms {
		b.WriteString(string(term.Kind))
		b.WriteByte(':')
		b.WriteString(term.Generator)
		b.WriteByte(':')
		for i, t := range term.Targets {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(t))
		}
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(term.Strength, 'g', -1, 64))
		b.WriteByte('|')
	}
	return b.String()
}

// scaledLocal returns the term's local matrix with its strength folded in.
func (t TermSpec) scaledLocal() ([]complex128, int, error) {
	gen, ok := generators[t.Generator]
	if !ok {
		return nil, 0, fmt.Errorf("unknown generator %q", t.Generator)
	}
	scale := t.Strength
	if t.Kind == TermDissipator {
		scale = math.Sqrt(t.Strength)
	}
	out := make([]complex128, len(gen.matrix))
	c := complex(scale, 0)
	for i, v := range gen.matrix {
		out[i] = c * v
	}
	return out, 1 << gen.arity, nil
}
