package quantum

import "fmt"

// Axis is the ordered pair of domain symbols bound to one register: North
// labels basis state |0>, South labels basis state |1>.
type Axis struct {
	North string
	South string
}

// RegisterMap is the bidirectional mapping between register indices and
// symbol axes for one Computer. A register carries at most one axis, and a
// symbol belongs to at most one register. The map never owns register or
// matrix memory; external holders keep only indices.
type RegisterMap struct {
	count      int
	byRegister map[int]Axis
	bySymbol   map[string]int
}

// NewRegisterMap creates a map over the given register count with no axes
// bound.
func NewRegisterMap(count int) *RegisterMap {
	return &RegisterMap{
		count:      count,
		byRegister: make(map[int]Axis),
		bySymbol:   make(map[string]int),
	}
}

// Count returns the current register count.
func (m *RegisterMap) Count() int { return m.count }

// BindAxis binds the (north, south) pair to the register. Binding is
// validated here against the index range and existing bindings only;
// physical support against the operator set is checked at measurement time,
// which fails explicitly rather than warning and proceeding.
func (m *RegisterMap) BindAxis(register int, north, south string) error {
	if register < 0 || register >= m.count {
		return fmt.Errorf("%w: register %d of %d", ErrOutOfRange, register, m.count)
	}
	if north == "" || south == "" {
		return fmt.Errorf("%w: empty symbol", ErrOutOfRange)
	}
	if north == south {
		return fmt.Errorf("%w: symbol %q used for both poles", ErrAlreadyBound, north)
	}
	if _, ok := m.byRegister[register]; ok {
		return fmt.Errorf("%w: register %d already has an axis", ErrAlreadyBound, register)
	}
	if reg, ok := m.bySymbol[north]; ok {
		return fmt.Errorf("%w: symbol %q already bound to register %d", ErrAlreadyBound, north, reg)
	}
	if reg, ok := m.bySymbol[south]; ok {
		return fmt.Errorf("%w: symbol %q already bound to register %d", ErrAlreadyBound, south, reg)
	}
	m.byRegister[register] = Axis{North: north, South: south}
	m.bySymbol[north] = register
	m.bySymbol[south] = register
	return nil
}

// UnbindAxis removes the register's axis, freeing both symbols.
func (m *RegisterMap) UnbindAxis(register int) error {
	if register < 0 || register >= m.count {
		return fmt.Errorf("%w: register %d of %d", ErrOutOfRange, register, m.count)
	}
	axis, ok := m.byRegister[register]
	if !ok {
		return fmt.Errorf("%w: register %d", ErrUnboundAxis, register)
	}
	delete(m.byRegister, register)
	delete(m.bySymbol, axis.North)
	delete(m.bySymbol, axis.South)
	return nil
}

// LookupRegister returns the register a symbol is bound to.
func (m *RegisterMap) LookupRegister(symbol string) (int, bool) {
	reg, ok := m.bySymbol[symbol]
	return reg, ok
}

// HasSymbol reports whether the symbol is bound to any register.
func (m *RegisterMap) HasSymbol(symbol string) bool {
	_, ok := m.bySymbol[symbol]
	return ok
}

// AxisFor returns the axis bound to the register.
func (m *RegisterMap) AxisFor(register int) (Axis, bool) {
	axis, ok := m.byRegister[register]
	return axis, ok
}

// SupportsPair reports whether both symbols are bound to the same register as
// its declared north/south pair, in that order. Advisory: callers may proceed
// even when false, but any engine operation that requires a bound axis fails
// explicitly instead.
func (m *RegisterMap) SupportsPair(north, south string) bool {
	reg, ok := m.bySymbol[north]
	if !ok {
		return false
	}
	axis, ok := m.byRegister[reg]
	return ok && axis.North == north && axis.South == south
}

// RegisterForPair resolves a measurement pair to its register. Neither symbol
// bound is ErrUnboundAxis; anything else short of a declared matching pair is
// ErrMeasurementFailed.
func (m *RegisterMap) RegisterForPair(north, south string) (int, error) {
	nReg, nOK := m.bySymbol[north]
	sReg, sOK := m.bySymbol[south]
	if !nOK && !sOK {
		return 0, fmt.Errorf("%w: pair (%q, %q)", ErrUnboundAxis, north, south)
	}
	if !nOK || !sOK || nReg != sReg {
		return 0, fmt.Errorf("%w: symbols (%q, %q) do not form a bound pair", ErrMeasurementFailed, north, south)
	}
	axis := m.byRegister[nReg]
	if axis.North != north || axis.South != south {
		return 0, fmt.Errorf("%w: pair (%q, %q) bound in reverse orientation", ErrMeasurementFailed, north, south)
	}
	return nReg, nil
}

// Grow raises the register count by k, leaving existing bindings intact. New
// registers start unbound.
func (m *RegisterMap) Grow(k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: grow by %d", ErrInvalidExpansion, k)
	}
	m.count += k
	return nil
}

// BoundRegisters returns the indices that currently carry an axis.
func (m *RegisterMap) BoundRegisters() []int {
	out := make([]int, 0, len(m.byRegister))
	for reg := range m.byRegister {
		out = append(out, reg)
	}
	return out
}
