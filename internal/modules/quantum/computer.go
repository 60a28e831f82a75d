package quantum

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Computer is the per-biome façade over one density matrix, one register map,
// and the active operator set. It is the exclusive owner of all three; hosts
// and UI layers hold only the biome ID and register indices. Operations are
// serialized per instance by the owning biome — the Computer itself carries
// no locking.
type Computer struct {
	biomeID   string
	log       zerolog.Logger
	engine    *Engine
	cache     *OperatorCache
	registers *RegisterMap
	spec      OperatorSpec
	rho       *DensityMatrix
	ops       *OperatorSet
	failed    bool
}

// ComputerConfig configures a new Computer.
type ComputerConfig struct {
	BiomeID   string
	Registers int
	Spec      OperatorSpec
	// InitialPopulations optionally seeds each register's basis-0 population;
	// nil means every register starts in basis state 0.
	InitialPopulations []float64
	Cache              *OperatorCache
	Log                zerolog.Logger
}

// NewComputer constructs a product-state density matrix and builds the
// operator set through the cache.
func NewComputer(cfg ComputerConfig) (*Computer, error) {
	if cfg.Cache == nil {
		cfg.Cache = NewOperatorCache()
	}
	var rho *DensityMatrix
	var err error
	if cfg.InitialPopulations != nil {
		if len(cfg.InitialPopulations) != cfg.Registers {
			return nil, fmt.Errorf("%w: %d initial populations for %d registers",
				ErrOutOfRange, len(cfg.InitialPopulations), cfg.Registers)
		}
		rho, err = NewProductState(cfg.InitialPopulations)
	} else {
		rho, err = NewGroundState(cfg.Registers)
	}
	if err != nil {
		return nil, err
	}
	ops, err := cfg.Cache.GetOrBuild(cfg.BiomeID, cfg.Registers, cfg.Spec)
	if err != nil {
		return nil, err
	}
	log := cfg.Log.With().Str("component", "quantum_computer").Str("biome_id", cfg.BiomeID).Logger()
	return &Computer{
		biomeID:   cfg.BiomeID,
		log:       log,
		engine:    NewEngine(log),
		cache:     cfg.Cache,
		registers: NewRegisterMap(cfg.Registers),
		spec:      cfg.Spec,
		rho:       rho,
		ops:       ops,
	}, nil
}

// Registers returns the current register count.
func (c *Computer) Registers() int { return c.rho.Registers() }

// Failed reports whether a previous step diverged. A failed instance refuses
// further evolution until reinitialized.
func (c *Computer) Failed() bool { return c.failed }

// Evolve advances the state by one integration step of dt. On divergence the
// last valid state is retained, the instance is latched failed, and the step
// is reported as an error rather than corrupting state silently.
func (c *Computer) Evolve(dt float64) error {
	if c.failed {
		return fmt.Errorf("%w: instance failed, reinitialize required", ErrNumericalDivergence)
	}
	next, err := c.engine.Step(c.rho, c.ops, dt)
	if err != nil {
		if isDivergence(err) {
			c.failed = true
			c.log.Error().Err(err).Msg("Evolution diverged; retaining last valid state")
		}
		return err
	}
	c.rho = next
	return nil
}

// ExpandRegisters grows the Hilbert space by additional registers, each
// starting unbound and in basis state 0. Existing marginals are preserved.
// The operator cache for this biome is invalidated and the operator set
// regenerated at the new dimension.
func (c *Computer) ExpandRegisters(additional int) error {
	if additional <= 0 {
		return fmt.Errorf("%w: additional count %d", ErrInvalidExpansion, additional)
	}
	newCount := c.rho.Registers() + additional
	next, err := c.engine.Expand(c.rho, newCount)
	if err != nil {
		return err
	}
	c.cache.Invalidate(c.biomeID)
	ops, err := c.cache.GetOrBuild(c.biomeID, newCount, c.spec)
	if err != nil {
		return err
	}
	if err := c.registers.Grow(additional); err != nil {
		return err
	}
	c.rho = next
	c.ops = ops
	c.log.Info().Int("registers", newCount).Msg("Expanded register count")
	return nil
}

// Purity returns Tr(rho²). Always defined, in (0, 1].
func (c *Computer) Purity() float64 { return c.rho.Purity() }

// Population returns the marginal basis-0 probability of the register.
func (c *Computer) Population(register int) (float64, error) {
	return c.rho.Population(register)
}

// State returns a read-only snapshot of the density matrix.
func (c *Computer) State() *DensityMatrix { return c.rho.Clone() }

// BindAxis forwards to the register map.
func (c *Computer) BindAxis(register int, north, south string) error {
	return c.registers.BindAxis(register, north, south)
}

// UnbindAxis forwards to the register map.
func (c *Computer) UnbindAxis(register int) error {
	return c.registers.UnbindAxis(register)
}

// HasSymbol forwards to the register map.
func (c *Computer) HasSymbol(symbol string) bool { return c.registers.HasSymbol(symbol) }

// SupportsPair forwards to the register map.
func (c *Computer) SupportsPair(north, south string) bool {
	return c.registers.SupportsPair(north, south)
}

// AxisFor forwards to the register map.
func (c *Computer) AxisFor(register int) (Axis, bool) { return c.registers.AxisFor(register) }

// AxisRegister resolves a pair to its bound register, with ok=false when the
// pair is not fully bound in declared orientation.
func (c *Computer) AxisRegister(north, south string) (int, bool) {
	register, err := c.registers.RegisterForPair(north, south)
	return register, err == nil
}

// MeasureAxis resolves the pair to its bound register and selects the outcome
// deterministically from the marginal population: north when p0 >= 0.5 (the
// tie at exactly 0.5 goes to north), south otherwise. Deterministic,
// population-weighted selection is chosen over random sampling for
// reproducibility. When destructive is true the state is projected onto the
// observed outcome and renormalized; a non-destructive read leaves the state
// untouched.
func (c *Computer) MeasureAxis(north, south string, destructive bool) (string, error) {
	register, err := c.registers.RegisterForPair(north, south)
	if err != nil {
		return "", err
	}
	p0, err := c.rho.Population(register)
	if err != nil {
		return "", err
	}
	outcome := south
	basis := 1
	if p0 >= 0.5 {
		outcome = north
		basis = 0
	}
	if destructive {
		if err := c.rho.Project(register, basis); err != nil {
			return "", err
		}
	}
	c.log.Debug().Str("outcome", outcome).Float64("p0", p0).
		Int("register", register).Bool("destructive", destructive).Msg("Measured axis")
	return outcome, nil
}

// ApplyGate conjugates the state by the named unitary, rho -> U·rho·U†.
// Rotation gates take the angle in params.
func (c *Computer) ApplyGate(name string, targets []int, params ...float64) error {
	if c.failed {
		return fmt.Errorf("%w: instance failed, reinitialize required", ErrNumericalDivergence)
	}
	local, arity, err := gateMatrix(name, params)
	if err != nil {
		return err
	}
	if len(targets) != arity {
		return fmt.Errorf("%w: gate %s wants %d targets, got %d", ErrOutOfRange, name, arity, len(targets))
	}
	u, err := expandLocal(local, targets, c.rho.Registers())
	if err != nil {
		return err
	}
	c.rho.data = u.conjugate(c.rho.data)
	c.rho.Hermitize()
	return nil
}

// CacheStats returns the biome's operator-cache counters.
func (c *Computer) CacheStats() CacheStats { return c.cache.Stats(c.biomeID) }

func isDivergence(err error) bool {
	return errors.Is(err, ErrNumericalDivergence)
}
