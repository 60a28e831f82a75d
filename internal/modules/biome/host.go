package biome

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub007/internal/modules/quantum"
)

// Biome owns exactly one quantum computer. All operations on the computer go
// through the biome's mutex, which is the per-instance serialization the
// engine contract requires; distinct biomes share nothing mutable and can be
// stepped in parallel.
type Biome struct {
	id   string
	name string
	dt   float64
	log  zerolog.Logger

	mu       sync.Mutex
	computer *quantum.Computer
	tick     uint64
	snapshot Snapshot
	diverged bool // divergence already recorded to the ledger
}

// newBiome constructs a biome and its computer from a definition.
func newBiome(def Definition, cache *quantum.OperatorCache, log zerolog.Logger) (*Biome, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	computer, err := quantum.NewComputer(quantum.ComputerConfig{
		BiomeID:            id,
		Registers:          def.Registers,
		Spec:               def.Operators,
		InitialPopulations: def.InitialPopulations,
		Cache:              cache,
		Log:                log,
	})
	if err != nil {
		return nil, fmt.Errorf("biome %q: %w", def.Name, err)
	}
	for _, binding := range def.Bindings {
		if err := computer.BindAxis(binding.Register, binding.North, binding.South); err != nil {
			return nil, fmt.Errorf("biome %q: %w", def.Name, err)
		}
	}
	b := &Biome{
		id:       id,
		name:     def.Name,
		dt:       def.Dt,
		log:      log.With().Str("component", "biome").Str("biome_id", id).Str("name", def.Name).Logger(),
		computer: computer,
	}
	b.refreshSnapshotLocked()
	return b, nil
}

// ID returns the biome's UUID.
func (b *Biome) ID() string { return b.id }

// Name returns the biome's configured name.
func (b *Biome) Name() string { return b.name }

// step advances the computer by one dt and refreshes the cached snapshot.
// Returns the fresh snapshot and whether this step newly diverged.
func (b *Biome) step() (Snapshot, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.computer.Evolve(b.dt)
	if err == nil {
		b.tick++
	}
	newlyDiverged := false
	if b.computer.Failed() && !b.diverged {
		b.diverged = true
		newlyDiverged = true
	}
	b.refreshSnapshotLocked()
	return b.snapshot, newlyDiverged, err
}

// refreshSnapshotLocked recomputes the cached snapshot. Caller holds b.mu.
func (b *Biome) refreshSnapshotLocked() {
	registers := b.computer.Registers()
	populations := make([]float64, registers)
	for q := 0; q < registers; q++ {
		p, err := b.computer.Population(q)
		if err != nil {
			b.log.Error().Err(err).Int("register", q).Msg("Failed to compute population for snapshot")
			continue
		}
		populations[q] = p
	}
	b.snapshot = Snapshot{
		BiomeID:     b.id,
		Name:        b.name,
		Tick:        b.tick,
		Registers:   registers,
		Purity:      b.computer.Purity(),
		Populations: populations,
		Failed:      b.computer.Failed(),
		CapturedAt:  time.Now(),
	}
}

// Snapshot returns the cached per-tick view.
func (b *Biome) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot
}

// withComputer runs fn under the biome's lock and refreshes the snapshot if
// fn mutated state.
func (b *Biome) withComputer(mutates bool, fn func(*quantum.Computer) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := fn(b.computer)
	if mutates && err == nil {
		b.refreshSnapshotLocked()
	}
	return err
}
