package biome

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dudecon/SpaceWheat-sub007/internal/modules/ledger"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/quantum"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/telemetry"
)

// ErrBiomeNotFound indicates an unknown biome ID.
var ErrBiomeNotFound = errors.New("biome not found")

// EventRecorder is the slice of the ledger the service needs.
type EventRecorder interface {
	Record(ctx context.Context, event ledger.Event) error
}

// Service is the registry of live biomes. It constructs them from
// declarative definitions, steps them once per tick, and routes
// bind/measure/expand requests from the outer layers.
type Service struct {
	log      zerolog.Logger
	cache    *quantum.OperatorCache
	recorder EventRecorder
	hub      *telemetry.Hub

	mu     sync.RWMutex
	biomes map[string]*Biome
}

// NewService creates an empty biome registry. recorder and hub may be nil in
// tests.
func NewService(cache *quantum.OperatorCache, recorder EventRecorder, hub *telemetry.Hub, log zerolog.Logger) *Service {
	return &Service{
		log:      log.With().Str("component", "biome_service").Logger(),
		cache:    cache,
		recorder: recorder,
		hub:      hub,
		biomes:   make(map[string]*Biome),
	}
}

// Create constructs a biome from a definition and registers it.
func (s *Service) Create(def Definition) (Snapshot, error) {
	b, err := newBiome(def, s.cache, s.log)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	s.biomes[b.ID()] = b
	s.mu.Unlock()
	s.log.Info().Str("biome_id", b.ID()).Str("name", b.Name()).
		Int("registers", def.Registers).Msg("Created biome")
	return b.Snapshot(), nil
}

// Remove tears a biome down, dropping its cache entries. The quantum state is
// gone with it; registers are never shrunk individually.
func (s *Service) Remove(biomeID string) error {
	s.mu.Lock()
	_, ok := s.biomes[biomeID]
	delete(s.biomes, biomeID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrBiomeNotFound, biomeID)
	}
	s.cache.Invalidate(biomeID)
	s.log.Info().Str("biome_id", biomeID).Msg("Removed biome")
	return nil
}

// get returns the live biome.
func (s *Service) get(biomeID string) (*Biome, error) {
	s.mu.RLock()
	b, ok := s.biomes[biomeID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBiomeNotFound, biomeID)
	}
	return b, nil
}

// List returns snapshots of all biomes, sorted by name for stable output.
func (s *Service) List() []Snapshot {
	s.mu.RLock()
	biomes := make([]*Biome, 0, len(s.biomes))
	for _, b := range s.biomes {
		biomes = append(biomes, b)
	}
	s.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(biomes))
	for _, b := range biomes {
		snapshots = append(snapshots, b.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Name < snapshots[j].Name })
	return snapshots
}

// GetSnapshot returns one biome's cached snapshot.
func (s *Service) GetSnapshot(biomeID string) (Snapshot, error) {
	b, err := s.get(biomeID)
	if err != nil {
		return Snapshot{}, err
	}
	return b.Snapshot(), nil
}

// TickAll steps every biome once. Biomes own disjoint state, so they are
// stepped in parallel without cross-biome locking. A diverged biome is
// reported, recorded to the ledger once, and skipped on subsequent ticks;
// divergence never aborts the tick for the other biomes.
func (s *Service) TickAll(ctx context.Context) error {
	s.mu.RLock()
	biomes := make([]*Biome, 0, len(s.biomes))
	for _, b := range s.biomes {
		biomes = append(biomes, b)
	}
	s.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range biomes {
		b := b
		g.Go(func() error {
			snap, newlyDiverged, err := b.step()
			if err != nil {
				if errors.Is(err, quantum.ErrNumericalDivergence) {
					if newlyDiverged {
						s.recordEvent(ctx, ledger.Event{
							BiomeID: b.ID(),
							Kind:    ledger.EventDivergence,
							Purity:  snap.Purity,
							Tick:    snap.Tick,
						})
					}
					return nil
				}
				return fmt.Errorf("biome %s: %w", b.ID(), err)
			}
			if s.hub != nil {
				s.hub.Publish(telemetry.Frame{
					BiomeID:     snap.BiomeID,
					Name:        snap.Name,
					Tick:        snap.Tick,
					Registers:   snap.Registers,
					Purity:      snap.Purity,
					Populations: snap.Populations,
					Failed:      snap.Failed,
					CapturedAt:  snap.CapturedAt,
				})
			}
			return nil
		})
	}
	return g.Wait()
}

// BindAxis binds a symbol pair to a register of the biome.
func (s *Service) BindAxis(biomeID string, register int, north, south string) error {
	b, err := s.get(biomeID)
	if err != nil {
		return err
	}
	return b.withComputer(false, func(c *quantum.Computer) error {
		return c.BindAxis(register, north, south)
	})
}

// UnbindAxis releases a register's axis.
func (s *Service) UnbindAxis(biomeID string, register int) error {
	b, err := s.get(biomeID)
	if err != nil {
		return err
	}
	return b.withComputer(false, func(c *quantum.Computer) error {
		return c.UnbindAxis(register)
	})
}

// HasSymbol reports whether the symbol is bound in the biome.
func (s *Service) HasSymbol(biomeID, symbol string) (bool, error) {
	b, err := s.get(biomeID)
	if err != nil {
		return false, err
	}
	var has bool
	err = b.withComputer(false, func(c *quantum.Computer) error {
		has = c.HasSymbol(symbol)
		return nil
	})
	return has, err
}

// SupportsPair reports whether the pair is bound to one register in declared
// orientation.
func (s *Service) SupportsPair(biomeID, north, south string) (bool, error) {
	b, err := s.get(biomeID)
	if err != nil {
		return false, err
	}
	var supports bool
	err = b.withComputer(false, func(c *quantum.Computer) error {
		supports = c.SupportsPair(north, south)
		return nil
	})
	return supports, err
}

// Expand grows the biome's register count and records the expansion.
func (s *Service) Expand(ctx context.Context, biomeID string, additional int) (Snapshot, error) {
	b, err := s.get(biomeID)
	if err != nil {
		return Snapshot{}, err
	}
	err = b.withComputer(true, func(c *quantum.Computer) error {
		return c.ExpandRegisters(additional)
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap := b.Snapshot()
	s.recordEvent(ctx, ledger.Event{
		BiomeID: biomeID,
		Kind:    ledger.EventExpansion,
		Purity:  snap.Purity,
		Tick:    snap.Tick,
	})
	return snap, nil
}

// Measure performs an axis measurement. Destructive harvests collapse the
// state and are recorded to the ledger.
func (s *Service) Measure(ctx context.Context, biomeID, north, south string, destructive bool) (string, error) {
	b, err := s.get(biomeID)
	if err != nil {
		return "", err
	}
	var outcome string
	var register int
	var population float64
	err = b.withComputer(destructive, func(c *quantum.Computer) error {
		if reg, ok := c.AxisRegister(north, south); ok {
			register = reg
			if p, perr := c.Population(reg); perr == nil {
				population = p
			}
		}
		var merr error
		outcome, merr = c.MeasureAxis(north, south, destructive)
		return merr
	})
	if err != nil {
		return "", err
	}
	if destructive {
		snap := b.Snapshot()
		s.recordEvent(ctx, ledger.Event{
			BiomeID:    biomeID,
			Kind:       ledger.EventHarvest,
			Register:   register,
			Outcome:    outcome,
			Population: population,
			Purity:     snap.Purity,
			Tick:       snap.Tick,
		})
	}
	return outcome, nil
}

// ApplyGate applies a unitary gate to the biome's state.
func (s *Service) ApplyGate(biomeID, gate string, targets []int, params ...float64) error {
	b, err := s.get(biomeID)
	if err != nil {
		return err
	}
	return b.withComputer(true, func(c *quantum.Computer) error {
		return c.ApplyGate(gate, targets, params...)
	})
}

// Purity returns the biome's current purity.
func (s *Service) Purity(biomeID string) (float64, error) {
	snap, err := s.GetSnapshot(biomeID)
	if err != nil {
		return 0, err
	}
	return snap.Purity, nil
}

// Population returns a register's cached basis-0 marginal.
func (s *Service) Population(biomeID string, register int) (float64, error) {
	snap, err := s.GetSnapshot(biomeID)
	if err != nil {
		return 0, err
	}
	if register < 0 || register >= len(snap.Populations) {
		return 0, fmt.Errorf("%w: register %d of %d", quantum.ErrOutOfRange, register, len(snap.Populations))
	}
	return snap.Populations[register], nil
}

// CacheStats returns the operator-cache counters for a biome.
func (s *Service) CacheStats(biomeID string) (quantum.CacheStats, error) {
	if _, err := s.get(biomeID); err != nil {
		return quantum.CacheStats{}, err
	}
	return s.cache.Stats(biomeID), nil
}

func (s *Service) recordEvent(ctx context.Context, event ledger.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.log.Error().Err(err).Str("biome_id", event.BiomeID).
			Str("kind", string(event.Kind)).Msg("Failed to record ledger event")
	}
}
