package biome

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudecon/SpaceWheat-sub007/internal/modules/ledger"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/quantum"
)

type recordingLedger struct {
	mu     sync.Mutex
	events []ledger.Event
}

func (r *recordingLedger) Record(_ context.Context, event ledger.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingLedger) all() []ledger.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ledger.Event(nil), r.events...)
}

func newTestService(t *testing.T) (*Service, *recordingLedger) {
	t.Helper()
	rec := &recordingLedger{}
	return NewService(quantum.NewOperatorCache(), rec, nil, zerolog.Nop()), rec
}

func TestCreateAndSnapshot(t *testing.T) {
	svc, _ := newTestService(t)

	snap, err := svc.Create(validDefinition())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.BiomeID)
	assert.Equal(t, "wheat-field", snap.Name)
	assert.Equal(t, 2, snap.Registers)
	assert.Equal(t, uint64(0), snap.Tick)
	assert.InDelta(t, 1.0, snap.Purity, 1e-12)
	require.Len(t, snap.Populations, 2)
	assert.InDelta(t, 1.0, snap.Populations[0], 1e-12)
	assert.False(t, snap.Failed)

	got, err := svc.GetSnapshot(snap.BiomeID)
	require.NoError(t, err)
	assert.Equal(t, snap.BiomeID, got.BiomeID)
}

func TestCreateRejectsInvalidDefinition(t *testing.T) {
	svc, _ := newTestService(t)
	def := validDefinition()
	def.Registers = 0
	_, err := svc.Create(def)
	assert.Error(t, err)
	assert.Empty(t, svc.List())
}

func TestListSortedByName(t *testing.T) {
	svc, _ := newTestService(t)

	for _, name := range []string{"zebra-plain", "apple-grove", "moss-bank"} {
		def := validDefinition()
		def.Name = name
		_, err := svc.Create(def)
		require.NoError(t, err)
	}

	list := svc.List()
	require.Len(t, list, 3)
	assert.Equal(t, "apple-grove", list[0].Name)
	assert.Equal(t, "moss-bank", list[1].Name)
	assert.Equal(t, "zebra-plain", list[2].Name)
}

func TestRemove(t *testing.T) {
	svc, _ := newTestService(t)
	snap, err := svc.Create(validDefinition())
	require.NoError(t, err)

	require.NoError(t, svc.Remove(snap.BiomeID))
	assert.Empty(t, svc.List())
	assert.ErrorIs(t, svc.Remove(snap.BiomeID), ErrBiomeNotFound)

	// Cache entries die with the biome.
	stats, err := svc.CacheStats(snap.BiomeID)
	assert.ErrorIs(t, err, ErrBiomeNotFound)
	assert.Zero(t, stats)
}

func TestUnknownBiome(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetSnapshot("nope")
	assert.ErrorIs(t, err, ErrBiomeNotFound)
	assert.ErrorIs(t, svc.BindAxis("nope", 0, "a", "b"), ErrBiomeNotFound)
	_, err = svc.Measure(ctx, "nope", "a", "b", false)
	assert.ErrorIs(t, err, ErrBiomeNotFound)
	_, err = svc.Expand(ctx, "nope", 1)
	assert.ErrorIs(t, err, ErrBiomeNotFound)
	_, err = svc.Purity("nope")
	assert.ErrorIs(t, err, ErrBiomeNotFound)
}

func TestTickAllAdvancesBiomes(t *testing.T) {
	svc, _ := newTestService(t)
	snap, err := svc.Create(validDefinition())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.TickAll(context.Background()))
	}

	got, err := svc.GetSnapshot(snap.BiomeID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Tick)
	assert.LessOrEqual(t, got.Purity, 1.0+1e-9)
}

func TestBindMeasureHarvest(t *testing.T) {
	svc, rec := newTestService(t)
	def := validDefinition()
	def.Bindings = nil
	def.InitialPopulations = []float64{0.9, 0.1}
	snap, err := svc.Create(def)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.BindAxis(snap.BiomeID, 0, "wheat", "chaff"))
	require.NoError(t, svc.BindAxis(snap.BiomeID, 1, "flour", "husk"))

	has, err := svc.HasSymbol(snap.BiomeID, "wheat")
	require.NoError(t, err)
	assert.True(t, has)
	supports, err := svc.SupportsPair(snap.BiomeID, "flour", "husk")
	require.NoError(t, err)
	assert.True(t, supports)

	// Non-destructive read leaves the state and writes nothing to the ledger.
	outcome, err := svc.Measure(ctx, snap.BiomeID, "wheat", "chaff", false)
	require.NoError(t, err)
	assert.Equal(t, "wheat", outcome)
	assert.Empty(t, rec.all())
	p, err := svc.Population(snap.BiomeID, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, p, 1e-12)

	// Destructive harvest collapses and records.
	outcome, err = svc.Measure(ctx, snap.BiomeID, "flour", "husk", true)
	require.NoError(t, err)
	assert.Equal(t, "husk", outcome)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventHarvest, events[0].Kind)
	assert.Equal(t, snap.BiomeID, events[0].BiomeID)
	assert.Equal(t, 1, events[0].Register)
	assert.Equal(t, "husk", events[0].Outcome)
	assert.InDelta(t, 0.1, events[0].Population, 1e-12)

	p, err = svc.Population(snap.BiomeID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, p, 1e-12)
}

func TestMeasureErrors(t *testing.T) {
	svc, rec := newTestService(t)
	snap, err := svc.Create(validDefinition())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Measure(ctx, snap.BiomeID, "flour", "husk", true)
	assert.ErrorIs(t, err, quantum.ErrUnboundAxis)

	_, err = svc.Measure(ctx, snap.BiomeID, "chaff", "wheat", true)
	assert.ErrorIs(t, err, quantum.ErrMeasurementFailed)

	// Failed measurements never reach the ledger.
	assert.Empty(t, rec.all())
}

func TestExpandRecordsAndPreserves(t *testing.T) {
	svc, rec := newTestService(t)
	def := validDefinition()
	def.InitialPopulations = []float64{0.3, 0.8}
	created, err := svc.Create(def)
	require.NoError(t, err)

	snap, err := svc.Expand(context.Background(), created.BiomeID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Registers)
	require.Len(t, snap.Populations, 3)
	assert.InDelta(t, 0.3, snap.Populations[0], 1e-12)
	assert.InDelta(t, 0.8, snap.Populations[1], 1e-12)
	assert.InDelta(t, 1.0, snap.Populations[2], 1e-12)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventExpansion, events[0].Kind)

	// The rebuild at the new dimension is the only cache entry.
	stats, err := svc.CacheStats(created.BiomeID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	_, err = svc.Expand(context.Background(), created.BiomeID, 0)
	assert.ErrorIs(t, err, quantum.ErrInvalidExpansion)
}

func TestApplyGateThroughService(t *testing.T) {
	svc, _ := newTestService(t)
	def := validDefinition()
	def.Operators = quantum.OperatorSpec{}
	snap, err := svc.Create(def)
	require.NoError(t, err)

	require.NoError(t, svc.ApplyGate(snap.BiomeID, quantum.GateX, []int{1}))
	p, err := svc.Population(snap.BiomeID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, p, 1e-12)

	assert.Error(t, svc.ApplyGate(snap.BiomeID, "BOGUS", []int{0}))
}

func TestPopulationOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)
	snap, err := svc.Create(validDefinition())
	require.NoError(t, err)

	_, err = svc.Population(snap.BiomeID, 7)
	assert.ErrorIs(t, err, quantum.ErrOutOfRange)
	_, err = svc.Population(snap.BiomeID, -1)
	assert.ErrorIs(t, err, quantum.ErrOutOfRange)
}

func TestDivergenceRecordedOnce(t *testing.T) {
	svc, rec := newTestService(t)
	def := validDefinition()
	// Overflow the first-order step: dt·strength exceeds float range once the
	// exchange term has an excitation to act on.
	def.Dt = 1e200
	def.Operators.Terms[0].Strength = 1e200
	def.InitialPopulations = []float64{0.0, 1.0}
	snap, err := svc.Create(def)
	require.NoError(t, err)
	ctx := context.Background()

	// Divergence is swallowed by the tick and recorded exactly once.
	require.NoError(t, svc.TickAll(ctx))
	require.NoError(t, svc.TickAll(ctx))
	require.NoError(t, svc.TickAll(ctx))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventDivergence, events[0].Kind)
	assert.Equal(t, snap.BiomeID, events[0].BiomeID)

	got, err := svc.GetSnapshot(snap.BiomeID)
	require.NoError(t, err)
	assert.True(t, got.Failed)
}
