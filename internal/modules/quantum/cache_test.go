package quantum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decaySpec(target int, rate float64) OperatorSpec {
	return OperatorSpec{Terms: []TermSpec{
		{Kind: TermDissipator, Generator: "decay", Targets: []int{target}, Strength: rate},
	}}
}

func TestGetOrBuildCaches(t *testing.T) {
	cache := NewOperatorCache()
	spec := decaySpec(0, 0.1)

	first, err := cache.GetOrBuild("biome-a", 2, spec)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Dim)
	assert.Len(t, first.Dissipators, 1)
	assert.Empty(t, first.Hamiltonians)

	second, err := cache.GetOrBuild("biome-a", 2, spec)
	require.NoError(t, err)
	assert.Same(t, first, second)

	stats := cache.Stats("biome-a")
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCacheKeySeparation(t *testing.T) {
	cache := NewOperatorCache()
	spec := decaySpec(0, 0.1)

	a, err := cache.GetOrBuild("biome-a", 2, spec)
	require.NoError(t, err)

	// Same spec, different register count.
	b, err := cache.GetOrBuild("biome-a", 3, spec)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 8, b.Dim)

	// Same spec and dimension, different biome: never shared.
	c, err := cache.GetOrBuild("biome-b", 2, spec)
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	// Different spec at same dimension.
	d, err := cache.GetOrBuild("biome-a", 2, decaySpec(0, 0.2))
	require.NoError(t, err)
	assert.NotSame(t, a, d)

	assert.Equal(t, 4, cache.Len())
}

func TestInvalidateResetsCounters(t *testing.T) {
	cache := NewOperatorCache()
	spec := decaySpec(0, 0.1)

	_, err := cache.GetOrBuild("biome-a", 2, spec)
	require.NoError(t, err)
	_, err = cache.GetOrBuild("biome-a", 2, spec)
	require.NoError(t, err)
	_, err = cache.GetOrBuild("biome-b", 2, spec)
	require.NoError(t, err)
	require.Equal(t, int64(1), cache.Stats("biome-a").Hits)

	cache.Invalidate("biome-a")

	assert.Equal(t, CacheStats{}, cache.Stats("biome-a"))
	assert.Equal(t, 1, cache.Len())
	// biome-b untouched.
	assert.Equal(t, int64(1), cache.Stats("biome-b").Misses)

	// The next build is a miss again.
	_, err = cache.GetOrBuild("biome-a", 2, spec)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cache.Stats("biome-a").Hits)
	assert.Equal(t, int64(1), cache.Stats("biome-a").Misses)
}

func TestGetOrBuildValidation(t *testing.T) {
	cache := NewOperatorCache()

	_, err := cache.GetOrBuild("biome-a", 0, OperatorSpec{})
	assert.ErrorIs(t, err, ErrOutOfRange)

	// Target outside the register count.
	_, err = cache.GetOrBuild("biome-a", 1, decaySpec(3, 0.1))
	assert.ErrorIs(t, err, ErrOutOfRange)

	// Unknown generator.
	_, err = cache.GetOrBuild("biome-a", 1, OperatorSpec{Terms: []TermSpec{
		{Kind: TermDissipator, Generator: "nope", Targets: []int{0}, Strength: 0.1},
	}})
	assert.Error(t, err)

	// Negative dissipator rate.
	_, err = cache.GetOrBuild("biome-a", 1, decaySpec(0, -1))
	assert.Error(t, err)
}

func TestZeroRateDissipatorSkipped(t *testing.T) {
	cache := NewOperatorCache()
	set, err := cache.GetOrBuild("biome-a", 1, decaySpec(0, 0))
	require.NoError(t, err)
	assert.False(t, set.HasDissipation())
}

func TestFingerprintStability(t *testing.T) {
	spec := OperatorSpec{Terms: []TermSpec{
		{Kind: TermHamiltonian, Generator: "exchange", Targets: []int{0, 1}, Strength: 0.5},
		{Kind: TermDissipator, Generator: "decay", Targets: []int{2}, Strength: 0.05},
	}}
	assert.Equal(t, spec.Fingerprint(), spec.Fingerprint())

	reordered := OperatorSpec{Terms: []TermSpec{spec.Terms[1], spec.Terms[0]}}
	assert.NotEqual(t, spec.Fingerprint(), reordered.Fingerprint())
}
