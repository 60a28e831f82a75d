package quantum

import (
	"fmt"
	"sync"
)

// Dissipator pairs an expanded jump operator L with its precomputed L†L. The
// product is computed at local dimension and expanded once, so the per-step
// cost never includes a full-dimension matrix product.
type Dissipator struct {
	L *SparseOperator
	K *SparseOperator // L†L
}

// OperatorSet is the expanded, sparse form of an OperatorSpec at a fixed
// register count. Terms are kept separate so the evolution step can apply
// them batched, one contribution at a time.
type OperatorSet struct {
	Registers    int
	Dim          int
	Hamiltonians []*SparseOperator
	Dissipators  []Dissipator
}

// HasDissipation reports whether the set contains any dissipator with a
// non-zero jump operator.
func (s *OperatorSet) HasDissipation() bool {
	return len(s.Dissipators) > 0
}

type cacheKey struct {
	biomeID     string
	registers   int
	fingerprint string
}

// CacheStats exposes the per-biome hit/miss counters. Hits reset to zero on
// invalidation, which is what the expansion tests observe.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// OperatorCache memoizes expanded operator sets keyed by (biome, register
// count, spec identity). Construction cost is O(dim·locality) per term and is
// amortized across every evolution step until the next dimension change.
// Entries for biomes with different specs are never shared, even when their
// dimensions coincide, unless the spec fingerprints are identical — the biome
// ID is part of the key precisely to keep ownership per biome.
type OperatorCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*OperatorSet
	stats   map[string]*CacheStats
}

// NewOperatorCache returns an empty cache.
func NewOperatorCache() *OperatorCache {
	return &OperatorCache{
		entries: make(map[cacheKey]*OperatorSet),
		stats:   make(map[string]*CacheStats),
	}
}

// GetOrBuild returns the cached operator set for the key, building and
// storing it on a miss. The mutex makes the lookup/build pair single-writer
// per cache, which satisfies the at-most-one-writer contract per key.
func (c *OperatorCache) GetOrBuild(biomeID string, registers int, spec OperatorSpec) (*OperatorSet, error) {
	if registers <= 0 {
		return nil, fmt.Errorf("%w: register count %d", ErrOutOfRange, registers)
	}
	if err := spec.Validate(registers); err != nil {
		return nil, fmt.Errorf("invalid operator spec: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{biomeID: biomeID, registers: registers, fingerprint: spec.Fingerprint()}
	st := c.statsLocked(biomeID)
	if set, ok := c.entries[key]; ok {
		st.Hits++
		return set, nil
	}
	st.Misses++

	set, err := buildOperatorSet(registers, spec)
	if err != nil {
		return nil, err
	}
	c.entries[key] = set
	return set, nil
}

// Invalidate drops all entries for the biome and resets its hit counter.
// Called exactly once per successful expansion and on operator-spec change.
func (c *OperatorCache) Invalidate(biomeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.biomeID == biomeID {
			delete(c.entries, key)
		}
	}
	delete(c.stats, biomeID)
}

// Stats returns the biome's counters.
func (c *OperatorCache) Stats(biomeID string) CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.stats[biomeID]; ok {
		return *st
	}
	return CacheStats{}
}

// Len returns the number of cached entries across all biomes.
func (c *OperatorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *OperatorCache) statsLocked(biomeID string) *CacheStats {
	st, ok := c.stats[biomeID]
	if !ok {
		st = &CacheStats{}
		c.stats[biomeID] = st
	}
	return st
}

// buildOperatorSet expands every declared term to the full dimension via
// tensor placement at its target registers, identity elsewhere.
func buildOperatorSet(registers int, spec OperatorSpec) (*OperatorSet, error) {
	set := &OperatorSet{Registers: registers, Dim: 1 << registers}
	for idx, term := range spec.Terms {
		local, localDim, err := term.scaledLocal()
		if err != nil {
			return nil, fmt.Errorf("term %d: %w", idx, err)
		}
		switch term.Kind {
		case TermHamiltonian:
			op, err := expandLocal(local, term.Targets, registers)
			if err != nil {
				return nil, fmt.Errorf("term %d: %w", idx, err)
			}
			set.Hamiltonians = append(set.Hamiltonians, op)
		case TermDissipator:
			if term.Strength == 0 {
				continue
			}
			l, err := expandLocal(local, term.Targets, registers)
			if err != nil {
				return nil, fmt.Errorf("term %d: %w", idx, err)
			}
			k, err := expandLocal(localAdjointProduct(local, localDim), term.Targets, registers)
			if err != nil {
				return nil, fmt.Errorf("term %d: %w", idx, err)
			}
			set.Dissipators = append(set.Dissipators, Dissipator{L: l, K: k})
		default:
			return nil, fmt.Errorf("term %d: unknown kind %q", idx, term.Kind)
		}
	}
	return set, nil
}
