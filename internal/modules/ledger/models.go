// Package ledger records harvests, expansions, and divergence events to the
// append-only event log. This is game-layer bookkeeping at the engine
// boundary; quantum state itself is never persisted.
package ledger

import (
	"fmt"
	"time"
)

// EventKind classifies ledger events.
type EventKind string

const (
	// EventHarvest records a destructive axis measurement.
	EventHarvest EventKind = "harvest"
	// EventExpansion records a register-count expansion.
	EventExpansion EventKind = "expansion"
	// EventDivergence records a numerical divergence latching a biome failed.
	EventDivergence EventKind = "divergence"
)

// Event is one row of the event log.
type Event struct {
	ID         int64
	BiomeID    string
	Kind       EventKind
	Register   int
	Outcome    string  // harvested symbol, empty for non-harvest events
	Population float64 // basis-0 marginal at event time
	Purity     float64
	Tick       uint64
	CreatedAt  time.Time
}

// Validate checks the event before insertion.
func (e Event) Validate() error {
	if e.BiomeID == "" {
		return fmt.Errorf("event missing biome ID")
	}
	switch e.Kind {
	case EventHarvest, EventExpansion, EventDivergence:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Kind == EventHarvest && e.Outcome == "" {
		return fmt.Errorf("harvest event missing outcome symbol")
	}
	return nil
}
