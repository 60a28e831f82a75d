package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub007/internal/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	biome_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	register INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL DEFAULT '',
	population REAL NOT NULL DEFAULT 0,
	purity REAL NOT NULL DEFAULT 0,
	tick INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_biome ON events(biome_id, created_at);
`

const eventColumns = `id, biome_id, kind, register, outcome, population, purity, tick, created_at`

// Repository handles event-log database operations. The table is append-only:
// there is no update or delete path.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates the repository and ensures the schema exists.
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Repository{db: db, log: log.With().Str("repo", "ledger").Logger()}, nil
}

// Record appends one event.
func (r *Repository) Record(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	query := `
		INSERT INTO events (biome_id, kind, register, outcome, population, purity, tick, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.BiomeID, string(event.Kind), event.Register, event.Outcome,
		event.Population, event.Purity, event.Tick, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", event.Kind, err)
	}
	r.log.Debug().Str("biome_id", event.BiomeID).Str("kind", string(event.Kind)).Msg("Recorded event")
	return nil
}

// ListByBiome returns the biome's events, newest first, up to limit.
func (r *Repository) ListByBiome(ctx context.Context, biomeID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE biome_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, biomeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.BiomeID, &kind, &e.Register, &e.Outcome,
			&e.Population, &e.Purity, &e.Tick, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = EventKind(kind)
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByKind returns how many events of the given kind the biome has.
func (r *Repository) CountByKind(ctx context.Context, biomeID string, kind EventKind) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE biome_id = ? AND kind = ?`, biomeID, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
