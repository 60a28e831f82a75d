package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub007/internal/database"
)

// WALCheckpointJob truncates the ledger WAL periodically so the append-only
// event log does not grow an unbounded sidecar file.
type WALCheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWALCheckpointJob creates the job.
func NewWALCheckpointJob(db *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name implements Job.
func (j *WALCheckpointJob) Name() string { return "wal_checkpoint" }

// Run implements Job.
func (j *WALCheckpointJob) Run() error {
	return j.db.WALCheckpoint("TRUNCATE")
}
