package scheduler

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/dudecon/SpaceWheat-sub007/internal/modules/biome"
)

// PuritySummaryJob periodically logs aggregate purity statistics across all
// biomes, giving operators a cheap decoherence overview without polling the
// API.
type PuritySummaryJob struct {
	service *biome.Service
	log     zerolog.Logger
}

// NewPuritySummaryJob creates the job.
func NewPuritySummaryJob(service *biome.Service, log zerolog.Logger) *PuritySummaryJob {
	return &PuritySummaryJob{
		service: service,
		log:     log.With().Str("job", "purity_summary").Logger(),
	}
}

// Name implements Job.
func (j *PuritySummaryJob) Name() string { return "purity_summary" }

// Run implements Job.
func (j *PuritySummaryJob) Run() error {
	snapshots := j.service.List()
	if len(snapshots) == 0 {
		return nil
	}
	purities := make([]float64, 0, len(snapshots))
	failed := 0
	for _, snap := range snapshots {
		purities = append(purities, snap.Purity)
		if snap.Failed {
			failed++
		}
	}
	min := purities[0]
	for _, p := range purities[1:] {
		if p < min {
			min = p
		}
	}
	j.log.Info().
		Int("biomes", len(snapshots)).
		Int("failed", failed).
		Float64("mean_purity", stat.Mean(purities, nil)).
		Float64("min_purity", min).
		Msg("Purity summary")
	return nil
}
