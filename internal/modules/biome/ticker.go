package biome

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Ticker drives the simulation: one TickAll per interval. All engine
// operations are CPU-bound and expected to finish well inside the tick
// budget, so a slow tick is logged rather than queued.
type Ticker struct {
	service  *Service
	interval time.Duration
	log      zerolog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewTicker creates a ticker over the service.
func NewTicker(service *Service, interval time.Duration, log zerolog.Logger) *Ticker {
	return &Ticker{
		service:  service,
		interval: interval,
		log:      log.With().Str("component", "ticker").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the tick loop in a goroutine until Stop is called.
func (t *Ticker) Start(ctx context.Context) {
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		t.log.Info().Dur("interval", t.interval).Msg("Simulation ticker started")
		for {
			select {
			case <-t.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := t.service.TickAll(ctx); err != nil {
					t.log.Error().Err(err).Msg("Tick failed")
				}
				if elapsed := time.Since(start); elapsed > t.interval {
					t.log.Warn().Dur("elapsed", elapsed).Dur("interval", t.interval).
						Msg("Tick exceeded interval")
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the current tick to finish.
func (t *Ticker) Stop() {
	close(t.stop)
	<-t.done
	t.log.Info().Msg("Simulation ticker stopped")
}
