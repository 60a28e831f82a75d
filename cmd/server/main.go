// Package main is the entry point for the SpaceWheat biome simulation
// server. It loads declarative biome definitions, owns the simulation tick
// loop, and exposes the engine's query and mutation surface over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dudecon/SpaceWheat-sub007/internal/config"
	"github.com/dudecon/SpaceWheat-sub007/internal/database"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/biome"
	biomehandlers "github.com/dudecon/SpaceWheat-sub007/internal/modules/biome/handlers"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/ledger"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/quantum"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/telemetry"
	"github.com/dudecon/SpaceWheat-sub007/internal/scheduler"
	"github.com/dudecon/SpaceWheat-sub007/internal/server"
	"github.com/dudecon/SpaceWheat-sub007/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet; stderr is all we have.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Int("port", cfg.Port).Dur("tick_interval", cfg.TickInterval).Msg("Starting SpaceWheat server")

	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerDBPath(),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	ledgerRepo, err := ledger.NewRepository(ledgerDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}

	hub := telemetry.NewHub(log)
	cache := quantum.NewOperatorCache()
	biomeService := biome.NewService(cache, ledgerRepo, hub, log)

	definitions, err := biome.LoadDefinitions(cfg.BiomesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.BiomesFile).Msg("Failed to load biome definitions")
	}
	for _, def := range definitions {
		if _, err := biomeService.Create(def); err != nil {
			log.Fatal().Err(err).Str("biome", def.Name).Msg("Failed to create biome")
		}
	}
	log.Info().Int("biomes", len(definitions)).Msg("Biomes initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := biome.NewTicker(biomeService, cfg.TickInterval, log)
	ticker.Start(ctx)

	sched := scheduler.New(log)
	if err := sched.AddJob("@every 1m", scheduler.NewPuritySummaryJob(biomeService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register purity summary job")
	}
	if err := sched.AddJob("@every 15m", scheduler.NewWALCheckpointJob(ledgerDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register WAL checkpoint job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:           log,
		Port:          cfg.Port,
		DevMode:       cfg.DevMode,
		BiomeHandlers: biomehandlers.NewHandler(biomeService, ledgerRepo, hub, log),
		SystemHandler: server.NewSystemHandler(ledgerDB, log),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	cancel()
	ticker.Stop()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	log.Info().Msg("Shutdown complete")
}
