// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. Biome definitions themselves live
// in the YAML file named by BiomesFile and are loaded once at startup.
type Config struct {
	DataDir      string // base directory for the ledger database
	BiomesFile   string // declarative biome definitions (YAML)
	LogLevel     string
	Port         int
	DevMode      bool
	TickInterval time.Duration // simulation tick period
}

// Load reads configuration from .env (when present) and the environment.
func Load() (*Config, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:      getEnv("SPACEWHEAT_DATA_DIR", "./data"),
		BiomesFile:   getEnv("SPACEWHEAT_BIOMES_FILE", "./config/biomes.yaml"),
		LogLevel:     getEnv("SPACEWHEAT_LOG_LEVEL", "info"),
		Port:         8000,
		DevMode:      getEnv("SPACEWHEAT_DEV_MODE", "") == "true",
		TickInterval: 100 * time.Millisecond,
	}

	if raw := os.Getenv("SPACEWHEAT_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid SPACEWHEAT_PORT %q", raw)
		}
		cfg.Port = port
	}
	if raw := os.Getenv("SPACEWHEAT_TICK_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("invalid SPACEWHEAT_TICK_INTERVAL %q", raw)
		}
		cfg.TickInterval = interval
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

// LedgerDBPath returns the path of the ledger database.
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
