package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is anything that can answer a liveness probe (the ledger database).
type Pinger interface {
	QuickCheck(ctx context.Context) error
}

// SystemHandler serves process health and host metrics.
type SystemHandler struct {
	db  Pinger
	log zerolog.Logger
}

// NewSystemHandler creates the handler. db may be nil when the ledger is
// disabled.
func NewSystemHandler(db Pinger, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{db: db, log: log.With().Str("handler", "system").Logger()}
}

// RegisterRoutes registers system routes.
func (h *SystemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
}

// HandleHealth handles GET /api/health.
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "ok"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.QuickCheck(ctx); err != nil {
			status, dbStatus = "degraded", "unreachable"
			h.log.Warn().Err(err).Msg("Ledger database health check failed")
		}
	}

	var cpuPct, memPct float64
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		cpuPct = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		memPct = vm.UsedPercent
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"ledger": dbStatus,
		"system": map[string]float64{
			"cpu_percent": cpuPct,
			"ram_percent": memPct,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
