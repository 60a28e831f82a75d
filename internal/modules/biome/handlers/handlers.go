// Package handlers provides HTTP handlers for biome queries and mutations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/dudecon/SpaceWheat-sub007/internal/modules/biome"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/ledger"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/quantum"
	"github.com/dudecon/SpaceWheat-sub007/internal/modules/telemetry"
)

// EventLister is the slice of the ledger the handlers read from.
type EventLister interface {
	ListByBiome(ctx context.Context, biomeID string, limit int) ([]ledger.Event, error)
}

// Handler handles biome HTTP requests.
type Handler struct {
	service *biome.Service
	events  EventLister
	hub     *telemetry.Hub
	log     zerolog.Logger
}

// NewHandler creates a new biome handler.
func NewHandler(service *biome.Service, events EventLister, hub *telemetry.Hub, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		events:  events,
		hub:     hub,
		log:     log.With().Str("handler", "biome").Logger(),
	}
}

// BindRequest binds a symbol axis to a register.
type BindRequest struct {
	Register int    `json:"register"`
	North    string `json:"north"`
	South    string `json:"south"`
}

// ExpandRequest grows a biome's register count.
type ExpandRequest struct {
	Additional int `json:"additional"`
}

// MeasureRequest measures a bound axis.
type MeasureRequest struct {
	North       string `json:"north"`
	South       string `json:"south"`
	Destructive bool   `json:"destructive"`
}

// GateRequest applies a unitary gate.
type GateRequest struct {
	Gate    string    `json:"gate"`
	Targets []int     `json:"targets"`
	Params  []float64 `json:"params,omitempty"`
}

// HandleList handles GET /api/biomes.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.service.List()})
}

// HandleCreate handles POST /api/biomes.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var def biome.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	snap, err := h.service.Create(def)
	if err != nil {
		// The only failure mode here is an invalid definition.
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": snap})
}

// HandleGet handles GET /api/biomes/{biomeID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetSnapshot(chi.URLParam(r, "biomeID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": snap})
}

// HandleRemove handles DELETE /api/biomes/{biomeID}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(chi.URLParam(r, "biomeID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePurity handles GET /api/biomes/{biomeID}/purity.
func (h *Handler) HandlePurity(w http.ResponseWriter, r *http.Request) {
	purity, err := h.service.Purity(chi.URLParam(r, "biomeID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]float64{"purity": purity}})
}

// HandlePopulation handles GET /api/biomes/{biomeID}/population/{register}.
func (h *Handler) HandlePopulation(w http.ResponseWriter, r *http.Request) {
	register, err := strconv.Atoi(chi.URLParam(r, "register"))
	if err != nil {
		http.Error(w, "Invalid register index", http.StatusBadRequest)
		return
	}
	population, err := h.service.Population(chi.URLParam(r, "biomeID"), register)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"register": register, "population": population},
	})
}

// HandleSupportsPair handles GET /api/biomes/{biomeID}/supports?north=&south=.
func (h *Handler) HandleSupportsPair(w http.ResponseWriter, r *http.Request) {
	north := r.URL.Query().Get("north")
	south := r.URL.Query().Get("south")
	supports, err := h.service.SupportsPair(chi.URLParam(r, "biomeID"), north, south)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]bool{"supports": supports}})
}

// HandleBind handles POST /api/biomes/{biomeID}/bind.
func (h *Handler) HandleBind(w http.ResponseWriter, r *http.Request) {
	var req BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.BindAxis(chi.URLParam(r, "biomeID"), req.Register, req.North, req.South); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnbind handles DELETE /api/biomes/{biomeID}/bind/{register}.
func (h *Handler) HandleUnbind(w http.ResponseWriter, r *http.Request) {
	register, err := strconv.Atoi(chi.URLParam(r, "register"))
	if err != nil {
		http.Error(w, "Invalid register index", http.StatusBadRequest)
		return
	}
	if err := h.service.UnbindAxis(chi.URLParam(r, "biomeID"), register); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExpand handles POST /api/biomes/{biomeID}/expand.
func (h *Handler) HandleExpand(w http.ResponseWriter, r *http.Request) {
	var req ExpandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	snap, err := h.service.Expand(r.Context(), chi.URLParam(r, "biomeID"), req.Additional)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": snap})
}

// HandleMeasure handles POST /api/biomes/{biomeID}/measure.
func (h *Handler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	var req MeasureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	outcome, err := h.service.Measure(r.Context(), chi.URLParam(r, "biomeID"), req.North, req.South, req.Destructive)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"outcome": outcome, "destructive": req.Destructive},
	})
}

// HandleGate handles POST /api/biomes/{biomeID}/gate.
func (h *Handler) HandleGate(w http.ResponseWriter, r *http.Request) {
	var req GateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.ApplyGate(chi.URLParam(r, "biomeID"), req.Gate, req.Targets, req.Params...); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents handles GET /api/biomes/{biomeID}/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		http.Error(w, "Event log not available", http.StatusNotFound)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	events, err := h.events.ListByBiome(r.Context(), chi.URLParam(r, "biomeID"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": events})
}

// HandleStream handles GET /api/biomes/stream: a websocket pushing one
// msgpack-encoded telemetry frame per biome per tick.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	frames, cancel := h.hub.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case frame, ok := <-frames:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageBinary, frame)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps engine errors to HTTP status codes. Recoverable contract
// violations come back 4xx; divergence is the only 5xx.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, biome.ErrBiomeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quantum.ErrOutOfRange),
		errors.Is(err, quantum.ErrInvalidExpansion),
		errors.Is(err, quantum.ErrInvalidStep):
		status = http.StatusBadRequest
	case errors.Is(err, quantum.ErrAlreadyBound):
		status = http.StatusConflict
	case errors.Is(err, quantum.ErrUnboundAxis),
		errors.Is(err, quantum.ErrMeasurementFailed):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	http.Error(w, err.Error(), status)
}
