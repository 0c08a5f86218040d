// Package handlers provides HTTP handlers for chain snapshot ingestion.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/chains"
)

// Handler handles chain snapshot HTTP requests
type Handler struct {
	repo *chains.SnapshotRepository
	log  zerolog.Logger
}

// NewHandler creates a new chains handler
func NewHandler(repo *chains.SnapshotRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "chains").Logger(),
	}
}

// snapshotRequest is the push payload from an external chain collector.
type snapshotRequest struct {
	AsOf       time.Time          `json:"as_of"`
	Underlying float64            `json:"underlying"`
	Legs       []chains.OptionLeg `json:"legs"`
}

// HandlePushSnapshot handles POST /api/chains/{symbol}/snapshot
func (h *Handler) HandlePushSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var request snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	snapshot := chains.ChainSnapshot{
		Symbol:     symbol,
		AsOf:       request.AsOf,
		Underlying: request.Underlying,
		Legs:       request.Legs,
	}

	saved, err := h.repo.Save(snapshot)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to save snapshot: "+err.Error())
		return
	}

	h.log.Info().
		Str("symbol", symbol).
		Int("legs", len(saved.Legs)).
		Msg("Chain snapshot pushed")

	h.writeJSON(w, http.StatusCreated, saved)
}

// HandleLatestSnapshot handles GET /api/chains/{symbol}/latest
func (h *Handler) HandleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	snapshot, err := h.repo.Latest(symbol)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load snapshot: "+err.Error())
		return
	}
	if snapshot == nil {
		h.writeError(w, http.StatusNotFound, "No snapshot for symbol "+symbol)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
