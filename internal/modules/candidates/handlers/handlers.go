// Package handlers provides HTTP handlers for candidate generation.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/candidates"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/chains"
)

// Handler handles candidate generation HTTP requests
type Handler struct {
	generator *candidates.Generator
	snapshots *chains.SnapshotRepository
	log       zerolog.Logger
}

// NewHandler creates a new candidates handler
func NewHandler(generator *candidates.Generator, snapshots *chains.SnapshotRepository, log zerolog.Logger) *Handler {
	return &Handler{
		generator: generator,
		snapshots: snapshots,
		log:       log.With().Str("handler", "candidates").Logger(),
	}
}

// generateRequest drives one generation run. When Legs is empty the latest
// stored snapshot for the symbol is used.
type generateRequest struct {
	Symbol     string             `json:"symbol"`
	AsOf       *time.Time         `json:"as_of,omitempty"`
	Underlying float64            `json:"underlying,omitempty"`
	Legs       []chains.OptionLeg `json:"legs,omitempty"`
	Filters    candidates.Filters `json:"filters"`
}

type generateResponse struct {
	Symbol     string                       `json:"symbol"`
	AsOf       time.Time                    `json:"as_of"`
	Candidates []candidates.CandidateSpread `json:"candidates"`
}

// HandleGenerate handles POST /api/candidates/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var request generateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if request.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	legs := request.Legs
	underlying := request.Underlying
	asOf := time.Now().UTC()
	if request.AsOf != nil {
		asOf = *request.AsOf
	}

	if len(legs) == 0 {
		snapshot, err := h.snapshots.Latest(request.Symbol)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "Failed to load snapshot: "+err.Error())
			return
		}
		if snapshot == nil {
			h.writeError(w, http.StatusNotFound, "No chain snapshot for symbol "+request.Symbol)
			return
		}
		legs = snapshot.Legs
		underlying = snapshot.Underlying
		if request.AsOf == nil {
			asOf = snapshot.AsOf
		}
	}

	result, err := h.generator.Generate(request.Symbol, legs, underlying, asOf, request.Filters)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Generation failed: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, generateResponse{
		Symbol:     request.Symbol,
		AsOf:       asOf,
		Candidates: result,
	})
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
