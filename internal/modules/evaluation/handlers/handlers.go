// Package handlers provides HTTP handlers for candidate evaluation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/candidates"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/chains"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/evaluation"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/policy"
)

// maxBatchCandidates bounds one evaluation request to prevent resource
// exhaustion from a pathological chain snapshot.
const maxBatchCandidates = 10000

var errPolicyNotFound = errors.New("policy not found")

// Handler handles evaluation HTTP requests
type Handler struct {
	service   *evaluation.Service
	policies  *policy.Repository
	snapshots *chains.SnapshotRepository
	generator *candidates.Generator
	repo      *evaluation.Repository
	log       zerolog.Logger
}

// NewHandler creates a new evaluation handler
func NewHandler(
	service *evaluation.Service,
	policies *policy.Repository,
	snapshots *chains.SnapshotRepository,
	generator *candidates.Generator,
	repo *evaluation.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:   service,
		policies:  policies,
		snapshots: snapshots,
		generator: generator,
		repo:      repo,
		log:       log.With().Str("handler", "evaluation").Logger(),
	}
}

// batchRequest runs the full pipeline: latest snapshot -> candidate
// generation -> evaluation of every candidate against the policy.
type batchRequest struct {
	Symbol       string              `json:"symbol"`
	PolicyID     int64               `json:"policy_id"`
	AsOf         *time.Time          `json:"as_of,omitempty"`
	Filters      candidates.Filters  `json:"filters"`
	Observations map[string]*float64 `json:"observations"`
	Options      evaluation.Options  `json:"options"`
}

// HandleEvaluateBatch handles POST /api/evaluations
func (h *Handler) HandleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var request batchRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if request.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	pol, err := h.loadPolicy(w, request.PolicyID)
	if err != nil {
		return
	}

	snapshot, err := h.snapshots.Latest(request.Symbol)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load snapshot: "+err.Error())
		return
	}
	if snapshot == nil {
		h.writeError(w, http.StatusNotFound, "No chain snapshot for symbol "+request.Symbol)
		return
	}

	asOf := snapshot.AsOf
	if request.AsOf != nil {
		asOf = *request.AsOf
	}

	cands, err := h.generator.Generate(request.Symbol, snapshot.Legs, snapshot.Underlying, asOf, request.Filters)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Generation failed: "+err.Error())
		return
	}

	if len(cands) > maxBatchCandidates {
		h.writeError(w, http.StatusBadRequest, "Too many candidates (max 10000); tighten the filters")
		return
	}

	start := time.Now()
	result, err := h.service.EvaluateBatch(cands, *pol, toObservationSet(request.Observations), request.Options)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Evaluation failed: "+err.Error())
		return
	}

	h.log.Info().
		Str("symbol", request.Symbol).
		Int("candidates", len(cands)).
		Dur("elapsed", time.Since(start)).
		Msg("Evaluation request completed")

	h.writeJSON(w, http.StatusOK, result)
}

// candidateRequest evaluates one explicitly spelled-out spread.
type candidateRequest struct {
	Symbol       string              `json:"symbol"`
	PolicyID     int64               `json:"policy_id"`
	Underlying   float64             `json:"underlying"`
	Short        chains.OptionLeg    `json:"short"`
	Long         chains.OptionLeg    `json:"long"`
	AsOf         *time.Time          `json:"as_of,omitempty"`
	Observations map[string]*float64 `json:"observations"`
	Options      evaluation.Options  `json:"options"`
}

// HandleEvaluateCandidate handles POST /api/evaluations/candidate
func (h *Handler) HandleEvaluateCandidate(w http.ResponseWriter, r *http.Request) {
	var request candidateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if request.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	pol, err := h.loadPolicy(w, request.PolicyID)
	if err != nil {
		return
	}

	asOf := time.Now().UTC()
	if request.AsOf != nil {
		asOf = *request.AsOf
	}

	candidate, err := candidates.NewCandidateSpread(request.Symbol, request.Underlying, request.Short, request.Long, asOf)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid candidate: "+err.Error())
		return
	}

	result, err := h.service.EvaluateCandidate(candidate, *pol, toObservationSet(request.Observations), request.Options)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Evaluation failed: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleList handles GET /api/evaluations
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	results, err := h.repo.List(symbol, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list evaluations: "+err.Error())
		return
	}
	if results == nil {
		results = []evaluation.ScoreResult{}
	}

	h.writeJSON(w, http.StatusOK, results)
}

// HandleGet handles GET /api/evaluations/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.repo.Get(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load evaluation: "+err.Error())
		return
	}
	if result == nil {
		h.writeError(w, http.StatusNotFound, "Evaluation not found")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// loadPolicy fetches the policy or writes the appropriate error response.
func (h *Handler) loadPolicy(w http.ResponseWriter, id int64) (*policy.Policy, error) {
	pol, err := h.policies.Get(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load policy: "+err.Error())
		return nil, err
	}
	if pol == nil {
		h.writeError(w, http.StatusNotFound, "Policy not found")
		return nil, errPolicyNotFound
	}
	return pol, nil
}

// toObservationSet converts the wire format (explicit nulls allowed) into
// the engine's optional observation type.
func toObservationSet(raw map[string]*float64) evaluation.ObservationSet {
	obs := make(evaluation.ObservationSet, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		obs[key] = &evaluation.FactorObservation{Value: *value}
	}
	return obs
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
