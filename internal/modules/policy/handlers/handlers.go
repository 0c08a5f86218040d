// Package handlers provides HTTP handlers for policy configuration.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/policy"
)

// Handler handles policy HTTP requests
type Handler struct {
	repo *policy.Repository
	log  zerolog.Logger
}

// NewHandler creates a new policy handler
func NewHandler(repo *policy.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "policy").Logger(),
	}
}

// HandleList handles GET /api/policies
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	policies, err := h.repo.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list policies: "+err.Error())
		return
	}
	if policies == nil {
		policies = []policy.Policy{}
	}
	h.writeJSON(w, http.StatusOK, policies)
}

// HandleGet handles GET /api/policies/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Get(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load policy: "+err.Error())
		return
	}
	if p == nil {
		h.writeError(w, http.StatusNotFound, "Policy not found")
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleCreate handles POST /api/policies
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p policy.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.repo.Create(p)
	if err != nil {
		h.writeError(w, statusForPolicyError(err), "Failed to create policy: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /api/policies/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var p policy.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p.ID = id

	updated, err := h.repo.Update(p)
	if err != nil {
		h.writeError(w, statusForPolicyError(err), "Failed to update policy: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /api/policies/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(id); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to delete policy: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid policy id")
		return 0, false
	}
	return id, true
}

// statusForPolicyError maps validation failures to 400 and everything else
// to 500.
func statusForPolicyError(err error) int {
	var validationErr *policy.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
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
