// Package handlers provides HTTP handlers for building and submitting distributions.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles distribution HTTP requests
type Handler struct {
	service *distribution.Service
	log     zerolog.Logger
}

// NewHandler creates a new distribution handler
func NewHandler(service *distribution.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "distribution").Logger(),
	}
}

// RegisterRoutes registers all distribution routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/distribution", func(r chi.Router) {
		r.Post("/params", h.HandleBuildParams)
		r.Post("/execute", h.HandleExecute)
		r.Get("/runs", h.HandleGetRuns)
	})
}

// HandleBuildParams validates an allocation and returns the contract arguments
// without submitting them
func (h *Handler) HandleBuildParams(w http.ResponseWriter, r *http.Request) {
	var req distribution.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	prepared, err := h.service.Prepare(req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, prepared)
}

// HandleExecute validates and submits a distribution
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req distribution.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	run, err := h.service.Execute(r.Context(), req)
	if err != nil {
		if run != nil {
			h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error": err.Error(),
				"run":   run,
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, run)
}

// HandleGetRuns returns submission history, newest first
func (h *Handler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := h.service.ListRuns(r.Context(), r.URL.Query().Get("config_id"), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var ve *distribution.ValidationError
	switch {
	case errors.As(err, &ve):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "allocation is invalid",
			"violations": ve.Violations,
		})
	case errors.Is(err, distribution.ErrNoSubmitter):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error().Err(err).Msg("Distribution request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
