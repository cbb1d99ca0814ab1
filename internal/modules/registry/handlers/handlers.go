// Package handlers provides HTTP handlers for saved allocation configs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aristath/distributor/internal/modules/registry"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ScheduleSyncer keeps recurring jobs in line with saved configs
type ScheduleSyncer interface {
	SyncConfig(cfg registry.Config) error
	RemoveConfig(id string)
}

// ConfigResponse is a config header with its rebuilt wallet groups
type ConfigResponse struct {
	Config *registry.Config          `json:"config"`
	Groups []allocation.WalletGroup `json:"groups"`
}

// Handler handles registry HTTP requests
type Handler struct {
	client *registry.Client
	runner *registry.Runner
	sync   ScheduleSyncer
	log    zerolog.Logger
}

// NewHandler creates a new registry handler. sync may be nil when the
// scheduler is disabled.
func NewHandler(client *registry.Client, runner *registry.Runner, sync ScheduleSyncer, log zerolog.Logger) *Handler {
	return &Handler{
		client: client,
		runner: runner,
		sync:   sync,
		log:    log.With().Str("handler", "registry").Logger(),
	}
}

// RegisterRoutes registers all config routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/configs", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleSave)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/execute", h.HandleExecute)
	})
}

// HandleList returns saved configs, optionally filtered by ?owner=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	configs, err := h.client.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list configs")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"configs": configs,
		"count":   len(configs),
	})
}

// HandleSave creates or replaces a config
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req registry.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := h.client.Save(r.Context(), req)
	if err != nil {
		h.writeClientError(w, err)
		return
	}

	if h.sync != nil {
		if err := h.sync.SyncConfig(*cfg); err != nil {
			h.log.Warn().Err(err).Str("id", cfg.ID).Msg("Failed to sync schedule")
		}
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	h.writeJSON(w, status, cfg)
}

// HandleGet returns a config with its wallet groups
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	groups, cfg, err := h.client.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeClientError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ConfigResponse{Config: cfg, Groups: groups})
}

// HandleDelete removes a config and its schedule
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.client.Delete(r.Context(), id); err != nil {
		h.writeClientError(w, err)
		return
	}

	if h.sync != nil {
		h.sync.RemoveConfig(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleExecute distributes a saved config's full total once
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	run, err := h.runner.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if run != nil {
			h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error": err.Error(),
				"run":   run,
			})
			return
		}
		h.writeClientError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) writeClientError(w http.ResponseWriter, err error) {
	var ve *distribution.ValidationError
	switch {
	case registry.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, "Config not found")
	case errors.As(err, &ve):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "allocation is invalid",
			"violations": ve.Violations,
		})
	case errors.Is(err, distribution.ErrNoSubmitter):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error().Err(err).Msg("Registry request failed")
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
