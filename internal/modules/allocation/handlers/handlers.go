// Package handlers provides HTTP handlers for allocation editing and preview.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/distributor/internal/metrics"
	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/pkg/percent"
	"github.com/rs/zerolog"
)

// Handler handles allocation HTTP requests. Every endpoint is a pure
// computation over the request body; nothing is persisted here.
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("handler", "allocation").Logger(),
	}
}

// GroupsRequest carries a hierarchical allocation. TotalAmount is optional;
// when omitted for amount-based groups the sum of wallet amounts is used.
type GroupsRequest struct {
	Groups      []allocation.WalletGroup     `json:"groups"`
	Recipients  []allocation.RecipientWallet `json:"recipients,omitempty"`
	TotalAmount *float64                     `json:"totalAmount,omitempty"`
}

// groups resolves the request into wallet groups, lifting the flat-only
// variant when groups are absent
func (req GroupsRequest) groups() []allocation.WalletGroup {
	if req.Groups == nil && req.Recipients != nil {
		return allocation.GroupsFromRecipients(req.Recipients)
	}
	return req.Groups
}

func (req GroupsRequest) total(groups []allocation.WalletGroup) float64 {
	if req.TotalAmount != nil {
		return *req.TotalAmount
	}
	return allocation.TotalWalletAmount(groups)
}

// FlattenResponse is the flat recipient preview
type FlattenResponse struct {
	Recipients []allocation.FlatRecipient `json:"recipients"`
	Total      float64                    `json:"total"`
	Complete   bool                       `json:"complete"`
}

// ValidateResponse lists every violation found
type ValidateResponse struct {
	Valid      bool                       `json:"valid"`
	Violations []string                   `json:"violations"`
	Recipients []allocation.FlatRecipient `json:"recipients"`
}

// DraftRequest applies one action to a draft
type DraftRequest struct {
	Groups []allocation.WalletGroup `json:"groups"`
	Action allocation.Action        `json:"action"`
}

// HandleFlatten expands wallet groups into flat recipients
func (h *Handler) HandleFlatten(w http.ResponseWriter, r *http.Request) {
	var req GroupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	groups := req.groups()
	flat, err := allocation.Flatten(groups, req.total(groups))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.FlattenCalls.Inc()
	metrics.FlatRecipients.Observe(float64(len(flat)))

	total := percent.Sum(allocation.FlatShares(flat))
	h.writeJSON(w, http.StatusOK, FlattenResponse{
		Recipients: flat,
		Total:      percent.Round(total, 6),
		Complete:   percent.IsHundred(total),
	})
}

// HandleValidate flattens and validates an allocation
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req GroupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	groups := req.groups()
	if groups == nil {
		groups = []allocation.WalletGroup{}
	}
	total := req.total(groups)

	flat, err := allocation.Flatten(groups, total)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var violations []string
	if req.Groups == nil && req.Recipients != nil {
		violations = allocation.ValidateRecipients(req.Recipients, total)
	} else {
		violations = allocation.Validate(groups, flat, total)
	}
	if len(violations) > 0 {
		metrics.ValidationFailures.Inc()
		h.log.Debug().Strs("violations", violations).Msg("Allocation failed validation")
	}

	h.writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
		Recipients: flat,
	})
}

// HandleRegroup rebuilds wallet groups from a flat recipient list
func (h *Handler) HandleRegroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipients []allocation.FlatRecipient `json:"recipients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups": allocation.GroupFromFlat(req.Recipients),
	})
}

// HandleNewDraft returns the initial editing state
func (h *Handler) HandleNewDraft(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups": allocation.NewDraft(),
	})
}

// HandleDraftAction applies a single edit to a draft and returns the new state
func (h *Handler) HandleDraftAction(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	groups, err := allocation.Reduce(req.Groups, req.Action)
	if err != nil {
		if errors.Is(err, allocation.ErrInvalidAction) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  err.Error(),
				"groups": groups,
			})
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
	})
}

// HandleGetPresets returns the strategy preset catalogue
func (h *Handler) HandleGetPresets(w http.ResponseWriter, r *http.Request) {
	presets := make(map[string][]allocation.StrategyAllocation, len(allocation.Presets))
	for _, name := range allocation.PresetNames() {
		strategies, err := allocation.ApplyPreset(name)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		presets[name] = strategies
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"default": allocation.DefaultPreset,
		"presets": presets,
	})
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
