package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"savor-core-square-layer/internal/application"
	"savor-core-square-layer/internal/domain"

	"github.com/rs/zerolog"
)

// syncService is the slice of application.SyncService the handlers consume
type syncService interface {
	Trigger(ctx context.Context, merchantID string, opts application.SyncOptions) (string, error)
	Status(ctx context.Context, merchantID string) (*domain.SyncState, error)
	Disconnect(ctx context.Context, merchantID string) error
}

// SyncHandler exposes the sync engine over REST
type SyncHandler struct {
	syncs  syncService
	logger zerolog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncs syncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{syncs: syncs, logger: logger}
}

type triggerResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
}

type statusResponse struct {
	Success bool              `json:"success"`
	Sync    *domain.SyncState `json:"sync"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// TriggerSync starts a sync for the merchant in context. The sync runs in
// the background; the response only acknowledges that it started.
// Query parameters: full=true forces a full-window sync, days overrides the
// lookback window.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	merchantID := domain.MerchantIDFromContext(ctx)

	opts := application.SyncOptions{
		Full: r.URL.Query().Get("full") == "true",
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		opts.Days = days
	}

	taskID, err := h.syncs.Trigger(ctx, merchantID, opts)
	switch {
	case errors.Is(err, domain.ErrIntegrationNotFound):
		writeError(w, http.StatusNotFound, "no Square integration for this merchant")
		return
	case errors.Is(err, domain.ErrSyncAlreadyRunning):
		writeError(w, http.StatusConflict, "a sync is already running for this merchant")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("merchant_id", merchantID).Msg("Failed to trigger sync")
		writeError(w, http.StatusInternalServerError, "failed to trigger sync")
		return
	}

	writeJSON(w, http.StatusAccepted, triggerResponse{
		Success: true,
		TaskID:  taskID,
		Status:  "PENDING",
	})
}

// SyncStatus returns the active sync state, or the last finished run. Sync
// is null when the merchant has never synced.
func (h *SyncHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	merchantID := domain.MerchantIDFromContext(ctx)

	state, err := h.syncs.Status(ctx, merchantID)
	if errors.Is(err, domain.ErrIntegrationNotFound) {
		writeError(w, http.StatusNotFound, "no Square integration for this merchant")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("merchant_id", merchantID).Msg("Failed to read sync status")
		writeError(w, http.StatusInternalServerError, "failed to read sync status")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, Sync: state})
}

// Disconnect removes the merchant's Square integration
func (h *SyncHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	merchantID := domain.MerchantIDFromContext(ctx)

	err := h.syncs.Disconnect(ctx, merchantID)
	if errors.Is(err, domain.ErrIntegrationNotFound) {
		writeError(w, http.StatusNotFound, "no Square integration for this merchant")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("merchant_id", merchantID).Msg("Failed to disconnect integration")
		writeError(w, http.StatusInternalServerError, "failed to disconnect integration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}
