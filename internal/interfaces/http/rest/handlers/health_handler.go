package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"computor-backend/internal/storage/postgres"
)

// HealthHandler reports process liveness and store readiness.
type HealthHandler struct {
	store  *postgres.Store
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *postgres.Store, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Ready handles GET /ready. Readiness requires the relational store; the
// cache is best-effort and its unavailability never fails readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
