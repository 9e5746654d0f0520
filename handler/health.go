package handlers

import (
	"context"
	"net/http"
	"time"

	"medirecords/pkg/apierror"
	"medirecords/pkg/logger"
	"medirecords/store"
)

type HealthHandler struct {
	Gateway *store.Gateway
	Timeout time.Duration
}

func NewHealthHandler(gw *store.Gateway) *HealthHandler {
	return &HealthHandler{Gateway: gw, Timeout: 2 * time.Second}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Gateway.Ping(ctx); err != nil {
		logger.Sugar.Warnf("Health check failed: %v", err)
		apierror.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	apierror.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
