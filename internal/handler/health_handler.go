package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: logger,
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorContext(r.Context(), "health check failed: store unreachable", slog.String("error", err.Error()))
		respondWithError(w, http.StatusServiceUnavailable, "Store connection failed")
		return
	}

	data := map[string]string{
		"status":  "ok",
		"message": "Service is healthy and the request log store is reachable",
	}
	respondWithJson(w, http.StatusOK, data)
}
