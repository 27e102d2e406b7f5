package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
	"github.com/suar-net/suar-probe/internal/service"
)

type AnalyticsHandler struct {
	service service.IAnalyticsService
	logger  *slog.Logger
}

func NewAnalyticsHandler(s service.IAnalyticsService, l *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: s,
		logger:  l,
	}
}

func (h *AnalyticsHandler) ForAPI(w http.ResponseWriter, r *http.Request) {
	tr, ok := parseRange(w, r)
	if !ok {
		return
	}
	summary, err := h.service.ForAPI(r.Context(), chi.URLParam(r, "apiID"), tr)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJson(w, http.StatusOK, summary)
}

func (h *AnalyticsHandler) ForSubscription(w http.ResponseWriter, r *http.Request) {
	tr, ok := parseRange(w, r)
	if !ok {
		return
	}
	summary, err := h.service.ForSubscription(r.Context(), chi.URLParam(r, "subscriptionID"), tr)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJson(w, http.StatusOK, summary)
}

func (h *AnalyticsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	tr, ok := parseRange(w, r)
	if !ok {
		return
	}
	records, err := h.service.ListLogs(r.Context(), chi.URLParam(r, "subscriptionID"), tr)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJson(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// parseRange reads ?range=, defaulting to last7d.
func parseRange(w http.ResponseWriter, r *http.Request) (model.TimeRange, bool) {
	raw := r.URL.Query().Get("range")
	if raw == "" {
		return model.TimeRangeLast7d, true
	}
	tr, err := model.ParseTimeRange(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Field 'range' must be one of: last24h last7d last30d allTime")
		return "", false
	}
	return tr, true
}

func (h *AnalyticsHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Subscription not found")
	default:
		h.logger.ErrorContext(r.Context(), "analytics query failed", slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
