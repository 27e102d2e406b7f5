package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/service"
)

type SubscriptionHandler struct {
	service service.ISubscriptionService
	logger  *slog.Logger
}

func NewSubscriptionHandler(s service.ISubscriptionService, l *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: s,
		logger:  l,
	}
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.DTOCreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, ValidationError(err))
		return
	}

	sub, err := h.service.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to create subscription", slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, "Failed to create subscription")
		return
	}

	respondWithJson(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) ListByAPI(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListByAPI(r.Context(), chi.URLParam(r, "apiID"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list subscriptions", slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, "Failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	respondWithJson(w, http.StatusOK, subs)
}
