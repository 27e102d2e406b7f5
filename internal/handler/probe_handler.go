package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/service"
)

const maxProbeRequestBytes = 1 << 20

// ProbeHandler executes one described request and returns its Outcome.
// An unreachable target is still a 200: the failure lives in the Outcome.
type ProbeHandler struct {
	service service.IProbeService
	logger  *slog.Logger
}

func NewProbeHandler(s service.IProbeService, l *slog.Logger) *ProbeHandler {
	return &ProbeHandler{
		service: s,
		logger:  l,
	}
}

func (h *ProbeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Invalid request method")
		return
	}

	var dto model.DTOExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProbeRequestBytes)).Decode(&dto); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := validate.Struct(&dto); err != nil {
		respondWithError(w, http.StatusBadRequest, ValidationError(err))
		return
	}

	resp, err := h.service.ProcessRequest(r.Context(), &dto)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "probe failed", slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, "An internal error occurred")
		return
	}

	respondWithJson(w, http.StatusOK, resp)
}
