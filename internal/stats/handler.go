package stats

import (
	"log/slog"
	"net/http"

	"github.com/broshop/broshop/internal/platform/httpx"
)

// Handler serves the aggregate statistics endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Compute(r.Context())
	if err != nil {
		h.logger.Error("compute stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
