package media

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/broshop/broshop/internal/platform/httpx"
)

const maxUploadBytes = 20 << 20

// Handler accepts multipart uploads and serves stored assets.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// Upload stores the "file" part of a multipart request and returns its URL.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	url, err := h.store.Save(filepath.Ext(header.Filename), file)
	if err != nil {
		h.logger.Error("store upload", slog.Any("error", err), slog.String("filename", header.Filename))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

// FileServer serves the media directory.
func (h *Handler) FileServer() http.Handler {
	return http.FileServer(http.Dir(h.store.Dir()))
}
