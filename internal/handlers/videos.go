package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reelnest/backend/internal/logging"
	"github.com/reelnest/backend/internal/storage"
)

// VideoHandler streams stored video bytes.
type VideoHandler struct {
	Blobs storage.BlobStore
}

// Stream handles GET /api/videos/{id}.
func (h VideoHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(ctx, w, http.StatusNotFound, "Video not found")
		return
	}

	body, info, err := h.Blobs.Open(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Error("open video", "videoId", id, "error", err)
		}
		respondError(ctx, w, http.StatusNotFound, "Video not found")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "video/mp4")
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		logger.Warn("stream video interrupted", "videoId", id, "error", err)
	}
}
