package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reelnest/backend/internal/auth"
	"github.com/reelnest/backend/internal/logging"
	"github.com/reelnest/backend/internal/metrics"
	"github.com/reelnest/backend/internal/models"
	"github.com/reelnest/backend/internal/repositories"
	"github.com/reelnest/backend/internal/storage"
)

// DefaultMaxUploadBytes bounds an upload request body when none is configured.
const DefaultMaxUploadBytes = 50 << 20

const multipartMemory = 8 << 20

// ReelHandler serves reel listing, upload, edit and delete endpoints.
type ReelHandler struct {
	Users          UserStore
	Reels          ReelStore
	Blobs          storage.BlobStore
	Reaper         VideoReaper
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type updateReelRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// List handles GET /api/reels.
func (h ReelHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := models.ReelFilter{
		Category: strings.TrimSpace(query.Get("category")),
		UserID:   strings.TrimSpace(query.Get("userId")),
		Limit:    parseLimit(query.Get("limit")),
	}
	if strings.EqualFold(filter.Category, "all") {
		filter.Category = ""
	}

	reels, err := h.Reels.List(ctx, filter)
	if err != nil {
		respondInternal(ctx, w, "list reels", err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, reels)
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return models.DefaultReelLimit
	}
	if limit > models.MaxReelLimit {
		return models.MaxReelLimit
	}
	return limit
}

// Get handles GET /api/reels/{id}.
func (h ReelHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r, "id")
	if !ok {
		respondError(ctx, w, http.StatusNotFound, "Reel not found")
		return
	}

	reel, err := h.Reels.Find(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Reel not found")
			return
		}
		respondInternal(ctx, w, "load reel", err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, reel)
}

// Upload handles POST /api/reels/upload. The video bytes are stored before the
// reel row is written; a failed insert removes the stored blob again.
func (h ReelHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "reels.upload")
	var spanErr error
	defer func() { span.End(spanErr) }()
	logger := logging.FromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "No token provided")
		return
	}

	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		metrics.RecordUpload("rejected", 0)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("upload exceeds size limit", "limit", maxBytes)
			respondError(ctx, w, http.StatusBadRequest, "File too large")
			return
		}
		logger.Warn("invalid upload form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Invalid form data")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Warn("remove multipart temp files", "error", err)
		}
	}()

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	category := strings.TrimSpace(r.FormValue("category"))

	file, header, err := r.FormFile("video")
	if err != nil || title == "" || category == "" {
		if file != nil {
			_ = file.Close()
		}
		metrics.RecordUpload("rejected", 0)
		respondError(ctx, w, http.StatusBadRequest, "Missing required fields")
		return
	}
	defer file.Close()

	if !models.IsValidCategory(category) {
		metrics.RecordUpload("rejected", 0)
		respondError(ctx, w, http.StatusBadRequest, "Invalid category")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User not found")
			return
		}
		spanErr = err
		respondInternal(ctx, w, "upload user lookup failed", err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	videoID := uuid.NewString()
	meta := storage.Metadata{OwnerID: user.ID, OriginalName: header.Filename, ContentType: contentType}
	if err := h.Blobs.Put(ctx, videoID, file, meta); err != nil {
		spanErr = err
		metrics.RecordUpload("failed", 0)
		respondInternal(ctx, w, "store uploaded video", err)
		return
	}

	now := h.now()
	reel := models.Reel{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Username:    user.Username,
		Title:       title,
		Description: description,
		Category:    category,
		VideoID:     videoID,
		Likes:       []string{},
		Dislikes:    []string{},
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Reels.Create(ctx, reel); err != nil {
		spanErr = err
		metrics.RecordUpload("failed", 0)
		if delErr := h.Blobs.Delete(ctx, videoID); delErr != nil {
			logger.Error("remove orphaned upload", "videoId", videoID, "error", delErr)
		}
		respondInternal(ctx, w, "create reel", err)
		return
	}

	metrics.RecordUpload("success", header.Size)
	logger.Info("reel uploaded", "reelId", reel.ID, "videoId", videoID, "size", header.Size)
	respondJSON(ctx, w, http.StatusOK, reel)
}

// Update handles PUT /api/reels/{id}. Only title, description and category may change.
func (h ReelHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "No token provided")
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		respondError(ctx, w, http.StatusNotFound, "Reel not found or unauthorized")
		return
	}

	var req updateReelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid reel update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == nil && req.Description == nil && req.Category == nil {
		respondError(ctx, w, http.StatusBadRequest, "No valid updates provided")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		respondError(ctx, w, http.StatusBadRequest, "Title cannot be empty")
		return
	}
	if req.Category != nil && !models.IsValidCategory(strings.TrimSpace(*req.Category)) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid category")
		return
	}

	reel, err := h.Reels.Mutate(ctx, id, func(reel *models.Reel) error {
		if reel.UserID != userID {
			return repositories.ErrNotFound
		}
		if req.Title != nil {
			reel.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			reel.Description = strings.TrimSpace(*req.Description)
		}
		if req.Category != nil {
			reel.Category = strings.TrimSpace(*req.Category)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Reel not found or unauthorized")
			return
		}
		respondInternal(ctx, w, "update reel", err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, reel)
}

// Delete handles DELETE /api/reels/{id} and schedules removal of the video blob.
func (h ReelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "No token provided")
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		respondError(ctx, w, http.StatusNotFound, "Reel not found or unauthorized")
		return
	}

	reel, err := h.Reels.Delete(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Reel not found or unauthorized")
			return
		}
		respondInternal(ctx, w, "delete reel", err)
		return
	}

	if h.Reaper != nil {
		if err := h.Reaper.Enqueue(ctx, reel.VideoID); err != nil {
			logger.Error("schedule video deletion", "videoId", reel.VideoID, "error", err)
		}
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "Reel deleted successfully"})
}

func (h ReelHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

// pathID returns the named chi URL parameter when it is a well-formed UUID.
func pathID(r *http.Request, name string) (string, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if _, err := uuid.Parse(raw); err != nil {
		return "", false
	}
	return raw, true
}
