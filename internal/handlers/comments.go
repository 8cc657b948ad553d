package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/reelnest/backend/internal/auth"
	"github.com/reelnest/backend/internal/engagement"
	"github.com/reelnest/backend/internal/logging"
	"github.com/reelnest/backend/internal/metrics"
	"github.com/reelnest/backend/internal/models"
	"github.com/reelnest/backend/internal/repositories"
)

// CommentHandler serves comment add, edit and delete endpoints.
type CommentHandler struct {
	Users   UserStore
	Reels   ReelStore
	NowFunc func() time.Time
}

type commentRequest struct {
	Text string `json:"text"`
}

const commentNotFound = "Comment not found or unauthorized"

// Add handles POST /api/reels/{id}/comment.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, text, ok := h.parse(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		respondError(ctx, w, http.StatusNotFound, "Reel not found")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User not found")
			return
		}
		respondInternal(ctx, w, "comment user lookup failed", err)
		return
	}

	var comment models.Comment
	_, err = h.Reels.Mutate(ctx, id, func(reel *models.Reel) error {
		var err error
		comment, err = engagement.AddComment(reel, user, text, h.now())
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "Reel not found")
		case errors.Is(err, engagement.ErrEmptyComment):
			respondError(ctx, w, http.StatusBadRequest, "Comment text is required")
		default:
			respondInternal(ctx, w, "add comment", err)
		}
		return
	}

	metrics.RecordComment("add")
	respondJSON(ctx, w, http.StatusOK, comment)
}

// Edit handles PUT /api/reels/{id}/comment/{commentId}.
func (h CommentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, text, ok := h.parse(w, r)
	if !ok {
		return
	}

	reelID, commentID, ok := commentPath(r)
	if !ok {
		respondError(ctx, w, http.StatusNotFound, commentNotFound)
		return
	}

	_, err := h.Reels.Mutate(ctx, reelID, func(reel *models.Reel) error {
		_, err := engagement.EditComment(reel, commentID, userID, text, h.now())
		return err
	})
	if err != nil {
		h.respondMutationError(w, r, "edit comment", err)
		return
	}

	metrics.RecordComment("edit")
	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "Comment updated successfully"})
}

// Delete handles DELETE /api/reels/{id}/comment/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "No token provided")
		return
	}

	reelID, commentID, ok := commentPath(r)
	if !ok {
		respondError(ctx, w, http.StatusNotFound, commentNotFound)
		return
	}

	_, err := h.Reels.Mutate(ctx, reelID, func(reel *models.Reel) error {
		return engagement.DeleteComment(reel, commentID, userID)
	})
	if err != nil {
		h.respondMutationError(w, r, "delete comment", err)
		return
	}

	metrics.RecordComment("delete")
	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "Comment deleted successfully"})
}

// parse resolves the caller and the trimmed comment text, responding on failure.
func (h CommentHandler) parse(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "No token provided")
		return "", "", false
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid comment payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return "", "", false
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(ctx, w, http.StatusBadRequest, "Comment text is required")
		return "", "", false
	}
	return userID, text, true
}

func (h CommentHandler) respondMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, engagement.ErrCommentNotFound):
		respondError(ctx, w, http.StatusNotFound, commentNotFound)
	case errors.Is(err, engagement.ErrEmptyComment):
		respondError(ctx, w, http.StatusBadRequest, "Comment text is required")
	default:
		respondInternal(ctx, w, op, err)
	}
}

func commentPath(r *http.Request) (string, string, bool) {
	reelID, ok := pathID(r, "id")
	if !ok {
		return "", "", false
	}
	commentID, ok := pathID(r, "commentId")
	if !ok {
		return "", "", false
	}
	return reelID, commentID, true
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}
