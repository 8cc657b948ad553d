package handlers

import (
	"errors"
	"net/http"

	"github.com/reelnest/backend/internal/auth"
	"github.com/reelnest/backend/internal/engagement"
	"github.com/reelnest/backend/internal/metrics"
	"github.com/reelnest/backend/internal/models"
	"github.com/reelnest/backend/internal/repositories"
)

// EngagementHandler serves the like and dislike toggles.
type EngagementHandler struct {
	Reels ReelStore
}

// Like handles POST /api/reels/{id}/like.
func (h EngagementHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "like", engagement.Like)
}

// Dislike handles POST /api/reels/{id}/dislike.
func (h EngagementHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "dislike", engagement.Dislike)
}

func (h EngagementHandler) toggle(w http.ResponseWriter, r *http.Request, action string, apply func(*models.Reel, string) engagement.Result) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "No token provided")
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		respondError(ctx, w, http.StatusNotFound, "Reel not found")
		return
	}

	var result engagement.Result
	_, err := h.Reels.Mutate(ctx, id, func(reel *models.Reel) error {
		result = apply(reel, userID)
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Reel not found")
			return
		}
		respondInternal(ctx, w, action+" reel", err)
		return
	}

	metrics.RecordEngagement(action, result.IsLiked || result.IsDisliked)
	respondJSON(ctx, w, http.StatusOK, result)
}
