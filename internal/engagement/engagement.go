// Package engagement applies like, dislike and comment mutations to a reel.
//
// Functions here only mutate the in-memory document; callers are expected to
// run them inside a locked read-modify-write so concurrent toggles serialize.
package engagement

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelnest/backend/internal/models"
)

var (
	// ErrCommentNotFound covers both a missing comment and one written by someone else.
	ErrCommentNotFound = errors.New("comment not found or unauthorized")
	// ErrEmptyComment indicates the comment text was blank after trimming.
	ErrEmptyComment = errors.New("comment text is required")
)

// Result is the engagement state of a reel as seen by one user.
type Result struct {
	IsLiked    bool `json:"isLiked"`
	IsDisliked bool `json:"isDisliked"`
	Likes      int  `json:"likes"`
	Dislikes   int  `json:"dislikes"`
}

// StateOf reports userID's reaction to reel along with the reaction counts.
func StateOf(reel models.Reel, userID string) Result {
	return Result{
		IsLiked:    slices.Contains(reel.Likes, userID),
		IsDisliked: slices.Contains(reel.Dislikes, userID),
		Likes:      len(reel.Likes),
		Dislikes:   len(reel.Dislikes),
	}
}

// Like toggles userID's like. A second like returns the user to neutral; liking
// a disliked reel moves the user out of the dislikes.
func Like(reel *models.Reel, userID string) Result {
	reel.Likes, reel.Dislikes = toggle(reel.Likes, reel.Dislikes, userID)
	return StateOf(*reel, userID)
}

// Dislike is the mirror of Like.
func Dislike(reel *models.Reel, userID string) Result {
	reel.Dislikes, reel.Likes = toggle(reel.Dislikes, reel.Likes, userID)
	return StateOf(*reel, userID)
}

func toggle(target, opposite []string, userID string) ([]string, []string) {
	opposite = without(opposite, userID)
	if slices.Contains(target, userID) {
		return without(target, userID), opposite
	}
	return append(without(target, userID), userID), opposite
}

func without(ids []string, userID string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// AddComment appends a comment by author to reel and returns it.
func AddComment(reel *models.Reel, author models.User, text string, now time.Time) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, ErrEmptyComment
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		UserID:    author.ID,
		Username:  author.Username,
		Text:      text,
		CreatedAt: now.UTC(),
	}
	reel.Comments = append(reel.Comments, comment)
	return comment, nil
}

// EditComment replaces the text of commentID when userID wrote it.
func EditComment(reel *models.Reel, commentID, userID, text string, now time.Time) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, ErrEmptyComment
	}

	idx := indexOf(reel.Comments, commentID, userID)
	if idx < 0 {
		return models.Comment{}, ErrCommentNotFound
	}

	edited := now.UTC()
	reel.Comments[idx].Text = text
	reel.Comments[idx].UpdatedAt = &edited
	return reel.Comments[idx], nil
}

// DeleteComment removes commentID when userID wrote it.
func DeleteComment(reel *models.Reel, commentID, userID string) error {
	idx := indexOf(reel.Comments, commentID, userID)
	if idx < 0 {
		return ErrCommentNotFound
	}
	reel.Comments = slices.Delete(reel.Comments, idx, idx+1)
	return nil
}

func indexOf(comments []models.Comment, commentID, userID string) int {
	return slices.IndexFunc(comments, func(c models.Comment) bool {
		return c.ID == commentID && c.UserID == userID
	})
}
