package models

import "time"

// User represents an account within the ReelNest platform.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Reel is a short uploaded video along with its engagement state.
type Reel struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	VideoID     string    `json:"videoId"`
	Likes       []string  `json:"likes"`
	Dislikes    []string  `json:"dislikes"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is a single remark attached to a reel.
type Comment struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Categories enumerates the labels a reel may carry.
var Categories = []string{"Comedy", "Dance", "Travel", "Food", "Fitness", "Fashion"}

// IsValidCategory reports whether category is one of Categories. Matching is case sensitive.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// ReelFilter narrows a reel listing.
type ReelFilter struct {
	Category string
	UserID   string
	Limit    int
}

const (
	// DefaultReelLimit caps listings when no limit is requested.
	DefaultReelLimit = 50
	// MaxReelLimit is the largest page the listing endpoint will return.
	MaxReelLimit = 100
)
