package service

import (
	"context"
	"time"

	"github.com/teeny-box/teenybox-server/internal/models"
)

// WriteInput carries the fields of a create or update body. Nil fields are
// left untouched.
type WriteInput struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Tags     any     `json:"tags"`
	Category *string `json:"category"`
	IsFixed  *string `json:"is_fixed"`

	// Body is the raw request body; each kind decodes its own extra fields
	// from it.
	Body []byte `json:"-"`
}

// ListInput holds the paging, sorting and filter parameters of the read
// endpoints. A non-positive Limit means no limit.
type ListInput struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string

	Category string
	IsFixed  string

	SearchType string
	Query      string
}

// Page is one page of items plus the number of matches across all pages.
type Page[P any] struct {
	Items      []P
	TotalCount int64
}

// CommentCleaner removes the comments of a deleted item. Implementations
// are fire-and-forget: failures are handled internally and never reach the
// caller.
type CommentCleaner interface {
	DeleteCommentsByItemID(ctx context.Context, kind models.Kind, itemID string)
}

// Sort keys accepted in sortBy, mapped to storage columns.
var sortColumns = map[string]string{
	"time": "created_at",
	"view": "views",
	"like": "likes",
}

func sortColumn(key string) string {
	if col, ok := sortColumns[key]; ok {
		return col
	}
	return sortColumns["time"]
}

func dedupeNumbers(numbers []int64) []int64 {
	seen := make(map[int64]struct{}, len(numbers))
	out := make([]int64, 0, len(numbers))
	for _, n := range numbers {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func utcNow() time.Time {
	return time.Now().UTC()
}
