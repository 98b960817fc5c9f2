// Package repository provides data access for content items, users and
// comments over PostgreSQL (gorm) and MongoDB.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/teeny-box/teenybox-server/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// Search fields understood by List.
const (
	SearchTitle     = "title"
	SearchTag       = "tag"
	SearchPlayTitle = "play_title"
)

// ListQuery selects alive items. Zero-valued filters are ignored and a
// non-positive Limit means no limit.
type ListQuery struct {
	UserID   string
	Category string
	IsFixed  string

	// SearchField and Pattern narrow by a case-insensitive regular
	// expression. Pattern must already be escaped by the caller.
	SearchField string
	Pattern     string

	// SortField is a column name; ties break on the sequence number.
	SortField string
	Ascending bool

	Skip  int
	Limit int
}

// ItemRepository stores one content kind. Reads by number include
// soft-deleted rows; List and every mutation only see alive rows.
type ItemRepository[P any] interface {
	// Create assigns the id and the next sequence number, then inserts item.
	Create(ctx context.Context, item P) error
	FindByNumber(ctx context.Context, number int64) (P, error)
	FindByNumbers(ctx context.Context, numbers []int64) ([]P, error)
	List(ctx context.Context, q ListQuery) ([]P, int64, error)
	// UpdateFields writes cols to an alive item.
	UpdateFields(ctx context.Context, number int64, cols map[string]any) error
	IncrementViews(ctx context.Context, number int64) error
	// AddLike appends userID to the liked set of an alive item that does not
	// contain it yet and recomputes likes. It reports whether a row changed.
	AddLike(ctx context.Context, number int64, userID string) (bool, error)
	// RemoveLike is the inverse of AddLike.
	RemoveLike(ctx context.Context, number int64, userID string) (bool, error)
	SoftDelete(ctx context.Context, number int64, at time.Time) (bool, error)
	SoftDeleteMany(ctx context.Context, numbers []int64, at time.Time) (int64, error)
}

// UserRepository reads account records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}

// CommentRepository is the slice of the comment subsystem this service needs.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	// DeleteByItem soft-deletes every live comment of the item.
	DeleteByItem(ctx context.Context, kind, itemID string) (int64, error)
	CountByItems(ctx context.Context, kind string, itemIDs []string) (map[string]int64, error)
}

const pgUniqueViolation = "23505"

// translateError turns driver-specific uniqueness failures into Conflict.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &models.AppError{Code: models.CodeConflict, Message: "duplicate record", Err: err}
	}
	if mongo.IsDuplicateKeyError(err) {
		return &models.AppError{Code: models.CodeConflict, Message: "duplicate record", Err: err}
	}
	return err
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
