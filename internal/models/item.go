// Package models contains the domain records shared by the storage backends
// and the HTTP layer.
package models

import (
	"slices"
	"time"

	"github.com/lib/pq"
)

// Pin states stored in is_fixed.
const (
	PinFixed  = "고정"
	PinNormal = "일반"
)

// Kind describes one content type. Posts and promotions share all storage and
// service code and differ only in what a Kind carries.
type Kind struct {
	// Name is the singular label used in errors, metrics and cascade events.
	Name string
	// Plural is the table, collection, route segment and list response key.
	Plural string
	// NumberField is the column holding the human-facing sequence number.
	NumberField string
	// BulkField is the request body key for bulk deletes.
	BulkField    string
	Categories   []string
	SearchFields []string
}

// ValidCategory reports whether c is one of the kind's categories.
func (k Kind) ValidCategory(c string) bool {
	return slices.Contains(k.Categories, c)
}

// CanSearch reports whether field is searchable for the kind.
func (k Kind) CanSearch(field string) bool {
	return slices.Contains(k.SearchFields, field)
}

// ValidPin reports whether p is a known is_fixed value.
func ValidPin(p string) bool {
	return p == PinFixed || p == PinNormal
}

// UserSummary is the owner projection attached to items on read.
type UserSummary struct {
	ID         string `json:"_id"`
	Nickname   string `json:"nickname"`
	ProfileURL string `json:"profile_url"`
	State      string `json:"state"`
}

// Item holds the fields shared by every content kind. Column and document
// names are identical across gorm and bson so filters can be written once.
type Item struct {
	ID         string         `gorm:"type:uuid;primaryKey" bson:"_id" json:"_id"`
	UserID     string         `gorm:"type:uuid;not null;index" bson:"user_id" json:"user_id"`
	Title      string         `gorm:"size:40;not null;index" bson:"title" json:"title"`
	Content    string         `gorm:"type:text;not null" bson:"content" json:"content"`
	Tags       pq.StringArray `gorm:"type:text[]" bson:"tags" json:"tags"`
	Category   string         `gorm:"not null;index" bson:"category" json:"category"`
	IsFixed    string         `gorm:"not null;index" bson:"is_fixed" json:"is_fixed"`
	Views      int64          `gorm:"not null" bson:"views" json:"views"`
	Likes      int64          `gorm:"not null" bson:"likes" json:"likes"`
	LikedUsers pq.StringArray `gorm:"type:text[];not null;default:'{}'" bson:"liked_users" json:"likedUsers"`
	CreatedAt  time.Time      `gorm:"index" bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `bson:"updated_at" json:"updatedAt"`
	DeletedAt  *time.Time     `gorm:"index" bson:"deleted_at" json:"deletedAt"`

	// Read-side enrichment, never persisted.
	CommentsCount int64        `gorm:"-" bson:"-" json:"commentsCount"`
	User          *UserSummary `gorm:"-" bson:"-" json:"user,omitempty"`
}

// Base exposes the shared fields of any embedding kind.
func (i *Item) Base() *Item {
	return i
}

// Alive reports whether the item has not been soft-deleted.
func (i *Item) Alive() bool {
	return i.DeletedAt == nil
}

// LikedBy reports whether userID is in the liked set.
func (i *Item) LikedBy(userID string) bool {
	return slices.Contains(i.LikedUsers, userID)
}

// Editable returns the owner-editable shared columns keyed by column name.
func (i *Item) Editable() map[string]any {
	return map[string]any{
		"title":    i.Title,
		"content":  i.Content,
		"tags":     i.Tags,
		"category": i.Category,
		"is_fixed": i.IsFixed,
	}
}

// Entity is satisfied by pointers to every content kind. Repositories and
// services are generic over it.
type Entity[T any] interface {
	*T
	Base() *Item
	Kind() Kind
	Number() int64
	SetNumber(n int64)
	// ApplyDetails decodes the kind-specific fields present in a JSON body.
	ApplyDetails(body []byte) error
	// Details returns the kind-specific editable columns.
	Details() map[string]any
}

// EditableColumns merges the shared and kind-specific editable columns.
func EditableColumns[T any, P Entity[T]](p P) map[string]any {
	cols := p.Base().Editable()
	for k, v := range p.Details() {
		cols[k] = v
	}
	return cols
}
