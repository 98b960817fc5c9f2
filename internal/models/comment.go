package models

import "time"

// Comment belongs to the comment subsystem. This service only counts comments
// and soft-deletes them when their parent item goes away.
type Comment struct {
	ID        string     `gorm:"type:uuid;primaryKey" bson:"_id" json:"_id"`
	ItemKind  string     `gorm:"not null;index:idx_comments_item" bson:"item_kind" json:"item_kind"`
	ItemID    string     `gorm:"type:uuid;not null;index:idx_comments_item" bson:"item_id" json:"item_id"`
	UserID    string     `gorm:"type:uuid;not null" bson:"user_id" json:"user_id"`
	Content   string     `gorm:"type:text;not null" bson:"content" json:"content"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" bson:"deleted_at" json:"deletedAt"`
}

// Counter backs the per-kind sequence numbers.
type Counter struct {
	Name  string `gorm:"primaryKey" bson:"_id"`
	Value int64  `gorm:"not null" bson:"value"`
}
