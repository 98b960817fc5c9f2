package event

import "time"

// Event names, used as the Kafka message key.
const (
	COMMENTS_PURGE = "comments.purge"
)

// CommentsPurgeMessage asks for every comment of a deleted item to be removed.
type CommentsPurgeMessage struct {
	Kind        string    `json:"kind"`
	ItemID      string    `json:"item_id"`
	RequestedAt time.Time `json:"requested_at"`
}
