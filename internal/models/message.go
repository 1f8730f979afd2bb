package models

import "time"

// Message is one entry in a conversation's append-only log.
// ConversationID always equals the requester's user ID, no matter which
// party authored the message; that key unifies a requester's whole history.
type Message struct {
	ID             string    `bson:"_id" json:"id"` // ULID, sortable by creation order
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	AuthorID       string    `bson:"author_id" json:"author_id"`
	AuthorRole     Role      `bson:"author_role" json:"author_role"`
	AuthorName     string    `bson:"author_name" json:"author_name"`
	Body           string    `bson:"body" json:"body"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	Read           bool      `bson:"read" json:"read"`
}
