package store

import (
	"context"

	"github.com/studyflow/supportrelay/internal/models"
)

// MessageStore is the durable, ordered log of support-chat messages.
// MongoStore and MemoryStore both implement this interface.
type MessageStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// AppendMessage validates and persists a new message. The append is
	// atomic: either a fully written record exists afterwards or nothing does.
	AppendMessage(ctx context.Context, conversationID, authorID, body string) (*models.Message, error)

	// ListConversation returns a conversation's messages ascending by
	// creation order. As a side effect it marks every returned message
	// authored by someone other than callerID as read. Re-reading is a no-op.
	ListConversation(ctx context.Context, conversationID, callerID string) ([]models.Message, error)

	// SummarizeConversations returns one entry per requester conversation,
	// newest activity first. Unread counts are relative to callerID.
	SummarizeConversations(ctx context.Context, callerID string) ([]models.Conversation, error)
}

// UserDirectory resolves opaque identities handed out by the platform's
// auth subsystem. The relay only reads from it.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
}
