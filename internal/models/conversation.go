package models

import "time"

// Conversation is the support-pool view of one requester's thread.
// It is derived from the message log on demand and never stored.
type Conversation struct {
	RequesterID   string    `json:"requester_id"`
	RequesterName string    `json:"requester_name"`
	LastBody      string    `json:"last_body"`
	LastAuthor    string    `json:"last_author"`
	LastActiveAt  time.Time `json:"last_active_at"`
	UnreadCount   int       `json:"unread_count"`
}
