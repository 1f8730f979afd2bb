package relay

import (
	"time"

	"github.com/studyflow/supportrelay/internal/models"
)

// Client→server event types.
const (
	EventJoinOwn  = "join_own"
	EventJoinPool = "join_pool"
	EventLeave    = "leave"
	EventSend     = "send"
)

// Server→client frame types.
const (
	FrameMessage  = "message"
	FrameActivity = "conversation_activity"
	FrameJoined   = "joined"
	FrameLeft     = "left"
	FrameError    = "error"
)

// Event is an inbound client event from the push channel. TempID is an
// optional client-chosen identifier for a send; it is echoed back on the
// resulting message frame so the sender can match the echo to its local
// optimistic copy.
type Event struct {
	Type           string `json:"type"`
	Room           string `json:"room,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Body           string `json:"body,omitempty"`
	TempID         string `json:"temp_id,omitempty"`
}

// MessagePayload is the enriched message pushed on deliveries and echoes.
type MessagePayload struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	AuthorID       string      `json:"author_id"`
	AuthorName     string      `json:"author_name"`
	AuthorRole     models.Role `json:"author_role"`
	Body           string      `json:"body"`
	CreatedAt      time.Time   `json:"created_at"`
	TempID         string      `json:"temp_id,omitempty"`
}

// ActivityPayload is the lightweight ping the support pool receives when a
// requester writes. No full-body guarantee.
type ActivityPayload struct {
	ConversationID string `json:"conversation_id"`
	Preview        string `json:"preview"`
}

// ErrorPayload surfaces a failure to the originating connection only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Frame is one outbound unit on the push channel.
type Frame struct {
	Type     string           `json:"type"`
	Room     string           `json:"room,omitempty"`
	Message  *MessagePayload  `json:"message,omitempty"`
	Activity *ActivityPayload `json:"activity,omitempty"`
	Error    *ErrorPayload    `json:"error,omitempty"`
}

// messageFrame builds the full-message delivery frame. tempID carries the
// sender's optimistic-send identifier, empty for anything else.
func messageFrame(msg *models.Message, tempID string) Frame {
	return Frame{
		Type: FrameMessage,
		Message: &MessagePayload{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			AuthorID:       msg.AuthorID,
			AuthorName:     msg.AuthorName,
			AuthorRole:     msg.AuthorRole,
			Body:           msg.Body,
			CreatedAt:      msg.CreatedAt,
			TempID:         tempID,
		},
	}
}

// activityFrame builds the support-pool ping frame.
func activityFrame(msg *models.Message) Frame {
	return Frame{
		Type: FrameActivity,
		Activity: &ActivityPayload{
			ConversationID: msg.ConversationID,
			Preview:        Preview(msg.Body),
		},
	}
}
