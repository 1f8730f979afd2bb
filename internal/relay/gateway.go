package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyflow/supportrelay/internal/metrics"
	"github.com/studyflow/supportrelay/internal/models"
	"github.com/studyflow/supportrelay/internal/store"
)

// Gateway is the single entry point for inbound sends: it resolves the
// target conversation, persists through the message store, then fans the
// enriched message out through the hub.
type Gateway struct {
	log      zerolog.Logger
	messages store.MessageStore
	dir      store.UserDirectory
	hub      *Hub
	timeout  time.Duration
}

// NewGateway wires the gateway to its store, directory and hub. timeout
// bounds each persistence call so a slow store surfaces as a retryable
// error instead of hanging the connection.
func NewGateway(log zerolog.Logger, messages store.MessageStore, dir store.UserDirectory, hub *Hub, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		log:      log,
		messages: messages,
		dir:      dir,
		hub:      hub,
		timeout:  timeout,
	}
}

// HandleSend persists a send event and fans it out. On any failure nothing
// is broadcast and the error is returned to the caller only. tempID is the
// sender's optional optimistic-send identifier, echoed back on the message
// frames so the sending client can reconcile its local copy.
func (g *Gateway) HandleSend(ctx context.Context, sender *models.User, targetConversationID, body, tempID string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	conversationID, err := ResolveConversation(ctx, g.dir, sender, targetConversationID)
	if err != nil {
		return nil, err
	}

	msg, err := g.messages.AppendMessage(ctx, conversationID, sender.ID, body)
	if err != nil {
		return nil, err
	}

	g.fanOut(msg, tempID)
	metrics.MessagesRelayed.WithLabelValues(string(msg.AuthorRole)).Inc()

	g.log.Info().
		Str("message_id", msg.ID).
		Str("conversation_id", msg.ConversationID).
		Str("author_id", msg.AuthorID).
		Str("author_role", string(msg.AuthorRole)).
		Msg("message relayed")

	return msg, nil
}

func (g *Gateway) fanOut(msg *models.Message, tempID string) {
	for _, d := range Plan(msg) {
		switch d.Kind {
		case DeliverMessage:
			g.hub.Broadcast(d.Room, messageFrame(msg, tempID))
			metrics.FanoutDeliveries.WithLabelValues("message").Inc()
		case DeliverActivity:
			g.hub.Broadcast(d.Room, activityFrame(msg))
			metrics.FanoutDeliveries.WithLabelValues("activity").Inc()
		}
	}
}

// History reads a conversation on behalf of a caller, applying the same
// store timeout as sends. Marking messages read is the store's side effect.
func (g *Gateway) History(ctx context.Context, conversationID, callerID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.messages.ListConversation(ctx, conversationID, callerID)
}

// Summaries returns the support-pool conversation directory for a caller.
func (g *Gateway) Summaries(ctx context.Context, callerID string) ([]models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.messages.SummarizeConversations(ctx, callerID)
}
