package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyflow/supportrelay/internal/models"
	"github.com/studyflow/supportrelay/internal/store"
)

// PoolRoom is the shared delivery channel every connected support agent
// subscribes to.
const PoolRoom = "support-pool"

// previewLen bounds the body excerpt carried by activity pings.
const previewLen = 80

// DeliveryKind distinguishes full-message deliveries from lightweight
// activity pings.
type DeliveryKind int

const (
	// DeliverMessage pushes the complete message payload.
	DeliverMessage DeliveryKind = iota
	// DeliverActivity pushes only the conversation id and a body preview.
	// Agents pull history to see full content of conversations they have
	// not opened.
	DeliverActivity
)

// Delivery is one fan-out target for a persisted message.
type Delivery struct {
	Room string
	Kind DeliveryKind
}

// Plan computes the fan-out targets for a message. Rules, in order:
//
//  1. the conversation's own room always receives the full message;
//  2. requester-authored messages additionally ping the support pool with
//     an activity notification, never the raw body;
//  3. the author's personal room receives exactly one echo of the full
//     message. When the author is the requester that room is already the
//     conversation room, so no extra delivery is added.
func Plan(msg *models.Message) []Delivery {
	targets := []Delivery{{Room: msg.ConversationID, Kind: DeliverMessage}}

	if msg.AuthorRole == models.RoleRequester {
		targets = append(targets, Delivery{Room: PoolRoom, Kind: DeliverActivity})
	}

	if msg.AuthorID != msg.ConversationID {
		targets = append(targets, Delivery{Room: msg.AuthorID, Kind: DeliverMessage})
	}

	return targets
}

// ResolveConversation maps a sender and requested target onto the
// conversation that must carry the message. Requesters always write into
// their own conversation; agents must name an existing requester.
func ResolveConversation(ctx context.Context, dir store.UserDirectory, sender *models.User, targetID string) (string, error) {
	if sender.Role == models.RoleRequester {
		return sender.ID, nil
	}

	if targetID == "" {
		return "", fmt.Errorf("%w: no target conversation given", ErrInvalidTarget)
	}

	target, err := dir.GetUser(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: unknown identity %q", ErrInvalidTarget, targetID)
	}
	if err != nil {
		return "", err
	}
	if target.Role != models.RoleRequester {
		return "", fmt.Errorf("%w: %q is not a requester", ErrInvalidTarget, targetID)
	}
	return target.ID, nil
}

// Preview returns the excerpt an activity ping carries.
func Preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLen {
		return body
	}
	return string(runes[:previewLen])
}
