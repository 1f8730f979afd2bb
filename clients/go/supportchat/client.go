// Package supportchat provides a Go client for the support relay push
// channel. A Client owns its connection explicitly; construct one at
// application start and pass it to whatever needs it.
package supportchat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PoolRoom is the shared support-pool room name.
const PoolRoom = "support-pool"

// DefaultPendingTimeout is how long a locally appended message waits for
// its server echo before it is kept as-is.
const DefaultPendingTimeout = 10 * time.Second

// Frame mirrors the server's outbound frame.
type Frame struct {
	Type     string    `json:"type"`
	Room     string    `json:"room,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Activity *Activity `json:"activity,omitempty"`
	Error    *Error    `json:"error,omitempty"`
}

// Message is a delivered chat message. TempID is set only on the echo of
// this client's own send, carrying the identifier Send returned.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	AuthorName     string    `json:"author_name"`
	AuthorRole     string    `json:"author_role"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	TempID         string    `json:"temp_id,omitempty"`
}

// Activity is a support-pool ping for new conversation activity.
type Activity struct {
	ConversationID string `json:"conversation_id"`
	Preview        string `json:"preview"`
}

// Error is a failure surfaced on this connection only.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type event struct {
	Type           string `json:"type"`
	Room           string `json:"room,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Body           string `json:"body,omitempty"`
	TempID         string `json:"temp_id,omitempty"`
}

// PendingMessage is a locally appended message not yet confirmed by the
// server echo.
type PendingMessage struct {
	TempID         string
	ConversationID string
	Body           string
	SentAt         time.Time
}

// Client is a live relay connection plus the local view of sent messages.
type Client struct {
	userID string

	conn    *websocket.Conn
	writeMu sync.Mutex // gorilla allows at most one concurrent writer
	events  chan Frame
	done    chan struct{}

	pendingTimeout time.Duration

	mu        sync.Mutex
	pending   []PendingMessage
	confirmed map[string][]Message // conversation id -> delivered messages
	closed    bool
}

// Dial opens a relay connection. baseURL is the http(s) origin of the
// relay, token the platform session token. userID is the caller's own
// identity, needed to recognize which delivered messages are echoes of
// local sends.
func Dial(ctx context.Context, baseURL, token, userID string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial relay: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	c := &Client{
		userID:         userID,
		conn:           conn,
		events:         make(chan Frame, 64),
		done:           make(chan struct{}),
		pendingTimeout: DefaultPendingTimeout,
		confirmed:      make(map[string][]Message),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return
		}
		if f.Type == "message" && f.Message != nil {
			c.reconcile(*f.Message)
		}
		select {
		case c.events <- f:
		case <-c.done:
			return
		}
	}
}

// Events exposes server frames after local reconciliation. The channel
// closes when the connection drops.
func (c *Client) Events() <-chan Frame {
	return c.events
}

// JoinOwn subscribes to the caller's identity room. Must be re-issued
// after every reconnect; the server keeps no session across sockets.
func (c *Client) JoinOwn() error {
	return c.write(event{Type: "join_own"})
}

// JoinPool subscribes to the shared support-pool room (agents only).
func (c *Client) JoinPool() error {
	return c.write(event{Type: "join_pool"})
}

// Leave drops a single room membership.
func (c *Client) Leave(room string) error {
	return c.write(event{Type: "leave", Room: room})
}

// Send emits a send event and optimistically appends the message to the
// local view. The returned temp id identifies the pending entry until the
// server echo replaces it.
func (c *Client) Send(conversationID, body string) (string, error) {
	tempID := uuid.NewString()

	c.mu.Lock()
	c.pending = append(c.pending, PendingMessage{
		TempID:         tempID,
		ConversationID: conversationID,
		Body:           body,
		SentAt:         time.Now(),
	})
	c.mu.Unlock()

	if err := c.write(event{Type: "send", ConversationID: conversationID, Body: body, TempID: tempID}); err != nil {
		c.dropPending(tempID)
		return "", err
	}
	return tempID, nil
}

// reconcile folds a delivered message into the local view. An echo of our
// own send replaces its pending entry, matched exactly by the temp id the
// server reflects back. A same-author message without one (sent from
// another session of the same user) falls back to replacing the oldest
// entry with the same conversation and body.
func (c *Client) reconcile(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.TempID != "" {
		for i, p := range c.pending {
			if p.TempID == msg.TempID {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				break
			}
		}
	} else if msg.AuthorID == c.userID {
		for i, p := range c.pending {
			if p.ConversationID == msg.ConversationID && p.Body == msg.Body {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				break
			}
		}
	}
	c.confirmed[msg.ConversationID] = append(c.confirmed[msg.ConversationID], msg)
}

// Conversation returns the local view of one conversation: confirmed
// messages first, then still-pending local sends. A pending entry whose
// echo never arrived within the timeout is promoted into the confirmed
// view under its temp id rather than dropped.
func (c *Client) Conversation(conversationID string) ([]Message, []PendingMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.promoteExpiredLocked()

	msgs := make([]Message, len(c.confirmed[conversationID]))
	copy(msgs, c.confirmed[conversationID])

	var still []PendingMessage
	for _, p := range c.pending {
		if p.ConversationID == conversationID {
			still = append(still, p)
		}
	}
	return msgs, still
}

// promoteExpiredLocked applies the conflict rule for echoes that never
// arrived: after the timeout the local message is kept, appended under its
// temp id. Caller holds c.mu.
func (c *Client) promoteExpiredLocked() {
	cutoff := time.Now().Add(-c.pendingTimeout)
	remaining := c.pending[:0]
	for _, p := range c.pending {
		if p.SentAt.Before(cutoff) {
			c.confirmed[p.ConversationID] = append(c.confirmed[p.ConversationID], Message{
				ID:             p.TempID,
				ConversationID: p.ConversationID,
				AuthorID:       c.userID,
				Body:           p.Body,
				CreatedAt:      p.SentAt,
			})
			continue
		}
		remaining = append(remaining, p)
	}
	c.pending = remaining
}

func (c *Client) dropPending(tempID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.pending {
		if p.TempID == tempID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

func (c *Client) write(ev event) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errors.New("client closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(ev)
}

// Close tears the connection down. Room memberships on the server die with
// it; a new Dial must re-join.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	return c.conn.Close()
}
