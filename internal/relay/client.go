package relay

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/studyflow/supportrelay/internal/metrics"
	"github.com/studyflow/supportrelay/internal/models"
	"github.com/studyflow/supportrelay/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024

	sendBuffer = 64
)

// Client is one live relay connection. The read pump consumes client
// events; the write pump is the only goroutine that writes the socket.
type Client struct {
	user    *models.User
	hub     *Hub
	gateway *Gateway
	conn    *websocket.Conn
	send    chan Frame
	log     zerolog.Logger
}

// NewClient wraps an upgraded websocket connection.
func NewClient(log zerolog.Logger, hub *Hub, gateway *Gateway, conn *websocket.Conn, user *models.User) *Client {
	return &Client{
		user:    user,
		hub:     hub,
		gateway: gateway,
		conn:    conn,
		send:    make(chan Frame, sendBuffer),
		log:     log.With().Str("user", user.ID).Str("role", string(user.Role)).Logger(),
	}
}

// Run services the connection until it drops, then releases every room
// membership. It blocks until the read pump exits.
func (c *Client) Run() {
	metrics.LiveConnections.Inc()
	defer metrics.LiveConnections.Dec()

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("connection closed unexpectedly")
			}
			return
		}
		c.handleEvent(ev)
	}
}

func (c *Client) handleEvent(ev Event) {
	switch ev.Type {
	case EventJoinOwn:
		room := c.hub.JoinOwn(c)
		c.push(Frame{Type: FrameJoined, Room: room})

	case EventJoinPool:
		if err := c.hub.JoinPool(c); err != nil {
			c.pushError(err)
			return
		}
		c.push(Frame{Type: FrameJoined, Room: PoolRoom})

	case EventLeave:
		c.hub.Leave(c, ev.Room)
		c.push(Frame{Type: FrameLeft, Room: ev.Room})

	case EventSend:
		if _, err := c.gateway.HandleSend(context.Background(), c.user, ev.ConversationID, ev.Body, ev.TempID); err != nil {
			metrics.SendErrors.WithLabelValues(errorCode(err)).Inc()
			c.pushError(err)
		}

	default:
		c.pushError(errors.New("unknown event type: " + ev.Type))
	}
}

// push queues a frame for this connection only.
func (c *Client) push(f Frame) {
	select {
	case c.send <- f:
	default:
		metrics.DroppedFrames.Inc()
	}
}

// pushError surfaces a failure to the originating connection; errors are
// never broadcast into rooms.
func (c *Client) pushError(err error) {
	c.push(Frame{
		Type: FrameError,
		Error: &ErrorPayload{
			Code:    errorCode(err),
			Message: err.Error(),
		},
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(f); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// errorCode maps the error taxonomy onto wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrValidation):
		return "validation"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrAuthorization):
		return "unauthorized"
	case errors.Is(err, store.ErrUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
