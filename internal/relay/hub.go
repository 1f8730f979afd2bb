package relay

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/studyflow/supportrelay/internal/metrics"
)

// Hub owns the room-membership table. It is the sole writer; everything else
// only asks it to deliver into a room. Memberships are session-scoped and do
// not survive a disconnect.
type Hub struct {
	log zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// JoinOwn subscribes the connection to its identity room.
func (h *Hub) JoinOwn(c *Client) string {
	room := c.user.ID
	h.join(c, room)
	return room
}

// JoinPool subscribes a support agent to the shared pool room. Requesters
// are refused.
func (h *Hub) JoinPool(c *Client) error {
	if !c.user.IsAgent() {
		return fmt.Errorf("%w: pool membership requires the support-agent role", ErrAuthorization)
	}
	h.join(c, PoolRoom)
	return nil
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}

	h.log.Debug().Str("room", room).Str("user", c.user.ID).Msg("joined room")
}

// Leave removes one membership; the connection's other rooms are untouched.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, room)
}

// Disconnect releases every membership the connection holds. No deliveries
// reach it afterwards.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.rooms {
		h.removeLocked(c, room)
	}
}

func (h *Hub) removeLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, in := members[c]; !in {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers a frame to every member of a room. Sends are
// non-blocking: a client whose buffer is full loses the frame and is reaped
// by its own write pump. Delivery order per room is preserved because every
// broadcast runs under the hub lock.
func (h *Hub) Broadcast(room string, f Frame) {
	f.Room = room

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- f:
		default:
			metrics.DroppedFrames.Inc()
			h.log.Warn().Str("room", room).Str("user", c.user.ID).Msg("dropped frame for slow client")
		}
	}
}

// MemberCount reports how many connections a room currently has.
func (h *Hub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms lists the rooms a connection is currently subscribed to.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []string
	for room, members := range h.rooms {
		if _, ok := members[c]; ok {
			out = append(out, room)
		}
	}
	return out
}
