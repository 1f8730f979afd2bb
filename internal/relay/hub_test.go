package relay

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/studyflow/supportrelay/internal/models"
)

// testClient builds a hub member without a socket behind it.
func testClient(id string, role models.Role, buffer int) *Client {
	return &Client{
		user: &models.User{ID: id, Role: role, DisplayName: id},
		send: make(chan Frame, buffer),
	}
}

func drain(c *Client) []Frame {
	var out []Frame
	for {
		select {
		case f := <-c.send:
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestJoinAndLeave(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := testClient("t1", models.RoleSupportAgent, 8)

	room := h.JoinOwn(c)
	if room != "t1" {
		t.Fatalf("expected own room t1, got %q", room)
	}
	if err := h.JoinPool(c); err != nil {
		t.Fatal(err)
	}
	if got := h.MemberCount("t1"); got != 1 {
		t.Fatalf("expected 1 member in t1, got %d", got)
	}
	if got := h.MemberCount(PoolRoom); got != 1 {
		t.Fatalf("expected 1 member in pool, got %d", got)
	}

	// Leaving one room leaves the other membership intact.
	h.Leave(c, PoolRoom)
	if got := h.MemberCount(PoolRoom); got != 0 {
		t.Fatalf("expected empty pool, got %d", got)
	}
	if got := h.MemberCount("t1"); got != 1 {
		t.Fatalf("own room membership must survive a pool leave, got %d", got)
	}
}

func TestJoinPoolRequiresAgentRole(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := testClient("r1", models.RoleRequester, 8)

	if err := h.JoinPool(c); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}
	if got := h.MemberCount(PoolRoom); got != 0 {
		t.Fatalf("requester must not enter the pool, got %d members", got)
	}
}

func TestDisconnectReleasesAllMemberships(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := testClient("t1", models.RoleSupportAgent, 8)
	h.JoinOwn(c)
	if err := h.JoinPool(c); err != nil {
		t.Fatal(err)
	}

	h.Disconnect(c)

	if rooms := h.Rooms(c); len(rooms) != 0 {
		t.Fatalf("expected no memberships after disconnect, got %v", rooms)
	}

	// No further deliveries reach a disconnected client.
	h.Broadcast("t1", Frame{Type: FrameMessage})
	h.Broadcast(PoolRoom, Frame{Type: FrameActivity})
	if got := drain(c); len(got) != 0 {
		t.Fatalf("disconnected client received %d frames", len(got))
	}
}

func TestBroadcastPreservesOrder(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := testClient("r1", models.RoleRequester, 8)
	h.JoinOwn(c)

	for _, id := range []string{"a", "b", "c"} {
		h.Broadcast("r1", Frame{Type: FrameMessage, Message: &MessagePayload{ID: id}})
	}

	frames := drain(c)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, want := range []string{"a", "b", "c"} {
		if frames[i].Message.ID != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, frames[i].Message.ID)
		}
	}
	if frames[0].Room != "r1" {
		t.Fatalf("frame must carry its room, got %q", frames[0].Room)
	}
}

func TestBroadcastDropsForSlowClient(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := testClient("r1", models.RoleRequester, 1)
	h.JoinOwn(c)

	// The second frame exceeds the buffer; Broadcast must not block.
	h.Broadcast("r1", Frame{Type: FrameMessage, Message: &MessagePayload{ID: "kept"}})
	h.Broadcast("r1", Frame{Type: FrameMessage, Message: &MessagePayload{ID: "dropped"}})

	frames := drain(c)
	if len(frames) != 1 || frames[0].Message.ID != "kept" {
		t.Fatalf("expected only the first frame, got %+v", frames)
	}
}

func TestConcurrentJoins(t *testing.T) {
	h := NewHub(zerolog.Nop())

	const n = 50
	clients := make([]*Client, n)
	for i := range clients {
		clients[i] = testClient("t1", models.RoleSupportAgent, 1)
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if err := h.JoinPool(c); err != nil {
				t.Error(err)
			}
		}(c)
	}
	wg.Wait()

	if got := h.MemberCount(PoolRoom); got != n {
		t.Fatalf("expected %d pool members, got %d", n, got)
	}
}
