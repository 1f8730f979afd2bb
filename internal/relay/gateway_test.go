package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyflow/supportrelay/internal/models"
	"github.com/studyflow/supportrelay/internal/store"
)

type relayFixture struct {
	store   *store.MemoryStore
	hub     *Hub
	gateway *Gateway

	requester *models.User
	agent     *models.User

	requesterConn *Client // joined own room
	agentConn     *Client // joined own room + pool
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	s := store.NewMemoryStore()
	s.AddUser(models.User{ID: "r1", Role: models.RoleRequester, DisplayName: "Rita"})
	s.AddUser(models.User{ID: "t1", Role: models.RoleSupportAgent, DisplayName: "Tess"})
	s.AddUser(models.User{ID: "t2", Role: models.RoleSupportAgent, DisplayName: "Tom"})

	hub := NewHub(zerolog.Nop())
	gw := NewGateway(zerolog.Nop(), s, s, hub, time.Second)

	f := &relayFixture{
		store:     s,
		hub:       hub,
		gateway:   gw,
		requester: &models.User{ID: "r1", Role: models.RoleRequester, DisplayName: "Rita"},
		agent:     &models.User{ID: "t1", Role: models.RoleSupportAgent, DisplayName: "Tess"},
	}

	f.requesterConn = testClient("r1", models.RoleRequester, 8)
	hub.JoinOwn(f.requesterConn)

	f.agentConn = testClient("t1", models.RoleSupportAgent, 8)
	hub.JoinOwn(f.agentConn)
	if err := hub.JoinPool(f.agentConn); err != nil {
		t.Fatal(err)
	}

	return f
}

func TestRequesterSend(t *testing.T) {
	f := newRelayFixture(t)

	msg, err := f.gateway.HandleSend(context.Background(), f.requester, "", "Hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ConversationID != "r1" || msg.AuthorID != "r1" {
		t.Fatalf("wrong message identity: %+v", msg)
	}

	// The requester's own room gets exactly one full-message echo.
	rFrames := drain(f.requesterConn)
	if len(rFrames) != 1 || rFrames[0].Type != FrameMessage {
		t.Fatalf("requester frames: %+v", rFrames)
	}
	if rFrames[0].Message.ID != msg.ID || rFrames[0].Message.Body != "Hello" {
		t.Fatalf("echo payload mismatch: %+v", rFrames[0].Message)
	}

	// The pool gets an activity ping, never the raw message.
	aFrames := drain(f.agentConn)
	if len(aFrames) != 1 || aFrames[0].Type != FrameActivity {
		t.Fatalf("agent frames: %+v", aFrames)
	}
	if aFrames[0].Activity.ConversationID != "r1" || aFrames[0].Activity.Preview != "Hello" {
		t.Fatalf("activity payload mismatch: %+v", aFrames[0].Activity)
	}

	msgs, err := f.store.ListConversation(context.Background(), "r1", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(msgs))
	}
}

func TestAgentReply(t *testing.T) {
	f := newRelayFixture(t)

	msg, err := f.gateway.HandleSend(context.Background(), f.agent, "r1", "Hi, how can I help?", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ConversationID != "r1" || msg.AuthorID != "t1" {
		t.Fatalf("reply must be filed under the requester's conversation: %+v", msg)
	}

	// The requester's room receives the message.
	rFrames := drain(f.requesterConn)
	if len(rFrames) != 1 || rFrames[0].Type != FrameMessage || rFrames[0].Message.AuthorID != "t1" {
		t.Fatalf("requester frames: %+v", rFrames)
	}

	// The author receives exactly one echo, and no pool broadcast of the
	// raw body happens even though the agent sits in the pool room.
	aFrames := drain(f.agentConn)
	if len(aFrames) != 1 || aFrames[0].Type != FrameMessage {
		t.Fatalf("agent frames: %+v", aFrames)
	}
	if aFrames[0].Room != "t1" {
		t.Fatalf("echo must arrive on the author's own room, got %q", aFrames[0].Room)
	}
}

func TestAgentSendToAgentRejected(t *testing.T) {
	f := newRelayFixture(t)

	_, err := f.gateway.HandleSend(context.Background(), f.agent, "t2", "hello?", "")
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}

	// Nothing persisted, nothing broadcast.
	msgs, err := f.store.ListConversation(context.Background(), "t2", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no persisted messages, got %d", len(msgs))
	}
	if got := drain(f.requesterConn); len(got) != 0 {
		t.Fatalf("requester received %d frames", len(got))
	}
	if got := drain(f.agentConn); len(got) != 0 {
		t.Fatalf("agent received %d frames", len(got))
	}
}

func TestEmptyBodyRejected(t *testing.T) {
	f := newRelayFixture(t)

	_, err := f.gateway.HandleSend(context.Background(), f.requester, "", "", "")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	msgs, err := f.store.ListConversation(context.Background(), "r1", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("store must be unchanged, got %d messages", len(msgs))
	}
	if got := drain(f.requesterConn); len(got) != 0 {
		t.Fatalf("failed sends must not fan out, requester got %d frames", len(got))
	}
	if got := drain(f.agentConn); len(got) != 0 {
		t.Fatalf("failed sends must not fan out, agent got %d frames", len(got))
	}
}

func TestUnknownSenderRejected(t *testing.T) {
	f := newRelayFixture(t)

	ghost := &models.User{ID: "ghost", Role: models.RoleRequester}
	_, err := f.gateway.HandleSend(context.Background(), ghost, "", "anyone there?", "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConversationOrderSurvivesFanout(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	bodies := []string{"one", "two", "three", "four"}
	for i, b := range bodies {
		var sender *models.User
		var target string
		if i%2 == 0 {
			sender, target = f.requester, ""
		} else {
			sender, target = f.agent, "r1"
		}
		if _, err := f.gateway.HandleSend(ctx, sender, target, b, ""); err != nil {
			t.Fatal(err)
		}
	}

	// The requester's room sees every message in append order.
	var delivered []string
	for _, fr := range drain(f.requesterConn) {
		if fr.Type == FrameMessage {
			delivered = append(delivered, fr.Message.Body)
		}
	}
	if len(delivered) != len(bodies) {
		t.Fatalf("expected %d deliveries, got %d", len(bodies), len(delivered))
	}
	for i, want := range bodies {
		if delivered[i] != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, delivered[i])
		}
	}

	// And the store agrees.
	msgs, err := f.gateway.History(ctx, "r1", "t2")
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range bodies {
		if msgs[i].Body != want {
			t.Fatalf("history position %d: expected %q, got %q", i, want, msgs[i].Body)
		}
	}
}

func TestSendEchoCarriesTempID(t *testing.T) {
	f := newRelayFixture(t)

	if _, err := f.gateway.HandleSend(context.Background(), f.requester, "", "Hello", "tmp-42"); err != nil {
		t.Fatal(err)
	}

	rFrames := drain(f.requesterConn)
	if len(rFrames) != 1 || rFrames[0].Type != FrameMessage {
		t.Fatalf("requester frames: %+v", rFrames)
	}
	if rFrames[0].Message.TempID != "tmp-42" {
		t.Fatalf("echo must carry the sender's temp id, got %q", rFrames[0].Message.TempID)
	}

	// The pool ping has no message payload, so no temp id leaks there.
	aFrames := drain(f.agentConn)
	if len(aFrames) != 1 || aFrames[0].Type != FrameActivity {
		t.Fatalf("agent frames: %+v", aFrames)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{store.ErrValidation, "validation"},
		{store.ErrNotFound, "not_found"},
		{ErrInvalidTarget, "invalid_target"},
		{ErrAuthorization, "unauthorized"},
		{store.ErrUnavailable, "store_unavailable"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.code {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.code, got)
		}
	}
}
