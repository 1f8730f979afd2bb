package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/studyflow/supportrelay/internal/models"
	"github.com/studyflow/supportrelay/internal/store"
)

func testDirectory(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	s.AddUser(models.User{ID: "r1", Role: models.RoleRequester, DisplayName: "Rita"})
	s.AddUser(models.User{ID: "t1", Role: models.RoleSupportAgent, DisplayName: "Tess"})
	s.AddUser(models.User{ID: "t2", Role: models.RoleSupportAgent, DisplayName: "Tom"})
	return s
}

func TestPlanRequesterAuthored(t *testing.T) {
	msg := &models.Message{
		ConversationID: "r1",
		AuthorID:       "r1",
		AuthorRole:     models.RoleRequester,
		Body:           "Hello",
	}

	plan := Plan(msg)
	if len(plan) != 2 {
		t.Fatalf("expected 2 deliveries, got %d: %+v", len(plan), plan)
	}
	if plan[0].Room != "r1" || plan[0].Kind != DeliverMessage {
		t.Fatalf("first delivery must be the conversation room: %+v", plan[0])
	}
	if plan[1].Room != PoolRoom || plan[1].Kind != DeliverActivity {
		t.Fatalf("second delivery must be the pool ping: %+v", plan[1])
	}

	// The author's room coincides with the conversation room, so there is
	// no separate echo: exactly one delivery reaches the author.
	for _, d := range plan[1:] {
		if d.Room == "r1" {
			t.Fatalf("duplicate delivery into the author's room: %+v", plan)
		}
	}
}

func TestPlanAgentAuthored(t *testing.T) {
	msg := &models.Message{
		ConversationID: "r1",
		AuthorID:       "t1",
		AuthorRole:     models.RoleSupportAgent,
		Body:           "Hi, how can I help?",
	}

	plan := Plan(msg)
	if len(plan) != 2 {
		t.Fatalf("expected 2 deliveries, got %d: %+v", len(plan), plan)
	}
	if plan[0].Room != "r1" || plan[0].Kind != DeliverMessage {
		t.Fatalf("conversation room must get the message: %+v", plan[0])
	}
	if plan[1].Room != "t1" || plan[1].Kind != DeliverMessage {
		t.Fatalf("author must get an echo on their own room: %+v", plan[1])
	}
	for _, d := range plan {
		if d.Room == PoolRoom {
			t.Fatal("agent replies must not ping the pool")
		}
	}
}

func TestResolveConversationRequester(t *testing.T) {
	dir := testDirectory(t)
	sender := &models.User{ID: "r1", Role: models.RoleRequester}

	// Requesters always write into their own conversation, whatever
	// target they claim.
	for _, target := range []string{"", "r1", "t1", "nonsense"} {
		got, err := ResolveConversation(context.Background(), dir, sender, target)
		if err != nil {
			t.Fatalf("target %q: %v", target, err)
		}
		if got != "r1" {
			t.Fatalf("target %q: expected r1, got %q", target, got)
		}
	}
}

func TestResolveConversationAgent(t *testing.T) {
	dir := testDirectory(t)
	sender := &models.User{ID: "t1", Role: models.RoleSupportAgent}
	ctx := context.Background()

	got, err := ResolveConversation(ctx, dir, sender, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "r1" {
		t.Fatalf("expected r1, got %q", got)
	}

	for _, target := range []string{"", "ghost", "t2"} {
		if _, err := ResolveConversation(ctx, dir, sender, target); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("target %q: expected ErrInvalidTarget, got %v", target, err)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short"); got != "short" {
		t.Fatalf("expected unchanged body, got %q", got)
	}

	long := strings.Repeat("x", 200)
	got := Preview(long)
	if len([]rune(got)) != previewLen {
		t.Fatalf("expected %d runes, got %d", previewLen, len([]rune(got)))
	}
}
