package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/studyflow/supportrelay/internal/models"
)

// MemoryStore is an in-process MessageStore and UserDirectory. It backs the
// dev mode when no MongoDB is configured, and the test suite.
type MemoryStore struct {
	mu       sync.Mutex
	messages []models.Message
	users    map[string]models.User
	byToken  map[string]string // token -> user ID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		byToken: make(map[string]string),
	}
}

// AddUser registers an identity in the directory. Dev/test seeding only;
// real deployments read the directory the auth subsystem maintains.
func (s *MemoryStore) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	if u.Token != "" {
		s.byToken[u.Token] = u.ID
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// AppendMessage validates and appends a new message record.
func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID, authorID, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body must not be empty", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	author, ok := s.users[authorID]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	msg := models.Message{
		ID:             newMessageID(now),
		ConversationID: conversationID,
		AuthorID:       author.ID,
		AuthorRole:     author.Role,
		AuthorName:     author.DisplayName,
		Body:           body,
		CreatedAt:      now,
	}
	s.messages = append(s.messages, msg)
	out := msg
	return &out, nil
}

// ListConversation returns the conversation in append order and marks
// other-author messages as read.
func (s *MemoryStore) ListConversation(ctx context.Context, conversationID, callerID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Message
	for i := range s.messages {
		m := &s.messages[i]
		if m.ConversationID != conversationID {
			continue
		}
		if m.AuthorID != callerID {
			m.Read = true
		}
		out = append(out, *m)
	}
	return out, nil
}

// SummarizeConversations derives the support-pool directory view.
func (s *MemoryStore) SummarizeConversations(ctx context.Context, callerID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byConv := make(map[string]*models.Conversation)
	for _, m := range s.messages {
		owner, ok := s.users[m.ConversationID]
		if !ok || owner.Role != models.RoleRequester {
			continue
		}
		c, ok := byConv[m.ConversationID]
		if !ok {
			c = &models.Conversation{
				RequesterID:   owner.ID,
				RequesterName: owner.DisplayName,
			}
			byConv[m.ConversationID] = c
		}
		// Messages are stored in append order, so the last one wins.
		c.LastBody = m.Body
		c.LastAuthor = m.AuthorName
		c.LastActiveAt = m.CreatedAt
		if !m.Read && m.AuthorID != callerID {
			c.UnreadCount++
		}
	}

	convs := make([]models.Conversation, 0, len(byConv))
	for _, c := range byConv {
		convs = append(convs, *c)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].LastActiveAt.After(convs[j].LastActiveAt)
	})
	return convs, nil
}

// GetUser retrieves a user by ID.
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := u
	return &out, nil
}

// GetUserByToken resolves an opaque session token to a user.
func (s *MemoryStore) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}
