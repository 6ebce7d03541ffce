// Package memstore keeps chat state in process memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/google/uuid"
)

type pairKey struct{ a, b string }

type reactionKey struct{ message, user, emoji string }

// Store is an in-memory chat.Store. Every record collection has the
// secondary indexes its lookups need, so no read scans a whole collection
// except ListUsers.
type Store struct {
	mu sync.RWMutex

	users map[string]chat.User // external id -> user

	conversations map[string]chat.Conversation
	direct        map[string]string              // direct key -> conversation id
	participants  map[string]map[string]struct{} // user id -> conversation ids

	messages       map[string]chat.Message
	byConversation map[string][]string // conversation id -> message ids, append order

	reactions map[reactionKey]chat.Reaction
	byMessage map[string]map[reactionKey]struct{}

	presence map[string]chat.Presence
	typing   map[string]map[string]chat.TypingState // conversation id -> user id
	receipts map[pairKey]chat.ReadReceipt
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:          map[string]chat.User{},
		conversations:  map[string]chat.Conversation{},
		direct:         map[string]string{},
		participants:   map[string]map[string]struct{}{},
		messages:       map[string]chat.Message{},
		byConversation: map[string][]string{},
		reactions:      map[reactionKey]chat.Reaction{},
		byMessage:      map[string]map[reactionKey]struct{}{},
		presence:       map[string]chat.Presence{},
		typing:         map[string]map[string]chat.TypingState{},
		receipts:       map[pairKey]chat.ReadReceipt{},
	}
}

var _ chat.Store = (*Store)(nil)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, chat.ErrNotFound)
}

// UpsertUser inserts or patches the user with u.ExternalID.
func (s *Store) UpsertUser(_ context.Context, u chat.User) (chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[u.ExternalID]; ok {
		existing.Name = u.Name
		existing.Email = u.Email
		existing.ImageURL = u.ImageURL
		s.users[u.ExternalID] = existing
		return existing, nil
	}
	u.ID = uuid.NewString()
	s.users[u.ExternalID] = u
	return u, nil
}

// GetUser returns the user with the given external id.
func (s *Store) GetUser(_ context.Context, externalID string) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[externalID]
	if !ok {
		return chat.User{}, notFound("user", externalID)
	}
	return u, nil
}

// GetUsers returns the users that exist among externalIDs.
func (s *Store) GetUsers(_ context.Context, externalIDs []string) ([]chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.User, 0, len(externalIDs))
	for _, id := range externalIDs {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListUsers returns every user.
func (s *Store) ListUsers(_ context.Context) ([]chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func cloneConversation(c chat.Conversation) chat.Conversation {
	c.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	if c.LastMessageTime != nil {
		t := *c.LastMessageTime
		c.LastMessageTime = &t
	}
	return c
}

// insertConversation requires s.mu to be held.
func (s *Store) insertConversation(c chat.Conversation) chat.Conversation {
	c = cloneConversation(c)
	c.ID = uuid.NewString()
	s.conversations[c.ID] = c
	for _, p := range c.ParticipantIDs {
		if s.participants[p] == nil {
			s.participants[p] = map[string]struct{}{}
		}
		s.participants[p][c.ID] = struct{}{}
	}
	if c.DirectKey != "" {
		s.direct[c.DirectKey] = c.ID
	}
	return cloneConversation(c)
}

// InsertConversation inserts c with a fresh id.
func (s *Store) InsertConversation(_ context.Context, c chat.Conversation) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertConversation(c), nil
}

// InsertDirectIfAbsent inserts c unless its direct key is taken.
func (s *Store) InsertDirectIfAbsent(_ context.Context, c chat.Conversation) (chat.Conversation, bool, error) {
	if c.DirectKey == "" {
		return chat.Conversation{}, false, fmt.Errorf("direct key is empty: %w", chat.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.direct[c.DirectKey]; ok {
		return cloneConversation(s.conversations[id]), false, nil
	}
	return s.insertConversation(c), true, nil
}

// GetConversation returns the conversation with the given id.
func (s *Store) GetConversation(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, notFound("conversation", id)
	}
	return cloneConversation(c), nil
}

// ListConversationsForUser returns the conversations userID takes part in.
func (s *Store) ListConversationsForUser(_ context.Context, userID string) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.participants[userID]
	out := make([]chat.Conversation, 0, len(ids))
	for id := range ids {
		out = append(out, cloneConversation(s.conversations[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AppendMessage inserts m and updates the parent conversation under one
// lock acquisition.
func (s *Store) AppendMessage(_ context.Context, m chat.Message, preview string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[m.ConversationID]
	if !ok {
		return chat.Message{}, notFound("conversation", m.ConversationID)
	}
	m.ID = uuid.NewString()
	s.messages[m.ID] = m
	s.byConversation[m.ConversationID] = append(s.byConversation[m.ConversationID], m.ID)

	// A send stamped before the current last message keeps the newer
	// recency metadata.
	if c.LastMessageTime == nil || !m.CreatedAt.Before(*c.LastMessageTime) {
		at := m.CreatedAt
		c.LastMessageTime = &at
		c.LastMessagePreview = preview
		s.conversations[c.ID] = c
	}
	return m, nil
}

// GetMessage returns the message with the given id.
func (s *Store) GetMessage(_ context.Context, id string) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return chat.Message{}, notFound("message", id)
	}
	return m, nil
}

// ListMessages returns the messages of a conversation, oldest first.
func (s *Store) ListMessages(_ context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byConversation[conversationID]
	out := make([]chat.Message, len(ids))
	for i, id := range ids {
		out[i] = s.messages[id]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MarkMessageDeleted flags a message deleted and replaces its content.
func (s *Store) MarkMessageDeleted(_ context.Context, id, placeholder string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return chat.Message{}, notFound("message", id)
	}
	m.Deleted = true
	m.Content = placeholder
	s.messages[id] = m
	return m, nil
}

// CountUnread counts messages of others created after the given time.
func (s *Store) CountUnread(_ context.Context, conversationID, userID string, after time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, id := range s.byConversation[conversationID] {
		m := s.messages[id]
		if m.SenderID != userID && m.CreatedAt.After(after) {
			n++
		}
	}
	return n, nil
}

// ToggleReaction flips the existence of r's triple.
func (s *Store) ToggleReaction(_ context.Context, r chat.Reaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := reactionKey{r.MessageID, r.UserID, r.Emoji}
	if _, ok := s.reactions[k]; ok {
		delete(s.reactions, k)
		delete(s.byMessage[r.MessageID], k)
		return false, nil
	}
	r.ID = uuid.NewString()
	s.reactions[k] = r
	if s.byMessage[r.MessageID] == nil {
		s.byMessage[r.MessageID] = map[reactionKey]struct{}{}
	}
	s.byMessage[r.MessageID][k] = struct{}{}
	return true, nil
}

// ListReactions returns the reactions on the given messages, oldest first.
func (s *Store) ListReactions(_ context.Context, messageIDs []string) ([]chat.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Reaction
	seen := map[string]bool{}
	for _, id := range messageIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		for k := range s.byMessage[id] {
			out = append(out, s.reactions[k])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if out == nil {
		out = []chat.Reaction{}
	}
	return out, nil
}

// UpsertPresence stores p, replacing any earlier heartbeat of the user.
func (s *Store) UpsertPresence(_ context.Context, p chat.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[p.UserID] = p
	return nil
}

// GetPresences returns the heartbeats that exist among userIDs.
func (s *Store) GetPresences(_ context.Context, userIDs []string) ([]chat.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Presence, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.presence[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListPresences returns the heartbeats newer than since.
func (s *Store) ListPresences(_ context.Context, since time.Time) ([]chat.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Presence
	for _, p := range s.presence {
		if p.LastSeen.After(since) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// UpsertTyping inserts t or refreshes the existing record's time.
func (s *Store) UpsertTyping(_ context.Context, t chat.TypingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := s.typing[t.ConversationID]
	if states == nil {
		states = map[string]chat.TypingState{}
		s.typing[t.ConversationID] = states
	}
	if existing, ok := states[t.UserID]; ok {
		existing.UpdatedAt = t.UpdatedAt
		states[t.UserID] = existing
		return nil
	}
	states[t.UserID] = t
	return nil
}

// DeleteTyping removes the typing record of a user, if any.
func (s *Store) DeleteTyping(_ context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.typing[conversationID], userID)
	return nil
}

// ListTyping returns the typing records of a conversation.
func (s *Store) ListTyping(_ context.Context, conversationID string) ([]chat.TypingState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := s.typing[conversationID]
	out := make([]chat.TypingState, 0, len(states))
	for _, t := range states {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// UpsertReceipt stores r, replacing any earlier watermark.
func (s *Store) UpsertReceipt(_ context.Context, r chat.ReadReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[pairKey{r.ConversationID, r.UserID}] = r
	return nil
}

// GetReceipt returns the watermark of userID in a conversation.
func (s *Store) GetReceipt(_ context.Context, conversationID, userID string) (chat.ReadReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.receipts[pairKey{conversationID, userID}]
	if !ok {
		return chat.ReadReceipt{}, notFound("receipt", conversationID+"/"+userID)
	}
	return r, nil
}
