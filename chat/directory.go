package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Directory creates and finds conversations.
type Directory struct {
	store ConversationStore
	settings
}

// NewDirectory returns a Directory backed by store.
func NewDirectory(store ConversationStore, opts ...Option) *Directory {
	return &Directory{store: store, settings: newSettings(opts)}
}

// DirectKey returns the key identifying the direct conversation between a
// and b, independent of argument order.
func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// GetOrCreateDirect returns the direct conversation between userA and
// userB, creating it when none exists. Concurrent calls for the same pair,
// in either order, all observe the same conversation.
func (d *Directory) GetOrCreateDirect(ctx context.Context, userA, userB string) (Conversation, error) {
	if userA == "" || userB == "" {
		return Conversation{}, fmt.Errorf("direct conversation needs two users: %w", ErrInvalidArgument)
	}
	if userA == userB {
		return Conversation{}, fmt.Errorf("direct conversation with oneself: %w", ErrInvalidArgument)
	}
	key := DirectKey(userA, userB)

	if d.locker != nil {
		unlock, err := d.locker.Lock(ctx, "direct:"+key)
		if err != nil {
			return Conversation{}, fmt.Errorf("lock pair: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				d.logger.Warn("Could not release pair lock", "key", key, "error", err.Error())
			}
		}()
	}

	c, created, err := d.store.InsertDirectIfAbsent(ctx, Conversation{
		Kind:           KindDirect,
		ParticipantIDs: []string{userA, userB},
		CreatedAt:      d.now(),
		DirectKey:      key,
	})
	if err != nil {
		return Conversation{}, fmt.Errorf("insert direct conversation: %w", err)
	}
	if created {
		d.logger.Info("Created direct conversation", "conversation_id", c.ID, "key", key)
		d.publish(ctx, Event{Kind: EventConversationCreated, ConversationID: c.ID, UserID: userA, At: c.CreatedAt})
	}
	return c, nil
}

// CreateGroup creates a group named name. The creator comes first, then
// memberIDs in first-seen order without duplicates. Groups are never
// deduplicated.
func (d *Directory) CreateGroup(ctx context.Context, creator string, memberIDs []string, name string) (Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Conversation{}, fmt.Errorf("group name is empty: %w", ErrInvalidArgument)
	}
	if creator == "" {
		return Conversation{}, fmt.Errorf("group creator is empty: %w", ErrInvalidArgument)
	}

	participants := []string{creator}
	seen := map[string]bool{creator: true}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}
	if len(participants) < 2 {
		return Conversation{}, fmt.Errorf("group has no members: %w", ErrInvalidArgument)
	}

	c, err := d.store.InsertConversation(ctx, Conversation{
		Kind:           KindGroup,
		ParticipantIDs: participants,
		GroupName:      name,
		CreatedAt:      d.now(),
	})
	if err != nil {
		return Conversation{}, fmt.Errorf("insert group: %w", err)
	}
	d.logger.Info("Created group", "conversation_id", c.ID, "members", len(participants))
	d.publish(ctx, Event{Kind: EventConversationCreated, ConversationID: c.ID, UserID: creator, At: c.CreatedAt})
	return c, nil
}

// ListForUser returns the conversations of userID, most recent activity
// first.
func (d *Directory) ListForUser(ctx context.Context, userID string) ([]Conversation, error) {
	convs, err := d.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	sort.SliceStable(convs, func(i, j int) bool {
		ai, aj := convs[i].Activity(), convs[j].Activity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return convs[i].ID < convs[j].ID
	})
	return convs, nil
}

// Get looks up a conversation. A missing conversation is reported through
// the boolean, not as an error.
func (d *Directory) Get(ctx context.Context, id string) (Conversation, bool, error) {
	c, err := d.store.GetConversation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, fmt.Errorf("get conversation: %w", err)
	}
	return c, true, nil
}
