package chat

import (
	"context"
	"fmt"
	"time"
)

const (
	// TypingWindow is how long a keystroke keeps a user typing.
	TypingWindow = 3 * time.Second
	// TypingIdleTimeout is how long clients wait after the last keystroke
	// before reporting that typing stopped.
	TypingIdleTimeout = 2 * time.Second
)

// TypingTracker records keystrokes per conversation and user. A record
// reads as typing while it is younger than TypingWindow and is deleted
// outright when typing stops.
type TypingTracker struct {
	store         TypingStore
	conversations ConversationStore
	settings
}

// NewTypingTracker returns a TypingTracker backed by store. Conversation
// existence is checked against conversations.
func NewTypingTracker(store TypingStore, conversations ConversationStore, opts ...Option) *TypingTracker {
	return &TypingTracker{store: store, conversations: conversations, settings: newSettings(opts)}
}

// TypingAt reports whether the state is still live at now.
func (s TypingState) TypingAt(now time.Time) bool {
	return now.Sub(s.UpdatedAt) < TypingWindow
}

// SetTyping starts or refreshes the typing state of userID when typing is
// true and removes it otherwise.
func (t *TypingTracker) SetTyping(ctx context.Context, conversationID, userID, userName string, typing bool) error {
	if userID == "" {
		return fmt.Errorf("user is empty: %w", ErrInvalidArgument)
	}
	if _, err := t.conversations.GetConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}

	now := t.now()
	if typing {
		err := t.store.UpsertTyping(ctx, TypingState{
			ConversationID: conversationID,
			UserID:         userID,
			UserName:       userName,
			UpdatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("upsert typing: %w", err)
		}
	} else if err := t.store.DeleteTyping(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("delete typing: %w", err)
	}

	t.publish(ctx, Event{Kind: EventTypingChanged, ConversationID: conversationID, UserID: userID, At: now})
	return nil
}

// TypingUsers returns who is typing in a conversation, never including
// self.
func (t *TypingTracker) TypingUsers(ctx context.Context, conversationID, self string) ([]TypingUser, error) {
	records, err := t.store.ListTyping(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list typing: %w", err)
	}
	now := t.now()
	out := make([]TypingUser, 0, len(records))
	for _, r := range records {
		if r.UserID == self || !r.TypingAt(now) {
			continue
		}
		out = append(out, TypingUser{UserID: r.UserID, UserName: r.UserName})
	}
	return out, nil
}
