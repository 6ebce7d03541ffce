package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// bulkConcurrency bounds the conversations counted at once by
// UnreadCountsBulk.
const bulkConcurrency = 8

// Unread keeps read watermarks and derives unread counts from them.
type Unread struct {
	receipts      ReceiptStore
	messages      MessageStore
	conversations ConversationStore
	settings
}

// NewUnread returns Unread backed by the given stores.
func NewUnread(receipts ReceiptStore, messages MessageStore, conversations ConversationStore, opts ...Option) *Unread {
	return &Unread{
		receipts:      receipts,
		messages:      messages,
		conversations: conversations,
		settings:      newSettings(opts),
	}
}

// MarkRead moves the read watermark of userID in a conversation to now.
func (u *Unread) MarkRead(ctx context.Context, conversationID, userID string) error {
	if userID == "" {
		return fmt.Errorf("user is empty: %w", ErrInvalidArgument)
	}
	if _, err := u.conversations.GetConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	now := u.now()
	err := u.receipts.UpsertReceipt(ctx, ReadReceipt{
		ConversationID: conversationID,
		UserID:         userID,
		LastReadTime:   now,
	})
	if err != nil {
		return fmt.Errorf("upsert receipt: %w", err)
	}
	u.publish(ctx, Event{Kind: EventReadUpdated, ConversationID: conversationID, UserID: userID, At: now})
	return nil
}

// UnreadCount counts the messages of others created after the watermark of
// userID. Without a watermark every message of others is unread.
func (u *Unread) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var after time.Time
	r, err := u.receipts.GetReceipt(ctx, conversationID, userID)
	switch {
	case err == nil:
		after = r.LastReadTime
	case !errors.Is(err, ErrNotFound):
		return 0, fmt.Errorf("get receipt: %w", err)
	}

	n, err := u.messages.CountUnread(ctx, conversationID, userID, after)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// UnreadCountsBulk computes UnreadCount for each conversation
// independently.
func (u *Unread) UnreadCountsBulk(ctx context.Context, userID string, conversationIDs []string) (map[string]int, error) {
	var mu sync.Mutex
	out := make(map[string]int, len(conversationIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, id := range conversationIDs {
		g.Go(func() error {
			n, err := u.UnreadCount(ctx, id, userID)
			if err != nil {
				return fmt.Errorf("conversation %s: %w", id, err)
			}
			mu.Lock()
			out[id] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
