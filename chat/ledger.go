package chat

import (
	"context"
	"fmt"
	"strings"
)

const (
	// PreviewLength is the number of characters kept in a conversation's
	// last message preview.
	PreviewLength = 60
	// DeletedPlaceholder replaces the content of a deleted message.
	DeletedPlaceholder = "This message was deleted"
)

// Ledger appends and reads messages.
type Ledger struct {
	store MessageStore
	settings
}

// NewLedger returns a Ledger backed by store.
func NewLedger(store MessageStore, opts ...Option) *Ledger {
	return &Ledger{store: store, settings: newSettings(opts)}
}

// Preview returns the first PreviewLength characters of content.
func Preview(content string) string {
	n := 0
	for i := range content {
		if n == PreviewLength {
			return content[:i]
		}
		n++
	}
	return content
}

// Send appends a message to a conversation and updates the conversation's
// recency metadata in the same atomic step.
func (l *Ledger) Send(ctx context.Context, conversationID, senderID, content string) (Message, error) {
	if senderID == "" {
		return Message{}, fmt.Errorf("sender is empty: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, fmt.Errorf("message is empty: %w", ErrInvalidArgument)
	}

	msg, err := l.store.AppendMessage(ctx, Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      l.now(),
	}, Preview(content))
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	l.publish(ctx, Event{Kind: EventMessageCreated, ConversationID: conversationID, MessageID: msg.ID, UserID: senderID, At: msg.CreatedAt})
	return msg, nil
}

// List returns the messages of a conversation, oldest first. Deleted
// messages are included with placeholder content.
func (l *Ledger) List(ctx context.Context, conversationID string) ([]Message, error) {
	msgs, err := l.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// SoftDelete marks a message deleted and replaces its content. Only the
// sender may delete a message. Deletion cannot be undone. Deleting again is
// a no-op.
func (l *Ledger) SoftDelete(ctx context.Context, messageID, requesterID string) (Message, error) {
	msg, err := l.store.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	if msg.SenderID != requesterID {
		return Message{}, fmt.Errorf("delete message of %s: %w", msg.SenderID, ErrUnauthorized)
	}
	if msg.Deleted {
		return msg, nil
	}

	msg, err = l.store.MarkMessageDeleted(ctx, messageID, DeletedPlaceholder)
	if err != nil {
		return Message{}, fmt.Errorf("mark deleted: %w", err)
	}
	l.logger.Info("Deleted message", "message_id", messageID, "conversation_id", msg.ConversationID)
	l.publish(ctx, Event{Kind: EventMessageDeleted, ConversationID: msg.ConversationID, MessageID: messageID, UserID: requesterID, At: l.now()})
	return msg, nil
}
