package chat

import (
	"context"
	"time"
)

// EventKind names the mutation behind an Event.
type EventKind string

const (
	EventConversationCreated EventKind = "conversation.created"
	EventMessageCreated      EventKind = "message.created"
	EventMessageDeleted      EventKind = "message.deleted"
	EventReactionToggled     EventKind = "reaction.toggled"
	EventTypingChanged       EventKind = "typing.changed"
	EventReadUpdated         EventKind = "read.updated"
	EventPresenceChanged     EventKind = "presence.changed"
	EventUserUpdated         EventKind = "user.updated"
)

// An Event tells subscribers that state behind their reads has changed.
// Subscribers re-invoke the affected read operations; events carry no
// state of their own.
type Event struct {
	Kind           EventKind `json:"kind"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	At             time.Time `json:"at"`
}

// A Notifier delivers events to subscribers.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
}
