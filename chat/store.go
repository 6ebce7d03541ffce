package chat

import (
	"context"
	"time"
)

// Store contracts. Lookups of a single missing record return an error
// wrapping ErrNotFound. Every method is safe for concurrent use.

// A UserStore persists user profiles keyed by their external identity.
type UserStore interface {
	// UpsertUser inserts u if no user has its ExternalID, otherwise it
	// patches the name, email and image of the existing record.
	UpsertUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, externalID string) (User, error)
	GetUsers(ctx context.Context, externalIDs []string) ([]User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// A ConversationStore persists conversations.
type ConversationStore interface {
	InsertConversation(ctx context.Context, c Conversation) (Conversation, error)
	// InsertDirectIfAbsent inserts c unless a conversation with the same
	// DirectKey exists, in which case the existing one is returned. The
	// boolean reports whether c was inserted.
	InsertDirectIfAbsent(ctx context.Context, c Conversation) (Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]Conversation, error)
}

// A MessageStore persists messages.
type MessageStore interface {
	// AppendMessage inserts m and sets the parent conversation's last
	// message time to m.CreatedAt and its preview to preview, as one atomic
	// unit.
	AppendMessage(ctx context.Context, m Message, preview string) (Message, error)
	GetMessage(ctx context.Context, id string) (Message, error)
	// ListMessages returns the messages of a conversation by created-at
	// ascending, insertion order for equal timestamps.
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	MarkMessageDeleted(ctx context.Context, id, placeholder string) (Message, error)
	// CountUnread counts messages of a conversation created after the given
	// time and not sent by userID.
	CountUnread(ctx context.Context, conversationID, userID string, after time.Time) (int, error)
}

// A ReactionStore persists reactions.
type ReactionStore interface {
	// ToggleReaction deletes the reaction with r's (message, user, emoji)
	// triple if it exists and inserts r otherwise. It reports whether r was
	// inserted.
	ToggleReaction(ctx context.Context, r Reaction) (bool, error)
	ListReactions(ctx context.Context, messageIDs []string) ([]Reaction, error)
}

// A PresenceStore persists heartbeats.
type PresenceStore interface {
	UpsertPresence(ctx context.Context, p Presence) error
	GetPresences(ctx context.Context, userIDs []string) ([]Presence, error)
	// ListPresences returns the records whose last heartbeat is after since.
	ListPresences(ctx context.Context, since time.Time) ([]Presence, error)
}

// A TypingStore persists typing states.
type TypingStore interface {
	// UpsertTyping inserts t, or refreshes only UpdatedAt when a record for
	// the same conversation and user exists.
	UpsertTyping(ctx context.Context, t TypingState) error
	DeleteTyping(ctx context.Context, conversationID, userID string) error
	ListTyping(ctx context.Context, conversationID string) ([]TypingState, error)
}

// A ReceiptStore persists read watermarks.
type ReceiptStore interface {
	UpsertReceipt(ctx context.Context, r ReadReceipt) error
	GetReceipt(ctx context.Context, conversationID, userID string) (ReadReceipt, error)
}

// LivenessStore holds the short-lived signals.
type LivenessStore interface {
	PresenceStore
	TypingStore
}

// Store is the complete storage substrate.
type Store interface {
	UserStore
	ConversationStore
	MessageStore
	ReactionStore
	LivenessStore
	ReceiptStore
}

// A Locker provides mutual exclusion scopes keyed by string.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned
	// function releases it.
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// A Clock tells the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}
