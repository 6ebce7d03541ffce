package chat

import "time"

// A User is a profile synced from the identity provider.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Kind distinguishes direct conversations from group conversations.
type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
)

// A Conversation is a direct or group messaging thread.
type Conversation struct {
	ID                 string     `json:"id"`
	Kind               Kind       `json:"kind"`
	ParticipantIDs     []string   `json:"participant_ids"`
	GroupName          string     `json:"group_name,omitempty"`
	LastMessageTime    *time.Time `json:"last_message_time,omitempty"`
	LastMessagePreview string     `json:"last_message_preview,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`

	// DirectKey is the sorted participant pair of a direct conversation and
	// is empty for groups.
	DirectKey string `json:"-"`
}

// Activity returns the time used to order conversations by recency.
func (c Conversation) Activity() time.Time {
	if c.LastMessageTime != nil {
		return *c.LastMessageTime
	}
	return c.CreatedAt
}

// HasParticipant reports whether userID takes part in the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// A Message is a single entry in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Deleted        bool      `json:"deleted"`
	CreatedAt      time.Time `json:"created_at"`
}

// A Reaction is an emoji left on a message. Its existence is the reacted
// state.
type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionSummary aggregates the reactions of one emoji on a message.
type ReactionSummary struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	Count     int    `json:"count"`
	Reacted   bool   `json:"reacted"`
}

// Presence is the stored heartbeat of a user.
type Presence struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// PresenceStatus is the effective online state of a user at query time.
type PresenceStatus struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// TypingState is the last keystroke of a user in a conversation.
type TypingState struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TypingUser is a user currently typing in a conversation.
type TypingUser struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// A ReadReceipt is the read watermark of a user in a conversation.
type ReadReceipt struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	LastReadTime   time.Time `json:"last_read_time"`
}
