package postgres

import (
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/uptrace/bun"
)

// A user represents a user profile in the database.
type user struct {
	bun.BaseModel `bun:"table:users"`

	ID         string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	ExternalID string    `bun:",notnull,unique"`
	Name       string    `bun:",notnull"`
	Email      string    `bun:",notnull"`
	ImageURL   string    `bun:",nullzero"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:now()"`
}

// A conversation represents a direct or group thread. DirectKey is NULL
// for groups, so the unique constraint only binds direct conversations.
type conversation struct {
	bun.BaseModel `bun:"table:conversations"`

	ID                 string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	Kind               string    `bun:",notnull"`
	ParticipantIDs     []string  `bun:",array,notnull"`
	GroupName          string    `bun:",nullzero"`
	DirectKey          string    `bun:",nullzero,unique"`
	LastMessageTime    time.Time `bun:",nullzero"`
	LastMessagePreview string    `bun:",nullzero"`
	CreatedAt          time.Time `bun:",nullzero,notnull,default:now()"`
}

// A message represents a message in the database. Seq orders messages with
// equal timestamps by insertion.
type message struct {
	bun.BaseModel `bun:"table:messages"`

	ID             string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	Seq            int64     `bun:",autoincrement"`
	ConversationID string    `bun:",notnull,type:uuid"`
	SenderID       string    `bun:",notnull"`
	Content        string    `bun:",notnull"`
	Deleted        bool      `bun:",notnull,default:false"`
	CreatedAt      time.Time `bun:",nullzero,notnull,default:now()"`
}

type reaction struct {
	bun.BaseModel `bun:"table:reactions"`

	ID        string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	MessageID string    `bun:",notnull,type:uuid"`
	UserID    string    `bun:",notnull"`
	Emoji     string    `bun:",notnull"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:now()"`
}

type presence struct {
	bun.BaseModel `bun:"table:presence"`

	UserID   string    `bun:",pk"`
	Online   bool      `bun:",notnull"`
	LastSeen time.Time `bun:",notnull"`
}

type typingState struct {
	bun.BaseModel `bun:"table:typing"`

	ConversationID string    `bun:",pk,type:uuid"`
	UserID         string    `bun:",pk"`
	UserName       string    `bun:",notnull"`
	UpdatedAt      time.Time `bun:",notnull"`
}

type readReceipt struct {
	bun.BaseModel `bun:"table:read_receipts"`

	ConversationID string    `bun:",pk,type:uuid"`
	UserID         string    `bun:",pk"`
	LastReadTime   time.Time `bun:",notnull"`
}

func (u user) ChatUser() chat.User {
	return chat.User{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Name:       u.Name,
		Email:      u.Email,
		ImageURL:   u.ImageURL,
		CreatedAt:  u.CreatedAt,
	}
}

func (c conversation) ChatConversation() chat.Conversation {
	out := chat.Conversation{
		ID:                 c.ID,
		Kind:               chat.Kind(c.Kind),
		ParticipantIDs:     c.ParticipantIDs,
		GroupName:          c.GroupName,
		LastMessagePreview: c.LastMessagePreview,
		CreatedAt:          c.CreatedAt,
		DirectKey:          c.DirectKey,
	}
	if !c.LastMessageTime.IsZero() {
		t := c.LastMessageTime
		out.LastMessageTime = &t
	}
	return out
}

func (m message) ChatMessage() chat.Message {
	return chat.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Deleted:        m.Deleted,
		CreatedAt:      m.CreatedAt,
	}
}

func (r reaction) ChatReaction() chat.Reaction {
	return chat.Reaction{
		ID:        r.ID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
		CreatedAt: r.CreatedAt,
	}
}

func (p presence) ChatPresence() chat.Presence {
	return chat.Presence{UserID: p.UserID, Online: p.Online, LastSeen: p.LastSeen}
}

func (t typingState) ChatTypingState() chat.TypingState {
	return chat.TypingState{
		ConversationID: t.ConversationID,
		UserID:         t.UserID,
		UserName:       t.UserName,
		UpdatedAt:      t.UpdatedAt,
	}
}
