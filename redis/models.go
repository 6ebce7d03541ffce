package redis

import (
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
)

// presence represents a heartbeat stored in a hash. Times are kept as
// milliseconds since epoch.
type presence struct {
	UserID   string `redis:"user_id"`
	Online   bool   `redis:"online"`
	LastSeen int64  `redis:"last_seen"`
}

func (p presence) ChatPresence() chat.Presence {
	return chat.Presence{
		UserID:   p.UserID,
		Online:   p.Online,
		LastSeen: time.UnixMilli(p.LastSeen).UTC(),
	}
}
