// Package chat implements the state of a realtime messaging backend:
// conversations, messages, reactions, read watermarks, presence and typing.
//
// Liveness (presence, typing) is derived at query time from stored
// timestamps. Unread counts are derived from messages and watermarks. All
// operations may be re-invoked at any time and return the current answer.
package chat

// Service bundles the components over one storage substrate.
type Service struct {
	Users         *Users
	Conversations *Directory
	Messages      *Ledger
	Reactions     *Reactions
	Presence      *PresenceTracker
	Typing        *TypingTracker
	Unread        *Unread
}

// NewService wires every component to store. When liveness is non-nil,
// presence and typing state live there instead.
func NewService(store Store, liveness LivenessStore, opts ...Option) *Service {
	if liveness == nil {
		liveness = store
	}
	return &Service{
		Users:         NewUsers(store, opts...),
		Conversations: NewDirectory(store, opts...),
		Messages:      NewLedger(store, opts...),
		Reactions:     NewReactions(store, store, opts...),
		Presence:      NewPresenceTracker(liveness, opts...),
		Typing:        NewTypingTracker(liveness, store, opts...),
		Unread:        NewUnread(store, store, store, opts...),
	}
}
