package chat

import (
	"context"
	"fmt"
	"time"
)

const (
	// OnlineWindow is how long a heartbeat keeps a user online.
	OnlineWindow = 30 * time.Second
	// HeartbeatInterval is how often connected clients should heartbeat.
	HeartbeatInterval = 20 * time.Second
)

// PresenceTracker records heartbeats and derives online status at query
// time. Nothing expires in the store; a user who stops heartbeating simply
// reads as offline once OnlineWindow has passed.
type PresenceTracker struct {
	store PresenceStore
	settings
}

// NewPresenceTracker returns a PresenceTracker backed by store.
func NewPresenceTracker(store PresenceStore, opts ...Option) *PresenceTracker {
	return &PresenceTracker{store: store, settings: newSettings(opts)}
}

// OnlineAt reports whether p is effectively online at now.
func (p Presence) OnlineAt(now time.Time) bool {
	return p.Online && now.Sub(p.LastSeen) < OnlineWindow
}

// Heartbeat records that userID was seen now with the reported flag.
func (t *PresenceTracker) Heartbeat(ctx context.Context, userID string, online bool) error {
	if userID == "" {
		return fmt.Errorf("user is empty: %w", ErrInvalidArgument)
	}
	now := t.now()
	if err := t.store.UpsertPresence(ctx, Presence{UserID: userID, Online: online, LastSeen: now}); err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	t.publish(ctx, Event{Kind: EventPresenceChanged, UserID: userID, At: now})
	return nil
}

// IsOnline reports whether userID is online.
func (t *PresenceTracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	statuses, err := t.IsOnlineBulk(ctx, []string{userID})
	if err != nil {
		return false, err
	}
	for _, s := range statuses {
		if s.UserID == userID {
			return s.Online, nil
		}
	}
	return false, nil
}

// IsOnlineBulk returns the status of every requested user that has ever
// heartbeated.
func (t *PresenceTracker) IsOnlineBulk(ctx context.Context, userIDs []string) ([]PresenceStatus, error) {
	if len(userIDs) == 0 {
		return []PresenceStatus{}, nil
	}
	records, err := t.store.GetPresences(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get presences: %w", err)
	}
	now := t.now()
	out := make([]PresenceStatus, len(records))
	for i, p := range records {
		out[i] = PresenceStatus{UserID: p.UserID, Online: p.OnlineAt(now), LastSeen: p.LastSeen}
	}
	return out, nil
}

// ListOnline returns the users that are online now.
func (t *PresenceTracker) ListOnline(ctx context.Context) ([]string, error) {
	now := t.now()
	records, err := t.store.ListPresences(ctx, now.Add(-OnlineWindow))
	if err != nil {
		return nil, fmt.Errorf("list presences: %w", err)
	}
	out := make([]string, 0, len(records))
	for _, p := range records {
		if p.OnlineAt(now) {
			out = append(out, p.UserID)
		}
	}
	return out, nil
}
