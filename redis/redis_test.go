package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// connect returns a client, or skips the test when REDIS_ADDR is not set.
func connect(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r, err := Connect(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestEventChannel(t *testing.T) {
	if got := eventChannel(""); got != "events" {
		t.Errorf("Got %q for the global topic, want events", got)
	}
	if got := eventChannel("c1"); got != "events:c1" {
		t.Errorf("Got %q, want events:c1", got)
	}
}

func TestPresenceRoundTrip(t *testing.T) {
	p := presence{UserID: "u", Online: true, LastSeen: 1704067200123}
	want := chat.Presence{UserID: "u", Online: true, LastSeen: time.Date(2024, 1, 1, 0, 0, 0, 123e6, time.UTC)}
	if diff := cmp.Diff(want, p.ChatPresence()); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestRedis_presence(t *testing.T) {
	r := connect(t)
	ctx := context.Background()
	user := uuid.NewString()
	at := time.UnixMilli(time.Now().UnixMilli()).UTC()

	if err := r.UpsertPresence(ctx, chat.Presence{UserID: user, Online: true, LastSeen: at}); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetPresences(ctx, []string{user, uuid.NewString()})
	if err != nil {
		t.Fatal(err)
	}
	want := []chat.Presence{{UserID: user, Online: true, LastSeen: at}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("presences mismatch (-want +got):\n%s", diff)
	}

	listed := func(since time.Time) bool {
		t.Helper()
		ps, err := r.ListPresences(ctx, since)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range ps {
			if p.UserID == user {
				return true
			}
		}
		return false
	}
	if !listed(at.Add(-time.Millisecond)) {
		t.Error("Heartbeat missing from a window that contains it")
	}
	if listed(at) {
		t.Error("Heartbeat listed at the exclusive lower bound")
	}
}

func TestRedis_typing(t *testing.T) {
	r := connect(t)
	ctx := context.Background()
	conv, user := uuid.NewString(), uuid.NewString()
	at := time.UnixMilli(time.Now().UnixMilli()).UTC()

	if err := r.UpsertTyping(ctx, chat.TypingState{ConversationID: conv, UserID: user, UserName: "First", UpdatedAt: at}); err != nil {
		t.Fatal(err)
	}
	later := at.Add(time.Second)
	if err := r.UpsertTyping(ctx, chat.TypingState{ConversationID: conv, UserID: user, UserName: "Second", UpdatedAt: later}); err != nil {
		t.Fatal(err)
	}
	got, err := r.ListTyping(ctx, conv)
	if err != nil {
		t.Fatal(err)
	}
	want := []chat.TypingState{{ConversationID: conv, UserID: user, UserName: "First", UpdatedAt: later}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("typing mismatch (-want +got):\n%s", diff)
	}

	if err := r.DeleteTyping(ctx, conv, user); err != nil {
		t.Fatal(err)
	}
	if got, _ := r.ListTyping(ctx, conv); len(got) != 0 {
		t.Errorf("Got %v after delete, want none", got)
	}
}

func TestRedis_pubsub(t *testing.T) {
	r := connect(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conv := uuid.NewString()

	events, err := r.Subscribe(ctx, conv)
	if err != nil {
		t.Fatal(err)
	}
	sent := chat.Event{Kind: chat.EventMessageCreated, ConversationID: conv, MessageID: "m1", At: time.UnixMilli(1704067200000).UTC()}
	if err := r.Publish(ctx, sent); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if diff := cmp.Diff(sent, got); diff != "" {
			t.Errorf("event mismatch (-want +got):\n%s", diff)
		}
	case <-ctx.Done():
		t.Fatal("No event received")
	}
}

func TestRedis_Lock(t *testing.T) {
	r := connect(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	unlock, err := r.Lock(ctx, key)
	if err != nil {
		t.Fatal(err)
	}

	short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if _, err := r.Lock(short, key); err == nil {
		t.Error("Second Lock succeeded while the key was held")
	}

	if err := unlock(ctx); err != nil {
		t.Fatal(err)
	}
	unlock, err = r.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	if err := unlock(ctx); err != nil {
		t.Fatal(err)
	}
}
