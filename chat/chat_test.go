package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/GetStream/realtime-chat-backend/memstore"
	"github.com/neilotoole/slogt"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// manualClock is a chat.Clock that only moves when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder is a chat.Notifier that keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []chat.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e chat.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) kinds() []chat.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

type fixture struct {
	svc    *chat.Service
	store  *memstore.Store
	clock  *manualClock
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		clock:  &manualClock{now: epoch},
		events: &recorder{},
	}
	f.svc = chat.NewService(f.store, nil,
		chat.WithClock(f.clock),
		chat.WithLogger(slogt.New(t)),
		chat.WithNotifier(f.events),
	)
	return f
}

func (f *fixture) direct(t *testing.T, a, b string) chat.Conversation {
	t.Helper()
	c, err := f.svc.Conversations.GetOrCreateDirect(context.Background(), a, b)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func (f *fixture) send(t *testing.T, conversationID, sender, content string) chat.Message {
	t.Helper()
	m, err := f.svc.Messages.Send(context.Background(), conversationID, sender, content)
	if err != nil {
		t.Fatal(err)
	}
	return m
}
