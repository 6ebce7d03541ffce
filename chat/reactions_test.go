package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestReactions_Toggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.direct(t, "alice", "bob")
	m := f.send(t, c.ID, "alice", "hi")

	for i, want := range []bool{true, false, true, false, true} {
		got, err := f.svc.Reactions.Toggle(ctx, m.ID, "bob", "👍")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Toggle #%d = %v, want %v", i+1, got, want)
		}
	}

	reactions, err := f.svc.Reactions.ListForMessages(ctx, []string{m.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(reactions) != 1 {
		t.Fatalf("Got %d reactions after an odd number of toggles, want 1", len(reactions))
	}

	var toggled []chat.Event
	for _, e := range f.events.events {
		if e.Kind == chat.EventReactionToggled {
			toggled = append(toggled, e)
		}
	}
	if len(toggled) != 5 || toggled[0].ConversationID != c.ID {
		t.Errorf("Got toggle events %+v, want 5 on conversation %s", toggled, c.ID)
	}
}

func TestReactions_Toggle_errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.direct(t, "alice", "bob")
	m := f.send(t, c.ID, "alice", "hi")

	tests := []struct {
		name      string
		messageID string
		userID    string
		emoji     string
		wantErr   error
	}{
		{name: "UnknownMessage", messageID: "missing", userID: "bob", emoji: "👍", wantErr: chat.ErrNotFound},
		{name: "NoUser", messageID: m.ID, emoji: "👍", wantErr: chat.ErrInvalidArgument},
		{name: "NoEmoji", messageID: m.ID, userID: "bob", wantErr: chat.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Reactions.Toggle(ctx, tt.messageID, tt.userID, tt.emoji); !errors.Is(err, tt.wantErr) {
				t.Errorf("Got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReactions_ListForMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.direct(t, "alice", "bob")
	m1 := f.send(t, c.ID, "alice", "one")
	m2 := f.send(t, c.ID, "bob", "two")

	got, err := f.svc.Reactions.ListForMessages(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListForMessages(nil) = %#v, want empty", got)
	}

	toggle := func(messageID, userID, emoji string) {
		t.Helper()
		f.clock.Advance(time.Millisecond)
		if _, err := f.svc.Reactions.Toggle(ctx, messageID, userID, emoji); err != nil {
			t.Fatal(err)
		}
	}
	toggle(m1.ID, "bob", "👍")
	toggle(m1.ID, "alice", "👍")
	toggle(m2.ID, "alice", "🎉")
	toggle(m1.ID, "bob", "❤️")

	got, err = f.svc.Reactions.ListForMessages(ctx, []string{m1.ID, m2.ID, m1.ID})
	if err != nil {
		t.Fatal(err)
	}
	want := []chat.Reaction{
		{MessageID: m1.ID, UserID: "bob", Emoji: "👍"},
		{MessageID: m1.ID, UserID: "alice", Emoji: "👍"},
		{MessageID: m2.ID, UserID: "alice", Emoji: "🎉"},
		{MessageID: m1.ID, UserID: "bob", Emoji: "❤️"},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(chat.Reaction{}, "ID", "CreatedAt")); diff != "" {
		t.Errorf("reactions mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	reactions := []chat.Reaction{
		{MessageID: "m1", UserID: "bob", Emoji: "👍"},
		{MessageID: "m1", UserID: "alice", Emoji: "👍"},
		{MessageID: "m2", UserID: "bob", Emoji: "👍"},
		{MessageID: "m1", UserID: "carol", Emoji: "🎉"},
	}
	want := []chat.ReactionSummary{
		{MessageID: "m1", Emoji: "👍", Count: 2, Reacted: true},
		{MessageID: "m2", Emoji: "👍", Count: 1, Reacted: false},
		{MessageID: "m1", Emoji: "🎉", Count: 1, Reacted: false},
	}
	if diff := cmp.Diff(want, chat.Summarize(reactions, "alice")); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if got := chat.Summarize(nil, "alice"); len(got) != 0 {
		t.Errorf("Summarize(nil) = %v, want empty", got)
	}
}

func TestReactions_Toggle_concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.direct(t, "alice", "bob")
	m := f.send(t, c.ID, "alice", "hi")

	const n = 101
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.svc.Reactions.Toggle(ctx, m.ID, "bob", "👍")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				added++
			}
		}()
	}
	wg.Wait()

	if removed := n - added; added-removed != 1 {
		t.Errorf("Got %d adds and %d removes, want one more add than removes", added, removed)
	}
	reactions, err := f.svc.Reactions.ListForMessages(ctx, []string{m.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(reactions) != 1 {
		t.Fatalf("Got %d reactions after %d concurrent toggles, want 1", len(reactions), n)
	}
}
