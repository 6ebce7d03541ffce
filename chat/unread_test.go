package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/google/go-cmp/cmp"
)

func TestUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.direct(t, "alice", "bob")

	count := func(userID string) int {
		t.Helper()
		n, err := f.svc.Unread.UnreadCount(ctx, c.ID, userID)
		if err != nil {
			t.Fatal(err)
		}
		return n
	}

	// Without a receipt every message of others is unread, even one sent
	// at the same instant the conversation was created.
	f.send(t, c.ID, "alice", "first")
	if got := count("bob"); got != 1 {
		t.Errorf("Got %d unread for bob, want 1", got)
	}
	if got := count("alice"); got != 0 {
		t.Errorf("Got %d unread for the sender, want 0", got)
	}

	f.clock.Advance(time.Second)
	if err := f.svc.Unread.MarkRead(ctx, c.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	if got := count("bob"); got != 0 {
		t.Errorf("Got %d unread after reading, want 0", got)
	}

	f.clock.Advance(time.Second)
	f.send(t, c.ID, "alice", "second")
	f.send(t, c.ID, "bob", "reply")
	f.clock.Advance(time.Millisecond)
	f.send(t, c.ID, "alice", "third")
	if got := count("bob"); got != 2 {
		t.Errorf("Got %d unread for bob, want 2", got)
	}
	if got := count("alice"); got != 1 {
		t.Errorf("Got %d unread for alice, want 1", got)
	}
}

func TestUnread_watermarkIsStrict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.direct(t, "alice", "bob")

	f.clock.Advance(time.Second)
	f.send(t, c.ID, "alice", "same instant")
	if err := f.svc.Unread.MarkRead(ctx, c.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	n, err := f.svc.Unread.UnreadCount(ctx, c.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Got %d unread for a message at the watermark, want 0", n)
	}
}

func TestUnread_MarkRead_errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Unread.MarkRead(ctx, "missing", "bob"); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("MarkRead(missing) error = %v, want ErrNotFound", err)
	}
	c := f.direct(t, "alice", "bob")
	if err := f.svc.Unread.MarkRead(ctx, c.ID, ""); !errors.Is(err, chat.ErrInvalidArgument) {
		t.Errorf("MarkRead(no user) error = %v, want ErrInvalidArgument", err)
	}
}

func TestUnread_UnreadCountsBulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	want := map[string]int{}
	var ids []string
	for i, other := range []string{"b", "c", "d", "e", "f", "g", "h", "i", "j", "k"} {
		c := f.direct(t, "a", other)
		for range i {
			f.send(t, c.ID, other, "hey")
		}
		ids = append(ids, c.ID)
		want[c.ID] = i
	}

	got, err := f.svc.Unread.UnreadCountsBulk(ctx, "a", ids)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}

	got, err = f.svc.Unread.UnreadCountsBulk(ctx, "a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("UnreadCountsBulk(nil) = %v, want empty", got)
	}
}

func TestUnread_group(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, err := f.svc.Conversations.CreateGroup(ctx, "ann", []string{"ben", "cal"}, "Trip")
	if err != nil {
		t.Fatal(err)
	}

	count := func(userID string) int {
		t.Helper()
		n, err := f.svc.Unread.UnreadCount(ctx, g.ID, userID)
		if err != nil {
			t.Fatal(err)
		}
		return n
	}

	f.clock.Advance(time.Second)
	f.send(t, g.ID, "ben", "hi")
	if got := count("ann"); got != 1 {
		t.Errorf("Got %d unread for ann, want 1", got)
	}

	f.clock.Advance(time.Second)
	if err := f.svc.Unread.MarkRead(ctx, g.ID, "ann"); err != nil {
		t.Fatal(err)
	}
	if got := count("ann"); got != 0 {
		t.Errorf("Got %d unread for ann after reading, want 0", got)
	}

	f.clock.Advance(time.Second)
	f.send(t, g.ID, "cal", "yo")
	if got := count("ann"); got != 1 {
		t.Errorf("Got %d unread for ann after cal wrote, want 1", got)
	}
	if got := count("ben"); got != 1 {
		t.Errorf("Got %d unread for ben, want 1", got)
	}
}

func TestUnread_ownMessagesAroundWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.direct(t, "xavier", "yara")
	at := func(sec int) {
		f.clock.Advance(epoch.Add(time.Duration(sec) * time.Second).Sub(f.clock.Now()))
	}

	at(10)
	f.send(t, c.ID, "xavier", "ten")
	at(12)
	if err := f.svc.Unread.MarkRead(ctx, c.ID, "xavier"); err != nil {
		t.Fatal(err)
	}
	at(15)
	f.send(t, c.ID, "yara", "fifteen")
	at(20)
	f.send(t, c.ID, "xavier", "twenty")

	n, err := f.svc.Unread.UnreadCount(ctx, c.ID, "xavier")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Got %d unread for xavier, want 1", n)
	}
}
