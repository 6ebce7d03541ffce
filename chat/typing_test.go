package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/google/go-cmp/cmp"
)

func TestTyping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Conversations.CreateGroup(ctx, "alice", []string{"bob", "carol"}, "Team")
	if err != nil {
		t.Fatal(err)
	}

	typing := func(self string) []chat.TypingUser {
		t.Helper()
		users, err := f.svc.Typing.TypingUsers(ctx, c.ID, self)
		if err != nil {
			t.Fatal(err)
		}
		return users
	}

	if err := f.svc.Typing.SetTyping(ctx, c.ID, "bob", "Bob", true); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Typing.SetTyping(ctx, c.ID, "alice", "Alice", true); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]chat.TypingUser{{UserID: "bob", UserName: "Bob"}}, typing("alice")); diff != "" {
		t.Errorf("typing seen by alice mismatch (-want +got):\n%s", diff)
	}
	want := []chat.TypingUser{{UserID: "alice", UserName: "Alice"}, {UserID: "bob", UserName: "Bob"}}
	if diff := cmp.Diff(want, typing("carol")); diff != "" {
		t.Errorf("typing seen by carol mismatch (-want +got):\n%s", diff)
	}

	// Refreshing keeps the name recorded by the first keystroke.
	f.clock.Advance(2 * time.Second)
	if err := f.svc.Typing.SetTyping(ctx, c.ID, "bob", "Robert", true); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(1500 * time.Millisecond)
	if diff := cmp.Diff([]chat.TypingUser{{UserID: "bob", UserName: "Bob"}}, typing("carol")); diff != "" {
		t.Errorf("typing after refresh mismatch (-want +got):\n%s", diff)
	}

	if err := f.svc.Typing.SetTyping(ctx, c.ID, "bob", "", false); err != nil {
		t.Fatal(err)
	}
	if got := typing("carol"); len(got) != 0 {
		t.Errorf("Got %v typing after stop, want none", got)
	}
	records, err := f.store.ListTyping(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		if r.UserID == "bob" {
			t.Error("Stopping left the typing record in place")
		}
	}
}

func TestTyping_window(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{name: "JustInside", elapsed: 2999 * time.Millisecond, want: 1},
		{name: "Boundary", elapsed: 3 * time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			c := f.direct(t, "alice", "bob")
			if err := f.svc.Typing.SetTyping(ctx, c.ID, "bob", "Bob", true); err != nil {
				t.Fatal(err)
			}
			f.clock.Advance(tt.elapsed)
			users, err := f.svc.Typing.TypingUsers(ctx, c.ID, "alice")
			if err != nil {
				t.Fatal(err)
			}
			if len(users) != tt.want {
				t.Errorf("Got %d typing users, want %d", len(users), tt.want)
			}
		})
	}
}

func TestTyping_SetTyping_errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Typing.SetTyping(ctx, "missing", "bob", "Bob", true); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("SetTyping(missing) error = %v, want ErrNotFound", err)
	}
	c := f.direct(t, "alice", "bob")
	if err := f.svc.Typing.SetTyping(ctx, c.ID, "", "Bob", true); !errors.Is(err, chat.ErrInvalidArgument) {
		t.Errorf("SetTyping(no user) error = %v, want ErrInvalidArgument", err)
	}
}
