package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/google/go-cmp/cmp"
)

func TestPresence_window(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		online  bool
		want    bool
	}{
		{name: "Fresh", elapsed: 0, online: true, want: true},
		{name: "JustInside", elapsed: 29999 * time.Millisecond, online: true, want: true},
		{name: "Boundary", elapsed: 30 * time.Second, online: true, want: false},
		{name: "Stale", elapsed: time.Hour, online: true, want: false},
		{name: "ReportedOffline", elapsed: 0, online: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if err := f.svc.Presence.Heartbeat(ctx, "alice", tt.online); err != nil {
				t.Fatal(err)
			}
			f.clock.Advance(tt.elapsed)

			got, err := f.svc.Presence.IsOnline(ctx, "alice")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("IsOnline() = %v, want %v", got, tt.want)
			}

			ids, err := f.svc.Presence.ListOnline(ctx)
			if err != nil {
				t.Fatal(err)
			}
			listed := len(ids) == 1 && ids[0] == "alice"
			if listed != tt.want {
				t.Errorf("ListOnline() = %v, want alice listed %v", ids, tt.want)
			}
		})
	}
}

func TestPresence_IsOnlineBulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.Presence.IsOnlineBulk(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("IsOnlineBulk(nil) = %#v, want empty", got)
	}

	if err := f.svc.Presence.Heartbeat(ctx, "alice", true); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(20 * time.Second)
	if err := f.svc.Presence.Heartbeat(ctx, "bob", true); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(15 * time.Second)

	got, err = f.svc.Presence.IsOnlineBulk(ctx, []string{"alice", "bob", "nobody"})
	if err != nil {
		t.Fatal(err)
	}
	want := []chat.PresenceStatus{
		{UserID: "alice", Online: false, LastSeen: epoch},
		{UserID: "bob", Online: true, LastSeen: epoch.Add(20 * time.Second)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestPresence_Heartbeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Presence.Heartbeat(ctx, "", true); !errors.Is(err, chat.ErrInvalidArgument) {
		t.Errorf("Heartbeat(\"\") error = %v, want ErrInvalidArgument", err)
	}

	if err := f.svc.Presence.Heartbeat(ctx, "alice", true); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(25 * time.Second)
	// A heartbeat extends the window.
	if err := f.svc.Presence.Heartbeat(ctx, "alice", true); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(25 * time.Second)
	online, err := f.svc.Presence.IsOnline(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !online {
		t.Error("Refreshed user reads offline")
	}

	if diff := cmp.Diff([]chat.EventKind{chat.EventPresenceChanged, chat.EventPresenceChanged}, f.events.kinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
