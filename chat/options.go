package chat

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// An Option configures a component.
type Option func(*settings)

type settings struct {
	clock  Clock
	logger *slog.Logger
	notify Notifier
	locker Locker
}

// WithClock sets the time source. The default is SystemClock.
func WithClock(c Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithNotifier sets where change events are published.
func WithNotifier(n Notifier) Option {
	return func(s *settings) { s.notify = n }
}

// WithLocker makes direct conversation creation run inside a lock scope
// keyed by the participant pair.
func WithLocker(l Locker) Option {
	return func(s *settings) { s.locker = l }
}

func newSettings(opts []Option) settings {
	s := settings{
		clock:  SystemClock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// now returns the clock reading truncated to milliseconds.
func (s settings) now() time.Time {
	return time.UnixMilli(s.clock.Now().UnixMilli()).UTC()
}

func (s settings) publish(ctx context.Context, e Event) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Publish(ctx, e); err != nil {
		s.logger.Warn("Could not publish event", "kind", string(e.Kind), "error", err.Error())
	}
}
