package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
)

const (
	lockPrefix = "lock"
	// lockExpiry bounds how long a crashed holder keeps a key locked.
	lockExpiry = 5 * time.Second
	lockTries  = 64
)

// Lock acquires a distributed mutex on key. It satisfies chat.Locker.
func (r *Redis) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	m := r.rs.NewMutex(
		fmt.Sprintf("%s:%s", lockPrefix, key),
		redsync.WithExpiry(lockExpiry),
		redsync.WithTries(lockTries),
		redsync.WithRetryDelay(25*time.Millisecond),
	)
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if _, err := m.UnlockContext(ctx); err != nil {
			return fmt.Errorf("unlock %s: %w", key, err)
		}
		return nil
	}, nil
}
