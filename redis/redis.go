// Package redis keeps the short-lived chat signals, presence and typing, in
// Redis and relays change events over Pub/Sub.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Redis provides liveness storage in Redis. Nothing is written with an
// expiry; staleness is decided by the reader.
type Redis struct {
	cli *redis.Client
	rs  *redsync.Redsync
}

var (
	_ chat.LivenessStore = (*Redis)(nil)
	_ chat.Notifier      = (*Redis)(nil)
	_ chat.Locker        = (*Redis)(nil)
)

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
		rs:  redsync.New(goredis.NewPool(cli)),
	}, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.cli.Close()
}

// Ping checks that the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

const (
	presencePrefix = "presence"
	typingPrefix   = "typing"
)

func presenceKey(userID string) string {
	return fmt.Sprintf("%s:%s", presencePrefix, userID)
}

// typingKeys returns the sorted set of user ids scored by last keystroke
// and the hash of user names for a conversation.
func typingKeys(conversationID string) (string, string) {
	key := fmt.Sprintf("%s:%s", typingPrefix, conversationID)
	return key, key + ":names"
}

// UpsertPresence writes the heartbeat hash and its score in the presence
// sorted set in one MULTI block.
func (r *Redis) UpsertPresence(ctx context.Context, p chat.Presence) error {
	ms := p.LastSeen.UnixMilli()
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, presenceKey(p.UserID), &presence{
			UserID:   p.UserID,
			Online:   p.Online,
			LastSeen: ms,
		})
		pipe.ZAdd(ctx, presencePrefix, redis.Z{
			Score:  float64(ms),
			Member: p.UserID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis upsert presence: %w", err)
	}
	return nil
}

func (r *Redis) loadPresences(ctx context.Context, userIDs []string) ([]chat.Presence, error) {
	cmds := make([]*redis.MapStringStringCmd, len(userIDs))
	_, err := r.cli.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range userIDs {
			cmds[i] = pipe.HGetAll(ctx, presenceKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}

	out := make([]chat.Presence, 0, len(userIDs))
	for _, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			continue
		}
		var p presence
		if err := cmd.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		out = append(out, p.ChatPresence())
	}
	return out, nil
}

// GetPresences returns the heartbeats that exist among userIDs.
func (r *Redis) GetPresences(ctx context.Context, userIDs []string) ([]chat.Presence, error) {
	return r.loadPresences(ctx, userIDs)
}

// ListPresences returns the heartbeats newer than since.
func (r *Redis) ListPresences(ctx context.Context, since time.Time) ([]chat.Presence, error) {
	ids, err := r.cli.ZRangeByScore(ctx, presencePrefix, &redis.ZRangeBy{
		Min: fmt.Sprintf("(%d", since.UnixMilli()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}
	if len(ids) == 0 {
		return []chat.Presence{}, nil
	}
	return r.loadPresences(ctx, ids)
}

// UpsertTyping scores the user with the keystroke time and records the
// name only if none is stored yet.
func (r *Redis) UpsertTyping(ctx context.Context, t chat.TypingState) error {
	set, names := typingKeys(t.ConversationID)
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, set, redis.Z{
			Score:  float64(t.UpdatedAt.UnixMilli()),
			Member: t.UserID,
		})
		pipe.HSetNX(ctx, names, t.UserID, t.UserName)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis upsert typing: %w", err)
	}
	return nil
}

// DeleteTyping removes the typing record of a user, if any.
func (r *Redis) DeleteTyping(ctx context.Context, conversationID, userID string) error {
	set, names := typingKeys(conversationID)
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, set, userID)
		pipe.HDel(ctx, names, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete typing: %w", err)
	}
	return nil
}

// ListTyping reads the set and the names in one MULTI block so both come
// from the same state.
func (r *Redis) ListTyping(ctx context.Context, conversationID string) ([]chat.TypingState, error) {
	set, names := typingKeys(conversationID)
	var (
		scores *redis.ZSliceCmd
		byUser *redis.MapStringStringCmd
	)
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		scores = pipe.ZRangeWithScores(ctx, set, 0, -1)
		byUser = pipe.HGetAll(ctx, names)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list typing: %w", err)
	}

	nameOf := byUser.Val()
	out := make([]chat.TypingState, 0, len(scores.Val()))
	for _, z := range scores.Val() {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, chat.TypingState{
			ConversationID: conversationID,
			UserID:         userID,
			UserName:       nameOf[userID],
			UpdatedAt:      time.UnixMilli(int64(z.Score)).UTC(),
		})
	}
	return out, nil
}

// String describes the connection for logs.
func (r *Redis) String() string {
	return "redis " + r.cli.Options().Addr + "/" + strconv.Itoa(r.cli.Options().DB)
}
