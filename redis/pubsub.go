package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GetStream/realtime-chat-backend/chat"
)

const eventsPrefix = "events"

// eventChannel returns the Pub/Sub channel of a topic. The empty topic is
// the global channel used for events without a conversation.
func eventChannel(topic string) string {
	if topic == "" {
		return eventsPrefix
	}
	return fmt.Sprintf("%s:%s", eventsPrefix, topic)
}

// Publish sends e to the channel of its conversation.
func (r *Redis) Publish(ctx context.Context, e chat.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.cli.Publish(ctx, eventChannel(e.ConversationID), payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Subscribe returns the events of topic until ctx is done, then closes the
// channel. Payloads that do not decode are skipped.
func (r *Redis) Subscribe(ctx context.Context, topic string) (<-chan chat.Event, error) {
	ps := r.cli.Subscribe(ctx, eventChannel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan chat.Event)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e chat.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
