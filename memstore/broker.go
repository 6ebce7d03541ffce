package memstore

import (
	"context"
	"sync"

	"github.com/GetStream/realtime-chat-backend/chat"
)

// subscriberBuffer is the number of undelivered events a subscriber may
// lag behind before further events to it are dropped.
const subscriberBuffer = 16

// Broker fans chat events out to in-process subscribers. Events with a
// conversation go to that conversation's topic, the rest to the global
// topic "".
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan chat.Event]struct{}
}

// NewBroker returns a Broker without subscribers.
func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan chat.Event]struct{}{}}
}

// Publish delivers e without blocking. Subscribers whose buffer is full
// miss the event.
func (b *Broker) Publish(_ context.Context, e chat.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[e.ConversationID] {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Subscribe returns the events of topic until ctx is done, then closes the
// channel.
func (b *Broker) Subscribe(ctx context.Context, topic string) (<-chan chat.Event, error) {
	ch := make(chan chat.Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan chat.Event]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[topic], ch)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
