package chat

import (
	"context"
	"fmt"
	"strings"
)

// Reactions toggles emoji reactions on messages.
type Reactions struct {
	store    ReactionStore
	messages MessageStore
	settings
}

// NewReactions returns Reactions backed by store. Message existence is
// checked against messages.
func NewReactions(store ReactionStore, messages MessageStore, opts ...Option) *Reactions {
	return &Reactions{store: store, messages: messages, settings: newSettings(opts)}
}

// Toggle adds the reaction when absent and removes it when present. It
// reports whether the reaction exists afterwards. Two concurrent toggles
// with the same arguments settle on whichever write lands last.
func (r *Reactions) Toggle(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	if userID == "" || strings.TrimSpace(emoji) == "" {
		return false, fmt.Errorf("reaction needs a user and an emoji: %w", ErrInvalidArgument)
	}
	msg, err := r.messages.GetMessage(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("get message: %w", err)
	}

	now := r.now()
	added, err := r.store.ToggleReaction(ctx, Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: now,
	})
	if err != nil {
		return false, fmt.Errorf("toggle reaction: %w", err)
	}
	r.publish(ctx, Event{Kind: EventReactionToggled, ConversationID: msg.ConversationID, MessageID: messageID, UserID: userID, At: now})
	return added, nil
}

// ListForMessages returns every reaction on the given messages.
func (r *Reactions) ListForMessages(ctx context.Context, messageIDs []string) ([]Reaction, error) {
	if len(messageIDs) == 0 {
		return []Reaction{}, nil
	}
	out, err := r.store.ListReactions(ctx, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	return out, nil
}

// Summarize groups reactions by message and emoji, in first-seen order.
// Reacted is set where self is among the reactors.
func Summarize(reactions []Reaction, self string) []ReactionSummary {
	type key struct{ message, emoji string }
	index := map[key]int{}
	var out []ReactionSummary
	for _, r := range reactions {
		k := key{r.MessageID, r.Emoji}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, ReactionSummary{MessageID: r.MessageID, Emoji: r.Emoji})
		}
		out[i].Count++
		if r.UserID == self {
			out[i].Reacted = true
		}
	}
	return out
}
