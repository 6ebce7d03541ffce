package api

import (
	"net/http"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/GetStream/realtime-chat-backend/metrics"
)

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Messages []chat.Message `json:"messages"`
	}

	msgs, err := a.Messages.List(r.Context(), r.PathValue("conversationID"))
	if err != nil {
		a.respondChatError(w, err, "Could not list messages")
		return
	}
	a.Logger.Info("Got messages", "count", len(msgs))
	if msgs == nil {
		msgs = []chat.Message{}
	}
	a.respond(w, http.StatusOK, response{Messages: msgs})
}

func (a *API) createMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		SenderID string `json:"sender_id" validate:"required"`
		Content  string `json:"content" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	msg, err := a.Messages.Send(r.Context(), r.PathValue("conversationID"), body.SenderID, body.Content)
	if err != nil {
		a.respondChatError(w, err, "Could not send message")
		return
	}
	metrics.Mutation("message_sent")
	a.respond(w, http.StatusCreated, msg)
}

func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireQuery(w, r, "user_id")
	if !ok {
		return
	}

	msg, err := a.Messages.SoftDelete(r.Context(), r.PathValue("messageID"), userID)
	if err != nil {
		a.respondChatError(w, err, "Could not delete message")
		return
	}
	metrics.Mutation("message_deleted")
	a.respond(w, http.StatusOK, msg)
}

func (a *API) toggleReaction(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			UserID string `json:"user_id" validate:"required"`
			Emoji  string `json:"emoji" validate:"required"`
		}
		response struct {
			MessageID string `json:"message_id"`
			UserID    string `json:"user_id"`
			Emoji     string `json:"emoji"`
			Reacted   bool   `json:"reacted"` // whether the reaction exists after the toggle
		}
	)

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	messageID := r.PathValue("messageID")
	added, err := a.Reactions.Toggle(r.Context(), messageID, body.UserID, body.Emoji)
	if err != nil {
		a.respondChatError(w, err, "Could not toggle reaction")
		return
	}
	if added {
		metrics.Mutation("reaction_added")
	} else {
		metrics.Mutation("reaction_removed")
	}
	a.respond(w, http.StatusOK, response{
		MessageID: messageID,
		UserID:    body.UserID,
		Emoji:     body.Emoji,
		Reacted:   added,
	})
}

// listReactions returns the raw reactions of the requested messages and,
// when user_id is given, the per-emoji summary seen by that user.
func (a *API) listReactions(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Reactions []chat.Reaction        `json:"reactions"`
		Summary   []chat.ReactionSummary `json:"summary,omitempty"`
	}

	q := r.URL.Query()
	reactions, err := a.Reactions.ListForMessages(r.Context(), q["message_id"])
	if err != nil {
		a.respondChatError(w, err, "Could not list reactions")
		return
	}
	if reactions == nil {
		reactions = []chat.Reaction{}
	}
	res := response{Reactions: reactions}
	if self := q.Get("user_id"); self != "" {
		res.Summary = chat.Summarize(reactions, self)
	}
	a.respond(w, http.StatusOK, res)
}
