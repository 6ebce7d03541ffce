package api

import (
	"net/http"

	"github.com/GetStream/realtime-chat-backend/metrics"
)

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID string `json:"user_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	if err := a.Unread.MarkRead(r.Context(), r.PathValue("conversationID"), body.UserID); err != nil {
		a.respondChatError(w, err, "Could not mark conversation read")
		return
	}
	metrics.Mutation("read")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	type response struct {
		ConversationID string `json:"conversation_id"`
		Unread         int    `json:"unread"`
	}

	userID, ok := a.requireQuery(w, r, "user_id")
	if !ok {
		return
	}
	conversationID := r.PathValue("conversationID")
	n, err := a.Unread.UnreadCount(r.Context(), conversationID, userID)
	if err != nil {
		a.respondChatError(w, err, "Could not count unread messages")
		return
	}
	a.respond(w, http.StatusOK, response{ConversationID: conversationID, Unread: n})
}

func (a *API) unreadCounts(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Unread map[string]int `json:"unread"`
	}

	counts, err := a.Unread.UnreadCountsBulk(r.Context(), r.PathValue("externalID"), r.URL.Query()["conversation_id"])
	if err != nil {
		a.respondChatError(w, err, "Could not count unread messages")
		return
	}
	if counts == nil {
		counts = map[string]int{}
	}
	a.respond(w, http.StatusOK, response{Unread: counts})
}
