package api

import (
	"net/http"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/GetStream/realtime-chat-backend/metrics"
)

func (a *API) heartbeat(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID string `json:"user_id" validate:"required"`
		Online bool   `json:"online"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	if err := a.Presence.Heartbeat(r.Context(), body.UserID, body.Online); err != nil {
		a.respondChatError(w, err, "Could not record heartbeat")
		return
	}
	metrics.Mutation("heartbeat")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) presence(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Presence []chat.PresenceStatus `json:"presence"`
	}

	statuses, err := a.Presence.IsOnlineBulk(r.Context(), r.URL.Query()["user_id"])
	if err != nil {
		a.respondChatError(w, err, "Could not get presence")
		return
	}
	if statuses == nil {
		statuses = []chat.PresenceStatus{}
	}
	a.respond(w, http.StatusOK, response{Presence: statuses})
}

func (a *API) onlineUsers(w http.ResponseWriter, r *http.Request) {
	type response struct {
		UserIDs []string `json:"user_ids"`
	}

	ids, err := a.Presence.ListOnline(r.Context())
	if err != nil {
		a.respondChatError(w, err, "Could not list online users")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	a.respond(w, http.StatusOK, response{UserIDs: ids})
}

func (a *API) setTyping(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID   string `json:"user_id" validate:"required"`
		UserName string `json:"user_name"`
		Typing   bool   `json:"typing"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Typing.SetTyping(r.Context(), r.PathValue("conversationID"), body.UserID, body.UserName, body.Typing)
	if err != nil {
		a.respondChatError(w, err, "Could not set typing")
		return
	}
	metrics.Mutation("typing")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) typingUsers(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Typing []chat.TypingUser `json:"typing"`
	}

	self, ok := a.requireQuery(w, r, "user_id")
	if !ok {
		return
	}
	users, err := a.Typing.TypingUsers(r.Context(), r.PathValue("conversationID"), self)
	if err != nil {
		a.respondChatError(w, err, "Could not list typing users")
		return
	}
	if users == nil {
		users = []chat.TypingUser{}
	}
	a.respond(w, http.StatusOK, response{Typing: users})
}
