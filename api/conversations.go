package api

import (
	"fmt"
	"net/http"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/GetStream/realtime-chat-backend/metrics"
)

func (a *API) createDirect(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID      string `json:"user_id" validate:"required"`
		OtherUserID string `json:"other_user_id" validate:"required,nefield=UserID"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	conv, err := a.Conversations.GetOrCreateDirect(r.Context(), body.UserID, body.OtherUserID)
	if err != nil {
		a.respondChatError(w, err, "Could not open conversation")
		return
	}
	metrics.Mutation("direct_opened")
	a.respond(w, http.StatusOK, conv)
}

func (a *API) createGroup(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID    string   `json:"user_id" validate:"required"`
		MemberIDs []string `json:"member_ids" validate:"required,min=1,dive,required"`
		Name      string   `json:"name" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	conv, err := a.Conversations.CreateGroup(r.Context(), body.UserID, body.MemberIDs, body.Name)
	if err != nil {
		a.respondChatError(w, err, "Could not create group")
		return
	}
	metrics.Mutation("group_created")
	a.respond(w, http.StatusCreated, conv)
}

func (a *API) getConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("conversationID")
	conv, ok, err := a.Conversations.Get(r.Context(), id)
	if err != nil {
		a.respondChatError(w, err, "Could not get conversation")
		return
	}
	if !ok {
		a.respondChatError(w, fmt.Errorf("conversation %s: %w", id, chat.ErrNotFound), "Could not get conversation")
		return
	}
	a.respond(w, http.StatusOK, conv)
}

func (a *API) listConversations(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Conversations []chat.Conversation `json:"conversations"`
	}

	convs, err := a.Conversations.ListForUser(r.Context(), r.PathValue("externalID"))
	if err != nil {
		a.respondChatError(w, err, "Could not list conversations")
		return
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	a.respond(w, http.StatusOK, response{Conversations: convs})
}
