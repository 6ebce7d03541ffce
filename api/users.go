package api

import (
	"fmt"
	"net/http"

	"github.com/GetStream/realtime-chat-backend/chat"
)

func (a *API) upsertUser(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		ImageURL string `json:"image_url" validate:"omitempty,url"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	user, err := a.Users.Upsert(r.Context(), r.PathValue("externalID"), body.Name, body.Email, body.ImageURL)
	if err != nil {
		a.respondChatError(w, err, "Could not save user")
		return
	}
	a.respond(w, http.StatusOK, user)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("externalID")
	user, ok, err := a.Users.Get(r.Context(), id)
	if err != nil {
		a.respondChatError(w, err, "Could not get user")
		return
	}
	if !ok {
		a.respondChatError(w, fmt.Errorf("user %s: %w", id, chat.ErrNotFound), "Could not get user")
		return
	}
	a.respond(w, http.StatusOK, user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Users []chat.User `json:"users"`
	}

	q := r.URL.Query()
	users, err := a.Users.List(r.Context(), q.Get("exclude"), q.Get("search"))
	if err != nil {
		a.respondChatError(w, err, "Could not list users")
		return
	}
	if users == nil {
		users = []chat.User{}
	}
	a.respond(w, http.StatusOK, response{Users: users})
}
