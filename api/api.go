package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/GetStream/realtime-chat-backend/api/validator"
	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/GetStream/realtime-chat-backend/metrics"
)

// Users manages user profiles.
type Users interface {
	Upsert(ctx context.Context, externalID, name, email, imageURL string) (chat.User, error)
	Get(ctx context.Context, externalID string) (chat.User, bool, error)
	List(ctx context.Context, exclude, search string) ([]chat.User, error)
}

// Conversations creates and finds conversations.
type Conversations interface {
	GetOrCreateDirect(ctx context.Context, userA, userB string) (chat.Conversation, error)
	CreateGroup(ctx context.Context, creator string, memberIDs []string, name string) (chat.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error)
	Get(ctx context.Context, id string) (chat.Conversation, bool, error)
}

// Messages appends and reads messages.
type Messages interface {
	Send(ctx context.Context, conversationID, senderID, content string) (chat.Message, error)
	List(ctx context.Context, conversationID string) ([]chat.Message, error)
	SoftDelete(ctx context.Context, messageID, requesterID string) (chat.Message, error)
}

// Reactions toggles and lists reactions.
type Reactions interface {
	Toggle(ctx context.Context, messageID, userID, emoji string) (bool, error)
	ListForMessages(ctx context.Context, messageIDs []string) ([]chat.Reaction, error)
}

// Presence records heartbeats and reports who is online.
type Presence interface {
	Heartbeat(ctx context.Context, userID string, online bool) error
	IsOnlineBulk(ctx context.Context, userIDs []string) ([]chat.PresenceStatus, error)
	ListOnline(ctx context.Context) ([]string, error)
}

// Typing records and reports typing users.
type Typing interface {
	SetTyping(ctx context.Context, conversationID, userID, userName string, typing bool) error
	TypingUsers(ctx context.Context, conversationID, self string) ([]chat.TypingUser, error)
}

// Unread keeps read watermarks and unread counts.
type Unread interface {
	MarkRead(ctx context.Context, conversationID, userID string) error
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
	UnreadCountsBulk(ctx context.Context, userID string, conversationIDs []string) (map[string]int, error)
}

// Events streams change events of a topic until ctx is done.
type Events interface {
	Subscribe(ctx context.Context, topic string) (<-chan chat.Event, error)
}

// API provides the REST endpoints for the application.
type API struct {
	Logger        *slog.Logger
	Users         Users
	Conversations Conversations
	Messages      Messages
	Reactions     Reactions
	Presence      Presence
	Typing        Typing
	Unread        Unread
	Events        Events
	Val           *validator.Validator

	once sync.Once
	mux  *http.ServeMux
}

// New returns an API serving svc.
func New(svc *chat.Service, events Events, logger *slog.Logger) *API {
	return &API{
		Logger:        logger,
		Users:         svc.Users,
		Conversations: svc.Conversations,
		Messages:      svc.Messages,
		Reactions:     svc.Reactions,
		Presence:      svc.Presence,
		Typing:        svc.Typing,
		Unread:        svc.Unread,
		Events:        events,
		Val:           validator.New(),
	}
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users", a.listUsers)
	mux.HandleFunc("GET /users/{externalID}", a.getUser)
	mux.HandleFunc("PUT /users/{externalID}", a.upsertUser)
	mux.HandleFunc("GET /users/{externalID}/conversations", a.listConversations)
	mux.HandleFunc("GET /users/{externalID}/unread", a.unreadCounts)

	mux.HandleFunc("POST /conversations/direct", a.createDirect)
	mux.HandleFunc("POST /conversations/group", a.createGroup)
	mux.HandleFunc("GET /conversations/{conversationID}", a.getConversation)
	mux.HandleFunc("GET /conversations/{conversationID}/messages", a.listMessages)
	mux.HandleFunc("POST /conversations/{conversationID}/messages", a.createMessage)
	mux.HandleFunc("GET /conversations/{conversationID}/typing", a.typingUsers)
	mux.HandleFunc("PUT /conversations/{conversationID}/typing", a.setTyping)
	mux.HandleFunc("POST /conversations/{conversationID}/read", a.markRead)
	mux.HandleFunc("GET /conversations/{conversationID}/unread", a.unreadCount)
	mux.HandleFunc("GET /conversations/{conversationID}/events", a.streamEvents)

	mux.HandleFunc("DELETE /messages/{messageID}", a.deleteMessage)
	mux.HandleFunc("POST /messages/{messageID}/reactions", a.toggleReaction)
	mux.HandleFunc("GET /reactions", a.listReactions)

	mux.HandleFunc("POST /presence", a.heartbeat)
	mux.HandleFunc("GET /presence", a.presence)
	mux.HandleFunc("GET /presence/online", a.onlineUsers)

	mux.HandleFunc("GET /events", a.streamGlobalEvents)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)

	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	a.mux.ServeHTTP(sw, r)
	metrics.ObserveRequest(r.Method, r.Pattern, sw.status, time.Since(start))
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// respondChatError maps the chat error kinds onto HTTP statuses. Other
// errors are reported as msg with status 500.
func (a *API) respondChatError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		a.respondError(w, http.StatusNotFound, err, "Not found")
	case errors.Is(err, chat.ErrUnauthorized):
		a.respondError(w, http.StatusForbidden, err, "Not allowed")
	case errors.Is(err, chat.ErrInvalidArgument):
		a.respondError(w, http.StatusBadRequest, err, "Invalid request")
	default:
		a.respondError(w, http.StatusInternalServerError, err, msg)
	}
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []validator.ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

// decodeBody decodes and validates a JSON request body into s. It responds
// and returns false when the body is unusable.
func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, s interface{}) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(s); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	return a.validateBody(w, s)
}

// requireQuery returns the query parameter name, responding with 400 when
// it is missing.
func (a *API) requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing "+name), "Missing query parameter "+name)
		return "", false
	}
	return v, true
}
