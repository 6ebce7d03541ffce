package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// keepAliveInterval is how often an idle event stream sends a comment line
// so proxies keep the connection open.
const keepAliveInterval = 15 * time.Second

// streamEvents writes the change events of a conversation as server-sent
// events until the client goes away.
func (a *API) streamEvents(w http.ResponseWriter, r *http.Request) {
	if a.Events == nil {
		a.respondError(w, http.StatusNotImplemented, errors.New("no event source configured"), "Events are not available")
		return
	}

	conversationID := r.PathValue("conversationID")
	if _, ok, err := a.Conversations.Get(r.Context(), conversationID); err != nil {
		a.respondChatError(w, err, "Could not get conversation")
		return
	} else if !ok {
		a.respondError(w, http.StatusNotFound, fmt.Errorf("conversation %s not found", conversationID), "Not found")
		return
	}
	a.stream(w, r, conversationID)
}

// streamGlobalEvents writes the events that belong to no conversation,
// such as presence and profile changes.
func (a *API) streamGlobalEvents(w http.ResponseWriter, r *http.Request) {
	if a.Events == nil {
		a.respondError(w, http.StatusNotImplemented, errors.New("no event source configured"), "Events are not available")
		return
	}
	a.stream(w, r, "")
}

func (a *API) stream(w http.ResponseWriter, r *http.Request, topic string) {
	events, err := a.Events.Subscribe(r.Context(), topic)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not subscribe to events")
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		a.Logger.Error("Could not flush event stream", "error", err.Error())
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				a.Logger.Error("Could not encode event", "error", err.Error())
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
