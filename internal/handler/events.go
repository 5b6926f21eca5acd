package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sakif/image-feed/internal/model"
)

const (
	eventBuffer       = 64
	keepAliveInterval = 25 * time.Second
)

type event struct {
	name string
	data any
}

// EventsHandler streams change notifications as server-sent events:
//
//	event: feed
//	data: {"appended":10,"index":-1}
//
//	event: avatar
//	data: {"url":"https://..."}
//
// Observers run on the dispatch queue and must not block it, so each stream
// has a bounded buffer; events that do not fit are dropped and the UI can
// resynchronise from GET /api/photos.
type EventsHandler struct {
	feed    Feed
	avatars Avatars
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewEventsHandler(feed Feed, avatars Avatars, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		feed:    feed,
		avatars: avatars,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Close ends every open stream and makes new ones return immediately.
// http.Server.Shutdown does not cancel request contexts, so the server
// registers Close to run on shutdown.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// HandleStream serves one event stream until the client disconnects or the
// handler is closed.
//
// HTTP: GET /api/events
func (h *EventsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	events := make(chan event, eventBuffer)
	send := func(e event) {
		select {
		case events <- e:
		default:
			h.logger.Warn("events: client too slow, dropping event", slog.String("event", e.name))
		}
	}

	stopFeed := h.feed.Changes().Observe(func(c model.FeedChange) { send(event{"feed", c}) })
	defer stopFeed()
	stopAvatar := h.avatars.Changes().Observe(func(c model.AvatarChange) { send(event{"avatar", c}) })
	defer stopAvatar()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("events: streaming unsupported", slog.String("error", err.Error()))
		return
	}
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case e := <-events:
			payload, err := json.Marshal(e.data)
			if err != nil {
				h.logger.Error("events: encoding", slog.String("error", err.Error()))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
