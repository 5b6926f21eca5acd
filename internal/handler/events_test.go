package handler_test

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/image-feed/internal/handler"
	"github.com/sakif/image-feed/internal/model"
)

// readEvent reads one "event: / data:" block from an SSE stream.
func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return name, data
}

func TestHandleStream_ForwardsFeedAndAvatarChanges(t *testing.T) {
	q := newTestQueue(t)
	feed := newFakeFeed(q)
	avatars := newFakeAvatars(q, "")
	h := handler.NewEventsHandler(feed, avatars, testLogger())

	srv := httptest.NewServer(http.HandlerFunc(h.HandleStream))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	// Observers are registered before the headers are flushed.
	feed.changes.Publish(model.FeedChange{Appended: 10, Index: model.NoIndex})
	name, data := readEvent(t, reader)
	assert.Equal(t, "feed", name)
	assert.JSONEq(t, `{"appended":10,"index":-1}`, data)

	avatars.changes.Publish(model.AvatarChange{URL: "https://images.example/a.jpg"})
	name, data = readEvent(t, reader)
	assert.Equal(t, "avatar", name)
	assert.JSONEq(t, `{"url":"https://images.example/a.jpg"}`, data)

	feed.changes.Publish(model.FeedChange{Index: 3})
	name, data = readEvent(t, reader)
	assert.Equal(t, "feed", name)
	assert.JSONEq(t, `{"appended":0,"index":3}`, data)
}

func TestHandleStream_EndsOnClose(t *testing.T) {
	q := newTestQueue(t)
	h := handler.NewEventsHandler(newFakeFeed(q), newFakeAvatars(q, ""), testLogger())

	srv := httptest.NewServer(http.HandlerFunc(h.HandleStream))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	h.Close()
	h.Close() // idempotent

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(resp.Body)
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err, "stream should end cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("stream still open after Close")
	}
}
