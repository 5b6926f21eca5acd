package dispatch

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	q := NewQueue(logger)
	q.Start()
	t.Cleanup(q.Stop)
	return q
}

// =========================================================================
// QUEUE TESTS
// =========================================================================

func TestQueue_RunsTasksInPostOrder(t *testing.T) {
	q := newTestQueue(t)

	var got []int
	for i := 0; i < 100; i++ {
		q.Post(func() { got = append(got, i) })
	}
	q.Sync()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_TasksNeverOverlap(t *testing.T) {
	q := newTestQueue(t)

	var (
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	// Post from many goroutines at once; the queue must still serialize.
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(func() {
				running++
				if running > maxSeen {
					maxSeen = running
				}
				running--
			})
		}()
	}
	wg.Wait()
	q.Sync()

	assert.Equal(t, 1, maxSeen)
}

func TestQueue_SurvivesPanickingTask(t *testing.T) {
	q := newTestQueue(t)

	ran := false
	q.Post(func() { panic("boom") })
	q.Post(func() { ran = true })
	q.Sync()

	assert.True(t, ran, "task after a panic should still run")
}

func TestQueue_StopDrainsAndRejects(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	q := NewQueue(logger)
	q.Start()

	ran := 0
	for i := 0; i < 10; i++ {
		q.Post(func() { ran++ })
	}
	q.Stop()

	assert.Equal(t, 10, ran, "Stop should run already-posted tasks")
	assert.False(t, q.Post(func() {}), "Post after Stop should be rejected")
}

func TestQueue_SyncBeforeStartReturns(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	q := NewQueue(logger)
	defer q.Stop()

	ran := false
	require.True(t, q.Post(func() { ran = true }))

	returned := make(chan struct{})
	go func() {
		q.Sync()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("Sync blocked on a queue that was never started")
	}
	assert.False(t, ran, "nothing runs before Start")

	q.Start()
	q.Sync()
	assert.True(t, ran, "tasks posted before Start run once it is called")
}

// =========================================================================
// EMITTER TESTS
// =========================================================================

func TestEmitter_DeliversInRegistrationOrder(t *testing.T) {
	q := newTestQueue(t)
	e := NewEmitter[string](q)

	var got []string
	e.Observe(func(v string) { got = append(got, "first:"+v) })
	e.Observe(func(v string) { got = append(got, "second:"+v) })

	e.Publish("a")
	e.Publish("b")
	q.Sync()

	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, got)
}

func TestEmitter_CancelStopsDelivery(t *testing.T) {
	q := newTestQueue(t)
	e := NewEmitter[int](q)

	count := 0
	cancel := e.Observe(func(int) { count++ })

	e.Publish(1)
	q.Sync()
	cancel()
	e.Publish(2)
	q.Sync()

	assert.Equal(t, 1, count)
}

func TestEmitter_ObserverMayReenterPublisher(t *testing.T) {
	q := newTestQueue(t)
	e := NewEmitter[int](q)

	var mu sync.Mutex
	state := 0
	// Observer takes the same lock the publisher held while publishing.
	e.Observe(func(int) {
		mu.Lock()
		defer mu.Unlock()
		state++
	})

	mu.Lock()
	e.Publish(1)
	mu.Unlock()
	q.Sync()

	assert.Equal(t, 1, state)
}
