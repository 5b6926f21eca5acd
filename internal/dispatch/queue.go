// Package dispatch provides the single serialized execution context that
// change notifications are delivered on.
//
// THE MAIN-QUEUE PATTERN:
// UI toolkits require that observers run on one consistent thread. Services
// here complete network calls on arbitrary goroutines, so instead of calling
// observers directly they Post a task to a Queue. The Queue runs tasks one at
// a time, in the order they were posted, on its own goroutine:
//
//	service goroutine A ──Post(t1)──┐
//	service goroutine B ──Post(t2)──┼──► [t1, t2, t3] ──► queue goroutine runs t1, t2, t3
//	service goroutine C ──Post(t3)──┘
//
// Post never blocks, so a service may publish while holding its own lock and
// an observer may call back into that service without deadlocking.
package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
)

// Queue runs posted tasks sequentially on a single goroutine.
type Queue struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []func()
	started bool
	stopped bool

	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewQueue creates a Queue. Call Start before posting work you expect to run.
func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the queue goroutine. Calling it more than once is a no-op.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.mu.Lock()
		q.started = true
		q.mu.Unlock()

		q.wg.Add(1)
		go q.loop()
	})
}

// Stop refuses new tasks, runs everything already posted, then returns.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()

		close(q.done)
		q.wg.Wait()
	})
}

// Post enqueues fn. It returns false if the queue has been stopped.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	// Non-blocking: one pending wake-up is enough to make the loop drain.
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Sync posts a no-op and waits until it has run, i.e. until every task posted
// before the call has completed. Must not be called from a queue task.
// On a queue that was never started it returns at once, since nothing would
// ever run the no-op.
func (q *Queue) Sync() {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()
	if !started {
		return
	}

	ran := make(chan struct{})
	if !q.Post(func() { close(ran) }) {
		return
	}
	<-ran
}

func (q *Queue) loop() {
	defer q.wg.Done()

	for {
		select {
		case <-q.wake:
			q.drain()
		case <-q.done:
			q.drain()
			return
		}
	}
}

// drain runs tasks until the buffer is empty.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		for _, fn := range batch {
			q.run(fn)
		}
	}
}

// run executes a single task, keeping the loop alive if it panics.
func (q *Queue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("dispatch: task panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}
