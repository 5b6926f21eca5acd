package dispatch

import "sync"

// Emitter is a typed observer list owned by one service.
//
// Each service exposes its own Emitter for its own payload type, so there is
// no global notification bus and no stringly-typed userInfo dictionary: a
// feed observer receives model.FeedChange, an avatar observer receives
// model.AvatarChange.
type Emitter[T any] struct {
	queue *Queue

	mu        sync.Mutex
	nextID    int
	observers []observer[T]
}

type observer[T any] struct {
	id int
	fn func(T)
}

// NewEmitter creates an Emitter that delivers on q.
func NewEmitter[T any](q *Queue) *Emitter[T] {
	return &Emitter[T]{queue: q}
}

// Observe registers fn and returns a function that unregisters it.
// Observers are called in registration order.
func (e *Emitter[T]) Observe(fn func(T)) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.observers = append(e.observers, observer[T]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers v to every current observer on the queue. It never blocks.
func (e *Emitter[T]) Publish(v T) {
	e.mu.Lock()
	if len(e.observers) == 0 {
		e.mu.Unlock()
		return
	}
	snapshot := make([]func(T), len(e.observers))
	for i, o := range e.observers {
		snapshot[i] = o.fn
	}
	e.mu.Unlock()

	e.queue.Post(func() {
		for _, fn := range snapshot {
			fn(v)
		}
	})
}
