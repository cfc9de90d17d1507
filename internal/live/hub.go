// Package live provides change notification and push-updated snapshot
// subscriptions over the store.
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Topic names a set of rows whose change may alter subscribed results.
type Topic string

// Hub fans out change signals to watchers. Signals carry no payload;
// watchers reload their snapshot when signalled. A nil *Hub is valid and
// never signals.
type Hub struct {
	mu       sync.Mutex
	next     uint64
	watchers map[Topic]map[uint64]chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[Topic]map[uint64]chan struct{})}
}

// Publish signals every watcher of the given topics. It never blocks:
// pending signals coalesce.
func (h *Hub) Publish(topics ...Topic) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, t := range topics {
		for _, ch := range h.watchers[t] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// listen registers a signal channel on topics and returns it with a function
// that unregisters it.
func (h *Hub) listen(topics []Topic) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	if h == nil {
		return ch, func() {}
	}

	h.mu.Lock()
	h.next++
	id := h.next
	for _, t := range topics {
		if h.watchers[t] == nil {
			h.watchers[t] = make(map[uint64]chan struct{})
		}
		h.watchers[t][id] = ch
	}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, t := range topics {
			delete(h.watchers[t], id)
			if len(h.watchers[t]) == 0 {
				delete(h.watchers, t)
			}
		}
	}
}

// Watchers returns the number of registrations on topic.
func (h *Hub) Watchers(topic Topic) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[topic])
}

// Subscription delivers snapshots of type T until closed. C always holds
// at most the latest undelivered snapshot.
type Subscription[T any] struct {
	ID string
	C  <-chan T

	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the subscription and waits for its goroutine to exit. C is
// closed afterwards. Close is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Watch loads an initial snapshot and then reloads it every time one of
// topics is published. Load errors are logged and the previous snapshot is
// kept. The subscription ends when ctx is cancelled or Close is called.
func Watch[T any](ctx context.Context, h *Hub, load func(context.Context) (T, error), topics ...Topic) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan T, 1)
	sub := &Subscription[T]{
		ID:     uuid.NewString(),
		C:      out,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	signal, unlisten := h.listen(topics)

	go func() {
		defer close(sub.done)
		defer close(out)
		defer unlisten()

		push := func() {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("live snapshot reload failed", "subscription", sub.ID, "error", err)
				}
				return
			}
			Offer(out, v)
		}

		push()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				push()
			}
		}
	}()

	return sub
}

// Offer puts v on a one-slot channel, replacing any value not yet received.
// It must only be called by the channel's single sender.
func Offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
