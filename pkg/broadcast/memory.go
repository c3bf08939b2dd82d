package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// Option configures a MemoryBroadcaster.
type Option func(*options)

type options struct {
	evictSlow bool
}

// WithEvictSlow removes a subscriber whose buffer is full instead of dropping
// only the message that did not fit.
func WithEvictSlow() Option {
	return func(o *options) { o.evictSlow = true }
}

// MemoryBroadcaster is an in-memory Broadcaster. All methods are safe for
// concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[*subscriber[T]]struct{}
	bufferSize  int
	evictSlow   bool
	closed      bool
	done        chan struct{}
	dropped     atomic.Uint64
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers buffer up to
// bufferSize messages each. A minimum buffer of 1 is enforced.
func NewMemoryBroadcaster[T any](bufferSize int, opts ...Option) *MemoryBroadcaster[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryBroadcaster[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
		evictSlow:   o.evictSlow,
		done:        make(chan struct{}),
	}
}

// Subscribe registers a subscriber that is removed when ctx is cancelled.
// Subscribing to a closed broadcaster returns an already closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize)
	if b.closed {
		_ = sub.Close()
		return sub
	}

	b.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			select {
			case <-ctx.Done():
				b.unsubscribe(sub)
			case <-b.done:
			}
		}()
	}

	return sub
}

// Broadcast delivers msg to every subscriber with room in its buffer.
// It returns nil even when some subscribers missed the message.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	for sub := range b.subscribers {
		switch sub.send(msg) {
		case full:
			b.dropped.Add(1)
			if b.evictSlow {
				go b.unsubscribe(sub)
			}
		case gone:
			// Removal needs the write lock held by no one else.
			go b.unsubscribe(sub)
		}
	}

	return nil
}

// SubscriberCount returns the number of registered subscribers.
func (b *MemoryBroadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many per-subscriber deliveries were skipped because a
// buffer was full.
func (b *MemoryBroadcaster[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts down the broadcaster and closes all subscribers. It is
// idempotent.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)

	for sub := range b.subscribers {
		_ = sub.Close()
	}
	clear(b.subscribers)
	b.mu.Unlock()

	b.cleanupWg.Wait()
	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	_ = sub.Close()
}
