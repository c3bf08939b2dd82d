package surface

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/tenderbell/pkg/broadcast"
	"github.com/dmitrymomot/tenderbell/pkg/cache"
	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

// Toast is one entry of the toast stack.
type Toast struct {
	Notification notifications.Notification `json:"notification"`
	ShownAt      time.Time                  `json:"shownAt"`
	ExpiresAt    time.Time                  `json:"expiresAt"`
}

const (
	DefaultToastLimit = 5
	DefaultToastTTL   = 5 * time.Second
)

// ToastQueue is a capped stack of transient toasts. Each toast expires a
// fixed time after it is shown regardless of what the server does with the
// notification. When the stack is full the oldest toast makes room.
type ToastQueue struct {
	limit int
	ttl   time.Duration
	tick  time.Duration
	now   func() time.Time
	log   *slog.Logger
	seen  *cache.LRUCache[int64, time.Time]

	mu      sync.Mutex
	items   []Toast
	changed chan struct{}
}

// ToastOption configures a ToastQueue.
type ToastOption func(*ToastQueue)

func WithToastLimit(n int) ToastOption {
	return func(q *ToastQueue) {
		if n > 0 {
			q.limit = n
		}
	}
}

func WithToastTTL(d time.Duration) ToastOption {
	return func(q *ToastQueue) {
		if d > 0 {
			q.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ToastOption {
	return func(q *ToastQueue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithSweepInterval sets how often Run checks for expired toasts.
func WithSweepInterval(d time.Duration) ToastOption {
	return func(q *ToastQueue) {
		if d > 0 {
			q.tick = d
		}
	}
}

// WithDedupeWindow sets how many recently shown ids are remembered to
// suppress repeated toasts for the same notification.
func WithDedupeWindow(n int) ToastOption {
	return func(q *ToastQueue) {
		if n > 0 {
			q.seen = cache.NewLRUCache[int64, time.Time](n)
		}
	}
}

func WithToastLogger(l *slog.Logger) ToastOption {
	return func(q *ToastQueue) {
		if l != nil {
			q.log = l
		}
	}
}

func NewToastQueue(opts ...ToastOption) *ToastQueue {
	q := &ToastQueue{
		limit:   DefaultToastLimit,
		ttl:     DefaultToastTTL,
		tick:    250 * time.Millisecond,
		now:     time.Now,
		log:     slog.Default(),
		changed: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.seen == nil {
		q.seen = cache.NewLRUCache[int64, time.Time](64)
	}
	q.log = q.log.With(logger.Component("toasts"))
	return q
}

// Push shows a toast for n. It reports false when n was toasted recently.
func (q *ToastQueue) Push(n notifications.Notification) bool {
	if q.seen.Contains(n.ID) {
		return false
	}
	now := q.now()
	q.seen.Put(n.ID, now)

	q.mu.Lock()
	q.items = append(q.items, Toast{Notification: n, ShownAt: now, ExpiresAt: now.Add(q.ttl)})
	if over := len(q.items) - q.limit; over > 0 {
		q.items = slices.Delete(q.items, 0, over)
	}
	q.mu.Unlock()

	q.notify()
	return true
}

// Dismiss removes the toast for id before it expires.
func (q *ToastQueue) Dismiss(id int64) bool {
	q.mu.Lock()
	i := slices.IndexFunc(q.items, func(t Toast) bool { return t.Notification.ID == id })
	if i >= 0 {
		q.items = slices.Delete(q.items, i, i+1)
	}
	q.mu.Unlock()

	if i >= 0 {
		q.notify()
	}
	return i >= 0
}

// Items returns the live toasts, oldest first.
func (q *ToastQueue) Items() []Toast {
	q.Expire()
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Len returns the number of live toasts.
func (q *ToastQueue) Len() int {
	return len(q.Items())
}

// Expire drops toasts whose display window has passed and returns how many.
func (q *ToastQueue) Expire() int {
	now := q.now()

	q.mu.Lock()
	before := len(q.items)
	q.items = slices.DeleteFunc(q.items, func(t Toast) bool { return !now.Before(t.ExpiresAt) })
	removed := before - len(q.items)
	q.mu.Unlock()

	if removed > 0 {
		q.notify()
	}
	return removed
}

// Changes signals that the stack changed. Signals are coalesced.
func (q *ToastQueue) Changes() <-chan struct{} {
	return q.changed
}

func (q *ToastQueue) notify() {
	select {
	case q.changed <- struct{}{}:
	default:
	}
}

// Run feeds the queue from a toast bus subscription and expires toasts until
// ctx ends or the subscription closes. It closes sub on return.
func (q *ToastQueue) Run(ctx context.Context, sub broadcast.Subscriber[notifications.Notification]) error {
	defer sub.Close()

	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()

	msgs := sub.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if !q.Push(msg.Data) {
				q.log.LogAttrs(ctx, slog.LevelDebug, "duplicate toast suppressed",
					logger.NotificationID(msg.Data.ID))
			}
		case <-ticker.C:
			q.Expire()
		}
	}
}
