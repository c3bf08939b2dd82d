package surface_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/socket"
)

// loopback records emitted event names and lets tests push inbound events.
type loopback struct {
	mu       sync.Mutex
	events   []string
	handlers map[string][]socket.Handler
}

func (l *loopback) IsConnected() bool { return true }

func (l *loopback) Emit(event string, payload any) { l.EmitCorrelated(event, "", payload) }

func (l *loopback) EmitCorrelated(event, _ string, _ any) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *loopback) Subscribe(event string, h socket.Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handlers == nil {
		l.handlers = make(map[string][]socket.Handler)
	}
	l.handlers[event] = append(l.handlers[event], h)
	return func() {}
}

func (l *loopback) push(t *testing.T, event string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	l.mu.Lock()
	hs := l.handlers[event]
	l.mu.Unlock()
	for _, h := range hs {
		h(socket.Message{Event: event, Data: raw})
	}
}

func (l *loopback) emitted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func newSession(t *testing.T) (*loopback, *notifications.Store) {
	t.Helper()
	lb := &loopback{}
	s := notifications.NewStore(lb, notifications.UserScope(1), notifications.WithStoreLogger(logger.Discard()))
	t.Cleanup(func() { _ = s.Close() })
	return lb, s
}

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func entry(id int64, read bool, typ notifications.Type, category, msg string) notifications.Notification {
	n := notifications.Notification{ID: id, IsRead: read, Type: typ, Message: msg, CreatedAt: t0, UserID: 1}
	if category != "" {
		n.Tender = &notifications.TenderSummary{ID: id * 10, Title: "Tender " + category, Category: category}
	}
	return n
}

func idsOf(list []notifications.Notification) []int64 {
	out := make([]int64, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}
