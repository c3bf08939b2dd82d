package notifications_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/socket"
)

type emitted struct {
	Event   string
	CID     string
	Payload string
}

// fakeTransport records outbound events and dispatches inbound ones
// synchronously, the way the socket dispatch goroutine would.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	out       []emitted
	handlers  map[string][]socket.Handler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true, handlers: make(map[string][]socket.Handler)}
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Emit(event string, payload any) {
	f.EmitCorrelated(event, "", payload)
}

func (f *fakeTransport) EmitCorrelated(event, cid string, payload any) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return
	}
	f.out = append(f.out, emitted{Event: event, CID: cid, Payload: string(data)})
}

func (f *fakeTransport) Subscribe(event string, h socket.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
	idx := len(f.handlers[event]) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers[event][idx] = nil
	}
}

func (f *fakeTransport) push(t *testing.T, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	f.pushRaw(event, raw)
}

func (f *fakeTransport) pushRaw(event string, raw []byte) {
	f.mu.Lock()
	hs := append([]socket.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(socket.Message{Event: event, Data: raw})
		}
	}
}

func (f *fakeTransport) emitted() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.out...)
}

func (f *fakeTransport) last(t *testing.T) emitted {
	t.Helper()
	out := f.emitted()
	require.NotEmpty(t, out)
	return out[len(out)-1]
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func note(id int64, read bool) notifications.Notification {
	return notifications.Notification{
		ID:        id,
		Message:   fmt.Sprintf("notification %d", id),
		Type:      notifications.TypeTender,
		IsRead:    read,
		CreatedAt: baseTime.Add(time.Duration(id) * time.Minute),
		UserID:    42,
	}
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("cid-%d", n)
	}
}

func ids(list []notifications.Notification) []int64 {
	out := make([]int64, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}
