package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/socket"
	"github.com/dmitrymomot/tenderbell/pkg/surface"
)

type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string][]socket.Handler
	emitted  []string
}

func (f *fakeTransport) IsConnected() bool { return true }

func (f *fakeTransport) Emit(event string, payload any) { f.EmitCorrelated(event, "", payload) }

func (f *fakeTransport) EmitCorrelated(event, _ string, _ any) {
	f.mu.Lock()
	f.emitted = append(f.emitted, event)
	f.mu.Unlock()
}

func (f *fakeTransport) Subscribe(event string, h socket.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string][]socket.Handler{}
	}
	f.handlers[event] = append(f.handlers[event], h)
	return func() {}
}

func (f *fakeTransport) push(t *testing.T, event string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	f.mu.Lock()
	hs := f.handlers[event]
	f.mu.Unlock()
	for _, h := range hs {
		h(socket.Message{Event: event, Data: raw})
	}
}

func (f *fakeTransport) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.emitted) == 0 {
		return ""
	}
	return f.emitted[len(f.emitted)-1]
}

type fakeSession struct {
	store  *notifications.Store
	prefs  *notifications.PreferenceManager
	bell   *surface.BellPanel
	toasts *surface.ToastQueue
}

func (s *fakeSession) Store() *notifications.Store                   { return s.store }
func (s *fakeSession) Preferences() *notifications.PreferenceManager { return s.prefs }
func (s *fakeSession) Bell() *surface.BellPanel                      { return s.bell }
func (s *fakeSession) Toasts() *surface.ToastQueue                   { return s.toasts }

func newTestModel(t *testing.T) (Model, *fakeTransport, *fakeSession) {
	t.Helper()

	tr := &fakeTransport{}
	scope := notifications.UserScope(42)
	store := notifications.NewStore(tr, scope, notifications.WithStoreLogger(logger.Discard()))
	prefs := notifications.NewPreferenceManager(tr, scope, notifications.WithPreferenceLogger(logger.Discard()))
	s := &fakeSession{
		store:  store,
		prefs:  prefs,
		bell:   surface.NewBellPanel(store),
		toasts: surface.NewToastQueue(surface.WithToastLogger(logger.Discard())),
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{
		{ID: 3, Message: "Payment received", Type: notifications.TypePayment, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, Message: "New bid on road works", Type: notifications.TypeTender, CreatedAt: base.Add(time.Hour),
			Tender: &notifications.TenderSummary{ID: 7, Title: "Road works", Category: "Construction"}},
		{ID: 1, Message: "Scheduled maintenance", Type: notifications.TypeSystem, IsRead: true, CreatedAt: base},
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = store.Close()
		_ = prefs.Close()
	})
	return New(ctx, s), tr, s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func itemIDs(m Model) []int64 {
	out := make([]int64, 0, len(m.items))
	for _, n := range m.items {
		out = append(out, n.ID)
	}
	return out
}

func TestView_Initial(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	view := m.View()

	assert.Contains(t, view, "Notifications")
	assert.Contains(t, view, "2")
	assert.Contains(t, view, "online")
	assert.Contains(t, view, "Road works · Construction")
	assert.Contains(t, view, "sound on")
	assert.Equal(t, []int64{3, 2, 1}, itemIDs(m))
}

func TestUpdate_Navigation(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m = send(t, m, runes("k"))
	assert.Equal(t, 0, m.cursor)

	m = send(t, m, runes("j"), runes("j"), runes("j"))
	assert.Equal(t, 2, m.cursor)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)
}

func TestUpdate_ToggleDeleteMarkAll(t *testing.T) {
	t.Parallel()

	m, tr, s := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	n, _ := s.store.Get(3)
	assert.True(t, n.IsRead)
	assert.Equal(t, notifications.EventMarkAsRead, tr.last())

	m = send(t, m, runes(" "))
	n, _ = s.store.Get(3)
	assert.False(t, n.IsRead)
	assert.Equal(t, notifications.EventMarkAsUnread, tr.last())

	m = send(t, m, runes("j"), runes("d"))
	_, found := s.store.Get(2)
	assert.False(t, found)
	assert.Equal(t, []int64{3, 1}, itemIDs(m))

	send(t, m, runes("a"))
	assert.Equal(t, 0, s.store.UnreadCount())
	assert.Equal(t, notifications.EventMarkAllAsRead, tr.last())
}

func TestUpdate_Filters(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, []int64{3, 2}, itemIDs(m))
	assert.Contains(t, m.View(), "showing: unread")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, []int64{3, 2, 1}, itemIDs(m))

	m = send(t, m, runes("t"))
	assert.Equal(t, []int64{2}, itemIDs(m))
	m = send(t, m, runes("t"))
	assert.Equal(t, []int64{3}, itemIDs(m))
	m = send(t, m, runes("t"), runes("t"), runes("t"))
	assert.Equal(t, []int64{3, 2, 1}, itemIDs(m))
}

func TestUpdate_Search(t *testing.T) {
	t.Parallel()

	m, _, s := newTestModel(t)

	m = send(t, m, runes("/"))
	require.True(t, m.searching)

	// Keys typed while searching go to the input, not the bindings.
	m = send(t, m, runes("R"), runes("o"), runes("a"), runes("d"))
	assert.Equal(t, []int64{2}, itemIDs(m))
	assert.Len(t, s.store.Notifications(), 3)
	assert.Equal(t, 2, s.store.UnreadCount())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.Equal(t, "Road", s.bell.Filter().Search)
	assert.Contains(t, m.View(), `search: "Road"`)

	m = send(t, m, runes("/"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, s.bell.Filter().Search)
	assert.Equal(t, []int64{3, 2, 1}, itemIDs(m))
}

func TestUpdate_Sound(t *testing.T) {
	t.Parallel()

	m, tr, s := newTestModel(t)
	m = send(t, m, runes("s"))
	assert.False(t, s.prefs.SoundEnabled())
	assert.Equal(t, notifications.EventUpdatePreferences, tr.last())
	assert.Contains(t, m.View(), "sound off")
}

func TestUpdate_ToastsAndQuit(t *testing.T) {
	t.Parallel()

	m, _, s := newTestModel(t)
	s.toasts.Push(notifications.Notification{
		ID: 9, Message: "Bid accepted", Type: notifications.TypeTender,
		Tender: &notifications.TenderSummary{Title: "Bridge repair"},
	})
	m = send(t, m, toastMsg{})
	view := m.View()
	assert.Contains(t, view, "Bridge repair")
	assert.Contains(t, view, "Bid accepted")

	m = send(t, m, runes("x"))
	assert.Equal(t, 0, s.toasts.Len())

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestView_StripsTerminalSequences(t *testing.T) {
	t.Parallel()

	m, tr, _ := newTestModel(t)
	tr.push(t, notifications.EventNewNotification, notifications.Notification{
		ID: 5, Message: "\x1b]0;pwned\x07<b>Offer</b> \x1b[31mwithdrawn\x1b[0m", Type: notifications.TypeTender, CreatedAt: time.Now(),
	})
	m = send(t, m, changeMsg{})

	view := m.View()
	assert.Contains(t, view, "Offer withdrawn")
	assert.NotContains(t, view, "pwned")
	assert.NotContains(t, view, "<b>")
}

func TestUpdate_RefreshFromStore(t *testing.T) {
	t.Parallel()

	m, tr, _ := newTestModel(t)
	tr.push(t, notifications.EventNewNotification, notifications.Notification{
		ID: 4, Message: "Tender closes soon", Type: notifications.TypeTender, CreatedAt: time.Now(),
	})
	assert.Equal(t, []int64{3, 2, 1}, itemIDs(m))

	m = send(t, m, changeMsg{})
	assert.Equal(t, []int64{4, 3, 2, 1}, itemIDs(m))
}

// loop runs commands the way the bubbletea runtime does: each command in its
// own goroutine, batches expanded, results fed back into Update.
type loop struct {
	t    *testing.T
	m    Model
	msgs chan tea.Msg
}

func (l *loop) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() { l.msgs <- cmd() }()
}

func (l *loop) step() {
	l.t.Helper()
	select {
	case msg := <-l.msgs:
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				l.run(c)
			}
			return
		}
		next, cmd := l.m.Update(msg)
		l.m = next.(Model)
		l.run(cmd)
	case <-time.After(time.Second):
		l.t.Fatal("no message from the model")
	}
}

func TestUpdate_FeedWaitsDoNotAccumulate(t *testing.T) {
	m, _, s := newTestModel(t)
	l := &loop{t: t, m: m, msgs: make(chan tea.Msg, 16)}
	l.run(m.Init())
	l.step()

	before := runtime.NumGoroutine()
	for i := range 200 {
		if i%2 == 0 {
			s.store.MarkAsRead(3)
		} else {
			s.store.MarkAsUnread(3)
		}
		l.step()
	}

	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before+2 }, time.Second, 10*time.Millisecond,
		"goroutines before=%d after=%d", before, runtime.NumGoroutine())
	assert.Equal(t, 2, s.store.UnreadCount())
	require.NotEmpty(t, l.m.items)
	assert.Equal(t, int64(3), l.m.items[0].ID)
	assert.False(t, l.m.items[0].IsRead, "view reloaded after the last change")
}

func TestBellPlayer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewBellPlayer(&buf)
	require.NoError(t, p.Play(context.Background(), notifications.SoundTender))
	require.NoError(t, p.Play(context.Background(), notifications.SoundPayment))
	assert.Equal(t, 3, strings.Count(buf.String(), "\a"))
}
