package notifications

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenderbell/pkg/broadcast"
	"github.com/dmitrymomot/tenderbell/pkg/cache"
	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/socket"
)

// SnapshotPolicy decides how a notifications-loaded snapshot treats entries
// that arrived live after the load was requested.
type SnapshotPolicy int

const (
	// SnapshotReplace lets the snapshot fully supersede local state.
	SnapshotReplace SnapshotPolicy = iota
	// SnapshotKeepNewer keeps live arrivals that the snapshot does not contain
	// and that are newer than its newest entry.
	SnapshotKeepNewer
)

// ChangeKind names what happened to the store.
type ChangeKind string

const (
	ChangeAdded      ChangeKind = "added"
	ChangeUpdated    ChangeKind = "updated"
	ChangeRemoved    ChangeKind = "removed"
	ChangeReloaded   ChangeKind = "reloaded"
	ChangePending    ChangeKind = "pending"
	ChangeRolledBack ChangeKind = "rolled-back"
)

// Change is published after every state mutation.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	ID     int64      `json:"id,omitempty"`
	Unread int        `json:"unread"`
}

type mutation struct {
	event   string
	ids     []int64
	removed *Notification
	index   int
}

// Store is the reconciled notification state of one session.
type Store struct {
	transport   Transport
	scope       Scope
	deliverer   Deliverer
	log         *slog.Logger
	policy      SnapshotPolicy
	snapshots   SnapshotStorage
	journalSize int
	newCID      func() string

	changes *broadcast.MemoryBroadcaster[Change]
	journal *cache.LRUCache[string, mutation]

	mu      sync.RWMutex
	items   []Notification
	pending []PendingNotification
	unread  int
	stale   bool
	live    map[int64]struct{}

	unsubscribe []func()
	closeOnce   sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger. Defaults to slog.Default().
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDeliverer sets the side-effect chain run for each new notification.
func WithDeliverer(d Deliverer) StoreOption {
	return func(s *Store) {
		if d != nil {
			s.deliverer = d
		}
	}
}

// WithSnapshotPolicy sets how notifications-loaded is reconciled.
func WithSnapshotPolicy(p SnapshotPolicy) StoreOption {
	return func(s *Store) { s.policy = p }
}

// WithSnapshotStorage persists state after each change and enables Restore.
func WithSnapshotStorage(st SnapshotStorage) StoreOption {
	return func(s *Store) { s.snapshots = st }
}

// WithJournalSize bounds the number of optimistic mutations kept for rollback.
func WithJournalSize(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.journalSize = n
		}
	}
}

// WithCorrelationIDs overrides the correlation id generator.
func WithCorrelationIDs(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newCID = fn
		}
	}
}

// NewStore creates a store for scope and subscribes it to the inbound events
// of transport. Close releases the subscriptions.
func NewStore(transport Transport, scope Scope, opts ...StoreOption) *Store {
	s := &Store{
		transport:   transport,
		scope:       scope,
		deliverer:   NoOpDeliverer{},
		log:         slog.Default(),
		journalSize: 256,
		newCID:      uuid.NewString,
		items:       []Notification{},
		pending:     []PendingNotification{},
		live:        make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("store"), logger.Scope(scope))
	s.changes = broadcast.NewMemoryBroadcaster[Change](64)
	s.journal = cache.NewLRUCache[string, mutation](s.journalSize)

	handlers := map[string]socket.Handler{
		EventNewNotification:     s.onNew,
		EventNotificationUpdated: s.onUpdated,
		EventNotificationsLoaded: s.onLoaded,
		EventPendingLoaded:       s.onPendingLoaded,
		EventNotificationDeleted: s.onDeleted,
		EventMutationRejected:    s.onRejected,
	}
	for event, h := range handlers {
		s.unsubscribe = append(s.unsubscribe, transport.Subscribe(event, h))
	}
	return s
}

// Scope returns the identity the store acts for.
func (s *Store) Scope() Scope { return s.scope }

// Notifications returns a copy of the feed, most recent first.
func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Pending returns a copy of the scheduled notifications.
func (s *Store) Pending() []PendingNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pending)
}

// UnreadCount returns the unread counter.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Get returns the entry with id.
func (s *Store) Get(id int64) (Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return Notification{}, false
}

// Stale reports whether the feed came from a persisted snapshot and has not
// been confirmed by the server yet.
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// Connected reports the transport state.
func (s *Store) Connected() bool { return s.transport.IsConnected() }

// Changes subscribes to state changes for the lifetime of ctx.
func (s *Store) Changes(ctx context.Context) broadcast.Subscriber[Change] {
	return s.changes.Subscribe(ctx)
}

// JoinRoom asks the server to route the scope's events to this connection.
func (s *Store) JoinRoom() error {
	if s.scope.IsZero() {
		return ErrNoScope
	}
	s.transport.Emit(EventJoinRoom, s.scope.RoomPayload())
	return nil
}

// LoadNotifications requests a full snapshot. State changes only when the
// snapshot arrives.
func (s *Store) LoadNotifications() error {
	if s.scope.IsZero() {
		return ErrNoScope
	}
	s.mu.Lock()
	clear(s.live)
	s.mu.Unlock()

	s.transport.Emit(EventLoadNotifications, s.scope.Payload())
	return nil
}

// LoadPendingNotifications requests the scheduled notifications.
func (s *Store) LoadPendingNotifications() error {
	if s.scope.IsZero() {
		return ErrNoScope
	}
	s.transport.Emit(EventLoadPending, s.scope.Payload())
	return nil
}

// MarkAsRead marks id read locally and tells the server. Marking an entry
// that is already read, or an unknown id, changes nothing locally.
func (s *Store) MarkAsRead(id int64) {
	s.setRead(id, true)
}

// MarkAsUnread is the inverse of MarkAsRead.
func (s *Store) MarkAsUnread(id int64) {
	s.setRead(id, false)
}

func (s *Store) setRead(id int64, read bool) {
	event := EventMarkAsUnread
	if read {
		event = EventMarkAsRead
	}
	cid := s.newCID()

	s.mu.Lock()
	changed := s.flip(id, read)
	if changed {
		s.journal.Put(cid, mutation{event: event, ids: []int64{id}})
	}
	unread := s.unread
	s.mu.Unlock()

	s.transport.EmitCorrelated(event, cid, idPayload{NotificationID: id})
	if changed {
		s.changed(Change{Kind: ChangeUpdated, ID: id, Unread: unread})
	}
}

// MarkAllAsRead marks every entry read and zeroes the unread count.
func (s *Store) MarkAllAsRead() error {
	if s.scope.IsZero() {
		return ErrNoScope
	}
	cid := s.newCID()

	s.mu.Lock()
	var flipped []int64
	for i := range s.items {
		if !s.items[i].IsRead {
			s.items[i].IsRead = true
			flipped = append(flipped, s.items[i].ID)
		}
	}
	s.unread = 0
	if len(flipped) > 0 {
		s.journal.Put(cid, mutation{event: EventMarkAllAsRead, ids: flipped})
	}
	s.mu.Unlock()

	s.transport.EmitCorrelated(EventMarkAllAsRead, cid, s.scope.Payload())
	s.changed(Change{Kind: ChangeUpdated})
	return nil
}

// DeleteNotification removes id locally and tells the server. Deleting an
// unknown id changes nothing locally.
func (s *Store) DeleteNotification(id int64) {
	cid := s.newCID()

	s.mu.Lock()
	removed, idx := s.remove(id)
	if removed != nil {
		s.journal.Put(cid, mutation{event: EventDeleteNotification, removed: removed, index: idx})
	}
	unread := s.unread
	s.mu.Unlock()

	s.transport.EmitCorrelated(EventDeleteNotification, cid, idPayload{NotificationID: id})
	if removed != nil {
		s.changed(Change{Kind: ChangeRemoved, ID: id, Unread: unread})
	}
}

// Restore seeds the feed from snapshot storage. The restored feed is marked
// stale until the next notifications-loaded.
func (s *Store) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load(ctx, s.scope)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.items = s.visible(snap.Notifications)
	s.pending = slices.Clone(snap.Pending)
	if s.pending == nil {
		s.pending = []PendingNotification{}
	}
	s.unread = countUnread(s.items)
	s.stale = true
	unread := s.unread
	s.mu.Unlock()

	s.log.LogAttrs(ctx, slog.LevelDebug, "restored snapshot",
		slog.Int("count", len(snap.Notifications)), slog.Time("saved_at", snap.SavedAt))
	s.publish(Change{Kind: ChangeReloaded, Unread: unread})
	return nil
}

// Close releases the transport subscriptions and the change feed.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		for _, unsubscribe := range s.unsubscribe {
			unsubscribe()
		}
		_ = s.changes.Close()
	})
	return nil
}

func (s *Store) onNew(msg socket.Message) {
	var n Notification
	if !s.decode(msg, &n) {
		return
	}
	n = n.normalized()
	if !s.accept(n) {
		return
	}

	s.mu.Lock()
	duplicate := false
	if i := s.index(n.ID); i >= 0 {
		s.items[i] = n
		s.unread = countUnread(s.items)
		duplicate = true
	} else {
		s.items = slices.Insert(s.items, 0, n)
		if !n.IsRead {
			s.unread++
		}
		s.live[n.ID] = struct{}{}
	}
	unread := s.unread
	s.mu.Unlock()

	if duplicate {
		s.changed(Change{Kind: ChangeUpdated, ID: n.ID, Unread: unread})
		return
	}
	s.changed(Change{Kind: ChangeAdded, ID: n.ID, Unread: unread})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deliverer.Deliver(ctx, n); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "side effects failed",
			logger.NotificationID(n.ID), logger.Error(err))
	}
}

func (s *Store) onUpdated(msg socket.Message) {
	var n Notification
	if !s.decode(msg, &n) {
		return
	}
	n = n.normalized()
	if !s.accept(n) {
		return
	}

	s.mu.Lock()
	i := s.index(n.ID)
	if i >= 0 {
		s.items[i] = n
		s.unread = countUnread(s.items)
	}
	unread := s.unread
	s.mu.Unlock()

	if i < 0 {
		s.log.LogAttrs(context.Background(), slog.LevelDebug, "update for unknown notification",
			logger.NotificationID(n.ID))
		return
	}
	s.changed(Change{Kind: ChangeUpdated, ID: n.ID, Unread: unread})
}

func (s *Store) onLoaded(msg socket.Message) {
	var list []Notification
	if !s.decode(msg, &list) {
		return
	}
	for i := range list {
		list[i] = list[i].normalized()
	}
	snapshot := s.visible(list)

	s.mu.Lock()
	next := snapshot
	if s.policy == SnapshotKeepNewer {
		next = append(s.keptLive(snapshot), snapshot...)
	}
	s.items = next
	s.unread = countUnread(next)
	s.stale = false
	clear(s.live)
	unread := s.unread
	s.mu.Unlock()

	s.journal.Clear()
	s.changed(Change{Kind: ChangeReloaded, Unread: unread})
}

// keptLive returns live arrivals absent from snapshot and newer than its
// newest entry. Must be called with lock held.
func (s *Store) keptLive(snapshot []Notification) []Notification {
	var newest time.Time
	inSnapshot := make(map[int64]struct{}, len(snapshot))
	for _, n := range snapshot {
		inSnapshot[n.ID] = struct{}{}
		if n.CreatedAt.After(newest) {
			newest = n.CreatedAt
		}
	}

	var kept []Notification
	for _, n := range s.items {
		if _, ok := s.live[n.ID]; !ok {
			continue
		}
		if _, ok := inSnapshot[n.ID]; ok {
			continue
		}
		if n.CreatedAt.After(newest) {
			kept = append(kept, n)
		}
	}
	return kept
}

func (s *Store) onPendingLoaded(msg socket.Message) {
	var list []PendingNotification
	if !s.decode(msg, &list) {
		return
	}
	for i := range list {
		list[i].Type = ParseType(string(list[i].Type))
	}
	if list == nil {
		list = []PendingNotification{}
	}

	s.mu.Lock()
	s.pending = list
	unread := s.unread
	s.mu.Unlock()

	s.changed(Change{Kind: ChangePending, Unread: unread})
}

func (s *Store) onDeleted(msg socket.Message) {
	var p idPayload
	if !s.decode(msg, &p) {
		return
	}

	s.mu.Lock()
	removed, _ := s.remove(p.NotificationID)
	unread := s.unread
	s.mu.Unlock()

	if removed != nil {
		s.changed(Change{Kind: ChangeRemoved, ID: p.NotificationID, Unread: unread})
	}
}

func (s *Store) onRejected(msg socket.Message) {
	var r rejection
	if len(msg.Data) > 0 && !s.decode(msg, &r) {
		return
	}
	if r.CID == "" {
		r.CID = msg.CID
	}

	m, ok := s.journal.Take(r.CID)
	if !ok {
		s.log.LogAttrs(context.Background(), slog.LevelDebug, "rejection for unknown mutation",
			logger.CorrelationID(r.CID), logger.Event(r.Event))
		return
	}

	s.mu.Lock()
	switch m.event {
	case EventMarkAsRead, EventMarkAllAsRead:
		for _, id := range m.ids {
			s.flip(id, false)
		}
	case EventMarkAsUnread:
		for _, id := range m.ids {
			s.flip(id, true)
		}
	case EventDeleteNotification:
		if m.removed != nil && s.index(m.removed.ID) < 0 {
			at := min(m.index, len(s.items))
			s.items = slices.Insert(s.items, at, *m.removed)
		}
	}
	s.unread = countUnread(s.items)
	unread := s.unread
	s.mu.Unlock()

	s.log.LogAttrs(context.Background(), slog.LevelWarn, "mutation rejected, rolled back",
		logger.CorrelationID(r.CID), logger.Event(m.event), slog.String("reason", r.Reason))
	s.changed(Change{Kind: ChangeRolledBack, Unread: unread})
}

func (s *Store) decode(msg socket.Message, v any) bool {
	if err := msg.Decode(v); err != nil {
		s.log.LogAttrs(context.Background(), slog.LevelWarn, "inbound event dropped",
			logger.Event(msg.Event), logger.Error(err))
		return false
	}
	return true
}

func (s *Store) accept(n Notification) bool {
	if err := n.Validate(); err != nil {
		s.log.LogAttrs(context.Background(), slog.LevelWarn, "invalid notification dropped", logger.Error(err))
		return false
	}
	if !n.VisibleTo(s.scope) {
		s.log.LogAttrs(context.Background(), slog.LevelWarn, "notification for another owner dropped",
			logger.NotificationID(n.ID), slog.String("owner", n.Owner().String()))
		return false
	}
	return true
}

func (s *Store) visible(list []Notification) []Notification {
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		if n.Validate() == nil && n.VisibleTo(s.scope) {
			out = append(out, n)
		}
	}
	return out
}

// Must be called with lock held.
func (s *Store) index(id int64) int {
	return slices.IndexFunc(s.items, func(n Notification) bool { return n.ID == id })
}

// flip sets the read flag of id and adjusts the counter, floored at zero.
// Must be called with lock held.
func (s *Store) flip(id int64, read bool) bool {
	i := s.index(id)
	if i < 0 || s.items[i].IsRead == read {
		return false
	}
	s.items[i].IsRead = read
	if read {
		s.unread = max(s.unread-1, 0)
	} else {
		s.unread++
	}
	return true
}

// Must be called with lock held.
func (s *Store) remove(id int64) (*Notification, int) {
	i := s.index(id)
	if i < 0 {
		return nil, -1
	}
	n := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	if !n.IsRead {
		s.unread = max(s.unread-1, 0)
	}
	return &n, i
}

func countUnread(list []Notification) int {
	c := 0
	for _, n := range list {
		if !n.IsRead {
			c++
		}
	}
	return c
}

// changed publishes c and persists the new state.
func (s *Store) changed(c Change) {
	s.publish(c)
	s.persist()
}

func (s *Store) publish(c Change) {
	_ = s.changes.Broadcast(context.Background(), broadcast.Message[Change]{Data: c})
}

func (s *Store) persist() {
	if s.snapshots == nil || s.scope.IsZero() {
		return
	}

	s.mu.RLock()
	snap := Snapshot{
		Scope:         s.scope,
		Notifications: slices.Clone(s.items),
		Pending:       slices.Clone(s.pending),
		SavedAt:       time.Now(),
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "snapshot save failed", logger.Error(err))
	}
}
