package tenderbell

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tenderbell/pkg/api"
	"github.com/dmitrymomot/tenderbell/pkg/broadcast"
	"github.com/dmitrymomot/tenderbell/pkg/cache"
	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/socket"
	"github.com/dmitrymomot/tenderbell/pkg/surface"
)

// Session is the shared notification state of one identity.
type Session struct {
	scope notifications.Scope
	log   *slog.Logger

	api             *api.Client
	snapshots       notifications.SnapshotStorage
	player          notifications.Player
	extra           []notifications.Deliverer
	initial         *notifications.Preferences
	socketOpts      []socket.Option
	storeOpts       []notifications.StoreOption
	toastOpts       []surface.ToastOption
	tenderCacheSize int

	socket  *socket.Client
	bus     *broadcast.MemoryBroadcaster[notifications.Notification]
	prefs   *notifications.PreferenceManager
	store   *notifications.Store
	toasts  *surface.ToastQueue
	bell    *surface.BellPanel
	tenders *cache.LRUCache[int64, notifications.TenderSummary]

	onConnect func()
	running   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// New builds a session for scope. A zero scope is allowed: the feed stays
// empty and every request returns notifications.ErrNoScope.
func New(dialer socket.Dialer, scope notifications.Scope, opts ...Option) (*Session, error) {
	if dialer == nil {
		return nil, ErrNoDialer
	}
	if !scope.IsZero() {
		if err := scope.Validate(); err != nil {
			return nil, err
		}
	}

	s := &Session{
		scope:           scope,
		log:             slog.Default(),
		tenderCacheSize: 128,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.socket = socket.New(dialer, append([]socket.Option{socket.WithLogger(s.log)}, s.socketOpts...)...)
	s.bus = broadcast.NewMemoryBroadcaster[notifications.Notification](16)

	prefOpts := []notifications.PreferenceOption{notifications.WithPreferenceLogger(s.log)}
	if s.initial != nil {
		prefOpts = append(prefOpts, notifications.WithInitialPreferences(*s.initial))
	}
	s.prefs = notifications.NewPreferenceManager(s.socket, scope, prefOpts...)

	deliverers := []notifications.Deliverer{
		notifications.NewSoundDeliverer(s.player, s.prefs),
		notifications.NewToastDeliverer(s.bus),
	}
	deliverers = append(deliverers, s.extra...)
	storeOpts := []notifications.StoreOption{
		notifications.WithStoreLogger(s.log),
		notifications.WithDeliverer(notifications.NewMultiDeliverer(deliverers,
			notifications.WithMultiDelivererLogger(s.log))),
	}
	if s.snapshots != nil {
		storeOpts = append(storeOpts, notifications.WithSnapshotStorage(s.snapshots))
	}
	s.store = notifications.NewStore(s.socket, scope, append(storeOpts, s.storeOpts...)...)

	s.toasts = surface.NewToastQueue(append([]surface.ToastOption{surface.WithToastLogger(s.log)}, s.toastOpts...)...)
	s.bell = surface.NewBellPanel(s.store)
	s.tenders = cache.NewLRUCache[int64, notifications.TenderSummary](s.tenderCacheSize)

	s.log = s.log.With(logger.Component("session"), logger.Scope(scope))
	s.onConnect = s.socket.Subscribe(socket.EventConnect, func(socket.Message) { s.sync() })
	return s, nil
}

// sync joins the room and reloads both lists. It runs on every connect.
func (s *Session) sync() {
	if s.scope.IsZero() {
		s.log.LogAttrs(context.Background(), slog.LevelWarn, "connected without a scope, skipping sync")
		return
	}
	for _, req := range []func() error{
		s.store.JoinRoom,
		s.store.LoadNotifications,
		s.store.LoadPendingNotifications,
	} {
		if err := req(); err != nil {
			s.log.LogAttrs(context.Background(), slog.LevelError, "sync request failed", logger.Error(err))
		}
	}
}

// Run restores the snapshot, seeds preferences and keeps the connection and
// the toast queue running until ctx ends or the session is closed.
func (s *Session) Run(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if err := s.store.Restore(ctx); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "snapshot restore failed", logger.Error(err))
	}
	s.seedPreferences(ctx)

	g, gctx := errgroup.WithContext(ctx)
	toasts := s.bus.Subscribe(gctx)
	g.Go(func() error { return s.socket.Run(gctx) })
	g.Go(func() error {
		err := s.toasts.Run(gctx, toasts)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	if s.closed.Load() {
		return nil
	}
	return err
}

func (s *Session) seedPreferences(ctx context.Context) {
	if s.api == nil || s.scope.IsZero() {
		return
	}
	p, err := s.api.GetPreferences(ctx, s.scope)
	switch {
	case api.IsStatus(err, http.StatusNotFound):
		s.log.LogAttrs(ctx, slog.LevelDebug, "no stored preferences, keeping defaults")
		return
	case err != nil:
		s.log.LogAttrs(ctx, slog.LevelWarn, "failed to fetch preferences", logger.Error(err))
		return
	}
	if err := s.prefs.Replace(p); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "rejected stored preferences", logger.Error(err))
	}
}

// Tender returns the summary of a tender, cached per session.
func (s *Session) Tender(ctx context.Context, id int64) (notifications.TenderSummary, error) {
	if t, ok := s.tenders.Get(id); ok {
		return t, nil
	}
	if s.api == nil {
		return notifications.TenderSummary{}, ErrNoAPI
	}
	t, err := s.api.GetTender(ctx, id)
	if err != nil {
		return notifications.TenderSummary{}, err
	}
	s.tenders.Put(id, t)
	return t, nil
}

func (s *Session) Scope() notifications.Scope { return s.scope }

func (s *Session) Store() *notifications.Store { return s.store }

func (s *Session) Preferences() *notifications.PreferenceManager { return s.prefs }

func (s *Session) Bell() *surface.BellPanel { return s.bell }

func (s *Session) Toasts() *surface.ToastQueue { return s.toasts }

// ToastBus is the bus new-notification toasts are published on.
func (s *Session) ToastBus() broadcast.Broadcaster[notifications.Notification] { return s.bus }

// PreferencesForm opens a fresh draft over the shared preferences.
func (s *Session) PreferencesForm() *surface.PreferencesForm {
	return surface.NewPreferencesForm(s.prefs)
}

// Connected reports whether the event connection is up.
func (s *Session) Connected() bool { return s.socket.IsConnected() }

// State is the connection lifecycle state.
func (s *Session) State() string { return string(s.socket.State()) }

// Close tears the session down in reverse construction order. It waits for
// socket dispatch to drain, so it must not be called from a socket handler.
func (s *Session) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.onConnect()
		if err := s.socket.Close(); err != nil {
			errs = append(errs, err)
		}
		s.socket.Wait()
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.prefs.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
