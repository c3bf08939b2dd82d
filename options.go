package tenderbell

import (
	"log/slog"

	"github.com/dmitrymomot/tenderbell/pkg/api"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/socket"
	"github.com/dmitrymomot/tenderbell/pkg/surface"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger shared by every component. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAPI enables preference seeding and tender lookups.
func WithAPI(c *api.Client) Option {
	return func(s *Session) { s.api = c }
}

// WithSnapshotStorage keeps the feed between runs.
func WithSnapshotStorage(st notifications.SnapshotStorage) Option {
	return func(s *Session) { s.snapshots = st }
}

// WithPlayer plays notification sounds while sound is enabled.
func WithPlayer(p notifications.Player) Option {
	return func(s *Session) { s.player = p }
}

// WithDeliverer appends a side effect run for every new notification,
// after the sound and toast deliverers.
func WithDeliverer(d notifications.Deliverer) Option {
	return func(s *Session) {
		if d != nil {
			s.extra = append(s.extra, d)
		}
	}
}

// WithInitialPreferences seeds preferences before the API is consulted.
func WithInitialPreferences(p notifications.Preferences) Option {
	return func(s *Session) {
		p = p.Clone()
		s.initial = &p
	}
}

// WithSocketOptions passes options to the connection manager.
func WithSocketOptions(opts ...socket.Option) Option {
	return func(s *Session) { s.socketOpts = append(s.socketOpts, opts...) }
}

// WithStoreOptions passes options to the notification store.
func WithStoreOptions(opts ...notifications.StoreOption) Option {
	return func(s *Session) { s.storeOpts = append(s.storeOpts, opts...) }
}

// WithToastOptions passes options to the toast queue.
func WithToastOptions(opts ...surface.ToastOption) Option {
	return func(s *Session) { s.toastOpts = append(s.toastOpts, opts...) }
}

// WithTenderCacheSize bounds the tender summary cache. Defaults to 128.
func WithTenderCacheSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.tenderCacheSize = n
		}
	}
}
