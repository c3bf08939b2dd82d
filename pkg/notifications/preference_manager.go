package notifications

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/tenderbell/pkg/broadcast"
	"github.com/dmitrymomot/tenderbell/pkg/logger"
)

// PreferenceManager holds the session's preferences and propagates updates.
// Updates are optimistic: the local value changes first and the server is
// told afterwards, with no confirmation or rollback.
type PreferenceManager struct {
	transport Transport
	scope     Scope
	log       *slog.Logger
	changes   *broadcast.MemoryBroadcaster[Preferences]

	mu      sync.RWMutex
	current Preferences
}

// PreferenceOption configures a PreferenceManager.
type PreferenceOption func(*PreferenceManager)

// WithPreferenceLogger sets the logger. Defaults to slog.Default().
func WithPreferenceLogger(l *slog.Logger) PreferenceOption {
	return func(m *PreferenceManager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithInitialPreferences seeds the manager instead of DefaultPreferences.
func WithInitialPreferences(p Preferences) PreferenceOption {
	return func(m *PreferenceManager) { m.current = p.Clone() }
}

func NewPreferenceManager(transport Transport, scope Scope, opts ...PreferenceOption) *PreferenceManager {
	m := &PreferenceManager{
		transport: transport,
		scope:     scope,
		log:       slog.Default(),
		current:   DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("preferences"), logger.Scope(scope))
	m.changes = broadcast.NewMemoryBroadcaster[Preferences](8)
	return m
}

// Current returns a copy of the complete preference record.
func (m *PreferenceManager) Current() Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// SoundEnabled reports whether new notifications should play a sound.
func (m *PreferenceManager) SoundEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.SoundEnabled
}

// Update merges patch into the current preferences, stores the result and
// emits update-preferences with the full merged record.
func (m *PreferenceManager) Update(patch PreferencesPatch) (Preferences, error) {
	if m.scope.IsZero() {
		return Preferences{}, ErrNoScope
	}
	if err := patch.Validate(); err != nil {
		return Preferences{}, err
	}

	m.mu.Lock()
	m.current = m.current.Merge(patch)
	next := m.current.Clone()
	m.mu.Unlock()

	payload := m.scope.Payload()
	payload["preferences"] = next
	m.transport.Emit(EventUpdatePreferences, payload)

	m.log.LogAttrs(context.Background(), slog.LevelDebug, "preferences updated")
	m.publish(next)
	return next, nil
}

// Replace swaps the whole record without telling the server. Used to seed
// preferences fetched from the API or read from a file.
func (m *PreferenceManager) Replace(p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Clone()

	m.mu.Lock()
	m.current = p
	m.mu.Unlock()

	m.publish(p.Clone())
	return nil
}

// Changes subscribes to preference changes for the lifetime of ctx.
func (m *PreferenceManager) Changes(ctx context.Context) broadcast.Subscriber[Preferences] {
	return m.changes.Subscribe(ctx)
}

// Close ends every change subscription.
func (m *PreferenceManager) Close() error {
	return m.changes.Close()
}

func (m *PreferenceManager) publish(p Preferences) {
	_ = m.changes.Broadcast(context.Background(), broadcast.Message[Preferences]{Data: p})
}
