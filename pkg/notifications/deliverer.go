package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/tenderbell/pkg/broadcast"
	"github.com/dmitrymomot/tenderbell/pkg/logger"
)

// Deliverer performs a side effect for a newly arrived notification.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, n Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, n Notification) error { return f(ctx, n) }

// MultiDeliverer runs every deliverer in order, best effort: a failure is
// logged and the remaining deliverers still run.
type MultiDeliverer struct {
	deliverers []Deliverer
	logger     *slog.Logger
}

// MultiDelivererOption configures a MultiDeliverer.
type MultiDelivererOption func(*MultiDeliverer)

// WithMultiDelivererLogger sets the logger for the MultiDeliverer.
func WithMultiDelivererLogger(l *slog.Logger) MultiDelivererOption {
	return func(m *MultiDeliverer) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMultiDeliverer combines deliverers. Nil entries are skipped.
func NewMultiDeliverer(deliverers []Deliverer, opts ...MultiDelivererOption) *MultiDeliverer {
	m := &MultiDeliverer{logger: slog.Default()}
	for _, d := range deliverers {
		if d != nil {
			m.deliverers = append(m.deliverers, d)
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MultiDeliverer) Deliver(ctx context.Context, n Notification) error {
	for i, d := range m.deliverers {
		if err := d.Deliver(ctx, n); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "side effect failed",
				logger.NotificationID(n.ID),
				slog.Int("deliverer_index", i),
				logger.Error(err),
			)
		}
	}
	return nil
}

// NoOpDeliverer does nothing.
type NoOpDeliverer struct{}

func (NoOpDeliverer) Deliver(context.Context, Notification) error { return nil }

// Sound names a notification sound variant.
type Sound string

const (
	SoundTender  Sound = "tender"
	SoundPayment Sound = "payment"
	SoundDefault Sound = "default"
)

// SoundFor picks the sound variant for a notification type.
func SoundFor(t Type) Sound {
	switch ParseType(string(t)) {
	case TypeTender:
		return SoundTender
	case TypePayment:
		return SoundPayment
	default:
		return SoundDefault
	}
}

// Player plays a sound. Implementations should not block for long.
type Player interface {
	Play(ctx context.Context, s Sound) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, s Sound) error

func (f PlayerFunc) Play(ctx context.Context, s Sound) error { return f(ctx, s) }

// SoundSource reports whether sound is currently enabled.
// *PreferenceManager implements it.
type SoundSource interface {
	SoundEnabled() bool
}

// SoundDeliverer plays the type-specific sound when sound is enabled.
type SoundDeliverer struct {
	player Player
	source SoundSource
}

func NewSoundDeliverer(player Player, source SoundSource) *SoundDeliverer {
	return &SoundDeliverer{player: player, source: source}
}

func (d *SoundDeliverer) Deliver(ctx context.Context, n Notification) error {
	if d.player == nil || d.source == nil || !d.source.SoundEnabled() {
		return nil
	}
	return d.player.Play(ctx, SoundFor(n.Type))
}

// ErrNoToastBus is returned by a ToastDeliverer without a bus.
var ErrNoToastBus = errors.New("notifications: toast bus is not set")

// ToastDeliverer publishes notifications on the toast bus.
type ToastDeliverer struct {
	bus broadcast.Broadcaster[Notification]
}

func NewToastDeliverer(bus broadcast.Broadcaster[Notification]) *ToastDeliverer {
	return &ToastDeliverer{bus: bus}
}

func (d *ToastDeliverer) Deliver(ctx context.Context, n Notification) error {
	if d.bus == nil {
		return ErrNoToastBus
	}
	return d.bus.Broadcast(ctx, broadcast.Message[Notification]{Data: n})
}
