// Package localapi exposes a running session to other local processes over
// loopback HTTP: the filtered feed, read/unread/delete gestures, preferences,
// connection status and a Server-Sent Events stream of toasts and changes.
package localapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tenderbell/pkg/broadcast"
	"github.com/dmitrymomot/tenderbell/pkg/environment"
	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/requestid"
)

// Session is what the API serves. *tenderbell.Session implements it.
type Session interface {
	Store() *notifications.Store
	Preferences() *notifications.PreferenceManager
	ToastBus() broadcast.Broadcaster[notifications.Notification]
	Connected() bool
	State() string
	Tender(ctx context.Context, id int64) (notifications.TenderSummary, error)
}

// Check is a named readiness probe reported by /status.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

type handlers struct {
	session   Session
	log       *slog.Logger
	checks    []Check
	heartbeat time.Duration
}

// Option configures the router.
type Option func(*handlers)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *handlers) {
		if l != nil {
			h.log = l
		}
	}
}

// WithCheck adds a probe to /status.
func WithCheck(name string, probe func(context.Context) error) Option {
	return func(h *handlers) {
		if probe != nil {
			h.checks = append(h.checks, Check{Name: name, Probe: probe})
		}
	}
}

// WithHeartbeat sets the keep-alive interval of /events. Defaults to 15s.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewRouter returns the HTTP handler for s.
func NewRouter(s Session, env environment.Environment, opts ...Option) http.Handler {
	h := &handlers{session: s, log: slog.Default(), heartbeat: 15 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("localapi"))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(environment.Middleware(env))
	r.Use(h.logRequests)

	r.Get("/status", h.status)
	r.Get("/events", h.events)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/pending", h.pending)
		r.Post("/read-all", h.markAll)
		r.Post("/{id}/read", h.markRead)
		r.Post("/{id}/unread", h.markUnread)
		r.Delete("/{id}", h.remove)
	})

	r.Get("/preferences", h.getPreferences)
	r.Patch("/preferences", h.patchPreferences)
	r.Get("/tenders/{id}", h.tender)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

func (h *handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			logger.Duration(time.Since(start)),
		)
	})
}
