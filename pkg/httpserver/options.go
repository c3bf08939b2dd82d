package httpserver

import (
	"log/slog"
	"time"
)

// Option configures the server. Zero values keep the default.
type Option func(*config)

// WithAddr sets host:port. Only loopback hosts are accepted unless
// WithAnyInterface is also given.
func WithAddr(addr string) Option {
	return func(c *config) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithTimeouts sets the request read, keep-alive idle and graceful shutdown
// limits. Open event streams are cut when the shutdown limit runs out.
func WithTimeouts(read, idle, shutdown time.Duration) Option {
	return func(c *config) {
		c.readTimeout = positiveOr(read, c.readTimeout)
		c.idleTimeout = positiveOr(idle, c.idleTimeout)
		c.shutdownTimeout = positiveOr(shutdown, c.shutdownTimeout)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAnyInterface allows binding to non-loopback addresses.
func WithAnyInterface() Option {
	return func(c *config) { c.loopbackOnly = false }
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
