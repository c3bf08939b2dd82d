package socket

import (
	"log/slog"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBackoff sets the initial and maximum reconnect delay.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
		if max >= base && max > 0 {
			c.backoffMax = max
		}
	}
}

// WithJitter sets the reconnect jitter as a percentage of each delay.
func WithJitter(percent uint64) Option {
	return func(c *Client) {
		c.jitterPercent = percent
	}
}

// WithQueueSize bounds the number of inbound frames waiting for dispatch.
func WithQueueSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queueSize = n
		}
	}
}
