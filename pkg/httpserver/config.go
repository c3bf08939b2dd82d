package httpserver

import "time"

// Config is read relative to the parent struct's env prefix.
type Config struct {
	// Addr is host:port of the loopback API. Empty disables it.
	Addr            string        `env:"LOCAL_ADDR"`
	ReadTimeout     time.Duration `env:"LOCAL_READ_TIMEOUT"     envDefault:"10s"`
	IdleTimeout     time.Duration `env:"LOCAL_IDLE_TIMEOUT"     envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"LOCAL_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// NewFromConfig creates a Server from cfg. Options win over cfg.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	base := []Option{
		WithAddr(cfg.Addr),
		WithTimeouts(cfg.ReadTimeout, cfg.IdleTimeout, cfg.ShutdownTimeout),
	}
	return New(append(base, opts...)...)
}
