package redis

import "time"

// Config describes the optional snapshot cache connection. Fields are read
// relative to the parent struct's env prefix.
type Config struct {
	// URL has the form redis://:password@localhost:6379/0. Empty disables the cache.
	URL string `env:"URL"`
	// RetryAttempts is the number of connection attempts before giving up.
	RetryAttempts uint64 `env:"RETRY_ATTEMPTS" envDefault:"3"`
	// RetryInterval is the base delay between attempts, doubled on each retry.
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"1s"`
	// ConnectTimeout bounds the whole connect sequence.
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}
