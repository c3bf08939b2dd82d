package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrymomot/tenderbell/pkg/config"
	"github.com/dmitrymomot/tenderbell/pkg/httpserver"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/redis"
)

var errNoSocketURL = errors.New("TENDERBELL_SOCKET_URL is required")

// Config is the daemon configuration, read from TENDERBELL_* variables.
type Config struct {
	Env     string `env:"TENDERBELL_ENV" envDefault:"development"`
	LogFile string `env:"TENDERBELL_LOG_FILE"`

	SocketURL string `env:"TENDERBELL_SOCKET_URL"`
	APIURL    string `env:"TENDERBELL_API_URL"`
	Token     string `env:"TENDERBELL_TOKEN"`
	ScopeKind string `env:"TENDERBELL_SCOPE_KIND" envDefault:"user"`
	ScopeID   int64  `env:"TENDERBELL_SCOPE_ID"`
	PrefsFile string `env:"TENDERBELL_PREFS_FILE"`

	BackoffBase time.Duration `env:"TENDERBELL_BACKOFF_BASE" envDefault:"500ms"`
	BackoffMax  time.Duration `env:"TENDERBELL_BACKOFF_MAX" envDefault:"30s"`
	Jitter      uint64        `env:"TENDERBELL_BACKOFF_JITTER" envDefault:"20"`

	ToastLimit int           `env:"TENDERBELL_TOAST_LIMIT" envDefault:"5"`
	ToastTTL   time.Duration `env:"TENDERBELL_TOAST_TTL" envDefault:"5s"`

	Local httpserver.Config `envPrefix:"TENDERBELL_"`
	Redis redis.Config      `envPrefix:"TENDERBELL_REDIS_"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// scope returns the configured identity. An unset id yields the anonymous scope.
func (c Config) scope() (notifications.Scope, error) {
	if c.ScopeID == 0 {
		return notifications.Scope{}, nil
	}
	return notifications.ParseScope(c.ScopeKind, c.ScopeID)
}

// preferences reads the seed preferences file, if any.
func (c Config) preferences() (*notifications.Preferences, error) {
	if c.PrefsFile == "" {
		return nil, nil
	}
	f, err := os.Open(c.PrefsFile)
	if err != nil {
		return nil, fmt.Errorf("open preferences file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	p, err := notifications.LoadPreferencesYAML(f)
	if err != nil {
		return nil, fmt.Errorf("read preferences file %s: %w", c.PrefsFile, err)
	}
	return &p, nil
}
