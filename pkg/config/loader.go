package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	parsed = make(map[reflect.Type]any)

	dotenv sync.Once
)

// LoadEnv loads the given .env files into the process environment. Variables
// that are already set are not overridden. With no paths it loads ./.env.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load fills v from the environment. A type is parsed once; later calls for
// the same type get the first result. Failed parses are not cached.
// ./.env is read before the first parse when it exists.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenv.Do(func() { _ = godotenv.Load() })

	typ := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := parsed[typ]; ok {
		*v = cached.(T)
		return nil
	}

	var fresh T
	if err := env.Parse(&fresh); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrParsingConfig, typ, err)
	}
	parsed[typ] = fresh
	*v = fresh
	return nil
}

// MustLoad is Load for values the binary cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// ResetCache forgets every parsed type.
func ResetCache() {
	mu.Lock()
	clear(parsed)
	mu.Unlock()
}
