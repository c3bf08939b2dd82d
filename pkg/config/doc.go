// Package config loads typed configuration structs from the process
// environment using github.com/caarlos0/env/v11, optionally seeded from .env
// files through github.com/joho/godotenv.
//
// Each configuration type is parsed once and cached by its reflect.Type:
//
//	type Config struct {
//	    SocketURL string `env:"TENDERBELL_SOCKET_URL,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// LoadEnv reads additional .env files before the first Load. ResetCache
// clears parsed values so tests can change the environment between cases.
package config
