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
	envOnce sync.Once

	mu    sync.Mutex
	cache = make(map[reflect.Type]any)
)

// LoadEnv loads the given .env files (or ".env" when none are given) into the
// process environment. Variables already set are not overridden. Calling it
// before the first Load replaces the implicit ".env" lookup.
func LoadEnv(paths ...string) error {
	var err error
	envOnce.Do(func() {})
	if loadErr := godotenv.Load(paths...); loadErr != nil {
		err = errors.Join(ErrLoadingEnvFile, loadErr)
	}
	return err
}

// Load fills v from environment variables using `env` struct tags.
//
// The first call loads a .env file from the working directory if one exists.
// Each configuration type is parsed once; later calls for the same type
// return the cached value even if the environment changed.
//
//	type Config struct {
//		Subject string `env:"VAPID_SUBJECT" envDefault:"mailto:ops@example.com"`
//		TTL     int    `env:"WEBPUSH_TTL" envDefault:"86400"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	envOnce.Do(func() {
		// A missing .env file is fine, the environment may be set elsewhere.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	cfg := *v
	if err := env.Parse(&cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = cfg
	*v = cfg

	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Reset drops every cached configuration so the next Load parses the
// environment again. Meant for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(cache)
}
