// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv, which reads an optional .env file
// into the process environment, with github.com/caarlos0/env/v11, which
// parses the environment into structs annotated with `env` tags. Every
// adapter in this module (pg, vapid, redislock) declares its own Config
// struct and loads it through Load:
//
//	var cfg vapid.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Each configuration type is parsed once per process and cached; Reset clears
// the cache in tests. MustLoad panics instead of returning an error, for
// settings a service cannot start without.
package config
