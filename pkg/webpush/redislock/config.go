package redislock

import "time"

// Config holds the Redis connection and lock settings.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	LockTTL           time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	LockRetryInterval time.Duration `env:"LOCK_RETRY_INTERVAL" envDefault:"50ms"`
	LockPrefix        string        `env:"LOCK_PREFIX" envDefault:"webpush:lock:"`
}

// Options converts the lock settings into Locker options.
func (c Config) Options() []Option {
	return []Option{
		WithTTL(c.LockTTL),
		WithRetryInterval(c.LockRetryInterval),
		WithPrefix(c.LockPrefix),
	}
}
