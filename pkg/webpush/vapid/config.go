package vapid

import (
	"errors"
	"fmt"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
)

// Config holds the VAPID credentials and delivery settings.
type Config struct {
	Subject    string `env:"VAPID_SUBJECT" envDefault:"mailto:your-email@example.com"`
	PublicKey  string `env:"VAPID_PUBLIC_KEY,required"`
	PrivateKey string `env:"VAPID_PRIVATE_KEY,required"`

	TTL     int           `env:"WEBPUSH_TTL" envDefault:"86400"`
	Urgency string        `env:"WEBPUSH_URGENCY" envDefault:"normal"`
	Timeout time.Duration `env:"WEBPUSH_TIMEOUT" envDefault:"10s"`

	MaxRetries   int           `env:"WEBPUSH_MAX_RETRIES" envDefault:"2"`
	RetryBackoff time.Duration `env:"WEBPUSH_RETRY_BACKOFF" envDefault:"500ms"`
}

// Validate reports configuration errors wrapped with ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.Subject == "" {
		errs = append(errs, errors.New("subject is required"))
	}
	if c.PublicKey == "" || c.PrivateKey == "" {
		errs = append(errs, ErrMissingKeys)
	}
	if c.TTL < 0 {
		errs = append(errs, fmt.Errorf("ttl must not be negative, got %d", c.TTL))
	}
	switch wp.Urgency(c.Urgency) {
	case "", wp.UrgencyVeryLow, wp.UrgencyLow, wp.UrgencyNormal, wp.UrgencyHigh:
	default:
		errs = append(errs, fmt.Errorf("unknown urgency %q", c.Urgency))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
