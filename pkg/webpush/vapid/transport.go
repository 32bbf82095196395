package vapid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"

	"github.com/dmitrymomot/pushkit/pkg/config"
	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

// HTTPClient sends the push requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport implements webpush.Transport. It is safe for concurrent use.
type Transport struct {
	cfg        Config
	subscriber string
	client     HTTPClient
	logger     *slog.Logger
}

var _ webpush.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the default client built from Config.Timeout.
func WithHTTPClient(c HTTPClient) Option {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(log *slog.Logger) Option {
	return func(t *Transport) {
		if log != nil {
			t.logger = log
		}
	}
}

// New validates cfg and creates a Transport.
func New(cfg Config, opts ...Option) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Urgency == "" {
		cfg.Urgency = string(wp.UrgencyNormal)
	}

	t := &Transport{
		cfg: cfg,
		// webpush-go adds the mailto: scheme itself for non-https subjects.
		subscriber: strings.TrimPrefix(cfg.Subject, "mailto:"),
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(logger.Component("vapid"))

	return t, nil
}

// NewFromEnv loads Config from the environment and creates a Transport.
func NewFromEnv(opts ...Option) (*Transport, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return New(cfg, opts...)
}

// PublicKey returns the application server key browsers subscribe with.
func (t *Transport) PublicKey() string {
	return t.cfg.PublicKey
}

// Deliver encrypts payload for the subscription and posts it to its endpoint.
// Timeouts, rate limiting, 5xx answers and network errors are retried up to
// Config.MaxRetries times.
func (t *Transport) Deliver(ctx context.Context, sub webpush.PushSubscription, payload []byte) error {
	var err error
	for attempt := 0; attempt <= t.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(t.cfg.RetryBackoff, attempt)
			t.logger.LogAttrs(ctx, slog.LevelDebug, "Retrying push delivery",
				logger.Endpoint(sub.Endpoint),
				logger.RetryCount(attempt),
				logger.Duration(wait),
				logger.Error(err),
			)
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(wait):
			}
		}

		err = t.send(ctx, sub, payload)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (t *Transport) send(ctx context.Context, sub webpush.PushSubscription, payload []byte) error {
	resp, err := wp.SendNotificationWithContext(ctx, payload, &wp.Subscription{
		Endpoint: sub.Endpoint,
		Keys: wp.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &wp.Options{
		HTTPClient:      t.client,
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.cfg.PublicKey,
		VAPIDPrivateKey: t.cfg.PrivateKey,
		TTL:             t.cfg.TTL,
		Urgency:         wp.Urgency(t.cfg.Urgency),
	})
	if err != nil {
		return errors.Join(webpush.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return errors.Join(webpush.ErrTransportGone, statusErr)
	default:
		return errors.Join(webpush.ErrTransport, statusErr)
	}
}

func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
