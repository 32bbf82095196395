package webpush_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

var (
	safariMobile  = webpush.DeviceInfo{Type: webpush.DeviceTypeMobile, OS: "iOS", Browser: "Safari"}
	chromeDesktop = webpush.DeviceInfo{Type: webpush.DeviceTypeDesktop, OS: "macOS", Browser: "Chrome"}
	firefoxTablet = webpush.DeviceInfo{Type: webpush.DeviceTypeTablet, OS: "Android", Browser: "Firefox", Model: "Tab S9"}
)

func creds(endpoint string) *webpush.PushSubscription {
	return &webpush.PushSubscription{Endpoint: endpoint, Keys: webpush.Keys{P256dh: "P", Auth: "A"}}
}

func deviceID(t *testing.T, info webpush.DeviceInfo) string {
	t.Helper()
	id, _, err := webpush.ResolveIdentity(info)
	require.NoError(t, err)
	return id
}

// MockTransport for testing Service
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Deliver(ctx context.Context, sub webpush.PushSubscription, payload []byte) error {
	args := m.Called(ctx, sub, payload)
	return args.Error(0)
}

// testClock advances one minute on every call.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func (c *testClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newService(store webpush.Store, transport webpush.Transport, clock *testClock, opts ...webpush.ServiceOption) *webpush.Service {
	opts = append([]webpush.ServiceOption{
		webpush.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		webpush.WithClock(clock.Now),
	}, opts...)
	return webpush.NewService(store, transport, opts...)
}

// faultyStore wraps MemoryStore and lets tests inject failures into single
// repository calls, both inside and outside transactions.
type faultyStore struct {
	*webpush.MemoryStore

	onCreateSubscription func() error
	onUpdateSubscription func() error
	onUpdateDevice       func() error
	onListDevices        func() error
	onFindSubscription   func() error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: webpush.NewMemoryStore()}
}

func (s *faultyStore) Devices() webpush.DeviceRepository {
	return faultyDevices{DeviceRepository: s.MemoryStore.Devices(), store: s}
}

func (s *faultyStore) Subscriptions() webpush.SubscriptionRepository {
	return faultySubscriptions{SubscriptionRepository: s.MemoryStore.Subscriptions(), store: s}
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos webpush.Repositories) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, repos webpush.Repositories) error {
		return fn(ctx, faultyRepos{repos: repos, store: s})
	})
}

type faultyRepos struct {
	repos webpush.Repositories
	store *faultyStore
}

func (r faultyRepos) Devices() webpush.DeviceRepository {
	return faultyDevices{DeviceRepository: r.repos.Devices(), store: r.store}
}

func (r faultyRepos) Subscriptions() webpush.SubscriptionRepository {
	return faultySubscriptions{SubscriptionRepository: r.repos.Subscriptions(), store: r.store}
}

type faultyDevices struct {
	webpush.DeviceRepository
	store *faultyStore
}

func (d faultyDevices) UpdateDevice(ctx context.Context, device *webpush.Device) error {
	if hook := d.store.onUpdateDevice; hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}
	return d.DeviceRepository.UpdateDevice(ctx, device)
}

func (d faultyDevices) ListDevices(ctx context.Context, filter webpush.DeviceFilter) ([]webpush.Device, error) {
	if hook := d.store.onListDevices; hook != nil {
		if err := hook(); err != nil {
			return nil, err
		}
	}
	return d.DeviceRepository.ListDevices(ctx, filter)
}

type faultySubscriptions struct {
	webpush.SubscriptionRepository
	store *faultyStore
}

func (s faultySubscriptions) FindSubscription(ctx context.Context, filter webpush.SubscriptionFilter) (*webpush.Subscription, error) {
	if hook := s.store.onFindSubscription; hook != nil {
		if err := hook(); err != nil {
			return nil, err
		}
	}
	return s.SubscriptionRepository.FindSubscription(ctx, filter)
}

func (s faultySubscriptions) CreateSubscription(ctx context.Context, sub *webpush.Subscription) error {
	if hook := s.store.onCreateSubscription; hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}
	return s.SubscriptionRepository.CreateSubscription(ctx, sub)
}

func (s faultySubscriptions) UpdateSubscription(ctx context.Context, sub *webpush.Subscription) error {
	if hook := s.store.onUpdateSubscription; hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}
	return s.SubscriptionRepository.UpdateSubscription(ctx, sub)
}
