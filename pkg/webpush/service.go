package webpush

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// Service registers devices, delivers notifications and manages the
// subscription lifecycle on top of a Store and a Transport.
type Service struct {
	store       Store
	transport   Transport
	locker      Locker
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithLocker replaces the in-process per-device lock, e.g. with a
// distributed one when several instances share the same store.
func WithLocker(l Locker) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFanoutConcurrency lets SendCustomerNotification deliver to up to n
// devices at once. Values below 2 keep the default sequential behavior.
func WithFanoutConcurrency(n int) ServiceOption {
	return func(s *Service) {
		s.concurrency = n
	}
}

// NewService creates a Service. A nil transport makes every delivery fail with ErrTransport.
func NewService(store Store, transport Transport, opts ...ServiceOption) *Service {
	if transport == nil {
		transport = TransportFunc(func(context.Context, PushSubscription, []byte) error {
			return errors.Join(ErrTransport, errors.New("no transport configured"))
		})
	}

	s := &Service{
		store:       store,
		transport:   transport,
		locker:      NewMemoryLocker(),
		logger:      slog.Default(),
		now:         time.Now,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("webpush"))

	return s
}

// RegisterInput carries a registration request. CustomerID is empty for anonymous devices.
type RegisterInput struct {
	CustomerID   string            `json:"customer_id,omitempty"`
	DeviceInfo   *DeviceInfo       `json:"device_info"`
	Subscription *PushSubscription `json:"subscription"`
}

// RegisterDevice stores the device and its push credential.
//
// The device row is looked up by fingerprint and customer and either refreshed
// or created; the subscription row of the fingerprint is overwritten with the
// new credential and reactivated, or created. Both writes commit together.
// Registering the same device again is idempotent.
func (s *Service) RegisterDevice(ctx context.Context, in RegisterInput) (*Device, error) {
	if in.DeviceInfo == nil {
		return nil, errors.Join(ErrInvalidInput, errors.New("device info is required"))
	}
	if in.Subscription == nil || in.Subscription.Endpoint == "" {
		return nil, errors.Join(ErrInvalidInput, errors.New("push subscription is required"))
	}

	deviceID, deviceName, err := ResolveIdentity(*in.DeviceInfo)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(deviceID))
	if err != nil {
		return nil, fmt.Errorf("acquire device lock: %w", err)
	}
	defer unlock()

	var device *Device
	register := func() error {
		return s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
			d, err := s.upsertDevice(ctx, repos.Devices(), in.CustomerID, deviceID, deviceName, *in.DeviceInfo)
			if err != nil {
				return err
			}
			if err := s.upsertSubscription(ctx, repos.Subscriptions(), deviceID, *in.Subscription); err != nil {
				return err
			}
			device = d
			return nil
		})
	}

	err = register()
	if errors.Is(err, ErrConflict) {
		// Another writer created the active subscription first; the retry updates it.
		s.logger.LogAttrs(ctx, slog.LevelDebug, "Retrying device registration after conflict",
			logger.DeviceID(deviceID),
		)
		err = register()
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to register device",
			logger.DeviceID(deviceID),
			logger.CustomerID(in.CustomerID),
			logger.Error(err),
		)
		return nil, errors.Join(ErrStorage, err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Device registered",
		logger.DeviceID(deviceID),
		logger.CustomerID(in.CustomerID),
		slog.String("device_name", deviceName),
	)

	return device, nil
}

func (s *Service) upsertDevice(ctx context.Context, repo DeviceRepository, customerID, deviceID, deviceName string, info DeviceInfo) (*Device, error) {
	now := s.now()

	device, err := repo.FindDevice(ctx, DeviceFilter{DeviceID: deviceID, CustomerID: customerID})
	switch {
	case err == nil:
		device.LastUsed = now
		device.UpdatedAt = now
		if err := repo.UpdateDevice(ctx, device); err != nil {
			return nil, fmt.Errorf("update device: %w", err)
		}
		return device, nil
	case errors.Is(err, ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("find device: %w", err)
	}

	device = &Device{
		CustomerID: customerID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		DeviceInfo: info,
		LastUsed:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.CreateDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	return device, nil
}

func (s *Service) upsertSubscription(ctx context.Context, repo SubscriptionRepository, deviceID string, creds PushSubscription) error {
	now := s.now()

	sub, err := repo.FindSubscription(ctx, SubscriptionFilter{DeviceID: deviceID})
	switch {
	case err == nil:
		sub.Endpoint = creds.Endpoint
		sub.P256dh = creds.Keys.P256dh
		sub.Auth = creds.Keys.Auth
		sub.IsActive = true
		sub.UpdatedAt = now
		if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
		return nil
	case errors.Is(err, ErrRecordNotFound):
	default:
		return fmt.Errorf("find subscription: %w", err)
	}

	sub = &Subscription{
		DeviceID:  deviceID,
		Endpoint:  creds.Endpoint,
		P256dh:    creds.Keys.P256dh,
		Auth:      creds.Keys.Auth,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// RemoveDevice deletes every subscription and device row of the device id.
// Removing an unknown device is a no-op.
func (s *Service) RemoveDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return errors.Join(ErrInvalidInput, errors.New("device id is required"))
	}

	unlock, err := s.locker.Lock(ctx, lockKey(deviceID))
	if err != nil {
		return fmt.Errorf("acquire device lock: %w", err)
	}
	defer unlock()

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		if err := repos.Subscriptions().DeleteSubscriptions(ctx, deviceID); err != nil {
			return fmt.Errorf("delete subscriptions: %w", err)
		}
		if err := repos.Devices().DeleteDevices(ctx, deviceID); err != nil {
			return fmt.Errorf("delete devices: %w", err)
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrStorage, err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Device removed", logger.DeviceID(deviceID))
	return nil
}

// ListDevices returns the devices of a customer, or every device when
// customerID is empty, with their subscription state.
func (s *Service) ListDevices(ctx context.Context, customerID string) (*DeviceList, error) {
	devices, err := s.store.Devices().ListDevices(ctx, DeviceFilter{
		CustomerID:  customerID,
		AnyCustomer: customerID == "",
	})
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	active := make(map[string]bool, len(devices))
	list := &DeviceList{Devices: make([]DeviceStatus, 0, len(devices))}
	for _, d := range devices {
		isActive, seen := active[d.DeviceID]
		if !seen {
			_, err := s.store.Subscriptions().FindSubscription(ctx, SubscriptionFilter{DeviceID: d.DeviceID, ActiveOnly: true})
			switch {
			case err == nil:
				isActive = true
			case errors.Is(err, ErrRecordNotFound):
			default:
				return nil, errors.Join(ErrStorage, err)
			}
			active[d.DeviceID] = isActive
		}

		list.Devices = append(list.Devices, DeviceStatus{
			DeviceID:   d.DeviceID,
			DeviceName: d.DeviceName,
			DeviceInfo: d.DeviceInfo,
			IsActive:   isActive,
			LastUsed:   d.LastUsed,
		})
	}

	return list, nil
}

func lockKey(deviceID string) string {
	return "device:" + deviceID
}
