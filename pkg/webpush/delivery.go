package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// SendNotification delivers payload to the active subscription of the device.
//
// Returns ErrNotFound when the device has no active subscription. When the
// push service reports the endpoint gone, the subscription is deactivated and
// the transport error is still returned. A successful delivery refreshes
// LastUsed on the device rows; failing to do so is logged, not returned.
func (s *Service) SendNotification(ctx context.Context, deviceID string, payload Payload) error {
	if deviceID == "" {
		return errors.Join(ErrInvalidInput, errors.New("device id is required"))
	}

	unlock, err := s.locker.Lock(ctx, lockKey(deviceID))
	if err != nil {
		return fmt.Errorf("acquire device lock: %w", err)
	}
	defer unlock()

	sub, err := s.store.Subscriptions().FindSubscription(ctx, SubscriptionFilter{DeviceID: deviceID, ActiveOnly: true})
	if errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	if err != nil {
		return errors.Join(ErrStorage, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Join(ErrInvalidInput, err)
	}

	if err := s.transport.Deliver(ctx, sub.Credentials(), body); err != nil {
		return s.handleDeliveryFailure(ctx, sub, err)
	}

	s.touchDevices(ctx, deviceID)
	return nil
}

func (s *Service) handleDeliveryFailure(ctx context.Context, sub *Subscription, err error) error {
	if !errors.Is(err, ErrTransportGone) && !errors.Is(err, ErrTransport) {
		err = errors.Join(ErrTransport, err)
	}

	if !errors.Is(err, ErrTransportGone) {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to deliver push notification",
			logger.DeviceID(sub.DeviceID),
			logger.Error(err),
		)
		return err
	}

	// The push service dropped the endpoint. Persist that even if the caller
	// has already given up on the request.
	sub.IsActive = false
	sub.UpdatedAt = s.now()
	if uerr := s.store.Subscriptions().UpdateSubscription(context.WithoutCancel(ctx), sub); uerr != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to deactivate expired subscription",
			logger.DeviceID(sub.DeviceID),
			logger.Errors(err, uerr),
		)
		return errors.Join(err, ErrStorage, uerr)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Subscription expired, deactivated",
		logger.DeviceID(sub.DeviceID),
		logger.Endpoint(sub.Endpoint),
	)
	return err
}

func (s *Service) touchDevices(ctx context.Context, deviceID string) {
	devices, err := s.store.Devices().ListDevices(ctx, DeviceFilter{DeviceID: deviceID, AnyCustomer: true})
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to load device after delivery",
			logger.DeviceID(deviceID),
			logger.Error(err),
		)
		return
	}

	now := s.now()
	for i := range devices {
		devices[i].LastUsed = now
		devices[i].UpdatedAt = now
		if err := s.store.Devices().UpdateDevice(ctx, &devices[i]); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to update device last used time",
				logger.DeviceID(deviceID),
				logger.Error(err),
			)
		}
	}
}
