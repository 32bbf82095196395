package webpush

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// SendCustomerNotification delivers payload to every device of the customer.
//
// A failing device never stops the batch: its error is logged and counted in
// FanoutResult.Failed. The returned error is non-nil only when the customer's
// devices cannot be listed.
func (s *Service) SendCustomerNotification(ctx context.Context, customerID string, payload Payload) (FanoutResult, error) {
	if customerID == "" {
		return FanoutResult{}, errors.Join(ErrInvalidInput, errors.New("customer id is required"))
	}

	devices, err := s.store.Devices().ListDevices(ctx, DeviceFilter{CustomerID: customerID})
	if err != nil {
		return FanoutResult{}, errors.Join(ErrStorage, err)
	}

	var sent, failed atomic.Int64
	send := func(d Device) {
		if err := s.SendNotification(ctx, d.DeviceID, payload); err != nil {
			failed.Add(1)
			s.logger.LogAttrs(ctx, slog.LevelError, "Failed to send notification to device",
				logger.DeviceID(d.DeviceID),
				logger.CustomerID(customerID),
				logger.Error(err),
			)
			return
		}
		sent.Add(1)
	}

	if s.concurrency < 2 {
		for _, d := range devices {
			send(d)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for _, d := range devices {
			g.Go(func() error {
				send(d)
				return nil
			})
		}
		_ = g.Wait()
	}

	res := FanoutResult{Sent: int(sent.Load()), Failed: int(failed.Load())}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "Customer notification sent",
		logger.CustomerID(customerID),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
	)

	return res, nil
}
