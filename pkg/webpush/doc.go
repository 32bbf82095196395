// Package webpush manages Web Push subscriptions for customer devices and
// delivers notifications to them.
//
// A browser that granted push permission hands the application a
// PushSubscription (endpoint plus p256dh/auth keys). Service.RegisterDevice
// fingerprints the device from its reported characteristics, upserts the
// Device row and its single active Subscription in one transaction, and
// returns the stored device. Later sends look the active subscription up by
// device id and hand the serialized payload to a Transport.
//
// # Architecture
//
//   - ResolveIdentity derives a deterministic device id and a display name.
//   - Service orchestrates registration, delivery, customer fan-out,
//     removal and listing.
//   - Store abstracts persistence. MemoryStore ships in this package, the
//     PostgreSQL implementation lives in the pgstore subpackage.
//   - Transport abstracts the push protocol. The vapid subpackage provides
//     a VAPID transport built on github.com/SherClockHolmes/webpush-go.
//   - Locker serializes operations on a single device id. MemoryLocker works
//     inside one process, the redislock subpackage across instances.
//
// # Subscription lifecycle
//
// A subscription is created active. A push service answering 404 or 410
// (ErrTransportGone) flips it to inactive; the next registration of the same
// device reactivates it with fresh credentials. At most one active
// subscription exists per device id at any time.
//
// # Usage
//
//	store := webpush.NewMemoryStore()
//	transport, err := vapid.NewFromEnv()
//	if err != nil {
//		return err
//	}
//	svc := webpush.NewService(store, transport, webpush.WithLogger(log))
//
//	device, err := svc.RegisterDevice(ctx, webpush.RegisterInput{
//		CustomerID:   customerID,
//		DeviceInfo:   &webpush.DeviceInfo{Type: webpush.DeviceTypeMobile, OS: "iOS", Browser: "Safari"},
//		Subscription: &sub,
//	})
//
//	res, err := svc.SendCustomerNotification(ctx, customerID, webpush.Payload{
//		Title: "Order shipped",
//		Body:  "Your order is on its way",
//	})
//
// # Errors
//
// Failures are classified with sentinel errors (ErrInvalidInput,
// ErrNotFound, ErrTransportGone, ErrTransport, ErrStorage) and can be matched
// with errors.Is.
package webpush
