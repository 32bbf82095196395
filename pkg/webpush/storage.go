package webpush

import "context"

// DeviceFilter selects device rows. Soft-deleted rows never match.
//
// CustomerID is matched exactly, an empty value matching anonymous devices
// only, unless AnyCustomer is set. An empty DeviceID matches every device.
type DeviceFilter struct {
	DeviceID    string
	CustomerID  string
	AnyCustomer bool
}

// SubscriptionFilter selects subscription rows. Soft-deleted rows never match.
// When several rows match, active rows come first, then the most recently updated.
type SubscriptionFilter struct {
	DeviceID   string
	ActiveOnly bool
}

// DeviceRepository persists Device rows.
type DeviceRepository interface {
	// FindDevice returns the first matching device or ErrRecordNotFound.
	FindDevice(ctx context.Context, filter DeviceFilter) (*Device, error)

	// ListDevices returns all matching devices, most recently used first.
	ListDevices(ctx context.Context, filter DeviceFilter) ([]Device, error)

	// CreateDevice inserts a device, assigning ID and timestamps when empty.
	CreateDevice(ctx context.Context, device *Device) error

	// UpdateDevice overwrites a device by ID.
	UpdateDevice(ctx context.Context, device *Device) error

	// DeleteDevices hard-deletes every row with the device id. Missing rows are not an error.
	DeleteDevices(ctx context.Context, deviceID string) error
}

// SubscriptionRepository persists Subscription rows.
type SubscriptionRepository interface {
	// FindSubscription returns the first matching subscription or ErrRecordNotFound.
	FindSubscription(ctx context.Context, filter SubscriptionFilter) (*Subscription, error)

	// CreateSubscription inserts a subscription, assigning ID and timestamps when empty.
	// Returns ErrConflict if it would be a second active subscription for the device id.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// UpdateSubscription overwrites a subscription by ID. Returns ErrConflict
	// under the same rule as CreateSubscription.
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscriptions hard-deletes every row with the device id. Missing rows are not an error.
	DeleteSubscriptions(ctx context.Context, deviceID string) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Devices() DeviceRepository
	Subscriptions() SubscriptionRepository
}

// Store is the persistence gateway used by Service.
type Store interface {
	Repositories

	// WithinTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise. fn must
	// use only the repositories it receives.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
