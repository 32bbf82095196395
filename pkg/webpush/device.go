package webpush

import "time"

// DeviceType is the form factor reported by the client.
type DeviceType string

const (
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeTablet  DeviceType = "tablet"
)

// DeviceInfo describes the client device as reported at registration time.
type DeviceInfo struct {
	Type    DeviceType `json:"type"`
	Browser string     `json:"browser"`
	OS      string     `json:"os"`
	Model   string     `json:"model,omitempty"`
}

// Device is a registered client device. CustomerID is empty for anonymous devices.
type Device struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	DeviceInfo DeviceInfo `json:"device_info"`
	LastUsed   time.Time  `json:"last_used"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Subscription holds the push credential of a device. It references the
// device by DeviceID, not by the Device row id.
type Subscription struct {
	ID        string     `json:"id"`
	DeviceID  string     `json:"device_id"`
	Endpoint  string     `json:"endpoint"`
	P256dh    string     `json:"p256dh"`
	Auth      string     `json:"auth"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Credentials returns the subscription in the shape the push transport expects.
func (s Subscription) Credentials() PushSubscription {
	return PushSubscription{
		Endpoint: s.Endpoint,
		Keys:     Keys{P256dh: s.P256dh, Auth: s.Auth},
	}
}

// Keys are the client encryption keys of a push subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription mirrors the JSON produced by the browser's PushManager.subscribe().
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// Payload is the notification content delivered to the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// DeviceStatus is a listing entry for a device.
type DeviceStatus struct {
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	DeviceInfo DeviceInfo `json:"device_info"`
	IsActive   bool       `json:"is_active"`
	LastUsed   time.Time  `json:"last_used"`
}

// DeviceList is the result of Service.ListDevices.
type DeviceList struct {
	Devices []DeviceStatus `json:"devices"`
}

// FanoutResult counts the outcome of a customer-wide send.
type FanoutResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
