package webpush

import "errors"

var (
	ErrInvalidInput  = errors.New("webpush: invalid input")
	ErrNotFound      = errors.New("webpush: no active subscription found for device")
	ErrTransportGone = errors.New("webpush: push subscription has expired or is no longer valid")
	ErrTransport     = errors.New("webpush: push delivery failed")
	ErrStorage       = errors.New("webpush: storage failure")

	// ErrRecordNotFound is returned by Store implementations when a lookup matches no row.
	ErrRecordNotFound = errors.New("webpush: record not found")
	// ErrConflict is returned by Store implementations when a write would
	// create a second active subscription for the same device id.
	ErrConflict = errors.New("webpush: conflicting active subscription")
)
