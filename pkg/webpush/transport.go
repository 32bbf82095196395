package webpush

import "context"

// Transport delivers an encrypted push message to a subscription endpoint.
//
// Implementations report an endpoint that no longer exists (HTTP 404 or 410)
// with an error wrapping ErrTransportGone, and any other failure with an
// error wrapping ErrTransport.
type Transport interface {
	Deliver(ctx context.Context, sub PushSubscription, payload []byte) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, sub PushSubscription, payload []byte) error

func (f TransportFunc) Deliver(ctx context.Context, sub PushSubscription, payload []byte) error {
	return f(ctx, sub, payload)
}
