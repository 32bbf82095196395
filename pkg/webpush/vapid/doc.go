// Package vapid delivers push messages over the Web Push protocol with VAPID
// authentication. Payload encryption and request signing are done by
// github.com/SherClockHolmes/webpush-go; this package adds configuration,
// retries for transient failures and the error classification expected by
// webpush.Transport.
//
// Configuration comes from the environment:
//
//	VAPID_SUBJECT        contact URI sent to push services (mailto: or https:)
//	VAPID_PUBLIC_KEY     application server public key, also given to browsers
//	VAPID_PRIVATE_KEY    application server private key
//	WEBPUSH_TTL          seconds a push service keeps an undelivered message
//	WEBPUSH_URGENCY      very-low, low, normal or high
//	WEBPUSH_TIMEOUT      per request HTTP timeout
//	WEBPUSH_MAX_RETRIES  retries for timeouts, rate limits and 5xx responses
//
// Keys can be created once with GenerateKeys.
package vapid
