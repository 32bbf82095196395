// Package logger builds *slog.Logger instances for the push services and
// provides attribute helpers so every component logs the same keys.
//
// New assembles a JSON (default) or text handler from functional options and
// wraps it in a decorator that copies request-scoped values from the context
// into each record:
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "push-worker"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.LogAttrs(ctx, slog.LevelInfo, "Device registered",
//		logger.DeviceID(id),
//		logger.CustomerID(customerID),
//	)
//
// Attribute helpers return an empty slog.Attr for empty input, which slog
// drops from the output.
package logger
