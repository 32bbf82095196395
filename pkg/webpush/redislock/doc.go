// Package redislock implements webpush.Locker on Redis so several service
// instances serialize work on the same device.
//
// A lock is a key set with SET NX PX holding a random token; it expires after
// the configured TTL if its holder dies. Release deletes the key only while it
// still holds the caller's token.
//
//	client, err := redislock.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	svc := webpush.NewService(store, transport,
//		webpush.WithLocker(redislock.New(client, redislock.WithTTL(cfg.LockTTL))),
//	)
package redislock
