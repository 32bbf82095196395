// Package pgstore implements webpush.Store on PostgreSQL through database/sql.
//
// Pair it with pg.Connect and pg.OpenDB to run on a pgx pool:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	db := pg.OpenDB(pool)
//	if err := pgstore.Migrate(ctx, db, cfg, log); err != nil {
//		return err
//	}
//	svc := webpush.NewService(pgstore.New(db), transport)
//
// Devices live in customer_device and subscriptions in device_subscription.
// Soft-deleted rows (deleted_at set) are ignored by every query. The partial
// unique index device_subscription_device_id_active_unique guarantees a single
// active subscription per device; violating it surfaces as webpush.ErrConflict.
package pgstore
