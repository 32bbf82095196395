// Package pg wires PostgreSQL into the service: a pgx connection pool opened
// with retries, a database/sql bridge for code written against *sql.DB, goose
// migrations read from an fs.FS, a health probe, and classifiers for the
// PostgreSQL errors callers branch on.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	db := pg.OpenDB(pool)
//	if err := pg.Migrate(ctx, db, migrations, cfg, log); err != nil {
//		return err
//	}
//
// Errors returned by the package wrap the sentinels in errors.go.
package pg
