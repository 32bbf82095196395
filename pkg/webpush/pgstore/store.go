package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/dmitrymomot/pushkit/pkg/pg"
	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the goose migrations creating the store's tables.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate applies Migrations to db.
func Migrate(ctx context.Context, db *sql.DB, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, db, Migrations(), cfg, log)
}

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a webpush.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ webpush.Store = (*Store)(nil)

// New creates a Store on db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Devices() webpush.DeviceRepository {
	return &DeviceRepository{db: s.db}
}

func (s *Store) Subscriptions() webpush.SubscriptionRepository {
	return &SubscriptionRepository{db: s.db}
}

// WithinTx runs fn in a transaction, committing on success and rolling back
// on error or panic. Panics are re-raised after the rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos webpush.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: db error: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit tx: db error: %w", cErr)
		}
	}()

	return fn(ctx, txRepos{tx: tx})
}

type txRepos struct {
	tx *sql.Tx
}

func (r txRepos) Devices() webpush.DeviceRepository {
	return &DeviceRepository{db: r.tx}
}

func (r txRepos) Subscriptions() webpush.SubscriptionRepository {
	return &SubscriptionRepository{db: r.tx}
}

// mapError translates driver errors into the webpush store contract.
func mapError(op string, err error) error {
	switch {
	case pg.IsNotFoundError(err):
		return webpush.ErrRecordNotFound
	case pg.IsDuplicateKeyError(err):
		return errors.Join(webpush.ErrConflict, fmt.Errorf("%s: %w", op, err))
	default:
		return fmt.Errorf("%s: db error: %w", op, err)
	}
}
