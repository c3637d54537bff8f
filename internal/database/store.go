package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/korbot/internal/store"
)

// Store implements store.Store on top of sqlx. Queries are written with '?'
// placeholders and rebound for the active driver.
type Store struct {
	db   *sqlx.DB
	ext  sqlx.ExtContext
	inTx bool
}

var _ store.Store = (*Store)(nil)

// DB exposes the underlying connection pool
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// InTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, ext: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (s *Store) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, s.ext, dest, s.ext.Rebind(query), args...)
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to expand query arguments")
	}
	return sqlx.SelectContext(ctx, s.ext, dest, s.ext.Rebind(query), args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.ext.ExecContext(ctx, s.ext.Rebind(query), args...)
}

// insertReturningID runs an INSERT ... RETURNING id statement
func (s *Store) insertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	err := s.ext.QueryRowxContext(ctx, s.ext.Rebind(query), args...).Scan(&id)
	return id, err
}

// forUpdate returns a row-locking clause when the driver supports one
func (s *Store) forUpdate() string {
	if s.inTx && s.ext.DriverName() == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// notFound maps sql.ErrNoRows to store.ErrNotFound
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(store.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

// expectRow returns store.ErrNotFound when an UPDATE touched nothing
func expectRow(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNotFound, format, args...)
	}
	return nil
}

// errZeroTime is returned when a reference time is missing from a query
var errZeroTime = errors.New("reference time is required")

func utc(t time.Time) time.Time {
	return t.UTC()
}

// at normalizes a caller supplied reference time and rejects the zero value
func at(t time.Time, what string) (time.Time, error) {
	if t.IsZero() {
		return t, errors.Wrap(errZeroTime, what)
	}
	return t.UTC(), nil
}

// createdAt stamps new catalogue rows; an unset time means the wall clock
func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
