package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx executed by repositories. It is satisfied by
// *pgxpool.Pool, pgx.Tx and pgxmock, so the same repositories run against the
// pool, inside a transaction, or under test.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrLockNotAvailable marks lock contention: another transaction holds a lock
// on the rows or table needed. Callers should retry the whole operation later
// rather than treat it as a business failure.
var ErrLockNotAvailable = errors.New("lock not available")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// lockNotAvailableCode is the PostgreSQL error for NOWAIT lock failures.
const lockNotAvailableCode = "55P03"

func mapLockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailableCode {
		return ErrLockNotAvailable
	}
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
