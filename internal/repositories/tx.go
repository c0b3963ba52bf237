package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repos bundles the repositories the engines use, bound to one Querier so a
// whole engine call shares a single connection or transaction.
type Repos struct {
	Moves     MoveRepository
	Locations LocationRepository
	Periods   PeriodRepository
	Products  ProductRepository
	Uoms      UomRepository
	Companies CompanyRepository
}

// NewRepos builds the repository bundle over the given Querier.
func NewRepos(q Querier) Repos {
	return Repos{
		Moves:     NewMoveRepo(q),
		Locations: NewLocationRepo(q),
		Periods:   NewPeriodRepo(q),
		Products:  NewProductRepo(q),
		Uoms:      NewUomRepo(q),
		Companies: NewCompanyRepo(q),
	}
}

// TxRunner executes a callback inside one database transaction with
// transaction-bound repositories. Each engine operation (assign, close)
// runs exactly once through Run so its locks and writes are atomic.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

type pgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds a TxRunner over the connection pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgxTxRunner{pool: pool}
}

func (r *pgxTxRunner) Run(ctx context.Context, fn func(repos Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
