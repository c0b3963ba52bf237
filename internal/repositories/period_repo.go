package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockd/internal/models"

	"github.com/google/uuid"
)

type PeriodRepository interface {
	Create(ctx context.Context, period *models.Period) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Period, error)
	Update(ctx context.Context, period *models.Period) error
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Period, error)
	// LatestClosed returns the most recent closed period with date <= before
	// (any closed period when before is nil), or nil when none exists.
	LatestClosed(ctx context.Context, companyID uuid.UUID, before *time.Time) (*models.Period, error)
	InsertCacheRows(ctx context.Context, rows []*models.PeriodCache) error
	DeleteCacheRows(ctx context.Context, periodID uuid.UUID) error
	CacheRows(ctx context.Context, periodID uuid.UUID, locationIDs, productIDs []uuid.UUID) ([]*models.PeriodCache, error)
}

type periodRepo struct {
	db Querier
}

func NewPeriodRepo(db Querier) PeriodRepository {
	return &periodRepo{db: db}
}

const periodColumns = `id, company_id, name, date, state, created_at, updated_at`

func (r *periodRepo) Create(ctx context.Context, period *models.Period) error {
	query := `
		INSERT INTO stock_period (id, company_id, name, date, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, period.ID, period.CompanyID, period.Name, period.Date, period.State)
	if err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

func (r *periodRepo) scanPeriod(row interface{ Scan(...any) error }) (*models.Period, error) {
	period := &models.Period{}
	err := row.Scan(&period.ID, &period.CompanyID, &period.Name, &period.Date,
		&period.State, &period.CreatedAt, &period.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return period, nil
}

func (r *periodRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM stock_period WHERE company_id = $1 AND id = $2`
	period, err := r.scanPeriod(r.db.QueryRow(ctx, query, companyID, id))
	if err != nil {
		return nil, fmt.Errorf("get period: %w", mapNotFound(err))
	}
	return period, nil
}

func (r *periodRepo) Update(ctx context.Context, period *models.Period) error {
	query := `
		UPDATE stock_period
		SET name = $1, date = $2, state = $3, updated_at = NOW()
		WHERE company_id = $4 AND id = $5
	`
	_, err := r.db.Exec(ctx, query, period.Name, period.Date, period.State, period.CompanyID, period.ID)
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return nil
}

func (r *periodRepo) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Period, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM stock_period
		WHERE company_id = $1
		ORDER BY date DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var periods []*models.Period
	for rows.Next() {
		period, err := r.scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func (r *periodRepo) LatestClosed(ctx context.Context, companyID uuid.UUID, before *time.Time) (*models.Period, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM stock_period
		WHERE company_id = $1 AND state = 'closed'
	`
	args := []any{companyID}
	if before != nil {
		query += ` AND date <= $2`
		args = append(args, *before)
	}
	query += ` ORDER BY date DESC LIMIT 1`

	period, err := r.scanPeriod(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(mapNotFound(err), ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest closed period: %w", err)
	}
	return period, nil
}

func (r *periodRepo) InsertCacheRows(ctx context.Context, rows []*models.PeriodCache) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*5)
	for i, row := range rows {
		base := i * 5
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, row.ID, row.PeriodID, row.LocationID, row.ProductID, row.InternalQuantity)
	}
	query := `
		INSERT INTO stock_period_cache (id, period_id, location_id, product_id, internal_quantity)
		VALUES ` + strings.Join(values, ", ")
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert period cache rows: %w", err)
	}
	return nil
}

func (r *periodRepo) DeleteCacheRows(ctx context.Context, periodID uuid.UUID) error {
	query := `DELETE FROM stock_period_cache WHERE period_id = $1`
	if _, err := r.db.Exec(ctx, query, periodID); err != nil {
		return fmt.Errorf("delete period cache rows: %w", err)
	}
	return nil
}

func (r *periodRepo) CacheRows(ctx context.Context, periodID uuid.UUID, locationIDs, productIDs []uuid.UUID) ([]*models.PeriodCache, error) {
	query := `
		SELECT id, period_id, location_id, product_id, internal_quantity
		FROM stock_period_cache
		WHERE period_id = $1
	`
	args := []any{periodID}
	if len(locationIDs) > 0 {
		query += fmt.Sprintf(` AND location_id = ANY($%d)`, len(args)+1)
		args = append(args, locationIDs)
	}
	if len(productIDs) > 0 {
		query += fmt.Sprintf(` AND product_id = ANY($%d)`, len(args)+1)
		args = append(args, productIDs)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("period cache rows: %w", err)
	}
	defer rows.Close()

	var result []*models.PeriodCache
	for rows.Next() {
		row := &models.PeriodCache{}
		if err := rows.Scan(&row.ID, &row.PeriodID, &row.LocationID, &row.ProductID, &row.InternalQuantity); err != nil {
			return nil, fmt.Errorf("scan period cache row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
