package repositories

import (
	"context"
	"fmt"

	"stockd/internal/models"

	"github.com/google/uuid"
)

type UomRepository interface {
	Create(ctx context.Context, uom *models.UoM) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UoM, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.UoM, error)
	List(ctx context.Context, limit, offset int) ([]*models.UoM, error)
}

type uomRepo struct {
	db Querier
}

func NewUomRepo(db Querier) UomRepository {
	return &uomRepo{db: db}
}

const uomColumns = `id, name, symbol, category_id, factor, rounding, digits, created_at, updated_at`

func (r *uomRepo) Create(ctx context.Context, uom *models.UoM) error {
	query := `
		INSERT INTO uom (id, name, symbol, category_id, factor, rounding, digits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, uom.ID, uom.Name, uom.Symbol, uom.CategoryID,
		uom.Factor, uom.Rounding, uom.Digits)
	if err != nil {
		return fmt.Errorf("create uom: %w", err)
	}
	return nil
}

func (r *uomRepo) scanUom(row interface{ Scan(...any) error }) (*models.UoM, error) {
	uom := &models.UoM{}
	err := row.Scan(&uom.ID, &uom.Name, &uom.Symbol, &uom.CategoryID,
		&uom.Factor, &uom.Rounding, &uom.Digits, &uom.CreatedAt, &uom.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return uom, nil
}

func (r *uomRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UoM, error) {
	query := `SELECT ` + uomColumns + ` FROM uom WHERE id = $1`
	uom, err := r.scanUom(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get uom: %w", mapNotFound(err))
	}
	return uom, nil
}

func (r *uomRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.UoM, error) {
	query := `SELECT ` + uomColumns + ` FROM uom WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get uoms: %w", err)
	}
	defer rows.Close()

	var uoms []*models.UoM
	for rows.Next() {
		uom, err := r.scanUom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan uom: %w", err)
		}
		uoms = append(uoms, uom)
	}
	return uoms, rows.Err()
}

func (r *uomRepo) List(ctx context.Context, limit, offset int) ([]*models.UoM, error) {
	query := `SELECT ` + uomColumns + ` FROM uom ORDER BY name, id LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list uoms: %w", err)
	}
	defer rows.Close()

	var uoms []*models.UoM
	for rows.Next() {
		uom, err := r.scanUom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan uom: %w", err)
		}
		uoms = append(uoms, uom)
	}
	return uoms, rows.Err()
}
