package repositories

import (
	"context"
	"fmt"

	"stockd/internal/models"

	"github.com/google/uuid"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Product, error)
}

type productRepo struct {
	db Querier
}

func NewProductRepo(db Querier) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, company_id, name, code, default_uom_id, consumable, active, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO product (id, company_id, name, code, default_uom_id, consumable, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, product.ID, product.CompanyID, product.Name,
		product.Code, product.DefaultUomID, product.Consumable, product.Active)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *productRepo) scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(&product.ID, &product.CompanyID, &product.Name, &product.Code,
		&product.DefaultUomID, &product.Consumable, &product.Active,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product WHERE company_id = $1 AND id = $2`
	product, err := r.scanProduct(r.db.QueryRow(ctx, query, companyID, id))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", mapNotFound(err))
	}
	return product, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product WHERE company_id = $1 AND id = ANY($2)`
	rows, err := r.db.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE product
		SET name = $1, code = $2, default_uom_id = $3, consumable = $4, active = $5, updated_at = NOW()
		WHERE company_id = $6 AND id = $7
	`
	_, err := r.db.Exec(ctx, query, product.Name, product.Code, product.DefaultUomID,
		product.Consumable, product.Active, product.CompanyID, product.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	query := `DELETE FROM product WHERE company_id = $1 AND id = $2`
	if _, err := r.db.Exec(ctx, query, companyID, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *productRepo) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM product
		WHERE company_id = $1
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}
