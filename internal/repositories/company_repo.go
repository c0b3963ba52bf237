package repositories

import (
	"context"
	"fmt"

	"stockd/internal/models"

	"github.com/google/uuid"
)

type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	List(ctx context.Context, limit, offset int) ([]*models.Company, error)
}

type companyRepo struct {
	db Querier
}

func NewCompanyRepo(db Querier) CompanyRepository {
	return &companyRepo{db: db}
}

func (r *companyRepo) Create(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO company (id, name, currency, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	if _, err := r.db.Exec(ctx, query, company.ID, company.Name, company.Currency); err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

func (r *companyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	query := `SELECT id, name, currency, created_at, updated_at FROM company WHERE id = $1`
	company := &models.Company{}
	err := r.db.QueryRow(ctx, query, id).Scan(&company.ID, &company.Name, &company.Currency,
		&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", mapNotFound(err))
	}
	return company, nil
}

func (r *companyRepo) List(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	query := `SELECT id, name, currency, created_at, updated_at FROM company ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		company := &models.Company{}
		if err := rows.Scan(&company.ID, &company.Name, &company.Currency,
			&company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}
