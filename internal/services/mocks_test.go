package services

import (
	"context"
	"time"

	"stockd/internal/models"
	"stockd/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockMoveRepository struct {
	mock.Mock
}

func (m *MockMoveRepository) Create(ctx context.Context, move *models.StockMove) error {
	args := m.Called(ctx, move)
	return args.Error(0)
}

func (m *MockMoveRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockMove), args.Error(1)
}

func (m *MockMoveRepository) GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.StockMove, error) {
	args := m.Called(ctx, companyID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StockMove), args.Error(1)
}

func (m *MockMoveRepository) Update(ctx context.Context, move *models.StockMove) error {
	args := m.Called(ctx, move)
	return args.Error(0)
}

func (m *MockMoveRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func (m *MockMoveRepository) List(ctx context.Context, companyID uuid.UUID, states []models.MoveState, limit, offset int) ([]*models.StockMove, error) {
	args := m.Called(ctx, companyID, states, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StockMove), args.Error(1)
}

func (m *MockMoveRepository) SumQuantities(ctx context.Context, q repositories.QuantityQuery) ([]repositories.QuantityRow, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.QuantityRow), args.Error(1)
}

func (m *MockMoveRepository) LockCandidates(ctx context.Context, companyID uuid.UUID, locationIDs, productIDs []uuid.UUID) error {
	args := m.Called(ctx, companyID, locationIDs, productIDs)
	return args.Error(0)
}

func (m *MockMoveRepository) LockTable(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMoveRepository) HasAssignedBefore(ctx context.Context, companyID uuid.UUID, date time.Time) (bool, error) {
	args := m.Called(ctx, companyID, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockMoveRepository) DraftDue(ctx context.Context, companyID uuid.UUID, date time.Time, limit int) ([]*models.StockMove, error) {
	args := m.Called(ctx, companyID, date, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StockMove), args.Error(1)
}

type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) Create(ctx context.Context, location *models.Location) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockLocationRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Location, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) Update(ctx context.Context, location *models.Location) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockLocationRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func (m *MockLocationRepository) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Location, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Location), args.Error(1)
}

func (m *MockLocationRepository) Subtree(ctx context.Context, companyID uuid.UUID, rootIDs []uuid.UUID) ([]*models.Location, error) {
	args := m.Called(ctx, companyID, rootIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Location), args.Error(1)
}

func (m *MockLocationRepository) ListExcludingTypes(ctx context.Context, companyID uuid.UUID, types []models.LocationType) ([]*models.Location, error) {
	args := m.Called(ctx, companyID, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Location), args.Error(1)
}

type MockPeriodRepository struct {
	mock.Mock
}

func (m *MockPeriodRepository) Create(ctx context.Context, period *models.Period) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPeriodRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Period, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Period), args.Error(1)
}

func (m *MockPeriodRepository) Update(ctx context.Context, period *models.Period) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPeriodRepository) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Period, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Period), args.Error(1)
}

func (m *MockPeriodRepository) LatestClosed(ctx context.Context, companyID uuid.UUID, before *time.Time) (*models.Period, error) {
	args := m.Called(ctx, companyID, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Period), args.Error(1)
}

func (m *MockPeriodRepository) InsertCacheRows(ctx context.Context, rows []*models.PeriodCache) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockPeriodRepository) DeleteCacheRows(ctx context.Context, periodID uuid.UUID) error {
	args := m.Called(ctx, periodID)
	return args.Error(0)
}

func (m *MockPeriodRepository) CacheRows(ctx context.Context, periodID uuid.UUID, locationIDs, productIDs []uuid.UUID) ([]*models.PeriodCache, error) {
	args := m.Called(ctx, periodID, locationIDs, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PeriodCache), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Product, error) {
	args := m.Called(ctx, companyID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func (m *MockProductRepository) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

type MockUomRepository struct {
	mock.Mock
}

func (m *MockUomRepository) Create(ctx context.Context, uom *models.UoM) error {
	args := m.Called(ctx, uom)
	return args.Error(0)
}

func (m *MockUomRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UoM, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UoM), args.Error(1)
}

func (m *MockUomRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.UoM, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UoM), args.Error(1)
}

func (m *MockUomRepository) List(ctx context.Context, limit, offset int) ([]*models.UoM, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UoM), args.Error(1)
}

type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) Create(ctx context.Context, company *models.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockCompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

func (m *MockCompanyRepository) List(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Company), args.Error(1)
}

// stubTxRunner hands the same repository bundle to the callback without a
// real transaction.
type stubTxRunner struct {
	repos repositories.Repos
}

func (s *stubTxRunner) Run(ctx context.Context, fn func(r repositories.Repos) error) error {
	return fn(s.repos)
}
