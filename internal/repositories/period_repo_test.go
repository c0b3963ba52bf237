package repositories

import (
	"context"
	"testing"
	"time"

	"stockd/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PeriodRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      PeriodRepository
	companyID uuid.UUID
	context   context.Context
}

func (suite *PeriodRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewPeriodRepo(mock)
	suite.companyID = uuid.New()
	suite.context = context.Background()
}

func (suite *PeriodRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestPeriodRepoTestSuite(t *testing.T) {
	suite.Run(t, new(PeriodRepoTestSuite))
}

func (suite *PeriodRepoTestSuite) periodRows(period *models.Period) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "company_id", "name", "date", "state", "created_at", "updated_at"}).
		AddRow(period.ID, period.CompanyID, period.Name, period.Date, period.State,
			period.CreatedAt, period.UpdatedAt)
}

func (suite *PeriodRepoTestSuite) TestLatestClosed_NoneReturnsNil() {
	suite.mock.ExpectQuery(`FROM stock_period WHERE company_id = \$1 AND state = 'closed' ORDER BY date DESC LIMIT 1`).
		WithArgs(suite.companyID).
		WillReturnError(pgx.ErrNoRows)

	period, err := suite.repo.LatestClosed(suite.context, suite.companyID, nil)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), period)
}

func (suite *PeriodRepoTestSuite) TestLatestClosed_BoundedByDate() {
	before := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	expected := &models.Period{
		ID:        uuid.New(),
		CompanyID: suite.companyID,
		Name:      "May",
		Date:      time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		State:     models.PeriodClosed,
	}

	suite.mock.ExpectQuery(`FROM stock_period WHERE company_id = \$1 AND state = 'closed' AND date <= \$2 ORDER BY date DESC LIMIT 1`).
		WithArgs(suite.companyID, before).
		WillReturnRows(suite.periodRows(expected))

	period, err := suite.repo.LatestClosed(suite.context, suite.companyID, &before)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), expected.ID, period.ID)
	assert.Equal(suite.T(), expected.Date, period.Date)
	assert.Equal(suite.T(), models.PeriodClosed, period.State)
}

func (suite *PeriodRepoTestSuite) TestInsertCacheRows() {
	periodID := uuid.New()
	rows := []*models.PeriodCache{
		{ID: uuid.New(), PeriodID: periodID, LocationID: uuid.New(), ProductID: uuid.New(), InternalQuantity: 4.5},
		{ID: uuid.New(), PeriodID: periodID, LocationID: uuid.New(), ProductID: uuid.New(), InternalQuantity: 1.0},
	}

	suite.mock.ExpectExec(`INSERT INTO stock_period_cache \(id, period_id, location_id, product_id, internal_quantity\) VALUES \(\$1, \$2, \$3, \$4, \$5\), \(\$6, \$7, \$8, \$9, \$10\)`).
		WithArgs(rows[0].ID, rows[0].PeriodID, rows[0].LocationID, rows[0].ProductID, rows[0].InternalQuantity,
			rows[1].ID, rows[1].PeriodID, rows[1].LocationID, rows[1].ProductID, rows[1].InternalQuantity).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	err := suite.repo.InsertCacheRows(suite.context, rows)
	assert.NoError(suite.T(), err)
}

func (suite *PeriodRepoTestSuite) TestInsertCacheRows_EmptySkipsQuery() {
	err := suite.repo.InsertCacheRows(suite.context, nil)
	assert.NoError(suite.T(), err)
}

func (suite *PeriodRepoTestSuite) TestDeleteCacheRows() {
	periodID := uuid.New()

	suite.mock.ExpectExec(`DELETE FROM stock_period_cache WHERE period_id = \$1`).
		WithArgs(periodID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err := suite.repo.DeleteCacheRows(suite.context, periodID)
	assert.NoError(suite.T(), err)
}

func (suite *PeriodRepoTestSuite) TestCacheRows_AllFilters() {
	periodID := uuid.New()
	locationID := uuid.New()
	productID := uuid.New()

	suite.mock.ExpectQuery(`FROM stock_period_cache WHERE period_id = \$1 AND location_id = ANY\(\$2\) AND product_id = ANY\(\$3\)`).
		WithArgs(periodID, []uuid.UUID{locationID}, []uuid.UUID{productID}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "period_id", "location_id", "product_id", "internal_quantity"}).
			AddRow(uuid.New(), periodID, locationID, productID, 7.0))

	rows, err := suite.repo.CacheRows(suite.context, periodID, []uuid.UUID{locationID}, []uuid.UUID{productID})
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), rows, 1)
	assert.Equal(suite.T(), 7.0, rows[0].InternalQuantity)
}

func (suite *PeriodRepoTestSuite) TestCacheRows_NoFiltersReturnsWholePeriod() {
	periodID := uuid.New()

	suite.mock.ExpectQuery(`FROM stock_period_cache WHERE period_id = \$1`).
		WithArgs(periodID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "period_id", "location_id", "product_id", "internal_quantity"}).
			AddRow(uuid.New(), periodID, uuid.New(), uuid.New(), 2.5).
			AddRow(uuid.New(), periodID, uuid.New(), uuid.New(), 9.0))

	rows, err := suite.repo.CacheRows(suite.context, periodID, nil, nil)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), rows, 2)
}
