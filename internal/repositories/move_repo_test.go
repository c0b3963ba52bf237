package repositories

import (
	"context"
	"testing"
	"time"

	"stockd/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type MoveRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      MoveRepository
	companyID uuid.UUID
	context   context.Context
}

func (suite *MoveRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewMoveRepo(mock)
	suite.companyID = uuid.New()
	suite.context = context.Background()
}

func (suite *MoveRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestMoveRepoTestSuite(t *testing.T) {
	suite.Run(t, new(MoveRepoTestSuite))
}

func lockContention() *pgconn.PgError {
	return &pgconn.PgError{Code: "55P03", Message: "could not obtain lock on row"}
}

func (suite *MoveRepoTestSuite) TestSumQuantities_UnionOfBothSigns() {
	locationID := uuid.New()
	productID := uuid.New()
	asOf := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	query := QuantityQuery{
		CompanyID:   suite.companyID,
		LocationIDs: []uuid.UUID{locationID},
		Grouping:    []string{"product"},
		Clauses: []StateDateClause{
			{States: []models.MoveState{models.MoveDone}, DateMax: &asOf},
		},
	}

	// One scan: destinations count positive, sources negative.
	suite.mock.ExpectQuery(`SELECT m\.loc, m\.product_id, SUM\(m\.qty\) FROM \(SELECT to_location_id AS loc, product_id, internal_quantity AS qty FROM stock_move WHERE .+ UNION ALL SELECT from_location_id AS loc, product_id, -internal_quantity AS qty FROM stock_move WHERE .+\) m GROUP BY m\.loc, m\.product_id`).
		WithArgs(suite.companyID, []uuid.UUID{locationID}, []string{"done"}, asOf,
			suite.companyID, []uuid.UUID{locationID}, []string{"done"}, asOf).
		WillReturnRows(pgxmock.NewRows([]string{"loc", "product_id", "sum"}).
			AddRow(locationID, productID, 12.5))

	rows, err := suite.repo.SumQuantities(suite.context, query)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), rows, 1)
	assert.Equal(suite.T(), locationID, rows[0].LocationID)
	assert.Equal(suite.T(), productID, rows[0].ProductID)
	assert.Equal(suite.T(), uuid.Nil, rows[0].ShipmentID)
	assert.Equal(suite.T(), 12.5, rows[0].Quantity)
}

func (suite *MoveRepoTestSuite) TestSumQuantities_ShipmentGrouping() {
	locationID := uuid.New()
	productID := uuid.New()
	shipmentID := uuid.New()
	query := QuantityQuery{
		CompanyID:   suite.companyID,
		LocationIDs: []uuid.UUID{locationID},
		Grouping:    []string{"product", "shipment"},
		Clauses: []StateDateClause{
			{States: []models.MoveState{models.MoveDone, models.MoveAssigned}},
		},
	}

	suite.mock.ExpectQuery(`SELECT m\.loc, m\.product_id, m\.shipment_id, SUM\(m\.qty\)`).
		WithArgs(suite.companyID, []uuid.UUID{locationID}, []string{"done", "assigned"},
			suite.companyID, []uuid.UUID{locationID}, []string{"done", "assigned"}).
		WillReturnRows(pgxmock.NewRows([]string{"loc", "product_id", "shipment_id", "sum"}).
			AddRow(locationID, productID, &shipmentID, 3.0).
			AddRow(locationID, productID, (*uuid.UUID)(nil), 2.0))

	rows, err := suite.repo.SumQuantities(suite.context, query)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), rows, 2)
	assert.Equal(suite.T(), shipmentID, rows[0].ShipmentID)
	assert.Equal(suite.T(), uuid.Nil, rows[1].ShipmentID)
}

func (suite *MoveRepoTestSuite) TestSumQuantities_GroupingOrderFollowsCaller() {
	locationID := uuid.New()
	productID := uuid.New()
	shipmentID := uuid.New()
	query := QuantityQuery{
		CompanyID:   suite.companyID,
		LocationIDs: []uuid.UUID{locationID},
		Grouping:    []string{"shipment", "product"},
		Clauses: []StateDateClause{
			{States: []models.MoveState{models.MoveDone}},
		},
	}

	// Shipment listed first: the SELECT list and the scanned columns must
	// stay aligned so the identifiers do not swap.
	suite.mock.ExpectQuery(`SELECT m\.loc, m\.shipment_id, m\.product_id, SUM\(m\.qty\)`).
		WithArgs(suite.companyID, []uuid.UUID{locationID}, []string{"done"},
			suite.companyID, []uuid.UUID{locationID}, []string{"done"}).
		WillReturnRows(pgxmock.NewRows([]string{"loc", "shipment_id", "product_id", "sum"}).
			AddRow(locationID, &shipmentID, productID, 4.0))

	rows, err := suite.repo.SumQuantities(suite.context, query)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), rows, 1)
	assert.Equal(suite.T(), productID, rows[0].ProductID)
	assert.Equal(suite.T(), shipmentID, rows[0].ShipmentID)
}

func (suite *MoveRepoTestSuite) TestSumQuantities_OutboundOnlyClauseSkipsInboundLeg() {
	locationID := uuid.New()
	productID := uuid.New()
	asOf := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	query := QuantityQuery{
		CompanyID:   suite.companyID,
		LocationIDs: []uuid.UUID{locationID},
		Grouping:    []string{"product"},
		Clauses: []StateDateClause{
			{States: []models.MoveState{models.MoveDone}, DateMax: &asOf},
			{States: []models.MoveState{models.MoveAssigned}, DateMax: &asOf, OutboundOnly: true},
		},
	}

	// The inbound half carries only the done clause; the assigned clause
	// binds its parameters on the outbound half alone.
	suite.mock.ExpectQuery(`SELECT m\.loc, m\.product_id, SUM\(m\.qty\)`).
		WithArgs(suite.companyID, []uuid.UUID{locationID}, []string{"done"}, asOf,
			suite.companyID, []uuid.UUID{locationID}, []string{"done"}, asOf, []string{"assigned"}, asOf).
		WillReturnRows(pgxmock.NewRows([]string{"loc", "product_id", "sum"}).
			AddRow(locationID, productID, -2.0))

	rows, err := suite.repo.SumQuantities(suite.context, query)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), rows, 1)
	assert.Equal(suite.T(), -2.0, rows[0].Quantity)
}

func (suite *MoveRepoTestSuite) TestSumQuantities_UnknownGroupingColumn() {
	query := QuantityQuery{
		CompanyID:   suite.companyID,
		LocationIDs: []uuid.UUID{uuid.New()},
		Grouping:    []string{"lot"},
	}

	_, err := suite.repo.SumQuantities(suite.context, query)
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "lot")
}

func (suite *MoveRepoTestSuite) TestLockCandidates_Success() {
	locationIDs := []uuid.UUID{uuid.New()}
	productIDs := []uuid.UUID{uuid.New()}

	suite.mock.ExpectQuery(`SELECT id FROM stock_move WHERE company_id = \$1 AND \(from_location_id = ANY\(\$2\) OR to_location_id = ANY\(\$2\)\) AND product_id = ANY\(\$3\) FOR UPDATE NOWAIT`).
		WithArgs(suite.companyID, locationIDs, productIDs).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	err := suite.repo.LockCandidates(suite.context, suite.companyID, locationIDs, productIDs)
	assert.NoError(suite.T(), err)
}

func (suite *MoveRepoTestSuite) TestLockCandidates_ContentionMapped() {
	locationIDs := []uuid.UUID{uuid.New()}
	productIDs := []uuid.UUID{uuid.New()}

	suite.mock.ExpectQuery(`SELECT id FROM stock_move`).
		WithArgs(suite.companyID, locationIDs, productIDs).
		WillReturnError(lockContention())

	err := suite.repo.LockCandidates(suite.context, suite.companyID, locationIDs, productIDs)
	assert.ErrorIs(suite.T(), err, ErrLockNotAvailable)
}

func (suite *MoveRepoTestSuite) TestLockTable_ContentionMapped() {
	suite.mock.ExpectExec(`LOCK TABLE stock_move IN EXCLUSIVE MODE NOWAIT`).
		WillReturnError(lockContention())

	err := suite.repo.LockTable(suite.context)
	assert.ErrorIs(suite.T(), err, ErrLockNotAvailable)
}

func (suite *MoveRepoTestSuite) TestHasAssignedBefore() {
	date := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)

	suite.mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM stock_move WHERE company_id = \$1 AND state = 'assigned' AND COALESCE\(effective_date, planned_date\) <= \$2 \)`).
		WithArgs(suite.companyID, date).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := suite.repo.HasAssignedBefore(suite.context, suite.companyID, date)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), exists)
}

func (suite *MoveRepoTestSuite) TestDraftDue() {
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	planned := due.AddDate(0, 0, -1)
	moveID := uuid.New()
	productID := uuid.New()
	uomID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`FROM stock_move WHERE company_id = \$1 AND state = 'draft' AND planned_date <= \$2 ORDER BY planned_date, created_at, id LIMIT \$3`).
		WithArgs(suite.companyID, due, 100).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_id", "product_id", "uom_id", "quantity", "internal_quantity",
			"from_location_id", "to_location_id", "state", "planned_date", "effective_date",
			"shipment_id", "origin", "unit_price", "currency", "cost_price", "created_at", "updated_at",
		}).AddRow(moveID, suite.companyID, productID, uomID, 5.0, 5.0,
			fromID, toID, models.MoveDraft, &planned, (*time.Time)(nil),
			(*uuid.UUID)(nil), (*string)(nil), nil, (*string)(nil), nil, now, now))

	moves, err := suite.repo.DraftDue(suite.context, suite.companyID, due, 100)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), moves, 1)
	assert.Equal(suite.T(), moveID, moves[0].ID)
	assert.Equal(suite.T(), models.MoveDraft, moves[0].State)
	assert.Equal(suite.T(), planned, *moves[0].PlannedDate)
	assert.Nil(suite.T(), moves[0].EffectiveDate)
}
