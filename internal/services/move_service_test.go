package services

import (
	"context"
	"testing"
	"time"

	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MoveServiceTestSuite struct {
	suite.Suite
	moves     *MockMoveRepository
	locations *MockLocationRepository
	products  *MockProductRepository
	uoms      *MockUomRepository
	periods   *MockPeriodRepository
	service   *moveService

	today     time.Time
	companyID uuid.UUID
	unit      *models.UoM
	dozen     *models.UoM
	product   *models.Product
}

func (suite *MoveServiceTestSuite) SetupTest() {
	suite.moves = &MockMoveRepository{}
	suite.locations = &MockLocationRepository{}
	suite.products = &MockProductRepository{}
	suite.uoms = &MockUomRepository{}
	suite.periods = &MockPeriodRepository{}

	repos := repositories.Repos{
		Moves:     suite.moves,
		Locations: suite.locations,
		Products:  suite.products,
		Uoms:      suite.uoms,
		Periods:   suite.periods,
	}
	suite.today = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	suite.service = NewMoveService(repos, logger.Nop()).(*moveService)
	suite.service.now = func() time.Time { return suite.today }

	suite.companyID = uuid.New()
	category := uuid.New()
	suite.unit = &models.UoM{ID: uuid.New(), Name: "Unit", CategoryID: category, Factor: 1, Rounding: 0.01, Digits: 2}
	suite.dozen = &models.UoM{ID: uuid.New(), Name: "Dozen", CategoryID: category, Factor: 12, Rounding: 0.01, Digits: 2}
	suite.product = &models.Product{
		ID:           uuid.New(),
		CompanyID:    suite.companyID,
		Name:         "Widget",
		DefaultUomID: suite.unit.ID,
		Active:       true,
	}

	suite.moves.Test(suite.T())
	suite.locations.Test(suite.T())
	suite.products.Test(suite.T())
	suite.uoms.Test(suite.T())
	suite.periods.Test(suite.T())
}

func (suite *MoveServiceTestSuite) TearDownTest() {
	suite.moves.AssertExpectations(suite.T())
	suite.locations.AssertExpectations(suite.T())
	suite.products.AssertExpectations(suite.T())
	suite.uoms.AssertExpectations(suite.T())
	suite.periods.AssertExpectations(suite.T())
}

func TestMoveServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MoveServiceTestSuite))
}

func (suite *MoveServiceTestSuite) move(state models.MoveState) *models.StockMove {
	planned := suite.today.AddDate(0, 0, 3)
	return &models.StockMove{
		ID:               uuid.New(),
		CompanyID:        suite.companyID,
		ProductID:        suite.product.ID,
		UomID:            suite.unit.ID,
		Quantity:         5,
		InternalQuantity: 5,
		FromLocationID:   uuid.New(),
		ToLocationID:     uuid.New(),
		State:            state,
		PlannedDate:      &planned,
	}
}

func (suite *MoveServiceTestSuite) TestCreateConvertsToDefaultUnit() {
	move := suite.move("")
	move.ID = uuid.Nil
	move.UomID = suite.dozen.ID
	move.Quantity = 2
	move.InternalQuantity = 0

	suite.products.On("GetByID", mock.Anything, suite.companyID, suite.product.ID).Return(suite.product, nil)
	suite.uoms.On("GetByID", mock.Anything, suite.dozen.ID).Return(suite.dozen, nil)
	suite.uoms.On("GetByID", mock.Anything, suite.unit.ID).Return(suite.unit, nil)
	suite.periods.On("LatestClosed", mock.Anything, suite.companyID, (*time.Time)(nil)).Return(nil, nil)
	suite.moves.On("Create", mock.Anything, move).Return(nil)

	err := suite.service.Create(context.Background(), move)
	suite.NoError(err)
	suite.NotEqual(uuid.Nil, move.ID)
	suite.Equal(models.MoveDraft, move.State)
	suite.Equal(24.0, move.InternalQuantity)
}

func (suite *MoveServiceTestSuite) TestCreateRejectsDateInClosedPeriod() {
	move := suite.move(models.MoveDraft)
	closed := &models.Period{
		ID:        uuid.New(),
		CompanyID: suite.companyID,
		Name:      "June",
		Date:      suite.today.AddDate(0, 0, 5),
		State:     models.PeriodClosed,
	}

	suite.products.On("GetByID", mock.Anything, suite.companyID, suite.product.ID).Return(suite.product, nil)
	suite.periods.On("LatestClosed", mock.Anything, suite.companyID, (*time.Time)(nil)).Return(closed, nil)

	err := suite.service.Create(context.Background(), move)
	suite.ErrorIs(err, ErrMoveInClosedPeriod)
	suite.moves.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *MoveServiceTestSuite) TestCreateRejectsSameLocation() {
	move := suite.move(models.MoveDraft)
	move.ToLocationID = move.FromLocationID

	err := suite.service.Create(context.Background(), move)
	suite.ErrorIs(err, models.ErrSameLocation)
}

func (suite *MoveServiceTestSuite) TestUpdateDoneMoveAllowsPriceCorrection() {
	current := suite.move(models.MoveDone)
	effective := suite.today.AddDate(0, 0, -1)
	current.EffectiveDate = &effective

	next := *current
	price := decimal.NewFromFloat(9.99)
	currency := "EUR"
	next.UnitPrice = &price
	next.Currency = &currency

	suite.moves.On("GetByID", mock.Anything, suite.companyID, current.ID).Return(current, nil)
	suite.moves.On("Update", mock.Anything, &next).Return(nil)

	err := suite.service.Update(context.Background(), &next)
	suite.NoError(err)
	suite.Equal(&price, next.UnitPrice)
	suite.Equal(models.MoveDone, next.State)
}

func (suite *MoveServiceTestSuite) TestUpdateDoneMoveRejectsQuantityChange() {
	current := suite.move(models.MoveDone)
	effective := suite.today.AddDate(0, 0, -1)
	current.EffectiveDate = &effective

	next := *current
	next.Quantity = 10

	suite.moves.On("GetByID", mock.Anything, suite.companyID, current.ID).Return(current, nil)

	err := suite.service.Update(context.Background(), &next)
	suite.ErrorIs(err, ErrMoveImmutable)
	suite.moves.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything)
}

func (suite *MoveServiceTestSuite) TestUpdateAssignedMoveRejectsNonPriceChange() {
	current := suite.move(models.MoveAssigned)

	next := *current
	next.Quantity = 10

	suite.moves.On("GetByID", mock.Anything, suite.companyID, current.ID).Return(current, nil)

	err := suite.service.Update(context.Background(), &next)
	suite.ErrorIs(err, ErrMoveNotDraft)
}

func (suite *MoveServiceTestSuite) TestDeleteOnlyNonProgressedStates() {
	for _, state := range []models.MoveState{models.MoveStaging, models.MoveDraft, models.MoveCancelled} {
		move := suite.move(state)
		suite.moves.On("GetByID", mock.Anything, suite.companyID, move.ID).Return(move, nil).Once()
		suite.moves.On("Delete", mock.Anything, suite.companyID, move.ID).Return(nil).Once()
		suite.NoError(suite.service.Delete(context.Background(), suite.companyID, move.ID))
	}

	for _, state := range []models.MoveState{models.MoveAssigned, models.MoveDone} {
		move := suite.move(state)
		suite.moves.On("GetByID", mock.Anything, suite.companyID, move.ID).Return(move, nil).Once()
		suite.ErrorIs(suite.service.Delete(context.Background(), suite.companyID, move.ID), ErrMoveImmutable)
	}
}

func (suite *MoveServiceTestSuite) TestDoDefaultsEffectiveDateToToday() {
	move := suite.move(models.MoveDraft)
	storage := &models.Location{ID: move.FromLocationID, CompanyID: suite.companyID, Type: models.LocationStorage}
	dest := &models.Location{ID: move.ToLocationID, CompanyID: suite.companyID, Type: models.LocationStorage}

	suite.moves.On("GetByID", mock.Anything, suite.companyID, move.ID).Return(move, nil)
	suite.locations.On("GetByID", mock.Anything, suite.companyID, storage.ID).Return(storage, nil)
	suite.locations.On("GetByID", mock.Anything, suite.companyID, dest.ID).Return(dest, nil)
	suite.periods.On("LatestClosed", mock.Anything, suite.companyID, (*time.Time)(nil)).Return(nil, nil)
	suite.moves.On("Update", mock.Anything, move).Return(nil)

	done, err := suite.service.Do(context.Background(), suite.companyID, move.ID)
	suite.NoError(err)
	suite.Equal(models.MoveDone, done.State)
	suite.Require().NotNil(done.EffectiveDate)
	suite.True(done.EffectiveDate.Equal(suite.today))
}

func (suite *MoveServiceTestSuite) TestDoRequiresPriceOnSupplierReceipt() {
	move := suite.move(models.MoveDraft)
	supplier := &models.Location{ID: move.FromLocationID, CompanyID: suite.companyID, Type: models.LocationSupplier}
	storage := &models.Location{ID: move.ToLocationID, CompanyID: suite.companyID, Type: models.LocationStorage}

	suite.moves.On("GetByID", mock.Anything, suite.companyID, move.ID).Return(move, nil)
	suite.locations.On("GetByID", mock.Anything, suite.companyID, supplier.ID).Return(supplier, nil)
	suite.locations.On("GetByID", mock.Anything, suite.companyID, storage.ID).Return(storage, nil)

	_, err := suite.service.Do(context.Background(), suite.companyID, move.ID)
	suite.ErrorIs(err, models.ErrUnitPriceRequired)
	suite.moves.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything)
}

func (suite *MoveServiceTestSuite) TestCancelAssignedMove() {
	move := suite.move(models.MoveAssigned)

	suite.moves.On("GetByID", mock.Anything, suite.companyID, move.ID).Return(move, nil)
	suite.moves.On("Update", mock.Anything, move).Return(nil)

	cancelled, err := suite.service.Cancel(context.Background(), suite.companyID, move.ID)
	suite.NoError(err)
	suite.Equal(models.MoveCancelled, cancelled.State)
}

func (suite *MoveServiceTestSuite) TestDraftOnDoneMoveFails() {
	move := suite.move(models.MoveDone)
	effective := suite.today
	move.EffectiveDate = &effective

	suite.moves.On("GetByID", mock.Anything, suite.companyID, move.ID).Return(move, nil)

	_, err := suite.service.Draft(context.Background(), suite.companyID, move.ID)
	suite.Error(err)
	suite.Equal(models.MoveDone, move.State)
}
