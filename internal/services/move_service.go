package services

import (
	"context"
	"time"

	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/pkg/logger"

	"github.com/google/uuid"
)

// MoveService owns the stock move lifecycle: creation, edits, and state
// transitions. Every write keeps InternalQuantity consistent with the
// product's default unit and refuses dates inside closed periods.
type MoveService interface {
	Create(ctx context.Context, move *models.StockMove) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error)
	List(ctx context.Context, companyID uuid.UUID, states []models.MoveState, limit, offset int) ([]*models.StockMove, error)
	Update(ctx context.Context, move *models.StockMove) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	// Do completes the move, defaulting the effective date to today.
	Do(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error)
	// Draft moves a staging or assigned move back to draft.
	Draft(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error)
}

type moveService struct {
	repos repositories.Repos
	log   *logger.Logger
	now   func() time.Time
}

func NewMoveService(repos repositories.Repos, log *logger.Logger) MoveService {
	return &moveService{repos: repos, log: log, now: time.Now}
}

func (s *moveService) Create(ctx context.Context, move *models.StockMove) error {
	if move.ID == uuid.Nil {
		move.ID = uuid.New()
	}
	if move.State == "" {
		move.State = models.MoveDraft
	}
	if err := move.Validate(); err != nil {
		return err
	}
	if err := s.setInternalQuantity(ctx, move); err != nil {
		return err
	}
	if err := s.checkClosedPeriod(ctx, move); err != nil {
		return err
	}
	return s.repos.Moves.Create(ctx, move)
}

func (s *moveService) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error) {
	return s.repos.Moves.GetByID(ctx, companyID, id)
}

func (s *moveService) List(ctx context.Context, companyID uuid.UUID, states []models.MoveState, limit, offset int) ([]*models.StockMove, error) {
	return s.repos.Moves.List(ctx, companyID, states, limit, offset)
}

func (s *moveService) Update(ctx context.Context, move *models.StockMove) error {
	current, err := s.repos.Moves.GetByID(ctx, move.CompanyID, move.ID)
	if err != nil {
		return err
	}
	if current.Terminal() {
		// Valuation corrections stay open after completion; everything
		// else on a done or cancelled move is frozen.
		if !onlyPricesChanged(current, move) {
			return ErrMoveImmutable
		}
		current.UnitPrice = move.UnitPrice
		current.Currency = move.Currency
		current.CostPrice = move.CostPrice
		*move = *current
		return s.repos.Moves.Update(ctx, move)
	}
	if current.State == models.MoveAssigned && !onlyPricesChanged(current, move) {
		return ErrMoveNotDraft
	}
	move.State = current.State
	if err := move.Validate(); err != nil {
		return err
	}
	if err := s.setInternalQuantity(ctx, move); err != nil {
		return err
	}
	if err := s.checkClosedPeriod(ctx, move); err != nil {
		return err
	}
	return s.repos.Moves.Update(ctx, move)
}

func (s *moveService) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	move, err := s.repos.Moves.GetByID(ctx, companyID, id)
	if err != nil {
		return err
	}
	switch move.State {
	case models.MoveStaging, models.MoveDraft, models.MoveCancelled:
		return s.repos.Moves.Delete(ctx, companyID, id)
	default:
		return ErrMoveImmutable
	}
}

func (s *moveService) Do(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error) {
	move, err := s.repos.Moves.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	from, err := s.repos.Locations.GetByID(ctx, companyID, move.FromLocationID)
	if err != nil {
		return nil, err
	}
	to, err := s.repos.Locations.GetByID(ctx, companyID, move.ToLocationID)
	if err != nil {
		return nil, err
	}
	if err := move.NeedsUnitPrice(from.Type, to.Type); err != nil {
		return nil, err
	}
	if move.EffectiveDate == nil {
		today := dateOnly(s.now())
		move.EffectiveDate = &today
	}
	if err := s.checkClosedPeriod(ctx, move); err != nil {
		return nil, err
	}
	if err := move.Transition(models.MoveDone); err != nil {
		return nil, err
	}
	if err := s.repos.Moves.Update(ctx, move); err != nil {
		return nil, err
	}
	return move, nil
}

func (s *moveService) Draft(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error) {
	return s.transition(ctx, companyID, id, models.MoveDraft)
}

func (s *moveService) Cancel(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error) {
	return s.transition(ctx, companyID, id, models.MoveCancelled)
}

func (s *moveService) transition(ctx context.Context, companyID, id uuid.UUID, to models.MoveState) (*models.StockMove, error) {
	move, err := s.repos.Moves.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := move.Transition(to); err != nil {
		return nil, err
	}
	if err := s.repos.Moves.Update(ctx, move); err != nil {
		return nil, err
	}
	return move, nil
}

// setInternalQuantity converts the move quantity into the product's default
// unit, rounded to that unit's precision.
func (s *moveService) setInternalQuantity(ctx context.Context, move *models.StockMove) error {
	product, err := s.repos.Products.GetByID(ctx, move.CompanyID, move.ProductID)
	if err != nil {
		return err
	}
	if move.UomID == product.DefaultUomID {
		move.InternalQuantity = move.Quantity
		return nil
	}
	moveUom, err := s.repos.Uoms.GetByID(ctx, move.UomID)
	if err != nil {
		return err
	}
	defaultUom, err := s.repos.Uoms.GetByID(ctx, product.DefaultUomID)
	if err != nil {
		return err
	}
	internal, err := models.ConvertQuantity(move.Quantity, moveUom, defaultUom, true)
	if err != nil {
		return err
	}
	move.InternalQuantity = internal
	return nil
}

// checkClosedPeriod rejects moves dated at or before the latest closed
// period, which would silently diverge from the frozen snapshots.
func (s *moveService) checkClosedPeriod(ctx context.Context, move *models.StockMove) error {
	date := move.Date()
	if date == nil {
		return nil
	}
	latest, err := s.repos.Periods.LatestClosed(ctx, move.CompanyID, nil)
	if err != nil {
		return err
	}
	if latest != nil && !date.After(latest.Date) {
		return ErrMoveInClosedPeriod
	}
	return nil
}

// onlyPricesChanged reports whether the update touches nothing beyond the
// valuation fields.
func onlyPricesChanged(current, next *models.StockMove) bool {
	a := *current
	b := *next
	a.UnitPrice, b.UnitPrice = nil, nil
	a.Currency, b.Currency = nil, nil
	a.CostPrice, b.CostPrice = nil, nil
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return equalMoves(&a, &b)
}

func equalMoves(a, b *models.StockMove) bool {
	if a.CompanyID != b.CompanyID || a.ProductID != b.ProductID || a.UomID != b.UomID {
		return false
	}
	if a.Quantity != b.Quantity || a.FromLocationID != b.FromLocationID || a.ToLocationID != b.ToLocationID {
		return false
	}
	if a.State != b.State {
		return false
	}
	if !equalTimePtr(a.PlannedDate, b.PlannedDate) || !equalTimePtr(a.EffectiveDate, b.EffectiveDate) {
		return false
	}
	if !equalUUIDPtr(a.ShipmentID, b.ShipmentID) || !equalStrPtr(a.Origin, b.Origin) {
		return false
	}
	return true
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalUUIDPtr(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
