package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/pkg/logger"

	"github.com/google/uuid"
)

// PeriodService freezes quantity snapshots at period boundaries so the
// aggregation engine does not rescan history older than the last close.
type PeriodService interface {
	Create(ctx context.Context, companyID uuid.UUID, name string, date time.Time) (*models.Period, error)
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Period, error)
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Period, error)
	// Close snapshots and closes the given periods in one transaction; on
	// any precondition failure nothing is closed.
	Close(ctx context.Context, companyID uuid.UUID, periodIDs []uuid.UUID) error
	// Draft reopens a period, deleting its cache rows. Idempotent.
	Draft(ctx context.Context, companyID, periodID uuid.UUID) error
}

type periodService struct {
	tx         repositories.TxRunner
	repos      repositories.Repos
	quantities QuantityService
	log        *logger.Logger
	now        func() time.Time
}

func NewPeriodService(tx repositories.TxRunner, repos repositories.Repos,
	quantities QuantityService, log *logger.Logger) PeriodService {
	return &periodService{tx: tx, repos: repos, quantities: quantities, log: log, now: time.Now}
}

func (s *periodService) Create(ctx context.Context, companyID uuid.UUID, name string, date time.Time) (*models.Period, error) {
	period := &models.Period{
		ID:        uuid.New(),
		CompanyID: companyID,
		Name:      name,
		Date:      dateOnly(date),
		State:     models.PeriodDraft,
	}
	if err := s.repos.Periods.Create(ctx, period); err != nil {
		return nil, err
	}
	return period, nil
}

func (s *periodService) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Period, error) {
	return s.repos.Periods.GetByID(ctx, companyID, id)
}

func (s *periodService) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Period, error) {
	return s.repos.Periods.List(ctx, companyID, limit, offset)
}

func (s *periodService) Close(ctx context.Context, companyID uuid.UUID, periodIDs []uuid.UUID) error {
	if len(periodIDs) == 0 {
		return nil
	}
	return s.tx.Run(ctx, func(repos repositories.Repos) error {
		today := dateOnly(s.now())

		periods := make([]*models.Period, 0, len(periodIDs))
		var latest time.Time
		for _, id := range periodIDs {
			period, err := repos.Periods.GetByID(ctx, companyID, id)
			if err != nil {
				return err
			}
			if period.State == models.PeriodClosed {
				return fmt.Errorf("period %s: %w", period.Name, ErrPeriodAlreadyClosed)
			}
			if !period.Date.Before(today) {
				return fmt.Errorf("period %s (%s): %w", period.Name,
					period.Date.Format("2006-01-02"), ErrPeriodNotBeforeToday)
			}
			if period.Date.After(latest) {
				latest = period.Date
			}
			periods = append(periods, period)
		}
		sort.Slice(periods, func(i, j int) bool { return periods[i].Date.Before(periods[j].Date) })

		// No move may slip behind the boundary while the snapshot runs.
		if err := repos.Moves.LockTable(ctx); err != nil {
			return err
		}

		// An assigned move straddling the cutoff would falsify the frozen
		// quantities once it completes or is reset. One check with the
		// latest date covers the whole batch.
		assigned, err := repos.Moves.HasAssignedBefore(ctx, companyID, latest)
		if err != nil {
			return err
		}
		if assigned {
			return fmt.Errorf("close up to %s: %w", latest.Format("2006-01-02"), ErrAssignedMoveBeforeClose)
		}

		// Only leaf-ish locations are cached; warehouse and view nodes are
		// aggregation targets recomputed from their children.
		locations, err := repos.Locations.ListExcludingTypes(ctx, companyID,
			[]models.LocationType{models.LocationWarehouse, models.LocationView})
		if err != nil {
			return err
		}
		locationIDs := make([]uuid.UUID, len(locations))
		for i, loc := range locations {
			locationIDs[i] = loc.ID
		}

		for _, period := range periods {
			date := period.Date
			window := QueryWindow{CompanyID: companyID, AsOf: &date}
			buckets, err := s.quantities.ComputeQuantities(ctx, repos, window, locationIDs, QuantityOptions{})
			if err != nil {
				return err
			}
			rows := make([]*models.PeriodCache, 0, len(buckets))
			for key, qty := range buckets {
				rows = append(rows, &models.PeriodCache{
					ID:               uuid.New(),
					PeriodID:         period.ID,
					LocationID:       key.LocationID,
					ProductID:        key.ProductID,
					InternalQuantity: qty,
				})
			}
			if err := repos.Periods.InsertCacheRows(ctx, rows); err != nil {
				return err
			}
			period.State = models.PeriodClosed
			if err := repos.Periods.Update(ctx, period); err != nil {
				return err
			}
			s.log.Info().
				Str("period", period.Name).
				Str("date", period.Date.Format("2006-01-02")).
				Int("cache_rows", len(rows)).
				Msg("period closed")
		}
		return nil
	})
}

func (s *periodService) Draft(ctx context.Context, companyID, periodID uuid.UUID) error {
	return s.tx.Run(ctx, func(repos repositories.Repos) error {
		period, err := repos.Periods.GetByID(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		if err := repos.Periods.DeleteCacheRows(ctx, period.ID); err != nil {
			return err
		}
		if period.State == models.PeriodDraft {
			return nil
		}
		period.State = models.PeriodDraft
		if err := repos.Periods.Update(ctx, period); err != nil {
			return err
		}
		s.log.Info().Str("period", period.Name).Msg("period reopened")
		return nil
	})
}
