package background

import (
	"context"
	"errors"
	"sync"
	"time"

	"stockd/internal/caching"
	"stockd/internal/repositories"
	"stockd/internal/services"
	"stockd/pkg/logger"

	"github.com/bsm/redislock"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

const (
	assignLockKey = "stockd:jobs:assign"
	assignLockTTL = 5 * time.Minute
	warmCacheTTL  = 30 * time.Minute
)

// JobScheduler runs the periodic jobs: automatic assignment of due draft
// moves and cache warming. The assignment job takes a Redis lock so only
// one instance runs it at a time.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	locker        *redislock.Client
	repos         repositories.Repos
	assignService services.AssignService
	cacheService  caching.CacheService
	log           *logger.Logger

	assignInterval time.Duration
	assignBatch    int
	cacheWarmCron  string

	jobs map[string]gocron.Job
	mu   sync.RWMutex
}

func NewJobScheduler(locker *redislock.Client, repos repositories.Repos,
	assignService services.AssignService, cacheService caching.CacheService,
	assignInterval time.Duration, assignBatch int, cacheWarmCron string,
	log *logger.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:      scheduler,
		locker:         locker,
		repos:          repos,
		assignService:  assignService,
		cacheService:   cacheService,
		log:            log,
		assignInterval: assignInterval,
		assignBatch:    assignBatch,
		cacheWarmCron:  cacheWarmCron,
		jobs:           make(map[string]gocron.Job),
	}
	if err := js.registerJobs(); err != nil {
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.log.Info().Int("jobs", len(js.jobs)).Msg("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.log.Info().Msg("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	assignJob, err := js.scheduler.NewJob(
		gocron.DurationJob(js.assignInterval),
		gocron.NewTask(js.assignDueMoves),
		gocron.WithName("move-assignment"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	js.jobs["move-assignment"] = assignJob

	warmJob, err := js.scheduler.NewJob(
		gocron.CronJob(js.cacheWarmCron, false),
		gocron.NewTask(js.warmCaches),
		gocron.WithName("cache-warm"),
	)
	if err != nil {
		return err
	}
	js.jobs["cache-warm"] = warmJob
	return nil
}

// assignDueMoves tries assignment for draft moves planned up to today,
// company by company. Row lock contention on a company is logged and the
// company is retried on the next run.
func (js *JobScheduler) assignDueMoves() {
	ctx := context.Background()

	lock, err := js.locker.Obtain(ctx, assignLockKey, assignLockTTL, nil)
	if err == redislock.ErrNotObtained {
		js.log.Debug().Msg("assignment job already running on another instance")
		return
	}
	if err != nil {
		js.log.Error().Err(err).Msg("failed to obtain assignment job lock")
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			js.log.Warn().Err(err).Msg("failed to release assignment job lock")
		}
	}()

	companies, err := js.repos.Companies.List(ctx, 1000, 0)
	if err != nil {
		js.log.Error().Err(err).Msg("failed to list companies for assignment job")
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, company := range companies {
		js.assignCompanyMoves(ctx, company.ID, today)
	}
}

func (js *JobScheduler) assignCompanyMoves(ctx context.Context, companyID uuid.UUID, today time.Time) {
	moves, err := js.repos.Moves.DraftDue(ctx, companyID, today, js.assignBatch)
	if err != nil {
		js.log.Error().Err(err).Str("company", companyID.String()).Msg("failed to list due draft moves")
		return
	}
	if len(moves) == 0 {
		return
	}

	moveIDs := make([]uuid.UUID, len(moves))
	for i, move := range moves {
		moveIDs[i] = move.ID
	}

	fullyAssigned, err := js.assignService.AssignTry(ctx, companyID, moveIDs, true, nil)
	if errors.Is(err, repositories.ErrLockNotAvailable) {
		js.log.Warn().Str("company", companyID.String()).Msg("assignment skipped, stock rows locked")
		return
	}
	if err != nil {
		js.log.Error().Err(err).Str("company", companyID.String()).Msg("assignment job failed")
		return
	}
	js.log.Info().
		Str("company", companyID.String()).
		Int("moves", len(moveIDs)).
		Bool("fully_assigned", fullyAssigned).
		Msg("assignment job completed")
}

// warmCaches preloads the units of measure and each company's products so
// the first requests after a deploy do not all hit the database.
func (js *JobScheduler) warmCaches() {
	ctx := context.Background()

	uoms, err := js.repos.Uoms.List(ctx, 1000, 0)
	if err != nil {
		js.log.Error().Err(err).Msg("cache warm failed listing uoms")
		return
	}
	for _, uom := range uoms {
		if err := js.cacheService.SetUom(ctx, uom, warmCacheTTL); err != nil {
			js.log.Warn().Err(err).Msg("cache warm failed writing uom")
		}
	}

	companies, err := js.repos.Companies.List(ctx, 1000, 0)
	if err != nil {
		js.log.Error().Err(err).Msg("cache warm failed listing companies")
		return
	}
	warmed := 0
	for _, company := range companies {
		products, err := js.repos.Products.List(ctx, company.ID, 1000, 0)
		if err != nil {
			js.log.Warn().Err(err).Str("company", company.ID.String()).Msg("cache warm failed listing products")
			continue
		}
		for _, product := range products {
			if err := js.cacheService.SetProduct(ctx, company.ID, product, warmCacheTTL); err != nil {
				js.log.Warn().Err(err).Msg("cache warm failed writing product")
				continue
			}
			warmed++
		}
	}
	js.log.Info().Int("uoms", len(uoms)).Int("products", warmed).Msg("cache warm completed")
}
