package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/pkg/logger"

	"github.com/google/uuid"
)

// QueryWindow carries the temporal parameters of a quantity computation
// explicitly; the engines never read them from ambient state.
type QueryWindow struct {
	CompanyID uuid.UUID
	// AsOf is the snapshot date; nil means no upper bound.
	AsOf *time.Time
	// DeltaFrom, when set, turns the result into the net change since that
	// date instead of an absolute snapshot.
	DeltaFrom *time.Time
	// AssignAsDone counts assigned moves as if already executed, so stock
	// reserved by other moves is not offered twice.
	AssignAsDone bool
}

// QuantityKey identifies one result bucket. ShipmentID is Nil unless the
// grouping includes the shipment field.
type QuantityKey struct {
	LocationID uuid.UUID
	ProductID  uuid.UUID
	ShipmentID uuid.UUID
}

// Quantities maps buckets to net internal quantities, positive when the
// location is a net receiver.
type Quantities map[QuantityKey]float64

// QuantityOptions selects grouping and location scope.
type QuantityOptions struct {
	Grouping    []string    // defaults to ("product",)
	ProductIDs  []uuid.UUID // optional filter on the product group field
	ShipmentIDs []uuid.UUID // optional filter on the shipment group field
	WithChilds  bool        // include descendants and roll them up to the requested roots
}

type QuantityService interface {
	ComputeQuantities(ctx context.Context, repos repositories.Repos, window QueryWindow,
		locationIDs []uuid.UUID, opts QuantityOptions) (Quantities, error)
}

type quantityService struct {
	log *logger.Logger
	now func() time.Time
}

func NewQuantityService(log *logger.Logger) QuantityService {
	return &quantityService{log: log, now: time.Now}
}

// ComputeQuantities sums signed move quantities per location and grouping
// key inside the window. A closed period's cache rows serve as baseline so
// only moves after the boundary are scanned.
func (s *quantityService) ComputeQuantities(ctx context.Context, repos repositories.Repos,
	window QueryWindow, locationIDs []uuid.UUID, opts QuantityOptions) (Quantities, error) {
	if len(locationIDs) == 0 {
		return Quantities{}, nil
	}
	grouping, err := normalizeGrouping(opts.Grouping)
	if err != nil {
		return nil, err
	}

	today := dateOnly(s.now())

	queryLocs := locationIDs
	var subtree []*models.Location
	if opts.WithChilds {
		subtree, err = repos.Locations.Subtree(ctx, window.CompanyID, locationIDs)
		if err != nil {
			return nil, err
		}
		queryLocs = make([]uuid.UUID, len(subtree))
		for i, loc := range subtree {
			queryLocs[i] = loc.ID
		}
	}

	clauses, forecast := buildClauses(window, today)
	buckets := Quantities{}

	// The cache is registered for the plain product grouping and is skipped
	// for delta queries; either way the cache never changes results, only
	// how much history is rescanned.
	if window.DeltaFrom == nil && len(grouping) == 1 {
		var bound *time.Time
		if !forecast {
			bound = window.AsOf
		}
		period, err := repos.Periods.LatestClosed(ctx, window.CompanyID, bound)
		if err != nil {
			return nil, err
		}
		if period != nil {
			rows, err := repos.Periods.CacheRows(ctx, period.ID, queryLocs, opts.ProductIDs)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				buckets[QuantityKey{LocationID: row.LocationID, ProductID: row.ProductID}] += row.InternalQuantity
			}
			boundary := period.Date
			for i := range clauses {
				if clauses[i].DateMin == nil || clauses[i].DateMin.Before(boundary) {
					d := boundary
					clauses[i].DateMin = &d
					clauses[i].MinExclusive = true
				}
			}
		}
	}

	rows, err := repos.Moves.SumQuantities(ctx, repositories.QuantityQuery{
		CompanyID:   window.CompanyID,
		LocationIDs: queryLocs,
		Grouping:    grouping,
		ProductIDs:  opts.ProductIDs,
		ShipmentIDs: opts.ShipmentIDs,
		Clauses:     clauses,
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		key := QuantityKey{LocationID: row.LocationID, ProductID: row.ProductID, ShipmentID: row.ShipmentID}
		buckets[key] += row.Quantity
	}

	if opts.WithChilds {
		buckets = rollUp(buckets, subtree, locationIDs)
	}

	if err := s.roundBuckets(ctx, repos, window.CompanyID, buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func normalizeGrouping(grouping []string) ([]string, error) {
	fields := make([]string, 0, len(grouping))
	hasProduct := false
	for _, field := range grouping {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, ok := repositories.GroupingColumns[field]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGroupingField, field)
		}
		if field == "product" {
			hasProduct = true
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return []string{"product"}, nil
	}
	if !hasProduct {
		return nil, ErrProductGroupRequired
	}
	return fields, nil
}

// buildClauses translates the window into OR'ed state/date branches. Past
// snapshots count only executed moves; future snapshots additionally count
// scheduled non-terminal moves dated between today and the horizon. With
// AssignAsDone, assigned moves count on their source side only: they reserve
// stock where it sits but have not arrived at their destination.
func buildClauses(window QueryWindow, today time.Time) ([]repositories.StateDateClause, bool) {
	doneStates := []models.MoveState{models.MoveDone}
	forecast := window.AsOf == nil || window.AsOf.After(today)

	var clauses []repositories.StateDateClause
	if !forecast {
		clauses = append(clauses, repositories.StateDateClause{States: doneStates, DateMax: window.AsOf})
		if window.AssignAsDone {
			clauses = append(clauses, repositories.StateDateClause{
				States:       []models.MoveState{models.MoveAssigned},
				DateMax:      window.AsOf,
				OutboundOnly: true,
			})
		}
	} else {
		t := today
		clauses = append(clauses,
			repositories.StateDateClause{States: doneStates, DateMax: &t},
			repositories.StateDateClause{
				States:  []models.MoveState{models.MoveStaging, models.MoveDraft, models.MoveAssigned, models.MoveDone},
				DateMin: &t,
				DateMax: window.AsOf,
			})
		if window.AssignAsDone {
			clauses = append(clauses, repositories.StateDateClause{
				States:       []models.MoveState{models.MoveAssigned},
				DateMax:      &t,
				OutboundOnly: true,
			})
		}
	}
	if window.DeltaFrom != nil {
		for i := range clauses {
			if clauses[i].DateMin == nil || window.DeltaFrom.After(*clauses[i].DateMin) {
				d := *window.DeltaFrom
				clauses[i].DateMin = &d
				clauses[i].MinExclusive = false
			}
		}
	}
	return clauses, forecast
}

// flattenTargets maps every location to the bucket its quantities are
// recorded under: itself, unless some ancestor has flat_childs, in which case
// the outermost such ancestor. Identity when no node is flagged.
// Subtree must list parents before children.
func flattenTargets(subtree []*models.Location) map[uuid.UUID]uuid.UUID {
	byID := make(map[uuid.UUID]*models.Location, len(subtree))
	targets := make(map[uuid.UUID]uuid.UUID, len(subtree))
	for _, loc := range subtree {
		byID[loc.ID] = loc
		targets[loc.ID] = loc.ID
		if loc.ParentID == nil {
			continue
		}
		parent, ok := byID[*loc.ParentID]
		if !ok {
			continue
		}
		if parent.FlatChilds || targets[parent.ID] != parent.ID {
			targets[loc.ID] = targets[parent.ID]
		}
	}
	return targets
}

// rollUp pushes every bucket to its nearest ancestor among the requested
// roots and drops buckets with no requested ancestor.
func rollUp(buckets Quantities, subtree []*models.Location, requested []uuid.UUID) Quantities {
	targets := flattenTargets(subtree)
	parents := make(map[uuid.UUID]*uuid.UUID, len(subtree))
	for _, loc := range subtree {
		parents[loc.ID] = loc.ParentID
	}
	requestedSet := make(map[uuid.UUID]bool, len(requested))
	for _, id := range requested {
		requestedSet[id] = true
	}

	out := Quantities{}
	for key, qty := range buckets {
		loc, ok := targets[key.LocationID]
		if !ok {
			loc = key.LocationID
		}
		for {
			if requestedSet[loc] {
				key.LocationID = loc
				out[key] += qty
				break
			}
			parent, ok := parents[loc]
			if !ok || parent == nil {
				break
			}
			loc = *parent
		}
	}
	return out
}

// roundBuckets rounds each bucket once, after all summation, to the product
// default unit's rounding step.
func (s *quantityService) roundBuckets(ctx context.Context, repos repositories.Repos,
	companyID uuid.UUID, buckets Quantities) error {
	if len(buckets) == 0 {
		return nil
	}
	productSet := make(map[uuid.UUID]bool)
	for key := range buckets {
		productSet[key.ProductID] = true
	}
	productIDs := make([]uuid.UUID, 0, len(productSet))
	for id := range productSet {
		productIDs = append(productIDs, id)
	}
	products, err := repos.Products.GetByIDs(ctx, companyID, productIDs)
	if err != nil {
		return err
	}
	uomByProduct := make(map[uuid.UUID]uuid.UUID, len(products))
	uomSet := make(map[uuid.UUID]bool)
	for _, p := range products {
		uomByProduct[p.ID] = p.DefaultUomID
		uomSet[p.DefaultUomID] = true
	}
	uomIDs := make([]uuid.UUID, 0, len(uomSet))
	for id := range uomSet {
		uomIDs = append(uomIDs, id)
	}
	uoms, err := repos.Uoms.GetByIDs(ctx, uomIDs)
	if err != nil {
		return err
	}
	uomByID := make(map[uuid.UUID]*models.UoM, len(uoms))
	for _, u := range uoms {
		uomByID[u.ID] = u
	}
	for key, qty := range buckets {
		if uomID, ok := uomByProduct[key.ProductID]; ok {
			if uom, ok := uomByID[uomID]; ok {
				buckets[key] = uom.Round(qty)
			}
		}
	}
	return nil
}

// dateOnly truncates to the UTC calendar day; the scheduler uses the same
// convention, so "today" is identical across services and jobs.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
