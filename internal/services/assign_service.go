package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/pkg/logger"

	"github.com/google/uuid"
)

// AssignService commits draft moves to physical source locations. A call is
// one transaction: candidate rows are locked before availability is read so
// concurrent attempts on overlapping locations and products cannot allocate
// the same stock twice.
type AssignService interface {
	// AssignTry attempts to assign the given draft moves in order. It
	// returns true only when every move was fully assigned; a shortfall
	// leaves a remainder draft move and returns false without error.
	// Lock contention returns repositories.ErrLockNotAvailable.
	AssignTry(ctx context.Context, companyID uuid.UUID, moveIDs []uuid.UUID,
		withChilds bool, grouping []string) (bool, error)
}

type assignService struct {
	tx         repositories.TxRunner
	quantities QuantityService
	log        *logger.Logger
	now        func() time.Time
}

func NewAssignService(tx repositories.TxRunner, quantities QuantityService, log *logger.Logger) AssignService {
	return &assignService{tx: tx, quantities: quantities, log: log, now: time.Now}
}

type allocation struct {
	locationID uuid.UUID
	quantity   float64 // internal units
}

func (s *assignService) AssignTry(ctx context.Context, companyID uuid.UUID, moveIDs []uuid.UUID,
	withChilds bool, grouping []string) (bool, error) {
	grouping, err := normalizeGrouping(grouping)
	if err != nil {
		return false, err
	}
	if len(moveIDs) == 0 {
		return true, nil
	}

	success := true
	err = s.tx.Run(ctx, func(repos repositories.Repos) error {
		moves, err := s.loadDraftMoves(ctx, repos, companyID, moveIDs)
		if err != nil {
			return err
		}

		fromIDs := distinct(moves, func(m *models.StockMove) uuid.UUID { return m.FromLocationID })
		subtree, err := repos.Locations.Subtree(ctx, companyID, fromIDs)
		if err != nil {
			return err
		}
		candidatesByRoot, locationsByID := buildCandidates(subtree, fromIDs, withChilds)

		productIDs := distinct(moves, func(m *models.StockMove) uuid.UUID { return m.ProductID })
		products, uoms, err := s.loadUnitData(ctx, repos, companyID, moves, productIDs)
		if err != nil {
			return err
		}

		allCandidates := make([]uuid.UUID, 0, len(subtree))
		for _, root := range fromIDs {
			allCandidates = append(allCandidates, candidatesByRoot[root]...)
		}

		// Lock before reading availability; this is the correctness point
		// of the whole engine.
		if err := repos.Moves.LockCandidates(ctx, companyID, allCandidates, productIDs); err != nil {
			return err
		}

		today := dateOnly(s.now())
		window := QueryWindow{CompanyID: companyID, AsOf: &today, AssignAsDone: true}
		available, err := s.quantities.ComputeQuantities(ctx, repos, window, allCandidates, QuantityOptions{
			Grouping:   grouping,
			ProductIDs: productIDs,
		})
		if err != nil {
			return err
		}

		withShipment := len(grouping) > 1
		for _, move := range moves {
			product := products[move.ProductID]
			defaultUom := uoms[product.DefaultUomID]
			moveUom := uoms[move.UomID]
			fromLoc := locationsByID[move.FromLocationID]

			if product.Consumable && fromLoc.Type != models.LocationView {
				// Consumables are not strictly tracked; take them from the
				// nominal source regardless of recorded stock.
				if err := move.Transition(models.MoveAssigned); err != nil {
					return err
				}
				if err := repos.Moves.Update(ctx, move); err != nil {
					return err
				}
				continue
			}

			key := func(loc uuid.UUID) QuantityKey {
				k := QuantityKey{LocationID: loc, ProductID: move.ProductID}
				if withShipment && move.ShipmentID != nil {
					k.ShipmentID = *move.ShipmentID
				}
				return k
			}
			allocs, remaining := pickProduct(move.InternalQuantity, candidatesByRoot[move.FromLocationID],
				defaultUom, key, available)

			if len(allocs) == 0 {
				success = false
				continue
			}

			fullyAssigned, err := s.applyAllocations(ctx, repos, move, allocs, remaining, defaultUom, moveUom)
			if err != nil {
				return err
			}
			if !fullyAssigned {
				success = false
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return success, nil
}

func (s *assignService) loadDraftMoves(ctx context.Context, repos repositories.Repos,
	companyID uuid.UUID, moveIDs []uuid.UUID) ([]*models.StockMove, error) {
	loaded, err := repos.Moves.GetByIDs(ctx, companyID, moveIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.StockMove, len(loaded))
	for _, m := range loaded {
		byID[m.ID] = m
	}
	// Preserve caller order: earlier moves in the batch have allocation
	// priority over later ones.
	moves := make([]*models.StockMove, 0, len(moveIDs))
	for _, id := range moveIDs {
		move, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("move %s: %w", id, repositories.ErrNotFound)
		}
		if move.State != models.MoveDraft {
			return nil, fmt.Errorf("move %s: %w", id, ErrMoveNotDraft)
		}
		moves = append(moves, move)
	}
	return moves, nil
}

func (s *assignService) loadUnitData(ctx context.Context, repos repositories.Repos, companyID uuid.UUID,
	moves []*models.StockMove, productIDs []uuid.UUID) (map[uuid.UUID]*models.Product, map[uuid.UUID]*models.UoM, error) {
	productList, err := repos.Products.GetByIDs(ctx, companyID, productIDs)
	if err != nil {
		return nil, nil, err
	}
	products := make(map[uuid.UUID]*models.Product, len(productList))
	uomSet := make(map[uuid.UUID]bool)
	for _, p := range productList {
		products[p.ID] = p
		uomSet[p.DefaultUomID] = true
	}
	for _, m := range moves {
		if _, ok := products[m.ProductID]; !ok {
			return nil, nil, fmt.Errorf("product %s: %w", m.ProductID, repositories.ErrNotFound)
		}
		uomSet[m.UomID] = true
	}
	uomIDs := make([]uuid.UUID, 0, len(uomSet))
	for id := range uomSet {
		uomIDs = append(uomIDs, id)
	}
	uomList, err := repos.Uoms.GetByIDs(ctx, uomIDs)
	if err != nil {
		return nil, nil, err
	}
	uoms := make(map[uuid.UUID]*models.UoM, len(uomList))
	for _, u := range uomList {
		uoms[u.ID] = u
	}
	return products, uoms, nil
}

// buildCandidates returns, per requested root, the ordered candidate source
// locations: the root itself first, then its stock-holding descendants in
// subtree order.
func buildCandidates(subtree []*models.Location, roots []uuid.UUID, withChilds bool) (map[uuid.UUID][]uuid.UUID, map[uuid.UUID]*models.Location) {
	byID := make(map[uuid.UUID]*models.Location, len(subtree))
	for _, loc := range subtree {
		byID[loc.ID] = loc
	}
	rootSet := make(map[uuid.UUID]bool, len(roots))
	for _, id := range roots {
		rootSet[id] = true
	}
	candidates := make(map[uuid.UUID][]uuid.UUID, len(roots))
	for _, id := range roots {
		candidates[id] = []uuid.UUID{id}
	}
	if !withChilds {
		return candidates, byID
	}
	for _, loc := range subtree {
		if rootSet[loc.ID] || !loc.CanHoldStock() {
			continue
		}
		// Attach to the nearest requested root above.
		cur := loc.ParentID
		for cur != nil {
			if rootSet[*cur] {
				candidates[*cur] = append(candidates[*cur], loc.ID)
				break
			}
			parent, ok := byID[*cur]
			if !ok {
				break
			}
			cur = parent.ParentID
		}
	}
	return candidates, byID
}

// pickProduct greedily consumes availability from candidates in order,
// never over-drawing a single location, and deducts what it takes from the
// shared map so later moves in the batch cannot double-spend.
func pickProduct(requested float64, candidates []uuid.UUID, defaultUom *models.UoM,
	key func(uuid.UUID) QuantityKey, available Quantities) ([]allocation, float64) {
	remaining := requested
	var allocs []allocation
	for _, loc := range candidates {
		if remaining <= 0 {
			break
		}
		avail := available[key(loc)]
		if avail <= 0 {
			continue
		}
		take := defaultUom.Floor(math.Min(avail, remaining))
		if take <= 0 {
			continue
		}
		allocs = append(allocs, allocation{locationID: loc, quantity: take})
		available[key(loc)] -= take
		remaining = defaultUom.Round(remaining - take)
	}
	return allocs, remaining
}

// applyAllocations rewrites the move as its first allocation, creates one
// assigned copy per further source, and keeps any shortfall as a new draft
// move from the nominal source. Split quantities always sum to the original.
func (s *assignService) applyAllocations(ctx context.Context, repos repositories.Repos,
	move *models.StockMove, allocs []allocation, remaining float64,
	defaultUom, moveUom *models.UoM) (bool, error) {
	originalFrom := move.FromLocationID
	originalQty := move.Quantity

	toMoveUnit := func(internal float64) (float64, error) {
		return models.ConvertQuantity(internal, defaultUom, moveUom, true)
	}

	first := allocs[0]
	firstQty, err := toMoveUnit(first.quantity)
	if err != nil {
		return false, err
	}
	move.FromLocationID = first.locationID
	move.Quantity = firstQty
	move.InternalQuantity = first.quantity
	if err := move.Transition(models.MoveAssigned); err != nil {
		return false, err
	}
	assignedTotal := firstQty

	var creates []*models.StockMove
	for _, alloc := range allocs[1:] {
		qty, err := toMoveUnit(alloc.quantity)
		if err != nil {
			return false, err
		}
		split := move.Copy()
		split.FromLocationID = alloc.locationID
		split.Quantity = qty
		split.InternalQuantity = alloc.quantity
		creates = append(creates, split)
		assignedTotal += qty
	}

	fullyAssigned := defaultUom.Round(remaining) <= 0
	if !fullyAssigned {
		rest := move.Copy()
		rest.State = models.MoveDraft
		rest.FromLocationID = originalFrom
		rest.InternalQuantity = remaining
		rest.Quantity = moveUom.Round(originalQty - assignedTotal)
		creates = append(creates, rest)
	}

	if err := repos.Moves.Update(ctx, move); err != nil {
		return false, err
	}
	for _, c := range creates {
		if err := repos.Moves.Create(ctx, c); err != nil {
			return false, err
		}
	}
	return fullyAssigned, nil
}

func distinct(moves []*models.StockMove, get func(*models.StockMove) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(moves))
	var out []uuid.UUID
	for _, m := range moves {
		id := get(m)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
