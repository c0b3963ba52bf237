package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockd/internal/models"

	"github.com/google/uuid"
)

// GroupingColumns maps the grouping field names accepted by the quantity
// engine to their stock_move columns. The product field is always required.
var GroupingColumns = map[string]string{
	"product":  "product_id",
	"shipment": "shipment_id",
}

// StateDateClause is one OR-branch of the temporal inclusion rule: moves in
// one of States whose effective date (or planned date when not yet effective)
// falls inside the given bounds. An OutboundOnly clause applies solely to the
// source side of a move: assigned moves reserve stock at their source but
// have not yet arrived at their destination.
type StateDateClause struct {
	States       []models.MoveState
	DateMin      *time.Time
	MinExclusive bool
	DateMax      *time.Time
	OutboundOnly bool
}

// QuantityQuery is the structured filter the aggregation engine hands to the
// repository. The SQL shape produced from it is a repository detail.
type QuantityQuery struct {
	CompanyID   uuid.UUID
	LocationIDs []uuid.UUID
	Grouping    []string
	ProductIDs  []uuid.UUID // optional grouping filter
	ShipmentIDs []uuid.UUID // optional grouping filter
	Clauses     []StateDateClause
}

// QuantityRow is one aggregated bucket: signed sum of internal quantities
// for a location and grouping key. ShipmentID is Nil unless grouped by
// shipment.
type QuantityRow struct {
	LocationID uuid.UUID
	ProductID  uuid.UUID
	ShipmentID uuid.UUID
	Quantity   float64
}

type MoveRepository interface {
	Create(ctx context.Context, move *models.StockMove) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error)
	GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.StockMove, error)
	Update(ctx context.Context, move *models.StockMove) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	List(ctx context.Context, companyID uuid.UUID, states []models.MoveState, limit, offset int) ([]*models.StockMove, error)
	SumQuantities(ctx context.Context, q QuantityQuery) ([]QuantityRow, error)
	LockCandidates(ctx context.Context, companyID uuid.UUID, locationIDs, productIDs []uuid.UUID) error
	LockTable(ctx context.Context) error
	HasAssignedBefore(ctx context.Context, companyID uuid.UUID, date time.Time) (bool, error)
	DraftDue(ctx context.Context, companyID uuid.UUID, date time.Time, limit int) ([]*models.StockMove, error)
}

type moveRepo struct {
	db Querier
}

func NewMoveRepo(db Querier) MoveRepository {
	return &moveRepo{db: db}
}

const moveColumns = `id, company_id, product_id, uom_id, quantity, internal_quantity,
		from_location_id, to_location_id, state, planned_date, effective_date,
		shipment_id, origin, unit_price, currency, cost_price, created_at, updated_at`

func (r *moveRepo) Create(ctx context.Context, move *models.StockMove) error {
	query := `
		INSERT INTO stock_move (id, company_id, product_id, uom_id, quantity, internal_quantity,
			from_location_id, to_location_id, state, planned_date, effective_date,
			shipment_id, origin, unit_price, currency, cost_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		move.ID, move.CompanyID, move.ProductID, move.UomID, move.Quantity, move.InternalQuantity,
		move.FromLocationID, move.ToLocationID, move.State, move.PlannedDate, move.EffectiveDate,
		move.ShipmentID, move.Origin, move.UnitPrice, move.Currency, move.CostPrice)
	if err != nil {
		return fmt.Errorf("create stock move: %w", err)
	}
	return nil
}

func (r *moveRepo) scanMove(row interface{ Scan(...any) error }) (*models.StockMove, error) {
	move := &models.StockMove{}
	err := row.Scan(
		&move.ID, &move.CompanyID, &move.ProductID, &move.UomID, &move.Quantity, &move.InternalQuantity,
		&move.FromLocationID, &move.ToLocationID, &move.State, &move.PlannedDate, &move.EffectiveDate,
		&move.ShipmentID, &move.Origin, &move.UnitPrice, &move.Currency, &move.CostPrice,
		&move.CreatedAt, &move.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return move, nil
}

func (r *moveRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.StockMove, error) {
	query := `
		SELECT ` + moveColumns + `
		FROM stock_move
		WHERE company_id = $1 AND id = $2
	`
	move, err := r.scanMove(r.db.QueryRow(ctx, query, companyID, id))
	if err != nil {
		return nil, fmt.Errorf("get stock move: %w", mapNotFound(err))
	}
	return move, nil
}

func (r *moveRepo) GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.StockMove, error) {
	query := `
		SELECT ` + moveColumns + `
		FROM stock_move
		WHERE company_id = $1 AND id = ANY($2)
	`
	rows, err := r.db.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("get stock moves: %w", err)
	}
	defer rows.Close()

	var moves []*models.StockMove
	for rows.Next() {
		move, err := r.scanMove(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock move: %w", err)
		}
		moves = append(moves, move)
	}
	return moves, rows.Err()
}

func (r *moveRepo) Update(ctx context.Context, move *models.StockMove) error {
	query := `
		UPDATE stock_move
		SET product_id = $1, uom_id = $2, quantity = $3, internal_quantity = $4,
			from_location_id = $5, to_location_id = $6, state = $7,
			planned_date = $8, effective_date = $9, shipment_id = $10, origin = $11,
			unit_price = $12, currency = $13, cost_price = $14, updated_at = NOW()
		WHERE company_id = $15 AND id = $16
	`
	_, err := r.db.Exec(ctx, query,
		move.ProductID, move.UomID, move.Quantity, move.InternalQuantity,
		move.FromLocationID, move.ToLocationID, move.State,
		move.PlannedDate, move.EffectiveDate, move.ShipmentID, move.Origin,
		move.UnitPrice, move.Currency, move.CostPrice,
		move.CompanyID, move.ID)
	if err != nil {
		return fmt.Errorf("update stock move: %w", err)
	}
	return nil
}

func (r *moveRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	query := `DELETE FROM stock_move WHERE company_id = $1 AND id = $2`
	if _, err := r.db.Exec(ctx, query, companyID, id); err != nil {
		return fmt.Errorf("delete stock move: %w", err)
	}
	return nil
}

func (r *moveRepo) List(ctx context.Context, companyID uuid.UUID, states []models.MoveState, limit, offset int) ([]*models.StockMove, error) {
	query := `
		SELECT ` + moveColumns + `
		FROM stock_move
		WHERE company_id = $1
	`
	args := []any{companyID}
	if len(states) > 0 {
		query += ` AND state = ANY($2)`
		args = append(args, stateStrings(states))
	}
	query += fmt.Sprintf(` ORDER BY COALESCE(effective_date, planned_date) DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock moves: %w", err)
	}
	defer rows.Close()

	var moves []*models.StockMove
	for rows.Next() {
		move, err := r.scanMove(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock move: %w", err)
		}
		moves = append(moves, move)
	}
	return moves, rows.Err()
}

// SumQuantities aggregates signed internal quantities per location and
// grouping key: each move counts +internal_quantity at its destination and
// -internal_quantity at its source, restricted by the OR'ed state/date
// clauses. The union shape keeps both signs in one scan.
func (r *moveRepo) SumQuantities(ctx context.Context, q QuantityQuery) ([]QuantityRow, error) {
	groupCols := make([]string, 0, len(q.Grouping))
	for _, field := range q.Grouping {
		col, ok := GroupingColumns[field]
		if !ok {
			return nil, fmt.Errorf("unknown grouping column %q", field)
		}
		groupCols = append(groupCols, col)
	}

	args := []any{}
	half := func(locCol, sign string) string {
		cond, condArgs := r.quantityConditions(q, locCol, len(args))
		args = append(args, condArgs...)
		return fmt.Sprintf(`SELECT %s AS loc, %s, %sinternal_quantity AS qty
			FROM stock_move WHERE %s`, locCol, strings.Join(groupCols, ", "), sign, cond)
	}
	inbound := half("to_location_id", "")
	outbound := half("from_location_id", "-")

	selectCols := "m.loc, m." + strings.Join(groupCols, ", m.")
	query := fmt.Sprintf(`
		SELECT %s, SUM(m.qty)
		FROM (%s UNION ALL %s) m
		GROUP BY %s
	`, selectCols, inbound, outbound, selectCols)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum quantities: %w", err)
	}
	defer rows.Close()

	var result []QuantityRow
	for rows.Next() {
		var row QuantityRow
		var shipment *uuid.UUID
		// Destinations must mirror groupCols so the caller's grouping order
		// cannot misalign the scanned columns.
		dest := []any{&row.LocationID}
		for _, col := range groupCols {
			if col == "shipment_id" {
				dest = append(dest, &shipment)
			} else {
				dest = append(dest, &row.ProductID)
			}
		}
		dest = append(dest, &row.Quantity)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan quantity row: %w", err)
		}
		if shipment != nil {
			row.ShipmentID = *shipment
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// quantityConditions builds the WHERE fragment for one half of the union,
// numbering placeholders after the offset already consumed.
func (r *moveRepo) quantityConditions(q QuantityQuery, locCol string, argOffset int) (string, []any) {
	args := []any{}
	next := func() int { return argOffset + len(args) + 1 }

	conds := []string{fmt.Sprintf("company_id = $%d", next())}
	args = append(args, q.CompanyID)
	conds = append(conds, fmt.Sprintf("%s = ANY($%d)", locCol, next()))
	args = append(args, q.LocationIDs)

	if len(q.ProductIDs) > 0 {
		conds = append(conds, fmt.Sprintf("product_id = ANY($%d)", next()))
		args = append(args, q.ProductIDs)
	}
	if len(q.ShipmentIDs) > 0 {
		conds = append(conds, fmt.Sprintf("shipment_id = ANY($%d)", next()))
		args = append(args, q.ShipmentIDs)
	}

	clauses := make([]string, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		if c.OutboundOnly && locCol == "to_location_id" {
			continue
		}
		parts := []string{fmt.Sprintf("state = ANY($%d)", next())}
		args = append(args, stateStrings(c.States))
		if c.DateMin != nil {
			op := ">="
			if c.MinExclusive {
				op = ">"
			}
			parts = append(parts, fmt.Sprintf("COALESCE(effective_date, planned_date) %s $%d", op, next()))
			args = append(args, *c.DateMin)
		}
		if c.DateMax != nil {
			parts = append(parts, fmt.Sprintf("COALESCE(effective_date, planned_date) <= $%d", next()))
			args = append(args, *c.DateMax)
		}
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	if len(clauses) > 0 {
		conds = append(conds, "("+strings.Join(clauses, " OR ")+")")
	}
	return strings.Join(conds, " AND "), args
}

// LockCandidates locks every move row touching the candidate locations and
// products before availability is read. NOWAIT surfaces contention as
// ErrLockNotAvailable instead of blocking a batch job indefinitely.
func (r *moveRepo) LockCandidates(ctx context.Context, companyID uuid.UUID, locationIDs, productIDs []uuid.UUID) error {
	query := `
		SELECT id FROM stock_move
		WHERE company_id = $1
			AND (from_location_id = ANY($2) OR to_location_id = ANY($2))
			AND product_id = ANY($3)
		FOR UPDATE NOWAIT
	`
	rows, err := r.db.Query(ctx, query, companyID, locationIDs, productIDs)
	if err != nil {
		return fmt.Errorf("lock candidate moves: %w", mapLockErr(err))
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("lock candidate moves: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock candidate moves: %w", mapLockErr(err))
	}
	return nil
}

// LockTable takes an exclusive lock on the move table so no move can be
// inserted behind a period boundary while a snapshot is computed.
func (r *moveRepo) LockTable(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `LOCK TABLE stock_move IN EXCLUSIVE MODE NOWAIT`); err != nil {
		return fmt.Errorf("lock stock move table: %w", mapLockErr(err))
	}
	return nil
}

func (r *moveRepo) HasAssignedBefore(ctx context.Context, companyID uuid.UUID, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stock_move
			WHERE company_id = $1 AND state = 'assigned'
				AND COALESCE(effective_date, planned_date) <= $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, companyID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("check assigned moves: %w", err)
	}
	return exists, nil
}

func (r *moveRepo) DraftDue(ctx context.Context, companyID uuid.UUID, date time.Time, limit int) ([]*models.StockMove, error) {
	query := `
		SELECT ` + moveColumns + `
		FROM stock_move
		WHERE company_id = $1 AND state = 'draft' AND planned_date <= $2
		ORDER BY planned_date, created_at, id
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, companyID, date, limit)
	if err != nil {
		return nil, fmt.Errorf("list due draft moves: %w", err)
	}
	defer rows.Close()

	var moves []*models.StockMove
	for rows.Next() {
		move, err := r.scanMove(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock move: %w", err)
		}
		moves = append(moves, move)
	}
	return moves, rows.Err()
}

func stateStrings(states []models.MoveState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
