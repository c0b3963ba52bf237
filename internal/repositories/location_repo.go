package repositories

import (
	"context"
	"fmt"
	"sort"

	"stockd/internal/models"

	"github.com/google/uuid"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Location, error)
	Update(ctx context.Context, location *models.Location) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Location, error)
	// Subtree returns the given roots plus all their descendants, parents
	// before children, siblings ordered by name then id. The order is the
	// stable candidate priority used by assignment.
	Subtree(ctx context.Context, companyID uuid.UUID, rootIDs []uuid.UUID) ([]*models.Location, error)
	// ListExcludingTypes returns every location whose type is not in the
	// given set; used by period closing to enumerate snapshot targets.
	ListExcludingTypes(ctx context.Context, companyID uuid.UUID, types []models.LocationType) ([]*models.Location, error)
}

type locationRepo struct {
	db Querier
}

func NewLocationRepo(db Querier) LocationRepository {
	return &locationRepo{db: db}
}

const locationColumns = `id, company_id, name, code, type, parent_id, flat_childs, created_at, updated_at`

func (r *locationRepo) Create(ctx context.Context, location *models.Location) error {
	query := `
		INSERT INTO stock_location (id, company_id, name, code, type, parent_id, flat_childs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		location.ID, location.CompanyID, location.Name, location.Code,
		location.Type, location.ParentID, location.FlatChilds)
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

func (r *locationRepo) scanLocation(row interface{ Scan(...any) error }) (*models.Location, error) {
	loc := &models.Location{}
	err := row.Scan(&loc.ID, &loc.CompanyID, &loc.Name, &loc.Code, &loc.Type,
		&loc.ParentID, &loc.FlatChilds, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (r *locationRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM stock_location WHERE company_id = $1 AND id = $2`
	loc, err := r.scanLocation(r.db.QueryRow(ctx, query, companyID, id))
	if err != nil {
		return nil, fmt.Errorf("get location: %w", mapNotFound(err))
	}
	return loc, nil
}

func (r *locationRepo) Update(ctx context.Context, location *models.Location) error {
	query := `
		UPDATE stock_location
		SET name = $1, code = $2, type = $3, parent_id = $4, flat_childs = $5, updated_at = NOW()
		WHERE company_id = $6 AND id = $7
	`
	_, err := r.db.Exec(ctx, query,
		location.Name, location.Code, location.Type, location.ParentID,
		location.FlatChilds, location.CompanyID, location.ID)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

func (r *locationRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	query := `DELETE FROM stock_location WHERE company_id = $1 AND id = $2`
	if _, err := r.db.Exec(ctx, query, companyID, id); err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}

func (r *locationRepo) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Location, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM stock_location
		WHERE company_id = $1
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`
	return r.queryLocations(ctx, query, companyID, limit, offset)
}

func (r *locationRepo) Subtree(ctx context.Context, companyID uuid.UUID, rootIDs []uuid.UUID) ([]*models.Location, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT ` + locationColumns + `, 0 AS depth
			FROM stock_location
			WHERE company_id = $1 AND id = ANY($2)
			UNION ALL
			SELECT l.id, l.company_id, l.name, l.code, l.type, l.parent_id, l.flat_childs,
				l.created_at, l.updated_at, t.depth + 1
			FROM stock_location l
			JOIN tree t ON l.parent_id = t.id
		)
		SELECT DISTINCT ON (id) ` + locationColumns + `, depth
		FROM tree
		ORDER BY id, depth
	`
	rows, err := r.db.Query(ctx, query, companyID, rootIDs)
	if err != nil {
		return nil, fmt.Errorf("location subtree: %w", err)
	}
	defer rows.Close()

	var all []depthLoc
	for rows.Next() {
		loc := &models.Location{}
		var depth int
		if err := rows.Scan(&loc.ID, &loc.CompanyID, &loc.Name, &loc.Code, &loc.Type,
			&loc.ParentID, &loc.FlatChilds, &loc.CreatedAt, &loc.UpdatedAt, &depth); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		all = append(all, depthLoc{loc, depth})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Parents before children, stable sibling order by name then id.
	sortSubtree(all)
	locations := make([]*models.Location, len(all))
	for i, d := range all {
		locations[i] = d.loc
	}
	return locations, nil
}

func (r *locationRepo) ListExcludingTypes(ctx context.Context, companyID uuid.UUID, types []models.LocationType) ([]*models.Location, error) {
	typeStrings := make([]string, len(types))
	for i, t := range types {
		typeStrings[i] = string(t)
	}
	query := `
		SELECT ` + locationColumns + `
		FROM stock_location
		WHERE company_id = $1 AND NOT (type = ANY($2))
		ORDER BY name, id
	`
	rows, err := r.db.Query(ctx, query, companyID, typeStrings)
	if err != nil {
		return nil, fmt.Errorf("list locations by type: %w", err)
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		loc, err := r.scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

type depthLoc struct {
	loc   *models.Location
	depth int
}

// sortSubtree orders the recursive query result parents-first with a stable
// sibling order, which fixes the candidate priority seen by assignment.
func sortSubtree(nodes []depthLoc) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].depth != nodes[j].depth {
			return nodes[i].depth < nodes[j].depth
		}
		if nodes[i].loc.Name != nodes[j].loc.Name {
			return nodes[i].loc.Name < nodes[j].loc.Name
		}
		return nodes[i].loc.ID.String() < nodes[j].loc.ID.String()
	})
}

func (r *locationRepo) queryLocations(ctx context.Context, query string, args ...any) ([]*models.Location, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		loc, err := r.scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}
