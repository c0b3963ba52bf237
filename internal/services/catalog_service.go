package services

import (
	"context"
	"time"

	"stockd/internal/caching"
	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/pkg/logger"

	"github.com/google/uuid"
)

const catalogCacheTTL = 10 * time.Minute

// CatalogService manages the master data the engines run against: products,
// units of measure, and the location tree. Reads go through the cache;
// writes invalidate it.
type CatalogService interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, companyID, id uuid.UUID) error
	ListProducts(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Product, error)

	CreateUom(ctx context.Context, uom *models.UoM) error
	GetUom(ctx context.Context, id uuid.UUID) (*models.UoM, error)
	ListUoms(ctx context.Context, limit, offset int) ([]*models.UoM, error)

	CreateLocation(ctx context.Context, location *models.Location) error
	GetLocation(ctx context.Context, companyID, id uuid.UUID) (*models.Location, error)
	UpdateLocation(ctx context.Context, location *models.Location) error
	DeleteLocation(ctx context.Context, companyID, id uuid.UUID) error
	ListLocations(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Location, error)
	Subtree(ctx context.Context, companyID, rootID uuid.UUID) ([]*models.Location, error)
}

type catalogService struct {
	repos repositories.Repos
	cache caching.CacheService
	log   *logger.Logger
}

func NewCatalogService(repos repositories.Repos, cache caching.CacheService, log *logger.Logger) CatalogService {
	return &catalogService{repos: repos, cache: cache, log: log}
}

func (s *catalogService) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return s.repos.Products.Create(ctx, product)
}

func (s *catalogService) GetProduct(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error) {
	if cached, err := s.cache.GetProduct(ctx, companyID, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("product cache read failed")
	}
	product, err := s.repos.Products.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetProduct(ctx, companyID, product, catalogCacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("product cache write failed")
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.repos.Products.Update(ctx, product); err != nil {
		return err
	}
	return s.cache.DeleteProduct(ctx, product.CompanyID, product.ID)
}

func (s *catalogService) DeleteProduct(ctx context.Context, companyID, id uuid.UUID) error {
	if err := s.repos.Products.Delete(ctx, companyID, id); err != nil {
		return err
	}
	return s.cache.DeleteProduct(ctx, companyID, id)
}

func (s *catalogService) ListProducts(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Product, error) {
	return s.repos.Products.List(ctx, companyID, limit, offset)
}

func (s *catalogService) CreateUom(ctx context.Context, uom *models.UoM) error {
	if uom.ID == uuid.Nil {
		uom.ID = uuid.New()
	}
	return s.repos.Uoms.Create(ctx, uom)
}

func (s *catalogService) GetUom(ctx context.Context, id uuid.UUID) (*models.UoM, error) {
	if cached, err := s.cache.GetUom(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("uom cache read failed")
	}
	uom, err := s.repos.Uoms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetUom(ctx, uom, catalogCacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("uom cache write failed")
	}
	return uom, nil
}

func (s *catalogService) ListUoms(ctx context.Context, limit, offset int) ([]*models.UoM, error) {
	return s.repos.Uoms.List(ctx, limit, offset)
}

func (s *catalogService) CreateLocation(ctx context.Context, location *models.Location) error {
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}
	if err := s.repos.Locations.Create(ctx, location); err != nil {
		return err
	}
	return s.cache.InvalidateSubtrees(ctx, location.CompanyID)
}

func (s *catalogService) GetLocation(ctx context.Context, companyID, id uuid.UUID) (*models.Location, error) {
	return s.repos.Locations.GetByID(ctx, companyID, id)
}

func (s *catalogService) UpdateLocation(ctx context.Context, location *models.Location) error {
	if err := s.repos.Locations.Update(ctx, location); err != nil {
		return err
	}
	return s.cache.InvalidateSubtrees(ctx, location.CompanyID)
}

func (s *catalogService) DeleteLocation(ctx context.Context, companyID, id uuid.UUID) error {
	if err := s.repos.Locations.Delete(ctx, companyID, id); err != nil {
		return err
	}
	return s.cache.InvalidateSubtrees(ctx, companyID)
}

func (s *catalogService) ListLocations(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Location, error) {
	return s.repos.Locations.List(ctx, companyID, limit, offset)
}

func (s *catalogService) Subtree(ctx context.Context, companyID, rootID uuid.UUID) ([]*models.Location, error) {
	if cached, err := s.cache.GetSubtree(ctx, companyID, rootID); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("subtree cache read failed")
	}
	locations, err := s.repos.Locations.Subtree(ctx, companyID, []uuid.UUID{rootID})
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetSubtree(ctx, companyID, rootID, locations, catalogCacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("subtree cache write failed")
	}
	return locations, nil
}
