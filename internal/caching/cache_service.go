package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockd/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CacheService fronts Redis for the read-mostly master data the aggregation
// engine touches on every request: products, units, and location subtrees.
// A nil result with a nil error is a cache miss.
type CacheService interface {
	GetProduct(ctx context.Context, companyID, productID uuid.UUID) (*models.Product, error)
	SetProduct(ctx context.Context, companyID uuid.UUID, product *models.Product, ttl time.Duration) error
	DeleteProduct(ctx context.Context, companyID, productID uuid.UUID) error

	GetUom(ctx context.Context, uomID uuid.UUID) (*models.UoM, error)
	SetUom(ctx context.Context, uom *models.UoM, ttl time.Duration) error

	GetSubtree(ctx context.Context, companyID, rootID uuid.UUID) ([]*models.Location, error)
	SetSubtree(ctx context.Context, companyID, rootID uuid.UUID, locations []*models.Location, ttl time.Duration) error
	InvalidateSubtrees(ctx context.Context, companyID uuid.UUID) error

	InvalidateCompany(ctx context.Context, companyID uuid.UUID) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func (r *redisCacheService) GetProduct(ctx context.Context, companyID, productID uuid.UUID) (*models.Product, error) {
	key := fmt.Sprintf("stockd:product:%s:%s", companyID, productID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *redisCacheService) SetProduct(ctx context.Context, companyID uuid.UUID, product *models.Product, ttl time.Duration) error {
	key := fmt.Sprintf("stockd:product:%s:%s", companyID, product.ID)
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteProduct(ctx context.Context, companyID, productID uuid.UUID) error {
	key := fmt.Sprintf("stockd:product:%s:%s", companyID, productID)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetUom(ctx context.Context, uomID uuid.UUID) (*models.UoM, error) {
	key := fmt.Sprintf("stockd:uom:%s", uomID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var uom models.UoM
	if err := json.Unmarshal(data, &uom); err != nil {
		return nil, err
	}
	return &uom, nil
}

func (r *redisCacheService) SetUom(ctx context.Context, uom *models.UoM, ttl time.Duration) error {
	key := fmt.Sprintf("stockd:uom:%s", uom.ID)
	data, err := json.Marshal(uom)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) GetSubtree(ctx context.Context, companyID, rootID uuid.UUID) ([]*models.Location, error) {
	key := fmt.Sprintf("stockd:subtree:%s:%s", companyID, rootID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var locations []*models.Location
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *redisCacheService) SetSubtree(ctx context.Context, companyID, rootID uuid.UUID, locations []*models.Location, ttl time.Duration) error {
	key := fmt.Sprintf("stockd:subtree:%s:%s", companyID, rootID)
	data, err := json.Marshal(locations)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// InvalidateSubtrees drops every cached subtree for the company. Any
// location edit can reshape an ancestor's subtree, so per-root
// invalidation is not worth the bookkeeping.
func (r *redisCacheService) InvalidateSubtrees(ctx context.Context, companyID uuid.UUID) error {
	return r.deletePattern(ctx, fmt.Sprintf("stockd:subtree:%s:*", companyID))
}

func (r *redisCacheService) InvalidateCompany(ctx context.Context, companyID uuid.UUID) error {
	return r.deletePattern(ctx, fmt.Sprintf("stockd:*:%s:*", companyID))
}

func (r *redisCacheService) deletePattern(ctx context.Context, pattern string) error {
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}
