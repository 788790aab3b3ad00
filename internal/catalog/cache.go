// Package catalog serves the sellable product list and per-product modifier
// groups from a short-lived in-memory cache in front of the store.
package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"backoffice/internal/models"
)

const DefaultTTL = 5 * time.Minute

// ErrProductNotFound is returned for lookups of unknown external product ids.
var ErrProductNotFound = errors.New("catalog: product not found")

// Repository reads catalog documents.
type Repository interface {
	ListPosProducts(ctx context.Context) ([]models.PosProduct, error)
	// FindProductModifiers reports found=false when the product has no
	// modifier document.
	FindProductModifiers(ctx context.Context, externalProductID string) (models.ProductModifiers, bool, error)
}

// Deps wires a Cache.
type Deps struct {
	Repository Repository
	TTL        time.Duration
	Clock      func() time.Time
	Logger     *zap.Logger
}

type productsEntry struct {
	products []models.PosProduct
	expires  time.Time
}

type modifiersEntry struct {
	groups  []models.ModifierGroup
	expires time.Time
}

// Cache is safe for concurrent use. Concurrent misses for the same key
// share one store read.
type Cache struct {
	repo   Repository
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu        sync.RWMutex
	products  *productsEntry
	modifiers map[string]modifiersEntry

	loads singleflight.Group
}

func NewCache(deps Deps) *Cache {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		repo:      deps.Repository,
		ttl:       ttl,
		now:       clock,
		logger:    logger,
		modifiers: make(map[string]modifiersEntry),
	}
}

// Products returns the active sellable products, favourites first.
func (c *Cache) Products(ctx context.Context) ([]models.PosProduct, error) {
	if products, ok := c.cachedProducts(); ok {
		return products, nil
	}

	v, err, _ := c.loads.Do("products", func() (any, error) {
		if products, ok := c.cachedProducts(); ok {
			return products, nil
		}
		products, err := c.repo.ListPosProducts(ctx)
		if err != nil {
			return nil, err
		}
		active := make([]models.PosProduct, 0, len(products))
		for _, p := range products {
			if p.IsActive {
				active = append(active, p)
			}
		}
		sortProducts(active)

		c.mu.Lock()
		c.products = &productsEntry{products: active, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		c.logger.Debug("catalog products loaded", zap.Int("count", len(active)))
		return active, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneProducts(v.([]models.PosProduct)), nil
}

// ProductByExternalID finds an active product in the cached list.
func (c *Cache) ProductByExternalID(ctx context.Context, externalProductID string) (models.PosProduct, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return models.PosProduct{}, err
	}
	for _, p := range products {
		if p.ExternalProductID == externalProductID {
			return p, nil
		}
	}
	return models.PosProduct{}, ErrProductNotFound
}

// ProductModifiers returns the modifier groups of a product. A product
// without a modifier document yields an empty slice.
func (c *Cache) ProductModifiers(ctx context.Context, externalProductID string) ([]models.ModifierGroup, error) {
	key := strings.TrimSpace(externalProductID)
	if key == "" {
		return nil, ErrProductNotFound
	}
	if groups, ok := c.cachedModifiers(key); ok {
		return groups, nil
	}

	v, err, _ := c.loads.Do("modifiers:"+key, func() (any, error) {
		if groups, ok := c.cachedModifiers(key); ok {
			return groups, nil
		}
		doc, found, err := c.repo.FindProductModifiers(ctx, key)
		if err != nil {
			return nil, err
		}
		groups := []models.ModifierGroup{}
		if found {
			groups = doc.Groups
		}

		c.mu.Lock()
		c.modifiers[key] = modifiersEntry{groups: groups, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return groups, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneGroups(v.([]models.ModifierGroup)), nil
}

// Invalidate drops every cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.modifiers = make(map[string]modifiersEntry)
}

func (c *Cache) cachedProducts() ([]models.PosProduct, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.products == nil || !c.now().Before(c.products.expires) {
		return nil, false
	}
	return cloneProducts(c.products.products), true
}

func (c *Cache) cachedModifiers(key string) ([]models.ModifierGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.modifiers[key]
	if !ok || !c.now().Before(entry.expires) {
		return nil, false
	}
	return cloneGroups(entry.groups), true
}
