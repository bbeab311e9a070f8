package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache stores JSON copies, like the redis cache does.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok || json.Unmarshal(data, dest) != nil {
		return false
	}
	c.hits++
	return true
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
}

func (c *memoryCache) InvalidatePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func TestProductService_ListCache(t *testing.T) {
	f := setupCatalogServiceTest(t)
	ctx := context.Background()

	cache := newMemoryCache()
	opts := f.opts
	opts.Cache = cache
	products := NewProductService(f.repos, NewSKUGuard(f.repos.Products, f.repos.Variants, opts), opts)
	catalog := NewCatalogService(f.repos, opts)

	_, err := products.CreateProduct(ctx, adminActor, tshirtInput())
	require.NoError(t, err)

	listed, err := products.ListProducts(ctx, ProductListOptions{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Zero(t, cache.hits)

	// a row written behind the service's back is not seen until invalidation
	require.NoError(t, f.db.Create(&model.Product{Name: "Mug", SKU: "MG-01", Price: 8, SourceType: model.SourceExternal, IsActive: true}).Error)

	listed, err = products.ListProducts(ctx, ProductListOptions{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	assert.Equal(t, 1, cache.hits)

	t.Run("Product writes invalidate", func(t *testing.T) {
		_, err := products.CreateProduct(ctx, adminActor, ProductInput{Name: "Cap", SKU: "CP-01", Price: 15})
		require.NoError(t, err)

		listed, err := products.ListProducts(ctx, ProductListOptions{})
		require.NoError(t, err)
		assert.Len(t, listed, 3)
	})

	t.Run("Catalog writes invalidate", func(t *testing.T) {
		_, err := products.ListProducts(ctx, ProductListOptions{})
		require.NoError(t, err)
		require.NotEmpty(t, cache.entries)

		_, err = catalog.UpsertSection(ctx, adminActor, SectionInput{Name: "Clothing"})
		require.NoError(t, err)
		assert.Empty(t, cache.entries)
	})

	t.Run("Derived fields are recomputed on cache hits", func(t *testing.T) {
		_, err := products.ListProducts(ctx, ProductListOptions{})
		require.NoError(t, err)

		listed, err := products.ListProducts(ctx, ProductListOptions{})
		require.NoError(t, err)
		for _, p := range listed {
			assert.Equal(t, p.StockQuantity, p.DisplayStock, p.SKU)
		}
	})
}
