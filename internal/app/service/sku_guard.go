package service

import (
	"context"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// SKUGuard is the pre-write uniqueness check. It is a fast path only: the
// unique indexes reject a racing write authoritatively.
type SKUGuard interface {
	IsSkuAvailable(ctx context.Context, sku string, excludeProductID *uint) bool
}

type skuGuard struct {
	products repository.ProductRepository
	variants repository.VariantRepository
	opts     Options
}

func NewSKUGuard(products repository.ProductRepository, variants repository.VariantRepository, opts Options) SKUGuard {
	return &skuGuard{products: products, variants: variants, opts: opts.withDefaults()}
}

// IsSkuAvailable reports whether sku is unclaimed by any product or variant
// outside excludeProductID. The match is exact and case-sensitive. If the
// lookup cannot complete the SKU is reported available.
func (g *skuGuard) IsSkuAvailable(ctx context.Context, sku string, excludeProductID *uint) bool {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return true
	}

	taken, err := readWithRetry(ctx, g.opts, "check product sku", func(ctx context.Context) (bool, error) {
		return g.products.SKUTaken(ctx, sku, excludeProductID)
	})
	if err == nil && !taken {
		taken, err = readWithRetry(ctx, g.opts, "check variant sku", func(ctx context.Context) (bool, error) {
			return g.variants.SKUTaken(ctx, sku, excludeProductID)
		})
	}
	if err != nil {
		logger.Warn("SKU availability check failed, treating as available", map[string]interface{}{
			"sku":                sku,
			"exclude_product_id": excludeProductID,
			"error":              err.Error(),
		})
		return true
	}
	return !taken
}
