package service

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
)

// EffectivePrice is the selected variant's price override, else the product price.
func EffectivePrice(product *model.Product, variant *model.ProductVariant) float64 {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	return product.Price
}

// EffectiveStock is the selected variant's stock, else the product's own stock.
func EffectiveStock(product *model.Product, variant *model.ProductVariant) int {
	if variant != nil {
		return variant.StockQuantity
	}
	return product.StockQuantity
}

// DisplayStock is the stock shown on listings. Once any active variant
// exists the product-level stock_quantity is no longer authoritative.
func DisplayStock(product *model.Product) int {
	total, active := 0, false
	for _, v := range product.Variants {
		if !v.IsActive {
			continue
		}
		active = true
		total += v.StockQuantity
	}
	if active {
		return total
	}
	return product.StockQuantity
}

// CanPurchase reports whether qty units can be ordered. External products
// are bought on demand and never gated by stock.
func CanPurchase(product *model.Product, variant *model.ProductVariant, qty int) bool {
	if qty <= 0 || !product.IsActive {
		return false
	}
	if variant != nil && !variant.IsActive {
		return false
	}
	if product.SourceType == model.SourceExternal {
		return true
	}
	if variant == nil && hasActiveVariant(product) {
		return DisplayStock(product) >= qty
	}
	return EffectiveStock(product, variant) >= qty
}

func hasActiveVariant(product *model.Product) bool {
	for _, v := range product.Variants {
		if v.IsActive {
			return true
		}
	}
	return false
}

// VariantName joins color and size with " - ", keeping only the present part
// when one is missing.
func VariantName(color, size *string) string {
	c, s := trimmed(color), trimmed(size)
	switch {
	case c != "" && s != "":
		return c + " - " + s
	case c != "":
		return c
	default:
		return s
	}
}

// defaultIndex returns the first draft that marks itself default, else 0.
func defaultIndex(drafts []VariantDraft) int {
	for i, d := range drafts {
		if d.IsDefault != nil && *d.IsDefault {
			return i
		}
	}
	return 0
}

// buildVariants turns validated drafts into rows: display_order follows the
// array position and exactly one row is default.
func buildVariants(productID uint, drafts []VariantDraft) []model.ProductVariant {
	def := defaultIndex(drafts)
	variants := make([]model.ProductVariant, 0, len(drafts))
	for i, d := range drafts {
		variants = append(variants, model.ProductVariant{
			ProductID:     productID,
			VariantName:   VariantName(d.Color, d.Size),
			Color:         normalized(d.Color),
			Size:          normalized(d.Size),
			SizeUnit:      normalized(d.SizeUnit),
			Material:      normalized(d.Material),
			Price:         d.Price,
			StockQuantity: d.StockQuantity,
			SKU:           normalized(d.SKU),
			ImageURL:      normalized(d.ImageURL),
			IsActive:      d.IsActive == nil || *d.IsActive,
			IsDefault:     i == def,
			DisplayOrder:  i,
		})
	}
	return variants
}

// variantSKUs returns the non-empty SKUs of drafts, trimmed.
func variantSKUs(drafts []VariantDraft) []string {
	skus := make([]string, 0, len(drafts))
	for _, d := range drafts {
		if sku := trimmed(d.SKU); sku != "" {
			skus = append(skus, sku)
		}
	}
	return skus
}
