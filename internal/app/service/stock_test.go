package service

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePriceAndStock(t *testing.T) {
	product := &model.Product{Price: 100, StockQuantity: 10}
	override := &model.ProductVariant{Price: floatPtr(120), StockQuantity: 3}
	inherit := &model.ProductVariant{StockQuantity: 0}

	assert.Equal(t, 100.0, EffectivePrice(product, nil))
	assert.Equal(t, 120.0, EffectivePrice(product, override))
	assert.Equal(t, 100.0, EffectivePrice(product, inherit))

	assert.Equal(t, 10, EffectiveStock(product, nil))
	assert.Equal(t, 3, EffectiveStock(product, override))
	assert.Equal(t, 0, EffectiveStock(product, inherit))
}

func TestDisplayStock(t *testing.T) {
	tests := []struct {
		name     string
		variants []model.ProductVariant
		want     int
	}{
		{name: "No variants uses product stock", want: 10},
		{
			name: "Active variants are authoritative",
			variants: []model.ProductVariant{
				{StockQuantity: 5, IsActive: true},
				{StockQuantity: 3, IsActive: true},
			},
			want: 8,
		},
		{
			name: "Inactive variants are ignored",
			variants: []model.ProductVariant{
				{StockQuantity: 5, IsActive: true},
				{StockQuantity: 100, IsActive: false},
			},
			want: 5,
		},
		{
			name:     "Only inactive variants falls back to product stock",
			variants: []model.ProductVariant{{StockQuantity: 4, IsActive: false}},
			want:     10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := &model.Product{StockQuantity: 10, Variants: tt.variants}
			assert.Equal(t, tt.want, DisplayStock(product))
		})
	}
}

func TestCanPurchase(t *testing.T) {
	warehouse := func(stock int, variants ...model.ProductVariant) *model.Product {
		return &model.Product{SourceType: model.SourceWarehouse, StockQuantity: stock, IsActive: true, Variants: variants}
	}
	external := &model.Product{SourceType: model.SourceExternal, StockQuantity: 0, IsActive: true}

	tests := []struct {
		name    string
		product *model.Product
		variant *model.ProductVariant
		qty     int
		want    bool
	}{
		{name: "Warehouse with stock", product: warehouse(5), qty: 5, want: true},
		{name: "Warehouse short of stock", product: warehouse(5), qty: 6, want: false},
		{name: "Warehouse with zero stock", product: warehouse(0), qty: 1, want: false},
		{name: "External ignores stock", product: external, qty: 50, want: true},
		{name: "Variant stock gates warehouse", product: warehouse(100), variant: &model.ProductVariant{StockQuantity: 1, IsActive: true}, qty: 2, want: false},
		{name: "External variant ignores stock", product: external, variant: &model.ProductVariant{StockQuantity: 0, IsActive: true}, qty: 2, want: true},
		{name: "Inactive variant", product: warehouse(10), variant: &model.ProductVariant{StockQuantity: 10}, qty: 1, want: false},
		{name: "No variant selected uses active variant total", product: warehouse(0, model.ProductVariant{StockQuantity: 2, IsActive: true}), qty: 2, want: true},
		{name: "Inactive product", product: &model.Product{SourceType: model.SourceExternal}, qty: 1, want: false},
		{name: "Zero quantity", product: warehouse(5), qty: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPurchase(tt.product, tt.variant, tt.qty))
		})
	}
}

func TestVariantName(t *testing.T) {
	tests := []struct {
		name  string
		color *string
		size  *string
		want  string
	}{
		{name: "Color and size", color: strPtr("Red"), size: strPtr("S"), want: "Red - S"},
		{name: "Color only", color: strPtr("Red"), want: "Red"},
		{name: "Size only", size: strPtr("XL"), want: "XL"},
		{name: "Trims parts", color: strPtr("  Navy "), size: strPtr(" M "), want: "Navy - M"},
		{name: "Blank color", color: strPtr("  "), size: strPtr("M"), want: "M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VariantName(tt.color, tt.size))
		})
	}
}

func TestBuildVariants_DefaultSelection(t *testing.T) {
	draft := func(isDefault *bool) VariantDraft {
		return VariantDraft{Color: strPtr("Red"), IsDefault: isDefault}
	}

	tests := []struct {
		name   string
		drafts []VariantDraft
		want   int
	}{
		{name: "No explicit default picks the first", drafts: []VariantDraft{draft(nil), draft(nil)}, want: 0},
		{name: "Explicit default wins", drafts: []VariantDraft{draft(nil), draft(boolPtr(true))}, want: 1},
		{name: "First explicit default wins", drafts: []VariantDraft{draft(nil), draft(boolPtr(true)), draft(boolPtr(true))}, want: 1},
		{name: "Explicit false on the first still falls back to it", drafts: []VariantDraft{draft(boolPtr(false)), draft(nil)}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variants := buildVariants(7, tt.drafts)
			defaults := 0
			for i, v := range variants {
				assert.Equal(t, i, v.DisplayOrder)
				assert.Equal(t, uint(7), v.ProductID)
				assert.True(t, v.IsActive)
				if v.IsDefault {
					defaults++
					assert.Equal(t, tt.want, i)
				}
			}
			assert.Equal(t, 1, defaults)
		})
	}
}
