package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type SourceType string // where stock physically comes from

const (
	SourceWarehouse SourceType = "warehouse" // held locally, stock gates purchase
	SourceExternal  SourceType = "external"  // bought on demand, always orderable
)

func ParseSourceType(s string) (SourceType, error) {
	switch t := SourceType(s); t {
	case SourceWarehouse, SourceExternal:
		return t, nil
	default:
		return "", fmt.Errorf("unknown source type %q", s)
	}
}

type Product struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                                                                   // product ID
	Name               string         `gorm:"not null" json:"name"`                                                                                   // display name
	SKU                string         `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_products_sku,where:deleted_at IS NULL" json:"sku"` // globally unique, case-sensitive
	Description        *string        `gorm:"type:text" json:"description"`                                                                           // optional long text
	Price              float64        `gorm:"not null" json:"price"`                                                                                  // selling price
	OriginalPrice      *float64       `json:"original_price"`                                                                                         // pre-discount price
	DiscountPercentage *int           `json:"discount_percentage"`                                                                                    // 0-100
	CategoryID         *uint          `gorm:"index" json:"category_id"`                                                                               // weak reference, null once the category is deleted
	SourceType         SourceType     `gorm:"type:varchar(20);not null" json:"source_type"`                                                           // warehouse or external
	StockQuantity      int            `gorm:"not null" json:"stock_quantity"`                                                                         // used only when no active variant exists
	SoldCount          int            `gorm:"not null" json:"sold_count"`                                                                             // lifetime units sold
	IsLimitedTimeOffer bool           `gorm:"not null" json:"is_limited_time_offer"`                                                                  // offer window applies
	OfferStartDate     *time.Time     `json:"offer_start_date"`                                                                                       // offer window start
	OfferDurationDays  *int           `json:"offer_duration_days"`                                                                                    // offer window length
	IsActive           bool           `gorm:"not null" json:"is_active"`                                                                              // listed on the storefront
	ImageURL           *string        `json:"image_url"`                                                                                              // legacy single image
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Category *Category        `gorm:"foreignKey:CategoryID" json:"category"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Images   []ProductImage   `gorm:"foreignKey:ProductID" json:"images,omitempty"`

	// Derived on read
	VariantCount    int        `gorm:"-" json:"variant_count"`
	PrimaryImageURL *string    `gorm:"-" json:"primary_image_url"`
	DisplayStock    int        `gorm:"-" json:"display_stock"`
	OfferExpiresAt  *time.Time `gorm:"-" json:"offer_expires_at"`
	IsOfferActive   bool       `gorm:"-" json:"is_offer_active"`
	HasDiscount     bool       `gorm:"-" json:"has_discount"`
}

func (Product) TableName() string {
	return "products"
}

// OfferExpiry returns start + duration days, or nil when the product has no
// complete offer window.
func (p *Product) OfferExpiry() *time.Time {
	if !p.IsLimitedTimeOffer || p.OfferStartDate == nil || p.OfferDurationDays == nil || *p.OfferDurationDays <= 0 {
		return nil
	}
	expires := p.OfferStartDate.AddDate(0, 0, *p.OfferDurationDays)
	return &expires
}

// OfferActiveAt reports whether now falls inside the offer window.
func (p *Product) OfferActiveAt(now time.Time) bool {
	expires := p.OfferExpiry()
	if expires == nil {
		return false
	}
	return !now.Before(*p.OfferStartDate) && now.Before(*expires)
}

// ProductVariant rows are replaced as a full set on every product edit, so
// their IDs change across edits.
type ProductVariant struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                                         // variant ID
	ProductID     uint      `gorm:"not null;index" json:"product_id"`                                             // owning product
	VariantName   string    `gorm:"not null" json:"variant_name"`                                                 // "{color} - {size}"
	Color         *string   `json:"color"`                                                                        // distinguishing attribute
	Size          *string   `json:"size"`                                                                         // distinguishing attribute
	SizeUnit      *string   `gorm:"type:varchar(20)" json:"size_unit"`                                            // e.g. "EU"
	Material      *string   `json:"material"`                                                                     // informational
	Price         *float64  `json:"price"`                                                                        // overrides product price when set
	StockQuantity int       `gorm:"not null" json:"stock_quantity"`                                               // authoritative when active
	SKU           *string   `gorm:"column:sku;type:varchar(100);uniqueIndex:idx_product_variants_sku" json:"sku"` // optional, unique when present
	ImageURL      *string   `json:"image_url"`                                                                    // mirror of the variant image row
	IsActive      bool      `gorm:"not null" json:"is_active"`                                                    // selectable on the storefront
	IsDefault     bool      `gorm:"not null" json:"is_default"`                                                   // exactly one per product
	DisplayOrder  int       `gorm:"not null" json:"display_order"`                                                // insertion order
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}

// ProductImage with a nil VariantID is a general image.
type ProductImage struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	ProductID    uint      `gorm:"not null;index:idx_product_images_scope" json:"product_id"`
	ImageURL     string    `gorm:"not null" json:"image_url"`
	VariantID    *uint     `gorm:"index:idx_product_images_scope" json:"variant_id"` // weak reference
	DisplayOrder int       `gorm:"not null" json:"display_order"`
	IsPrimary    bool      `gorm:"not null" json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ProductImage) TableName() string {
	return "product_images"
}
