package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
)

const (
	productListCachePrefix = "products:list:"

	defaultProductLimit = 50
	maxProductLimit     = 200
)

type ProductListOptions struct {
	CategoryID *uint
	SectionID  *uint
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

// ProductInput is the full edit form of a product. On update, nil Images or
// Variants leave that set untouched; a non-nil slice, even empty, replaces it.
type ProductInput struct {
	Name               string         `json:"name" validate:"required,max=200"`
	SKU                string         `json:"sku" validate:"required,max=100"`
	Description        *string        `json:"description"`
	Price              float64        `json:"price" validate:"gt=0"`
	OriginalPrice      *float64       `json:"original_price"`
	DiscountPercentage *int           `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
	CategoryID         *uint          `json:"category_id"`
	SourceType         string         `json:"source_type" validate:"omitempty,oneof=warehouse external"`
	StockQuantity      int            `json:"stock_quantity" validate:"gte=0"`
	IsLimitedTimeOffer bool           `json:"is_limited_time_offer"`
	OfferStartDate     *time.Time     `json:"offer_start_date"`
	OfferDurationDays  *int           `json:"offer_duration_days"`
	IsActive           *bool          `json:"is_active"`
	ImageURL           *string        `json:"image_url"`
	Images             []ImageInput   `json:"images"`
	Variants           []VariantDraft `json:"variants"`
}

type ProductService interface {
	ListProducts(ctx context.Context, opts ProductListOptions) ([]model.Product, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, actor model.Actor, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor model.Actor, id uint, input ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor model.Actor, id uint) error
	IsSkuAvailable(ctx context.Context, sku string, excludeProductID *uint) bool
}

type productService struct {
	repos    CatalogRepositories
	guard    SKUGuard
	images   *imageService
	variants *variantService
	opts     Options
}

func NewProductService(repos CatalogRepositories, guard SKUGuard, opts Options) ProductService {
	opts = opts.withDefaults()
	return &productService{
		repos:    repos,
		guard:    guard,
		images:   newImageService(repos, opts),
		variants: newVariantService(repos, guard, opts),
		opts:     opts,
	}
}

func (s *productService) ListProducts(ctx context.Context, opts ProductListOptions) ([]model.Product, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultProductLimit
	}
	if opts.Limit > maxProductLimit {
		opts.Limit = maxProductLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	opts.Search = strings.TrimSpace(opts.Search)

	logger.Debug("Listing products", map[string]interface{}{
		"category_id": opts.CategoryID,
		"section_id":  opts.SectionID,
		"active_only": opts.ActiveOnly,
		"search":      opts.Search,
		"limit":       opts.Limit,
		"offset":      opts.Offset,
	})

	key := productListCacheKey(opts)
	var products []model.Product
	if !s.opts.Cache.Get(ctx, key, &products) {
		var err error
		products, err = readWithRetry(ctx, s.opts, "list products", func(ctx context.Context) ([]model.Product, error) {
			return s.repos.Products.FindWithFilter(ctx, repository.ProductFilter{
				CategoryID: opts.CategoryID,
				SectionID:  opts.SectionID,
				ActiveOnly: opts.ActiveOnly,
				Search:     opts.Search,
				Limit:      opts.Limit,
				Offset:     opts.Offset,
			})
		})
		if err != nil {
			logger.Error("Failed to list products", err)
			return nil, apperrors.Wrap(err, "products", "list")
		}
		s.opts.Cache.Set(ctx, key, products)
	}

	now := s.opts.Now()
	for i := range products {
		decorate(&products[i], now)
	}

	logger.Info("Products listed", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.images.findProduct(ctx, id, "load")
	if err != nil {
		return nil, err
	}
	decorate(product, s.opts.Now())
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, actor model.Actor, input ProductInput) (*model.Product, error) {
	return s.save(ctx, actor, nil, input)
}

func (s *productService) UpdateProduct(ctx context.Context, actor model.Actor, id uint, input ProductInput) (*model.Product, error) {
	return s.save(ctx, actor, &id, input)
}

// save runs the product write path. Nothing is written until validation,
// authorization and the SKU checks have passed.
func (s *productService) save(ctx context.Context, actor model.Actor, id *uint, input ProductInput) (*model.Product, error) {
	const entity = "product"
	action := "create"
	if id != nil {
		action = "update"
	}

	if err := validateProductInput(&input, action); err != nil {
		return nil, err
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID, action); err != nil {
		return nil, err
	}

	// The guard fails open when the lookup itself fails, so an outage never
	// blocks editing; the unique indexes still reject a duplicate on write.
	if !s.guard.IsSkuAvailable(ctx, input.SKU, id) {
		conflict := apperrors.NewConflict(apperrors.CatalogSKUInUse, entity, action,
			fmt.Sprintf("SKU %q is already in use", input.SKU), nil)
		conflict.Fields = map[string]string{"sku": "is already in use"}
		return nil, conflict
	}
	if err := checkVariantSKUs(ctx, s.guard, entity, action, input.Variants, id); err != nil {
		return nil, err
	}

	product := &model.Product{IsActive: true, SourceType: model.SourceWarehouse}
	if id != nil {
		existing, err := s.images.findProduct(ctx, *id, action)
		if err != nil {
			return nil, err
		}
		product = existing
		product.Category = nil
		product.Variants = nil
		product.Images = nil
	}
	applyProductInput(product, input)

	var release func()
	if id != nil {
		var err error
		release, err = s.opts.lock(ctx, entity, action, scopeVariants(*id), scopeGeneralImages(*id))
		if err != nil {
			return nil, err
		}
		defer release()
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	var err error
	if id == nil {
		err = s.repos.Products.Create(wctx, product)
	} else {
		err = s.repos.Products.Update(wctx, product)
	}
	if err != nil {
		logger.Error("Failed to write product", err, map[string]interface{}{
			"sku":    product.SKU,
			"action": action,
		})
		return nil, skuWriteError(err, entity, action)
	}

	if err := s.writeChildren(wctx, product.ID, input); err != nil {
		if id == nil {
			return nil, s.undoCreate(wctx, product, err)
		}
		return nil, err
	}

	s.opts.Cache.InvalidatePrefix(wctx, productListCachePrefix)
	logger.Info("Product saved", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"action":     action,
		"user_id":    actor.UserID,
	})

	return s.GetProduct(ctx, product.ID)
}

func (s *productService) writeChildren(ctx context.Context, productID uint, input ProductInput) error {
	if input.Images != nil {
		if _, err := s.images.replaceGeneral(ctx, productID, input.Images); err != nil {
			return err
		}
	}
	if input.Variants != nil {
		if _, err := s.variants.replace(ctx, productID, input.Variants); err != nil {
			return err
		}
	}
	return nil
}

// undoCreate removes a product whose images or variants could not be
// written, so the create can be retried as is. When the removal fails too,
// the error names the product so the caller can finish it with an update.
func (s *productService) undoCreate(ctx context.Context, product *model.Product, cause error) error {
	const entity, action = "product", "create"

	if err := s.repos.Products.Purge(ctx, product.ID); err != nil {
		logger.Error("Failed to undo product create", err, map[string]interface{}{
			"product_id": product.ID,
			"sku":        product.SKU,
		})
		return apperrors.NewPartialReplace(entity, scopeProduct(product.ID), "images and variants", cause)
	}

	logger.Warn("Product create undone", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"error":      cause.Error(),
	})

	// the product no longer exists, so there is no half-replaced scope to report
	var appErr *apperrors.Error
	if errors.As(cause, &appErr) && appErr.Kind == apperrors.KindPartialReplace {
		conflict := skuWriteError(appErr.Err, entity, action)
		var c *apperrors.Error
		if errors.As(conflict, &c) && appErr.Fields != nil {
			c.Fields = appErr.Fields
		}
		return conflict
	}
	return apperrors.Wrap(cause, entity, action)
}

func (s *productService) DeleteProduct(ctx context.Context, actor model.Actor, id uint) error {
	const entity, action = "product", "delete"

	if err := requireStaff(actor, entity, action); err != nil {
		return err
	}
	if err := s.images.ensureProduct(ctx, id, action); err != nil {
		return err
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	if err := s.repos.Products.Delete(wctx, id); err != nil {
		return notFoundOr(err, entity, id, ErrProductNotFound, action)
	}

	s.opts.Cache.InvalidatePrefix(wctx, productListCachePrefix)
	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
		"user_id":    actor.UserID,
	})
	return nil
}

func (s *productService) IsSkuAvailable(ctx context.Context, sku string, excludeProductID *uint) bool {
	return s.guard.IsSkuAvailable(ctx, sku, excludeProductID)
}

func (s *productService) checkCategory(ctx context.Context, categoryID *uint, action string) error {
	if categoryID == nil {
		return nil
	}
	_, err := readWithRetry(ctx, s.opts, "find category", func(ctx context.Context) (*model.Category, error) {
		return s.repos.Categories.FindByID(ctx, *categoryID)
	})
	if err == nil {
		return nil
	}
	if apperrors.IsNotFound(err) {
		return apperrors.NewValidation("product", action, map[string]string{
			"category_id": "does not reference an existing category",
		})
	}
	return apperrors.Wrap(err, "product", action)
}

func validateProductInput(input *ProductInput, action string) error {
	const entity = "product"

	input.Name = strings.TrimSpace(input.Name)
	input.SKU = strings.TrimSpace(input.SKU)

	fields := fieldErrors{}
	if err := fields.merge(validateInput(entity, action, *input)); err != nil {
		return err
	}

	if input.OriginalPrice != nil && *input.OriginalPrice <= 0 {
		fields.add("original_price", "must be greater than 0")
	}
	if input.IsLimitedTimeOffer {
		if input.OfferStartDate == nil {
			fields.add("offer_start_date", "is required for a limited-time offer")
		}
		if input.OfferDurationDays == nil || *input.OfferDurationDays <= 0 {
			fields.add("offer_duration_days", "must be greater than 0 for a limited-time offer")
		}
	}
	for k, v := range validateImages(input.Images) {
		fields.add(k, v)
	}
	for k, v := range validateDrafts(input.Variants, input.SKU) {
		fields.add(k, v)
	}
	return fields.err(entity, action)
}

func applyProductInput(product *model.Product, input ProductInput) {
	product.Name = input.Name
	product.SKU = input.SKU
	product.Description = normalized(input.Description)
	product.Price = input.Price
	product.OriginalPrice = input.OriginalPrice
	product.DiscountPercentage = input.DiscountPercentage
	if product.DiscountPercentage == nil && input.OriginalPrice != nil {
		if pct, ok := util.DiscountPercent(*input.OriginalPrice, input.Price); ok {
			product.DiscountPercentage = &pct
		}
	}
	product.CategoryID = input.CategoryID
	if input.SourceType != "" {
		product.SourceType = model.SourceType(input.SourceType)
	}
	product.StockQuantity = input.StockQuantity
	product.IsLimitedTimeOffer = input.IsLimitedTimeOffer
	product.OfferStartDate = input.OfferStartDate
	product.OfferDurationDays = input.OfferDurationDays
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.ImageURL != nil {
		product.ImageURL = normalized(input.ImageURL)
	}
}

// decorate fills the read-only fields derived from preloaded relations.
func decorate(product *model.Product, now time.Time) {
	product.VariantCount = len(product.Variants)
	product.PrimaryImageURL = primaryImageURL(product)
	product.DisplayStock = DisplayStock(product)
	product.OfferExpiresAt = product.OfferExpiry()
	product.IsOfferActive = product.OfferActiveAt(now)
	product.HasDiscount = product.OriginalPrice != nil && *product.OriginalPrice > product.Price
}

func productListCacheKey(opts ProductListOptions) string {
	return fmt.Sprintf("%scat=%s:sec=%s:active=%t:q=%s:l=%d:o=%d",
		productListCachePrefix,
		uintKey(opts.CategoryID), uintKey(opts.SectionID),
		opts.ActiveOnly, opts.Search, opts.Limit, opts.Offset)
}

func uintKey(v *uint) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
