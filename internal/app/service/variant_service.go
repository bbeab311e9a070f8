package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// VariantDraft is one variant of a replace batch. Position in the batch
// becomes display_order.
type VariantDraft struct {
	Color         *string  `json:"color" validate:"omitempty,max=50"`
	Size          *string  `json:"size" validate:"omitempty,max=50"`
	SizeUnit      *string  `json:"size_unit" validate:"omitempty,max=20"`
	Material      *string  `json:"material" validate:"omitempty,max=100"`
	Price         *float64 `json:"price" validate:"omitempty,gt=0"`
	StockQuantity int      `json:"stock_quantity" validate:"gte=0"`
	SKU           *string  `json:"sku" validate:"omitempty,max=100"`
	ImageURL      *string  `json:"image_url"`
	IsActive      *bool    `json:"is_active"`  // nil means active
	IsDefault     *bool    `json:"is_default"` // first true wins, else the first draft
}

type VariantService interface {
	ReplaceVariants(ctx context.Context, actor model.Actor, productID uint, drafts []VariantDraft) ([]model.ProductVariant, error)
}

type variantService struct {
	repos CatalogRepositories
	guard SKUGuard
	opts  Options
}

func NewVariantService(repos CatalogRepositories, guard SKUGuard, opts Options) VariantService {
	return newVariantService(repos, guard, opts.withDefaults())
}

func newVariantService(repos CatalogRepositories, guard SKUGuard, opts Options) *variantService {
	return &variantService{repos: repos, guard: guard, opts: opts}
}

// ReplaceVariants deletes every variant of the product and inserts drafts in
// their place. Replaying the same drafts converges to the same rows.
func (s *variantService) ReplaceVariants(ctx context.Context, actor model.Actor, productID uint, drafts []VariantDraft) ([]model.ProductVariant, error) {
	const entity, action = "product", "replace variants of"

	if err := validateDrafts(drafts, "").err(entity, action); err != nil {
		return nil, err
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}

	product, err := readWithRetry(ctx, s.opts, "find product", func(ctx context.Context) (*model.Product, error) {
		return s.repos.Products.FindByID(ctx, productID)
	})
	if err != nil {
		return nil, notFoundOr(err, entity, productID, ErrProductNotFound, action)
	}
	if err := validateDrafts(drafts, product.SKU).err(entity, action); err != nil {
		return nil, err
	}

	// The guard fails open; the variant SKU index stays authoritative.
	if err := checkVariantSKUs(ctx, s.guard, entity, action, drafts, &productID); err != nil {
		return nil, err
	}

	release, err := s.opts.lock(ctx, entity, action, scopeVariants(productID))
	if err != nil {
		return nil, err
	}
	defer release()

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	variants, err := s.replace(wctx, productID, drafts)
	if err != nil {
		return nil, err
	}

	s.opts.Cache.InvalidatePrefix(wctx, productListCachePrefix)
	logger.Info("Variants replaced", map[string]interface{}{
		"product_id": productID,
		"count":      len(variants),
		"user_id":    actor.UserID,
	})
	return variants, nil
}

// replace runs the delete-then-insert sequence. The caller holds the
// variants scope lock.
func (s *variantService) replace(ctx context.Context, productID uint, drafts []VariantDraft) ([]model.ProductVariant, error) {
	const entity, action = "product", "replace variants of"

	// image rows of the old variants would point at ids that no longer exist
	prunedImages, err := s.repos.Images.DeleteVariantImages(ctx, productID)
	if err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}
	removed, err := s.repos.Variants.DeleteByProduct(ctx, productID)
	if err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}

	variants := buildVariants(productID, drafts)
	if len(variants) == 0 {
		return variants, nil
	}

	if err := s.repos.Variants.CreateBatch(ctx, variants); err != nil {
		logger.Error("Variant insert failed after delete", err, map[string]interface{}{
			"product_id":     productID,
			"removed":        removed,
			"pruned_images":  prunedImages,
			"attempted_rows": len(variants),
		})
		if removed == 0 && prunedImages == 0 {
			return nil, skuWriteError(err, entity, action)
		}
		partial := apperrors.NewPartialReplace(entity, scopeVariants(productID), "variants", err)
		if apperrors.IsDuplicateKey(err) {
			partial.Fields = map[string]string{"sku": "is already used by another product or variant"}
		}
		return nil, partial
	}

	var images []model.ProductImage
	for i := range variants {
		if variants[i].ImageURL == nil {
			continue
		}
		vid := variants[i].ID
		images = append(images, model.ProductImage{
			ProductID: productID,
			ImageURL:  *variants[i].ImageURL,
			VariantID: &vid,
			IsPrimary: false,
		})
	}
	if len(images) > 0 {
		if err := s.repos.Images.CreateBatch(ctx, images); err != nil {
			logger.Error("Variant image insert failed after variant replace", err, map[string]interface{}{
				"product_id": productID,
			})
			return nil, apperrors.NewPartialReplace(entity, scopeVariants(productID), "variant images", err)
		}
	}
	return variants, nil
}

// validateDrafts checks a batch before anything is written. productSKU is
// skipped when empty.
func validateDrafts(drafts []VariantDraft, productSKU string) fieldErrors {
	fields := fieldErrors{}
	seen := make(map[string]int, len(drafts))

	for i, d := range drafts {
		prefix := fmt.Sprintf("variants[%d]", i)

		if err := validate.Struct(d); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fields.add(prefix+"."+fieldPath(fe), describeViolation(fe))
				}
			} else {
				fields.add(prefix, err.Error())
			}
		}

		if trimmed(d.Color) == "" && trimmed(d.Size) == "" {
			fields.add(prefix, "needs a color or a size")
		}

		sku := trimmed(d.SKU)
		if sku == "" {
			continue
		}
		if j, dup := seen[sku]; dup {
			fields.add(prefix+".sku", fmt.Sprintf("duplicates variants[%d].sku", j))
		} else {
			seen[sku] = i
		}
		if productSKU != "" && sku == productSKU {
			fields.add(prefix+".sku", "must differ from the product sku")
		}
	}
	return fields
}

// checkVariantSKUs stops the write when any draft SKU is claimed elsewhere.
func checkVariantSKUs(ctx context.Context, guard SKUGuard, entity, action string, drafts []VariantDraft, excludeProductID *uint) error {
	for i, d := range drafts {
		sku := trimmed(d.SKU)
		if sku == "" || guard.IsSkuAvailable(ctx, sku, excludeProductID) {
			continue
		}
		conflict := apperrors.NewConflict(apperrors.CatalogSKUInUse, entity, action,
			fmt.Sprintf("SKU %q is already in use", sku), nil)
		conflict.Fields = map[string]string{fmt.Sprintf("variants[%d].sku", i): "is already in use"}
		return conflict
	}
	return nil
}

// skuWriteError turns a unique index violation on write into the SKU
// ConflictError and classifies anything else.
func skuWriteError(err error, entity, action string) error {
	if apperrors.IsDuplicateKey(err) {
		return apperrors.NewConflict(apperrors.CatalogSKUInUse, entity, action,
			"the SKU was claimed by another product or variant", err)
	}
	return apperrors.Wrap(err, entity, action)
}
