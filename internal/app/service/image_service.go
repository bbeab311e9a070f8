package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// ImageInput is one general image of a replace batch. Rows are stored in
// ascending Order; equal orders keep their submitted position.
type ImageInput struct {
	URL   string `json:"url"`
	Order int    `json:"order"`
}

type ImageService interface {
	SetGeneralImages(ctx context.Context, actor model.Actor, productID uint, images []ImageInput) ([]model.ProductImage, error)
	SetVariantImage(ctx context.Context, actor model.Actor, productID, variantID uint, url string) (*model.ProductImage, error)
	PrimaryImage(ctx context.Context, productID uint) (*string, error)
	ListImages(ctx context.Context, productID uint, variantID *uint) ([]model.ProductImage, error)
}

type imageService struct {
	repos CatalogRepositories
	opts  Options
}

func NewImageService(repos CatalogRepositories, opts Options) ImageService {
	return newImageService(repos, opts.withDefaults())
}

func newImageService(repos CatalogRepositories, opts Options) *imageService {
	return &imageService{repos: repos, opts: opts}
}

func (s *imageService) SetGeneralImages(ctx context.Context, actor model.Actor, productID uint, images []ImageInput) ([]model.ProductImage, error) {
	const entity, action = "product", "replace images of"

	if err := validateImages(images).err(entity, action); err != nil {
		return nil, err
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}
	if err := s.ensureProduct(ctx, productID, action); err != nil {
		return nil, err
	}

	release, err := s.opts.lock(ctx, entity, action, scopeGeneralImages(productID))
	if err != nil {
		return nil, err
	}
	defer release()

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	rows, err := s.replaceGeneral(wctx, productID, images)
	if err != nil {
		return nil, err
	}

	s.opts.Cache.InvalidatePrefix(wctx, productListCachePrefix)
	logger.Info("General images replaced", map[string]interface{}{
		"product_id": productID,
		"count":      len(rows),
		"user_id":    actor.UserID,
	})
	return rows, nil
}

func (s *imageService) SetVariantImage(ctx context.Context, actor model.Actor, productID, variantID uint, url string) (*model.ProductImage, error) {
	const entity, action = "variant", "set image of"

	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}

	variant, err := readWithRetry(ctx, s.opts, "find variant", func(ctx context.Context) (*model.ProductVariant, error) {
		return s.repos.Variants.FindByID(ctx, variantID)
	})
	if err != nil {
		return nil, notFoundOr(err, entity, variantID, ErrVariantNotFound, action)
	}
	if variant.ProductID != productID {
		invalid := apperrors.NewInvalid(entity, action,
			fmt.Sprintf("variant %d does not belong to product %d", variantID, productID))
		invalid.Code = apperrors.CatalogVariantNotInScope
		return nil, invalid
	}

	release, err := s.opts.lock(ctx, entity, action, scopeVariantImage(productID, variantID))
	if err != nil {
		return nil, err
	}
	defer release()

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	row, err := s.replaceVariantImage(wctx, productID, variantID, strings.TrimSpace(url))
	if err != nil {
		return nil, err
	}

	s.opts.Cache.InvalidatePrefix(wctx, productListCachePrefix)
	logger.Info("Variant image replaced", map[string]interface{}{
		"product_id": productID,
		"variant_id": variantID,
		"cleared":    row == nil,
		"user_id":    actor.UserID,
	})
	return row, nil
}

// PrimaryImage returns the primary general image, else the legacy single
// image of the product, else nil.
func (s *imageService) PrimaryImage(ctx context.Context, productID uint) (*string, error) {
	primary, err := readWithRetry(ctx, s.opts, "find primary image", func(ctx context.Context) (*model.ProductImage, error) {
		return s.repos.Images.FindPrimary(ctx, productID)
	})
	if err == nil {
		url := primary.ImageURL
		return &url, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, apperrors.Wrap(err, "product", "load primary image of")
	}

	product, err := s.findProduct(ctx, productID, "load primary image of")
	if err != nil {
		return nil, err
	}
	return normalized(product.ImageURL), nil
}

func (s *imageService) ListImages(ctx context.Context, productID uint, variantID *uint) ([]model.ProductImage, error) {
	const action = "list images of"

	if err := s.ensureProduct(ctx, productID, action); err != nil {
		return nil, err
	}

	images, err := readWithRetry(ctx, s.opts, "list images", func(ctx context.Context) ([]model.ProductImage, error) {
		if variantID != nil {
			return s.repos.Images.ListScope(ctx, repository.ImageScope{ProductID: productID, VariantID: variantID})
		}
		return s.repos.Images.ListByProduct(ctx, productID)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "product", action)
	}
	return images, nil
}

// replaceGeneral deletes and re-inserts the general scope. The caller holds
// the scope lock.
func (s *imageService) replaceGeneral(ctx context.Context, productID uint, images []ImageInput) ([]model.ProductImage, error) {
	removed, err := s.repos.Images.DeleteScope(ctx, repository.ImageScope{ProductID: productID})
	if err != nil {
		return nil, apperrors.Wrap(err, "product", "replace images of")
	}

	rows := buildGeneralImages(productID, images)
	if len(rows) == 0 {
		return rows, nil
	}
	if err := s.repos.Images.CreateBatch(ctx, rows); err != nil {
		logger.Error("General image insert failed after delete", err, map[string]interface{}{
			"product_id": productID,
			"removed":    removed,
		})
		return nil, apperrors.NewPartialReplace("product", scopeGeneralImages(productID), "images", err)
	}
	return rows, nil
}

// replaceVariantImage keeps exactly one non-primary row for the pair and
// mirrors its URL onto the variant. An empty url clears both. Any failure
// after the delete is a partial replace of the pair's scope.
func (s *imageService) replaceVariantImage(ctx context.Context, productID, variantID uint, url string) (*model.ProductImage, error) {
	scope := scopeVariantImage(productID, variantID)

	if _, err := s.repos.Images.DeleteScope(ctx, repository.ImageScope{ProductID: productID, VariantID: &variantID}); err != nil {
		return nil, apperrors.Wrap(err, "variant", "set image of")
	}

	if url == "" {
		if err := s.repos.Variants.UpdateImageURL(ctx, variantID, nil); err != nil {
			logger.Error("Variant image mirror not cleared after delete", err, map[string]interface{}{
				"product_id": productID,
				"variant_id": variantID,
			})
			return nil, apperrors.NewPartialReplace("variant", scope, "image", err)
		}
		return nil, nil
	}

	vid := variantID
	rows := []model.ProductImage{{
		ProductID: productID,
		ImageURL:  url,
		VariantID: &vid,
		IsPrimary: false,
	}}
	if err := s.repos.Images.CreateBatch(ctx, rows); err != nil {
		logger.Error("Variant image insert failed after delete", err, map[string]interface{}{
			"product_id": productID,
			"variant_id": variantID,
		})
		// the scope is empty now; keep the mirror in step with it
		if clearErr := s.repos.Variants.UpdateImageURL(ctx, variantID, nil); clearErr != nil {
			logger.Warn("Variant image mirror not cleared", map[string]interface{}{
				"variant_id": variantID,
				"error":      clearErr.Error(),
			})
		}
		return nil, apperrors.NewPartialReplace("variant", scope, "image", err)
	}

	if err := s.repos.Variants.UpdateImageURL(ctx, variantID, &url); err != nil {
		logger.Error("Variant image mirror failed after insert", err, map[string]interface{}{
			"product_id": productID,
			"variant_id": variantID,
		})
		return nil, apperrors.NewPartialReplace("variant", scope, "image", err)
	}
	return &rows[0], nil
}

func (s *imageService) findProduct(ctx context.Context, productID uint, action string) (*model.Product, error) {
	product, err := readWithRetry(ctx, s.opts, "find product", func(ctx context.Context) (*model.Product, error) {
		return s.repos.Products.FindByID(ctx, productID)
	})
	if err != nil {
		return nil, notFoundOr(err, "product", productID, ErrProductNotFound, action)
	}
	return product, nil
}

func (s *imageService) ensureProduct(ctx context.Context, productID uint, action string) error {
	_, err := s.findProduct(ctx, productID, action)
	return err
}

func validateImages(images []ImageInput) fieldErrors {
	fields := fieldErrors{}
	for i, img := range images {
		if strings.TrimSpace(img.URL) == "" {
			fields.add(fmt.Sprintf("images[%d].url", i), "is required")
		}
	}
	return fields
}

func buildGeneralImages(productID uint, images []ImageInput) []model.ProductImage {
	sorted := append([]ImageInput(nil), images...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	rows := make([]model.ProductImage, 0, len(sorted))
	for i, img := range sorted {
		rows = append(rows, model.ProductImage{
			ProductID:    productID,
			ImageURL:     strings.TrimSpace(img.URL),
			DisplayOrder: i,
			IsPrimary:    i == 0,
		})
	}
	return rows
}

// primaryImageURL resolves the primary image from preloaded images.
func primaryImageURL(product *model.Product) *string {
	for _, img := range product.Images {
		if img.VariantID == nil && img.IsPrimary {
			url := img.ImageURL
			return &url
		}
	}
	return normalized(product.ImageURL)
}
