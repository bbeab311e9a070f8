package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type VariantRepository interface {
	ListByProduct(ctx context.Context, productID uint) ([]model.ProductVariant, error)
	FindByID(ctx context.Context, id uint) (*model.ProductVariant, error)
	DeleteByProduct(ctx context.Context, productID uint) (int64, error)
	CreateBatch(ctx context.Context, variants []model.ProductVariant) error
	UpdateImageURL(ctx context.Context, variantID uint, imageURL *string) error
	SKUTaken(ctx context.Context, sku string, excludeProductID *uint) (bool, error)
}

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) ListByProduct(ctx context.Context, productID uint) ([]model.ProductVariant, error) {
	logger.Debug("Listing variants by product", map[string]interface{}{
		"product_id": productID,
	})

	var variants []model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order ASC").Order("id ASC").
		Find(&variants).Error
	if err != nil {
		logger.Error("Failed to list variants", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return variants, nil
}

func (r *variantRepository) FindByID(ctx context.Context, id uint) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, id).Error; err != nil {
		logger.Error("Failed to find variant by ID", err, map[string]interface{}{
			"variant_id": id,
		})
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepository) DeleteByProduct(ctx context.Context, productID uint) (int64, error) {
	logger.Debug("Deleting variants of product", map[string]interface{}{
		"product_id": productID,
	})

	result := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&model.ProductVariant{})
	if result.Error != nil {
		logger.Error("Failed to delete variants", result.Error, map[string]interface{}{
			"product_id": productID,
		})
		return 0, result.Error
	}

	logger.Debug("Variants deleted", map[string]interface{}{
		"product_id": productID,
		"count":      result.RowsAffected,
	})
	return result.RowsAffected, nil
}

// CreateBatch inserts all variants in one statement.
func (r *variantRepository) CreateBatch(ctx context.Context, variants []model.ProductVariant) error {
	if len(variants) == 0 {
		return nil
	}

	logger.Debug("Inserting variants", map[string]interface{}{
		"product_id": variants[0].ProductID,
		"count":      len(variants),
	})

	if err := r.db.WithContext(ctx).Create(&variants).Error; err != nil {
		logger.Error("Failed to insert variants", err, map[string]interface{}{
			"product_id": variants[0].ProductID,
			"count":      len(variants),
		})
		return err
	}
	return nil
}

func (r *variantRepository) UpdateImageURL(ctx context.Context, variantID uint, imageURL *string) error {
	result := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ?", variantID).
		Update("image_url", imageURL)
	if result.Error != nil {
		logger.Error("Failed to update variant image URL", result.Error, map[string]interface{}{
			"variant_id": variantID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SKUTaken reports whether a variant of another product (or any variant when
// excludeProductID is nil) uses the exact sku.
func (r *variantRepository) SKUTaken(ctx context.Context, sku string, excludeProductID *uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.ProductVariant{}).Where("sku = ?", sku)
	if excludeProductID != nil {
		query = query.Where("product_id <> ?", *excludeProductID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		logger.Error("Failed to check variant SKU", err, map[string]interface{}{
			"sku": sku,
		})
		return false, err
	}
	return count > 0, nil
}
