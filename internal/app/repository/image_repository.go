package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// ImageScope addresses the images of one product. A nil VariantID is the
// general scope.
type ImageScope struct {
	ProductID uint
	VariantID *uint
}

func (s ImageScope) apply(db *gorm.DB) *gorm.DB {
	db = db.Where("product_id = ?", s.ProductID)
	if s.VariantID == nil {
		return db.Where("variant_id IS NULL")
	}
	return db.Where("variant_id = ?", *s.VariantID)
}

type ImageRepository interface {
	ListScope(ctx context.Context, scope ImageScope) ([]model.ProductImage, error)
	ListByProduct(ctx context.Context, productID uint) ([]model.ProductImage, error)
	FindPrimary(ctx context.Context, productID uint) (*model.ProductImage, error)
	DeleteScope(ctx context.Context, scope ImageScope) (int64, error)
	DeleteVariantImages(ctx context.Context, productID uint) (int64, error)
	CreateBatch(ctx context.Context, images []model.ProductImage) error
}

type imageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) ListScope(ctx context.Context, scope ImageScope) ([]model.ProductImage, error) {
	var images []model.ProductImage
	err := scope.apply(r.db.WithContext(ctx)).
		Order("display_order ASC").Order("id ASC").
		Find(&images).Error
	if err != nil {
		logger.Error("Failed to list images", err, map[string]interface{}{
			"product_id": scope.ProductID,
			"variant_id": scope.VariantID,
		})
		return nil, err
	}
	return images, nil
}

// ListByProduct returns general images first, then variant images.
func (r *imageRepository) ListByProduct(ctx context.Context, productID uint) ([]model.ProductImage, error) {
	var images []model.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("CASE WHEN variant_id IS NULL THEN 0 ELSE 1 END").
		Order("display_order ASC").Order("id ASC").
		Find(&images).Error
	if err != nil {
		logger.Error("Failed to list product images", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return images, nil
}

func (r *imageRepository) FindPrimary(ctx context.Context, productID uint) (*model.ProductImage, error) {
	var image model.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_id IS NULL AND is_primary = ?", productID, true).
		Order("display_order ASC").
		First(&image).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *imageRepository) DeleteScope(ctx context.Context, scope ImageScope) (int64, error) {
	logger.Debug("Deleting image scope", map[string]interface{}{
		"product_id": scope.ProductID,
		"variant_id": scope.VariantID,
	})

	result := scope.apply(r.db.WithContext(ctx)).Delete(&model.ProductImage{})
	if result.Error != nil {
		logger.Error("Failed to delete image scope", result.Error, map[string]interface{}{
			"product_id": scope.ProductID,
			"variant_id": scope.VariantID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteVariantImages removes every variant-scoped image of the product.
func (r *imageRepository) DeleteVariantImages(ctx context.Context, productID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_id IS NOT NULL", productID).
		Delete(&model.ProductImage{})
	if result.Error != nil {
		logger.Error("Failed to delete variant images", result.Error, map[string]interface{}{
			"product_id": productID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *imageRepository) CreateBatch(ctx context.Context, images []model.ProductImage) error {
	if len(images) == 0 {
		return nil
	}

	logger.Debug("Inserting images", map[string]interface{}{
		"product_id": images[0].ProductID,
		"count":      len(images),
	})

	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		logger.Error("Failed to insert images", err, map[string]interface{}{
			"product_id": images[0].ProductID,
			"count":      len(images),
		})
		return err
	}
	return nil
}
