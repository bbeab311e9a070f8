package repository

import (
	"context"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductFilter struct {
	CategoryID *uint
	SectionID  *uint
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) error
	Purge(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	SKUTaken(ctx context.Context, sku string, excludeProductID *uint) (bool, error)
	DetachFromCategory(ctx context.Context, categoryID uint) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create writes the product row only; variants and images are replaced
// through their own repositories.
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name": product.Name,
		"sku":  product.SKU,
	})

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
			"sku":  product.SKU,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
			"sku":        product.SKU,
		})
		return err
	}

	logger.Debug("Product updated in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	result := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// Purge hard-deletes the product with its variants and images in one
// transaction, releasing its SKUs.
func (r *productRepository) Purge(ctx context.Context, id uint) error {
	logger.Debug("Purging product from database", map[string]interface{}{
		"product_id": id,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductVariant{}).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Delete(&model.Product{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to purge product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Debug("Product purged from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (r *productRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Preload("Category.Section").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC").Order("id ASC")
		}).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC").Order("id ASC")
		})
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.baseQuery(ctx).First(&product, id).Error; err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Debug("Product found by ID in database", map[string]interface{}{
		"product_id": product.ID,
		"variants":   len(product.Variants),
		"images":     len(product.Images),
	})
	return &product, nil
}

func (r *productRepository) FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category_id": filter.CategoryID,
		"section_id":  filter.SectionID,
		"active_only": filter.ActiveOnly,
		"search":      filter.Search,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})

	query := r.baseQuery(ctx)

	if filter.SectionID != nil {
		query = query.
			Joins("JOIN categories ON categories.id = products.category_id AND categories.deleted_at IS NULL").
			Where("categories.section_id = ?", *filter.SectionID)
	}
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		query = query.Where("products.is_active = ?", true)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", filter.Search)
		query = query.Where("products.name LIKE ? OR products.sku LIKE ?", like, like)
	}

	query = query.Order("products.created_at DESC").Order("products.id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, map[string]interface{}{
			"category_id": filter.CategoryID,
			"search":      filter.Search,
		})
		return nil, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

// SKUTaken reports whether a live product other than excludeProductID uses
// the exact sku.
func (r *productRepository) SKUTaken(ctx context.Context, sku string, excludeProductID *uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.Product{}).Where("sku = ?", sku)
	if excludeProductID != nil {
		query = query.Where("id <> ?", *excludeProductID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		logger.Error("Failed to check product SKU", err, map[string]interface{}{
			"sku": sku,
		})
		return false, err
	}
	return count > 0, nil
}

// DetachFromCategory nulls category_id on every product of the category,
// including soft-deleted ones.
func (r *productRepository) DetachFromCategory(ctx context.Context, categoryID uint) (int64, error) {
	logger.Debug("Detaching products from category", map[string]interface{}{
		"category_id": categoryID,
	})

	result := r.db.WithContext(ctx).Unscoped().
		Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		Update("category_id", nil)
	if result.Error != nil {
		logger.Error("Failed to detach products from category", result.Error, map[string]interface{}{
			"category_id": categoryID,
		})
		return 0, result.Error
	}

	logger.Debug("Products detached from category", map[string]interface{}{
		"category_id": categoryID,
		"count":       result.RowsAffected,
	})
	return result.RowsAffected, nil
}
