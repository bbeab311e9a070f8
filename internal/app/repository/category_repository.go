package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryFilter struct {
	SectionID      *uint
	ActiveOnly     bool
	IncludeOptions bool
}

type CategoryRepository interface {
	List(ctx context.Context, filter CategoryFilter) ([]model.Category, error)
	FindByID(ctx context.Context, id uint) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uint) error
	DetachFromSection(ctx context.Context, sectionID uint) (int64, error)
	ReplaceOptions(ctx context.Context, categoryID uint, colors []model.CategoryColorOption, sizes []model.CategorySizeOption) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC").Order("id ASC")
}

func (r *categoryRepository) List(ctx context.Context, filter CategoryFilter) ([]model.Category, error) {
	logger.Debug("Listing categories", map[string]interface{}{
		"section_id":  filter.SectionID,
		"active_only": filter.ActiveOnly,
	})

	query := r.db.WithContext(ctx).Model(&model.Category{}).Preload("Section")
	if filter.IncludeOptions {
		query = query.Preload("ColorOptions", orderedOptions).Preload("SizeOptions", orderedOptions)
	}
	if filter.SectionID != nil {
		query = query.Where("section_id = ?", *filter.SectionID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var categories []model.Category
	if err := query.Order("display_order ASC").Order("id ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", err, map[string]interface{}{
			"section_id": filter.SectionID,
		})
		return nil, err
	}

	logger.Debug("Categories listed", map[string]interface{}{
		"count": len(categories),
	})
	return categories, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	logger.Debug("Finding category by ID", map[string]interface{}{
		"category_id": id,
	})

	var category model.Category
	err := r.db.WithContext(ctx).
		Preload("Section").
		Preload("ColorOptions", orderedOptions).
		Preload("SizeOptions", orderedOptions).
		First(&category, id).Error
	if err != nil {
		logger.Error("Failed to find category by ID", err, map[string]interface{}{
			"category_id": id,
		})
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	logger.Debug("Creating category", map[string]interface{}{
		"name":       category.Name,
		"section_id": category.SectionID,
	})

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(category).Error; err != nil {
		logger.Error("Failed to create category", err, map[string]interface{}{
			"name": category.Name,
		})
		return err
	}

	logger.Debug("Category created", map[string]interface{}{
		"category_id": category.ID,
	})
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	logger.Debug("Updating category", map[string]interface{}{
		"category_id": category.ID,
	})

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(category).Error; err != nil {
		logger.Error("Failed to update category", err, map[string]interface{}{
			"category_id": category.ID,
		})
		return err
	}
	return nil
}

// Delete removes the category's owned options, then soft-deletes the category.
func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting category", map[string]interface{}{
		"category_id": id,
	})

	db := r.db.WithContext(ctx)
	if err := db.Where("category_id = ?", id).Delete(&model.CategoryColorOption{}).Error; err != nil {
		logger.Error("Failed to delete category color options", err, map[string]interface{}{
			"category_id": id,
		})
		return err
	}
	if err := db.Where("category_id = ?", id).Delete(&model.CategorySizeOption{}).Error; err != nil {
		logger.Error("Failed to delete category size options", err, map[string]interface{}{
			"category_id": id,
		})
		return err
	}

	result := db.Delete(&model.Category{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete category", result.Error, map[string]interface{}{
			"category_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Category deleted", map[string]interface{}{
		"category_id": id,
	})
	return nil
}

// DetachFromSection nulls section_id on every category of the section,
// including soft-deleted ones.
func (r *categoryRepository) DetachFromSection(ctx context.Context, sectionID uint) (int64, error) {
	logger.Debug("Detaching categories from section", map[string]interface{}{
		"section_id": sectionID,
	})

	result := r.db.WithContext(ctx).Unscoped().
		Model(&model.Category{}).
		Where("section_id = ?", sectionID).
		Update("section_id", nil)
	if result.Error != nil {
		logger.Error("Failed to detach categories from section", result.Error, map[string]interface{}{
			"section_id": sectionID,
		})
		return 0, result.Error
	}

	logger.Debug("Categories detached from section", map[string]interface{}{
		"section_id": sectionID,
		"count":      result.RowsAffected,
	})
	return result.RowsAffected, nil
}

// ReplaceOptions deletes the category's color and size options and inserts
// the given lists.
func (r *categoryRepository) ReplaceOptions(ctx context.Context, categoryID uint, colors []model.CategoryColorOption, sizes []model.CategorySizeOption) error {
	logger.Debug("Replacing category options", map[string]interface{}{
		"category_id": categoryID,
		"colors":      len(colors),
		"sizes":       len(sizes),
	})

	db := r.db.WithContext(ctx)
	if err := db.Where("category_id = ?", categoryID).Delete(&model.CategoryColorOption{}).Error; err != nil {
		logger.Error("Failed to delete color options", err, map[string]interface{}{
			"category_id": categoryID,
		})
		return err
	}
	if err := db.Where("category_id = ?", categoryID).Delete(&model.CategorySizeOption{}).Error; err != nil {
		logger.Error("Failed to delete size options", err, map[string]interface{}{
			"category_id": categoryID,
		})
		return err
	}

	if len(colors) > 0 {
		if err := db.Create(&colors).Error; err != nil {
			logger.Error("Failed to insert color options", err, map[string]interface{}{
				"category_id": categoryID,
			})
			return err
		}
	}
	if len(sizes) > 0 {
		if err := db.Create(&sizes).Error; err != nil {
			logger.Error("Failed to insert size options", err, map[string]interface{}{
				"category_id": categoryID,
			})
			return err
		}
	}
	return nil
}
