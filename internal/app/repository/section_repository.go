package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type SectionRepository interface {
	List(ctx context.Context, activeOnly bool) ([]model.Section, error)
	FindByID(ctx context.Context, id uint) (*model.Section, error)
	Create(ctx context.Context, section *model.Section) error
	Update(ctx context.Context, section *model.Section) error
	Delete(ctx context.Context, id uint) error
}

type sectionRepository struct {
	db *gorm.DB
}

func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

// List returns sections by display_order. Name tie-breaks are applied by the
// caller with a locale-aware collator.
func (r *sectionRepository) List(ctx context.Context, activeOnly bool) ([]model.Section, error) {
	logger.Debug("Listing sections", map[string]interface{}{
		"active_only": activeOnly,
	})

	query := r.db.WithContext(ctx).Model(&model.Section{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var sections []model.Section
	if err := query.Order("display_order ASC").Order("id ASC").Find(&sections).Error; err != nil {
		logger.Error("Failed to list sections", err, map[string]interface{}{
			"active_only": activeOnly,
		})
		return nil, err
	}

	logger.Debug("Sections listed", map[string]interface{}{
		"count": len(sections),
	})
	return sections, nil
}

func (r *sectionRepository) FindByID(ctx context.Context, id uint) (*model.Section, error) {
	logger.Debug("Finding section by ID", map[string]interface{}{
		"section_id": id,
	})

	var section model.Section
	if err := r.db.WithContext(ctx).First(&section, id).Error; err != nil {
		logger.Error("Failed to find section by ID", err, map[string]interface{}{
			"section_id": id,
		})
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepository) Create(ctx context.Context, section *model.Section) error {
	logger.Debug("Creating section", map[string]interface{}{
		"name": section.Name,
	})

	if err := r.db.WithContext(ctx).Omit("Categories").Create(section).Error; err != nil {
		logger.Error("Failed to create section", err, map[string]interface{}{
			"name": section.Name,
		})
		return err
	}

	logger.Debug("Section created", map[string]interface{}{
		"section_id": section.ID,
	})
	return nil
}

func (r *sectionRepository) Update(ctx context.Context, section *model.Section) error {
	logger.Debug("Updating section", map[string]interface{}{
		"section_id": section.ID,
	})

	if err := r.db.WithContext(ctx).Omit("Categories").Save(section).Error; err != nil {
		logger.Error("Failed to update section", err, map[string]interface{}{
			"section_id": section.ID,
		})
		return err
	}
	return nil
}

func (r *sectionRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting section", map[string]interface{}{
		"section_id": id,
	})

	result := r.db.WithContext(ctx).Delete(&model.Section{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete section", result.Error, map[string]interface{}{
			"section_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Section deleted", map[string]interface{}{
		"section_id": id,
	})
	return nil
}
