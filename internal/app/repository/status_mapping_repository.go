package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatusMappingRepository interface {
	FindActive(ctx context.Context, adminStatus model.AdminStatus) (*model.AdminStatusMapping, error)
	List(ctx context.Context) ([]model.AdminStatusMapping, error)
	Upsert(ctx context.Context, mapping *model.AdminStatusMapping) error
}

type statusMappingRepository struct {
	db *gorm.DB
}

func NewStatusMappingRepository(db *gorm.DB) StatusMappingRepository {
	return &statusMappingRepository{db: db}
}

// FindActive returns gorm.ErrRecordNotFound when no active row exists.
func (r *statusMappingRepository) FindActive(ctx context.Context, adminStatus model.AdminStatus) (*model.AdminStatusMapping, error) {
	var mapping model.AdminStatusMapping
	err := r.db.WithContext(ctx).
		Where("admin_status = ? AND is_active = ?", adminStatus, true).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *statusMappingRepository) List(ctx context.Context) ([]model.AdminStatusMapping, error) {
	var mappings []model.AdminStatusMapping
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&mappings).Error; err != nil {
		logger.Error("Failed to list status mappings", err, nil)
		return nil, err
	}
	return mappings, nil
}

// Upsert inserts or replaces the row for mapping.AdminStatus.
func (r *statusMappingRepository) Upsert(ctx context.Context, mapping *model.AdminStatusMapping) error {
	logger.Debug("Upserting status mapping", map[string]interface{}{
		"admin_status":    mapping.AdminStatus,
		"customer_status": mapping.CustomerStatus,
		"is_active":       mapping.IsActive,
	})

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "admin_status"}},
		DoUpdates: clause.AssignmentColumns([]string{"customer_status", "is_active", "updated_at"}),
	}).Create(mapping).Error
	if err != nil {
		logger.Error("Failed to upsert status mapping", err, map[string]interface{}{
			"admin_status": mapping.AdminStatus,
		})
		return err
	}
	return nil
}
