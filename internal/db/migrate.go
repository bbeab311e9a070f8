package db

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.Section{},
		&model.Category{},
		&model.CategoryColorOption{},
		&model.CategorySizeOption{},
		&model.Product{},
		&model.ProductVariant{},
		&model.ProductImage{},
		&model.Order{},
		&model.OrderItem{},
		&model.AdminStatusMapping{},
	}
}

// DefaultStatusMappings mirrors the built-in admin -> customer table so that
// operators start with editable rows.
var DefaultStatusMappings = []model.AdminStatusMapping{
	{AdminStatus: model.AdminStatusPending, CustomerStatus: model.CustomerStatusPending, IsActive: true},
	{AdminStatus: model.AdminStatusInProgress, CustomerStatus: model.CustomerStatusConfirmed, IsActive: true},
	{AdminStatus: model.AdminStatusPurchased, CustomerStatus: model.CustomerStatusShippedFromChina, IsActive: true},
	{AdminStatus: model.AdminStatusShipped, CustomerStatus: model.CustomerStatusShippedFromUAE, IsActive: true},
	{AdminStatus: model.AdminStatusCompleted, CustomerStatus: model.CustomerStatusDelivered, IsActive: true},
	{AdminStatus: model.AdminStatusCancelled, CustomerStatus: model.CustomerStatusCancelled, IsActive: true},
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedInitialData(DB); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

func seedInitialData(db *gorm.DB) error {
	logger.Info("Seeding initial data...")

	if err := seedStatusMappings(db); err != nil {
		logger.Error("Failed to seed status mappings", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

func seedStatusMappings(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.AdminStatusMapping{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Status mappings already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	rows := make([]model.AdminStatusMapping, len(DefaultStatusMappings))
	copy(rows, DefaultStatusMappings)
	if err := db.Create(&rows).Error; err != nil {
		return err
	}

	logger.Info("Status mappings seeded", map[string]interface{}{
		"count": len(rows),
	})
	return nil
}
