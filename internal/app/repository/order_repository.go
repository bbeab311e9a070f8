package repository

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderFilter struct {
	Status      *model.CustomerStatus
	AdminStatus *model.AdminStatus
	UserID      *uint
	Limit       int
	Offset      int
}

// ErrAdminStatusChanged is returned when the row no longer holds the admin
// status the update was conditioned on.
var ErrAdminStatusChanged = errors.New("order admin status changed concurrently")

// OrderStatusUpdate carries the status columns of a single UPDATE. Nil
// fields are left untouched. A non-nil ExpectAdminStatus makes the write
// conditional on the current admin status.
type OrderStatusUpdate struct {
	AdminStatus       *model.AdminStatus
	Status            *model.CustomerStatus
	ExpectAdminStatus *model.AdminStatus
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindWithFilter(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	UpdateStatusFields(ctx context.Context, id uint, update OrderStatusUpdate) error
	UpdateDeliveryEstimate(ctx context.Context, id uint, days *int) error
	ListItems(ctx context.Context, orderID uint) ([]model.OrderItem, error)
	FindItem(ctx context.Context, orderID, itemID uint) (*model.OrderItem, error)
	SetItemPurchased(ctx context.Context, orderID, itemID uint, purchased bool) error
	SetAllItemsPurchased(ctx context.Context, orderID uint, purchased bool) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// preloadOrder joins items to their product (soft-deleted included, orders
// outlive catalog edits) and variant.
func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC").
			Preload("Product", func(pdb *gorm.DB) *gorm.DB {
				return pdb.Unscoped()
			}).
			Preload("Variant")
	})
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":      order.UserID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
	})

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"order_number": order.OrderNumber,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"items":    len(order.OrderItems),
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder(ctx).First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id":     order.ID,
		"status":       order.Status,
		"admin_status": order.AdminStatus,
	})
	return &order, nil
}

func (r *orderRepository) FindWithFilter(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	logger.Debug("Finding orders with filter", map[string]interface{}{
		"status":       filter.Status,
		"admin_status": filter.AdminStatus,
		"user_id":      filter.UserID,
	})

	query := r.preloadOrder(ctx).Model(&model.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AdminStatus != nil {
		query = query.Where("admin_status = ?", *filter.AdminStatus)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders with filter", err, nil)
		return nil, err
	}

	logger.Debug("Orders found with filter", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}

// UpdateStatusFields writes the given status columns in one UPDATE.
func (r *orderRepository) UpdateStatusFields(ctx context.Context, id uint, update OrderStatusUpdate) error {
	fields := map[string]interface{}{}
	if update.AdminStatus != nil {
		fields["admin_status"] = *update.AdminStatus
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if len(fields) == 0 {
		return nil
	}

	logger.Debug("Updating order status fields", map[string]interface{}{
		"order_id": id,
		"fields":   fields,
	})

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id)
	if update.ExpectAdminStatus != nil {
		query = query.Where("admin_status = ?", *update.ExpectAdminStatus)
	}
	result := query.Updates(fields)
	if result.Error != nil {
		logger.Error("Failed to update order status fields", result.Error, map[string]interface{}{
			"order_id": id,
		})
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	if update.ExpectAdminStatus == nil {
		return gorm.ErrRecordNotFound
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	logger.Warn("Order admin status changed before update", map[string]interface{}{
		"order_id": id,
		"expected": *update.ExpectAdminStatus,
	})
	return ErrAdminStatusChanged
}

func (r *orderRepository) UpdateDeliveryEstimate(ctx context.Context, id uint, days *int) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Update("estimated_delivery_days", days)
	if result.Error != nil {
		logger.Error("Failed to update delivery estimate", result.Error, map[string]interface{}{
			"order_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) ListItems(ctx context.Context, orderID uint) ([]model.OrderItem, error) {
	var items []model.OrderItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		logger.Error("Failed to list order items", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) FindItem(ctx context.Context, orderID, itemID uint) (*model.OrderItem, error) {
	var item model.OrderItem
	err := r.db.WithContext(ctx).Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if err != nil {
		logger.Error("Failed to find order item", err, map[string]interface{}{
			"order_id": orderID,
			"item_id":  itemID,
		})
		return nil, err
	}
	return &item, nil
}

// SetItemPurchased touches order_items only.
func (r *orderRepository) SetItemPurchased(ctx context.Context, orderID, itemID uint, purchased bool) error {
	logger.Debug("Setting order item purchased flag", map[string]interface{}{
		"order_id":     orderID,
		"item_id":      itemID,
		"is_purchased": purchased,
	})

	result := r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Update("is_purchased", purchased)
	if result.Error != nil {
		logger.Error("Failed to set order item purchased flag", result.Error, map[string]interface{}{
			"order_id": orderID,
			"item_id":  itemID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) SetAllItemsPurchased(ctx context.Context, orderID uint, purchased bool) (int64, error) {
	logger.Debug("Setting purchased flag on all order items", map[string]interface{}{
		"order_id":     orderID,
		"is_purchased": purchased,
	})

	result := r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("order_id = ?", orderID).
		Update("is_purchased", purchased)
	if result.Error != nil {
		logger.Error("Failed to set purchased flag on order items", result.Error, map[string]interface{}{
			"order_id": orderID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
