package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrInvalidTransition = errors.New("invalid admin status transition")
)

const (
	defaultOrderLimit = 50
	maxOrderLimit     = 200
)

type OrderListOptions struct {
	Status      *model.CustomerStatus
	AdminStatus *model.AdminStatus
	Limit       int
	Offset      int
}

// StatusMappingView shows, per admin status, the stored mapping row, the
// built-in default and the status an order would actually receive.
type StatusMappingView struct {
	AdminStatus     model.AdminStatus         `json:"admin_status"`
	Label           string                    `json:"label"`
	Mapping         *model.AdminStatusMapping `json:"mapping"`
	DefaultStatus   *model.CustomerStatus     `json:"default_status"`
	EffectiveStatus *model.CustomerStatus     `json:"effective_status"`
}

type BulkToggleResult struct {
	Purchased bool  `json:"is_purchased"`
	Updated   int64 `json:"updated"`
}

type FulfillmentService interface {
	ListOrders(ctx context.Context, actor model.Actor, opts OrderListOptions) ([]model.Order, error)
	GetOrder(ctx context.Context, actor model.Actor, id uint) (*model.Order, error)
	SetAdminStatus(ctx context.Context, actor model.Actor, orderID uint, status model.AdminStatus) (*model.Order, error)
	SetCustomerStatus(ctx context.Context, actor model.Actor, orderID uint, status model.CustomerStatus) (*model.Order, error)
	SetDeliveryEstimate(ctx context.Context, actor model.Actor, orderID uint, days *int) (*model.Order, error)
	ToggleItemPurchased(ctx context.Context, actor model.Actor, orderID, itemID uint) (*model.OrderItem, error)
	SetItemPurchased(ctx context.Context, actor model.Actor, orderID, itemID uint, purchased bool) (*model.OrderItem, error)
	BulkTogglePurchased(ctx context.Context, actor model.Actor, orderID uint) (*BulkToggleResult, error)
	ListStatusMappings(ctx context.Context, actor model.Actor) ([]StatusMappingView, error)
	UpsertStatusMapping(ctx context.Context, actor model.Actor, adminStatus model.AdminStatus, customerStatus model.CustomerStatus, isActive bool) (*model.AdminStatusMapping, error)
}

type fulfillmentService struct {
	orders   repository.OrderRepository
	mappings repository.StatusMappingRepository
	mapper   StatusMapper
	opts     Options
}

func NewFulfillmentService(
	orders repository.OrderRepository,
	mappings repository.StatusMappingRepository,
	mapper StatusMapper,
	opts Options,
) FulfillmentService {
	return &fulfillmentService{
		orders:   orders,
		mappings: mappings,
		mapper:   mapper,
		opts:     opts.withDefaults(),
	}
}

func (s *fulfillmentService) ListOrders(ctx context.Context, actor model.Actor, opts OrderListOptions) ([]model.Order, error) {
	if err := requireStaff(actor, "orders", "list"); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultOrderLimit
	}
	if opts.Limit > maxOrderLimit {
		opts.Limit = maxOrderLimit
	}

	orders, err := readWithRetry(ctx, s.opts, "list orders", func(ctx context.Context) ([]model.Order, error) {
		return s.orders.FindWithFilter(ctx, repository.OrderFilter{
			Status:      opts.Status,
			AdminStatus: opts.AdminStatus,
			Limit:       opts.Limit,
			Offset:      opts.Offset,
		})
	})
	if err != nil {
		logger.Error("Failed to list orders", err)
		return nil, apperrors.Wrap(err, "orders", "list")
	}
	return orders, nil
}

func (s *fulfillmentService) GetOrder(ctx context.Context, actor model.Actor, id uint) (*model.Order, error) {
	if err := requireStaff(actor, "order", "load"); err != nil {
		return nil, err
	}
	return s.findOrder(ctx, id, "load")
}

// SetAdminStatus moves the order along the admin pipeline and writes the
// resolved customer status in the same update. Propagation never fails the
// operation: with nothing to resolve, only admin_status changes.
func (s *fulfillmentService) SetAdminStatus(ctx context.Context, actor model.Actor, orderID uint, status model.AdminStatus) (*model.Order, error) {
	const entity, action = "order", "change admin status of"

	if _, err := model.ParseAdminStatus(string(status)); err != nil {
		return nil, apperrors.NewValidation(entity, action, map[string]string{"admin_status": err.Error()})
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}

	order, err := s.findOrder(ctx, orderID, action)
	if err != nil {
		return nil, err
	}
	from := order.AdminStatus
	if err := checkTransition(from, status); err != nil {
		logger.Warn("Rejected admin status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     from,
			"to":       status,
		})
		return nil, err
	}

	customer, source := s.mapper.Resolve(ctx, status)
	update := repository.OrderStatusUpdate{AdminStatus: &status, ExpectAdminStatus: &from}
	if source != ResolvedNone {
		update.Status = &customer
	} else {
		customer = order.Status
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	if err := s.orders.UpdateStatusFields(wctx, orderID, update); err != nil {
		if errors.Is(err, repository.ErrAdminStatusChanged) {
			return nil, apperrors.NewConflict(apperrors.ResourceConflict, entity, action,
				fmt.Sprintf("admin status is no longer %s", from), err)
		}
		return nil, notFoundOr(err, entity, orderID, ErrOrderNotFound, action)
	}

	logger.Info("Order admin status changed", map[string]interface{}{
		"order_id":        orderID,
		"from":            from,
		"to":              status,
		"customer_status": customer,
		"resolved_by":     source,
		"user_id":         actor.UserID,
	})

	s.publish(ctx, events.OrderStatusChanged{
		Type:            events.TypeOrderStatusChanged,
		OrderID:         orderID,
		OrderNumber:     order.OrderNumber,
		FromAdminStatus: from,
		ToAdminStatus:   status,
		CustomerStatus:  customer,
		Propagated:      source != ResolvedNone,
		ActorID:         actor.UserID,
		OccurredAt:      s.opts.Now().UTC(),
	})

	return s.findOrder(ctx, orderID, action)
}

// SetCustomerStatus overrides the customer-visible status only.
func (s *fulfillmentService) SetCustomerStatus(ctx context.Context, actor model.Actor, orderID uint, status model.CustomerStatus) (*model.Order, error) {
	const entity, action = "order", "change status of"

	if _, err := model.ParseCustomerStatus(string(status)); err != nil {
		return nil, apperrors.NewValidation(entity, action, map[string]string{"status": err.Error()})
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}
	if _, err := s.findOrder(ctx, orderID, action); err != nil {
		return nil, err
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	if err := s.orders.UpdateStatusFields(wctx, orderID, repository.OrderStatusUpdate{Status: &status}); err != nil {
		return nil, notFoundOr(err, entity, orderID, ErrOrderNotFound, action)
	}

	logger.Info("Order customer status overridden", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
		"user_id":  actor.UserID,
	})
	return s.findOrder(ctx, orderID, action)
}

func (s *fulfillmentService) SetDeliveryEstimate(ctx context.Context, actor model.Actor, orderID uint, days *int) (*model.Order, error) {
	const entity, action = "order", "set delivery estimate of"

	if days != nil && *days <= 0 {
		return nil, apperrors.NewValidation(entity, action, map[string]string{
			"estimated_delivery_days": "must be greater than 0",
		})
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	if err := s.orders.UpdateDeliveryEstimate(wctx, orderID, days); err != nil {
		return nil, notFoundOr(err, entity, orderID, ErrOrderNotFound, action)
	}
	return s.findOrder(ctx, orderID, action)
}

func (s *fulfillmentService) ToggleItemPurchased(ctx context.Context, actor model.Actor, orderID, itemID uint) (*model.OrderItem, error) {
	const entity, action = "order item", "toggle purchase of"

	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}
	item, err := s.findItem(ctx, orderID, itemID, action)
	if err != nil {
		return nil, err
	}
	return s.writeItemPurchased(ctx, actor, item, !item.IsPurchased, action)
}

func (s *fulfillmentService) SetItemPurchased(ctx context.Context, actor model.Actor, orderID, itemID uint, purchased bool) (*model.OrderItem, error) {
	const entity, action = "order item", "mark purchase of"

	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}
	item, err := s.findItem(ctx, orderID, itemID, action)
	if err != nil {
		return nil, err
	}
	return s.writeItemPurchased(ctx, actor, item, purchased, action)
}

// BulkTogglePurchased marks every item purchased unless all already are, in
// which case every item is cleared. Order status fields are not touched.
func (s *fulfillmentService) BulkTogglePurchased(ctx context.Context, actor model.Actor, orderID uint) (*BulkToggleResult, error) {
	const entity, action = "order", "toggle purchases of"

	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}
	if _, err := s.findOrder(ctx, orderID, action); err != nil {
		return nil, err
	}

	items, err := readWithRetry(ctx, s.opts, "list order items", func(ctx context.Context) ([]model.OrderItem, error) {
		return s.orders.ListItems(ctx, orderID)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}

	target := !allPurchased(items)

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	updated, err := s.orders.SetAllItemsPurchased(wctx, orderID, target)
	if err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}

	logger.Info("Order items purchase flags toggled", map[string]interface{}{
		"order_id":     orderID,
		"is_purchased": target,
		"updated":      updated,
		"user_id":      actor.UserID,
	})
	return &BulkToggleResult{Purchased: target, Updated: updated}, nil
}

func (s *fulfillmentService) ListStatusMappings(ctx context.Context, actor model.Actor) ([]StatusMappingView, error) {
	if err := requireStaff(actor, "status mappings", "list"); err != nil {
		return nil, err
	}

	rows, err := readWithRetry(ctx, s.opts, "list status mappings", func(ctx context.Context) ([]model.AdminStatusMapping, error) {
		return s.mappings.List(ctx)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "status mappings", "list")
	}

	byStatus := make(map[model.AdminStatus]*model.AdminStatusMapping, len(rows))
	for i := range rows {
		byStatus[rows[i].AdminStatus] = &rows[i]
	}

	views := make([]StatusMappingView, 0, len(model.AdminStatuses))
	for _, st := range model.AdminStatuses {
		view := StatusMappingView{AdminStatus: st, Label: st.Label(), Mapping: byStatus[st]}
		if def, ok := s.mapper.Default(st); ok {
			view.DefaultStatus = &def
			view.EffectiveStatus = &def
		}
		if m := view.Mapping; m != nil && m.IsActive {
			effective := m.CustomerStatus
			view.EffectiveStatus = &effective
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *fulfillmentService) UpsertStatusMapping(ctx context.Context, actor model.Actor, adminStatus model.AdminStatus, customerStatus model.CustomerStatus, isActive bool) (*model.AdminStatusMapping, error) {
	const entity, action = "status mapping", "save"

	fields := fieldErrors{}
	if _, err := model.ParseAdminStatus(string(adminStatus)); err != nil {
		fields.add("admin_status", err.Error())
	}
	if _, err := model.ParseCustomerStatus(string(customerStatus)); err != nil {
		fields.add("customer_status", err.Error())
	}
	if err := fields.err(entity, action); err != nil {
		return nil, err
	}
	if err := requireStaff(actor, entity, action); err != nil {
		return nil, err
	}

	mapping := &model.AdminStatusMapping{
		AdminStatus:    adminStatus,
		CustomerStatus: customerStatus,
		IsActive:       isActive,
	}

	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	if err := s.mappings.Upsert(wctx, mapping); err != nil {
		return nil, apperrors.Wrap(err, entity, action)
	}

	logger.Info("Status mapping saved", map[string]interface{}{
		"admin_status":    adminStatus,
		"customer_status": customerStatus,
		"is_active":       isActive,
		"user_id":         actor.UserID,
	})
	return mapping, nil
}

func (s *fulfillmentService) writeItemPurchased(ctx context.Context, actor model.Actor, item *model.OrderItem, purchased bool, action string) (*model.OrderItem, error) {
	wctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	if err := s.orders.SetItemPurchased(wctx, item.OrderID, item.ID, purchased); err != nil {
		return nil, notFoundOr(err, "order item", item.ID, ErrOrderItemNotFound, action)
	}
	item.IsPurchased = purchased

	logger.Info("Order item purchase flag set", map[string]interface{}{
		"order_id":     item.OrderID,
		"item_id":      item.ID,
		"is_purchased": purchased,
		"user_id":      actor.UserID,
	})
	return item, nil
}

func (s *fulfillmentService) findOrder(ctx context.Context, id uint, action string) (*model.Order, error) {
	order, err := readWithRetry(ctx, s.opts, "find order", func(ctx context.Context) (*model.Order, error) {
		return s.orders.FindByID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err, "order", id, ErrOrderNotFound, action)
	}
	return order, nil
}

func (s *fulfillmentService) findItem(ctx context.Context, orderID, itemID uint, action string) (*model.OrderItem, error) {
	item, err := readWithRetry(ctx, s.opts, "find order item", func(ctx context.Context) (*model.OrderItem, error) {
		return s.orders.FindItem(ctx, orderID, itemID)
	})
	if err != nil {
		return nil, notFoundOr(err, "order item", itemID, ErrOrderItemNotFound, action)
	}
	return item, nil
}

// publish delivers the event after the write has landed. Failures are
// logged and never reach the caller.
func (s *fulfillmentService) publish(ctx context.Context, event events.OrderStatusChanged) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeouts.Write)
	defer cancel()

	if err := s.opts.Publisher.PublishOrderStatusChanged(pctx, event); err != nil {
		logger.Warn("Order status event not delivered", map[string]interface{}{
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
	}
}

// checkTransition allows forward moves (skips included), cancelling a live
// order and re-applying the current status. Terminal orders cannot move.
func checkTransition(from, to model.AdminStatus) error {
	switch {
	case from == to:
		return nil
	case from.IsTerminal():
		return transitionError(from, to, "the order is already "+string(from))
	case to == model.AdminStatusCancelled:
		return nil
	case to.Rank() > from.Rank():
		return nil
	default:
		return transitionError(from, to, "admin status cannot move backwards")
	}
}

func transitionError(from, to model.AdminStatus, reason string) error {
	invalid := apperrors.NewInvalid("order", "change admin status of",
		fmt.Sprintf("%s -> %s: %s", from, to, reason))
	invalid.Code = apperrors.OrderInvalidTransition
	invalid.Err = ErrInvalidTransition
	return invalid
}

func allPurchased(items []model.OrderItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.IsPurchased {
			return false
		}
	}
	return true
}
