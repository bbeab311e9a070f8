package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type OrderController struct {
	fulfillmentService service.FulfillmentService
}

func NewOrderController(fulfillmentService service.FulfillmentService) *OrderController {
	return &OrderController{
		fulfillmentService: fulfillmentService,
	}
}

type UpdateAdminStatusRequest struct {
	AdminStatus model.AdminStatus `json:"admin_status" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status model.CustomerStatus `json:"status" binding:"required"`
}

type UpdateDeliveryEstimateRequest struct {
	EstimatedDeliveryDays *int `json:"estimated_delivery_days"`
}

type SetItemPurchasedRequest struct {
	IsPurchased *bool `json:"is_purchased"` // nil toggles
}

type UpsertStatusMappingRequest struct {
	CustomerStatus model.CustomerStatus `json:"customer_status" binding:"required"`
	IsActive       *bool                `json:"is_active"`
}

// ListOrders returns orders for the back office (staff only)
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return
	}

	opts := service.OrderListOptions{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseCustomerStatus(raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
			return
		}
		opts.Status = &status
	}
	if raw := c.Query("admin_status"); raw != "" {
		status, err := model.ParseAdminStatus(raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
			return
		}
		opts.AdminStatus = &status
	}

	orders, err := ctrl.fulfillmentService.ListOrders(c.Request.Context(), actor, opts)
	if err != nil {
		apperrors.Respond(c, err, "orders", "list")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder returns one order with its items (staff only)
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := ctrl.fulfillmentService.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		apperrors.Respond(c, err, "order", "load")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateAdminStatus moves the order along the pipeline and propagates the
// customer status (staff only)
// PUT /api/v1/orders/:id/admin-status
func (ctrl *OrderController) UpdateAdminStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAdminStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.fulfillmentService.SetAdminStatus(c.Request.Context(), actor, id, req.AdminStatus)
	if err != nil {
		apperrors.Respond(c, err, "order", "change admin status of")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order admin status updated", map[string]interface{}{
		"order_id":     order.ID,
		"admin_status": order.AdminStatus,
		"status":       order.Status,
	})
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateStatus overrides the customer-visible status only (staff only)
// PUT /api/v1/orders/:id/status
func (ctrl *OrderController) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.fulfillmentService.SetCustomerStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		apperrors.Respond(c, err, "order", "change status of")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateDeliveryEstimate sets or clears the delivery estimate (staff only)
// PUT /api/v1/orders/:id/delivery-estimate
func (ctrl *OrderController) UpdateDeliveryEstimate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateDeliveryEstimateRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.fulfillmentService.SetDeliveryEstimate(c.Request.Context(), actor, id, req.EstimatedDeliveryDays)
	if err != nil {
		apperrors.Respond(c, err, "order", "set delivery estimate of")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// SetItemPurchased sets the purchase flag of one item, or toggles it when the
// body carries no is_purchased (staff only)
// PUT /api/v1/orders/:id/items/:item_id/purchased
func (ctrl *OrderController) SetItemPurchased(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}

	var req SetItemPurchasedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request body: "+err.Error())
		return
	}

	var (
		item *model.OrderItem
		err  error
	)
	if req.IsPurchased == nil {
		item, err = ctrl.fulfillmentService.ToggleItemPurchased(c.Request.Context(), actor, id, itemID)
	} else {
		item, err = ctrl.fulfillmentService.SetItemPurchased(c.Request.Context(), actor, id, itemID, *req.IsPurchased)
	}
	if err != nil {
		apperrors.Respond(c, err, "order item", "update purchase of")
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// ToggleAllPurchased marks every item purchased, or clears all when every
// item already is (staff only)
// POST /api/v1/orders/:id/items/toggle-all
func (ctrl *OrderController) ToggleAllPurchased(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := ctrl.fulfillmentService.BulkTogglePurchased(c.Request.Context(), actor, id)
	if err != nil {
		apperrors.Respond(c, err, "order", "toggle purchases of")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListStatusMappings returns the admin to customer status table (staff only)
// GET /api/v1/status-mappings
func (ctrl *OrderController) ListStatusMappings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	views, err := ctrl.fulfillmentService.ListStatusMappings(c.Request.Context(), actor)
	if err != nil {
		apperrors.Respond(c, err, "status mappings", "list")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": views})
}

// UpsertStatusMapping saves the override for one admin status (staff only)
// PUT /api/v1/status-mappings/:admin_status
func (ctrl *OrderController) UpsertStatusMapping(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req UpsertStatusMappingRequest
	if !bindJSON(c, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	mapping, err := ctrl.fulfillmentService.UpsertStatusMapping(
		c.Request.Context(), actor, model.AdminStatus(c.Param("admin_status")), req.CustomerStatus, active,
	)
	if err != nil {
		apperrors.Respond(c, err, "status mapping", "save")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mapping": mapping})
}
