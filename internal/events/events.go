package events

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
)

const TypeOrderStatusChanged = "order.status_changed"

// OrderStatusChanged is emitted after an admin status change has been
// written. CustomerStatus is the value stored after propagation.
type OrderStatusChanged struct {
	Type            string               `json:"type"`
	OrderID         uint                 `json:"order_id"`
	OrderNumber     string               `json:"order_number"`
	FromAdminStatus model.AdminStatus    `json:"from_admin_status"`
	ToAdminStatus   model.AdminStatus    `json:"to_admin_status"`
	CustomerStatus  model.CustomerStatus `json:"customer_status"`
	Propagated      bool                 `json:"propagated"`
	ActorID         uint                 `json:"actor_id"`
	OccurredAt      time.Time            `json:"occurred_at"`
}
