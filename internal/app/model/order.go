package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type AdminStatus string    // internal fulfillment state
type CustomerStatus string // state shown to the customer

const (
	AdminStatusPending    AdminStatus = "pending"     // received, nothing bought yet
	AdminStatusInProgress AdminStatus = "in_progress" // staff is sourcing items
	AdminStatusPurchased  AdminStatus = "purchased"   // all items bought from suppliers
	AdminStatusShipped    AdminStatus = "shipped"     // handed to the carrier
	AdminStatusCompleted  AdminStatus = "completed"   // delivered and closed
	AdminStatusCancelled  AdminStatus = "cancelled"   // closed without delivery
)

const (
	CustomerStatusPending          CustomerStatus = "pending"
	CustomerStatusConfirmed        CustomerStatus = "confirmed"
	CustomerStatusShippedFromChina CustomerStatus = "shipped_from_china"
	CustomerStatusReceivedInUAE    CustomerStatus = "received_in_uae"
	CustomerStatusShippedFromUAE   CustomerStatus = "shipped_from_uae"
	CustomerStatusReceivedInEgypt  CustomerStatus = "received_in_egypt"
	CustomerStatusInWarehouse      CustomerStatus = "in_warehouse"
	CustomerStatusOutForDelivery   CustomerStatus = "out_for_delivery"
	CustomerStatusDelivered        CustomerStatus = "delivered"
	CustomerStatusCancelled        CustomerStatus = "cancelled"
)

// AdminStatuses lists the pipeline in forward order, cancelled last.
var AdminStatuses = []AdminStatus{
	AdminStatusPending,
	AdminStatusInProgress,
	AdminStatusPurchased,
	AdminStatusShipped,
	AdminStatusCompleted,
	AdminStatusCancelled,
}

func ParseAdminStatus(s string) (AdminStatus, error) {
	switch st := AdminStatus(s); st {
	case AdminStatusPending, AdminStatusInProgress, AdminStatusPurchased,
		AdminStatusShipped, AdminStatusCompleted, AdminStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown admin status %q", s)
	}
}

// Rank is the position along the forward pipeline; cancelled has no rank.
func (s AdminStatus) Rank() int {
	switch s {
	case AdminStatusPending:
		return 0
	case AdminStatusInProgress:
		return 1
	case AdminStatusPurchased:
		return 2
	case AdminStatusShipped:
		return 3
	case AdminStatusCompleted:
		return 4
	default:
		return -1
	}
}

func (s AdminStatus) IsTerminal() bool {
	return s == AdminStatusCompleted || s == AdminStatusCancelled
}

func (s AdminStatus) Label() string {
	switch s {
	case AdminStatusPending:
		return "Pending"
	case AdminStatusInProgress:
		return "In progress"
	case AdminStatusPurchased:
		return "Purchased"
	case AdminStatusShipped:
		return "Shipped"
	case AdminStatusCompleted:
		return "Completed"
	case AdminStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

func (s AdminStatus) BadgeColor() string {
	switch s {
	case AdminStatusPending:
		return "gray"
	case AdminStatusInProgress:
		return "blue"
	case AdminStatusPurchased:
		return "indigo"
	case AdminStatusShipped:
		return "orange"
	case AdminStatusCompleted:
		return "green"
	case AdminStatusCancelled:
		return "red"
	default:
		return "gray"
	}
}

func ParseCustomerStatus(s string) (CustomerStatus, error) {
	switch st := CustomerStatus(s); st {
	case CustomerStatusPending, CustomerStatusConfirmed, CustomerStatusShippedFromChina,
		CustomerStatusReceivedInUAE, CustomerStatusShippedFromUAE, CustomerStatusReceivedInEgypt,
		CustomerStatusInWarehouse, CustomerStatusOutForDelivery, CustomerStatusDelivered,
		CustomerStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown customer status %q", s)
	}
}

func (s CustomerStatus) Label() string {
	switch s {
	case CustomerStatusPending:
		return "Order received"
	case CustomerStatusConfirmed:
		return "Order confirmed"
	case CustomerStatusShippedFromChina:
		return "Shipped from China"
	case CustomerStatusReceivedInUAE:
		return "Received in UAE"
	case CustomerStatusShippedFromUAE:
		return "Shipped from UAE"
	case CustomerStatusReceivedInEgypt:
		return "Received in Egypt"
	case CustomerStatusInWarehouse:
		return "In warehouse"
	case CustomerStatusOutForDelivery:
		return "Out for delivery"
	case CustomerStatusDelivered:
		return "Delivered"
	case CustomerStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

func (s CustomerStatus) BadgeColor() string {
	switch s {
	case CustomerStatusPending:
		return "gray"
	case CustomerStatusConfirmed:
		return "blue"
	case CustomerStatusShippedFromChina, CustomerStatusShippedFromUAE:
		return "orange"
	case CustomerStatusReceivedInUAE, CustomerStatusReceivedInEgypt, CustomerStatusInWarehouse:
		return "purple"
	case CustomerStatusOutForDelivery:
		return "yellow"
	case CustomerStatusDelivered:
		return "green"
	case CustomerStatusCancelled:
		return "red"
	default:
		return "gray"
	}
}

type Order struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                      // order ID
	OrderNumber           string         `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"` // human-facing number
	UserID                uint           `gorm:"not null;index" json:"user_id"`                             // customer
	ShippingAddress       string         `gorm:"type:text;not null" json:"shipping_address"`                // delivery address
	DeliveryNotes         *string        `gorm:"type:text" json:"delivery_notes"`                           // courier notes
	TotalAmount           float64        `gorm:"not null" json:"total_amount"`                              // total charged
	Status                CustomerStatus `gorm:"type:varchar(30);not null;index" json:"status"`             // customer-visible
	AdminStatus           AdminStatus    `gorm:"type:varchar(30);not null;index" json:"admin_status"`       // internal
	EstimatedDeliveryDays *int           `json:"estimated_delivery_days"`                                   // shown to the customer
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a fulfillment checklist line. IsPurchased is bookkeeping and
// never drives the order's status fields.
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`                       // line ID
	OrderID     uint      `gorm:"not null;index" json:"order_id"`             // owning order
	ProductID   uint      `gorm:"not null;index" json:"product_id"`           // product at order time
	VariantID   *uint     `gorm:"index" json:"variant_id"`                    // weak reference, variants are replaced on edit
	VariantName string    `json:"variant_name"`                               // snapshot of the variant label
	Quantity    int       `gorm:"not null" json:"quantity"`                   // > 0
	Price       float64   `gorm:"not null" json:"price"`                      // unit price snapshot
	IsPurchased bool      `gorm:"not null;default:false" json:"is_purchased"` // bought from the supplier
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Product *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// AdminStatusMapping is an operator-editable override of the default
// admin -> customer status table. Inactive rows are ignored.
type AdminStatusMapping struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	AdminStatus    AdminStatus    `gorm:"type:varchar(30);uniqueIndex;not null" json:"admin_status"`
	CustomerStatus CustomerStatus `gorm:"type:varchar(30);not null" json:"customer_status"`
	IsActive       bool           `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (AdminStatusMapping) TableName() string {
	return "admin_status_mappings"
}
