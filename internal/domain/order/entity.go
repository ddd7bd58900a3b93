// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/pricing"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusInProgress, OrderStatusCanceled},
	OrderStatusInProgress: {OrderStatusDelivered, OrderStatusCanceled},
}

// CanTransitionTo reports whether an order in status s may move to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ContactMethod is how the customer wants to be reached
type ContactMethod string

const (
	ContactPhone ContactMethod = "phone"
	ContactEmail ContactMethod = "email"
)

// PaymentMethod is how the customer intends to pay
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentInstallment PaymentMethod = "installment"
)

// DeliveryOption is a shipping choice offered at checkout
type DeliveryOption struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Name         string      `gorm:"not null;size:255" json:"name"`
	Description  string      `gorm:"type:text" json:"description"`
	DeliveryTime string      `gorm:"size:100;not null" json:"delivery_time"`
	Cost         money.Money `gorm:"type:numeric(10,2);not null" json:"cost"`
	Nationwide   bool        `gorm:"not null" json:"nationwide"`
	Priority     int         `gorm:"not null;default:0;index" json:"priority"`
}

// Order represents the order entity. Prices are written only by PlaceOrder.
type Order struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           *uint          `gorm:"index" json:"user_id"`
	SessionKey       *string        `gorm:"index;size:64" json:"-"`
	DeliveryOptionID *uint          `gorm:"index" json:"delivery_option_id"`
	Address          string         `gorm:"size:255;not null" json:"address"`
	City             string         `gorm:"size:100" json:"city"`
	Phone            string         `gorm:"size:20" json:"phone"`
	Email            string         `gorm:"size:255" json:"email"`
	ContactMethod    ContactMethod  `gorm:"size:10;not null" json:"contact_method"`
	PaymentMethod    PaymentMethod  `gorm:"size:20;not null" json:"payment_method"`
	InitialPayment   *money.Money   `gorm:"type:numeric(10,2)" json:"initial_payment"`
	PromoCode        string         `gorm:"size:50" json:"promo_code"`
	TotalItemsPrice  money.Money    `gorm:"type:numeric(10,2);not null" json:"total_items_price"`
	DiscountAmount   money.Money    `gorm:"type:numeric(10,2);not null" json:"discount_amount"`
	TotalPrice       money.Money    `gorm:"type:numeric(10,2);not null" json:"total_price"`
	Comment          string         `gorm:"type:text" json:"comment"`
	Status           OrderStatus    `gorm:"size:20;not null;index" json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	DeliveryOption *DeliveryOption      `gorm:"foreignKey:DeliveryOptionID;constraint:OnDelete:SET NULL;" json:"delivery_option,omitempty"`
	Items          []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory  []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a snapshot of a cart line at the time the order was placed
type OrderItem struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	OrderID     uint             `gorm:"not null;index" json:"order_id"`
	Kind        catalog.ItemKind `gorm:"size:20;not null" json:"kind"`
	VariantID   *uint            `gorm:"index" json:"variant_id,omitempty"`
	AccessoryID *uint            `gorm:"index" json:"accessory_id,omitempty"`
	BundleID    *uint            `gorm:"index" json:"bundle_id,omitempty"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Price       money.Money      `gorm:"type:numeric(10,2);not null" json:"price"`
	Quantity    int              `gorm:"not null" json:"quantity"`
	Subtotal    money.Money      `gorm:"-:all" json:"subtotal"`
	CreatedAt   time.Time        `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"size:20;not null" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy *uint       `gorm:"index" json:"created_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (DeliveryOption) TableName() string     { return "delivery_options" }
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// AfterFind fills the derived subtotal
func (i *OrderItem) AfterFind(tx *gorm.DB) error {
	i.Subtotal = pricing.Subtotal(i.Price, i.Quantity)
	return nil
}

// CanBeCanceled checks if the order can still be canceled
func (o *Order) CanBeCanceled() bool {
	return o.Status.CanTransitionTo(OrderStatusCanceled)
}
