// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/pricing"
	"github.com/your-org/storefront-api/internal/domain/promo"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"github.com/your-org/storefront-api/internal/pkg/metrics"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmptyCart              = apperrors.New(apperrors.CodeEmptyCart, "cart is empty")
	ErrOrderNotFound          = apperrors.New(apperrors.CodeNotFound, "order not found")
	ErrDeliveryOptionNotFound = apperrors.New(apperrors.CodeNotFound, "delivery option not found")
	ErrInvalidTransition      = apperrors.New(apperrors.CodeConflict, "invalid status transition")
)

// Service handles order business logic
type Service struct {
	db      *gorm.DB
	promos  *promo.Service
	config  *config.Config
	logger  *logrus.Logger
	metrics *metrics.Store
}

// NewService creates a new order service. m may be nil.
func NewService(db *gorm.DB, promos *promo.Service, cfg *config.Config, log *logrus.Logger, m *metrics.Store) *Service {
	return &Service{
		db:      db,
		promos:  promos,
		config:  cfg,
		logger:  logger.OrDiscard(log),
		metrics: m,
	}
}

// PlaceOrderRequest represents order placement data
type PlaceOrderRequest struct {
	DeliveryOptionID *uint         `json:"delivery_option_id"`
	Address          string        `json:"address" binding:"required,max=255"`
	City             string        `json:"city" binding:"max=100"`
	Phone            string        `json:"phone" binding:"max=20"`
	Email            string        `json:"email" binding:"omitempty,email,max=255"`
	ContactMethod    ContactMethod `json:"contact_method" binding:"omitempty,oneof=phone email"`
	PaymentMethod    PaymentMethod `json:"payment_method" binding:"omitempty,oneof=cash card installment"`
	InitialPayment   *money.Money  `json:"initial_payment"`
	PromoCode        string        `json:"promo_code" binding:"max=50"`
	Comment          string        `json:"comment" binding:"max=2000"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=10"`
	Status string `form:"status"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required,oneof=pending in_progress delivered canceled"`
	Comment string      `json:"comment" binding:"max=2000"`
}

// OrderList represents a page of orders
type OrderList struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// PlaceOrder converts the cart of id into an order in a single transaction.
// The cart row is locked for the whole conversion, the promo code (if any) is
// validated and its usage recorded in the same transaction, and the cart is
// emptied before commit. Any failure leaves cart, promo and orders untouched.
func (s *Service) PlaceOrder(ctx context.Context, id identity.Identity, req *PlaceOrderRequest) (*Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var (
		placed  *Order
		applied *promo.PromoCode
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := cart.LockCart(tx, id, false)
		if err != nil {
			if errors.Is(err, cart.ErrNoCart) {
				return ErrEmptyCart
			}
			return err
		}

		lines, err := cart.LoadLines(tx, c.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		if req.DeliveryOptionID != nil {
			if err := ensureDeliveryOption(tx, *req.DeliveryOptionID); err != nil {
				return err
			}
		}

		order := newOrder(id, req)
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		items, itemsTotal, err := snapshotItems(tx, order.ID, lines)
		if err != nil {
			return err
		}
		order.Items = items

		total := itemsTotal
		if code := strings.TrimSpace(req.PromoCode); code != "" {
			p, err := s.promos.Validate(tx, code, itemsTotal)
			if err != nil {
				return err
			}
			total = p.ApplyDiscount(itemsTotal, s.promos.Policy())
			if err := promo.RecordUsage(tx, p); err != nil {
				return err
			}
			order.PromoCode = code
			applied = p
		}

		if err := priceOrder(tx, order, itemsTotal, total); err != nil {
			return err
		}

		if err := cart.DeleteLines(tx, c.ID); err != nil {
			return err
		}

		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    OrderStatusPending,
			Comment:   "Order placed",
			CreatedBy: createdBy(id),
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		order.StatusHistory = []OrderStatusHistory{history}

		placed = order
		return nil
	})
	if err != nil {
		s.metrics.OrderFailed(string(apperrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.OrderPlaced(applied != nil)
	if applied != nil {
		if err := s.promos.ForgetPreview(ctx, id); err != nil {
			s.logger.WithError(err).Warn("failed to forget promo preview")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":    placed.ID,
		"identity":    id.Key(),
		"items":       len(placed.Items),
		"total_price": placed.TotalPrice.String(),
		"promo_code":  placed.PromoCode,
	}).Info("order placed")

	return placed, nil
}

// ListOrders returns the orders placed by id, newest first
func (s *Service) ListOrders(ctx context.Context, id identity.Identity, req OrderListRequest) (*OrderList, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return s.list(ownedBy(s.db.WithContext(ctx), id), req)
}

// ListAllOrders returns orders of every customer
func (s *Service) ListAllOrders(ctx context.Context, req OrderListRequest) (*OrderList, error) {
	return s.list(s.db.WithContext(ctx), req)
}

// GetOrder returns an order placed by id
func (s *Service) GetOrder(ctx context.Context, id identity.Identity, orderID uint) (*Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var order Order
	err := ownedBy(s.db.WithContext(ctx), id).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("DeliveryOption").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("orders.id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// UpdateStatus moves an order to a new status and records the change
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, req UpdateStatusRequest, actor *uint) (*Order, error) {
	var order Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}

		if !order.Status.CanTransitionTo(req.Status) {
			return ErrInvalidTransition.
				WithMessage(fmt.Sprintf("invalid status transition from %s to %s", order.Status, req.Status)).
				WithDetails(map[string]OrderStatus{"from": order.Status, "to": req.Status})
		}

		if err := tx.Model(&order).Update("status", req.Status).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = req.Status

		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    req.Status,
			Comment:   req.Comment,
			CreatedBy: actor,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("order status updated")

	return &order, nil
}

// ListDeliveryOptions returns the delivery options ordered by priority
func (s *Service) ListDeliveryOptions(ctx context.Context) ([]DeliveryOption, error) {
	var options []DeliveryOption
	if err := s.db.WithContext(ctx).Order("priority ASC, id ASC").Find(&options).Error; err != nil {
		return nil, fmt.Errorf("failed to list delivery options: %w", err)
	}
	return options, nil
}

func (s *Service) list(query *gorm.DB, req OrderListRequest) (*OrderList, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > s.config.Catalog.MaxPageSize {
		req.Limit = 10
	}

	query = query.Model(&Order{})
	if req.Status != "" {
		query = query.Where("orders.status = ?", req.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("DeliveryOption").
		Order("orders.created_at DESC, orders.id DESC").
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderList{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

func newOrder(id identity.Identity, req *PlaceOrderRequest) *Order {
	userID, sessionKey := id.Owner()

	contact := req.ContactMethod
	if contact == "" {
		contact = ContactPhone
	}
	payment := req.PaymentMethod
	if payment == "" {
		payment = PaymentCash
	}

	return &Order{
		UserID:           userID,
		SessionKey:       sessionKey,
		DeliveryOptionID: req.DeliveryOptionID,
		Address:          strings.TrimSpace(req.Address),
		City:             req.City,
		Phone:            req.Phone,
		Email:            req.Email,
		ContactMethod:    contact,
		PaymentMethod:    payment,
		InitialPayment:   req.InitialPayment,
		Comment:          req.Comment,
		Status:           OrderStatusPending,
		TotalItemsPrice:  money.Zero(),
		DiscountAmount:   money.Zero(),
		TotalPrice:       money.Zero(),
	}
}

// snapshotItems copies every cart line into an order item at its current
// unit price and returns the items with the sum of their subtotals
func snapshotItems(tx *gorm.DB, orderID uint, lines []cart.CartLine) ([]OrderItem, money.Money, error) {
	items := make([]OrderItem, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))

	for i := range lines {
		line := &lines[i]
		pl := line.PricingLine()
		unit, err := pricing.UnitPrice(pl)
		if err != nil {
			return nil, money.Zero(), err
		}
		subtotal, err := pricing.LineSubtotal(pl)
		if err != nil {
			return nil, money.Zero(), err
		}
		priced = append(priced, pl)

		items = append(items, OrderItem{
			OrderID:     orderID,
			Kind:        line.Kind,
			VariantID:   line.VariantID,
			AccessoryID: line.AccessoryID,
			BundleID:    line.BundleID,
			Title:       line.Title(),
			Price:       unit,
			Quantity:    line.Quantity,
			Subtotal:    subtotal,
		})
	}

	total, err := pricing.CartTotal(priced)
	if err != nil {
		return nil, money.Zero(), err
	}

	if err := tx.Create(&items).Error; err != nil {
		return nil, money.Zero(), fmt.Errorf("failed to create order items: %w", err)
	}
	return items, total, nil
}

// priceOrder is the only place order totals are written
func priceOrder(tx *gorm.DB, order *Order, itemsTotal, total money.Money) error {
	order.TotalItemsPrice = itemsTotal
	order.DiscountAmount = itemsTotal.Sub(total)
	order.TotalPrice = total

	err := tx.Model(order).Updates(map[string]interface{}{
		"total_items_price": order.TotalItemsPrice,
		"discount_amount":   order.DiscountAmount,
		"total_price":       order.TotalPrice,
		"promo_code":        order.PromoCode,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to price order: %w", err)
	}
	return nil
}

func ensureDeliveryOption(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&DeliveryOption{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check delivery option: %w", err)
	}
	if count == 0 {
		return ErrDeliveryOptionNotFound
	}
	return nil
}

func ownedBy(db *gorm.DB, id identity.Identity) *gorm.DB {
	if id.IsUser() {
		return db.Where("orders.user_id = ?", id.UserID())
	}
	return db.Where("orders.session_key = ? AND orders.user_id IS NULL", id.SessionKey())
}

func createdBy(id identity.Identity) *uint {
	if !id.IsUser() {
		return nil
	}
	userID := id.UserID()
	return &userID
}
