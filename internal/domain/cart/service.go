// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/pricing"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"github.com/your-org/storefront-api/internal/pkg/metrics"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoCart       = apperrors.New(apperrors.CodeNotFound, "cart not found")
	ErrLineNotFound = apperrors.New(apperrors.CodeNotFound, "cart line not found")
)

// Service handles cart business logic
type Service struct {
	db      *gorm.DB
	config  *config.Config
	logger  *logrus.Logger
	metrics *metrics.Store
}

// NewService creates a new cart service. m may be nil.
func NewService(db *gorm.DB, cfg *config.Config, log *logrus.Logger, m *metrics.Store) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		logger:  logger.OrDiscard(log),
		metrics: m,
	}
}

// AddLineRequest represents add to cart request
type AddLineRequest struct {
	catalog.SelectionRequest
	Quantity int `json:"quantity" binding:"omitempty,min=1,max=999"`
}

// UpdateQuantityRequest represents cart line quantity update request
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=999"`
}

// LineView is a cart line priced at current catalog prices
type LineView struct {
	ID          uint             `json:"id"`
	Kind        catalog.ItemKind `json:"kind"`
	VariantID   *uint            `json:"variant_id,omitempty"`
	AccessoryID *uint            `json:"accessory_id,omitempty"`
	BundleID    *uint            `json:"bundle_id,omitempty"`
	Title       string           `json:"title"`
	Image       string           `json:"image,omitempty"`
	UnitPrice   money.Money      `json:"unit_price"`
	Quantity    int              `json:"quantity"`
	Subtotal    money.Money      `json:"subtotal"`
}

// View is the priced content of a cart
type View struct {
	CartID        uint        `json:"cart_id"`
	Lines         []LineView  `json:"lines"`
	ItemCount     int         `json:"item_count"`
	TotalQuantity int         `json:"total_quantity"`
	Total         money.Money `json:"total"`
}

// LockCart selects the cart of id FOR UPDATE inside tx, creating it first when
// create is set. Without create a missing cart yields ErrNoCart.
func LockCart(tx *gorm.DB, id identity.Identity, create bool) (*Cart, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	if create {
		userID, sessionKey := id.Owner()
		fresh := &Cart{UserID: userID, SessionKey: sessionKey}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error; err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
	}

	query := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if id.IsUser() {
		query = query.Where("user_id = ?", id.UserID())
	} else {
		query = query.Where("session_key = ?", id.SessionKey())
	}

	var cart Cart
	if err := query.First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCart
		}
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return &cart, nil
}

// LoadLines loads the lines of a cart with everything needed to price them
func LoadLines(tx *gorm.DB, cartID uint) ([]CartLine, error) {
	var lines []CartLine
	err := tx.
		Preload("Variant.Product.Images").
		Preload("Variant.Color").
		Preload("Variant.Memory").
		Preload("Accessory").
		Preload("Bundle.Product").
		Preload("Bundle.Accessories").
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart lines: %w", err)
	}
	return lines, nil
}

// DeleteLines empties a cart. The cart row itself is kept.
func DeleteLines(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&CartLine{}).Error; err != nil {
		return fmt.Errorf("failed to delete cart lines: %w", err)
	}
	return nil
}

// GetOrCreate returns the cart of id, creating it on first use
func (s *Service) GetOrCreate(ctx context.Context, id identity.Identity) (*Cart, error) {
	var cart *Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cart, err = LockCart(tx, id, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// View returns the priced content of the cart of id
func (s *Service) View(ctx context.Context, id identity.Identity) (*View, error) {
	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := LockCart(tx, id, true)
		if err != nil {
			return err
		}
		view, err = buildView(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Total returns the cart total at current catalog prices
func (s *Service) Total(ctx context.Context, id identity.Identity) (money.Money, error) {
	if err := id.Validate(); err != nil {
		return money.Zero(), err
	}
	view, err := s.View(ctx, id)
	if err != nil {
		return money.Zero(), err
	}
	return view.Total, nil
}

// AddLine adds a selection to the cart. Adding a selection that is already in
// the cart increases the quantity of the existing line.
func (s *Service) AddLine(ctx context.Context, id identity.Identity, req AddLineRequest) (*View, error) {
	sel, err := req.Selection()
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if err := pricing.CheckQuantity(quantity); err != nil {
		return nil, err
	}

	var view *View
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := LockCart(tx, id, true)
		if err != nil {
			return err
		}

		if _, err := catalog.Resolve(tx, sel); err != nil {
			return err
		}

		if err := addQuantity(tx, cart.ID, sel, quantity, false); err != nil {
			return err
		}

		view, err = buildView(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartMutated("add")
	s.logger.WithFields(logrus.Fields{
		"identity":  id.Key(),
		"selection": sel.Key(),
		"quantity":  quantity,
	}).Debug("cart line added")

	return view, nil
}

// UpdateQuantity replaces the quantity of a line of the cart
func (s *Service) UpdateQuantity(ctx context.Context, id identity.Identity, lineID uint, quantity int) (*View, error) {
	if err := pricing.CheckQuantity(quantity); err != nil {
		return nil, err
	}

	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockExisting(tx, id)
		if err != nil {
			return err
		}

		var line CartLine
		if err := tx.Where("id = ? AND cart_id = ?", lineID, cart.ID).First(&line).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLineNotFound
			}
			return fmt.Errorf("failed to get cart line: %w", err)
		}

		if err := tx.Model(&line).Update("quantity", quantity).Error; err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}

		view, err = buildView(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartMutated("update")
	return view, nil
}

// RemoveLine deletes a line of the cart
func (s *Service) RemoveLine(ctx context.Context, id identity.Identity, lineID uint) (*View, error) {
	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockExisting(tx, id)
		if err != nil {
			return err
		}

		result := tx.Where("id = ? AND cart_id = ?", lineID, cart.ID).Delete(&CartLine{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove cart line: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrLineNotFound
		}

		view, err = buildView(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartMutated("remove")
	return view, nil
}

// Clear deletes every line of the cart. Clearing a cart that was never
// created succeeds.
func (s *Service) Clear(ctx context.Context, id identity.Identity) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := LockCart(tx, id, false)
		if err != nil {
			if errors.Is(err, ErrNoCart) {
				return nil
			}
			return err
		}
		return DeleteLines(tx, cart.ID)
	})
	if err != nil {
		return err
	}

	s.metrics.CartMutated("clear")
	return nil
}

// MergeSessionIntoUser moves the lines of an anonymous cart into the cart of
// a user, adding quantities where both carts hold the same selection
func (s *Service) MergeSessionIntoUser(ctx context.Context, sessionKey string, userID uint) (*View, error) {
	guest := identity.Session(sessionKey)
	if err := guest.Validate(); err != nil {
		return nil, err
	}
	owner := identity.User(userID)

	var view *View
	moved := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userCart, err := LockCart(tx, owner, true)
		if err != nil {
			return err
		}

		guestCart, err := LockCart(tx, guest, false)
		if err != nil && !errors.Is(err, ErrNoCart) {
			return err
		}

		if guestCart != nil {
			var lines []CartLine
			if err := tx.Where("cart_id = ?", guestCart.ID).Order("id ASC").Find(&lines).Error; err != nil {
				return fmt.Errorf("failed to load guest cart lines: %w", err)
			}
			for _, line := range lines {
				if err := addQuantity(tx, userCart.ID, line.Selection(), line.Quantity, true); err != nil {
					return err
				}
			}
			if err := DeleteLines(tx, guestCart.ID); err != nil {
				return err
			}
			moved = len(lines)
		}

		view, err = buildView(tx, userCart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved > 0 {
		s.metrics.CartMutated("merge")
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"lines":   moved,
		}).Info("guest cart merged")
	}

	return view, nil
}

func lockExisting(tx *gorm.DB, id identity.Identity) (*Cart, error) {
	cart, err := LockCart(tx, id, false)
	if errors.Is(err, ErrNoCart) {
		return nil, ErrLineNotFound
	}
	return cart, err
}

// addQuantity adds quantity to the line holding sel, creating it if needed.
// A sum above pricing.MaxQuantity is rejected, or capped when clamp is set.
func addQuantity(tx *gorm.DB, cartID uint, sel catalog.Selection, quantity int, clamp bool) error {
	var existing CartLine
	err := tx.Where("cart_id = ? AND selection_key = ?", cartID, sel.Key()).First(&existing).Error
	switch {
	case err == nil:
		sum := existing.Quantity + quantity
		if sum > pricing.MaxQuantity {
			if !clamp {
				return pricing.ErrQuantityTooLarge.WithDetails(map[string]int{
					"in_cart":   existing.Quantity,
					"requested": quantity,
					"max":       pricing.MaxQuantity,
				})
			}
			sum = pricing.MaxQuantity
		}
		if err := tx.Model(&existing).UpdateColumn("quantity", sum).Error; err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(newLine(cartID, sel, quantity)).Error; err != nil {
			return fmt.Errorf("failed to add cart line: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to get cart line: %w", err)
	}
}

func buildView(tx *gorm.DB, cartID uint) (*View, error) {
	lines, err := LoadLines(tx, cartID)
	if err != nil {
		return nil, err
	}

	view := &View{CartID: cartID, Lines: make([]LineView, 0, len(lines))}
	priced := make([]pricing.Line, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		pl := line.PricingLine()
		unit, err := pricing.UnitPrice(pl)
		if err != nil {
			return nil, err
		}
		subtotal, err := pricing.LineSubtotal(pl)
		if err != nil {
			return nil, err
		}
		priced = append(priced, pl)

		view.Lines = append(view.Lines, LineView{
			ID:          line.ID,
			Kind:        line.Kind,
			VariantID:   line.VariantID,
			AccessoryID: line.AccessoryID,
			BundleID:    line.BundleID,
			Title:       line.Title(),
			Image:       line.Image(),
			UnitPrice:   unit,
			Quantity:    line.Quantity,
			Subtotal:    subtotal,
		})
		view.TotalQuantity += line.Quantity
	}
	view.ItemCount = len(view.Lines)

	view.Total, err = pricing.CartTotal(priced)
	if err != nil {
		return nil, err
	}

	return view, nil
}
