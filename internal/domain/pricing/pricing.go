// internal/domain/pricing/pricing.go
package pricing

import (
	"fmt"

	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/money"
)

// MaxQuantity caps the quantity of a single line. It keeps subtotals inside
// the numeric(10,2) order columns and quantities far from int overflow.
const MaxQuantity = 999

var (
	// ErrInvalidQuantity is returned for lines with a quantity below one
	ErrInvalidQuantity = apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	// ErrQuantityTooLarge is returned for lines above MaxQuantity
	ErrQuantityTooLarge = apperrors.New(apperrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", MaxQuantity))
)

// CheckQuantity reports whether quantity is allowed on a single line
func CheckQuantity(quantity int) error {
	switch {
	case quantity < 1:
		return ErrInvalidQuantity
	case quantity > MaxQuantity:
		return ErrQuantityTooLarge
	}
	return nil
}

// Line is anything priced per unit: a cart line or a line being converted
// into an order item. Only the reference matching Kind is consulted.
type Line struct {
	Kind      catalog.ItemKind
	Variant   *catalog.ProductVariant
	Accessory *catalog.Accessory
	Bundle    *catalog.Bundle
	Quantity  int
}

// UnitPrice returns the current catalog price of one unit, at the storage
// scale. Bundles need their Product and Accessories loaded.
func UnitPrice(l Line) (money.Money, error) {
	switch l.Kind {
	case catalog.KindBundle:
		if l.Bundle == nil {
			return money.Zero(), missingReference(l.Kind)
		}
		if l.Bundle.Product == nil {
			return money.Zero(), fmt.Errorf("bundle %d loaded without its product", l.Bundle.ID)
		}
		return l.Bundle.TotalPrice().RoundCents(), nil
	case catalog.KindAccessory:
		if l.Accessory == nil {
			return money.Zero(), missingReference(l.Kind)
		}
		return l.Accessory.Price.RoundCents(), nil
	case catalog.KindVariant:
		if l.Variant == nil {
			return money.Zero(), missingReference(l.Kind)
		}
		return l.Variant.Price.RoundCents(), nil
	}
	return money.Zero(), catalog.ErrInvalidSelection.WithMessage(fmt.Sprintf("unknown item kind %q", l.Kind))
}

// LineSubtotal is the unit price times quantity, rounded half-up to cents
func LineSubtotal(l Line) (money.Money, error) {
	if err := CheckQuantity(l.Quantity); err != nil {
		return money.Zero(), err
	}
	unit, err := UnitPrice(l)
	if err != nil {
		return money.Zero(), err
	}
	return Subtotal(unit, l.Quantity), nil
}

// Subtotal multiplies an already-known unit price by quantity and rounds once
func Subtotal(unit money.Money, quantity int) money.Money {
	return unit.MulInt(quantity).RoundCents()
}

// CartTotal sums the per-line subtotals. Each addend is already rounded, so
// the sum is not rounded again.
func CartTotal(lines []Line) (money.Money, error) {
	total := money.Zero()
	for _, l := range lines {
		sub, err := LineSubtotal(l)
		if err != nil {
			return money.Zero(), err
		}
		total = total.Add(sub)
	}
	return total, nil
}

func missingReference(kind catalog.ItemKind) error {
	return catalog.ErrInvalidSelection.WithMessage(fmt.Sprintf("%s line has no %s loaded", kind, kind))
}
