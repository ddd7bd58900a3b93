// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/pricing"
)

// Cart belongs to exactly one user or one anonymous session
type Cart struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     *uint      `gorm:"uniqueIndex;check:chk_carts_owner,(user_id IS NULL) <> (session_key IS NULL)" json:"user_id,omitempty"`
	SessionKey *string    `gorm:"uniqueIndex;size:64" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Lines      []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE;" json:"lines,omitempty"`
}

// CartLine is one selection in a cart. Only the references matching Kind are set.
type CartLine struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	CartID       uint             `gorm:"not null;uniqueIndex:idx_cart_line_selection" json:"cart_id"`
	Kind         catalog.ItemKind `gorm:"size:20;not null" json:"kind"`
	SelectionKey string           `gorm:"size:100;not null;uniqueIndex:idx_cart_line_selection" json:"-"`
	VariantID    *uint            `gorm:"index" json:"variant_id,omitempty"`
	AccessoryID  *uint            `gorm:"index" json:"accessory_id,omitempty"`
	BundleID     *uint            `gorm:"index" json:"bundle_id,omitempty"`
	Quantity     int              `gorm:"not null" json:"quantity"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Variant   *catalog.ProductVariant `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE;" json:"variant,omitempty"`
	Accessory *catalog.Accessory      `gorm:"foreignKey:AccessoryID;constraint:OnDelete:CASCADE;" json:"accessory,omitempty"`
	Bundle    *catalog.Bundle         `gorm:"foreignKey:BundleID;constraint:OnDelete:CASCADE;" json:"bundle,omitempty"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartLine) TableName() string {
	return "cart_lines"
}

func newLine(cartID uint, sel catalog.Selection, quantity int) *CartLine {
	line := &CartLine{
		CartID:       cartID,
		Kind:         sel.Kind,
		SelectionKey: sel.Key(),
		Quantity:     quantity,
	}
	if sel.VariantID != 0 {
		id := sel.VariantID
		line.VariantID = &id
	}
	if sel.AccessoryID != 0 {
		id := sel.AccessoryID
		line.AccessoryID = &id
	}
	if sel.BundleID != 0 {
		id := sel.BundleID
		line.BundleID = &id
	}
	return line
}

// Selection rebuilds the tagged selection the line was created from
func (l *CartLine) Selection() catalog.Selection {
	sel := catalog.Selection{Kind: l.Kind}
	if l.VariantID != nil {
		sel.VariantID = *l.VariantID
	}
	if l.AccessoryID != nil {
		sel.AccessoryID = *l.AccessoryID
	}
	if l.BundleID != nil {
		sel.BundleID = *l.BundleID
	}
	return sel
}

// PricingLine adapts the line for the pricing functions
func (l *CartLine) PricingLine() pricing.Line {
	return pricing.Line{
		Kind:      l.Kind,
		Variant:   l.Variant,
		Accessory: l.Accessory,
		Bundle:    l.Bundle,
		Quantity:  l.Quantity,
	}
}

// Title is the display name of what the line refers to
func (l *CartLine) Title() string {
	switch l.Kind {
	case catalog.KindBundle:
		if l.Bundle == nil {
			return ""
		}
		if l.Variant != nil {
			return l.Bundle.Title() + " (" + l.Variant.Title() + ")"
		}
		return l.Bundle.Title()
	case catalog.KindAccessory:
		if l.Accessory != nil {
			return l.Accessory.Name
		}
	case catalog.KindVariant:
		if l.Variant != nil {
			return l.Variant.Title()
		}
	}
	return ""
}

// Image is the picture shown next to the line
func (l *CartLine) Image() string {
	switch {
	case l.Kind == catalog.KindAccessory && l.Accessory != nil:
		return l.Accessory.Image
	case l.Variant != nil && l.Variant.Product != nil:
		return l.Variant.Product.MainImage()
	}
	return ""
}
