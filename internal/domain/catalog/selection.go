// internal/domain/catalog/selection.go
package catalog

import (
	"fmt"

	"github.com/your-org/storefront-api/internal/pkg/apperrors"
)

// ErrInvalidSelection is returned when a selection does not name a purchasable item
var ErrInvalidSelection = apperrors.New(apperrors.CodeInvalidSelection, "selection does not name a valid catalog item")

// ItemKind tags what a cart line or order item refers to
type ItemKind string

const (
	KindVariant   ItemKind = "variant"
	KindAccessory ItemKind = "accessory"
	KindBundle    ItemKind = "bundle"
)

// Valid reports whether k is a known kind
func (k ItemKind) Valid() bool {
	switch k {
	case KindVariant, KindAccessory, KindBundle:
		return true
	}
	return false
}

// Selection names exactly one purchasable item. A bundle is always scoped by
// the variant the customer picked for the bundle's product.
type Selection struct {
	Kind        ItemKind
	VariantID   uint
	AccessoryID uint
	BundleID    uint
}

// VariantItem selects a product variant
func VariantItem(variantID uint) Selection {
	return Selection{Kind: KindVariant, VariantID: variantID}
}

// AccessoryItem selects an accessory
func AccessoryItem(accessoryID uint) Selection {
	return Selection{Kind: KindAccessory, AccessoryID: accessoryID}
}

// BundleItem selects a bundle together with a variant of the bundle's product
func BundleItem(bundleID, variantID uint) Selection {
	return Selection{Kind: KindBundle, BundleID: bundleID, VariantID: variantID}
}

// Validate checks the shape of the selection without touching the store
func (s Selection) Validate() error {
	switch s.Kind {
	case KindVariant:
		if s.VariantID == 0 || s.AccessoryID != 0 || s.BundleID != 0 {
			return ErrInvalidSelection.WithMessage("variant selection must name only a variant")
		}
	case KindAccessory:
		if s.AccessoryID == 0 || s.VariantID != 0 || s.BundleID != 0 {
			return ErrInvalidSelection.WithMessage("accessory selection must name only an accessory")
		}
	case KindBundle:
		if s.BundleID == 0 || s.VariantID == 0 || s.AccessoryID != 0 {
			return ErrInvalidSelection.WithMessage("bundle selection must name a bundle and a variant")
		}
	default:
		return ErrInvalidSelection.WithMessage(fmt.Sprintf("unknown item kind %q", s.Kind))
	}
	return nil
}

// Key is the identity of the selection inside one cart. Re-adding a selection
// with the same key accumulates quantity on the existing line.
func (s Selection) Key() string {
	switch s.Kind {
	case KindVariant:
		return fmt.Sprintf("variant:%d", s.VariantID)
	case KindAccessory:
		return fmt.Sprintf("accessory:%d", s.AccessoryID)
	case KindBundle:
		return fmt.Sprintf("bundle:%d/variant:%d", s.BundleID, s.VariantID)
	}
	return ""
}

// SelectionRequest is the loosely-typed form clients send: any combination of ids
type SelectionRequest struct {
	VariantID   *uint `json:"variant_id"`
	BundleID    *uint `json:"bundle_id"`
	AccessoryID *uint `json:"accessory_id"`
}

// Selection converts the request into a tagged selection. An accessory cannot
// be combined with a variant or bundle, and a bundle needs a variant.
func (r SelectionRequest) Selection() (Selection, error) {
	variantID := deref(r.VariantID)
	bundleID := deref(r.BundleID)
	accessoryID := deref(r.AccessoryID)

	switch {
	case accessoryID != 0 && (variantID != 0 || bundleID != 0):
		return Selection{}, ErrInvalidSelection.WithMessage("accessory cannot be combined with a variant or bundle")
	case bundleID != 0 && variantID == 0:
		return Selection{}, ErrInvalidSelection.WithMessage("bundle requires a variant of the bundled product")
	case bundleID != 0:
		return BundleItem(bundleID, variantID), nil
	case accessoryID != 0:
		return AccessoryItem(accessoryID), nil
	case variantID != 0:
		return VariantItem(variantID), nil
	}
	return Selection{}, ErrInvalidSelection.WithMessage("no variant, bundle or accessory selected")
}

func deref(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}
