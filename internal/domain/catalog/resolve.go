// internal/domain/catalog/resolve.go
package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Item is a selection with the catalog rows it refers to loaded
type Item struct {
	Selection Selection
	Variant   *ProductVariant
	Accessory *Accessory
	Bundle    *Bundle
}

// Resolve loads the rows named by sel inside tx. Every id the selection names
// must exist, and a bundle must belong to the product of its variant.
func Resolve(tx *gorm.DB, sel Selection) (*Item, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	item := &Item{Selection: sel}

	if sel.VariantID != 0 {
		var variant ProductVariant
		err := tx.Preload("Product").Preload("Color").Preload("Memory").First(&variant, sel.VariantID).Error
		if err != nil {
			return nil, lookupError(err, "variant", sel.VariantID)
		}
		item.Variant = &variant
	}

	if sel.AccessoryID != 0 {
		var accessory Accessory
		if err := tx.First(&accessory, sel.AccessoryID).Error; err != nil {
			return nil, lookupError(err, "accessory", sel.AccessoryID)
		}
		item.Accessory = &accessory
	}

	if sel.BundleID != 0 {
		var bundle Bundle
		err := tx.Preload("Product").Preload("Accessories").First(&bundle, sel.BundleID).Error
		if err != nil {
			return nil, lookupError(err, "bundle", sel.BundleID)
		}
		if item.Variant == nil || bundle.ProductID != item.Variant.ProductID {
			return nil, ErrInvalidSelection.WithMessage(
				fmt.Sprintf("bundle %d does not belong to the product of variant %d", sel.BundleID, sel.VariantID))
		}
		item.Bundle = &bundle
	}

	return item, nil
}

func lookupError(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidSelection.WithMessage(fmt.Sprintf("%s %d does not exist", what, id))
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}
