package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/money"
)

func variantLine(price string, qty int) Line {
	return Line{
		Kind:     catalog.KindVariant,
		Variant:  &catalog.ProductVariant{ID: 1, Price: money.MustParse(price)},
		Quantity: qty,
	}
}

func TestLineSubtotalRoundsPerLine(t *testing.T) {
	sub, err := LineSubtotal(variantLine("19.995", 3))
	require.NoError(t, err)
	assert.Equal(t, "60.00", sub.String())

	// Without normalising the unit price first the same line would price lower.
	naive := money.MustParse("19.995").MulInt(3).RoundCents()
	assert.Equal(t, "59.99", naive.String())
}

func TestCartTotalSumsRoundedSubtotals(t *testing.T) {
	lines := []Line{
		variantLine("0.333", 1),
		variantLine("0.333", 1),
		variantLine("0.333", 1),
	}

	total, err := CartTotal(lines)
	require.NoError(t, err)
	assert.Equal(t, "0.99", total.String())

	unrounded := money.MustParse("0.333").MulInt(3).RoundCents()
	assert.Equal(t, "1.00", unrounded.String())
}

func TestUnitPriceUsesOnlyTheTaggedReference(t *testing.T) {
	product := &catalog.Product{ID: 1, Price: money.MustParse("500.00")}
	bundle := &catalog.Bundle{
		ID:        4,
		ProductID: 1,
		Discount:  money.MustParse("30.00"),
		Product:   product,
		Accessories: []catalog.Accessory{
			{ID: 1, Price: money.MustParse("15.00")},
			{ID: 2, Price: money.MustParse("25.50")},
		},
	}
	variant := &catalog.ProductVariant{ID: 9, ProductID: 1, Price: money.MustParse("520.00")}

	unit, err := UnitPrice(Line{Kind: catalog.KindBundle, Bundle: bundle, Variant: variant, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "510.50", unit.String())

	unit, err = UnitPrice(Line{Kind: catalog.KindVariant, Bundle: bundle, Variant: variant, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "520.00", unit.String())

	unit, err = UnitPrice(Line{
		Kind:      catalog.KindAccessory,
		Accessory: &catalog.Accessory{ID: 1, Price: money.MustParse("15.00")},
		Quantity:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "15.00", unit.String())
}

func TestBundlePriceFloorsAtZero(t *testing.T) {
	bundle := &catalog.Bundle{
		Discount: money.MustParse("1000.00"),
		Product:  &catalog.Product{Price: money.MustParse("100.00")},
	}

	unit, err := UnitPrice(Line{Kind: catalog.KindBundle, Bundle: bundle, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, unit.IsZero())
}

func TestMissingReferenceIsInvalidSelection(t *testing.T) {
	_, err := UnitPrice(Line{Kind: catalog.KindAccessory, Variant: &catalog.ProductVariant{}, Quantity: 1})
	assert.True(t, errors.Is(err, catalog.ErrInvalidSelection))

	_, err = UnitPrice(Line{Kind: "gift", Quantity: 1})
	assert.True(t, errors.Is(err, catalog.ErrInvalidSelection))
}

func TestLineSubtotalRejectsNonPositiveQuantity(t *testing.T) {
	_, err := LineSubtotal(variantLine("10.00", 0))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestLineSubtotalRejectsQuantityAboveLimit(t *testing.T) {
	sub, err := LineSubtotal(variantLine("10.00", MaxQuantity))
	require.NoError(t, err)
	assert.Equal(t, "9990.00", sub.String())

	_, err = LineSubtotal(variantLine("10.00", MaxQuantity+1))
	require.Error(t, err)
	assert.Equal(t, ErrQuantityTooLarge.Message(), apperrors.As(err).Message())
}
