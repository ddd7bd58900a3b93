package cart_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/catalog/catalogtest"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/pricing"
	"github.com/your-org/storefront-api/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/testdb"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*cart.Service, *gorm.DB, *catalogtest.Fixture) {
	t.Helper()
	db := testdb.New(t, postgres.Models()...)
	fx := catalogtest.Seed(t, db)
	return cart.NewService(db, testdb.Config(), nil, nil), db, fx
}

func uintPtr(v uint) *uint { return &v }

func variantReq(id uint, qty int) cart.AddLineRequest {
	return cart.AddLineRequest{
		SelectionRequest: catalog.SelectionRequest{VariantID: uintPtr(id)},
		Quantity:         qty,
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	who := identity.Session("guest-1")

	first, err := svc.GetOrCreate(ctx, who)
	require.NoError(t, err)
	second, err := svc.GetOrCreate(ctx, who)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&cart.Cart{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	userCart, err := svc.GetOrCreate(ctx, identity.User(7))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, userCart.ID)
}

func TestCartRequiresIdentity(t *testing.T) {
	svc, _, fx := setup(t)

	_, err := svc.AddLine(context.Background(), identity.Identity{}, variantReq(fx.Black128.ID, 1))
	assert.ErrorIs(t, err, identity.ErrIdentityRequired)
}

func TestReAddingSelectionAccumulatesQuantity(t *testing.T) {
	svc, db, fx := setup(t)
	ctx := context.Background()
	who := identity.User(1)

	_, err := svc.AddLine(ctx, who, variantReq(fx.Black128.ID, 2))
	require.NoError(t, err)
	view, err := svc.AddLine(ctx, who, variantReq(fx.Black128.ID, 3))
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 5, view.Lines[0].Quantity)
	assert.Equal(t, "4995.00", view.Total.String())

	var lines int64
	require.NoError(t, db.Model(&cart.CartLine{}).Count(&lines).Error)
	assert.EqualValues(t, 1, lines)
}

func TestBundleLinesAreScopedByVariant(t *testing.T) {
	svc, _, fx := setup(t)
	ctx := context.Background()
	who := identity.Session("guest-2")

	bundle := func(variantID uint) cart.AddLineRequest {
		return cart.AddLineRequest{SelectionRequest: catalog.SelectionRequest{
			BundleID:  uintPtr(fx.Kit.ID),
			VariantID: uintPtr(variantID),
		}}
	}

	_, err := svc.AddLine(ctx, who, bundle(fx.Black128.ID))
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, who, bundle(fx.White256.ID))
	require.NoError(t, err)
	view, err := svc.AddLine(ctx, who, variantReq(fx.Black128.ID, 1))
	require.NoError(t, err)

	require.Len(t, view.Lines, 3)
	assert.Equal(t, catalog.KindBundle, view.Lines[0].Kind)
	assert.Equal(t, catalogtest.KitPrice, view.Lines[0].UnitPrice.String())
	assert.Equal(t, catalog.KindVariant, view.Lines[2].Kind)
	assert.Equal(t, "3076.96", view.Total.String())
	assert.Equal(t, 3, view.ItemCount)
}

func TestAddLineRejectsInvalidSelections(t *testing.T) {
	svc, _, fx := setup(t)
	ctx := context.Background()
	who := identity.User(1)

	cases := map[string]catalog.SelectionRequest{
		"nothing selected":         {},
		"accessory with variant":   {AccessoryID: uintPtr(fx.Glass.ID), VariantID: uintPtr(fx.Black128.ID)},
		"bundle without variant":   {BundleID: uintPtr(fx.Kit.ID)},
		"bundle of other product":  {BundleID: uintPtr(fx.Kit.ID), VariantID: uintPtr(fx.BudgetStd.ID)},
		"variant does not exist":   {VariantID: uintPtr(9999)},
		"accessory does not exist": {AccessoryID: uintPtr(9999)},
	}
	for name, sel := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddLine(ctx, who, cart.AddLineRequest{SelectionRequest: sel})
			assert.Equal(t, apperrors.CodeInvalidSelection, apperrors.CodeOf(err))
		})
	}

	view, err := svc.View(ctx, who)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestAddLineRejectsNegativeQuantity(t *testing.T) {
	svc, _, fx := setup(t)

	_, err := svc.AddLine(context.Background(), identity.User(1), variantReq(fx.Black128.ID, -1))
	assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)
}

func TestQuantityIsBounded(t *testing.T) {
	svc, db, fx := setup(t)
	ctx := context.Background()
	who := identity.User(1)

	for _, qty := range []int{pricing.MaxQuantity + 1, math.MaxInt} {
		_, err := svc.AddLine(ctx, who, variantReq(fx.Black128.ID, qty))
		assert.ErrorIs(t, err, pricing.ErrQuantityTooLarge)
	}
	var lines int64
	require.NoError(t, db.Model(&cart.CartLine{}).Count(&lines).Error)
	assert.Zero(t, lines)

	view, err := svc.AddLine(ctx, who, variantReq(fx.Black128.ID, pricing.MaxQuantity))
	require.NoError(t, err)
	lineID := view.Lines[0].ID

	_, err = svc.AddLine(ctx, who, variantReq(fx.Black128.ID, 1))
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]int{"in_cart": pricing.MaxQuantity, "requested": 1, "max": pricing.MaxQuantity}, typed.Details())

	_, err = svc.UpdateQuantity(ctx, who, lineID, pricing.MaxQuantity+1)
	assert.ErrorIs(t, err, pricing.ErrQuantityTooLarge)

	view, err = svc.View(ctx, who)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, pricing.MaxQuantity, view.Lines[0].Quantity)
}

func TestUpdateQuantityReplaces(t *testing.T) {
	svc, _, fx := setup(t)
	ctx := context.Background()
	who := identity.User(1)

	view, err := svc.AddLine(ctx, who, cart.AddLineRequest{
		SelectionRequest: catalog.SelectionRequest{AccessoryID: uintPtr(fx.Glass.ID)},
		Quantity:         4,
	})
	require.NoError(t, err)
	lineID := view.Lines[0].ID

	view, err = svc.UpdateQuantity(ctx, who, lineID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, "39.98", view.Total.String())

	_, err = svc.UpdateQuantity(ctx, who, lineID, 0)
	assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)
}

func TestForeignLinesAreNotFound(t *testing.T) {
	svc, _, fx := setup(t)
	ctx := context.Background()
	owner := identity.User(1)
	stranger := identity.Session("someone-else")

	view, err := svc.AddLine(ctx, owner, variantReq(fx.Black128.ID, 1))
	require.NoError(t, err)
	lineID := view.Lines[0].ID

	_, err = svc.UpdateQuantity(ctx, stranger, lineID, 3)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)

	_, err = svc.GetOrCreate(ctx, stranger)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, stranger, lineID, 3)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
	_, err = svc.RemoveLine(ctx, stranger, lineID)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)

	view, err = svc.View(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 1, view.Lines[0].Quantity)
}

func TestRemoveLineAndClear(t *testing.T) {
	svc, _, fx := setup(t)
	ctx := context.Background()
	who := identity.User(1)

	_, err := svc.AddLine(ctx, who, variantReq(fx.Black128.ID, 1))
	require.NoError(t, err)
	view, err := svc.AddLine(ctx, who, variantReq(fx.BudgetStd.ID, 1))
	require.NoError(t, err)

	view, err = svc.RemoveLine(ctx, who, view.Lines[0].ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "299.00", view.Total.String())

	require.NoError(t, svc.Clear(ctx, who))
	total, err := svc.Total(ctx, who)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	require.NoError(t, svc.Clear(ctx, identity.Session("never-seen")))
	assert.ErrorIs(t, svc.Clear(ctx, identity.Identity{}), identity.ErrIdentityRequired)
}

func TestMergeSessionIntoUser(t *testing.T) {
	svc, _, fx := setup(t)
	ctx := context.Background()
	guest := identity.Session("guest-3")
	user := identity.User(42)

	_, err := svc.AddLine(ctx, guest, variantReq(fx.Black128.ID, 2))
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, guest, cart.AddLineRequest{
		SelectionRequest: catalog.SelectionRequest{AccessoryID: uintPtr(fx.Cable.ID)},
	})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, user, variantReq(fx.Black128.ID, 1))
	require.NoError(t, err)

	view, err := svc.MergeSessionIntoUser(ctx, "guest-3", 42)
	require.NoError(t, err)

	require.Len(t, view.Lines, 2)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.Equal(t, catalog.KindAccessory, view.Lines[1].Kind)

	guestView, err := svc.View(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, guestView.Lines)
}

func TestMergeCapsQuantityAtLimit(t *testing.T) {
	svc, _, fx := setup(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, identity.Session("guest-4"), variantReq(fx.Black128.ID, pricing.MaxQuantity))
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, identity.User(43), variantReq(fx.Black128.ID, 5))
	require.NoError(t, err)

	view, err := svc.MergeSessionIntoUser(ctx, "guest-4", 43)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, pricing.MaxQuantity, view.Lines[0].Quantity)
}
