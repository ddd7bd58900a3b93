package order_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/catalog/catalogtest"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/promo"
	"github.com/your-org/storefront-api/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"github.com/your-org/storefront-api/internal/pkg/testdb"
	"gorm.io/gorm"
)

type suite struct {
	db     *gorm.DB
	fx     *catalogtest.Fixture
	carts  *cart.Service
	promos *promo.Service
	orders *order.Service
	cache  *testdb.MemoryCache
}

func setup(t *testing.T, policy string) *suite {
	t.Helper()
	return setupOn(t, testdb.New(t, postgres.Models()...), policy)
}

func setupOn(t *testing.T, db *gorm.DB, policy string) *suite {
	t.Helper()
	cfg := testdb.Config()
	cfg.Pricing.DiscountPolicy = policy
	cache := testdb.NewMemoryCache()
	promos := promo.NewService(db, cache, cfg, nil, nil)
	return &suite{
		db:     db,
		fx:     catalogtest.Seed(t, db),
		carts:  cart.NewService(db, cfg, nil, nil),
		promos: promos,
		orders: order.NewService(db, promos, cfg, nil, nil),
		cache:  cache,
	}
}

func uintPtr(v uint) *uint { return &v }

func (s *suite) fillCart(t *testing.T, who identity.Identity) *cart.View {
	t.Helper()
	ctx := context.Background()
	_, err := s.carts.AddLine(ctx, who, cart.AddLineRequest{
		SelectionRequest: catalog.SelectionRequest{VariantID: uintPtr(s.fx.BudgetStd.ID)},
		Quantity:         2,
	})
	require.NoError(t, err)
	_, err = s.carts.AddLine(ctx, who, cart.AddLineRequest{
		SelectionRequest: catalog.SelectionRequest{AccessoryID: uintPtr(s.fx.Glass.ID)},
	})
	require.NoError(t, err)
	view, err := s.carts.AddLine(ctx, who, cart.AddLineRequest{
		SelectionRequest: catalog.SelectionRequest{BundleID: uintPtr(s.fx.Kit.ID), VariantID: uintPtr(s.fx.Black128.ID)},
	})
	require.NoError(t, err)
	return view
}

func (s *suite) seedPromo(t *testing.T, p promo.PromoCode) *promo.PromoCode {
	t.Helper()
	if p.ValidTo.IsZero() {
		p.ValidTo = time.Now().Add(time.Hour)
	}
	p.IsActive = true
	require.NoError(t, s.db.Create(&p).Error)
	return &p
}

func (s *suite) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func request() *order.PlaceOrderRequest {
	return &order.PlaceOrderRequest{Address: "1 Main St", City: "Tashkent", Phone: "+998901234567"}
}

// 2 x 299.00 + 19.99 + 1038.98
const cartTotal = "1656.97"

func TestCheckoutClearsCart(t *testing.T) {
	s := setup(t, "unclamped")
	ctx := context.Background()
	who := identity.User(5)
	before := s.fillCart(t, who)

	placed, err := s.orders.PlaceOrder(ctx, who, request())
	require.NoError(t, err)

	assert.Len(t, placed.Items, len(before.Lines))
	assert.Equal(t, cartTotal, placed.TotalItemsPrice.String())
	assert.Equal(t, cartTotal, placed.TotalPrice.String())
	assert.True(t, placed.DiscountAmount.IsZero())
	assert.Equal(t, order.OrderStatusPending, placed.Status)
	assert.Equal(t, order.ContactPhone, placed.ContactMethod)
	assert.Equal(t, order.PaymentCash, placed.PaymentMethod)

	after, err := s.carts.View(ctx, who)
	require.NoError(t, err)
	assert.Empty(t, after.Lines)
	assert.Equal(t, before.CartID, after.CartID)

	stored, err := s.orders.GetOrder(ctx, who, placed.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 3)
	assert.Equal(t, "598.00", stored.Items[0].Subtotal.String())
	assert.Equal(t, catalog.KindBundle, stored.Items[2].Kind)
	assert.Equal(t, catalogtest.KitPrice, stored.Items[2].Price.String())
	assert.Equal(t, cartTotal, stored.TotalPrice.String())
	require.Len(t, stored.StatusHistory, 1)
}

func TestOrderKeepsPricesWhenCatalogChanges(t *testing.T) {
	s := setup(t, "unclamped")
	ctx := context.Background()
	who := identity.Session("guest")
	s.fillCart(t, who)

	placed, err := s.orders.PlaceOrder(ctx, who, request())
	require.NoError(t, err)

	require.NoError(t, s.db.Model(&catalog.ProductVariant{}).Where("id = ?", s.fx.BudgetStd.ID).
		Update("price", money.MustParse("1.00")).Error)

	stored, err := s.orders.GetOrder(ctx, who, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "299.00", stored.Items[0].Price.String())
}

func TestEmptyCartIsRejected(t *testing.T) {
	s := setup(t, "unclamped")
	ctx := context.Background()

	_, err := s.orders.PlaceOrder(ctx, identity.User(9), request())
	assert.ErrorIs(t, err, order.ErrEmptyCart)

	_, err = s.carts.GetOrCreate(ctx, identity.User(9))
	require.NoError(t, err)
	_, err = s.orders.PlaceOrder(ctx, identity.User(9), request())
	assert.Equal(t, apperrors.CodeEmptyCart, apperrors.CodeOf(err))

	_, err = s.orders.PlaceOrder(ctx, identity.Identity{}, request())
	assert.ErrorIs(t, err, identity.ErrIdentityRequired)
}

func TestInvalidPromoRollsBackEverything(t *testing.T) {
	s := setup(t, "unclamped")
	ctx := context.Background()
	who := identity.User(5)
	before := s.fillCart(t, who)

	limit := 1
	exhausted := s.seedPromo(t, promo.PromoCode{
		Code: "GONE", DiscountType: promo.DiscountFixed, Amount: money.FromInt(5), UsageLimit: &limit, UsedCount: 1,
	})
	s.seedPromo(t, promo.PromoCode{
		Code: "BIGSPEND", DiscountType: promo.DiscountFixed, Amount: money.FromInt(5), MinOrderAmount: money.FromInt(5000),
	})

	for _, code := range []string{"NOSUCHCODE", "gone", "BIGSPEND"} {
		req := request()
		req.PromoCode = code
		_, err := s.orders.PlaceOrder(ctx, who, req)
		assert.ErrorIs(t, err, promo.ErrInvalidPromoCode, code)
	}

	assert.Zero(t, s.count(t, &order.Order{}))
	assert.Zero(t, s.count(t, &order.OrderItem{}))
	assert.Zero(t, s.count(t, &order.OrderStatusHistory{}))

	after, err := s.carts.View(ctx, who)
	require.NoError(t, err)
	require.Len(t, after.Lines, len(before.Lines))
	for i := range before.Lines {
		assert.Equal(t, before.Lines[i].ID, after.Lines[i].ID)
		assert.Equal(t, before.Lines[i].Quantity, after.Lines[i].Quantity)
	}
	assert.Equal(t, cartTotal, after.Total.String())

	var reloaded promo.PromoCode
	require.NoError(t, s.db.First(&reloaded, exhausted.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestPromoAppliedInsideTransaction(t *testing.T) {
	s := setup(t, "unclamped")
	ctx := context.Background()
	who := identity.User(5)
	s.fillCart(t, who)
	code := s.seedPromo(t, promo.PromoCode{Code: "Save10", DiscountType: promo.DiscountPercent, Amount: money.FromInt(10)})

	_, err := s.promos.Preview(ctx, who, "save10", money.MustParse(cartTotal))
	require.NoError(t, err)
	require.True(t, s.cache.Has("promo:preview:user:5"))

	req := request()
	req.PromoCode = " SAVE10 "
	placed, err := s.orders.PlaceOrder(ctx, who, req)
	require.NoError(t, err)

	// 1656.97 * 0.9 = 1491.273
	assert.Equal(t, "1491.27", placed.TotalPrice.String())
	assert.Equal(t, "165.70", placed.DiscountAmount.String())
	assert.Equal(t, "SAVE10", placed.PromoCode)
	assert.False(t, s.cache.Has("promo:preview:user:5"))

	stored, err := s.orders.GetOrder(ctx, who, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", stored.PromoCode)

	var reloaded promo.PromoCode
	require.NoError(t, s.db.First(&reloaded, code.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestFixedPromoLargerThanTotal(t *testing.T) {
	for _, tc := range []struct {
		policy string
		total  string
	}{
		{"unclamped", "-343.03"},
		{"floor_zero", "0.00"},
	} {
		t.Run(tc.policy, func(t *testing.T) {
			s := setup(t, tc.policy)
			who := identity.User(5)
			s.fillCart(t, who)
			s.seedPromo(t, promo.PromoCode{Code: "HUGE", DiscountType: promo.DiscountFixed, Amount: money.FromInt(2000)})

			req := request()
			req.PromoCode = "HUGE"
			placed, err := s.orders.PlaceOrder(context.Background(), who, req)
			require.NoError(t, err)
			assert.Equal(t, tc.total, placed.TotalPrice.String())
		})
	}
}

func TestUnknownDeliveryOptionRollsBack(t *testing.T) {
	s := setup(t, "unclamped")
	who := identity.User(5)
	s.fillCart(t, who)

	req := request()
	req.DeliveryOptionID = uintPtr(404)
	_, err := s.orders.PlaceOrder(context.Background(), who, req)
	assert.ErrorIs(t, err, order.ErrDeliveryOptionNotFound)
	assert.Zero(t, s.count(t, &order.Order{}))
	assert.EqualValues(t, 3, s.count(t, &cart.CartLine{}))
}

func TestOrdersAreVisibleOnlyToTheirOwner(t *testing.T) {
	s := setup(t, "unclamped")
	ctx := context.Background()
	owner := identity.Session("owner")
	s.fillCart(t, owner)

	placed, err := s.orders.PlaceOrder(ctx, owner, request())
	require.NoError(t, err)

	list, err := s.orders.ListOrders(ctx, owner, order.OrderListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Len(t, list.Orders[0].Items, 3)

	_, err = s.orders.GetOrder(ctx, identity.Session("other"), placed.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	others, err := s.orders.ListOrders(ctx, identity.User(1), order.OrderListRequest{})
	require.NoError(t, err)
	assert.Empty(t, others.Orders)

	all, err := s.orders.ListAllOrders(ctx, order.OrderListRequest{Status: "pending"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, all.Pagination.Total)
}

func TestStatusTransitions(t *testing.T) {
	s := setup(t, "unclamped")
	ctx := context.Background()
	who := identity.User(5)
	s.fillCart(t, who)
	placed, err := s.orders.PlaceOrder(ctx, who, request())
	require.NoError(t, err)

	admin := uintPtr(1)
	_, err = s.orders.UpdateStatus(ctx, placed.ID, order.UpdateStatusRequest{Status: order.OrderStatusDelivered}, admin)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	updated, err := s.orders.UpdateStatus(ctx, placed.ID, order.UpdateStatusRequest{Status: order.OrderStatusInProgress}, admin)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusInProgress, updated.Status)

	_, err = s.orders.UpdateStatus(ctx, placed.ID, order.UpdateStatusRequest{Status: order.OrderStatusDelivered, Comment: "handed over"}, admin)
	require.NoError(t, err)

	_, err = s.orders.UpdateStatus(ctx, placed.ID, order.UpdateStatusRequest{Status: order.OrderStatusCanceled}, admin)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = s.orders.UpdateStatus(ctx, 9999, order.UpdateStatusRequest{Status: order.OrderStatusCanceled}, admin)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	stored, err := s.orders.GetOrder(ctx, who, placed.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusHistory, 3)
	assert.Equal(t, order.OrderStatusDelivered, stored.StatusHistory[2].Status)
}

func TestStatusTable(t *testing.T) {
	assert.True(t, order.OrderStatusPending.CanTransitionTo(order.OrderStatusCanceled))
	assert.True(t, order.OrderStatusInProgress.CanTransitionTo(order.OrderStatusCanceled))
	assert.False(t, order.OrderStatusDelivered.CanTransitionTo(order.OrderStatusCanceled))
	assert.False(t, order.OrderStatusCanceled.CanTransitionTo(order.OrderStatusPending))
	assert.False(t, order.OrderStatusPending.CanTransitionTo(order.OrderStatusPending))
}

func TestListDeliveryOptionsByPriority(t *testing.T) {
	s := setup(t, "unclamped")
	require.NoError(t, s.db.Create(&[]order.DeliveryOption{
		{Name: "Slow", DeliveryTime: "7 days", Cost: money.Zero(), Priority: 5},
		{Name: "Fast", DeliveryTime: "1 day", Cost: money.MustParse("9.99"), Priority: 1},
	}).Error)

	options, err := s.orders.ListDeliveryOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "Fast", options[0].Name)
}

// Lines added while an order is being placed either make it into the order
// or stay in the cart. None are lost and none are counted twice.
func TestPlaceOrderRacingAddLine(t *testing.T) {
	for name, open := range testdb.Concurrent(t, postgres.Models()...) {
		t.Run(name, func(t *testing.T) {
			s := setupOn(t, open(t), "unclamped")
			ctx := context.Background()
			who := identity.Session("racing-guest")

			_, err := s.carts.AddLine(ctx, who, cart.AddLineRequest{
				SelectionRequest: catalog.SelectionRequest{VariantID: uintPtr(s.fx.BudgetStd.ID)},
				Quantity:         2,
			})
			require.NoError(t, err)

			const adders = 6
			start := make(chan struct{})
			var wg sync.WaitGroup
			var placed *order.Order
			var placeErr error

			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				placed, placeErr = s.orders.PlaceOrder(ctx, who, request())
			}()
			for i := 0; i < adders; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := s.carts.AddLine(ctx, who, cart.AddLineRequest{
						SelectionRequest: catalog.SelectionRequest{AccessoryID: uintPtr(s.fx.Glass.ID)},
					})
					assert.NoError(t, err)
				}()
			}
			close(start)
			wg.Wait()

			require.NoError(t, placeErr)
			stored, err := s.orders.GetOrder(ctx, who, placed.ID)
			require.NoError(t, err)

			ordered := map[catalog.ItemKind]int{}
			itemsTotal := money.Zero()
			for _, item := range stored.Items {
				ordered[item.Kind] += item.Quantity
				itemsTotal = itemsTotal.Add(item.Subtotal)
			}
			assert.Equal(t, 2, ordered[catalog.KindVariant])
			assert.Equal(t, itemsTotal.String(), stored.TotalItemsPrice.String())
			assert.Equal(t, itemsTotal.String(), stored.TotalPrice.String())

			view, err := s.carts.View(ctx, who)
			require.NoError(t, err)
			inCart := 0
			for _, line := range view.Lines {
				assert.Equal(t, catalog.KindAccessory, line.Kind)
				inCart += line.Quantity
			}
			assert.Equal(t, adders, ordered[catalog.KindAccessory]+inCart)
		})
	}
}
