package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/catalog/catalogtest"
	"github.com/your-org/storefront-api/internal/domain/favorite"
	"github.com/your-org/storefront-api/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/testdb"
	"gorm.io/gorm"
)

type suite struct {
	db    *gorm.DB
	cache *testdb.MemoryCache
	svc   *catalog.Service
	fx    *catalogtest.Fixture
}

func setup(t *testing.T) *suite {
	t.Helper()
	db := testdb.New(t, postgres.Models()...)
	cache := testdb.NewMemoryCache()
	return &suite{
		db:    db,
		cache: cache,
		svc:   catalog.NewService(db, cache, testdb.Config(), nil),
		fx:    catalogtest.Seed(t, db),
	}
}

func titles(products []catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Title
	}
	return out
}

func TestListProductsHidesUnavailable(t *testing.T) {
	s := setup(t)

	resp, err := s.svc.ListProducts(context.Background(), catalog.ProductListRequest{Ordering: "title"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Nova Lite", "Nova X"}, titles(resp.Products))
	assert.EqualValues(t, 2, resp.Pagination.Total)
}

func TestListProductsPagination(t *testing.T) {
	s := setup(t)

	resp, err := s.svc.ListProducts(context.Background(), catalog.ProductListRequest{Page: 2, PageSize: 1, Ordering: "price"})
	require.NoError(t, err)

	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Nova X", resp.Products[0].Title)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.False(t, resp.Pagination.HasNext)
	assert.True(t, resp.Pagination.HasPrev)
}

func TestListProductsFilterAndSearch(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	resp, err := s.svc.ListProducts(ctx, catalog.ProductListRequest{Category: "smartphones", Search: "LITE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nova Lite"}, titles(resp.Products))

	resp, err = s.svc.ListProducts(ctx, catalog.ProductListRequest{Category: "archive"})
	require.NoError(t, err)
	assert.Empty(t, resp.Products)
}

func TestListProductsOrderedByLikes(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	likes := favorite.NewService(s.db, nil)

	for _, userID := range []uint{1, 2} {
		_, err := likes.ToggleProductLike(ctx, userID, s.fx.Budget.Slug)
		require.NoError(t, err)
	}
	_, err := likes.ToggleProductLike(ctx, 3, s.fx.Phone.Slug)
	require.NoError(t, err)

	resp, err := s.svc.ListProducts(ctx, catalog.ProductListRequest{Ordering: "likes"})
	require.NoError(t, err)

	require.Len(t, resp.Products, 2)
	assert.Equal(t, "Nova Lite", resp.Products[0].Title)
	assert.EqualValues(t, 2, resp.Products[0].LikesCount)
	assert.EqualValues(t, 1, resp.Products[1].LikesCount)
}

func TestListCategories(t *testing.T) {
	s := setup(t)

	categories, err := s.svc.ListCategories(context.Background())
	require.NoError(t, err)

	require.Len(t, categories, 1)
	assert.Equal(t, "smartphones", categories[0].Slug)
	assert.EqualValues(t, 3, categories[0].ProductCount)
}

func TestGetCategoryBySlug(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	detail, err := s.svc.GetCategoryBySlug(ctx, "smartphones")
	require.NoError(t, err)
	assert.Len(t, detail.Products, 2)

	_, err = s.svc.GetCategoryBySlug(ctx, "archive")
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestGetProductBySlugLoadsDetail(t *testing.T) {
	s := setup(t)

	product, err := s.svc.GetProductBySlug(context.Background(), "nova-x")
	require.NoError(t, err)

	require.Len(t, product.Variants, 2)
	assert.Equal(t, "999.00", product.Variants[0].Price.String())
	assert.Equal(t, "Black", product.Variants[0].Color.Name)
	require.Len(t, product.Bundles, 1)
	assert.Equal(t, catalogtest.KitPrice, product.Bundles[0].Total.String())
	assert.Equal(t, "/media/nova.jpg", product.MainImage())
}

func TestGetProductBySlugIsCached(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	_, err := s.svc.GetProductBySlug(ctx, "nova-x")
	require.NoError(t, err)
	assert.True(t, s.cache.Has("catalog:product:nova-x"))

	require.NoError(t, s.db.Model(&catalog.Product{}).Where("id = ?", s.fx.Phone.ID).
		UpdateColumn("title", "Nova X2").Error)

	cached, err := s.svc.GetProductBySlug(ctx, "nova-x")
	require.NoError(t, err)
	assert.Equal(t, "Nova X", cached.Title)
	assert.Equal(t, catalogtest.KitPrice, cached.Bundles[0].Total.String())

	s.svc.InvalidateProduct(ctx, "nova-x")
	fresh, err := s.svc.GetProductBySlug(ctx, "nova-x")
	require.NoError(t, err)
	assert.Equal(t, "Nova X2", fresh.Title)
}

func TestGetProductBySlugUnavailable(t *testing.T) {
	s := setup(t)

	_, err := s.svc.GetProductBySlug(context.Background(), s.fx.Retired.Slug)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestSimilarProducts(t *testing.T) {
	s := setup(t)

	similar, err := s.svc.SimilarProducts(context.Background(), s.fx.Phone.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nova Lite"}, titles(similar))
}

func TestListAccessories(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	all, err := s.svc.ListAccessories(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Cable", all[0].Name)

	cases, err := s.svc.ListAccessories(ctx, "case")
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "29.99", cases[0].Price.String())

	_, err = s.svc.ListAccessories(ctx, "charger")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestResolve(t *testing.T) {
	s := setup(t)

	item, err := catalog.Resolve(s.db, catalog.BundleItem(s.fx.Kit.ID, s.fx.White256.ID))
	require.NoError(t, err)
	require.NotNil(t, item.Bundle.Product)
	assert.Len(t, item.Bundle.Accessories, 2)
	assert.Equal(t, "Nova X 256GB White", item.Variant.Title())

	_, err = catalog.Resolve(s.db, catalog.BundleItem(s.fx.Kit.ID, s.fx.BudgetStd.ID))
	assert.ErrorIs(t, err, catalog.ErrInvalidSelection)

	_, err = catalog.Resolve(s.db, catalog.AccessoryItem(9999))
	assert.ErrorIs(t, err, catalog.ErrInvalidSelection)

	_, err = catalog.Resolve(s.db, catalog.Selection{Kind: catalog.KindVariant})
	assert.ErrorIs(t, err, catalog.ErrInvalidSelection)
}
