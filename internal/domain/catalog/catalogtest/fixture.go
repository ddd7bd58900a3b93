// Package catalogtest seeds a small catalog for package tests.
package catalogtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
)

// Fixture holds the seeded rows
type Fixture struct {
	Phones  catalog.Category
	Hidden  catalog.Category
	Phone   catalog.Product
	Budget  catalog.Product
	Retired catalog.Product

	Black128  catalog.ProductVariant
	White256  catalog.ProductVariant
	BudgetStd catalog.ProductVariant

	Glass catalog.Accessory
	Case  catalog.Accessory
	Cable catalog.Accessory

	// Kit is a bundle of Phone with Glass and Case, 10.00 off
	Kit catalog.Bundle
	// BudgetKit is a bundle of Budget with Cable
	BudgetKit catalog.Bundle
}

// Seed creates the fixture catalog in db
func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{}

	f.Phones = catalog.Category{Name: "Smartphones", IsActive: true, SortOrder: 1}
	f.Hidden = catalog.Category{Name: "Archive", IsActive: false, SortOrder: 2}
	require.NoError(t, db.Create(&f.Phones).Error)
	require.NoError(t, db.Create(&f.Hidden).Error)

	black := catalog.Color{Name: "Black", HexCode: "#000000"}
	white := catalog.Color{Name: "White", HexCode: "#FFFFFF"}
	require.NoError(t, db.Create(&black).Error)
	require.NoError(t, db.Create(&white).Error)

	m128 := catalog.MemoryOption{Size: "128GB"}
	m256 := catalog.MemoryOption{Size: "256GB"}
	require.NoError(t, db.Create(&m128).Error)
	require.NoError(t, db.Create(&m256).Error)

	f.Phone = catalog.Product{
		CategoryID: f.Phones.ID, Title: "Nova X", ShortDescription: "flagship phone",
		Price: money.MustParse("999.00"), IsAvailable: true, IsFeatured: true,
		Images: []catalog.ProductImage{{URL: "/media/nova.jpg", IsMain: true}},
	}
	f.Budget = catalog.Product{
		CategoryID: f.Phones.ID, Title: "Nova Lite", ShortDescription: "budget phone",
		Price: money.MustParse("299.00"), IsAvailable: true,
	}
	f.Retired = catalog.Product{
		CategoryID: f.Phones.ID, Title: "Nova Classic", ShortDescription: "discontinued",
		Price: money.MustParse("99.00"), IsAvailable: false,
	}
	for _, p := range []*catalog.Product{&f.Phone, &f.Budget, &f.Retired} {
		require.NoError(t, db.Create(p).Error)
	}

	f.Black128 = catalog.ProductVariant{ProductID: f.Phone.ID, ColorID: black.ID, MemoryID: m128.ID, Price: money.MustParse("999.00")}
	f.White256 = catalog.ProductVariant{ProductID: f.Phone.ID, ColorID: white.ID, MemoryID: m256.ID, Price: money.MustParse("1099.00")}
	f.BudgetStd = catalog.ProductVariant{ProductID: f.Budget.ID, ColorID: black.ID, MemoryID: m128.ID, Price: money.MustParse("299.00")}
	for _, v := range []*catalog.ProductVariant{&f.Black128, &f.White256, &f.BudgetStd} {
		require.NoError(t, db.Create(v).Error)
	}

	f.Glass = catalog.Accessory{Name: "Glass", Price: money.MustParse("19.99"), Type: catalog.AccessoryGlass}
	f.Case = catalog.Accessory{Name: "Case", Price: money.MustParse("29.99"), Type: catalog.AccessoryCase}
	f.Cable = catalog.Accessory{Name: "Cable", Price: money.MustParse("9.99"), Type: catalog.AccessoryCable}
	for _, a := range []*catalog.Accessory{&f.Glass, &f.Case, &f.Cable} {
		require.NoError(t, db.Create(a).Error)
	}

	f.Kit = catalog.Bundle{
		Name: "Protection", ProductID: f.Phone.ID, Discount: money.MustParse("10.00"),
		Accessories: []catalog.Accessory{f.Glass, f.Case},
	}
	f.BudgetKit = catalog.Bundle{
		Name: "Charging", ProductID: f.Budget.ID, Discount: money.Zero(),
		Accessories: []catalog.Accessory{f.Cable},
	}
	require.NoError(t, db.Create(&f.Kit).Error)
	require.NoError(t, db.Create(&f.BudgetKit).Error)

	return f
}

// KitPrice is the unit price of Kit: 999.00 + 19.99 + 29.99 - 10.00
const KitPrice = "1038.98"
