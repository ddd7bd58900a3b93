// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/favorite"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/promo"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger.OrDiscard(log),
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// Catalog
		&catalog.Category{},
		&catalog.Color{},
		&catalog.MemoryOption{},
		&catalog.Accessory{},
		&catalog.Product{},
		&catalog.ProductImage{},
		&catalog.ProductVariant{},
		&catalog.Bundle{},

		&favorite.Favorite{},
		&promo.PromoCode{},

		// Cart
		&cart.Cart{},
		&cart.CartLine{},

		// Orders
		&order.DeliveryOption{},
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes the listing queries rely on
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_products_category_available ON products(category_id, is_available)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order, name)",

		// Likes are counted per product
		"CREATE INDEX IF NOT EXISTS idx_favorites_product ON favorites(product_id)",

		// Promo codes
		"CREATE INDEX IF NOT EXISTS idx_promo_codes_active_valid_to ON promo_codes(is_active, valid_to)",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_session_created ON orders(session_key, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).WithField("sql", indexSQL).Warn("failed to create index")
			failed++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("indexes created")

	if failed > 0 {
		return fmt.Errorf("%d of %d indexes could not be created", failed, len(indexes))
	}
	return nil
}

// SeedInitialData inserts a small demo catalog. Running it again is a no-op.
func (m *Migration) SeedInitialData() error {
	m.logger.Info("seeding initial data")

	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := seedDeliveryOptions(tx); err != nil {
			return fmt.Errorf("failed to seed delivery options: %w", err)
		}
		if err := seedCatalog(tx); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		if err := seedPromoCodes(tx); err != nil {
			return fmt.Errorf("failed to seed promo codes: %w", err)
		}
		return nil
	})
}

// GetTableInfo logs the row count of every table
func (m *Migration) GetTableInfo() map[string]int64 {
	counts := make(map[string]int64)
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			continue
		}
		var count int64
		if err := m.db.Model(model).Count(&count).Error; err != nil {
			m.logger.WithError(err).WithField("table", stmt.Table).Warn("failed to count rows")
			continue
		}
		counts[stmt.Table] = count
	}

	fields := logrus.Fields{}
	for table, count := range counts {
		fields[table] = count
	}
	m.logger.WithFields(fields).Info("table info")

	return counts
}

func seedDeliveryOptions(tx *gorm.DB) error {
	options := []order.DeliveryOption{
		{Name: "Courier", Description: "Delivery to the door within the city", DeliveryTime: "1-2 days", Cost: money.MustParse("5.00"), Priority: 1},
		{Name: "Pickup point", Description: "Collect the order from a pickup point", DeliveryTime: "same day", Cost: money.Zero(), Priority: 2},
		{Name: "Nationwide post", Description: "Postal delivery to any region", DeliveryTime: "3-7 days", Cost: money.MustParse("9.90"), Nationwide: true, Priority: 3},
	}
	for i := range options {
		if err := tx.Where("name = ?", options[i].Name).FirstOrCreate(&options[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedCatalog(tx *gorm.DB) error {
	smartphones := catalog.Category{Name: "Smartphones", Slug: "smartphones", IsActive: true, SortOrder: 1}
	accessoriesCat := catalog.Category{Name: "Accessories", Slug: "accessories", IsActive: true, SortOrder: 2}
	for _, c := range []*catalog.Category{&smartphones, &accessoriesCat} {
		if err := tx.Where("slug = ?", c.Slug).FirstOrCreate(c).Error; err != nil {
			return err
		}
	}

	colors := map[string]*catalog.Color{
		"Black": {Name: "Black", HexCode: "#000000"},
		"White": {Name: "White", HexCode: "#FFFFFF"},
		"Blue":  {Name: "Blue", HexCode: "#1E3A8A"},
	}
	for _, c := range colors {
		if err := tx.Where("name = ?", c.Name).FirstOrCreate(c).Error; err != nil {
			return err
		}
	}

	memories := map[string]*catalog.MemoryOption{
		"128GB": {Size: "128GB"},
		"256GB": {Size: "256GB"},
		"512GB": {Size: "512GB"},
	}
	for _, mem := range memories {
		if err := tx.Where("size = ?", mem.Size).FirstOrCreate(mem).Error; err != nil {
			return err
		}
	}

	accessories := []*catalog.Accessory{
		{Name: "Tempered glass", Price: money.MustParse("14.99"), Type: catalog.AccessoryGlass},
		{Name: "Silicone case", Price: money.MustParse("24.99"), Type: catalog.AccessoryCase},
		{Name: "USB-C cable 1m", Price: money.MustParse("9.99"), Type: catalog.AccessoryCable},
	}
	for _, a := range accessories {
		if err := tx.Where("name = ?", a.Name).FirstOrCreate(a).Error; err != nil {
			return err
		}
	}

	type variantSeed struct {
		color, memory string
		price         string
	}
	products := []struct {
		product  catalog.Product
		variants []variantSeed
	}{
		{
			product: catalog.Product{
				Title: "iPhone 15", ShortDescription: "A16 Bionic, 6.1-inch display",
				Price: money.MustParse("799.00"), Manufacturer: "Apple", Warranty: "1 year",
				Stock: 25, IsAvailable: true, IsFeatured: true,
			},
			variants: []variantSeed{
				{"Black", "128GB", "799.00"},
				{"Blue", "256GB", "899.00"},
				{"White", "512GB", "1099.00"},
			},
		},
		{
			product: catalog.Product{
				Title: "Galaxy S24", ShortDescription: "6.2-inch Dynamic AMOLED",
				Price: money.MustParse("749.00"), DiscountPercent: 10, Manufacturer: "Samsung", Warranty: "1 year",
				Stock: 40, IsAvailable: true,
			},
			variants: []variantSeed{
				{"Black", "128GB", "674.10"},
				{"White", "256GB", "764.10"},
			},
		},
		{
			product: catalog.Product{
				Title: "Pixel 8", ShortDescription: "Tensor G3, 6.2-inch display",
				Price: money.MustParse("699.00"), Manufacturer: "Google", Warranty: "1 year",
				Stock: 15, IsAvailable: true,
			},
			variants: []variantSeed{
				{"Blue", "128GB", "699.00"},
			},
		},
	}

	for i := range products {
		p := &products[i].product
		p.CategoryID = smartphones.ID
		p.Slug = catalog.Slugify(p.Title)

		var existing catalog.Product
		err := tx.Where("slug = ?", p.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(p).Error; err != nil {
			return err
		}
		image := catalog.ProductImage{ProductID: p.ID, URL: "/media/products/" + p.Slug + ".jpg", IsMain: true}
		if err := tx.Create(&image).Error; err != nil {
			return err
		}
		for _, v := range products[i].variants {
			variant := catalog.ProductVariant{
				ProductID: p.ID,
				ColorID:   colors[v.color].ID,
				MemoryID:  memories[v.memory].ID,
				Price:     money.MustParse(v.price),
				Stock:     10,
			}
			if err := tx.Create(&variant).Error; err != nil {
				return err
			}
		}

		bundle := catalog.Bundle{
			Name:        "Protection kit",
			ProductID:   p.ID,
			Discount:    money.MustParse("10.00"),
			Accessories: []catalog.Accessory{*accessories[0], *accessories[1]},
		}
		if err := tx.Create(&bundle).Error; err != nil {
			return err
		}
	}

	return nil
}

func seedPromoCodes(tx *gorm.DB) error {
	limit := 100
	codes := []promo.PromoCode{
		{
			Code:         "WELCOME10",
			DiscountType: promo.DiscountPercent,
			Amount:       money.FromInt(10),
			ValidTo:      time.Now().UTC().AddDate(1, 0, 0),
			IsActive:     true,
		},
		{
			Code:           "MINUS50",
			DiscountType:   promo.DiscountFixed,
			Amount:         money.FromInt(50),
			MinOrderAmount: money.FromInt(500),
			UsageLimit:     &limit,
			ValidTo:        time.Now().UTC().AddDate(0, 3, 0),
			IsActive:       true,
		},
	}
	for i := range codes {
		if err := tx.Where("normalized_code = ?", promo.Normalize(codes[i].Code)).FirstOrCreate(&codes[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
