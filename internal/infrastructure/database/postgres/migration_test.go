package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/promo"
	"github.com/your-org/storefront-api/internal/pkg/testdb"
)

func TestMigrateAndSeed(t *testing.T) {
	db := testdb.New(t)
	m := NewMigration(db, nil)

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
	require.NoError(t, m.SeedInitialData())

	first := m.GetTableInfo()
	assert.Len(t, first, len(Models()))
	assert.EqualValues(t, 3, first["products"])
	assert.EqualValues(t, 3, first["delivery_options"])
	assert.EqualValues(t, 2, first["promo_codes"])
	assert.EqualValues(t, 3, first["bundles"])

	require.NoError(t, m.SeedInitialData())
	assert.Equal(t, first, m.GetTableInfo())

	var galaxy catalog.Product
	require.NoError(t, db.Preload("Variants").Where("slug = ?", "galaxy-s24").First(&galaxy).Error)
	assert.Len(t, galaxy.Variants, 2)

	var welcome promo.PromoCode
	require.NoError(t, db.Where("normalized_code = ?", "WELCOME10").First(&welcome).Error)
	assert.True(t, welcome.IsActive)

	var options []order.DeliveryOption
	require.NoError(t, db.Order("priority").Find(&options).Error)
	assert.Equal(t, "Courier", options[0].Name)
}
