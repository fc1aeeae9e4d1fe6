package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
)

func setupCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  brand TEXT,
  tags TEXT NOT NULL DEFAULT '{}',
  price_paise INTEGER NOT NULL,
  final_price_paise INTEGER,
  compare_at_paise INTEGER,
  deal_price_paise INTEGER,
  deal_starts_at DATETIME,
  deal_ends_at DATETIME,
  gst_rate_percent REAL NOT NULL DEFAULT 18,
  commission_rate_percent REAL,
  stock INTEGER NOT NULL DEFAULT 0,
  weight_grams INTEGER NOT NULL DEFAULT 500,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  label TEXT NOT NULL,
  price_paise INTEGER NOT NULL,
  final_price_paise INTEGER,
  commission_rate_percent REAL,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func seedProduct(t *testing.T, conn *gorm.DB, stock int) models.Product {
	t.Helper()

	product := models.Product{
		ID:             uuid.New(),
		SellerID:       uuid.New(),
		SKU:            "SKU-STOCK",
		Name:           "Copper Lamp",
		Category:       "decor",
		PricePaise:     129900,
		GSTRatePercent: 18,
		Stock:          stock,
		WeightGrams:    800,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

func TestFindByIDs_PreloadsVariants(t *testing.T) {
	conn := setupCatalogDB(t)
	repo := NewRepository(conn)

	product := seedProduct(t, conn, 5)
	variant := models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  product.ID,
		SKU:        "SKU-STOCK-XL",
		Label:      "XL",
		PricePaise: 149900,
		Stock:      2,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(&variant).Error)

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{product.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Len(t, found[0].Variants, 1)
	require.Equal(t, "XL", found[0].Variants[0].Label)
}

func TestDecrementStock_GuardsAgainstOverselling(t *testing.T) {
	conn := setupCatalogDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := seedProduct(t, conn, 3)

	ok, err := repo.DecrementStock(ctx, product.ID, nil, 2)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.DecrementStock(ctx, product.ID, nil, 2)
	require.NoError(t, err)
	require.False(t, ok)

	var remaining int
	require.NoError(t, conn.Raw("SELECT stock FROM products WHERE id = ?", product.ID).Scan(&remaining).Error)
	require.Equal(t, 1, remaining)
}

func TestDecrementStock_TargetsVariantRow(t *testing.T) {
	conn := setupCatalogDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := seedProduct(t, conn, 10)
	variant := models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  product.ID,
		SKU:        "SKU-STOCK-S",
		Label:      "S",
		PricePaise: 99900,
		Stock:      1,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(&variant).Error)

	variantID := variant.ID
	ok, err := repo.DecrementStock(ctx, product.ID, &variantID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	var productStock int
	require.NoError(t, conn.Raw("SELECT stock FROM products WHERE id = ?", product.ID).Scan(&productStock).Error)
	require.Equal(t, 10, productStock)

	var variantStock int
	require.NoError(t, conn.Raw("SELECT stock FROM product_variants WHERE id = ?", variant.ID).Scan(&variantStock).Error)
	require.Equal(t, 0, variantStock)
}

func TestRestoreStock_AddsQuantityBack(t *testing.T) {
	conn := setupCatalogDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := seedProduct(t, conn, 2)

	require.NoError(t, repo.RestoreStock(ctx, product.ID, nil, 4))

	var stock int
	require.NoError(t, conn.Raw("SELECT stock FROM products WHERE id = ?", product.ID).Scan(&stock).Error)
	require.Equal(t, 6, stock)
}
