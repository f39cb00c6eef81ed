// Package fixtures seeds in-memory catalogs for package tests.
package fixtures

import (
	"fmt"
	"testing"
	"time"

	"marketplace-sync/core/database"
	"marketplace-sync/feature/catalog/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Epoch is the fixed creation time of seeded rows.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// NewDB opens an in-memory SQLite database with every model migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, models.All()...))
	return db
}

// Account seeds an active sync account.
func Account(t testing.TB, db *gorm.DB, id int64) *models.SyncAccount {
	t.Helper()
	account := &models.SyncAccount{ID: id, Channel: "shopify", Name: fmt.Sprintf("store-%d", id), Active: true}
	require.NoError(t, db.Create(account).Error)
	return account
}

// VariantSpec describes a seeded variant.
type VariantSpec struct {
	Color      string
	Width      string
	Drop       string
	Price      string
	Stock      int
	Attributes map[string]any
}

// Product seeds a product with the given variants. SKUs are "<id>-<n>".
func Product(t testing.TB, db *gorm.DB, id int64, name string, variants ...VariantSpec) *models.Product {
	t.Helper()
	product := &models.Product{ID: id, Name: name, ParentSKU: fmt.Sprintf("P%d", id), CreatedAt: Epoch, UpdatedAt: Epoch}
	for i, v := range variants {
		price := v.Price
		if price == "" {
			price = "10.00"
		}
		product.Variants = append(product.Variants, models.Variant{
			SKU:        fmt.Sprintf("%d-%d", id, i+1),
			Color:      v.Color,
			Width:      v.Width,
			Drop:       v.Drop,
			Price:      decimal.RequireFromString(price),
			Stock:      v.Stock,
			Attributes: v.Attributes,
			CreatedAt:  Epoch,
			UpdatedAt:  Epoch,
		})
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// Grid returns colors × perColor variants with distinct widths.
func Grid(colors []string, perColor int) []VariantSpec {
	var out []VariantSpec
	for _, c := range colors {
		for i := 0; i < perColor; i++ {
			out = append(out, VariantSpec{Color: c, Width: fmt.Sprintf("%dcm", 100+i*10), Drop: "200cm", Stock: 5})
		}
	}
	return out
}
