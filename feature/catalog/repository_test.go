package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-sync/feature/catalog"
	"marketplace-sync/feature/catalog/fixtures"
	"marketplace-sync/feature/catalog/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestGetProduct(t *testing.T) {
	db := fixtures.NewDB(t)
	fixtures.Product(t, db, 1, "Curtain", fixtures.Grid([]string{"Red", "Blue"}, 2)...)
	repo := catalog.NewRepository(db)

	product, err := repo.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Curtain", product.Name)
	require.Len(t, product.Variants, 4)
	assert.Equal(t, "1-1", product.Variants[0].SKU)
	assert.Equal(t, "10", product.Variants[0].Price.String())
	assert.Equal(t, []string{"Red", "Blue"}, product.Colors())

	_, err = repo.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestGetAccount(t *testing.T) {
	db := fixtures.NewDB(t)
	fixtures.Account(t, db, 7)
	repo := catalog.NewRepository(db)

	account, err := repo.GetAccount(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, account.Active)

	_, err = repo.GetAccount(context.Background(), 8)
	assert.ErrorIs(t, err, catalog.ErrAccountNotFound)
}

func TestListActiveAccounts(t *testing.T) {
	db := fixtures.NewDB(t)
	fixtures.Account(t, db, 1)
	inactive := fixtures.Account(t, db, 2)
	require.NoError(t, db.Model(inactive).Update("active", false).Error)
	fixtures.Account(t, db, 3)

	accounts, err := catalog.NewRepository(db).ListActiveAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(1), accounts[0].ID)
	assert.Equal(t, int64(3), accounts[1].ID)
}

func TestListStaleProductIDs(t *testing.T) {
	db := fixtures.NewDB(t)
	fixtures.Account(t, db, 1)
	for id := int64(1); id <= 4; id++ {
		fixtures.Product(t, db, id, "P", fixtures.VariantSpec{Color: "Red"})
	}
	later := fixtures.Epoch.Add(time.Hour)
	earlier := fixtures.Epoch.Add(-time.Hour)

	// 1: never synced. 2: synced after last change. 3: failed. 4: changed after sync.
	require.NoError(t, db.Create(&models.SyncStatus{ProductID: 2, SyncAccountID: 1, SyncStatus: models.StateSynced, LastSyncedAt: &later}).Error)
	require.NoError(t, db.Create(&models.SyncStatus{ProductID: 3, SyncAccountID: 1, SyncStatus: models.StateFailed, LastSyncedAt: &later}).Error)
	require.NoError(t, db.Create(&models.SyncStatus{ProductID: 4, SyncAccountID: 1, SyncStatus: models.StateSynced, LastSyncedAt: &earlier}).Error)

	repo := catalog.NewRepository(db)
	ids, err := repo.ListStaleProductIDs(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, ids)

	ids, err = repo.ListStaleProductIDs(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestGetAccount_DatabaseError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	defer sqlDB.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM `sync_accounts`").WillReturnError(errors.New("connection reset"))

	_, err = catalog.NewRepository(gormDB).GetAccount(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrAccountNotFound)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
