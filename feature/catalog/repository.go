package catalog

import (
	"context"
	"errors"
	"fmt"

	"marketplace-sync/feature/catalog/models"

	"gorm.io/gorm"
)

var (
	// ErrProductNotFound is returned when a product id does not exist.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrAccountNotFound is returned when a sync account id does not exist.
	ErrAccountNotFound = errors.New("catalog: sync account not found")
)

// Repository reads the internal catalog. Sync never writes through it.
type Repository interface {
	// GetProduct loads a product with its variants ordered by id.
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// GetAccount loads a sync account.
	GetAccount(ctx context.Context, id int64) (*models.SyncAccount, error)
	// ListActiveAccounts returns every active sync account.
	ListActiveAccounts(ctx context.Context) ([]models.SyncAccount, error)
	// ListStaleProductIDs returns products that are not synced to the account or changed
	// after their last sync, oldest id first.
	ListStaleProductIDs(ctx context.Context, accountID int64, limit int) ([]int64, error)
}

// GormRepository is the GORM-backed Repository.
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a catalog repository.
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return &product, nil
}

func (r *GormRepository) GetAccount(ctx context.Context, id int64) (*models.SyncAccount, error) {
	var account models.SyncAccount
	err := r.db.WithContext(ctx).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync account %d: %w", id, err)
	}
	return &account, nil
}

func (r *GormRepository) ListActiveAccounts(ctx context.Context) ([]models.SyncAccount, error) {
	var accounts []models.SyncAccount
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync accounts: %w", err)
	}
	return accounts, nil
}

func (r *GormRepository) ListStaleProductIDs(ctx context.Context, accountID int64, limit int) ([]int64, error) {
	var ids []int64
	q := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Joins("LEFT JOIN sync_statuses ON sync_statuses.product_id = products.id AND sync_statuses.sync_account_id = ?", accountID).
		Where("sync_statuses.id IS NULL OR sync_statuses.sync_status <> ? OR sync_statuses.last_synced_at IS NULL OR products.updated_at > sync_statuses.last_synced_at",
			models.StateSynced).
		Order("products.id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("products.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale products for account %d: %w", accountID, err)
	}
	return ids, nil
}
