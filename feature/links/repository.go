package links

import (
	"context"
	"errors"
	"fmt"

	"marketplace-sync/feature/catalog/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists SyncStatus rows and MarketplaceLinks.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a links repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying handle.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn with a repository bound to one transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// FindStatus returns the status row of a pair, or nil when there is none.
func (r *Repository) FindStatus(ctx context.Context, productID, accountID int64) (*models.SyncStatus, error) {
	var status models.SyncStatus
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND sync_account_id = ?", productID, accountID).
		First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status: %w", err)
	}
	return &status, nil
}

// SaveStatus inserts or updates the status row of a pair.
func (r *Repository) SaveStatus(ctx context.Context, status *models.SyncStatus) error {
	db := r.db.WithContext(ctx)
	if status.ID != 0 {
		if err := db.Save(status).Error; err != nil {
			return fmt.Errorf("failed to update sync status: %w", err)
		}
		return nil
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "sync_account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_product_id", "external_variant_id", "sync_status",
			"last_synced_at", "health_score", "metadata", "updated_at",
		}),
	}).Create(status).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}

// ListLinks returns every link of a pair, unlinked ones included.
func (r *Repository) ListLinks(ctx context.Context, productID, accountID int64) ([]models.MarketplaceLink, error) {
	var links []models.MarketplaceLink
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND sync_account_id = ?", productID, accountID).
		Order("id").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace links: %w", err)
	}
	return links, nil
}

// FindActiveLink returns the non-unlinked link for a color ("" for the product-level link).
func (r *Repository) FindActiveLink(ctx context.Context, productID, accountID int64, color string) (*models.MarketplaceLink, error) {
	var link models.MarketplaceLink
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND sync_account_id = ? AND color_filter = ? AND link_status <> ?",
			productID, accountID, color, models.LinkUnlinked).
		Order("id DESC").
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load marketplace link: %w", err)
	}
	return &link, nil
}

// SaveLink inserts or updates a link.
func (r *Repository) SaveLink(ctx context.Context, link *models.MarketplaceLink) error {
	if err := r.db.WithContext(ctx).Save(link).Error; err != nil {
		return fmt.Errorf("failed to save marketplace link: %w", err)
	}
	return nil
}
