package links

import (
	"context"
	"fmt"
	"strconv"

	"marketplace-sync/core/reconcile"
	"marketplace-sync/feature/catalog/models"

	"gorm.io/gorm"
)

// AdapterName identifies the marketplace link adapter in reconcile cache keys.
const AdapterName = "marketplace_links"

// Adapter implements reconcile.Adapter and reconcile.Mutator for SyncStatus rows and
// MarketplaceLinks. Link items are *models.MarketplaceLink, status items *models.SyncStatus.
type Adapter struct {
	reconciler *Reconciler
	actor      string
}

// NewAdapter creates an adapter. actor is recorded on materialized links.
func NewAdapter(reconciler *Reconciler, actor string) *Adapter {
	return &Adapter{reconciler: reconciler, actor: actor}
}

func (a *Adapter) Name() string {
	return AdapterName
}

func scoped(db *gorm.DB, scope reconcile.Scope) *gorm.DB {
	if scope.AccountID != 0 {
		db = db.Where("sync_account_id = ?", scope.AccountID)
	}
	if len(scope.ProductIDs) > 0 {
		db = db.Where("product_id IN ?", scope.ProductIDs)
	}
	return db
}

// LoadLinkIndex loads every link in scope with one query and keeps the latest per pair.
func (a *Adapter) LoadLinkIndex(ctx context.Context, db *gorm.DB, scope reconcile.Scope) (map[string]reconcile.LinkItem, error) {
	var rows []models.MarketplaceLink
	if err := scoped(db.WithContext(ctx), scope).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load marketplace links: %w", err)
	}

	grouped := make(map[string][]models.MarketplaceLink)
	for _, l := range rows {
		key := reconcile.PairKey(l.ProductID, l.SyncAccountID)
		grouped[key] = append(grouped[key], l)
	}

	index := make(map[string]reconcile.LinkItem, len(grouped))
	for key, pairLinks := range grouped {
		index[key] = Latest(pairLinks)
	}
	return index, nil
}

// LoadStatusIndex loads every status row in scope.
func (a *Adapter) LoadStatusIndex(ctx context.Context, db *gorm.DB, scope reconcile.Scope) (map[string]reconcile.StatusItem, error) {
	var rows []models.SyncStatus
	if err := scoped(db.WithContext(ctx), scope).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load sync statuses: %w", err)
	}

	index := make(map[string]reconcile.StatusItem, len(rows))
	for i := range rows {
		index[reconcile.PairKey(rows[i].ProductID, rows[i].SyncAccountID)] = &rows[i]
	}
	return index, nil
}

func (a *Adapter) ResolveName(link reconcile.LinkItem, status reconcile.StatusItem) string {
	if l, ok := link.(*models.MarketplaceLink); ok && l != nil {
		return fmt.Sprintf("product %d on account %d", l.ProductID, l.SyncAccountID)
	}
	if s, ok := status.(*models.SyncStatus); ok && s != nil {
		return fmt.Sprintf("product %d on account %d", s.ProductID, s.SyncAccountID)
	}
	return ""
}

func (a *Adapter) CompareFields(link reconcile.LinkItem, status reconcile.StatusItem) []string {
	l := link.(*models.MarketplaceLink)
	s := status.(*models.SyncStatus)

	var mismatches []string
	if want := l.LinkStatus.Consolidated(); s.SyncStatus != want {
		mismatches = append(mismatches, fmt.Sprintf("sync_status: link=%s status=%s", want, s.SyncStatus))
	}
	if l.ExternalProductID != s.ExternalProductID {
		mismatches = append(mismatches, fmt.Sprintf("external_product_id: link=%s status=%s", l.ExternalProductID, s.ExternalProductID))
	}
	if l.ExternalVariantID != s.ExternalVariantID {
		mismatches = append(mismatches, fmt.Sprintf("external_variant_id: link=%s status=%s", l.ExternalVariantID, s.ExternalVariantID))
	}
	return mismatches
}

func (a *Adapter) Materializable(status reconcile.StatusItem) bool {
	s, ok := status.(*models.SyncStatus)
	return ok && s != nil && s.ExternalProductID != ""
}

func (a *Adapter) GetMetadata(link reconcile.LinkItem, status reconcile.StatusItem) map[string]string {
	meta := make(map[string]string)
	if l, ok := link.(*models.MarketplaceLink); ok && l != nil {
		meta["link_id"] = strconv.FormatInt(l.ID, 10)
		meta["link_status"] = string(l.LinkStatus)
		meta["link_external_product_id"] = l.ExternalProductID
		if l.ColorFilter != "" {
			meta["color_filter"] = l.ColorFilter
		}
	}
	if s, ok := status.(*models.SyncStatus); ok && s != nil {
		meta["status_id"] = strconv.FormatInt(s.ID, 10)
		meta["status"] = string(s.SyncStatus)
		meta["status_external_product_id"] = s.ExternalProductID
	}
	return meta
}

// UpsertStatusFromLink writes the status row of the pair from its latest link.
func (a *Adapter) UpsertStatusFromLink(ctx context.Context, key string, link reconcile.LinkItem) error {
	l, ok := link.(*models.MarketplaceLink)
	if !ok || l == nil {
		return fmt.Errorf("no link for %s", key)
	}
	return a.reconciler.repo.Transaction(ctx, func(tx *Repository) error {
		return a.upsertStatus(ctx, tx, l)
	})
}

// UpsertStatusBatch writes every planned status in one transaction.
func (a *Adapter) UpsertStatusBatch(ctx context.Context, actions []reconcile.Action) error {
	return a.reconciler.repo.Transaction(ctx, func(tx *Repository) error {
		for _, action := range actions {
			l, ok := action.Link.(*models.MarketplaceLink)
			if !ok || l == nil {
				return fmt.Errorf("no link for %s", action.Key)
			}
			if err := a.upsertStatus(ctx, tx, l); err != nil {
				return fmt.Errorf("%s: %w", action.Key, err)
			}
		}
		return nil
	})
}

func (a *Adapter) upsertStatus(ctx context.Context, tx *Repository, l *models.MarketplaceLink) error {
	status, err := tx.FindStatus(ctx, l.ProductID, l.SyncAccountID)
	if err != nil {
		return err
	}
	_, err = a.reconciler.writeStatusFromLink(ctx, tx, l, status)
	return err
}

// MaterializeLink creates a product-level link from the status row unless a link appeared
// since the plan was built.
func (a *Adapter) MaterializeLink(ctx context.Context, key string, status reconcile.StatusItem) error {
	s, ok := status.(*models.SyncStatus)
	if !ok || s == nil {
		return fmt.Errorf("no status for %s", key)
	}
	return a.reconciler.repo.Transaction(ctx, func(tx *Repository) error {
		existing, err := tx.ListLinks(ctx, s.ProductID, s.SyncAccountID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		_, err = a.reconciler.materialize(ctx, tx, s, a.actor)
		return err
	})
}
