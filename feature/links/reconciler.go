package links

import (
	"context"
	"fmt"
	"time"

	"marketplace-sync/feature/catalog/models"

	"gorm.io/datatypes"
)

// Source names where a canonical status came from.
type Source string

const (
	SourceLink   Source = "link"
	SourceStatus Source = "status"
	SourceNone   Source = "none"
)

// CanonicalStatus is the single answer to "what is the sync state of this pair".
type CanonicalStatus struct {
	ProductID         int64                   `json:"product_id"`
	AccountID         int64                   `json:"account_id"`
	Status            models.SyncState        `json:"status"`
	Source            Source                  `json:"source"`
	ExternalProductID string                  `json:"external_product_id,omitempty"`
	ExternalVariantID string                  `json:"external_variant_id,omitempty"`
	LastSyncedAt      *time.Time              `json:"last_synced_at,omitempty"`
	HealthScore       int                     `json:"health_score"`
	ActiveColors      []string                `json:"active_colors,omitempty"`
	Link              *models.MarketplaceLink `json:"link,omitempty"`
	Record            *models.SyncStatus      `json:"record,omitempty"`
}

// SyncAction is what Synchronize did.
type SyncAction string

const (
	SyncNone             SyncAction = "none"
	SyncStatusCreated    SyncAction = "status_created"
	SyncStatusUpdated    SyncAction = "status_updated"
	SyncLinkMaterialized SyncAction = "link_materialized"
)

// MessageNothingToDo is reported when both representations already agree.
const MessageNothingToDo = "no synchronization needed"

// SyncReport is the result of Synchronize.
type SyncReport struct {
	ProductID int64            `json:"product_id"`
	AccountID int64            `json:"account_id"`
	Action    SyncAction       `json:"action"`
	Message   string           `json:"message"`
	Status    *CanonicalStatus `json:"status"`
}

// Outcome carries what the orchestrator learned from one sync attempt.
type Outcome struct {
	ProductID         int64
	AccountID         int64
	ExternalProductID string
	ExternalVariantID string
	HealthScore       int
	Metadata          map[string]any
	Actor             string
	// ProductLink also maintains the product-level link. Split listings are tracked
	// through color links instead.
	ProductLink bool
}

// ColorLink describes one color listing.
type ColorLink struct {
	ProductID         int64
	AccountID         int64
	Color             string
	ExternalProductID string
	ExternalVariantID string
	VariantsCount     int
	Status            models.LinkStatus
	Actor             string
}

// Reconciler keeps SyncStatus rows and MarketplaceLinks consistent.
type Reconciler struct {
	repo *Repository
	now  func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(repo *Repository) *Reconciler {
	return &Reconciler{repo: repo, now: time.Now}
}

// Repository returns the underlying repository.
func (r *Reconciler) Repository() *Repository {
	return r.repo
}

// Status resolves the canonical status of a pair.
func (r *Reconciler) Status(ctx context.Context, productID, accountID int64) (*CanonicalStatus, error) {
	links, err := r.repo.ListLinks(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}
	status, err := r.repo.FindStatus(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}
	return resolve(productID, accountID, links, status), nil
}

// Synchronize brings the two representations of a pair into agreement. Running it twice in
// a row performs no writes the second time.
func (r *Reconciler) Synchronize(ctx context.Context, productID, accountID int64, actor string) (*SyncReport, error) {
	report := &SyncReport{ProductID: productID, AccountID: accountID, Action: SyncNone, Message: MessageNothingToDo}

	err := r.repo.Transaction(ctx, func(tx *Repository) error {
		links, err := tx.ListLinks(ctx, productID, accountID)
		if err != nil {
			return err
		}
		status, err := tx.FindStatus(ctx, productID, accountID)
		if err != nil {
			return err
		}

		if latest := Latest(links); latest != nil {
			switch {
			case status == nil:
				report.Action = SyncStatusCreated
				report.Message = "sync status created from marketplace link"
			case statusStale(latest, status):
				report.Action = SyncStatusUpdated
				report.Message = "sync status updated from marketplace link"
			default:
				return nil
			}
			_, err := r.writeStatusFromLink(ctx, tx, latest, status)
			return err
		}

		if status != nil && status.ExternalProductID != "" {
			report.Action = SyncLinkMaterialized
			report.Message = "marketplace link materialized from sync status"
			_, err := r.materialize(ctx, tx, status, actor)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Status, err = r.Status(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// RecordSuccess marks a pair synced after a successful create or update. For split listings
// the status row mirrors the latest color link.
func (r *Reconciler) RecordSuccess(ctx context.Context, o Outcome) error {
	now := r.now()
	return r.repo.Transaction(ctx, func(tx *Repository) error {
		if o.ProductLink {
			link, err := tx.FindActiveLink(ctx, o.ProductID, o.AccountID, "")
			if err != nil {
				return err
			}
			if link == nil {
				link = newProductLink(o.ProductID, o.AccountID)
			}
			link.ExternalProductID = o.ExternalProductID
			link.ExternalVariantID = o.ExternalVariantID
			link.LinkStatus = models.LinkLinked
			link.LinkedAt = &now
			link.LinkedBy = o.Actor
			if err := tx.SaveLink(ctx, link); err != nil {
				return err
			}
		}

		externalProductID, externalVariantID := o.ExternalProductID, o.ExternalVariantID
		if !o.ProductLink {
			links, err := tx.ListLinks(ctx, o.ProductID, o.AccountID)
			if err != nil {
				return err
			}
			if latest := Latest(links); latest != nil && latest.LinkStatus == models.LinkLinked {
				externalProductID, externalVariantID = latest.ExternalProductID, latest.ExternalVariantID
			}
		}

		status, err := tx.FindStatus(ctx, o.ProductID, o.AccountID)
		if err != nil {
			return err
		}
		if status == nil {
			status = &models.SyncStatus{ProductID: o.ProductID, SyncAccountID: o.AccountID}
		}
		status.SyncStatus = models.StateSynced
		status.ExternalProductID = externalProductID
		status.ExternalVariantID = externalVariantID
		status.LastSyncedAt = &now
		status.HealthScore = o.HealthScore
		status.Metadata = mergeMetadata(status.Metadata, o.Metadata)
		delete(status.Metadata, "last_error")
		return tx.SaveStatus(ctx, status)
	})
}

// RecordFailure stores a failed attempt. When listings already exist through color links,
// the status keeps following the latest link and only the error details change.
func (r *Reconciler) RecordFailure(ctx context.Context, o Outcome, cause string) error {
	now := r.now()
	return r.repo.Transaction(ctx, func(tx *Repository) error {
		links, err := tx.ListLinks(ctx, o.ProductID, o.AccountID)
		if err != nil {
			return err
		}
		status, err := tx.FindStatus(ctx, o.ProductID, o.AccountID)
		if err != nil {
			return err
		}
		if status == nil {
			status = &models.SyncStatus{ProductID: o.ProductID, SyncAccountID: o.AccountID}
		}

		latest := Latest(links)
		switch {
		case latest == nil:
			link := newProductLink(o.ProductID, o.AccountID)
			link.LinkStatus = models.LinkFailed
			link.LinkedBy = o.Actor
			if err := tx.SaveLink(ctx, link); err != nil {
				return err
			}
			status.SyncStatus = models.StateFailed
		case latest.ColorFilter == "":
			latest.LinkStatus = models.LinkFailed
			if err := tx.SaveLink(ctx, latest); err != nil {
				return err
			}
			status.SyncStatus = models.StateFailed
		default:
			status.SyncStatus = latest.LinkStatus.Consolidated()
		}

		status.HealthScore = o.HealthScore
		status.Metadata = mergeMetadata(status.Metadata, o.Metadata)
		status.Metadata["last_error"] = cause
		status.Metadata["last_attempt_at"] = now.UTC().Format(time.RFC3339)
		return tx.SaveStatus(ctx, status)
	})
}

// ActiveColorLinks returns the non-unlinked color links of a pair keyed by color.
func (r *Reconciler) ActiveColorLinks(ctx context.Context, productID, accountID int64) (map[string]*models.MarketplaceLink, error) {
	links, err := r.repo.ListLinks(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.MarketplaceLink)
	for i := range links {
		l := &links[i]
		if l.ColorFilter == "" || !l.Active() {
			continue
		}
		if prev, ok := out[l.ColorFilter]; !ok || l.NewerThan(prev) {
			out[l.ColorFilter] = l
		}
	}
	return out, nil
}

// UpsertColorLink creates or updates the active link of one color.
func (r *Reconciler) UpsertColorLink(ctx context.Context, cl ColorLink) (*models.MarketplaceLink, error) {
	if cl.Color == "" {
		return nil, fmt.Errorf("color link requires a color")
	}
	now := r.now()
	var saved *models.MarketplaceLink
	err := r.repo.Transaction(ctx, func(tx *Repository) error {
		link, err := tx.FindActiveLink(ctx, cl.ProductID, cl.AccountID, cl.Color)
		if err != nil {
			return err
		}
		if link == nil {
			link = newProductLink(cl.ProductID, cl.AccountID)
		}
		link.SetColorFilter(cl.Color)
		link.ExternalProductID = cl.ExternalProductID
		link.ExternalVariantID = cl.ExternalVariantID
		link.LinkStatus = cl.Status
		if link.LinkStatus == "" {
			link.LinkStatus = models.LinkLinked
		}
		if link.LinkStatus == models.LinkLinked {
			link.LinkedAt = &now
			link.LinkedBy = cl.Actor
		}
		link.MarketplaceData["variants_count"] = cl.VariantsCount
		if err := tx.SaveLink(ctx, link); err != nil {
			return err
		}
		saved = link
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Unlink soft-retires the active links of a pair. An empty colors list retires all of them,
// the product-level link included. The status row then follows the remaining links.
func (r *Reconciler) Unlink(ctx context.Context, productID, accountID int64, colors []string, actor string) (int, error) {
	wanted := make(map[string]bool, len(colors))
	for _, c := range colors {
		wanted[c] = true
	}

	retired := 0
	err := r.repo.Transaction(ctx, func(tx *Repository) error {
		links, err := tx.ListLinks(ctx, productID, accountID)
		if err != nil {
			return err
		}
		for i := range links {
			l := &links[i]
			if !l.Active() || (len(wanted) > 0 && !wanted[l.ColorFilter]) {
				continue
			}
			l.LinkStatus = models.LinkUnlinked
			if l.MarketplaceData == nil {
				l.MarketplaceData = datatypes.JSONMap{}
			}
			l.MarketplaceData["unlinked_by"] = actor
			l.MarketplaceData["unlinked_at"] = r.now().UTC().Format(time.RFC3339)
			if err := tx.SaveLink(ctx, l); err != nil {
				return err
			}
			retired++
		}
		if retired == 0 {
			return nil
		}

		status, err := tx.FindStatus(ctx, productID, accountID)
		if err != nil {
			return err
		}
		_, err = r.writeStatusFromLink(ctx, tx, Latest(links), status)
		return err
	})
	return retired, err
}

// Latest returns the authoritative link: the most recent active link, or the most recent
// link overall when every link is unlinked.
func Latest(links []models.MarketplaceLink) *models.MarketplaceLink {
	var latestActive, latestAny *models.MarketplaceLink
	for i := range links {
		l := &links[i]
		if latestAny == nil || l.NewerThan(latestAny) {
			latestAny = l
		}
		if l.Active() && (latestActive == nil || l.NewerThan(latestActive)) {
			latestActive = l
		}
	}
	if latestActive != nil {
		return latestActive
	}
	return latestAny
}

func resolve(productID, accountID int64, links []models.MarketplaceLink, status *models.SyncStatus) *CanonicalStatus {
	cs := &CanonicalStatus{ProductID: productID, AccountID: accountID, Record: status}
	for _, l := range links {
		if l.ColorFilter != "" && l.LinkStatus == models.LinkLinked {
			cs.ActiveColors = append(cs.ActiveColors, l.ColorFilter)
		}
	}
	if status != nil {
		cs.HealthScore = status.HealthScore
		cs.LastSyncedAt = status.LastSyncedAt
	}

	if latest := Latest(links); latest != nil {
		cs.Source = SourceLink
		cs.Status = latest.LinkStatus.Consolidated()
		cs.ExternalProductID = latest.ExternalProductID
		cs.ExternalVariantID = latest.ExternalVariantID
		cs.Link = latest
		if cs.LastSyncedAt == nil {
			cs.LastSyncedAt = latest.LinkedAt
		}
		return cs
	}
	if status != nil {
		cs.Source = SourceStatus
		cs.Status = status.SyncStatus
		cs.ExternalProductID = status.ExternalProductID
		cs.ExternalVariantID = status.ExternalVariantID
		return cs
	}
	cs.Source = SourceNone
	cs.Status = models.StateNotSynced
	return cs
}

func statusStale(link *models.MarketplaceLink, status *models.SyncStatus) bool {
	return status.SyncStatus != link.LinkStatus.Consolidated() ||
		status.ExternalProductID != link.ExternalProductID ||
		status.ExternalVariantID != link.ExternalVariantID
}

// writeStatusFromLink copies the link's consolidated state into the status row.
// A nil link leaves the row untouched.
func (r *Reconciler) writeStatusFromLink(ctx context.Context, tx *Repository, link *models.MarketplaceLink, status *models.SyncStatus) (*models.SyncStatus, error) {
	if link == nil {
		return status, nil
	}
	if status == nil {
		status = &models.SyncStatus{ProductID: link.ProductID, SyncAccountID: link.SyncAccountID}
	}
	status.SyncStatus = link.LinkStatus.Consolidated()
	status.ExternalProductID = link.ExternalProductID
	status.ExternalVariantID = link.ExternalVariantID
	if status.SyncStatus == models.StateSynced && status.LastSyncedAt == nil {
		status.LastSyncedAt = link.LinkedAt
	}
	status.Metadata = mergeMetadata(status.Metadata, map[string]any{
		"reconciled_from_link": link.ID,
		"reconciled_at":        r.now().UTC().Format(time.RFC3339),
	})
	if err := tx.SaveStatus(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

// materialize creates a product-level link mirroring a status row.
func (r *Reconciler) materialize(ctx context.Context, tx *Repository, status *models.SyncStatus, actor string) (*models.MarketplaceLink, error) {
	link := newProductLink(status.ProductID, status.SyncAccountID)
	link.ExternalProductID = status.ExternalProductID
	link.ExternalVariantID = status.ExternalVariantID
	link.LinkStatus = models.LinkStatusFor(status.SyncStatus)
	link.LinkedAt = status.LastSyncedAt
	if link.LinkedAt == nil {
		now := r.now()
		link.LinkedAt = &now
	}
	link.LinkedBy = actor
	link.MarketplaceData["materialized_from_status"] = status.ID
	if err := tx.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func newProductLink(productID, accountID int64) *models.MarketplaceLink {
	return &models.MarketplaceLink{
		Owner:           models.ProductOwner(productID),
		ProductID:       productID,
		SyncAccountID:   accountID,
		LinkLevel:       models.LevelProduct,
		LinkStatus:      models.LinkPending,
		MarketplaceData: datatypes.JSONMap{},
	}
}

func mergeMetadata(dst datatypes.JSONMap, src map[string]any) datatypes.JSONMap {
	if dst == nil {
		dst = datatypes.JSONMap{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
