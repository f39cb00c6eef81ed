package sync

import (
	"context"
	"sort"
	"time"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/links"
	"marketplace-sync/feature/sync/drift"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatusItem is the health of one product on an account.
type StatusItem struct {
	ProductID int64                  `json:"product_id"`
	Status    *links.CanonicalStatus `json:"status,omitempty"`
	Drift     *drift.Report          `json:"drift,omitempty"`
	Health    *drift.Health          `json:"health,omitempty"`
	// Refreshed is set when the listings were fetched from the marketplace.
	Refreshed bool   `json:"refreshed"`
	Error     string `json:"error,omitempty"`
}

// StatusSummary aggregates a status check by overall health.
type StatusSummary struct {
	AccountID int64                       `json:"account_id"`
	Total     int                         `json:"total"`
	ByOverall map[drift.OverallStatus]int `json:"by_overall"`
	Errors    int                         `json:"errors"`
	Items     []StatusItem                `json:"items"`
}

// Check reports the sync status and health of one product. With refresh the listings are
// fetched from the marketplace and the snapshot store is updated; otherwise the last stored
// snapshots are used when a store is configured.
func (o *Orchestrator) Check(ctx context.Context, productID, accountID int64, refresh bool) StatusItem {
	item := StatusItem{ProductID: productID}

	product, err := o.catalog.GetProduct(ctx, productID)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	cs, err := o.reconciler.Status(ctx, productID, accountID)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Status = cs

	var snaps []drift.Snapshot
	haveSnapshots := false
	if refresh && cs.Status == models.StateSynced {
		snaps, err = o.fetchSnapshots(ctx, productID, accountID)
		if err != nil {
			item.Error = err.Error()
			return item
		}
		item.Refreshed = true
		haveSnapshots = true
	} else if o.snapshots != nil && cs.Status == models.StateSynced {
		snaps, err = o.snapshots.Load(ctx, accountID, productID)
		if err != nil {
			o.logger.Warn("Failed to load listing snapshot", zap.Int64("product_id", productID), zap.Error(err))
		}
		haveSnapshots = len(snaps) > 0
	}

	var report *drift.Report
	if haveSnapshots {
		report = drift.Compare(product, snaps...)
		item.Drift = report
	}
	health := drift.Score(drift.HealthInput{
		Status:  drift.StatusFor(cs.Status, report),
		Drift:   report,
		Quality: drift.AssessQuality(product),
	})
	item.Health = &health
	return item
}

// fetchSnapshots reads every linked listing of a pair. A listing that no longer exists is
// reported as an empty snapshot of its color.
func (o *Orchestrator) fetchSnapshots(ctx context.Context, productID, accountID int64) ([]drift.Snapshot, error) {
	account, err := o.catalog.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	client, err := o.provider.ClientFor(account.StoreURL)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]string)
	colorLinks, err := o.reconciler.ActiveColorLinks(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}
	for color, l := range colorLinks {
		if l.ExternalProductID != "" {
			targets[color] = l.ExternalProductID
		}
	}
	if len(targets) == 0 {
		l, err := o.reconciler.Repository().FindActiveLink(ctx, productID, accountID, "")
		if err != nil {
			return nil, err
		}
		if l != nil && l.ExternalProductID != "" {
			targets[""] = l.ExternalProductID
		}
	}

	colors := make([]string, 0, len(targets))
	for c := range targets {
		colors = append(colors, c)
	}
	sort.Strings(colors)

	now := time.Now()
	var snaps, published []drift.Snapshot
	for _, color := range colors {
		listing, err := client.GetProduct(ctx, targets[color])
		if marketplace.IsNotFound(err) {
			snaps = append(snaps, drift.Snapshot{Color: color, FetchedAt: now})
			continue
		}
		if err != nil {
			return nil, err
		}
		snap := drift.SnapshotFromListing(listing, color, now)
		snaps = append(snaps, snap)
		published = append(published, snap)
	}

	if o.snapshots != nil {
		if err := o.snapshots.Save(ctx, accountID, productID, published); err != nil {
			o.logger.Warn("Failed to store listing snapshot", zap.Int64("product_id", productID), zap.Error(err))
		}
	}
	return snaps, nil
}

// CheckMany checks products on a bounded worker pool. Items keep the order of productIDs.
func (o *Orchestrator) CheckMany(ctx context.Context, productIDs []int64, accountID int64, refresh bool, concurrency int) *StatusSummary {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}
	summary := &StatusSummary{
		AccountID: accountID,
		Total:     len(productIDs),
		ByOverall: make(map[drift.OverallStatus]int),
		Items:     make([]StatusItem, len(productIDs)),
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, id := range productIDs {
		i, id := i, id
		g.Go(func() error {
			summary.Items[i] = o.Check(ctx, id, accountID, refresh)
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range summary.Items {
		if item.Error != "" {
			summary.Errors++
			continue
		}
		summary.ByOverall[item.Health.OverallStatus]++
	}
	return summary
}
