package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-sync/core/lock"
	"marketplace-sync/core/logger"
	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/metrics"
	"marketplace-sync/feature/audit"
	"marketplace-sync/feature/catalog"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/links"
	"marketplace-sync/feature/sync/drift"
	"marketplace-sync/feature/sync/strategy"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is a step of one sync attempt.
type State string

const (
	StateNeedsCheck State = "needs_check"
	StateSkipped    State = "skipped"
	StateCreating   State = "creating"
	StateUpdating   State = "updating"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Skip reasons.
const (
	// ReasonAlreadySynced is used when nothing changed since the last sync.
	ReasonAlreadySynced = "already_synced"
	// ReasonNoColors is used when a split product has no variant with a color.
	ReasonNoColors = "no_colors"
)

// ColorAction is what happened to one color listing.
type ColorAction string

const (
	ColorCreated             ColorAction = "created"
	ColorRecreated           ColorAction = "recreated"
	ColorUpdated             ColorAction = "updated"
	ColorSkippedExistingLink ColorAction = "skipped_existing_link"
	ColorFailed              ColorAction = "failed"
)

// Options tune one sync attempt.
type Options struct {
	// Force syncs even when nothing changed and updates colors that are already linked.
	Force        bool   `json:"force"`
	ForceGraphQL bool   `json:"force_graphql"`
	ForceREST    bool   `json:"force_rest"`
	Actor        string `json:"-"`
}

// Overrides returns the strategy overrides of the options.
func (o Options) Overrides() strategy.Overrides {
	return strategy.Overrides{ForceGraphQL: o.ForceGraphQL, ForceREST: o.ForceREST}
}

// ColorResult is the outcome of one color listing in a split sync.
type ColorResult struct {
	Color         string                `json:"color"`
	Action        ColorAction           `json:"action"`
	ListingID     string                `json:"listing_id,omitempty"`
	AdminURL      string                `json:"admin_url,omitempty"`
	VariantsCount int                   `json:"variants_count"`
	Error         string                `json:"error,omitempty"`
	ErrorKind     marketplace.ErrorKind `json:"error_kind,omitempty"`

	existing bool
	snapshot *drift.Snapshot
}

// Succeeded reports whether the color ended up published.
func (c ColorResult) Succeeded() bool {
	return c.Action != ColorFailed
}

// Result is the outcome of one sync attempt. Failures are reported here, never as errors.
type Result struct {
	ProductID          int64                 `json:"product_id"`
	AccountID          int64                 `json:"account_id"`
	Success            bool                  `json:"success"`
	State              State                 `json:"state"`
	Transitions        []State               `json:"transitions"`
	Reason             string                `json:"reason,omitempty"`
	Strategy           strategy.Strategy     `json:"strategy,omitempty"`
	StrategyReason     string                `json:"strategy_reason,omitempty"`
	ExternalProductID  string                `json:"external_product_id,omitempty"`
	AdminURL           string                `json:"admin_url,omitempty"`
	FellBackToREST     bool                  `json:"fell_back_to_rest"`
	Recreated          bool                  `json:"recreated"`
	ColorsTotal        int                   `json:"colors_total"`
	ColorsNewlyCreated int                   `json:"colors_newly_created"`
	ColorsUpdated      int                   `json:"colors_updated"`
	ColorsSkipped      int                   `json:"colors_skipped"`
	ColorsFailed       int                   `json:"colors_failed"`
	Colors             []ColorResult         `json:"colors,omitempty"`
	Health             *drift.Health         `json:"health,omitempty"`
	Message            string                `json:"message"`
	Error              string                `json:"error,omitempty"`
	ErrorKind          marketplace.ErrorKind `json:"error_kind,omitempty"`
	Suggestions        []Suggestion          `json:"suggestions,omitempty"`
	Duration           time.Duration         `json:"duration"`
}

func (r *Result) enter(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Settings are the orchestrator's tunables.
type Settings struct {
	// Vendor is stamped on created listings.
	Vendor string
	// LockTTL bounds how long a crashed attempt can hold its pair lock.
	LockTTL time.Duration
	// LockWait bounds how long an attempt waits for a concurrent one on the same pair.
	LockWait time.Duration
	// ColorConcurrency caps parallel color listings within one product.
	ColorConcurrency int
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		LockTTL:          5 * time.Minute,
		LockWait:         30 * time.Second,
		ColorConcurrency: 4,
	}
}

// LockKey is the per-pair lock key.
func LockKey(productID, accountID int64) string {
	return fmt.Sprintf("sync:%d:%d", productID, accountID)
}

// Orchestrator runs the sync state machine for one (product, account) pair at a time.
type Orchestrator struct {
	catalog    catalog.Repository
	reconciler *links.Reconciler
	provider   marketplace.Provider
	locker     lock.Locker
	recorder   *audit.Recorder
	snapshots  *drift.SnapshotStore
	settings   Settings
	logger     *zap.Logger
}

// NewOrchestrator creates an Orchestrator with default settings and no snapshot store.
func NewOrchestrator(catalogRepo catalog.Repository, reconciler *links.Reconciler, provider marketplace.Provider, locker lock.Locker, recorder *audit.Recorder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:    catalogRepo,
		reconciler: reconciler,
		provider:   provider,
		locker:     locker,
		recorder:   recorder,
		settings:   DefaultSettings(),
		logger:     logger,
	}
}

// WithSettings replaces the tunables. Zero values keep their defaults.
func (o *Orchestrator) WithSettings(s Settings) *Orchestrator {
	d := DefaultSettings()
	if s.LockTTL <= 0 {
		s.LockTTL = d.LockTTL
	}
	if s.LockWait <= 0 {
		s.LockWait = d.LockWait
	}
	if s.ColorConcurrency <= 0 {
		s.ColorConcurrency = d.ColorConcurrency
	}
	o.settings = s
	return o
}

// WithSnapshots stores the external state seen by each successful sync.
func (o *Orchestrator) WithSnapshots(store *drift.SnapshotStore) *Orchestrator {
	o.snapshots = store
	return o
}

// attempt carries the loaded state of one sync.
type attempt struct {
	product *models.Product
	account *models.SyncAccount
	client  marketplace.Client
	opts    Options
	log     *zap.Logger
	// staleProductLink is set when a single listing vanished and the product is now split.
	staleProductLink bool
}

// Sync synchronizes a product to an account.
func (o *Orchestrator) Sync(ctx context.Context, productID, accountID int64, opts Options) (result *Result) {
	start := time.Now()
	result = &Result{ProductID: productID, AccountID: accountID}
	result.enter(StateNeedsCheck)
	l := logger.WithPair(o.logger, productID, accountID)
	a := &attempt{opts: opts, log: l}

	defer func() {
		if r := recover(); r != nil {
			l.Error("Sync attempt panicked", zap.Any("panic", r), zap.Stack("stack"))
			o.fail(ctx, result, a, fmt.Errorf("panic: %v", r))
		}
		result.Duration = time.Since(start)
		metrics.SyncAttemptsTotal.WithLabelValues(string(result.State), string(result.Strategy)).Inc()
		metrics.SyncDuration.WithLabelValues(string(result.Strategy)).Observe(result.Duration.Seconds())
	}()

	loaded, err := o.validate(ctx, productID, accountID, opts)
	if err != nil {
		o.reject(ctx, result, opts, l, err)
		return result
	}
	loaded.log = l
	a = loaded

	lockCtx, cancel := context.WithTimeout(ctx, o.settings.LockWait)
	release, err := o.locker.Acquire(lockCtx, LockKey(productID, accountID), o.settings.LockTTL)
	cancel()
	if err != nil {
		o.reject(ctx, result, opts, l, err)
		return result
	}
	defer release()

	o.run(ctx, result, a)
	return result
}

func (o *Orchestrator) validate(ctx context.Context, productID, accountID int64, opts Options) (*attempt, error) {
	if productID <= 0 {
		return nil, &ValidationError{Field: "product_id", Message: "must be positive"}
	}
	if accountID <= 0 {
		return nil, &ValidationError{Field: "account_id", Message: "a sync account is required"}
	}

	account, err := o.catalog.GetAccount(ctx, accountID)
	if errors.Is(err, catalog.ErrAccountNotFound) {
		return nil, &ValidationError{Field: "account_id", Message: fmt.Sprintf("sync account %d not found", accountID)}
	}
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, &ValidationError{Field: "account_id", Message: fmt.Sprintf("sync account %d is inactive", accountID)}
	}

	product, err := o.catalog.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, &ValidationError{Field: "product_id", Message: fmt.Sprintf("product %d not found", productID)}
	}
	if err != nil {
		return nil, err
	}
	if len(product.Variants) == 0 {
		return nil, &ValidationError{Field: "variants", Message: "product has no variants to publish"}
	}

	client, err := o.provider.ClientFor(account.StoreURL)
	if err != nil {
		return nil, err
	}
	return &attempt{product: product, account: account, client: client, opts: opts}, nil
}

func (o *Orchestrator) run(ctx context.Context, result *Result, a *attempt) {
	// Bring a legacy status row and its links into agreement before deciding anything.
	report, err := o.reconciler.Synchronize(ctx, a.product.ID, a.account.ID, a.opts.Actor)
	if err != nil {
		o.fail(ctx, result, a, err)
		return
	}
	current := report.Status

	colorLinks, err := o.reconciler.ActiveColorLinks(ctx, a.product.ID, a.account.ID)
	if err != nil {
		o.fail(ctx, result, a, err)
		return
	}
	productLink, err := o.reconciler.Repository().FindActiveLink(ctx, a.product.ID, a.account.ID, "")
	if err != nil {
		o.fail(ctx, result, a, err)
		return
	}

	single := productLink != nil && productLink.ExternalProductID != "" && !anyListing(colorLinks)

	if !a.opts.Force && upToDate(a.product, current, colorLinks, single) {
		o.skip(ctx, result, a, current)
		return
	}

	switch {
	case single:
		result.enter(StateUpdating)
		o.updateSingle(ctx, result, a, productLink.ExternalProductID)
	case len(colorLinks) > 0:
		if anyListing(colorLinks) {
			result.enter(StateUpdating)
		} else {
			result.enter(StateCreating)
		}
		result.Strategy = strategy.GraphQLSplit
		result.StrategyReason = "product already has color listings"
		o.syncSplit(ctx, result, a, colorLinks)
	default:
		result.enter(StateCreating)
		o.create(ctx, result, a)
	}
}

// upToDate reports whether the pair is synced, unchanged since, and fully published.
func upToDate(product *models.Product, current *links.CanonicalStatus, colorLinks map[string]*models.MarketplaceLink, single bool) bool {
	if current == nil || current.Status != models.StateSynced || current.LastSyncedAt == nil {
		return false
	}
	if product.LatestChange().After(*current.LastSyncedAt) {
		return false
	}
	if single {
		return true
	}
	colors := product.Colors()
	if len(colors) == 0 {
		return false
	}
	for _, c := range colors {
		link, ok := colorLinks[c]
		if !ok || link.LinkStatus != models.LinkLinked {
			return false
		}
	}
	return true
}

func anyListing(colorLinks map[string]*models.MarketplaceLink) bool {
	for _, l := range colorLinks {
		if l.ExternalProductID != "" {
			return true
		}
	}
	return false
}

func (o *Orchestrator) skip(ctx context.Context, result *Result, a *attempt, current *links.CanonicalStatus) {
	result.enter(StateSkipped)
	result.Success = true
	result.Reason = ReasonAlreadySynced
	result.ExternalProductID = current.ExternalProductID
	result.AdminURL = marketplace.AdminURL(a.account.StoreURL, current.ExternalProductID)
	result.Message = "product already synced, nothing changed since the last sync"
	o.audit(ctx, result, models.OutcomeSkipped, a.opts.Actor)
	a.log.Debug("Sync skipped", zap.String("reason", result.Reason))
}

// noColors ends a split attempt that has no color to publish. Nothing is written to the
// status or link records, so live listings are left as they are.
func (o *Orchestrator) noColors(ctx context.Context, result *Result, a *attempt) {
	result.enter(StateSkipped)
	result.Success = true
	result.Reason = ReasonNoColors
	result.Message = fmt.Sprintf("no colors to sync: none of the %d variant(s) has a color", len(a.product.Variants))
	o.audit(ctx, result, models.OutcomeSkipped, a.opts.Actor)
	a.log.Warn("Split sync has no colors", zap.Int("variants", len(a.product.Variants)))
}

// create publishes a product that has no listing yet.
func (o *Orchestrator) create(ctx context.Context, result *Result, a *attempt) {
	variants, colors := len(a.product.Variants), len(a.product.Colors())
	result.Strategy = strategy.Select(variants, colors, a.opts.Overrides())
	result.StrategyReason = strategy.Reason(variants, colors, a.opts.Overrides())
	a.log.Info("Publishing product",
		zap.String("strategy", string(result.Strategy)),
		zap.String("reason", result.StrategyReason),
		zap.Int("variants", variants),
		zap.Int("colors", colors))

	if result.Strategy == strategy.GraphQLSplit {
		if colors > 0 {
			o.syncSplit(ctx, result, a, nil)
			return
		}
		if !strategy.CanFallbackToREST(variants) {
			o.noColors(ctx, result, a)
			return
		}
		result.Strategy = strategy.REST
		result.StrategyReason = "no colors to split by"
	}
	o.createSingle(ctx, result, a)
}

func (o *Orchestrator) createSingle(ctx context.Context, result *Result, a *attempt) {
	payload := strategy.BuildProductPayload(a.product, o.settings.Vendor)
	listing, err := a.client.CreateProductREST(ctx, payload)
	if err != nil {
		o.fail(ctx, result, a, err)
		return
	}
	snap := snapshotFromPayload(listing.ID, "", payload)
	o.succeedSingle(ctx, result, a, listing, []drift.Snapshot{snap}, "listing created")
}

// updateSingle refreshes a single REST listing, recreating it when it vanished.
func (o *Orchestrator) updateSingle(ctx context.Context, result *Result, a *attempt, listingID string) {
	result.Strategy = strategy.REST
	result.StrategyReason = "product already has a single listing"

	if _, err := a.client.GetProduct(ctx, listingID); err != nil {
		if !marketplace.IsNotFound(err) {
			o.fail(ctx, result, a, err)
			return
		}
		a.log.Warn("Listing missing on marketplace, recreating", zap.String("listing_id", listingID))
		result.Recreated = true
		a.staleProductLink = true
		result.enter(StateCreating)
		o.create(ctx, result, a)
		return
	}

	payload := strategy.BuildProductPayload(a.product, o.settings.Vendor)
	listing, err := a.client.UpdateProductREST(ctx, listingID, payload)
	if err != nil {
		if marketplace.IsNotFound(err) {
			result.Recreated = true
			a.staleProductLink = true
			result.enter(StateCreating)
			o.create(ctx, result, a)
			return
		}
		o.fail(ctx, result, a, err)
		return
	}
	if listing.ID == "" {
		listing.ID = listingID
	}
	snap := snapshotFromPayload(listing.ID, "", payload)
	o.succeedSingle(ctx, result, a, listing, []drift.Snapshot{snap}, "listing updated")
}

func (o *Orchestrator) succeedSingle(ctx context.Context, result *Result, a *attempt, listing *marketplace.Listing, snaps []drift.Snapshot, message string) {
	result.ExternalProductID = listing.ID
	result.AdminURL = marketplace.AdminURL(a.account.StoreURL, listing.ID)
	health := o.health(a.product, snaps)
	result.Health = &health

	err := o.reconciler.RecordSuccess(ctx, links.Outcome{
		ProductID:         a.product.ID,
		AccountID:         a.account.ID,
		ExternalProductID: listing.ID,
		ExternalVariantID: firstVariantID(listing),
		HealthScore:       health.Score,
		Metadata:          o.metadata(result),
		Actor:             a.opts.Actor,
		ProductLink:       true,
	})
	if err != nil {
		o.fail(ctx, result, a, err)
		return
	}

	if result.Recreated {
		message = "listing was missing and has been recreated"
	}
	o.succeed(ctx, result, a, snaps, message)
}

// syncSplit publishes one listing per color, then tallies after every color finished.
func (o *Orchestrator) syncSplit(ctx context.Context, result *Result, a *attempt, colorLinks map[string]*models.MarketplaceLink) {
	split := strategy.SplitByColor(a.product, o.settings.Vendor)
	if len(split.Colors) == 0 {
		o.noColors(ctx, result, a)
		return
	}
	if split.Unassigned > 0 {
		a.log.Warn("Variants without a color are not published in split mode", zap.Int("variants", split.Unassigned))
	}

	colors := make([]ColorResult, len(split.Colors))
	var g errgroup.Group
	g.SetLimit(o.settings.ColorConcurrency)
	for i, color := range split.Colors {
		i, color := i, color
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("Color sync panicked", zap.String("color", color), zap.Any("panic", r), zap.Stack("stack"))
					colors[i] = colorFailure(ColorResult{Color: color}, fmt.Errorf("panic: %v", r))
				}
			}()
			colors[i] = o.syncColor(ctx, a, split.Listings[color], colorLinks[color])
			return nil
		})
	}
	_ = g.Wait()

	result.Colors = colors
	result.ColorsTotal = len(colors)
	var snaps []drift.Snapshot
	var firstErr string
	var firstKind marketplace.ErrorKind
	existing := false
	for _, c := range colors {
		metrics.ColorListingsTotal.WithLabelValues(string(c.Action)).Inc()
		if c.existing {
			existing = true
		}
		switch c.Action {
		case ColorCreated, ColorRecreated:
			result.ColorsNewlyCreated++
		case ColorUpdated:
			result.ColorsUpdated++
		case ColorSkippedExistingLink:
			result.ColorsSkipped++
		case ColorFailed:
			result.ColorsFailed++
			if firstErr == "" {
				firstErr, firstKind = c.Error, c.ErrorKind
			}
			// A failed color counts as entirely missing on the marketplace.
			snaps = append(snaps, drift.Snapshot{Color: c.Color})
			continue
		}
		if c.snapshot != nil {
			snaps = append(snaps, *c.snapshot)
		}
	}

	if result.ColorsFailed == result.ColorsTotal {
		variants := len(a.product.Variants)
		if !existing && !anyListing(colorLinks) && strategy.CanFallbackToREST(variants) {
			o.fallbackToREST(ctx, result, a, split.Colors)
			return
		}
		result.ErrorKind = firstKind
		o.fail(ctx, result, a, fmt.Errorf("all %d color listings failed: %s", result.ColorsTotal, firstErr))
		return
	}

	if a.staleProductLink {
		if _, err := o.reconciler.Unlink(ctx, a.product.ID, a.account.ID, []string{""}, a.opts.Actor); err != nil {
			o.fail(ctx, result, a, err)
			return
		}
	}

	health := o.health(a.product, snaps)
	result.Health = &health
	err := o.reconciler.RecordSuccess(ctx, links.Outcome{
		ProductID:   a.product.ID,
		AccountID:   a.account.ID,
		HealthScore: health.Score,
		Metadata:    o.metadata(result),
		Actor:       a.opts.Actor,
	})
	if err != nil {
		o.fail(ctx, result, a, err)
		return
	}

	current, err := o.reconciler.Status(ctx, a.product.ID, a.account.ID)
	if err == nil {
		result.ExternalProductID = current.ExternalProductID
	}

	message := fmt.Sprintf("%d of %d color listings synced (%d created, %d updated, %d skipped)",
		result.ColorsTotal-result.ColorsFailed, result.ColorsTotal,
		result.ColorsNewlyCreated, result.ColorsUpdated, result.ColorsSkipped)
	if result.ColorsFailed > 0 {
		message += fmt.Sprintf(", %d failed: %s", result.ColorsFailed, firstErr)
	}
	o.succeed(ctx, result, a, snaps, message)
}

// fallbackToREST publishes the whole product as one listing after every color failed.
func (o *Orchestrator) fallbackToREST(ctx context.Context, result *Result, a *attempt, colors []string) {
	a.log.Warn("Split sync failed for every color, falling back to REST",
		zap.Int("colors", len(colors)),
		zap.Int("variants", len(a.product.Variants)))
	metrics.StrategyFallbacksTotal.Inc()
	result.FellBackToREST = true
	result.Strategy = strategy.REST
	result.StrategyReason = "fallback after split failure"

	payload := strategy.BuildProductPayload(a.product, o.settings.Vendor)
	listing, err := a.client.CreateProductREST(ctx, payload)
	if err != nil {
		o.fail(ctx, result, a, err)
		return
	}
	if _, err := o.reconciler.Unlink(ctx, a.product.ID, a.account.ID, colors, a.opts.Actor); err != nil {
		o.fail(ctx, result, a, err)
		return
	}
	snap := snapshotFromPayload(listing.ID, "", payload)
	o.succeedSingle(ctx, result, a, listing, []drift.Snapshot{snap}, "color listings failed, published as one listing")
}

// syncColor handles one color. It never returns an error; failures are in the result.
func (o *Orchestrator) syncColor(ctx context.Context, a *attempt, cl strategy.ColorListing, link *models.MarketplaceLink) ColorResult {
	res := ColorResult{Color: cl.Color, VariantsCount: cl.VariantsCount}
	if link == nil || link.ExternalProductID == "" {
		return o.createColor(ctx, a, cl, res, ColorCreated)
	}

	res.existing = true
	res.ListingID = link.ExternalProductID
	res.AdminURL = marketplace.AdminURL(a.account.StoreURL, link.ExternalProductID)

	listing, err := a.client.GetProduct(ctx, link.ExternalProductID)
	switch {
	case marketplace.IsNotFound(err):
		a.log.Warn("Color listing missing on marketplace, recreating",
			zap.String("color", cl.Color),
			zap.String("listing_id", link.ExternalProductID))
		return o.createColor(ctx, a, cl, res, ColorRecreated)
	case err != nil:
		return colorFailure(res, err)
	case link.LinkStatus == models.LinkLinked && !a.opts.Force:
		res.Action = ColorSkippedExistingLink
		snap := drift.SnapshotFromListing(listing, cl.Color, time.Now())
		res.snapshot = &snap
		return res
	}

	updated, err := a.client.UpdateProductREST(ctx, link.ExternalProductID, cl.Payload)
	if err != nil {
		return colorFailure(res, err)
	}
	variantID := link.ExternalVariantID
	if id := firstVariantID(updated); id != "" {
		variantID = id
	}
	if _, err := o.reconciler.UpsertColorLink(ctx, links.ColorLink{
		ProductID:         a.product.ID,
		AccountID:         a.account.ID,
		Color:             cl.Color,
		ExternalProductID: link.ExternalProductID,
		ExternalVariantID: variantID,
		VariantsCount:     cl.VariantsCount,
		Actor:             a.opts.Actor,
	}); err != nil {
		return colorFailure(res, err)
	}
	res.Action = ColorUpdated
	snap := snapshotFromPayload(link.ExternalProductID, cl.Color, cl.Payload)
	res.snapshot = &snap
	return res
}

func (o *Orchestrator) createColor(ctx context.Context, a *attempt, cl strategy.ColorListing, res ColorResult, action ColorAction) ColorResult {
	link := links.ColorLink{
		ProductID:     a.product.ID,
		AccountID:     a.account.ID,
		Color:         cl.Color,
		VariantsCount: cl.VariantsCount,
		Actor:         a.opts.Actor,
	}

	listing, err := a.client.CreateProduct(ctx, cl.CreatePayload())
	if err != nil {
		link.Status = models.LinkFailed
		if _, lerr := o.reconciler.UpsertColorLink(ctx, link); lerr != nil {
			a.log.Error("Failed to record failed color link", zap.String("color", cl.Color), zap.Error(lerr))
		}
		return colorFailure(res, err)
	}

	link.ExternalProductID = listing.ID
	link.ExternalVariantID = firstVariantID(listing)
	res.ListingID = listing.ID
	res.AdminURL = marketplace.AdminURL(a.account.StoreURL, listing.ID)

	if len(cl.ExtraVariants) > 0 {
		if err := a.client.CreateBulkVariants(ctx, listing.ID, cl.ExtraVariants); err != nil {
			// The listing exists with only its base variant. Keeping its id lets the next
			// sync update it instead of creating a duplicate.
			link.Status = models.LinkFailed
			if _, lerr := o.reconciler.UpsertColorLink(ctx, link); lerr != nil {
				a.log.Error("Failed to record failed color link", zap.String("color", cl.Color), zap.Error(lerr))
			}
			return colorFailure(res, err)
		}
	}

	if _, err := o.reconciler.UpsertColorLink(ctx, link); err != nil {
		return colorFailure(res, err)
	}
	res.Action = action
	snap := snapshotFromPayload(listing.ID, cl.Color, cl.Payload)
	res.snapshot = &snap
	return res
}

func colorFailure(res ColorResult, err error) ColorResult {
	kind := Classify(err)
	metrics.ExternalErrorsTotal.WithLabelValues(string(kind)).Inc()
	res.Action = ColorFailed
	res.Error = err.Error()
	res.ErrorKind = kind
	return res
}

func (o *Orchestrator) health(product *models.Product, snaps []drift.Snapshot) drift.Health {
	report := drift.Compare(product, snaps...)
	return drift.Score(drift.HealthInput{
		Status:  drift.StatusFor(models.StateSynced, report),
		Drift:   report,
		Quality: drift.AssessQuality(product),
	})
}

func (o *Orchestrator) metadata(result *Result) map[string]any {
	md := map[string]any{
		"strategy":          string(result.Strategy),
		"strategy_reason":   result.StrategyReason,
		"fell_back_to_rest": result.FellBackToREST,
	}
	if result.ColorsTotal > 0 {
		md["colors_total"] = result.ColorsTotal
		md["colors_failed"] = result.ColorsFailed
	}
	return md
}

func (o *Orchestrator) succeed(ctx context.Context, result *Result, a *attempt, snaps []drift.Snapshot, message string) {
	result.enter(StateSucceeded)
	result.Success = true
	result.Message = message
	o.audit(ctx, result, models.OutcomeSuccess, a.opts.Actor)
	o.saveSnapshots(ctx, a, snaps)
	a.log.Info("Sync succeeded",
		zap.String("strategy", string(result.Strategy)),
		zap.String("external_product_id", result.ExternalProductID),
		zap.Int("colors_total", result.ColorsTotal),
		zap.Int("colors_failed", result.ColorsFailed))
}

func (o *Orchestrator) saveSnapshots(ctx context.Context, a *attempt, snaps []drift.Snapshot) {
	if o.snapshots == nil {
		return
	}
	published := make([]drift.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.ListingID != "" {
			published = append(published, s)
		}
	}
	if err := o.snapshots.Save(ctx, a.account.ID, a.product.ID, published); err != nil {
		a.log.Warn("Failed to store listing snapshot", zap.Error(err))
	}
}

// reject ends an attempt that never reached the marketplace.
func (o *Orchestrator) reject(ctx context.Context, result *Result, opts Options, l *zap.Logger, err error) {
	result.enter(StateFailed)
	result.Success = false
	result.Error = err.Error()
	result.ErrorKind = Classify(err)
	result.Suggestions = Suggest(result.ErrorKind)
	result.Message = err.Error()
	if errors.Is(err, lock.ErrLockTimeout) {
		result.Message = "another sync of this product and account is still running"
	}
	o.audit(ctx, result, models.OutcomeFailure, opts.Actor)
	l.Warn("Sync rejected", zap.Error(err))
}

// fail records a failed attempt: status failed, degraded health, classified suggestions.
func (o *Orchestrator) fail(ctx context.Context, result *Result, a *attempt, err error) {
	ctx = context.WithoutCancel(ctx)
	result.enter(StateFailed)
	result.Success = false
	result.Error = err.Error()
	if kind := Classify(err); kind != marketplace.KindUnknown || result.ErrorKind == "" {
		result.ErrorKind = kind
	}
	result.Suggestions = Suggest(result.ErrorKind)
	result.Message = "sync failed: " + err.Error()
	if result.ColorsTotal == 0 {
		metrics.ExternalErrorsTotal.WithLabelValues(string(result.ErrorKind)).Inc()
	}

	health := drift.Score(drift.HealthInput{Status: drift.StatusError, Quality: drift.AssessQuality(a.product)})
	result.Health = &health

	if a.product != nil && a.account != nil {
		rerr := o.reconciler.RecordFailure(ctx, links.Outcome{
			ProductID:   a.product.ID,
			AccountID:   a.account.ID,
			HealthScore: health.Score,
			Metadata: map[string]any{
				"strategy":   string(result.Strategy),
				"error_kind": string(result.ErrorKind),
			},
			Actor: a.opts.Actor,
		}, err.Error())
		if rerr != nil {
			a.log.Error("Failed to record sync failure", zap.Error(rerr))
		}
	}

	o.audit(ctx, result, models.OutcomeFailure, a.opts.Actor)
	a.log.Error("Sync failed",
		zap.String("strategy", string(result.Strategy)),
		zap.String("error_kind", string(result.ErrorKind)),
		zap.Error(err))
}

func (o *Orchestrator) audit(ctx context.Context, result *Result, outcome models.Outcome, actor string) {
	if o.recorder == nil {
		return
	}
	_, err := o.recorder.Record(context.WithoutCancel(ctx), audit.Entry{
		AccountID: result.AccountID,
		Action:    models.ActionSync,
		Subject:   models.ProductOwner(result.ProductID),
		Outcome:   outcome,
		Message:   result.Message,
		Actor:     actor,
	})
	if err != nil {
		o.logger.Error("Failed to record sync log", zap.Error(err))
	}
}

func snapshotFromPayload(listingID, color string, payload marketplace.ListingPayload) drift.Snapshot {
	snap := drift.Snapshot{ListingID: listingID, Color: color, Title: payload.Title, FetchedAt: time.Now()}
	for _, v := range payload.Variants {
		snap.Variants = append(snap.Variants, marketplace.RemoteVariant{
			SKU:               v.SKU,
			Price:             v.Price,
			InventoryQuantity: v.InventoryQuantity,
			Option1:           v.Option1,
			Option2:           v.Option2,
			Option3:           v.Option3,
		})
	}
	return snap
}

func firstVariantID(listing *marketplace.Listing) string {
	if listing == nil || len(listing.Variants) == 0 {
		return ""
	}
	return listing.Variants[0].ID
}
