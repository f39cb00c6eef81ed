package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"marketplace-sync/core/logger"
	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/metrics"
	"marketplace-sync/feature/audit"
	"marketplace-sync/feature/catalog"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/links"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ListingResult is the outcome for one listing.
type ListingResult struct {
	Color     string `json:"color,omitempty"`
	ListingID string `json:"listing_id"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Unmatched int    `json:"unmatched"`
	Error     string `json:"error,omitempty"`
}

// PriceChange is one computed variant price.
type PriceChange struct {
	SKU       string   `json:"sku"`
	Color     string   `json:"color,omitempty"`
	Base      string   `json:"base"`
	Final     string   `json:"final"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Result is the outcome of a pricing update. Success is false only when no listing was
// priced; failed listings carry their error in Listings.
type Result struct {
	ProductID       int64           `json:"product_id"`
	AccountID       int64           `json:"account_id"`
	Source          Source          `json:"source"`
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	VariantsUpdated int             `json:"variants_updated"`
	Listings        []ListingResult `json:"listings"`
	Changes         []PriceChange   `json:"changes,omitempty"`
	Duration        time.Duration   `json:"duration"`
}

type target struct {
	color     string
	listingID string
}

// Updater pushes computed variant prices to linked listings.
type Updater struct {
	catalog    catalog.Repository
	reconciler *links.Reconciler
	provider   marketplace.Provider
	recorder   *audit.Recorder
	modifiers  Modifiers
	logger     *zap.Logger
}

// NewUpdater creates an Updater with the default modifiers.
func NewUpdater(catalogRepo catalog.Repository, reconciler *links.Reconciler, provider marketplace.Provider, recorder *audit.Recorder, logger *zap.Logger) *Updater {
	return &Updater{
		catalog:    catalogRepo,
		reconciler: reconciler,
		provider:   provider,
		recorder:   recorder,
		modifiers:  DefaultModifiers(),
		logger:     logger,
	}
}

// WithModifiers replaces the pricing rules.
func (u *Updater) WithModifiers(m Modifiers) *Updater {
	u.modifiers = m
	return u
}

// Update prices every variant of the product's linked listings on an account. Only colors with
// a linked listing are priced, and each listing receives one bulk update. It never returns an
// error; failures are reported in the result.
func (u *Updater) Update(ctx context.Context, productID, accountID int64, source Source, actor string) *Result {
	start := time.Now()
	result := &Result{ProductID: productID, AccountID: accountID, Source: source}
	l := logger.WithPair(u.logger, productID, accountID)

	defer func() {
		result.Duration = time.Since(start)
	}()

	product, err := u.catalog.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return u.fail(ctx, result, l, fmt.Sprintf("product %d not found", productID), actor)
	}
	if err != nil {
		return u.fail(ctx, result, l, err.Error(), actor)
	}
	account, err := u.catalog.GetAccount(ctx, accountID)
	if errors.Is(err, catalog.ErrAccountNotFound) {
		return u.fail(ctx, result, l, fmt.Sprintf("sync account %d not found", accountID), actor)
	}
	if err != nil {
		return u.fail(ctx, result, l, err.Error(), actor)
	}
	if !account.Active {
		return u.fail(ctx, result, l, fmt.Sprintf("sync account %d is inactive", accountID), actor)
	}
	client, err := u.provider.ClientFor(account.StoreURL)
	if err != nil {
		return u.fail(ctx, result, l, err.Error(), actor)
	}

	targets, err := u.targets(ctx, productID, accountID)
	if err != nil {
		return u.fail(ctx, result, l, err.Error(), actor)
	}
	if len(targets) == 0 {
		result.Message = "no linked listings to price"
		u.audit(ctx, result, models.OutcomeSkipped, actor)
		return result
	}

	failed := 0
	for _, t := range targets {
		lr := u.updateListing(ctx, client, product, t, source, result)
		if lr.Error != "" {
			failed++
			l.Warn("Pricing update failed for listing",
				zap.String("listing_id", t.listingID),
				zap.String("color", t.color),
				zap.String("error", lr.Error))
		}
		result.VariantsUpdated += lr.Updated
		result.Listings = append(result.Listings, lr)
	}

	metrics.PricingVariantsUpdated.Add(float64(result.VariantsUpdated))
	result.Success = len(targets)-failed > 0
	result.Message = fmt.Sprintf("updated %d variant(s) across %d listing(s), %d failed",
		result.VariantsUpdated, len(targets)-failed, failed)

	outcome := models.OutcomeSuccess
	if !result.Success {
		outcome = models.OutcomeFailure
	}
	u.audit(ctx, result, outcome, actor)
	l.Info("Pricing update finished",
		zap.String("source", string(source)),
		zap.Int("variants_updated", result.VariantsUpdated),
		zap.Int("failed_listings", failed))
	return result
}

// fail ends an update that could not start. The message is logged and audited.
func (u *Updater) fail(ctx context.Context, result *Result, l *zap.Logger, msg, actor string) *Result {
	result.Success = false
	result.Message = "pricing update failed: " + msg
	u.audit(ctx, result, models.OutcomeFailure, actor)
	l.Warn("Pricing update rejected", zap.String("reason", msg))
	return result
}

// targets returns the linked color listings, or the product-level listing when the product
// is not split.
func (u *Updater) targets(ctx context.Context, productID, accountID int64) ([]target, error) {
	colorLinks, err := u.reconciler.ActiveColorLinks(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}

	var out []target
	for color, link := range colorLinks {
		if link.LinkStatus == models.LinkLinked && link.ExternalProductID != "" {
			out = append(out, target{color: color, listingID: link.ExternalProductID})
		}
	}
	if len(out) > 0 {
		sort.Slice(out, func(i, j int) bool { return out[i].color < out[j].color })
		return out, nil
	}

	link, err := u.reconciler.Repository().FindActiveLink(ctx, productID, accountID, "")
	if err != nil {
		return nil, err
	}
	if link != nil && link.LinkStatus == models.LinkLinked && link.ExternalProductID != "" {
		out = append(out, target{listingID: link.ExternalProductID})
	}
	return out, nil
}

func (u *Updater) updateListing(ctx context.Context, client marketplace.Client, product *models.Product, t target, source Source, result *Result) ListingResult {
	lr := ListingResult{Color: t.color, ListingID: t.listingID}

	remote, err := client.GetProductVariantsWithPricing(ctx, t.listingID)
	if err != nil {
		metrics.ExternalErrorsTotal.WithLabelValues(string(marketplace.Classify(err))).Inc()
		lr.Error = err.Error()
		return lr
	}
	bySKU := make(map[string]marketplace.RemoteVariant, len(remote))
	for _, rv := range remote {
		if rv.SKU != "" {
			bySKU[rv.SKU] = rv
		}
	}

	var updates []marketplace.PriceUpdate
	for _, v := range product.Variants {
		if t.color != "" && v.Color != t.color {
			continue
		}
		rv, ok := bySKU[v.SKU]
		if !ok {
			lr.Unmatched++
			continue
		}

		base := BasePrice(v, source)
		final, applied := u.modifiers.Apply(v, base)
		result.Changes = append(result.Changes, PriceChange{
			SKU:       v.SKU,
			Color:     v.Color,
			Base:      base.StringFixed(2),
			Final:     final.StringFixed(2),
			Modifiers: applied,
		})

		if current, err := decimal.NewFromString(rv.Price); err == nil && current.Equal(final) {
			lr.Unchanged++
			continue
		}
		updates = append(updates, marketplace.PriceUpdate{VariantID: rv.ID, Price: final.StringFixed(2)})
	}

	if len(updates) == 0 {
		return lr
	}

	n, err := client.UpdateProductVariantsPricing(ctx, t.listingID, updates)
	if err != nil {
		metrics.ExternalErrorsTotal.WithLabelValues(string(marketplace.Classify(err))).Inc()
		lr.Error = err.Error()
		return lr
	}
	lr.Updated = n
	return lr
}

func (u *Updater) audit(ctx context.Context, result *Result, outcome models.Outcome, actor string) {
	if u.recorder == nil {
		return
	}
	_, err := u.recorder.Record(context.WithoutCancel(ctx), audit.Entry{
		AccountID: result.AccountID,
		Action:    models.ActionPricingUpdate,
		Subject:   models.ProductOwner(result.ProductID),
		Outcome:   outcome,
		Message:   result.Message,
		Actor:     actor,
	})
	if err != nil {
		u.logger.Error("Failed to record sync log", zap.Error(err))
	}
}
