package links

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/metrics"
	"marketplace-sync/core/reconcile"
	"marketplace-sync/feature/audit"
	"marketplace-sync/feature/catalog"
	"marketplace-sync/feature/catalog/models"

	"go.uber.org/zap"
)

// MatchRule decides how an existing listing is verified before it is linked.
type MatchRule string

const (
	// MatchSKU requires at least one internal variant SKU on the listing.
	MatchSKU MatchRule = "sku"
	// MatchParentSKU requires a listing variant SKU starting with the product's parent SKU.
	MatchParentSKU MatchRule = "parent_sku"
	// MatchNone only checks that the listing exists.
	MatchNone MatchRule = "none"
)

var (
	// ErrInvalidRequest is returned for malformed link requests.
	ErrInvalidRequest = errors.New("links: invalid request")
	// ErrMatchFailed is returned when a listing does not satisfy the match rule.
	ErrMatchFailed = errors.New("links: listing does not match product")
)

// LinkRequest attaches an existing external listing to a product.
type LinkRequest struct {
	ProductID         int64     `json:"product_id"`
	AccountID         int64     `json:"account_id"`
	ExternalProductID string    `json:"external_product_id"`
	Color             string    `json:"color"`
	Match             MatchRule `json:"match"`
	Actor             string    `json:"-"`
}

// LinkResult reports a created or updated link.
type LinkResult struct {
	Link          *models.MarketplaceLink `json:"link"`
	MatchedSKUs   []string                `json:"matched_skus,omitempty"`
	AdminURL      string                  `json:"admin_url,omitempty"`
	VariantsCount int                     `json:"variants_count"`
}

// RefreshedLink is the outcome of re-fetching one link's listing.
type RefreshedLink struct {
	LinkID            int64             `json:"link_id"`
	Color             string            `json:"color"`
	ExternalProductID string            `json:"external_product_id"`
	Status            models.LinkStatus `json:"status"`
	VariantsCount     int               `json:"variants_count"`
	Error             string            `json:"error,omitempty"`
}

// RefreshReport is the result of RefreshColorLinks.
type RefreshReport struct {
	ProductID int64           `json:"product_id"`
	AccountID int64           `json:"account_id"`
	Links     []RefreshedLink `json:"links"`
	Missing   int             `json:"missing"`
	Errors    int             `json:"errors"`
}

// ReconcileRequest drives a bulk reconciliation across an account.
type ReconcileRequest struct {
	AccountID  int64   `json:"account_id"`
	ProductIDs []int64 `json:"product_ids"`
	DryRun     bool    `json:"dry_run"`
	Confirmed  bool    `json:"confirmed"`
	Actor      string  `json:"-"`
}

// ReconcileResponse wraps a reconcile plan with the number of applied actions.
type ReconcileResponse struct {
	Plan     *reconcile.ReconcilePlan `json:"plan"`
	Executed int                      `json:"executed"`
}

// Service exposes link operations with auditing.
type Service struct {
	reconciler *Reconciler
	catalog    catalog.Repository
	provider   marketplace.Provider
	recorder   *audit.Recorder
	logger     *zap.Logger
	cacheTTL   time.Duration
}

// NewService creates a links service.
func NewService(reconciler *Reconciler, catalogRepo catalog.Repository, provider marketplace.Provider, recorder *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		reconciler: reconciler,
		catalog:    catalogRepo,
		provider:   provider,
		recorder:   recorder,
		logger:     logger,
	}
}

// WithCacheTTL enables the reconcile index cache for bulk runs.
func (s *Service) WithCacheTTL(ttl time.Duration) *Service {
	s.cacheTTL = ttl
	return s
}

// Reconciler returns the per-pair reconciler.
func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// Status returns the canonical status of a pair.
func (s *Service) Status(ctx context.Context, productID, accountID int64) (*CanonicalStatus, error) {
	return s.reconciler.Status(ctx, productID, accountID)
}

// Synchronize reconciles one pair and audits any write.
func (s *Service) Synchronize(ctx context.Context, productID, accountID int64, actor string) (*SyncReport, error) {
	report, err := s.reconciler.Synchronize(ctx, productID, accountID, actor)
	if err != nil {
		s.audit(ctx, accountID, productID, models.ActionSyncSystems, models.OutcomeFailure, err.Error(), actor)
		return nil, err
	}
	metrics.ReconcileActionsTotal.WithLabelValues(string(report.Action)).Inc()
	if report.Action != SyncNone {
		s.audit(ctx, accountID, productID, models.ActionSyncSystems, models.OutcomeSuccess, report.Message, actor)
	}
	return report, nil
}

// Link verifies an external listing against the product and links it.
func (s *Service) Link(ctx context.Context, req LinkRequest) (*LinkResult, error) {
	if req.ProductID == 0 || req.AccountID == 0 || req.ExternalProductID == "" {
		return nil, fmt.Errorf("%w: product_id, account_id and external_product_id are required", ErrInvalidRequest)
	}
	if req.Match == "" {
		req.Match = MatchSKU
	}
	switch req.Match {
	case MatchSKU, MatchParentSKU, MatchNone:
	default:
		return nil, fmt.Errorf("%w: unknown match rule %q", ErrInvalidRequest, req.Match)
	}

	product, account, client, err := s.resolve(ctx, req.ProductID, req.AccountID)
	if err != nil {
		return nil, err
	}

	listing, err := client.GetProduct(ctx, req.ExternalProductID)
	if err != nil {
		s.audit(ctx, req.AccountID, req.ProductID, models.ActionLink, models.OutcomeFailure, err.Error(), req.Actor)
		return nil, err
	}

	matched, err := matchListing(product, listing, req.Match, req.Color)
	if err != nil {
		s.audit(ctx, req.AccountID, req.ProductID, models.ActionLink, models.OutcomeFailure, err.Error(), req.Actor)
		return nil, err
	}

	var link *models.MarketplaceLink
	if req.Color != "" {
		link, err = s.reconciler.UpsertColorLink(ctx, ColorLink{
			ProductID:         req.ProductID,
			AccountID:         req.AccountID,
			Color:             req.Color,
			ExternalProductID: listing.ID,
			ExternalVariantID: firstVariantID(listing),
			VariantsCount:     len(listing.Variants),
			Status:            models.LinkLinked,
			Actor:             req.Actor,
		})
		if err == nil {
			err = s.reconciler.RecordSuccess(ctx, Outcome{
				ProductID:   req.ProductID,
				AccountID:   req.AccountID,
				HealthScore: 100,
				Actor:       req.Actor,
				Metadata:    map[string]any{"linked_color": req.Color},
			})
		}
	} else {
		err = s.reconciler.RecordSuccess(ctx, Outcome{
			ProductID:         req.ProductID,
			AccountID:         req.AccountID,
			ExternalProductID: listing.ID,
			ExternalVariantID: firstVariantID(listing),
			HealthScore:       100,
			Actor:             req.Actor,
			ProductLink:       true,
		})
		if err == nil {
			link, err = s.reconciler.repo.FindActiveLink(ctx, req.ProductID, req.AccountID, "")
		}
	}
	if err != nil {
		return nil, err
	}

	s.audit(ctx, req.AccountID, req.ProductID, models.ActionLink, models.OutcomeSuccess,
		fmt.Sprintf("linked %s (%s match)", listing.ID, req.Match), req.Actor)

	return &LinkResult{
		Link:          link,
		MatchedSKUs:   matched,
		AdminURL:      marketplace.AdminURL(account.StoreURL, listing.ID),
		VariantsCount: len(listing.Variants),
	}, nil
}

// Unlink soft-retires links of a pair and audits the change.
func (s *Service) Unlink(ctx context.Context, productID, accountID int64, colors []string, actor string) (int, error) {
	retired, err := s.reconciler.Unlink(ctx, productID, accountID, colors, actor)
	if err != nil {
		s.audit(ctx, accountID, productID, models.ActionUnlink, models.OutcomeFailure, err.Error(), actor)
		return 0, err
	}
	if retired > 0 {
		msg := fmt.Sprintf("unlinked %d link(s)", retired)
		if len(colors) > 0 {
			msg += " for " + strings.Join(colors, ", ")
		}
		s.audit(ctx, accountID, productID, models.ActionUnlink, models.OutcomeSuccess, msg, actor)
	}
	return retired, nil
}

// RefreshColorLinks re-fetches every active listing of a pair. Listings that no longer exist
// are marked failed so the next sync recreates them; other errors leave the link untouched.
func (s *Service) RefreshColorLinks(ctx context.Context, productID, accountID int64, actor string) (*RefreshReport, error) {
	_, _, client, err := s.resolve(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}

	links, err := s.reconciler.repo.ListLinks(ctx, productID, accountID)
	if err != nil {
		return nil, err
	}

	report := &RefreshReport{ProductID: productID, AccountID: accountID}
	for i := range links {
		l := &links[i]
		if !l.Active() || l.ExternalProductID == "" {
			continue
		}

		entry := RefreshedLink{LinkID: l.ID, Color: l.ColorFilter, ExternalProductID: l.ExternalProductID}
		listing, err := client.GetProduct(ctx, l.ExternalProductID)
		switch {
		case marketplace.IsNotFound(err):
			l.LinkStatus = models.LinkFailed
			l.MarketplaceData = mergeMetadata(l.MarketplaceData, map[string]any{"missing_since": time.Now().UTC().Format(time.RFC3339)})
			report.Missing++
		case err != nil:
			entry.Error = err.Error()
			report.Errors++
		default:
			entry.VariantsCount = len(listing.Variants)
			l.MarketplaceData = mergeMetadata(l.MarketplaceData, map[string]any{"variants_count": len(listing.Variants)})
		}
		if err == nil || marketplace.IsNotFound(err) {
			if saveErr := s.reconciler.repo.SaveLink(ctx, l); saveErr != nil {
				return nil, saveErr
			}
		}
		entry.Status = l.LinkStatus
		report.Links = append(report.Links, entry)
	}

	if _, err := s.reconciler.Synchronize(ctx, productID, accountID, actor); err != nil {
		return nil, err
	}

	outcome := models.OutcomeSuccess
	if report.Errors > 0 {
		outcome = models.OutcomeFailure
	}
	s.audit(ctx, accountID, productID, models.ActionColorRefresh, outcome,
		fmt.Sprintf("refreshed %d link(s), %d missing, %d error(s)", len(report.Links), report.Missing, report.Errors), actor)
	return report, nil
}

// Reconcile runs the bulk link/status reconciliation for an account.
// Writes happen only when the request is confirmed and not a dry run.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResponse, error) {
	spec := &reconcile.Spec{
		Adapter:  NewAdapter(s.reconciler, req.Actor),
		CacheTTL: s.cacheTTL,
		Scope:    reconcile.Scope{AccountID: req.AccountID, ProductIDs: req.ProductIDs},
	}
	opts := reconcile.ReconcileOptions{DryRun: req.DryRun, DoSync: true, Confirmed: req.Confirmed}

	plan, executed, err := reconcile.ReconcileAndApply(ctx, spec, s.reconciler.repo.DB(), opts)
	if err != nil {
		return nil, err
	}

	if executed > 0 {
		for _, action := range plan.Actions {
			metrics.ReconcileActionsTotal.WithLabelValues(string(action.Type)).Inc()
		}
		s.audit(ctx, req.AccountID, 0, models.ActionSyncSystems, models.OutcomeSuccess,
			fmt.Sprintf("reconciled %d pair(s), applied %d action(s)", plan.Summary.TotalPairs, executed), req.Actor)
	}
	s.logger.Info("Link reconciliation finished",
		zap.Int64("account_id", req.AccountID),
		zap.Int("pairs", plan.Summary.TotalPairs),
		zap.Int("planned", len(plan.Actions)),
		zap.Int("executed", executed),
		zap.Bool("dry_run", req.DryRun))
	return &ReconcileResponse{Plan: plan, Executed: executed}, nil
}

func (s *Service) resolve(ctx context.Context, productID, accountID int64) (*models.Product, *models.SyncAccount, marketplace.Client, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, nil, err
	}
	account, err := s.catalog.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := s.provider.ClientFor(account.StoreURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create marketplace client: %w", err)
	}
	return product, account, client, nil
}

func (s *Service) audit(ctx context.Context, accountID, productID int64, action models.SyncAction, outcome models.Outcome, msg, actor string) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.Record(ctx, audit.Entry{
		AccountID: accountID,
		Action:    action,
		Subject:   models.ProductOwner(productID),
		Outcome:   outcome,
		Message:   msg,
		Actor:     actor,
	}); err != nil {
		s.logger.Error("Failed to record sync log", zap.Error(err))
	}
}

// matchListing applies the match rule and returns the SKUs found on both sides.
func matchListing(product *models.Product, listing *marketplace.Listing, rule MatchRule, color string) ([]string, error) {
	if rule == MatchNone {
		return nil, nil
	}

	remote := make(map[string]bool, len(listing.Variants))
	for _, v := range listing.Variants {
		if v.SKU != "" {
			remote[v.SKU] = true
		}
	}

	switch rule {
	case MatchParentSKU:
		if product.ParentSKU == "" {
			return nil, fmt.Errorf("%w: product has no parent SKU", ErrMatchFailed)
		}
		var matched []string
		for sku := range remote {
			if strings.HasPrefix(sku, product.ParentSKU) {
				matched = append(matched, sku)
			}
		}
		if len(matched) == 0 {
			return nil, fmt.Errorf("%w: no listing SKU starts with %s", ErrMatchFailed, product.ParentSKU)
		}
		sort.Strings(matched)
		return matched, nil
	default:
		var matched []string
		for _, v := range product.Variants {
			if color != "" && v.Color != color {
				continue
			}
			if remote[v.SKU] {
				matched = append(matched, v.SKU)
			}
		}
		if len(matched) == 0 {
			return nil, fmt.Errorf("%w: no internal SKU found on listing", ErrMatchFailed)
		}
		return matched, nil
	}
}

func firstVariantID(listing *marketplace.Listing) string {
	if len(listing.Variants) == 0 {
		return ""
	}
	return listing.Variants[0].ID
}
