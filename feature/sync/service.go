package sync

import (
	"context"
	"errors"
	"fmt"

	"marketplace-sync/feature/pricing"

	"go.uber.org/zap"
)

// ErrInvalidRequest is returned for malformed bulk requests.
var ErrInvalidRequest = errors.New("invalid sync request")

// MaxBatchSize caps the products of one bulk request.
const MaxBatchSize = 500

// SyncRequest asks to synchronize products to an account.
type SyncRequest struct {
	ProductIDs    []int64 `json:"product_ids"`
	AccountID     int64   `json:"account_id"`
	Force         bool    `json:"force"`
	ForceGraphQL  bool    `json:"force_graphql"`
	ForceREST     bool    `json:"force_rest"`
	StopOnFailure bool    `json:"stop_on_failure"`
	Concurrency   int     `json:"concurrency"`
	Actor         string  `json:"-"`
}

// StatusRequest asks for the health of products on an account.
type StatusRequest struct {
	ProductIDs  []int64 `json:"product_ids"`
	AccountID   int64   `json:"account_id"`
	Refresh     bool    `json:"refresh"`
	Concurrency int     `json:"concurrency"`
}

// PricingRequest asks to push prices of products to their linked listings.
type PricingRequest struct {
	ProductIDs []int64 `json:"product_ids"`
	AccountID  int64   `json:"account_id"`
	Source     string  `json:"source"`
	Actor      string  `json:"-"`
}

// PricingSummary aggregates a pricing run. Success is false only when no product succeeded.
type PricingSummary struct {
	AccountID int64             `json:"account_id"`
	Source    pricing.Source    `json:"source"`
	Success   bool              `json:"success"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []*pricing.Result `json:"results"`
}

// Service is the entry point for bulk sync, status checks and pricing.
type Service struct {
	orchestrator *Orchestrator
	pricing      *pricing.Updater
	logger       *zap.Logger
}

// NewService creates a new sync service.
func NewService(orchestrator *Orchestrator, updater *pricing.Updater, logger *zap.Logger) *Service {
	return &Service{orchestrator: orchestrator, pricing: updater, logger: logger}
}

// Orchestrator returns the underlying orchestrator.
func (s *Service) Orchestrator() *Orchestrator {
	return s.orchestrator
}

// SyncProduct synchronizes a single product.
func (s *Service) SyncProduct(ctx context.Context, productID, accountID int64, opts Options) *Result {
	return s.orchestrator.Sync(ctx, productID, accountID, opts)
}

// SyncProducts synchronizes a batch of products.
func (s *Service) SyncProducts(ctx context.Context, req SyncRequest) (*BulkSummary, error) {
	if err := validateBatch(req.ProductIDs, req.AccountID); err != nil {
		return nil, err
	}
	return s.orchestrator.SyncMany(ctx, req.ProductIDs, req.AccountID, BulkOptions{
		Options: Options{
			Force:        req.Force,
			ForceGraphQL: req.ForceGraphQL,
			ForceREST:    req.ForceREST,
			Actor:        req.Actor,
		},
		StopOnFailure: req.StopOnFailure,
		Concurrency:   req.Concurrency,
	}), nil
}

// CheckStatus reports the health of a batch of products.
func (s *Service) CheckStatus(ctx context.Context, req StatusRequest) (*StatusSummary, error) {
	if err := validateBatch(req.ProductIDs, req.AccountID); err != nil {
		return nil, err
	}
	return s.orchestrator.CheckMany(ctx, req.ProductIDs, req.AccountID, req.Refresh, req.Concurrency), nil
}

// UpdatePricing pushes prices of a batch of products, one product at a time.
func (s *Service) UpdatePricing(ctx context.Context, req PricingRequest) (*PricingSummary, error) {
	if err := validateBatch(req.ProductIDs, req.AccountID); err != nil {
		return nil, err
	}
	source, err := pricing.ParseSource(req.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	summary := &PricingSummary{AccountID: req.AccountID, Source: source, Total: len(req.ProductIDs)}
	for _, id := range req.ProductIDs {
		if ctx.Err() != nil {
			break
		}
		r := s.pricing.Update(ctx, id, req.AccountID, source, req.Actor)
		summary.Results = append(summary.Results, r)
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Success = summary.Succeeded > 0
	return summary, nil
}

func validateBatch(ids []int64, accountID int64) error {
	if accountID <= 0 {
		return fmt.Errorf("%w: account_id is required", ErrInvalidRequest)
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: product_ids is empty", ErrInvalidRequest)
	}
	if len(ids) > MaxBatchSize {
		return fmt.Errorf("%w: at most %d products per request", ErrInvalidRequest, MaxBatchSize)
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: invalid product id %d", ErrInvalidRequest, id)
		}
	}
	return nil
}
