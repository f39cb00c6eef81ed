package marketplace

import "context"

// Client is the external marketplace contract.
// Failures are returned as *APIError when the remote answered, so callers can Classify them.
type Client interface {
	// CreateProduct creates a listing through the GraphQL API with its first variant.
	CreateProduct(ctx context.Context, payload ListingPayload) (*Listing, error)
	// CreateBulkVariants adds variants to an existing listing in one call.
	CreateBulkVariants(ctx context.Context, listingID string, variants []VariantInput) error
	// CreateProductREST creates a listing with all variants through the REST API.
	CreateProductREST(ctx context.Context, payload ListingPayload) (*Listing, error)
	// UpdateProductREST replaces a listing's fields and variants through the REST API.
	UpdateProductREST(ctx context.Context, listingID string, payload ListingPayload) (*Listing, error)
	// GetProduct fetches a listing. A missing listing yields a 404 APIError.
	GetProduct(ctx context.Context, listingID string) (*Listing, error)
	// GetProductVariantsWithPricing lists a listing's variants with ids, SKUs and prices.
	GetProductVariantsWithPricing(ctx context.Context, listingID string) ([]RemoteVariant, error)
	// UpdateProductVariantsPricing updates variant prices of one listing in one call
	// and returns the number of variants updated.
	UpdateProductVariantsPricing(ctx context.Context, listingID string, updates []PriceUpdate) (int, error)
}
