package mocks

import (
	"context"

	"marketplace-sync/core/marketplace"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of marketplace.Client
type Client struct {
	mock.Mock
}

func (m *Client) CreateProduct(ctx context.Context, payload marketplace.ListingPayload) (*marketplace.Listing, error) {
	args := m.Called(ctx, payload)
	if l, ok := args.Get(0).(*marketplace.Listing); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) CreateBulkVariants(ctx context.Context, listingID string, variants []marketplace.VariantInput) error {
	args := m.Called(ctx, listingID, variants)
	return args.Error(0)
}

func (m *Client) CreateProductREST(ctx context.Context, payload marketplace.ListingPayload) (*marketplace.Listing, error) {
	args := m.Called(ctx, payload)
	if l, ok := args.Get(0).(*marketplace.Listing); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) UpdateProductREST(ctx context.Context, listingID string, payload marketplace.ListingPayload) (*marketplace.Listing, error) {
	args := m.Called(ctx, listingID, payload)
	if l, ok := args.Get(0).(*marketplace.Listing); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) GetProduct(ctx context.Context, listingID string) (*marketplace.Listing, error) {
	args := m.Called(ctx, listingID)
	if l, ok := args.Get(0).(*marketplace.Listing); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) GetProductVariantsWithPricing(ctx context.Context, listingID string) ([]marketplace.RemoteVariant, error) {
	args := m.Called(ctx, listingID)
	if v, ok := args.Get(0).([]marketplace.RemoteVariant); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) UpdateProductVariantsPricing(ctx context.Context, listingID string, updates []marketplace.PriceUpdate) (int, error) {
	args := m.Called(ctx, listingID, updates)
	return args.Int(0), args.Error(1)
}
