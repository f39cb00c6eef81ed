package marketplace_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-sync/core/marketplace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *marketplace.ShopifyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := marketplace.NewShopifyClient(marketplace.Config{
		APIVersion:        "2024-01",
		TimeoutSeconds:    2,
		RequestsPerSecond: 100,
		Burst:             10,
	}, srv.URL, "token-1")
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewShopifyClient_RequiresStore(t *testing.T) {
	_, err := marketplace.NewShopifyClient(marketplace.Config{}, "", "")
	assert.Error(t, err)
}

func TestCreateProductREST(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2024-01/products.json", r.URL.Path)
		assert.Equal(t, "token-1", r.Header.Get("X-Shopify-Access-Token"))

		var body struct {
			Product struct {
				Title    string `json:"title"`
				Variants []struct {
					SKU     string `json:"sku"`
					Option1 string `json:"option1"`
				} `json:"variants"`
			} `json:"product"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Blind", body.Product.Title)
		assert.Len(t, body.Product.Variants, 2)

		writeJSON(w, http.StatusCreated, `{"product":{"id":101,"title":"Blind","status":"active",
			"admin_graphql_api_id":"gid://shopify/Product/101",
			"variants":[{"id":1,"sku":"B-RED","price":"10.00"},{"id":2,"sku":"B-BLUE","price":"12.00"}]}}`)
	})

	listing, err := client.CreateProductREST(context.Background(), marketplace.ListingPayload{
		Title:   "Blind",
		Options: []string{marketplace.OptionColor},
		Variants: []marketplace.VariantInput{
			{SKU: "B-RED", Price: "10.00", Option1: "Red"},
			{SKU: "B-BLUE", Price: "12.00", Option1: "Blue"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Product/101", listing.ID)
	require.Len(t, listing.Variants, 2)
	assert.Equal(t, "gid://shopify/ProductVariant/1", listing.Variants[0].ID)
}

func TestGetProduct_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/products/55.json", r.URL.Path)
		writeJSON(w, http.StatusNotFound, `{"errors":"Not Found"}`)
	})

	_, err := client.GetProduct(context.Background(), "gid://shopify/Product/55")
	require.Error(t, err)
	assert.True(t, marketplace.IsNotFound(err))

	var apiErr *marketplace.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Not Found", apiErr.Message)
}

func TestUpdateProductREST_ValidationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		writeJSON(w, http.StatusUnprocessableEntity, `{"errors":{"title":["can't be blank"]}}`)
	})

	_, err := client.UpdateProductREST(context.Background(), "7", marketplace.ListingPayload{})
	assert.Equal(t, marketplace.KindValidation, marketplace.Classify(err))
	assert.ErrorContains(t, err, "title: can't be blank")
}

func TestCreateProduct_GraphQL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)

		var req struct {
			Query     string                    `json:"query"`
			Variables map[string]map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "productCreate")
		assert.Equal(t, "Blind - Red", req.Variables["input"]["title"])
		assert.Len(t, req.Variables["input"]["variants"], 1)

		writeJSON(w, http.StatusOK, `{"data":{"productCreate":{"product":{"id":"gid://shopify/Product/9","title":"Blind - Red","status":"ACTIVE",
			"variants":{"nodes":[{"id":"gid://shopify/ProductVariant/90","sku":"B-RED-1","price":"10.00","inventoryQuantity":3,
			"selectedOptions":[{"name":"Color","value":"Red"},{"name":"Width","value":"60"}]}]}},"userErrors":[]}}}`)
	})

	listing, err := client.CreateProduct(context.Background(), marketplace.ListingPayload{
		Title:   "Blind - Red",
		Options: []string{marketplace.OptionColor, marketplace.OptionWidth, marketplace.OptionDrop},
		Variants: []marketplace.VariantInput{
			{SKU: "B-RED-1", Price: "10.00", Option1: "Red", Option2: "60"},
			{SKU: "B-RED-2", Price: "11.00", Option1: "Red", Option2: "90"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Product/9", listing.ID)
	assert.Equal(t, "active", listing.Status)
	require.Len(t, listing.Variants, 1)
	assert.Equal(t, "Red", listing.Variants[0].Option1)
	assert.Equal(t, "60", listing.Variants[0].Option2)
}

func TestCreateProduct_UserErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"productCreate":{"product":null,"userErrors":[{"field":["title"],"message":"Title can't be blank"}]}}}`)
	})

	_, err := client.CreateProduct(context.Background(), marketplace.ListingPayload{})
	assert.Equal(t, marketplace.KindValidation, marketplace.Classify(err))
	assert.ErrorContains(t, err, "title: Title can't be blank")
}

func TestGraphQL_Throttled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`)
	})

	_, err := client.GetProductVariantsWithPricing(context.Background(), "1")
	assert.Equal(t, marketplace.KindRateLimited, marketplace.Classify(err))
}

func TestGetProductVariantsWithPricing_Missing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"product":null}}`)
	})

	_, err := client.GetProductVariantsWithPricing(context.Background(), "1")
	assert.True(t, marketplace.IsNotFound(err))
}

func TestUpdateProductVariantsPricing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables struct {
				ProductID string `json:"productId"`
				Variants  []struct {
					ID    string `json:"id"`
					Price string `json:"price"`
				} `json:"variants"`
			} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gid://shopify/Product/5", req.Variables.ProductID)
		require.Len(t, req.Variables.Variants, 2)
		assert.Equal(t, "gid://shopify/ProductVariant/51", req.Variables.Variants[0].ID)
		assert.Equal(t, "115.00", req.Variables.Variants[0].Price)

		writeJSON(w, http.StatusOK, `{"data":{"productVariantsBulkUpdate":{"productVariants":[{"id":"a"},{"id":"b"}],"userErrors":[]}}}`)
	})

	n, err := client.UpdateProductVariantsPricing(context.Background(), "5", []marketplace.PriceUpdate{
		{VariantID: "51", Price: "115.00"},
		{VariantID: "gid://shopify/ProductVariant/52", Price: "20.00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCreateBulkVariants_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	assert.NoError(t, client.CreateBulkVariants(context.Background(), "1", nil))
}

func TestGetProduct_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := marketplace.NewShopifyClient(marketplace.Config{
		APIVersion:        "2024-01",
		TimeoutSeconds:    2,
		RequestsPerSecond: 100,
		Burst:             10,
	}, srv.URL, "token-1")
	require.NoError(t, err)

	_, err = client.GetProduct(context.Background(), "gid://shopify/Product/7540404123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "7540404123")
	assert.False(t, marketplace.IsNotFound(err))
	assert.Equal(t, marketplace.KindTransient, marketplace.Classify(err))
}
