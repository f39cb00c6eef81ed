package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ShopifyClient implements Client against the Shopify admin REST and GraphQL APIs.
type ShopifyClient struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewShopifyClient creates a client for one store. storeDomain may be a bare
// domain ("shop.myshopify.com") or a full base URL, which tests use.
func NewShopifyClient(cfg Config, storeDomain, accessToken string) (*ShopifyClient, error) {
	if storeDomain == "" {
		storeDomain = cfg.StoreDomain
	}
	if storeDomain == "" {
		return nil, fmt.Errorf("marketplace: no store domain configured")
	}
	if accessToken == "" {
		accessToken = cfg.AccessToken
	}

	base := storeDomain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	version := cfg.APIVersion
	if version == "" {
		version = "2024-01"
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(base, "/")+"/admin/api/"+version).
		SetTimeout(cfg.Timeout()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-Shopify-Access-Token", accessToken)

	return &ShopifyClient{
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// do sends one REST request and decodes a JSON result.
func (c *ShopifyClient) do(ctx context.Context, method, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Message:    restErrorMessage(resp.Body()),
			Body:       resp.String(),
		}
	}
	return nil
}

// restErrorMessage flattens Shopify's {"errors": ...} body, which is a string or a field map.
func restErrorMessage(body []byte) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return strings.TrimSpace(string(body))
	}

	var text string
	if err := json.Unmarshal(envelope.Errors, &text); err == nil {
		return text
	}

	var fields map[string][]string
	if err := json.Unmarshal(envelope.Errors, &fields); err == nil {
		names := make([]string, 0, len(fields))
		for field := range fields {
			names = append(names, field)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, field := range names {
			parts = append(parts, field+": "+strings.Join(fields[field], ", "))
		}
		return strings.Join(parts, "; ")
	}
	return string(envelope.Errors)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// graphql runs one query and decodes its data into out.
// Top-level errors become APIErrors; THROTTLED maps to 429.
func (c *ShopifyClient) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	var resp graphQLResponse
	if err := c.do(ctx, http.MethodPost, "/graphql.json", graphQLRequest{Query: query, Variables: vars}, &resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		status := http.StatusBadRequest
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e.Extensions.Code == "THROTTLED" {
				status = http.StatusTooManyRequests
			}
			if e.Extensions.Code == "ACCESS_DENIED" {
				status = http.StatusForbidden
			}
			msgs = append(msgs, e.Message)
		}
		return &APIError{StatusCode: status, Message: strings.Join(msgs, "; ")}
	}

	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}
	return nil
}

func userErrorsToError(errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if len(e.Field) > 0 {
			msgs = append(msgs, strings.Join(e.Field, ".")+": "+e.Message)
			continue
		}
		msgs = append(msgs, e.Message)
	}
	return &APIError{StatusCode: http.StatusUnprocessableEntity, Message: strings.Join(msgs, "; ")}
}

type gqlVariant struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventoryQuantity"`
	SelectedOptions   []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
}

func (v gqlVariant) toRemote() RemoteVariant {
	rv := RemoteVariant{ID: v.ID, SKU: v.SKU, Price: v.Price, InventoryQuantity: v.InventoryQuantity}
	for i, opt := range v.SelectedOptions {
		switch i {
		case 0:
			rv.Option1 = opt.Value
		case 1:
			rv.Option2 = opt.Value
		case 2:
			rv.Option3 = opt.Value
		}
	}
	return rv
}

type gqlProduct struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Variants struct {
		Nodes []gqlVariant `json:"nodes"`
	} `json:"variants"`
}

func (p gqlProduct) toListing() *Listing {
	l := &Listing{ID: p.ID, Title: p.Title, Status: strings.ToLower(p.Status)}
	for _, v := range p.Variants.Nodes {
		l.Variants = append(l.Variants, v.toRemote())
	}
	return l
}

const productCreateMutation = `mutation productCreate($input: ProductInput!) {
  productCreate(input: $input) {
    product { id title status variants(first: 1) { nodes { id sku price inventoryQuantity selectedOptions { name value } } } }
    userErrors { field message }
  }
}`

// CreateProduct creates a listing with its base variant (the first payload variant).
func (c *ShopifyClient) CreateProduct(ctx context.Context, payload ListingPayload) (*Listing, error) {
	input := map[string]any{
		"title":           payload.Title,
		"descriptionHtml": payload.BodyHTML,
		"vendor":          payload.Vendor,
		"productType":     payload.ProductType,
		"tags":            payload.Tags,
		"options":         payload.Options,
		"status":          "ACTIVE",
	}
	if len(payload.Variants) > 0 {
		base := payload.Variants[0]
		input["variants"] = []map[string]any{{
			"sku":     base.SKU,
			"price":   base.Price,
			"options": base.Options(),
		}}
	}

	var out struct {
		ProductCreate struct {
			Product    *gqlProduct `json:"product"`
			UserErrors []userError `json:"userErrors"`
		} `json:"productCreate"`
	}
	if err := c.graphql(ctx, productCreateMutation, map[string]any{"input": input}, &out); err != nil {
		return nil, err
	}
	if err := userErrorsToError(out.ProductCreate.UserErrors); err != nil {
		return nil, err
	}
	if out.ProductCreate.Product == nil {
		return nil, &APIError{StatusCode: http.StatusUnprocessableEntity, Message: "productCreate returned no product"}
	}
	return out.ProductCreate.Product.toListing(), nil
}

const variantsBulkCreateMutation = `mutation productVariantsBulkCreate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkCreate(productId: $productId, variants: $variants) {
    productVariants { id sku }
    userErrors { field message }
  }
}`

// CreateBulkVariants adds the remaining variants of a listing in one mutation.
func (c *ShopifyClient) CreateBulkVariants(ctx context.Context, listingID string, variants []VariantInput) error {
	if len(variants) == 0 {
		return nil
	}

	inputs := make([]map[string]any, 0, len(variants))
	for _, v := range variants {
		inputs = append(inputs, map[string]any{
			"sku":     v.SKU,
			"price":   v.Price,
			"options": v.Options(),
		})
	}

	var out struct {
		ProductVariantsBulkCreate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkCreate"`
	}
	vars := map[string]any{"productId": ProductGID(listingID), "variants": inputs}
	if err := c.graphql(ctx, variantsBulkCreateMutation, vars, &out); err != nil {
		return err
	}
	return userErrorsToError(out.ProductVariantsBulkCreate.UserErrors)
}

type restOption struct {
	Name string `json:"name"`
}

type restVariant struct {
	ID                int64  `json:"id,omitempty"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	Option1           string `json:"option1,omitempty"`
	Option2           string `json:"option2,omitempty"`
	Option3           string `json:"option3,omitempty"`
	InventoryQuantity int    `json:"inventory_quantity"`
	AdminGraphQLAPIID string `json:"admin_graphql_api_id,omitempty"`
}

type restProduct struct {
	ID                int64         `json:"id,omitempty"`
	Title             string        `json:"title"`
	BodyHTML          string        `json:"body_html,omitempty"`
	Vendor            string        `json:"vendor,omitempty"`
	ProductType       string        `json:"product_type,omitempty"`
	Status            string        `json:"status,omitempty"`
	Tags              string        `json:"tags,omitempty"`
	Options           []restOption  `json:"options,omitempty"`
	Variants          []restVariant `json:"variants,omitempty"`
	AdminGraphQLAPIID string        `json:"admin_graphql_api_id,omitempty"`
}

type restProductEnvelope struct {
	Product restProduct `json:"product"`
}

func toRESTProduct(payload ListingPayload) restProduct {
	p := restProduct{
		Title:       payload.Title,
		BodyHTML:    payload.BodyHTML,
		Vendor:      payload.Vendor,
		ProductType: payload.ProductType,
		Status:      "active",
		Tags:        strings.Join(payload.Tags, ", "),
	}
	for _, name := range payload.Options {
		p.Options = append(p.Options, restOption{Name: name})
	}
	for _, v := range payload.Variants {
		p.Variants = append(p.Variants, restVariant{
			SKU:               v.SKU,
			Price:             v.Price,
			Option1:           v.Option1,
			Option2:           v.Option2,
			Option3:           v.Option3,
			InventoryQuantity: v.InventoryQuantity,
		})
	}
	return p
}

func (p restProduct) toListing() *Listing {
	id := p.AdminGraphQLAPIID
	if id == "" && p.ID != 0 {
		id = ProductGID(strconv.FormatInt(p.ID, 10))
	}
	l := &Listing{ID: id, Title: p.Title, Status: p.Status}
	for _, v := range p.Variants {
		vid := v.AdminGraphQLAPIID
		if vid == "" && v.ID != 0 {
			vid = VariantGID(strconv.FormatInt(v.ID, 10))
		}
		l.Variants = append(l.Variants, RemoteVariant{
			ID:                vid,
			SKU:               v.SKU,
			Price:             v.Price,
			InventoryQuantity: v.InventoryQuantity,
			Option1:           v.Option1,
			Option2:           v.Option2,
			Option3:           v.Option3,
		})
	}
	return l
}

func productPath(listingID string) (string, error) {
	id, ok := ExtractNumericID(listingID)
	if !ok {
		return "", &APIError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf("invalid listing id %q", listingID)}
	}
	return fmt.Sprintf("/products/%d.json", id), nil
}

// CreateProductREST creates a listing with every variant in one REST call.
func (c *ShopifyClient) CreateProductREST(ctx context.Context, payload ListingPayload) (*Listing, error) {
	var out restProductEnvelope
	if err := c.do(ctx, http.MethodPost, "/products.json", restProductEnvelope{Product: toRESTProduct(payload)}, &out); err != nil {
		return nil, err
	}
	return out.Product.toListing(), nil
}

// UpdateProductREST replaces a listing's fields and variants.
func (c *ShopifyClient) UpdateProductREST(ctx context.Context, listingID string, payload ListingPayload) (*Listing, error) {
	path, err := productPath(listingID)
	if err != nil {
		return nil, err
	}

	body := toRESTProduct(payload)
	body.ID, _ = ExtractNumericID(listingID)

	var out restProductEnvelope
	if err := c.do(ctx, http.MethodPut, path, restProductEnvelope{Product: body}, &out); err != nil {
		return nil, err
	}
	return out.Product.toListing(), nil
}

// GetProduct fetches one listing with its variants.
func (c *ShopifyClient) GetProduct(ctx context.Context, listingID string) (*Listing, error) {
	path, err := productPath(listingID)
	if err != nil {
		return nil, err
	}

	var out restProductEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Product.toListing(), nil
}

const productVariantsQuery = `query productVariants($id: ID!) {
  product(id: $id) {
    id title status
    variants(first: 250) { nodes { id sku price inventoryQuantity selectedOptions { name value } } }
  }
}`

// GetProductVariantsWithPricing lists variants with their external ids and prices.
func (c *ShopifyClient) GetProductVariantsWithPricing(ctx context.Context, listingID string) ([]RemoteVariant, error) {
	var out struct {
		Product *gqlProduct `json:"product"`
	}
	if err := c.graphql(ctx, productVariantsQuery, map[string]any{"id": ProductGID(listingID)}, &out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("listing %s not found", listingID)}
	}
	return out.Product.toListing().Variants, nil
}

const variantsBulkUpdateMutation = `mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants { id price }
    userErrors { field message }
  }
}`

// UpdateProductVariantsPricing pushes new prices for one listing in one mutation.
func (c *ShopifyClient) UpdateProductVariantsPricing(ctx context.Context, listingID string, updates []PriceUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	inputs := make([]map[string]any, 0, len(updates))
	for _, u := range updates {
		inputs = append(inputs, map[string]any{"id": VariantGID(u.VariantID), "price": u.Price})
	}

	var out struct {
		ProductVariantsBulkUpdate struct {
			ProductVariants []struct {
				ID string `json:"id"`
			} `json:"productVariants"`
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	vars := map[string]any{"productId": ProductGID(listingID), "variants": inputs}
	if err := c.graphql(ctx, variantsBulkUpdateMutation, vars, &out); err != nil {
		return 0, err
	}
	if err := userErrorsToError(out.ProductVariantsBulkUpdate.UserErrors); err != nil {
		return 0, err
	}
	return len(out.ProductVariantsBulkUpdate.ProductVariants), nil
}
