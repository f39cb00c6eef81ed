package sync_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/middleware/actor"
	"marketplace-sync/feature/audit"
	"marketplace-sync/feature/catalog"
	"marketplace-sync/feature/catalog/fixtures"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/links"
	"marketplace-sync/feature/pricing"
	"marketplace-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp(t *testing.T, e *env) *fiber.App {
	updater := pricing.NewUpdater(
		catalog.NewRepository(e.db),
		e.rec,
		marketplace.StaticProvider{Client: e.client},
		audit.NewRecorder(e.db, nil, zap.NewNop()),
		zap.NewNop(),
	)
	app := fiber.New()
	app.Use(actor.New("system"))
	require.NoError(t, sync.NewFeature(sync.NewService(e.orch, updater, zap.NewNop())).Load(app))
	return app
}

func post(t *testing.T, app *fiber.App, path, body string, headers ...string) (int, map[string]any) {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandleSyncProduct(t *testing.T) {
	e := newEnv(t)
	fixtures.Product(t, e.db, 1, "Curtain", fixtures.Grid([]string{"Red"}, 2)...)
	e.client.On("CreateProductREST", mock.Anything, mock.Anything).Return(created(gid(1)), nil).Once()
	app := newApp(t, e)

	status, body := post(t, app, "/sync/products/1", `{"account_id":1}`, actor.HeaderName, "alice")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "succeeded", body["state"])

	entries := syncLogs(t, e.db)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Actor)

	status, _ = post(t, app, "/sync/products/1", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleSyncProducts(t *testing.T) {
	e := newEnv(t)
	app := newApp(t, e)

	status, body := post(t, app, "/sync/products", `{"product_ids":[98,99],"account_id":1,"stop_on_failure":true,"concurrency":1}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(1), body["failed"])
	assert.Equal(t, float64(1), body["not_attempted"])

	status, body = post(t, app, "/sync/products", `{"product_ids":[],"account_id":1}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "product_ids")
}

func TestHandleStatus(t *testing.T) {
	e := newEnv(t)
	fixtures.Product(t, e.db, 1, "Curtain", fixtures.Grid([]string{"Red"}, 2)...)
	app := newApp(t, e)

	status, body := post(t, app, "/sync/status", `{"product_ids":[1],"account_id":1}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, _ = post(t, app, "/sync/status", `{"product_ids":[1]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandlePricing(t *testing.T) {
	e := newEnv(t)
	fixtures.Product(t, e.db, 1, "Curtain", fixtures.VariantSpec{Color: "Red", Price: "100.00", Attributes: map[string]any{"material": "silk"}})
	_, err := e.rec.UpsertColorLink(context.Background(), links.ColorLink{ProductID: 1, AccountID: 1, Color: "Red", ExternalProductID: gid(1)})
	require.NoError(t, err)
	e.client.On("GetProductVariantsWithPricing", mock.Anything, gid(1)).
		Return([]marketplace.RemoteVariant{{ID: "v1", SKU: "1-1", Price: "100.00"}}, nil).Once()
	e.client.On("UpdateProductVariantsPricing", mock.Anything, gid(1), []marketplace.PriceUpdate{{VariantID: "v1", Price: "115.00"}}).
		Return(1, nil).Once()
	app := newApp(t, e)

	status, body := post(t, app, "/sync/pricing", `{"product_ids":[1],"account_id":1,"source":"base"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	e.client.AssertExpectations(t)

	var count int64
	require.NoError(t, e.db.Model(&models.SyncLog{}).Where("action = ?", models.ActionPricingUpdate).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	status, body = post(t, app, "/sync/pricing", `{"product_ids":[1],"account_id":1,"source":"wholesale"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "wholesale")
}
