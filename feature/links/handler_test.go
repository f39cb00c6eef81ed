package links_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/middleware/actor"
	"marketplace-sync/feature/links"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, svc *links.Service) *fiber.App {
	app := fiber.New()
	app.Use(actor.New("system"))
	require.NoError(t, links.NewFeature(svc).Load(app))
	return app
}

func TestHandleStatus(t *testing.T) {
	svc, _, _ := newService(t)
	app := newApp(t, svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/links/1/status?account=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_synced", body["status"])
	assert.Equal(t, "none", body["source"])

	resp, err = app.Test(httptest.NewRequest("GET", "/links/abc/status?account=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/links/1/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleLink_MismatchIsUnprocessable(t *testing.T) {
	svc, client, _ := newService(t)
	client.On("GetProduct", mock.Anything, "gid://shopify/Product/77").
		Return(&marketplace.Listing{ID: "gid://shopify/Product/77"}, nil)
	app := newApp(t, svc)

	req := httptest.NewRequest("POST", "/links", strings.NewReader(
		`{"product_id":1,"account_id":1,"external_product_id":"gid://shopify/Product/77"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(actor.HeaderName, "alice")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleLink_UnknownProduct(t *testing.T) {
	svc, _, _ := newService(t)
	app := newApp(t, svc)

	req := httptest.NewRequest("POST", "/links", strings.NewReader(
		`{"product_id":42,"account_id":1,"external_product_id":"1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleUnlinkAndSynchronize(t *testing.T) {
	svc, _, _ := newService(t)
	app := newApp(t, svc)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/links/1?account=1&colors=Red,Blue", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"unlinked":0}`, string(raw))

	req := httptest.NewRequest("POST", "/links/1/synchronize", strings.NewReader(`{"account_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report links.SyncReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, links.SyncNone, report.Action)
	assert.Equal(t, links.MessageNothingToDo, report.Message)
}
