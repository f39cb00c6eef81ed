package links_test

import (
	"context"
	"net/http"
	"testing"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/marketplace/mocks"
	"marketplace-sync/feature/audit"
	"marketplace-sync/feature/catalog"
	"marketplace-sync/feature/catalog/fixtures"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/links"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*links.Service, *mocks.Client, *gorm.DB) {
	db := fixtures.NewDB(t)
	fixtures.Account(t, db, 1)
	// SKUs 1-1 and 1-2 are Red, 1-3 and 1-4 are Blue.
	fixtures.Product(t, db, 1, "Curtain", fixtures.Grid([]string{"Red", "Blue"}, 2)...)

	client := new(mocks.Client)
	svc := links.NewService(
		links.NewReconciler(links.NewRepository(db)),
		catalog.NewRepository(db),
		marketplace.StaticProvider{Client: client},
		audit.NewRecorder(db, nil, zap.NewNop()),
		zap.NewNop(),
	)
	return svc, client, db
}

func listing(id string, skus ...string) *marketplace.Listing {
	l := &marketplace.Listing{ID: id, Title: "Curtain"}
	for i, sku := range skus {
		l.Variants = append(l.Variants, marketplace.RemoteVariant{ID: id + "-v" + string(rune('0'+i)), SKU: sku})
	}
	return l
}

func syncLogs(t *testing.T, db *gorm.DB, action models.SyncAction) []models.SyncLog {
	var entries []models.SyncLog
	require.NoError(t, db.Where("action = ?", action).Order("id").Find(&entries).Error)
	return entries
}

func TestLink_SKUMatchOnColor(t *testing.T) {
	svc, client, db := newService(t)
	client.On("GetProduct", mock.Anything, "gid://shopify/Product/77").
		Return(listing("gid://shopify/Product/77", "1-1", "1-2"), nil)

	result, err := svc.Link(context.Background(), links.LinkRequest{
		ProductID: 1, AccountID: 1, ExternalProductID: "gid://shopify/Product/77", Color: "Red", Actor: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1-1", "1-2"}, result.MatchedSKUs)
	assert.Equal(t, "Red", result.Link.ColorFilter)
	assert.Equal(t, models.LinkLinked, result.Link.LinkStatus)

	cs, err := svc.Status(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, cs.Status)
	assert.Equal(t, "gid://shopify/Product/77", cs.Record.ExternalProductID)

	entries := syncLogs(t, db, models.ActionLink)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, "alice", entries[0].Actor)
}

func TestLink_SKUMismatch(t *testing.T) {
	svc, client, db := newService(t)
	client.On("GetProduct", mock.Anything, "gid://shopify/Product/77").
		Return(listing("gid://shopify/Product/77", "OTHER-1"), nil)

	_, err := svc.Link(context.Background(), links.LinkRequest{
		ProductID: 1, AccountID: 1, ExternalProductID: "gid://shopify/Product/77",
	})
	assert.ErrorIs(t, err, links.ErrMatchFailed)

	entries := syncLogs(t, db, models.ActionLink)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OutcomeFailure, entries[0].Outcome)

	var count int64
	require.NoError(t, db.Model(&models.MarketplaceLink{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLink_ParentSKUAndNone(t *testing.T) {
	svc, client, _ := newService(t)
	client.On("GetProduct", mock.Anything, "gid://shopify/Product/5").
		Return(listing("gid://shopify/Product/5", "P1-RED-100"), nil)

	result, err := svc.Link(context.Background(), links.LinkRequest{
		ProductID: 1, AccountID: 1, ExternalProductID: "gid://shopify/Product/5", Match: links.MatchParentSKU,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1-RED-100"}, result.MatchedSKUs)
	assert.Equal(t, "", result.Link.ColorFilter)

	result, err = svc.Link(context.Background(), links.LinkRequest{
		ProductID: 1, AccountID: 1, ExternalProductID: "gid://shopify/Product/5", Match: links.MatchNone,
	})
	require.NoError(t, err)
	assert.Empty(t, result.MatchedSKUs)
}

func TestLink_InvalidRequests(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Link(context.Background(), links.LinkRequest{ProductID: 1, AccountID: 1})
	assert.ErrorIs(t, err, links.ErrInvalidRequest)

	_, err = svc.Link(context.Background(), links.LinkRequest{ProductID: 1, AccountID: 1, ExternalProductID: "1", Match: "fuzzy"})
	assert.ErrorIs(t, err, links.ErrInvalidRequest)

	_, err = svc.Link(context.Background(), links.LinkRequest{ProductID: 9, AccountID: 1, ExternalProductID: "1"})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestRefreshColorLinks_MarksMissingListingsFailed(t *testing.T) {
	svc, client, db := newService(t)
	ctx := context.Background()
	rec := svc.Reconciler()

	_, err := rec.UpsertColorLink(ctx, links.ColorLink{ProductID: 1, AccountID: 1, Color: "Red", ExternalProductID: "gid://shopify/Product/1"})
	require.NoError(t, err)
	_, err = rec.UpsertColorLink(ctx, links.ColorLink{ProductID: 1, AccountID: 1, Color: "Blue", ExternalProductID: "gid://shopify/Product/2"})
	require.NoError(t, err)

	client.On("GetProduct", mock.Anything, "gid://shopify/Product/1").
		Return(listing("gid://shopify/Product/1", "1-1", "1-2"), nil)
	client.On("GetProduct", mock.Anything, "gid://shopify/Product/2").
		Return(nil, &marketplace.APIError{StatusCode: http.StatusNotFound, Message: "Not Found"})

	report, err := svc.RefreshColorLinks(ctx, 1, 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Missing)
	assert.Equal(t, 0, report.Errors)
	require.Len(t, report.Links, 2)

	active, err := rec.ActiveColorLinks(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.LinkLinked, active["Red"].LinkStatus)
	assert.Equal(t, models.LinkFailed, active["Blue"].LinkStatus)

	assert.Len(t, syncLogs(t, db, models.ActionColorRefresh), 1)
}

func TestServiceReconcile(t *testing.T) {
	svc, _, db := newService(t)
	seedStatus(t, db, 1, 1, models.StateSynced, "gid://shopify/Product/1")

	resp, err := svc.Reconcile(context.Background(), links.ReconcileRequest{AccountID: 1, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Executed)
	assert.Equal(t, 1, resp.Plan.Summary.LinkActions)

	resp, err = svc.Reconcile(context.Background(), links.ReconcileRequest{AccountID: 1, Confirmed: true, Actor: "ops"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Executed)
	assert.Len(t, syncLogs(t, db, models.ActionSyncSystems), 1)
}
