package links_test

import (
	"context"
	"testing"

	"marketplace-sync/core/reconcile"
	"marketplace-sync/feature/catalog/fixtures"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/links"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_ReconcileAccount(t *testing.T) {
	rec, db := newReconciler(t)
	ctx := context.Background()

	// 1: link without status. 2: status disagrees with link. 3: status with an external id
	// and no link. 4: status with nothing to link to. 5: other account.
	seedLink(t, db, 1, 1, "", models.LinkLinked, "gid://shopify/Product/1", fixtures.Epoch)
	seedLink(t, db, 2, 1, "", models.LinkFailed, "gid://shopify/Product/2", fixtures.Epoch)
	seedStatus(t, db, 2, 1, models.StateSynced, "gid://shopify/Product/2")
	seedStatus(t, db, 3, 1, models.StateSynced, "gid://shopify/Product/3")
	seedStatus(t, db, 4, 1, models.StatePending, "")
	seedLink(t, db, 5, 2, "", models.LinkLinked, "gid://shopify/Product/5", fixtures.Epoch)

	spec := &reconcile.Spec{
		Adapter: links.NewAdapter(rec, "reconciler"),
		Scope:   reconcile.Scope{AccountID: 1},
	}

	plan, executed, err := reconcile.ReconcileAndApply(ctx, spec, db, reconcile.ReconcileOptions{DoSync: true, DryRun: true, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 0, executed)
	assert.Equal(t, 4, plan.Summary.TotalPairs)
	assert.Equal(t, 1, plan.Summary.MissingStatus)
	assert.Equal(t, 1, plan.Summary.Mismatches)
	assert.Equal(t, 2, plan.Summary.MissingLink)
	assert.Equal(t, 1, plan.Summary.Unlinkable)

	plan, executed, err = reconcile.ReconcileAndApply(ctx, spec, db, reconcile.ReconcileOptions{DoSync: true, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 3, executed)
	assert.Len(t, plan.Actions, 3)

	cs, err := rec.Status(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, cs.Record.SyncStatus)

	cs, err = rec.Status(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, links.SourceLink, cs.Source)
	assert.Equal(t, "reconciler", cs.Link.LinkedBy)

	plan, executed, err = reconcile.ReconcileAndApply(ctx, spec, db, reconcile.ReconcileOptions{DoSync: true, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 0, executed)
	assert.Empty(t, plan.Actions)
}

func TestAdapter_CompareFields(t *testing.T) {
	a := links.NewAdapter(nil, "")
	link := &models.MarketplaceLink{LinkStatus: models.LinkLinked, ExternalProductID: "A"}
	status := &models.SyncStatus{SyncStatus: models.StateFailed, ExternalProductID: "B"}

	assert.Equal(t, []string{
		"sync_status: link=synced status=failed",
		"external_product_id: link=A status=B",
	}, a.CompareFields(link, status))

	assert.True(t, a.Materializable(status))
	assert.False(t, a.Materializable(&models.SyncStatus{}))
	assert.Equal(t, "Red", a.GetMetadata(&models.MarketplaceLink{ColorFilter: "Red"}, nil)["color_filter"])
}
