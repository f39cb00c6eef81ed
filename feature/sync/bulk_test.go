package sync_test

import (
	"context"
	"testing"

	"marketplace-sync/feature/catalog/fixtures"
	"marketplace-sync/feature/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSyncMany_PartialSuccess(t *testing.T) {
	e := newEnv(t)
	fixtures.Product(t, e.db, 1, "Curtain", fixtures.Grid([]string{"Red"}, 2)...)
	fixtures.Product(t, e.db, 2, "Blind", fixtures.Grid([]string{"Grey"}, 2)...)
	e.client.On("CreateProductREST", mock.Anything, titled("Curtain")).Return(created(gid(1)), nil).Once()
	e.client.On("CreateProductREST", mock.Anything, titled("Blind")).Return(created(gid(2)), nil).Once()

	summary := e.orch.SyncMany(context.Background(), []int64{1, 99, 2}, 1, sync.BulkOptions{Concurrency: 2})
	assert.True(t, summary.Success)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.NotAttempted)

	require.Len(t, summary.Items, 3)
	assert.Equal(t, int64(99), summary.Items[1].ProductID)
	assert.Equal(t, sync.ItemFailed, summary.Items[1].Outcome)
	assert.Equal(t, sync.ItemSucceeded, summary.Items[2].Outcome)
	e.client.AssertExpectations(t)
}

func TestSyncMany_StopOnFailure(t *testing.T) {
	e := newEnv(t)
	fixtures.Product(t, e.db, 1, "Curtain", fixtures.Grid([]string{"Red"}, 2)...)
	fixtures.Product(t, e.db, 2, "Blind", fixtures.Grid([]string{"Grey"}, 2)...)
	e.client.On("CreateProductREST", mock.Anything, titled("Curtain")).Return(created(gid(1)), nil).Once()

	summary := e.orch.SyncMany(context.Background(), []int64{1, 99, 2}, 1, sync.BulkOptions{
		StopOnFailure: true,
		Concurrency:   1,
	})
	assert.True(t, summary.Success, "completed items are kept")
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.NotAttempted)
	assert.Equal(t, sync.ItemNotAttempted, summary.Items[2].Outcome)
	assert.Nil(t, summary.Items[2].Result)
	e.client.AssertNotCalled(t, "CreateProductREST", mock.Anything, titled("Blind"))
}

func TestSyncMany_NothingSucceeded(t *testing.T) {
	e := newEnv(t)

	summary := e.orch.SyncMany(context.Background(), []int64{98, 99}, 1, sync.BulkOptions{})
	assert.False(t, summary.Success)
	assert.Equal(t, 2, summary.Failed)
}

func TestSyncMany_SkippedCountsAsSuccess(t *testing.T) {
	e := newEnv(t)
	fixtures.Product(t, e.db, 1, "Curtain", fixtures.Grid([]string{"Red"}, 2)...)
	e.client.On("CreateProductREST", mock.Anything, mock.Anything).Return(created(gid(1)), nil).Once()
	require.True(t, e.orch.Sync(context.Background(), 1, 1, sync.Options{}).Success)

	summary := e.orch.SyncMany(context.Background(), []int64{1}, 1, sync.BulkOptions{})
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, sync.ItemSkipped, summary.Items[0].Outcome)
}
