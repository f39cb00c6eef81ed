package audit_test

import (
	"context"
	"errors"
	"testing"

	"marketplace-sync/core/events/mocks"
	"marketplace-sync/feature/audit"
	"marketplace-sync/feature/catalog/fixtures"
	"marketplace-sync/feature/catalog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecord_InsertsAndPublishes(t *testing.T) {
	db := fixtures.NewDB(t)
	pub := new(mocks.Publisher)
	pub.On("Publish", mock.Anything, "3/product:5", mock.AnythingOfType("*models.SyncLog")).Return(nil)

	rec := audit.NewRecorder(db, pub, zap.NewNop())
	entry, err := rec.Record(context.Background(), audit.Entry{
		AccountID: 3,
		Action:    models.ActionSync,
		Subject:   models.ProductOwner(5),
		Outcome:   models.OutcomeSuccess,
		Message:   "created 2 color listings",
		Actor:     "alice",
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	pub.AssertExpectations(t)

	var count int64
	require.NoError(t, db.Model(&models.SyncLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecord_PublishFailureIsNotFatal(t *testing.T) {
	db := fixtures.NewDB(t)
	pub := new(mocks.Publisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	rec := audit.NewRecorder(db, pub, zap.NewNop())
	_, err := rec.Record(context.Background(), audit.Entry{
		AccountID: 1,
		Action:    models.ActionLink,
		Subject:   models.ProductOwner(1),
		Outcome:   models.OutcomeFailure,
	})
	assert.NoError(t, err)
}

func TestList_NewestFirst(t *testing.T) {
	db := fixtures.NewDB(t)
	rec := audit.NewRecorder(db, nil, zap.NewNop())
	ctx := context.Background()

	for _, outcome := range []models.Outcome{models.OutcomeFailure, models.OutcomeSuccess} {
		_, err := rec.Record(ctx, audit.Entry{AccountID: 1, Action: models.ActionSync, Subject: models.ProductOwner(9), Outcome: outcome})
		require.NoError(t, err)
	}
	_, err := rec.Record(ctx, audit.Entry{AccountID: 2, Action: models.ActionSync, Subject: models.ProductOwner(9), Outcome: models.OutcomeSkipped})
	require.NoError(t, err)

	entries, err := rec.List(ctx, 1, models.ProductOwner(9), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.OutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, models.ProductOwner(9), entries[0].Subject())
}
