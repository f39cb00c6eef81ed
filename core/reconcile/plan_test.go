package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planFixture() *mockAdapter {
	return &mockAdapter{
		linkIndex: map[string]LinkItem{
			"1:1": "synced", // no status row
			"2:1": "failed", // status disagrees
			"3:1": "synced", // agrees
		},
		statusIndex: map[string]StatusItem{
			"2:1": "synced",
			"3:1": "synced",
			"4:1": "synced",     // has external id, no link
			"5:1": "unlinkable", // nothing to link to
		},
	}
}

// TestReconcileWithPlan_Actions tests that status upserts and link materializations are planned.
func TestReconcileWithPlan_Actions(t *testing.T) {
	spec := &Spec{Adapter: planFixture()}

	plan, err := ReconcileWithPlan(context.Background(), spec, nil, ReconcileOptions{DoSync: true})
	require.NoError(t, err)

	assert.Equal(t, 5, plan.Summary.TotalPairs)
	assert.Equal(t, 1, plan.Summary.MissingStatus)
	assert.Equal(t, 1, plan.Summary.Mismatches)
	assert.Equal(t, 2, plan.Summary.MissingLink)
	assert.Equal(t, 1, plan.Summary.Unlinkable)
	assert.Equal(t, 2, plan.Summary.StatusActions)
	assert.Equal(t, 1, plan.Summary.LinkActions)

	byKey := make(map[string]ActionType)
	for _, a := range plan.Actions {
		byKey[a.Key] = a.Type
	}
	assert.Equal(t, ActionUpsertStatus, byKey["1:1"])
	assert.Equal(t, ActionUpsertStatus, byKey["2:1"])
	assert.Equal(t, ActionMaterializeLink, byKey["4:1"])
	assert.NotContains(t, byKey, "3:1")
	assert.NotContains(t, byKey, "5:1")
}

// TestReconcileWithPlan_ReportOnly tests that no actions are planned without DoSync.
func TestReconcileWithPlan_ReportOnly(t *testing.T) {
	spec := &Spec{Adapter: planFixture()}

	plan, err := ReconcileWithPlan(context.Background(), spec, nil, ReconcileOptions{})
	require.NoError(t, err)

	assert.Empty(t, plan.Actions)
	assert.Equal(t, 1, plan.Summary.Mismatches)
	assert.Equal(t, 0, plan.Summary.StatusActions)
}

func TestApplyPlan(t *testing.T) {
	tests := []struct {
		name     string
		opts     ReconcileOptions
		executed int
	}{
		{"Not confirmed", ReconcileOptions{DoSync: true}, 0},
		{"Dry run", ReconcileOptions{DoSync: true, Confirmed: true, DryRun: true}, 0},
		{"Confirmed", ReconcileOptions{DoSync: true, Confirmed: true}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := planFixture()
			spec := &Spec{Adapter: adapter}

			plan, executed, err := ReconcileAndApply(context.Background(), spec, nil, tt.opts)
			require.NoError(t, err)
			require.NotNil(t, plan)
			assert.Equal(t, tt.executed, executed)

			if tt.executed > 0 {
				assert.ElementsMatch(t, []string{"1:1", "2:1"}, adapter.upserted)
				assert.Equal(t, []string{"4:1"}, adapter.materialized)
			} else {
				assert.Empty(t, adapter.upserted)
				assert.Empty(t, adapter.materialized)
			}
		})
	}
}

type batchAdapter struct {
	*mockAdapter
	batches [][]Action
}

func (b *batchAdapter) UpsertStatusBatch(ctx context.Context, actions []Action) error {
	b.batches = append(b.batches, actions)
	return nil
}

func TestApplyPlan_UsesBatch(t *testing.T) {
	adapter := &batchAdapter{mockAdapter: planFixture()}
	spec := &Spec{Adapter: adapter}
	opts := ReconcileOptions{DoSync: true, Confirmed: true}

	plan, err := ReconcileWithPlan(context.Background(), spec, nil, opts)
	require.NoError(t, err)

	executed, err := ApplyPlan(context.Background(), spec, plan, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, executed)
	require.Len(t, adapter.batches, 1)
	assert.Len(t, adapter.batches[0], 2)
	assert.Empty(t, adapter.upserted)
}

type readOnlyAdapter struct{ Adapter }

func TestApplyPlan_RequiresMutator(t *testing.T) {
	spec := &Spec{Adapter: readOnlyAdapter{planFixture()}}
	opts := ReconcileOptions{DoSync: true, Confirmed: true}

	plan, err := ReconcileWithPlan(context.Background(), spec, nil, opts)
	require.NoError(t, err)

	_, err = ApplyPlan(context.Background(), spec, plan, opts)
	assert.ErrorContains(t, err, "does not implement Mutator")
}
