package reconcile

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ReconcileWithPlan performs reconciliation and returns a plan with results and actions.
// It does NOT execute actions; use ApplyPlan for that.
func ReconcileWithPlan(ctx context.Context, spec *Spec, db *gorm.DB, opts ReconcileOptions) (*ReconcilePlan, error) {
	cache, err := GetOrBuildCache(ctx, spec, db)
	if err != nil {
		return nil, err
	}

	results := reconcileFromCache(cache, spec.Adapter)
	summary, actions := buildPlanFromResults(results, cache, spec.Adapter, opts)

	return &ReconcilePlan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// ApplyPlan executes the actions in a reconcile plan.
// Returns the number of actions executed and any error encountered.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
func ApplyPlan(ctx context.Context, spec *Spec, plan *ReconcilePlan, opts ReconcileOptions) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	mutator, ok := spec.Adapter.(Mutator)
	if !ok {
		return 0, fmt.Errorf("adapter %s does not implement Mutator interface", spec.Adapter.Name())
	}

	var statusActions, linkActions []Action
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionUpsertStatus:
			statusActions = append(statusActions, action)
		case ActionMaterializeLink:
			linkActions = append(linkActions, action)
		}
	}

	if len(statusActions) > 0 {
		if batcher, ok := mutator.(StatusBatchUpserter); ok {
			if err := batcher.UpsertStatusBatch(ctx, statusActions); err != nil {
				return executed, fmt.Errorf("failed to batch upsert statuses: %w", err)
			}
			executed += len(statusActions)
		} else {
			for _, action := range statusActions {
				if err := mutator.UpsertStatusFromLink(ctx, action.Key, action.Link); err != nil {
					return executed, fmt.Errorf("failed to upsert status %s: %w", action.Key, err)
				}
				executed++
			}
		}
	}

	for _, action := range linkActions {
		if err := mutator.MaterializeLink(ctx, action.Key, action.Status); err != nil {
			return executed, fmt.Errorf("failed to materialize link %s: %w", action.Key, err)
		}
		executed++
	}

	InvalidateCache(spec)
	return executed, nil
}

// ReconcileAndApply is a convenience wrapper that plans and optionally applies actions.
// It returns the plan, number of actions executed, and any error.
func ReconcileAndApply(ctx context.Context, spec *Spec, db *gorm.DB, opts ReconcileOptions) (*ReconcilePlan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec, db, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, spec, plan, opts)
	return plan, executed, err
}

// buildPlanFromResults generates a summary and action plan from reconciliation results.
// The latest link is authoritative: status rows follow links, and a status row only
// produces a link when no link exists at all.
func buildPlanFromResults(results []ReconcileResult, cache *ReconcileCache, adapter Adapter, opts ReconcileOptions) (PlanSummary, []Action) {
	var summary PlanSummary
	var actions []Action

	summary.TotalPairs = len(results)

	for _, result := range results {
		switch {
		case result.LinkPresent && !result.StatusPresent:
			summary.MissingStatus++
			if opts.DoSync {
				actions = append(actions, Action{
					Type:   ActionUpsertStatus,
					Key:    result.ID,
					Reason: "missing status row",
					Link:   cache.LinkIndex[result.ID],
				})
				summary.StatusActions++
			}

		case result.LinkPresent && result.StatusPresent && len(result.Mismatch) > 0:
			summary.Mismatches++
			if opts.DoSync {
				actions = append(actions, Action{
					Type:   ActionUpsertStatus,
					Key:    result.ID,
					Reason: "mismatch: " + strings.Join(result.Mismatch, ", "),
					Link:   cache.LinkIndex[result.ID],
				})
				summary.StatusActions++
			}

		case !result.LinkPresent && result.StatusPresent:
			summary.MissingLink++
			status := cache.StatusIndex[result.ID]
			if !adapter.Materializable(status) {
				summary.Unlinkable++
				continue
			}
			if opts.DoSync {
				actions = append(actions, Action{
					Type:   ActionMaterializeLink,
					Key:    result.ID,
					Reason: "status has external id but no link",
					Status: status,
				})
				summary.LinkActions++
			}
		}
	}

	return summary, actions
}
