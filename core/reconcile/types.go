package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ReconcileResult represents the reconciliation output for a single pair.
// It contains presence flags for each source and any detected mismatches.
type ReconcileResult struct {
	// ID is the pair key ("<product>:<account>").
	ID string `json:"id"`

	// Name is the display name of the pair.
	Name string `json:"name"`

	// LinkPresent indicates whether the pair has at least one marketplace link.
	LinkPresent bool `json:"link_present"`

	// StatusPresent indicates whether the pair has a legacy sync status row.
	StatusPresent bool `json:"status_present"`

	// Mismatch contains descriptions of field mismatches between link and status.
	// Each string describes a specific mismatch, e.g., "sync_status: link=synced status=failed".
	Mismatch []string `json:"mismatch"`

	// Metadata contains adapter-specific data (e.g., external ids, color filter).
	Metadata map[string]string `json:"metadata"`
}

// Scope narrows which pairs are loaded. Zero values mean "all".
type Scope struct {
	// AccountID limits reconciliation to one sync account.
	AccountID int64

	// ProductIDs limits reconciliation to specific products.
	ProductIDs []int64
}

// Spec defines the configuration for a reconciliation operation.
type Spec struct {
	// Adapter provides model-specific reconciliation logic.
	Adapter Adapter

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration

	// Scope narrows the loaded pairs.
	Scope Scope
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s *Spec) CacheKey() string {
	ids := make([]string, 0, len(s.Scope.ProductIDs))
	for _, id := range s.Scope.ProductIDs {
		ids = append(ids, fmt.Sprint(id))
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s|%d|%s", s.Adapter.Name(), s.Scope.AccountID, strings.Join(ids, ","))
}

// PairKey builds the key shared by both indices.
func PairKey(productID, accountID int64) string {
	return fmt.Sprintf("%d:%d", productID, accountID)
}

// ParsePairKey splits a key built by PairKey.
func ParsePairKey(key string) (productID, accountID int64, err error) {
	if _, err := fmt.Sscanf(key, "%d:%d", &productID, &accountID); err != nil {
		return 0, 0, fmt.Errorf("invalid pair key %q: %w", key, err)
	}
	return productID, accountID, nil
}

// LinkItem is the authoritative (most recent) link of a pair.
// Adapters define the concrete type.
type LinkItem any

// StatusItem is the legacy status record of a pair.
// Adapters define the concrete type.
type StatusItem any

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionUpsertStatus writes the legacy status from the pair's latest link.
	ActionUpsertStatus ActionType = "upsert_status"
	// ActionMaterializeLink creates a product-level link from the legacy status.
	ActionMaterializeLink ActionType = "materialize_link"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the pair key.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`

	// Link is the source for ActionUpsertStatus.
	Link LinkItem `json:"-"`

	// Status is the source for ActionMaterializeLink.
	Status StatusItem `json:"-"`
}

// ReconcilePlan contains reconciliation results and planned actions.
type ReconcilePlan struct {
	// Results contains per-pair reconciliation data.
	Results []ReconcileResult `json:"results"`

	// Actions contains planned mutation operations.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// TotalPairs is the total number of unique pairs.
	TotalPairs int `json:"total_pairs"`

	// MissingStatus counts pairs with links but no status row.
	MissingStatus int `json:"missing_status"`

	// MissingLink counts pairs with a status row but no link.
	MissingLink int `json:"missing_link"`

	// Unlinkable counts status-only pairs without an external id to link to.
	Unlinkable int `json:"unlinkable"`

	// Mismatches counts pairs whose status disagrees with the latest link.
	Mismatches int `json:"mismatches"`

	// StatusActions counts planned status upserts.
	StatusActions int `json:"status_actions"`

	// LinkActions counts planned link materializations.
	LinkActions int `json:"link_actions"`
}

// ReconcileOptions controls reconcile behavior.
type ReconcileOptions struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// DoSync enables planning of status upserts and link materializations.
	DoSync bool

	// Confirmed indicates the operator has confirmed the writes.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
