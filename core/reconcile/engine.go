package reconcile

import (
	"context"
	"sort"

	"gorm.io/gorm"
)

// ReconcileAll performs a full reconciliation across all pairs in scope.
// It builds both indices, computes the union of keys and returns one result per key.
func ReconcileAll(ctx context.Context, spec *Spec, db *gorm.DB) ([]ReconcileResult, error) {
	cache, err := GetOrBuildCache(ctx, spec, db)
	if err != nil {
		return nil, err
	}
	return reconcileFromCache(cache, spec.Adapter), nil
}

// ReconcileOne returns the result for a single pair key.
// A pair absent from both sources yields a result with both presence flags false.
func ReconcileOne(ctx context.Context, spec *Spec, db *gorm.DB, key string) (*ReconcileResult, error) {
	cache, err := GetOrBuildCache(ctx, spec, db)
	if err != nil {
		return nil, err
	}

	_, inLinks := cache.LinkIndex[key]
	_, inStatuses := cache.StatusIndex[key]
	if !inLinks && !inStatuses {
		return &ReconcileResult{ID: key, Mismatch: []string{}}, nil
	}

	result := buildResult(key, cache.LinkIndex, cache.StatusIndex, spec.Adapter)
	return &result, nil
}

// reconcileFromCache builds sorted results from a cache.
func reconcileFromCache(cache *ReconcileCache, adapter Adapter) []ReconcileResult {
	unionKeys := buildUnion(cache.LinkIndex, cache.StatusIndex)

	results := make([]ReconcileResult, 0, len(unionKeys))
	for key := range unionKeys {
		results = append(results, buildResult(key, cache.LinkIndex, cache.StatusIndex, adapter))
	}

	// Sort results by key for deterministic output
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// buildUnion creates a union of the keys of both indices.
func buildUnion(linkIndex map[string]LinkItem, statusIndex map[string]StatusItem) map[string]struct{} {
	union := make(map[string]struct{}, len(linkIndex)+len(statusIndex))
	for key := range linkIndex {
		union[key] = struct{}{}
	}
	for key := range statusIndex {
		union[key] = struct{}{}
	}
	return union
}

// buildResult creates a ReconcileResult for a single key.
func buildResult(key string, linkIndex map[string]LinkItem, statusIndex map[string]StatusItem, adapter Adapter) ReconcileResult {
	link, linkPresent := linkIndex[key]
	status, statusPresent := statusIndex[key]

	result := ReconcileResult{
		ID:            key,
		LinkPresent:   linkPresent,
		StatusPresent: statusPresent,
		Mismatch:      []string{},
	}

	var linkItem LinkItem
	var statusItem StatusItem
	if linkPresent {
		linkItem = link
	}
	if statusPresent {
		statusItem = status
	}
	result.Name = adapter.ResolveName(linkItem, statusItem)
	result.Metadata = adapter.GetMetadata(linkItem, statusItem)

	if linkPresent && statusPresent {
		result.Mismatch = adapter.CompareFields(link, status)
	}
	return result
}
