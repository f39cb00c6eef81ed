package reconcile

import (
	"context"

	"gorm.io/gorm"
)

// Adapter defines the model-specific logic for reconciling marketplace links
// against legacy status records.
type Adapter interface {
	// Name returns the unique name of this adapter.
	Name() string

	// LoadLinkIndex loads links in scope and returns the most recent link per pair key.
	// Implementations should use batch queries rather than per-pair lookups.
	LoadLinkIndex(ctx context.Context, db *gorm.DB, scope Scope) (map[string]LinkItem, error)

	// LoadStatusIndex loads legacy status rows in scope indexed by pair key.
	LoadStatusIndex(ctx context.Context, db *gorm.DB, scope Scope) (map[string]StatusItem, error)

	// ResolveName returns the display name for a pair. Either item may be nil.
	ResolveName(link LinkItem, status StatusItem) string

	// CompareFields compares the consolidated link state with the status row and
	// returns mismatch descriptions ("label: link=x status=y").
	// Both items are guaranteed to be non-nil when this is called.
	CompareFields(link LinkItem, status StatusItem) []string

	// Materializable reports whether a status row carries enough to create a link.
	Materializable(status StatusItem) bool

	// GetMetadata returns adapter-specific metadata for the pair. Either item may be nil.
	GetMetadata(link LinkItem, status StatusItem) map[string]string
}

// Mutator applies planned actions. Adapters that can write implement it.
type Mutator interface {
	// UpsertStatusFromLink writes the legacy status row from the link.
	UpsertStatusFromLink(ctx context.Context, key string, link LinkItem) error

	// MaterializeLink creates a product-level link from the status row.
	MaterializeLink(ctx context.Context, key string, status StatusItem) error
}

// StatusBatchUpserter is optionally implemented by mutators that write many statuses at once.
type StatusBatchUpserter interface {
	UpsertStatusBatch(ctx context.Context, actions []Action) error
}
