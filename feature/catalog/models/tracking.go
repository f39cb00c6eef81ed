package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SyncState is the consolidated synchronization state of a (product, account) pair.
type SyncState string

const (
	StatePending   SyncState = "pending"
	StateSynced    SyncState = "synced"
	StateFailed    SyncState = "failed"
	StateNotSynced SyncState = "not_synced"
)

// LinkStatus is the lifecycle state of a marketplace link.
type LinkStatus string

const (
	LinkPending  LinkStatus = "pending"
	LinkLinked   LinkStatus = "linked"
	LinkFailed   LinkStatus = "failed"
	LinkUnlinked LinkStatus = "unlinked"
)

// Consolidated maps a link status to the sync state it implies.
func (s LinkStatus) Consolidated() SyncState {
	switch s {
	case LinkLinked:
		return StateSynced
	case LinkPending:
		return StatePending
	case LinkFailed:
		return StateFailed
	case LinkUnlinked:
		return StateNotSynced
	default:
		return StateNotSynced
	}
}

// LinkStatusFor maps a sync state to the link status that consolidates back to it.
func LinkStatusFor(s SyncState) LinkStatus {
	switch s {
	case StateSynced:
		return LinkLinked
	case StatePending:
		return LinkPending
	case StateFailed:
		return LinkFailed
	case StateNotSynced:
		return LinkUnlinked
	default:
		return LinkUnlinked
	}
}

// LinkLevel says whether a link points at a whole listing or at one variant.
type LinkLevel string

const (
	LevelProduct LinkLevel = "product"
	LevelVariant LinkLevel = "variant"
)

// OwnerKind discriminates what a link or log entry belongs to.
type OwnerKind string

const (
	OwnerProduct OwnerKind = "product"
	OwnerVariant OwnerKind = "variant"
)

// LinkOwner identifies the internal record a link belongs to.
type LinkOwner struct {
	Kind OwnerKind `gorm:"column:owner_type;size:20;index:idx_link_owner" json:"kind"`
	ID   int64     `gorm:"column:owner_id;index:idx_link_owner" json:"id"`
}

// ProductOwner returns the owner value for a product.
func ProductOwner(id int64) LinkOwner { return LinkOwner{Kind: OwnerProduct, ID: id} }

// VariantOwner returns the owner value for a variant.
func VariantOwner(id int64) LinkOwner { return LinkOwner{Kind: OwnerVariant, ID: id} }

func (o LinkOwner) String() string {
	return fmt.Sprintf("%s:%d", o.Kind, o.ID)
}

// SyncStatus is the legacy per-pair status row.
type SyncStatus struct {
	ID                int64             `gorm:"primaryKey" json:"id"`
	ProductID         int64             `gorm:"not null;uniqueIndex:idx_status_pair" json:"product_id"`
	SyncAccountID     int64             `gorm:"not null;uniqueIndex:idx_status_pair" json:"sync_account_id"`
	ExternalProductID string            `gorm:"size:255" json:"external_product_id"`
	ExternalVariantID string            `gorm:"size:255" json:"external_variant_id"`
	SyncStatus        SyncState         `gorm:"column:sync_status;size:20;not null;default:pending" json:"sync_status"`
	LastSyncedAt      *time.Time        `json:"last_synced_at"`
	HealthScore       int               `gorm:"not null;default:0" json:"health_score"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// MarketplaceDataColorFilter is the marketplace_data key naming the color a link covers.
const MarketplaceDataColorFilter = "color_filter"

// MarketplaceLink is the current link between an internal record and an external listing.
type MarketplaceLink struct {
	ID                int64             `gorm:"primaryKey" json:"id"`
	Owner             LinkOwner         `gorm:"embedded" json:"owner"`
	ProductID         int64             `gorm:"not null;index:idx_link_pair" json:"product_id"`
	SyncAccountID     int64             `gorm:"not null;index:idx_link_pair" json:"sync_account_id"`
	ColorFilter       string            `gorm:"size:100;index:idx_link_pair" json:"color_filter"`
	ExternalProductID string            `gorm:"size:255" json:"external_product_id"`
	ExternalVariantID string            `gorm:"size:255" json:"external_variant_id"`
	LinkLevel         LinkLevel         `gorm:"size:20;not null;default:product" json:"link_level"`
	LinkStatus        LinkStatus        `gorm:"size:20;not null;default:pending" json:"link_status"`
	MarketplaceData   datatypes.JSONMap `json:"marketplace_data,omitempty"`
	LinkedAt          *time.Time        `json:"linked_at"`
	LinkedBy          string            `gorm:"size:255" json:"linked_by"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Active reports whether the link has not been retired.
func (l *MarketplaceLink) Active() bool {
	return l.LinkStatus != LinkUnlinked
}

// SetColorFilter stores the color discriminator in both the column and marketplace_data.
func (l *MarketplaceLink) SetColorFilter(color string) {
	l.ColorFilter = color
	if l.MarketplaceData == nil {
		l.MarketplaceData = datatypes.JSONMap{}
	}
	if color == "" {
		delete(l.MarketplaceData, MarketplaceDataColorFilter)
		return
	}
	l.MarketplaceData[MarketplaceDataColorFilter] = color
}

// NewerThan orders links by recency: linked_at, then updated_at, then id.
// A link that was never linked is older than one that was.
func (l *MarketplaceLink) NewerThan(other *MarketplaceLink) bool {
	switch {
	case l.LinkedAt != nil && other.LinkedAt == nil:
		return true
	case l.LinkedAt == nil && other.LinkedAt != nil:
		return false
	case l.LinkedAt != nil && !l.LinkedAt.Equal(*other.LinkedAt):
		return l.LinkedAt.After(*other.LinkedAt)
	case !l.UpdatedAt.Equal(other.UpdatedAt):
		return l.UpdatedAt.After(other.UpdatedAt)
	default:
		return l.ID > other.ID
	}
}
