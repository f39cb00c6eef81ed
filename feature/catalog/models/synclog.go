package models

import "time"

// SyncAction names what a sync log entry records.
type SyncAction string

const (
	ActionSync          SyncAction = "sync"
	ActionLink          SyncAction = "link"
	ActionUnlink        SyncAction = "unlink"
	ActionColorRefresh  SyncAction = "color_refresh"
	ActionSyncSystems   SyncAction = "sync_systems"
	ActionPricingUpdate SyncAction = "pricing_update"
)

// Outcome is the result of a logged action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// SyncLog is an append-only audit entry. Rows are never updated.
type SyncLog struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	SyncAccountID int64      `gorm:"not null;index" json:"sync_account_id"`
	Action        SyncAction `gorm:"size:30;not null" json:"action"`
	SubjectType   OwnerKind  `gorm:"size:20;not null" json:"subject_type"`
	SubjectID     int64      `gorm:"not null;index" json:"subject_id"`
	Outcome       Outcome    `gorm:"size:20;not null" json:"outcome"`
	Message       string     `gorm:"type:text" json:"message"`
	Actor         string     `gorm:"size:255" json:"actor"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
}

// Subject returns the record the entry is about.
func (l *SyncLog) Subject() LinkOwner {
	return LinkOwner{Kind: l.SubjectType, ID: l.SubjectID}
}

// All returns every model for migrations.
func All() []any {
	return []any{
		&Product{},
		&Variant{},
		&SyncAccount{},
		&SyncStatus{},
		&MarketplaceLink{},
		&SyncLog{},
	}
}
