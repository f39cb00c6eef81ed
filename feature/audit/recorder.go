package audit

import (
	"context"
	"fmt"

	"marketplace-sync/core/events"
	"marketplace-sync/feature/catalog/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry is one action to append to the audit trail.
type Entry struct {
	AccountID int64
	Action    models.SyncAction
	Subject   models.LinkOwner
	Outcome   models.Outcome
	Message   string
	Actor     string
}

// Recorder appends SyncLog rows and publishes them as events.
// It never updates or deletes a row.
type Recorder struct {
	db        *gorm.DB
	publisher events.Publisher
	logger    *zap.Logger
}

// NewRecorder creates a Recorder. A nil publisher disables event publishing.
func NewRecorder(db *gorm.DB, publisher events.Publisher, logger *zap.Logger) *Recorder {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Recorder{db: db, publisher: publisher, logger: logger}
}

// Record inserts the entry. Publishing is best-effort: a broker failure is logged and
// does not fail the call once the row is stored.
func (r *Recorder) Record(ctx context.Context, e Entry) (*models.SyncLog, error) {
	entry := &models.SyncLog{
		SyncAccountID: e.AccountID,
		Action:        e.Action,
		SubjectType:   e.Subject.Kind,
		SubjectID:     e.Subject.ID,
		Outcome:       e.Outcome,
		Message:       e.Message,
		Actor:         e.Actor,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to append sync log: %w", err)
	}

	if err := r.publisher.Publish(ctx, EventKey(e.AccountID, e.Subject), entry); err != nil {
		r.logger.Warn("Failed to publish sync log event",
			zap.Int64("sync_log_id", entry.ID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
	return entry, nil
}

// List returns the newest entries for a subject on an account.
func (r *Recorder) List(ctx context.Context, accountID int64, subject models.LinkOwner, limit int) ([]models.SyncLog, error) {
	var entries []models.SyncLog
	q := r.db.WithContext(ctx).
		Where("sync_account_id = ? AND subject_type = ? AND subject_id = ?", accountID, subject.Kind, subject.ID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return entries, nil
}

// EventKey partitions events so entries for one subject on one account stay ordered.
func EventKey(accountID int64, subject models.LinkOwner) string {
	return fmt.Sprintf("%d/%s", accountID, subject)
}
