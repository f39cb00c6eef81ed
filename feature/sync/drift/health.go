package drift

import (
	"marketplace-sync/feature/catalog/models"
)

// Status is the sync status as seen by the health scorer.
type Status string

const (
	StatusSynced    Status = "synced"
	StatusOutOfSync Status = "out_of_sync"
	StatusNotSynced Status = "not_synced"
	StatusError     Status = "error"
)

// StatusFor maps a consolidated sync state and an optional drift report onto a health status.
// Pending pairs have no listing yet and count as not synced.
func StatusFor(state models.SyncState, report *Report) Status {
	switch state {
	case models.StateFailed:
		return StatusError
	case models.StateNotSynced, models.StatePending:
		return StatusNotSynced
	case models.StateSynced:
		if report != nil && report.NeedsSync {
			return StatusOutOfSync
		}
		return StatusSynced
	default:
		return StatusNotSynced
	}
}

// Quality grades the completeness of a product's catalog data.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// AssessQuality scores how many variant fields needed for a listing are filled in:
// SKU, positive price, color, width and drop.
func AssessQuality(product *models.Product) Quality {
	if product == nil || len(product.Variants) == 0 || product.Name == "" {
		return QualityPoor
	}

	const fieldsPerVariant = 5
	filled := 0
	for _, v := range product.Variants {
		if v.SKU != "" {
			filled++
		}
		if v.Price.IsPositive() {
			filled++
		}
		if v.Color != "" {
			filled++
		}
		if v.Width != "" {
			filled++
		}
		if v.Drop != "" {
			filled++
		}
	}

	ratio := float64(filled) / float64(fieldsPerVariant*len(product.Variants))
	switch {
	case ratio >= 0.95:
		return QualityExcellent
	case ratio >= 0.8:
		return QualityGood
	case ratio >= 0.6:
		return QualityFair
	default:
		return QualityPoor
	}
}

// OverallStatus is the headline health verdict.
type OverallStatus string

const (
	OverallHealthy    OverallStatus = "healthy"
	OverallMinorDrift OverallStatus = "minor_drift"
	OverallNeedsSync  OverallStatus = "needs_sync"
	OverallNotSynced  OverallStatus = "not_synced"
	OverallCritical   OverallStatus = "critical"
)

// HealthInput is everything the scorer looks at. Drift may be nil.
type HealthInput struct {
	Status  Status
	Drift   *Report
	Quality Quality
}

// Deduction is one penalty applied to the score.
type Deduction struct {
	Reason string `json:"reason"`
	Points int    `json:"points"`
}

// Priority orders action items.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Action codes are stable identifiers callers can match on.
const (
	ActionResolveError  = "resolve_error"
	ActionInitialSync   = "initial_sync"
	ActionForceFullSync = "force_full_sync"
	ActionSyncDrift     = "sync_drift"
	ActionReviewDrift   = "review_drift"
)

// ActionItem is a prioritized follow-up.
type ActionItem struct {
	Code     string   `json:"code"`
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
}

// Health is the scorer's output.
type Health struct {
	Score           int           `json:"score"`
	OverallStatus   OverallStatus `json:"overall_status"`
	Status          Status        `json:"status"`
	Severity        Severity      `json:"severity"`
	Quality         Quality       `json:"quality"`
	Deductions      []Deduction   `json:"deductions"`
	Recommendations []string      `json:"recommendations"`
	ActionItems     []ActionItem  `json:"action_items"`
}

// Score computes the 0-100 health of a pair.
func Score(in HealthInput) Health {
	var deductions []Deduction

	switch in.Status {
	case StatusError:
		deductions = append(deductions, Deduction{Reason: "sync error", Points: 50})
	case StatusNotSynced:
		deductions = append(deductions, Deduction{Reason: "not synced", Points: 40})
	case StatusOutOfSync:
		deductions = append(deductions, Deduction{Reason: "out of sync", Points: 20})
	case StatusSynced:
	}

	severity := SeverityLow
	if in.Drift != nil {
		severity = in.Drift.Severity
		switch {
		case in.Drift.DriftScore >= 8:
			deductions = append(deductions, Deduction{Reason: "critical drift", Points: 30})
		case in.Drift.DriftScore >= 5:
			deductions = append(deductions, Deduction{Reason: "high drift", Points: 20})
		case in.Drift.DriftScore >= 2:
			deductions = append(deductions, Deduction{Reason: "medium drift", Points: 10})
		}
	}

	switch in.Quality {
	case QualityPoor:
		deductions = append(deductions, Deduction{Reason: "poor data quality", Points: 25})
	case QualityFair:
		deductions = append(deductions, Deduction{Reason: "fair data quality", Points: 15})
	case QualityGood:
		deductions = append(deductions, Deduction{Reason: "good data quality", Points: 5})
	case QualityExcellent:
	}

	score := 100
	for _, d := range deductions {
		score -= d.Points
	}
	score = clamp(score, 0, 100)

	overall := Overall(in.Status, severity)
	return Health{
		Score:           score,
		OverallStatus:   overall,
		Status:          in.Status,
		Severity:        severity,
		Quality:         in.Quality,
		Deductions:      deductions,
		Recommendations: Recommendations(overall),
		ActionItems:     ActionItems(severity, in.Status),
	}
}

// Overall derives the headline verdict. An error is always critical.
func Overall(status Status, severity Severity) OverallStatus {
	switch status {
	case StatusError:
		return OverallCritical
	case StatusNotSynced:
		return OverallNotSynced
	}
	switch severity {
	case SeverityCritical:
		return OverallCritical
	case SeverityHigh:
		return OverallNeedsSync
	case SeverityMedium:
		return OverallMinorDrift
	default:
		return OverallHealthy
	}
}

// Recommendations lists what to do for an overall status.
func Recommendations(overall OverallStatus) []string {
	switch overall {
	case OverallCritical:
		return []string{
			"Review the last sync error in the sync log",
			"Run a forced sync once the cause is fixed",
		}
	case OverallNotSynced:
		return []string{"Sync the product to create its marketplace listings"}
	case OverallNeedsSync:
		return []string{"Schedule a sync to push catalog changes"}
	case OverallMinorDrift:
		return []string{"Include the product in the next scheduled sync"}
	case OverallHealthy:
		return []string{"No action needed"}
	default:
		return nil
	}
}

// ActionItems lists prioritized follow-ups for a drift severity and sync status.
func ActionItems(severity Severity, status Status) []ActionItem {
	var items []ActionItem
	switch status {
	case StatusError:
		items = append(items, ActionItem{Code: ActionResolveError, Priority: PriorityUrgent, Action: "Resolve the sync error and retry"})
	case StatusNotSynced:
		items = append(items, ActionItem{Code: ActionInitialSync, Priority: PriorityUrgent, Action: "Create marketplace listings"})
	case StatusOutOfSync, StatusSynced:
	}

	switch severity {
	case SeverityCritical:
		items = append(items, ActionItem{Code: ActionForceFullSync, Priority: PriorityHigh, Action: "Force sync titles, prices and options"})
	case SeverityHigh:
		items = append(items, ActionItem{Code: ActionSyncDrift, Priority: PriorityMedium, Action: "Sync drifted prices and stock"})
	case SeverityMedium:
		items = append(items, ActionItem{Code: ActionReviewDrift, Priority: PriorityLow, Action: "Review drifted fields"})
	case SeverityLow:
	}
	return items
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
