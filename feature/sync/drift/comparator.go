package drift

import (
	"fmt"
	"time"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/sync/strategy"

	"github.com/shopspring/decimal"
)

// Field weights. A listing title counts double; a variant absent from the marketplace
// counts double.
const (
	WeightTitle      = 2
	WeightMissingSKU = 2
	WeightPrice      = 1
	WeightStock      = 1
	WeightOption     = 1

	// MaxScore caps the drift score.
	MaxScore = 10
)

// Severity grades a drift score.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFor grades a score: critical >= 8, high >= 5, medium >= 2, else low.
func SeverityFor(score int) Severity {
	switch {
	case score >= 8:
		return SeverityCritical
	case score >= 5:
		return SeverityHigh
	case score >= 2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Snapshot is the last-fetched external state of one listing.
type Snapshot struct {
	ListingID string                      `json:"listing_id"`
	Color     string                      `json:"color,omitempty"`
	Title     string                      `json:"title"`
	Variants  []marketplace.RemoteVariant `json:"variants"`
	FetchedAt time.Time                   `json:"fetched_at"`
}

// SnapshotFromListing captures a fetched listing. color is "" for a single REST listing.
func SnapshotFromListing(listing *marketplace.Listing, color string, at time.Time) Snapshot {
	return Snapshot{
		ListingID: listing.ID,
		Color:     color,
		Title:     listing.Title,
		Variants:  listing.Variants,
		FetchedAt: at,
	}
}

// Difference is one field that disagrees.
type Difference struct {
	Field    string `json:"field"`
	SKU      string `json:"sku,omitempty"`
	Color    string `json:"color,omitempty"`
	Internal string `json:"internal"`
	External string `json:"external"`
	Weight   int    `json:"weight"`
}

// Report is the outcome of comparing a product with its listings.
type Report struct {
	Differences    []Difference `json:"differences"`
	DriftScore     int          `json:"drift_score"`
	Severity       Severity     `json:"severity"`
	NeedsSync      bool         `json:"needs_sync"`
	Recommendation string       `json:"recommendation"`
}

// Compare checks a product against the snapshots of its listings. Color snapshots cover the
// variants of their color; a snapshot without a color covers every variant. With no
// snapshots at all every variant counts as missing.
func Compare(product *models.Product, snapshots ...Snapshot) *Report {
	var diffs []Difference

	remote := make(map[string]marketplace.RemoteVariant)
	covered := make(map[string]bool)
	coversAll := len(snapshots) == 0

	for _, s := range snapshots {
		want := product.Name
		if s.Color != "" {
			want = strategy.ColorTitle(product.Name, s.Color)
			covered[s.Color] = true
		} else {
			coversAll = true
		}
		if s.Title != want {
			diffs = append(diffs, Difference{Field: "title", Color: s.Color, Internal: want, External: s.Title, Weight: WeightTitle})
		}
		for _, v := range s.Variants {
			if v.SKU != "" {
				remote[v.SKU] = v
			}
		}
	}

	for _, v := range product.Variants {
		if !coversAll && !covered[v.Color] {
			continue
		}
		rv, ok := remote[v.SKU]
		if !ok {
			diffs = append(diffs, Difference{Field: "sku", SKU: v.SKU, Color: v.Color, Internal: v.SKU, Weight: WeightMissingSKU})
			continue
		}
		diffs = append(diffs, compareVariant(v, rv)...)
	}

	score := 0
	for _, d := range diffs {
		score += d.Weight
	}
	if score > MaxScore {
		score = MaxScore
	}

	severity := SeverityFor(score)
	return &Report{
		Differences:    diffs,
		DriftScore:     score,
		Severity:       severity,
		NeedsSync:      score > 0,
		Recommendation: recommendationFor(severity, score),
	}
}

func compareVariant(v models.Variant, rv marketplace.RemoteVariant) []Difference {
	var diffs []Difference

	internalPrice := v.Price.StringFixed(2)
	if remotePrice, err := decimal.NewFromString(rv.Price); err != nil || !remotePrice.Equal(v.Price.Round(2)) {
		diffs = append(diffs, Difference{Field: "price", SKU: v.SKU, Color: v.Color, Internal: internalPrice, External: rv.Price, Weight: WeightPrice})
	}
	if v.Stock != rv.InventoryQuantity {
		diffs = append(diffs, Difference{
			Field: "stock", SKU: v.SKU, Color: v.Color,
			Internal: fmt.Sprint(v.Stock), External: fmt.Sprint(rv.InventoryQuantity), Weight: WeightStock,
		})
	}

	options := []struct {
		field, internal, external string
	}{
		{"color", v.Color, rv.Option1},
		{"width", v.Width, rv.Option2},
		{"drop", v.Drop, rv.Option3},
	}
	for _, o := range options {
		if o.internal != o.external {
			diffs = append(diffs, Difference{Field: o.field, SKU: v.SKU, Color: v.Color, Internal: o.internal, External: o.external, Weight: WeightOption})
		}
	}
	return diffs
}

func recommendationFor(severity Severity, score int) string {
	switch severity {
	case SeverityCritical:
		return "Listings differ substantially; run a forced sync"
	case SeverityHigh:
		return "Several fields drifted; schedule a sync"
	case SeverityMedium:
		return "Minor drift detected; include in the next sync run"
	case SeverityLow:
		if score == 0 {
			return "Listings match the catalog"
		}
		return "Negligible drift; no action required"
	default:
		return ""
	}
}
