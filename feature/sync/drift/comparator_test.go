package drift_test

import (
	"testing"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/sync/drift"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func curtain() *models.Product {
	return &models.Product{
		Name: "Curtain",
		Variants: []models.Variant{
			{SKU: "R1", Color: "Red", Width: "100cm", Drop: "200cm", Price: decimal.RequireFromString("10"), Stock: 3},
			{SKU: "R2", Color: "Red", Width: "150cm", Drop: "200cm", Price: decimal.RequireFromString("12.5"), Stock: 1},
			{SKU: "B1", Color: "Blue", Width: "100cm", Drop: "200cm", Price: decimal.RequireFromString("10"), Stock: 0},
		},
	}
}

func matching(p *models.Product, color string) drift.Snapshot {
	s := drift.Snapshot{Title: p.Name, Color: color}
	if color != "" {
		s.Title = p.Name + " - " + color
	}
	for _, v := range p.Variants {
		if color != "" && v.Color != color {
			continue
		}
		s.Variants = append(s.Variants, marketplace.RemoteVariant{
			SKU: v.SKU, Price: v.Price.StringFixed(2), InventoryQuantity: v.Stock,
			Option1: v.Color, Option2: v.Width, Option3: v.Drop,
		})
	}
	return s
}

func TestSeverityFor(t *testing.T) {
	tests := map[int]drift.Severity{
		0: drift.SeverityLow, 1: drift.SeverityLow,
		2: drift.SeverityMedium, 4: drift.SeverityMedium,
		5: drift.SeverityHigh, 7: drift.SeverityHigh,
		8: drift.SeverityCritical, 10: drift.SeverityCritical,
	}
	for score, want := range tests {
		assert.Equal(t, want, drift.SeverityFor(score), "score=%d", score)
	}
}

func TestCompare_InSync(t *testing.T) {
	p := curtain()
	report := drift.Compare(p, matching(p, "Red"), matching(p, "Blue"))
	assert.Zero(t, report.DriftScore)
	assert.False(t, report.NeedsSync)
	assert.Equal(t, drift.SeverityLow, report.Severity)
	assert.Empty(t, report.Differences)

	single := drift.Compare(p, matching(p, ""))
	assert.Zero(t, single.DriftScore)
}

func TestCompare_WeightedFields(t *testing.T) {
	p := curtain()
	red := matching(p, "Red")
	red.Title = "Old title"               // 2
	red.Variants[0].Price = "9.00"        // 1
	red.Variants[1].InventoryQuantity = 9 // 1
	red.Variants[1].Option2 = "140cm"     // 1

	report := drift.Compare(p, red, matching(p, "Blue"))
	assert.Equal(t, 5, report.DriftScore)
	assert.Equal(t, drift.SeverityHigh, report.Severity)
	assert.True(t, report.NeedsSync)
	assert.Len(t, report.Differences, 4)
}

func TestCompare_MissingSKUOnlyWithinCoveredColors(t *testing.T) {
	p := curtain()
	red := matching(p, "Red")
	red.Variants = red.Variants[:1]

	report := drift.Compare(p, red)
	assert.Equal(t, 2, report.DriftScore, "only R2 is missing; Blue has no listing in scope")
	assert.Equal(t, "sku", report.Differences[0].Field)
	assert.Equal(t, "R2", report.Differences[0].SKU)
}

func TestCompare_CappedAtTen(t *testing.T) {
	p := curtain()
	report := drift.Compare(p)
	assert.Equal(t, 6, report.DriftScore)

	for i := 0; i < 5; i++ {
		p.Variants = append(p.Variants, models.Variant{SKU: "X" + string(rune('0'+i)), Color: "Red"})
	}
	report = drift.Compare(p)
	assert.Equal(t, drift.MaxScore, report.DriftScore)
	assert.Equal(t, drift.SeverityCritical, report.Severity)
}
