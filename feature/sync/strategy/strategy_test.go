package strategy_test

import (
	"fmt"
	"testing"

	"marketplace-sync/feature/catalog/models"
	"marketplace-sync/feature/sync/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		variants int
		colors   int
		o        strategy.Overrides
		want     strategy.Strategy
	}{
		{"Small single color", 20, 1, strategy.Overrides{}, strategy.REST},
		{"At variant threshold", 80, 1, strategy.Overrides{}, strategy.REST},
		{"Above variant threshold", 81, 1, strategy.Overrides{}, strategy.GraphQLSplit},
		{"Many variants one color", 120, 1, strategy.Overrides{}, strategy.GraphQLSplit},
		{"Two colors 51 variants", 51, 2, strategy.Overrides{}, strategy.GraphQLSplit},
		{"Two colors 50 variants", 50, 2, strategy.Overrides{}, strategy.REST},
		{"Four colors few variants", 8, 4, strategy.Overrides{}, strategy.GraphQLSplit},
		{"Three colors few variants", 9, 3, strategy.Overrides{}, strategy.REST},
		{"Force REST", 120, 4, strategy.Overrides{ForceREST: true}, strategy.REST},
		{"Force GraphQL", 2, 1, strategy.Overrides{ForceGraphQL: true}, strategy.GraphQLSplit},
		{"Both forced", 2, 1, strategy.Overrides{ForceGraphQL: true, ForceREST: true}, strategy.GraphQLSplit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strategy.Select(tt.variants, tt.colors, tt.o))
			assert.NotEmpty(t, strategy.Reason(tt.variants, tt.colors, tt.o))
		})
	}
}

func TestSelect_Properties(t *testing.T) {
	for variants := 0; variants <= 200; variants++ {
		if variants <= 80 {
			assert.Equal(t, strategy.REST, strategy.Select(variants, 1, strategy.Overrides{}), "variants=%d", variants)
			assert.Equal(t, strategy.REST, strategy.Select(variants, 0, strategy.Overrides{}), "variants=%d", variants)
			continue
		}
		for colors := 0; colors <= 6; colors++ {
			assert.Equal(t, strategy.GraphQLSplit, strategy.Select(variants, colors, strategy.Overrides{}), "variants=%d colors=%d", variants, colors)
		}
	}
}

func TestCanFallbackToREST(t *testing.T) {
	assert.True(t, strategy.CanFallbackToREST(100))
	assert.False(t, strategy.CanFallbackToREST(101))
}

func product(name string, colors []string, perColor int) *models.Product {
	p := &models.Product{ID: 1, Name: name}
	n := 0
	for _, c := range colors {
		for i := 0; i < perColor; i++ {
			n++
			p.Variants = append(p.Variants, models.Variant{
				SKU:   fmt.Sprintf("SKU-%d", n),
				Color: c,
				Width: fmt.Sprintf("%dcm", 100+i),
				Drop:  "200cm",
				Price: decimal.RequireFromString("49.5"),
				Stock: i,
			})
		}
	}
	return p
}

func TestSplitByColor_120VariantsFourColors(t *testing.T) {
	p := product("Blackout Curtain", []string{"Red", "Blue", "Green", "Grey"}, 30)
	require.Len(t, p.Variants, 120)

	assert.Equal(t, strategy.GraphQLSplit, strategy.Select(len(p.Variants), len(p.Colors()), strategy.Overrides{}))

	split := strategy.SplitByColor(p, "Acme")
	assert.Equal(t, []string{"Red", "Blue", "Green", "Grey"}, split.Colors)
	require.Len(t, split.Listings, 4)
	assert.Equal(t, 120, split.TotalVariants())

	red := split.Listings["Red"]
	assert.Equal(t, "Blackout Curtain - Red", red.Payload.Title)
	assert.Equal(t, []string{"Color", "Width", "Drop"}, red.Payload.Options)
	assert.Equal(t, 30, red.VariantsCount)
	assert.Equal(t, "SKU-1", red.BaseVariant.SKU)
	assert.Len(t, red.ExtraVariants, 29)
	assert.Equal(t, "49.50", red.BaseVariant.Price)
	assert.Equal(t, "Acme", red.Payload.Vendor)

	for _, l := range split.Listings {
		for _, v := range l.Payload.Variants {
			assert.Equal(t, l.Color, v.Option1)
		}
	}

	create := red.CreatePayload()
	assert.Len(t, create.Variants, 1)
	assert.Len(t, red.Payload.Variants, 30, "CreatePayload does not modify the listing")
}

func TestSplitByColor_UnassignedAndEmpty(t *testing.T) {
	p := product("Blind", []string{"White"}, 2)
	p.Variants = append(p.Variants, models.Variant{SKU: "NOCOLOR", Price: decimal.NewFromInt(5)})

	split := strategy.SplitByColor(p, "")
	assert.Equal(t, 1, split.Unassigned)
	assert.Equal(t, len(p.Variants), split.TotalVariants()+split.Unassigned)

	empty := strategy.SplitByColor(&models.Product{Name: "Nothing", Variants: []models.Variant{{SKU: "A"}}}, "")
	assert.True(t, empty.Empty())
	assert.Equal(t, 1, empty.Unassigned)
}

func TestSplitByColor_CountsEveryVariantOnce(t *testing.T) {
	for _, blanks := range []int{0, 1, 7} {
		for _, colors := range [][]string{nil, {"Red"}, {"Red", "Blue", "Green"}} {
			p := product("Shade", colors, 5)
			for i := 0; i < blanks; i++ {
				p.Variants = append(p.Variants, models.Variant{SKU: fmt.Sprintf("BLANK-%d", i), Price: decimal.NewFromInt(5)})
			}

			split := strategy.SplitByColor(p, "")
			assert.Len(t, split.Colors, len(colors))
			assert.Equal(t, len(p.Variants), split.TotalVariants()+split.Unassigned, "colors=%v blanks=%d", colors, blanks)
			assert.Equal(t, blanks, split.Unassigned)
		}
	}
}

func TestBuildProductPayload(t *testing.T) {
	p := product("Blind", []string{"White", "Black"}, 3)
	payload := strategy.BuildProductPayload(p, "Acme")
	assert.Equal(t, "Blind", payload.Title)
	assert.Len(t, payload.Variants, 6)
	assert.Equal(t, "Black", payload.Variants[5].Option1)
	assert.Equal(t, "102cm", payload.Variants[5].Option2)
	assert.Equal(t, "200cm", payload.Variants[5].Option3)
}
