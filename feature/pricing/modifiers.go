package pricing

import (
	"fmt"
	"strings"

	"marketplace-sync/core/utils"
	"marketplace-sync/feature/catalog/models"

	"github.com/shopspring/decimal"
)

// Source selects which price a variant is listed at.
type Source string

const (
	SourceBase    Source = "base"
	SourceChannel Source = "channel"
	SourceSale    Source = "sale"
)

// Variant attribute keys read by the pricing rules.
const (
	AttrChannelPrice  = "channel_price"
	AttrSalePrice     = "sale_price"
	AttrMaterial      = "material"
	AttrWarrantyYears = "warranty_years"
)

// ParseSource validates a price source name. An empty name selects the base price.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(s)) {
	case "", SourceBase:
		return SourceBase, nil
	case SourceChannel:
		return SourceChannel, nil
	case SourceSale:
		return SourceSale, nil
	default:
		return "", fmt.Errorf("unknown price source %q", s)
	}
}

// BasePrice returns the variant's price for a source. Channel and sale prices fall back to the
// base price when the attribute is absent or not positive.
func BasePrice(v models.Variant, source Source) decimal.Decimal {
	key := ""
	switch source {
	case SourceChannel:
		key = AttrChannelPrice
	case SourceSale:
		key = AttrSalePrice
	case SourceBase:
	}
	if key == "" {
		return v.Price
	}
	raw, ok := v.Attribute(key)
	if !ok {
		return v.Price
	}
	if f, ok := utils.ToFloat(raw); ok && f > 0 {
		return decimal.NewFromFloat(f)
	}
	return v.Price
}

var (
	premiumMultiplier = decimal.RequireFromString("1.15")
	featureMultiplier = decimal.RequireFromString("1.10")
	warrantyStep      = decimal.RequireFromString("0.05")
)

// Modifiers are the price adjustments applied on top of the source price.
type Modifiers struct {
	// PremiumMaterials earn the premium material multiplier.
	PremiumMaterials []string
	// FeatureFlags are boolean attributes that earn the special feature multiplier once.
	FeatureFlags []string
	// BaseWarrantyYears is the warranty included in the base price.
	BaseWarrantyYears int
}

// DefaultModifiers are the standard catalog rules.
func DefaultModifiers() Modifiers {
	return Modifiers{
		PremiumMaterials:  []string{"silk", "velvet", "linen", "wool"},
		FeatureFlags:      []string{"blackout", "thermal", "motorized", "fire_retardant", "child_safe"},
		BaseWarrantyYears: 2,
	}
}

// Apply multiplies price by every modifier the variant qualifies for and rounds to cents.
// It returns the names of the applied modifiers.
func (m Modifiers) Apply(v models.Variant, price decimal.Decimal) (decimal.Decimal, []string) {
	var applied []string

	if raw, ok := v.Attribute(AttrMaterial); ok {
		material := strings.ToLower(strings.TrimSpace(utils.ToString(raw)))
		for _, premium := range m.PremiumMaterials {
			if material == premium {
				price = price.Mul(premiumMultiplier)
				applied = append(applied, "premium_material")
				break
			}
		}
	}

	for _, flag := range m.FeatureFlags {
		if raw, ok := v.Attribute(flag); ok && utils.ToBool(raw) {
			price = price.Mul(featureMultiplier)
			applied = append(applied, "special_feature")
			break
		}
	}

	if raw, ok := v.Attribute(AttrWarrantyYears); ok {
		if years := utils.ToInt(raw); years > m.BaseWarrantyYears {
			extra := decimal.NewFromInt(int64(years - m.BaseWarrantyYears))
			price = price.Mul(decimal.NewFromInt(1).Add(warrantyStep.Mul(extra)))
			applied = append(applied, "extended_warranty")
		}
	}

	return price.Round(2), applied
}

// Price computes the listed price of a variant.
func (m Modifiers) Price(v models.Variant, source Source) (decimal.Decimal, []string) {
	return m.Apply(v, BasePrice(v, source))
}
