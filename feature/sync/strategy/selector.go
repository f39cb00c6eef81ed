package strategy

// Strategy is how a product is published to the marketplace.
type Strategy string

const (
	// REST publishes the product as one listing carrying every variant.
	REST Strategy = "rest"
	// GraphQLSplit publishes one listing per color.
	GraphQLSplit Strategy = "graphql_split"
)

const (
	// SplitVariantThreshold splits any product with more variants, staying clear of the
	// per-listing ceiling.
	SplitVariantThreshold = 80
	// MultiColorVariantThreshold splits multi-color products with more variants.
	MultiColorVariantThreshold = 50
	// SplitColorThreshold splits any product with more colors.
	SplitColorThreshold = 3
	// ListingVariantCeiling is the most variants a single listing can hold.
	ListingVariantCeiling = 100
)

// Overrides force a strategy. ForceGraphQL is checked first.
type Overrides struct {
	ForceGraphQL bool
	ForceREST    bool
}

// Select picks the publishing strategy for a product's shape.
func Select(variantCount, colorCount int, o Overrides) Strategy {
	switch {
	case o.ForceGraphQL:
		return GraphQLSplit
	case o.ForceREST:
		return REST
	case variantCount > SplitVariantThreshold:
		return GraphQLSplit
	case colorCount > 1 && variantCount > MultiColorVariantThreshold:
		return GraphQLSplit
	case colorCount > SplitColorThreshold:
		return GraphQLSplit
	default:
		return REST
	}
}

// Reason explains why Select chose its result.
func Reason(variantCount, colorCount int, o Overrides) string {
	switch {
	case o.ForceGraphQL:
		return "forced graphql split"
	case o.ForceREST:
		return "forced rest"
	case variantCount > SplitVariantThreshold:
		return "variant count above split threshold"
	case colorCount > 1 && variantCount > MultiColorVariantThreshold:
		return "multiple colors with many variants"
	case colorCount > SplitColorThreshold:
		return "color count above split threshold"
	default:
		return "fits a single listing"
	}
}

// CanFallbackToREST reports whether a failed split can be retried as one REST listing.
func CanFallbackToREST(variantCount int) bool {
	return variantCount <= ListingVariantCeiling
}
