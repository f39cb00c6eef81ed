package strategy

import (
	"fmt"

	"marketplace-sync/core/marketplace"
	"marketplace-sync/feature/catalog/models"
)

// ColorListing is the payload of one color's listing.
type ColorListing struct {
	Color string
	// Payload carries every variant of the color. CreateProduct receives it with only the
	// base variant; the rest go through CreateBulkVariants.
	Payload       marketplace.ListingPayload
	BaseVariant   marketplace.VariantInput
	ExtraVariants []marketplace.VariantInput
	VariantsCount int
}

// CreatePayload returns the payload for listing creation: the listing with its base variant.
func (cl ColorListing) CreatePayload() marketplace.ListingPayload {
	p := cl.Payload
	p.Variants = []marketplace.VariantInput{cl.BaseVariant}
	return p
}

// Split is the result of partitioning a product by color.
type Split struct {
	// Colors preserves first-appearance order.
	Colors   []string
	Listings map[string]ColorListing
	// Unassigned counts variants without a color. They are not published in split mode.
	Unassigned int
}

// Empty reports whether there is nothing to publish.
func (s Split) Empty() bool {
	return len(s.Colors) == 0
}

// TotalVariants is the number of variants across all color listings. With Unassigned it
// adds up to the product's variant count.
func (s Split) TotalVariants() int {
	total := 0
	for _, l := range s.Listings {
		total += l.VariantsCount
	}
	return total
}

// ListingOptions are the option names of every listing, in order.
var ListingOptions = []string{marketplace.OptionColor, marketplace.OptionWidth, marketplace.OptionDrop}

// SplitByColor groups a product's variants into one listing per color.
func SplitByColor(product *models.Product, vendor string) Split {
	split := Split{Listings: make(map[string]ColorListing)}
	groups := make(map[string][]models.Variant)

	for _, v := range product.Variants {
		if v.Color == "" {
			split.Unassigned++
			continue
		}
		if _, ok := groups[v.Color]; !ok {
			split.Colors = append(split.Colors, v.Color)
		}
		groups[v.Color] = append(groups[v.Color], v)
	}

	for _, color := range split.Colors {
		variants := groups[color]
		rows := make([]marketplace.VariantInput, 0, len(variants))
		for _, v := range variants {
			rows = append(rows, VariantRow(v))
		}
		split.Listings[color] = ColorListing{
			Color: color,
			Payload: marketplace.ListingPayload{
				Title:    ColorTitle(product.Name, color),
				Vendor:   vendor,
				Tags:     []string{"color:" + color},
				Options:  ListingOptions,
				Variants: rows,
			},
			BaseVariant:   rows[0],
			ExtraVariants: rows[1:],
			VariantsCount: len(rows),
		}
	}
	return split
}

// BuildProductPayload builds the single REST listing with every variant.
func BuildProductPayload(product *models.Product, vendor string) marketplace.ListingPayload {
	rows := make([]marketplace.VariantInput, 0, len(product.Variants))
	for _, v := range product.Variants {
		rows = append(rows, VariantRow(v))
	}
	return marketplace.ListingPayload{
		Title:    product.Name,
		Vendor:   vendor,
		Options:  ListingOptions,
		Variants: rows,
	}
}

// VariantRow maps a variant onto the color/width/drop option schema.
func VariantRow(v models.Variant) marketplace.VariantInput {
	return marketplace.VariantInput{
		SKU:               v.SKU,
		Price:             v.Price.StringFixed(2),
		Option1:           v.Color,
		Option2:           v.Width,
		Option3:           v.Drop,
		InventoryQuantity: v.Stock,
	}
}

// ColorTitle is the title of a color listing.
func ColorTitle(name, color string) string {
	return fmt.Sprintf("%s - %s", name, color)
}
