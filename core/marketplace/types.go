package marketplace

// Option names in listing order.
const (
	OptionColor = "Color"
	OptionWidth = "Width"
	OptionDrop  = "Drop"
)

// ListingPayload describes a listing to create or update.
type ListingPayload struct {
	Title       string         `json:"title"`
	BodyHTML    string         `json:"body_html,omitempty"`
	Vendor      string         `json:"vendor,omitempty"`
	ProductType string         `json:"product_type,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Options     []string       `json:"options"`
	Variants    []VariantInput `json:"variants"`
}

// VariantInput is one variant row. Option1..3 follow ListingPayload.Options.
type VariantInput struct {
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	Option1           string `json:"option1,omitempty"`
	Option2           string `json:"option2,omitempty"`
	Option3           string `json:"option3,omitempty"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// Options returns the variant's option values in order, dropping trailing blanks.
func (v VariantInput) Options() []string {
	opts := []string{v.Option1, v.Option2, v.Option3}
	for len(opts) > 0 && opts[len(opts)-1] == "" {
		opts = opts[:len(opts)-1]
	}
	return opts
}

// Listing is the external representation of a product.
type Listing struct {
	// ID is the opaque external identifier (gid://shopify/Product/123).
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Status   string          `json:"status,omitempty"`
	Variants []RemoteVariant `json:"variants"`
}

// RemoteVariant is an external variant with its current price.
type RemoteVariant struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
	Option1           string `json:"option1,omitempty"`
	Option2           string `json:"option2,omitempty"`
	Option3           string `json:"option3,omitempty"`
}

// PriceUpdate sets one variant's price.
type PriceUpdate struct {
	VariantID string `json:"id"`
	Price     string `json:"price"`
}
