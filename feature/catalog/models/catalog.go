package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product is an internal catalog product.
type Product struct {
	ID        int64             `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"size:255;not null" json:"name"`
	ParentSKU string            `gorm:"column:parent_sku;size:100;index" json:"parent_sku"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	Variants  []Variant         `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Colors returns the distinct non-empty variant colors in first-appearance order.
func (p *Product) Colors() []string {
	seen := make(map[string]struct{})
	var colors []string
	for _, v := range p.Variants {
		if v.Color == "" {
			continue
		}
		if _, ok := seen[v.Color]; ok {
			continue
		}
		seen[v.Color] = struct{}{}
		colors = append(colors, v.Color)
	}
	return colors
}

// LatestChange returns the newest update time across the product and its variants.
func (p *Product) LatestChange() time.Time {
	latest := p.UpdatedAt
	for _, v := range p.Variants {
		if v.UpdatedAt.After(latest) {
			latest = v.UpdatedAt
		}
	}
	return latest
}

// Variant is one sellable combination of color, width and drop.
type Variant struct {
	ID         int64             `gorm:"primaryKey" json:"id"`
	ProductID  int64             `gorm:"index;not null" json:"product_id"`
	SKU        string            `gorm:"column:sku;size:100;index" json:"sku"`
	Color      string            `gorm:"size:100" json:"color"`
	Width      string            `gorm:"size:50" json:"width"`
	Drop       string            `gorm:"column:drop_length;size:50" json:"drop"`
	Price      decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock      int               `json:"stock"`
	Attributes datatypes.JSONMap `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Attribute returns a named attribute value.
func (v Variant) Attribute(key string) (any, bool) {
	if v.Attributes == nil {
		return nil, false
	}
	val, ok := v.Attributes[key]
	return val, ok
}

// SyncAccount is a marketplace store the catalog is synchronized to.
type SyncAccount struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Channel   string    `gorm:"size:50;not null" json:"channel"`
	Name      string    `gorm:"size:255" json:"name"`
	StoreURL  string    `gorm:"column:store_url;size:255" json:"store_url"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
