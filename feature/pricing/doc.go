// Package pricing computes listed prices and pushes them to linked listings.
//
// A variant's price starts from its base, channel_price or sale_price, then earns:
//   - x1.15 for a premium material (silk, velvet, linen, wool)
//   - x1.10 once for any special feature flag
//   - x(1 + 0.05 x (years - 2)) for a warranty beyond two years
//
// Results are rounded to cents with shopspring/decimal. Only listings with a linked
// MarketplaceLink are priced, and each receives a single bulk update.
package pricing
