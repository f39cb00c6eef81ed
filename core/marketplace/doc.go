// Package marketplace defines the external marketplace client contract and its
// Shopify implementation.
//
// # Contract
//
// Client exposes listing creation through GraphQL (a base variant followed by one
// bulk-variant call) and REST (every variant at once), REST updates, listing and
// variant lookups, and bulk price updates. Remote failures surface as *APIError
// carrying the HTTP status and raw body.
//
// # Error Classification
//
// Classify maps an error to validation, not_found, rate_limited, auth_failure,
// transient or unknown. Status codes decide first; message text is matched when the
// status is missing.
//
// # Identifiers
//
// Listings are identified by opaque gid strings (gid://shopify/Product/123).
// ExtractNumericID recovers the numeric id, and ProductGID/VariantGID go the other way.
//
// # Rate Limiting
//
// ShopifyClient waits on a golang.org/x/time/rate limiter before each request and
// bounds each call with the configured timeout.
package marketplace
