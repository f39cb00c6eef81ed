// Package strategy decides how a product is published and shapes its listing payloads.
//
// Select returns GraphQLSplit for products that would crowd a single listing: more than 80
// variants, more than 50 variants across several colors, or more than 3 colors. Otherwise one
// REST listing carries everything. Overrides always win.
//
// SplitByColor partitions variants into one listing per color. Each listing keeps Color, Width
// and Drop as options; its first variant is created with the listing and the rest are added in
// one bulk call.
package strategy
