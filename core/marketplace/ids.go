package marketplace

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	gidPrefix       = "gid://shopify/"
	resourceProduct = "Product"
	resourceVariant = "ProductVariant"
)

// ExtractNumericID returns the trailing numeric id of an opaque identifier.
// It accepts plain numbers and gid://shopify/<Type>/<id>[?query] forms.
func ExtractNumericID(opaque string) (int64, bool) {
	s := strings.TrimSpace(opaque)
	if s == "" {
		return 0, false
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ProductGID converts a listing id to its gid form.
func ProductGID(id string) string {
	return toGID(resourceProduct, id)
}

// VariantGID converts a variant id to its gid form.
func VariantGID(id string) string {
	return toGID(resourceVariant, id)
}

func toGID(resource, id string) string {
	if strings.HasPrefix(id, gidPrefix) {
		return id
	}
	return gidPrefix + resource + "/" + id
}

// AdminURL returns the store admin page of a listing, or "" when the id is not numeric.
func AdminURL(storeDomain, listingID string) string {
	id, ok := ExtractNumericID(listingID)
	if !ok || storeDomain == "" {
		return ""
	}
	domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(storeDomain, "https://"), "http://"), "/")
	return fmt.Sprintf("https://%s/admin/products/%d", domain, id)
}
