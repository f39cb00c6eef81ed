// Package utils holds loose conversions for JSON attribute values, which may arrive
// as numbers, strings or byte slices depending on the database driver.
package utils
