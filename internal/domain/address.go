package domain

import "strings"

// NormalizeAddress lowercases a hex address so it can be used as a map key.
// Price maps and config lookups are keyed by normalized addresses.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// SameAddress compares two hex addresses case-insensitively
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
