// Package ingredient holds the identity and quantity types shared by dishes,
// stock and shopping lists.
package ingredient

import "strings"

// DefaultCategory is used for lines that carry no category.
const DefaultCategory = "Other"

// Key is the normalized identity of an ingredient: two records with the same
// Key are the same physical resource.
type Key string

// Normalize canonicalizes a (name, unit) pair into its Key.
func Normalize(name, unit string) Key {
	return Key(canonical(name) + "-" + canonical(unit))
}

// CategoryOr returns category, or DefaultCategory when it is blank.
func CategoryOr(category string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return DefaultCategory
}

func canonical(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
