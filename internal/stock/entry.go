// Package stock holds the perishable stock ledger: entries, their freshness
// classification, and the mutations the reconciliation engine emits for them.
package stock

import (
	"time"

	"pantry-planner/internal/ingredient"
)

// DateFormat is the calendar-date layout used for expiration dates.
const DateFormat = "2006-01-02"

// Entry is one inventory record.
type Entry struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Quantity       ingredient.Amount `json:"quantity" yaml:"quantity"`
	Unit           string            `json:"unit" yaml:"unit"`
	Category       string            `json:"category,omitempty" yaml:"category,omitempty"`
	ExpirationDate *time.Time        `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
	AddedAt        time.Time         `json:"added_at,omitempty" yaml:"added_at,omitempty"`
}

// Key returns the normalized identity of the entry.
func (e Entry) Key() ingredient.Key {
	return ingredient.Normalize(e.Name, e.Unit)
}

// Find returns the first entry whose normalized identity matches key.
func Find(entries []Entry, key ingredient.Key) (Entry, bool) {
	for _, e := range entries {
		if e.Key() == key {
			return e, true
		}
	}
	return Entry{}, false
}
