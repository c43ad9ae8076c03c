package stock

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pantry-planner/internal/ingredient"
)

// ErrInvalidEntry is returned for a manual stock entry that cannot be added.
var ErrInvalidEntry = errors.New("invalid stock entry")

// Draft is a manual stock entry as typed by a user.
type Draft struct {
	Name           string
	Quantity       string
	Unit           string
	Category       string
	ExpirationDate string // DateFormat, optional
}

// Entry validates the draft and turns it into a new Entry.
func (d Draft) Entry(now time.Time) (Entry, error) {
	name := strings.TrimSpace(d.Name)
	unit := strings.TrimSpace(d.Unit)
	category := strings.TrimSpace(d.Category)
	if name == "" || strings.TrimSpace(d.Quantity) == "" || unit == "" || category == "" {
		return Entry{}, fmt.Errorf("%w: name, quantity, unit and category are required", ErrInvalidEntry)
	}

	qty := ingredient.ParseAmount(d.Quantity)
	if !qty.IsPositive() {
		return Entry{}, fmt.Errorf("%w: quantity must be a positive number, got %q", ErrInvalidEntry, d.Quantity)
	}

	e := Entry{
		ID:       uuid.NewString(),
		Name:     name,
		Quantity: qty,
		Unit:     unit,
		Category: category,
		AddedAt:  now.UTC(),
	}
	if s := strings.TrimSpace(d.ExpirationDate); s != "" {
		exp, err := time.Parse(DateFormat, s)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: expiration date %q want format %q", ErrInvalidEntry, s, DateFormat)
		}
		e.ExpirationDate = &exp
	}
	return e, nil
}
