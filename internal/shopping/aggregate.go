// Package shopping turns a weekly plan into ingredient demand, reconciles it
// against the stock ledger and computes the stock mutations for confirmed
// purchases and meals. Every function here is pure: callers load the
// snapshots and apply the returned mutations.
package shopping

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pantry-planner/internal/dish"
	"pantry-planner/internal/ingredient"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/planner"
)

// ErrDishNotFound is reported when a plan references a dish missing from the catalog.
var ErrDishNotFound = errors.New("dish not found")

// ScaleFunc returns the factor applied to every ingredient of a dish.
type ScaleFunc func(d dish.Dish) decimal.Decimal

// Unscaled keeps recipe quantities as written.
func Unscaled(dish.Dish) decimal.Decimal { return decimal.NewFromInt(1) }

// RosterScale rescales a dish from its declared servings to the roster's
// adjusted servings. Dishes declaring no servings count as one serving.
func RosterScale(roster planner.Roster) ScaleFunc {
	return func(d dish.Dish) decimal.Decimal {
		servings := max(d.Servings, 1)
		return planner.AdjustedServings(d, roster).Div(decimal.NewFromInt(int64(servings)))
	}
}

// MetadataPolicy decides which ingredient line provides a demand line's
// name, unit, category and unit price when several lines share a key.
type MetadataPolicy int

const (
	// FirstSeen keeps the metadata of the first line aggregated for a key.
	// Later lines only add to the quantity.
	FirstSeen MetadataPolicy = iota
)

// Line is the aggregated requirement for one normalized ingredient.
type Line struct {
	Key       ingredient.Key    `json:"key"`
	Name      string            `json:"name"`
	Unit      string            `json:"unit"`
	Category  string            `json:"category"`
	UnitPrice ingredient.Amount `json:"unit_price"`
	Quantity  ingredient.Amount `json:"quantity"`
}

// Demand is the result of one aggregation pass.
type Demand struct {
	Policy MetadataPolicy
	// Missing lists plan dish IDs absent from the catalog, once each.
	Missing []string

	lines []Line
	index map[ingredient.Key]int
}

// Lines returns the demand lines in first-seen order.
func (d *Demand) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// Get returns the demand line for key.
func (d *Demand) Get(key ingredient.Key) (Line, bool) {
	i, ok := d.index[key]
	if !ok {
		return Line{}, false
	}
	return d.lines[i], true
}

// Len returns the number of distinct ingredients.
func (d *Demand) Len() int { return len(d.lines) }

// Warnings describes the missing dishes.
func (d *Demand) Warnings() []string {
	var w []string
	for _, id := range d.Missing {
		w = append(w, fmt.Errorf("%w: %s", ErrDishNotFound, id).Error())
	}
	return w
}

func (d *Demand) add(ing dish.Ingredient, scale decimal.Decimal) {
	key := ing.Key()
	qty := ing.Quantity.Mul(scale)
	if i, ok := d.index[key]; ok {
		d.lines[i].Quantity = d.lines[i].Quantity.Add(qty)
		return
	}
	d.index[key] = len(d.lines)
	d.lines = append(d.lines, Line{
		Key:       key,
		Name:      ing.Name,
		Unit:      ing.Unit,
		Category:  ingredient.CategoryOr(ing.Category),
		UnitPrice: ing.UnitPrice,
		Quantity:  qty,
	})
}

// Aggregate sums the scaled ingredient quantities of the given dishes by
// normalized key. A repeated dish ID is counted once per occurrence. Missing
// dishes are skipped and recorded in Demand.Missing.
func Aggregate(dishIDs []string, catalog dish.Catalog, scale ScaleFunc) *Demand {
	if scale == nil {
		scale = Unscaled
	}
	d := &Demand{Policy: FirstSeen, index: make(map[ingredient.Key]int)}
	reported := make(map[string]bool)

	for _, id := range dishIDs {
		ds, ok := catalog.Lookup(id)
		if !ok {
			if !reported[id] {
				reported[id] = true
				d.Missing = append(d.Missing, id)
				logger.Warn("planned dish not in catalog, skipping", "dish_id", id)
			}
			continue
		}
		factor := scale(ds)
		for _, ing := range ds.Ingredients {
			d.add(ing, factor)
		}
	}
	return d
}
