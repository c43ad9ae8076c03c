package shopping

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pantry-planner/internal/dish"
	"pantry-planner/internal/ingredient"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/stock"
)

// NewEntryID generates the ID of stock entries created by a purchase.
var NewEntryID = uuid.NewString

// PurchaseResult is the outcome of confirming purchases.
type PurchaseResult struct {
	Mutations []stock.Mutation
	// Spent is the cost of the purchased items times the household multiplier.
	Spent decimal.Decimal
}

// ConfirmPurchases computes the stock mutations recording the checked
// items as bought: an increment when stock already holds the ingredient,
// otherwise a create without expiration date. Dispose items are skipped.
func ConfirmPurchases(entries []stock.Entry, checked []Item, multiplier decimal.Decimal) PurchaseResult {
	res := PurchaseResult{Spent: decimal.Zero}
	created := make(map[ingredient.Key]string)

	for _, it := range checked {
		if it.Dispose || !it.Quantity.IsPositive() {
			continue
		}
		key := ingredient.Normalize(it.Name, it.Unit)
		res.Spent = res.Spent.Add(it.Cost(multiplier))

		if e, ok := stock.Find(entries, key); ok {
			res.Mutations = append(res.Mutations, stock.Increment(e.ID, it.Quantity))
			continue
		}
		// Two checked items with the same key add up on one new entry.
		if id, ok := created[key]; ok {
			res.Mutations = append(res.Mutations, stock.Increment(id, it.Quantity))
			continue
		}
		e := stock.Entry{
			ID:       NewEntryID(),
			Name:     it.Name,
			Quantity: it.Quantity,
			Unit:     it.Unit,
			Category: it.Category,
		}
		created[key] = e.ID
		res.Mutations = append(res.Mutations, stock.Create(e))
	}
	return res
}

// MealResult is the outcome of confirming a day's meals.
type MealResult struct {
	Mutations []stock.Mutation
	Warnings  []string
}

// ConfirmMealsForDay computes the decrements consuming the ingredients of
// the dishes planned for day, scaled to the roster. Ingredients missing from
// stock only produce a warning; this never fails.
func ConfirmMealsForDay(day string, plan planner.WeeklyPlan, catalog dish.Catalog, roster planner.Roster, entries []stock.Entry) MealResult {
	ids := plan.ForDay(day)
	if len(ids) == 0 {
		return MealResult{Warnings: []string{fmt.Sprintf("no meals planned for %s", day)}}
	}

	demand := Aggregate(ids, catalog, RosterScale(roster))
	res := MealResult{Warnings: demand.Warnings()}

	for _, line := range demand.Lines() {
		e, ok := stock.Find(entries, line.Key)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s (%s) is not in stock", line.Name, line.Unit))
			continue
		}
		if !line.Quantity.IsPositive() {
			continue
		}
		res.Mutations = append(res.Mutations, stock.Decrement(e.ID, line.Quantity))
		if !e.Quantity.GreaterThan(line.Quantity) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s is now out of stock", e.Name))
		}
	}
	return res
}
