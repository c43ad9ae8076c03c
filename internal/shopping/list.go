package shopping

import (
	"time"

	"github.com/shopspring/decimal"

	"pantry-planner/internal/dish"
	"pantry-planner/internal/ingredient"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/stock"
)

// DisposeMessage is attached to every dispose item.
const DisposeMessage = "expired — dispose"

// Item is one shopping-list row. A Dispose item stands for expired stock to
// throw away and is never purchased.
type Item struct {
	Line
	ID      string `json:"id"`
	Dispose bool   `json:"dispose,omitempty"`
	Message string `json:"message,omitempty"`
}

// Cost returns quantity * unit price * multiplier.
func (it Item) Cost(multiplier decimal.Decimal) decimal.Decimal {
	return it.Quantity.Decimal().Mul(it.UnitPrice.Decimal()).Mul(multiplier)
}

// ListInput holds the snapshots a shopping list is computed from.
type ListInput struct {
	Plan    planner.WeeklyPlan
	Catalog dish.Catalog
	Stock   []stock.Entry
	Today   time.Time
	// Roster only sets the household multiplier of the total price.
	Roster planner.Roster
	// Acquired holds the IDs of items already checked off by the user.
	Acquired map[string]bool
}

// ListResult is a computed shopping list.
type ListResult struct {
	Items        []Item           `json:"items"`
	ExpiringSoon []stock.Entry    `json:"expiring_soon"`
	Removals     []stock.Mutation `json:"removals"`
	TotalPrice   decimal.Decimal  `json:"total_price"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// ComputeShoppingList reconciles the whole week's demand against the stock
// snapshot. Demand fully covered by stock is omitted; expired entries become
// dispose items and are scheduled for removal in Removals; entries about to
// expire are reported in ExpiringSoon.
func ComputeShoppingList(in ListInput) ListResult {
	demand := Aggregate(in.Plan.DishIDs(), in.Catalog, Unscaled)
	res := ListResult{Warnings: demand.Warnings()}

	for _, line := range demand.Lines() {
		remaining := line.Quantity
		if e, ok := stock.Find(in.Stock, line.Key); ok {
			remaining = remaining.Sub(e.Quantity)
		}
		if !remaining.IsPositive() {
			continue
		}
		line.Quantity = remaining
		res.Items = append(res.Items, Item{Line: line, ID: string(line.Key)})
	}

	for _, e := range in.Stock {
		switch stock.Classify(e, in.Today) {
		case stock.StatusExpired:
			res.Removals = append(res.Removals, stock.Delete(e.ID))
			res.Items = append(res.Items, disposeItem(e))
		case stock.StatusWarning:
			res.ExpiringSoon = append(res.ExpiringSoon, e)
		}
	}

	res.TotalPrice = TotalPrice(res.Items, in.Acquired, in.Roster.Multiplier())
	return res
}

func disposeItem(e stock.Entry) Item {
	return Item{
		Line: Line{
			Key:      e.Key(),
			Name:     e.Name,
			Unit:     e.Unit,
			Category: ingredient.CategoryOr(e.Category),
			Quantity: e.Quantity,
		},
		ID:      "expired-" + e.ID,
		Dispose: true,
		Message: DisposeMessage,
	}
}

// TotalPrice sums the cost of the items still to buy: dispose items and
// acquired items are left out.
func TotalPrice(items []Item, acquired map[string]bool, multiplier decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.Dispose || acquired[it.ID] {
			continue
		}
		total = total.Add(it.Cost(multiplier))
	}
	return total
}

// Select returns the items whose ID is in ids, in list order.
func Select(items []Item, ids map[string]bool) []Item {
	var out []Item
	for _, it := range items {
		if ids[it.ID] {
			out = append(out, it)
		}
	}
	return out
}
