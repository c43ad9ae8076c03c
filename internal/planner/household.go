package planner

import (
	"github.com/shopspring/decimal"

	"pantry-planner/internal/dish"
)

// AdultAge is the age from which a member counts as a full portion.
const AdultAge = 12

var childWeight = decimal.RequireFromString("0.75")

// Member is one person in the household.
type Member struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Age  int    `json:"age" yaml:"age"`
}

// Roster is the family the meals are cooked for.
type Roster []Member

// Weight returns the portion weight of the roster: 1 per member aged
// AdultAge or more, 0.75 per younger member.
func (r Roster) Weight() decimal.Decimal {
	total := decimal.Zero
	for _, m := range r {
		if m.Age >= AdultAge {
			total = total.Add(decimal.NewFromInt(1))
		} else {
			total = total.Add(childWeight)
		}
	}
	return total
}

// Multiplier is the household size used for cost estimates: the number of
// members, or 1 without a roster.
func (r Roster) Multiplier() decimal.Decimal {
	if len(r) == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(len(r)))
}

// AdjustedServings returns how many servings of d the household eats.
// Without a roster it is the dish's own servings, at least 1; otherwise it
// is the roster weight, whatever the dish declares.
func AdjustedServings(d dish.Dish, roster Roster) decimal.Decimal {
	if len(roster) == 0 {
		return decimal.NewFromInt(int64(max(d.Servings, 1)))
	}
	return roster.Weight()
}
