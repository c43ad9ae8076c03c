// Package dish models the household's dish catalog as seen by the
// reconciliation engine: read-only dishes with their ingredient lines.
package dish

import (
	"pantry-planner/internal/ingredient"
)

// Ingredient is one line of a dish's recipe.
type Ingredient struct {
	Name      string            `json:"name" yaml:"name"`
	Quantity  ingredient.Amount `json:"quantity" yaml:"quantity"`
	Unit      string            `json:"unit" yaml:"unit"`
	Category  string            `json:"category,omitempty" yaml:"category,omitempty"`
	UnitPrice ingredient.Amount `json:"unit_price" yaml:"unit_price"`
}

// Key returns the normalized identity of the ingredient line.
func (i Ingredient) Key() ingredient.Key {
	return ingredient.Normalize(i.Name, i.Unit)
}

// Dish is a recipe with a declared number of servings.
type Dish struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Servings    int          `json:"servings" yaml:"servings"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
}

// Catalog indexes dishes by ID.
type Catalog map[string]Dish

// NewCatalog builds a Catalog. Later dishes with a duplicate ID win.
func NewCatalog(dishes []Dish) Catalog {
	c := make(Catalog, len(dishes))
	for _, d := range dishes {
		c[d.ID] = d
	}
	return c
}

// Lookup returns the dish with the given ID.
func (c Catalog) Lookup(id string) (Dish, bool) {
	d, ok := c[id]
	return d, ok
}
