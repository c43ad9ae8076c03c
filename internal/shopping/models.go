package shopping

import "time"

// ShoppingList is a generated list saved for one week, together with the
// IDs of the items the user has checked off.
type ShoppingList struct {
	ID        int64     `json:"id"`
	WeekStart time.Time `json:"week_start"`
	Items     []Item    `json:"items"`
	Checked   []string  `json:"checked"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckedSet returns the checked IDs as a set.
func (l *ShoppingList) CheckedSet() map[string]bool {
	set := make(map[string]bool, len(l.Checked))
	for _, id := range l.Checked {
		set[id] = true
	}
	return set
}

// Toggle flips the checked state of an item and reports the new state.
func (l *ShoppingList) Toggle(itemID string) bool {
	for i, id := range l.Checked {
		if id == itemID {
			l.Checked = append(l.Checked[:i], l.Checked[i+1:]...)
			return false
		}
	}
	l.Checked = append(l.Checked, itemID)
	return true
}

// CheckedItems returns the checked items in list order.
func (l *ShoppingList) CheckedItems() []Item {
	return Select(l.Items, l.CheckedSet())
}
