package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const weekLayout = "2006-01-02"

// Repository handles persistence of shopping lists.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save stores the list of its week, replacing any previous one, and returns its ID.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	checked := list.Checked
	if checked == nil {
		checked = []string{}
	}
	checkedJSON, err := json.Marshal(checked)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal checked items: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO shopping_lists (week_start, items, checked, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(week_start) DO UPDATE SET
			items = excluded.items, checked = excluded.checked, created_at = excluded.created_at
		RETURNING id`,
		list.WeekStart.Format(weekLayout), string(itemsJSON), string(checkedJSON), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}
	list.ID = id
	return id, nil
}

const selectLists = `SELECT id, week_start, items, checked, created_at FROM shopping_lists`

// Get retrieves a shopping list by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*ShoppingList, error) {
	return r.getOne(ctx, selectLists+` WHERE id = ?`, id)
}

// GetByWeek retrieves the shopping list of the week starting on weekStart.
func (r *Repository) GetByWeek(ctx context.Context, weekStart time.Time) (*ShoppingList, error) {
	return r.getOne(ctx, selectLists+` WHERE week_start = ?`, weekStart.Format(weekLayout))
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*ShoppingList, error) {
	var (
		l                      ShoppingList
		week, items, checkedJS string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&l.ID, &week, &items, &checkedJS, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}

	if l.WeekStart, err = time.Parse(weekLayout, week); err != nil {
		return nil, fmt.Errorf("failed to parse week start %q: %w", week, err)
	}
	if err := json.Unmarshal([]byte(items), &l.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	if err := json.Unmarshal([]byte(checkedJS), &l.Checked); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checked items: %w", err)
	}
	return &l, nil
}

// SetChecked replaces the checked item IDs of a list.
func (r *Repository) SetChecked(ctx context.Context, id int64, checked []string) error {
	if checked == nil {
		checked = []string{}
	}
	data, err := json.Marshal(checked)
	if err != nil {
		return fmt.Errorf("failed to marshal checked items: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE shopping_lists SET checked = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("failed to update checked items: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update checked items: shopping list %d not found", id)
	}
	return nil
}

// DeleteByWeek deletes the shopping list of a week.
func (r *Repository) DeleteByWeek(ctx context.Context, weekStart time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE week_start = ?`, weekStart.Format(weekLayout)); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}
