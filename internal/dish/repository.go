package dish

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pantry-planner/internal/logger"
)

// Repository is a database-backed repository for dishes.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or updates a dish in the database.
func (r *Repository) Save(ctx context.Context, d Dish) error {
	if d.ID == "" {
		return fmt.Errorf("failed to save dish %q: missing id", d.Name)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal dish to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dishes (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		d.ID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save dish %s: %w", d.ID, err)
	}
	return nil
}

// Get retrieves a dish by its ID.
func (r *Repository) Get(ctx context.Context, id string) (*Dish, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM dishes WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Dish not found
		}
		return nil, fmt.Errorf("failed to get dish by ID: %w", err)
	}

	var d Dish
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dish JSON: %w", err)
	}
	return &d, nil
}

// List retrieves all dishes ordered by ID.
func (r *Repository) List(ctx context.Context) ([]Dish, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM dishes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	defer rows.Close()

	var dishes []Dish
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan dish row: %w", err)
		}
		var d Dish
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			// A corrupted row must not hide the rest of the catalog.
			logger.Warn("skipping unreadable dish", "id", id, "error", err)
			continue
		}
		dishes = append(dishes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dishes: %w", err)
	}
	return dishes, nil
}

// Catalog loads every dish into a Catalog snapshot.
func (r *Repository) Catalog(ctx context.Context) (Catalog, error) {
	dishes, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(dishes), nil
}

// Delete removes a dish by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dishes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete dish %s: %w", id, err)
	}
	return nil
}
