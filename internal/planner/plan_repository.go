package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PlanRepository is a database-backed repository for the weekly plan.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save replaces the stored plan with p.
func (r *PlanRepository) Save(ctx context.Context, p WeeklyPlan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin plan transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weekly_plan`); err != nil {
		return fmt.Errorf("failed to clear weekly plan: %w", err)
	}
	for day, ids := range p {
		if err := setDay(ctx, tx, day, ids); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit weekly plan: %w", err)
	}
	return nil
}

// SetDay replaces the dishes planned for a single day.
func (r *PlanRepository) SetDay(ctx context.Context, day string, dishIDs []string) error {
	return setDay(ctx, r.db, day, dishIDs)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setDay(ctx context.Context, db execer, day string, dishIDs []string) error {
	if dishIDs == nil {
		dishIDs = []string{}
	}
	data, err := json.Marshal(dishIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal dishes for %s: %w", day, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO weekly_plan (day, dish_ids) VALUES (?, ?)
		ON CONFLICT(day) DO UPDATE SET dish_ids = excluded.dish_ids`,
		day, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan for %s: %w", day, err)
	}
	return nil
}

// Load returns the stored plan. Days never planned are absent.
func (r *PlanRepository) Load(ctx context.Context) (WeeklyPlan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day, dish_ids FROM weekly_plan`)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly plan: %w", err)
	}
	defer rows.Close()

	plan := WeeklyPlan{}
	for rows.Next() {
		var day, data string
		if err := rows.Scan(&day, &data); err != nil {
			return nil, fmt.Errorf("failed to scan weekly plan row: %w", err)
		}
		var ids []string
		if err := json.Unmarshal([]byte(data), &ids); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dishes for %s: %w", day, err)
		}
		plan[day] = ids
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weekly plan: %w", err)
	}
	return plan, nil
}
