package planner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// RosterRepository persists the household members.
type RosterRepository struct {
	db *sql.DB
}

// NewRosterRepository creates a new RosterRepository.
func NewRosterRepository(d *sql.DB) *RosterRepository {
	return &RosterRepository{db: d}
}

// Add stores a member, assigning an ID when it has none.
func (r *RosterRepository) Add(ctx context.Context, m Member) (Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO family_members (id, name, age) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, age = excluded.age`,
		m.ID, m.Name, m.Age,
	)
	if err != nil {
		return Member{}, fmt.Errorf("failed to save family member %q: %w", m.Name, err)
	}
	return m, nil
}

// Replace swaps the whole roster for the given members.
func (r *RosterRepository) Replace(ctx context.Context, roster Roster) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin roster transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM family_members`); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}
	for _, m := range roster {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO family_members (id, name, age) VALUES (?, ?, ?)`, m.ID, m.Name, m.Age); err != nil {
			return fmt.Errorf("failed to save family member %q: %w", m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit roster: %w", err)
	}
	return nil
}

// List returns the roster ordered by name.
func (r *RosterRepository) List(ctx context.Context) (Roster, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, age FROM family_members ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	defer rows.Close()

	var roster Roster
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Age); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		roster = append(roster, m)
	}
	return roster, rows.Err()
}

// Remove deletes a member by ID.
func (r *RosterRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM family_members WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove family member %s: %w", id, err)
	}
	return nil
}
