package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pantry-planner/internal/ingredient"
)

// Store is the persistence side of the stock ledger.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	// Apply applies a batch of mutations as one unit: either all of them
	// are applied or none is.
	Apply(ctx context.Context, mutations []Mutation) error
}

// Repository is the SQLite Stock Store.
//
// Increments and decrements are deltas resolved inside the batch
// transaction against the stored quantity. Batches take the write lock when
// they begin, so concurrent writers queue on the busy timeout; a writer that
// still cannot get the lock fails with ErrConflict.
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new stock Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

const selectEntries = `SELECT id, name, quantity, unit, category, expiration_date, added_at FROM stock_entries`

// List returns every entry ordered by normalized identity.
func (r *Repository) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries+` ORDER BY name_key, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock entries: %w", err)
	}
	return entries, nil
}

// Get retrieves one entry by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntries+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e        Entry
		qty      string
		expires  sql.NullString
		category sql.NullString
	)
	if err := s.Scan(&e.ID, &e.Name, &qty, &e.Unit, &category, &expires, &e.AddedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan stock entry: %w", err)
	}
	e.Quantity = ingredient.ParseAmount(qty)
	e.Category = category.String
	if expires.Valid && expires.String != "" {
		t, err := time.Parse(DateFormat, expires.String)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to parse expiration date of %s: %w", e.ID, err)
		}
		e.ExpirationDate = &t
	}
	return e, nil
}

// Apply runs the whole batch in a single transaction.
func (r *Repository) Apply(ctx context.Context, mutations []Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stock transaction: %w", asConflict(err))
	}
	defer tx.Rollback()

	for _, m := range mutations {
		if err := applyOne(ctx, tx, m); err != nil {
			return asConflict(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stock mutations: %w", asConflict(err))
	}
	return nil
}

// asConflict marks lock contention that outlasted the busy timeout.
func asConflict(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

func applyOne(ctx context.Context, tx *sql.Tx, m Mutation) error {
	switch m.Kind {
	case KindIncrement, KindDecrement:
		return applyDelta(ctx, tx, m)
	case KindCreate:
		if m.Entry == nil {
			return fmt.Errorf("failed to create stock entry: mutation has no entry")
		}
		return insert(ctx, tx, *m.Entry)
	case KindDelete:
		if _, err := tx.ExecContext(ctx, `DELETE FROM stock_entries WHERE id = ?`, m.EntryID); err != nil {
			return fmt.Errorf("failed to delete stock entry %s: %w", m.EntryID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
}

func applyDelta(ctx context.Context, tx *sql.Tx, m Mutation) error {
	var qty string
	err := tx.QueryRowContext(ctx, `SELECT quantity FROM stock_entries WHERE id = ?`, m.EntryID).Scan(&qty)
	if err == sql.ErrNoRows {
		return fmt.Errorf("failed to %s: %w: %s", m.Kind, ErrEntryNotFound, m.EntryID)
	}
	if err != nil {
		return fmt.Errorf("failed to read stock entry %s: %w", m.EntryID, err)
	}

	updated := next(ingredient.ParseAmount(qty), m)
	_, err = tx.ExecContext(ctx, `UPDATE stock_entries SET quantity = ? WHERE id = ?`, updated.String(), m.EntryID)
	if err != nil {
		return fmt.Errorf("failed to %s stock entry %s: %w", m.Kind, m.EntryID, err)
	}
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, e Entry) error {
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	var expires sql.NullString
	if e.ExpirationDate != nil {
		expires = sql.NullString{String: e.ExpirationDate.Format(DateFormat), Valid: true}
	}

	var exists int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock_entries WHERE id = ?`, e.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check stock entry %s: %w", e.ID, err)
	}
	if exists > 0 {
		return fmt.Errorf("failed to create: %w: %s", ErrDuplicateEntry, e.ID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_entries (id, name, name_key, quantity, unit, category, expiration_date, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, string(e.Key()), e.Quantity.String(), e.Unit, e.Category, expires, e.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create stock entry %s: %w", e.Name, err)
	}
	return nil
}
