package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// RunMetric records one reconciliation run: a shopping-list computation or
// a confirmation applied to the stock.
type RunMetric struct {
	Operation string
	Mutations int
	Warnings  int
	LatencyMS int64
	Failed    bool
	Timestamp time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m RunMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	failed := 0
	if m.Failed {
		failed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_metrics (operation, mutations, warnings, latency_ms, failed, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Operation, m.Mutations, m.Warnings, m.LatencyMS, failed, ts.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// Since builds a RunMetric whose latency is measured from start.
func Since(operation string, start time.Time, mutations, warnings int, err error) RunMetric {
	return RunMetric{
		Operation: operation,
		Mutations: mutations,
		Warnings:  warnings,
		LatencyMS: time.Since(start).Milliseconds(),
		Failed:    err != nil,
		Timestamp: time.Now().UTC(),
	}
}

// DailyActivity aggregates the runs of a single day.
type DailyActivity struct {
	Date      string
	Runs      int
	Mutations int
	Warnings  int
	Failures  int
}

// GetDailyActivity retrieves activity for the last N days, most recent first.
func (s *Store) GetDailyActivity(ctx context.Context, days int) ([]DailyActivity, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(sqliteTimeLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day, COUNT(*), SUM(mutations), SUM(warnings), SUM(failed)
		FROM reconciliation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily activity: %w", err)
	}
	defer rows.Close()

	var results []DailyActivity
	for rows.Next() {
		var a DailyActivity
		if err := rows.Scan(&a.Date, &a.Runs, &a.Mutations, &a.Warnings, &a.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan daily activity: %w", err)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily activity: %w", err)
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(sqliteTimeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM reconciliation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}
