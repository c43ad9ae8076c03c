package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pantry-planner/internal/database"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()
	s := NewStore(db.SQL)

	now := time.Now().UTC()
	records := []RunMetric{
		{Operation: "shopping_list", Mutations: 1, Warnings: 2, LatencyMS: 3, Timestamp: now},
		{Operation: "confirm_purchases", Mutations: 4, Failed: true, Timestamp: now},
		{Operation: "confirm_meals", Mutations: 9, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, r := range records {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Failed to record metric: %v", err)
		}
	}

	t.Run("GetDailyActivity", func(t *testing.T) {
		days, err := s.GetDailyActivity(ctx, 7)
		if err != nil {
			t.Fatalf("Failed to get activity: %v", err)
		}
		if len(days) != 1 {
			t.Fatalf("Expected 1 day of activity, got %d", len(days))
		}
		a := days[0]
		if a.Date != now.Format("2006-01-02") {
			t.Errorf("Expected date %s, got %s", now.Format("2006-01-02"), a.Date)
		}
		if a.Runs != 2 || a.Mutations != 5 || a.Warnings != 2 || a.Failures != 1 {
			t.Errorf("Unexpected activity %+v", a)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		n, err := s.Cleanup(ctx, 30)
		if err != nil {
			t.Fatalf("Failed to clean up: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 record removed, got %d", n)
		}
	})
}

func TestSince(t *testing.T) {
	m := Since("confirm_meals", time.Now().Add(-time.Second), 3, 1, errors.New("boom"))
	if m.LatencyMS < 1000 {
		t.Errorf("Expected at least 1000ms latency, got %d", m.LatencyMS)
	}
	if !m.Failed || m.Mutations != 3 || m.Warnings != 1 {
		t.Errorf("Unexpected metric %+v", m)
	}
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 2048), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	h := GetSysHealth(dir)
	if h.DataDiskSize != "2.0 kB" {
		t.Errorf("Expected '2.0 kB', got '%s'", h.DataDiskSize)
	}
	if h.Goroutines < 1 {
		t.Errorf("Expected at least one goroutine, got %d", h.Goroutines)
	}
}
