// Package storage keeps text exports of shopping lists on disk, one file
// per week and generation time.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportStore provides a file-based storage for shopping-list exports.
type ExportStore struct {
	basePath string
}

// NewExportStore creates a new ExportStore and ensures the base directory exists.
func NewExportStore(basePath string) (*ExportStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &ExportStore{basePath: basePath}, nil
}

// sanitizeTimestamp makes the timestamp safe for filenames.
func sanitizeTimestamp(ts string) string {
	return strings.ReplaceAll(ts, ":", "-")
}

func weekID(weekStart time.Time) string {
	return "shopping-list_" + weekStart.Format("2006-01-02")
}

// getVersionedPath returns the full path for a given week and generation time.
func (s *ExportStore) getVersionedPath(weekStart, generatedAt time.Time) string {
	filename := fmt.Sprintf("%s_%s.txt", weekID(weekStart), sanitizeTimestamp(generatedAt.UTC().Format(time.RFC3339)))
	return filepath.Join(s.basePath, filename)
}

// Save replaces the export of a week and returns the written path.
func (s *ExportStore) Save(weekStart, generatedAt time.Time, content string) (string, error) {
	if err := s.RemoveStaleVersions(weekStart); err != nil {
		return "", err
	}
	filePath := s.getVersionedPath(weekStart, generatedAt)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return filePath, nil
}

// Latest returns the path of the most recent export of a week, or "" if none.
func (s *ExportStore) Latest(weekStart time.Time) (string, error) {
	matches, err := s.versions(weekStart)
	if err != nil || len(matches) == 0 {
		return "", err
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// RemoveStaleVersions removes all exports of a week.
func (s *ExportStore) RemoveStaleVersions(weekStart time.Time) error {
	matches, err := s.versions(weekStart)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("failed to remove stale file %s: %w", match, err)
		}
	}
	return nil
}

func (s *ExportStore) versions(weekStart time.Time) ([]string, error) {
	pattern := filepath.Join(s.basePath, weekID(weekStart)+"_*.txt")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob export files: %w", err)
	}
	return matches, nil
}
