package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"pantry-planner/internal/dish"
	"pantry-planner/internal/ingredient"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/stock"
)

// HouseholdFile is the YAML document accepted by Import. Every section is
// optional; a present plan or roster replaces the stored one.
type HouseholdFile struct {
	Dishes []dish.Dish        `yaml:"dishes"`
	Plan   planner.WeeklyPlan `yaml:"plan"`
	Roster planner.Roster     `yaml:"roster"`
	Stock  []householdStock   `yaml:"stock"`
}

type householdStock struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Quantity       ingredient.Amount `yaml:"quantity"`
	Unit           string            `yaml:"unit"`
	Category       string            `yaml:"category"`
	ExpirationDate string            `yaml:"expiration_date"`
}

// ImportSummary counts what an import stored.
type ImportSummary struct {
	Dishes   int
	PlanDays int
	Members  int
	Stock    int
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("%d dishes, %d plan days, %d family members, %d stock entries", s.Dishes, s.PlanDays, s.Members, s.Stock)
}

// ParseHouseholdFile decodes a household document.
func ParseHouseholdFile(data []byte) (*HouseholdFile, error) {
	var f HouseholdFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse household file: %w", err)
	}
	for i, d := range f.Dishes {
		if strings.TrimSpace(d.ID) == "" {
			return nil, fmt.Errorf("dish #%d (%q) has no id", i+1, d.Name)
		}
	}
	return &f, nil
}

func (h householdStock) entry(now time.Time) (stock.Entry, error) {
	e := stock.Entry{
		ID:       h.ID,
		Name:     strings.TrimSpace(h.Name),
		Quantity: h.Quantity,
		Unit:     strings.TrimSpace(h.Unit),
		Category: ingredient.CategoryOr(h.Category),
		AddedAt:  now.UTC(),
	}
	if e.Name == "" {
		return stock.Entry{}, fmt.Errorf("%w: stock entry without name", stock.ErrInvalidEntry)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if s := strings.TrimSpace(h.ExpirationDate); s != "" {
		exp, err := time.Parse(stock.DateFormat, s)
		if err != nil {
			return stock.Entry{}, fmt.Errorf("%w: %s expiration date %q", stock.ErrInvalidEntry, e.Name, s)
		}
		e.ExpirationDate = &exp
	}
	return e, nil
}

// Import loads a household file into the stores. Stock entries are added
// in a single batch.
func (a *App) Import(ctx context.Context, path string) (summary ImportSummary, err error) {
	start := time.Now()
	defer func() { a.record(ctx, OpImport, start, summary.Stock, 0, err) }()

	data, err := os.ReadFile(path)
	if err != nil {
		return summary, fmt.Errorf("failed to read household file: %w", err)
	}
	f, err := ParseHouseholdFile(data)
	if err != nil {
		return summary, err
	}

	now := a.now()
	var creates []stock.Mutation
	for _, h := range f.Stock {
		e, err := h.entry(now)
		if err != nil {
			return summary, err
		}
		creates = append(creates, stock.Create(e))
	}

	for _, d := range f.Dishes {
		if err := a.Dishes.Save(ctx, d); err != nil {
			return summary, err
		}
		summary.Dishes++
	}
	if f.Plan != nil {
		if err := a.Plans.Save(ctx, f.Plan); err != nil {
			return summary, err
		}
		summary.PlanDays = len(f.Plan)
	}
	if f.Roster != nil {
		if err := a.Roster.Replace(ctx, f.Roster); err != nil {
			return summary, err
		}
		summary.Members = len(f.Roster)
	}
	if err := a.applyBatch(ctx, OpImport, creates); err != nil {
		return summary, err
	}
	summary.Stock = len(creates)

	logger.Info("household file imported", "path", path, "summary", summary.String())
	return summary, nil
}
