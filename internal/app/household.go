package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pantry-planner/internal/dish"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/planner"
)

var (
	// ErrUnknownDay is returned when planning a day that is not a weekday name.
	ErrUnknownDay = errors.New("unknown day of the week")
	// ErrInvalidMember is returned for a family member without a name or with a negative age.
	ErrInvalidMember = errors.New("invalid family member")
)

// ListDishes returns every dish ordered by ID.
func (a *App) ListDishes(ctx context.Context) ([]dish.Dish, error) {
	dishes, err := a.Dishes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dishes: %w", err)
	}
	return dishes, nil
}

// RemoveDish deletes a dish. Plans that still name it report it as missing.
func (a *App) RemoveDish(ctx context.Context, id string) error {
	if err := a.Dishes.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("dish removed", "dish_id", id)
	return nil
}

// SetPlanDay replaces the dishes planned for one day. The day is matched
// case-insensitively against the stored plan, then against the week.
func (a *App) SetPlanDay(ctx context.Context, day string, dishIDs []string) (string, error) {
	plan, err := a.Plans.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load weekly plan: %w", err)
	}
	key, ok := planKey(plan, day)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDay, day)
	}
	if err := a.Plans.SetDay(ctx, key, dishIDs); err != nil {
		return "", err
	}
	logger.Info("plan day updated", "day", key, "dishes", len(dishIDs))
	return key, nil
}

// planKey returns the key day is stored under, reusing an existing spelling.
func planKey(plan planner.WeeklyPlan, day string) (string, bool) {
	day = strings.TrimSpace(day)
	for k := range plan {
		if strings.EqualFold(strings.TrimSpace(k), day) {
			return k, true
		}
	}
	for _, d := range planner.Week {
		if strings.EqualFold(d, day) {
			return d, true
		}
	}
	return "", false
}

// AddMember adds a family member to the roster.
func (a *App) AddMember(ctx context.Context, name string, age int) (planner.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" || age < 0 {
		return planner.Member{}, fmt.Errorf("%w: name %q, age %d", ErrInvalidMember, name, age)
	}
	return a.Roster.Add(ctx, planner.Member{Name: name, Age: age})
}

// RemoveMember removes a family member from the roster.
func (a *App) RemoveMember(ctx context.Context, id string) error {
	return a.Roster.Remove(ctx, id)
}

// ResetShoppingList forgets this week's saved list, its checks and the
// dispose items carried on it. The next ShoppingList starts fresh.
func (a *App) ResetShoppingList(ctx context.Context) error {
	week := planner.WeekStart(a.now())
	if err := a.Lists.DeleteByWeek(ctx, week); err != nil {
		return err
	}
	logger.Info("shopping list reset", "week", week.Format("2006-01-02"))
	return nil
}

// LatestExport returns the path of this week's last export, or "" if the
// list was never exported.
func (a *App) LatestExport(ctx context.Context) (string, error) {
	if a.Exports == nil {
		return "", fmt.Errorf("no export directory configured")
	}
	return a.Exports.Latest(planner.WeekStart(a.now()))
}
