// Package app wires the stores to the reconciliation core: it loads
// snapshots, runs the pure computations and applies the resulting mutation
// batches to the stock.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pantry-planner/internal/config"
	"pantry-planner/internal/database"
	"pantry-planner/internal/dish"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/shopping"
	"pantry-planner/internal/stock"
	"pantry-planner/internal/storage"
)

// ErrNoShoppingList is returned when confirming purchases before a list exists.
var ErrNoShoppingList = errors.New("no shopping list for this week")

// Metric operation names.
const (
	OpShoppingList     = "shopping_list"
	OpConfirmPurchases = "confirm_purchases"
	OpConfirmMeals     = "confirm_meals"
	OpStockEdit        = "stock_edit"
	OpImport           = "import"
)

type DishStore interface {
	Catalog(ctx context.Context) (dish.Catalog, error)
	List(ctx context.Context) ([]dish.Dish, error)
	Save(ctx context.Context, d dish.Dish) error
	Delete(ctx context.Context, id string) error
}

type PlanStore interface {
	Load(ctx context.Context) (planner.WeeklyPlan, error)
	Save(ctx context.Context, p planner.WeeklyPlan) error
	SetDay(ctx context.Context, day string, dishIDs []string) error
}

type RosterStore interface {
	List(ctx context.Context) (planner.Roster, error)
	Add(ctx context.Context, m planner.Member) (planner.Member, error)
	Remove(ctx context.Context, id string) error
	Replace(ctx context.Context, r planner.Roster) error
}

type ListStore interface {
	Save(ctx context.Context, l *shopping.ShoppingList) (int64, error)
	Get(ctx context.Context, id int64) (*shopping.ShoppingList, error)
	GetByWeek(ctx context.Context, weekStart time.Time) (*shopping.ShoppingList, error)
	SetChecked(ctx context.Context, id int64, checked []string) error
	DeleteByWeek(ctx context.Context, weekStart time.Time) error
}

type MetricsRecorder interface {
	Record(ctx context.Context, m metrics.RunMetric) error
}

// Deps holds the application's collaborators.
type Deps struct {
	Dishes  DishStore
	Plans   PlanStore
	Roster  RosterStore
	Stock   stock.Store
	Lists   ListStore
	Metrics MetricsRecorder
	Exports *storage.ExportStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// SQLiteDeps builds the SQLite-backed collaborators on db.
func SQLiteDeps(db *database.DB, exports *storage.ExportStore) Deps {
	return Deps{
		Dishes:  dish.NewRepository(db.SQL),
		Plans:   planner.NewPlanRepository(db.SQL),
		Roster:  planner.NewRosterRepository(db.SQL),
		Stock:   stock.NewRepository(db.SQL),
		Lists:   shopping.NewRepository(db.SQL),
		Metrics: metrics.NewStore(db.SQL),
		Exports: exports,
	}
}

// App holds the application's dependencies.
type App struct {
	cfg *config.Config
	Deps
}

// NewApp creates and initializes a new App instance.
func NewApp(cfg *config.Config, deps Deps) *App {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &App{cfg: cfg, Deps: deps}
}

// snapshot is a consistent view of the inputs of one computation.
type snapshot struct {
	catalog dish.Catalog
	plan    planner.WeeklyPlan
	roster  planner.Roster
	stock   []stock.Entry
}

func (a *App) load(ctx context.Context) (snapshot, error) {
	var (
		s   snapshot
		err error
	)
	if s.catalog, err = a.Dishes.Catalog(ctx); err != nil {
		return s, fmt.Errorf("failed to load dishes: %w", err)
	}
	if s.plan, err = a.Plans.Load(ctx); err != nil {
		return s, fmt.Errorf("failed to load weekly plan: %w", err)
	}
	if s.roster, err = a.Roster.List(ctx); err != nil {
		return s, fmt.Errorf("failed to load family roster: %w", err)
	}
	if s.stock, err = a.Stock.List(ctx); err != nil {
		return s, fmt.Errorf("failed to load stock: %w", err)
	}
	return s, nil
}

func (a *App) record(ctx context.Context, op string, start time.Time, mutations, warnings int, err error) {
	if a.Metrics == nil {
		return
	}
	if rerr := a.Metrics.Record(ctx, metrics.Since(op, start, mutations, warnings, err)); rerr != nil {
		logger.Warn("failed to record metrics", "operation", op, "error", rerr)
	}
}

// applyBatch submits mutations to the stock as one unit.
func (a *App) applyBatch(ctx context.Context, op string, mutations []stock.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	if err := a.Stock.Apply(ctx, mutations); err != nil {
		logger.Error("stock batch rejected", "operation", op, "mutations", len(mutations), "error", err)
		return fmt.Errorf("failed to apply %s: %w", op, err)
	}
	logger.Info("stock batch applied", "operation", op, "mutations", len(mutations))
	return nil
}

func (a *App) now() time.Time { return a.Deps.Now() }

// Currency returns the configured currency code.
func (a *App) Currency() string {
	if a.cfg == nil || a.cfg.Currency == "" {
		return "XOF"
	}
	return a.cfg.Currency
}
