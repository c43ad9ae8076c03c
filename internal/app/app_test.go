package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pantry-planner/internal/config"
	"pantry-planner/internal/database"
	"pantry-planner/internal/ingredient"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/stock"
	"pantry-planner/internal/storage"
)

// Saturday; the week starts on Monday 2026-10-12.
var fixedNow = time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC)

const household = `
dishes:
  - id: soup
    name: Soup
    servings: 4
    ingredients:
      - {name: Flour, quantity: 200, unit: g, category: Dry, unit_price: 0.5}
      - {name: Salt, quantity: "5", unit: g}
  - id: bread
    name: Bread
    servings: 2
    ingredients:
      - {name: flour, quantity: 300, unit: G, unit_price: 1}
plan:
  Saturday: [soup]
  Sunday: [bread, ghost]
roster:
  - {name: Ada, age: 14}
  - {name: Tom, age: 4}
stock:
  - {id: s-flour, name: Flour, quantity: 100, unit: g, category: Dry}
  - {id: s-milk, name: Milk, quantity: 1, unit: l, category: Dairy, expiration_date: "2026-10-16"}
  - {id: s-eggs, name: Eggs, quantity: "six", unit: pcs, expiration_date: "2026-10-20"}
`

type fixture struct {
	app     *App
	db      *database.DB
	metrics *metrics.Store
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "pantry.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	exports, err := storage.NewExportStore(filepath.Join(dir, "exports"))
	if err != nil {
		t.Fatalf("Failed to create export store: %v", err)
	}
	deps := SQLiteDeps(db, exports)
	deps.Now = func() time.Time { return fixedNow }

	path := filepath.Join(dir, "household.yaml")
	if err := os.WriteFile(path, []byte(household), 0644); err != nil {
		t.Fatalf("Failed to write household file: %v", err)
	}
	a := NewApp(&config.Config{Currency: "EUR"}, deps)
	if _, err := a.Import(context.Background(), path); err != nil {
		t.Fatalf("Failed to import household file: %v", err)
	}
	return &fixture{app: a, db: db, metrics: deps.Metrics.(*metrics.Store), dir: dir}
}

func stockByID(t *testing.T, a *App, id string) *stock.Entry {
	t.Helper()
	entries, err := a.Stock.List(context.Background())
	if err != nil {
		t.Fatalf("Failed to list stock: %v", err)
	}
	for _, e := range entries {
		if e.ID == id {
			return &e
		}
	}
	return nil
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	catalog, err := f.app.Dishes.Catalog(ctx)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	if len(catalog) != 2 {
		t.Errorf("Expected 2 dishes, got %d", len(catalog))
	}
	roster, _ := f.app.Roster.List(ctx)
	if len(roster) != 2 {
		t.Errorf("Expected 2 family members, got %d", len(roster))
	}
	eggs := stockByID(t, f.app, "s-eggs")
	if eggs == nil || !eggs.Quantity.IsZero() || eggs.Category != ingredient.DefaultCategory {
		t.Errorf("Expected unparsable quantity to import as 0 in 'Other', got %+v", eggs)
	}

	t.Run("InvalidFile", func(t *testing.T) {
		path := filepath.Join(f.dir, "bad.yaml")
		os.WriteFile(path, []byte("dishes:\n  - name: No id\n"), 0644)
		if _, err := f.app.Import(ctx, path); err == nil {
			t.Fatal("Expected an error for a dish without id, got nil")
		}
	})
}

func TestShoppingList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.app.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("Failed to compute shopping list: %v", err)
	}

	items := map[string]bool{}
	for _, it := range report.List.Items {
		items[it.ID] = true
	}
	for _, id := range []string{"flour-g", "salt-g", "expired-s-milk"} {
		if !items[id] {
			t.Errorf("Expected item %s on the list, got %+v", id, report.List.Items)
		}
	}
	if stockByID(t, f.app, "s-milk") != nil {
		t.Error("Expected expired milk to be removed from stock")
	}
	if len(report.Result.ExpiringSoon) != 1 || report.Result.ExpiringSoon[0].ID != "s-eggs" {
		t.Errorf("Expected eggs to be expiring soon, got %+v", report.Result.ExpiringSoon)
	}
	if len(report.Result.Warnings) != 1 {
		t.Errorf("Expected a warning for the missing dish, got %v", report.Result.Warnings)
	}
	// 400 g flour at 0.5 plus 5 g salt at 0, times a household of 2.
	if !report.Result.TotalPrice.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected total 400, got %s", report.Result.TotalPrice)
	}

	t.Run("RecomputeKeepsDisposeAndChecks", func(t *testing.T) {
		if _, err := f.app.ToggleItem(ctx, report.List.ID, "salt-g"); err != nil {
			t.Fatalf("Failed to toggle item: %v", err)
		}
		again, err := f.app.ShoppingList(ctx)
		if err != nil {
			t.Fatalf("Failed to recompute shopping list: %v", err)
		}
		if again.List.ID != report.List.ID {
			t.Errorf("Expected the week's list to be updated in place")
		}
		if !again.List.CheckedSet()["salt-g"] {
			t.Error("Expected salt to stay checked")
		}
		found := false
		for _, it := range again.List.Items {
			found = found || it.ID == "expired-s-milk"
		}
		if !found {
			t.Error("Expected the dispose item to stay on the list")
		}
	})

	t.Run("Export", func(t *testing.T) {
		path, err := f.app.ExportShoppingList(ctx)
		if err != nil {
			t.Fatalf("Failed to export: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read export: %v", err)
		}
		if !strings.Contains(string(data), "[x] Salt: 5 g") {
			t.Errorf("Expected checked salt in export, got:\n%s", data)
		}
	})
}

func TestConfirmPurchases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("NoList", func(t *testing.T) {
		if _, err := f.app.ConfirmPurchases(ctx, nil); !errors.Is(err, ErrNoShoppingList) {
			t.Errorf("Expected ErrNoShoppingList, got %v", err)
		}
	})

	report, err := f.app.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("Failed to compute shopping list: %v", err)
	}

	t.Run("NothingChecked", func(t *testing.T) {
		p, err := f.app.ConfirmPurchases(ctx, nil)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(p.Purchased) != 0 {
			t.Errorf("Expected nothing purchased, got %+v", p.Purchased)
		}
	})

	t.Run("Checked", func(t *testing.T) {
		f.app.ToggleItem(ctx, report.List.ID, "flour-g")
		f.app.ToggleItem(ctx, report.List.ID, "salt-g")
		f.app.ToggleItem(ctx, report.List.ID, "expired-s-milk")

		p, err := f.app.ConfirmPurchases(ctx, nil)
		if err != nil {
			t.Fatalf("Failed to confirm purchases: %v", err)
		}
		if len(p.Purchased) != 2 {
			t.Errorf("Expected flour and salt to be purchased, got %+v", p.Purchased)
		}
		flour := stockByID(t, f.app, "s-flour")
		if !flour.Quantity.Equal(ingredient.A(500)) {
			t.Errorf("Expected flour 500 g after purchase, got %s", flour.Quantity)
		}
		entries, _ := f.app.Stock.List(ctx)
		if _, ok := stock.Find(entries, ingredient.Normalize("salt", "g")); !ok {
			t.Error("Expected a new salt entry")
		}

		list, _ := f.app.Lists.Get(ctx, report.List.ID)
		if len(list.Checked) != 1 || list.Checked[0] != "expired-s-milk" {
			t.Errorf("Expected only the dispose item to stay checked, got %v", list.Checked)
		}
	})
}

func TestConfirmMealsForDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Saturday: soup for 1.75 servings out of 4.
	res, err := f.app.ConfirmMealsForDay(ctx, "")
	if err != nil {
		t.Fatalf("Failed to confirm meals: %v", err)
	}
	if len(res.Mutations) != 1 {
		t.Errorf("Expected one decrement, got %v", res.Mutations)
	}
	flour := stockByID(t, f.app, "s-flour")
	if !flour.Quantity.Equal(ingredient.A(12.5)) {
		t.Errorf("Expected 100 - 200*1.75/4 = 12.5 g of flour, got %s", flour.Quantity)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "Salt") {
		t.Errorf("Expected a missing salt warning, got %v", res.Warnings)
	}

	days, err := f.metrics.GetDailyActivity(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	if len(days) != 1 || days[0].Runs < 2 {
		t.Errorf("Expected import and confirmation runs to be recorded, got %+v", days)
	}
}

func TestStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.app.AddStock(ctx, stock.Draft{Name: "Rice", Quantity: "2", Unit: "kg", Category: "Dry", ExpirationDate: "2026-12-01"})
	if err != nil {
		t.Fatalf("Failed to add stock: %v", err)
	}
	if _, err := f.app.AddStock(ctx, stock.Draft{Name: "Rice", Quantity: "0", Unit: "kg", Category: "Dry"}); !errors.Is(err, stock.ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}

	lines, err := f.app.StockReport(ctx)
	if err != nil {
		t.Fatalf("Failed to build stock report: %v", err)
	}
	statuses := map[string]stock.Status{}
	for _, l := range lines {
		statuses[l.Entry.ID] = l.Status
	}
	want := map[string]stock.Status{
		"s-milk":  stock.StatusExpired,
		"s-eggs":  stock.StatusWarning,
		"s-flour": stock.StatusUnknown,
		e.ID:      stock.StatusGood,
	}
	for id, st := range want {
		if statuses[id] != st {
			t.Errorf("Expected %s to be %s, got %s", id, st, statuses[id])
		}
	}

	if err := f.app.RemoveStock(ctx, e.ID); err != nil {
		t.Fatalf("Failed to remove stock: %v", err)
	}
	if stockByID(t, f.app, e.ID) != nil {
		t.Error("Expected rice to be removed")
	}
}

type failingStore struct {
	stock.Store
	applied int
}

func (s *failingStore) Apply(ctx context.Context, m []stock.Mutation) error {
	s.applied++
	return errors.New("disk full")
}

func TestPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	failing := &failingStore{Store: f.app.Stock}
	f.app.Stock = failing

	res, err := f.app.ConfirmMealsForDay(ctx, "Saturday")
	if err == nil {
		t.Fatal("Expected the persistence error to propagate, got nil")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected the store error to be wrapped, got %v", err)
	}
	if len(res.Mutations) != 0 {
		t.Errorf("Expected no mutations reported on failure, got %v", res.Mutations)
	}
	if failing.applied != 1 {
		t.Errorf("Expected one batch submitted, got %d", failing.applied)
	}

	if _, err := f.app.ShoppingList(ctx); err == nil {
		t.Error("Expected the expired stock removal failure to fail the list, got nil")
	}
}

func TestHouseholdEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("SetPlanDay", func(t *testing.T) {
		key, err := f.app.SetPlanDay(ctx, " saturday ", []string{"bread", "bread"})
		if err != nil {
			t.Fatalf("Failed to set plan day: %v", err)
		}
		if key != "Saturday" {
			t.Errorf("Expected the stored key Saturday, got %q", key)
		}
		if key, _ := f.app.SetPlanDay(ctx, "MONDAY", []string{"soup"}); key != "Monday" {
			t.Errorf("Expected a new day to use the week's spelling, got %q", key)
		}
		if _, err := f.app.SetPlanDay(ctx, "Funday", nil); !errors.Is(err, ErrUnknownDay) {
			t.Errorf("Expected ErrUnknownDay, got %v", err)
		}

		plan, err := f.app.Plans.Load(ctx)
		if err != nil {
			t.Fatalf("Failed to load plan: %v", err)
		}
		if len(plan) != 3 {
			t.Errorf("Expected 3 planned days, got %v", plan)
		}
		if got := strings.Join(plan.ForDay("Saturday"), ","); got != "bread,bread" {
			t.Errorf("Expected bread twice on Saturday, got %q", got)
		}
	})

	t.Run("Members", func(t *testing.T) {
		eve, err := f.app.AddMember(ctx, "  Eve ", 40)
		if err != nil {
			t.Fatalf("Failed to add member: %v", err)
		}
		if eve.ID == "" || eve.Name != "Eve" {
			t.Errorf("Expected a trimmed member with an ID, got %+v", eve)
		}
		for _, bad := range []struct {
			name string
			age  int
		}{{"", 3}, {"Bob", -1}} {
			if _, err := f.app.AddMember(ctx, bad.name, bad.age); !errors.Is(err, ErrInvalidMember) {
				t.Errorf("Expected ErrInvalidMember for %+v, got %v", bad, err)
			}
		}

		roster, err := f.app.Roster.List(ctx)
		if err != nil {
			t.Fatalf("Failed to list roster: %v", err)
		}
		if w := roster.Weight(); !w.Equal(decimal.RequireFromString("2.75")) {
			t.Errorf("Expected weight 2.75, got %s", w)
		}

		if err := f.app.RemoveMember(ctx, eve.ID); err != nil {
			t.Fatalf("Failed to remove member: %v", err)
		}
		roster, _ = f.app.Roster.List(ctx)
		if len(roster) != 2 {
			t.Errorf("Expected 2 members left, got %+v", roster)
		}
	})

	t.Run("Dishes", func(t *testing.T) {
		dishes, err := f.app.ListDishes(ctx)
		if err != nil {
			t.Fatalf("Failed to list dishes: %v", err)
		}
		if len(dishes) != 2 || dishes[0].ID != "bread" || dishes[1].ID != "soup" {
			t.Fatalf("Expected bread and soup, got %+v", dishes)
		}
		if err := f.app.RemoveDish(ctx, "bread"); err != nil {
			t.Fatalf("Failed to remove dish: %v", err)
		}
		dishes, _ = f.app.ListDishes(ctx)
		if len(dishes) != 1 || dishes[0].ID != "soup" {
			t.Errorf("Expected only soup, got %+v", dishes)
		}
	})
}

func TestShoppingListReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	latest, err := f.app.LatestExport(ctx)
	if err != nil || latest != "" {
		t.Errorf("Expected no export yet, got %q (%v)", latest, err)
	}
	path, err := f.app.ExportShoppingList(ctx)
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	if latest, _ := f.app.LatestExport(ctx); latest != path {
		t.Errorf("Expected latest export %q, got %q", path, latest)
	}

	if err := f.app.ResetShoppingList(ctx); err != nil {
		t.Fatalf("Failed to reset shopping list: %v", err)
	}
	list, err := f.app.Lists.GetByWeek(ctx, planner.WeekStart(fixedNow))
	if err != nil {
		t.Fatalf("Failed to load shopping list: %v", err)
	}
	if list != nil {
		t.Errorf("Expected the list to be gone, got %+v", list)
	}
	if _, err := f.app.ConfirmPurchases(ctx, nil); !errors.Is(err, ErrNoShoppingList) {
		t.Errorf("Expected ErrNoShoppingList, got %v", err)
	}
}
