package acceptance_tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pantry-planner/internal/app"
	"pantry-planner/internal/config"
	"pantry-planner/internal/database"
	"pantry-planner/internal/dish"
	"pantry-planner/internal/ingredient"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/shopping"
	"pantry-planner/internal/stock"
	"pantry-planner/internal/storage"
)

// clock is advanced by the test between the days of the week.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 9, 0, 0, 0, time.UTC)
}

func date(d int) *time.Time {
	t := time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func itemIDs(items []shopping.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func quantityOf(t *testing.T, a *app.App, id string) (ingredient.Amount, bool) {
	t.Helper()
	entries, err := a.Stock.List(context.Background())
	if err != nil {
		t.Fatalf("Failed to list stock: %v", err)
	}
	for _, e := range entries {
		if e.ID == id {
			return e.Quantity, true
		}
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name, id) {
			return e.Quantity, true
		}
	}
	return ingredient.Amount{}, false
}

func hasWarning(warnings []string, want string) bool {
	for _, w := range warnings {
		if w == want {
			return true
		}
	}
	return false
}

// --- Acceptance Test ---
func TestWeekInThePantry(t *testing.T) {
	ctx := context.Background()

	// 1. Set up a temporary directory for the database and exports
	tempDir, err := os.MkdirTemp("", "acceptance_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	db, err := database.NewDB(filepath.Join(tempDir, "pantry.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	exports, err := storage.NewExportStore(filepath.Join(tempDir, "exports"))
	if err != nil {
		t.Fatalf("Failed to create export store: %v", err)
	}

	// 2. Wire the application on a controllable clock
	clk := &clock{now: day(12)} // Monday
	deps := app.SQLiteDeps(db, exports)
	deps.Now = clk.Now
	a := app.NewApp(&config.Config{Currency: "EUR"}, deps)

	// 3. Seed dishes, plan, roster and stock
	dishes := []dish.Dish{
		{ID: "pasta", Name: "Pasta al pomodoro", Servings: 2, Ingredients: []dish.Ingredient{
			{Name: "Pasta", Quantity: ingredient.A(200), Unit: "g", Category: "Dry", UnitPrice: ingredient.A(0.01)},
			{Name: "Tomato", Quantity: ingredient.A(3), Unit: "pcs", Category: "Produce", UnitPrice: ingredient.A(0.5)},
		}},
		{ID: "omelette", Name: "Omelette", Servings: 1, Ingredients: []dish.Ingredient{
			{Name: "Egg", Quantity: ingredient.A(3), Unit: "pcs", Category: "Dairy", UnitPrice: ingredient.A(0.2)},
			{Name: "Milk", Quantity: ingredient.A(100), Unit: "ml", Category: "Dairy", UnitPrice: ingredient.A(0.002)},
		}},
	}
	for _, d := range dishes {
		if err := a.Dishes.Save(ctx, d); err != nil {
			t.Fatalf("Failed to save dish: %v", err)
		}
	}
	if err := a.Plans.Save(ctx, planner.WeeklyPlan{"Monday": {"pasta"}, "Wednesday": {"omelette"}}); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}
	if err := a.Roster.Replace(ctx, planner.Roster{{Name: "Ana", Age: 40}, {Name: "Leo", Age: 38}}); err != nil {
		t.Fatalf("Failed to save roster: %v", err)
	}
	err = a.Stock.Apply(ctx, []stock.Mutation{
		stock.Create(stock.Entry{ID: "s-eggs", Name: "Egg", Quantity: ingredient.A(2), Unit: "pcs", Category: "Dairy", ExpirationDate: date(14)}),
		stock.Create(stock.Entry{ID: "s-milk", Name: "Milk", Quantity: ingredient.A(500), Unit: "ml", Category: "Dairy", ExpirationDate: date(11)}),
	})
	if err != nil {
		t.Fatalf("Failed to seed stock: %v", err)
	}

	// 4. Monday: the list disposes of the expired milk
	report, err := a.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList failed: %v", err)
	}
	want := []string{"pasta-g", "tomato-pcs", "egg-pcs", "expired-s-milk"}
	if got := itemIDs(report.List.Items); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected items %v, got %v", want, got)
	}
	if !report.Result.TotalPrice.Equal(decimal.RequireFromString("7.4")) {
		t.Errorf("Expected total 7.4, got %s", report.Result.TotalPrice)
	}
	if len(report.Result.ExpiringSoon) != 1 || report.Result.ExpiringSoon[0].ID != "s-eggs" {
		t.Errorf("Expected eggs to be expiring soon, got %+v", report.Result.ExpiringSoon)
	}
	if _, ok := quantityOf(t, a, "s-milk"); ok {
		t.Error("Expected expired milk to be removed from stock")
	}

	// 5. Monday: buy pasta and tomatoes, then cook
	for _, id := range []string{"pasta-g", "tomato-pcs"} {
		if _, err := a.ToggleItem(ctx, report.List.ID, id); err != nil {
			t.Fatalf("ToggleItem failed: %v", err)
		}
	}
	purchase, err := a.ConfirmPurchases(ctx, nil)
	if err != nil {
		t.Fatalf("ConfirmPurchases failed: %v", err)
	}
	if len(purchase.Purchased) != 2 {
		t.Fatalf("Expected 2 purchased items, got %d", len(purchase.Purchased))
	}
	if !purchase.Result.Spent.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Expected 7 spent, got %s", purchase.Result.Spent)
	}
	if q, ok := quantityOf(t, a, "pasta"); !ok || !q.Equal(ingredient.A(200)) {
		t.Errorf("Expected 200 g of pasta in stock, got %v (%v)", q, ok)
	}

	meals, err := a.ConfirmMealsForDay(ctx, "")
	if err != nil {
		t.Fatalf("ConfirmMealsForDay failed: %v", err)
	}
	if len(meals.Mutations) != 2 {
		t.Errorf("Expected 2 decrements, got %d", len(meals.Mutations))
	}
	if !hasWarning(meals.Warnings, "Pasta is now out of stock") {
		t.Errorf("Expected pasta depletion warning, got %v", meals.Warnings)
	}
	if q, _ := quantityOf(t, a, "tomato"); !q.IsZero() {
		t.Errorf("Expected tomatoes to be used up, got %s", q)
	}

	// 6. Tuesday: the whole week is reconciled again, the dispose item stays
	clk.now = day(13)
	report, err = a.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList failed: %v", err)
	}
	want = []string{"pasta-g", "tomato-pcs", "egg-pcs", "milk-ml", "expired-s-milk"}
	if got := itemIDs(report.List.Items); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected items %v, got %v", want, got)
	}
	if !report.Result.TotalPrice.Equal(decimal.RequireFromString("7.8")) {
		t.Errorf("Expected total 7.8, got %s", report.Result.TotalPrice)
	}

	// 7. Wednesday: buy one egg by id, then cook for two
	clk.now = day(14)
	if _, err := a.ConfirmPurchases(ctx, []string{"egg-pcs"}); err != nil {
		t.Fatalf("ConfirmPurchases failed: %v", err)
	}
	if q, _ := quantityOf(t, a, "s-eggs"); !q.Equal(ingredient.A(3)) {
		t.Errorf("Expected the purchase to top up the existing eggs to 3, got %s", q)
	}
	meals, err = a.ConfirmMealsForDay(ctx, "wednesday")
	if err != nil {
		t.Fatalf("ConfirmMealsForDay failed: %v", err)
	}
	if !hasWarning(meals.Warnings, "Milk (ml) is not in stock") {
		t.Errorf("Expected missing milk warning, got %v", meals.Warnings)
	}
	if !hasWarning(meals.Warnings, "Egg is now out of stock") {
		t.Errorf("Expected egg depletion warning, got %v", meals.Warnings)
	}
	if q, _ := quantityOf(t, a, "s-eggs"); !q.IsZero() {
		t.Errorf("Expected eggs floored at 0, got %s", q)
	}

	// 8. Thursday: the eggs have expired and are disposed of once
	clk.now = day(15)
	lines, err := a.StockReport(ctx)
	if err != nil {
		t.Fatalf("StockReport failed: %v", err)
	}
	for _, l := range lines {
		if l.Entry.ID == "s-eggs" && l.Status != stock.StatusExpired {
			t.Errorf("Expected eggs to be expired, got %s", l.Status)
		}
	}
	first, err := a.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList failed: %v", err)
	}
	second, err := a.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList failed: %v", err)
	}
	if strings.Join(itemIDs(first.List.Items), ",") != strings.Join(itemIDs(second.List.Items), ",") {
		t.Errorf("Expected the same list twice, got %v and %v", itemIDs(first.List.Items), itemIDs(second.List.Items))
	}
	if len(second.Result.Removals) != 0 {
		t.Errorf("Expected nothing left to remove, got %v", second.Result.Removals)
	}
	if _, ok := quantityOf(t, a, "s-eggs"); ok {
		t.Error("Expected expired eggs to be removed from stock")
	}

	// 9. Export and usage metrics
	path, err := a.ExportShoppingList(ctx)
	if err != nil {
		t.Fatalf("ExportShoppingList failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if !strings.Contains(string(content), "Egg: 0 pcs "+shopping.DisposeMessage) {
		t.Errorf("Expected the expired eggs in the export, got:\n%s", content)
	}

	activity, err := metrics.NewStore(db.SQL).GetDailyActivity(ctx, 1)
	if err != nil {
		t.Fatalf("GetDailyActivity failed: %v", err)
	}
	runs := 0
	for _, d := range activity {
		runs += d.Runs
	}
	if runs < 8 {
		t.Errorf("Expected every operation to be recorded, got %+v", activity)
	}
}
