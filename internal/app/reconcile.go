package app

import (
	"context"
	"fmt"
	"time"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/shopping"
	"pantry-planner/internal/stock"
)

// ListReport is the current week's list together with the computation behind it.
type ListReport struct {
	List   *shopping.ShoppingList
	Result shopping.ListResult
}

// ShoppingList recomputes this week's shopping list, disposes of expired
// stock and saves the list, keeping the user's checks on items that are
// still listed. Dispose items already shown this week stay on the list.
func (a *App) ShoppingList(ctx context.Context) (report *ListReport, err error) {
	start := time.Now()
	var res shopping.ListResult
	defer func() {
		a.record(ctx, OpShoppingList, start, len(res.Removals), len(res.Warnings), err)
	}()

	snap, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	now := a.now()
	week := planner.WeekStart(now)

	previous, err := a.Lists.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved shopping list: %w", err)
	}
	var acquired map[string]bool
	if previous != nil {
		acquired = previous.CheckedSet()
	}

	res = shopping.ComputeShoppingList(shopping.ListInput{
		Plan:     snap.plan,
		Catalog:  snap.catalog,
		Stock:    snap.stock,
		Today:    now,
		Roster:   snap.roster,
		Acquired: acquired,
	})
	for _, w := range res.Warnings {
		logger.Warn("shopping list warning", "warning", w)
	}

	if err := a.applyBatch(ctx, "expired stock removal", res.Removals); err != nil {
		return nil, err
	}

	list := &shopping.ShoppingList{WeekStart: week, Items: carryDisposeItems(res.Items, previous)}
	for _, it := range list.Items {
		if acquired[it.ID] {
			list.Checked = append(list.Checked, it.ID)
		}
	}
	if _, err := a.Lists.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save shopping list: %w", err)
	}
	res.Items = list.Items

	logger.Info("shopping list computed", "items", len(list.Items), "expiring_soon", len(res.ExpiringSoon), "total", res.TotalPrice.String())
	return &ListReport{List: list, Result: res}, nil
}

// carryDisposeItems appends the dispose items of the previous list that the
// new computation no longer sees because their stock was already removed.
func carryDisposeItems(items []shopping.Item, previous *shopping.ShoppingList) []shopping.Item {
	if previous == nil {
		return items
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[it.ID] = true
	}
	for _, it := range previous.Items {
		if it.Dispose && !seen[it.ID] {
			items = append(items, it)
		}
	}
	return items
}

// ToggleItem flips the checked state of one item of a saved list.
func (a *App) ToggleItem(ctx context.Context, listID int64, itemID string) (*shopping.ShoppingList, error) {
	list, err := a.Lists.Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("shopping list %d not found", listID)
	}
	list.Toggle(itemID)
	if err := a.Lists.SetChecked(ctx, list.ID, list.Checked); err != nil {
		return nil, err
	}
	return list, nil
}

// PurchaseReport describes a confirmed purchase.
type PurchaseReport struct {
	Purchased []shopping.Item
	Result    shopping.PurchaseResult
}

// ConfirmPurchases records the checked items of this week's list as bought.
// With no ids the list's own checked items are used. The mutations are
// applied as one batch; on failure nothing is reported as purchased.
func (a *App) ConfirmPurchases(ctx context.Context, itemIDs []string) (report *PurchaseReport, err error) {
	start := time.Now()
	report = &PurchaseReport{}
	defer func() {
		a.record(ctx, OpConfirmPurchases, start, len(report.Result.Mutations), 0, err)
	}()

	list, err := a.Lists.GetByWeek(ctx, planner.WeekStart(a.now()))
	if err != nil {
		return report, fmt.Errorf("failed to load shopping list: %w", err)
	}
	if list == nil {
		return report, ErrNoShoppingList
	}

	selected := list.CheckedItems()
	if itemIDs != nil {
		ids := make(map[string]bool, len(itemIDs))
		for _, id := range itemIDs {
			ids[id] = true
		}
		selected = shopping.Select(list.Items, ids)
	}
	for _, it := range selected {
		if !it.Dispose {
			report.Purchased = append(report.Purchased, it)
		}
	}
	if len(report.Purchased) == 0 {
		logger.Info("no checked items to confirm")
		return report, nil
	}

	entries, err := a.Stock.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load stock: %w", err)
	}
	roster, err := a.Roster.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load family roster: %w", err)
	}

	result := shopping.ConfirmPurchases(entries, report.Purchased, roster.Multiplier())
	if err := a.applyBatch(ctx, OpConfirmPurchases, result.Mutations); err != nil {
		report.Purchased = nil
		return report, err
	}
	report.Result = result

	if err := a.Lists.SetChecked(ctx, list.ID, uncheck(list.Checked, report.Purchased)); err != nil {
		logger.Warn("failed to clear checked items", "list_id", list.ID, "error", err)
	}
	return report, nil
}

func uncheck(checked []string, purchased []shopping.Item) []string {
	done := make(map[string]bool, len(purchased))
	for _, it := range purchased {
		done[it.ID] = true
	}
	var out []string
	for _, id := range checked {
		if !done[id] {
			out = append(out, id)
		}
	}
	return out
}

// ConfirmMealsForDay consumes the stock used by the meals planned for day.
// An empty day means today.
func (a *App) ConfirmMealsForDay(ctx context.Context, day string) (res shopping.MealResult, err error) {
	start := time.Now()
	defer func() {
		a.record(ctx, OpConfirmMeals, start, len(res.Mutations), len(res.Warnings), err)
	}()

	if day == "" {
		day = planner.DayOf(a.now())
	}
	snap, err := a.load(ctx)
	if err != nil {
		return res, err
	}

	res = shopping.ConfirmMealsForDay(day, snap.plan, snap.catalog, snap.roster, snap.stock)
	for _, w := range res.Warnings {
		logger.Warn("meal confirmation warning", "day", day, "warning", w)
	}
	if err := a.applyBatch(ctx, OpConfirmMeals, res.Mutations); err != nil {
		return shopping.MealResult{}, err
	}
	return res, nil
}

// StockLine is a stock entry with its freshness.
type StockLine struct {
	Entry   stock.Entry
	Status  stock.Status
	Message string
}

// StockReport lists the stock with the freshness of every entry.
func (a *App) StockReport(ctx context.Context) ([]StockLine, error) {
	entries, err := a.Stock.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}
	today := a.now()
	lines := make([]StockLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, StockLine{
			Entry:   e,
			Status:  stock.Classify(e, today),
			Message: stock.Describe(e, today),
		})
	}
	return lines, nil
}

// AddStock validates a manual entry and adds it to the stock.
func (a *App) AddStock(ctx context.Context, d stock.Draft) (e stock.Entry, err error) {
	start := time.Now()
	defer func() { a.record(ctx, OpStockEdit, start, 1, 0, err) }()

	e, err = d.Entry(a.now())
	if err != nil {
		return stock.Entry{}, err
	}
	if err := a.applyBatch(ctx, OpStockEdit, []stock.Mutation{stock.Create(e)}); err != nil {
		return stock.Entry{}, err
	}
	return e, nil
}

// RemoveStock deletes a stock entry.
func (a *App) RemoveStock(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { a.record(ctx, OpStockEdit, start, 1, 0, err) }()
	return a.applyBatch(ctx, OpStockEdit, []stock.Mutation{stock.Delete(id)})
}

// ExportShoppingList recomputes the list and writes its text export,
// returning the file path.
func (a *App) ExportShoppingList(ctx context.Context) (string, error) {
	if a.Exports == nil {
		return "", fmt.Errorf("no export directory configured")
	}
	report, err := a.ShoppingList(ctx)
	if err != nil {
		return "", err
	}
	now := a.now()
	text := shopping.Export(report.Result, report.List.CheckedSet(), a.Currency(), now)
	path, err := a.Exports.Save(report.List.WeekStart, now, text)
	if err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}
	return path, nil
}
