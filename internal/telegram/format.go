package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pantry-planner/internal/app"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/shopping"
	"pantry-planner/internal/stock"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatShoppingList(report *app.ListReport, currency string) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	sb.WriteString(fmt.Sprintf("_Week of %s_\n\n", report.List.WeekStart.Format("Jan 2")))

	if len(report.List.Items) == 0 {
		sb.WriteString("Nothing to buy, the pantry covers the week. ✅\n")
	}

	checked := report.List.CheckedSet()
	var category string
	for _, it := range report.List.Items {
		if it.Category != category {
			category = it.Category
			sb.WriteString(fmt.Sprintf("\n*%s*\n", escape(category)))
		}
		mark := "▫️"
		if checked[it.ID] {
			mark = "✅"
		}
		if it.Dispose {
			sb.WriteString(fmt.Sprintf("%s 🗑 %s %s %s (%s)\n", mark, escape(it.Quantity.String()), escape(it.Unit), escape(it.Name), escape(it.Message)))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s %s %s\n", mark, escape(it.Quantity.String()), escape(it.Unit), escape(it.Name)))
	}

	if soon := report.Result.ExpiringSoon; len(soon) > 0 {
		sb.WriteString("\n⏳ *Expiring soon*\n")
		for _, e := range soon {
			sb.WriteString(fmt.Sprintf("- %s: %s %s\n", escape(e.Name), escape(e.Quantity.String()), escape(e.Unit)))
		}
	}

	sb.WriteString(fmt.Sprintf("\n💰 *Estimated total:* %s", escape(shopping.FormatPrice(report.Result.TotalPrice, currency))))
	return sb.String()
}

// listKeyboard has one toggle button per item and a confirm button.
func listKeyboard(list *shopping.ShoppingList) tgbotapi.InlineKeyboardMarkup {
	checked := list.CheckedSet()
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, it := range list.Items {
		label := "☐ "
		if checked[it.ID] {
			label = "☑️ "
		}
		if it.Dispose {
			label += "🗑 "
		}
		label += it.Name
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, toggleData(list.ID, i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🛍 Confirm purchases", buyData(list.ID)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatPurchase(report *app.PurchaseReport, currency string) string {
	if len(report.Purchased) == 0 {
		return "🛒 Nothing checked yet. Tick items on the /list first."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ *Stocked %d items*\n", len(report.Purchased)))
	for _, it := range report.Purchased {
		sb.WriteString(fmt.Sprintf("- %s %s %s\n", escape(it.Quantity.String()), escape(it.Unit), escape(it.Name)))
	}
	sb.WriteString(fmt.Sprintf("\n💸 Spent: %s", escape(shopping.FormatPrice(report.Result.Spent, currency))))
	return sb.String()
}

func formatMealResult(day string, res shopping.MealResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *Meals confirmed for %s*\n", escape(day)))
	sb.WriteString(fmt.Sprintf("%d stock updates\n", len(res.Mutations)))
	if len(res.Warnings) > 0 {
		sb.WriteString("\n⚠️ *Warnings*\n")
		for _, w := range res.Warnings {
			sb.WriteString("- " + escape(w) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

var statusIcons = map[stock.Status]string{
	stock.StatusExpired: "🔴",
	stock.StatusWarning: "🟠",
	stock.StatusGood:    "🟢",
	stock.StatusUnknown: "⚪️",
}

func formatStock(lines []app.StockLine) string {
	if len(lines) == 0 {
		return "📦 The pantry is empty."
	}
	var sb strings.Builder
	sb.WriteString("📦 *Stock*\n\n")
	for _, l := range lines {
		e := l.Entry
		sb.WriteString(fmt.Sprintf("%s %s: %s %s", statusIcons[l.Status], escape(e.Name), escape(e.Quantity.String()), escape(e.Unit)))
		if l.Status != stock.StatusUnknown {
			sb.WriteString(" (" + escape(l.Message) + ")")
		}
		sb.WriteString(fmt.Sprintf("\n   `%s`\n", e.ID))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatMetrics(activity []metrics.DailyActivity, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("*Activity (last 7 days)*\n")
	if len(activity) == 0 {
		sb.WriteString("No runs recorded.\n")
	}
	for _, d := range activity {
		sb.WriteString(fmt.Sprintf("`%s`: %d runs, %d stock updates, %d warnings", d.Date, d.Runs, d.Mutations, d.Warnings))
		if d.Failures > 0 {
			sb.WriteString(fmt.Sprintf(", %d failed", d.Failures))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n🖥️ *System Health*\n")
	sb.WriteString(fmt.Sprintf("Memory: %s (sys %s)\n", health.Alloc, health.Sys))
	sb.WriteString(fmt.Sprintf("Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("GC runs: %d\n", health.NumGC))
	sb.WriteString(fmt.Sprintf("Data on disk: %s", health.DataDiskSize))
	return sb.String()
}
