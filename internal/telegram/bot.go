package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pantry-planner/internal/app"
	"pantry-planner/internal/config"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/stock"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the pantry application.
type Bot struct {
	api          *tgbotapi.BotAPI
	app          *app.App
	metricsStore *metrics.Store
	cfg          *config.Config
	dataDir      string
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App, metricsStore *metrics.Store, dataDir string) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	logger.Info("authorized on telegram", "account", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook for %s: %w", webhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	logger.Info("webhook set", "description", resp.Description)

	return &Bot{
		api:          bot,
		app:          application,
		metricsStore: metricsStore,
		cfg:          cfg,
		dataDir:      dataDir,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		logger.Warn("error parsing update", "error", err)
		return
	}

	if update.CallbackQuery != nil {
		if !b.cfg.IsAllowed(update.CallbackQuery.From.ID) {
			return
		}
		go b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.cfg.IsAllowed(update.Message.From.ID) {
		logger.Warn("unauthorized access attempt", "user_id", update.Message.From.ID, "username", update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch msg.Command() {
	case "list":
		b.handleListCommand(ctx, msg.Chat.ID)
	case "buy":
		b.handleBuy(ctx, msg.Chat.ID, 0)
	case "today", "meals":
		b.handleMeals(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	case "stock":
		b.handleStock(ctx, msg.Chat.ID)
	case "add":
		b.handleAdd(ctx, msg.Chat.ID, msg.CommandArguments())
	case "rm":
		b.handleRemove(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	case "export":
		b.handleExport(ctx, msg.Chat.ID)
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	default:
		b.send(msg.Chat.ID, helpText)
	}
}

const helpText = "🧺 *Pantry Planner*\n\n" +
	"/list - this week's shopping list\n" +
	"/buy - confirm the checked items\n" +
	"/today - confirm today's meals\n" +
	"/meals Monday - confirm a day's meals\n" +
	"/stock - stock and expiration dates\n" +
	"/add name; quantity; unit; category; YYYY-MM-DD\n" +
	"/rm id - remove a stock entry\n" +
	"/export - shopping list as a text file"

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		logger.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendError(chatID int64, action string, err error) {
	logger.Error("command failed", "action", action, "error", err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.send(chatID, fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", action, safeErr))
}

func (b *Bot) handleListCommand(ctx context.Context, chatID int64) {
	report, err := b.app.ShoppingList(ctx)
	if err != nil {
		b.sendError(chatID, "computing the shopping list", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatShoppingList(report, b.app.Currency()))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(report.List.Items) > 0 {
		keyboard := listKeyboard(report.List)
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		logger.Warn("failed to send shopping list", "error", err)
	}
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	cb, err := parseCallback(query.Data)
	if err != nil {
		logger.Warn("ignoring callback", "data", query.Data, "error", err)
		return
	}

	switch cb.action {
	case actionToggle:
		list, err := b.app.Lists.Get(ctx, cb.listID)
		if err != nil || list == nil || cb.index >= len(list.Items) {
			b.send(chatID, "⚠️ This list is out of date, send /list again.")
			return
		}
		list, err = b.app.ToggleItem(ctx, cb.listID, list.Items[cb.index].ID)
		if err != nil {
			b.sendError(chatID, "updating the list", err)
			return
		}
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, query.Message.MessageID, listKeyboard(list))
		b.api.Send(edit)
	case actionBuy:
		b.handleBuy(ctx, chatID, cb.listID)
	}
}

func (b *Bot) handleBuy(ctx context.Context, chatID int64, listID int64) {
	report, err := b.app.ConfirmPurchases(ctx, nil)
	if errors.Is(err, app.ErrNoShoppingList) {
		b.send(chatID, "🛒 No shopping list yet, send /list first.")
		return
	}
	if err != nil {
		b.sendError(chatID, "confirming purchases", err)
		return
	}
	b.send(chatID, formatPurchase(report, b.app.Currency()))
	if listID != 0 && len(report.Purchased) > 0 {
		b.handleListCommand(ctx, chatID)
	}
}

func (b *Bot) handleMeals(ctx context.Context, chatID int64, day string) {
	res, err := b.app.ConfirmMealsForDay(ctx, day)
	if err != nil {
		b.sendError(chatID, "confirming meals", err)
		return
	}
	if day == "" {
		day = "today"
	}
	b.send(chatID, formatMealResult(day, res))
}

func (b *Bot) handleStock(ctx context.Context, chatID int64) {
	lines, err := b.app.StockReport(ctx)
	if err != nil {
		b.sendError(chatID, "loading stock", err)
		return
	}
	b.send(chatID, formatStock(lines))
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	draft, err := parseDraft(args)
	if err != nil {
		b.send(chatID, "Usage: /add name; quantity; unit; category; YYYY-MM-DD")
		return
	}
	e, err := b.app.AddStock(ctx, draft)
	if errors.Is(err, stock.ErrInvalidEntry) {
		b.send(chatID, "⚠️ "+escape(err.Error()))
		return
	}
	if err != nil {
		b.sendError(chatID, "adding stock", err)
		return
	}
	b.send(chatID, fmt.Sprintf("✅ Added %s %s %s (`%s`)", escape(e.Quantity.String()), escape(e.Unit), escape(e.Name), e.ID))
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, id string) {
	if id == "" {
		b.send(chatID, "Usage: /rm id")
		return
	}
	if err := b.app.RemoveStock(ctx, id); err != nil {
		b.sendError(chatID, "removing stock", err)
		return
	}
	b.send(chatID, "🗑 Removed.")
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	path, err := b.app.ExportShoppingList(ctx)
	if err != nil {
		b.sendError(chatID, "exporting the list", err)
		return
	}
	if _, err := b.api.Send(tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))); err != nil {
		logger.Warn("failed to send export", "path", path, "error", err)
	}
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.send(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	activity, err := b.metricsStore.GetDailyActivity(ctx, 7)
	if err != nil {
		b.send(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.send(msg.Chat.ID, formatMetrics(activity, metrics.GetSysHealth(b.dataDir)))
}

type callbackAction string

const (
	actionToggle callbackAction = "t"
	actionBuy    callbackAction = "buy"
)

type callback struct {
	action callbackAction
	listID int64
	index  int
}

// Callback data is limited to 64 bytes: items are referenced by position.
func toggleData(listID int64, index int) string {
	return fmt.Sprintf("%s|%d|%d", actionToggle, listID, index)
}

func buyData(listID int64) string {
	return fmt.Sprintf("%s|%d", actionBuy, listID)
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, "|")
	if len(parts) < 2 {
		return callback{}, fmt.Errorf("malformed callback %q", data)
	}
	listID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, fmt.Errorf("malformed list id in %q: %w", data, err)
	}
	cb := callback{action: callbackAction(parts[0]), listID: listID}
	switch cb.action {
	case actionToggle:
		if len(parts) != 3 {
			return callback{}, fmt.Errorf("malformed toggle %q", data)
		}
		if cb.index, err = strconv.Atoi(parts[2]); err != nil || cb.index < 0 {
			return callback{}, fmt.Errorf("malformed item index in %q", data)
		}
	case actionBuy:
	default:
		return callback{}, fmt.Errorf("unknown action %q", cb.action)
	}
	return cb, nil
}

// parseDraft reads "name; quantity; unit; category[; date]".
func parseDraft(args string) (stock.Draft, error) {
	parts := strings.Split(args, ";")
	if len(parts) < 4 || len(parts) > 5 {
		return stock.Draft{}, fmt.Errorf("expected 4 or 5 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	d := stock.Draft{Name: parts[0], Quantity: parts[1], Unit: parts[2], Category: parts[3]}
	if len(parts) == 5 {
		d.ExpirationDate = parts[4]
	}
	return d, nil
}
