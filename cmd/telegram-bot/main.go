package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pantry-planner/internal/app"
	"pantry-planner/internal/config"
	"pantry-planner/internal/database"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/storage"
	"pantry-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	config.LoadDotEnv()
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	// 2. Initialize the SQLite database and export directory
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	exports, err := storage.NewExportStore(cfg.ExportDir)
	if err != nil {
		log.Fatalf("Failed to initialize export store: %v", err)
	}

	deps := app.SQLiteDeps(db, exports)
	metricsStore := metrics.NewStore(db.SQL)
	deps.Metrics = metricsStore
	application := app.NewApp(cfg, deps)

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, application, metricsStore, filepath.Dir(cfg.DatabasePath))
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 4. Start Server with Graceful Shutdown
	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: nil,
	}

	go func() {
		logger.Info("telegram bot server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server exiting")
}
