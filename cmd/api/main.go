package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	app "github.com/pingtools/usersync/internal/application/bulk"
	"github.com/pingtools/usersync/internal/bootstrap"
	"github.com/pingtools/usersync/internal/infrastructure/csvfile"
	"github.com/pingtools/usersync/internal/infrastructure/history"
	"github.com/pingtools/usersync/internal/infrastructure/pingone"
	"github.com/pingtools/usersync/internal/infrastructure/session"
	"github.com/pingtools/usersync/internal/infrastructure/stream"
)

func main() {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	port := getEnv("PORT", "8080")

	directory, err := pingone.NewClient(pingone.Config{
		AuthBaseURL:   getEnv("PINGONE_AUTH_BASE_URL", "https://auth.pingone.com"),
		APIBaseURL:    getEnv("PINGONE_API_BASE_URL", "https://api.pingone.com/v1"),
		EnvironmentID: os.Getenv("PINGONE_ENVIRONMENT_ID"),
		ClientID:      os.Getenv("PINGONE_CLIENT_ID"),
		ClientSecret:  os.Getenv("PINGONE_CLIENT_SECRET"),
		CallTimeout:   time.Duration(parseIntEnv("PINGONE_CALL_TIMEOUT_SECONDS", 30)) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("failed to configure PingOne client", zap.Error(err))
	}

	registry := session.NewRegistry()
	hub := stream.NewHub(logger)
	historyStore := history.NewStore(getEnv("HISTORY_FILE", "data/history.json"))
	parser := csvfile.NewParser()

	runCfg := app.RunnerConfig{
		BatchSize:  parseIntEnv("IMPORT_BATCH_SIZE", 5),
		BatchDelay: time.Duration(parseIntEnv("IMPORT_BATCH_DELAY_MS", 1000)) * time.Millisecond,
	}

	// runCtx bounds every batch run; cancelling it on shutdown is the
	// cooperative cancellation path for in-flight imports.
	runCtx, stopRuns := context.WithCancel(context.Background())
	defer stopRuns()

	runner := app.NewRunner(directory, registry, hub, historyStore, logger, runCfg)

	server := bootstrap.NewHTTPServer(bootstrap.Components{
		StartImport: app.NewStartImport(runCtx, parser, registry, runner, logger),
		ModifyUsers: app.NewModifyUsers(parser, directory, hub, historyStore, logger, runCfg),
		DeleteUsers: app.NewDeleteUsers(parser, directory, hub, historyStore, logger, runCfg),
		ExportUsers: app.NewExportUsers(directory, historyStore, logger),
		Hub:         hub,
		History:     historyStore,
		Logger:      logger,
	})

	go func() {
		if err := server.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopRuns()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if getEnv("LOG_PRETTY", "") == "true" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func parseIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
