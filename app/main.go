package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmcphee/casewatch/app/api"
	"github.com/tmcphee/casewatch/app/cfg"
	"github.com/tmcphee/casewatch/app/commands"
	"github.com/tmcphee/casewatch/app/database"
	"github.com/tmcphee/casewatch/app/exposure"
	"github.com/tmcphee/casewatch/app/fetch"
	"github.com/tmcphee/casewatch/app/notify"
	"github.com/tmcphee/casewatch/app/subscription"
	"github.com/tmcphee/casewatch/app/tasks"
	"github.com/tmcphee/casewatch/app/watcher"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting Casewatch", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	snapshotRepo := database.NewSnapshotRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)

	registry, err := subscription.NewRegistry(subscriptionRepo)
	if err != nil {
		slog.Error("Failed to load subscriptions", "error", err)
		os.Exit(1)
	}
	slog.Info("Subscriptions loaded", "count", registry.Count())

	destinations, err := notify.LoadDestinations(appCfg.DestinationsFile)
	if err != nil {
		slog.Error("Failed to load destinations", "file", appCfg.DestinationsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Destinations loaded", "count", destinations.Count())

	client := &http.Client{}
	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second

	var fetcher fetch.Fetcher
	switch appCfg.FeedFormat {
	case "rss":
		fetcher = fetch.NewRSSFetcher(client, appCfg.FeedURL, appCfg.UserAgent, fetchTimeout)
	default:
		fetcher = fetch.NewHTMLFetcher(client, appCfg.FeedURL, appCfg.UserAgent, fetchTimeout)
	}

	sink := notify.NewWebhookSink(client, destinations, appCfg.UserAgent, fetchTimeout)
	dispatcher := notify.NewDispatcher(sink,
		time.Duration(appCfg.PacingInterval)*time.Millisecond, appCfg.SummaryThreshold)

	w, err := watcher.NewWatcher(fetcher, exposure.NewDetector(), snapshotRepo, registry, dispatcher)
	if err != nil {
		slog.Error("Failed to initialize watcher", "error", err)
		os.Exit(1)
	}

	scheduler := tasks.NewScheduler(w, time.Duration(appCfg.PollInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "interval", appCfg.PollInterval)

	commandHandler := commands.NewHandler(appCfg.CommandPrefix, w, registry)

	apiHandler := api.NewHandler(db, snapshotRepo, registry, w, commandHandler, destinations.Count())
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
