package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/activity"
	"github.com/mantonx/watchlist/internal/assets"
	"github.com/mantonx/watchlist/internal/config"
	"github.com/mantonx/watchlist/internal/database"
	"github.com/mantonx/watchlist/internal/events"
	"github.com/mantonx/watchlist/internal/logger"
	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/mantonx/watchlist/internal/scheduler"
	"github.com/mantonx/watchlist/internal/settings"
	"github.com/mantonx/watchlist/internal/store"
	"github.com/mantonx/watchlist/internal/watchlist"
	"github.com/spf13/afero"
)

func main() {
	configPath := flag.String("config", os.Getenv("WATCHLIST_CONFIG_PATH"), "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "watchlist: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cm := config.GetConfigManager()
	if err := cm.LoadConfig(configPath); err != nil {
		return err
	}
	cfg := cm.GetConfig()

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cm.Path() != "" {
		cm.AddWatcher(func(_, updated *config.Config) {
			log.SetLevel(hclog.LevelFromString(updated.Logging.Level))
			log.Info("configuration reloaded", "path", cm.Path())
		})
		if err := cm.Watch(ctx, func(err error) { log.Warn("config reload failed", "error", err) }); err != nil {
			log.Warn("config file not watched", "error", err)
		}
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	cache := assets.NewCache(afero.NewOsFs(), cfg.Assets, log)
	library := store.New(db, cache, log)
	prefs := settings.New(db, log)

	if err := library.CreateSchema(ctx); err != nil {
		return err
	}
	report, err := library.MigrateSchema(ctx, cache.IsLightPoster)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(events.DefaultEventBusConfig(), log)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	defer bus.Stop(context.Background())

	if report.Changed() {
		log.Info("schema migrated", "created", report.CreatedTables, "columns", report.AddedColumns,
			"colors", report.BackfilledColors, "lists", report.ConvertedLists)
		if len(report.AddedColumns) > 0 || report.ConvertedLists > 0 {
			if err := prefs.SetNeedsUpdate(ctx, true); err != nil {
				return err
			}
		}
		event := events.NewEventWithData(events.EventSchemaMigrated, "database", "Schema migrated", "", map[string]interface{}{
			"report": report,
		})
		if err := bus.PublishAsync(event); err != nil {
			log.Debug("schema event not published", "error", err)
		}
	}

	notifications := log.Named("notifications")
	_, err = bus.Subscribe(events.EventFilter{Types: []events.EventType{events.EventReleaseNotification}}, func(e events.Event) error {
		notifications.Info(e.Title, "message", e.Message, "target", e.Target)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to release notifications: %w", err)
	}

	if cfg.Metadata.APIKey == "" {
		log.Warn("no TMDB API key configured, provider requests will fail")
	}
	client := metadata.NewTMDBClient(cfg.Metadata, log)

	queue := activity.NewQueue(bus, log)
	service := watchlist.New(library, client, cache, prefs, queue, bus, log)
	if err := service.Bootstrap(ctx); err != nil {
		log.Error("first run setup failed", "error", err)
	}

	refresher := scheduler.NewRefresher(library, client, cache, prefs, cfg.Scheduler.RefreshWorkers, log)
	scanner := scheduler.NewScanner(library, client, prefs, bus, cfg.Scheduler, log)
	sched := scheduler.New(queue, prefs, refresher, scanner, cfg.Scheduler, log)

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()
	log.Info("watchlist started", "database", cfg.Database.DatabasePath)
	queue.Run(ctx)

	queue.Close()
	<-schedDone

	return shutdown(service, queue, cfg.Scheduler.ShutdownTimeout, log)
}

// shutdown waits for running activities, cancelling them once the timeout
// has passed
func shutdown(service *watchlist.Service, queue *activity.Queue, timeout time.Duration, log hclog.Logger) error {
	if service.CanExit() {
		return nil
	}
	log.Info("waiting for running activities", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := queue.Wait(ctx); err != nil {
		log.Warn("activities still running, cancelling", "running", queue.Summary().Running)
		queue.CancelAll()
	}
	queue.Drain()
	return nil
}
