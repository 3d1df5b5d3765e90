// Package main contains the entrypoint for the bot console web application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgard/botconsole/internal/app"
	"github.com/edgard/botconsole/internal/app/tasks"
	"github.com/edgard/botconsole/internal/backend"
	"github.com/edgard/botconsole/internal/config"
	"github.com/edgard/botconsole/internal/console"
	"github.com/edgard/botconsole/internal/database"
	"github.com/edgard/botconsole/internal/gemini"
	"github.com/edgard/botconsole/internal/logger"
	"github.com/edgard/botconsole/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes config, logger, database, backend client, session
// registry, HTTP server and scheduler, blocks until shutdown and returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	client, err := backend.NewClient(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(log),
	)
	if err != nil {
		log.Error("Failed to create backend client", "url", cfg.Backend.URL, "error", err)
		return 1
	}
	log.Info("Backend configured", "url", client.BaseURL(), "timeout", cfg.Backend.Timeout)

	var drafter gemini.Drafter
	if cfg.Gemini.Enabled() {
		drafter, err = gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
	} else {
		log.Info("Params drafting disabled, no Gemini API key configured")
	}

	registry := console.NewRegistry(console.RegistryOptions{
		Session: console.SessionOptions{
			Backend:       client,
			Recorder:      app.NewActivityRecorder(store),
			Policy:        console.Policy(cfg.Console.Concurrency),
			DefaultMethod: cfg.Console.DefaultMethod,
			DefaultParams: cfg.Console.DefaultParams,
		},
		TTL:    cfg.HTTP.SessionTTL,
		Logger: log,
	})

	server := web.NewServer(cfg.HTTP.Addr, cfg.HTTP.ShutdownTimeout, web.Deps{
		Registry:      registry,
		Store:         store,
		Drafter:       drafter,
		BackendURL:    client.BaseURL(),
		ActivityLimit: cfg.Console.ActivityLimit,
		Logger:        log,
	})

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Sessions: registry,
		Config:   cfg,
	})
	sched, err := app.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	log.Info("Starting console...", "addr", cfg.HTTP.Addr)
	runErr := app.New(log, server, sched).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Console stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Console stopped gracefully")
	return 0
}
