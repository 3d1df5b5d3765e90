// Package app wires the console components together and manages their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"
)

// HTTPServer is the part of web.Server the orchestrator drives.
type HTTPServer interface {
	Serve(ctx context.Context, ln net.Listener) error
	Addr() string
}

// App runs the HTTP server and the scheduler until the context is done or
// one of them fails.
type App struct {
	logger    *slog.Logger
	server    HTTPServer
	scheduler *Scheduler
}

func New(logger *slog.Logger, server HTTPServer, scheduler *Scheduler) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		logger:    logger.With("component", "orchestrator"),
		server:    server,
		scheduler: scheduler,
	}
}

// Run binds the listen address and blocks until shutdown. It returns nil on
// a clean, context-driven stop.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr(), err)
	}
	return a.RunListener(ctx, ln)
}

// RunListener is Run with an already bound listener.
func (a *App) RunListener(ctx context.Context, ln net.Listener) error {
	a.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Serve(gCtx, ln); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		if gCtx.Err() == nil {
			return fmt.Errorf("http server stopped unexpectedly")
		}
		return nil
	})

	if a.scheduler != nil {
		g.Go(func() error {
			if err := a.scheduler.Start(gCtx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			a.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := a.scheduler.Stop(); err != nil {
				a.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Orchestrator stopped gracefully")
	return nil
}
