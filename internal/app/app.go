// Package app wires the HTTP API and the background scheduler into one runnable unit
// with a shared lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/chatdesk/internal/config"
)

// Waiter is implemented by components with background work to drain on shutdown.
type Waiter interface {
	Wait()
}

// App runs the API server and the scheduler until its context is cancelled.
type App struct {
	logger    *slog.Logger
	cfg       config.HTTPConfig
	handler   http.Handler
	scheduler *Scheduler
	drain     []Waiter
}

// New creates an App. Components in drain are waited for after the server has stopped.
func New(logger *slog.Logger, cfg config.HTTPConfig, handler http.Handler, scheduler *Scheduler, drain ...Waiter) *App {
	return &App{
		logger:    logger.With("component", "app"),
		cfg:       cfg,
		handler:   handler,
		scheduler: scheduler,
		drain:     drain,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs everything on an existing listener, which it closes on return.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutting down HTTP server", "timeout", a.cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), a.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown incomplete", "error", err)
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if a.scheduler != nil {
		g.Go(func() error {
			if err := a.scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			<-gCtx.Done()
			if err := a.scheduler.Stop(); err != nil {
				a.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	for _, w := range a.drain {
		w.Wait()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("App stopped due to error", "error", err)
		return err
	}
	a.logger.Info("App stopped")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.ShutdownTimeout > 0 {
		return a.cfg.ShutdownTimeout
	}
	return 5 * time.Second
}
