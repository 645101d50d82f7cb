package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/handoff/internal/api"
	"github.com/phrazzld/handoff/internal/supervisor"
)

// errLoopExited is returned by Run when a loop returns before shutdown was requested.
var errLoopExited = errors.New("loop exited unexpectedly")

// Run starts both loops and, when enabled, the admin server, then blocks until ctx is
// cancelled or a component fails. Shutdown is bounded by shutdown.timeout.
func (app *application) Run(ctx context.Context) error {
	// The loops are stopped explicitly in producer then consumer order, so they must
	// not see ctx's cancellation directly.
	producer, consumer, err := app.supervisor.Start(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("failed to start loops: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	var server *http.Server
	if app.config.Admin.Enabled {
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", app.config.Admin.Port),
			Handler:           app.setupRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			app.logger.Info("starting admin server", "port", app.config.Admin.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server failed: %w", err)
			}
			return nil
		})
	}

	for _, h := range []*supervisor.Handle{producer, consumer} {
		h := h
		g.Go(func() error {
			select {
			case <-h.Done():
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: %s: %v", errLoopExited, h.Name(), h.Err())
			case <-gctx.Done():
				return nil
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Shutdown.Timeout)
		defer cancel()
		return app.shutdown(shutdownCtx, server)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	app.logger.Info("shutdown completed")
	return nil
}

// shutdown refuses new manual cycles, drains the admin server and stops the loops.
func (app *application) shutdown(ctx context.Context, server *http.Server) error {
	app.admin.BeginShutdown()

	var errs []error
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			app.logger.Error("admin server shutdown failed", "error", err)
			errs = append(errs, fmt.Errorf("admin server shutdown failed: %w", err))
		}
	}

	if err := app.supervisor.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("loop shutdown failed: %w", err))
	}

	return errors.Join(errs...)
}

// setupRouter creates the admin router over the application's components.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(app.admin, app.metrics.Registry(), app.logger)
}
