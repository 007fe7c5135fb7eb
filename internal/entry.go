// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger initializes the structured JSON logger.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// RenderOnce opens the project, runs one render, and returns its result.
func RenderOnce(ctx context.Context, req render.Request, opts ...Option) (*render.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.logger()

	rt, err := Open(app.config, logger)
	if err != nil {
		return nil, err
	}
	defer closeRuntime(rt, logger)

	return rt.Renderer.Render(ctx, req)
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(io.Writer(os.Stderr))}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	rt, err := Open(app.config, logger)
	if err != nil {
		return err
	}
	defer closeRuntime(rt, logger)

	logger.Info("MCP server starting", slog.String("project", rt.Project.Dir()))
	return mcpserver.New(rt.Renderer, rt.Reader, logger).ServeStdio(ctx)
}

// Run starts the preview server: a full render, then incremental renders on
// every file change, with live-reload events for connected browsers.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_root", cfg.Project.Root),
		slog.String("output_dir", cfg.Project.OutputDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := Open(cfg, logger, render.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer closeRuntime(rt, logger)

	// Initial full render.
	if res, err := rt.Renderer.Render(ctx, render.Request{}); err != nil {
		return fmt.Errorf("initial render: %w", err)
	} else if pageErr := res.Err(); pageErr != nil {
		logger.Warn("initial render had failures", slog.String("error", pageErr.Error()))
	}

	apiRouter := api.NewRouter(api.NewService(rt.Renderer, logger), cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Rendered site. Live reload needs an unauthenticated event stream.
	site := api.NewSiteHandler(rt.Project.Store, rt.Project.OutputDir)
	if !cfg.Auth.AuthEnabled() {
		site = site.WithLiveReload("/api/events")
	}
	r.Handle("/*", site)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher driving incremental renders.
	g.Go(func() error {
		err := watch.Watch(gCtx, rt.Project.Dir(), watch.Options{
			Debounce: cfg.Watch.Debounce,
			Logger:   logger,
		}, func(ctx context.Context, changed []string) {
			res, err := rt.Renderer.Render(ctx, render.Request{Incremental: true, Files: changed})
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("incremental render failed", slog.String("error", err.Error()))
				}
				return
			}
			logger.Info("incremental render",
				slog.Int("changed", len(changed)),
				slog.Int("pages", len(res.Pages)),
				slog.Bool("full", res.FullRender))
		})
		if err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Open SSE streams end when the broker closes.
		broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func closeRuntime(rt *Runtime, logger *slog.Logger) {
	if err := rt.Close(); err != nil {
		logger.Warn("close listing cache failed", slog.String("error", err.Error()))
	}
}
