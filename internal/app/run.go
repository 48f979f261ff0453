package app

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/config"
	"timetrack-gateway/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.Load()

	// Initialize logging
	if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile); err != nil {
		return err
	}
	defer logging.MustSync()

	logging.Info("Starting timetrack gateway",
		logging.Field{Key: "cpus", Value: runtime.NumCPU()},
		logging.Field{Key: "version", Value: Version},
	)

	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	// Initialize application
	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (app *App) Serve(ctx context.Context) error {
	srv := app.NewServer()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("Gateway listening", logging.Field{Key: "address", Value: srv.Addr()})
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()
		logging.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("Server forced to shutdown", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logging.Info("Server exited")
	return nil
}
