package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"idmcore/internal/platform/config"
	"idmcore/internal/platform/logger"
	"idmcore/migrations"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// main loads configuration, wires the engine and runs the HTTP server, the
// bulk scheduler and the authz context sweeper until SIGINT or SIGTERM.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("idmcore stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("idmcore stopped")
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close(log)

	if infra.db != nil {
		applied, err := migrations.Apply(ctx, infra.db.DB())
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.Info("applied schema migrations", "versions", applied)
		}
	}

	app, err := buildApp(cfg, infra, log)
	if err != nil {
		return err
	}
	defer app.auditPublisher.Close()

	prometheus.MustRegister(infra.collectors()...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, infra, app, log),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Info("starting idmcore",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", infra.db != nil,
		"redis", infra.redis != nil,
		"kafka", infra.producer != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	app.scheduler.Start(gctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := app.authzCleanup.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := app.scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
