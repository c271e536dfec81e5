package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"roster/internal/app"
	"roster/internal/platform/config"
	"roster/internal/platform/health"
	"roster/internal/platform/logger"
	"roster/internal/platform/metrics"
	httptransport "roster/internal/transport/http"
	"roster/internal/users/handler"
	"roster/internal/users/workers/scheduler"
	request "roster/pkg/platform/middleware/request"
)

// main wires dependencies, serves /data and runs the periodic pass until
// SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing roster",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"source_bucket", cfg.ObjectStore.SourceBucket,
		"processed_bucket", cfg.ObjectStore.ProcessedBucket,
		"interval", cfg.Pipeline.Interval.String(),
	)

	a, err := app.Build(ctx, cfg, log, app.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to release dependencies", "error", err)
		}
	}()

	healthHandler := health.New(cfg.Server.Environment)
	a.RegisterChecks(healthHandler)
	metrics.BuildInfo(prometheus.DefaultRegisterer, health.Version)

	router := httptransport.NewRouter(
		httptransport.RouterConfig{
			Logger:         log,
			RequestTimeout: cfg.Server.RequestTimeout,
			Metrics:        request.NewMetrics(),
		},
		healthHandler,
		httptransport.RegistrarFunc(func(r chi.Router) { metrics.Register(r, prometheus.DefaultGatherer) }),
		handler.New(a.Service, log, cfg.Server.AdminToken),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched, err := scheduler.New(a.Pipeline,
		scheduler.WithInterval(cfg.Pipeline.Interval),
		scheduler.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
