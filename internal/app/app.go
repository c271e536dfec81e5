// Package app assembles the pipeline and its collaborators from Config.
// Both the HTTP server and rosterctl start from Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"roster/internal/platform/config"
	"roster/internal/platform/database"
	"roster/internal/platform/health"
	"roster/internal/platform/kafka/producer"
	"roster/internal/platform/objectstore"
	"roster/internal/platform/redis"
	"roster/internal/platform/tracer"
	"roster/internal/users/events"
	"roster/internal/users/metrics"
	"roster/internal/users/pipeline"
	"roster/internal/users/reconcile"
	"roster/internal/users/service"
	"roster/internal/users/snapshot"
	"roster/internal/users/status"
	"roster/internal/users/store"
	"roster/migrations"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *database.Pool
	Objects  objectstore.Store
	Users    store.UserStore
	Status   status.Store
	Redis    *redis.Client
	Producer *producer.Producer
	Pipeline *pipeline.Pipeline
	Service  *service.Service

	closers []func() error
}

// Option adjusts how Build wires the pipeline.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	pipeline   []pipeline.Option
}

// WithRegisterer registers pipeline metrics on reg. Without it no metrics are recorded.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithPipelineOptions appends options to the pipeline.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(o *options) {
		o.pipeline = append(o.pipeline, opts...)
	}
}

// Build connects to every configured dependency, applies migrations and makes
// sure both buckets exist. Redis and Kafka are skipped when unconfigured.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger}
	if err := a.build(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, o options) error {
	cfg, logger := a.Config, a.Logger

	pool, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	a.DB = pool
	a.closers = append(a.closers, pool.Close)

	applied, err := database.Migrate(ctx, pool.DB(), migrations.FS)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "migrations applied", "files", applied)
	a.Users = store.NewPostgres(pool.DB())

	objects, err := objectstore.NewS3(ctx, cfg.ObjectStore)
	if err != nil {
		return err
	}
	a.Objects = objects
	for _, bucket := range []string{cfg.ObjectStore.SourceBucket, cfg.ObjectStore.ProcessedBucket} {
		st, err := objects.EnsureBucket(ctx, bucket)
		if err != nil {
			return fmt.Errorf("ensure bucket %s: %w", bucket, err)
		}
		logger.InfoContext(ctx, "bucket ready", "bucket", bucket, "status", st.String())
	}

	a.Status = status.NewInMemory()
	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
		if o.registerer != nil {
			client.RegisterPoolMetrics(o.registerer)
		}
		a.Status = status.NewResilient(status.NewRedis(client, cfg.Redis.StatusTTL), logger)
		logger.InfoContext(ctx, "pass status stored in redis")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(cfg.Kafka, logger)
		if err != nil {
			return err
		}
		a.Producer = p
		a.closers = append(a.closers, p.Close)
		if err := p.EnsureTopic(ctx); err != nil {
			logger.WarnContext(ctx, "could not ensure events topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		publisher = events.NewKafka(p, cfg.Kafka.Topic, logger)
		logger.InfoContext(ctx, "change events enabled", "topic", cfg.Kafka.Topic)
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		m = metrics.New(o.registerer)
	}

	a.Pipeline = pipeline.New(
		pipeline.Config{
			SourceBucket:     cfg.ObjectStore.SourceBucket,
			DataExtension:    cfg.Pipeline.DataExtension,
			ImageExtension:   cfg.Pipeline.ImageExtension,
			PassTimeout:      cfg.Pipeline.PassTimeout,
			CallTimeout:      cfg.Pipeline.CallTimeout,
			FetchConcurrency: cfg.Pipeline.FetchConcurrency,
		},
		objects,
		reconcile.New(a.Users, reconcile.WithLogger(logger)),
		snapshot.New(objects, cfg.ObjectStore.ProcessedBucket, cfg.ObjectStore.SnapshotKey,
			snapshot.WithStagingDir(cfg.Pipeline.StagingDir),
			snapshot.WithLogger(logger),
		),
		append([]pipeline.Option{
			pipeline.WithLogger(logger),
			pipeline.WithStatusStore(a.Status),
			pipeline.WithEvents(publisher),
			pipeline.WithMetrics(m),
			pipeline.WithTracer(tracer.NewOTel()),
		}, o.pipeline...)...,
	)
	a.Service = service.New(a.Users, a.Pipeline, a.Status,
		service.WithLogger(logger),
		service.WithTracer(tracer.NewOTel()),
	)
	return nil
}

// RegisterChecks adds a readiness check for every connected dependency.
func (a *App) RegisterChecks(h *health.Handler) {
	h.RegisterCheck("database", a.DB.Health)
	h.RegisterCheck("objectstore", func(ctx context.Context) error {
		return a.Objects.Ping(ctx, a.Config.ObjectStore.SourceBucket)
	})
	if a.Redis != nil {
		h.RegisterCheck("redis", a.Redis.Health)
	}
	if a.Producer != nil {
		h.RegisterCheck("kafka", a.Producer.Health)
	}
}

// Close releases every opened dependency, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
