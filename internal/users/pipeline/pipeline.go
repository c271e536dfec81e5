// Package pipeline runs reconciliation passes: list source files, validate
// each one, upsert it into the users table, and publish the snapshot.
//
// At most one pass runs at a time. Per-file failures are recorded and the
// pass continues; only a publish failure fails the pass.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"roster/internal/platform/objectstore"
	"roster/internal/platform/tracer"
	"roster/internal/users/events"
	"roster/internal/users/metrics"
	"roster/internal/users/models"
	"roster/internal/users/snapshot"
	"roster/internal/users/status"
	"roster/internal/users/validation"
	dErrors "roster/pkg/domain-errors"
)

// Source is the read side of the source bucket.
type Source interface {
	List(ctx context.Context, bucket, ext string) ([]string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// Reconciler upserts one user.
type Reconciler interface {
	Reconcile(ctx context.Context, user models.User) (models.Outcome, error)
}

// Publisher stages and commits the snapshot of a pass.
type Publisher interface {
	Begin(passID string) (*snapshot.Staging, error)
	Commit(ctx context.Context, s *snapshot.Staging) error
}

// Config bounds a pass.
type Config struct {
	SourceBucket     string
	DataExtension    string
	ImageExtension   string
	PassTimeout      time.Duration
	CallTimeout      time.Duration
	FetchConcurrency int
}

// FileReport describes what happened to one source file.
type FileReport struct {
	Object       string
	Outcome      *models.Outcome
	Failure      *models.FileFailure
	MissingImage bool
}

// Pipeline is safe for concurrent use; passes are serialized internally.
type Pipeline struct {
	cfg        Config
	source     Source
	reconciler Reconciler
	publisher  Publisher
	status     status.Store
	events     events.Publisher
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
	observer   func(FileReport)
	gate       *semaphore.Weighted
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithStatusStore(s status.Store) Option {
	return func(p *Pipeline) {
		p.status = s
	}
}

func WithEvents(e events.Publisher) Option {
	return func(p *Pipeline) {
		p.events = e
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithFileObserver receives a report for every listed file, in listing order.
func WithFileObserver(fn func(FileReport)) Option {
	return func(p *Pipeline) {
		p.observer = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func New(cfg Config, source Source, reconciler Reconciler, publisher Publisher, opts ...Option) *Pipeline {
	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = 1
	}
	p := &Pipeline{
		cfg:        cfg,
		source:     source,
		reconciler: reconciler,
		publisher:  publisher,
		gate:       semaphore.NewWeighted(1),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.status == nil {
		p.status = status.NewInMemory()
	}
	if p.events == nil {
		p.events = events.Noop{}
	}
	if p.tracer == nil {
		p.tracer = tracer.NewNoop()
	}
	return p
}

// Status returns the store holding pass results.
func (p *Pipeline) Status() status.Store { return p.status }

// RunPass waits for the running pass, if any, and then runs one.
// It fails with pass_in_progress when ctx ends while waiting. Cancelling ctx
// after the pass has started does not stop it.
func (p *Pipeline) RunPass(ctx context.Context, trigger string) (models.PassResult, error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return models.PassResult{}, &dErrors.Error{
			Code:    dErrors.CodePassInProgress,
			Message: "gave up waiting for the running pass",
			Err:     err,
		}
	}
	defer p.gate.Release(1)
	return p.run(ctx, trigger)
}

// TryRunPass runs a pass only when none is running.
func (p *Pipeline) TryRunPass(ctx context.Context, trigger string) (models.PassResult, error) {
	if !p.gate.TryAcquire(1) {
		p.metrics.IncrementBusyRejected()
		return models.PassResult{}, dErrors.New(dErrors.CodePassInProgress, "a pass is already running")
	}
	defer p.gate.Release(1)
	return p.run(ctx, trigger)
}

func (p *Pipeline) run(ctx context.Context, trigger string) (models.PassResult, error) {
	result := models.PassResult{
		PassID:    uuid.New(),
		Trigger:   trigger,
		StartedAt: p.now().UTC(),
		Failures:  []models.FileFailure{},
	}
	logger := p.logger.With("pass_id", result.PassID.String(), "trigger", trigger)

	// Once started, a pass outlives its caller and ends only at its own deadline.
	passCtx := context.WithoutCancel(ctx)
	if p.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(passCtx, p.cfg.PassTimeout)
		defer cancel()
	}
	passCtx, span := p.tracer.Start(passCtx, tracer.SpanPass,
		tracer.String(tracer.AttrPassID, result.PassID.String()),
		tracer.String(tracer.AttrTrigger, trigger),
	)

	err := p.execute(passCtx, &result, logger)

	result.FinishedAt = p.now().UTC()
	if err != nil {
		result.Error = err.Error()
	}
	span.SetAttributes(
		tracer.Int(tracer.AttrTotal, result.Total),
		tracer.Int(tracer.AttrSuccess, result.Success),
	)
	span.End(err)
	p.metrics.ObservePass(result, result.Duration())
	p.record(ctx, result, logger)

	if err != nil {
		logger.ErrorContext(ctx, "pass failed",
			"total", result.Total,
			"success", result.Success,
			"error", err,
		)
		return result, err
	}
	logger.InfoContext(ctx, "pass completed",
		"total", result.Total,
		"success", result.Success,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"missing_images", result.MissingImages,
		"duration_ms", result.Duration().Milliseconds(),
	)
	return result, nil
}

// record stores the result and announces it. The pass deadline no longer applies.
func (p *Pipeline) record(ctx context.Context, result models.PassResult, logger *slog.Logger) {
	ctx, cancel := p.callContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := p.status.Save(ctx, result); err != nil {
		logger.WarnContext(ctx, "failed to save pass status", "error", err)
	}
	p.events.PassCompleted(ctx, result)
}

func (p *Pipeline) execute(ctx context.Context, result *models.PassResult, logger *slog.Logger) error {
	staging, err := p.publisher.Begin(result.PassID.String())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePublishFault, "could not stage snapshot: "+err.Error())
	}
	defer staging.Discard()

	keys, err := p.list(ctx)
	if err != nil {
		return &dErrors.Error{
			Code:    dErrors.CodeSourceFault,
			Message: "could not list source files: " + err.Error(),
			Err:     err,
		}
	}
	result.Total = len(keys)

	fetched := p.fetchAll(ctx, keys)
	for i, key := range keys {
		report := FileReport{Object: key}
		if f := fetched[i]; f.err != nil {
			report.Failure = p.reject(ctx, result, key, f.err, logger)
		} else {
			outcome, missing, err := p.process(ctx, result.PassID, key, f.record, logger)
			report.MissingImage = missing
			if missing {
				result.MissingImages++
			}
			if err != nil {
				report.Failure = p.reject(ctx, result, key, err, logger)
			} else {
				if err := staging.Append(outcome.User); err != nil {
					return dErrors.Wrap(err, dErrors.CodePublishFault, "could not stage snapshot row: "+err.Error())
				}
				p.accept(result, outcome)
				report.Outcome = &outcome
			}
		}
		if p.observer != nil {
			p.observer(report)
		}
	}

	pubCtx, span := p.tracer.Start(ctx, tracer.SpanPublish, tracer.Int(tracer.AttrResults, staging.Rows()))
	err = p.publisher.Commit(pubCtx, staging)
	span.End(err)
	if err != nil {
		return err
	}
	result.Published = true
	return nil
}

func (p *Pipeline) list(ctx context.Context) ([]string, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()
	return p.source.List(ctx, p.cfg.SourceBucket, p.cfg.DataExtension)
}

type fetched struct {
	record models.Record
	err    error
}

// fetchAll downloads and validates files concurrently. Results keep listing order.
func (p *Pipeline) fetchAll(ctx context.Context, keys []string) []fetched {
	out := make([]fetched, len(keys))
	var g errgroup.Group
	g.SetLimit(p.cfg.FetchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			out[i] = p.fetch(ctx, key)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) fetch(ctx context.Context, key string) fetched {
	ctx, span := p.tracer.Start(ctx, tracer.SpanFile, tracer.String(tracer.AttrObject, key))
	callCtx, cancel := p.callContext(ctx)
	data, err := p.source.Get(callCtx, p.cfg.SourceBucket, key)
	cancel()
	if err != nil {
		err = &dErrors.Error{
			Code:    dErrors.CodeSourceFault,
			Message: "could not read " + key + ": " + err.Error(),
			Err:     err,
		}
		span.End(err)
		return fetched{err: err}
	}
	rec, err := validation.Validate(data)
	span.End(err)
	return fetched{record: rec, err: err}
}

// process resolves the portrait and reconciles one validated record.
func (p *Pipeline) process(ctx context.Context, passID uuid.UUID, key string, rec models.Record, logger *slog.Logger) (models.Outcome, bool, error) {
	userID := objectstore.Stem(key)
	imagePath, missing := p.resolveImage(ctx, userID, logger)

	ctx, span := p.tracer.Start(ctx, tracer.SpanReconcile,
		tracer.String(tracer.AttrObject, key),
		tracer.String(tracer.AttrUserID, userID),
	)
	if missing {
		span.AddEvent(tracer.EventMissingImage, tracer.String(tracer.AttrUserID, userID))
	}
	callCtx, cancel := p.callContext(ctx)
	outcome, err := p.reconciler.Reconcile(callCtx, models.NewUser(userID, rec, imagePath))
	cancel()
	if err == nil {
		span.SetAttributes(tracer.String(tracer.AttrAction, string(outcome.Action)))
		p.events.UserReconciled(ctx, passID, outcome)
	}
	span.End(err)
	return outcome, missing, err
}

// resolveImage returns the portrait object name, or "" and true when it is absent.
// A failed lookup counts as absent.
func (p *Pipeline) resolveImage(ctx context.Context, userID string, logger *slog.Logger) (string, bool) {
	name := userID + p.cfg.ImageExtension
	ctx, cancel := p.callContext(ctx)
	defer cancel()
	ok, err := p.source.Exists(ctx, p.cfg.SourceBucket, name)
	if err == nil && ok {
		return name, false
	}
	attrs := []any{"user_id", userID, "object", name}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.WarnContext(ctx, "image not found, continuing without it", attrs...)
	p.metrics.IncrementMissingImages()
	return "", true
}

func (p *Pipeline) accept(result *models.PassResult, outcome models.Outcome) {
	result.Success++
	switch outcome.Action {
	case models.ActionInserted:
		result.Inserted++
	case models.ActionUpdated:
		result.Updated++
	default:
		result.Unchanged++
	}
	p.metrics.ObserveUser(outcome.Action)
	p.metrics.ObserveFile(metrics.FileProcessed, "")
}

func (p *Pipeline) reject(ctx context.Context, result *models.PassResult, key string, err error, logger *slog.Logger) *models.FileFailure {
	code := dErrors.CodeOf(err)
	failure := models.FileFailure{Object: key, Code: string(code), Message: err.Error()}
	result.Failures = append(result.Failures, failure)

	outcome := metrics.FileFailed
	if isValidationCode(code) {
		outcome = metrics.FileRejected
	}
	p.metrics.ObserveFile(outcome, string(code))
	logger.WarnContext(ctx, "source file not processed",
		"object", key,
		"code", code,
		"error", err,
	)
	return &failure
}

func isValidationCode(code dErrors.Code) bool {
	switch code {
	case dErrors.CodeMalformedShape, dErrors.CodeSchemaMismatch,
		dErrors.CodeColumnCountMismatch, dErrors.CodeFieldConditionViolation:
		return true
	}
	return false
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.CallTimeout)
}

// IsBusy reports whether err means another pass held the gate.
func IsBusy(err error) bool {
	return dErrors.HasCode(err, dErrors.CodePassInProgress)
}
