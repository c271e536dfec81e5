package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
)

// Runner starts a pass unless one is already running.
type Runner interface {
	TryRunPass(ctx context.Context, trigger string) (models.PassResult, error)
}

// Scheduler triggers a pass at a fixed interval.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger
}

// Option configures Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithRunOnStart controls whether Start runs a pass before the first tick.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(runner Runner, opts ...Option) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	s := &Scheduler{
		runner:     runner,
		interval:   10 * time.Minute,
		runOnStart: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start runs passes until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrSkipped) {
		s.logger.ErrorContext(ctx, "scheduled pass failed", "error", err)
	}
}

// ErrSkipped reports that a tick found another pass running.
var ErrSkipped = errors.New("scheduled pass skipped")

// RunOnce triggers a single scheduled pass.
func (s *Scheduler) RunOnce(ctx context.Context) (models.PassResult, error) {
	res, err := s.runner.TryRunPass(ctx, models.TriggerSchedule)
	if dErrors.HasCode(err, dErrors.CodePassInProgress) {
		s.logger.InfoContext(ctx, "skipping scheduled pass, another pass is running")
		return res, ErrSkipped
	}
	return res, err
}
