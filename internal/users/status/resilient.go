package status

import (
	"context"
	"errors"
	"log/slog"

	"roster/internal/sentinel"
	"roster/internal/users/models"
	"roster/pkg/platform/circuit"
)

// Resilient fronts a shared store with a local copy. Every result is kept
// locally; reads fall back to it while the shared store is failing.
type Resilient struct {
	primary Store
	local   *InMemory
	breaker *circuit.Breaker
	logger  *slog.Logger
}

var _ Store = (*Resilient)(nil)

func NewResilient(primary Store, logger *slog.Logger, opts ...circuit.Option) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resilient{
		primary: primary,
		local:   NewInMemory(),
		breaker: circuit.New("pass_status", opts...),
		logger:  logger,
	}
}

// Save never fails once the local copy is written; shared store errors are logged.
func (r *Resilient) Save(ctx context.Context, result models.PassResult) error {
	if err := r.local.Save(ctx, result); err != nil {
		return err
	}
	if !r.breaker.Allow() {
		r.logger.WarnContext(ctx, "circuit open, pass status kept locally", "circuit", r.breaker.Name())
		return nil
	}
	err := r.primary.Save(ctx, result)
	r.record(ctx, err)
	if err != nil {
		r.logger.WarnContext(ctx, "pass status kept locally", "error", err)
	}
	return nil
}

func (r *Resilient) Last(ctx context.Context) (*models.PassResult, error) {
	if !r.breaker.Allow() {
		return r.local.Last(ctx)
	}
	res, err := r.primary.Last(ctx)
	switch {
	case err == nil:
		r.record(ctx, nil)
		return res, nil
	case errors.Is(err, sentinel.ErrNotFound):
		r.record(ctx, nil)
	default:
		r.record(ctx, err)
		r.logger.WarnContext(ctx, "reading pass status from local copy", "error", err)
	}
	return r.local.Last(ctx)
}

func (r *Resilient) History(ctx context.Context, limit int) ([]models.PassResult, error) {
	if !r.breaker.Allow() {
		return r.local.History(ctx, limit)
	}
	res, err := r.primary.History(ctx, limit)
	r.record(ctx, err)
	if err != nil {
		r.logger.WarnContext(ctx, "reading pass history from local copy", "error", err)
		return r.local.History(ctx, limit)
	}
	if len(res) == 0 {
		return r.local.History(ctx, limit)
	}
	return res, nil
}

func (r *Resilient) record(ctx context.Context, err error) {
	if err == nil {
		if t := r.breaker.Success(); t.Closed {
			r.logger.InfoContext(ctx, "circuit breaker closed", "circuit", r.breaker.Name())
		}
		return
	}
	if t := r.breaker.Failure(); t.Opened {
		r.logger.ErrorContext(ctx, "circuit breaker opened", "circuit", r.breaker.Name(), "error", err)
	}
}
