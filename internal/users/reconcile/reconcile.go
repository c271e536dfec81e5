// Package reconcile applies validated users to the persisted set as keyed upserts.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"roster/internal/sentinel"
	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
)

// Store is the read/upsert contract the engine needs from the users table.
type Store interface {
	FindByUserID(ctx context.Context, userID string) (*models.StoredUser, error)
	Insert(ctx context.Context, user models.User) (int64, error)
	UpdateByID(ctx context.Context, id int64, user models.User) error
}

// Engine decides insert versus update for each incoming user. It is the single
// writer to the persisted set during a pass.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Reconcile upserts user by UserID. Every failure is returned as a store_fault
// domain error so the caller can count the file as unprocessed and move on.
func (e *Engine) Reconcile(ctx context.Context, user models.User) (models.Outcome, error) {
	existing, err := e.store.FindByUserID(ctx, user.UserID)
	switch {
	case err == nil:
		return e.update(ctx, existing, user)
	case errors.Is(err, sentinel.ErrNotFound):
		return e.insert(ctx, user)
	default:
		return models.Outcome{}, storeFault(user.UserID, "lookup", err)
	}
}

func (e *Engine) insert(ctx context.Context, user models.User) (models.Outcome, error) {
	_, err := e.store.Insert(ctx, user)
	if err == nil {
		return models.Outcome{Action: models.ActionInserted, User: user}, nil
	}
	if !errors.Is(err, sentinel.ErrAlreadyExists) {
		return models.Outcome{}, storeFault(user.UserID, "insert", err)
	}

	// Another writer inserted the key between lookup and insert.
	e.logger.DebugContext(ctx, "insert lost race, updating instead", "user_id", user.UserID)
	existing, err := e.store.FindByUserID(ctx, user.UserID)
	if err != nil {
		return models.Outcome{}, storeFault(user.UserID, "lookup after conflict", err)
	}
	return e.update(ctx, existing, user)
}

func (e *Engine) update(ctx context.Context, existing *models.StoredUser, user models.User) (models.Outcome, error) {
	if existing.SameValues(user) {
		return models.Outcome{Action: models.ActionUnchanged, User: user}, nil
	}
	if err := e.store.UpdateByID(ctx, existing.ID, user); err != nil {
		return models.Outcome{}, storeFault(user.UserID, "update", err)
	}
	return models.Outcome{Action: models.ActionUpdated, User: user}, nil
}

func storeFault(userID, op string, err error) error {
	return &dErrors.Error{
		Code:    dErrors.CodeStoreFault,
		Message: fmt.Sprintf("could not %s user %s: %v", op, userID, err),
		Err:     err,
	}
}
