// Package status keeps the outcome of recent passes for GET /data/status.
package status

import (
	"context"

	"roster/internal/users/models"
)

// Store records pass results. Last returns sentinel.ErrNotFound before the first pass.
type Store interface {
	Save(ctx context.Context, result models.PassResult) error
	Last(ctx context.Context) (*models.PassResult, error)
	History(ctx context.Context, limit int) ([]models.PassResult, error)
}

// HistorySize bounds how many results are retained.
const HistorySize = 20
