package store

import (
	"context"

	"roster/internal/users/models"
)

// UserStore persists reconciled users keyed by user_id. Implementations return
// sentinel.ErrNotFound for missing users and sentinel.ErrAlreadyExists when an
// insert collides with an existing user_id.
type UserStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.StoredUser, error)
	Insert(ctx context.Context, user models.User) (int64, error)
	UpdateByID(ctx context.Context, id int64, user models.User) error
	ListAll(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int, error)
}
