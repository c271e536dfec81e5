package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"roster/internal/sentinel"
	"roster/internal/users/models"
)

// PostgresStore persists users in the users table.
type PostgresStore struct {
	db *sql.DB
}

var _ UserStore = (*PostgresStore)(nil)

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindByUserID retrieves a user by its source key.
func (s *PostgresStore) FindByUserID(ctx context.Context, userID string) (*models.StoredUser, error) {
	query := `
		SELECT id, user_id, first_name, last_name, birthts, img_path
		FROM users
		WHERE user_id = $1
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by user_id: %w", err)
	}
	return user, nil
}

// Insert adds a new user and returns its surrogate id.
func (s *PostgresStore) Insert(ctx context.Context, user models.User) (int64, error) {
	query := `
		INSERT INTO users (user_id, first_name, last_name, birthts, img_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		user.UserID,
		user.FirstName,
		user.LastName,
		user.BirthTS,
		user.ImagePath,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %s: %w", user.UserID, sentinel.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// UpdateByID overwrites the mutable columns of an existing row.
func (s *PostgresStore) UpdateByID(ctx context.Context, id int64, user models.User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, birthts = $4, img_path = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		id,
		user.FirstName,
		user.LastName,
		user.BirthTS,
		user.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListAll returns every user ordered by user_id.
func (s *PostgresStore) ListAll(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, first_name, last_name, birthts, img_path
		FROM users
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u.User)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Count returns the number of persisted users.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*models.StoredUser, error) {
	var u models.StoredUser
	if err := row.Scan(&u.ID, &u.UserID, &u.FirstName, &u.LastName, &u.BirthTS, &u.ImagePath); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
