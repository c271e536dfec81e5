package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/sentinel"
	"roster/internal/users/models"
	"roster/pkg/testutil"
)

func TestInMemoryInsertAndFind(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	id, err := s.Insert(ctx, models.User{UserID: "42", FirstName: "moh", LastName: "salah", BirthTS: "1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	found, err := s.FindByUserID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "moh", found.FirstName)
}

func TestInMemoryFindMissing(t *testing.T) {
	_, err := NewInMemory().FindByUserID(context.Background(), "nope")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryInsertDuplicate(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	_, err := s.Insert(ctx, models.User{UserID: "1"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, models.User{UserID: "1"})
	assert.ErrorIs(t, err, sentinel.ErrAlreadyExists)
}

func TestInMemoryUpdateByID(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	id, err := s.Insert(ctx, models.User{UserID: "1", FirstName: "a"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateByID(ctx, id, models.User{UserID: "1", FirstName: "b", ImagePath: "1.png"}))
	found, err := s.FindByUserID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "b", found.FirstName)
	assert.Equal(t, "1.png", found.ImagePath)

	assert.ErrorIs(t, s.UpdateByID(ctx, 99, models.User{UserID: "1"}), sentinel.ErrNotFound)
	assert.ErrorIs(t, s.UpdateByID(ctx, id, models.User{UserID: "2"}), sentinel.ErrInvalidInput)
}

func TestInMemoryFindReturnsCopy(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	_, err := s.Insert(ctx, models.User{UserID: "1", FirstName: "a"})
	require.NoError(t, err)

	found, err := s.FindByUserID(ctx, "1")
	require.NoError(t, err)
	found.FirstName = "mutated"

	again, err := s.FindByUserID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.FirstName)
}

func TestInMemoryListAllOrdered(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	for _, id := range []string{"b", "c", "a"} {
		_, err := s.Insert(ctx, models.User{UserID: id})
		require.NoError(t, err)
	}

	users, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a", users[0].UserID)
	assert.Equal(t, "c", users[2].UserID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestInMemoryConcurrentInsertSameUser(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	result := testutil.RunConcurrent(16, func(int) error {
		_, err := s.Insert(ctx, models.User{UserID: "7", FirstName: "a", LastName: "b", BirthTS: "1"})
		return err
	})

	assert.Equal(t, int32(1), result.Successes)
	assert.Equal(t, int32(15), result.Conflicts)
	assert.Zero(t, result.Errors)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
