package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
)

type stubRunner struct {
	calls    atomic.Int32
	err      error
	triggers chan string
}

func (r *stubRunner) TryRunPass(_ context.Context, trigger string) (models.PassResult, error) {
	r.calls.Add(1)
	if r.triggers != nil {
		select {
		case r.triggers <- trigger:
		default:
		}
	}
	return models.PassResult{Total: 1, Success: 1}, r.err
}

func TestNewRequiresRunner(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	t.Run("runs a scheduled pass", func(t *testing.T) {
		r := &stubRunner{triggers: make(chan string, 1)}
		s, err := New(r)
		require.NoError(t, err)

		res, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Success)
		assert.Equal(t, models.TriggerSchedule, <-r.triggers)
	})

	t.Run("busy gate is a skip", func(t *testing.T) {
		r := &stubRunner{err: dErrors.New(dErrors.CodePassInProgress, "a pass is already running")}
		s, err := New(r)
		require.NoError(t, err)

		_, err = s.RunOnce(context.Background())
		assert.ErrorIs(t, err, ErrSkipped)
	})

	t.Run("pass errors are returned", func(t *testing.T) {
		boom := errors.New("publish failed")
		s, err := New(&stubRunner{err: boom})
		require.NoError(t, err)

		_, err = s.RunOnce(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}

func TestStartRunsImmediatelyAndOnTicks(t *testing.T) {
	r := &stubRunner{}
	s, err := New(r, WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStartWithoutInitialRun(t *testing.T) {
	r := &stubRunner{}
	s, err := New(r, WithInterval(time.Hour), WithRunOnStart(false))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Start(ctx), context.DeadlineExceeded)
	assert.Equal(t, int32(0), r.calls.Load())
}
