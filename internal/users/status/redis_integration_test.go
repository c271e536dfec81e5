//go:build integration

package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"roster/internal/platform/config"
	"roster/internal/platform/redis"
	"roster/internal/sentinel"
	"roster/internal/users/models"
	"roster/internal/users/status"
	"roster/pkg/testutil/containers"
)

type RedisStatusSuite struct {
	suite.Suite
	client *redis.Client
	store  *status.RedisStore
}

func TestRedisStatusSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStatusSuite))
}

func (s *RedisStatusSuite) SetupSuite() {
	rc := containers.GetManager().GetRedis(s.T())
	client, err := redis.New(context.Background(), config.RedisConfig{
		URL:          rc.URL,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	s.Require().NoError(err)
	s.client = client
	s.store = status.NewRedis(client, time.Hour)
}

func (s *RedisStatusSuite) TearDownSuite() {
	_ = s.client.Close()
}

func (s *RedisStatusSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(context.Background()).Err())
}

func (s *RedisStatusSuite) TestLastBeforeFirstPass() {
	_, err := s.store.Last(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStatusSuite) TestSaveAndLoad() {
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := models.PassResult{PassID: uuid.New(), StartedAt: started, FinishedAt: started.Add(time.Second), Total: 3, Success: 2, Published: true,
		Failures: []models.FileFailure{{Object: "bad.csv", Code: "schema_mismatch", Message: "nope"}}}
	second := models.PassResult{PassID: uuid.New(), Total: 4, Success: 4, Published: true}

	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	last, err := s.store.Last(ctx)
	s.Require().NoError(err)
	s.Equal(second.PassID, last.PassID)

	history, err := s.store.History(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(first.PassID, history[1].PassID)
	s.Equal("bad.csv", history[1].Failures[0].Object)
	s.True(history[1].StartedAt.Equal(started))

	ttl, err := s.client.TTL(ctx, "roster:pass:last").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisStatusSuite) TestHealth() {
	s.NoError(s.client.Health(context.Background()))
	reg := prometheus.NewRegistry()
	s.client.RegisterPoolMetrics(reg)
	families, err := reg.Gather()
	s.Require().NoError(err)
	s.Len(families, 6)
}
