package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"roster/internal/sentinel"
	"roster/internal/users/models"
)

const (
	lastKey    = "roster:pass:last"
	historyKey = "roster:pass:history"
)

// RedisStore shares pass results between replicas and across restarts.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedis stores results with ttl; zero keeps them until overwritten.
func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, result models.PassResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal pass result: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lastKey, payload, s.ttl)
		pipe.LPush(ctx, historyKey, payload)
		pipe.LTrim(ctx, historyKey, 0, HistorySize-1)
		if s.ttl > 0 {
			pipe.Expire(ctx, historyKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save pass result: %w", err)
	}
	return nil
}

func (s *RedisStore) Last(ctx context.Context) (*models.PassResult, error) {
	payload, err := s.client.Get(ctx, lastKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load last pass result: %w", err)
	}
	var result models.PassResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode last pass result: %w", err)
	}
	return &result, nil
}

func (s *RedisStore) History(ctx context.Context, limit int) ([]models.PassResult, error) {
	if limit <= 0 || limit > HistorySize {
		limit = HistorySize
	}
	items, err := s.client.LRange(ctx, historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load pass history: %w", err)
	}
	out := make([]models.PassResult, 0, len(items))
	for _, item := range items {
		var r models.PassResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode pass history: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
