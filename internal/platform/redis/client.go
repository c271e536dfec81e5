package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"roster/internal/platform/config"
)

// Client is a go-redis client that the app can health check and scrape.
type Client struct {
	*redis.Client
}

// New dials Redis and pings it. An empty cfg.URL is an error; callers keep pass
// status in memory instead.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout+time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RegisterPoolMetrics exposes connection pool statistics on reg. Values are
// read from the pool on every scrape.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) {
	f := promauto.With(reg)
	stat := func(pick func(*redis.PoolStats) uint32) func() float64 {
		return func() float64 { return float64(pick(c.PoolStats())) }
	}

	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "roster_redis_pool_hits_total",
		Help: "Number of times a connection was found in the pool",
	}, stat(func(s *redis.PoolStats) uint32 { return s.Hits }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "roster_redis_pool_misses_total",
		Help: "Number of times a connection was not found in the pool",
	}, stat(func(s *redis.PoolStats) uint32 { return s.Misses }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "roster_redis_pool_timeouts_total",
		Help: "Number of times a connection was not obtained due to timeout",
	}, stat(func(s *redis.PoolStats) uint32 { return s.Timeouts }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "roster_redis_pool_stale_conns_total",
		Help: "Number of stale connections removed from the pool",
	}, stat(func(s *redis.PoolStats) uint32 { return s.StaleConns }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "roster_redis_pool_total_conns",
		Help: "Number of total connections in the pool",
	}, stat(func(s *redis.PoolStats) uint32 { return s.TotalConns }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "roster_redis_pool_idle_conns",
		Help: "Number of idle connections in the pool",
	}, stat(func(s *redis.PoolStats) uint32 { return s.IdleConns }))
}
