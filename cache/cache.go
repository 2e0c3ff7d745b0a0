// Package cache is the two-tier answer cache: an in-process ristretto L1
// in front of an optional shared redis L2.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
)

const (
	DefaultMaxCost = 1 << 24
	DefaultTTL     = 24 * time.Hour
	keyPrefix      = "rt1m:answer:"
)

// Answers caches generic answers keyed by normalized question. It never
// holds user-specific content.
type Answers struct {
	l1  *ristretto.Cache[string, string]
	l2  *redis.Client
	ttl time.Duration

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64
}

// Stats is a point-in-time view of hit counters.
type Stats struct {
	L1Hits int64 `json:"l1_hits"`
	L2Hits int64 `json:"l2_hits"`
	Misses int64 `json:"misses"`
}

// New builds the cache. rdb may be nil to run L1-only.
func New(maxCost int64, ttl time.Duration, rdb *redis.Client) (*Answers, error) {
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l1, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxCost / 100 * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &Answers{l1: l1, l2: rdb, ttl: ttl}, nil
}

// NewRedis connects to redisURL; an empty URL yields a nil client.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Get looks in L1, then L2. An L2 hit is promoted into L1.
func (a *Answers) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := a.l1.Get(key); ok {
		a.l1Hits.Add(1)
		return v, true
	}
	if a.l2 != nil {
		v, err := a.l2.Get(ctx, keyPrefix+key).Result()
		switch {
		case err == nil:
			a.l2Hits.Add(1)
			a.l1.SetWithTTL(key, v, int64(len(v)), a.ttl)
			return v, true
		case !errors.Is(err, redis.Nil):
			logger.Get().Warn("answer cache L2 read failed", zap.String("key", key), zap.Error(err))
		}
	}
	a.misses.Add(1)
	return "", false
}

// Set stores in both tiers. L2 failures are logged, never returned.
func (a *Answers) Set(ctx context.Context, key, answer string) {
	if key == "" || answer == "" {
		return
	}
	a.l1.SetWithTTL(key, answer, int64(len(answer)), a.ttl)
	a.l1.Wait()
	if a.l2 != nil {
		if err := a.l2.Set(ctx, keyPrefix+key, answer, a.ttl).Err(); err != nil {
			logger.Get().Warn("answer cache L2 write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (a *Answers) Stats() Stats {
	return Stats{L1Hits: a.l1Hits.Load(), L2Hits: a.l2Hits.Load(), Misses: a.misses.Load()}
}

func (a *Answers) Close() {
	a.l1.Close()
}
