package ratelimit

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/hireledger/internal/config"
	"go.uber.org/zap"
)

const keyUnlockRecruiter = "hireledger:ratelimit:unlock:recruiter:%d"

var ErrRateLimited = errors.New("rate_limited")

// UnlockLimiter throttles unlock requests per recruiter. A nil limiter
// allows everything.
type UnlockLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewUnlockLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*UnlockLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		log.Warn("unlock rate limit enabled without redis, skipping")
		return nil, nil
	}
	if limitCfg.UnlockRate <= 0 || limitCfg.UnlockBurst <= 0 {
		return nil, errors.New("unlock rate limit must be positive")
	}

	return &UnlockLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.UnlockRate,
		burst:  limitCfg.UnlockBurst,
	}, nil
}

func (l *UnlockLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *UnlockLimiter) AllowRecruiter(ctx context.Context, recruiterID int64) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUnlockRecruiter, recruiterID), l.rate, l.burst)
}
