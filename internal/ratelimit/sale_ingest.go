package ratelimit

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tillway/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SaleIngestLimiter throttles sale creation per branch. Disabled when no
// redis address is configured, in which case every request passes.
type SaleIngestLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

type SaleIngestParams struct {
	fx.In

	Cfg *config.Config
	Log *zap.Logger
}

func NewSaleIngestLimiter(p SaleIngestParams) *SaleIngestLimiter {
	if !p.Cfg.RateLimit.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Cfg.RateLimit.RedisAddr,
		Password: p.Cfg.RateLimit.RedisPassword,
		DB:       p.Cfg.RateLimit.RedisDB,
	})
	p.Log.Info("sale ingestion rate limiter enabled",
		zap.String("redis_addr", p.Cfg.RateLimit.RedisAddr),
		zap.Float64("rate", p.Cfg.RateLimit.SaleRate),
		zap.Int("burst", p.Cfg.RateLimit.SaleBurst),
	)

	return &SaleIngestLimiter{
		bucket: NewTokenBucket(client),
		rate:   p.Cfg.RateLimit.SaleRate,
		burst:  p.Cfg.RateLimit.SaleBurst,
	}
}

func (l *SaleIngestLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowBranch checks the per-branch bucket for one sale creation.
func (l *SaleIngestLimiter) AllowBranch(ctx context.Context, branchID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf("tillway:sale_ingest:%s", branchID), l.rate, l.burst)
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewSaleIngestLimiter),
)
