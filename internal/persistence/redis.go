package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

const denylistPrefix = "auth:denylist:"

// DenyToken records a revoked token id until its natural expiry.
func (r *Redis) DenyToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	if ttl <= 0 {
		return nil
	}
	return r.Client.Set(ctx, denylistPrefix+tokenID, "1", ttl).Err()
}

// TokenDenied reports whether the token id has been revoked. Lookup errors
// fail open so an unreachable Redis does not lock out every caller.
func (r *Redis) TokenDenied(ctx context.Context, tokenID string) bool {
	if r == nil || r.Client == nil {
		return false
	}
	n, err := r.Client.Exists(ctx, denylistPrefix+tokenID).Result()
	if err != nil {
		return false
	}
	return n > 0
}
