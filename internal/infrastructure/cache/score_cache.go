// Package cache holds the Redis-backed cache for latest trust scores.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/scoring"
)

const scoreKeyPrefix = "zts:score:"

// ScoreCache stores the latest scoring result per user with a TTL so stale
// scores age out between batch passes.
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewScoreCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ScoreCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ScoreCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *ScoreCache) Set(ctx context.Context, userID uuid.UUID, result *scoring.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling score result: %w", err)
	}

	key := scoreKeyPrefix + userID.String()
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("score cache write failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return fmt.Errorf("caching score: %w", err)
	}
	return nil
}

// Get returns the cached result, or (nil, nil) on a miss.
func (c *ScoreCache) Get(ctx context.Context, userID uuid.UUID) (*scoring.Result, error) {
	key := scoreKeyPrefix + userID.String()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached score: %w", err)
	}

	var result scoring.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling cached score: %w", err)
	}
	return &result, nil
}

// Invalidate drops the cached score for a user.
func (c *ScoreCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, scoreKeyPrefix+userID.String()).Err()
}
