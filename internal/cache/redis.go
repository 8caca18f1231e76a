package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/utils"
)

// ContextCache is a small read-through cache for conversation context
// windows. It is optional: with no REDIS_ADDR configured every method is a
// nil-safe no-op and callers fall back to the database.
type ContextCache struct {
	client *redis.Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewContextCache(log *logger.Logger) *ContextCache {
	serviceLog := log.With("service", "ContextCache")
	addr := utils.GetEnv("REDIS_ADDR", "", log)
	if addr == "" {
		serviceLog.Info("REDIS_ADDR not set, context cache disabled")
		return &ContextCache{log: serviceLog}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
	})
	ttlSec := utils.GetEnvAsInt("CONTEXT_CACHE_TTL_SECONDS", 300, log)
	return &ContextCache{
		client: client,
		log:    serviceLog,
		ttl:    time.Duration(ttlSec) * time.Second,
	}
}

func turnsKey(scope string, id string) string {
	return fmt.Sprintf("epesi:ctx:%s:%s", scope, id)
}

func (c *ContextCache) GetTurns(ctx context.Context, scope, id string, out any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, turnsKey(scope, id)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("Failed to decode cached context, ignoring", "error", err)
		return false
	}
	return true
}

func (c *ContextCache) SetTurns(ctx context.Context, scope, id string, turns any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, turnsKey(scope, id), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache context", "error", err)
	}
}

func (c *ContextCache) Invalidate(ctx context.Context, scope, id string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, turnsKey(scope, id)).Err(); err != nil {
		c.log.Warn("Failed to invalidate context cache", "error", err)
	}
}
