package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
)

// HistoryCache holds the recent message window of a session. Implementations
// never fail the caller: a miss and an unavailable backend look the same.
type HistoryCache interface {
	Get(ctx context.Context, sessionID uint) ([]model.Message, bool)
	Set(ctx context.Context, sessionID uint, messages []model.Message)
	Delete(ctx context.Context, sessionID uint)
	ExtendTTL(ctx context.Context, sessionID uint)
}

func HistoryKey(sessionID uint) string {
	return fmt.Sprintf("chatbot:session:%d:messages", sessionID)
}

type RedisHistoryCache struct {
	client *redisv9.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisHistoryCache(client *redisv9.Client, ttl time.Duration, log *logger.Logger) *RedisHistoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisHistoryCache{
		client: client,
		ttl:    ttl,
		log:    log.With("component", "cache.RedisHistoryCache"),
	}
}

func (c *RedisHistoryCache) Get(ctx context.Context, sessionID uint) ([]model.Message, bool) {
	raw, err := c.client.Get(ctx, HistoryKey(sessionID)).Bytes()
	if err == redisv9.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("history cache read failed", "session_id", sessionID, "error", err)
		return nil, false
	}

	var messages []model.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		c.log.Warn("history cache entry corrupt, ignoring", "session_id", sessionID, "error", err)
		return nil, false
	}
	return messages, true
}

func (c *RedisHistoryCache) Set(ctx context.Context, sessionID uint, messages []model.Message) {
	payload, err := json.Marshal(messages)
	if err != nil {
		c.log.Warn("marshal history cache failed", "session_id", sessionID, "error", err)
		return
	}
	if err := c.client.Set(ctx, HistoryKey(sessionID), payload, c.ttl).Err(); err != nil {
		c.log.Warn("history cache write failed", "session_id", sessionID, "error", err)
	}
}

func (c *RedisHistoryCache) Delete(ctx context.Context, sessionID uint) {
	if err := c.client.Del(ctx, HistoryKey(sessionID)).Err(); err != nil {
		c.log.Warn("history cache delete failed", "session_id", sessionID, "error", err)
	}
}

func (c *RedisHistoryCache) ExtendTTL(ctx context.Context, sessionID uint) {
	if err := c.client.Expire(ctx, HistoryKey(sessionID), c.ttl).Err(); err != nil {
		c.log.Warn("history cache expire failed", "session_id", sessionID, "error", err)
	}
}

// NoopHistoryCache always misses. Selected when Redis is not reachable at boot.
type NoopHistoryCache struct{}

func (NoopHistoryCache) Get(context.Context, uint) ([]model.Message, bool) { return nil, false }
func (NoopHistoryCache) Set(context.Context, uint, []model.Message)        {}
func (NoopHistoryCache) Delete(context.Context, uint)                      {}
func (NoopHistoryCache) ExtendTTL(context.Context, uint)                   {}
