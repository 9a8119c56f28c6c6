package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/Chative-commerce/server/internal/core/error"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// RedisStore persists sessions as JSON with a sliding TTL. Mutual exclusion
// stays in-process (Locker); it does not coordinate several replicas.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) key(k string) string {
	return fmt.Sprintf("chative:session:%s:state", k)
}

func (r *RedisStore) Load(ctx context.Context, key string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fresh(), nil
	}
	if err != nil {
		logx.Error().Err(err).Str("session_id", key).Msg("failed to load session")
		return nil, errx.WrapRedis(err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		logx.Warn().Err(err).Str("session_id", key).Msg("discarding undecodable session")
		return fresh(), nil
	}
	return normalize(&s), nil
}

func (r *RedisStore) Save(ctx context.Context, key string, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(key), b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", key).Msg("failed to save session")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
