package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/Chative-commerce/server/internal/agent/model"
	errx "github.com/Chative-commerce/server/internal/core/error"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// RedisConversationRepository stores each session transcript as a Redis list.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
	// maxLen caps the list; older entries are trimmed on write. Zero keeps everything.
	maxLen int64
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration, maxLen int) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl, maxLen: int64(maxLen)}
}

func (r *RedisConversationRepository) key(sessionID string) string {
	return fmt.Sprintf("chative:session:%s:messages", sessionID)
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.key(sessionID)

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, b)
		if r.maxLen > 0 {
			p.LTrim(ctx, key, -r.maxLen, -1)
		}
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append message")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	key := r.key(sessionID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			// a single bad row should not poison the whole session
			logx.Warn().Err(err).Str("session_id", sessionID).Int("index", i).Msg("skipping undecodable message")
			continue
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	key := r.key(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation history")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, sessionID string) (int, error) {
	n, err := r.rdb.LLen(ctx, r.key(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
