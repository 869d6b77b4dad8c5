package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "conversation:"

// ConversationRepository stores each conversation as a redis list of JSON turns.
type ConversationRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ contract.ConversationRepository = (*ConversationRepository)(nil)

func NewConversationRepository(rdb *redis.Client, ttl time.Duration) *ConversationRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ConversationRepository{rdb: rdb, ttl: ttl}
}

func key(conversationId string) string {
	return keyPrefix + conversationId
}

func (r *ConversationRepository) History(ctx context.Context, conversationId string) ([]entity.ConversationTurn, error) {
	raw, err := r.rdb.LRange(ctx, key(conversationId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read conversation %s: %w", conversationId, err)
	}

	turns := make([]entity.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var t entity.ConversationTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode conversation %s: %w", conversationId, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Append pushes, trims and refreshes the TTL in one MULTI/EXEC.
func (r *ConversationRepository) Append(ctx context.Context, conversationId string, turn entity.ConversationTurn, maxTurns int) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	k := key(conversationId)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, data)
		if maxTurns > 0 {
			pipe.LTrim(ctx, k, int64(-maxTurns), -1)
		}
		pipe.Expire(ctx, k, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append conversation %s: %w", conversationId, err)
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, conversationId string) error {
	return r.rdb.Del(ctx, key(conversationId)).Err()
}
