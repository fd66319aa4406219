package history

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/pkg/metrics"
)

// RedisStore keeps each thread as a Redis list of JSON turns. Every append refreshes the
// key's expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient connects to the server at url (redis://...).
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisStore creates a store writing keys "{prefix}:{threadKey}".
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(threadKey string) string {
	return s.prefix + ":" + threadKey
}

// Get returns the thread's turns oldest first. A missing or expired key yields no turns.
func (s *RedisStore) Get(ctx context.Context, threadKey string) ([]model.Turn, error) {
	values, err := s.client.LRange(ctx, s.key(threadKey), 0, -1).Result()
	metrics.RecordHistoryOp(BackendRedis, "get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]model.Turn, 0, len(values))
	for _, v := range values {
		turn, err := decodeTurn([]byte(v))
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendUser records a user turn.
func (s *RedisStore) AppendUser(ctx context.Context, threadKey, text string) error {
	return s.append(ctx, threadKey, model.UserTurn(text))
}

// AppendAssistant records an assistant turn.
func (s *RedisStore) AppendAssistant(ctx context.Context, threadKey, text string) error {
	return s.append(ctx, threadKey, model.AssistantTurn(text))
}

func (s *RedisStore) append(ctx context.Context, threadKey string, turn model.Turn) error {
	data, err := encodeTurn(turn)
	if err != nil {
		return err
	}

	key := s.key(threadKey)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	metrics.RecordHistoryOp(BackendRedis, "append", err)
	if err != nil {
		return fmt.Errorf("failed to append %s turn: %w", turn.Role, err)
	}
	return nil
}

// Clear removes the thread's history.
func (s *RedisStore) Clear(ctx context.Context, threadKey string) error {
	err := s.client.Del(ctx, s.key(threadKey)).Err()
	metrics.RecordHistoryOp(BackendRedis, "clear", err)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Shutdown closes the client.
func (s *RedisStore) Shutdown() error {
	return s.client.Close()
}
