package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const hotKeyPrefix = "tile:"

// RedisStore is a volatile hot tier in front of the durable store. Entries
// carry a TTL; the durable store remains the source of truth.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, hotKeyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Object, error) {
	vals, err := s.client.HGetAll(ctx, hotKeyPrefix+key).Result()
	if err != nil {
		return Object{}, err
	}
	if len(vals) == 0 {
		return Object{}, ErrNotFound
	}
	return Object{
		Body:        []byte(vals["body"]),
		ContentType: vals["ct"],
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, obj Object) error {
	k := hotKeyPrefix + key
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k, "body", obj.Body, "ct", obj.ContentType)
	pipe.Expire(ctx, k, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}
