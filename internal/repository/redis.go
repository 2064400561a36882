package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит слот строковым ключом Redis.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore создает хранилище поверх клиента Redis.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "storybook:"}
}

// DialRedis подключается к Redis и проверяет соединение.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisStore) Get(ctx context.Context, slot string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Put(ctx context.Context, slot string, data []byte) error {
	if err := r.client.Set(ctx, r.keyPrefix+slot, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error { return r.client.Close() }
