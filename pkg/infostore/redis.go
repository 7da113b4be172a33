package infostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gotus/gotus/pkg/handler"
)

// RedisInfoStore keeps the upload records in a Redis database, one string
// value per upload keyed by the upload id. An optional expiration lets
// abandoned records age out on their own.
type RedisInfoStore struct {
	client     redis.UniversalClient
	expiration time.Duration
}

// NewRedisInfoStore creates a Redis based information storage backend
// from a connection URI, e.g. redis://localhost:6379/0. An expiration of
// zero keeps records forever.
func NewRedisInfoStore(uri string, expiration time.Duration) (*RedisInfoStore, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid redis uri: %w", err)
	}

	return &RedisInfoStore{
		client:     redis.NewClient(opts),
		expiration: expiration,
	}, nil
}

// NewRedisInfoStoreWithClient wraps an existing client, which is useful
// for tests and for sharing a connection pool.
func NewRedisInfoStoreWithClient(client redis.UniversalClient, expiration time.Duration) *RedisInfoStore {
	return &RedisInfoStore{
		client:     client,
		expiration: expiration,
	}
}

func (store *RedisInfoStore) Prepare(ctx context.Context) error {
	return store.client.Ping(ctx).Err()
}

func (store *RedisInfoStore) Set(ctx context.Context, info handler.FileInfo, create bool) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	if create {
		set, err := store.client.SetNX(ctx, info.ID, data, store.expiration).Result()
		if err != nil {
			return err
		}
		if !set {
			return fmt.Errorf("upload %s already exists", info.ID)
		}
		return nil
	}

	return store.client.Set(ctx, info.ID, data, store.expiration).Err()
}

func (store *RedisInfoStore) Get(ctx context.Context, id string) (handler.FileInfo, error) {
	data, err := store.client.Get(ctx, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return handler.FileInfo{}, handler.ErrNotFound
		}
		return handler.FileInfo{}, err
	}

	var info handler.FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return handler.FileInfo{}, err
	}

	return info, nil
}

func (store *RedisInfoStore) Remove(ctx context.Context, id string) error {
	deleted, err := store.client.Del(ctx, id).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return handler.ErrNotFound
	}
	return nil
}

// Close releases the underlying connection pool.
func (store *RedisInfoStore) Close() error {
	return store.client.Close()
}
