// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package xattr

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix prefixes the hash key of every volume.
const DefaultRedisKeyPrefix = "placefs:xattr:"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix defaults to DefaultRedisKeyPrefix.
	KeyPrefix string
}

// RedisStore keeps each volume's attributes in one redis hash, so several
// servers can share the same configuration.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.KeyPrefix)
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) hashKey(volumeID string) string {
	return s.keyPrefix + volumeID
}

func (s *RedisStore) Get(ctx context.Context, volumeID, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.hashKey(volumeID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, translateRedis(err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, volumeID, key, value string) error {
	if value == "" {
		return translateRedis(s.client.HDel(ctx, s.hashKey(volumeID), key).Err())
	}
	return translateRedis(s.client.HSet(ctx, s.hashKey(volumeID), key, value).Err())
}

func (s *RedisStore) List(ctx context.Context, volumeID, prefix string) (map[string]string, error) {
	all, err := s.client.HGetAll(ctx, s.hashKey(volumeID)).Result()
	if err != nil {
		return nil, translateRedis(err)
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func translateRedis(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}
