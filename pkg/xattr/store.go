// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package xattr persists per-volume attributes such as selection chains and
// policy configuration.
package xattr

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("xattr store closed")

// Store holds key/value records per volume.
type Store interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, volumeID, key string) (string, bool, error)
	// Set stores value under key. An empty value deletes the key.
	Set(ctx context.Context, volumeID, key, value string) error
	// List returns every record of the volume whose key starts with prefix.
	List(ctx context.Context, volumeID, prefix string) (map[string]string, error)
	Close() error
}

// Kind selects a Store backend.
type Kind string

const (
	KindMemory  Kind = "memory"
	KindLevelDB Kind = "leveldb"
	KindRedis   Kind = "redis"
)

// Config configures Open.
type Config struct {
	Kind Kind `mapstructure:"xattr_kind"`

	// Dir is the database directory for KindLevelDB.
	Dir string `mapstructure:"xattr_dir"`

	// Redis connection settings for KindRedis.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// Open creates the store selected by cfg.Kind.
func Open(cfg Config) (Store, error) {
	switch cfg.Kind {
	case KindMemory, "":
		return NewMemoryStore(), nil
	case KindLevelDB:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("xattr: leveldb store requires a directory")
		}
		return NewLevelDBStore(cfg.Dir)
	case KindRedis:
		return NewRedisStore(RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		}), nil
	}
	return nil, fmt.Errorf("xattr: unknown store kind %q", cfg.Kind)
}
