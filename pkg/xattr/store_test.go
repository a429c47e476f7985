// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package xattr

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
		{"leveldb", func(t *testing.T) Store {
			s, err := NewLevelDBStore(filepath.Join(t.TempDir(), "xattr"))
			require.NoError(t, err)
			return s
		}},
		{"redis", func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			return NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
		}},
	}
}

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := f.open(t)

			_, ok, err := s.Get(ctx, "vol1", "xtreemfs.osel_policy")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "vol1", "xtreemfs.osel_policy", "1000,3998"))
			require.NoError(t, s.Set(ctx, "vol1", "xtreemfs.policies.1000.free_capacity_bytes", "1GiB"))
			require.NoError(t, s.Set(ctx, "vol1", "xtreemfs.policies.1002.uuids", "osd*"))
			require.NoError(t, s.Set(ctx, "vol2", "xtreemfs.policies.1002.uuids", "other"))

			v, ok, err := s.Get(ctx, "vol1", "xtreemfs.osel_policy")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "1000,3998", v)

			attrs, err := s.List(ctx, "vol1", "xtreemfs.policies.")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{
				"xtreemfs.policies.1000.free_capacity_bytes": "1GiB",
				"xtreemfs.policies.1002.uuids":               "osd*",
			}, attrs)

			require.NoError(t, s.Set(ctx, "vol1", "xtreemfs.policies.1002.uuids", ""))
			_, ok, err = s.Get(ctx, "vol1", "xtreemfs.policies.1002.uuids")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "vol1", "never-set", ""), "deleting a missing key is not an error")

			attrs, err = s.List(ctx, "vol3", "")
			require.NoError(t, err)
			assert.Empty(t, attrs)

			require.NoError(t, s.Close())
			_, _, err = s.Get(ctx, "vol1", "xtreemfs.osel_policy")
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestLevelDBStoreReopen(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "xattr")
	ctx := context.Background()

	s, err := NewLevelDBStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "vol", "xtreemfs.rsel_policy", "3003"))
	require.NoError(t, s.Close())

	s, err = NewLevelDBStore(dir)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, "vol", "xtreemfs.rsel_policy")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3003", v)
}

func TestLevelDBVolumesDoNotOverlap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewLevelDBStore(filepath.Join(t.TempDir(), "xattr"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "vol", "a", "1"))
	require.NoError(t, s.Set(ctx, "vol1", "a", "2"))

	attrs, err := s.List(ctx, "vol", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, attrs)
}

func TestRedisStoreUsesHashPerVolume(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	s := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "vol1", "xtreemfs.osel_policy", "1000"))
	assert.Equal(t, "1000", mr.HGet("placefs:xattr:vol1", "xtreemfs.osel_policy"))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	s, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Config{Kind: KindLevelDB, Dir: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	assert.IsType(t, &LevelDBStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Kind: KindLevelDB})
	assert.Error(t, err)

	s, err = Open(Config{Kind: KindRedis, RedisAddr: "127.0.0.1:1"})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Kind: "etcd"})
	assert.Error(t, err)
}
