// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package uuidresolver

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

const (
	DefaultMappingTTL      = time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// MappingSource looks up address mappings, usually the directory client.
type MappingSource interface {
	AddressMappingsGet(ctx context.Context, uuid string) ([]types.AddressMapping, error)
}

// DIRResolverConfig configures a DIRResolver.
type DIRResolverConfig struct {
	// DefaultTTL applies to mappings that carry no TTL of their own.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired entries are purged. Zero disables
	// the background purge; expired entries are still never returned.
	CleanupInterval time.Duration
}

// DIRResolver resolves UUIDs through the directory service and caches the
// answers for the mapping's TTL. Failed lookups are not cached.
type DIRResolver struct {
	dir   MappingSource
	cache *cache.Cache
}

func NewDIRResolver(dir MappingSource, cfg DIRResolverConfig) *DIRResolver {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultMappingTTL
	}
	return &DIRResolver{
		dir:   dir,
		cache: cache.New(cfg.DefaultTTL, cfg.CleanupInterval),
	}
}

func (r *DIRResolver) Resolve(ctx context.Context, uuid string) (Address, error) {
	if v, ok := r.cache.Get(uuid); ok {
		return v.(Address), nil
	}

	mappings, err := r.dir.AddressMappingsGet(ctx, uuid)
	if err != nil {
		return Address{}, fmt.Errorf("resolve %s: %w", uuid, err)
	}
	m, ok := pickMapping(mappings)
	if !ok {
		return Address{}, fmt.Errorf("%w: %s", ErrUnknownUUID, uuid)
	}

	addr := Address{Protocol: m.Protocol, Host: m.Address, Port: m.Port}
	ttl := cache.DefaultExpiration
	if m.TTLs > 0 {
		ttl = time.Duration(m.TTLs) * time.Second
	}
	r.cache.Set(uuid, addr, ttl)
	logger.Debug().Str("uuid", uuid).Str("address", addr.String()).Dur("ttl", ttl).Msg("resolved uuid")
	return addr, nil
}

// Invalidate drops the cached mapping of uuid.
func (r *DIRResolver) Invalidate(uuid string) {
	r.cache.Delete(uuid)
}

// pickMapping prefers the mapping valid for any network.
func pickMapping(mappings []types.AddressMapping) (types.AddressMapping, bool) {
	if len(mappings) == 0 {
		return types.AddressMapping{}, false
	}
	for _, m := range mappings {
		if m.MatchNetwork == types.MatchNetworkAny {
			return m, true
		}
	}
	return mappings[0], true
}
