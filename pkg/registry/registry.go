// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry provides snapshots of the services known to the
// directory.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// Provider returns the current service registry snapshot. Callers must not
// modify the returned entries.
type Provider interface {
	KnownServices(ctx context.Context) (types.ServiceSet, error)
}

// Static is a fixed registry.
type Static struct {
	mu       sync.RWMutex
	services types.ServiceSet
}

func NewStatic(services types.ServiceSet) *Static {
	return &Static{services: services}
}

func (s *Static) KnownServices(context.Context) (types.ServiceSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services.Clone(), nil
}

// Update replaces the snapshot.
func (s *Static) Update(services types.ServiceSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = services
}

// Stale reports whether the service has not sent a heartbeat for longer than
// timeout.
func Stale(e *types.ServiceEntry, timeout time.Duration, now time.Time) bool {
	return now.Unix()-e.LastUpdatedS > int64(timeout/time.Second)
}
