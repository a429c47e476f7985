// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package xattr

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps attributes in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	volumes map[string]map[string]string
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{volumes: make(map[string]map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, volumeID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.volumes[volumeID][key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, volumeID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	attrs := s.volumes[volumeID]
	if value == "" {
		delete(attrs, key)
		return nil
	}
	if attrs == nil {
		attrs = make(map[string]string)
		s.volumes[volumeID] = attrs
	}
	attrs[key] = value
	return nil
}

func (s *MemoryStore) List(_ context.Context, volumeID, prefix string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string)
	for k, v := range s.volumes[volumeID] {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
