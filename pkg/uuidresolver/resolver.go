// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package uuidresolver maps service UUIDs to network endpoints.
package uuidresolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
)

// ErrUnknownUUID is returned when no mapping exists for a UUID.
var ErrUnknownUUID = errors.New("unknown uuid")

// Address is a resolved service endpoint.
type Address struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Resolver resolves a service UUID to its address.
type Resolver interface {
	Resolve(ctx context.Context, uuid string) (Address, error)
}

// Static is an in-memory resolver.
type Static struct {
	mu       sync.RWMutex
	mappings map[string]Address
}

func NewStatic() *Static {
	return &Static{mappings: make(map[string]Address)}
}

// Add registers or replaces the mapping for uuid.
func (s *Static) Add(uuid, host string, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[uuid] = Address{Protocol: "grpc", Host: host, Port: port}
}

func (s *Static) Resolve(ctx context.Context, uuid string) (Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.mappings[uuid]
	if !ok {
		return Address{}, fmt.Errorf("%w: %s", ErrUnknownUUID, uuid)
	}
	return addr, nil
}
