// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirservice

import (
	"context"
	"fmt"

	"github.com/LeeDigitalWorks/placefs/pkg/dirclient"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// Seed registers services and address mappings that are not known yet.
// Registrations are stamped with the current time.
func (s *Server) Seed(ctx context.Context, services types.ServiceSet, mappings []types.AddressMapping) error {
	for _, e := range services {
		svc := *e
		svc.Version = 0
		if _, err := s.ServiceRegister(ctx, &dirclient.ServiceRegisterRequest{Service: svc}); err != nil {
			return fmt.Errorf("seed service %s: %w", e.UUID, err)
		}
	}
	byUUID := make(map[string][]types.AddressMapping)
	var order []string
	for _, m := range mappings {
		if _, ok := byUUID[m.UUID]; !ok {
			order = append(order, m.UUID)
		}
		m.Version = 0
		byUUID[m.UUID] = append(byUUID[m.UUID], m)
	}
	for _, uuid := range order {
		if _, err := s.AddressMappingsSet(ctx, &dirclient.AddressMappingSet{Mappings: byUUID[uuid]}); err != nil {
			return fmt.Errorf("seed address mappings of %s: %w", uuid, err)
		}
	}
	return nil
}

// Stats summarizes the server's contents.
type Stats struct {
	Services       int    `json:"services"`
	AddressEntries int    `json:"address_mappings"`
	Configurations int    `json:"configurations"`
	RedirectTo     string `json:"redirect_to,omitempty"`
}

func (s *Server) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Services:       len(s.services),
		Configurations: len(s.configs),
		RedirectTo:     s.redirect,
	}
	for _, m := range s.mappings {
		st.AddressEntries += len(m)
	}
	return st
}
