// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// ServiceSpec is one service in a services file.
type ServiceSpec struct {
	UUID         string            `yaml:"uuid"`
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"`
	Version      uint64            `yaml:"version"`
	LastUpdatedS int64             `yaml:"last_updated_s"`
	Address      string            `yaml:"address"`
	Data         map[string]string `yaml:"data"`
}

// ServicesFile is a static registry snapshot, e.g.
//
//	services:
//	  - uuid: osd1
//	    type: osd
//	    address: 10.0.0.1:32640
//	    data:
//	      free: "50000000000"
//	      seconds_since_last_update: "3"
type ServicesFile struct {
	Services []ServiceSpec `yaml:"services"`
}

// Mapping is a UUID address taken from a services file.
type Mapping struct {
	UUID string
	Host string
	Port int
}

// LoadFile reads a services file. It returns the services in file order and
// the addresses of the entries that declare one.
func LoadFile(path string) (types.ServiceSet, []Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read services file: %w", err)
	}
	var f ServicesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, nil, fmt.Errorf("parse services file %s: %w", path, err)
	}
	return f.Build()
}

func (f ServicesFile) Build() (types.ServiceSet, []Mapping, error) {
	set := make(types.ServiceSet, 0, len(f.Services))
	var mappings []Mapping
	seen := make(map[string]bool, len(f.Services))
	for i, s := range f.Services {
		if s.UUID == "" {
			return nil, nil, fmt.Errorf("service %d: missing uuid", i)
		}
		if seen[s.UUID] {
			return nil, nil, fmt.Errorf("service %s: duplicate uuid", s.UUID)
		}
		seen[s.UUID] = true

		typ := types.ServiceTypeOSD
		if s.Type != "" {
			t, err := types.ParseServiceType(s.Type)
			if err != nil {
				return nil, nil, fmt.Errorf("service %s: %w", s.UUID, err)
			}
			typ = t
		}
		name := s.Name
		if name == "" {
			name = s.UUID
		}
		set = append(set, &types.ServiceEntry{
			UUID:         s.UUID,
			Type:         typ,
			Version:      s.Version,
			Name:         name,
			LastUpdatedS: s.LastUpdatedS,
			Data:         types.ServiceDataFromMap(s.Data),
		})

		if s.Address != "" {
			host, portStr, err := net.SplitHostPort(s.Address)
			if err != nil {
				return nil, nil, fmt.Errorf("service %s: invalid address: %w", s.UUID, err)
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, nil, fmt.Errorf("service %s: invalid port %q", s.UUID, portStr)
			}
			mappings = append(mappings, Mapping{UUID: s.UUID, Host: host, Port: port})
		}
	}
	return set, mappings, nil
}
