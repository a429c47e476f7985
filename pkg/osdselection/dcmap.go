// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"fmt"
	"math"
	"net/netip"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxDistance is the distance to or from an unknown datacenter.
const MaxDistance = math.MaxInt32

var datacenterName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// DatacenterConfig lists the addresses belonging to one datacenter.
type DatacenterConfig struct {
	Name      string   `yaml:"name"`
	Addresses []string `yaml:"addresses"`
}

// DCMapConfig is the serialized form of a datacenter map.
//
//	datacenters:
//	  - name: A
//	    addresses: [192.168.1.1, 192.168.2.0/24]
//	  - name: B
//	    addresses: [192.168.3.0/24]
//	distances:
//	  A-B: 10
type DCMapConfig struct {
	Datacenters []DatacenterConfig `yaml:"datacenters"`
	Distances   map[string]int     `yaml:"distances"`
}

// LoadDCMapFile reads a YAML datacenter map.
func LoadDCMapFile(path string) (DCMapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DCMapConfig{}, fmt.Errorf("read datacenter map: %w", err)
	}
	var cfg DCMapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DCMapConfig{}, fmt.Errorf("parse datacenter map %s: %w", path, err)
	}
	return cfg, nil
}

// DCMapConfigFromProperties reads the attribute form of a datacenter map:
// "datacenters" = "A,B", "distance.A-B" = "10", "A.addresses" = "ip,cidr".
func DCMapConfigFromProperties(props map[string]string) DCMapConfig {
	cfg := DCMapConfig{Distances: make(map[string]int)}
	for _, name := range splitList(props["datacenters"]) {
		cfg.Datacenters = append(cfg.Datacenters, DatacenterConfig{
			Name:      name,
			Addresses: splitList(props[name+".addresses"]),
		})
	}
	for key, value := range props {
		pair, ok := strings.CutPrefix(key, "distance.")
		if !ok {
			continue
		}
		d, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			d = -1
		}
		cfg.Distances[pair] = d
	}
	return cfg
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// DCMap classifies IPv4 addresses into datacenters and knows the distance
// between every pair of them.
type DCMap struct {
	names    []string
	matchers [][]Inet4Matcher
	dist     [][]int
}

// Build validates the configuration. Missing distances are treated as
// MaxDistance.
func (c DCMapConfig) Build() (*DCMap, error) {
	m := &DCMap{}
	index := make(map[string]int, len(c.Datacenters))
	for _, dc := range c.Datacenters {
		if !datacenterName.MatchString(dc.Name) {
			return nil, fmt.Errorf("invalid datacenter name %q", dc.Name)
		}
		if _, dup := index[dc.Name]; dup {
			return nil, fmt.Errorf("duplicate datacenter %q", dc.Name)
		}
		matchers := make([]Inet4Matcher, 0, len(dc.Addresses))
		for _, a := range dc.Addresses {
			mt, err := ParseInet4Matcher(a)
			if err != nil {
				return nil, fmt.Errorf("datacenter %s: %w", dc.Name, err)
			}
			matchers = append(matchers, mt)
		}
		index[dc.Name] = len(m.names)
		m.names = append(m.names, dc.Name)
		m.matchers = append(m.matchers, matchers)
	}

	m.dist = make([][]int, len(m.names))
	for i := range m.dist {
		m.dist[i] = make([]int, len(m.names))
		for j := range m.dist[i] {
			if i != j {
				m.dist[i][j] = MaxDistance
			}
		}
	}
	for pair, d := range c.Distances {
		a, b, ok := strings.Cut(pair, "-")
		if !ok {
			return nil, fmt.Errorf("invalid distance key %q", pair)
		}
		i, okA := index[a]
		j, okB := index[b]
		if !okA || !okB {
			continue
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid distance for %s", pair)
		}
		m.dist[i][j] = d
		m.dist[j][i] = d
	}
	return m, nil
}

// Datacenter returns the index of the first datacenter containing ip, or -1.
func (m *DCMap) Datacenter(ip netip.Addr) int {
	if m == nil || !ip.IsValid() {
		return -1
	}
	for i, matchers := range m.matchers {
		for _, mt := range matchers {
			if mt.Matches(ip) {
				return i
			}
		}
	}
	return -1
}

// Name returns the name of datacenter i.
func (m *DCMap) Name(i int) string {
	if m == nil || i < 0 || i >= len(m.names) {
		return ""
	}
	return m.names[i]
}

// Distance returns the distance between datacenters a and b.
func (m *DCMap) Distance(a, b int) int {
	if m == nil || a < 0 || b < 0 || a >= len(m.names) || b >= len(m.names) {
		return MaxDistance
	}
	return m.dist[a][b]
}
