// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"cmp"
	"sync"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// dcMapPolicy holds the datacenter map shared by SortDCMap and GroupDCMap.
// Attributes override the file based map once "datacenters" is set.
type dcMapPolicy struct {
	hosts hostLookup
	file  *DCMap

	mu      sync.RWMutex
	props   map[string]string
	current *DCMap
}

func (p *dcMapPolicy) setup(file *DCMap, hosts hostLookup) {
	p.hosts = hosts
	p.file = file
	p.current = file
	p.props = make(map[string]string)
}

func (p *dcMapPolicy) Configure(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if value == "" {
		delete(p.props, key)
	} else {
		p.props[key] = value
	}
	if _, ok := p.props["datacenters"]; !ok {
		p.current = p.file
		return
	}
	m, err := DCMapConfigFromProperties(p.props).Build()
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("invalid datacenter map, keeping previous one")
		return
	}
	p.current = m
}

func (p *dcMapPolicy) dcMap() *DCMap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// classify returns the map, the client's datacenter and every OSD's
// datacenter.
func (p *dcMapPolicy) classify(all types.ServiceSet, clientAddr string) (*DCMap, int, map[*types.ServiceEntry]int) {
	m := p.dcMap()
	client := -1
	if ip, ok := p.hosts.toIPv4(clientAddr); ok {
		client = m.Datacenter(ip)
	}
	dcs := make(map[*types.ServiceEntry]int, len(all))
	for _, e := range all {
		dc := -1
		if ip, ok := p.hosts.ipv4(e.UUID); ok {
			dc = m.Datacenter(ip)
		}
		dcs[e] = dc
	}
	return m, client, dcs
}

// SortDCMap orders candidates by the distance of their datacenter to the
// client's datacenter.
type SortDCMap struct {
	dcMapPolicy
}

func NewSortDCMap(file *DCMap, hosts hostLookup) *SortDCMap {
	p := &SortDCMap{}
	p.setup(file, hosts)
	return p
}

func (p *SortDCMap) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc == nil || sc.ClientAddr == "" || p.dcMap() == nil {
		return all.Clone()
	}
	m, client, dcs := p.classify(all, sc.ClientAddr)
	return SortStable(all, func(a, b *types.ServiceEntry) int {
		return cmp.Compare(m.Distance(client, dcs[a]), m.Distance(client, dcs[b]))
	})
}

func (p *SortDCMap) Select(all types.ServiceSet) types.ServiceSet {
	return all.Clone()
}

// GroupDCMap returns NumOSDs candidates from the closest datacenter that has
// enough of them, or nothing.
type GroupDCMap struct {
	dcMapPolicy
}

func NewGroupDCMap(file *DCMap, hosts hostLookup) *GroupDCMap {
	p := &GroupDCMap{}
	p.setup(file, hosts)
	return p
}

func (p *GroupDCMap) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc == nil || p.dcMap() == nil {
		return all.Clone()
	}
	if all == nil {
		return nil
	}
	m, client, dcs := p.classify(all, sc.ClientAddr)

	var buckets []bucket
	pos := make(map[int]int)
	for _, e := range all {
		dc := dcs[e]
		if dc < 0 {
			continue
		}
		i, ok := pos[dc]
		if !ok {
			i = len(buckets)
			pos[dc] = i
			buckets = append(buckets, bucket{score: m.Distance(client, dc)})
		}
		buckets[i].members = append(buckets[i].members, e)
	}
	return pickBucket(buckets, sc.NumOSDs, func(a, b bucket) int { return cmp.Compare(a.score, b.score) })
}

func (p *GroupDCMap) Select(all types.ServiceSet) types.ServiceSet {
	return all.Clone()
}

// bucket is a group of candidates sharing a datacenter or domain.
type bucket struct {
	score   int
	members types.ServiceSet
}

// pickBucket returns the first n members of the best bucket having at least n
// members. Buckets that compare equal are ranked by first appearance.
func pickBucket(buckets []bucket, n int, better func(a, b bucket) int) types.ServiceSet {
	if n <= 0 {
		return types.ServiceSet{}
	}
	best := -1
	for i, b := range buckets {
		if len(b.members) < n {
			continue
		}
		if best < 0 || better(b, buckets[best]) < 0 {
			best = i
		}
	}
	if best < 0 {
		return types.ServiceSet{}
	}
	return buckets[best].members[:n].Clone()
}
