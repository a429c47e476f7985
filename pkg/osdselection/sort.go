// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"cmp"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

const attrRandomSeed = "randomseed"

// SortRandom shuffles the candidates. A configured seed gives every call the
// same permutation of the same input.
type SortRandom struct {
	mu   sync.RWMutex
	seed *uint64
}

func NewSortRandom() *SortRandom {
	return &SortRandom{}
}

func (p *SortRandom) SelectWithContext(all types.ServiceSet, _ *SelectionContext) types.ServiceSet {
	return p.Select(all)
}

func (p *SortRandom) Select(all types.ServiceSet) types.ServiceSet {
	p.mu.RLock()
	seed := p.seed
	p.mu.RUnlock()

	if seed == nil {
		return Shuffle(all, nil)
	}
	return Shuffle(all, rand.New(rand.NewPCG(*seed, *seed)))
}

func (p *SortRandom) Configure(key, value string) {
	if key != attrRandomSeed {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		if value != "" {
			logger.Warn().Str("key", key).Str("value", value).Msg("invalid random seed, using unseeded randomness")
		}
		p.seed = nil
		return
	}
	s := uint64(n)
	p.seed = &s
}

// SortReverse reverses the candidate order.
type SortReverse struct{}

func NewSortReverse() *SortReverse { return &SortReverse{} }

func (p *SortReverse) SelectWithContext(all types.ServiceSet, _ *SelectionContext) types.ServiceSet {
	return Reverse(all)
}

func (p *SortReverse) Select(all types.ServiceSet) types.ServiceSet { return Reverse(all) }

func (p *SortReverse) Configure(string, string) {}

// SortUUID orders candidates by UUID.
type SortUUID struct{}

func NewSortUUID() *SortUUID { return &SortUUID{} }

func (p *SortUUID) SelectWithContext(all types.ServiceSet, _ *SelectionContext) types.ServiceSet {
	return p.Select(all)
}

func (p *SortUUID) Select(all types.ServiceSet) types.ServiceSet {
	return SortStable(all, func(a, b *types.ServiceEntry) int {
		return strings.Compare(a.UUID, b.UUID)
	})
}

func (p *SortUUID) Configure(string, string) {}

// SortLastUpdated orders candidates by ascending time since their last
// heartbeat. Entries without the attribute go last.
type SortLastUpdated struct{}

func NewSortLastUpdated() *SortLastUpdated { return &SortLastUpdated{} }

func (p *SortLastUpdated) SelectWithContext(all types.ServiceSet, _ *SelectionContext) types.ServiceSet {
	return p.Select(all)
}

func (p *SortLastUpdated) Select(all types.ServiceSet) types.ServiceSet {
	return SortStable(all, func(a, b *types.ServiceEntry) int {
		x, okA := a.Int64Attr(types.AttrSecondsSinceLastUpdate)
		y, okB := b.Int64Attr(types.AttrSecondsSinceLastUpdate)
		switch {
		case okA && okB:
			return cmp.Compare(x, y)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
}

func (p *SortLastUpdated) Configure(string, string) {}

// SortHostRoundRobin interleaves candidates so that consecutive entries run
// on different hosts where possible.
type SortHostRoundRobin struct {
	hosts hostLookup
}

func NewSortHostRoundRobin(hosts hostLookup) *SortHostRoundRobin {
	return &SortHostRoundRobin{hosts: hosts}
}

func (p *SortHostRoundRobin) SelectWithContext(all types.ServiceSet, _ *SelectionContext) types.ServiceSet {
	return p.Select(all)
}

func (p *SortHostRoundRobin) Select(all types.ServiceSet) types.ServiceSet {
	if all == nil {
		return nil
	}
	var order []string
	byHost := make(map[string]types.ServiceSet)
	for _, e := range all {
		host, ok := p.hosts.osdHost(e.UUID)
		if !ok {
			host = "uuid:" + e.UUID
		}
		host = strings.ToLower(host)
		if _, seen := byHost[host]; !seen {
			order = append(order, host)
		}
		byHost[host] = append(byHost[host], e)
	}

	out := make(types.ServiceSet, 0, len(all))
	for round := 0; len(out) < len(all); round++ {
		for _, host := range order {
			if round < len(byHost[host]) {
				out = append(out, byHost[host][round])
			}
		}
	}
	return out
}

func (p *SortHostRoundRobin) Configure(string, string) {}
