// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"strings"
	"sync"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

const (
	attrUUIDs   = "uuids"
	attrDomains = "domains"
)

// patternList is a set of wildcard patterns: "*", "prefix*", "*suffix" or an
// exact value. An empty list matches everything.
type patternList []string

func parsePatterns(s string) patternList {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

func (l patternList) matches(s string) bool {
	if len(l) == 0 {
		return true
	}
	for _, p := range l {
		if matchPattern(p, s) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, s string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	default:
		return pattern == s
	}
}

// FilterUUID keeps OSDs whose UUID matches one of the configured patterns.
type FilterUUID struct {
	mu       sync.RWMutex
	patterns patternList
}

func NewFilterUUID() *FilterUUID {
	return &FilterUUID{}
}

func (p *FilterUUID) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc != nil {
		all = RemoveUsed(all, sc.XLocs)
	}
	return p.Select(all)
}

func (p *FilterUUID) Select(all types.ServiceSet) types.ServiceSet {
	if all == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(types.ServiceSet, 0, len(all))
	for _, e := range all {
		if p.patterns.matches(e.UUID) {
			out = append(out, e)
		}
	}
	return out
}

func (p *FilterUUID) Configure(key, value string) {
	if key != attrUUIDs {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patterns = parsePatterns(value)
}

// FilterFQDN keeps OSDs whose host name matches one of the configured domain
// patterns.
type FilterFQDN struct {
	hosts hostLookup

	mu       sync.RWMutex
	patterns patternList
}

func NewFilterFQDN(hosts hostLookup) *FilterFQDN {
	return &FilterFQDN{hosts: hosts}
}

func (p *FilterFQDN) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc != nil {
		all = RemoveUsed(all, sc.XLocs)
	}
	return p.Select(all)
}

func (p *FilterFQDN) Select(all types.ServiceSet) types.ServiceSet {
	if all == nil {
		return nil
	}
	p.mu.RLock()
	patterns := p.patterns
	p.mu.RUnlock()

	if len(patterns) == 0 {
		return all.Clone()
	}
	out := make(types.ServiceSet, 0, len(all))
	for _, e := range all {
		host, ok := p.hosts.hostName(e.UUID)
		if ok && patterns.matches(host) {
			out = append(out, e)
		}
	}
	return out
}

func (p *FilterFQDN) Configure(key, value string) {
	if key != attrDomains {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patterns = parsePatterns(strings.ToLower(value))
}
