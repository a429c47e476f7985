// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"strings"
	"sync"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

const attrPreferredUUID = "preferredUUID"

// FilterPreferredUUID moves the preferred OSD to the front and shuffles the
// rest.
type FilterPreferredUUID struct {
	mu        sync.RWMutex
	preferred string
}

func NewFilterPreferredUUID() *FilterPreferredUUID {
	return &FilterPreferredUUID{}
}

func (p *FilterPreferredUUID) SelectWithContext(all types.ServiceSet, _ *SelectionContext) types.ServiceSet {
	return p.Select(all)
}

func (p *FilterPreferredUUID) Select(all types.ServiceSet) types.ServiceSet {
	if all == nil {
		return nil
	}
	p.mu.RLock()
	preferred := p.preferred
	p.mu.RUnlock()

	var head *types.ServiceEntry
	rest := make(types.ServiceSet, 0, len(all))
	for _, e := range all {
		if head == nil && preferred != "" && e.UUID == preferred {
			head = e
			continue
		}
		rest = append(rest, e)
	}
	rest = Shuffle(rest, nil)
	if head == nil {
		return rest
	}
	return append(types.ServiceSet{head}, rest...)
}

func (p *FilterPreferredUUID) Configure(key, value string) {
	if key != attrPreferredUUID {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preferred = strings.TrimSpace(value)
}
