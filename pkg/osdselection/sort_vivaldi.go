// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"cmp"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/vivaldi"
)

// SortVivaldi orders candidates by ascending network coordinate distance to
// the client. OSDs without coordinates go last.
type SortVivaldi struct{}

func NewSortVivaldi() *SortVivaldi { return &SortVivaldi{} }

func (p *SortVivaldi) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc == nil || sc.ClientCoords == nil {
		return all.Clone()
	}
	client := *sc.ClientCoords

	type ranked struct {
		dist  float64
		known bool
	}
	ranks := make(map[*types.ServiceEntry]ranked, len(all))
	for _, e := range all {
		c, ok := vivaldi.FromService(e)
		if ok {
			ranks[e] = ranked{dist: vivaldi.Distance(client, c), known: true}
		}
	}
	return SortStable(all, func(a, b *types.ServiceEntry) int {
		ra, rb := ranks[a], ranks[b]
		switch {
		case ra.known && rb.known:
			return cmp.Compare(ra.dist, rb.dist)
		case ra.known:
			return -1
		case rb.known:
			return 1
		}
		return 0
	})
}

func (p *SortVivaldi) Select(all types.ServiceSet) types.ServiceSet {
	return all.Clone()
}

func (p *SortVivaldi) Configure(string, string) {}
