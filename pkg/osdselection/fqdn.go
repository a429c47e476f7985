// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"cmp"
	"strings"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// matchingLabels counts the equal trailing labels of two host names.
func matchingLabels(a, b string) int {
	la := strings.Split(a, ".")
	lb := strings.Split(b, ".")
	n := 0
	for i, j := len(la)-1, len(lb)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if la[i] == "" || la[i] != lb[j] {
			break
		}
		n++
	}
	return n
}

// domainOf strips the first label of a host name.
func domainOf(host string) string {
	if _, rest, ok := strings.Cut(host, "."); ok {
		return rest
	}
	return host
}

// fqdnScores returns how many trailing labels every OSD's host name shares
// with the client. Unresolvable OSDs score -1.
func fqdnScores(hosts hostLookup, all types.ServiceSet, client string) (map[*types.ServiceEntry]int, map[*types.ServiceEntry]string) {
	scores := make(map[*types.ServiceEntry]int, len(all))
	names := make(map[*types.ServiceEntry]string, len(all))
	for _, e := range all {
		host, ok := hosts.hostName(e.UUID)
		if !ok {
			scores[e] = -1
			continue
		}
		names[e] = host
		if client != "" {
			scores[e] = matchingLabels(host, client)
		}
	}
	return scores, names
}

// SortFQDN orders candidates by descending number of domain labels their host
// name shares with the client's.
type SortFQDN struct {
	hosts hostLookup
}

func NewSortFQDN(hosts hostLookup) *SortFQDN {
	return &SortFQDN{hosts: hosts}
}

func (p *SortFQDN) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc == nil || sc.ClientAddr == "" {
		return all.Clone()
	}
	client := p.hosts.canonicalName(sc.ClientAddr)
	scores, _ := fqdnScores(p.hosts, all, client)
	return SortStable(all, func(a, b *types.ServiceEntry) int {
		return cmp.Compare(scores[b], scores[a])
	})
}

func (p *SortFQDN) Select(all types.ServiceSet) types.ServiceSet {
	return all.Clone()
}

func (p *SortFQDN) Configure(string, string) {}

// GroupFQDN returns NumOSDs candidates of the domain closest to the client
// that has enough of them, or nothing.
type GroupFQDN struct {
	hosts hostLookup
}

func NewGroupFQDN(hosts hostLookup) *GroupFQDN {
	return &GroupFQDN{hosts: hosts}
}

func (p *GroupFQDN) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc == nil {
		return all.Clone()
	}
	if all == nil {
		return nil
	}
	client := ""
	if sc.ClientAddr != "" {
		client = p.hosts.canonicalName(sc.ClientAddr)
	}
	scores, names := fqdnScores(p.hosts, all, client)

	var buckets []bucket
	pos := make(map[string]int)
	for _, e := range all {
		host, ok := names[e]
		if !ok {
			continue
		}
		domain := domainOf(host)
		i, seen := pos[domain]
		if !seen {
			i = len(buckets)
			pos[domain] = i
			buckets = append(buckets, bucket{score: scores[e]})
		}
		buckets[i].score = max(buckets[i].score, scores[e])
		buckets[i].members = append(buckets[i].members, e)
	}
	return pickBucket(buckets, sc.NumOSDs, func(a, b bucket) int { return cmp.Compare(b.score, a.score) })
}

func (p *GroupFQDN) Select(all types.ServiceSet) types.ServiceSet {
	return all.Clone()
}

func (p *GroupFQDN) Configure(string, string) {}
