// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package osdselection implements the policies that filter, group and order
// candidate OSDs for replica placement and replica reads.
package osdselection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/uuidresolver"
	"github.com/LeeDigitalWorks/placefs/pkg/vivaldi"
)

// ErrUnknownPolicy is returned by the factory for IDs it cannot build.
var ErrUnknownPolicy = errors.New("unknown osd selection policy")

// SelectionContext carries the request-specific inputs of a selection.
type SelectionContext struct {
	// ClientAddr is an IP literal or host name. May be empty.
	ClientAddr   string
	ClientCoords *vivaldi.Coordinates
	// XLocs is the file's current placement. May be nil.
	XLocs   *types.XLocList
	NumOSDs int
	Path    string
}

// Policy is a single step of a selection chain. Implementations never modify
// their input and always return a new slice.
type Policy interface {
	// SelectWithContext selects OSDs for a specific file and client.
	SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet
	// Select applies only the context-free part of the policy.
	Select(all types.ServiceSet) types.ServiceSet
	// Configure sets a policy attribute. An empty value removes it.
	Configure(key, value string)
}

// PolicyID identifies a policy in a volume's chain.
type PolicyID int16

const (
	FilterDefaultID       PolicyID = 1000
	FilterFQDNID          PolicyID = 1001
	FilterUUIDID          PolicyID = 1002
	FilterNamePrefixID    PolicyID = 1003
	FilterPreferredUUIDID PolicyID = 1004

	GroupDCMapID PolicyID = 2000
	GroupFQDNID  PolicyID = 2001

	SortDCMapID          PolicyID = 3000
	SortFQDNID           PolicyID = 3001
	SortRandomID         PolicyID = 3002
	SortVivaldiID        PolicyID = 3003
	SortHostRoundRobinID PolicyID = 3004
	SortLastUpdatedID    PolicyID = 3005
	SortUUIDID           PolicyID = 3998
	SortReverseID        PolicyID = 3999
)

var policyNames = map[PolicyID]string{
	FilterDefaultID:       "FilterDefault",
	FilterFQDNID:          "FilterFQDN",
	FilterUUIDID:          "FilterUUID",
	FilterNamePrefixID:    "FilterNamePrefix",
	FilterPreferredUUIDID: "FilterPreferredUUID",
	GroupDCMapID:          "GroupDCMap",
	GroupFQDNID:           "GroupFQDN",
	SortDCMapID:           "SortDCMap",
	SortFQDNID:            "SortFQDN",
	SortRandomID:          "SortRandom",
	SortVivaldiID:         "SortVivaldi",
	SortHostRoundRobinID:  "SortHostRoundRobin",
	SortLastUpdatedID:     "SortLastUpdated",
	SortUUIDID:            "SortUUID",
	SortReverseID:         "SortReverse",
}

func (id PolicyID) String() string {
	if name, ok := policyNames[id]; ok {
		return name
	}
	return "Policy(" + strconv.Itoa(int(id)) + ")"
}

// Known reports whether the factory can build id.
func (id PolicyID) Known() bool {
	_, ok := policyNames[id]
	return ok
}

// KnownPolicies returns every ID the factory can build, in ascending order.
func KnownPolicies() []PolicyID {
	ids := make([]PolicyID, 0, len(policyNames))
	for id := range policyNames {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

var (
	// DefaultOSDPolicy is the chain used for volumes without an explicit one.
	DefaultOSDPolicy = []PolicyID{FilterDefaultID, SortRandomID}
	// DefaultReplicaPolicy leaves replicas in placement order.
	DefaultReplicaPolicy = []PolicyID{}
)

// ParsePolicyList parses a comma separated list of policy IDs such as
// "1000,3002". An empty string yields an empty list.
func ParsePolicyList(s string) ([]PolicyID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []PolicyID{}, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]PolicyID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		n, err := strconv.ParseInt(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid policy id %q: %w", p, err)
		}
		ids = append(ids, PolicyID(n))
	}
	return ids, nil
}

// FormatPolicyList is the inverse of ParsePolicyList.
func FormatPolicyList(ids []PolicyID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

// DNSResolver is the subset of *net.Resolver used for host name lookups.
type DNSResolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Environment holds the collaborators policies need to classify OSDs.
type Environment struct {
	UUIDs uuidresolver.Resolver
	// DNS defaults to net.DefaultResolver.
	DNS DNSResolver
	// Now defaults to time.Now.
	Now func() time.Time
	// DCMapFile is an optional YAML datacenter map used by the DCMap
	// policies until one is configured through attributes.
	DCMapFile string
}

func (e Environment) withDefaults() Environment {
	if e.DNS == nil {
		e.DNS = net.DefaultResolver
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	return e
}

// Factory builds policy instances by ID.
type Factory struct {
	env Environment
}

func NewFactory(env Environment) *Factory {
	return &Factory{env: env.withDefaults()}
}

// New returns a freshly configured instance of the policy with the given ID.
func (f *Factory) New(id PolicyID) (Policy, error) {
	hosts := newHostLookup(f.env)
	switch id {
	case FilterDefaultID:
		return NewFilterDefault(f.env.Now), nil
	case FilterFQDNID:
		return NewFilterFQDN(hosts), nil
	case FilterUUIDID:
		return NewFilterUUID(), nil
	case FilterNamePrefixID:
		return NewFilterNamePrefix(), nil
	case FilterPreferredUUIDID:
		return NewFilterPreferredUUID(), nil
	case GroupDCMapID, SortDCMapID:
		base, err := f.loadDCMap()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		if id == GroupDCMapID {
			return NewGroupDCMap(base, hosts), nil
		}
		return NewSortDCMap(base, hosts), nil
	case GroupFQDNID:
		return NewGroupFQDN(hosts), nil
	case SortFQDNID:
		return NewSortFQDN(hosts), nil
	case SortRandomID:
		return NewSortRandom(), nil
	case SortVivaldiID:
		return NewSortVivaldi(), nil
	case SortHostRoundRobinID:
		return NewSortHostRoundRobin(hosts), nil
	case SortLastUpdatedID:
		return NewSortLastUpdated(), nil
	case SortUUIDID:
		return NewSortUUID(), nil
	case SortReverseID:
		return NewSortReverse(), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, id)
}

func (f *Factory) loadDCMap() (*DCMap, error) {
	if f.env.DCMapFile == "" {
		return nil, nil
	}
	cfg, err := LoadDCMapFile(f.env.DCMapFile)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}
