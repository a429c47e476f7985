// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placement

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/osdselection"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/vivaldi"
)

// VolumeInfo names a volume's selection chains.
type VolumeInfo struct {
	ID            string                  `json:"id"`
	OSDPolicy     []osdselection.PolicyID `json:"osd_policy"`
	ReplicaPolicy []osdselection.PolicyID `json:"replica_policy"`
}

// VolumeOSDFilter runs a volume's OSD and replica selection chains.
//
// Policy instances are private to the filter, so attributes configured for
// one volume never affect another. Each instance guards its own
// configuration, so Configure may run concurrently with selections.
type VolumeOSDFilter struct {
	factory *osdselection.Factory

	mu            sync.RWMutex
	volumeID      string
	osdPolicy     []osdselection.PolicyID
	replicaPolicy []osdselection.PolicyID
	policies      map[osdselection.PolicyID]osdselection.Policy
	broken        map[osdselection.PolicyID]error
}

func NewVolumeOSDFilter(factory *osdselection.Factory) *VolumeOSDFilter {
	return &VolumeOSDFilter{
		factory:  factory,
		policies: make(map[osdselection.PolicyID]osdselection.Policy),
		broken:   make(map[osdselection.PolicyID]error),
	}
}

// Init sets the chains and replays the persisted policy attributes. attrs is
// keyed "<policyID>.<key>". Unknown policies and malformed keys are logged
// and skipped.
func (f *VolumeOSDFilter) Init(info VolumeInfo, attrs map[string]string) {
	f.mu.Lock()
	f.volumeID = info.ID
	f.osdPolicy = slices.Clone(info.OSDPolicy)
	f.replicaPolicy = slices.Clone(info.ReplicaPolicy)
	clear(f.policies)
	clear(f.broken)
	for _, id := range f.osdPolicy {
		f.instantiateLocked(id)
	}
	for _, id := range f.replicaPolicy {
		f.instantiateLocked(id)
	}
	f.mu.Unlock()

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := f.Configure(k, attrs[k]); err != nil {
			logger.Warn().Err(err).Str("volume", info.ID).Str("key", k).Msg("skipping policy attribute")
		}
	}
}

// SetChains replaces the policy chains, keeping already configured instances.
func (f *VolumeOSDFilter) SetChains(osdPolicy, replicaPolicy []osdselection.PolicyID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if osdPolicy != nil {
		f.osdPolicy = slices.Clone(osdPolicy)
	}
	if replicaPolicy != nil {
		f.replicaPolicy = slices.Clone(replicaPolicy)
	}
	for _, id := range f.osdPolicy {
		f.instantiateLocked(id)
	}
	for _, id := range f.replicaPolicy {
		f.instantiateLocked(id)
	}
}

// Info returns the volume's current chains.
func (f *VolumeOSDFilter) Info() VolumeInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return VolumeInfo{
		ID:            f.volumeID,
		OSDPolicy:     slices.Clone(f.osdPolicy),
		ReplicaPolicy: slices.Clone(f.replicaPolicy),
	}
}

func (f *VolumeOSDFilter) instantiateLocked(id osdselection.PolicyID) (osdselection.Policy, error) {
	if p, ok := f.policies[id]; ok {
		return p, nil
	}
	if err, ok := f.broken[id]; ok {
		return nil, err
	}
	p, err := f.factory.New(id)
	if err != nil {
		logger.Warn().Err(err).Str("volume", f.volumeID).Int("policy", int(id)).Msg("cannot instantiate osd selection policy")
		f.broken[id] = err
		return nil, err
	}
	f.policies[id] = p
	return p, nil
}

// chain resolves ids to policy instances. Unresolvable IDs are logged and
// left out.
func (f *VolumeOSDFilter) chain(replica bool) []osdselection.Policy {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := f.osdPolicy
	if replica {
		ids = f.replicaPolicy
	}
	out := make([]osdselection.Policy, 0, len(ids))
	for _, id := range ids {
		p, ok := f.policies[id]
		if !ok {
			logger.Warn().Str("volume", f.volumeID).Int("policy", int(id)).Msg("skipping unknown osd selection policy")
			policySkippedTotal.WithLabelValues(strconv.Itoa(int(id))).Inc()
			continue
		}
		out = append(out, p)
	}
	return out
}

// ApplyOSDSelection folds known through the OSD chain.
func (f *VolumeOSDFilter) ApplyOSDSelection(known types.ServiceSet, sc *osdselection.SelectionContext) types.ServiceSet {
	set := known
	for _, p := range f.chain(false) {
		set = p.SelectWithContext(set, sc)
	}
	return set
}

// ApplyOSDSelectionSimple folds known through the OSD chain without request
// context.
func (f *VolumeOSDFilter) ApplyOSDSelectionSimple(known types.ServiceSet) types.ServiceSet {
	set := known
	for _, p := range f.chain(false) {
		set = p.Select(set)
	}
	return set
}

// SortReplicasByPolicy orders replicas by folding their head OSDs through the
// replica chain. OSDs unknown to the registry take part as bare entries.
func (f *VolumeOSDFilter) SortReplicasByPolicy(known types.ServiceSet, clientAddr string, clientCoords *vivaldi.Coordinates, replicas []types.Replica) ([]types.Replica, error) {
	index := known.Index()
	byHead := make(map[string]types.Replica, len(replicas))
	heads := make(types.ServiceSet, 0, len(replicas))
	for _, r := range replicas {
		head := r.Head()
		if _, dup := byHead[head]; dup {
			return nil, fmt.Errorf("%w: osd %s heads two replicas", ErrReplicaInvariant, head)
		}
		byHead[head] = r
		e, ok := index[head]
		if !ok {
			e = &types.ServiceEntry{UUID: head, Type: types.ServiceTypeOSD}
		}
		heads = append(heads, e)
	}

	sc := &osdselection.SelectionContext{
		ClientAddr:   clientAddr,
		ClientCoords: clientCoords,
		NumOSDs:      len(heads),
	}
	for _, p := range f.chain(true) {
		heads = p.SelectWithContext(heads, sc)
	}

	out := make([]types.Replica, 0, len(heads))
	for _, e := range heads {
		r, ok := byHead[e.UUID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrReplicaInvariant, e.UUID)
		}
		out = append(out, r)
	}
	return out, nil
}

// ParsePolicyKey splits "<policyID>.<key>".
func ParsePolicyKey(key string) (osdselection.PolicyID, string, error) {
	idPart, sub, ok := strings.Cut(key, ".")
	id, err := strconv.ParseInt(idPart, 10, 16)
	if !ok || err != nil || sub == "" {
		return 0, "", userErrorf(EPERM,
			"policy ID required for attribute %q, e.g. \"%d.%s\"", key, osdselection.FilterDefaultID, key)
	}
	return osdselection.PolicyID(id), sub, nil
}

// Configure routes "<policyID>.<key>" = value to the policy instance.
func (f *VolumeOSDFilter) Configure(key, value string) error {
	id, sub, err := ParsePolicyKey(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	p, err := f.instantiateLocked(id)
	f.mu.Unlock()
	if err != nil {
		return userErrorf(EINVAL, "cannot configure policy %d: %v", id, err)
	}
	p.Configure(sub, value)
	return nil
}
