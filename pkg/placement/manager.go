// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/osdselection"
	"github.com/LeeDigitalWorks/placefs/pkg/registry"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/vivaldi"
	"github.com/LeeDigitalWorks/placefs/pkg/xattr"
)

// Volume attribute keys.
const (
	OSDPolicyAttr     = "xtreemfs.osel_policy"
	ReplicaPolicyAttr = "xtreemfs.rsel_policy"
	PolicyAttrPrefix  = "xtreemfs.policies."
)

// VolumeManager owns the selection filters of all open volumes and keeps
// them in sync with the persisted policy attributes.
type VolumeManager struct {
	store    xattr.Store
	provider registry.Provider
	factory  *osdselection.Factory

	mu      sync.Mutex
	filters map[string]*VolumeOSDFilter
}

func NewVolumeManager(store xattr.Store, provider registry.Provider, factory *osdselection.Factory) *VolumeManager {
	return &VolumeManager{
		store:    store,
		provider: provider,
		factory:  factory,
		filters:  make(map[string]*VolumeOSDFilter),
	}
}

// Open loads the volume's chains and policy attributes. Subsequent calls
// return the cached filter.
func (m *VolumeManager) Open(ctx context.Context, volumeID string) (*VolumeOSDFilter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.filters[volumeID]; ok {
		return f, nil
	}

	info, err := m.loadVolumeInfo(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	persisted, err := m.store.List(ctx, volumeID, PolicyAttrPrefix)
	if err != nil {
		return nil, fmt.Errorf("list policy attributes of %s: %w", volumeID, err)
	}
	attrs := make(map[string]string, len(persisted))
	for k, v := range persisted {
		attrs[strings.TrimPrefix(k, PolicyAttrPrefix)] = v
	}

	f := NewVolumeOSDFilter(m.factory)
	f.Init(info, attrs)
	m.filters[volumeID] = f

	logger.Info().
		Str("volume", volumeID).
		Str("osd_policy", osdselection.FormatPolicyList(info.OSDPolicy)).
		Str("replica_policy", osdselection.FormatPolicyList(info.ReplicaPolicy)).
		Int("attributes", len(attrs)).
		Msg("volume selection chains loaded")
	return f, nil
}

func (m *VolumeManager) loadVolumeInfo(ctx context.Context, volumeID string) (VolumeInfo, error) {
	info := VolumeInfo{
		ID:            volumeID,
		OSDPolicy:     osdselection.DefaultOSDPolicy,
		ReplicaPolicy: osdselection.DefaultReplicaPolicy,
	}
	for _, chain := range []struct {
		key string
		dst *[]osdselection.PolicyID
	}{
		{OSDPolicyAttr, &info.OSDPolicy},
		{ReplicaPolicyAttr, &info.ReplicaPolicy},
	} {
		raw, ok, err := m.store.Get(ctx, volumeID, chain.key)
		if err != nil {
			return VolumeInfo{}, fmt.Errorf("read %s of %s: %w", chain.key, volumeID, err)
		}
		if !ok {
			continue
		}
		ids, err := osdselection.ParsePolicyList(raw)
		if err != nil {
			logger.Warn().Err(err).Str("volume", volumeID).Str("key", chain.key).Msg("invalid persisted policy list, using default")
			continue
		}
		*chain.dst = ids
	}
	return info, nil
}

// VolumeInfo returns the volume's current chains.
func (m *VolumeManager) VolumeInfo(ctx context.Context, volumeID string) (VolumeInfo, error) {
	f, err := m.Open(ctx, volumeID)
	if err != nil {
		return VolumeInfo{}, err
	}
	return f.Info(), nil
}

// SetXAttr validates, persists and applies a volume attribute. Policy
// attribute keys must name a policy: "xtreemfs.policies.<policyID>.<key>".
// An empty value removes the attribute.
func (m *VolumeManager) SetXAttr(ctx context.Context, volumeID, key, value string) error {
	err := m.setXAttr(ctx, volumeID, key, value)
	switch {
	case err == nil:
		attributeWritesTotal.WithLabelValues("ok").Inc()
	case IsUserError(err):
		attributeWritesTotal.WithLabelValues("rejected").Inc()
	default:
		attributeWritesTotal.WithLabelValues("error").Inc()
	}
	return err
}

func (m *VolumeManager) setXAttr(ctx context.Context, volumeID, key, value string) error {
	f, err := m.Open(ctx, volumeID)
	if err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(key, PolicyAttrPrefix):
		policyKey := strings.TrimPrefix(key, PolicyAttrPrefix)
		id, _, err := ParsePolicyKey(policyKey)
		if err != nil {
			return err
		}
		if !id.Known() {
			return userErrorf(EINVAL, "unknown policy %d in attribute %q", id, key)
		}
		if err := m.store.Set(ctx, volumeID, key, value); err != nil {
			return fmt.Errorf("persist %s: %w", key, err)
		}
		return f.Configure(policyKey, value)

	case key == OSDPolicyAttr || key == ReplicaPolicyAttr:
		ids, err := osdselection.ParsePolicyList(value)
		if err != nil {
			return userErrorf(EINVAL, "invalid policy list %q: %v", value, err)
		}
		if value == "" && key == OSDPolicyAttr {
			ids = osdselection.DefaultOSDPolicy
		}
		if err := m.store.Set(ctx, volumeID, key, value); err != nil {
			return fmt.Errorf("persist %s: %w", key, err)
		}
		if key == OSDPolicyAttr {
			f.SetChains(ids, nil)
		} else {
			f.SetChains(nil, ids)
		}
		logger.Info().Str("volume", volumeID).Str("key", key).Str("value", value).Msg("selection chain updated")
		return nil

	case key == strings.TrimSuffix(PolicyAttrPrefix, "."):
		return userErrorf(EPERM, "policy ID required for attribute %q", key)
	}
	return userErrorf(EINVAL, "unknown system attribute %q", key)
}

// GetXAttr returns a persisted volume attribute. Unset chain attributes
// report the default chain.
func (m *VolumeManager) GetXAttr(ctx context.Context, volumeID, key string) (string, bool, error) {
	switch key {
	case OSDPolicyAttr, ReplicaPolicyAttr:
		info, err := m.VolumeInfo(ctx, volumeID)
		if err != nil {
			return "", false, err
		}
		if key == OSDPolicyAttr {
			return osdselection.FormatPolicyList(info.OSDPolicy), true, nil
		}
		return osdselection.FormatPolicyList(info.ReplicaPolicy), true, nil
	}
	return m.store.Get(ctx, volumeID, key)
}

// ListPolicyAttrs returns every persisted policy attribute of the volume.
func (m *VolumeManager) ListPolicyAttrs(ctx context.Context, volumeID string) (map[string]string, error) {
	return m.store.List(ctx, volumeID, PolicyAttrPrefix)
}

// SelectOSDs runs the volume's OSD chain for a new replica.
func (m *VolumeManager) SelectOSDs(ctx context.Context, volumeID string, sc *osdselection.SelectionContext) (types.ServiceSet, error) {
	start := time.Now()
	f, known, err := m.prepare(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	out := f.ApplyOSDSelection(known, sc)
	observe("select", start, len(out))
	return out, nil
}

// UsableOSDs runs the volume's OSD chain without request context.
func (m *VolumeManager) UsableOSDs(ctx context.Context, volumeID string) (types.ServiceSet, error) {
	start := time.Now()
	f, known, err := m.prepare(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	out := f.ApplyOSDSelectionSimple(known)
	observe("usable", start, len(out))
	return out, nil
}

// SortReplicas orders a file's replicas for reading by the given client.
func (m *VolumeManager) SortReplicas(ctx context.Context, volumeID, clientAddr string, coords *vivaldi.Coordinates, xlocs *types.XLocList) ([]types.Replica, error) {
	if xlocs == nil {
		return nil, nil
	}
	start := time.Now()
	f, known, err := m.prepare(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	out, err := f.SortReplicasByPolicy(known, clientAddr, coords, xlocs.Replicas)
	if err != nil {
		return nil, err
	}
	observe("replicas", start, len(out))
	return out, nil
}

func (m *VolumeManager) prepare(ctx context.Context, volumeID string) (*VolumeOSDFilter, types.ServiceSet, error) {
	f, err := m.Open(ctx, volumeID)
	if err != nil {
		return nil, nil, err
	}
	known, err := m.provider.KnownServices(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch known services: %w", err)
	}
	return f, known.OfType(types.ServiceTypeOSD), nil
}

func observe(op string, start time.Time, n int) {
	selectionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	selectedOSDs.WithLabelValues(op).Observe(float64(n))
}
